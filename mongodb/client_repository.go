package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/Solsynth/DysonNetwork-sub002/domain"
)

// ClientRepository implements domain.ClientStore on MongoDB.
type ClientRepository struct {
	clients *mongo.Collection
}

func NewClientRepository(db *mongo.Database) *ClientRepository {
	return &ClientRepository{
		clients: db.Collection(ClientsCollection),
	}
}

// GetClient implements domain.ClientStore.GetClient.
func (r *ClientRepository) GetClient(ctx context.Context, clientID string) (*domain.Client, error) {
	var cli domain.Client
	err := r.clients.FindOne(ctx, bson.M{"client_id": clientID}).Decode(&cli)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("client %s not found", clientID)
		}
		return nil, fmt.Errorf("failed to retrieve client: %w", err)
	}
	return &cli, nil
}

// CreateClient registers a client. Secrets are expected to arrive already
// bcrypt-hashed.
func (r *ClientRepository) CreateClient(ctx context.Context, cli *domain.Client) error {
	now := time.Now().UTC()
	cli.CreatedAt = now
	cli.UpdatedAt = now

	if _, err := r.clients.InsertOne(ctx, cli); err != nil {
		var writeException mongo.WriteException
		if errors.As(err, &writeException) {
			for _, writeError := range writeException.WriteErrors {
				if writeError.Code == 11000 || writeError.Code == 11001 {
					return fmt.Errorf("client %s already exists: %w", cli.ID, err)
				}
			}
		}
		return fmt.Errorf("failed to create client: %w", err)
	}
	return nil
}
