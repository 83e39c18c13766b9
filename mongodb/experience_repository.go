package mongodb

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/v2/mongo"
)

// experienceEntry is one row of the experience ledger.
type experienceEntry struct {
	ID        string    `bson:"_id"`
	AccountID string    `bson:"account_id"`
	Amount    int64     `bson:"amount"`
	Reason    string    `bson:"reason"`
	CreatedAt time.Time `bson:"created_at"`
}

// ExperienceRepository implements domain.ExperienceLedger on MongoDB.
type ExperienceRepository struct {
	entries *mongo.Collection
}

func NewExperienceRepository(db *mongo.Database) *ExperienceRepository {
	return &ExperienceRepository{
		entries: db.Collection(ExperienceCollection),
	}
}

// Append implements domain.ExperienceLedger.Append.
func (r *ExperienceRepository) Append(ctx context.Context, accountID string, amount int64, reason string) error {
	entry := experienceEntry{
		ID:        uuid.NewString(),
		AccountID: accountID,
		Amount:    amount,
		Reason:    reason,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := r.entries.InsertOne(ctx, entry); err != nil {
		return fmt.Errorf("failed to append experience entry: %w", err)
	}
	return nil
}
