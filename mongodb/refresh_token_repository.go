package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/Solsynth/DysonNetwork-sub002/domain"
)

// RefreshTokenRepository implements domain.RefreshTokenRepository on MongoDB.
type RefreshTokenRepository struct {
	tokens *mongo.Collection
}

func NewRefreshTokenRepository(db *mongo.Database) *RefreshTokenRepository {
	return &RefreshTokenRepository{
		tokens: db.Collection(RefreshTokensCollection),
	}
}

// Store implements domain.RefreshTokenRepository.Store.
func (r *RefreshTokenRepository) Store(ctx context.Context, token *domain.RefreshToken) error {
	if token.TokenHash == "" {
		return errors.New("refresh token hash cannot be empty")
	}

	if _, err := r.tokens.InsertOne(ctx, token); err != nil {
		var writeException mongo.WriteException
		if errors.As(err, &writeException) {
			for _, writeError := range writeException.WriteErrors {
				if writeError.Code == 11000 || writeError.Code == 11001 {
					return fmt.Errorf("refresh token already exists: %w", err)
				}
			}
		}
		log.Error().Err(err).Str("client_id", token.ClientID).Msg("error storing refresh token")
		return fmt.Errorf("failed to store refresh token: %w", err)
	}
	return nil
}

// GetByHash implements domain.RefreshTokenRepository.GetByHash.
func (r *RefreshTokenRepository) GetByHash(ctx context.Context, tokenHash string) (*domain.RefreshToken, error) {
	var token domain.RefreshToken
	err := r.tokens.FindOne(ctx, bson.M{"token_hash": tokenHash}).Decode(&token)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("refresh token not found")
		}
		return nil, fmt.Errorf("failed to retrieve refresh token: %w", err)
	}
	return &token, nil
}

// Revoke implements domain.RefreshTokenRepository.Revoke.
func (r *RefreshTokenRepository) Revoke(ctx context.Context, tokenHash string) error {
	result, err := r.tokens.UpdateOne(ctx,
		bson.M{"token_hash": tokenHash},
		bson.M{"$set": bson.M{"is_revoked": true}})
	if err != nil {
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("refresh token not found to revoke")
	}
	return nil
}

// DeleteExpired removes refresh tokens past their lifetime.
func (r *RefreshTokenRepository) DeleteExpired(ctx context.Context) error {
	_, err := r.tokens.DeleteMany(ctx, bson.M{"expires_at": bson.M{"$lte": time.Now().UTC()}})
	return err
}
