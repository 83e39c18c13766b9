package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/Solsynth/DysonNetwork-sub002/domain"
)

const AccountsCollection = "accounts"

// AccountRepository implements domain.AccountReader on MongoDB. Account
// management is owned by another service; this repository only reads the
// profile fields the check-in flow needs.
type AccountRepository struct {
	accounts *mongo.Collection
}

func NewAccountRepository(db *mongo.Database) *AccountRepository {
	return &AccountRepository{
		accounts: db.Collection(AccountsCollection),
	}
}

// GetAccount implements domain.AccountReader.GetAccount.
func (r *AccountRepository) GetAccount(ctx context.Context, accountID string) (*domain.Account, error) {
	var account domain.Account
	err := r.accounts.FindOne(ctx, bson.M{"_id": accountID}).Decode(&account)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("account %s not found", accountID)
		}
		return nil, fmt.Errorf("failed to retrieve account: %w", err)
	}
	return &account, nil
}
