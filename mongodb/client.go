package mongodb

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

const (
	ClientsCollection       = "oauth_clients"        // For OAuth clients
	RefreshTokensCollection = "oauth_refresh_tokens" // For persisted refresh tokens
	CheckInsCollection      = "account_check_ins"    // For daily check-in results
	ExperienceCollection    = "experience_ledger"    // For experience reward entries
)

// Connect initializes a MongoDB client and returns the database handle.
// It should be called once at application startup.
func Connect(ctx context.Context, uri, dbName string) (*mongo.Database, error) {
	log.Info().Str("db", dbName).Msg("connecting to MongoDB")

	clientOptions := options.Client().ApplyURI(uri)
	clientOptions.SetConnectTimeout(10 * time.Second)

	client, err := mongo.Connect(clientOptions)
	if err != nil {
		return nil, err
	}

	// Ping the primary to verify connection.
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, err
	}

	return client.Database(dbName), nil
}
