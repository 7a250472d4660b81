package mongo

import (
	"alcyxob/rehab-app/internal/logger"
	"alcyxob/rehab-app/internal/repository"
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// Default connection timeout
const defaultTimeout = 10 * time.Second

// Collection names
const (
	userCollectionName       = "users"
	categoryCollectionName   = "exercise_categories"
	variantCollectionName    = "exercise_variants"
	injuryCollectionName     = "injury_types"
	assignmentCollectionName = "assignments"
	sessionCollectionName    = "sessions"
	entryCollectionName      = "session_entries"
)

// ConnectDB establishes a connection to MongoDB using the provided URI and
// verifies it with a ping against the primary.
func ConnectDB(uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}

	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer pingCancel()

	if err = client.Ping(pingCtx, readpref.Primary()); err != nil {
		disconnectCtx, disconnectCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer disconnectCancel()
		_ = client.Disconnect(disconnectCtx)
		return nil, err
	}

	return client, nil
}

// DisconnectDB gracefully disconnects the MongoDB client.
func DisconnectDB(client *mongo.Client) error {
	ctx, cancel := context.WithTimeout(context.Background(), defaultTimeout)
	defer cancel()
	return client.Disconnect(ctx)
}

// EnsureIndexes creates the indexes of every collection. The unique indexes
// back the (user, variant), (user, date) and (session, assignment) identities,
// so a failure here is logged loudly.
func EnsureIndexes(ctx context.Context, db *mongo.Database, log *logger.Logger) {
	ensure := map[string][]mongo.IndexModel{
		userCollectionName:       userIndexes(),
		categoryCollectionName:   categoryIndexes(),
		variantCollectionName:    variantIndexes(),
		injuryCollectionName:     injuryIndexes(),
		assignmentCollectionName: assignmentIndexes(),
		sessionCollectionName:    sessionIndexes(),
		entryCollectionName:      entryIndexes(),
	}
	for name, indexes := range ensure {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, indexes); err != nil {
			log.Error("failed to create indexes", "collection", name, "error", err)
		}
	}
}

// mapError translates driver errors into repository errors.
func mapError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return repository.ErrNotFound
	case mongo.IsDuplicateKeyError(err):
		return repository.ErrDuplicate
	}
	return err
}
