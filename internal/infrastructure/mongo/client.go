package mongoinfra

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/go-chat-otp/internal/config"
)

// NewClient connects to MongoDB and verifies the connection with a ping.
// The returned client is shared by all repos and safe for concurrent use.
func NewClient(ctx context.Context, cfg *config.Config) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return client, nil
}

// Bootstrap creates the unique indexes the repos rely on: one user per email
// and one OTP record per user. Safe to call on every startup. An error means
// uniqueness is not enforced and the stores must not be used.
func Bootstrap(ctx context.Context, db *mongo.Database, cfg *config.Config) error {
	if err := createUniqueIndex(ctx, db.Collection(cfg.MongoUsersCollection), "email"); err != nil {
		return err
	}
	return createUniqueIndex(ctx, db.Collection(cfg.MongoOtpsCollection), "user_id")
}

func createUniqueIndex(ctx context.Context, coll *mongo.Collection, field string) error {
	name, err := coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: field, Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("create unique index %s.%s: %w", coll.Name(), field, err)
	}
	slog.Info("ensured index", "collection", coll.Name(), "index", name)
	return nil
}
