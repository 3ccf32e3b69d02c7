package database

import (
	"context"
	"fmt"
	"time"

	"farmmarket/marketplace-service/internal/app/marketplace/config"
	"farmmarket/pkg/logger"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

// ConnectMongo подключается к MongoDB с повторными попытками
func ConnectMongo(ctx context.Context, cfg config.MongoDBConfig) (*mongo.Client, error) {
	clientOptions := options.Client().
		ApplyURI(cfg.URI).
		SetServerSelectionTimeout(5 * time.Second)

	var (
		client *mongo.Client
		err    error
	)
	for attempt := 1; attempt <= ConnectAttempts; attempt++ {
		client, err = mongo.Connect(ctx, clientOptions)
		if err == nil {
			pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err = client.Ping(pingCtx, readpref.Primary())
			cancel()
			if err == nil {
				return client, nil
			}
			_ = client.Disconnect(context.Background())
		}

		logger.Warn().
			Int("attempt", attempt).
			Err(err).
			Msg("Failed to connect to MongoDB, retrying...")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(3 * time.Second):
		}
	}

	return nil, fmt.Errorf("failed to connect to MongoDB after %d attempts: %w", ConnectAttempts, err)
}
