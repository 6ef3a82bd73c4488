package main

import (
	"context"
	"fmt"
	"path/filepath"

	"wedding-site/internal/config"
	"wedding-site/internal/storage"
	"wedding-site/internal/storage/dynamo"
	"wedding-site/internal/storage/mongo"
	"wedding-site/internal/storage/sqlite"
)

// newStore opens the document backend selected by STORE_DRIVER.
func newStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	switch cfg.StoreDriver {
	case config.DriverFile:
		return storage.NewFileStore(filepath.Join(cfg.DataDir, cfg.DocumentID+".json"))
	case config.DriverSQLite:
		return sqlite.New(cfg.SQLitePath, cfg.DocumentID)
	case config.DriverDynamoDB:
		return dynamo.New(ctx, dynamo.Config{
			Table:      cfg.DynamoTable,
			Region:     cfg.AWSRegion,
			DocumentID: cfg.DocumentID,
		})
	case config.DriverMongoDB:
		return mongo.New(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.MongoCollection, cfg.DocumentID)
	default:
		return nil, fmt.Errorf("unsupported store driver %q", cfg.StoreDriver)
	}
}
