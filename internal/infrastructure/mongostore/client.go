// Package mongostore keeps job records and import runs in MongoDB. It is the
// alternative to the Postgres repositories and is selected with
// STORE_DRIVER=mongo.
package mongostore

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

const connectTimeout = 10 * time.Second

// Connect opens a client and verifies the primary is reachable.
func Connect(ctx context.Context, uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongodb: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}
	return client, nil
}

// EnsureIndexes creates the unique natural-key index on job records and the
// listing indexes on import runs.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(jobsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "sourceId", Value: 1}, {Key: "sourceName", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("ux_job_records_source"),
		},
		{Keys: bson.D{{Key: "lastImportId", Value: 1}}},
	})
	if err != nil {
		return fmt.Errorf("create job record indexes: %w", err)
	}

	_, err = db.Collection(runsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "status", Value: 1}, {Key: "createdAt", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("create import run indexes: %w", err)
	}
	return nil
}
