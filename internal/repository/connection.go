package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ErrNoReplicaSet is returned when the server cannot serve change streams.
var ErrNoReplicaSet = errors.New("mongodb is not running as a replica set")

// ConnectMongoDB connects, pings and checks that the server belongs to a replica set, since live
// collection streams are built on change streams. The client is disconnected on any failure.
func ConnectMongoDB(ctx context.Context, uri, database string) (*mongo.Database, error) {
	clientOpts := options.Client().
		ApplyURI(uri).
		SetAppName("storefront").
		SetConnectTimeout(10 * time.Second).
		SetServerSelectionTimeout(5 * time.Second).
		SetMaxPoolSize(100).
		SetMinPoolSize(10)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	db := client.Database(database)
	if err := verify(ctx, db); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return db, nil
}

func verify(ctx context.Context, db *mongo.Database) error {
	if err := db.Client().Ping(ctx, nil); err != nil {
		return fmt.Errorf("failed to ping MongoDB: %w", err)
	}
	name, err := ReplicaSetName(ctx, db)
	if err != nil {
		return err
	}
	if name == "" {
		return ErrNoReplicaSet
	}
	return nil
}

// ReplicaSetName reports the replica set the connected server belongs to, or "" for a standalone.
func ReplicaSetName(ctx context.Context, db *mongo.Database) (string, error) {
	var hello struct {
		SetName string `bson:"setName"`
	}
	if err := db.RunCommand(ctx, bson.D{{Key: "hello", Value: 1}}).Decode(&hello); err != nil {
		return "", fmt.Errorf("failed to run hello: %w", err)
	}
	return hello.SetName, nil
}
