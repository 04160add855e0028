package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// StateCollectionName is where client state documents live.
const StateCollectionName = "client_state"

// ConnectMongo connects to MongoDB at uri and verifies the connection.
func ConnectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	if uri == "" {
		uri = "mongodb://localhost:27017"
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo.Connect error: %w", err)
	}
	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	// Ping to verify connection
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo.Ping error: %w", err)
	}
	return client, nil
}

// stateDocument is one persisted key.
type stateDocument struct {
	Key       string    `bson:"_id"`
	Value     []byte    `bson:"value"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// MongoStateCollection wraps a MongoDB collection for client state.
type MongoStateCollection struct {
	Collection *mongo.Collection
}

// NewStateCollection returns the state collection of database dbName.
func NewStateCollection(client *mongo.Client, dbName string) *MongoStateCollection {
	return &MongoStateCollection{Collection: client.Database(dbName).Collection(StateCollectionName)}
}

// Load returns the value stored under key.
func (c *MongoStateCollection) Load(ctx context.Context, key string) ([]byte, error) {
	if c.Collection == nil {
		return nil, fmt.Errorf("mongo collection is nil")
	}
	var doc stateDocument
	err := c.Collection.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return doc.Value, nil
}

// Save upserts the value under key.
func (c *MongoStateCollection) Save(ctx context.Context, key string, value []byte) error {
	if c.Collection == nil {
		return fmt.Errorf("mongo collection is nil")
	}
	doc := stateDocument{Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	_, err := c.Collection.ReplaceOne(ctx, bson.M{"_id": key}, doc, options.Replace().SetUpsert(true))
	return err
}

// Delete removes key. Deleting a missing key is not an error.
func (c *MongoStateCollection) Delete(ctx context.Context, key string) error {
	if c.Collection == nil {
		return fmt.Errorf("mongo collection is nil")
	}
	_, err := c.Collection.DeleteOne(ctx, bson.M{"_id": key})
	return err
}
