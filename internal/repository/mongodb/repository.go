package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/mamadbah2/billdesk/internal/domain/models"
)

const (
	sessionCollection  = "local_storage"
	snapshotCollection = "dashboard_snapshots"
)

type storageEntry struct {
	Key   string `bson:"_id"`
	Value string `bson:"value"`
}

// MongoDBRepository keeps the persisted session and dashboard snapshots in MongoDB.
type MongoDBRepository struct {
	client *mongo.Client
	dbName string
}

// NewMongoDBRepository creates a new MongoDB repository.
func NewMongoDBRepository(ctx context.Context, uri string, dbName string) (*MongoDBRepository, error) {
	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}

	// Ping the database to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	return &MongoDBRepository{
		client: client,
		dbName: dbName,
	}, nil
}

func (r *MongoDBRepository) collection(name string) *mongo.Collection {
	return r.client.Database(r.dbName).Collection(name)
}

// Get implements session.Storage.
func (r *MongoDBRepository) Get(ctx context.Context, key string) (string, bool, error) {
	var entry storageEntry
	err := r.collection(sessionCollection).FindOne(ctx, bson.M{"_id": key}).Decode(&entry)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read session key %s: %w", key, err)
	}
	return entry.Value, true, nil
}

// Set implements session.Storage.
func (r *MongoDBRepository) Set(ctx context.Context, key, value string) error {
	_, err := r.collection(sessionCollection).ReplaceOne(ctx,
		bson.M{"_id": key},
		storageEntry{Key: key, Value: value},
		options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to write session key %s: %w", key, err)
	}
	return nil
}

// Delete implements session.Storage.
func (r *MongoDBRepository) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	_, err := r.collection(sessionCollection).DeleteMany(ctx, bson.M{"_id": bson.M{"$in": keys}})
	if err != nil {
		return fmt.Errorf("failed to clear session keys: %w", err)
	}
	return nil
}

// SaveDashboardSnapshot saves a dashboard snapshot to the database.
func (r *MongoDBRepository) SaveDashboardSnapshot(ctx context.Context, snapshot models.DashboardSnapshot) error {
	_, err := r.collection(snapshotCollection).InsertOne(ctx, snapshot)
	if err != nil {
		return fmt.Errorf("failed to insert dashboard snapshot: %w", err)
	}
	return nil
}

// Close closes the MongoDB connection.
func (r *MongoDBRepository) Close(ctx context.Context) error {
	return r.client.Disconnect(ctx)
}
