// Package repository provides the data access layer for MongoDB.
package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/openveg/directory-service/internal/domain/model"
)

// MongoConfig holds MongoDB connection pool configuration.
type MongoConfig struct {
	MaxPoolSize            uint64
	MinPoolSize            uint64
	MaxConnIdleTime        time.Duration
	ConnectTimeout         time.Duration
	ServerSelectionTimeout time.Duration
	SocketTimeout          time.Duration
	EnableCompression      bool
}

// DefaultMongoConfig returns production-optimized MongoDB configuration.
func DefaultMongoConfig() MongoConfig {
	return MongoConfig{
		MaxPoolSize:            50,
		MinPoolSize:            10,
		MaxConnIdleTime:        10 * time.Minute,
		ConnectTimeout:         10 * time.Second,
		ServerSelectionTimeout: 5 * time.Second,
		SocketTimeout:          30 * time.Second,
		EnableCompression:      true,
	}
}

// MongoDB provides MongoDB client and database access.
type MongoDB struct {
	Client   *mongo.Client
	Database *mongo.Database
	Reviews  *mongo.Collection
}

// NewMongoDB creates a new MongoDB connection with default configuration.
func NewMongoDB(uri, databaseName string) (*MongoDB, error) {
	return NewMongoDBWithConfig(uri, databaseName, DefaultMongoConfig())
}

// NewMongoDBWithConfig creates a new MongoDB connection with custom configuration.
func NewMongoDBWithConfig(uri, databaseName string, cfg MongoConfig) (*MongoDB, error) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	defer cancel()

	clientOptions := options.Client().
		ApplyURI(uri).
		SetMaxPoolSize(cfg.MaxPoolSize).
		SetMinPoolSize(cfg.MinPoolSize).
		SetMaxConnIdleTime(cfg.MaxConnIdleTime).
		SetConnectTimeout(cfg.ConnectTimeout).
		SetServerSelectionTimeout(cfg.ServerSelectionTimeout).
		SetSocketTimeout(cfg.SocketTimeout)

	if cfg.EnableCompression {
		clientOptions.SetCompressors([]string{"zstd", "snappy", "zlib"})
	}

	clientOptions.SetRetryWrites(true)
	clientOptions.SetRetryReads(true)

	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, err
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}

	db := client.Database(databaseName)
	mongoDB := &MongoDB{
		Client:   client,
		Database: db,
		Reviews:  db.Collection("reviews"),
	}

	if err := mongoDB.createIndexes(ctx); err != nil {
		return nil, err
	}

	return mongoDB, nil
}

// EntityCollection returns the collection backing an entity kind.
func (m *MongoDB) EntityCollection(kind model.EntityKind) *mongo.Collection {
	return m.Database.Collection(kind.Collection())
}

// createIndexes creates the indexes the integrity and geo paths rely on.
func (m *MongoDB) createIndexes(ctx context.Context) error {
	// Review uniqueness: this index, not the service pre-check, is what
	// closes the check-then-insert race.
	reviewUniqueIndex := mongo.IndexModel{
		Keys: bson.D{
			{Key: "author", Value: 1},
			{Key: "entity_kind", Value: 1},
			{Key: "entity", Value: 1},
		},
		Options: options.Index().SetUnique(true),
	}
	if _, err := m.Reviews.Indexes().CreateOne(ctx, reviewUniqueIndex); err != nil {
		return err
	}

	// Entity lookup by review target.
	entityIndex := mongo.IndexModel{
		Keys: bson.D{
			{Key: "entity_kind", Value: 1},
			{Key: "entity", Value: 1},
		},
		Options: options.Index().SetUnique(false),
	}
	_, _ = m.Reviews.Indexes().CreateOne(ctx, entityIndex)

	// 2dsphere per entity collection for nearby search, plus name for
	// listing sort. Errors for pre-existing indexes are ignored.
	for _, kind := range model.AllKinds {
		coll := m.EntityCollection(kind)
		geoIndex := mongo.IndexModel{
			Keys: bson.D{{Key: "location", Value: "2dsphere"}},
		}
		_, _ = coll.Indexes().CreateOne(ctx, geoIndex)

		nameIndex := mongo.IndexModel{
			Keys: bson.D{{Key: "name", Value: 1}},
		}
		_, _ = coll.Indexes().CreateOne(ctx, nameIndex)
	}

	return nil
}

// Close closes the MongoDB connection.
func (m *MongoDB) Close(ctx context.Context) error {
	return m.Client.Disconnect(ctx)
}

// HealthCheck verifies the MongoDB connection is healthy.
func (m *MongoDB) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return m.Client.Ping(ctx, nil)
}
