package store

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type DB struct {
	Client   *mongo.Client
	Database *mongo.Database
	// UseTransactions runs multi-document writes in a session transaction. Requires a replica set.
	UseTransactions bool
}

func NewMongoDB(ctx context.Context, uri, dbName string, useTransactions bool) (*DB, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}
	slog.Info("connected to MongoDB", "database", dbName, "transactions", useTransactions)
	return &DB{
		Client:          client,
		Database:        client.Database(dbName),
		UseTransactions: useTransactions,
	}, nil
}

func (db *DB) Users() *mongo.Collection {
	return db.Database.Collection("users")
}

func (db *DB) Books() *mongo.Collection {
	return db.Database.Collection("books")
}

func (db *DB) Transactions() *mongo.Collection {
	return db.Database.Collection("transactions")
}

// EnsureIndexes creates the unique account indexes and the ledger lookup indexes.
func (db *DB) EnsureIndexes(ctx context.Context) error {
	unique := options.Index().SetUnique(true)
	if _, err := db.Users().Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: unique},
		{Keys: bson.D{{Key: "username", Value: 1}}, Options: unique},
	}); err != nil {
		return fmt.Errorf("user indexes: %w", err)
	}
	if _, err := db.Books().Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "category", Value: 1}}},
		{Keys: bson.D{{Key: "author", Value: 1}}},
		{Keys: bson.D{{Key: "year", Value: -1}}},
	}); err != nil {
		return fmt.Errorf("book indexes: %w", err)
	}
	if _, err := db.Transactions().Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}},
		{Keys: bson.D{{Key: "bookId", Value: 1}, {Key: "status", Value: 1}}},
		{Keys: bson.D{{Key: "type", Value: 1}, {Key: "status", Value: 1}, {Key: "rentalEndDate", Value: 1}}},
		{Keys: bson.D{{Key: "createdAt", Value: -1}}},
	}); err != nil {
		return fmt.Errorf("transaction indexes: %w", err)
	}
	if _, err := db.Notifications().Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "sentAt", Value: -1}},
	}); err != nil {
		return fmt.Errorf("notification indexes: %w", err)
	}
	return nil
}

// WithTransaction runs fn inside a MongoDB session transaction when UseTransactions is set,
// otherwise it calls fn with ctx directly and the caller is responsible for compensation.
func (db *DB) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if !db.UseTransactions {
		return fn(ctx)
	}
	session, err := db.Client.StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)
	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

func (db *DB) Disconnect(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return db.Client.Disconnect(ctx)
}
