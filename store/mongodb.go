package store

import (
	"context"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type DB struct {
	Client   *mongo.Client
	Database *mongo.Database
	// EncKey, when 32 bytes, encrypts the admin credential record at rest.
	EncKey []byte
}

func NewMongoDB(ctx context.Context, uri, dbName string) (*DB, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, err
	}
	log.Println("Connected to MongoDB")
	return &DB{
		Client:   client,
		Database: client.Database(dbName),
	}, nil
}

func (db *DB) Admins() *mongo.Collection {
	return db.Database.Collection("admins")
}

func (db *DB) Employees() *mongo.Collection {
	return db.Database.Collection("employees")
}

func (db *DB) Customers() *mongo.Collection {
	return db.Database.Collection("customers")
}

func (db *DB) EmailLogs() *mongo.Collection {
	return db.Database.Collection("email_logs")
}

// EnsureAccountIndexes creates unique email indexes on the employee and
// customer collections so an email maps to at most one account per kind.
func (db *DB) EnsureAccountIndexes(ctx context.Context) error {
	idx := mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	if _, err := db.Employees().Indexes().CreateOne(ctx, idx); err != nil {
		return err
	}
	_, err := db.Customers().Indexes().CreateOne(ctx, idx)
	return err
}

func (db *DB) Disconnect(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return db.Client.Disconnect(ctx)
}
