package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const defaultCollection = "graphs"

// MongoStore persists records in a MongoDB collection so multiple server
// instances share one graph catalog.
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
}

// MongoConfig configures the Mongo backend.
type MongoConfig struct {
	// URI is the MongoDB connection string.
	URI string

	// Database is the database name.
	Database string

	// Collection is the collection name. Defaults to "graphs".
	Collection string
}

// NewMongoStore connects to MongoDB and verifies the connection with a
// ping.
func NewMongoStore(ctx context.Context, cfg MongoConfig) (*MongoStore, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping: %w", err)
	}

	coll := cfg.Collection
	if coll == "" {
		coll = defaultCollection
	}
	return &MongoStore{
		client: client,
		coll:   client.Database(cfg.Database).Collection(coll),
	}, nil
}

func (s *MongoStore) Get(ctx context.Context, id string) (*Record, error) {
	var rec Record
	err := s.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("record %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find record %q: %w", id, err)
	}
	if rec.IsExpired() {
		// Best effort: an expired record reads as expired even if the
		// delete fails.
		_, _ = s.coll.DeleteOne(ctx, bson.M{"_id": id})
		return nil, fmt.Errorf("record %q: %w", id, ErrExpired)
	}
	return &rec, nil
}

func (s *MongoStore) Put(ctx context.Context, rec *Record) error {
	if rec.ID == "" {
		return fmt.Errorf("record has no ID")
	}

	copied := *rec
	if copied.CreatedAt.IsZero() {
		copied.CreatedAt = time.Now()
	}

	_, err := s.coll.ReplaceOne(ctx,
		bson.M{"_id": copied.ID},
		&copied,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("store record %q: %w", copied.ID, err)
	}
	return nil
}

func (s *MongoStore) Delete(ctx context.Context, id string) error {
	res, err := s.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete record %q: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("record %q: %w", id, ErrNotFound)
	}
	return nil
}

func (s *MongoStore) List(ctx context.Context) ([]*Record, error) {
	cursor, err := s.coll.Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer cursor.Close(ctx)

	var all []*Record
	if err := cursor.All(ctx, &all); err != nil {
		return nil, fmt.Errorf("decode records: %w", err)
	}

	live := all[:0]
	for _, rec := range all {
		if !rec.IsExpired() {
			live = append(live, rec)
		}
	}
	return live, nil
}

func (s *MongoStore) Cleanup(ctx context.Context) error {
	// A zero ExpiresAt means no expiry; it sorts before every real
	// timestamp, so the window (zero, now] selects exactly the expired.
	_, err := s.coll.DeleteMany(ctx, bson.M{
		"expires_at": bson.M{"$gt": time.Time{}, "$lte": time.Now()},
	})
	if err != nil {
		return fmt.Errorf("cleanup records: %w", err)
	}
	return nil
}

func (s *MongoStore) Close() error {
	return s.client.Disconnect(context.Background())
}

var _ Store = (*MongoStore)(nil)
