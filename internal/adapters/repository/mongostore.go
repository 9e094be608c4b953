package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/solecism/podium/internal/domain/model"
	"github.com/solecism/podium/pkg/metrics"
)

// Default Mongo adapter configuration constants.
const (
	defaultCollection  = "scores"
	defaultCallTimeout = 10 * time.Second
)

// MongoStore implements Store on top of a MongoDB collection.
// Upsert relies on the collection's per-document atomicity; no additional
// locking is applied for same-user races.
type MongoStore struct {
	coll       *mongo.Collection
	collection string
	timeout    time.Duration
}

// MongoOption applies a configuration option to the MongoStore.
type MongoOption func(*MongoStore)

// WithCollection overrides the backing collection name.
func WithCollection(name string) MongoOption {
	return func(s *MongoStore) {
		if name != "" {
			s.collection = name
		}
	}
}

// WithCallTimeout bounds each backend call.
func WithCallTimeout(d time.Duration) MongoOption {
	return func(s *MongoStore) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// NewMongoStore creates a store over db using configuration options.
func NewMongoStore(db *mongo.Database, opts ...MongoOption) *MongoStore {
	s := &MongoStore{
		collection: defaultCollection,
		timeout:    defaultCallTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.coll = db.Collection(s.collection)
	return s
}

// Upsert inserts or replaces the record for userID.
func (s *MongoStore) Upsert(ctx context.Context, userID string, value float64) (model.Score, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	defer observeStore(time.Now())

	after := options.After
	res := s.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": userID},
		bson.M{"$set": bson.M{"value": value}},
		&options.FindOneAndUpdateOptions{
			Upsert:         boolPtr(true),
			ReturnDocument: &after,
		},
	)
	var score model.Score
	if err := res.Decode(&score); err != nil {
		return model.Score{}, fmt.Errorf("%w: upsert %s: %v", ErrUnavailable, userID, err)
	}
	return score, nil
}

// CountGreater counts records with value strictly greater than value.
func (s *MongoStore) CountGreater(ctx context.Context, value float64) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	defer observeStore(time.Now())

	n, err := s.coll.CountDocuments(ctx, bson.M{"value": bson.M{"$gt": value}})
	if err != nil {
		return 0, fmt.Errorf("%w: count greater than %v: %v", ErrUnavailable, value, err)
	}
	return n, nil
}

// TopN returns up to n records sorted by value descending.
func (s *MongoStore) TopN(ctx context.Context, n int) ([]model.Score, error) {
	if n < 1 {
		return nil, ErrInvalidLimit
	}
	findOpts := options.Find().
		SetSort(bson.D{{Key: "value", Value: -1}}).
		SetLimit(int64(n))
	return s.find(ctx, findOpts)
}

// All returns every record sorted by value descending.
func (s *MongoStore) All(ctx context.Context) ([]model.Score, error) {
	findOpts := options.Find().SetSort(bson.D{{Key: "value", Value: -1}})
	return s.find(ctx, findOpts)
}

func (s *MongoStore) find(ctx context.Context, findOpts *options.FindOptions) ([]model.Score, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	defer observeStore(time.Now())

	cursor, err := s.coll.Find(ctx, bson.M{}, findOpts)
	if err != nil {
		return nil, fmt.Errorf("%w: find: %v", ErrUnavailable, err)
	}
	defer cursor.Close(ctx)

	var scores []model.Score
	if err := cursor.All(ctx, &scores); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrUnavailable, err)
	}
	return scores, nil
}

func observeStore(start time.Time) {
	metrics.RecordStoreLatency(float64(time.Since(start).Milliseconds()))
}

func boolPtr(b bool) *bool { return &b }
