// Package mongo stores endpoint hits in a MongoDB collection.
package mongo

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/louisbranch/ewm/internal/services/stats/domain"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

const hitsCollection = "hits"

// Store persists hits in MongoDB.
type Store struct {
	client *mongo.Client
	hits   *mongo.Collection
}

type hitDocument struct {
	ID        bson.ObjectID `bson:"_id,omitempty"`
	App       string        `bson:"app"`
	URI       string        `bson:"uri"`
	IP        string        `bson:"ip"`
	Timestamp time.Time     `bson:"timestamp"`
}

type statsDocument struct {
	App  string `bson:"app"`
	URI  string `bson:"uri"`
	Hits int64  `bson:"hits"`
}

// Open connects to uri, verifies the primary is reachable and ensures the
// hit indexes exist in database.
func Open(ctx context.Context, uri, database string) (*Store, error) {
	uri = strings.TrimSpace(uri)
	database = strings.TrimSpace(database)
	if uri == "" {
		return nil, fmt.Errorf("mongo uri is required")
	}
	if database == "" {
		return nil, fmt.Errorf("mongo database is required")
	}
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	store := &Store{client: client, hits: client.Database(database).Collection(hitsCollection)}
	if err := store.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	return store, nil
}

func (s *Store) ensureIndexes(ctx context.Context) error {
	_, err := s.hits.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "timestamp", Value: 1}, {Key: "uri", Value: 1}},
	})
	if err != nil {
		return fmt.Errorf("create hit index: %w", err)
	}
	return nil
}

// Close disconnects the client.
func (s *Store) Close(ctx context.Context) error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Disconnect(ctx)
}

// SaveHit inserts one hit. The generated ObjectID becomes the hit id.
func (s *Store) SaveHit(ctx context.Context, hit domain.Hit) (domain.Hit, error) {
	if err := ctx.Err(); err != nil {
		return domain.Hit{}, err
	}
	if s == nil || s.hits == nil {
		return domain.Hit{}, domain.ErrStoreNotConfigured
	}
	doc := hitDocument{
		ID:        bson.NewObjectID(),
		App:       hit.App,
		URI:       hit.URI,
		IP:        hit.IP,
		Timestamp: hit.Timestamp.UTC(),
	}
	if _, err := s.hits.InsertOne(ctx, doc); err != nil {
		return domain.Hit{}, fmt.Errorf("save hit: %w", err)
	}
	hit.ID = doc.ID.Hex()
	return hit, nil
}

// Stats aggregates hits per (app, uri) inside the query window.
func (s *Store) Stats(ctx context.Context, query domain.Query) ([]domain.ViewStats, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.hits == nil {
		return nil, domain.ErrStoreNotConfigured
	}
	cursor, err := s.hits.Aggregate(ctx, statsPipeline(query))
	if err != nil {
		return nil, fmt.Errorf("aggregate stats: %w", err)
	}
	var docs []statsDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode stats: %w", err)
	}
	stats := make([]domain.ViewStats, 0, len(docs))
	for _, doc := range docs {
		stats = append(stats, domain.ViewStats{App: doc.App, URI: doc.URI, Hits: doc.Hits})
	}
	return stats, nil
}

func statsPipeline(query domain.Query) mongo.Pipeline {
	match := bson.D{{Key: "timestamp", Value: bson.D{
		{Key: "$gte", Value: query.Start.UTC()},
		{Key: "$lte", Value: query.End.UTC()},
	}}}
	if len(query.URIs) > 0 {
		match = append(match, bson.E{Key: "uri", Value: bson.D{{Key: "$in", Value: query.URIs}}})
	}

	groupKey := bson.D{{Key: "app", Value: "$app"}, {Key: "uri", Value: "$uri"}}
	var group, hits bson.D
	if query.Unique {
		group = bson.D{{Key: "_id", Value: groupKey}, {Key: "ips", Value: bson.D{{Key: "$addToSet", Value: "$ip"}}}}
		hits = bson.D{{Key: "$size", Value: "$ips"}}
	} else {
		group = bson.D{{Key: "_id", Value: groupKey}, {Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}}}
		hits = bson.D{{Key: "$toLong", Value: "$count"}}
	}

	return mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$group", Value: group}},
		{{Key: "$project", Value: bson.D{
			{Key: "_id", Value: 0},
			{Key: "app", Value: "$_id.app"},
			{Key: "uri", Value: "$_id.uri"},
			{Key: "hits", Value: hits},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "hits", Value: -1}, {Key: "app", Value: 1}, {Key: "uri", Value: 1}}}},
	}
}

var _ domain.Store = (*Store)(nil)
