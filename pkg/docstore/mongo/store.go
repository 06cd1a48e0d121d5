package mongo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sigmarp/medical-api/pkg/docstore"
)

type Config struct {
	URI            string
	Database       string
	ConnectTimeout time.Duration
}

type Store struct {
	client *mongo.Client
	db     *mongo.Database
}

var (
	_ docstore.Store   = (*Store)(nil)
	_ docstore.Indexer = (*Store)(nil)
)

func Connect(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.URI == "" {
		cfg.URI = "mongodb://localhost:27017"
	}
	if cfg.Database == "" {
		cfg.Database = "sigma"
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 10 * time.Second
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	return &Store{client: client, db: client.Database(cfg.Database)}, nil
}

func (s *Store) Get(ctx context.Context, collection, id string) (docstore.Document, error) {
	raw, err := s.db.Collection(collection).FindOne(ctx, bson.M{"_id": id}).Raw()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, docstore.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find %s/%s: %w", collection, id, err)
	}
	return toDocument(raw)
}

func (s *Store) Put(ctx context.Context, collection, id string, doc docstore.Document) error {
	_, err := s.db.Collection(collection).ReplaceOne(ctx, bson.M{"_id": id}, withID(doc, id), options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("put %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *Store) Replace(ctx context.Context, collection, id string, doc docstore.Document, expectedVersion int64) error {
	filter := bson.M{"_id": id, docstore.VersionField: expectedVersion}
	opts := options.Replace()
	if expectedVersion == 0 {
		filter = bson.M{"_id": id, "$or": bson.A{
			bson.M{docstore.VersionField: 0},
			bson.M{docstore.VersionField: bson.M{"$exists": false}},
		}}
		opts.SetUpsert(true)
	}

	res, err := s.db.Collection(collection).ReplaceOne(ctx, filter, withID(doc, id), opts)
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: %s/%s", docstore.ErrConflict, collection, id)
	}
	if err != nil {
		return fmt.Errorf("replace %s/%s: %w", collection, id, err)
	}
	if res.MatchedCount == 0 && res.UpsertedCount == 0 {
		return fmt.Errorf("%w: %s/%s", docstore.ErrConflict, collection, id)
	}
	return nil
}

func (s *Store) Merge(ctx context.Context, collection, id string, fields docstore.Document) error {
	res, err := s.db.Collection(collection).UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M(fields)})
	if err != nil {
		return fmt.Errorf("merge %s/%s: %w", collection, id, err)
	}
	if res.MatchedCount == 0 {
		return docstore.ErrNotFound
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, collection, id string) error {
	if _, err := s.db.Collection(collection).DeleteOne(ctx, bson.M{"_id": id}); err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}
	return nil
}

func (s *Store) Find(ctx context.Context, collection string, q docstore.Query) ([]docstore.Snapshot, error) {
	opts := options.Find()
	if q.OrderBy != "" {
		dir := 1
		if q.Descending {
			dir = -1
		}
		opts.SetSort(bson.D{{Key: q.OrderBy, Value: dir}})
	}
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}

	cursor, err := s.db.Collection(collection).Find(ctx, buildFilter(q.Filters), opts)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", collection, err)
	}
	defer cursor.Close(ctx)

	var out []docstore.Snapshot
	for cursor.Next(ctx) {
		doc, err := toDocument(cursor.Current)
		if err != nil {
			return nil, err
		}
		id, _ := cursor.Current.Lookup("_id").StringValueOK()
		out = append(out, docstore.Snapshot{ID: id, Data: doc})
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", collection, err)
	}
	return out, nil
}

func (s *Store) EnsureIndexes(ctx context.Context, specs []docstore.IndexSpec) error {
	for _, spec := range specs {
		keys := bson.D{}
		for i, field := range spec.Fields {
			dir := 1
			if i == len(spec.Fields)-1 && len(spec.Fields) > 1 {
				dir = -1
			}
			keys = append(keys, bson.E{Key: field, Value: dir})
		}
		if _, err := s.db.Collection(spec.Collection).Indexes().CreateOne(ctx, mongo.IndexModel{Keys: keys}); err != nil {
			return fmt.Errorf("create index on %s %v: %w", spec.Collection, spec.Fields, err)
		}
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func buildFilter(filters []docstore.Filter) bson.D {
	filter := bson.D{}
	for _, f := range filters {
		filter = append(filter, bson.E{Key: f.Field, Value: f.Value})
	}
	return filter
}

func withID(doc docstore.Document, id string) bson.M {
	out := make(bson.M, len(doc)+1)
	for k, v := range doc {
		out[k] = v
	}
	out["_id"] = id
	return out
}

// toDocument converts a raw BSON document into the JSON shape every backend
// returns. Relaxed extended JSON keeps numbers as plain JSON numbers.
func toDocument(raw bson.Raw) (docstore.Document, error) {
	ext, err := bson.MarshalExtJSON(raw, false, false)
	if err != nil {
		return nil, fmt.Errorf("convert document: %w", err)
	}
	var doc docstore.Document
	if err := json.Unmarshal(ext, &doc); err != nil {
		return nil, fmt.Errorf("decode document: %w", err)
	}
	delete(doc, "_id")
	return doc, nil
}
