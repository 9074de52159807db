package store

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

// MongoStore backs the LRS with a MongoDB database. One partition is one
// collection; filters and sorts are passed through to the server, so
// callers get the full query language of the backend.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
	log    *zap.Logger
}

// ConnectMongo establishes the shared, long-lived client used by every
// concurrent ingestion and query. The driver handles its own pooling; no
// external locking is layered on top.
func ConnectMongo(ctx context.Context, uri, dbName string, log *zap.Logger) (*MongoStore, error) {
	if log == nil {
		log = zap.NewNop()
	}

	// Decode embedded documents as plain maps so records round-trip as the
	// same shape they were ingested in.
	registry := bson.NewRegistry()
	registry.RegisterTypeMapEntry(bson.TypeEmbeddedDocument, reflect.TypeOf(map[string]any{}))

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri).SetRegistry(registry))
	if err != nil {
		return nil, fmt.Errorf("connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	log.Info("mongodb connected", zap.String("database", dbName))
	return &MongoStore{client: client, db: client.Database(dbName), log: log}, nil
}

func (s *MongoStore) Put(ctx context.Context, partition string, doc Record) error {
	opts := options.InsertOne().SetBypassDocumentValidation(true)
	res, err := s.db.Collection(partition).InsertOne(ctx, doc, opts)
	if err != nil {
		return err
	}
	s.log.Debug("record inserted",
		zap.String("partition", partition),
		zap.Any("id", res.InsertedID))
	return nil
}

func (s *MongoStore) Query(ctx context.Context, partition string, spec Spec) ([]Record, error) {
	coll := s.db.Collection(partition)

	var cursor *mongo.Cursor
	var err error
	if spec.Unwind != "" {
		cursor, err = coll.Aggregate(ctx, unwindPipeline(spec))
	} else {
		opts := options.Find()
		if len(spec.Sort) > 0 {
			opts.SetSort(sortDocument(spec.Sort))
		}
		if spec.Skip > 0 {
			opts.SetSkip(spec.Skip)
		}
		if spec.Limit > 0 {
			opts.SetLimit(spec.Limit)
		}
		cursor, err = coll.Find(ctx, filterDocument(spec.Filter), opts)
	}
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	results := []Record{}
	if err := cursor.All(ctx, &results); err != nil {
		return nil, err
	}
	return results, nil
}

// Database exposes the underlying handle so sibling stores (such as the
// user store) can share the one connection.
func (s *MongoStore) Database() *mongo.Database {
	return s.db
}

func (s *MongoStore) Partitions(ctx context.Context) ([]string, error) {
	return s.db.ListCollectionNames(ctx, bson.M{})
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func filterDocument(filter map[string]any) bson.M {
	if filter == nil {
		return bson.M{}
	}
	return bson.M(filter)
}

// sortDocument fixes multi-key sort application to the lexical order of the
// paths. A JSON object cannot carry key order through decoding, so this
// keeps results deterministic and matches the embedded engine.
func sortDocument(spec map[string]int) bson.D {
	paths := make([]string, 0, len(spec))
	for p := range spec {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	d := make(bson.D, 0, len(paths))
	for _, p := range paths {
		d = append(d, bson.E{Key: p, Value: spec[p]})
	}
	return d
}

// unwindPipeline builds the aggregation used when a query asks for array
// flattening. Stage order: match, unwind, sort, skip, limit.
func unwindPipeline(spec Spec) mongo.Pipeline {
	pipeline := mongo.Pipeline{}
	if len(spec.Filter) > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$match", Value: filterDocument(spec.Filter)}})
	}
	path := "$" + strings.TrimPrefix(spec.Unwind, "$")
	pipeline = append(pipeline, bson.D{{Key: "$unwind", Value: path}})
	if len(spec.Sort) > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$sort", Value: sortDocument(spec.Sort)}})
	}
	if spec.Skip > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$skip", Value: spec.Skip}})
	}
	if spec.Limit > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$limit", Value: spec.Limit}})
	}
	return pipeline
}
