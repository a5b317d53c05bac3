package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoStore implements DocumentStore on MongoDB; Watch is backed by change streams.
type MongoStore struct {
	db  *mongo.Database
	log logrus.FieldLogger
}

func NewMongoStore(db *mongo.Database, log logrus.FieldLogger) *MongoStore {
	return &MongoStore{db: db, log: log}
}

func (m *MongoStore) Create(ctx context.Context, collection string, fields bson.M) (string, error) {
	if collection == "" {
		return "", ErrEmptyCollection
	}
	doc := copyFields(fields)
	delete(doc, "_id")
	if _, ok := doc[CreatedAtField]; !ok {
		doc[CreatedAtField] = time.Now().UTC()
	}

	res, err := m.db.Collection(collection).InsertOne(ctx, doc)
	if err != nil {
		return "", fmt.Errorf("failed to create document: %w", err)
	}
	oid, ok := res.InsertedID.(primitive.ObjectID)
	if !ok {
		return fmt.Sprint(res.InsertedID), nil
	}
	return oid.Hex(), nil
}

func (m *MongoStore) Update(ctx context.Context, collection, id string, fields bson.M) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}
	set := copyFields(fields)
	delete(set, "_id")

	result, err := m.db.Collection(collection).UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("failed to update document: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *MongoStore) Delete(ctx context.Context, collection, id string) error {
	oid, err := objectID(id)
	if err != nil {
		return err
	}

	result, err := m.db.Collection(collection).DeleteOne(ctx, bson.M{"_id": oid})
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *MongoStore) Get(ctx context.Context, collection, id string) (Document, error) {
	oid, err := objectID(id)
	if err != nil {
		return Document{}, err
	}

	var raw bson.M
	err = m.db.Collection(collection).FindOne(ctx, bson.M{"_id": oid}).Decode(&raw)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return Document{}, ErrNotFound
		}
		return Document{}, fmt.Errorf("failed to get document: %w", err)
	}
	return toDocument(raw), nil
}

func (m *MongoStore) List(ctx context.Context, collection string, q Query) ([]Document, error) {
	opts := options.Find()
	if q.OrderBy != "" {
		dir := 1
		if q.Descending {
			dir = -1
		}
		opts.SetSort(bson.D{{Key: q.OrderBy, Value: dir}, {Key: "_id", Value: dir}})
	}

	cursor, err := m.db.Collection(collection).Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query documents: %w", err)
	}
	defer cursor.Close(ctx)

	docs := []Document{}
	for cursor.Next(ctx) {
		var raw bson.M
		if err := cursor.Decode(&raw); err != nil {
			return nil, fmt.Errorf("failed to decode document: %w", err)
		}
		docs = append(docs, toDocument(raw))
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor iteration error: %w", err)
	}
	return docs, nil
}

// Watch opens a change stream on the collection. The returned channel closes when ctx is done
// or the stream fails.
func (m *MongoStore) Watch(ctx context.Context, collection string) (<-chan struct{}, error) {
	stream, err := m.db.Collection(collection).Watch(ctx, mongo.Pipeline{}, options.ChangeStream())
	if err != nil {
		return nil, fmt.Errorf("failed to open change stream: %w", err)
	}

	ch := make(chan struct{}, 1)
	go func() {
		defer close(ch)
		defer stream.Close(context.Background())

		for stream.Next(ctx) {
			select {
			case ch <- struct{}{}:
			default:
			}
		}
		if err := stream.Err(); err != nil && ctx.Err() == nil {
			m.log.WithError(err).WithField("collection", collection).Error("change stream stopped")
		}
	}()
	return ch, nil
}

// CreateIndexes adds the created_at index used by ordered queries.
func (m *MongoStore) CreateIndexes(ctx context.Context, collections ...string) error {
	for _, name := range collections {
		_, err := m.db.Collection(name).Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys: bson.D{{Key: CreatedAtField, Value: -1}},
		})
		if err != nil {
			return fmt.Errorf("failed to create indexes on %s: %w", name, err)
		}
	}
	return nil
}

func objectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return oid, nil
}

func toDocument(raw bson.M) Document {
	doc := Document{Fields: raw}
	switch id := raw["_id"].(type) {
	case primitive.ObjectID:
		doc.ID = id.Hex()
	case string:
		doc.ID = id
	default:
		doc.ID = fmt.Sprint(id)
	}
	delete(raw, "_id")
	return doc
}
