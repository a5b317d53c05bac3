package repository

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
)

var (
	ErrNotFound        = errors.New("document not found")
	ErrInvalidID       = errors.New("invalid document id")
	ErrEmptyCollection = errors.New("collection name is empty")
)

// CreatedAtField is stamped by the store on every created document.
const CreatedAtField = "created_at"

// Document is a stored document mapped to {id, fields}.
type Document struct {
	ID     string
	Fields bson.M
}

// Decode fills v from the document fields, exposing the identity as "_id".
func (d Document) Decode(v interface{}) error {
	m := make(bson.M, len(d.Fields)+1)
	for k, val := range d.Fields {
		m[k] = val
	}
	m["_id"] = d.ID

	raw, err := bson.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal document %s: %w", d.ID, err)
	}
	if err := bson.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode document %s: %w", d.ID, err)
	}
	return nil
}

// Query selects a whole collection, optionally ordered by one field.
type Query struct {
	OrderBy    string
	Descending bool
}

// DocumentStore is the external document database: per-document CRUD and change notification.
// Consumers define this interface, not the MongoDB implementation.
type DocumentStore interface {
	Create(ctx context.Context, collection string, fields bson.M) (string, error)
	Update(ctx context.Context, collection, id string, fields bson.M) error
	Delete(ctx context.Context, collection, id string) error
	Get(ctx context.Context, collection, id string) (Document, error)
	List(ctx context.Context, collection string, q Query) ([]Document, error)
	// Watch signals every change to the collection until ctx is done, then closes the channel.
	// Bursts of changes may be coalesced into one signal.
	Watch(ctx context.Context, collection string) (<-chan struct{}, error)
}
