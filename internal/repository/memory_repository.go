package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryStore implements DocumentStore in process, with the same change semantics as MongoStore.
type MemoryStore struct {
	mu          sync.Mutex
	collections map[string]*memoryCollection
	now         func() time.Time
}

type memoryCollection struct {
	order    []string // ids in insertion order
	docs     map[string]bson.M
	watchers map[chan struct{}]struct{}
}

type MemoryOption func(*MemoryStore)

// WithClock overrides the clock used to stamp created_at.
func WithClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) { s.now = now }
}

func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		collections: make(map[string]*memoryCollection),
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) collection(name string) *memoryCollection {
	c, ok := s.collections[name]
	if !ok {
		c = &memoryCollection{
			docs:     make(map[string]bson.M),
			watchers: make(map[chan struct{}]struct{}),
		}
		s.collections[name] = c
	}
	return c
}

func (s *MemoryStore) Create(ctx context.Context, collection string, fields bson.M) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if collection == "" {
		return "", ErrEmptyCollection
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := copyFields(fields)
	delete(doc, "_id")
	if _, ok := doc[CreatedAtField]; !ok {
		doc[CreatedAtField] = s.now().UTC()
	}

	id := uuid.New().String()
	c := s.collection(collection)
	c.docs[id] = doc
	c.order = append(c.order, id)
	c.notify()
	return id, nil
}

// Update merges fields into the stored document.
func (s *MemoryStore) Update(ctx context.Context, collection, id string, fields bson.M) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.collection(collection)
	doc, ok := c.docs[id]
	if !ok {
		return ErrNotFound
	}
	for k, v := range fields {
		if k == "_id" {
			continue
		}
		doc[k] = v
	}
	c.notify()
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, collection, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.collection(collection)
	if _, ok := c.docs[id]; !ok {
		return ErrNotFound
	}
	delete(c.docs, id)
	for i, existing := range c.order {
		if existing == id {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	c.notify()
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, collection, id string) (Document, error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.collection(collection).docs[id]
	if !ok {
		return Document{}, ErrNotFound
	}
	return Document{ID: id, Fields: copyFields(doc)}, nil
}

func (s *MemoryStore) List(ctx context.Context, collection string, q Query) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	c := s.collection(collection)
	docs := make([]Document, 0, len(c.order))
	for _, id := range c.order {
		docs = append(docs, Document{ID: id, Fields: copyFields(c.docs[id])})
	}
	s.mu.Unlock()

	if q.OrderBy != "" {
		sort.SliceStable(docs, func(i, j int) bool {
			cmp := compareValues(docs[i].Fields[q.OrderBy], docs[j].Fields[q.OrderBy])
			if q.Descending {
				return cmp > 0
			}
			return cmp < 0
		})
	}
	return docs, nil
}

func (s *MemoryStore) Watch(ctx context.Context, collection string) (<-chan struct{}, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ch := make(chan struct{}, 1)

	s.mu.Lock()
	c := s.collection(collection)
	c.watchers[ch] = struct{}{}
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(c.watchers, ch)
		close(ch)
		s.mu.Unlock()
	}()
	return ch, nil
}

// notify must be called with the store lock held.
func (c *memoryCollection) notify() {
	for ch := range c.watchers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func copyFields(fields bson.M) bson.M {
	out := make(bson.M, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}

// compareValues orders missing values first, then numbers, strings and times by their natural order.
func compareValues(a, b interface{}) int {
	if a == nil || b == nil {
		switch {
		case a == nil && b == nil:
			return 0
		case a == nil:
			return -1
		default:
			return 1
		}
	}
	if ta, ok := asTime(a); ok {
		if tb, ok := asTime(b); ok {
			return ta.Compare(tb)
		}
	}
	if fa, ok := asFloat(a); ok {
		if fb, ok := asFloat(b); ok {
			switch {
			case fa < fb:
				return -1
			case fa > fb:
				return 1
			}
			return 0
		}
	}
	if sa, ok := a.(string); ok {
		if sb, ok := b.(string); ok {
			return strings.Compare(sa, sb)
		}
	}
	return 0
}

func asTime(v interface{}) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case primitive.DateTime:
		return t.Time(), true
	}
	return time.Time{}, false
}

func asFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}
