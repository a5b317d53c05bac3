package blob

import (
	"bytes"
	"context"
	"io"
	"sync"

	"github.com/google/uuid"
)

type memoryBlob struct {
	name string
	data []byte
}

// MemoryStorage keeps blobs in process memory.
type MemoryStorage struct {
	mu      sync.RWMutex
	baseURL string
	blobs   map[string]memoryBlob
}

func NewMemoryStorage(baseURL string) *MemoryStorage {
	return &MemoryStorage{baseURL: baseURL, blobs: make(map[string]memoryBlob)}
}

func (m *MemoryStorage) Put(ctx context.Context, name string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}

	id := uuid.New().String()
	m.mu.Lock()
	m.blobs[id] = memoryBlob{name: name, data: data}
	m.mu.Unlock()

	return publicURL(m.baseURL, id), nil
}

func (m *MemoryStorage) Open(ctx context.Context, id string) (*Object, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	b, ok := m.blobs[id]
	m.mu.RUnlock()
	if !ok {
		return nil, ErrNotFound
	}
	return &Object{
		ReadCloser: io.NopCloser(bytes.NewReader(b.data)),
		Name:       b.name,
		Length:     int64(len(b.data)),
	}, nil
}
