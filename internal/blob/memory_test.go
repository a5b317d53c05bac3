package blob

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStorage_PutOpen(t *testing.T) {
	s := NewMemoryStorage("http://localhost:8080/")
	ctx := context.Background()

	url, err := s.Put(ctx, "images/cat.png", strings.NewReader("meow"))
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(url, "http://localhost:8080/blobs/"), url)

	id := strings.TrimPrefix(url, "http://localhost:8080/blobs/")
	obj, err := s.Open(ctx, id)
	require.NoError(t, err)
	defer obj.Close()

	data, err := io.ReadAll(obj)
	require.NoError(t, err)
	assert.Equal(t, "meow", string(data))
	assert.Equal(t, "images/cat.png", obj.Name)
	assert.EqualValues(t, 4, obj.Length)
}

func TestMemoryStorage_OpenMissing(t *testing.T) {
	s := NewMemoryStorage("http://localhost:8080")
	_, err := s.Open(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStorage_CancelledContext(t *testing.T) {
	s := NewMemoryStorage("http://localhost:8080")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.Put(ctx, "x", strings.NewReader("x"))
	assert.ErrorIs(t, err, context.Canceled)
}
