// Package blob stores uploaded files such as product images and hands back a public URL for each.
package blob

import (
	"context"
	"errors"
	"io"
	"strings"
)

var ErrNotFound = errors.New("blob not found")

// Object is a stored file opened for reading. Callers must close it.
type Object struct {
	io.ReadCloser
	Name   string
	Length int64
}

// Storage uploads a file under name and returns the URL it is served from.
type Storage interface {
	Put(ctx context.Context, name string, r io.Reader) (string, error)
	Open(ctx context.Context, id string) (*Object, error)
}

func publicURL(baseURL, id string) string {
	return strings.TrimRight(baseURL, "/") + "/blobs/" + id
}
