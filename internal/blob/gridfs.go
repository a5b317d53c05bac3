package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/gridfs"
)

// GridFS keeps blobs in the database's default "fs" bucket. Deadlines are bucket state, so every
// operation opens its own bucket handle; handles are cheap and share the client's pool.
type GridFS struct {
	db      *mongo.Database
	baseURL string
	log     logrus.FieldLogger
}

func NewGridFS(db *mongo.Database, baseURL string, log logrus.FieldLogger) (*GridFS, error) {
	if _, err := gridfs.NewBucket(db); err != nil {
		return nil, fmt.Errorf("failed to open gridfs bucket: %w", err)
	}
	return &GridFS{db: db, baseURL: baseURL, log: log}, nil
}

func (g *GridFS) bucket() (*gridfs.Bucket, error) {
	bucket, err := gridfs.NewBucket(g.db)
	if err != nil {
		return nil, fmt.Errorf("failed to open gridfs bucket: %w", err)
	}
	return bucket, nil
}

func (g *GridFS) Put(ctx context.Context, name string, r io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	bucket, err := g.bucket()
	if err != nil {
		return "", err
	}
	if err := bucket.SetWriteDeadline(deadline(ctx)); err != nil {
		return "", err
	}

	id, err := bucket.UploadFromStream(name, r)
	if err != nil {
		return "", fmt.Errorf("failed to upload %s: %w", name, err)
	}

	g.log.WithFields(logrus.Fields{"name": name, "id": id.Hex()}).Info("blob uploaded")
	return publicURL(g.baseURL, id.Hex()), nil
}

func (g *GridFS) Open(ctx context.Context, id string) (*Object, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	bucket, err := g.bucket()
	if err != nil {
		return nil, err
	}
	if err := bucket.SetReadDeadline(deadline(ctx)); err != nil {
		return nil, err
	}

	stream, err := bucket.OpenDownloadStream(oid)
	if err != nil {
		if errors.Is(err, gridfs.ErrFileNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to open blob %s: %w", id, err)
	}

	file := stream.GetFile()
	return &Object{ReadCloser: stream, Name: file.Name, Length: file.Length}, nil
}

// deadline returns the zero time, meaning no deadline, when ctx has none.
func deadline(ctx context.Context) time.Time {
	d, _ := ctx.Deadline()
	return d
}
