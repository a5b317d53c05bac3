package screen

import (
	"context"
	"errors"
	"testing"

	"github.com/fjod/storefront/internal/repository"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"go.mongodb.org/mongo-driver/bson"
)

var errUnavailable = errors.New("store unavailable")

// failingStore fails every mutation.
type failingStore struct {
	repository.DocumentStore
}

func (failingStore) Create(context.Context, string, bson.M) (string, error) {
	return "", errUnavailable
}

func (failingStore) Update(context.Context, string, string, bson.M) error {
	return errUnavailable
}

func (failingStore) Delete(context.Context, string, string) error {
	return errUnavailable
}

// blockingStore holds every Create until its context is done.
type blockingStore struct {
	repository.DocumentStore
	started chan struct{}
}

func (b blockingStore) Create(ctx context.Context, _ string, _ bson.M) (string, error) {
	close(b.started)
	<-ctx.Done()
	return "", ctx.Err()
}

func testDeps(t *testing.T) (Deps, *logtest.Hook) {
	t.Helper()
	log, hook := logtest.NewNullLogger()
	log.SetLevel(logrus.DebugLevel)
	return Deps{Log: log}, hook
}
