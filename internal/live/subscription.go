// Package live binds a document collection to a local list that is replaced wholesale on every change.
package live

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/fjod/storefront/internal/repository"
	"github.com/sirupsen/logrus"
)

// ErrWatchEnded is reported when the store stops notifying before the subscription was cancelled.
var ErrWatchEnded = errors.New("change notifications ended")

// Source is the part of the document store a subscription reads from.
type Source interface {
	List(ctx context.Context, collection string, q repository.Query) ([]repository.Document, error)
	Watch(ctx context.Context, collection string) (<-chan struct{}, error)
}

// Decoder maps a store document to the consumer's item type.
type Decoder[T any] func(repository.Document) (T, error)

// DecodeInto decodes documents into T through its bson tags.
func DecodeInto[T any](doc repository.Document) (T, error) {
	var v T
	err := doc.Decode(&v)
	return v, err
}

type Option func(*options)

type options struct {
	log     logrus.FieldLogger
	onError func(error)
}

func WithLogger(log logrus.FieldLogger) Option {
	return func(o *options) { o.log = log }
}

// WithErrorHandler receives failures to load a snapshot. The subscription stays open.
func WithErrorHandler(fn func(error)) Option {
	return func(o *options) { o.onError = fn }
}

// Subscription is the handle returned by Subscribe.
type Subscription struct {
	cancel context.CancelFunc
	done   chan struct{}
	closed atomic.Bool
	once   sync.Once
}

// Subscribe delivers the complete, ordered result of q to onSnapshot once initially and again after
// every change to the collection. Snapshots are delivered one at a time from a single goroutine.
// The subscription ends when Unsubscribe is called or ctx is done.
func Subscribe[T any](
	ctx context.Context,
	src Source,
	collection string,
	q repository.Query,
	decode Decoder[T],
	onSnapshot func([]T),
	opts ...Option,
) (*Subscription, error) {
	o := options{log: logrus.StandardLogger()}
	for _, opt := range opts {
		opt(&o)
	}
	log := o.log.WithField("collection", collection)

	ctx, cancel := context.WithCancel(ctx)
	// watch before the first read so no change between the two is missed
	changes, err := src.Watch(ctx, collection)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("subscribe to %s: %w", collection, err)
	}

	sub := &Subscription{cancel: cancel, done: make(chan struct{})}

	deliver := func() {
		docs, err := src.List(ctx, collection, q)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.WithError(err).Error("failed to load snapshot")
			if o.onError != nil {
				o.onError(err)
			}
			return
		}

		items := make([]T, 0, len(docs))
		for _, doc := range docs {
			item, err := decode(doc)
			if err != nil {
				log.WithError(err).WithField("id", doc.ID).Warn("skipping undecodable document")
				continue
			}
			items = append(items, item)
		}

		if sub.closed.Load() || ctx.Err() != nil {
			return
		}
		onSnapshot(items)
	}

	go func() {
		defer close(sub.done)

		deliver()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-changes:
				if !ok {
					if ctx.Err() == nil {
						log.Warn("change notifications ended")
						if o.onError != nil {
							o.onError(ErrWatchEnded)
						}
					}
					return
				}
				deliver()
			}
		}
	}()

	return sub, nil
}

// Cancel stops the subscription without waiting: no snapshot is delivered after the one in
// progress, if any. It is safe to call from inside onSnapshot.
func (s *Subscription) Cancel() {
	s.closed.Store(true)
	s.cancel()
}

// Unsubscribe stops the subscription and waits until no snapshot delivery is running, so no
// onSnapshot call happens after it returns. It must not be called from inside onSnapshot; use
// Cancel there. Calling it more than once is harmless.
func (s *Subscription) Unsubscribe() {
	s.once.Do(func() {
		s.Cancel()
		<-s.done
	})
}

// Done is closed once the subscription has stopped delivering.
func (s *Subscription) Done() <-chan struct{} {
	return s.done
}
