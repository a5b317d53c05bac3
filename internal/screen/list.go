package screen

import (
	"context"
	"sync"

	"github.com/fjod/storefront/internal/live"
	"github.com/fjod/storefront/internal/repository"
	"github.com/sirupsen/logrus"
)

// Deps are the collaborators every screen takes.
type Deps struct {
	Log logrus.FieldLogger
	// OnRender is called after every snapshot and every form state change. It must not call Close.
	OnRender func()
}

type lifetime struct {
	ctx    context.Context
	cancel context.CancelFunc
}

func newLifetime(parent context.Context) lifetime {
	ctx, cancel := context.WithCancel(parent)
	return lifetime{ctx: ctx, cancel: cancel}
}

// bind derives a context that is also cancelled when the screen closes.
func (lt lifetime) bind(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(lt.ctx, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

// listScreen mirrors one live collection into items and keeps a form of type F.
type listScreen[T, F any] struct {
	lifetime
	store      repository.DocumentStore
	collection string
	idOf       func(T) string
	log        logrus.FieldLogger
	onRender   func()

	sub  *live.Subscription
	form formState

	mu    sync.RWMutex
	items []T
	draft F
}

func openList[T, F any](
	ctx context.Context,
	store repository.DocumentStore,
	d Deps,
	collection string,
	q repository.Query,
	idOf func(T) string,
) (*listScreen[T, F], error) {
	log := d.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	l := &listScreen[T, F]{
		lifetime:   newLifetime(ctx),
		store:      store,
		collection: collection,
		idOf:       idOf,
		log:        log.WithField("screen", collection),
		onRender:   d.OnRender,
		form:       newFormState(),
	}

	sub, err := live.Subscribe(l.ctx, store, collection, q, live.DecodeInto[T], l.replace,
		live.WithLogger(l.log),
		live.WithErrorHandler(func(error) {
			l.form.fail("could not load " + collection + ", please reload")
			l.render()
		}),
	)
	if err != nil {
		l.cancel()
		return nil, err
	}
	l.sub = sub
	return l, nil
}

func (l *listScreen[T, F]) replace(items []T) {
	l.mu.Lock()
	l.items = items
	l.mu.Unlock()
	l.render()
}

func (l *listScreen[T, F]) render() {
	if l.onRender != nil {
		l.onRender()
	}
}

// Items returns the latest snapshot in the order it was delivered.
func (l *listScreen[T, F]) Items() []T {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]T, len(l.items))
	copy(out, l.items)
	return out
}

func (l *listScreen[T, F]) find(id string) (T, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	for _, item := range l.items {
		if l.idOf(item) == id {
			return item, true
		}
	}
	var zero T
	return zero, false
}

func (l *listScreen[T, F]) Status() Status {
	return l.form.status()
}

// Draft is the current content of the form.
func (l *listScreen[T, F]) Draft() F {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.draft
}

func (l *listScreen[T, F]) setDraft(f F) {
	l.mu.Lock()
	l.draft = f
	l.mu.Unlock()
}

func (l *listScreen[T, F]) resetDraft() {
	var zero F
	l.setDraft(zero)
}

// run executes a mutation in the Submitting phase under the screen's lifetime. The list is not
// touched: it changes only when the store delivers the next snapshot. onSuccess runs only when the
// mutation succeeded and the screen is still open.
func (l *listScreen[T, F]) run(
	ctx context.Context,
	target string,
	validate func() error,
	failMsg string,
	ok Notice,
	mutate func(context.Context) error,
	onSuccess func(),
) error {
	if err := l.form.begin(target, validate); err != nil {
		l.render()
		return err
	}
	l.render()

	ctx, cancel := l.bind(ctx)
	defer cancel()

	err := mutate(ctx)
	if err != nil {
		l.log.WithError(err).WithField("target", target).Error(failMsg)
	}
	if l.form.finish(err, failMsg, ok) {
		if err == nil && onSuccess != nil {
			onSuccess()
		}
		l.render()
	}
	return err
}

// CancelEdit leaves Editing and clears the form.
func (l *listScreen[T, F]) CancelEdit() error {
	if err := l.form.cancelEdit(); err != nil {
		return err
	}
	l.resetDraft()
	l.render()
	return nil
}

// Close unsubscribes and cancels in-flight mutations; their results are not applied. It must not be
// called from OnRender.
func (l *listScreen[T, F]) Close() {
	l.form.close()
	l.cancel()
	l.sub.Unsubscribe()
}

// editTarget returns the id being edited or an illegal transition error.
func (l *listScreen[T, F]) editTarget() (string, error) {
	target := l.form.editing()
	if target == "" {
		return "", illegal(l.form.status().Phase, "save edit")
	}
	return target, nil
}

func (l *listScreen[T, F]) beginEdit(id string, fill func(T) F) error {
	item, ok := l.find(id)
	if !ok {
		return repository.ErrNotFound
	}
	if err := l.form.edit(id); err != nil {
		return err
	}
	l.setDraft(fill(item))
	l.render()
	return nil
}
