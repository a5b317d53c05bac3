package screen

import (
	"context"
	"testing"
	"time"

	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func openPosts(t *testing.T, store repository.DocumentStore) *Posts {
	t.Helper()
	d, _ := testDeps(t)
	p, err := OpenPosts(context.Background(), store, d)
	require.NoError(t, err)
	t.Cleanup(p.Close)
	return p
}

func TestPosts_CreateShowsUpInList(t *testing.T) {
	store := repository.NewMemoryStore()
	p := openPosts(t, store)
	ctx := context.Background()

	require.NoError(t, p.Create(ctx, PostForm{Message: "hello", Author: "ann"}))
	require.NoError(t, p.Create(ctx, PostForm{Message: "hi"}))

	require.Eventually(t, func() bool { return len(p.Items()) == 2 }, time.Second, 5*time.Millisecond)
	items := p.Items()
	assert.Equal(t, "hello", items[0].Message)
	assert.Equal(t, "ann", items[0].Author)
	assert.Equal(t, domain.AnonymousAuthor, items[1].Author)
	assert.NotEmpty(t, items[0].ID)

	st := p.Status()
	assert.Equal(t, PhaseIdle, st.Phase)
	assert.Equal(t, NoticeSuccess, st.Notice.Kind)
	assert.Equal(t, PostForm{}, p.Draft())
}

func TestPosts_EmptyMessageRejected(t *testing.T) {
	store := repository.NewMemoryStore()
	p := openPosts(t, store)

	err := p.Create(context.Background(), PostForm{Message: "   ", Author: "ann"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	st := p.Status()
	assert.Equal(t, PhaseIdle, st.Phase)
	assert.Equal(t, "please write a message before sending it", st.Error)
	assert.Equal(t, "ann", p.Draft().Author)

	docs, err := store.List(context.Background(), domain.PostsCollection, repository.Query{})
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestPosts_StoreFailureIsShownAndLogged(t *testing.T) {
	d, hook := testDeps(t)
	p, err := OpenPosts(context.Background(), failingStore{repository.NewMemoryStore()}, d)
	require.NoError(t, err)
	defer p.Close()

	err = p.Create(context.Background(), PostForm{Message: "hello"})
	assert.ErrorIs(t, err, errUnavailable)

	st := p.Status()
	assert.Equal(t, PhaseIdle, st.Phase)
	assert.Equal(t, "failed to publish post", st.Error)
	assert.Equal(t, "hello", p.Draft().Message)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "failed to publish post", hook.LastEntry().Message)
}

func TestPosts_EditFlow(t *testing.T) {
	store := repository.NewMemoryStore()
	ctx := context.Background()
	id, err := store.Create(ctx, domain.PostsCollection, bson.M{"message": "first", "author": domain.AnonymousAuthor})
	require.NoError(t, err)

	p := openPosts(t, store)
	require.Eventually(t, func() bool { return len(p.Items()) == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, p.BeginEdit(id))
	assert.Equal(t, PostForm{Message: "first", Author: ""}, p.Draft())
	assert.Equal(t, Status{Phase: PhaseEditing, EditingID: id}, p.Status())

	// no other action while editing
	assert.ErrorIs(t, p.Create(ctx, PostForm{Message: "other"}), ErrIllegalTransition)
	assert.ErrorIs(t, p.Delete(ctx, id), ErrIllegalTransition)

	require.NoError(t, p.SaveEdit(ctx, PostForm{Message: "edited", Author: "bob"}))
	assert.Equal(t, PhaseIdle, p.Status().Phase)

	require.Eventually(t, func() bool {
		items := p.Items()
		return len(items) == 1 && items[0].Message == "edited" && items[0].Author == "bob"
	}, time.Second, 5*time.Millisecond)
}

func TestPosts_SaveEditWithoutEditing(t *testing.T) {
	p := openPosts(t, repository.NewMemoryStore())
	assert.ErrorIs(t, p.SaveEdit(context.Background(), PostForm{Message: "x"}), ErrIllegalTransition)
}

func TestPosts_BeginEditUnknown(t *testing.T) {
	p := openPosts(t, repository.NewMemoryStore())
	assert.ErrorIs(t, p.BeginEdit("missing"), repository.ErrNotFound)
}

func TestPosts_CancelEditClearsForm(t *testing.T) {
	store := repository.NewMemoryStore()
	id, err := store.Create(context.Background(), domain.PostsCollection, bson.M{"message": "first", "author": "ann"})
	require.NoError(t, err)
	p := openPosts(t, store)
	require.Eventually(t, func() bool { return len(p.Items()) == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, p.BeginEdit(id))
	require.NoError(t, p.CancelEdit())
	assert.Equal(t, PostForm{}, p.Draft())
	assert.Equal(t, PhaseIdle, p.Status().Phase)
}

func TestPosts_Delete(t *testing.T) {
	store := repository.NewMemoryStore()
	ctx := context.Background()
	id, err := store.Create(ctx, domain.PostsCollection, bson.M{"message": "bye", "author": "ann"})
	require.NoError(t, err)
	p := openPosts(t, store)
	require.Eventually(t, func() bool { return len(p.Items()) == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, p.Delete(ctx, id))
	assert.Equal(t, NoticeDeleted, p.Status().Notice.Kind)
	require.Eventually(t, func() bool { return len(p.Items()) == 0 }, time.Second, 5*time.Millisecond)
}

func TestPosts_CloseCancelsInFlightMutation(t *testing.T) {
	started := make(chan struct{})
	d, _ := testDeps(t)
	p, err := OpenPosts(context.Background(), blockingStore{repository.NewMemoryStore(), started}, d)
	require.NoError(t, err)

	result := make(chan error, 1)
	go func() { result <- p.Create(context.Background(), PostForm{Message: "slow"}) }()
	<-started
	p.Close()

	select {
	case err := <-result:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("mutation was not cancelled")
	}
	// the late result is not applied
	assert.Equal(t, PhaseSubmitting, p.Status().Phase)
	assert.Empty(t, p.Status().Error)
}

func TestPosts_NoUpdatesAfterClose(t *testing.T) {
	store := repository.NewMemoryStore()
	p := openPosts(t, store)
	ctx := context.Background()

	require.NoError(t, p.Create(ctx, PostForm{Message: "one"}))
	require.Eventually(t, func() bool { return len(p.Items()) == 1 }, time.Second, 5*time.Millisecond)

	p.Close()
	_, err := store.Create(ctx, domain.PostsCollection, bson.M{"message": "two", "author": "ann"})
	require.NoError(t, err)
	time.Sleep(50 * time.Millisecond)

	assert.Len(t, p.Items(), 1)
}
