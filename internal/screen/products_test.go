package screen

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/fjod/storefront/internal/blob"
	"github.com/fjod/storefront/internal/cart"
	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/repository"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
)

func steppingStore() *repository.MemoryStore {
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	n := 0
	return repository.NewMemoryStore(repository.WithClock(func() time.Time {
		n++
		return base.Add(time.Duration(n) * time.Second)
	}))
}

func openProducts(t *testing.T, store repository.DocumentStore) (*Products, *cart.Store) {
	t.Helper()
	d, _ := testDeps(t)
	c := cart.NewStore()
	p, err := OpenProducts(context.Background(), store, blob.NewMemoryStorage("http://cdn.test"), c, d)
	require.NoError(t, err)
	t.Cleanup(p.Close)
	return p, c
}

func image(name string) *Upload {
	return &Upload{Name: name, Body: strings.NewReader("png")}
}

func TestProducts_CreateUploadsImage(t *testing.T) {
	p, _ := openProducts(t, steppingStore())

	err := p.Create(context.Background(), ProductForm{
		Name: "Mug", Category: "Kitchen", Quantity: 3, Price: 9.5, Image: image("/tmp/mug.png"),
	})
	require.NoError(t, err)
	require.Eventually(t, func() bool { return len(p.Items()) == 1 }, time.Second, 5*time.Millisecond)

	mug := p.Items()[0]
	assert.Equal(t, "Mug", mug.Name)
	assert.Equal(t, 3, mug.Quantity)
	assert.True(t, strings.HasPrefix(mug.ImageURL, "http://cdn.test/blobs/"), mug.ImageURL)
	assert.False(t, mug.CreatedAt.IsZero())
}

func TestProducts_CreateRequiresImage(t *testing.T) {
	p, _ := openProducts(t, repository.NewMemoryStore())

	err := p.Create(context.Background(), ProductForm{Name: "Mug", Category: "Kitchen", Quantity: 1})
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Equal(t, "please choose an image for the product", p.Status().Error)
	assert.Equal(t, NoticeError, p.Status().Notice.Kind)
}

func TestProducts_NewestFirst(t *testing.T) {
	store := steppingStore()
	ctx := context.Background()
	for _, name := range []string{"old", "new"} {
		_, err := store.Create(ctx, domain.ProductsCollection, bson.M{"name": name, "category": "c"})
		require.NoError(t, err)
	}
	p, _ := openProducts(t, store)

	require.Eventually(t, func() bool { return len(p.Items()) == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "new", p.Items()[0].Name)
	assert.Equal(t, "old", p.Items()[1].Name)
}

func TestProducts_SaveEditKeepsImage(t *testing.T) {
	store := steppingStore()
	ctx := context.Background()
	id, err := store.Create(ctx, domain.ProductsCollection, bson.M{
		"name": "Mug", "category": "Kitchen", "quantity": 1, "price": 2.0, "image_url": "http://cdn.test/blobs/1",
	})
	require.NoError(t, err)
	p, _ := openProducts(t, store)
	require.Eventually(t, func() bool { return len(p.Items()) == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, p.BeginEdit(id))
	f := p.Draft()
	assert.Nil(t, f.Image)
	f.Quantity = 10
	require.NoError(t, p.SaveEdit(ctx, f))

	require.Eventually(t, func() bool { return p.Items()[0].Quantity == 10 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "http://cdn.test/blobs/1", p.Items()[0].ImageURL)

	require.NoError(t, p.BeginEdit(id))
	f = p.Draft()
	f.Image = image("new.png")
	require.NoError(t, p.SaveEdit(ctx, f))
	require.Eventually(t, func() bool {
		return p.Items()[0].ImageURL != "http://cdn.test/blobs/1"
	}, time.Second, 5*time.Millisecond)
}

func TestProducts_DeleteNotice(t *testing.T) {
	store := repository.NewMemoryStore()
	ctx := context.Background()
	id, err := store.Create(ctx, domain.ProductsCollection, bson.M{"name": "Mug", "category": "Kitchen"})
	require.NoError(t, err)
	p, _ := openProducts(t, store)

	require.NoError(t, p.Delete(ctx, id))
	assert.Equal(t, Notice{Kind: NoticeDeleted, Message: "product deleted"}, p.Status().Notice)

	assert.Error(t, p.Delete(ctx, id))
	assert.Equal(t, NoticeError, p.Status().Notice.Kind)
}

func TestProducts_Search(t *testing.T) {
	store := steppingStore()
	ctx := context.Background()
	for _, f := range []bson.M{
		{"name": "Blue Mug", "category": "Kitchen"},
		{"name": "Poster", "category": "Decor"},
		{"name": "Pan", "category": "kitchen"},
	} {
		_, err := store.Create(ctx, domain.ProductsCollection, f)
		require.NoError(t, err)
	}
	p, _ := openProducts(t, store)
	require.Eventually(t, func() bool { return len(p.Items()) == 3 }, time.Second, 5*time.Millisecond)

	names := func(ps []domain.Product) []string {
		var out []string
		for _, pr := range ps {
			out = append(out, pr.Name)
		}
		return out
	}
	assert.Equal(t, []string{"Pan", "Blue Mug"}, names(p.Search("KITCHEN")))
	assert.Equal(t, []string{"Blue Mug"}, names(p.Search("mug")))
	assert.Len(t, p.Search(""), 3)
	assert.Empty(t, p.Search("chair"))
}

func TestProducts_AddToCart(t *testing.T) {
	store := repository.NewMemoryStore()
	ctx := context.Background()
	id, err := store.Create(ctx, domain.ProductsCollection, bson.M{
		"name": "Mug", "category": "Kitchen", "price": 10.0, "image_url": "http://cdn.test/blobs/1",
	})
	require.NoError(t, err)
	p, c := openProducts(t, store)
	require.Eventually(t, func() bool { return len(p.Items()) == 1 }, time.Second, 5*time.Millisecond)

	require.NoError(t, p.AddToCart(id, 2))
	require.NoError(t, p.AddToCart(id, 3))

	line, ok := c.Line(id)
	require.True(t, ok)
	assert.Equal(t, 5, line.Quantity)
	assert.Equal(t, "http://cdn.test/blobs/1", line.ImageURL)
	assert.True(t, c.Total().Equal(decimal.NewFromInt(50)))

	assert.ErrorIs(t, p.AddToCart(id, 0), domain.ErrValidation)
	assert.ErrorIs(t, p.AddToCart("missing", 1), repository.ErrNotFound)
}
