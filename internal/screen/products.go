package screen

import (
	"context"
	"io"
	"path"

	"github.com/fjod/storefront/internal/blob"
	"github.com/fjod/storefront/internal/cart"
	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/repository"
)

// Upload is a file picked in a form.
type Upload struct {
	Name string
	Body io.Reader
}

type ProductForm struct {
	Name     string
	Category string
	Quantity int
	Price    float64
	Image    *Upload
}

func (f ProductForm) product() domain.Product {
	return domain.Product{Name: f.Name, Category: f.Category, Quantity: f.Quantity, Price: f.Price}
}

// Products is the catalog: newest products first, search, management form and add-to-cart.
type Products struct {
	*listScreen[domain.Product, ProductForm]
	blobs blob.Storage
	cart  *cart.Store
}

func OpenProducts(
	ctx context.Context,
	store repository.DocumentStore,
	blobs blob.Storage,
	c *cart.Store,
	d Deps,
) (*Products, error) {
	l, err := openList[domain.Product, ProductForm](ctx, store, d, domain.ProductsCollection,
		repository.Query{OrderBy: repository.CreatedAtField, Descending: true},
		func(p domain.Product) string { return p.ID })
	if err != nil {
		return nil, err
	}
	return &Products{listScreen: l, blobs: blobs, cart: c}, nil
}

// Create uploads the image first and stores its URL with the product.
func (p *Products) Create(ctx context.Context, f ProductForm) error {
	p.setDraft(f)
	product := f.product()
	return p.run(ctx, "",
		func() error {
			if f.Image == nil {
				return domain.NewValidationError("image", "please choose an image for the product")
			}
			return product.Validate()
		},
		"failed to create product",
		Notice{Kind: NoticeSuccess, Message: "product created"},
		func(ctx context.Context) error {
			url, err := p.upload(ctx, f.Image)
			if err != nil {
				return err
			}
			product.ImageURL = url
			_, err = p.store.Create(ctx, p.collection, product.Fields())
			return err
		},
		p.resetDraft,
	)
}

func (p *Products) BeginEdit(id string) error {
	return p.beginEdit(id, func(pr domain.Product) ProductForm {
		return ProductForm{Name: pr.Name, Category: pr.Category, Quantity: pr.Quantity, Price: pr.Price}
	})
}

// SaveEdit keeps the stored image unless a new one is given.
func (p *Products) SaveEdit(ctx context.Context, f ProductForm) error {
	target, err := p.editTarget()
	if err != nil {
		return err
	}
	p.setDraft(f)
	product := f.product()
	return p.run(ctx, target, product.Validate,
		"failed to update product",
		Notice{Kind: NoticeSuccess, Message: "product updated"},
		func(ctx context.Context) error {
			if f.Image != nil {
				url, err := p.upload(ctx, f.Image)
				if err != nil {
					return err
				}
				product.ImageURL = url
			}
			return p.store.Update(ctx, p.collection, target, product.Fields())
		},
		p.resetDraft,
	)
}

func (p *Products) Delete(ctx context.Context, id string) error {
	return p.run(ctx, "", nil,
		"failed to delete product",
		Notice{Kind: NoticeDeleted, Message: "product deleted"},
		func(ctx context.Context) error {
			return p.store.Delete(ctx, p.collection, id)
		},
		nil,
	)
}

// Search filters the current list by name or category, ignoring case.
func (p *Products) Search(term string) []domain.Product {
	var out []domain.Product
	for _, pr := range p.Items() {
		if pr.Matches(term) {
			out = append(out, pr)
		}
	}
	return out
}

// AddToCart adds a listed product to the cart.
func (p *Products) AddToCart(productID string, quantity int) error {
	if quantity < 1 {
		return domain.NewValidationError("quantity", "quantity must be at least 1")
	}
	pr, ok := p.find(productID)
	if !ok {
		return repository.ErrNotFound
	}
	p.cart.AddItem(pr.CartProduct(), quantity)
	return nil
}

func (p *Products) upload(ctx context.Context, u *Upload) (string, error) {
	return p.blobs.Put(ctx, "images/"+path.Base(u.Name), u.Body)
}
