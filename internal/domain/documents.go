package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
)

const (
	PostsCollection    = "posts"
	UsersCollection    = "users"
	ProductsCollection = "products"

	// AnonymousAuthor is stored when a post is written without an author.
	AnonymousAuthor = "Anonymous"
)

type Post struct {
	ID        string    `bson:"_id,omitempty" json:"id"`
	Message   string    `bson:"message" json:"message"`
	Author    string    `bson:"author" json:"author"`
	CreatedAt time.Time `bson:"created_at,omitempty" json:"created_at"`
}

// NewPost trims the input and applies the anonymous author default.
func NewPost(message, author string) (Post, error) {
	if strings.TrimSpace(message) == "" {
		return Post{}, NewValidationError("message", "please write a message before sending it")
	}
	if strings.TrimSpace(author) == "" {
		author = AnonymousAuthor
	}
	return Post{Message: message, Author: author}, nil
}

// EditableAuthor is the value an edit form starts with: anonymous posts start blank.
func (p Post) EditableAuthor() string {
	if p.Author == AnonymousAuthor {
		return ""
	}
	return p.Author
}

func (p Post) Fields() bson.M {
	return bson.M{"message": p.Message, "author": p.Author}
}

type User struct {
	ID    string `bson:"_id,omitempty" json:"id"`
	Name  string `bson:"name" json:"name"`
	Phone string `bson:"phone" json:"phone"`
	Email string `bson:"email" json:"email"`
}

func (u User) Validate() error {
	if u.Name == "" || u.Phone == "" || u.Email == "" {
		return NewValidationError("user", "please fill in every field before saving")
	}
	return nil
}

func (u User) Fields() bson.M {
	return bson.M{"name": u.Name, "phone": u.Phone, "email": u.Email}
}

type Product struct {
	ID        string    `bson:"_id,omitempty" json:"id"`
	Name      string    `bson:"name" json:"name"`
	Category  string    `bson:"category" json:"category"`
	Quantity  int       `bson:"quantity" json:"quantity"`
	Price     float64   `bson:"price" json:"price"`
	ImageURL  string    `bson:"image_url,omitempty" json:"image_url,omitempty"`
	CreatedAt time.Time `bson:"created_at,omitempty" json:"created_at"`
}

func (p Product) Validate() error {
	if p.Name == "" || p.Category == "" {
		return NewValidationError("product", "please fill in every field")
	}
	if p.Quantity < 0 {
		return NewValidationError("quantity", "quantity cannot be negative")
	}
	if p.Price < 0 {
		return NewValidationError("price", "price cannot be negative")
	}
	return nil
}

// Fields omits an empty image URL so that an update without a new image keeps the stored one.
func (p Product) Fields() bson.M {
	f := bson.M{
		"name":     p.Name,
		"category": p.Category,
		"quantity": p.Quantity,
		"price":    p.Price,
	}
	if p.ImageURL != "" {
		f["image_url"] = p.ImageURL
	}
	return f
}

// Matches reports whether the search term occurs in the name or category, ignoring case.
func (p Product) Matches(term string) bool {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return true
	}
	return strings.Contains(strings.ToLower(p.Name), term) ||
		strings.Contains(strings.ToLower(p.Category), term)
}

func (p Product) CartProduct() CartProduct {
	return CartProduct{
		ID:        p.ID,
		Name:      p.Name,
		ImageURL:  p.ImageURL,
		UnitPrice: decimal.NewFromFloat(p.Price),
	}
}
