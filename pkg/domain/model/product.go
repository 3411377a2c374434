package model

import (
	"context"
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

var (
	ErrProductNotFound   = errors.New("product not found")
	ErrProductNameEmpty  = errors.New("product name is required")
	ErrProductPriceEmpty = errors.New("product price is required")
	ErrNegativePrice     = errors.New("product price cannot be negative")
	ErrUnknownCategory   = errors.New("unknown product category")
	ErrCatalogNotFound   = errors.New("catalog is not persisted")
)

const (
	AllCategories = "All"
	Uncategorized = "uncategorized"

	PlaceholderImage = "https://images.unsplash.com/photo-1542838132-92c53300491e?q=80&w=400&auto=format&fit=crop"
)

type Product struct {
	ID         string          `json:"id" yaml:"id"`
	Name       string          `json:"name" yaml:"name"`
	Category   string          `json:"category" yaml:"category"`
	Price      decimal.Decimal `json:"price" yaml:"price"`
	Unit       string          `json:"unit" yaml:"unit"`
	Image      string          `json:"image" yaml:"image"`
	InStock    bool            `json:"inStock" yaml:"inStock"`
	IsFeatured bool            `json:"isFeatured,omitempty" yaml:"isFeatured,omitempty"`
}

// ProductDraft is the admin input for a new catalog entry. Price is nil when the
// field was left blank.
type ProductDraft struct {
	Name     string
	Category string
	Price    *decimal.Decimal
	Unit     string
	Image    string
	Featured bool
}

// Category is one entry of the store taxonomy. Labels are keyed by locale.
type Category struct {
	Name   string            `json:"name" yaml:"name"`
	Labels map[string]string `json:"labels" yaml:"labels"`
}

func (c Category) Label(locale string) string {
	if l, ok := c.Labels[locale]; ok && l != "" {
		return l
	}
	return c.Name
}

// NewProduct validates the draft and builds a product with the given id.
// Known lists the category names the product may reference.
func NewProduct(id string, draft ProductDraft, known []Category) (Product, error) {
	name := strings.TrimSpace(draft.Name)
	if name == "" {
		return Product{}, ErrProductNameEmpty
	}
	if draft.Price == nil {
		return Product{}, ErrProductPriceEmpty
	}
	if draft.Price.IsNegative() {
		return Product{}, ErrNegativePrice
	}

	category := strings.TrimSpace(draft.Category)
	if category == "" {
		category = Uncategorized
	}
	if category != Uncategorized && !hasCategory(known, category) {
		return Product{}, errors.Wrapf(ErrUnknownCategory, "%q", category)
	}

	image := strings.TrimSpace(draft.Image)
	if image == "" {
		image = PlaceholderImage
	}

	return Product{
		ID:         id,
		Name:       name,
		Category:   category,
		Price:      *draft.Price,
		Unit:       strings.TrimSpace(draft.Unit),
		Image:      image,
		InStock:    true,
		IsFeatured: draft.Featured,
	}, nil
}

func hasCategory(known []Category, name string) bool {
	for _, c := range known {
		if c.Name == name {
			return true
		}
	}
	return false
}

type IDGenerator interface {
	NextID() (string, error)
}

// CatalogRepository persists the whole catalog as one ordered sequence.
type CatalogRepository interface {
	Load(ctx context.Context) ([]Product, error)
	Save(ctx context.Context, products []Product) error
}
