package service

import (
	"context"

	"github.com/pkg/errors"

	"github.com/senharo1981/tdr-store/pkg/domain/model"
)

var ErrProductOutOfStock = errors.New("product is out of stock")

// Storefront ties the catalog to the checkout session: it is the only place
// where catalog products become basket lines.
type Storefront struct {
	store    model.StoreIdentity
	catalog  CatalogService
	checkout CheckoutService
}

func NewStorefront(store model.StoreIdentity, catalog CatalogService, checkout CheckoutService) *Storefront {
	return &Storefront{store: store, catalog: catalog, checkout: checkout}
}

func (s *Storefront) Store() model.StoreIdentity { return s.store }

func (s *Storefront) Catalog() CatalogService { return s.catalog }

func (s *Storefront) Checkout() CheckoutService { return s.checkout }

// Browse filters the current catalog. An empty category means all categories.
func (s *Storefront) Browse(query, category string) []model.Product {
	if category == "" {
		category = model.AllCategories
	}
	return FilterProducts(s.catalog.Products(), query, category)
}

func (s *Storefront) AddToBasket(productID string) (BasketView, error) {
	product, err := s.catalog.Product(productID)
	if err != nil {
		return BasketView{}, err
	}
	if !product.InStock {
		return BasketView{}, ErrProductOutOfStock
	}
	s.checkout.AddItem(product)
	return s.checkout.Basket(), nil
}

func (s *Storefront) AdjustQuantity(productID string, delta int) (BasketView, error) {
	if err := s.checkout.AdjustQuantity(productID, delta); err != nil {
		return BasketView{}, err
	}
	return s.checkout.Basket(), nil
}

func (s *Storefront) RemoveFromBasket(productID string) BasketView {
	s.checkout.RemoveItem(productID)
	return s.checkout.Basket()
}

func (s *Storefront) PlaceOrder(ctx context.Context, details model.CustomerDetails) (model.Order, error) {
	if err := s.checkout.UpdateCustomer(details); err != nil {
		return model.Order{}, err
	}
	return s.checkout.ConfirmOrder(ctx)
}

func (s *Storefront) ContactLink() string {
	return ContactLink(s.store)
}

func (s *Storefront) Close() error {
	s.checkout.Close()
	return s.catalog.Close()
}
