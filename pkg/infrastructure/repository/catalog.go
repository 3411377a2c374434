package repository

import (
	"context"
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/senharo1981/tdr-store/pkg/domain/model"
)

const DefaultCatalogKey = "tdr_products"

// CatalogRepository stores the catalog as one JSON array under a fixed key.
type CatalogRepository struct {
	store model.KeyValueStore
	key   string
}

func NewCatalogRepository(store model.KeyValueStore, key string) *CatalogRepository {
	if key == "" {
		key = DefaultCatalogKey
	}
	return &CatalogRepository{store: store, key: key}
}

func (r *CatalogRepository) Load(ctx context.Context) ([]model.Product, error) {
	raw, err := r.store.Get(ctx, r.key)
	if errors.Is(err, model.ErrKeyNotFound) {
		return nil, model.ErrCatalogNotFound
	}
	if err != nil {
		return nil, errors.Wrapf(err, "load catalog %s", r.key)
	}

	var products []model.Product
	if err := json.Unmarshal([]byte(raw), &products); err != nil {
		return nil, errors.Wrapf(err, "decode catalog %s", r.key)
	}
	if products == nil {
		// "null" is what an absent catalog looks like after a bad write.
		return nil, model.ErrCatalogNotFound
	}
	return products, nil
}

func (r *CatalogRepository) Save(ctx context.Context, products []model.Product) error {
	if products == nil {
		products = []model.Product{}
	}
	data, err := json.Marshal(products)
	if err != nil {
		return errors.Wrap(err, "encode catalog")
	}
	return errors.Wrapf(r.store.Set(ctx, r.key, string(data)), "save catalog %s", r.key)
}
