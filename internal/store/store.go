package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jimlawless/whereami"

	"tcpos/internal/domain"
)

// Keys of the three persisted collections.
const (
	KeyProducts   = "pos-products"
	KeySales      = "pos-sales"
	KeyCategories = "pos-categories"
)

var (
	ErrNotFound = errors.New("not found")
	ErrInvalid  = errors.New("invalid record")
)

// BlobStore persists opaque values by key. Get reports ok=false for a key
// that was never written.
type BlobStore interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, value []byte) error
	Close() error
}

type Repository interface {
	LoadProducts(ctx context.Context) ([]domain.Product, error)
	SaveProducts(ctx context.Context, products []domain.Product) error
	LoadCategories(ctx context.Context) ([]domain.Category, error)
	SaveCategories(ctx context.Context, categories []domain.Category) error
	LoadSales(ctx context.Context) ([]domain.Sale, error)
	SaveSales(ctx context.Context, sales []domain.Sale) error
}

// Collections maps the three root collections onto JSON blobs. A missing key
// is seeded with the default data set on first load.
type Collections struct {
	blobs BlobStore
}

func NewCollections(blobs BlobStore) *Collections {
	return &Collections{blobs: blobs}
}

func (c *Collections) LoadProducts(ctx context.Context) ([]domain.Product, error) {
	return load(ctx, c.blobs, KeyProducts, DefaultProducts)
}

func (c *Collections) SaveProducts(ctx context.Context, products []domain.Product) error {
	return save(ctx, c.blobs, KeyProducts, products)
}

func (c *Collections) LoadCategories(ctx context.Context) ([]domain.Category, error) {
	return load(ctx, c.blobs, KeyCategories, DefaultCategories)
}

func (c *Collections) SaveCategories(ctx context.Context, categories []domain.Category) error {
	return save(ctx, c.blobs, KeyCategories, categories)
}

func (c *Collections) LoadSales(ctx context.Context) ([]domain.Sale, error) {
	return load(ctx, c.blobs, KeySales, func() []domain.Sale { return []domain.Sale{} })
}

func (c *Collections) SaveSales(ctx context.Context, sales []domain.Sale) error {
	return save(ctx, c.blobs, KeySales, sales)
}

func load[T any](ctx context.Context, blobs BlobStore, key string, seed func() []T) ([]T, error) {
	raw, ok, err := blobs.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("%s: load %s: %w", whereami.WhereAmI(), key, err)
	}
	if !ok {
		values := seed()
		if err := save(ctx, blobs, key, values); err != nil {
			return nil, err
		}
		return values, nil
	}

	var values []T
	if err := json.Unmarshal(raw, &values); err != nil {
		return nil, fmt.Errorf("%s: decode %s: %w", whereami.WhereAmI(), key, errors.Join(ErrInvalid, err))
	}
	if values == nil {
		values = []T{}
	}
	return values, nil
}

func save[T any](ctx context.Context, blobs BlobStore, key string, values []T) error {
	if values == nil {
		values = []T{}
	}
	payload, err := json.Marshal(values)
	if err != nil {
		return fmt.Errorf("%s: encode %s: %w", whereami.WhereAmI(), key, err)
	}
	if err := blobs.Put(ctx, key, payload); err != nil {
		return fmt.Errorf("%s: save %s: %w", whereami.WhereAmI(), key, err)
	}
	return nil
}
