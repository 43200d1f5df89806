package catalog_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-butik/internal/catalog"
	"github.com/noah-isme/backend-butik/internal/common"
	"github.com/noah-isme/backend-butik/internal/db"
)

type fakeCatalogQueries struct {
	products map[uuid.UUID]db.Product
	listHits int
}

func newFakeCatalogQueries() *fakeCatalogQueries {
	return &fakeCatalogQueries{products: map[uuid.UUID]db.Product{}}
}

func (f *fakeCatalogQueries) ListProducts(context.Context) ([]db.Product, error) {
	f.listHits++
	out := make([]db.Product, 0, len(f.products))
	for _, p := range f.products {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeCatalogQueries) GetProductByID(_ context.Context, id uuid.UUID) (db.Product, error) {
	p, ok := f.products[id]
	if !ok {
		return db.Product{}, pgx.ErrNoRows
	}
	return p, nil
}

func (f *fakeCatalogQueries) CreateProduct(_ context.Context, arg db.CreateProductParams) (db.Product, error) {
	p := db.Product{
		ID:          uuid.New(),
		Title:       arg.Title,
		Description: arg.Description,
		Price:       arg.Price,
		ImageURL:    arg.ImageURL,
		CreatedAt:   time.Now(),
		UpdatedAt:   time.Now(),
	}
	f.products[p.ID] = p
	return p, nil
}

func (f *fakeCatalogQueries) UpdateProduct(_ context.Context, arg db.UpdateProductParams) (db.Product, error) {
	p, ok := f.products[arg.ID]
	if !ok {
		return db.Product{}, pgx.ErrNoRows
	}
	p.Title = arg.Title
	p.Description = arg.Description
	p.Price = arg.Price
	p.ImageURL = arg.ImageURL
	p.UpdatedAt = time.Now()
	f.products[arg.ID] = p
	return p, nil
}

func (f *fakeCatalogQueries) DeleteProduct(_ context.Context, id uuid.UUID) (bool, error) {
	if _, ok := f.products[id]; !ok {
		return false, nil
	}
	delete(f.products, id)
	return true, nil
}

func newTestService(t *testing.T, withCache bool) (*catalog.Service, *fakeCatalogQueries) {
	t.Helper()
	q := newFakeCatalogQueries()
	svc := &catalog.Service{Q: q, Validate: validator.New()}
	if withCache {
		mr := miniredis.RunT(t)
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		t.Cleanup(func() { _ = client.Close() })
		svc.Cache = catalog.NewCache(client, time.Minute)
	}
	return svc, q
}

func TestCreateAndGetProduct(t *testing.T) {
	svc, _ := newTestService(t, false)

	created, err := svc.Create(context.Background(), catalog.ProductInput{
		Title:       "Regnjacka",
		Description: "Vattentät jacka",
		Price:       "149.00",
	})
	require.NoError(t, err)
	require.True(t, decimal.RequireFromString("149.00").Equal(created.Price))
	require.EqualValues(t, 14900, created.PriceMinor)

	got, err := svc.Get(context.Background(), created.ID)
	require.NoError(t, err)
	require.Equal(t, created.ID, got.ID)

	_, err = svc.Get(context.Background(), uuid.New())
	require.ErrorIs(t, err, catalog.ErrNotFound)
}

func TestCreateRejectsBadPayload(t *testing.T) {
	svc, _ := newTestService(t, false)

	_, err := svc.Create(context.Background(), catalog.ProductInput{Title: "", Price: "10.00"})
	require.Error(t, err)
	require.True(t, common.IsAppError(err))

	_, err = svc.Create(context.Background(), catalog.ProductInput{Title: "Negativ", Price: "-1.00"})
	require.Error(t, err)
	require.True(t, common.IsAppError(err))

	_, err = svc.Create(context.Background(), catalog.ProductInput{Title: "Trasig", Price: "not-a-price"})
	require.Error(t, err)
}

func TestUpdateAndDelete(t *testing.T) {
	svc, q := newTestService(t, false)
	created, err := svc.Create(context.Background(), catalog.ProductInput{Title: "Tält", Price: "999.00"})
	require.NoError(t, err)

	updated, err := svc.Update(context.Background(), created.ID, catalog.ProductInput{Title: "Tält 2p", Price: "1099.00"})
	require.NoError(t, err)
	require.Equal(t, "Tält 2p", updated.Title)
	require.EqualValues(t, 109900, updated.PriceMinor)

	_, err = svc.Update(context.Background(), uuid.New(), catalog.ProductInput{Title: "Spöke", Price: "1.00"})
	require.ErrorIs(t, err, catalog.ErrNotFound)

	require.NoError(t, svc.Delete(context.Background(), created.ID))
	require.ErrorIs(t, svc.Delete(context.Background(), created.ID), catalog.ErrNotFound)
	require.Empty(t, q.products)
}

func TestListUsesCacheUntilInvalidated(t *testing.T) {
	svc, q := newTestService(t, true)

	_, err := svc.Create(context.Background(), catalog.ProductInput{Title: "Kompass", Price: "199.00"})
	require.NoError(t, err)

	first, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, first, 1)
	hits := q.listHits

	second, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, second, 1)
	require.Equal(t, hits, q.listHits, "second read must come from cache")

	// A mutation invalidates the list so readers see the new product.
	_, err = svc.Create(context.Background(), catalog.ProductInput{Title: "Karta", Price: "99.00"})
	require.NoError(t, err)
	third, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, third, 2)
	require.Greater(t, q.listHits, hits)
}
