package catalog

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-butik/internal/common"
	"github.com/noah-isme/backend-butik/internal/db"
	"github.com/noah-isme/backend-butik/internal/pricing"
)

// ErrNotFound indicates the requested product does not exist.
var ErrNotFound = errors.New("product not found")

// Querier is the slice of the query layer the catalog service needs.
type Querier interface {
	ListProducts(ctx context.Context) ([]db.Product, error)
	GetProductByID(ctx context.Context, id uuid.UUID) (db.Product, error)
	CreateProduct(ctx context.Context, arg db.CreateProductParams) (db.Product, error)
	UpdateProduct(ctx context.Context, arg db.UpdateProductParams) (db.Product, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) (bool, error)
}

// ProductInput is the payload for creating or replacing a product.
type ProductInput struct {
	Title       string  `json:"title" validate:"required,min=1,max=200"`
	Description string  `json:"description" validate:"max=4000"`
	Price       string  `json:"price" validate:"required"`
	ImageURL    *string `json:"imageUrl" validate:"omitempty,url,max=2048"`
}

// ProductView is the public product shape. Price carries the decimal major
// amount; priceMinor the rounded minor-unit price used in carts and orders.
type ProductView struct {
	ID          uuid.UUID       `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	PriceMinor  pricing.Money   `json:"priceMinor"`
	ImageURL    *string         `json:"imageUrl,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// Service orchestrates catalog queries, validation and caching.
type Service struct {
	Q        Querier
	Cache    *Cache
	Validate *validator.Validate
}

// List returns the whole catalog, served from cache when possible.
func (s *Service) List(ctx context.Context) ([]ProductView, error) {
	if s.Cache != nil {
		var cached []ProductView
		if ok, err := s.Cache.GetJSON(ctx, listCacheKey, &cached); err == nil && ok {
			return cached, nil
		}
	}
	rows, err := s.Q.ListProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	views := make([]ProductView, 0, len(rows))
	for _, row := range rows {
		views = append(views, toView(row))
	}
	if s.Cache != nil {
		_ = s.Cache.SetJSON(ctx, listCacheKey, views)
	}
	return views, nil
}

// Get returns one product by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (ProductView, error) {
	key := detailCacheKey(id.String())
	if s.Cache != nil {
		var cached ProductView
		if ok, err := s.Cache.GetJSON(ctx, key, &cached); err == nil && ok {
			return cached, nil
		}
	}
	row, err := s.Q.GetProductByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ProductView{}, ErrNotFound
		}
		return ProductView{}, fmt.Errorf("get product: %w", err)
	}
	view := toView(row)
	if s.Cache != nil {
		_ = s.Cache.SetJSON(ctx, key, view)
	}
	return view, nil
}

// Create validates and stores a new product.
func (s *Service) Create(ctx context.Context, input ProductInput) (ProductView, error) {
	price, err := s.validateInput(&input)
	if err != nil {
		return ProductView{}, err
	}
	row, err := s.Q.CreateProduct(ctx, db.CreateProductParams{
		Title:       input.Title,
		Description: input.Description,
		Price:       price,
		ImageURL:    input.ImageURL,
	})
	if err != nil {
		return ProductView{}, fmt.Errorf("create product: %w", err)
	}
	s.invalidate(ctx, row.ID)
	return toView(row), nil
}

// Update replaces a product's mutable fields.
func (s *Service) Update(ctx context.Context, id uuid.UUID, input ProductInput) (ProductView, error) {
	price, err := s.validateInput(&input)
	if err != nil {
		return ProductView{}, err
	}
	row, err := s.Q.UpdateProduct(ctx, db.UpdateProductParams{
		ID:          id,
		Title:       input.Title,
		Description: input.Description,
		Price:       price,
		ImageURL:    input.ImageURL,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ProductView{}, ErrNotFound
		}
		return ProductView{}, fmt.Errorf("update product: %w", err)
	}
	s.invalidate(ctx, id)
	return toView(row), nil
}

// Delete removes a product. Cart lines referencing it stay and price at zero.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	deleted, err := s.Q.DeleteProduct(ctx, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if !deleted {
		return ErrNotFound
	}
	s.invalidate(ctx, id)
	return nil
}

func (s *Service) validateInput(input *ProductInput) (decimal.Decimal, error) {
	input.Title = strings.TrimSpace(input.Title)
	input.Description = strings.TrimSpace(input.Description)
	if s.Validate != nil {
		if err := s.Validate.Struct(input); err != nil {
			return decimal.Decimal{}, &common.AppError{
				Code:       "VALIDATION",
				Message:    "invalid product payload",
				HTTPStatus: http.StatusBadRequest,
				Err:        err,
				Details:    map[string]any{"reason": err.Error()},
			}
		}
	}
	price, err := decimal.NewFromString(strings.TrimSpace(input.Price))
	if err != nil || price.IsNegative() {
		return decimal.Decimal{}, &common.AppError{
			Code:       "VALIDATION",
			Message:    "price must be a non-negative decimal",
			HTTPStatus: http.StatusBadRequest,
			Err:        err,
			Details:    map[string]any{"field": "price"},
		}
	}
	return price, nil
}

func (s *Service) invalidate(ctx context.Context, id uuid.UUID) {
	if s.Cache == nil {
		return
	}
	s.Cache.Invalidate(ctx, listCacheKey, detailCacheKey(id.String()))
}

func toView(p db.Product) ProductView {
	return ProductView{
		ID:          p.ID,
		Title:       p.Title,
		Description: p.Description,
		Price:       p.Price,
		PriceMinor:  pricing.UnitMinor(p.Price),
		ImageURL:    p.ImageURL,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}
