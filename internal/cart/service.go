package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/noah-isme/backend-butik/internal/db"
	"github.com/noah-isme/backend-butik/internal/pricing"
)

// ErrInvalidQuantity is returned when a requested quantity is not positive.
var ErrInvalidQuantity = errors.New("quantity must be positive")

// ErrProductNotFound indicates the referenced product does not exist.
var ErrProductNotFound = errors.New("product not found")

// ErrCartNotFound indicates the user has no cart yet.
var ErrCartNotFound = errors.New("cart not found")

// ErrLineNotFound indicates the cart has no line for the product.
var ErrLineNotFound = errors.New("cart line not found")

// Querier is the slice of the query layer the cart service needs.
type Querier interface {
	GetCartByUser(ctx context.Context, userID uuid.UUID) (db.Cart, error)
	UpsertCart(ctx context.Context, userID uuid.UUID) (db.Cart, error)
	ListCartLines(ctx context.Context, cartID uuid.UUID) ([]db.CartLine, error)
	UpsertCartItem(ctx context.Context, arg db.UpsertCartItemParams) (db.CartItem, error)
	SetCartItemQty(ctx context.Context, arg db.SetCartItemQtyParams) (bool, error)
	DeleteCartItem(ctx context.Context, cartID, productID uuid.UUID) (bool, error)
	DeleteCartItems(ctx context.Context, cartID uuid.UUID) error
	GetProductByID(ctx context.Context, id uuid.UUID) (db.Product, error)
}

// Service encapsulates cart domain operations.
type Service struct {
	Q Querier
}

// Line is one cart entry with its live product data.
type Line struct {
	ID         uuid.UUID     `json:"id"`
	ProductID  uuid.UUID     `json:"productId"`
	Title      string        `json:"title"`
	UnitMinor  pricing.Money `json:"unitPrice"`
	Qty        int32         `json:"qty"`
	TotalMinor pricing.Money `json:"lineTotal"`
}

// View is the cart as returned to callers, priced against the live catalog.
type View struct {
	ID      uuid.UUID       `json:"id"`
	Items   []Line          `json:"items"`
	Pricing pricing.Summary `json:"pricing"`
}

// GetOrCreate returns the user's cart, creating an empty one on first use.
func (s *Service) GetOrCreate(ctx context.Context, userID uuid.UUID) (View, error) {
	if s == nil || s.Q == nil {
		return View{}, errors.New("cart service not configured")
	}
	cart, err := s.Q.UpsertCart(ctx, userID)
	if err != nil {
		return View{}, fmt.Errorf("ensure cart: %w", err)
	}
	return s.view(ctx, cart.ID)
}

// AddItem inserts a line or increments an existing one by qty.
func (s *Service) AddItem(ctx context.Context, userID, productID uuid.UUID, qty int32) (View, error) {
	if s == nil || s.Q == nil {
		return View{}, errors.New("cart service not configured")
	}
	if qty <= 0 {
		return View{}, ErrInvalidQuantity
	}
	if _, err := s.Q.GetProductByID(ctx, productID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return View{}, ErrProductNotFound
		}
		return View{}, fmt.Errorf("load product: %w", err)
	}
	cart, err := s.Q.UpsertCart(ctx, userID)
	if err != nil {
		return View{}, fmt.Errorf("ensure cart: %w", err)
	}
	if _, err := s.Q.UpsertCartItem(ctx, db.UpsertCartItemParams{
		CartID:    cart.ID,
		ProductID: productID,
		Qty:       qty,
	}); err != nil {
		return View{}, fmt.Errorf("upsert cart item: %w", err)
	}
	return s.view(ctx, cart.ID)
}

// SetQuantity overwrites a line's quantity. A non-positive qty removes the
// line instead of failing.
func (s *Service) SetQuantity(ctx context.Context, userID, productID uuid.UUID, qty int32) (View, error) {
	if s == nil || s.Q == nil {
		return View{}, errors.New("cart service not configured")
	}
	cart, err := s.Q.GetCartByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return View{}, ErrCartNotFound
		}
		return View{}, fmt.Errorf("load cart: %w", err)
	}
	if qty <= 0 {
		removed, err := s.Q.DeleteCartItem(ctx, cart.ID, productID)
		if err != nil {
			return View{}, fmt.Errorf("delete cart item: %w", err)
		}
		if !removed {
			return View{}, ErrLineNotFound
		}
	} else {
		updated, err := s.Q.SetCartItemQty(ctx, db.SetCartItemQtyParams{
			CartID:    cart.ID,
			ProductID: productID,
			Qty:       qty,
		})
		if err != nil {
			return View{}, fmt.Errorf("set cart item qty: %w", err)
		}
		if !updated {
			return View{}, ErrLineNotFound
		}
	}
	return s.view(ctx, cart.ID)
}

// RemoveItem deletes the line for a product.
func (s *Service) RemoveItem(ctx context.Context, userID, productID uuid.UUID) (View, error) {
	if s == nil || s.Q == nil {
		return View{}, errors.New("cart service not configured")
	}
	cart, err := s.Q.GetCartByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return View{}, ErrCartNotFound
		}
		return View{}, fmt.Errorf("load cart: %w", err)
	}
	removed, err := s.Q.DeleteCartItem(ctx, cart.ID, productID)
	if err != nil {
		return View{}, fmt.Errorf("delete cart item: %w", err)
	}
	if !removed {
		return View{}, ErrLineNotFound
	}
	return s.view(ctx, cart.ID)
}

// Clear removes every line. A user with no cart yet gets an empty view, not
// an error.
func (s *Service) Clear(ctx context.Context, userID uuid.UUID) (View, error) {
	if s == nil || s.Q == nil {
		return View{}, errors.New("cart service not configured")
	}
	cart, err := s.Q.GetCartByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return View{Items: []Line{}}, nil
		}
		return View{}, fmt.Errorf("load cart: %w", err)
	}
	if err := s.Q.DeleteCartItems(ctx, cart.ID); err != nil {
		return View{}, fmt.Errorf("clear cart: %w", err)
	}
	return s.view(ctx, cart.ID)
}

// view prices the cart against the live catalog. Lines whose product has
// disappeared keep their quantity but price at zero.
func (s *Service) view(ctx context.Context, cartID uuid.UUID) (View, error) {
	rows, err := s.Q.ListCartLines(ctx, cartID)
	if err != nil {
		return View{}, fmt.Errorf("list cart lines: %w", err)
	}
	lines := make([]Line, 0, len(rows))
	items := make([]pricing.Item, 0, len(rows))
	for _, row := range rows {
		unit := pricing.UnitMinor(row.Price)
		lines = append(lines, Line{
			ID:         row.ID,
			ProductID:  row.ProductID,
			Title:      row.Title,
			UnitMinor:  unit,
			Qty:        row.Qty,
			TotalMinor: pricing.LineMinor(row.Price, int64(row.Qty)),
		})
		items = append(items, pricing.Item{UnitPrice: row.Price, Qty: int64(row.Qty)})
	}
	return View{
		ID:      cartID,
		Items:   lines,
		Pricing: pricing.Compute(items),
	}, nil
}
