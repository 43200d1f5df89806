package order

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/noah-isme/backend-butik/internal/db"
	"github.com/noah-isme/backend-butik/internal/pricing"
)

// ErrEmptyOrder is returned when an order is submitted with no items.
var ErrEmptyOrder = errors.New("order must contain at least one item")

// ErrInvalidQuantity is returned when a line quantity is not positive or
// exceeds the storable range.
var ErrInvalidQuantity = errors.New("quantity out of range")

// ErrProductNotFound indicates a referenced product does not exist.
var ErrProductNotFound = errors.New("product not found")

// ErrNotFound indicates the requested order could not be located.
var ErrNotFound = errors.New("order not found")

// ErrForbidden indicates the caller may not view the order.
var ErrForbidden = errors.New("access to order denied")

// Querier is the slice of the query layer the order service needs.
type Querier interface {
	GetProductsByIDs(ctx context.Context, ids []uuid.UUID) ([]db.Product, error)
	CreateOrderWithItems(ctx context.Context, order db.Order, items []db.OrderItem) (db.Order, []db.OrderItem, error)
	ListOrdersByUser(ctx context.Context, userID uuid.UUID, limit, offset int32) ([]db.Order, error)
	CountOrdersByUser(ctx context.Context, userID uuid.UUID) (int64, error)
	ListOrders(ctx context.Context, limit, offset int32) ([]db.Order, error)
	CountOrders(ctx context.Context) (int64, error)
	GetOrderByID(ctx context.Context, id uuid.UUID) (db.Order, error)
	ListOrderItems(ctx context.Context, orderID uuid.UUID) ([]db.OrderItem, error)
	ListOrderItemsForOrders(ctx context.Context, orderIDs []uuid.UUID) ([]db.OrderItem, error)
}

// Service creates and reads immutable order snapshots.
type Service struct {
	Q        Querier
	Currency string
}

// LineInput is one requested order line.
type LineInput struct {
	ProductID uuid.UUID
	Qty       int64
}

// Snapshot is an order with its frozen lines.
type Snapshot struct {
	Order db.Order
	Items []db.OrderItem
}

// Create validates every line, snapshots current catalog prices and persists
// the order atomically. Nothing is written unless all lines are valid.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, lines []LineInput) (Snapshot, error) {
	if s == nil || s.Q == nil {
		return Snapshot{}, errors.New("order service not configured")
	}
	if len(lines) == 0 {
		return Snapshot{}, ErrEmptyOrder
	}
	ids := make([]uuid.UUID, 0, len(lines))
	for _, line := range lines {
		// Quantities are stored as int32; anything larger would wrap and
		// leave the snapshot's lines disagreeing with its totals.
		if line.Qty <= 0 || line.Qty > math.MaxInt32 {
			return Snapshot{}, fmt.Errorf("product %s: %w", line.ProductID, ErrInvalidQuantity)
		}
		ids = append(ids, line.ProductID)
	}
	products, err := s.Q.GetProductsByIDs(ctx, ids)
	if err != nil {
		return Snapshot{}, fmt.Errorf("resolve products: %w", err)
	}
	byID := make(map[uuid.UUID]db.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}

	items := make([]db.OrderItem, 0, len(lines))
	pricingItems := make([]pricing.Item, 0, len(lines))
	for _, line := range lines {
		product, ok := byID[line.ProductID]
		if !ok {
			return Snapshot{}, fmt.Errorf("product %s: %w", line.ProductID, ErrProductNotFound)
		}
		items = append(items, db.OrderItem{
			ProductID:      product.ID,
			Title:          product.Title,
			Qty:            int32(line.Qty),
			UnitPriceMinor: pricing.UnitMinor(product.Price),
		})
		pricingItems = append(pricingItems, pricing.Item{UnitPrice: product.Price, Qty: line.Qty})
	}
	summary := pricing.Compute(pricingItems)

	created, createdItems, err := s.Q.CreateOrderWithItems(ctx, db.Order{
		UserID:        userID,
		SubtotalMinor: summary.Subtotal,
		TaxMinor:      summary.Tax,
		ShippingMinor: summary.Shipping,
		TotalMinor:    summary.Total,
		Currency:      s.Currency,
	}, items)
	if err != nil {
		return Snapshot{}, fmt.Errorf("persist order: %w", err)
	}
	return Snapshot{Order: created, Items: createdItems}, nil
}

// ListOwn returns the caller's orders with their lines, newest first.
func (s *Service) ListOwn(ctx context.Context, userID uuid.UUID, limit, offset int32) ([]Snapshot, int64, error) {
	if s == nil || s.Q == nil {
		return nil, 0, errors.New("order service not configured")
	}
	total, err := s.Q.CountOrdersByUser(ctx, userID)
	if err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}
	orders, err := s.Q.ListOrdersByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	snapshots, err := s.withItems(ctx, orders)
	if err != nil {
		return nil, 0, err
	}
	return snapshots, total, nil
}

// ListAll returns every order with its lines, newest first. Callers gate
// this on role.
func (s *Service) ListAll(ctx context.Context, limit, offset int32) ([]Snapshot, int64, error) {
	if s == nil || s.Q == nil {
		return nil, 0, errors.New("order service not configured")
	}
	total, err := s.Q.CountOrders(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}
	orders, err := s.Q.ListOrders(ctx, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	snapshots, err := s.withItems(ctx, orders)
	if err != nil {
		return nil, 0, err
	}
	return snapshots, total, nil
}

// withItems attaches lines to a page of orders using one batch lookup.
func (s *Service) withItems(ctx context.Context, orders []db.Order) ([]Snapshot, error) {
	snapshots := make([]Snapshot, 0, len(orders))
	if len(orders) == 0 {
		return snapshots, nil
	}
	ids := make([]uuid.UUID, 0, len(orders))
	for _, ord := range orders {
		ids = append(ids, ord.ID)
	}
	items, err := s.Q.ListOrderItemsForOrders(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load order items: %w", err)
	}
	byOrder := make(map[uuid.UUID][]db.OrderItem, len(orders))
	for _, item := range items {
		byOrder[item.OrderID] = append(byOrder[item.OrderID], item)
	}
	for _, ord := range orders {
		snapshots = append(snapshots, Snapshot{Order: ord, Items: byOrder[ord.ID]})
	}
	return snapshots, nil
}

// Get returns an order and its lines when the caller owns it or is an
// administrator.
func (s *Service) Get(ctx context.Context, orderID, callerID uuid.UUID, admin bool) (Snapshot, error) {
	if s == nil || s.Q == nil {
		return Snapshot{}, errors.New("order service not configured")
	}
	ord, err := s.Q.GetOrderByID(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Snapshot{}, ErrNotFound
		}
		return Snapshot{}, fmt.Errorf("load order: %w", err)
	}
	if ord.UserID != callerID && !admin {
		return Snapshot{}, ErrForbidden
	}
	items, err := s.Q.ListOrderItems(ctx, ord.ID)
	if err != nil {
		return Snapshot{}, fmt.Errorf("load order items: %w", err)
	}
	return Snapshot{Order: ord, Items: items}, nil
}
