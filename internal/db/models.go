package db

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Product is a catalog entry. Price is the canonical decimal amount in
// currency major units; minor units are derived at computation time and
// never stored on the product.
type Product struct {
	ID          uuid.UUID       `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	ImageURL    *string         `json:"imageUrl"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// User is an account record.
type User struct {
	ID           uuid.UUID
	Email        string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
}

// Cart is a user's single in-progress selection set. Exactly one per user,
// enforced by a unique index on user_id.
type Cart struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	UpdatedAt time.Time
}

// CartItem is one line of a cart; at most one per (cart, product).
type CartItem struct {
	ID        uuid.UUID
	CartID    uuid.UUID
	ProductID uuid.UUID
	Qty       int32
}

// CartLine is a cart item joined with its live product. Title and Price are
// zero values when the product no longer exists.
type CartLine struct {
	ID        uuid.UUID
	ProductID uuid.UUID
	Title     string
	Price     decimal.Decimal
	Qty       int32
}

// Order is an immutable priced snapshot. Amounts are minor units.
type Order struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	SubtotalMinor int64
	TaxMinor      int64
	ShippingMinor int64
	TotalMinor    int64
	Currency      string
	CreatedAt     time.Time
}

// OrderItem captures a product at order-creation time, decoupled from
// later product changes.
type OrderItem struct {
	ID             uuid.UUID
	OrderID        uuid.UUID
	ProductID      uuid.UUID
	Title          string
	Qty            int32
	UnitPriceMinor int64
}
