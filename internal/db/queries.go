package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Queries exposes the hand-written SQL layer backed by a pgx pool.
type Queries struct {
	pool *pgxpool.Pool
}

// New constructs the query layer.
func New(pool *pgxpool.Pool) *Queries {
	return &Queries{pool: pool}
}

// Pool exposes the underlying connection pool for health probes.
func (q *Queries) Pool() *pgxpool.Pool { return q.pool }

const productColumns = "id, title, description, price, image_url, created_at, updated_at"

// ListProducts returns all catalog entries, newest first.
func (q *Queries) ListProducts(ctx context.Context) ([]Product, error) {
	rows, err := q.pool.Query(ctx, "SELECT "+productColumns+" FROM products ORDER BY created_at DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanProducts(rows)
}

// GetProductByID fetches one product. Returns pgx.ErrNoRows when absent.
func (q *Queries) GetProductByID(ctx context.Context, id uuid.UUID) (Product, error) {
	row := q.pool.QueryRow(ctx, "SELECT "+productColumns+" FROM products WHERE id = $1", id)
	return scanProduct(row)
}

// GetProductsByIDs resolves a batch of product identifiers in one query.
// Missing identifiers are simply absent from the result.
func (q *Queries) GetProductsByIDs(ctx context.Context, ids []uuid.UUID) ([]Product, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := q.pool.Query(ctx, "SELECT "+productColumns+" FROM products WHERE id = ANY($1)", ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanProducts(rows)
}

// CreateProductParams carries the fields for a new product.
type CreateProductParams struct {
	Title       string
	Description string
	Price       decimal.Decimal
	ImageURL    *string
}

// CreateProduct inserts a product and returns the stored row.
func (q *Queries) CreateProduct(ctx context.Context, arg CreateProductParams) (Product, error) {
	row := q.pool.QueryRow(ctx,
		"INSERT INTO products (title, description, price, image_url) VALUES ($1, $2, $3, $4) RETURNING "+productColumns,
		arg.Title, arg.Description, arg.Price.String(), arg.ImageURL)
	return scanProduct(row)
}

// UpdateProductParams carries a full product update.
type UpdateProductParams struct {
	ID          uuid.UUID
	Title       string
	Description string
	Price       decimal.Decimal
	ImageURL    *string
}

// UpdateProduct overwrites a product's mutable fields.
func (q *Queries) UpdateProduct(ctx context.Context, arg UpdateProductParams) (Product, error) {
	row := q.pool.QueryRow(ctx,
		"UPDATE products SET title = $2, description = $3, price = $4, image_url = $5, updated_at = now() WHERE id = $1 RETURNING "+productColumns,
		arg.ID, arg.Title, arg.Description, arg.Price.String(), arg.ImageURL)
	return scanProduct(row)
}

// DeleteProduct removes a product; reports whether a row was deleted.
func (q *Queries) DeleteProduct(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := q.pool.Exec(ctx, "DELETE FROM products WHERE id = $1", id)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}

// CreateUserParams carries the fields for a new account.
type CreateUserParams struct {
	Email        string
	PasswordHash string
	Role         string
}

// CreateUser inserts an account. A duplicate email surfaces as a unique
// violation from the driver.
func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	row := q.pool.QueryRow(ctx,
		"INSERT INTO users (email, password_hash, role) VALUES ($1, $2, $3) RETURNING id, email, password_hash, role, created_at",
		arg.Email, arg.PasswordHash, arg.Role)
	return scanUser(row)
}

// GetUserByEmail fetches an account by normalized email.
func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	row := q.pool.QueryRow(ctx,
		"SELECT id, email, password_hash, role, created_at FROM users WHERE email = $1", email)
	return scanUser(row)
}

// GetUserByID fetches an account by identifier.
func (q *Queries) GetUserByID(ctx context.Context, id uuid.UUID) (User, error) {
	row := q.pool.QueryRow(ctx,
		"SELECT id, email, password_hash, role, created_at FROM users WHERE id = $1", id)
	return scanUser(row)
}

// GetCartByUser fetches a user's cart. Returns pgx.ErrNoRows when the user
// has never interacted with their cart.
func (q *Queries) GetCartByUser(ctx context.Context, userID uuid.UUID) (Cart, error) {
	row := q.pool.QueryRow(ctx,
		"SELECT id, user_id, updated_at FROM carts WHERE user_id = $1", userID)
	var c Cart
	err := row.Scan(&c.ID, &c.UserID, &c.UpdatedAt)
	return c, err
}

// UpsertCart creates the user's cart if absent and returns it. The unique
// index on user_id makes concurrent first interactions converge on one row.
func (q *Queries) UpsertCart(ctx context.Context, userID uuid.UUID) (Cart, error) {
	row := q.pool.QueryRow(ctx,
		`INSERT INTO carts (user_id) VALUES ($1)
		 ON CONFLICT (user_id) DO UPDATE SET user_id = EXCLUDED.user_id
		 RETURNING id, user_id, updated_at`, userID)
	var c Cart
	err := row.Scan(&c.ID, &c.UserID, &c.UpdatedAt)
	return c, err
}

// ListCartLines returns cart items joined with their live product. Lines
// whose product has been deleted come back with an empty title and zero
// price rather than being dropped.
func (q *Queries) ListCartLines(ctx context.Context, cartID uuid.UUID) ([]CartLine, error) {
	rows, err := q.pool.Query(ctx,
		`SELECT ci.id, ci.product_id, COALESCE(p.title, ''), COALESCE(p.price, 0), ci.qty
		 FROM cart_items ci
		 LEFT JOIN products p ON p.id = ci.product_id
		 WHERE ci.cart_id = $1
		 ORDER BY ci.id`, cartID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var lines []CartLine
	for rows.Next() {
		var (
			line CartLine
			num  pgtype.Numeric
		)
		if err := rows.Scan(&line.ID, &line.ProductID, &line.Title, &num, &line.Qty); err != nil {
			return nil, err
		}
		line.Price = numericToDecimal(num)
		lines = append(lines, line)
	}
	return lines, rows.Err()
}

// UpsertCartItemParams adds qty to an existing line or inserts a new one.
type UpsertCartItemParams struct {
	CartID    uuid.UUID
	ProductID uuid.UUID
	Qty       int32
}

// UpsertCartItem inserts a cart line or increments the existing one, bumping
// the cart's last-modified timestamp in the same statement. The unique
// (cart_id, product_id) constraint turns a concurrent duplicate insert into
// an increment instead of a second row.
func (q *Queries) UpsertCartItem(ctx context.Context, arg UpsertCartItemParams) (CartItem, error) {
	row := q.pool.QueryRow(ctx,
		`WITH bump AS (
			UPDATE carts SET updated_at = now() WHERE id = $1
		 )
		 INSERT INTO cart_items (cart_id, product_id, qty) VALUES ($1, $2, $3)
		 ON CONFLICT (cart_id, product_id) DO UPDATE SET qty = cart_items.qty + EXCLUDED.qty
		 RETURNING id, cart_id, product_id, qty`,
		arg.CartID, arg.ProductID, arg.Qty)
	var it CartItem
	err := row.Scan(&it.ID, &it.CartID, &it.ProductID, &it.Qty)
	return it, err
}

// SetCartItemQtyParams sets an exact quantity on a line.
type SetCartItemQtyParams struct {
	CartID    uuid.UUID
	ProductID uuid.UUID
	Qty       int32
}

// SetCartItemQty overwrites a line's quantity and bumps the cart timestamp
// atomically; reports whether a line matched. An unmatched line leaves the
// timestamp untouched.
func (q *Queries) SetCartItemQty(ctx context.Context, arg SetCartItemQtyParams) (bool, error) {
	row := q.pool.QueryRow(ctx,
		`WITH changed AS (
			UPDATE cart_items SET qty = $3 WHERE cart_id = $1 AND product_id = $2
			RETURNING id
		 ), bump AS (
			UPDATE carts SET updated_at = now()
			WHERE id = $1 AND EXISTS (SELECT 1 FROM changed)
		 )
		 SELECT count(*) FROM changed`,
		arg.CartID, arg.ProductID, arg.Qty)
	var matched int64
	if err := row.Scan(&matched); err != nil {
		return false, err
	}
	return matched > 0, nil
}

// DeleteCartItem removes one line and bumps the cart timestamp atomically;
// reports whether a line matched.
func (q *Queries) DeleteCartItem(ctx context.Context, cartID, productID uuid.UUID) (bool, error) {
	row := q.pool.QueryRow(ctx,
		`WITH removed AS (
			DELETE FROM cart_items WHERE cart_id = $1 AND product_id = $2
			RETURNING id
		 ), bump AS (
			UPDATE carts SET updated_at = now()
			WHERE id = $1 AND EXISTS (SELECT 1 FROM removed)
		 )
		 SELECT count(*) FROM removed`,
		cartID, productID)
	var matched int64
	if err := row.Scan(&matched); err != nil {
		return false, err
	}
	return matched > 0, nil
}

// DeleteCartItems clears every line of a cart and bumps its timestamp in the
// same statement.
func (q *Queries) DeleteCartItems(ctx context.Context, cartID uuid.UUID) error {
	_, err := q.pool.Exec(ctx,
		`WITH bump AS (
			UPDATE carts SET updated_at = now() WHERE id = $1
		 )
		 DELETE FROM cart_items WHERE cart_id = $1`, cartID)
	return err
}

// CreateOrderWithItems persists an order and its lines in one transaction.
// Either everything lands or nothing does.
func (q *Queries) CreateOrderWithItems(ctx context.Context, order Order, items []OrderItem) (Order, []OrderItem, error) {
	tx, err := q.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Order{}, nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	row := tx.QueryRow(ctx,
		`INSERT INTO orders (user_id, subtotal_minor, tax_minor, shipping_minor, total_minor, currency)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, user_id, subtotal_minor, tax_minor, shipping_minor, total_minor, currency, created_at`,
		order.UserID, order.SubtotalMinor, order.TaxMinor, order.ShippingMinor, order.TotalMinor, order.Currency)
	var created Order
	if err := row.Scan(&created.ID, &created.UserID, &created.SubtotalMinor, &created.TaxMinor,
		&created.ShippingMinor, &created.TotalMinor, &created.Currency, &created.CreatedAt); err != nil {
		return Order{}, nil, fmt.Errorf("insert order: %w", err)
	}

	createdItems := make([]OrderItem, 0, len(items))
	for _, it := range items {
		itemRow := tx.QueryRow(ctx,
			`INSERT INTO order_items (order_id, product_id, title, qty, unit_price_minor)
			 VALUES ($1, $2, $3, $4, $5)
			 RETURNING id, order_id, product_id, title, qty, unit_price_minor`,
			created.ID, it.ProductID, it.Title, it.Qty, it.UnitPriceMinor)
		var stored OrderItem
		if err := itemRow.Scan(&stored.ID, &stored.OrderID, &stored.ProductID, &stored.Title,
			&stored.Qty, &stored.UnitPriceMinor); err != nil {
			return Order{}, nil, fmt.Errorf("insert order item: %w", err)
		}
		createdItems = append(createdItems, stored)
	}

	if err := tx.Commit(ctx); err != nil {
		return Order{}, nil, err
	}
	return created, createdItems, nil
}

const orderColumns = "id, user_id, subtotal_minor, tax_minor, shipping_minor, total_minor, currency, created_at"

// ListOrdersByUser returns a user's orders, newest first.
func (q *Queries) ListOrdersByUser(ctx context.Context, userID uuid.UUID, limit, offset int32) ([]Order, error) {
	rows, err := q.pool.Query(ctx,
		"SELECT "+orderColumns+" FROM orders WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3",
		userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanOrders(rows)
}

// CountOrdersByUser counts a user's orders.
func (q *Queries) CountOrdersByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	var n int64
	err := q.pool.QueryRow(ctx, "SELECT count(*) FROM orders WHERE user_id = $1", userID).Scan(&n)
	return n, err
}

// ListOrders returns every order, newest first. Administrative listing only.
func (q *Queries) ListOrders(ctx context.Context, limit, offset int32) ([]Order, error) {
	rows, err := q.pool.Query(ctx,
		"SELECT "+orderColumns+" FROM orders ORDER BY created_at DESC LIMIT $1 OFFSET $2", limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanOrders(rows)
}

// CountOrders counts all orders.
func (q *Queries) CountOrders(ctx context.Context) (int64, error) {
	var n int64
	err := q.pool.QueryRow(ctx, "SELECT count(*) FROM orders").Scan(&n)
	return n, err
}

// GetOrderByID fetches one order regardless of owner; callers enforce access.
func (q *Queries) GetOrderByID(ctx context.Context, id uuid.UUID) (Order, error) {
	row := q.pool.QueryRow(ctx, "SELECT "+orderColumns+" FROM orders WHERE id = $1", id)
	var o Order
	err := row.Scan(&o.ID, &o.UserID, &o.SubtotalMinor, &o.TaxMinor, &o.ShippingMinor,
		&o.TotalMinor, &o.Currency, &o.CreatedAt)
	return o, err
}

// ListOrderItems returns the frozen lines of an order.
func (q *Queries) ListOrderItems(ctx context.Context, orderID uuid.UUID) ([]OrderItem, error) {
	rows, err := q.pool.Query(ctx,
		"SELECT id, order_id, product_id, title, qty, unit_price_minor FROM order_items WHERE order_id = $1 ORDER BY id",
		orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []OrderItem
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Title, &it.Qty, &it.UnitPriceMinor); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// ListOrderItemsForOrders returns the frozen lines of a batch of orders in
// one round trip, grouped by caller.
func (q *Queries) ListOrderItemsForOrders(ctx context.Context, orderIDs []uuid.UUID) ([]OrderItem, error) {
	if len(orderIDs) == 0 {
		return nil, nil
	}
	rows, err := q.pool.Query(ctx,
		"SELECT id, order_id, product_id, title, qty, unit_price_minor FROM order_items WHERE order_id = ANY($1) ORDER BY order_id, id",
		orderIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []OrderItem
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.Title, &it.Qty, &it.UnitPriceMinor); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

// AddFavorite records a favorite, silently ignoring duplicates.
func (q *Queries) AddFavorite(ctx context.Context, userID uuid.UUID, productID string) error {
	_, err := q.pool.Exec(ctx,
		"INSERT INTO favorites (user_id, product_id) VALUES ($1, $2) ON CONFLICT DO NOTHING",
		userID, productID)
	return err
}

// AddFavorites records a batch of favorites, skipping any already present.
func (q *Queries) AddFavorites(ctx context.Context, userID uuid.UUID, productIDs []string) error {
	if len(productIDs) == 0 {
		return nil
	}
	_, err := q.pool.Exec(ctx,
		`INSERT INTO favorites (user_id, product_id)
		 SELECT $1, unnest($2::text[])
		 ON CONFLICT DO NOTHING`, userID, productIDs)
	return err
}

// RemoveFavorite deletes a favorite; removing an absent entry is not an error.
func (q *Queries) RemoveFavorite(ctx context.Context, userID uuid.UUID, productID string) error {
	_, err := q.pool.Exec(ctx,
		"DELETE FROM favorites WHERE user_id = $1 AND product_id = $2", userID, productID)
	return err
}

// ListFavorites returns the product identifiers a user has favorited.
func (q *Queries) ListFavorites(ctx context.Context, userID uuid.UUID) ([]string, error) {
	rows, err := q.pool.Query(ctx,
		"SELECT product_id FROM favorites WHERE user_id = $1 ORDER BY created_at", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanProduct(row pgx.Row) (Product, error) {
	var (
		p   Product
		num pgtype.Numeric
	)
	err := row.Scan(&p.ID, &p.Title, &p.Description, &num, &p.ImageURL, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return Product{}, err
	}
	p.Price = numericToDecimal(num)
	return p, nil
}

func scanProducts(rows pgx.Rows) ([]Product, error) {
	var products []Product
	for rows.Next() {
		var (
			p   Product
			num pgtype.Numeric
		)
		if err := rows.Scan(&p.ID, &p.Title, &p.Description, &num, &p.ImageURL, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		p.Price = numericToDecimal(num)
		products = append(products, p)
	}
	return products, rows.Err()
}

func scanOrders(rows pgx.Rows) ([]Order, error) {
	var orders []Order
	for rows.Next() {
		var o Order
		if err := rows.Scan(&o.ID, &o.UserID, &o.SubtotalMinor, &o.TaxMinor, &o.ShippingMinor,
			&o.TotalMinor, &o.Currency, &o.CreatedAt); err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt)
	return u, err
}

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid || n.Int == nil || n.NaN {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(n.Int, n.Exp)
}
