package order

import (
	"context"
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-butik/internal/db"
)

type fakeQueries struct {
	products map[uuid.UUID]db.Product
	orders   []db.Order
	items    map[uuid.UUID][]db.OrderItem
}

func newFakeQueries() *fakeQueries {
	return &fakeQueries{
		products: map[uuid.UUID]db.Product{},
		items:    map[uuid.UUID][]db.OrderItem{},
	}
}

func (f *fakeQueries) addProduct(title, price string) db.Product {
	p := db.Product{ID: uuid.New(), Title: title, Price: decimal.RequireFromString(price)}
	f.products[p.ID] = p
	return p
}

func (f *fakeQueries) GetProductsByIDs(_ context.Context, ids []uuid.UUID) ([]db.Product, error) {
	var out []db.Product
	for _, id := range ids {
		if p, ok := f.products[id]; ok {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeQueries) CreateOrderWithItems(_ context.Context, order db.Order, items []db.OrderItem) (db.Order, []db.OrderItem, error) {
	order.ID = uuid.New()
	stored := make([]db.OrderItem, 0, len(items))
	for _, it := range items {
		it.ID = uuid.New()
		it.OrderID = order.ID
		stored = append(stored, it)
	}
	f.orders = append(f.orders, order)
	f.items[order.ID] = stored
	return order, stored, nil
}

func (f *fakeQueries) ListOrdersByUser(_ context.Context, userID uuid.UUID, limit, offset int32) ([]db.Order, error) {
	var out []db.Order
	for _, o := range f.orders {
		if o.UserID == userID {
			out = append(out, o)
		}
	}
	return page(out, limit, offset), nil
}

func (f *fakeQueries) CountOrdersByUser(_ context.Context, userID uuid.UUID) (int64, error) {
	var n int64
	for _, o := range f.orders {
		if o.UserID == userID {
			n++
		}
	}
	return n, nil
}

func (f *fakeQueries) ListOrders(_ context.Context, limit, offset int32) ([]db.Order, error) {
	return page(f.orders, limit, offset), nil
}

func (f *fakeQueries) CountOrders(context.Context) (int64, error) {
	return int64(len(f.orders)), nil
}

func (f *fakeQueries) GetOrderByID(_ context.Context, id uuid.UUID) (db.Order, error) {
	for _, o := range f.orders {
		if o.ID == id {
			return o, nil
		}
	}
	return db.Order{}, pgx.ErrNoRows
}

func (f *fakeQueries) ListOrderItems(_ context.Context, orderID uuid.UUID) ([]db.OrderItem, error) {
	return f.items[orderID], nil
}

func (f *fakeQueries) ListOrderItemsForOrders(_ context.Context, orderIDs []uuid.UUID) ([]db.OrderItem, error) {
	var out []db.OrderItem
	for _, id := range orderIDs {
		out = append(out, f.items[id]...)
	}
	return out, nil
}

func page(orders []db.Order, limit, offset int32) []db.Order {
	if int(offset) >= len(orders) {
		return nil
	}
	end := int(offset + limit)
	if end > len(orders) {
		end = len(orders)
	}
	return orders[offset:end]
}

func TestCreateSnapshotsCurrentPrices(t *testing.T) {
	q := newFakeQueries()
	svc := &Service{Q: q, Currency: "SEK"}
	userID := uuid.New()
	jacket := q.addProduct("Jacka", "149.00")
	hat := q.addProduct("Keps", "99.00")

	snap, err := svc.Create(context.Background(), userID, []LineInput{
		{ProductID: jacket.ID, Qty: 2},
		{ProductID: hat.ID, Qty: 1},
	})
	require.NoError(t, err)
	require.Equal(t, int64(39700), snap.Order.SubtotalMinor)
	require.Equal(t, int64(9925), snap.Order.TaxMinor)
	require.Equal(t, int64(0), snap.Order.ShippingMinor)
	require.Equal(t, int64(49625), snap.Order.TotalMinor)
	require.Equal(t, "SEK", snap.Order.Currency)
	require.Len(t, snap.Items, 2)
	require.Equal(t, "Jacka", snap.Items[0].Title)
	require.Equal(t, int64(14900), snap.Items[0].UnitPriceMinor)

	// A later price change must not affect the stored snapshot.
	jacket.Price = decimal.RequireFromString("999.00")
	q.products[jacket.ID] = jacket
	got, err := svc.Get(context.Background(), snap.Order.ID, userID, false)
	require.NoError(t, err)
	require.Equal(t, int64(14900), got.Items[0].UnitPriceMinor)
}

func TestCreateRejectsEmptyOrder(t *testing.T) {
	svc := &Service{Q: newFakeQueries(), Currency: "SEK"}
	_, err := svc.Create(context.Background(), uuid.New(), nil)
	require.ErrorIs(t, err, ErrEmptyOrder)
}

func TestCreateIsAllOrNothing(t *testing.T) {
	q := newFakeQueries()
	svc := &Service{Q: q, Currency: "SEK"}
	valid := q.addProduct("Strumpor", "49.00")

	_, err := svc.Create(context.Background(), uuid.New(), []LineInput{
		{ProductID: valid.ID, Qty: 1},
		{ProductID: uuid.New(), Qty: 1},
	})
	require.ErrorIs(t, err, ErrProductNotFound)
	require.Empty(t, q.orders, "no rows may be written when any line is invalid")

	_, err = svc.Create(context.Background(), uuid.New(), []LineInput{
		{ProductID: valid.ID, Qty: 1},
		{ProductID: valid.ID, Qty: 0},
	})
	require.ErrorIs(t, err, ErrInvalidQuantity)
	require.Empty(t, q.orders)
}

func TestCreateRejectsOversizedQuantity(t *testing.T) {
	q := newFakeQueries()
	svc := &Service{Q: q, Currency: "SEK"}
	product := q.addProduct("Vantar", "1.00")

	// A quantity past the int32 line limit would wrap when stored: totals
	// computed from the full value would no longer match the frozen lines.
	_, err := svc.Create(context.Background(), uuid.New(), []LineInput{
		{ProductID: product.ID, Qty: 1<<32 + 2},
	})
	require.ErrorIs(t, err, ErrInvalidQuantity)
	require.Empty(t, q.orders, "nothing may be written for an unstorable quantity")

	// The largest storable quantity still goes through with exact totals.
	snap, err := svc.Create(context.Background(), uuid.New(), []LineInput{
		{ProductID: product.ID, Qty: math.MaxInt32},
	})
	require.NoError(t, err)
	require.EqualValues(t, math.MaxInt32, snap.Items[0].Qty)
	require.Equal(t, int64(math.MaxInt32)*100, snap.Order.SubtotalMinor)
}

func TestGetEnforcesOwnership(t *testing.T) {
	q := newFakeQueries()
	svc := &Service{Q: q, Currency: "SEK"}
	owner := uuid.New()
	product := q.addProduct("Handskar", "199.00")

	snap, err := svc.Create(context.Background(), owner, []LineInput{{ProductID: product.ID, Qty: 1}})
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), snap.Order.ID, uuid.New(), false)
	require.ErrorIs(t, err, ErrForbidden)

	_, err = svc.Get(context.Background(), snap.Order.ID, uuid.New(), true)
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), uuid.New(), owner, false)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestListScopesByCaller(t *testing.T) {
	q := newFakeQueries()
	svc := &Service{Q: q, Currency: "SEK"}
	alice := uuid.New()
	bob := uuid.New()
	product := q.addProduct("Skor", "799.00")

	_, err := svc.Create(context.Background(), alice, []LineInput{{ProductID: product.ID, Qty: 1}})
	require.NoError(t, err)
	_, err = svc.Create(context.Background(), bob, []LineInput{{ProductID: product.ID, Qty: 2}})
	require.NoError(t, err)

	own, total, err := svc.ListOwn(context.Background(), alice, 20, 0)
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Len(t, own, 1)
	require.Equal(t, alice, own[0].Order.UserID)
	require.Len(t, own[0].Items, 1, "listed orders carry their lines")
	require.Equal(t, "Skor", own[0].Items[0].Title)

	all, total, err := svc.ListAll(context.Background(), 20, 0)
	require.NoError(t, err)
	require.EqualValues(t, 2, total)
	require.Len(t, all, 2)
	require.Len(t, all[1].Items, 1)
	require.EqualValues(t, 2, all[1].Items[0].Qty)
}
