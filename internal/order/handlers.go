package order

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/noah-isme/backend-butik/internal/common"
	"github.com/noah-isme/backend-butik/internal/db"
	"github.com/noah-isme/backend-butik/internal/obs"
)

// Handler wires the order service to HTTP.
type Handler struct {
	Svc     *Service
	PerPage int
}

// Create submits a new order from an explicit item list.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	var payload struct {
		Items []struct {
			ProductID string `json:"productId"`
			Qty       int64  `json:"qty"`
		} `json:"items"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return
	}
	lines := make([]LineInput, 0, len(payload.Items))
	for _, it := range payload.Items {
		productID, err := uuid.Parse(it.ProductID)
		if err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid product id", map[string]any{"productId": it.ProductID})
			return
		}
		lines = append(lines, LineInput{ProductID: productID, Qty: it.Qty})
	}
	snapshot, err := h.Svc.Create(r.Context(), userID, lines)
	if err != nil {
		obs.OrdersCreatedTotal.WithLabelValues("error").Inc()
		h.writeError(w, err)
		return
	}
	obs.OrdersCreatedTotal.WithLabelValues("ok").Inc()
	common.JSON(w, http.StatusCreated, map[string]any{"data": snapshotResponse(snapshot)})
}

// List returns the caller's orders; administrators see every order.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	perPageDefault := h.PerPage
	if perPageDefault <= 0 {
		perPageDefault = 20
	}
	page, perPage := common.ParsePagination(r, perPageDefault)
	offset := common.Offset(page, perPage)

	var (
		snapshots []Snapshot
		total     int64
		err       error
	)
	if common.HasRole(r.Context(), "admin") {
		snapshots, total, err = h.Svc.ListAll(r.Context(), int32(perPage), offset)
	} else {
		snapshots, total, err = h.Svc.ListOwn(r.Context(), userID, int32(perPage), offset)
	}
	if err != nil {
		h.writeError(w, err)
		return
	}
	response := make([]map[string]any, 0, len(snapshots))
	for _, snapshot := range snapshots {
		response = append(response, snapshotResponse(snapshot))
	}
	w.Header().Set("X-Total-Count", strconv.FormatInt(total, 10))
	common.JSON(w, http.StatusOK, map[string]any{
		"data": response,
		"pagination": common.Pagination{
			Page:       page,
			PerPage:    perPage,
			TotalItems: int(total),
		},
	})
}

// Get returns one order with its lines, owner or administrator only.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUser(w, r)
	if !ok {
		return
	}
	orderID, err := uuid.Parse(chi.URLParam(r, "orderId"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid order id", nil)
		return
	}
	snapshot, err := h.Svc.Get(r.Context(), orderID, userID, common.HasRole(r.Context(), "admin"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": snapshotResponse(snapshot)})
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrEmptyOrder):
		common.JSONError(w, http.StatusBadRequest, "EMPTY_ORDER", err.Error(), nil)
	case errors.Is(err, ErrInvalidQuantity):
		common.JSONError(w, http.StatusBadRequest, "INVALID_QUANTITY", err.Error(), nil)
	case errors.Is(err, ErrProductNotFound):
		common.JSONError(w, http.StatusNotFound, "PRODUCT_NOT_FOUND", err.Error(), nil)
	case errors.Is(err, ErrNotFound):
		common.JSONError(w, http.StatusNotFound, "NOT_FOUND", err.Error(), nil)
	case errors.Is(err, ErrForbidden):
		common.JSONError(w, http.StatusForbidden, "FORBIDDEN", err.Error(), nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to process order request", nil)
	}
}

func requireUser(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw, ok := common.UserID(r.Context())
	if !ok || raw == "" {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required", nil)
		return uuid.UUID{}, false
	}
	userID, err := uuid.Parse(raw)
	if err != nil {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid subject", nil)
		return uuid.UUID{}, false
	}
	return userID, true
}

func orderResponse(ord db.Order) map[string]any {
	return map[string]any{
		"id":        ord.ID,
		"userId":    ord.UserID,
		"subtotal":  ord.SubtotalMinor,
		"tax":       ord.TaxMinor,
		"shipping":  ord.ShippingMinor,
		"total":     ord.TotalMinor,
		"currency":  ord.Currency,
		"createdAt": ord.CreatedAt,
	}
}

func snapshotResponse(s Snapshot) map[string]any {
	items := make([]map[string]any, 0, len(s.Items))
	for _, it := range s.Items {
		items = append(items, map[string]any{
			"id":        it.ID,
			"productId": it.ProductID,
			"title":     it.Title,
			"qty":       it.Qty,
			"unitPrice": it.UnitPriceMinor,
		})
	}
	response := orderResponse(s.Order)
	response["items"] = items
	return response
}
