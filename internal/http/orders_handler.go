package http

import (
	"context"
	"errors"
	"log"
	"net/http"

	"github.com/fjod/storefront/internal/receipts"
	"github.com/go-chi/chi/v5"
)

type Receipts interface {
	Get(ctx context.Context, id string) (*receipts.Receipt, error)
	ListByBasket(ctx context.Context, basketID string) ([]*receipts.Receipt, error)
}

type OrdersHandler struct {
	receipts Receipts
}

func NewOrdersHandler(receipts Receipts) *OrdersHandler {
	return &OrdersHandler{receipts: receipts}
}

// GetOrder returns a receipt of the caller's own session.
func (h *OrdersHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	sessionID := getSessionID(r.Context())
	rec, err := h.receipts.Get(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, receipts.ErrReceiptNotFound) || (err == nil && rec.BasketID != sessionID) {
		respondError(w, http.StatusNotFound, "not_found", "order not found")
		return
	}
	if err != nil {
		log.Printf("failed to get receipt: %v", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

func (h *OrdersHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	list, err := h.receipts.ListByBasket(r.Context(), getSessionID(r.Context()))
	if err != nil {
		log.Printf("failed to list receipts: %v", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}
	if list == nil {
		list = []*receipts.Receipt{}
	}
	respondJSON(w, http.StatusOK, list)
}
