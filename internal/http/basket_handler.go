package http

import (
	"errors"
	"net/http"

	"github.com/fjod/storefront/internal/basket"
	"github.com/fjod/storefront/internal/catalog"
	"github.com/fjod/storefront/internal/domain"
	"github.com/go-chi/chi/v5"
)

type BasketHandler struct {
	catalog  Catalog
	sessions Sessions
}

func NewBasketHandler(catalog Catalog, sessions Sessions) *BasketHandler {
	return &BasketHandler{
		catalog:  catalog,
		sessions: sessions,
	}
}

type AddItemRequestDTO struct {
	ID string `json:"id"`
}

type BasketResponseDTO struct {
	Items    []domain.Item `json:"items"`
	Total    float64       `json:"total"`
	Count    int           `json:"count"`
	CanOrder bool          `json:"can_order"`
}

func basketResponse(b *basket.Basket) BasketResponseDTO {
	snapshot := b.Snapshot()
	if snapshot.Items == nil {
		snapshot.Items = []domain.Item{}
	}
	return BasketResponseDTO{
		Items:    snapshot.Items,
		Total:    snapshot.Total,
		Count:    len(snapshot.Items),
		CanOrder: b.HasPurchasableItems(),
	}
}

func (h *BasketHandler) GetBasket(w http.ResponseWriter, r *http.Request) {
	s, ok := loadSession(w, r, h.sessions)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, basketResponse(s.Basket))
}

// AddItem adds a catalog item by id. Prices always come from the catalog,
// never from the request.
func (h *BasketHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	s, ok := loadSession(w, r, h.sessions)
	if !ok {
		return
	}

	var req AddItemRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.ID == "" {
		respondError(w, http.StatusBadRequest, "invalid_item_id", "id must not be empty")
		return
	}

	item, err := h.catalog.Item(r.Context(), req.ID)
	if errors.Is(err, catalog.ErrItemNotFound) {
		respondError(w, http.StatusNotFound, "not_found", "item not found")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}

	status := http.StatusOK
	if s.Basket.AddItem(item) {
		status = http.StatusCreated
		persist(r, h.sessions, s)
	}
	respondJSON(w, status, basketResponse(s.Basket))
}

func (h *BasketHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	s, ok := loadSession(w, r, h.sessions)
	if !ok {
		return
	}

	id := chi.URLParam(r, "id")
	if !s.Basket.RemoveItem(domain.Item{ID: id}) {
		respondError(w, http.StatusNotFound, "not_found", "item is not in the basket")
		return
	}
	persist(r, h.sessions, s)
	respondJSON(w, http.StatusOK, basketResponse(s.Basket))
}

func (h *BasketHandler) ClearBasket(w http.ResponseWriter, r *http.Request) {
	s, ok := loadSession(w, r, h.sessions)
	if !ok {
		return
	}
	s.Basket.Clear()
	persist(r, h.sessions, s)
	respondJSON(w, http.StatusOK, basketResponse(s.Basket))
}
