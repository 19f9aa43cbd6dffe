package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/fjod/storefront/internal/catalog"
	"github.com/fjod/storefront/internal/domain"
	"github.com/go-chi/chi/v5"
)

type Catalog interface {
	Items(ctx context.Context) []domain.Item
	Item(ctx context.Context, id string) (domain.Item, error)
}

type CatalogHandler struct {
	catalog  Catalog
	sessions Sessions
}

func NewCatalogHandler(catalog Catalog, sessions Sessions) *CatalogHandler {
	return &CatalogHandler{
		catalog:  catalog,
		sessions: sessions,
	}
}

type CatalogResponseDTO struct {
	Total int           `json:"total"`
	Items []domain.Item `json:"items"`
}

type CatalogItemResponseDTO struct {
	domain.Item
	Purchasable bool `json:"purchasable"`
	InBasket    bool `json:"in_basket"`
}

func (h *CatalogHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	items := h.catalog.Items(r.Context())
	respondJSON(w, http.StatusOK, CatalogResponseDTO{Total: len(items), Items: items})
}

func (h *CatalogHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	s, ok := loadSession(w, r, h.sessions)
	if !ok {
		return
	}

	item, err := h.catalog.Item(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, catalog.ErrItemNotFound) {
		respondError(w, http.StatusNotFound, "not_found", "item not found")
		return
	}
	if err != nil {
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
		return
	}

	respondJSON(w, http.StatusOK, CatalogItemResponseDTO{
		Item:        item,
		Purchasable: item.Purchasable(),
		InBasket:    s.Basket.Contains(item.ID),
	})
}
