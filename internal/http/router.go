package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type RouterConfig struct {
	RequestTimeout     time.Duration
	MaxRequestBodySize int64
}

type Handlers struct {
	Catalog  *CatalogHandler
	Basket   *BasketHandler
	Checkout *CheckoutHandler
	Orders   *OrdersHandler
}

func NewRouter(cfg RouterConfig, h Handlers) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestIDMiddleware)
	if cfg.RequestTimeout > 0 {
		r.Use(middleware.Timeout(cfg.RequestTimeout))
	}
	r.Use(middleware.Compress(5))
	if cfg.MaxRequestBodySize > 0 {
		r.Use(MaxBodySize(cfg.MaxRequestBodySize))
	}

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(SessionMiddleware)

		r.Route("/catalog", func(r chi.Router) {
			r.Get("/", h.Catalog.ListItems)
			r.Get("/{id}", h.Catalog.GetItem)
		})

		r.Route("/basket", func(r chi.Router) {
			r.Get("/", h.Basket.GetBasket)
			r.Delete("/", h.Basket.ClearBasket)
			r.Post("/items", h.Basket.AddItem)
			r.Delete("/items/{id}", h.Basket.RemoveItem)
		})

		r.Route("/checkout", func(r chi.Router) {
			r.Get("/", h.Checkout.GetState)
			r.Post("/open", h.Checkout.Open)
			r.Post("/cart", h.Checkout.SubmitCart)
			r.Post("/delivery", h.Checkout.ChangeDelivery)
			r.Post("/delivery/submit", h.Checkout.SubmitDelivery)
			r.Post("/contacts", h.Checkout.ChangeContacts)
			r.Post("/contacts/submit", h.Checkout.SubmitContacts)
			r.Post("/reset", h.Checkout.Reset)
		})

		if h.Orders != nil {
			r.Route("/orders", func(r chi.Router) {
				r.Get("/", h.Orders.ListOrders)
				r.Get("/{id}", h.Orders.GetOrder)
			})
		}
	})

	return otelhttp.NewHandler(r, "storefront")
}
