package http

import (
	"errors"
	"log"
	"net/http"

	"github.com/fjod/storefront/internal/basket"
	"github.com/fjod/storefront/internal/checkout"
	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/session"
)

type CheckoutHandler struct {
	sessions Sessions
}

func NewCheckoutHandler(sessions Sessions) *CheckoutHandler {
	return &CheckoutHandler{sessions: sessions}
}

type DeliveryRequestDTO struct {
	Address string `json:"address"`
	Payment string `json:"payment"`
}

type ContactsRequestDTO struct {
	Email string `json:"email"`
	Phone string `json:"phone"`
}

type CheckoutResponseDTO struct {
	checkout.State
	Basket BasketResponseDTO `json:"basket"`
}

func (h *CheckoutHandler) GetState(w http.ResponseWriter, r *http.Request) {
	s, ok := loadSession(w, r, h.sessions)
	if !ok {
		return
	}
	respondJSON(w, http.StatusOK, checkoutResponse(s, s.Checkout.State()))
}

func (h *CheckoutHandler) Open(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(s *session.Session) (checkout.State, error) {
		return s.Checkout.Open()
	})
}

func (h *CheckoutHandler) SubmitCart(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(s *session.Session) (checkout.State, error) {
		return s.Checkout.SubmitCart()
	})
}

func (h *CheckoutHandler) ChangeDelivery(w http.ResponseWriter, r *http.Request) {
	var req DeliveryRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}
	payment, err := domain.ParsePaymentMethod(req.Payment)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_payment", "payment must be online or cash")
		return
	}

	h.transition(w, r, func(s *session.Session) (checkout.State, error) {
		return s.Checkout.ChangeDelivery(req.Address, payment)
	})
}

func (h *CheckoutHandler) SubmitDelivery(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(s *session.Session) (checkout.State, error) {
		return s.Checkout.SubmitDelivery()
	})
}

func (h *CheckoutHandler) ChangeContacts(w http.ResponseWriter, r *http.Request) {
	var req ContactsRequestDTO
	if !decodeJSON(w, r, &req) {
		return
	}

	h.transition(w, r, func(s *session.Session) (checkout.State, error) {
		return s.Checkout.ChangeContacts(req.Email, req.Phone)
	})
}

func (h *CheckoutHandler) SubmitContacts(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(s *session.Session) (checkout.State, error) {
		return s.Checkout.SubmitContacts(r.Context())
	})
}

func (h *CheckoutHandler) Reset(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, func(s *session.Session) (checkout.State, error) {
		return s.Checkout.Reset(), nil
	})
}

func (h *CheckoutHandler) transition(w http.ResponseWriter, r *http.Request, fn func(s *session.Session) (checkout.State, error)) {
	s, ok := loadSession(w, r, h.sessions)
	if !ok {
		return
	}

	state, err := fn(s)
	if err != nil {
		handleCheckoutError(w, err)
		return
	}

	persist(r, h.sessions, s)
	respondJSON(w, http.StatusOK, checkoutResponse(s, state))
}

func checkoutResponse(s *session.Session, state checkout.State) CheckoutResponseDTO {
	return CheckoutResponseDTO{State: state, Basket: basketResponse(s.Basket)}
}

func handleCheckoutError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, checkout.ErrWrongStep):
		respondError(w, http.StatusConflict, "illegal_transition", err.Error())
	case errors.Is(err, checkout.ErrNothingToOrder),
		errors.Is(err, basket.ErrNothingToSubmit):
		respondError(w, http.StatusUnprocessableEntity, "nothing_to_order", err.Error())
	case errors.Is(err, checkout.ErrDeliveryIncomplete),
		errors.Is(err, checkout.ErrContactsIncomplete),
		errors.Is(err, basket.ErrIncompleteOrder):
		respondError(w, http.StatusUnprocessableEntity, "fields_required", checkout.MsgFieldsRequired)
	case errors.Is(err, basket.ErrSubmissionFailed):
		respondError(w, http.StatusBadGateway, "submission_failed", err.Error())
	default:
		log.Printf("unexpected checkout error: %v", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
