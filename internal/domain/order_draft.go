package domain

import (
	"errors"
	"strings"
)

var ErrUnknownPaymentMethod = errors.New("unknown payment method")

type PaymentMethod string

const (
	PaymentOnline PaymentMethod = "online"
	PaymentCash   PaymentMethod = "cash"
)

// ParsePaymentMethod accepts the wire values sent by the browser.
// "card" is what the payment form buttons are named, it means online.
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "online", "card":
		return PaymentOnline, nil
	case "cash":
		return PaymentCash, nil
	case "":
		return "", nil
	default:
		return "", ErrUnknownPaymentMethod
	}
}

func (p PaymentMethod) String() string {
	return string(p)
}

// OrderDraft collects order fields across checkout steps.
// A nil field has not been provided yet.
type OrderDraft struct {
	Address *string        `json:"address,omitempty"`
	Payment *PaymentMethod `json:"payment,omitempty"`
	Email   *string        `json:"email,omitempty"`
	Phone   *string        `json:"phone,omitempty"`
}

// Merge copies every field set in partial over d. Unset fields in partial
// leave d untouched.
func (d *OrderDraft) Merge(partial OrderDraft) {
	if partial.Address != nil {
		v := *partial.Address
		d.Address = &v
	}
	if partial.Payment != nil {
		v := *partial.Payment
		d.Payment = &v
	}
	if partial.Email != nil {
		v := *partial.Email
		d.Email = &v
	}
	if partial.Phone != nil {
		v := *partial.Phone
		d.Phone = &v
	}
}

// DeliveryValid is true once address and payment are both filled.
func (d OrderDraft) DeliveryValid() bool {
	return filled(d.Address) && filled((*string)(d.Payment))
}

// FullyValid is true once every field of the draft is filled.
func (d OrderDraft) FullyValid() bool {
	return d.DeliveryValid() && filled(d.Email) && filled(d.Phone)
}

func (d OrderDraft) Empty() bool {
	return d.Address == nil && d.Payment == nil && d.Email == nil && d.Phone == nil
}

// Clone returns a deep copy so callers can't mutate the owner's fields.
func (d OrderDraft) Clone() OrderDraft {
	var c OrderDraft
	c.Merge(d)
	return c
}

func filled(s *string) bool {
	return s != nil && strings.TrimSpace(*s) != ""
}

// DeliveryDetails builds a partial draft from the delivery form.
func DeliveryDetails(address string, payment PaymentMethod) OrderDraft {
	return OrderDraft{Address: &address, Payment: &payment}
}

// ContactDetails builds a partial draft from the contacts form.
func ContactDetails(email, phone string) OrderDraft {
	return OrderDraft{Email: &email, Phone: &phone}
}

func value[T ~string](p *T) T {
	if p == nil {
		return ""
	}
	return *p
}
