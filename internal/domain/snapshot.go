package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// BasketSnapshot is the basket state handed to the submission channel.
type BasketSnapshot struct {
	Items []Item     `json:"items"`
	Draft OrderDraft `json:"draft"`
	Total float64    `json:"total"`
}

// PurchasableIDs returns ids of items that can actually be ordered.
func (s BasketSnapshot) PurchasableIDs() []string {
	ids := make([]string, 0, len(s.Items))
	for _, item := range s.Items {
		if item.Purchasable() {
			ids = append(ids, item.ID)
		}
	}
	return ids
}

// OrderRequest is the body posted to the order endpoint.
type OrderRequest struct {
	Payment PaymentMethod `json:"payment"`
	Address string        `json:"address"`
	Email   string        `json:"email"`
	Phone   string        `json:"phone"`
	Total   float64       `json:"total"`
	Items   []string      `json:"items"`
}

func NewOrderRequest(s BasketSnapshot) OrderRequest {
	return OrderRequest{
		Payment: value(s.Draft.Payment),
		Address: value(s.Draft.Address),
		Email:   value(s.Draft.Email),
		Phone:   value(s.Draft.Phone),
		Total:   s.Total,
		Items:   s.PurchasableIDs(),
	}
}

// Confirmation is what the order endpoint returns. Total is the amount
// actually charged and wins over the locally computed sum.
type Confirmation struct {
	ID    string `json:"id"`
	Total Amount `json:"total"`
}

// Amount decodes from either a JSON number or a numeric string.
type Amount float64

func (a *Amount) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		*a = 0
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		raw = strings.TrimSpace(s)
		if raw == "" {
			*a = 0
			return nil
		}
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fmt.Errorf("invalid amount %q: %w", raw, err)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("invalid amount %q: not a finite number", raw)
	}
	*a = Amount(v)
	return nil
}

func (a Amount) Float64() float64 {
	return float64(a)
}
