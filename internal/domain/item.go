package domain

// Item is a catalog record. A nil Price marks a listing that cannot be bought.
type Item struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Price       *float64 `json:"price"`
	Description string   `json:"description,omitempty"`
	Image       string   `json:"image,omitempty"`
	Category    string   `json:"category,omitempty"`
}

// Purchasable reports whether the item has a positive price.
func (i Item) Purchasable() bool {
	return i.Price != nil && *i.Price > 0
}

// Cost returns the amount the item contributes to a basket total.
func (i Item) Cost() float64 {
	if !i.Purchasable() {
		return 0
	}
	return *i.Price
}

// Price is a helper for building items with a set price.
func Price(v float64) *float64 {
	return &v
}
