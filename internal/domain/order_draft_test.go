package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeliveryValid_RequiresAddressAndPayment(t *testing.T) {
	var d OrderDraft
	assert.False(t, d.DeliveryValid())

	address := "Main st. 1"
	d.Merge(OrderDraft{Address: &address})
	assert.False(t, d.DeliveryValid())

	payment := PaymentOnline
	d.Merge(OrderDraft{Payment: &payment})
	assert.True(t, d.DeliveryValid())
}

func TestDeliveryValid_OrderDoesNotMatter(t *testing.T) {
	var d OrderDraft
	payment := PaymentCash
	d.Merge(OrderDraft{Payment: &payment})
	assert.False(t, d.DeliveryValid())

	address := "X"
	d.Merge(OrderDraft{Address: &address})
	assert.True(t, d.DeliveryValid())
}

func TestDeliveryValid_BlankAddress(t *testing.T) {
	d := DeliveryDetails("   ", PaymentOnline)
	assert.False(t, d.DeliveryValid())
}

func TestFullyValid_RequiresContacts(t *testing.T) {
	d := DeliveryDetails("X", PaymentOnline)
	assert.False(t, d.FullyValid())

	email := "a@b.c"
	d.Merge(OrderDraft{Email: &email})
	assert.False(t, d.FullyValid(), "phone missing")

	d.Merge(ContactDetails("a@b.c", "+70000000000"))
	assert.True(t, d.FullyValid())
}

func TestMerge_LastWriteWinsAndKeepsUnset(t *testing.T) {
	d := DeliveryDetails("first", PaymentOnline)
	second := "second"
	d.Merge(OrderDraft{Address: &second})

	require.NotNil(t, d.Address)
	assert.Equal(t, "second", *d.Address)
	require.NotNil(t, d.Payment)
	assert.Equal(t, PaymentOnline, *d.Payment)
}

func TestClone_IsIndependent(t *testing.T) {
	d := DeliveryDetails("X", PaymentCash)
	c := d.Clone()
	*c.Address = "Y"
	assert.Equal(t, "X", *d.Address)
}

func TestParsePaymentMethod(t *testing.T) {
	tests := []struct {
		in      string
		want    PaymentMethod
		wantErr bool
	}{
		{"online", PaymentOnline, false},
		{"card", PaymentOnline, false},
		{" Cash ", PaymentCash, false},
		{"", "", false},
		{"barter", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePaymentMethod(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownPaymentMethod)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestItem_Purchasable(t *testing.T) {
	assert.True(t, Item{ID: "a", Price: Price(100)}.Purchasable())
	assert.False(t, Item{ID: "b"}.Purchasable())
	assert.False(t, Item{ID: "c", Price: Price(0)}.Purchasable())
	assert.Equal(t, 0.0, Item{ID: "d", Price: Price(-5)}.Cost())
}

func TestNewOrderRequest_SkipsPricelessItems(t *testing.T) {
	draft := DeliveryDetails("X", PaymentOnline)
	draft.Merge(ContactDetails("a@b.c", "123"))
	req := NewOrderRequest(BasketSnapshot{
		Items: []Item{
			{ID: "a", Price: Price(100)},
			{ID: "b"},
		},
		Draft: draft,
		Total: 100,
	})

	assert.Equal(t, []string{"a"}, req.Items)
	assert.Equal(t, PaymentOnline, req.Payment)
	assert.Equal(t, "X", req.Address)
	assert.Equal(t, "a@b.c", req.Email)
	assert.Equal(t, "123", req.Phone)
	assert.Equal(t, 100.0, req.Total)
}

func TestConfirmation_TotalFromStringOrNumber(t *testing.T) {
	var fromString Confirmation
	require.NoError(t, json.Unmarshal([]byte(`{"id":"o1","total":"500"}`), &fromString))
	assert.Equal(t, 500.0, fromString.Total.Float64())

	var fromNumber Confirmation
	require.NoError(t, json.Unmarshal([]byte(`{"id":"o2","total":750.5}`), &fromNumber))
	assert.Equal(t, 750.5, fromNumber.Total.Float64())

	var bad Confirmation
	assert.Error(t, json.Unmarshal([]byte(`{"total":"lots"}`), &bad))
}

func TestConfirmation_RejectsNonFiniteTotal(t *testing.T) {
	for _, raw := range []string{`"NaN"`, `"Inf"`, `"-Inf"`, `"+Infinity"`} {
		var c Confirmation
		err := json.Unmarshal([]byte(`{"id":"o1","total":`+raw+`}`), &c)
		assert.ErrorContains(t, err, "not a finite number", raw)
	}
}

func TestCanTransitionTo(t *testing.T) {
	assert.True(t, CanTransitionTo(CheckoutStepIdle, CheckoutStepCart))
	assert.True(t, CanTransitionTo(CheckoutStepCart, CheckoutStepDelivery))
	assert.True(t, CanTransitionTo(CheckoutStepDelivery, CheckoutStepContact))
	assert.True(t, CanTransitionTo(CheckoutStepContact, CheckoutStepConfirmation))

	assert.False(t, CanTransitionTo(CheckoutStepCart, CheckoutStepContact))
	assert.False(t, CanTransitionTo(CheckoutStepIdle, CheckoutStepConfirmation))
	assert.False(t, CanTransitionTo(CheckoutStepContact, CheckoutStepDelivery))
	assert.False(t, CanTransitionTo(CheckoutStepConfirmation, CheckoutStepCart))
	assert.False(t, CanTransitionTo(CheckoutStepDelivery, CheckoutStepDelivery))

	// the basket icon reopens the cart mid-checkout
	assert.True(t, CanTransitionTo(CheckoutStepDelivery, CheckoutStepCart))
	assert.True(t, CanTransitionTo(CheckoutStepContact, CheckoutStepCart))
	assert.True(t, CheckoutStepConfirmation.IsTerminal())
}
