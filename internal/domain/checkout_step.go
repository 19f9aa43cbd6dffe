package domain

type CheckoutStep string

const (
	CheckoutStepIdle         CheckoutStep = "IDLE"
	CheckoutStepCart         CheckoutStep = "CART"
	CheckoutStepDelivery     CheckoutStep = "DELIVERY"
	CheckoutStepContact      CheckoutStep = "CONTACT"
	CheckoutStepConfirmation CheckoutStep = "CONFIRMATION"
)

// transitions lists the moves allowed out of each step. The cart can be
// reopened from any unfinished step. Going back to idle is handled by Reset
// and is always allowed.
var transitions = map[CheckoutStep][]CheckoutStep{
	CheckoutStepIdle:     {CheckoutStepCart},
	CheckoutStepCart:     {CheckoutStepCart, CheckoutStepDelivery},
	CheckoutStepDelivery: {CheckoutStepCart, CheckoutStepContact},
	CheckoutStepContact:  {CheckoutStepCart, CheckoutStepConfirmation},
}

func CanTransitionTo(from, to CheckoutStep) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

func (s CheckoutStep) IsTerminal() bool {
	return s == CheckoutStepConfirmation
}

// String representation (for logging)
func (s CheckoutStep) String() string {
	return string(s)
}
