package checkout

import (
	"errors"
	"fmt"

	"github.com/fjod/storefront/internal/domain"
)

// MsgFieldsRequired is shown while the current step's form is incomplete.
const MsgFieldsRequired = "all fields are required"

var (
	ErrIllegalTransition  = errors.New("illegal transition of checkout step")
	ErrWrongStep          = errors.New("checkout is not at the required step")
	ErrNothingToOrder     = errors.New("basket has no purchasable items")
	ErrDeliveryIncomplete = errors.New("delivery details are incomplete")
	ErrContactsIncomplete = errors.New("contact details are incomplete")
)

// TransitionError is returned when a step change is rejected. It matches
// ErrIllegalTransition and unwraps to the reason.
type TransitionError struct {
	From   domain.CheckoutStep
	To     domain.CheckoutStep
	Reason error
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot move checkout from %s to %s: %v", e.From, e.To, e.Reason)
}

func (e *TransitionError) Is(target error) bool {
	return target == ErrIllegalTransition
}

func (e *TransitionError) Unwrap() error {
	return e.Reason
}
