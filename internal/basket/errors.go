package basket

import "errors"

var (
	ErrNothingToSubmit  = errors.New("basket has no purchasable items, nothing to submit")
	ErrIncompleteOrder  = errors.New("order details are incomplete")
	ErrSubmissionFailed = errors.New("order submission failed")
)
