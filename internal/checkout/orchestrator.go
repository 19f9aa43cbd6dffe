package checkout

import (
	"context"
	"sync"

	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/events"
)

// Basket is the part of the basket aggregate the checkout drives.
type Basket interface {
	ID() string
	HasPurchasableItems() bool
	PopulateOrderData(partial domain.OrderDraft)
	OrderDraft() domain.OrderDraft
	IsFirstStepValid() bool
	IsValid() bool
	Save(ctx context.Context) (*domain.Confirmation, error)
}

// State is what the presentation layer renders for the current step.
type State struct {
	Step         domain.CheckoutStep  `json:"step"`
	Error        string               `json:"error,omitempty"`
	Confirmation *domain.Confirmation `json:"confirmation,omitempty"`
}

// Orchestrator walks one basket through cart, delivery, contact and
// confirmation. Every transition checks the current step and the step's
// guard, so callers can't skip ahead.
type Orchestrator struct {
	basket   Basket
	notifier events.Publisher

	mu           sync.Mutex
	step         domain.CheckoutStep
	errMsg       string
	confirmation *domain.Confirmation
}

func NewOrchestrator(basket Basket, notifier events.Publisher) *Orchestrator {
	return &Orchestrator{
		basket:   basket,
		notifier: notifier,
		step:     domain.CheckoutStepIdle,
	}
}

func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.stateLocked()
}

// Open shows the cart. It is the entry point from idle and may be called
// again from any unfinished step; the order draft is kept.
func (o *Orchestrator) Open() (State, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.checkLocked(domain.CheckoutStepCart); err != nil {
		return o.stateLocked(), err
	}
	o.moveLocked(domain.CheckoutStepCart)
	return o.stateLocked(), nil
}

// SubmitCart starts checkout. The basket must hold something purchasable.
func (o *Orchestrator) SubmitCart() (State, error) {
	o.mu.Lock()
	if err := o.checkLocked(domain.CheckoutStepDelivery); err != nil {
		defer o.mu.Unlock()
		return o.stateLocked(), err
	}
	if !o.basket.HasPurchasableItems() {
		defer o.mu.Unlock()
		return o.stateLocked(), o.rejectLocked(domain.CheckoutStepDelivery, ErrNothingToOrder)
	}
	o.moveLocked(domain.CheckoutStepDelivery)
	state := o.stateLocked()
	o.mu.Unlock()

	o.publish(events.TopicBasketCompleted, nil)
	return state, nil
}

// ChangeDelivery records the delivery form and re-runs its guard. An
// incomplete form is not an error: it sets the step's error message.
func (o *Orchestrator) ChangeDelivery(address string, payment domain.PaymentMethod) (State, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.step != domain.CheckoutStepDelivery {
		return o.stateLocked(), o.rejectLocked(domain.CheckoutStepDelivery, ErrWrongStep)
	}

	o.basket.PopulateOrderData(domain.DeliveryDetails(address, payment))
	o.validateLocked(o.basket.IsFirstStepValid())
	return o.stateLocked(), nil
}

func (o *Orchestrator) SubmitDelivery() (State, error) {
	o.mu.Lock()
	if err := o.checkLocked(domain.CheckoutStepContact); err != nil {
		defer o.mu.Unlock()
		return o.stateLocked(), err
	}
	if !o.basket.IsFirstStepValid() {
		defer o.mu.Unlock()
		o.errMsg = MsgFieldsRequired
		return o.stateLocked(), o.rejectLocked(domain.CheckoutStepContact, ErrDeliveryIncomplete)
	}
	o.moveLocked(domain.CheckoutStepContact)
	state := o.stateLocked()
	o.mu.Unlock()

	o.publishPayment()
	return state, nil
}

func (o *Orchestrator) ChangeContacts(email, phone string) (State, error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.step != domain.CheckoutStepContact {
		return o.stateLocked(), o.rejectLocked(domain.CheckoutStepContact, ErrWrongStep)
	}

	o.basket.PopulateOrderData(domain.ContactDetails(email, phone))
	o.validateLocked(o.basket.IsValid())
	return o.stateLocked(), nil
}

// SubmitContacts places the order. On success the checkout reaches
// confirmation with the charged total. On failure it stays at the contact
// step with the failure as its error message, so the shopper can retry.
func (o *Orchestrator) SubmitContacts(ctx context.Context) (State, error) {
	o.mu.Lock()
	if err := o.checkLocked(domain.CheckoutStepConfirmation); err != nil {
		defer o.mu.Unlock()
		return o.stateLocked(), err
	}
	if !o.basket.IsValid() {
		defer o.mu.Unlock()
		o.errMsg = MsgFieldsRequired
		return o.stateLocked(), o.rejectLocked(domain.CheckoutStepConfirmation, ErrContactsIncomplete)
	}
	o.mu.Unlock()

	// the lock is not held across the network call; concurrent submits
	// are joined by the basket
	confirmation, err := o.basket.Save(ctx)

	o.mu.Lock()
	defer o.mu.Unlock()
	if err != nil {
		o.errMsg = err.Error()
		return o.stateLocked(), err
	}
	if o.step == domain.CheckoutStepContact {
		o.moveLocked(domain.CheckoutStepConfirmation)
		o.confirmation = confirmation
	}
	return o.stateLocked(), nil
}

// Reset closes the checkout, from any step.
func (o *Orchestrator) Reset() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.step = domain.CheckoutStepIdle
	o.errMsg = ""
	o.confirmation = nil
	return o.stateLocked()
}

// Resume puts a restored checkout back at step. A finished checkout comes
// back closed since its confirmation is not kept.
func (o *Orchestrator) Resume(step domain.CheckoutStep) {
	o.mu.Lock()
	defer o.mu.Unlock()
	switch step {
	case domain.CheckoutStepCart, domain.CheckoutStepDelivery, domain.CheckoutStepContact:
		o.step = step
	default:
		o.step = domain.CheckoutStepIdle
	}
	o.errMsg = ""
	o.confirmation = nil
}

func (o *Orchestrator) checkLocked(to domain.CheckoutStep) error {
	if !domain.CanTransitionTo(o.step, to) {
		return o.rejectLocked(to, ErrWrongStep)
	}
	return nil
}

func (o *Orchestrator) rejectLocked(to domain.CheckoutStep, reason error) error {
	return &TransitionError{From: o.step, To: to, Reason: reason}
}

func (o *Orchestrator) moveLocked(to domain.CheckoutStep) {
	o.step = to
	o.errMsg = ""
	if to != domain.CheckoutStepConfirmation {
		o.confirmation = nil
	}
}

func (o *Orchestrator) validateLocked(valid bool) {
	if valid {
		o.errMsg = ""
		return
	}
	o.errMsg = MsgFieldsRequired
}

func (o *Orchestrator) stateLocked() State {
	return State{Step: o.step, Error: o.errMsg, Confirmation: o.confirmation}
}

func (o *Orchestrator) publishPayment() {
	draft := o.basket.OrderDraft()
	e := events.PaymentEvent{}
	if draft.Address != nil {
		e.Address = *draft.Address
	}
	if draft.Payment != nil {
		e.Payment = *draft.Payment
	}
	o.publish(events.TopicPaymentCompleted, e)
}

func (o *Orchestrator) publish(topic string, payload any) {
	if o.notifier == nil {
		return
	}
	o.notifier.Publish(events.Event{Topic: topic, BasketID: o.basket.ID(), Payload: payload})
}
