package basket

import (
	"context"
	"fmt"
	"log"
	"slices"
	"sync"

	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/events"
	"golang.org/x/sync/singleflight"
)

// Submitter persists a finished order and returns what was charged.
type Submitter interface {
	Submit(ctx context.Context, req domain.OrderRequest) (*domain.Confirmation, error)
}

// Basket owns the selected items and the order draft of one shopper.
// Items are unique by id; adding an id already present is ignored.
type Basket struct {
	id        string
	notifier  events.Publisher
	submitter Submitter

	mu    sync.Mutex
	items []domain.Item
	draft domain.OrderDraft

	sfg singleflight.Group // at most one submission in flight
}

func New(id string, notifier events.Publisher, submitter Submitter) *Basket {
	return &Basket{
		id:        id,
		notifier:  notifier,
		submitter: submitter,
	}
}

func (b *Basket) ID() string {
	return b.id
}

// Restore replaces the basket contents without notifying, used when a
// session is loaded from storage.
func (b *Basket) Restore(items []domain.Item, draft domain.OrderDraft) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.items = b.items[:0]
	for _, item := range items {
		if !b.containsLocked(item.ID) {
			b.items = append(b.items, item)
		}
	}
	b.draft = draft.Clone()
}

// AddItem appends item unless an item with the same id is already present.
func (b *Basket) AddItem(item domain.Item) bool {
	b.mu.Lock()
	if b.containsLocked(item.ID) {
		b.mu.Unlock()
		return false
	}
	b.items = append(b.items, item)
	b.mu.Unlock()

	b.changed()
	return true
}

// RemoveItem removes the entry with item's id, if any.
func (b *Basket) RemoveItem(item domain.Item) bool {
	b.mu.Lock()
	idx := slices.IndexFunc(b.items, func(i domain.Item) bool { return i.ID == item.ID })
	if idx < 0 {
		b.mu.Unlock()
		return false
	}
	b.items = slices.Delete(b.items, idx, idx+1)
	b.mu.Unlock()

	b.changed()
	return true
}

// Clear empties the basket and resets the order draft.
func (b *Basket) Clear() {
	b.mu.Lock()
	b.items = nil
	b.draft = domain.OrderDraft{}
	b.mu.Unlock()

	b.changed()
}

func (b *Basket) Items() []domain.Item {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.Clone(b.items)
}

func (b *Basket) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.items)
}

func (b *Basket) Contains(id string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.containsLocked(id)
}

// Find returns the basket entry with the given id.
func (b *Basket) Find(id string) (domain.Item, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, item := range b.items {
		if item.ID == id {
			return item, true
		}
	}
	return domain.Item{}, false
}

// Total sums prices of purchasable items. Priceless and non-positive
// prices contribute nothing.
func (b *Basket) Total() float64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return totalOf(b.items)
}

func (b *Basket) HasPurchasableItems() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return slices.ContainsFunc(b.items, domain.Item.Purchasable)
}

// PopulateOrderData merges partial into the order draft. It does not notify;
// callers check IsFirstStepValid or IsValid right after.
func (b *Basket) PopulateOrderData(partial domain.OrderDraft) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.draft.Merge(partial)
}

func (b *Basket) OrderDraft() domain.OrderDraft {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.draft.Clone()
}

func (b *Basket) IsFirstStepValid() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.draft.DeliveryValid()
}

func (b *Basket) IsValid() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.draft.FullyValid()
}

func (b *Basket) Snapshot() domain.BasketSnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	return domain.BasketSnapshot{
		Items: slices.Clone(b.items),
		Draft: b.draft.Clone(),
		Total: totalOf(b.items),
	}
}

// Save submits the current basket and clears it once the order is accepted.
// Concurrent calls share a single submission and its result. On failure the
// basket is left as it was. A submission is never aborted by ctx being
// cancelled; the submitter's own timeout bounds it.
func (b *Basket) Save(ctx context.Context) (*domain.Confirmation, error) {
	ctx = context.WithoutCancel(ctx)
	v, err, shared := b.sfg.Do("save", func() (interface{}, error) {
		return b.save(ctx)
	})
	if shared {
		log.Printf("basket %s: joined in-flight order submission", b.id)
	}
	if err != nil {
		return nil, err
	}
	return v.(*domain.Confirmation), nil
}

// RequestSave submits in the background. Every outcome, including a basket
// that cannot be ordered yet, is published as order:completed or
// order:failed.
func (b *Basket) RequestSave(ctx context.Context) {
	go func() {
		_, _ = b.Save(ctx)
	}()
}

func (b *Basket) save(ctx context.Context) (*domain.Confirmation, error) {
	snapshot := b.Snapshot()
	confirmation, err := b.submit(ctx, snapshot)
	if err != nil {
		log.Printf("basket %s: order not saved: %v", b.id, err)
		b.publish(events.TopicOrderFailed, events.OrderFailedEvent{Error: err.Error()})
		return nil, err
	}

	b.Clear()
	b.publish(events.TopicOrderCompleted, events.OrderCompletedEvent{
		Confirmation: *confirmation,
		Snapshot:     snapshot,
	})
	return confirmation, nil
}

func (b *Basket) submit(ctx context.Context, snapshot domain.BasketSnapshot) (*domain.Confirmation, error) {
	if len(snapshot.PurchasableIDs()) == 0 {
		return nil, ErrNothingToSubmit
	}
	if !snapshot.Draft.FullyValid() {
		return nil, ErrIncompleteOrder
	}

	confirmation, err := b.submitter.Submit(ctx, domain.NewOrderRequest(snapshot))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSubmissionFailed, err)
	}
	return confirmation, nil
}

// Listen subscribes the basket to the inbound topics addressed to it and
// returns a function that detaches it again.
func (b *Basket) Listen(bus *events.Bus) func() {
	own := func(h func(events.Event)) events.Handler {
		return func(e events.Event) {
			if e.BasketID == b.id {
				h(e)
			}
		}
	}

	unsubscribe := []func(){
		bus.Subscribe(events.TopicItemAdded, own(func(e events.Event) {
			if p, ok := e.Payload.(events.ItemEvent); ok {
				b.AddItem(p.Item)
			}
		})),
		bus.Subscribe(events.TopicItemRemoved, own(func(e events.Event) {
			if p, ok := e.Payload.(events.ItemEvent); ok {
				b.RemoveItem(p.Item)
			}
		})),
		bus.Subscribe(events.TopicPaymentCompleted, own(func(e events.Event) {
			if p, ok := e.Payload.(events.PaymentEvent); ok {
				b.PopulateOrderData(domain.DeliveryDetails(p.Address, p.Payment))
			}
		})),
	}

	return func() {
		for _, u := range unsubscribe {
			u()
		}
	}
}

func (b *Basket) changed() {
	b.publish(events.TopicBasketChanged, nil)
}

func (b *Basket) publish(topic string, payload any) {
	if b.notifier == nil {
		return
	}
	b.notifier.Publish(events.Event{Topic: topic, BasketID: b.id, Payload: payload})
}

func (b *Basket) containsLocked(id string) bool {
	return slices.ContainsFunc(b.items, func(i domain.Item) bool { return i.ID == id })
}

func totalOf(items []domain.Item) float64 {
	var total float64
	for _, item := range items {
		total += item.Cost()
	}
	return total
}
