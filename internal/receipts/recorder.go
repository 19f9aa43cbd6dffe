package receipts

import (
	"context"
	"log"
	"time"

	"github.com/fjod/storefront/internal/events"
	"github.com/google/uuid"
)

// Recorder stores a receipt for every order:completed event.
type Recorder struct {
	repo    RepoInterface
	timeout time.Duration
}

func NewRecorder(repo RepoInterface) *Recorder {
	return &Recorder{repo: repo, timeout: 5 * time.Second}
}

// Attach subscribes the recorder to bus and returns the unsubscribe func.
func (r *Recorder) Attach(bus *events.Bus) func() {
	return bus.Subscribe(events.TopicOrderCompleted, r.Handle)
}

func (r *Recorder) Handle(e events.Event) {
	p, ok := e.Payload.(events.OrderCompletedEvent)
	if !ok {
		log.Printf("unexpected payload for %s: %T", e.Topic, e.Payload)
		return
	}

	id := p.Confirmation.ID
	if id == "" {
		id = uuid.NewString()
	}
	draft := p.Snapshot.Draft
	rec := &Receipt{
		ID:         id,
		BasketID:   e.BasketID,
		Total:      p.Confirmation.Total.Float64(),
		LocalTotal: p.Snapshot.Total,
		Items:      p.Snapshot.Items,
		CreatedAt:  e.At,
	}
	if draft.Payment != nil {
		rec.Payment = *draft.Payment
	}
	if draft.Address != nil {
		rec.Address = *draft.Address
	}
	if draft.Email != nil {
		rec.Email = *draft.Email
	}
	if draft.Phone != nil {
		rec.Phone = *draft.Phone
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	if err := r.repo.Save(ctx, rec); err != nil {
		log.Printf("failed to save receipt %s for basket %s: %v", rec.ID, rec.BasketID, err)
	}
}
