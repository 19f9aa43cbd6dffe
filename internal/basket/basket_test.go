package basket

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fjod/storefront/internal/domain"
	"github.com/fjod/storefront/internal/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockSubmitter struct {
	m            sync.Mutex
	confirmation *domain.Confirmation
	err          error
	delay        time.Duration
	calls        atomic.Int32
	last         domain.OrderRequest
}

func (s *mockSubmitter) Submit(_ context.Context, req domain.OrderRequest) (*domain.Confirmation, error) {
	s.calls.Add(1)
	s.m.Lock()
	s.last = req
	s.m.Unlock()
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.confirmation, nil
}

func (s *mockSubmitter) lastRequest() domain.OrderRequest {
	s.m.Lock()
	defer s.m.Unlock()
	return s.last
}

type recorder struct {
	m      sync.Mutex
	events []events.Event
}

func (r *recorder) Publish(e events.Event) {
	r.m.Lock()
	defer r.m.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) topics() []string {
	r.m.Lock()
	defer r.m.Unlock()
	topics := make([]string, 0, len(r.events))
	for _, e := range r.events {
		topics = append(topics, e.Topic)
	}
	return topics
}

func (r *recorder) count(topic string) int {
	n := 0
	for _, t := range r.topics() {
		if t == topic {
			n++
		}
	}
	return n
}

func item(id string, price *float64) domain.Item {
	return domain.Item{ID: id, Title: "item " + id, Price: price}
}

func fillDraft(b *Basket) {
	b.PopulateOrderData(domain.DeliveryDetails("Main st. 1", domain.PaymentOnline))
	b.PopulateOrderData(domain.ContactDetails("a@b.c", "+70000000000"))
}

func TestAddItem_DuplicateIsIgnored(t *testing.T) {
	rec := &recorder{}
	b := New("b1", rec, nil)

	assert.True(t, b.AddItem(item("a", domain.Price(100))))
	assert.False(t, b.AddItem(item("a", domain.Price(999))))

	assert.Equal(t, 1, b.Len())
	assert.Equal(t, 100.0, b.Total(), "first entry is kept")
	assert.Equal(t, 1, rec.count(events.TopicBasketChanged), "no-op add does not notify")
}

func TestAddRemove_NeverDuplicates(t *testing.T) {
	b := New("b1", nil, nil)
	ids := []string{"a", "b", "c", "d"}
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 500; i++ {
		id := ids[rng.Intn(len(ids))]
		if rng.Intn(2) == 0 {
			b.AddItem(item(id, domain.Price(1)))
		} else {
			b.RemoveItem(item(id, nil))
		}

		seen := map[string]bool{}
		for _, it := range b.Items() {
			require.False(t, seen[it.ID], "duplicate id %s", it.ID)
			seen[it.ID] = true
		}
	}
}

func TestAddItem_KeepsInsertionOrder(t *testing.T) {
	b := New("b1", nil, nil)
	b.AddItem(item("c", nil))
	b.AddItem(item("a", nil))
	b.AddItem(item("b", nil))

	items := b.Items()
	require.Len(t, items, 3)
	assert.Equal(t, "c", items[0].ID)
	assert.Equal(t, "a", items[1].ID)
	assert.Equal(t, "b", items[2].ID)
}

func TestTotal_IgnoresPricelessItems(t *testing.T) {
	b := New("b1", nil, nil)
	b.AddItem(item("a", domain.Price(100)))
	b.AddItem(item("b", nil))
	b.AddItem(item("c", domain.Price(0)))

	assert.Equal(t, 100.0, b.Total())
	assert.True(t, b.HasPurchasableItems())

	assert.True(t, b.RemoveItem(item("a", nil)))
	assert.Equal(t, 0.0, b.Total())
	assert.Equal(t, 2, b.Len())
	assert.False(t, b.HasPurchasableItems())
}

func TestRemoveItem_AbsentIsNoop(t *testing.T) {
	rec := &recorder{}
	b := New("b1", rec, nil)
	assert.False(t, b.RemoveItem(item("missing", nil)))
	assert.Empty(t, rec.topics())
}

func TestMutations_NotifyAfterChange(t *testing.T) {
	bus := events.NewBus()
	b := New("b1", bus, nil)

	var seen []int
	bus.Subscribe(events.TopicBasketChanged, func(events.Event) {
		// subscriber runs after the lock is released and sees the new state
		seen = append(seen, b.Len())
	})

	b.AddItem(item("a", nil))
	b.AddItem(item("b", nil))
	b.RemoveItem(item("a", nil))
	b.Clear()

	assert.Equal(t, []int{1, 2, 1, 0}, seen)
}

func TestPopulateOrderData_DoesNotNotify(t *testing.T) {
	rec := &recorder{}
	b := New("b1", rec, nil)
	b.PopulateOrderData(domain.DeliveryDetails("X", domain.PaymentCash))
	assert.Empty(t, rec.topics())
}

func TestFirstStepValid_AfterAddressThenPayment(t *testing.T) {
	b := New("b1", nil, nil)
	address := "X"
	b.PopulateOrderData(domain.OrderDraft{Address: &address})
	assert.False(t, b.IsFirstStepValid())

	payment := domain.PaymentOnline
	b.PopulateOrderData(domain.OrderDraft{Payment: &payment})
	assert.True(t, b.IsFirstStepValid())
	assert.False(t, b.IsValid(), "contacts are still missing")
}

func TestClear_ResetsDraft(t *testing.T) {
	b := New("b1", nil, nil)
	b.AddItem(item("a", domain.Price(1)))
	fillDraft(b)
	require.True(t, b.IsValid())

	b.Clear()

	assert.Equal(t, 0, b.Len())
	assert.True(t, b.OrderDraft().Empty())
	assert.False(t, b.IsFirstStepValid())
}

func TestSave_Success(t *testing.T) {
	rec := &recorder{}
	submitter := &mockSubmitter{confirmation: &domain.Confirmation{ID: "order-1", Total: 500}}
	b := New("b1", rec, submitter)
	b.AddItem(item("a", domain.Price(100)))
	b.AddItem(item("b", nil))
	fillDraft(b)

	confirmation, err := b.Save(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 500.0, confirmation.Total.Float64(), "confirmed total wins over local sum")

	assert.Equal(t, 0, b.Len())
	assert.True(t, b.OrderDraft().Empty())

	req := submitter.lastRequest()
	assert.Equal(t, []string{"a"}, req.Items)
	assert.Equal(t, 100.0, req.Total)

	topics := rec.topics()
	require.NotEmpty(t, topics)
	assert.Equal(t, events.TopicOrderCompleted, topics[len(topics)-1])
	assert.Equal(t, events.TopicBasketChanged, topics[len(topics)-2])
}

func TestSave_FailureLeavesBasket(t *testing.T) {
	rec := &recorder{}
	submitter := &mockSubmitter{err: errors.New("upstream unavailable")}
	b := New("b1", rec, submitter)
	b.AddItem(item("a", domain.Price(100)))
	fillDraft(b)
	before := b.Snapshot()

	confirmation, err := b.Save(context.Background())
	require.ErrorIs(t, err, ErrSubmissionFailed)
	assert.ErrorContains(t, err, "upstream unavailable")
	assert.Nil(t, confirmation)

	assert.Equal(t, before, b.Snapshot())
	assert.Equal(t, 1, rec.count(events.TopicOrderFailed))
}

func TestSave_RejectsEmptyOrIncomplete(t *testing.T) {
	rec := &recorder{}
	submitter := &mockSubmitter{confirmation: &domain.Confirmation{}}
	b := New("b1", rec, submitter)
	b.AddItem(item("free", nil))
	fillDraft(b)

	_, err := b.Save(context.Background())
	assert.ErrorIs(t, err, ErrNothingToSubmit)

	b.AddItem(item("a", domain.Price(10)))
	b.PopulateOrderData(domain.ContactDetails("", ""))
	_, err = b.Save(context.Background())
	assert.ErrorIs(t, err, ErrIncompleteOrder)

	assert.Equal(t, int32(0), submitter.calls.Load())
	assert.Equal(t, 2, rec.count(events.TopicOrderFailed))
}

type blockingSubmitter struct {
	started chan struct{}
	release chan struct{}
	ctxErr  error
}

func (s *blockingSubmitter) Submit(ctx context.Context, req domain.OrderRequest) (*domain.Confirmation, error) {
	close(s.started)
	<-s.release
	if s.ctxErr = ctx.Err(); s.ctxErr != nil {
		return nil, s.ctxErr
	}
	return &domain.Confirmation{ID: "order-1", Total: domain.Amount(req.Total)}, nil
}

func TestSave_NotAbortedByCallerCancellation(t *testing.T) {
	submitter := &blockingSubmitter{started: make(chan struct{}), release: make(chan struct{})}
	b := New("b1", nil, submitter)
	b.AddItem(item("a", domain.Price(100)))
	fillDraft(b)

	ctx, cancel := context.WithCancel(context.Background())
	type result struct {
		confirmation *domain.Confirmation
		err          error
	}
	done := make(chan result, 1)
	go func() {
		c, err := b.Save(ctx)
		done <- result{c, err}
	}()

	<-submitter.started
	cancel() // the shopper closed the tab while the order was in flight
	close(submitter.release)

	res := <-done
	require.NoError(t, res.err)
	assert.NoError(t, submitter.ctxErr)
	assert.Equal(t, "order-1", res.confirmation.ID)
	assert.Equal(t, 0, b.Len(), "accepted order clears the basket")
}

func TestSave_ConcurrentCallsShareSubmission(t *testing.T) {
	submitter := &mockSubmitter{
		confirmation: &domain.Confirmation{ID: "order-1", Total: 100},
		delay:        50 * time.Millisecond,
	}
	b := New("b1", nil, submitter)
	b.AddItem(item("a", domain.Price(100)))
	fillDraft(b)

	var wg sync.WaitGroup
	results := make([]*domain.Confirmation, 5)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			c, err := b.Save(context.Background())
			if err == nil {
				results[i] = c
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), submitter.calls.Load())
	for _, c := range results {
		if c != nil {
			assert.Equal(t, "order-1", c.ID)
		}
	}
}

func TestRequestSave_PublishesOutcome(t *testing.T) {
	bus := events.NewBus()
	submitter := &mockSubmitter{confirmation: &domain.Confirmation{ID: "order-1", Total: 500}}
	b := New("b1", bus, submitter)
	b.AddItem(item("a", domain.Price(100)))
	fillDraft(b)

	done := make(chan events.OrderCompletedEvent, 1)
	bus.Subscribe(events.TopicOrderCompleted, func(e events.Event) {
		done <- e.Payload.(events.OrderCompletedEvent)
	})

	ctx, cancel := context.WithCancel(context.Background())
	b.RequestSave(ctx)
	cancel() // the submission outlives the caller's context

	select {
	case e := <-done:
		assert.Equal(t, "order-1", e.Confirmation.ID)
		assert.Equal(t, 100.0, e.Snapshot.Total)
	case <-time.After(time.Second):
		t.Fatal("order was not completed")
	}
	assert.Equal(t, 0, b.Len())
}

func TestRequestSave_ReportsUnorderableBasket(t *testing.T) {
	bus := events.NewBus()
	submitter := &mockSubmitter{confirmation: &domain.Confirmation{}}
	b := New("b1", bus, submitter)
	b.AddItem(item("free", nil))
	fillDraft(b)

	failed := make(chan events.OrderFailedEvent, 1)
	bus.Subscribe(events.TopicOrderFailed, func(e events.Event) {
		failed <- e.Payload.(events.OrderFailedEvent)
	})

	b.RequestSave(context.Background())

	select {
	case e := <-failed:
		assert.Equal(t, ErrNothingToSubmit.Error(), e.Error)
	case <-time.After(time.Second):
		t.Fatal("failure was not published")
	}
	assert.Equal(t, int32(0), submitter.calls.Load())
	assert.Equal(t, 1, b.Len())
}

func TestListen_HandlesInboundTopics(t *testing.T) {
	bus := events.NewBus()
	b := New("b1", bus, nil)
	detach := b.Listen(bus)

	bus.Publish(events.Event{Topic: events.TopicItemAdded, BasketID: "b1", Payload: events.ItemEvent{Item: item("a", domain.Price(5))}})
	bus.Publish(events.Event{Topic: events.TopicItemAdded, BasketID: "other", Payload: events.ItemEvent{Item: item("x", nil)}})
	bus.Publish(events.Event{Topic: events.TopicPaymentCompleted, BasketID: "b1", Payload: events.PaymentEvent{Payment: domain.PaymentCash, Address: "Y"}})

	assert.True(t, b.Contains("a"))
	assert.False(t, b.Contains("x"))
	assert.True(t, b.IsFirstStepValid())

	bus.Publish(events.Event{Topic: events.TopicItemRemoved, BasketID: "b1", Payload: events.ItemEvent{Item: item("a", nil)}})
	assert.False(t, b.Contains("a"))

	detach()
	bus.Publish(events.Event{Topic: events.TopicItemAdded, BasketID: "b1", Payload: events.ItemEvent{Item: item("z", nil)}})
	assert.False(t, b.Contains("z"))
}

func TestRestore_DoesNotNotify(t *testing.T) {
	rec := &recorder{}
	b := New("b1", rec, nil)
	b.Restore([]domain.Item{item("a", domain.Price(1)), item("a", domain.Price(2))}, domain.DeliveryDetails("X", domain.PaymentCash))

	assert.Equal(t, 1, b.Len())
	assert.True(t, b.IsFirstStepValid())
	assert.Empty(t, rec.topics())
}
