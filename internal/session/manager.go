package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/fjod/storefront/internal/basket"
	"github.com/fjod/storefront/internal/checkout"
	"github.com/fjod/storefront/internal/events"
	"golang.org/x/sync/singleflight"
)

// CleanupInterval is how often idle sessions are dropped from memory.
const CleanupInterval = time.Minute

// Session is one shopper's basket and checkout.
type Session struct {
	ID       string
	Basket   *basket.Basket
	Checkout *checkout.Orchestrator

	detach   func()
	mu       sync.Mutex
	lastSeen time.Time
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastSeen)
}

// Manager keeps live sessions in memory and their state in a Store, so a
// restart or another instance picks the basket up again.
type Manager struct {
	store     Store
	bus       *events.Bus
	submitter basket.Submitter
	idleTTL   time.Duration

	mu       sync.RWMutex
	sessions map[string]*Session
	sfg      singleflight.Group

	stopCleanup chan struct{}
	wg          sync.WaitGroup
}

// NewManager starts the background cleanup; call Close to stop it.
// store may be nil to keep sessions in memory only.
func NewManager(store Store, bus *events.Bus, submitter basket.Submitter, idleTTL time.Duration) *Manager {
	if idleTTL <= 0 {
		idleTTL = 30 * time.Minute
	}
	m := &Manager{
		store:       store,
		bus:         bus,
		submitter:   submitter,
		idleTTL:     idleTTL,
		sessions:    make(map[string]*Session),
		stopCleanup: make(chan struct{}),
	}

	m.wg.Add(1)
	go m.cleanupLoop()

	return m
}

// Get returns the session with id, loading it from the store or creating an
// empty one.
func (m *Manager) Get(ctx context.Context, id string) (*Session, error) {
	m.mu.RLock()
	s, ok := m.sessions[id]
	m.mu.RUnlock()
	if ok {
		s.touch(time.Now())
		return s, nil
	}

	v, err, _ := m.sfg.Do(id, func() (interface{}, error) {
		m.mu.RLock()
		s, ok := m.sessions[id]
		m.mu.RUnlock()
		if ok {
			return s, nil
		}

		state, err := m.load(ctx, id)
		if err != nil {
			return nil, err
		}
		s = m.build(id, state)

		m.mu.Lock()
		m.sessions[id] = s
		m.mu.Unlock()
		return s, nil
	})
	if err != nil {
		return nil, err
	}

	s = v.(*Session)
	s.touch(time.Now())
	return s, nil
}

// Persist writes the session's basket and checkout step to the store.
func (m *Manager) Persist(ctx context.Context, s *Session) error {
	if m.store == nil {
		return nil
	}
	snapshot := s.Basket.Snapshot()
	state := &State{
		Items: snapshot.Items,
		Draft: snapshot.Draft,
		Step:  s.Checkout.State().Step,
	}
	if err := m.store.Save(ctx, s.ID, state); err != nil {
		return fmt.Errorf("persist session %s: %w", s.ID, err)
	}
	return nil
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Close stops the cleanup goroutine and detaches live sessions from the bus.
func (m *Manager) Close() {
	close(m.stopCleanup)
	m.wg.Wait()

	m.mu.Lock()
	defer m.mu.Unlock()
	for id, s := range m.sessions {
		s.detach()
		delete(m.sessions, id)
	}
}

func (m *Manager) load(ctx context.Context, id string) (*State, error) {
	if m.store == nil {
		return &State{}, nil
	}
	state, err := m.store.Load(ctx, id)
	if errors.Is(err, ErrSessionNotFound) {
		return &State{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", id, err)
	}
	return state, nil
}

func (m *Manager) build(id string, state *State) *Session {
	var notifier events.Publisher
	detach := func() {}
	if m.bus != nil {
		notifier = m.bus
	}

	b := basket.New(id, notifier, m.submitter)
	b.Restore(state.Items, state.Draft)
	o := checkout.NewOrchestrator(b, notifier)
	if state.Step != "" {
		o.Resume(state.Step)
	}
	if m.bus != nil {
		detach = b.Listen(m.bus)
	}

	return &Session{
		ID:       id,
		Basket:   b,
		Checkout: o,
		detach:   detach,
		lastSeen: time.Now(),
	}
}

func (m *Manager) cleanupLoop() {
	defer m.wg.Done()

	ticker := time.NewTicker(CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.evictIdle(time.Now())
		case <-m.stopCleanup:
			return
		}
	}
}

// evictIdle drops sessions unused for longer than the idle TTL. Their state
// stays in the store.
func (m *Manager) evictIdle(now time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	evicted := 0
	for id, s := range m.sessions {
		if s.idleSince(now) > m.idleTTL {
			s.detach()
			delete(m.sessions, id)
			evicted++
		}
	}
	if evicted > 0 {
		log.Printf("evicted %d idle sessions", evicted)
	}
	return evicted
}
