package calls

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"sabcare_backend/internal/calls/domain"
	"sabcare_backend/internal/calls/execution"
	"sabcare_backend/internal/calls/repository"
	"sabcare_backend/internal/voice"
	"sabcare_backend/platform/apperr"
	"sabcare_backend/platform/events"
	"sabcare_backend/platform/logger"
)

// memStore backs both the dispatcher's due query and the engine's event
// store, with compare-and-set semantics matching the real repository.
type memStore struct {
	mu     sync.Mutex
	events map[uuid.UUID]*domain.CallEvent
}

func newMemStore(events ...domain.CallEvent) *memStore {
	s := &memStore{events: make(map[uuid.UUID]*domain.CallEvent)}
	for i := range events {
		e := events[i]
		s.events[e.ID] = &e
	}
	return s
}

func (s *memStore) QueryDue(_ context.Context, now time.Time, limit int) ([]domain.CallEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var due []domain.CallEvent
	for _, e := range s.events {
		if e.Status == domain.StatusScheduled && !e.ScheduledTime.After(now) {
			due = append(due, *e)
			if len(due) == limit {
				break
			}
		}
	}
	return due, nil
}

func (s *memStore) GetByID(_ context.Context, id uuid.UUID) (domain.CallEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.events[id]; ok {
		return *e, nil
	}
	return domain.CallEvent{}, apperr.NotFound("call event not found")
}

func (s *memStore) Transition(_ context.Context, params repository.TransitionParams) error {
	if !domain.CanTransition(params.From, params.To) {
		return fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, params.From, params.To)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[params.ID]
	if !ok {
		return apperr.NotFound("call event not found")
	}
	if e.Status != params.From {
		return fmt.Errorf("%w: expected %s, found %s", domain.ErrTransitionConflict, params.From, e.Status)
	}
	e.Status = params.To
	return nil
}

func (s *memStore) SetProviderRef(_ context.Context, id uuid.UUID, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.events[id]; ok {
		e.ProviderCallRef = &ref
	}
	return nil
}

func (s *memStore) SetMessageText(_ context.Context, id uuid.UUID, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.events[id]; ok {
		e.MessageText = text
	}
	return nil
}

type countingProvider struct {
	mu    sync.Mutex
	calls map[string]int
}

func (p *countingProvider) PlaceCall(_ context.Context, req voice.CallRequest) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.calls == nil {
		p.calls = make(map[string]int)
	}
	p.calls[req.EventID]++
	return "CA-" + req.EventID[:8], nil
}

func (p *countingProvider) total() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, c := range p.calls {
		n += c
	}
	return n
}

type staticPatients struct{}

func (staticPatients) GetByID(_ context.Context, id uuid.UUID) (execution.Patient, error) {
	return execution.Patient{ID: id, Name: "Amina", PhoneNumber: "+15551234567"}, nil
}

func dueEvent(minutesAgo int) domain.CallEvent {
	return domain.CallEvent{
		ID:            uuid.New(),
		PatientID:     uuid.New(),
		CallType:      domain.CallTypeWeeklyCheckin,
		ScheduledTime: time.Now().Add(-time.Duration(minutesAgo) * time.Minute),
		MessageText:   "hello",
		Status:        domain.StatusScheduled,
	}
}

func testDispatcher(store *memStore, provider voice.Provider, concurrency int) *Dispatcher {
	log := logger.New("test")
	engine := execution.New(store, staticPatients{}, nil, provider, nil,
		events.NewInMemoryBus(log), nil, execution.Config{
			ProviderTimeout: time.Second,
			MaxRetries:      1,
			RetryBackoff:    time.Millisecond,
		}, log)

	return NewDispatcher(store, engine, DispatcherConfig{
		Interval:    10 * time.Millisecond,
		BatchSize:   50,
		Concurrency: concurrency,
		CallTimeout: time.Second,
	}, log)
}

func TestTickExecutesAllDueEvents(t *testing.T) {
	store := newMemStore(dueEvent(5), dueEvent(3), dueEvent(1))
	provider := &countingProvider{}

	testDispatcher(store, provider, 4).Tick(context.Background())

	if provider.total() != 3 {
		t.Errorf("provider placed %d calls, want 3", provider.total())
	}
	for id, e := range store.events {
		if e.Status != domain.StatusInProgress {
			t.Errorf("event %s status = %s, want in_progress", id, e.Status)
		}
	}
}

func TestTickSkipsFutureAndNonScheduled(t *testing.T) {
	future := dueEvent(0)
	future.ScheduledTime = time.Now().Add(time.Hour)
	done := dueEvent(5)
	done.Status = domain.StatusCompleted

	store := newMemStore(future, done)
	provider := &countingProvider{}

	testDispatcher(store, provider, 4).Tick(context.Background())

	if provider.total() != 0 {
		t.Errorf("provider placed %d calls, want 0", provider.total())
	}
}

func TestConcurrentTicksPlaceEachCallOnce(t *testing.T) {
	events := make([]domain.CallEvent, 10)
	for i := range events {
		events[i] = dueEvent(i + 1)
	}
	store := newMemStore(events...)
	provider := &countingProvider{}
	dispatcher := testDispatcher(store, provider, 4)

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			dispatcher.Tick(context.Background())
		}()
	}
	wg.Wait()

	if provider.total() != len(events) {
		t.Errorf("provider placed %d calls, want exactly %d", provider.total(), len(events))
	}
	for id, count := range provider.calls {
		if count != 1 {
			t.Errorf("event %s placed %d times, want 1", id, count)
		}
	}
}

func TestRunStopsOnContextCancel(t *testing.T) {
	store := newMemStore()
	dispatcher := testDispatcher(store, &countingProvider{}, 1)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		dispatcher.Run(ctx)
		close(done)
	}()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("dispatcher did not stop after context cancellation")
	}
}
