package execution

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"sabcare_backend/internal/ai"
	"sabcare_backend/internal/calls/domain"
	"sabcare_backend/internal/calls/repository"
	"sabcare_backend/internal/voice"
	"sabcare_backend/platform/apperr"
	"sabcare_backend/platform/events"
	"sabcare_backend/platform/logger"
)

// fakeStore is an in-memory EventStore with real compare-and-set semantics.
type fakeStore struct {
	mu     sync.Mutex
	events map[uuid.UUID]*domain.CallEvent
}

func newFakeStore(events ...domain.CallEvent) *fakeStore {
	s := &fakeStore{events: make(map[uuid.UUID]*domain.CallEvent)}
	for i := range events {
		e := events[i]
		s.events[e.ID] = &e
	}
	return s
}

func (s *fakeStore) GetByID(_ context.Context, id uuid.UUID) (domain.CallEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.events[id]
	if !ok {
		return domain.CallEvent{}, apperr.NotFound("call event not found")
	}
	return *e, nil
}

func (s *fakeStore) Transition(_ context.Context, params repository.TransitionParams) error {
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
	if params.CompletedAt != nil {
		e.CompletedAt = params.CompletedAt
	}
	if params.FailureReason != nil {
		e.FailureReason = params.FailureReason
	}
	return nil
}

func (s *fakeStore) SetProviderRef(_ context.Context, id uuid.UUID, ref string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.events[id]; ok {
		e.ProviderCallRef = &ref
		return nil
	}
	return apperr.NotFound("call event not found")
}

func (s *fakeStore) SetMessageText(_ context.Context, id uuid.UUID, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.events[id]; ok {
		e.MessageText = text
		return nil
	}
	return apperr.NotFound("call event not found")
}

func (s *fakeStore) status(id uuid.UUID) domain.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.events[id].Status
}

type fakePatients struct {
	patient Patient
}

func (f *fakePatients) GetByID(_ context.Context, _ uuid.UUID) (Patient, error) {
	return f.patient, nil
}

// fakeProvider records calls and returns scripted results in order.
type fakeProvider struct {
	mu      sync.Mutex
	calls   []voice.CallRequest
	results []error
	ref     string
}

func (f *fakeProvider) PlaceCall(_ context.Context, req voice.CallRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req)
	if len(f.results) > 0 {
		err := f.results[0]
		f.results = f.results[1:]
		if err != nil {
			return "", err
		}
	}
	return f.ref, nil
}

func (f *fakeProvider) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeGenerator struct {
	text string
	err  error
}

func (f *fakeGenerator) RenderMessage(_ context.Context, _ ai.MessageRequest) (string, error) {
	return f.text, f.err
}

func (f *fakeGenerator) SummarizeMessage(_ context.Context, _, _ string) (string, error) {
	return "", ai.ErrGenerationUnavailable
}

type fakeAlerter struct {
	mu       sync.Mutex
	subjects []string
}

func (f *fakeAlerter) SendOperatorAlert(_ context.Context, subject, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subjects = append(f.subjects, subject)
	return nil
}

func testEngine(store *fakeStore, provider voice.Provider, generator ai.Generator, alerts Alerter) *Engine {
	log := logger.New("test")
	return New(store, &fakePatients{patient: Patient{
		ID:                  uuid.New(),
		Name:                "Amina",
		PhoneNumber:         "+15551234567",
		GestationalAgeWeeks: 20,
		RiskCategory:        "high",
		RiskFactors:         []string{"preeclampsia"},
	}}, generator, provider, nil, events.NewInMemoryBus(log), alerts, Config{
		ProviderTimeout: time.Second,
		MaxRetries:      3,
		RetryBackoff:    time.Millisecond,
	}, log)
}

func scheduledEvent() domain.CallEvent {
	return domain.CallEvent{
		ID:            uuid.New(),
		PatientID:     uuid.New(),
		CallType:      domain.CallTypeWeeklyCheckin,
		ScheduledTime: time.Now().Add(-time.Minute),
		Status:        domain.StatusScheduled,
	}
}

func TestExecutePlacesCall(t *testing.T) {
	event := scheduledEvent()
	store := newFakeStore(event)
	provider := &fakeProvider{ref: "CA123"}

	result, err := testEngine(store, provider, nil, nil).Execute(context.Background(), event.ID)
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}

	if !result.Placed || result.ProviderRef != "CA123" {
		t.Errorf("result = %+v, want placed with ref CA123", result)
	}
	if got := store.status(event.ID); got != domain.StatusInProgress {
		t.Errorf("event status = %s, want in_progress", got)
	}
	if provider.callCount() != 1 {
		t.Errorf("provider called %d times, want 1", provider.callCount())
	}
}

func TestExecuteConcurrentExactlyOnce(t *testing.T) {
	event := scheduledEvent()
	store := newFakeStore(event)
	provider := &fakeProvider{ref: "CA123"}
	engine := testEngine(store, provider, nil, nil)

	const workers = 8
	results := make(chan Result, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r, err := engine.Execute(context.Background(), event.ID)
			if err != nil {
				t.Errorf("Execute returned error: %v", err)
				return
			}
			results <- r
		}()
	}
	wg.Wait()
	close(results)

	placed, handled := 0, 0
	for r := range results {
		if r.Placed {
			placed++
		}
		if r.AlreadyHandled {
			handled++
		}
	}

	if placed != 1 {
		t.Errorf("placed = %d, want exactly 1", placed)
	}
	if handled != workers-1 {
		t.Errorf("already-handled = %d, want %d", handled, workers-1)
	}
	if provider.callCount() != 1 {
		t.Errorf("provider called %d times, want 1", provider.callCount())
	}
}

func TestExecuteFallsBackWhenGenerationUnavailable(t *testing.T) {
	event := scheduledEvent()
	store := newFakeStore(event)
	provider := &fakeProvider{ref: "CA123"}
	generator := &fakeGenerator{err: ai.ErrGenerationUnavailable}

	result, err := testEngine(store, provider, generator, nil).Execute(context.Background(), event.ID)
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if !result.Placed {
		t.Fatalf("call not placed despite fallback: %+v", result)
	}

	message := provider.calls[0].Message
	if message == "" {
		t.Fatal("fallback message is empty")
	}
	for _, want := range []string{"Amina", "preeclampsia"} {
		if !strings.Contains(message, want) {
			t.Errorf("fallback message missing %q: %s", want, message)
		}
	}
}

func TestExecuteKeepsPreRenderedMessage(t *testing.T) {
	event := scheduledEvent()
	event.MessageText = "pre-rendered reminder"
	store := newFakeStore(event)
	provider := &fakeProvider{ref: "CA123"}
	generator := &fakeGenerator{text: "should not be used"}

	if _, err := testEngine(store, provider, generator, nil).Execute(context.Background(), event.ID); err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}

	if provider.calls[0].Message != "pre-rendered reminder" {
		t.Errorf("message = %q, want the pre-rendered text", provider.calls[0].Message)
	}
}

func TestExecuteRetriesTransientErrors(t *testing.T) {
	event := scheduledEvent()
	store := newFakeStore(event)
	provider := &fakeProvider{
		ref: "CA123",
		results: []error{
			fmt.Errorf("%w: connection reset", voice.ErrTransient),
			fmt.Errorf("%w: connection reset", voice.ErrTransient),
			nil,
		},
	}

	result, err := testEngine(store, provider, nil, nil).Execute(context.Background(), event.ID)
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if !result.Placed {
		t.Fatalf("call not placed after retries: %+v", result)
	}
	if provider.callCount() != 3 {
		t.Errorf("provider called %d times, want 3", provider.callCount())
	}
}

func TestExecuteTransientRetriesExhausted(t *testing.T) {
	event := scheduledEvent()
	store := newFakeStore(event)
	transient := fmt.Errorf("%w: connection reset", voice.ErrTransient)
	provider := &fakeProvider{results: []error{transient, transient, transient}}

	result, err := testEngine(store, provider, nil, nil).Execute(context.Background(), event.ID)
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}

	if result.Placed {
		t.Fatal("call must not be placed after exhausted retries")
	}
	if provider.callCount() != 3 {
		t.Errorf("provider called %d times, want the retry bound 3", provider.callCount())
	}
	if got := store.status(event.ID); got != domain.StatusFailed {
		t.Errorf("event status = %s, want failed", got)
	}
}

func TestExecuteAuthErrorFailsWithoutRetry(t *testing.T) {
	event := scheduledEvent()
	store := newFakeStore(event)
	provider := &fakeProvider{results: []error{fmt.Errorf("%w: bad credentials", voice.ErrAuth)}}
	alerts := &fakeAlerter{}

	result, err := testEngine(store, provider, nil, alerts).Execute(context.Background(), event.ID)
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}

	if result.Placed {
		t.Fatal("call must not be placed on auth error")
	}
	if provider.callCount() != 1 {
		t.Errorf("provider called %d times, auth errors must not be retried", provider.callCount())
	}
	if got := store.status(event.ID); got != domain.StatusFailed {
		t.Errorf("event status = %s, want failed", got)
	}
	if len(alerts.subjects) != 1 {
		t.Errorf("operator alerts sent = %d, want 1", len(alerts.subjects))
	}
}

func TestExecuteUnknownEvent(t *testing.T) {
	store := newFakeStore()
	_, err := testEngine(store, &fakeProvider{}, nil, nil).Execute(context.Background(), uuid.New())
	if apperr.GetKind(err) != apperr.KindNotFound {
		t.Errorf("got %v, want NotFound", err)
	}
}

func TestExecuteTerminalEventNoOps(t *testing.T) {
	event := scheduledEvent()
	event.Status = domain.StatusCompleted
	store := newFakeStore(event)
	provider := &fakeProvider{}

	result, err := testEngine(store, provider, nil, nil).Execute(context.Background(), event.ID)
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if !result.AlreadyHandled {
		t.Errorf("result = %+v, want AlreadyHandled", result)
	}
	if provider.callCount() != 0 {
		t.Error("provider must not be called for a terminal event")
	}
}

func TestExecuteRoutesThroughAgentWhenEnabled(t *testing.T) {
	event := scheduledEvent()
	store := newFakeStore(event)
	scripted := &fakeProvider{ref: "CA-scripted"}
	agent := &fakeProvider{ref: "CA-agent"}

	log := logger.New("test")
	engine := New(store, &fakePatients{patient: Patient{Name: "Amina", PhoneNumber: "+15551234567"}},
		nil, scripted, agent, events.NewInMemoryBus(log), nil, Config{
			ProviderTimeout: time.Second,
			MaxRetries:      1,
			RetryBackoff:    time.Millisecond,
			UseVoiceAgent:   func() bool { return true },
		}, log)

	result, err := engine.Execute(context.Background(), event.ID)
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if result.ProviderRef != "CA-agent" {
		t.Errorf("provider ref = %s, want the agent's", result.ProviderRef)
	}
	if scripted.callCount() != 0 || agent.callCount() != 1 {
		t.Errorf("scripted=%d agent=%d calls, want 0 and 1", scripted.callCount(), agent.callCount())
	}
}
