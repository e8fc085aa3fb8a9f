package webhook

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"

	"sabcare_backend/internal/calls/domain"
	"sabcare_backend/internal/calls/repository"
	"sabcare_backend/internal/events"
	"sabcare_backend/platform/apperr"
	"sabcare_backend/platform/logger"
)

type fakeEventStore struct {
	mu     sync.Mutex
	events map[uuid.UUID]*domain.CallEvent
}

func newFakeEventStore(evs ...*domain.CallEvent) *fakeEventStore {
	s := &fakeEventStore{events: make(map[uuid.UUID]*domain.CallEvent)}
	for _, ev := range evs {
		s.events[ev.ID] = ev
	}
	return s
}

func (s *fakeEventStore) GetByID(_ context.Context, id uuid.UUID) (domain.CallEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ev, ok := s.events[id]
	if !ok {
		return domain.CallEvent{}, apperr.NotFound("call event not found")
	}
	return *ev, nil
}

func (s *fakeEventStore) GetByProviderRef(_ context.Context, ref string) (domain.CallEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ev := range s.events {
		if ev.ProviderCallRef != nil && *ev.ProviderCallRef == ref {
			return *ev, nil
		}
	}
	return domain.CallEvent{}, apperr.NotFound("call event not found")
}

func (s *fakeEventStore) Transition(_ context.Context, params repository.TransitionParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !domain.CanTransition(params.From, params.To) {
		return fmt.Errorf("transition %s to %s: %w", params.From, params.To, domain.ErrInvalidTransition)
	}
	ev, ok := s.events[params.ID]
	if !ok {
		return apperr.NotFound("call event not found")
	}
	if ev.Status != params.From {
		return fmt.Errorf("call event %s is %s, not %s: %w", params.ID, ev.Status, params.From, domain.ErrTransitionConflict)
	}
	ev.Status = params.To
	if params.CompletedAt != nil {
		ev.CompletedAt = params.CompletedAt
	}
	if params.FailureReason != nil {
		ev.FailureReason = params.FailureReason
	}
	return nil
}

type recordingBus struct {
	mu        sync.Mutex
	published []events.Event
}

func (b *recordingBus) Publish(_ context.Context, event events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.published = append(b.published, event)
}

func (b *recordingBus) PublishSync(ctx context.Context, event events.Event) error {
	b.Publish(ctx, event)
	return nil
}

func (b *recordingBus) Subscribe(string, events.Handler) {}

func (b *recordingBus) names() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	names := make([]string, 0, len(b.published))
	for _, ev := range b.published {
		names = append(names, ev.EventName())
	}
	return names
}

type fakeIntake struct {
	mu       sync.Mutex
	received []RecordingInput
	err      error
}

func (f *fakeIntake) ReceiveRecording(_ context.Context, in RecordingInput) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.received = append(f.received, in)
	return nil
}

func inProgressEvent(ref string) *domain.CallEvent {
	return &domain.CallEvent{
		ID:              uuid.New(),
		PatientID:       uuid.New(),
		CallType:        domain.CallTypeWeeklyCheckin,
		Status:          domain.StatusInProgress,
		ProviderCallRef: &ref,
	}
}

type fakeCallerDirectory struct {
	callers map[string]CallerInfo
}

func (f *fakeCallerDirectory) ResolveCaller(_ context.Context, phone string) (CallerInfo, error) {
	if caller, ok := f.callers[phone]; ok {
		return caller, nil
	}
	return CallerInfo{}, apperr.NotFound("patient not found")
}

func newTestService(store *fakeEventStore) (*Service, *recordingBus, *fakeIntake) {
	bus := &recordingBus{}
	intake := &fakeIntake{}
	return New(store, intake, nil, bus, logger.New("test")), bus, intake
}

func TestReconcileStatusCompletesCall(t *testing.T) {
	ev := inProgressEvent("CA100")
	store := newFakeEventStore(ev)
	svc, bus, _ := newTestService(store)

	svc.ReconcileStatus(context.Background(), "CA100", "completed")

	got, err := store.GetByID(context.Background(), ev.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != domain.StatusCompleted {
		t.Fatalf("status = %s, want %s", got.Status, domain.StatusCompleted)
	}
	if got.CompletedAt == nil {
		t.Error("CompletedAt not set on completed event")
	}
	names := bus.names()
	if len(names) != 1 || names[0] != "calls.completed" {
		t.Errorf("published = %v, want [calls.completed]", names)
	}
}

func TestReconcileStatusRecordsFailureReason(t *testing.T) {
	ev := inProgressEvent("CA101")
	store := newFakeEventStore(ev)
	svc, bus, _ := newTestService(store)

	svc.ReconcileStatus(context.Background(), "CA101", "canceled")

	got, _ := store.GetByID(context.Background(), ev.ID)
	if got.Status != domain.StatusFailed {
		t.Fatalf("status = %s, want %s", got.Status, domain.StatusFailed)
	}
	if got.FailureReason == nil || *got.FailureReason != "provider reported canceled" {
		t.Errorf("FailureReason = %v, want provider reported canceled", got.FailureReason)
	}
	names := bus.names()
	if len(names) != 1 || names[0] != "calls.failed" {
		t.Errorf("published = %v, want [calls.failed]", names)
	}
}

func TestReconcileStatusReplayIsIdempotent(t *testing.T) {
	ev := inProgressEvent("CA102")
	store := newFakeEventStore(ev)
	svc, bus, _ := newTestService(store)

	svc.ReconcileStatus(context.Background(), "CA102", "completed")
	svc.ReconcileStatus(context.Background(), "CA102", "completed")
	svc.ReconcileStatus(context.Background(), "CA102", "failed")

	got, _ := store.GetByID(context.Background(), ev.ID)
	if got.Status != domain.StatusCompleted {
		t.Fatalf("status = %s, want %s after replays", got.Status, domain.StatusCompleted)
	}
	if got.FailureReason != nil {
		t.Errorf("FailureReason = %q, want nil after dropped failure replay", *got.FailureReason)
	}
	if names := bus.names(); len(names) != 1 {
		t.Errorf("published %d events, want 1: %v", len(names), names)
	}
}

func TestReconcileStatusIgnoresInterimReports(t *testing.T) {
	ev := inProgressEvent("CA103")
	store := newFakeEventStore(ev)
	svc, bus, _ := newTestService(store)

	svc.ReconcileStatus(context.Background(), "CA103", "ringing")
	svc.ReconcileStatus(context.Background(), "CA103", "in-progress")

	got, _ := store.GetByID(context.Background(), ev.ID)
	if got.Status != domain.StatusInProgress {
		t.Fatalf("status = %s, want unchanged %s", got.Status, domain.StatusInProgress)
	}
	if names := bus.names(); len(names) != 0 {
		t.Errorf("published = %v, want none", names)
	}
}

func TestReconcileStatusDropsUnknownReference(t *testing.T) {
	store := newFakeEventStore(inProgressEvent("CA104"))
	svc, bus, _ := newTestService(store)

	svc.ReconcileStatus(context.Background(), "CA999", "completed")

	if names := bus.names(); len(names) != 0 {
		t.Errorf("published = %v, want none for unknown reference", names)
	}
}

func TestRecordKeyPressMovesToCallbackRequested(t *testing.T) {
	ev := inProgressEvent("CA105")
	store := newFakeEventStore(ev)
	svc, bus, _ := newTestService(store)

	svc.RecordKeyPress(context.Background(), ev.ID)

	got, _ := store.GetByID(context.Background(), ev.ID)
	if got.Status != domain.StatusCallbackRequested {
		t.Fatalf("status = %s, want %s", got.Status, domain.StatusCallbackRequested)
	}
	names := bus.names()
	if len(names) != 1 || names[0] != "calls.callback_requested" {
		t.Errorf("published = %v, want [calls.callback_requested]", names)
	}
}

func TestRecordKeyPressOnTerminalEventIsDropped(t *testing.T) {
	ev := inProgressEvent("CA106")
	ev.Status = domain.StatusCompleted
	store := newFakeEventStore(ev)
	svc, bus, _ := newTestService(store)

	svc.RecordKeyPress(context.Background(), ev.ID)

	got, _ := store.GetByID(context.Background(), ev.ID)
	if got.Status != domain.StatusCompleted {
		t.Fatalf("status = %s, want unchanged %s", got.Status, domain.StatusCompleted)
	}
	if names := bus.names(); len(names) != 0 {
		t.Errorf("published = %v, want none", names)
	}
}

func TestReceiveRecordingForwardsToIntake(t *testing.T) {
	store := newFakeEventStore()
	svc, _, intake := newTestService(store)

	eventID := uuid.New()
	in := RecordingInput{
		CallerNumber: "+31612345678",
		RecordingURL: "https://api.twilio.com/recordings/RE1",
		CallSID:      "CA107",
		CallEventID:  &eventID,
	}
	if err := svc.ReceiveRecording(context.Background(), in); err != nil {
		t.Fatalf("ReceiveRecording: %v", err)
	}
	if len(intake.received) != 1 || intake.received[0].RecordingURL != in.RecordingURL {
		t.Fatalf("intake received = %+v, want the forwarded input", intake.received)
	}
}

func TestIdentifyCallerKnownPatient(t *testing.T) {
	directory := &fakeCallerDirectory{callers: map[string]CallerInfo{
		"+31612345678": {ID: uuid.New(), Name: "Amara Osei"},
	}}
	svc := New(newFakeEventStore(), &fakeIntake{}, directory, &recordingBus{}, logger.New("test"))

	caller, ok := svc.IdentifyCaller(context.Background(), "+31612345678")
	if !ok {
		t.Fatal("IdentifyCaller() should resolve a registered number")
	}
	if caller.Name != "Amara Osei" {
		t.Errorf("caller name = %q, want %q", caller.Name, "Amara Osei")
	}
}

func TestIdentifyCallerUnknownNumber(t *testing.T) {
	directory := &fakeCallerDirectory{callers: map[string]CallerInfo{}}
	svc := New(newFakeEventStore(), &fakeIntake{}, directory, &recordingBus{}, logger.New("test"))

	if _, ok := svc.IdentifyCaller(context.Background(), "+31600000000"); ok {
		t.Error("IdentifyCaller() should not resolve an unregistered number")
	}
}

func TestIdentifyCallerWithoutDirectory(t *testing.T) {
	svc, _, _ := newTestService(newFakeEventStore())

	if _, ok := svc.IdentifyCaller(context.Background(), "+31612345678"); ok {
		t.Error("IdentifyCaller() should report unknown when no directory is wired")
	}
}
