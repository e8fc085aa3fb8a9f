package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"sabcare_backend/internal/calls/domain"
	"sabcare_backend/internal/calls/repository"
	"sabcare_backend/internal/calls/schedule"
	"sabcare_backend/internal/calls/transport"
	"sabcare_backend/platform/apperr"
	"sabcare_backend/platform/logger"
)

type fakeRepo struct {
	events map[uuid.UUID]*domain.CallEvent
}

func newFakeRepo(evs ...*domain.CallEvent) *fakeRepo {
	r := &fakeRepo{events: make(map[uuid.UUID]*domain.CallEvent)}
	for _, ev := range evs {
		r.events[ev.ID] = ev
	}
	return r
}

func (r *fakeRepo) GetByID(_ context.Context, id uuid.UUID) (domain.CallEvent, error) {
	if ev, ok := r.events[id]; ok {
		return *ev, nil
	}
	return domain.CallEvent{}, apperr.NotFound("call event not found")
}

func (r *fakeRepo) GetByProviderRef(_ context.Context, _ string) (domain.CallEvent, error) {
	return domain.CallEvent{}, apperr.NotFound("call event not found")
}

func (r *fakeRepo) QueryDue(_ context.Context, _ time.Time, _ int) ([]domain.CallEvent, error) {
	return nil, nil
}

func (r *fakeRepo) ListByPatient(_ context.Context, patientID uuid.UUID) ([]domain.CallEvent, error) {
	var out []domain.CallEvent
	for _, ev := range r.events {
		if ev.PatientID == patientID {
			out = append(out, *ev)
		}
	}
	return out, nil
}

func (r *fakeRepo) ListUpcoming(_ context.Context, _, _ time.Time, _ int) ([]domain.CallEvent, error) {
	return nil, nil
}

func (r *fakeRepo) Insert(_ context.Context, event domain.CallEvent) (domain.CallEvent, error) {
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	r.events[event.ID] = &event
	return event, nil
}

func (r *fakeRepo) InsertBatch(ctx context.Context, events []domain.CallEvent) ([]domain.CallEvent, error) {
	out := make([]domain.CallEvent, 0, len(events))
	for _, ev := range events {
		inserted, err := r.Insert(ctx, ev)
		if err != nil {
			return nil, err
		}
		out = append(out, inserted)
	}
	return out, nil
}

func (r *fakeRepo) UpdateScheduled(_ context.Context, params repository.UpdateScheduledParams) (domain.CallEvent, error) {
	ev, ok := r.events[params.ID]
	if !ok {
		return domain.CallEvent{}, apperr.NotFound("call event not found")
	}
	if ev.Status != domain.StatusScheduled {
		return domain.CallEvent{}, apperr.Conflict(fmt.Sprintf("call event is already %s", ev.Status))
	}
	if params.ScheduledTime != nil {
		ev.ScheduledTime = *params.ScheduledTime
	}
	if params.MessageText != nil {
		ev.MessageText = *params.MessageText
	}
	return *ev, nil
}

func (r *fakeRepo) Transition(_ context.Context, _ repository.TransitionParams) error {
	return nil
}

func (r *fakeRepo) SetProviderRef(_ context.Context, _ uuid.UUID, _ string) error {
	return nil
}

func (r *fakeRepo) SetMessageText(_ context.Context, _ uuid.UUID, _ string) error {
	return nil
}

var _ repository.Repository = (*fakeRepo)(nil)

func newTestService(repo *fakeRepo) *Service {
	return New(repo, nil, nil, schedule.Config{}, logger.New("test"))
}

func scheduledEvent() *domain.CallEvent {
	return &domain.CallEvent{
		ID:            uuid.New(),
		PatientID:     uuid.New(),
		CallType:      domain.CallTypeWeeklyCheckin,
		ScheduledTime: time.Now().Add(24 * time.Hour),
		MessageText:   "original script",
		Status:        domain.StatusScheduled,
	}
}

func TestRescheduleMovesTimeAndScript(t *testing.T) {
	ev := scheduledEvent()
	repo := newFakeRepo(ev)
	svc := newTestService(repo)

	newTime := time.Now().Add(48 * time.Hour).Truncate(time.Second)
	newScript := "updated script"
	resp, err := svc.Reschedule(context.Background(), ev.ID, transport.UpdateCallRequest{
		ScheduledTime: &newTime,
		MessageText:   &newScript,
	})
	if err != nil {
		t.Fatalf("Reschedule() error = %v", err)
	}
	if !resp.ScheduledTime.Equal(newTime) {
		t.Errorf("scheduled time = %v, want %v", resp.ScheduledTime, newTime)
	}
	if repo.events[ev.ID].MessageText != newScript {
		t.Errorf("message text = %q, want %q", repo.events[ev.ID].MessageText, newScript)
	}
}

func TestRescheduleRejectsPastTime(t *testing.T) {
	ev := scheduledEvent()
	svc := newTestService(newFakeRepo(ev))

	past := time.Now().Add(-time.Hour)
	_, err := svc.Reschedule(context.Background(), ev.ID, transport.UpdateCallRequest{ScheduledTime: &past})
	if apperr.GetKind(err) != apperr.KindValidation {
		t.Errorf("Reschedule(past) error = %v, want a validation error", err)
	}
}

func TestRescheduleRejectsEmptyEdit(t *testing.T) {
	ev := scheduledEvent()
	svc := newTestService(newFakeRepo(ev))

	_, err := svc.Reschedule(context.Background(), ev.ID, transport.UpdateCallRequest{})
	if apperr.GetKind(err) != apperr.KindValidation {
		t.Errorf("Reschedule(empty) error = %v, want a validation error", err)
	}
}

func TestRescheduleConflictsOnceClaimed(t *testing.T) {
	ev := scheduledEvent()
	ev.Status = domain.StatusInProgress
	svc := newTestService(newFakeRepo(ev))

	future := time.Now().Add(time.Hour)
	_, err := svc.Reschedule(context.Background(), ev.ID, transport.UpdateCallRequest{ScheduledTime: &future})
	if apperr.GetKind(err) != apperr.KindConflict {
		t.Errorf("Reschedule(claimed) error = %v, want a conflict", err)
	}
}

func TestRequeueRejectsPastTime(t *testing.T) {
	ev := scheduledEvent()
	ev.Status = domain.StatusFailed
	svc := newTestService(newFakeRepo(ev))

	past := time.Now().Add(-time.Minute)
	_, err := svc.Requeue(context.Background(), ev.ID, transport.RequeueRequest{ScheduledTime: &past})
	if apperr.GetKind(err) != apperr.KindValidation {
		t.Errorf("Requeue(past) error = %v, want a validation error", err)
	}
}

func TestRequeueRejectsActiveCall(t *testing.T) {
	ev := scheduledEvent()
	svc := newTestService(newFakeRepo(ev))

	_, err := svc.Requeue(context.Background(), ev.ID, transport.RequeueRequest{})
	if apperr.GetKind(err) != apperr.KindConflict {
		t.Errorf("Requeue(scheduled) error = %v, want a conflict", err)
	}
}

func TestRequeueClonesTerminalCall(t *testing.T) {
	ev := scheduledEvent()
	ev.Status = domain.StatusNoAnswer
	ev.AttemptCount = 1
	repo := newFakeRepo(ev)
	svc := newTestService(repo)

	resp, err := svc.Requeue(context.Background(), ev.ID, transport.RequeueRequest{})
	if err != nil {
		t.Fatalf("Requeue() error = %v", err)
	}
	if resp.ID == ev.ID {
		t.Error("requeue should create a new event, not reuse the original")
	}
	if resp.AttemptCount != 2 {
		t.Errorf("attempt count = %d, want 2", resp.AttemptCount)
	}
	if repo.events[ev.ID].Status != domain.StatusNoAnswer {
		t.Error("original event must stay untouched")
	}
}
