package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		name string
		from Status
		to   Status
		want bool
	}{
		{"scheduled to in_progress", StatusScheduled, StatusInProgress, true},
		{"scheduled to failed", StatusScheduled, StatusFailed, true},
		{"scheduled to completed skips placement", StatusScheduled, StatusCompleted, false},
		{"in_progress to completed", StatusInProgress, StatusCompleted, true},
		{"in_progress to no_answer", StatusInProgress, StatusNoAnswer, true},
		{"in_progress to failed", StatusInProgress, StatusFailed, true},
		{"in_progress to callback_requested", StatusInProgress, StatusCallbackRequested, true},
		{"in_progress back to scheduled", StatusInProgress, StatusScheduled, false},
		{"callback_requested to completed", StatusCallbackRequested, StatusCompleted, true},
		{"callback_requested to no_answer", StatusCallbackRequested, StatusNoAnswer, true},
		{"completed is terminal", StatusCompleted, StatusInProgress, false},
		{"failed is terminal", StatusFailed, StatusScheduled, false},
		{"no_answer is terminal", StatusNoAnswer, StatusInProgress, false},
		{"unknown source status", Status("bogus"), StatusCompleted, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := CanTransition(tc.from, tc.to); got != tc.want {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
			}
		})
	}
}

func TestIsTerminal(t *testing.T) {
	terminal := []Status{StatusCompleted, StatusNoAnswer, StatusFailed}
	for _, s := range terminal {
		if !IsTerminal(s) {
			t.Errorf("IsTerminal(%s) = false, want true", s)
		}
	}

	active := []Status{StatusScheduled, StatusInProgress, StatusCallbackRequested}
	for _, s := range active {
		if IsTerminal(s) {
			t.Errorf("IsTerminal(%s) = true, want false", s)
		}
	}

	if IsTerminal(Status("bogus")) {
		t.Error("unknown status must not be treated as terminal")
	}
}

func TestRequeue(t *testing.T) {
	original := CallEvent{
		ID:            uuid.New(),
		PatientID:     uuid.New(),
		CallType:      CallTypeWeeklyCheckin,
		ScheduledTime: time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC),
		MessageText:   "hello",
		Status:        StatusNoAnswer,
		AttemptCount:  1,
	}

	retryAt := time.Date(2026, 3, 11, 10, 0, 0, 0, time.UTC)
	clone, err := original.Requeue(retryAt)
	if err != nil {
		t.Fatalf("Requeue returned error: %v", err)
	}

	if clone.Status != StatusScheduled {
		t.Errorf("clone status = %s, want scheduled", clone.Status)
	}
	if clone.AttemptCount != original.AttemptCount+1 {
		t.Errorf("clone attempt count = %d, want %d", clone.AttemptCount, original.AttemptCount+1)
	}
	if !clone.ScheduledTime.Equal(retryAt) {
		t.Errorf("clone scheduled time = %v, want %v", clone.ScheduledTime, retryAt)
	}
	if clone.PatientID != original.PatientID || clone.CallType != original.CallType {
		t.Error("clone must keep patient and call type")
	}
	if clone.ID != uuid.Nil {
		t.Error("clone must not reuse the original event ID")
	}
	if original.Status != StatusNoAnswer {
		t.Error("original event must be unchanged")
	}
}

func TestRequeueRejectsActiveEvent(t *testing.T) {
	for _, s := range []Status{StatusScheduled, StatusInProgress, StatusCallbackRequested} {
		e := CallEvent{Status: s}
		if _, err := e.Requeue(time.Now()); !errors.Is(err, ErrInvalidTransition) {
			t.Errorf("Requeue from %s: got %v, want ErrInvalidTransition", s, err)
		}
	}
}

func TestCallTypeValid(t *testing.T) {
	for _, ct := range []CallType{CallTypeWeeklyCheckin, CallTypeMedicationReminder, CallTypeAppointment, CallTypeHighRiskMonitoring, CallTypeCallback} {
		if !ct.Valid() {
			t.Errorf("CallType %q should be valid", ct)
		}
	}
	if CallType("robocall").Valid() {
		t.Error("unknown call type should be invalid")
	}
}
