package webhook

import (
	"testing"

	"sabcare_backend/internal/calls/domain"
)

func TestDecideStatus(t *testing.T) {
	tests := []struct {
		name           string
		current        domain.Status
		providerStatus string
		wantApply      bool
		wantTo         domain.Status
	}{
		{
			name:           "completed from in progress",
			current:        domain.StatusInProgress,
			providerStatus: "completed",
			wantApply:      true,
			wantTo:         domain.StatusCompleted,
		},
		{
			name:           "busy maps to no answer",
			current:        domain.StatusInProgress,
			providerStatus: "busy",
			wantApply:      true,
			wantTo:         domain.StatusNoAnswer,
		},
		{
			name:           "no-answer maps to no answer",
			current:        domain.StatusInProgress,
			providerStatus: "no-answer",
			wantApply:      true,
			wantTo:         domain.StatusNoAnswer,
		},
		{
			name:           "failed maps to failed",
			current:        domain.StatusInProgress,
			providerStatus: "failed",
			wantApply:      true,
			wantTo:         domain.StatusFailed,
		},
		{
			name:           "canceled maps to failed",
			current:        domain.StatusInProgress,
			providerStatus: "canceled",
			wantApply:      true,
			wantTo:         domain.StatusFailed,
		},
		{
			name:           "completed after callback request",
			current:        domain.StatusCallbackRequested,
			providerStatus: "completed",
			wantApply:      true,
			wantTo:         domain.StatusCompleted,
		},
		{
			name:           "interim ringing is ignored",
			current:        domain.StatusInProgress,
			providerStatus: "ringing",
		},
		{
			name:           "interim queued is ignored",
			current:        domain.StatusInProgress,
			providerStatus: "queued",
		},
		{
			name:           "unknown status is ignored",
			current:        domain.StatusInProgress,
			providerStatus: "teleported",
		},
		{
			name:           "replay against completed event",
			current:        domain.StatusCompleted,
			providerStatus: "completed",
		},
		{
			name:           "late failure report against completed event",
			current:        domain.StatusCompleted,
			providerStatus: "failed",
		},
		{
			name:           "replay against no answer event",
			current:        domain.StatusNoAnswer,
			providerStatus: "busy",
		},
		{
			name:           "completed is not reachable from scheduled",
			current:        domain.StatusScheduled,
			providerStatus: "completed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DecideStatus(tt.current, tt.providerStatus)
			if got.Apply != tt.wantApply {
				t.Fatalf("Apply = %v, want %v", got.Apply, tt.wantApply)
			}
			if !tt.wantApply {
				return
			}
			if got.From != tt.current {
				t.Errorf("From = %s, want %s", got.From, tt.current)
			}
			if got.To != tt.wantTo {
				t.Errorf("To = %s, want %s", got.To, tt.wantTo)
			}
		})
	}
}
