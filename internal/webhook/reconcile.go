package webhook

import "sabcare_backend/internal/calls/domain"

// Decision is the outcome of reconciling one provider status report.
type Decision struct {
	// Apply is false when the report should be ignored: an interim
	// status, an unknown value, or a replay against a terminal event.
	Apply bool
	// From and To describe the transition to attempt when Apply is true.
	From domain.Status
	To   domain.Status
}

// providerStatusMap translates Twilio call statuses into terminal event
// statuses. Interim statuses are absent on purpose; the event stays
// in_progress until the provider reports a final outcome.
var providerStatusMap = map[string]domain.Status{
	"completed": domain.StatusCompleted,
	"busy":      domain.StatusNoAnswer,
	"no-answer": domain.StatusNoAnswer,
	"failed":    domain.StatusFailed,
	"canceled":  domain.StatusFailed,
}

// DecideStatus reconciles a provider-reported call status against the
// event's current state. Replays and out-of-order interim reports resolve
// to Apply=false, which makes webhook handling idempotent.
func DecideStatus(current domain.Status, providerStatus string) Decision {
	target, known := providerStatusMap[providerStatus]
	if !known {
		return Decision{}
	}

	// Terminal events are immutable; a late or duplicate report is a no-op.
	if domain.IsTerminal(current) {
		return Decision{}
	}

	if !domain.CanTransition(current, target) {
		return Decision{}
	}

	return Decision{Apply: true, From: current, To: target}
}
