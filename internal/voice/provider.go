// Package voice defines the outbound call provider contract and its error
// classification. Concrete providers live in the twilio and elevenlabs
// subpackages.
package voice

import (
	"context"
	"errors"
)

var (
	// ErrAuth indicates the provider rejected our credentials or the
	// account is misconfigured. Not retryable; requires operator action.
	ErrAuth = errors.New("voice provider authentication or configuration error")

	// ErrTransient indicates a temporary failure (network, 5xx, rate
	// limit). Retryable with backoff.
	ErrTransient = errors.New("voice provider transient error")
)

// CallRequest describes one outbound call to place.
type CallRequest struct {
	// To is the patient's E.164 phone number.
	To string
	// Message is the script to speak. Scripted calls embed it in TwiML;
	// agent calls pass it as conversation context.
	Message string
	// CallType tags the call for the agent's opening context.
	CallType string
	// EventID is the call event identifier, echoed in webhook URLs.
	EventID string
}

// Provider places outbound voice calls.
type Provider interface {
	// PlaceCall starts an outbound call and returns the provider's call
	// reference. Errors wrap ErrAuth or ErrTransient for classification.
	PlaceCall(ctx context.Context, req CallRequest) (providerRef string, err error)
}
