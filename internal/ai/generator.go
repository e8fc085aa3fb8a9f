// Package ai provides call message generation: an LLM-backed generator for
// personalized check-in scripts and message summaries, plus deterministic
// fallback templates used when generation is unavailable.
package ai

import (
	"context"
	"errors"
)

// ErrGenerationUnavailable indicates the text-generation backend could not
// produce output (unconfigured, unreachable, or returned an empty result).
// Callers fall back to templated messages; a call is never blocked on it.
var ErrGenerationUnavailable = errors.New("text generation unavailable")

// MedicationInfo is the slice of a patient's medication list relevant to
// message rendering.
type MedicationInfo struct {
	Name   string
	Dosage string
	Time   string
}

// PatientContext carries the patient profile fields a generated message may
// reference.
type PatientContext struct {
	Name                string
	GestationalAgeWeeks int
	RiskCategory        string
	RiskFactors         []string
	Medications         []MedicationInfo
}

// MessageRequest describes one call message to render.
type MessageRequest struct {
	CallType string
	Patient  PatientContext
}

// Generator produces call scripts and message summaries.
type Generator interface {
	// RenderMessage produces the spoken script for an outbound call.
	// Returns ErrGenerationUnavailable when the backend cannot serve.
	RenderMessage(ctx context.Context, req MessageRequest) (string, error)
	// SummarizeMessage condenses a recorded patient message transcript
	// into a short note for the care team.
	SummarizeMessage(ctx context.Context, patientName, transcript string) (string, error)
}
