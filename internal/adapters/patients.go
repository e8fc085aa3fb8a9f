// Package adapters contains the anti-corruption layer between bounded
// contexts: thin structs translating one module's repository types into
// another module's port interfaces.
package adapters

import (
	"context"

	"github.com/google/uuid"

	"sabcare_backend/internal/ai"
	"sabcare_backend/internal/calls/execution"
	"sabcare_backend/internal/calls/schedule"
	callsvc "sabcare_backend/internal/calls/service"
	"sabcare_backend/internal/patients/repository"
)

// PatientSnapshotAdapter exposes patient profiles to the schedule generator.
type PatientSnapshotAdapter struct {
	repo repository.PatientReader
}

// NewPatientSnapshotAdapter creates an adapter over the patients repository.
func NewPatientSnapshotAdapter(repo repository.PatientReader) *PatientSnapshotAdapter {
	return &PatientSnapshotAdapter{repo: repo}
}

// Compile-time check against the calls service port.
var _ callsvc.PatientSource = (*PatientSnapshotAdapter)(nil)

// Snapshot loads a patient and maps her into the generator's view.
func (a *PatientSnapshotAdapter) Snapshot(ctx context.Context, id uuid.UUID) (schedule.Patient, error) {
	p, err := a.repo.GetByID(ctx, id)
	if err != nil {
		return schedule.Patient{}, err
	}

	medications := make([]schedule.Medication, 0, len(p.Medications))
	for _, m := range p.Medications {
		medications = append(medications, schedule.Medication{
			Name:     m.Name,
			Dosage:   m.Dosage,
			Weekdays: m.Weekdays,
			Time:     m.Time,
		})
	}

	return schedule.Patient{
		ID:                  p.ID,
		Name:                p.Name,
		GestationalAgeWeeks: p.GestationalAgeWeeks,
		RiskCategory:        p.RiskCategory,
		RiskFactors:         p.RiskFactors,
		Medications:         medications,
	}, nil
}

// PatientExecutionAdapter exposes patient profiles to the execution engine.
type PatientExecutionAdapter struct {
	repo repository.PatientReader
}

// NewPatientExecutionAdapter creates an adapter over the patients repository.
func NewPatientExecutionAdapter(repo repository.PatientReader) *PatientExecutionAdapter {
	return &PatientExecutionAdapter{repo: repo}
}

// Compile-time check against the execution engine port.
var _ execution.PatientReader = (*PatientExecutionAdapter)(nil)

// GetByID loads a patient and maps her into the engine's view.
func (a *PatientExecutionAdapter) GetByID(ctx context.Context, id uuid.UUID) (execution.Patient, error) {
	p, err := a.repo.GetByID(ctx, id)
	if err != nil {
		return execution.Patient{}, err
	}

	medications := make([]ai.MedicationInfo, 0, len(p.Medications))
	for _, m := range p.Medications {
		medications = append(medications, ai.MedicationInfo{
			Name:   m.Name,
			Dosage: m.Dosage,
			Time:   m.Time,
		})
	}

	return execution.Patient{
		ID:                  p.ID,
		Name:                p.Name,
		PhoneNumber:         p.PhoneNumber,
		GestationalAgeWeeks: p.GestationalAgeWeeks,
		RiskCategory:        p.RiskCategory,
		RiskFactors:         p.RiskFactors,
		Medications:         medications,
	}, nil
}
