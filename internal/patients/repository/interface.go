package repository

import (
	"context"

	"github.com/google/uuid"
)

// Medication is one entry in a patient's medication list. Weekdays uses the
// short English names ("Mon".."Sun"); an empty set means no reminders.
type Medication struct {
	Name     string   `json:"name"`
	Dosage   string   `json:"dosage"`
	Weekdays []string `json:"weekdays"`
	Time     string   `json:"time"`
}

// Patient represents a monitored patient and her call-relevant profile.
type Patient struct {
	ID                  uuid.UUID    `db:"id"`
	Name                string       `db:"name"`
	PhoneNumber         string       `db:"phone_number"`
	GestationalAgeWeeks int          `db:"gestational_age_weeks"`
	RiskCategory        string       `db:"risk_category"`
	RiskFactors         []string     `db:"risk_factors"`
	Medications         []Medication `db:"medications"`
	CreatedAt           string       `db:"created_at"`
	UpdatedAt           string       `db:"updated_at"`
}

// CreateParams contains parameters for registering a patient.
type CreateParams struct {
	Name                string
	PhoneNumber         string
	GestationalAgeWeeks int
	RiskCategory        string
	RiskFactors         []string
	Medications         []Medication
}

// UpdateParams contains parameters for updating a patient profile.
// Nil fields are left unchanged.
type UpdateParams struct {
	ID                  uuid.UUID
	Name                *string
	PhoneNumber         *string
	GestationalAgeWeeks *int
	RiskCategory        *string
	RiskFactors         []string
	Medications         []Medication
}

// PatientReader provides read operations for patients.
type PatientReader interface {
	GetByID(ctx context.Context, id uuid.UUID) (Patient, error)
	GetByPhone(ctx context.Context, phone string) (Patient, error)
	List(ctx context.Context) ([]Patient, error)
	Count(ctx context.Context) (int, error)
}

// PatientWriter provides write operations for patients.
type PatientWriter interface {
	Create(ctx context.Context, params CreateParams) (Patient, error)
	Update(ctx context.Context, params UpdateParams) (Patient, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// Repository combines all patient repository operations.
type Repository interface {
	PatientReader
	PatientWriter
}
