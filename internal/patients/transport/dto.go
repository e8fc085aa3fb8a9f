package transport

import "github.com/google/uuid"

// MedicationDTO is the wire representation of a medication entry.
type MedicationDTO struct {
	Name     string   `json:"name" validate:"required,min=1,max=200"`
	Dosage   string   `json:"dosage" validate:"max=200"`
	Weekdays []string `json:"weekdays" validate:"dive,oneof=Mon Tue Wed Thu Fri Sat Sun"`
	Time     string   `json:"time" validate:"omitempty,len=5"`
}

// CreatePatientRequest contains data for registering a patient.
type CreatePatientRequest struct {
	Name                string          `json:"name" validate:"required,min=1,max=200"`
	PhoneNumber         string          `json:"phoneNumber" validate:"required"`
	GestationalAgeWeeks int             `json:"gestationalAgeWeeks" validate:"required,min=1,max=42"`
	RiskCategory        string          `json:"riskCategory" validate:"required,oneof=low medium high"`
	RiskFactors         []string        `json:"riskFactors" validate:"dive,max=500"`
	Medications         []MedicationDTO `json:"medications" validate:"dive"`
}

// UpdatePatientRequest contains data for updating a patient profile.
type UpdatePatientRequest struct {
	Name                *string         `json:"name,omitempty" validate:"omitempty,min=1,max=200"`
	PhoneNumber         *string         `json:"phoneNumber,omitempty"`
	GestationalAgeWeeks *int            `json:"gestationalAgeWeeks,omitempty" validate:"omitempty,min=1,max=42"`
	RiskCategory        *string         `json:"riskCategory,omitempty" validate:"omitempty,oneof=low medium high"`
	RiskFactors         []string        `json:"riskFactors,omitempty" validate:"omitempty,dive,max=500"`
	Medications         []MedicationDTO `json:"medications,omitempty" validate:"omitempty,dive"`
}

// PatientResponse represents a patient in API responses.
type PatientResponse struct {
	ID                  uuid.UUID       `json:"id"`
	Name                string          `json:"name"`
	PhoneNumber         string          `json:"phoneNumber"`
	GestationalAgeWeeks int             `json:"gestationalAgeWeeks"`
	RiskCategory        string          `json:"riskCategory"`
	RiskFactors         []string        `json:"riskFactors"`
	Medications         []MedicationDTO `json:"medications"`
	CreatedAt           string          `json:"createdAt"`
	UpdatedAt           string          `json:"updatedAt"`
}

// PatientListResponse wraps a list of patients.
type PatientListResponse struct {
	Items []PatientResponse `json:"items"`
	Total int               `json:"total"`
}
