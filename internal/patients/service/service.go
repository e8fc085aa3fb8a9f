package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"sabcare_backend/internal/events"
	"sabcare_backend/internal/patients/repository"
	"sabcare_backend/internal/patients/transport"
	"sabcare_backend/platform/apperr"
	"sabcare_backend/platform/logger"
	"sabcare_backend/platform/phone"
)

// Service provides business logic for patient registration and profiles.
type Service struct {
	repo repository.Repository
	bus  events.Bus
	log  *logger.Logger
}

// New creates a new patients service.
func New(repo repository.Repository, bus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, bus: bus, log: log}
}

// GetByID retrieves a patient by ID.
func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (transport.PatientResponse, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.PatientResponse{}, err
	}
	return toResponse(p), nil
}

// List retrieves all registered patients.
func (s *Service) List(ctx context.Context) (transport.PatientListResponse, error) {
	items, err := s.repo.List(ctx)
	if err != nil {
		return transport.PatientListResponse{}, err
	}

	resp := transport.PatientListResponse{
		Items: make([]transport.PatientResponse, 0, len(items)),
		Total: len(items),
	}
	for _, p := range items {
		resp.Items = append(resp.Items, toResponse(p))
	}
	return resp, nil
}

// Create registers a new patient. The phone number is normalized to E.164
// before storage so webhook caller lookups match exactly.
func (s *Service) Create(ctx context.Context, req transport.CreatePatientRequest) (transport.PatientResponse, error) {
	normalized := phone.NormalizeE164(req.PhoneNumber)
	if !phone.IsValidE164(normalized) {
		return transport.PatientResponse{}, apperr.Validation("phoneNumber is not a dialable phone number")
	}

	medications, err := toMedications(req.Medications)
	if err != nil {
		return transport.PatientResponse{}, err
	}

	p, err := s.repo.Create(ctx, repository.CreateParams{
		Name:                strings.TrimSpace(req.Name),
		PhoneNumber:         normalized,
		GestationalAgeWeeks: req.GestationalAgeWeeks,
		RiskCategory:        req.RiskCategory,
		RiskFactors:         emptyIfNil(req.RiskFactors),
		Medications:         medications,
	})
	if err != nil {
		return transport.PatientResponse{}, err
	}

	s.log.Info("patient registered", "patientId", p.ID, "riskCategory", p.RiskCategory)
	s.bus.Publish(ctx, events.PatientUpserted{
		BaseEvent: events.NewBaseEvent(),
		PatientID: p.ID,
		Created:   true,
	})

	return toResponse(p), nil
}

// Update modifies a patient profile.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req transport.UpdatePatientRequest) (transport.PatientResponse, error) {
	params := repository.UpdateParams{
		ID:                  id,
		Name:                req.Name,
		GestationalAgeWeeks: req.GestationalAgeWeeks,
		RiskCategory:        req.RiskCategory,
		RiskFactors:         req.RiskFactors,
	}

	if req.PhoneNumber != nil {
		normalized := phone.NormalizeE164(*req.PhoneNumber)
		if !phone.IsValidE164(normalized) {
			return transport.PatientResponse{}, apperr.Validation("phoneNumber is not a dialable phone number")
		}
		params.PhoneNumber = &normalized
	}

	if req.Medications != nil {
		medications, err := toMedications(req.Medications)
		if err != nil {
			return transport.PatientResponse{}, err
		}
		params.Medications = medications
	}

	p, err := s.repo.Update(ctx, params)
	if err != nil {
		return transport.PatientResponse{}, err
	}

	s.bus.Publish(ctx, events.PatientUpserted{
		BaseEvent: events.NewBaseEvent(),
		PatientID: p.ID,
	})

	return toResponse(p), nil
}

// Delete removes a patient along with her call events and messages.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}

func toMedications(dtos []transport.MedicationDTO) ([]repository.Medication, error) {
	medications := make([]repository.Medication, 0, len(dtos))
	for _, m := range dtos {
		if len(m.Weekdays) > 0 {
			if err := validateClock(m.Time); err != nil {
				return nil, apperr.Validation(fmt.Sprintf("medication %q: %v", m.Name, err))
			}
		}
		medications = append(medications, repository.Medication{
			Name:     strings.TrimSpace(m.Name),
			Dosage:   strings.TrimSpace(m.Dosage),
			Weekdays: emptyIfNil(m.Weekdays),
			Time:     m.Time,
		})
	}
	return medications, nil
}

// validateClock checks an HH:MM wall-clock string.
func validateClock(value string) error {
	parts := strings.Split(value, ":")
	if len(parts) != 2 {
		return fmt.Errorf("time %q must be in HH:MM format", value)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return fmt.Errorf("time %q has an invalid hour", value)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return fmt.Errorf("time %q has an invalid minute", value)
	}
	return nil
}

func emptyIfNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}

func toResponse(p repository.Patient) transport.PatientResponse {
	medications := make([]transport.MedicationDTO, 0, len(p.Medications))
	for _, m := range p.Medications {
		medications = append(medications, transport.MedicationDTO{
			Name:     m.Name,
			Dosage:   m.Dosage,
			Weekdays: m.Weekdays,
			Time:     m.Time,
		})
	}

	return transport.PatientResponse{
		ID:                  p.ID,
		Name:                p.Name,
		PhoneNumber:         p.PhoneNumber,
		GestationalAgeWeeks: p.GestationalAgeWeeks,
		RiskCategory:        p.RiskCategory,
		RiskFactors:         p.RiskFactors,
		Medications:         medications,
		CreatedAt:           p.CreatedAt,
		UpdatedAt:           p.UpdatedAt,
	}
}
