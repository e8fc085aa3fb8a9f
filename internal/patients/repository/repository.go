package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"sabcare_backend/platform/apperr"
)

const patientNotFoundMessage = "patient not found"

const patientColumns = `id, name, phone_number, gestational_age_weeks, risk_category, risk_factors, medications, created_at, updated_at`

// Repo implements the Repository interface with PostgreSQL.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new patients repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements Repository.
var _ Repository = (*Repo)(nil)

// GetByID retrieves a patient by ID.
func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (Patient, error) {
	query := `SELECT ` + patientColumns + ` FROM patients WHERE id = $1`

	p, err := scanPatient(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Patient{}, apperr.NotFound(patientNotFoundMessage)
		}
		return Patient{}, fmt.Errorf("get patient by id: %w", err)
	}

	return p, nil
}

// GetByPhone retrieves a patient by E.164 phone number. Used by the message
// intake pipeline to resolve an inbound caller.
func (r *Repo) GetByPhone(ctx context.Context, phone string) (Patient, error) {
	query := `SELECT ` + patientColumns + ` FROM patients WHERE phone_number = $1`

	p, err := scanPatient(r.pool.QueryRow(ctx, query, phone))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Patient{}, apperr.NotFound(patientNotFoundMessage)
		}
		return Patient{}, fmt.Errorf("get patient by phone: %w", err)
	}

	return p, nil
}

// List retrieves all patients ordered by name.
func (r *Repo) List(ctx context.Context) ([]Patient, error) {
	query := `SELECT ` + patientColumns + ` FROM patients ORDER BY name ASC`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list patients: %w", err)
	}
	defer rows.Close()

	var results []Patient
	for rows.Next() {
		p, err := scanPatient(rows)
		if err != nil {
			return nil, fmt.Errorf("scan patient: %w", err)
		}
		results = append(results, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate patients: %w", err)
	}

	return results, nil
}

// Count returns the total number of registered patients.
func (r *Repo) Count(ctx context.Context) (int, error) {
	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM patients`).Scan(&total); err != nil {
		return 0, fmt.Errorf("count patients: %w", err)
	}
	return total, nil
}

// Create registers a new patient.
func (r *Repo) Create(ctx context.Context, params CreateParams) (Patient, error) {
	query := `
		INSERT INTO patients (name, phone_number, gestational_age_weeks, risk_category, risk_factors, medications)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + patientColumns

	p, err := scanPatient(r.pool.QueryRow(ctx, query,
		params.Name, params.PhoneNumber, params.GestationalAgeWeeks, params.RiskCategory,
		params.RiskFactors, params.Medications,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Patient{}, apperr.Conflict("a patient with this phone number already exists")
		}
		return Patient{}, fmt.Errorf("create patient: %w", err)
	}

	return p, nil
}

// Update modifies an existing patient profile. Nil params keep the current value.
func (r *Repo) Update(ctx context.Context, params UpdateParams) (Patient, error) {
	query := `
		UPDATE patients SET
			name = COALESCE($2, name),
			phone_number = COALESCE($3, phone_number),
			gestational_age_weeks = COALESCE($4, gestational_age_weeks),
			risk_category = COALESCE($5, risk_category),
			risk_factors = COALESCE($6, risk_factors),
			medications = COALESCE($7, medications),
			updated_at = now()
		WHERE id = $1
		RETURNING ` + patientColumns

	var riskFactors, medications interface{}
	if params.RiskFactors != nil {
		riskFactors = params.RiskFactors
	}
	if params.Medications != nil {
		medications = params.Medications
	}

	p, err := scanPatient(r.pool.QueryRow(ctx, query,
		params.ID, params.Name, params.PhoneNumber, params.GestationalAgeWeeks, params.RiskCategory,
		riskFactors, medications,
	))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Patient{}, apperr.NotFound(patientNotFoundMessage)
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Patient{}, apperr.Conflict("a patient with this phone number already exists")
		}
		return Patient{}, fmt.Errorf("update patient: %w", err)
	}

	return p, nil
}

// Delete removes a patient and cascades to her call events and messages.
func (r *Repo) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.pool.Exec(ctx, `DELETE FROM patients WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete patient: %w", err)
	}

	if result.RowsAffected() == 0 {
		return apperr.NotFound(patientNotFoundMessage)
	}

	return nil
}

func scanPatient(row pgx.Row) (Patient, error) {
	var p Patient
	var createdAt, updatedAt time.Time

	err := row.Scan(
		&p.ID, &p.Name, &p.PhoneNumber, &p.GestationalAgeWeeks, &p.RiskCategory,
		&p.RiskFactors, &p.Medications, &createdAt, &updatedAt,
	)
	if err != nil {
		return Patient{}, err
	}

	p.CreatedAt = createdAt.Format(time.RFC3339)
	p.UpdatedAt = updatedAt.Format(time.RFC3339)

	return p, nil
}
