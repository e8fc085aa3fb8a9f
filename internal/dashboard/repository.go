package dashboard

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Stats is the aggregate view the care team dashboard renders.
type Stats struct {
	Patients         int            `json:"patients"`
	PatientsByRisk   map[string]int `json:"patientsByRisk"`
	CallsByStatus    map[string]int `json:"callsByStatus"`
	CallsByType      map[string]int `json:"callsByType"`
	MessagesByStatus map[string]int `json:"messagesByStatus"`
}

// Repository runs the read-only aggregate queries for the dashboard.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a dashboard repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Collect gathers all dashboard counters.
func (r *Repository) Collect(ctx context.Context) (Stats, error) {
	stats := Stats{
		PatientsByRisk:   make(map[string]int),
		CallsByStatus:    make(map[string]int),
		CallsByType:      make(map[string]int),
		MessagesByStatus: make(map[string]int),
	}

	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM patients`).Scan(&stats.Patients); err != nil {
		return Stats{}, fmt.Errorf("count patients: %w", err)
	}

	if err := r.groupCount(ctx, `SELECT risk_category, COUNT(*) FROM patients GROUP BY risk_category`, stats.PatientsByRisk); err != nil {
		return Stats{}, fmt.Errorf("count patients by risk: %w", err)
	}

	if err := r.groupCount(ctx, `SELECT status, COUNT(*) FROM call_events GROUP BY status`, stats.CallsByStatus); err != nil {
		return Stats{}, fmt.Errorf("count calls by status: %w", err)
	}
	if err := r.groupCount(ctx, `SELECT call_type, COUNT(*) FROM call_events GROUP BY call_type`, stats.CallsByType); err != nil {
		return Stats{}, fmt.Errorf("count calls by type: %w", err)
	}
	if err := r.groupCount(ctx, `SELECT status, COUNT(*) FROM patient_messages GROUP BY status`, stats.MessagesByStatus); err != nil {
		return Stats{}, fmt.Errorf("count messages by status: %w", err)
	}

	return stats, nil
}

func (r *Repository) groupCount(ctx context.Context, query string, dest map[string]int) error {
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var count int
		if err := rows.Scan(&key, &count); err != nil {
			return err
		}
		dest[key] = count
	}
	return rows.Err()
}
