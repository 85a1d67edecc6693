package security

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// IncidentStore persists security incidents to SQLite for audit review.
type IncidentStore struct {
	db *sql.DB
}

// NewIncidentStore creates a new IncidentStore over an existing connection.
func NewIncidentStore(db *sql.DB) *IncidentStore {
	return &IncidentStore{db: db}
}

// RecordIncident inserts an audit record for a denied write attempt.
func (s *IncidentStore) RecordIncident(incident Incident) error {
	ts := incident.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	_, err := s.db.ExecContext(context.Background(),
		`INSERT INTO security_incidents (attempted_project_id, allowed_project_id, detail, created_at)
		 VALUES (?, ?, ?, ?)`,
		incident.AttemptedProjectID, incident.AllowedProjectID, incident.Detail, ts,
	)
	if err != nil {
		return fmt.Errorf("failed to insert security incident: %w", err)
	}
	return nil
}

// CountIncidents returns the number of recorded incidents since the given time.
func (s *IncidentStore) CountIncidents(ctx context.Context, since time.Time) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM security_incidents WHERE created_at >= ?`, since,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count security incidents: %w", err)
	}
	return count, nil
}
