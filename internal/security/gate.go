// Package security enforces the single-project write restriction for the
// external task manager. Every code path that creates a task goes through
// ValidateProjectID; there is no unguarded write path.
package security

import (
	"fmt"
	"log"
	"time"
)

// AccessDeniedError is returned when a task targets any project other than
// the configured grocery project. It is never retried and never downgraded
// to a warning.
type AccessDeniedError struct {
	AttemptedProjectID string
	AllowedProjectID   string
}

func (e *AccessDeniedError) Error() string {
	return fmt.Sprintf(
		"task creation restricted to the grocery project only. Attempted project: %q, Allowed project: %q",
		e.AttemptedProjectID, e.AllowedProjectID,
	)
}

// Incident is the audit record emitted for every denied write attempt.
type Incident struct {
	AttemptedProjectID string
	AllowedProjectID   string
	Detail             string
	Timestamp          time.Time
}

// Auditor records security incidents. Recording must not be skippable on the
// denial path; a nil auditor still logs.
type Auditor interface {
	RecordIncident(incident Incident) error
}

// Gate validates project identifiers against the single configured grocery
// project id.
type Gate struct {
	allowedProjectID string
	auditor          Auditor
}

// NewGate creates a Gate for the configured grocery project id.
func NewGate(allowedProjectID string, auditor Auditor) *Gate {
	return &Gate{allowedProjectID: allowedProjectID, auditor: auditor}
}

// ValidateProjectID checks the candidate against the configured grocery
// project id. The comparison is exact: no trimming, no case folding. Callers
// that want to normalize input must do it before calling; that preprocessing
// is outside this gate's trust boundary.
//
// On mismatch it records a security incident and returns *AccessDeniedError.
func (g *Gate) ValidateProjectID(candidate string) error {
	if candidate == g.allowedProjectID {
		return nil
	}

	incident := Incident{
		AttemptedProjectID: candidate,
		AllowedProjectID:   g.allowedProjectID,
		Detail:             "attempted task creation in wrong project",
		Timestamp:          time.Now().UTC(),
	}

	log.Printf("SECURITY: attempted task creation in wrong project: attempted=%q allowed=%q security_incident=true",
		candidate, g.allowedProjectID)

	if g.auditor != nil {
		if err := g.auditor.RecordIncident(incident); err != nil {
			// The denial stands regardless; the failed audit write is itself logged.
			log.Printf("SECURITY: failed to persist security incident: %v", err)
		}
	}

	return &AccessDeniedError{
		AttemptedProjectID: candidate,
		AllowedProjectID:   g.allowedProjectID,
	}
}

// AllowedProjectID returns the single project id this gate permits.
func (g *Gate) AllowedProjectID() string {
	return g.allowedProjectID
}
