package flow

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"meal-planner-agent/internal/meal"
)

// Store persists flow states to SQLite. The persisted row is the only state
// that survives a suspension; processes resume from it alone.
type Store struct {
	db *sql.DB
}

// NewStore creates a new flow state store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

const stateColumns = `id, status, attempts, preferences_json, plan_json, last_feedback,
	chat_id, review_message_id, deadline, created_at, updated_at`

// Create inserts a new flow state.
func (s *Store) Create(ctx context.Context, st *State) error {
	prefsJSON, planJSON, err := marshalState(st)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	st.CreatedAt = now
	st.UpdatedAt = now

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO flow_states (`+stateColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		st.ID, st.Status, st.Attempts, prefsJSON, planJSON, st.LastFeedback,
		st.ChatID, st.ReviewMessageID, nullableTime(st.Deadline), st.CreatedAt, st.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert flow state: %w", err)
	}
	return nil
}

// Get retrieves a flow state by correlation id.
func (s *Store) Get(ctx context.Context, id string) (*State, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+stateColumns+` FROM flow_states WHERE id = ?`, id)
	return scanState(row)
}

// GetByReviewMessage retrieves the flow state whose review message a reply
// points at.
func (s *Store) GetByReviewMessage(ctx context.Context, chatID int64, messageID int) (*State, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+stateColumns+` FROM flow_states
		 WHERE chat_id = ? AND review_message_id = ?
		 ORDER BY updated_at DESC LIMIT 1`,
		chatID, messageID)
	return scanState(row)
}

// LatestAwaiting retrieves the newest suspended flow in a chat, if any.
func (s *Store) LatestAwaiting(ctx context.Context, chatID int64) (*State, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+stateColumns+` FROM flow_states
		 WHERE chat_id = ? AND status = ?
		 ORDER BY updated_at DESC LIMIT 1`,
		chatID, StatusAwaitingApproval)
	return scanState(row)
}

// ListExpired retrieves suspended flows whose approval deadline has passed.
func (s *Store) ListExpired(ctx context.Context, now time.Time) ([]*State, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+stateColumns+` FROM flow_states
		 WHERE status = ? AND deadline IS NOT NULL AND deadline <= ?`,
		StatusAwaitingApproval, now.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to list expired flows: %w", err)
	}
	defer rows.Close()

	var states []*State
	for rows.Next() {
		st, err := scanState(rows)
		if err != nil {
			return nil, err
		}
		states = append(states, st)
	}
	return states, rows.Err()
}

// Transition moves a flow from one status to another. It returns false when
// the flow was not in the expected status: that is how a decision arriving
// for an already-closed pause is detected and dropped. The row acts as a
// compare-and-swap, so exactly one decision consumes each pause.
func (s *Store) Transition(ctx context.Context, id string, from, to Status) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE flow_states SET status = ?, updated_at = ? WHERE id = ? AND status = ?`,
		to, time.Now().UTC(), id, from)
	if err != nil {
		return false, fmt.Errorf("failed to transition flow %s from %s to %s: %w", id, from, to, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected == 1, nil
}

// Suspend writes the current plan, attempt counter, review handle and
// deadline, and parks the flow in awaiting_approval.
func (s *Store) Suspend(ctx context.Context, st *State) error {
	_, planJSON, err := marshalState(st)
	if err != nil {
		return err
	}

	st.Status = StatusAwaitingApproval
	st.UpdatedAt = time.Now().UTC()

	_, err = s.db.ExecContext(ctx,
		`UPDATE flow_states
		 SET status = ?, attempts = ?, plan_json = ?, last_feedback = ?,
		     chat_id = ?, review_message_id = ?, deadline = ?, updated_at = ?
		 WHERE id = ?`,
		st.Status, st.Attempts, planJSON, st.LastFeedback,
		st.ChatID, st.ReviewMessageID, nullableTime(st.Deadline), st.UpdatedAt, st.ID)
	if err != nil {
		return fmt.Errorf("failed to suspend flow %s: %w", st.ID, err)
	}
	return nil
}

// SavePreferences persists parsed preferences for the flow.
func (s *Store) SavePreferences(ctx context.Context, id string, prefs *meal.Preferences) error {
	prefsJSON, err := json.Marshal(prefs)
	if err != nil {
		return fmt.Errorf("failed to marshal preferences: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`UPDATE flow_states SET preferences_json = ?, updated_at = ? WHERE id = ?`,
		string(prefsJSON), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to save preferences for flow %s: %w", id, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanState(row rowScanner) (*State, error) {
	st := &State{}
	var prefsJSON, planJSON string
	var deadline sql.NullTime

	err := row.Scan(&st.ID, &st.Status, &st.Attempts, &prefsJSON, &planJSON, &st.LastFeedback,
		&st.ChatID, &st.ReviewMessageID, &deadline, &st.CreatedAt, &st.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan flow state: %w", err)
	}

	if deadline.Valid {
		st.Deadline = deadline.Time
	}
	if prefsJSON != "" {
		st.Preferences = &meal.Preferences{}
		if err := json.Unmarshal([]byte(prefsJSON), st.Preferences); err != nil {
			return nil, fmt.Errorf("failed to unmarshal preferences: %w", err)
		}
	}
	if planJSON != "" {
		st.Plan = &meal.Plan{}
		if err := json.Unmarshal([]byte(planJSON), st.Plan); err != nil {
			return nil, fmt.Errorf("failed to unmarshal plan: %w", err)
		}
	}
	return st, nil
}

func marshalState(st *State) (prefsJSON, planJSON string, err error) {
	if st.Preferences != nil {
		b, err := json.Marshal(st.Preferences)
		if err != nil {
			return "", "", fmt.Errorf("failed to marshal preferences: %w", err)
		}
		prefsJSON = string(b)
	}
	if st.Plan != nil {
		b, err := json.Marshal(st.Plan)
		if err != nil {
			return "", "", fmt.Errorf("failed to marshal plan: %w", err)
		}
		planJSON = string(b)
	}
	return prefsJSON, planJSON, nil
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t.UTC()
}
