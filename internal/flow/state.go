package flow

import (
	"time"

	"meal-planner-agent/internal/meal"
)

// Status is the lifecycle position of a planning flow.
type Status string

const (
	// StatusGenerating covers preference parsing and meal generation,
	// including regeneration after feedback.
	StatusGenerating Status = "generating"
	// StatusAwaitingApproval is the flow's single suspension point. The
	// persisted State is the sole source of truth needed to resume; no
	// in-process memory survives the wait.
	StatusAwaitingApproval Status = "awaiting_approval"
	// StatusCreatingTasks means the plan was accepted and grocery tasks are
	// being written.
	StatusCreatingTasks Status = "creating_tasks"
	// StatusCompleted is the successful terminal state.
	StatusCompleted Status = "completed"
	// StatusRejected is terminal: the human declined the plan, no tasks.
	StatusRejected Status = "rejected"
	// StatusTimedOut is terminal: the pause expired under the reject policy.
	StatusTimedOut Status = "timed_out"
	// StatusCancelled is terminal: an operator cancelled the pending flow.
	StatusCancelled Status = "cancelled"
	// StatusFailed is terminal: retries were exhausted or task creation
	// produced nothing.
	StatusFailed Status = "failed"
)

// State is the persisted record of one planning flow instance. Its ID is the
// correlation id linking the posted review message back to the suspended
// flow. Everything a resumption needs lives here.
type State struct {
	ID              string
	Status          Status
	Attempts        int
	Preferences     *meal.Preferences
	Plan            *meal.Plan
	LastFeedback    string
	ChatID          int64
	ReviewMessageID int
	Deadline        time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool {
	switch s {
	case StatusCompleted, StatusRejected, StatusTimedOut, StatusCancelled, StatusFailed:
		return true
	}
	return false
}
