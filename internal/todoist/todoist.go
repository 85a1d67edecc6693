package todoist

import (
	"context"
	"fmt"
)

// GroceryTask is a task to be created in the external task manager.
// ProjectID must equal the configured grocery project id; the security gate
// enforces that at write time, not just at construction time.
type GroceryTask struct {
	Content   string
	ProjectID string
	Labels    []string
	DueString string
}

// TaskResult describes a task the remote service confirmed it created.
type TaskResult struct {
	ID      string
	Content string
}

// RemoteTaskError is a per-task failure reported by the external service
// after the write was attempted. It never aborts sibling task creations.
type RemoteTaskError struct {
	TaskContent string
	Err         error
}

func (e *RemoteTaskError) Error() string {
	return fmt.Sprintf("remote task creation failed for %q: %v", e.TaskContent, e.Err)
}

func (e *RemoteTaskError) Unwrap() error { return e.Err }

// TaskWriter creates a single task in the external task manager. Every
// implementation must pass the candidate project id through the security
// gate before any write is attempted.
type TaskWriter interface {
	CreateTask(ctx context.Context, task GroceryTask) (*TaskResult, error)
}
