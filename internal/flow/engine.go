package flow

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"meal-planner-agent/internal/approval"
	"meal-planner-agent/internal/config"
	"meal-planner-agent/internal/meal"
	"meal-planner-agent/internal/shared"
	"meal-planner-agent/internal/todoist"

	"github.com/google/uuid"
)

// ErrPauseClosed is returned when a decision arrives for a flow that is no
// longer suspended (a late or duplicate delivery). The decision is dropped,
// never applied to a later pause.
var ErrPauseClosed = errors.New("approval pause already closed")

// ErrUnknownFlow is returned when no flow exists for a correlation id.
var ErrUnknownFlow = errors.New("unknown flow")

// ReviewHandle identifies the posted review message a human replies to.
type ReviewHandle struct {
	ChatID    int64
	MessageID int
}

// ReviewChannel is the external surface where plans are presented and
// outcomes reported.
type ReviewChannel interface {
	PostForReview(ctx context.Context, plan *meal.Plan, correlationID string, attempt int) (ReviewHandle, error)
	PostFinal(ctx context.Context, plan *meal.Plan, report todoist.Report) error
	PostNotice(ctx context.Context, text string) error
}

// MetaRecorder receives operational metadata for each LLM call.
type MetaRecorder interface {
	RecordMeta(meta shared.AgentMeta) error
}

// Engine drives the approval/resume state machine. It owns no in-process
// state across the suspension point: everything a resumption needs is read
// back from the Store, so any process instance can pick a flow up.
type Engine struct {
	store     *Store
	generator *meal.Generator
	channel   ReviewChannel
	tasks     todoist.TaskWriter
	metrics   MetaRecorder
	cfg       *config.Config
	retry     retryPolicy
}

// NewEngine creates a flow engine. metrics may be nil.
func NewEngine(store *Store, generator *meal.Generator, channel ReviewChannel, tasks todoist.TaskWriter, metrics MetaRecorder, cfg *config.Config) *Engine {
	return &Engine{
		store:     store,
		generator: generator,
		channel:   channel,
		tasks:     tasks,
		metrics:   metrics,
		cfg:       cfg,
		retry:     defaultRetryPolicy(),
	}
}

// Start begins a new planning flow: parse preferences, generate a plan,
// post it for review and suspend until a decision or the timeout. Returns
// the flow's correlation id.
func (e *Engine) Start(ctx context.Context) (string, error) {
	st := &State{
		ID:     uuid.NewString(),
		Status: StatusGenerating,
		ChatID: e.cfg.TelegramChatID,
	}
	if err := e.store.Create(ctx, st); err != nil {
		return "", err
	}

	log.Printf("Flow %s: parsing dietary preferences", st.ID)
	var prefs *meal.Preferences
	err := e.retry.do(ctx, "parse preferences", func() error {
		var meta shared.AgentMeta
		var err error
		prefs, meta, err = e.generator.ParsePreferences(ctx, e.cfg.DietaryPreferences)
		e.recordMeta(meta)
		return err
	})
	if err != nil {
		return st.ID, e.fail(ctx, st.ID, StatusGenerating, fmt.Errorf("preference parsing failed: %w", err))
	}
	st.Preferences = prefs
	if err := e.store.SavePreferences(ctx, st.ID, prefs); err != nil {
		return st.ID, e.fail(ctx, st.ID, StatusGenerating, err)
	}

	if err := e.generateAndSuspend(ctx, st, ""); err != nil {
		return st.ID, err
	}
	return st.ID, nil
}

// Resume consumes a decision for a suspended flow. Exactly one decision is
// consumed per pause; any decision arriving after the pause closed yields
// ErrPauseClosed. Unrecognized decisions must be filtered by the caller;
// they do not consume the pause.
func (e *Engine) Resume(ctx context.Context, id string, decision approval.Decision) error {
	if decision.Kind == approval.Unrecognized {
		return fmt.Errorf("unrecognized decision cannot resume flow %s", id)
	}

	st, err := e.store.Get(ctx, id)
	if err != nil {
		return err
	}
	if st == nil {
		return ErrUnknownFlow
	}

	switch decision.Kind {
	case approval.Approved:
		return e.approve(ctx, st)

	case approval.Rejected:
		ok, err := e.store.Transition(ctx, id, StatusAwaitingApproval, StatusRejected)
		if err != nil {
			return err
		}
		if !ok {
			log.Printf("Flow %s: late rejection dropped (status no longer awaiting)", id)
			return ErrPauseClosed
		}
		log.Printf("Flow %s: plan rejected, no tasks created", id)
		e.notify(ctx, "🚫 Meal plan rejected. No grocery tasks were created.")
		return nil

	case approval.Feedback:
		return e.regenerate(ctx, st, decision.Feedback)
	}

	return fmt.Errorf("unsupported decision kind %q", decision.Kind)
}

// approve consumes the pause and runs task creation with the current plan.
func (e *Engine) approve(ctx context.Context, st *State) error {
	ok, err := e.store.Transition(ctx, st.ID, StatusAwaitingApproval, StatusCreatingTasks)
	if err != nil {
		return err
	}
	if !ok {
		log.Printf("Flow %s: late approval dropped (status no longer awaiting)", st.ID)
		return ErrPauseClosed
	}
	return e.createTasks(ctx, st)
}

// regenerate handles a feedback decision. Once the attempt budget is spent,
// further feedback is ignored and the current plan proceeds as approved.
func (e *Engine) regenerate(ctx context.Context, st *State, feedback string) error {
	if st.Attempts >= e.cfg.MaxRegenerationAttempts {
		log.Printf("Flow %s: max regeneration attempts (%d) reached, ignoring feedback and proceeding with current plan",
			st.ID, e.cfg.MaxRegenerationAttempts)
		e.notify(ctx, fmt.Sprintf("⚠️ Regeneration limit (%d) reached. Proceeding with the current plan.", e.cfg.MaxRegenerationAttempts))
		return e.approve(ctx, st)
	}

	ok, err := e.store.Transition(ctx, st.ID, StatusAwaitingApproval, StatusGenerating)
	if err != nil {
		return err
	}
	if !ok {
		log.Printf("Flow %s: late feedback dropped (status no longer awaiting)", st.ID)
		return ErrPauseClosed
	}

	st.Attempts++
	st.LastFeedback = feedback
	log.Printf("Flow %s: regenerating with feedback %q (attempt %d/%d)",
		st.ID, feedback, st.Attempts, e.cfg.MaxRegenerationAttempts)

	return e.generateAndSuspend(ctx, st, feedback)
}

// generateAndSuspend generates a plan (superseding any previous one), posts
// it for review and parks the flow at its suspension point.
func (e *Engine) generateAndSuspend(ctx context.Context, st *State, feedback string) error {
	var plan *meal.Plan
	err := e.retry.do(ctx, "generate meal plan", func() error {
		var meta shared.AgentMeta
		var err error
		plan, meta, err = e.generator.GenerateMealPlan(ctx, st.Preferences, feedback)
		e.recordMeta(meta)
		return err
	})
	if err != nil {
		return e.fail(ctx, st.ID, StatusGenerating, fmt.Errorf("meal generation failed: %w", err))
	}
	st.Plan = plan

	var handle ReviewHandle
	err = e.retry.do(ctx, "post plan for review", func() error {
		var err error
		handle, err = e.channel.PostForReview(ctx, plan, st.ID, st.Attempts)
		return err
	})
	if err != nil {
		return e.fail(ctx, st.ID, StatusGenerating, fmt.Errorf("posting for review failed: %w", err))
	}

	st.ChatID = handle.ChatID
	st.ReviewMessageID = handle.MessageID
	st.Deadline = time.Now().UTC().Add(time.Duration(e.cfg.ApprovalTimeoutSeconds) * time.Second)

	if err := e.store.Suspend(ctx, st); err != nil {
		return e.fail(ctx, st.ID, StatusGenerating, err)
	}

	log.Printf("Flow %s: awaiting approval until %s", st.ID, st.Deadline.Format(time.RFC3339))
	return nil
}

// createTasks writes one grocery task per ingredient occurrence. Partial
// failures are tolerated and summarized; a run that creates nothing fails
// the flow.
func (e *Engine) createTasks(ctx context.Context, st *State) error {
	if st.Plan == nil {
		return e.fail(ctx, st.ID, StatusCreatingTasks, fmt.Errorf("no plan available for task creation"))
	}

	log.Printf("Flow %s: creating grocery tasks", st.ID)
	report := todoist.CreateGroceryTasks(ctx, e.tasks, st.Plan, e.cfg.TodoistGroceryProjectID)

	if len(report.Created) == 0 && len(report.Failed) > 0 {
		if _, err := e.store.Transition(ctx, st.ID, StatusCreatingTasks, StatusFailed); err != nil {
			return err
		}
		e.notify(ctx, fmt.Sprintf("❌ Grocery task creation failed: 0 created, %d failed.", len(report.Failed)))
		return fmt.Errorf("task creation produced no tasks (%d failures)", len(report.Failed))
	}

	if err := e.channel.PostFinal(ctx, st.Plan, report); err != nil {
		log.Printf("Flow %s: failed to post final plan: %v", st.ID, err)
	}

	if _, err := e.store.Transition(ctx, st.ID, StatusCreatingTasks, StatusCompleted); err != nil {
		return err
	}
	log.Printf("Flow %s: completed (%d tasks created, %d failed)", st.ID, len(report.Created), len(report.Failed))
	return nil
}

// SweepTimeouts resolves suspended flows whose deadline has passed,
// following the configured timeout policy: proceed with the last plan, or
// reject without creating tasks.
func (e *Engine) SweepTimeouts(ctx context.Context, now time.Time) error {
	expired, err := e.store.ListExpired(ctx, now)
	if err != nil {
		return err
	}

	for _, st := range expired {
		switch {
		case e.cfg.ApprovalTimeoutPolicy == config.TimeoutApprove && st.Plan != nil:
			log.Printf("Flow %s: approval timed out, proceeding with last plan", st.ID)
			e.notify(ctx, "⏰ No approval received in time. Proceeding with the last generated plan.")
			if err := e.approve(ctx, st); err != nil && !errors.Is(err, ErrPauseClosed) {
				log.Printf("Flow %s: timeout approval failed: %v", st.ID, err)
			}

		default:
			ok, err := e.store.Transition(ctx, st.ID, StatusAwaitingApproval, StatusTimedOut)
			if err != nil {
				return err
			}
			if ok {
				log.Printf("Flow %s: approval timed out, no tasks created", st.ID)
				e.notify(ctx, "⏰ No approval received in time. The meal plan was discarded.")
			}
		}
	}
	return nil
}

// Cancel terminates a suspended flow immediately. No tasks are created.
func (e *Engine) Cancel(ctx context.Context, id string) error {
	ok, err := e.store.Transition(ctx, id, StatusAwaitingApproval, StatusCancelled)
	if err != nil {
		return err
	}
	if !ok {
		return ErrPauseClosed
	}
	log.Printf("Flow %s: cancelled by operator", id)
	e.notify(ctx, "🛑 Planning flow cancelled. No grocery tasks were created.")
	return nil
}

// Store exposes the underlying state store for read paths (webhook lookup).
func (e *Engine) Store() *Store {
	return e.store
}

func (e *Engine) fail(ctx context.Context, id string, from Status, cause error) error {
	log.Printf("Flow %s: failed: %v", id, cause)
	if _, err := e.store.Transition(ctx, id, from, StatusFailed); err != nil {
		log.Printf("Flow %s: could not mark failed: %v", id, err)
	}
	e.notify(ctx, fmt.Sprintf("❌ Meal planning failed: %v", cause))
	return cause
}

func (e *Engine) notify(ctx context.Context, text string) {
	if err := e.channel.PostNotice(ctx, text); err != nil {
		log.Printf("Failed to post notice: %v", err)
	}
}

func (e *Engine) recordMeta(meta shared.AgentMeta) {
	if e.metrics == nil {
		return
	}
	if err := e.metrics.RecordMeta(meta); err != nil {
		log.Printf("Failed to record metrics for %s: %v", meta.AgentName, err)
	}
}
