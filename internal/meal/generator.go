package meal

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"text/template"
	"time"

	"meal-planner-agent/internal/llm"
	"meal-planner-agent/internal/shared"
)

//go:embed preference_parser_prompt.md
var preferenceParserPrompt string

//go:embed meal_generator_prompt.md
var mealGeneratorPrompt string

// GenerationError indicates a failed or malformed generation call.
// Retryable with backoff by the caller.
type GenerationError struct {
	Op  string
	Err error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

// Generator turns free-text preferences into structured data and meal plans
// through a text-generation model.
type Generator struct {
	textGen llm.TextGenerator
}

// NewGenerator creates a new Generator instance.
func NewGenerator(textGen llm.TextGenerator) *Generator {
	return &Generator{textGen: textGen}
}

type preferenceParserPromptData struct {
	PreferencesText string
}

type mealGeneratorPromptData struct {
	MaxCookTimeMinutes int
	Serves             int
	PreferencesJSON    string
	Feedback           string
}

// ParsePreferences parses natural language dietary preferences into a
// structured Preferences record.
func (g *Generator) ParsePreferences(ctx context.Context, preferencesText string) (*Preferences, shared.AgentMeta, error) {
	start := time.Now()
	meta := shared.AgentMeta{AgentName: "PreferenceParser"}

	prompt, err := renderPrompt("PreferenceParser", preferenceParserPrompt, preferenceParserPromptData{
		PreferencesText: preferencesText,
	})
	if err != nil {
		return nil, meta, err
	}

	resp, err := g.textGen.GenerateContent(ctx, prompt)
	meta.Usage = resp.Usage
	meta.Latency = time.Since(start)
	if err != nil {
		return nil, meta, &GenerationError{Op: "parse preferences", Err: err}
	}

	prefs := &Preferences{}
	if err := json.Unmarshal([]byte(resp.Content), prefs); err != nil {
		return nil, meta, &GenerationError{
			Op:  "parse preferences",
			Err: fmt.Errorf("failed to parse preferences JSON: %w. Response: %s", err, resp.Content),
		}
	}

	if prefs.Serves < 1 {
		prefs.Serves = 2
	}
	if prefs.MaxCookTimeMinutes <= 0 {
		prefs.MaxCookTimeMinutes = 20
	}

	return prefs, meta, nil
}

// GenerateMealPlan generates a two-meal plan for the given preferences.
// A non-empty feedback string is appended to the prompt for regeneration;
// the returned Plan supersedes any previous plan entirely.
func (g *Generator) GenerateMealPlan(ctx context.Context, prefs *Preferences, feedback string) (*Plan, shared.AgentMeta, error) {
	start := time.Now()
	meta := shared.AgentMeta{AgentName: "MealGenerator"}

	prefsJSON, err := json.MarshalIndent(prefs, "", "  ")
	if err != nil {
		return nil, meta, fmt.Errorf("failed to marshal preferences: %w", err)
	}

	prompt, err := renderPrompt("MealGenerator", mealGeneratorPrompt, mealGeneratorPromptData{
		MaxCookTimeMinutes: prefs.MaxCookTimeMinutes,
		Serves:             prefs.Serves,
		PreferencesJSON:    string(prefsJSON),
		Feedback:           feedback,
	})
	if err != nil {
		return nil, meta, err
	}

	resp, err := g.textGen.GenerateContent(ctx, prompt)
	meta.Usage = resp.Usage
	meta.Latency = time.Since(start)
	if err != nil {
		return nil, meta, &GenerationError{Op: "generate meal plan", Err: err}
	}

	plan := &Plan{}
	if err := json.Unmarshal([]byte(resp.Content), plan); err != nil {
		return nil, meta, &GenerationError{
			Op:  "generate meal plan",
			Err: fmt.Errorf("failed to parse meal plan JSON: %w. Response: %s", err, resp.Content),
		}
	}

	if err := validatePlan(plan, prefs); err != nil {
		return nil, meta, &GenerationError{Op: "generate meal plan", Err: err}
	}

	return plan, meta, nil
}

func validatePlan(plan *Plan, prefs *Preferences) error {
	if len(plan.Meals) != PlanMeals {
		return fmt.Errorf("expected %d meals, got %d", PlanMeals, len(plan.Meals))
	}
	for _, m := range plan.Meals {
		if m.Name == "" {
			return fmt.Errorf("meal with empty name")
		}
		if m.ActiveTimeMinutes >= prefs.MaxCookTimeMinutes {
			return fmt.Errorf("meal %q active time %dm exceeds limit of %dm",
				m.Name, m.ActiveTimeMinutes, prefs.MaxCookTimeMinutes)
		}
		if len(m.Ingredients) == 0 {
			return fmt.Errorf("meal %q has no ingredients", m.Name)
		}
	}
	return nil
}

func renderPrompt(name, promptTemplate string, data any) (string, error) {
	tmpl, err := template.New(name).Parse(promptTemplate)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}

	return buf.String(), nil
}
