package meal

import (
	"context"
	"errors"
	"strings"
	"testing"

	"meal-planner-agent/internal/llm"
)

type MockTextGenerator struct {
	responses map[string]string
	err       error
	prompts   []string
}

func (m *MockTextGenerator) GenerateContent(ctx context.Context, prompt string) (llm.ContentResponse, error) {
	m.prompts = append(m.prompts, prompt)
	if m.err != nil {
		return llm.ContentResponse{}, m.err
	}
	for marker, content := range m.responses {
		if strings.Contains(prompt, marker) {
			return llm.ContentResponse{Content: content}, nil
		}
	}
	return llm.ContentResponse{Content: "{}"}, nil
}

const validPlanJSON = `{
  "meals": [
    {
      "name": "Garlic Noodles",
      "description": "Quick noodles",
      "serves": 2,
      "active_time_minutes": 15,
      "ingredients": [
        {"name": "Garlic", "quantity": "3", "unit": "cloves"},
        {"name": "Noodles", "quantity": "200", "unit": "g"}
      ],
      "instructions": [{"step": 1, "text": "Boil noodles."}]
    },
    {
      "name": "Chickpea Salad",
      "description": "Fresh salad",
      "serves": 2,
      "active_time_minutes": 10,
      "ingredients": [
        {"name": "Chickpeas", "quantity": "1", "unit": "can"},
        {"name": "Garlic", "quantity": "1", "unit": "clove"}
      ],
      "instructions": [{"step": 1, "text": "Mix everything."}]
    }
  ],
  "shared_ingredients": [
    {"name": "Olive Oil", "quantity": "4", "unit": "tbsp"}
  ]
}`

func TestParsePreferences(t *testing.T) {
	mock := &MockTextGenerator{responses: map[string]string{
		"Dietary Preference Parser": `{"dietary_restrictions": ["vegetarian"], "cuisines": ["Mediterranean"], "avoid_ingredients": ["mushrooms"], "max_cook_time_minutes": 20, "serves": 2}`,
	}}
	gen := NewGenerator(mock)

	prefs, meta, err := gen.ParsePreferences(context.Background(), "vegetarian, no mushrooms, quick meals")
	if err != nil {
		t.Fatalf("ParsePreferences failed: %v", err)
	}
	if meta.AgentName != "PreferenceParser" {
		t.Errorf("Expected agent name 'PreferenceParser', got '%s'", meta.AgentName)
	}
	if len(prefs.DietaryRestrictions) != 1 || prefs.DietaryRestrictions[0] != "vegetarian" {
		t.Errorf("Unexpected restrictions: %v", prefs.DietaryRestrictions)
	}
	if prefs.MaxCookTimeMinutes != 20 {
		t.Errorf("Expected max cook time 20, got %d", prefs.MaxCookTimeMinutes)
	}

	if len(mock.prompts) != 1 || !strings.Contains(mock.prompts[0], "vegetarian, no mushrooms") {
		t.Error("Prompt should contain the raw preferences text")
	}
}

func TestParsePreferencesDefaults(t *testing.T) {
	mock := &MockTextGenerator{responses: map[string]string{
		"Dietary Preference Parser": `{"serves": 0, "max_cook_time_minutes": 0}`,
	}}
	gen := NewGenerator(mock)

	prefs, _, err := gen.ParsePreferences(context.Background(), "whatever")
	if err != nil {
		t.Fatalf("ParsePreferences failed: %v", err)
	}
	if prefs.Serves != 2 {
		t.Errorf("Expected default serves 2, got %d", prefs.Serves)
	}
	if prefs.MaxCookTimeMinutes != 20 {
		t.Errorf("Expected default max cook time 20, got %d", prefs.MaxCookTimeMinutes)
	}
}

func TestGenerateMealPlan(t *testing.T) {
	mock := &MockTextGenerator{responses: map[string]string{
		"Quick-Cooking Meal Planner": validPlanJSON,
	}}
	gen := NewGenerator(mock)
	prefs := &Preferences{MaxCookTimeMinutes: 20, Serves: 2}

	plan, meta, err := gen.GenerateMealPlan(context.Background(), prefs, "")
	if err != nil {
		t.Fatalf("GenerateMealPlan failed: %v", err)
	}
	if meta.AgentName != "MealGenerator" {
		t.Errorf("Expected agent name 'MealGenerator', got '%s'", meta.AgentName)
	}
	if len(plan.Meals) != 2 {
		t.Fatalf("Expected 2 meals, got %d", len(plan.Meals))
	}
	if plan.Meals[0].Name != "Garlic Noodles" {
		t.Errorf("Expected first meal 'Garlic Noodles', got '%s'", plan.Meals[0].Name)
	}
	if len(plan.SharedIngredients) != 1 {
		t.Errorf("Expected 1 shared ingredient, got %d", len(plan.SharedIngredients))
	}
}

func TestGenerateMealPlanWithFeedback(t *testing.T) {
	mock := &MockTextGenerator{responses: map[string]string{
		"Quick-Cooking Meal Planner": validPlanJSON,
	}}
	gen := NewGenerator(mock)
	prefs := &Preferences{MaxCookTimeMinutes: 20, Serves: 2}

	if _, _, err := gen.GenerateMealPlan(context.Background(), prefs, "make it spicier"); err != nil {
		t.Fatalf("GenerateMealPlan failed: %v", err)
	}

	if !strings.Contains(mock.prompts[0], "make it spicier") {
		t.Error("Prompt should contain the feedback text")
	}
	if !strings.Contains(mock.prompts[0], "USER FEEDBACK") {
		t.Error("Prompt should contain the feedback section header")
	}
}

func TestGenerateMealPlanOmitsFeedbackSectionWithoutFeedback(t *testing.T) {
	mock := &MockTextGenerator{responses: map[string]string{
		"Quick-Cooking Meal Planner": validPlanJSON,
	}}
	gen := NewGenerator(mock)
	prefs := &Preferences{MaxCookTimeMinutes: 20, Serves: 2}

	if _, _, err := gen.GenerateMealPlan(context.Background(), prefs, ""); err != nil {
		t.Fatalf("GenerateMealPlan failed: %v", err)
	}
	if strings.Contains(mock.prompts[0], "USER FEEDBACK") {
		t.Error("Prompt should not contain a feedback section when no feedback given")
	}
}

func TestGenerateMealPlanErrors(t *testing.T) {
	prefs := &Preferences{MaxCookTimeMinutes: 20, Serves: 2}

	t.Run("MalformedJSON", func(t *testing.T) {
		mock := &MockTextGenerator{responses: map[string]string{
			"Quick-Cooking Meal Planner": "not json at all",
		}}
		_, _, err := NewGenerator(mock).GenerateMealPlan(context.Background(), prefs, "")
		var genErr *GenerationError
		if !errors.As(err, &genErr) {
			t.Fatalf("Expected GenerationError, got %v", err)
		}
	})

	t.Run("WrongMealCount", func(t *testing.T) {
		mock := &MockTextGenerator{responses: map[string]string{
			"Quick-Cooking Meal Planner": `{"meals": [{"name": "Solo", "active_time_minutes": 10, "ingredients": [{"name": "Rice"}]}]}`,
		}}
		_, _, err := NewGenerator(mock).GenerateMealPlan(context.Background(), prefs, "")
		if err == nil || !strings.Contains(err.Error(), "expected 2 meals") {
			t.Fatalf("Expected meal count error, got %v", err)
		}
	})

	t.Run("CookTimeOverLimit", func(t *testing.T) {
		over := strings.Replace(validPlanJSON, `"active_time_minutes": 15`, `"active_time_minutes": 45`, 1)
		mock := &MockTextGenerator{responses: map[string]string{
			"Quick-Cooking Meal Planner": over,
		}}
		_, _, err := NewGenerator(mock).GenerateMealPlan(context.Background(), prefs, "")
		if err == nil || !strings.Contains(err.Error(), "exceeds limit") {
			t.Fatalf("Expected cook time error, got %v", err)
		}
	})

	t.Run("UpstreamFailure", func(t *testing.T) {
		mock := &MockTextGenerator{err: errors.New("rate limited")}
		_, _, err := NewGenerator(mock).GenerateMealPlan(context.Background(), prefs, "")
		var genErr *GenerationError
		if !errors.As(err, &genErr) {
			t.Fatalf("Expected GenerationError, got %v", err)
		}
	})
}
