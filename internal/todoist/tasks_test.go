package todoist

import (
	"context"
	"errors"
	"strings"
	"testing"

	"meal-planner-agent/internal/meal"
	"meal-planner-agent/internal/security"
)

const groceryProjectID = "2345678901"

func twoMealPlan() *meal.Plan {
	return &meal.Plan{
		Meals: []meal.Meal{
			{
				Name: "Garlic Noodles",
				Ingredients: []meal.Ingredient{
					{Name: "Garlic", Quantity: "3", Unit: "cloves"},
					{Name: "Noodles", Quantity: "200", Unit: "g", ShoppingNotes: "fresh"},
				},
			},
			{
				Name: "Chickpea Salad",
				Ingredients: []meal.Ingredient{
					{Name: "Garlic", Quantity: "1", Unit: "clove"},
				},
			},
		},
		SharedIngredients: []meal.Ingredient{
			{Name: "Olive Oil", Quantity: "4", Unit: "tbsp"},
		},
	}
}

func TestBuildGroceryTasks(t *testing.T) {
	tasks := BuildGroceryTasks(twoMealPlan(), groceryProjectID)

	if len(tasks) != 4 {
		t.Fatalf("Expected 4 tasks (one per ingredient occurrence), got %d", len(tasks))
	}

	if tasks[0].Content != "[Garlic Noodles] Garlic - 3 cloves" {
		t.Errorf("Unexpected first task content: %q", tasks[0].Content)
	}
	if tasks[1].Content != "[Garlic Noodles] Noodles - 200 g (fresh)" {
		t.Errorf("Shopping notes missing from content: %q", tasks[1].Content)
	}
	if tasks[3].Content != "[Shared] Olive Oil - 4 tbsp" {
		t.Errorf("Shared ingredient should come last with Shared prefix: %q", tasks[3].Content)
	}

	for i, task := range tasks {
		if task.ProjectID != groceryProjectID {
			t.Errorf("Task %d has wrong project id %q", i, task.ProjectID)
		}
		if task.DueString != "tomorrow" {
			t.Errorf("Task %d missing due string", i)
		}
	}

	if got := strings.Join(tasks[3].Labels, ","); got != "grocery,meal-prep,this-week,shared" {
		t.Errorf("Shared task labels wrong: %s", got)
	}
	if got := strings.Join(tasks[0].Labels, ","); got != "grocery,meal-prep,this-week" {
		t.Errorf("Meal task labels wrong: %s", got)
	}
}

func TestBuildGroceryTasksDuplicatesNotMerged(t *testing.T) {
	tasks := BuildGroceryTasks(twoMealPlan(), groceryProjectID)

	var garlicTasks []string
	for _, task := range tasks {
		if strings.Contains(task.Content, "Garlic -") {
			garlicTasks = append(garlicTasks, task.Content)
		}
	}
	if len(garlicTasks) != 2 {
		t.Fatalf("Expected 2 separate garlic tasks, got %d: %v", len(garlicTasks), garlicTasks)
	}
	if garlicTasks[0] == garlicTasks[1] {
		t.Error("Garlic tasks should carry their own meal prefix and quantity")
	}
}

type fakeWriter struct {
	failContaining string
	created        []GroceryTask
}

func (f *fakeWriter) CreateTask(ctx context.Context, task GroceryTask) (*TaskResult, error) {
	if f.failContaining != "" && strings.Contains(task.Content, f.failContaining) {
		return nil, &RemoteTaskError{TaskContent: task.Content, Err: errors.New("service unavailable")}
	}
	f.created = append(f.created, task)
	return &TaskResult{ID: "task-id", Content: task.Content}, nil
}

func TestCreateGroceryTasks(t *testing.T) {
	w := &fakeWriter{}
	report := CreateGroceryTasks(context.Background(), w, twoMealPlan(), groceryProjectID)

	if len(report.Created) != 4 || len(report.Failed) != 0 {
		t.Fatalf("Expected 4 created / 0 failed, got %d / %d", len(report.Created), len(report.Failed))
	}
	if got := meal.CountTotalIngredients(twoMealPlan()); got != len(report.Created) {
		t.Errorf("Created count %d should match total ingredient count %d", len(report.Created), got)
	}
}

func TestCreateGroceryTasksPartialFailure(t *testing.T) {
	// Match the ingredient segment, not the meal prefix: every task of the
	// meal "Garlic Noodles" carries "Noodles" in its prefix.
	w := &fakeWriter{failContaining: "] Noodles"}
	report := CreateGroceryTasks(context.Background(), w, twoMealPlan(), groceryProjectID)

	if len(report.Created) != 3 {
		t.Errorf("Expected 3 created despite one failure, got %d", len(report.Created))
	}
	if len(report.Failed) != 1 {
		t.Fatalf("Expected 1 failure, got %d", len(report.Failed))
	}
	if report.Failed[0].Content != "[Garlic Noodles] Noodles - 200 g (fresh)" {
		t.Errorf("Wrong failed task recorded: %q", report.Failed[0].Content)
	}
	var remoteErr *RemoteTaskError
	if !errors.As(report.Failed[0].Err, &remoteErr) {
		t.Errorf("Expected RemoteTaskError in failure, got %T", report.Failed[0].Err)
	}
}

type gatedFakeWriter struct {
	gate    *security.Gate
	created int
}

func (f *gatedFakeWriter) CreateTask(ctx context.Context, task GroceryTask) (*TaskResult, error) {
	if err := f.gate.ValidateProjectID(task.ProjectID); err != nil {
		return nil, err
	}
	f.created++
	return &TaskResult{Content: task.Content}, nil
}

type countingAuditor struct {
	incidents int
}

func (c *countingAuditor) RecordIncident(security.Incident) error {
	c.incidents++
	return nil
}

func TestCreateGroceryTasksWrongProjectDeniedEverywhere(t *testing.T) {
	auditor := &countingAuditor{}
	gate := security.NewGate(groceryProjectID, auditor)
	w := &gatedFakeWriter{gate: gate}

	report := CreateGroceryTasks(context.Background(), w, twoMealPlan(), "999")

	if w.created != 0 {
		t.Errorf("Expected zero tasks created for wrong project, got %d", w.created)
	}
	if len(report.Created) != 0 {
		t.Errorf("Expected empty created list, got %d", len(report.Created))
	}
	if len(report.Failed) != 4 {
		t.Fatalf("Expected every task to fail the gate, got %d failures", len(report.Failed))
	}
	for _, f := range report.Failed {
		var denied *security.AccessDeniedError
		if !errors.As(f.Err, &denied) {
			t.Errorf("Expected AccessDeniedError for %q, got %T", f.Content, f.Err)
		}
	}
	if auditor.incidents != 4 {
		t.Errorf("Expected one security incident per denied task, got %d", auditor.incidents)
	}
}
