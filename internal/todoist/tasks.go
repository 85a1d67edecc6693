package todoist

import (
	"context"
	"fmt"
	"log"

	"meal-planner-agent/internal/meal"
)

// TaskFailure records a single task that could not be created.
type TaskFailure struct {
	Content string
	Err     error
}

// Report summarizes a task-creation run: what was created and what failed,
// with reasons. Nothing is swallowed silently.
type Report struct {
	Created []TaskResult
	Failed  []TaskFailure
}

// BuildGroceryTasks converts a meal plan into one grocery task per
// ingredient occurrence: each meal's ingredients in order, then the shared
// ingredients. An ingredient appearing in two meals yields two tasks;
// quantities are never merged, you are shopping for both meals.
func BuildGroceryTasks(plan *meal.Plan, projectID string) []GroceryTask {
	var tasks []GroceryTask

	for _, m := range plan.Meals {
		for _, ing := range m.Ingredients {
			tasks = append(tasks, GroceryTask{
				Content:   taskContent(m.Name, ing),
				ProjectID: projectID,
				Labels:    []string{"grocery", "meal-prep", "this-week"},
				DueString: "tomorrow",
			})
		}
	}

	for _, ing := range plan.SharedIngredients {
		tasks = append(tasks, GroceryTask{
			Content:   taskContent("Shared", ing),
			ProjectID: projectID,
			Labels:    []string{"grocery", "meal-prep", "this-week", "shared"},
			DueString: "tomorrow",
		})
	}

	return tasks
}

// CreateGroceryTasks creates every grocery task for the plan. A single
// task's failure (gate denial or remote error) is recorded and does not
// abort the remaining tasks.
func CreateGroceryTasks(ctx context.Context, w TaskWriter, plan *meal.Plan, projectID string) Report {
	tasks := BuildGroceryTasks(plan, projectID)

	report := Report{}
	for _, task := range tasks {
		result, err := w.CreateTask(ctx, task)
		if err != nil {
			log.Printf("Failed to create grocery task %q: %v", task.Content, err)
			report.Failed = append(report.Failed, TaskFailure{Content: task.Content, Err: err})
			continue
		}
		report.Created = append(report.Created, *result)
	}

	log.Printf("Grocery task creation finished: %d created, %d failed", len(report.Created), len(report.Failed))
	return report
}

func taskContent(prefix string, ing meal.Ingredient) string {
	content := fmt.Sprintf("[%s] %s - %s %s", prefix, ing.Name, ing.Quantity, ing.Unit)
	if ing.ShoppingNotes != "" {
		content += fmt.Sprintf(" (%s)", ing.ShoppingNotes)
	}
	return content
}
