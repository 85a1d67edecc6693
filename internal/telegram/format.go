package telegram

import (
	"fmt"
	"strings"

	"meal-planner-agent/internal/meal"
	"meal-planner-agent/internal/metrics"
	"meal-planner-agent/internal/todoist"
)

// formatPlanForReview renders the plan plus the reply instructions that make
// the message actionable: the human answers with approve, reject or
// "feedback: ...".
func formatPlanForReview(plan *meal.Plan, attempt, maxAttempts int) string {
	var sb strings.Builder
	sb.WriteString("🍽 *Weekly Meal Plan — Approval Needed*\n")
	if attempt > 0 {
		sb.WriteString(fmt.Sprintf("_Revision %d of %d_\n", attempt, maxAttempts))
	}
	sb.WriteString("\n")

	for i, m := range plan.Meals {
		sb.WriteString(fmt.Sprintf("*Meal %d: %s*", i+1, m.Name))
		if m.ActiveTimeMinutes > 0 {
			sb.WriteString(fmt.Sprintf(" (%d min active)", m.ActiveTimeMinutes))
		}
		sb.WriteString("\n")
		if m.Description != "" {
			sb.WriteString(fmt.Sprintf("_%s_\n", m.Description))
		}
		for _, ing := range m.Ingredients {
			sb.WriteString(fmt.Sprintf("• %s - %s %s\n", ing.Name, ing.Quantity, ing.Unit))
		}
		sb.WriteString("\n")
	}

	if len(plan.SharedIngredients) > 0 {
		sb.WriteString("*Shared Ingredients*\n")
		for _, ing := range plan.SharedIngredients {
			sb.WriteString(fmt.Sprintf("• %s - %s %s\n", ing.Name, ing.Quantity, ing.Unit))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("Reply to this message with:\n")
	sb.WriteString("✅ *approve* — create grocery tasks\n")
	sb.WriteString("❌ *reject* — discard the plan\n")
	sb.WriteString("💬 *feedback: <your changes>* — regenerate\n")
	return sb.String()
}

// formatFinal summarizes the approved plan and the grocery task run.
func formatFinal(plan *meal.Plan, report todoist.Report) string {
	var sb strings.Builder
	sb.WriteString("✅ *Meal Plan Approved!*\n\n")
	for _, m := range plan.Meals {
		sb.WriteString(fmt.Sprintf("• %s\n", m.Name))
	}

	sb.WriteString(fmt.Sprintf("\n🛒 *Grocery tasks*: %d created", len(report.Created)))
	if len(report.Failed) > 0 {
		sb.WriteString(fmt.Sprintf(", %d failed:\n", len(report.Failed)))
		for _, f := range report.Failed {
			sb.WriteString(fmt.Sprintf("  ⚠️ %s\n", f.Content))
		}
	} else {
		sb.WriteString("\n")
	}
	return sb.String()
}

// formatMetricsReport renders the /metrics admin report.
func formatMetricsReport(usage []metrics.DailyUsage, health metrics.SysHealth) string {
	var sb strings.Builder
	sb.WriteString("📊 *Usage & Health Report*\n\n")

	sb.WriteString("🗓 *Recent LLM Activity*\n")
	if len(usage) == 0 {
		sb.WriteString("_No data yet_\n")
	}
	for _, d := range usage {
		sb.WriteString(fmt.Sprintf("• *%s*: %d tokens (%d execs)\n", d.Date, d.TotalPrompt+d.TotalCompletion, d.TotalExecution))
	}

	sb.WriteString("\n🧠 *System Health*\n")
	sb.WriteString(fmt.Sprintf("• RAM: %dMB (Alloc) / %dMB (Sys)\n", health.AllocMB, health.SysMB))
	sb.WriteString(fmt.Sprintf("• Goroutines: %d\n", health.Goroutines))
	sb.WriteString(fmt.Sprintf("• Disk Data: %s\n", health.DataSize))
	return sb.String()
}
