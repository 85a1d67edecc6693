package approval

import "strings"

// Kind is the recognized category of a human reply.
type Kind string

const (
	// Approved accepts the current plan.
	Approved Kind = "approved"
	// Rejected terminates the flow without creating tasks.
	Rejected Kind = "rejected"
	// Feedback requests regeneration with additional input.
	Feedback Kind = "feedback"
	// Unrecognized replies do not consume the pause; the channel re-prompts.
	Unrecognized Kind = "unrecognized"
)

// Decision is the classified outcome of a human reply to a posted plan.
// A Decision is consumed exactly once per pause cycle.
type Decision struct {
	Kind     Kind
	Feedback string
}

const feedbackPrefix = "feedback:"

// Classify parses a free-text reply into a Decision.
//
// Matching is case-insensitive with a fixed precedence: approve beats reject
// beats feedback. "approve" or a check mark approves; "reject" or a cross
// mark rejects; a "feedback:" prefix regenerates with the trimmed remainder
// (which may be empty). Anything else is Unrecognized: an ambiguous reply
// must never silently approve or reject.
func Classify(text string) Decision {
	trimmed := strings.TrimSpace(text)
	lower := strings.ToLower(trimmed)

	if strings.Contains(lower, "approve") || strings.Contains(lower, "✓") || strings.Contains(lower, "✅") {
		return Decision{Kind: Approved}
	}

	if strings.Contains(lower, "reject") || strings.Contains(lower, "✗") || strings.Contains(lower, "❌") {
		return Decision{Kind: Rejected}
	}

	if strings.HasPrefix(lower, feedbackPrefix) {
		// Keep the remainder's original casing; only the keyword match folds case.
		remainder := strings.TrimSpace(trimmed[len(feedbackPrefix):])
		return Decision{Kind: Feedback, Feedback: remainder}
	}

	return Decision{Kind: Unrecognized}
}
