// Package shared holds the small types passed between the LLM layer, the
// planning agents and the metrics store.
package shared

import (
	"time"
)

// TokenUsage tracks the tokens consumed by a single model request.
type TokenUsage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	Model            string
}

// AgentMeta holds operational metadata for one agent execution: the
// preference parser or the meal generator. Recorded after every model call.
type AgentMeta struct {
	AgentName string
	Usage     TokenUsage
	Latency   time.Duration
}
