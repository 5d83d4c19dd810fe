// Package llm holds the embedding and completion interfaces plus the shared
// rate limiter all model traffic flows through.
package llm

import "context"

// Usage reports token counts and estimated USD cost for one call.
type Usage struct {
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	CostUSD          float64 `json:"cost_usd"`
}

// Embedder produces a 1536-dimensional vector for a profile prompt.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, Usage, error)
}

// Completer produces a short text completion for nudge generation.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, Usage, error)
}
