package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/resonatelabs/resonate/internal/models"
)

// Claude per-million-token pricing used for cost attribution.
const (
	claudeInputUSDPerMTok  = 0.80
	claudeOutputUSDPerMTok = 4.00
)

// AnthropicCompleter implements Completer on the Anthropic Messages API.
type AnthropicCompleter struct {
	client      anthropic.Client
	model       anthropic.Model
	temperature float64
	maxTokens   int64
	limiter     *Limiter
}

// NewAnthropicCompleter builds the completion client. The limiter is shared
// with the embedder so both count against one window.
func NewAnthropicCompleter(apiKey, model string, temperature float64, maxTokens int, limiter *Limiter) *AnthropicCompleter {
	return &AnthropicCompleter{
		client:      anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:       anthropic.Model(model),
		temperature: temperature,
		maxTokens:   int64(maxTokens),
		limiter:     limiter,
	}
}

func (c *AnthropicCompleter) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, Usage, error) {
	if err := c.limiter.Acquire(ctx); err != nil {
		return "", Usage{}, err
	}

	msg, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:       c.model,
		MaxTokens:   c.maxTokens,
		Temperature: anthropic.Float(c.temperature),
		System:      []anthropic.TextBlockParam{{Text: systemPrompt}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(userPrompt)),
		},
	})
	if err != nil {
		return "", Usage{}, fmt.Errorf("completion: %w: %v", models.ErrUpstream, err)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}

	usage := Usage{
		PromptTokens:     int(msg.Usage.InputTokens),
		CompletionTokens: int(msg.Usage.OutputTokens),
	}
	usage.CostUSD = float64(msg.Usage.InputTokens)/1e6*claudeInputUSDPerMTok +
		float64(msg.Usage.OutputTokens)/1e6*claudeOutputUSDPerMTok

	return strings.TrimSpace(sb.String()), usage, nil
}
