package llm

import (
	"context"
	"fmt"

	"github.com/tmc/langchaingo/llms/openai"

	"github.com/resonatelabs/resonate/internal/models"
)

// Embedding pricing (text-embedding-3-small), USD per million tokens.
const embeddingUSDPerMTok = 0.02

// OpenAIEmbedder implements Embedder on the OpenAI embeddings API.
type OpenAIEmbedder struct {
	llm     *openai.LLM
	limiter *Limiter
}

// NewOpenAIEmbedder builds the embedding client.
func NewOpenAIEmbedder(apiKey, model string, limiter *Limiter) (*OpenAIEmbedder, error) {
	llm, err := openai.New(openai.WithToken(apiKey), openai.WithEmbeddingModel(model))
	if err != nil {
		return nil, fmt.Errorf("init embedder: %w", err)
	}
	return &OpenAIEmbedder{llm: llm, limiter: limiter}, nil
}

func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, Usage, error) {
	if err := e.limiter.Acquire(ctx); err != nil {
		return nil, Usage{}, err
	}

	vectors, err := e.llm.CreateEmbedding(ctx, []string{text})
	if err != nil {
		return nil, Usage{}, fmt.Errorf("embedding: %w: %v", models.ErrUpstream, err)
	}
	if len(vectors) == 0 {
		return nil, Usage{}, fmt.Errorf("embedding: empty response: %w", models.ErrUpstream)
	}

	// The embeddings endpoint does not report usage; approximate at 4 chars
	// per token for cost attribution.
	tokens := len(text) / 4
	usage := Usage{
		PromptTokens: tokens,
		CostUSD:      float64(tokens) / 1e6 * embeddingUSDPerMTok,
	}
	return vectors[0], usage, nil
}
