// Package vector adapts the external dense-vector index. One vector per user,
// 1536 dimensions, with filterable metadata for ANN candidate retrieval.
package vector

import (
	"context"
	"math"
)

// Dimensions of the embedding space.
const Dimensions = 1536

// Filter is the metadata filter DSL. A plain value means equality; Ne negates.
// Example: Filter{"userId": Ne("u1")} excludes the viewer's own vector.
type Filter map[string]interface{}

// Ne builds a {$ne: value} clause.
func Ne(value interface{}) map[string]interface{} {
	return map[string]interface{}{"$ne": value}
}

// Match is one ANN hit.
type Match struct {
	ID       string                 `json:"id"`
	Score    float64                `json:"score"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// Index is the narrow surface the core consumes.
type Index interface {
	// Upsert writes or replaces a vector with metadata.
	Upsert(ctx context.Context, id string, values []float32, metadata map[string]interface{}) error

	// Query returns the topK nearest vectors passing the filter.
	Query(ctx context.Context, values []float32, topK int, filter Filter) ([]Match, error)

	// Fetch returns the stored vector for an id, or nil when absent.
	Fetch(ctx context.Context, id string) ([]float32, error)

	// Delete removes a vector.
	Delete(ctx context.Context, id string) error
}

// CosineSimilarity is the similarity metric of the index, provided locally for
// score overrides and tests.
func CosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
