package vector

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/resonatelabs/resonate/internal/models"
)

// Client talks to a Pinecone-compatible index over HTTP. All calls share a
// circuit breaker so a degraded index trips fast instead of queueing.
type Client struct {
	host      string
	apiKey    string
	namespace string
	http      *http.Client
	breaker   *gobreaker.CircuitBreaker
}

// ClientOptions configures the index endpoint.
type ClientOptions struct {
	Host      string
	APIKey    string
	Namespace string
	Timeout   time.Duration
}

// NewClient builds an index client.
func NewClient(opts ClientOptions) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 4 * time.Second
	}
	return &Client{
		host:      opts.Host,
		apiKey:    opts.APIKey,
		namespace: opts.Namespace,
		http:      &http.Client{Timeout: opts.Timeout},
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        "vector-index",
			MaxRequests: 3,
			Interval:    30 * time.Second,
			Timeout:     15 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
		}),
	}
}

type upsertRequest struct {
	Vectors   []upsertVector `json:"vectors"`
	Namespace string         `json:"namespace,omitempty"`
}

type upsertVector struct {
	ID       string                 `json:"id"`
	Values   []float32              `json:"values"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

type queryRequest struct {
	Vector          []float32 `json:"vector"`
	TopK            int       `json:"topK"`
	Filter          Filter    `json:"filter,omitempty"`
	Namespace       string    `json:"namespace,omitempty"`
	IncludeMetadata bool      `json:"includeMetadata"`
}

type queryResponse struct {
	Matches []Match `json:"matches"`
}

type fetchResponse struct {
	Vectors map[string]struct {
		Values []float32 `json:"values"`
	} `json:"vectors"`
}

type deleteRequest struct {
	IDs       []string `json:"ids"`
	Namespace string   `json:"namespace,omitempty"`
}

func (c *Client) Upsert(ctx context.Context, id string, values []float32, metadata map[string]interface{}) error {
	if len(values) != Dimensions {
		return fmt.Errorf("vector for %s has %d dims, want %d: %w", id, len(values), Dimensions, models.ErrValidation)
	}
	req := upsertRequest{
		Vectors:   []upsertVector{{ID: id, Values: values, Metadata: metadata}},
		Namespace: c.namespace,
	}
	return c.post(ctx, "/vectors/upsert", req, nil)
}

func (c *Client) Query(ctx context.Context, values []float32, topK int, filter Filter) ([]Match, error) {
	req := queryRequest{
		Vector:          values,
		TopK:            topK,
		Filter:          filter,
		Namespace:       c.namespace,
		IncludeMetadata: true,
	}
	var resp queryResponse
	if err := c.post(ctx, "/query", req, &resp); err != nil {
		return nil, err
	}
	return resp.Matches, nil
}

func (c *Client) Fetch(ctx context.Context, id string) ([]float32, error) {
	var resp fetchResponse
	path := fmt.Sprintf("/vectors/fetch?ids=%s&namespace=%s", id, c.namespace)
	if err := c.do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	v, ok := resp.Vectors[id]
	if !ok {
		return nil, nil
	}
	return v.Values, nil
}

func (c *Client) Delete(ctx context.Context, id string) error {
	return c.post(ctx, "/vectors/delete", deleteRequest{IDs: []string{id}, Namespace: c.namespace}, nil)
}

func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	return c.do(ctx, http.MethodPost, path, body, out)
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	_, err := c.breaker.Execute(func() (interface{}, error) {
		var reader io.Reader
		if body != nil {
			raw, err := json.Marshal(body)
			if err != nil {
				return nil, fmt.Errorf("encode %s: %w", path, err)
			}
			reader = bytes.NewReader(raw)
		}
		req, err := http.NewRequestWithContext(ctx, method, c.host+path, reader)
		if err != nil {
			return nil, fmt.Errorf("build %s: %w", path, err)
		}
		req.Header.Set("Api-Key", c.apiKey)
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.http.Do(req)
		if err != nil {
			return nil, fmt.Errorf("vector index %s: %w: %v", path, models.ErrUpstream, err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
			return nil, fmt.Errorf("vector index %s returned %d: %s: %w", path, resp.StatusCode, raw, models.ErrUpstream)
		}
		if out != nil {
			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				return nil, fmt.Errorf("decode %s: %w", path, err)
			}
		}
		return nil, nil
	})
	if err != nil && !isWrapped(err) {
		// Breaker-open errors carry no kind; classify as upstream.
		return fmt.Errorf("vector index %s: %w: %v", path, models.ErrUpstream, err)
	}
	return err
}

func isWrapped(err error) bool {
	return errors.Is(err, models.ErrUpstream) || errors.Is(err, models.ErrValidation)
}
