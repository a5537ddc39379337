// Package searchengine is the outbound HTTP client for the Meilisearch-
// shaped search engine the sidecar indexes into: bulk document add,
// settings replace, task polling, search, and health.
package searchengine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	sidecarerrors "github.com/thai-tokenizer/sidecar/internal/errors"
	"github.com/thai-tokenizer/sidecar/internal/settings"
)

// Client talks to the search engine's bulk-add, settings, task-polling,
// search and health endpoints, wrapped in a circuit breaker so a
// struggling search engine fails fast instead of queuing retries
// indefinitely. Grounded on the request/response envelope shape used by
// the HTTP segmentation backend client in this codebase, adapted to the
// search engine's own endpoint shapes (spec.md §6).
type Client struct {
	baseURL    string
	apiKey     string
	index      string
	httpClient *http.Client
	breaker    *sidecarerrors.CircuitBreaker
}

// Config configures a Client.
type Config struct {
	BaseURL                  string
	APIKey                   string
	Index                    string
	Timeout                  time.Duration
	CircuitBreakerThreshold  int
	CircuitBreakerResetAfter time.Duration
}

// NewClient creates a Client bound to one index.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		apiKey:     cfg.APIKey,
		index:      cfg.Index,
		httpClient: &http.Client{Timeout: timeout},
		breaker: sidecarerrors.NewCircuitBreaker(
			"search_engine",
			sidecarerrors.WithMaxFailures(nonZero(cfg.CircuitBreakerThreshold, 5)),
			sidecarerrors.WithResetTimeout(nonZeroDuration(cfg.CircuitBreakerResetAfter, 30*time.Second)),
		),
	}
}

func nonZero(v, fallback int) int {
	if v <= 0 {
		return fallback
	}
	return v
}

func nonZeroDuration(v, fallback time.Duration) time.Duration {
	if v <= 0 {
		return fallback
	}
	return v
}

// TaskRef is returned by async-accepted operations.
type TaskRef struct {
	TaskUID int `json:"taskUid"`
}

// TaskStatus is the result of polling a task.
type TaskStatus struct {
	Status string `json:"status"`
}

// SearchRequest is the outbound query payload.
type SearchRequest struct {
	Query string `json:"q"`
}

// SearchResponse is the inbound search result envelope.
type SearchResponse struct {
	Hits               []map[string]any              `json:"hits"`
	ProcessingTimeMs   float64                        `json:"processingTimeMs"`
	EstimatedTotalHits int                            `json:"estimatedTotalHits"`
	Formatted          map[string]map[string]string   `json:"_formatted,omitempty"`
}

// HealthResponse mirrors the search engine's liveness probe.
type HealthResponse struct {
	Status string `json:"status"`
}

// BulkAddDocuments pushes a batch of documents to the search engine's
// bulk-add endpoint and returns the async task id.
func (c *Client) BulkAddDocuments(ctx context.Context, docs []map[string]any) (int, error) {
	path := fmt.Sprintf("/indexes/%s/documents", c.index)
	var ref TaskRef
	err := c.doJSON(ctx, http.MethodPost, path, docs, &ref)
	if err != nil {
		return 0, err
	}
	return ref.TaskUID, nil
}

// ReplaceSettings pushes a full settings replace.
func (c *Client) ReplaceSettings(ctx context.Context, s settings.Settings) (int, error) {
	path := fmt.Sprintf("/indexes/%s/settings", c.index)
	payload := toWirePayload(s)
	var ref TaskRef
	err := c.doJSON(ctx, http.MethodPatch, path, payload, &ref)
	if err != nil {
		return 0, err
	}
	return ref.TaskUID, nil
}

// PollTask checks the status of a previously submitted task.
func (c *Client) PollTask(ctx context.Context, taskUID int) (TaskStatus, error) {
	path := fmt.Sprintf("/tasks/%d", taskUID)
	var status TaskStatus
	err := c.doJSON(ctx, http.MethodGet, path, nil, &status)
	return status, err
}

// Search issues a query against the index.
func (c *Client) Search(ctx context.Context, req SearchRequest) (SearchResponse, error) {
	path := fmt.Sprintf("/indexes/%s/search", c.index)
	var resp SearchResponse
	err := c.doJSON(ctx, http.MethodPost, path, req, &resp)
	return resp, err
}

// Health checks the search engine's liveness.
func (c *Client) Health(ctx context.Context) (HealthResponse, error) {
	var resp HealthResponse
	err := c.doJSON(ctx, http.MethodGet, "/health", nil, &resp)
	return resp, err
}

// wirePayload is the bit-exact outbound shape of spec.md §6's settings
// payload (camelCase keys, unlike Settings' own snake_case JSON tags).
type wirePayload struct {
	SeparatorTokens      []string            `json:"separatorTokens"`
	NonSeparatorTokens   []string            `json:"nonSeparatorTokens"`
	Dictionary           []string            `json:"dictionary"`
	Synonyms             map[string][]string `json:"synonyms"`
	StopWords            []string            `json:"stopWords"`
	RankingRules         []string            `json:"rankingRules"`
	SearchableAttributes []string            `json:"searchableAttributes"`
	DisplayedAttributes  []string            `json:"displayedAttributes"`
	FilterableAttributes []string            `json:"filterableAttributes"`
	SortableAttributes   []string            `json:"sortableAttributes"`
}

func toWirePayload(s settings.Settings) wirePayload {
	rules := make([]string, 0, len(s.RankingRules))
	for _, r := range s.RankingRules {
		rules = append(rules, string(r))
	}
	return wirePayload{
		SeparatorTokens:      s.SeparatorTokens,
		NonSeparatorTokens:   s.NonSeparatorTokens,
		Dictionary:           s.Dictionary,
		Synonyms:             s.Synonyms,
		StopWords:            s.StopWords,
		RankingRules:         rules,
		SearchableAttributes: s.SearchableAttributes,
		DisplayedAttributes:  s.DisplayedAttributes,
		FilterableAttributes: s.FilterableAttributes,
		SortableAttributes:   s.SortableAttributes,
	}
}

// doJSON runs a single HTTP call through the circuit breaker, encoding
// body as JSON (if non-nil) and decoding the response into out (if
// non-nil).
func (c *Client) doJSON(ctx context.Context, method, path string, body any, out any) error {
	_, err := sidecarerrors.CircuitExecuteWithResult(c.breaker, func() (struct{}, error) {
		return struct{}{}, c.call(ctx, method, path, body, out)
	}, func() (struct{}, error) {
		return struct{}{}, c.breaker.OpenError()
	})
	return err
}

func (c *Client) call(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return sidecarerrors.New(sidecarerrors.ErrCodeInternal, "encode search engine request", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return sidecarerrors.New(sidecarerrors.ErrCodeInternal, "build search engine request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return sidecarerrors.New(sidecarerrors.ErrCodeSearchEngineTransient, "search engine request failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return sidecarerrors.New(sidecarerrors.ErrCodeSearchEngineTransient, "read search engine response", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return sidecarerrors.New(sidecarerrors.ErrCodeSearchEngineTransient, fmt.Sprintf("search engine returned %d", resp.StatusCode), nil)
	}
	if resp.StatusCode >= 400 {
		return sidecarerrors.New(sidecarerrors.ErrCodeSearchEnginePermanent, fmt.Sprintf("search engine returned %d", resp.StatusCode), nil)
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return sidecarerrors.New(sidecarerrors.ErrCodeSearchEnginePermanent, "decode search engine response", err)
		}
	}
	return nil
}
