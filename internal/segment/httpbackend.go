package segment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	sidecarerrors "github.com/thai-tokenizer/sidecar/internal/errors"
)

// HTTPBackend talks to a containerized Thai segmentation service over
// HTTP+JSON. The request/response envelope is grounded on the
// go-pythainlp client: a flat JSON body in, a tokens array out, errors
// surfaced as a structured object rather than bare HTTP status codes.
type HTTPBackend struct {
	name       string
	baseURL    string
	httpClient *http.Client
}

// NewHTTPBackend creates an HTTP-backed segmentation engine. name must
// be one of EngineNewmm, EngineAttacut, EngineDeepcut; it is sent as the
// "engine" field on every request so a single container can multiplex
// several engines.
func NewHTTPBackend(name, baseURL string, timeout time.Duration) *HTTPBackend {
	return &HTTPBackend{
		name:    name,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// Name returns the engine tag this backend was constructed with.
func (b *HTTPBackend) Name() string { return b.name }

type tokenizeRequest struct {
	Text       string   `json:"text"`
	Engine     string   `json:"engine"`
	Dictionary []string `json:"dictionary,omitempty"`
	KeepSpace  bool     `json:"keep_whitespace,omitempty"`
}

type serviceError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type tokenizeResponse struct {
	Tokens []string      `json:"tokens"`
	Error  *serviceError `json:"error"`
}

// Segment posts text to the backend's /tokenize endpoint and returns the
// resulting surface tokens.
func (b *HTTPBackend) Segment(ctx context.Context, text string, opts Options) ([]string, error) {
	reqBody := tokenizeRequest{
		Text:       text,
		Engine:     b.name,
		Dictionary: opts.CustomDictionary,
		KeepSpace:  opts.KeepWhitespace,
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, sidecarerrors.SegmenterError("marshal tokenize request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/tokenize", bytes.NewReader(body))
	if err != nil {
		return nil, sidecarerrors.SegmenterError("create tokenize request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, sidecarerrors.New(sidecarerrors.ErrCodeSegmenterUnavailable, fmt.Sprintf("%s backend unreachable", b.name), err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, sidecarerrors.SegmenterError("read tokenize response", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, sidecarerrors.New(sidecarerrors.ErrCodeSegmenterFailure,
			fmt.Sprintf("%s backend returned status %d", b.name, resp.StatusCode), nil)
	}

	var out tokenizeResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, sidecarerrors.SegmenterError("decode tokenize response", err)
	}
	if out.Error != nil {
		return nil, sidecarerrors.New(sidecarerrors.ErrCodeSegmenterFailure, out.Error.Message, nil)
	}

	return out.Tokens, nil
}

// Health checks whether the backend's container is responding.
func (b *HTTPBackend) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := b.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("backend %s unhealthy: status %d", b.name, resp.StatusCode)
	}
	return nil
}
