package index

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// sinkTimeout bounds a single index submission.
	sinkTimeout = 30 * time.Second

	// maxErrorBody caps how much of an error response is read back for
	// diagnostics.
	maxErrorBody = 64 * 1024
)

// Sink accepts one compiled schema document and provisions it remotely.
//
//go:generate mockgen -destination=mocks/mock_sink.go -package=mocks github.com/medialake/preflight/internal/index Sink
type Sink interface {
	// Create submits the schema to the hosting service. The schema has
	// already been validated; any error returned here is a transport or
	// provider failure, not a schema problem.
	Create(ctx context.Context, schema *Schema) error
}

// HTTPSink submits schemas to a search service over its REST API.
type HTTPSink struct {
	endpoint   string
	apiVersion string
	apiKey     string
	client     *http.Client
}

// NewHTTPSink creates a sink for the given service endpoint. The endpoint
// must be an absolute http(s) URL (e.g. https://example.search.windows.net).
func NewHTTPSink(endpoint, apiVersion, apiKey string) (*HTTPSink, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid sink endpoint: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("sink endpoint must be http or https, got %q", endpoint)
	}
	return &HTTPSink{
		endpoint:   strings.TrimRight(endpoint, "/"),
		apiVersion: apiVersion,
		apiKey:     apiKey,
		client:     &http.Client{Timeout: sinkTimeout},
	}, nil
}

// Create PUTs the schema document to /indexes/{name}. PUT is idempotent on
// the provider side: it creates the index or updates it in place.
func (s *HTTPSink) Create(ctx context.Context, schema *Schema) error {
	body, err := json.Marshal(schema)
	if err != nil {
		return fmt.Errorf("failed to encode schema document: %w", err)
	}

	reqURL := fmt.Sprintf("%s/indexes/%s?api-version=%s",
		s.endpoint, url.PathEscape(schema.Name()), url.QueryEscape(s.apiVersion))
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, reqURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("api-key", s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to submit schema %q: %w", schema.Name(), err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	return fmt.Errorf("schema %q rejected by provider: %s: %s",
		schema.Name(), resp.Status, strings.TrimSpace(string(detail)))
}
