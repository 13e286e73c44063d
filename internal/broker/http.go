package broker

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	// defaultTimeout is the per-request timeout for management API calls.
	defaultTimeout = 10 * time.Second

	// maxErrorBody caps how much of an error response is read back.
	maxErrorBody = 16 * 1024
)

// HTTPClient is an AdminClient over the broker's management HTTP API
// (the RabbitMQ management plugin layout: /api/aliveness-test and
// /api/queues).
type HTTPClient struct {
	endpoint string
	username string
	password string
	vhost    string
	client   *http.Client
}

// NewHTTPClient creates a management API client. endpoint is the plugin's
// base URL (e.g. http://localhost:15672); vhost defaults to "/" when empty.
func NewHTTPClient(endpoint, username, password, vhost string) (*HTTPClient, error) {
	u, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid broker endpoint: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("broker endpoint must be http or https, got %q", endpoint)
	}
	if vhost == "" {
		vhost = "/"
	}
	return &HTTPClient{
		endpoint: strings.TrimRight(endpoint, "/"),
		username: username,
		password: password,
		vhost:    vhost,
		client:   &http.Client{Timeout: defaultTimeout},
	}, nil
}

// Status checks broker liveness via the aliveness-test endpoint, which
// verifies the broker can serve administrative requests for the vhost.
func (c *HTTPClient) Status(ctx context.Context) error {
	reqURL := fmt.Sprintf("%s/api/aliveness-test/%s", c.endpoint, url.PathEscape(c.vhost))
	resp, err := c.do(ctx, http.MethodGet, reqURL)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("broker status check failed: %s", resp.Status)
	}
	return nil
}

// DeleteQueue removes the named queue from the configured vhost. A 404
// maps to ErrQueueNotFound so callers can treat absence as success.
func (c *HTTPClient) DeleteQueue(ctx context.Context, name string) error {
	reqURL := fmt.Sprintf("%s/api/queues/%s/%s",
		c.endpoint, url.PathEscape(c.vhost), url.PathEscape(name))
	resp, err := c.do(ctx, http.MethodDelete, reqURL)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("queue %q: %w", name, ErrQueueNotFound)
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	default:
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return fmt.Errorf("failed to delete queue %q: %s: %s",
			name, resp.Status, strings.TrimSpace(string(detail)))
	}
}

func (c *HTTPClient) do(ctx context.Context, method, reqURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.SetBasicAuth(c.username, c.password)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("broker management request failed: %w", err)
	}
	return resp, nil
}
