package broker

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewHTTPClient(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		endpoint string
		wantErr  bool
	}{
		{name: "http endpoint", endpoint: "http://localhost:15672", wantErr: false},
		{name: "https endpoint", endpoint: "https://broker.internal:15671", wantErr: false},
		{name: "missing scheme", endpoint: "localhost:15672", wantErr: true},
		{name: "unsupported scheme", endpoint: "amqp://localhost:5672", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			client, err := NewHTTPClient(tt.endpoint, "guest", "guest", "/")
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, client)
		})
	}
}

func TestHTTPClientStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		statusCode int
		wantErr    bool
	}{
		{name: "broker healthy", statusCode: http.StatusOK, wantErr: false},
		{name: "broker unhealthy", statusCode: http.StatusServiceUnavailable, wantErr: true},
		{name: "auth rejected", statusCode: http.StatusUnauthorized, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var gotPath string
			var gotUser, gotPass string
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotPath = r.URL.EscapedPath()
				gotUser, gotPass, _ = r.BasicAuth()
				w.WriteHeader(tt.statusCode)
			}))
			defer server.Close()

			client, err := NewHTTPClient(server.URL, "guest", "secret", "/")
			require.NoError(t, err)

			err = client.Status(context.Background())
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}

			assert.Equal(t, "/api/aliveness-test/%2F", gotPath)
			assert.Equal(t, "guest", gotUser)
			assert.Equal(t, "secret", gotPass)
		})
	}
}

func TestHTTPClientStatusConnectionRefused(t *testing.T) {
	t.Parallel()

	// Bind then close so the port is free but listening on nothing.
	server := httptest.NewServer(http.NotFoundHandler())
	endpoint := server.URL
	server.Close()

	client, err := NewHTTPClient(endpoint, "guest", "guest", "/")
	require.NoError(t, err)

	assert.Error(t, client.Status(context.Background()))
}

func TestHTTPClientDeleteQueue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		statusCode   int
		body         string
		wantNotFound bool
		wantErr      bool
	}{
		{name: "deleted", statusCode: http.StatusNoContent},
		{name: "not present", statusCode: http.StatusNotFound, wantNotFound: true, wantErr: true},
		{name: "broker error", statusCode: http.StatusInternalServerError, body: `{"reason":"node down"}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var gotMethod, gotPath string
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotMethod = r.Method
				gotPath = r.URL.EscapedPath()
				w.WriteHeader(tt.statusCode)
				if tt.body != "" {
					_, _ = w.Write([]byte(tt.body))
				}
			}))
			defer server.Close()

			client, err := NewHTTPClient(server.URL, "guest", "guest", "/")
			require.NoError(t, err)

			err = client.DeleteQueue(context.Background(), "audio_processing")
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, tt.wantNotFound, errors.Is(err, ErrQueueNotFound))
				if tt.body != "" {
					assert.Contains(t, err.Error(), "node down")
				}
			} else {
				require.NoError(t, err)
			}

			assert.Equal(t, http.MethodDelete, gotMethod)
			assert.Equal(t, "/api/queues/%2F/audio_processing", gotPath)
		})
	}
}

func TestHTTPClientDeleteQueueCustomVHost(t *testing.T) {
	t.Parallel()

	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client, err := NewHTTPClient(server.URL, "guest", "guest", "media")
	require.NoError(t, err)

	require.NoError(t, client.DeleteQueue(context.Background(), "video_processing"))
	assert.Equal(t, "/api/queues/media/video_processing", gotPath)
}
