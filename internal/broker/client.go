// Package broker talks to the message broker's management interface: a
// reachability probe, a launcher that asks the host service manager to
// start the broker, and queue deletion for topology resets.
package broker

import (
	"context"
	"errors"
)

// ErrQueueNotFound is returned by DeleteQueue when the queue does not
// exist. Callers treat it as an idempotent-success signal, not a failure.
var ErrQueueNotFound = errors.New("queue not found")

// ErrUnavailable is returned when the broker could not be reached within
// the launcher's wait budget. It is recoverable: provisioning continues in
// degraded mode.
var ErrUnavailable = errors.New("broker unavailable")

// AdminClient is the broker's administrative surface. The broker's wire
// protocol is out of scope; only status checks and queue deletion are
// consumed.
//
//go:generate mockgen -destination=mocks/mock_client.go -package=mocks github.com/medialake/preflight/internal/broker AdminClient,ServiceManager
type AdminClient interface {
	// Status performs one synchronous health check against the broker's
	// management interface.
	Status(ctx context.Context) error

	// DeleteQueue removes the named queue. Returns ErrQueueNotFound when
	// the queue does not exist.
	DeleteQueue(ctx context.Context, name string) error
}

// ServiceManager starts the broker process through the host's service
// manager when it is not running.
type ServiceManager interface {
	// Start requests that the named service unit be started. A nil return
	// means the request was accepted, not that the service is ready.
	Start(ctx context.Context, unit string) error
}
