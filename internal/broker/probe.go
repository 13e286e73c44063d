package broker

import (
	"context"
	"log/slog"
)

// State is the probed reachability of the broker.
type State string

const (
	// StateUnknown means no probe has completed yet.
	StateUnknown State = "Unknown"

	// StateUnreachable means the last probe failed. This is a normal,
	// expected outcome, not an error condition.
	StateUnreachable State = "Unreachable"

	// StateReachable means the broker accepted an administrative request.
	StateReachable State = "Reachable"
)

// Probe determines whether the broker is ready to accept administrative
// commands.
type Probe struct {
	client AdminClient
}

// NewProbe creates a probe over the given admin client.
func NewProbe(client AdminClient) *Probe {
	return &Probe{client: client}
}

// Probe performs a single status check. Transport failures are reported as
// StateUnreachable; they never propagate as errors.
func (p *Probe) Probe(ctx context.Context) State {
	if err := p.client.Status(ctx); err != nil {
		slog.Debug("Broker probe failed", "error", err)
		return StateUnreachable
	}
	return StateReachable
}
