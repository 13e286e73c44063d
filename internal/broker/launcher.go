package broker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// Launcher brings the broker up when a probe finds it unreachable: one
// start request to the service manager, then bounded polling until the
// broker answers or the wait budget runs out.
type Launcher struct {
	probe   *Probe
	manager ServiceManager
	unit    string
}

// NewLauncher creates a launcher that starts the given service unit.
func NewLauncher(probe *Probe, manager ServiceManager, unit string) *Launcher {
	return &Launcher{probe: probe, manager: manager, unit: unit}
}

// EnsureRunning returns nil once the broker is reachable. If the initial
// probe fails it issues exactly one start request and polls at
// pollInterval until reachable or maxWait elapses, returning
// ErrUnavailable on timeout. Context cancellation stops the polling loop
// promptly and is returned as the context's error.
func (l *Launcher) EnsureRunning(ctx context.Context, maxWait, pollInterval time.Duration) error {
	if l.probe.Probe(ctx) == StateReachable {
		return nil
	}

	slog.Info("Broker unreachable, requesting start", "unit", l.unit, "maxWait", maxWait)
	if err := l.manager.Start(ctx, l.unit); err != nil {
		// The unit may already be starting; keep polling either way so a
		// racing start does not turn into a spurious failure.
		slog.Warn("Service manager start request failed", "unit", l.unit, "error", err)
	}

	probeOnce := func() (struct{}, error) {
		if l.probe.Probe(ctx) == StateReachable {
			return struct{}{}, nil
		}
		return struct{}{}, ErrUnavailable
	}

	_, err := backoff.Retry(ctx, probeOnce,
		backoff.WithBackOff(backoff.NewConstantBackOff(pollInterval)),
		backoff.WithMaxElapsedTime(maxWait),
	)
	if err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("broker launch wait interrupted: %w", ctx.Err())
		}
		return fmt.Errorf("broker not reachable after %s: %w", maxWait, ErrUnavailable)
	}

	slog.Info("Broker became reachable", "unit", l.unit)
	return nil
}
