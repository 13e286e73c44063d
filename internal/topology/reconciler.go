package topology

import (
	"context"
	"errors"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/medialake/preflight/internal/broker"
)

// Outcome is the per-queue result of a reset.
type Outcome string

const (
	// OutcomeDeleted means the queue existed and was deleted.
	OutcomeDeleted Outcome = "deleted"

	// OutcomeNotPresent means the queue did not exist; the target state
	// already held, so this counts as success.
	OutcomeNotPresent Outcome = "not-present"

	// OutcomeError means the broker reported a failure other than
	// absence. The remaining queues are still processed.
	OutcomeError Outcome = "error"
)

// QueueResult records the outcome of one deletion attempt.
type QueueResult struct {
	Queue   string  `json:"queue"`
	Outcome Outcome `json:"outcome"`
	Detail  string  `json:"detail,omitempty"`
}

// Report lists the per-queue outcomes of a reset in spec order.
type Report struct {
	Results []QueueResult `json:"results"`
}

// Failed returns the results whose outcome was OutcomeError.
func (r Report) Failed() []QueueResult {
	var failed []QueueResult
	for _, res := range r.Results {
		if res.Outcome == OutcomeError {
			failed = append(failed, res)
		}
	}
	return failed
}

// Clean reports whether every queue reached the target state.
func (r Report) Clean() bool {
	return len(r.Failed()) == 0
}

// Reconciler drives the broker's queue set toward the declared target
// state (none of the spec's queues defined). Only invoked when the broker
// is reachable.
type Reconciler struct {
	client broker.AdminClient
}

// NewReconciler creates a reconciler over the given admin client.
func NewReconciler(client broker.AdminClient) *Reconciler {
	return &Reconciler{client: client}
}

// Reset deletes every queue in the spec. Attempts are independent and run
// concurrently; one failing queue never blocks the rest, and "does not
// exist" is success. The report preserves spec order regardless of
// completion order, so re-running a clean reset yields only not-present
// outcomes.
func (r *Reconciler) Reset(ctx context.Context, spec Spec) Report {
	queues := spec.Queues()
	results := make([]QueueResult, len(queues))

	g := new(errgroup.Group)
	for i, name := range queues {
		g.Go(func() error {
			results[i] = r.deleteOne(ctx, name)
			return nil
		})
	}
	// Goroutines record outcomes instead of returning errors; Wait only
	// synchronizes.
	_ = g.Wait()

	return Report{Results: results}
}

func (r *Reconciler) deleteOne(ctx context.Context, name string) QueueResult {
	err := r.client.DeleteQueue(ctx, name)
	switch {
	case err == nil:
		slog.Info("Queue deleted", "queue", name)
		return QueueResult{Queue: name, Outcome: OutcomeDeleted}
	case errors.Is(err, broker.ErrQueueNotFound):
		slog.Debug("Queue already absent", "queue", name)
		return QueueResult{Queue: name, Outcome: OutcomeNotPresent}
	default:
		slog.Warn("Queue deletion failed", "queue", name, "error", err)
		return QueueResult{Queue: name, Outcome: OutcomeError, Detail: err.Error()}
	}
}
