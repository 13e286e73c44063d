// Package topology resets the broker's queue topology to a known-empty
// state before the application starts.
package topology

// Spec is the fixed set of queue names to reconcile for one run. It is
// built once from configuration and never mutated; every base queue is
// paired with a retry-queue counterpart derived from the configured
// suffix.
type Spec struct {
	queues []string
}

// NewSpec derives the full queue set from the base names: each base name
// plus its retry companion, in declaration order. The two entries are
// independent; no ordering dependency exists between them.
func NewSpec(baseNames []string, retrySuffix string) Spec {
	queues := make([]string, 0, len(baseNames)*2)
	for _, name := range baseNames {
		queues = append(queues, name, name+retrySuffix)
	}
	return Spec{queues: queues}
}

// Queues returns the complete queue list in declaration order.
func (s Spec) Queues() []string {
	out := make([]string, len(s.queues))
	copy(out, s.queues)
	return out
}

// Len returns the number of queues in the spec.
func (s Spec) Len() int {
	return len(s.queues)
}
