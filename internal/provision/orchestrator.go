// Package provision sequences the preflight steps: probe the broker,
// launch it if needed, reset the queue topology, and compile/submit the
// index schema. Broker problems degrade the run; schema problems fail it.
package provision

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/medialake/preflight/internal/broker"
	"github.com/medialake/preflight/internal/index"
	"github.com/medialake/preflight/internal/topology"
)

// Status is the overall outcome of a provisioning run.
type Status string

const (
	// StatusOK means every step completed.
	StatusOK Status = "ok"

	// StatusDegraded means a broker-side step failed but the dependent
	// application may still start with reduced guarantees.
	StatusDegraded Status = "degraded"

	// StatusFailed means a hard precondition was not met; the dependent
	// application must not start.
	StatusFailed Status = "failed"
)

// Per-step outcome values recorded on the Result.
const (
	StepBrokerReachable   = "reachable"
	StepBrokerLaunched    = "launched"
	StepBrokerUnavailable = "unavailable"

	StepTopologyDone    = "done"
	StepTopologyPartial = "partial"
	StepTopologySkipped = "skipped"

	StepSchemaCompiled     = "compiled"
	StepSchemaInvalid      = "invalid"
	StepSchemaSubmitted    = "submitted"
	StepSchemaSubmitFailed = "submit-failed"
	StepSchemaSkipped      = "skipped"

	StepCancelled = "cancelled"
)

// Result is the structured outcome of one run: overall status plus
// per-component detail, including the full accumulated validation error
// list and the topology report.
type Result struct {
	RunID     string `json:"runId"`
	Status    Status `json:"status"`
	Cancelled bool   `json:"cancelled,omitempty"`

	Broker   string `json:"broker"`
	Topology string `json:"topology"`
	Schema   string `json:"schema"`

	TopologyReport   *topology.Report `json:"topologyReport,omitempty"`
	ValidationErrors index.Errors     `json:"validationErrors,omitempty"`
	Detail           string           `json:"detail,omitempty"`
}

// Options wires the orchestrator's collaborators and policy.
type Options struct {
	Probe      *broker.Probe
	Launcher   *broker.Launcher
	Reconciler *topology.Reconciler
	Spec       topology.Spec

	// Schema declaration handed to the compiler
	SchemaName string
	Fields     []index.Field
	Suggesters []index.Suggester
	IndexOpts  index.Options

	// Sink is optional; nil means compile-only
	Sink index.Sink

	// BrokerRequired makes an unreachable broker fatal instead of degraded
	BrokerRequired bool

	MaxWait      time.Duration
	PollInterval time.Duration
}

// Orchestrator runs the provisioning state machine.
type Orchestrator struct {
	opts Options
}

// New creates an orchestrator from the given options.
func New(opts Options) *Orchestrator {
	return &Orchestrator{opts: opts}
}

// Run executes the full sequence. Schema compilation runs independently of
// broker state; a broker that never comes up degrades the run (or fails
// it when BrokerRequired is set) without blocking the schema step.
// Cancellation stops the run promptly with a failed, cancelled result.
func (o *Orchestrator) Run(ctx context.Context) Result {
	res := Result{
		RunID:    uuid.NewString(),
		Broker:   StepBrokerUnavailable,
		Topology: StepTopologySkipped,
		Schema:   StepSchemaSkipped,
	}
	log := slog.With("runId", res.RunID)
	log.Info("Provisioning run starting")

	state := o.runBroker(ctx, log, &res)
	if res.Cancelled {
		res.Status = StatusFailed
		log.Warn("Provisioning cancelled during broker launch")
		return res
	}

	if state == broker.StateReachable {
		report := o.opts.Reconciler.Reset(ctx, o.opts.Spec)
		res.TopologyReport = &report
		if report.Clean() {
			res.Topology = StepTopologyDone
		} else {
			res.Topology = StepTopologyPartial
			log.Warn("Topology reset incomplete", "failed", len(report.Failed()), "total", o.opts.Spec.Len())
		}
	} else {
		log.Warn("Broker unreachable, topology reset skipped")
	}

	o.runSchema(ctx, log, &res)

	res.Status = o.overall(state, &res)
	log.Info("Provisioning run finished",
		"status", res.Status, "broker", res.Broker, "topology", res.Topology, "schema", res.Schema)
	return res
}

// runBroker probes, then launches when unreachable. The broker never
// transitions back to unreachable within a run; a later failure surfaces
// in the topology report instead of re-probing.
func (o *Orchestrator) runBroker(ctx context.Context, log *slog.Logger, res *Result) broker.State {
	if o.opts.Probe.Probe(ctx) == broker.StateReachable {
		res.Broker = StepBrokerReachable
		return broker.StateReachable
	}

	err := o.opts.Launcher.EnsureRunning(ctx, o.opts.MaxWait, o.opts.PollInterval)
	switch {
	case err == nil:
		res.Broker = StepBrokerLaunched
		return broker.StateReachable
	case ctx.Err() != nil:
		res.Broker = StepCancelled
		res.Cancelled = true
		res.Detail = err.Error()
		return broker.StateUnreachable
	case errors.Is(err, broker.ErrUnavailable):
		res.Broker = StepBrokerUnavailable
		res.Detail = err.Error()
		log.Warn("Broker launch timed out", "error", err)
		return broker.StateUnreachable
	default:
		res.Broker = StepBrokerUnavailable
		res.Detail = err.Error()
		log.Warn("Broker launch failed", "error", err)
		return broker.StateUnreachable
	}
}

func (o *Orchestrator) runSchema(ctx context.Context, log *slog.Logger, res *Result) {
	schema, err := index.Compile(o.opts.SchemaName, o.opts.Fields, o.opts.Suggesters, o.opts.IndexOpts)
	if err != nil {
		res.Schema = StepSchemaInvalid
		var verrs index.Errors
		if errors.As(err, &verrs) {
			res.ValidationErrors = verrs
		} else {
			res.Detail = err.Error()
		}
		log.Error("Schema compilation failed", "errors", len(res.ValidationErrors))
		return
	}

	res.Schema = StepSchemaCompiled
	log.Info("Schema compiled", "index", schema.Name(), "fields", len(schema.Fields()))

	if o.opts.Sink == nil {
		return
	}
	if err := o.opts.Sink.Create(ctx, schema); err != nil {
		res.Schema = StepSchemaSubmitFailed
		res.Detail = err.Error()
		log.Error("Schema submission failed", "index", schema.Name(), "error", err)
		return
	}
	res.Schema = StepSchemaSubmitted
	log.Info("Schema submitted", "index", schema.Name())
}

// overall maps step outcomes to the run status. Schema problems always
// fail the run; broker problems fail it only under BrokerRequired and
// otherwise degrade it.
func (o *Orchestrator) overall(state broker.State, res *Result) Status {
	if res.Schema == StepSchemaInvalid || res.Schema == StepSchemaSubmitFailed {
		return StatusFailed
	}
	if state != broker.StateReachable {
		if o.opts.BrokerRequired {
			return StatusFailed
		}
		return StatusDegraded
	}
	if res.Topology == StepTopologyPartial {
		return StatusDegraded
	}
	return StatusOK
}
