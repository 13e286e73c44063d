package provision_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/medialake/preflight/internal/broker"
	brokermocks "github.com/medialake/preflight/internal/broker/mocks"
	"github.com/medialake/preflight/internal/index"
	indexmocks "github.com/medialake/preflight/internal/index/mocks"
	"github.com/medialake/preflight/internal/provision"
	"github.com/medialake/preflight/internal/topology"
)

var errDown = errors.New("connection refused")

func validSchemaFields() []index.Field {
	return []index.Field{
		{Name: "id", Type: index.TypeString, Key: true},
		{Name: "content", Type: index.TypeString, Searchable: true},
		{Name: "file_type", Type: index.TypeString, Filterable: true},
	}
}

type fixture struct {
	client  *brokermocks.MockAdminClient
	manager *brokermocks.MockServiceManager
	opts    provision.Options
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	client := brokermocks.NewMockAdminClient(ctrl)
	manager := brokermocks.NewMockServiceManager(ctrl)
	probe := broker.NewProbe(client)

	return &fixture{
		client:  client,
		manager: manager,
		opts: provision.Options{
			Probe:        probe,
			Launcher:     broker.NewLauncher(probe, manager, "rabbitmq-server"),
			Reconciler:   topology.NewReconciler(client),
			Spec:         topology.NewSpec([]string{"audio_processing"}, "_retry"),
			SchemaName:   "media-content",
			Fields:       validSchemaFields(),
			MaxWait:      50 * time.Millisecond,
			PollInterval: 10 * time.Millisecond,
		},
	}
}

func TestRunAllStepsSucceed(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.client.EXPECT().Status(gomock.Any()).Return(nil)
	f.client.EXPECT().DeleteQueue(gomock.Any(), "audio_processing").Return(nil)
	f.client.EXPECT().DeleteQueue(gomock.Any(), "audio_processing_retry").
		Return(fmt.Errorf("queue: %w", broker.ErrQueueNotFound))

	res := provision.New(f.opts).Run(context.Background())

	assert.Equal(t, provision.StatusOK, res.Status)
	assert.Equal(t, provision.StepBrokerReachable, res.Broker)
	assert.Equal(t, provision.StepTopologyDone, res.Topology)
	assert.Equal(t, provision.StepSchemaCompiled, res.Schema)
	assert.NotEmpty(t, res.RunID)
	assert.False(t, res.Cancelled)
	require.NotNil(t, res.TopologyReport)
	assert.Len(t, res.TopologyReport.Results, 2)
}

func TestRunBrokerUnavailableDegrades(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	// Broker never answers: initial probe plus launch polling all fail,
	// and topology reset must never be attempted.
	f.client.EXPECT().Status(gomock.Any()).Return(errDown).AnyTimes()
	f.manager.EXPECT().Start(gomock.Any(), "rabbitmq-server").Return(nil).Times(1)

	res := provision.New(f.opts).Run(context.Background())

	assert.Equal(t, provision.StatusDegraded, res.Status)
	assert.Equal(t, provision.StepBrokerUnavailable, res.Broker)
	assert.Equal(t, provision.StepTopologySkipped, res.Topology)
	assert.Nil(t, res.TopologyReport)
	// Schema compilation runs independently of broker state.
	assert.Equal(t, provision.StepSchemaCompiled, res.Schema)
}

func TestRunBrokerLaunchedAfterWait(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	gomock.InOrder(
		f.client.EXPECT().Status(gomock.Any()).Return(errDown), // orchestrator probe
		f.client.EXPECT().Status(gomock.Any()).Return(errDown), // launcher initial probe
		f.client.EXPECT().Status(gomock.Any()).Return(nil),     // poll succeeds
	)
	f.manager.EXPECT().Start(gomock.Any(), "rabbitmq-server").Return(nil).Times(1)
	f.client.EXPECT().DeleteQueue(gomock.Any(), gomock.Any()).Return(nil).Times(2)

	res := provision.New(f.opts).Run(context.Background())

	assert.Equal(t, provision.StatusOK, res.Status)
	assert.Equal(t, provision.StepBrokerLaunched, res.Broker)
	assert.Equal(t, provision.StepTopologyDone, res.Topology)
}

func TestRunPartialTopologyDegrades(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.client.EXPECT().Status(gomock.Any()).Return(nil)
	f.client.EXPECT().DeleteQueue(gomock.Any(), "audio_processing").Return(errors.New("precondition failed"))
	f.client.EXPECT().DeleteQueue(gomock.Any(), "audio_processing_retry").Return(nil)

	res := provision.New(f.opts).Run(context.Background())

	assert.Equal(t, provision.StatusDegraded, res.Status)
	assert.Equal(t, provision.StepTopologyPartial, res.Topology)
	require.NotNil(t, res.TopologyReport)
	assert.Len(t, res.TopologyReport.Failed(), 1)
	// A degraded topology never blocks the schema step.
	assert.Equal(t, provision.StepSchemaCompiled, res.Schema)
}

func TestRunInvalidSchemaFails(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.client.EXPECT().Status(gomock.Any()).Return(nil)
	f.client.EXPECT().DeleteQueue(gomock.Any(), gomock.Any()).Return(nil).Times(2)

	// Two key fields plus a facetable/filterable violation.
	f.opts.Fields = []index.Field{
		{Name: "id", Type: index.TypeString, Key: true},
		{Name: "alt_id", Type: index.TypeString, Key: true},
		{Name: "file_type", Type: index.TypeString, Facetable: true},
	}

	res := provision.New(f.opts).Run(context.Background())

	assert.Equal(t, provision.StatusFailed, res.Status)
	assert.Equal(t, provision.StepSchemaInvalid, res.Schema)
	// The full accumulated violation list is surfaced, not just the first.
	assert.True(t, res.ValidationErrors.Has(index.RuleMultipleKeyFields))
	assert.True(t, res.ValidationErrors.Has(index.RuleFacetableFilterable))
}

func TestRunSchemaFailsEvenWhenBrokerDegraded(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.client.EXPECT().Status(gomock.Any()).Return(errDown).AnyTimes()
	f.manager.EXPECT().Start(gomock.Any(), gomock.Any()).Return(nil).Times(1)

	f.opts.Fields = []index.Field{{Name: "content", Type: index.TypeString, Searchable: true}}

	res := provision.New(f.opts).Run(context.Background())

	// Schema failure dominates: failed, not degraded.
	assert.Equal(t, provision.StatusFailed, res.Status)
	assert.Equal(t, provision.StepSchemaInvalid, res.Schema)
	assert.True(t, res.ValidationErrors.Has(index.RuleMissingKeyField))
}

func TestRunSubmitsSchemaToSink(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctrl := gomock.NewController(t)
	sink := indexmocks.NewMockSink(ctrl)

	f.client.EXPECT().Status(gomock.Any()).Return(nil)
	f.client.EXPECT().DeleteQueue(gomock.Any(), gomock.Any()).Return(nil).Times(2)
	sink.EXPECT().Create(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, schema *index.Schema) error {
			assert.Equal(t, "media-content", schema.Name())
			return nil
		})

	f.opts.Sink = sink
	res := provision.New(f.opts).Run(context.Background())

	assert.Equal(t, provision.StatusOK, res.Status)
	assert.Equal(t, provision.StepSchemaSubmitted, res.Schema)
}

func TestRunSinkFailureFails(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctrl := gomock.NewController(t)
	sink := indexmocks.NewMockSink(ctrl)

	f.client.EXPECT().Status(gomock.Any()).Return(nil)
	f.client.EXPECT().DeleteQueue(gomock.Any(), gomock.Any()).Return(nil).Times(2)
	sink.EXPECT().Create(gomock.Any(), gomock.Any()).Return(errors.New("503 service unavailable"))

	f.opts.Sink = sink
	res := provision.New(f.opts).Run(context.Background())

	assert.Equal(t, provision.StatusFailed, res.Status)
	assert.Equal(t, provision.StepSchemaSubmitFailed, res.Schema)
	assert.Contains(t, res.Detail, "503")
}

func TestRunBrokerRequiredFails(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.client.EXPECT().Status(gomock.Any()).Return(errDown).AnyTimes()
	f.manager.EXPECT().Start(gomock.Any(), gomock.Any()).Return(nil).Times(1)

	f.opts.BrokerRequired = true
	res := provision.New(f.opts).Run(context.Background())

	assert.Equal(t, provision.StatusFailed, res.Status)
	assert.Equal(t, provision.StepBrokerUnavailable, res.Broker)
	assert.Equal(t, provision.StepTopologySkipped, res.Topology)
}

func TestRunCancelledDuringLaunchWait(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.client.EXPECT().Status(gomock.Any()).Return(errDown).AnyTimes()
	f.manager.EXPECT().Start(gomock.Any(), gomock.Any()).Return(nil).Times(1)

	f.opts.MaxWait = 10 * time.Second

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(30*time.Millisecond, cancel)

	start := time.Now()
	res := provision.New(f.opts).Run(ctx)
	elapsed := time.Since(start)

	assert.Equal(t, provision.StatusFailed, res.Status)
	assert.True(t, res.Cancelled)
	assert.Equal(t, provision.StepCancelled, res.Broker)
	assert.Less(t, elapsed, time.Second, "cancellation must end the run promptly")
}

func TestRunDegradedScenarioFromTimeout(t *testing.T) {
	t.Parallel()

	// Broker unreachable, launch times out; topology is skipped but the
	// schema step still runs and succeeds on its own.
	f := newFixture(t)
	f.client.EXPECT().Status(gomock.Any()).Return(errDown).AnyTimes()
	f.manager.EXPECT().Start(gomock.Any(), "rabbitmq-server").Return(nil).Times(1)

	f.opts.Spec = topology.NewSpec([]string{"audio_processing"}, "_retry")
	f.opts.MaxWait = 50 * time.Millisecond

	res := provision.New(f.opts).Run(context.Background())

	assert.Equal(t, provision.StatusDegraded, res.Status)
	assert.Equal(t, provision.StepTopologySkipped, res.Topology)
	assert.Equal(t, provision.StepSchemaCompiled, res.Schema)
}
