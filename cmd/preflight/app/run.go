package app

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/medialake/preflight/internal/broker"
	"github.com/medialake/preflight/internal/config"
	"github.com/medialake/preflight/internal/index"
	"github.com/medialake/preflight/internal/provision"
	"github.com/medialake/preflight/internal/topology"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full provisioning sequence",
	Long: `Run probes the broker (starting it through the service manager when
unreachable), resets the configured queue topology, and compiles the
index schema, submitting it when a search endpoint is configured.

The result document is written to stdout. Exit status is zero for ok and
degraded outcomes and non-zero for failed ones, so a wrapper script can
gate the dependent application's start on it.`,
	RunE:         runRun,
	SilenceUsage: true,
}

func init() {
	runCmd.Flags().String("config", "", "Path to configuration file (YAML format, required)")
	if err := runCmd.MarkFlagRequired("config"); err != nil {
		panic(fmt.Sprintf("failed to mark config flag required: %v", err))
	}
}

func runRun(cmd *cobra.Command, _ []string) error {
	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return fmt.Errorf("failed to read config flag: %w", err)
	}

	cfg, err := config.NewConfig(config.WithConfigPath(configPath))
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	orch, err := buildOrchestrator(cfg)
	if err != nil {
		return err
	}

	// A shutdown signal during the launch wait must stop polling promptly
	// and surface as a failed, cancelled result.
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	result := orch.Run(ctx)

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	fmt.Fprintln(os.Stdout, string(out))

	if result.Status == provision.StatusFailed {
		return fmt.Errorf("provisioning failed (run %s)", result.RunID)
	}
	return nil
}

func buildOrchestrator(cfg *config.Config) (*provision.Orchestrator, error) {
	adminClient, err := broker.NewHTTPClient(
		cfg.Broker.Endpoint, cfg.Broker.Username, cfg.Broker.Password, cfg.Broker.VHost)
	if err != nil {
		return nil, fmt.Errorf("failed to create broker client: %w", err)
	}

	probe := broker.NewProbe(adminClient)
	launcher := broker.NewLauncher(probe, broker.NewSystemdManager(), cfg.Broker.ServiceUnit)

	var sink index.Sink
	if cfg.Index.Endpoint != "" {
		httpSink, err := index.NewHTTPSink(cfg.Index.Endpoint, cfg.Index.APIVersion, cfg.Index.APIKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create schema sink: %w", err)
		}
		sink = httpSink
	}

	return provision.New(provision.Options{
		Probe:          probe,
		Launcher:       launcher,
		Reconciler:     topology.NewReconciler(adminClient),
		Spec:           topology.NewSpec(cfg.Topology.Queues, cfg.Topology.RetrySuffix),
		SchemaName:     cfg.Index.Schema.Name,
		Fields:         cfg.Index.Schema.Fields,
		Suggesters:     cfg.Index.Schema.Suggesters,
		IndexOpts:      index.Options{CORS: cfg.Index.Schema.CORSOptions},
		Sink:           sink,
		BrokerRequired: cfg.Broker.Required,
		MaxWait:        cfg.Broker.MaxWaitDuration(),
		PollInterval:   cfg.Broker.PollIntervalDuration(),
	}), nil
}
