package app

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/medialake/preflight/internal/config"
	"github.com/medialake/preflight/internal/index"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Compile the index schema without touching the broker or the search service",
	Long: `Validate loads the configuration and compiles the declared index schema,
reporting every rule violation at once. Nothing is submitted anywhere;
exit status is non-zero exactly when the schema is invalid.`,
	RunE:         runValidate,
	SilenceUsage: true,
}

func init() {
	validateCmd.Flags().String("config", "", "Path to configuration file (YAML format, required)")
	if err := validateCmd.MarkFlagRequired("config"); err != nil {
		panic(fmt.Sprintf("failed to mark config flag required: %v", err))
	}
}

func runValidate(cmd *cobra.Command, _ []string) error {
	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return fmt.Errorf("failed to read config flag: %w", err)
	}

	cfg, err := config.NewConfig(config.WithConfigPath(configPath))
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	schema, err := index.Compile(
		cfg.Index.Schema.Name,
		cfg.Index.Schema.Fields,
		cfg.Index.Schema.Suggesters,
		index.Options{CORS: cfg.Index.Schema.CORSOptions},
	)
	if err != nil {
		var verrs index.Errors
		if errors.As(err, &verrs) {
			out, encErr := json.MarshalIndent(verrs, "", "  ")
			if encErr == nil {
				fmt.Fprintln(os.Stdout, string(out))
			}
			return fmt.Errorf("schema %q is invalid: %d violation(s)", cfg.Index.Schema.Name, len(verrs))
		}
		return err
	}

	slog.Info("Schema is valid",
		"index", schema.Name(),
		"fields", len(schema.Fields()),
		"suggesters", len(schema.Suggesters()))
	return nil
}
