package main

import (
	"context"
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/ZanzyTHEbar/orbis-trust/internal/bootstrap"
	"github.com/ZanzyTHEbar/orbis-trust/internal/config"
	"github.com/ZanzyTHEbar/orbis-trust/internal/monitoring"
)

// buildRuntime is swapped out in tests
var buildRuntime = bootstrap.Build

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "trustctl",
		Short:        "Score news articles with the Orbis model ensemble",
		Long:         "trustctl runs the same model ensemble as the Orbis trust API, offline, against files or stdin.",
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().String("manifest", "", "Path to the model manifest (overrides MODEL_DIR and MODEL_MANIFEST)")
	rootCmd.PersistentFlags().String("transformer-url", "", "Transformer inference server URL (overrides TRANSFORMER_URL)")
	rootCmd.PersistentFlags().Bool("pretty", false, "Indent JSON output")

	rootCmd.AddCommand(newAnalyzeCmd())
	rootCmd.AddCommand(newBatchCmd())
	rootCmd.AddCommand(newModelsCmd())
	return rootCmd
}

// loadRuntime reads configuration, applies flag overrides and loads the ensemble.
// Logs go to stderr so stdout stays machine readable.
func loadRuntime(cmd *cobra.Command) (*bootstrap.Runtime, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	if p, _ := cmd.Flags().GetString("manifest"); p != "" {
		cfg.ManifestPath = p
	}
	if u, _ := cmd.Flags().GetString("transformer-url"); u != "" {
		cfg.TransformerURL = u
	}

	logger := monitoring.NewLoggerTo(cmd.ErrOrStderr(), cfg.LogLevel)
	return buildRuntime(commandContext(cmd), cfg, logger)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func writeJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	if pretty, _ := cmd.Flags().GetBool("pretty"); pretty {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}
