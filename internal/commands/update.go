package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/danielrosehill/OpenWebUI-Bulk-Model-Updater/internal/logging"
	"github.com/danielrosehill/OpenWebUI-Bulk-Model-Updater/internal/services"
)

func newUpdateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "update",
		Short: "Update every model to the target base model",
		Long: `Fetch all models, then send each one back with base_model_id set to the
target model. Models already on the target are skipped. Individual failures
are reported in the summary and do not stop the run.`,
		Args: cobra.NoArgs,
		RunE: runUpdate,
	}
}

func runUpdate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := logging.Init(cmd.OutOrStdout(), cfg.Debug)

	logger.Info("Starting model update process...")
	logger.Info("Target model: " + cfg.TargetModel)
	logger.Info("Using OpenWebUI URL: " + cfg.APIBaseURL())
	logger.Debug("Resolved configuration", "profile", cfg.Profile, "mode", cfg.Mode(), "workers", cfg.Workers)

	metrics := services.NewMetrics()
	client := services.NewOpenWebUIClient(cfg, logger, metrics)

	records, err := services.FetchCollection(cmd.Context(), client, cfg, logger)
	switch {
	case errors.Is(err, services.ErrNoModels):
		logger.Error("No models found in the API response")
		return err
	case err != nil:
		logger.Error("Failed to fetch models from any endpoint")
		return err
	}
	logger.Info(fmt.Sprintf("Found %d models to update", len(records)))

	updater := services.NewBatchUpdater(client, cfg, logger, metrics, cmd.ErrOrStderr())
	summary := updater.Run(cmd.Context(), records)
	services.LogSummary(logger, summary)

	// the run itself succeeded; output files are best effort
	if cfg.ReportPath != "" {
		if err := services.WriteReport(cfg.ReportPath, summary); err != nil {
			logger.Error(err.Error())
		} else {
			logger.Info("Run report written to " + cfg.ReportPath)
		}
	}
	if cfg.MetricsFile != "" {
		if err := metrics.WriteTextfile(cfg.MetricsFile); err != nil {
			logger.Error(err.Error())
		} else {
			logger.Debug("Metrics written to " + cfg.MetricsFile)
		}
	}

	return nil
}
