package services

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/danielrosehill/OpenWebUI-Bulk-Model-Updater/internal/logging"
	"github.com/danielrosehill/OpenWebUI-Bulk-Model-Updater/internal/models"
)

// LogSummary prints the end-of-run summary block
func LogSummary(logger *slog.Logger, summary *models.Summary) {
	logger.Info("Model update process completed")
	logger.Info(fmt.Sprintf("Successfully updated: %d models", summary.Updated))
	logger.Info(fmt.Sprintf("Skipped (already using target model): %d models", summary.Skipped))
	logger.Info(fmt.Sprintf("Failed to update: %d models", summary.Failed))
	if summary.Ignored > 0 {
		logger.Info(fmt.Sprintf("Ignored (missing or duplicate ID): %d models", summary.Ignored))
	}
	logger.Debug(fmt.Sprintf("Run took %s", summary.Duration().Round(time.Millisecond)))

	if summary.Failed > 0 {
		logger.Warn("Some models could not be updated")
		return
	}
	logging.Success(logger, "All applicable models have been successfully updated to use "+summary.TargetModel)
}

// WriteReport saves the summary to path, as JSON when the extension is
// .json and YAML otherwise.
func WriteReport(path string, summary *models.Summary) error {
	var (
		data []byte
		err  error
	)
	if strings.EqualFold(filepath.Ext(path), ".json") {
		data, err = json.MarshalIndent(summary, "", "  ")
	} else {
		data, err = yaml.Marshal(summary)
	}
	if err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create report directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
