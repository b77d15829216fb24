package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/url"

	"github.com/danielrosehill/OpenWebUI-Bulk-Model-Updater/internal/config"
	"github.com/danielrosehill/OpenWebUI-Bulk-Model-Updater/internal/models"
)

// ConfirmsUpdate reports whether resp is a JSON object echoing id
func ConfirmsUpdate(resp *APIResponse, id string) bool {
	if !resp.IsJSON() {
		return false
	}
	var body map[string]json.RawMessage
	if err := json.Unmarshal(resp.JSON, &body); err != nil || body == nil {
		return false
	}
	raw, ok := body[models.KeyID]
	return ok && models.StringValue(raw) == id
}

// ApplyUpdate posts payload to each of cfg.UpdatePaths in turn until one
// confirms the update. It returns the confirming path. There is no retry
// beyond the path list.
func ApplyUpdate(ctx context.Context, api ModelAPI, cfg *config.Config, payload *models.Model, id string, logger *slog.Logger) (string, bool) {
	query := url.Values{}
	query.Set(models.KeyID, id)

	_, path, ok := FirstSuccess(ctx, cfg.UpdatePaths, func(ctx context.Context, path string) (struct{}, bool) {
		resp, err := api.Post(ctx, path, query, payload)
		if err != nil {
			return struct{}{}, false
		}
		logger.Debug("Update response: "+describe(resp), "path", path, "status", resp.StatusCode)
		return struct{}{}, ConfirmsUpdate(resp, id)
	})
	return path, ok
}
