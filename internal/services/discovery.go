package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/danielrosehill/OpenWebUI-Bulk-Model-Updater/internal/config"
	"github.com/danielrosehill/OpenWebUI-Bulk-Model-Updater/internal/logging"
	"github.com/danielrosehill/OpenWebUI-Bulk-Model-Updater/internal/models"
)

var (
	// ErrFetchFailed means no listing path returned a model collection
	ErrFetchFailed = errors.New("failed to fetch models from any endpoint")
	// ErrNoModels means listing paths answered, but only with empty collections
	ErrNoModels = errors.New("no models found in the API response")
)

// ExtractCollection returns the entries of a listing body. A body is a
// collection when it is a JSON list, or an object whose "models" (preferred)
// or "data" key holds a list.
func ExtractCollection(body json.RawMessage) ([]json.RawMessage, bool) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, false
	}

	switch trimmed[0] {
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return nil, false
		}
		if items == nil {
			items = []json.RawMessage{}
		}
		return items, true
	case '{':
		var wrapper map[string]json.RawMessage
		if err := json.Unmarshal(trimmed, &wrapper); err != nil {
			return nil, false
		}
		for _, key := range []string{"models", "data"} {
			value, ok := wrapper[key]
			if !ok {
				continue
			}
			value = bytes.TrimSpace(value)
			if len(value) == 0 || value[0] != '[' {
				continue
			}
			if items, ok := ExtractCollection(value); ok {
				return items, true
			}
		}
	}
	return nil, false
}

// FetchCollection walks cfg.ListingPaths until one returns a non-empty model
// collection.
// Entries that are not JSON objects come back as empty records, which planning
// rejects as having no id.
func FetchCollection(ctx context.Context, api ModelAPI, cfg *config.Config, logger *slog.Logger) ([]*models.Model, error) {
	sawEmpty := false
	items, path, ok := FirstSuccess(ctx, cfg.ListingPaths, func(ctx context.Context, path string) ([]json.RawMessage, bool) {
		logger.Info("Trying to fetch models from endpoint: " + path)
		resp, err := api.Get(ctx, path)
		if err != nil || !resp.IsJSON() {
			return nil, false
		}
		items, ok := ExtractCollection(resp.JSON)
		if ok && len(items) == 0 {
			// empty listings fall through; another path may hold the records
			logger.Debug("Endpoint returned an empty collection: " + path)
			sawEmpty = true
			return nil, false
		}
		return items, ok
	})
	if !ok {
		if sawEmpty {
			return nil, ErrNoModels
		}
		return nil, ErrFetchFailed
	}
	logging.Success(logger, "Successfully fetched models from endpoint: "+path)

	records := make([]*models.Model, 0, len(items))
	for i, item := range items {
		var m models.Model
		if err := json.Unmarshal(item, &m); err != nil {
			logger.Debug(fmt.Sprintf("Entry %d is not a model object: %s", i, truncate(string(item), debugBodyLimit)))
			m = models.Model{}
		}
		records = append(records, &m)
	}

	logger.Debug(fmt.Sprintf("Raw models response: %d entries from %s", len(records), path))
	return records, nil
}
