package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"github.com/danielrosehill/OpenWebUI-Bulk-Model-Updater/internal/config"
	"github.com/danielrosehill/OpenWebUI-Bulk-Model-Updater/internal/logging"
	"github.com/danielrosehill/OpenWebUI-Bulk-Model-Updater/internal/models"
)

// ErrDuplicateID marks a record whose id was already handled in this run
var ErrDuplicateID = errors.New("duplicate model id")

// BatchUpdater drives planning and dispatch across a fetched collection
type BatchUpdater struct {
	api         ModelAPI
	cfg         *config.Config
	logger      *slog.Logger
	metrics     *Metrics
	progressOut io.Writer
	runID       string
}

// NewBatchUpdater creates an updater. metrics may be nil; progressOut may be
// io.Discard to hide the progress bar.
func NewBatchUpdater(api ModelAPI, cfg *config.Config, logger *slog.Logger, metrics *Metrics, progressOut io.Writer) *BatchUpdater {
	runID := uuid.New().String()
	return &BatchUpdater{
		api:         api,
		cfg:         cfg,
		logger:      logging.WithRun(logger, runID),
		metrics:     metrics,
		progressOut: progressOut,
		runID:       runID,
	}
}

// RunID returns the id attached to this updater's logs and report
func (b *BatchUpdater) RunID() string {
	return b.runID
}

type indexedResult struct {
	index  int
	result models.RecordResult
}

// run-scoped state shared by all workers
type batchRun struct {
	seen    *cache.Cache
	limiter *rate.Limiter // throttles update calls, nil when unlimited
}

// Run processes every record and returns the summary. Individual failures
// never abort the batch; only the context can stop it early.
func (b *BatchUpdater) Run(ctx context.Context, records []*models.Model) *models.Summary {
	summary := &models.Summary{
		RunID:       b.runID,
		TargetModel: b.cfg.TargetModel,
		Mode:        b.cfg.Mode(),
		StartedAt:   time.Now(),
		Total:       len(records),
		Results:     make([]models.RecordResult, len(records)),
	}

	run := &batchRun{seen: cache.New(cache.NoExpiration, 0)}
	results := make(chan indexedResult)
	progress := NewProgress(b.progressOut, len(records), "Updating models", "model")

	if b.cfg.BatchMode {
		summary.Workers = b.cfg.Workers
		if b.cfg.Rate > 0 {
			run.limiter = rate.NewLimiter(rate.Limit(b.cfg.Rate), 1)
		}
		b.logger.Info(fmt.Sprintf("Using parallel processing with %d workers", b.cfg.Workers))
		go b.runParallel(ctx, run, records, results)
	} else {
		b.logger.Info("Using sequential processing")
		go b.runSequential(ctx, run, records, results)
	}

	for r := range results {
		summary.Results[r.index] = r.result
		switch r.result.Outcome {
		case models.OutcomeUpdated:
			summary.Updated++
		case models.OutcomeSkipped:
			summary.Skipped++
		case models.OutcomeFailed:
			summary.Failed++
		default:
			summary.Ignored++
		}
		b.metrics.RecordOutcome(r.result.Outcome)
		progress.Increment()
	}
	progress.Close()

	summary.FinishedAt = time.Now()
	b.metrics.RecordRun(summary)
	return summary
}

func (b *BatchUpdater) runSequential(ctx context.Context, run *batchRun, records []*models.Model, results chan<- indexedResult) {
	defer close(results)

	for i, m := range records {
		// the pause runs from the end of the previous record
		if i > 0 {
			if err := sleepContext(ctx, b.cfg.Delay); err != nil {
				results <- indexedResult{index: i, result: failedResult(m, err)}
				continue
			}
		}
		if err := ctx.Err(); err != nil {
			results <- indexedResult{index: i, result: failedResult(m, err)}
			continue
		}
		results <- indexedResult{index: i, result: b.processSafely(ctx, run, m)}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (b *BatchUpdater) runParallel(ctx context.Context, run *batchRun, records []*models.Model, results chan<- indexedResult) {
	jobs := make(chan int)
	var wg sync.WaitGroup

	workers := b.cfg.Workers
	if workers < 1 {
		workers = 1
	}
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results <- indexedResult{index: i, result: b.processSafely(ctx, run, records[i])}
			}
		}()
	}

	for i := range records {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	close(results)
}

// processSafely converts a panic in one record into a failure so sibling
// workers keep going.
func (b *BatchUpdater) processSafely(ctx context.Context, run *batchRun, m *models.Model) (result models.RecordResult) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error(fmt.Sprintf("Exception updating model %s: %v", displayName(m), r))
			result = failedResult(m, fmt.Errorf("panic: %v", r))
		}
	}()
	return b.process(ctx, run, m)
}

func (b *BatchUpdater) process(ctx context.Context, run *batchRun, m *models.Model) models.RecordResult {
	plan, err := PlanUpdate(m, b.cfg.TargetModel)
	if err != nil {
		b.logger.Warn("Skipping model with missing ID. Model data: " + truncate(marshalForLog(m), debugBodyLimit))
		result := failedResult(m, err)
		result.Outcome = models.OutcomeIgnored
		return result
	}

	logger := logging.WithModel(b.logger, m.ID, m.Name)
	result := models.RecordResult{
		ID:                m.ID,
		Name:              m.Name,
		PreviousBaseModel: m.BaseModelID,
	}

	if err := run.seen.Add(m.ID, struct{}{}, cache.NoExpiration); err != nil {
		logger.Warn(fmt.Sprintf("Skipping duplicate model ID: %s", m.ID))
		result.Outcome = models.OutcomeIgnored
		result.Error = ErrDuplicateID.Error()
		return result
	}

	if plan.AlreadyAtTarget {
		logger.Debug("Model already uses the target model: " + displayName(m))
		result.Outcome = models.OutcomeSkipped
		return result
	}

	logger.Debug(fmt.Sprintf("Processing model: %s (ID: %s)", displayName(m), m.ID))
	logger.Debug("Current base model: " + m.BaseModelID)
	logger.Debug("Update payload: " + marshalForLog(plan.Payload))

	if run.limiter != nil {
		if err := run.limiter.Wait(ctx); err != nil {
			return failedResult(m, err)
		}
	}

	path, ok := ApplyUpdate(ctx, b.api, b.cfg, plan.Payload, m.ID, logger)
	if !ok {
		logger.Error("Failed to update model: " + displayName(m))
		result.Outcome = models.OutcomeFailed
		result.Error = "no update endpoint confirmed the change"
		return result
	}

	if b.cfg.BatchMode {
		logger.Debug("Successfully updated model: "+displayName(m), "path", path)
	} else {
		logging.Success(logger, "Successfully updated model: "+displayName(m), "path", path)
	}
	result.Outcome = models.OutcomeUpdated
	result.Path = path
	return result
}

func failedResult(m *models.Model, err error) models.RecordResult {
	result := models.RecordResult{Outcome: models.OutcomeFailed, Error: err.Error()}
	if m != nil {
		result.ID = m.ID
		result.Name = m.Name
		result.PreviousBaseModel = m.BaseModelID
	}
	return result
}

func displayName(m *models.Model) string {
	if m == nil || m.Name == "" {
		return models.UnknownID
	}
	return m.Name
}

func marshalForLog(m *models.Model) string {
	if m == nil {
		return "null"
	}
	data, err := m.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("<unencodable: %v>", err)
	}
	return string(data)
}
