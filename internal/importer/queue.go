package importer

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"showdown-tracker/internal/database"
	"showdown-tracker/internal/fetch"

	"github.com/pocketbase/pocketbase/core"
	"golang.org/x/sync/errgroup"
)

// QueueJobID is the cron job id of the queue drain.
const QueueJobID = "import_queue"

// DrainResult summarises one pass over the import queue
type DrainResult struct {
	Processed int `json:"processed"`
	Imported  int `json:"imported"`
	Failed    int `json:"failed"`
}

// DrainQueue imports up to batchSize pending jobs with bounded concurrency.
// Each job is marked done or has its failure recorded; a 404 fails the job
// immediately since retrying cannot help.
func (im *Importer) DrainQueue(ctx context.Context, batchSize int) (DrainResult, error) {
	jobs, err := database.PendingImports(ctx, im.app, batchSize, im.maxAttempts)
	if err != nil {
		return DrainResult{}, err
	}
	if len(jobs) == 0 {
		return DrainResult{}, nil
	}

	var imported, failed atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(im.concurrency)

	for _, job := range jobs {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}

			_, _, importErr := im.ImportReplay(gctx, job.UserID, job.URL)
			if importErr == nil {
				imported.Add(1)
				if err := database.MarkImportDone(gctx, im.app, job.ID); err != nil {
					im.logger.Error("Failed to mark import done", "component", "IMPORTER", "job", job.ID, "error", err)
				}
				return nil
			}

			if errors.Is(importErr, context.Canceled) || errors.Is(importErr, context.DeadlineExceeded) {
				return importErr
			}

			failed.Add(1)
			maxAttempts := im.maxAttempts
			if errors.Is(importErr, fetch.ErrNotFound) {
				maxAttempts = job.Attempts + 1
			}
			updated, err := database.MarkImportFailed(gctx, im.app, job.ID, importErr, maxAttempts)
			if err != nil {
				im.logger.Error("Failed to record import failure", "component", "IMPORTER", "job", job.ID, "error", err)
				return nil
			}

			im.logger.Warn("Import attempt failed",
				"component", "IMPORTER",
				"url", job.URL,
				"attempts", updated.Attempts,
				"status", updated.Status,
				"error", importErr)
			return nil
		})
	}

	waitErr := g.Wait()

	result := DrainResult{
		Processed: int(imported.Load() + failed.Load()),
		Imported:  int(imported.Load()),
		Failed:    int(failed.Load()),
	}
	return result, waitErr
}

// RegisterQueueJob sets up a cron job draining the import queue on schedule
func RegisterQueueJob(app core.App, im *Importer, schedule string, batchSize int) error {
	err := app.Cron().Add(QueueJobID, schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		result, err := im.DrainQueue(ctx, batchSize)
		if err != nil {
			im.logger.Error("Import queue drain failed", "component", "IMPORT_QUEUE", "error", err)
			return
		}
		if result.Processed > 0 {
			im.logger.Info("Import queue drained",
				"component", "IMPORT_QUEUE",
				"processed", result.Processed,
				"imported", result.Imported,
				"failed", result.Failed)
		}
	})
	if err != nil {
		return fmt.Errorf("failed to register import queue job: %w", err)
	}

	im.logger.Info("Registered cron job to drain the import queue", "component", "JOBS", "schedule", schedule)
	return nil
}
