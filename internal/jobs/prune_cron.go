// Package jobs holds the tracker's housekeeping cron jobs.
package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"showdown-tracker/internal/database"

	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/types"
)

// PruneJobID is the cron job id of the import queue cleanup.
const PruneJobID = "prune_import_jobs"

// pruneBatch bounds how many records one run loads at a time
const pruneBatch = 1000

// RegisterPruneImportJobs sets up a cron job that deletes finished import
// jobs not touched for retentionDays. A retention of 0 disables the job.
func RegisterPruneImportJobs(app core.App, logger *slog.Logger, retentionDays int) {
	if retentionDays <= 0 {
		logger.Info("Import job pruning disabled", "component", "JOBS")
		return
	}

	// Run daily at 3 AM UTC
	app.Cron().MustAdd(PruneJobID, "0 3 * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		cutoff := time.Now().AddDate(0, 0, -retentionDays)
		pruned, err := PruneImportJobs(ctx, app, cutoff)
		if err != nil {
			logger.Error("Import job pruning failed", "component", "PRUNE_JOB", "error", err)
			return
		}
		logger.Info("Pruned import jobs",
			"component", "PRUNE_JOB",
			"deleted", pruned,
			"cutoff_date", cutoff.Format("2006-01-02"))
	})

	logger.Info("Registered cron job to prune finished import jobs daily at 3 AM UTC",
		"component", "JOBS",
		"retention_days", retentionDays)
}

// PruneImportJobs deletes done jobs last updated before cutoff and returns how
// many were removed. Pending and failed jobs are kept so users can still see them.
func PruneImportJobs(ctx context.Context, app core.App, cutoff time.Time) (int, error) {
	cutoffDate, err := types.ParseDateTime(cutoff)
	if err != nil {
		return 0, fmt.Errorf("invalid cutoff: %w", err)
	}

	deleted := 0
	for {
		if err := ctx.Err(); err != nil {
			return deleted, err
		}

		records, err := app.FindRecordsByFilter(
			database.ImportJobsCollection,
			"status = {:status} && updated < {:cutoff}",
			"updated",
			pruneBatch,
			0,
			map[string]any{"status": database.JobDone, "cutoff": cutoffDate.String()},
		)
		if err != nil {
			return deleted, fmt.Errorf("failed to query old import jobs: %w", err)
		}
		if len(records) == 0 {
			return deleted, nil
		}

		err = app.RunInTransaction(func(txApp core.App) error {
			for _, record := range records {
				if err := txApp.DeleteWithContext(ctx, record); err != nil {
					return fmt.Errorf("failed to delete import job %s: %w", record.Id, err)
				}
			}
			return nil
		})
		if err != nil {
			return deleted, err
		}
		deleted += len(records)

		if len(records) < pruneBatch {
			return deleted, nil
		}
	}
}
