package database

import (
	"context"
	"fmt"

	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
)

// Import job states
const (
	JobPending = "pending"
	JobDone    = "done"
	JobFailed  = "failed"
)

// ImportJob is a queued replay URL waiting to be fetched
type ImportJob struct {
	ID        string `json:"id"`
	UserID    string `json:"user"`
	URL       string `json:"url"`
	Status    string `json:"status"`
	Attempts  int    `json:"attempts"`
	LastError string `json:"lastError,omitempty"`
}

// EnqueueImport adds url to the user's queue. A failed job for the same URL is
// reset to pending; pending or done jobs are left alone. The bool reports
// whether the job is (again) pending because of this call.
func EnqueueImport(ctx context.Context, pbApp core.App, userID, url string) (*ImportJob, bool, error) {
	record, err := findOne(ctx, pbApp, ImportJobsCollection, dbx.HashExp{"user": userID, "url": url})
	switch {
	case err == nil:
		if record.GetString("status") != JobFailed {
			job := recordToJob(record)
			return &job, false, nil
		}
		record.Set("status", JobPending)
		record.Set("attempts", 0)
		record.Set("last_error", "")
	case isNoRows(err):
		collection, err := pbApp.FindCollectionByNameOrId(ImportJobsCollection)
		if err != nil {
			return nil, false, err
		}
		record = core.NewRecord(collection)
		record.Set("user", userID)
		record.Set("url", url)
		record.Set("status", JobPending)
		record.Set("attempts", 0)
	default:
		return nil, false, fmt.Errorf("failed to look up import %s: %w", url, err)
	}

	if err := pbApp.SaveWithContext(ctx, record); err != nil {
		return nil, false, fmt.Errorf("failed to enqueue %s: %w", url, err)
	}

	job := recordToJob(record)
	return &job, true, nil
}

// PendingImports returns up to limit pending jobs with fewer than maxAttempts attempts, oldest first.
func PendingImports(ctx context.Context, pbApp core.App, limit, maxAttempts int) ([]ImportJob, error) {
	records := []*core.Record{}
	query := pbApp.RecordQuery(ImportJobsCollection).
		WithContext(ctx).
		AndWhere(dbx.HashExp{"status": JobPending}).
		AndWhere(dbx.NewExp("attempts < {:max}", dbx.Params{"max": maxAttempts})).
		OrderBy("created ASC")
	if limit > 0 {
		query = query.Limit(int64(limit))
	}
	if err := query.All(&records); err != nil {
		return nil, fmt.Errorf("failed to load pending imports: %w", err)
	}

	jobs := make([]ImportJob, 0, len(records))
	for _, record := range records {
		jobs = append(jobs, recordToJob(record))
	}
	return jobs, nil
}

// MarkImportDone marks a job as finished.
func MarkImportDone(ctx context.Context, pbApp core.App, jobID string) error {
	record, err := findOne(ctx, pbApp, ImportJobsCollection, dbx.HashExp{"id": jobID})
	if err != nil {
		return notFound(err, "import job "+jobID)
	}

	record.Set("status", JobDone)
	record.Set("attempts", record.GetInt("attempts")+1)
	record.Set("last_error", "")
	return pbApp.SaveWithContext(ctx, record)
}

// MarkImportFailed records a failed attempt. The job stays pending until it
// has used maxAttempts attempts, then it is marked failed.
func MarkImportFailed(ctx context.Context, pbApp core.App, jobID string, cause error, maxAttempts int) (*ImportJob, error) {
	record, err := findOne(ctx, pbApp, ImportJobsCollection, dbx.HashExp{"id": jobID})
	if err != nil {
		return nil, notFound(err, "import job "+jobID)
	}

	attempts := record.GetInt("attempts") + 1
	record.Set("attempts", attempts)
	record.Set("last_error", truncateError(cause))
	if attempts >= maxAttempts {
		record.Set("status", JobFailed)
	}

	if err := pbApp.SaveWithContext(ctx, record); err != nil {
		return nil, err
	}

	job := recordToJob(record)
	return &job, nil
}

// CountImports returns the number of the user's import jobs in each state.
func CountImports(ctx context.Context, pbApp core.App, userID string) (map[string]int, error) {
	counts := map[string]int{JobPending: 0, JobDone: 0, JobFailed: 0}
	for status := range counts {
		n, err := count(ctx, pbApp, ImportJobsCollection, dbx.HashExp{"user": userID, "status": status})
		if err != nil {
			return nil, fmt.Errorf("failed to count %s imports: %w", status, err)
		}
		counts[status] = n
	}
	return counts, nil
}

func recordToJob(record *core.Record) ImportJob {
	return ImportJob{
		ID:        record.Id,
		UserID:    record.GetString("user"),
		URL:       record.GetString("url"),
		Status:    record.GetString("status"),
		Attempts:  record.GetInt("attempts"),
		LastError: record.GetString("last_error"),
	}
}

func truncateError(err error) string {
	if err == nil {
		return ""
	}
	msg := err.Error()
	if len(msg) > 2000 {
		msg = msg[:2000]
	}
	return msg
}
