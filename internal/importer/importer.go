// Package importer turns replay URLs and raw payloads into stored MatchFacts.
package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"showdown-tracker/internal/battlelog"
	"showdown-tracker/internal/database"
	"showdown-tracker/internal/fetch"

	"github.com/bits-and-blooms/bloom/v3"
	"github.com/pocketbase/pocketbase/core"
)

const (
	DefaultConcurrency = 4
	DefaultMaxAttempts = 3

	// expected number of stored replays; beyond this the false-positive rate rises
	// and more lookups fall through to the database
	bloomCapacity = 200000
	bloomFPRate   = 0.001
)

// ErrMissingURL is returned for payloads without a replay URL.
var ErrMissingURL = errors.New("payload has no url")

// ReplayFetcher downloads a replay and converts it into a payload.
// *fetch.Client implements it.
type ReplayFetcher interface {
	FetchReplay(ctx context.Context, replayURL string) (*battlelog.RawMatchPayload, error)
}

// Options configures an Importer
type Options struct {
	Concurrency int // parallel fetches while draining the queue
	MaxAttempts int // attempts before a queued URL is marked failed
}

// Importer deduplicates, fetches, parses and stores replays. Safe for concurrent use.
type Importer struct {
	app         core.App
	fetcher     ReplayFetcher
	logger      *slog.Logger
	concurrency int
	maxAttempts int

	// seen is a prefilter only: a hit still needs a database check
	seen   *bloom.BloomFilter
	seenMu sync.Mutex
}

// New creates an importer storing into app and fetching with fetcher.
func New(app core.App, fetcher ReplayFetcher, logger *slog.Logger, opts Options) *Importer {
	if opts.Concurrency <= 0 {
		opts.Concurrency = DefaultConcurrency
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Importer{
		app:         app,
		fetcher:     fetcher,
		logger:      logger,
		concurrency: opts.Concurrency,
		maxAttempts: opts.MaxAttempts,
		seen:        bloom.NewWithEstimates(bloomCapacity, bloomFPRate),
	}
}

// WarmUp loads every stored replay key into the dedup filter.
func (im *Importer) WarmUp(ctx context.Context) error {
	keys, err := database.ReplayKeys(ctx, im.app)
	if err != nil {
		return err
	}

	im.seenMu.Lock()
	for _, key := range keys {
		im.seen.AddString(key)
	}
	im.seenMu.Unlock()

	im.logger.Info("Dedup filter warmed up", "component", "IMPORTER", "replays", len(keys))
	return nil
}

func (im *Importer) maybeSeen(key string) bool {
	im.seenMu.Lock()
	defer im.seenMu.Unlock()
	return im.seen.TestString(key)
}

func (im *Importer) markSeen(key string) {
	im.seenMu.Lock()
	im.seen.AddString(key)
	im.seenMu.Unlock()
}

// ImportReplay stores the replay at replayURL for the user. A replay the user
// already has is returned from the database without fetching. The bool
// reports whether a new record was created.
func (im *Importer) ImportReplay(ctx context.Context, userID, replayURL string) (*battlelog.MatchFacts, bool, error) {
	canonical, err := fetch.CanonicalReplayURL(replayURL)
	if err != nil {
		return nil, false, err
	}

	key := database.ReplayKey(userID, canonical)
	if im.maybeSeen(key) {
		existing, err := database.FindReplay(ctx, im.app, userID, canonical)
		if err == nil {
			return existing, false, nil
		}
		if !errors.Is(err, database.ErrNotFound) {
			return nil, false, err
		}
		// bloom false positive
	}

	payload, err := im.fetcher.FetchReplay(ctx, canonical)
	if err != nil {
		return nil, false, err
	}
	payload.URL = canonical

	stored, created, err := im.save(ctx, userID, *payload)
	if err != nil {
		return nil, false, err
	}

	im.logger.Info("Imported replay",
		"component", "IMPORTER",
		"url", canonical,
		"format", stored.Format,
		"turns", stored.TotalTurns,
		"created", created)

	return stored, created, nil
}

// ImportPayload parses and stores a payload handed over directly. Unlike
// ImportReplay it always re-parses, so a richer log replaces an earlier one.
func (im *Importer) ImportPayload(ctx context.Context, userID string, payload battlelog.RawMatchPayload) (*battlelog.MatchFacts, bool, error) {
	payload.URL = strings.TrimSpace(payload.URL)
	if payload.URL == "" {
		return nil, false, ErrMissingURL
	}
	if canonical, err := fetch.CanonicalReplayURL(payload.URL); err == nil {
		payload.URL = canonical
	}

	return im.save(ctx, userID, payload)
}

func (im *Importer) save(ctx context.Context, userID string, payload battlelog.RawMatchPayload) (*battlelog.MatchFacts, bool, error) {
	facts := battlelog.Parse(payload)

	stored, created, err := database.SaveReplay(ctx, im.app, userID, facts)
	if err != nil {
		return nil, false, err
	}

	im.markSeen(database.ReplayKey(userID, stored.URL))
	return stored, created, nil
}

// Enqueue queues replay URLs for background import and returns how many were
// newly queued. URLs the user already stored are skipped. Invalid URLs are
// reported in the returned error without stopping the rest.
func (im *Importer) Enqueue(ctx context.Context, userID string, urls []string) (int, error) {
	var errs []error
	queued := 0

	for _, raw := range urls {
		canonical, err := fetch.CanonicalReplayURL(raw)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		if im.maybeSeen(database.ReplayKey(userID, canonical)) {
			exists, err := database.ReplayExists(ctx, im.app, userID, canonical)
			if err != nil {
				errs = append(errs, err)
				continue
			}
			if exists {
				continue
			}
		}

		_, added, err := database.EnqueueImport(ctx, im.app, userID, canonical)
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to enqueue %s: %w", canonical, err))
			continue
		}
		if added {
			queued++
		}
	}

	if queued > 0 {
		im.logger.Info("Queued replays for import", "component", "IMPORTER", "user", userID, "queued", queued)
	}

	return queued, errors.Join(errs...)
}
