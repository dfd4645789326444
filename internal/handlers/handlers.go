// Package handlers exposes the tracker's JSON API under /api/tracker.
package handlers

import (
	"context"
	"log/slog"

	"showdown-tracker/internal/battlelog"
	"showdown-tracker/internal/fetch"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
)

// ReplayImporter imports replays for a user. *importer.Importer implements it.
type ReplayImporter interface {
	ImportReplay(ctx context.Context, userID, replayURL string) (*battlelog.MatchFacts, bool, error)
	ImportPayload(ctx context.Context, userID string, payload battlelog.RawMatchPayload) (*battlelog.MatchFacts, bool, error)
	Enqueue(ctx context.Context, userID string, urls []string) (int, error)
}

// PasteFetcher downloads team pastes. *fetch.Client implements it.
type PasteFetcher interface {
	FetchPaste(ctx context.Context, pasteURL string) (*fetch.Paste, error)
}

// Handlers holds the dependencies of the API routes
type Handlers struct {
	importer ReplayImporter
	pastes   PasteFetcher
	logger   *slog.Logger
	version  string
}

// New creates the API handlers
func New(importer ReplayImporter, pastes PasteFetcher, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{importer: importer, pastes: pastes, logger: logger, version: "dev"}
}

// WithVersion sets the version reported by the status route
func (h *Handlers) WithVersion(version string) *Handlers {
	h.version = version
	return h
}

// Register registers the /api/tracker routes. Every route requires an authenticated users record.
func Register(app core.App, h *Handlers) {
	app.OnServe().BindFunc(func(e *core.ServeEvent) error {
		g := e.Router.Group("/api/tracker")
		g.Bind(apis.RequireAuth("users"))

		g.POST("/replays", h.importReplay)
		g.POST("/replays/payload", h.importPayload)
		g.POST("/replays/queue", h.enqueueReplays)
		g.GET("/replays", h.listReplays)
		g.DELETE("/replays/{id}", h.deleteReplay)

		g.GET("/stats", h.stats)

		g.GET("/identities", h.getIdentities)
		g.PUT("/identities", h.putIdentities)

		g.POST("/pastes", h.importPaste)
		g.GET("/pastes", h.listPastes)

		g.GET("/status", h.status)

		return e.Next()
	})
}
