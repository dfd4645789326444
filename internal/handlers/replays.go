package handlers

import (
	"errors"
	"net/http"
	"strings"

	"showdown-tracker/internal/battlelog"
	"showdown-tracker/internal/database"
	"showdown-tracker/internal/fetch"
	"showdown-tracker/internal/stats"

	"github.com/pocketbase/pocketbase/core"
)

type urlRequest struct {
	URL string `json:"url"`
}

type queueRequest struct {
	URLs []string `json:"urls"`
}

// ReplayView is a stored replay seen from the requesting user's side
type ReplayView struct {
	battlelog.MatchFacts
	Outcome   battlelog.Outcome `json:"outcome"`
	Opponents []string          `json:"opponents"`
}

func newReplayView(facts battlelog.MatchFacts, identities []string) ReplayView {
	opponents := battlelog.Opponents(facts, identities)
	if opponents == nil {
		opponents = []string{}
	}
	return ReplayView{
		MatchFacts: facts,
		Outcome:    battlelog.ClassifyOutcome(facts, identities),
		Opponents:  opponents,
	}
}

func (h *Handlers) importReplay(re *core.RequestEvent) error {
	var body urlRequest
	if err := re.BindBody(&body); err != nil {
		return re.BadRequestError("Invalid request body", err)
	}
	if strings.TrimSpace(body.URL) == "" {
		return re.BadRequestError("Missing replay url", nil)
	}

	userID := re.Auth.Id
	facts, created, err := h.importer.ImportReplay(re.Request.Context(), userID, body.URL)
	if err != nil {
		return h.importError(re, body.URL, err)
	}

	identities, err := database.GetIdentityNames(re.Request.Context(), re.App, userID)
	if err != nil {
		return re.InternalServerError("Failed to load identities", err)
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	return re.JSON(status, newReplayView(*facts, identities))
}

func (h *Handlers) importPayload(re *core.RequestEvent) error {
	var payload battlelog.RawMatchPayload
	if err := re.BindBody(&payload); err != nil {
		return re.BadRequestError("Invalid replay payload", err)
	}

	userID := re.Auth.Id
	facts, created, err := h.importer.ImportPayload(re.Request.Context(), userID, payload)
	if err != nil {
		if errors.Is(err, battlelog.ErrInvalidLog) || strings.TrimSpace(payload.URL) == "" {
			return re.BadRequestError("Invalid replay payload", err)
		}
		return re.InternalServerError("Failed to store replay", err)
	}

	identities, err := database.GetIdentityNames(re.Request.Context(), re.App, userID)
	if err != nil {
		return re.InternalServerError("Failed to load identities", err)
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	return re.JSON(status, newReplayView(*facts, identities))
}

func (h *Handlers) enqueueReplays(re *core.RequestEvent) error {
	var body queueRequest
	if err := re.BindBody(&body); err != nil {
		return re.BadRequestError("Invalid request body", err)
	}
	if len(body.URLs) == 0 {
		return re.BadRequestError("No replay urls given", nil)
	}

	queued, err := h.importer.Enqueue(re.Request.Context(), re.Auth.Id, body.URLs)
	response := map[string]any{"queued": queued}
	if err != nil {
		h.logger.Warn("Some replays could not be queued", "component", "API", "error", err)
		response["error"] = err.Error()
	}

	return re.JSON(http.StatusAccepted, response)
}

func (h *Handlers) listReplays(re *core.RequestEvent) error {
	query := re.Request.URL.Query()
	ctx := re.Request.Context()
	userID := re.Auth.Id

	filter := stats.Filter{
		Format: query.Get("format"),
		Player: query.Get("player"),
	}
	if raw := query.Get("outcome"); raw != "" {
		outcome, ok := battlelog.ParseOutcome(raw)
		if !ok {
			return re.BadRequestError("outcome must be win, loss or unknown", nil)
		}
		filter.Outcome = outcome
	}

	ascending := false
	switch query.Get("order") {
	case "", "desc":
	case "asc":
		ascending = true
	default:
		return re.BadRequestError("order must be asc or desc", nil)
	}

	identities, err := database.GetIdentityNames(ctx, re.App, userID)
	if err != nil {
		return re.InternalServerError("Failed to load identities", err)
	}
	filter.Identities = identities

	records, err := database.ListReplays(ctx, re.App, userID, "")
	if err != nil {
		return re.InternalServerError("Failed to load replays", err)
	}

	records = stats.SortChronological(filter.Apply(records), ascending)

	items := make([]ReplayView, 0, len(records))
	for _, record := range records {
		items = append(items, newReplayView(record, identities))
	}

	return re.JSON(http.StatusOK, map[string]any{
		"items": items,
		"total": len(items),
	})
}

func (h *Handlers) deleteReplay(re *core.RequestEvent) error {
	id := re.Request.PathValue("id")
	if err := database.DeleteReplay(re.Request.Context(), re.App, re.Auth.Id, id); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return re.NotFoundError("Replay not found", err)
		}
		return re.InternalServerError("Failed to delete replay", err)
	}
	return re.NoContent(http.StatusNoContent)
}

func (h *Handlers) stats(re *core.RequestEvent) error {
	ctx := re.Request.Context()
	userID := re.Auth.Id

	identities, err := database.GetIdentityNames(ctx, re.App, userID)
	if err != nil {
		return re.InternalServerError("Failed to load identities", err)
	}

	records, err := database.ListReplays(ctx, re.App, userID, "")
	if err != nil {
		return re.InternalServerError("Failed to load replays", err)
	}
	if format := re.Request.URL.Query().Get("format"); format != "" {
		records = stats.Filter{Format: format}.Apply(records)
	}

	return re.JSON(http.StatusOK, stats.Aggregate(records, identities))
}

// importError maps importer failures to API errors
func (h *Handlers) importError(re *core.RequestEvent, url string, err error) error {
	switch {
	case errors.Is(err, fetch.ErrNotFound):
		return re.NotFoundError("Replay not found", err)
	case errors.Is(err, fetch.ErrInvalidURL):
		return re.BadRequestError("Invalid replay url", err)
	default:
		h.logger.Error("Replay import failed", "component", "API", "url", url, "error", err)
		return re.Error(http.StatusBadGateway, "Failed to import replay", err)
	}
}
