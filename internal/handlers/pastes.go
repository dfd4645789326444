package handlers

import (
	"errors"
	"net/http"
	"strings"

	"showdown-tracker/internal/database"
	"showdown-tracker/internal/fetch"

	"github.com/pocketbase/pocketbase/core"
)

func (h *Handlers) importPaste(re *core.RequestEvent) error {
	var body urlRequest
	if err := re.BindBody(&body); err != nil {
		return re.BadRequestError("Invalid request body", err)
	}
	if strings.TrimSpace(body.URL) == "" {
		return re.BadRequestError("Missing paste url", nil)
	}

	paste, err := h.pastes.FetchPaste(re.Request.Context(), body.URL)
	if err != nil {
		switch {
		case errors.Is(err, fetch.ErrInvalidURL):
			return re.BadRequestError("Invalid paste url", err)
		case errors.Is(err, fetch.ErrNotFound):
			return re.NotFoundError("Paste not found", err)
		default:
			h.logger.Error("Paste fetch failed", "component", "API", "url", body.URL, "error", err)
			return re.Error(http.StatusBadGateway, "Failed to fetch paste", err)
		}
	}

	stored, err := database.SavePaste(re.Request.Context(), re.App, re.Auth.Id, paste)
	if err != nil {
		return re.InternalServerError("Failed to save paste", err)
	}

	return re.JSON(http.StatusCreated, stored)
}

func (h *Handlers) listPastes(re *core.RequestEvent) error {
	pastes, err := database.ListPastes(re.Request.Context(), re.App, re.Auth.Id)
	if err != nil {
		return re.InternalServerError("Failed to load pastes", err)
	}
	return re.JSON(http.StatusOK, map[string]any{
		"items": pastes,
		"total": len(pastes),
	})
}
