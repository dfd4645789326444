package handlers

import (
	"net/http"

	"showdown-tracker/internal/database"
	"showdown-tracker/internal/util"

	"github.com/pocketbase/pocketbase/core"
)

type statusResponse struct {
	Version string         `json:"version"`
	Replays int            `json:"replays"`
	Queue   map[string]int `json:"queue"`
	Memory  util.MemStats  `json:"memory"`
}

func (h *Handlers) status(re *core.RequestEvent) error {
	ctx := re.Request.Context()
	userID := re.Auth.Id

	queue, err := database.CountImports(ctx, re.App, userID)
	if err != nil {
		return re.InternalServerError("Failed to count import jobs", err)
	}

	replays, err := database.CountReplays(ctx, re.App, userID)
	if err != nil {
		return re.InternalServerError("Failed to count replays", err)
	}

	return re.JSON(http.StatusOK, statusResponse{
		Version: h.version,
		Replays: replays,
		Queue:   queue,
		Memory:  util.GetMemStats(),
	})
}
