package handlers

import (
	"net/http"

	"showdown-tracker/internal/database"

	"github.com/pocketbase/pocketbase/core"
)

type identitiesBody struct {
	Names []string `json:"names"`
}

func (h *Handlers) getIdentities(re *core.RequestEvent) error {
	names, err := database.GetIdentityNames(re.Request.Context(), re.App, re.Auth.Id)
	if err != nil {
		return re.InternalServerError("Failed to load identities", err)
	}
	return re.JSON(http.StatusOK, identitiesBody{Names: names})
}

func (h *Handlers) putIdentities(re *core.RequestEvent) error {
	var body identitiesBody
	if err := re.BindBody(&body); err != nil {
		return re.BadRequestError("Invalid request body", err)
	}

	names, err := database.SetIdentityNames(re.Request.Context(), re.App, re.Auth.Id, body.Names)
	if err != nil {
		return re.InternalServerError("Failed to save identities", err)
	}
	return re.JSON(http.StatusOK, identitiesBody{Names: names})
}
