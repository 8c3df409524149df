package controllers

import (
	"net/http"

	"milkroad_server/helpers"
	"milkroad_server/services"
)

// ShareController links parent accounts through share codes
type ShareController struct {
	ShareService    *services.ShareService
	TrackingService *services.TrackingService
}

func NewShareController(shareService *services.ShareService, trackingService *services.TrackingService) *ShareController {
	return &ShareController{ShareService: shareService, TrackingService: trackingService}
}

// GetMe returns the caller and whose records they are tracking
func (c *ShareController) GetMe(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(w, r)
	if !ok {
		return
	}

	identity, err := c.TrackingService.Identity(r.Context(), caller)
	if err != nil {
		writeServiceError(w, "identity", err)
		return
	}
	helpers.WriteJSONResponse(w, http.StatusOK, identity)
}

// CreateShareCode issues a code another parent can redeem
func (c *ShareController) CreateShareCode(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(w, r)
	if !ok {
		return
	}

	link, err := c.ShareService.Generate(r.Context(), caller)
	if err != nil {
		writeServiceError(w, "generate share code", err)
		return
	}
	helpers.WriteJSONResponse(w, http.StatusCreated, link)
}

// JoinWithCode redeems a share code
func (c *ShareController) JoinWithCode(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(w, r)
	if !ok {
		return
	}

	var payload struct {
		Code string `json:"code"`
	}
	if !decodeBody(w, r, &payload) {
		return
	}

	identity, err := c.ShareService.Redeem(r.Context(), payload.Code, caller)
	if err != nil {
		writeServiceError(w, "redeem share code", err)
		return
	}
	helpers.WriteJSONResponse(w, http.StatusOK, identity)
}

// Disconnect stops tracking a linked account
func (c *ShareController) Disconnect(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(w, r)
	if !ok {
		return
	}

	identity, err := c.ShareService.Disconnect(r.Context(), caller)
	if err != nil {
		writeServiceError(w, "disconnect", err)
		return
	}
	helpers.WriteJSONResponse(w, http.StatusOK, identity)
}
