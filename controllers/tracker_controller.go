package controllers

import (
	"net/http"

	"milkroad_server/helpers"
	"milkroad_server/services"
)

// TrackerController handles operations over all of a tracking identity's records
type TrackerController struct {
	TrackerService *services.TrackerService
	ExportService  *services.ExportService
}

func NewTrackerController(trackerService *services.TrackerService, exportService *services.ExportService) *TrackerController {
	return &TrackerController{TrackerService: trackerService, ExportService: exportService}
}

// Reset deletes every feed and sleep. The body must be {"confirm": true}.
func (c *TrackerController) Reset(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(w, r)
	if !ok {
		return
	}

	var payload struct {
		Confirm bool `json:"confirm"`
	}
	if !decodeBody(w, r, &payload) {
		return
	}
	if !payload.Confirm {
		writeServiceError(w, "reset", errConfirm)
		return
	}

	deleted, err := c.TrackerService.ClearAll(r.Context(), caller)
	if err != nil {
		writeServiceError(w, "reset", err)
		return
	}
	helpers.WriteJSONResponse(w, http.StatusOK, map[string]interface{}{
		"message": "All data cleared",
		"deleted": deleted,
	})
}

// Export uploads a snapshot and returns a download link
func (c *TrackerController) Export(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(w, r)
	if !ok {
		return
	}

	result, err := c.ExportService.Export(r.Context(), caller)
	if err != nil {
		writeServiceError(w, "export", err)
		return
	}
	helpers.WriteJSONResponse(w, http.StatusOK, result)
}
