package controllers

import (
	"net/http"
	"time"

	"milkroad_server/helpers"
	"milkroad_server/services"
)

// StatsController serves the derived views: statistics, timeline and status line
type StatsController struct {
	StatsService    *services.StatsService
	TimelineService *services.TimelineService
	StatusService   *services.StatusService
	Location        *time.Location
}

func NewStatsController(stats *services.StatsService, timeline *services.TimelineService, status *services.StatusService, defaultLocation *time.Location) *StatsController {
	return &StatsController{
		StatsService:    stats,
		TimelineService: timeline,
		StatusService:   status,
		Location:        defaultLocation,
	}
}

func (c *StatsController) GetTodayStats(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(w, r)
	if !ok {
		return
	}

	view, err := c.StatsService.Today(r.Context(), caller, requestLocation(r, c.Location))
	if err != nil {
		writeServiceError(w, "statistics", err)
		return
	}
	helpers.WriteJSONResponse(w, http.StatusOK, view)
}

func (c *StatsController) GetTodayTimeline(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(w, r)
	if !ok {
		return
	}

	timeline, err := c.TimelineService.Today(r.Context(), caller, requestLocation(r, c.Location))
	if err != nil {
		writeServiceError(w, "timeline", err)
		return
	}
	helpers.WriteJSONResponse(w, http.StatusOK, timeline)
}

func (c *StatsController) GetStatus(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(w, r)
	if !ok {
		return
	}

	status, err := c.StatusService.Status(r.Context(), caller)
	if err != nil {
		writeServiceError(w, "status", err)
		return
	}
	helpers.WriteJSONResponse(w, http.StatusOK, status)
}
