package controllers

import (
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"milkroad_server/helpers"
	"milkroad_server/services"
)

// FeedController handles feed logging and the daily summary
type FeedController struct {
	FeedService *services.FeedService
	Location    *time.Location
}

func NewFeedController(feedService *services.FeedService, defaultLocation *time.Location) *FeedController {
	return &FeedController{FeedService: feedService, Location: defaultLocation}
}

// AddFeed logs a feed at the current time
func (c *FeedController) AddFeed(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(w, r)
	if !ok {
		return
	}

	var req services.AddFeedRequest
	if !decodeBody(w, r, &req) {
		return
	}

	feed, err := c.FeedService.AddFeed(r.Context(), caller, req)
	if err != nil {
		writeServiceError(w, "add feed", err)
		return
	}
	helpers.WriteJSONResponse(w, http.StatusCreated, map[string]interface{}{
		"message": "Feed added successfully",
		"feed":    feed,
	})
}

// GetTodaySummary returns today's feeds and totals
func (c *FeedController) GetTodaySummary(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(w, r)
	if !ok {
		return
	}

	summary, err := c.FeedService.Summary(r.Context(), caller, requestLocation(r, c.Location))
	if err != nil {
		writeServiceError(w, "feed summary", err)
		return
	}
	helpers.WriteJSONResponse(w, http.StatusOK, summary)
}

// DeleteFeed removes a feed. Requires ?confirm=true.
func (c *FeedController) DeleteFeed(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(w, r)
	if !ok {
		return
	}
	if !confirmedByQuery(r) {
		writeServiceError(w, "delete feed", errConfirm)
		return
	}

	feedID := mux.Vars(r)["feedId"]
	if err := c.FeedService.DeleteFeed(r.Context(), caller, feedID); err != nil {
		writeServiceError(w, "delete feed", err)
		return
	}

	log.Printf("🗑️ Feed %s deleted by %s", feedID, caller)
	helpers.WriteJSONResponse(w, http.StatusOK, map[string]string{
		"message": "Feed deleted successfully",
		"feedId":  feedID,
	})
}
