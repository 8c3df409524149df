package routes

import (
	"time"

	"github.com/gorilla/mux"

	"milkroad_server/controllers"
	"milkroad_server/services"
)

// RegisterFeedRoutes registers feed routes under /api/feeds
func RegisterFeedRoutes(api *mux.Router, feedService *services.FeedService, defaultLocation *time.Location) {
	controller := controllers.NewFeedController(feedService, defaultLocation)

	feedRouter := api.PathPrefix("/feeds").Subrouter()
	feedRouter.HandleFunc("", controller.AddFeed).Methods("POST")
	feedRouter.HandleFunc("/today", controller.GetTodaySummary).Methods("GET")
	feedRouter.HandleFunc("/{feedId}", controller.DeleteFeed).Methods("DELETE") // ?confirm=true
}
