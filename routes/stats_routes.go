package routes

import (
	"time"

	"github.com/gorilla/mux"

	"milkroad_server/controllers"
	"milkroad_server/services"
)

// RegisterStatsRoutes registers the derived views
func RegisterStatsRoutes(api *mux.Router, stats *services.StatsService, timeline *services.TimelineService, status *services.StatusService, defaultLocation *time.Location) {
	controller := controllers.NewStatsController(stats, timeline, status, defaultLocation)

	api.HandleFunc("/stats/today", controller.GetTodayStats).Methods("GET")
	api.HandleFunc("/timeline/today", controller.GetTodayTimeline).Methods("GET")
	api.HandleFunc("/status", controller.GetStatus).Methods("GET")
}
