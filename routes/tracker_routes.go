package routes

import (
	"github.com/gorilla/mux"

	"milkroad_server/controllers"
	"milkroad_server/services"
)

// RegisterTrackerRoutes registers reset and export
func RegisterTrackerRoutes(api *mux.Router, trackerService *services.TrackerService, exportService *services.ExportService) {
	controller := controllers.NewTrackerController(trackerService, exportService)

	api.HandleFunc("/reset", controller.Reset).Methods("POST") // body {"confirm": true}
	api.HandleFunc("/export", controller.Export).Methods("POST")
}
