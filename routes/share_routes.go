package routes

import (
	"github.com/gorilla/mux"

	"milkroad_server/controllers"
	"milkroad_server/services"
)

// RegisterShareRoutes registers identity and share-code routes
func RegisterShareRoutes(api *mux.Router, shareService *services.ShareService, trackingService *services.TrackingService) {
	controller := controllers.NewShareController(shareService, trackingService)

	api.HandleFunc("/me", controller.GetMe).Methods("GET")

	shareRouter := api.PathPrefix("/share").Subrouter()
	shareRouter.HandleFunc("", controller.CreateShareCode).Methods("POST")
	shareRouter.HandleFunc("/join", controller.JoinWithCode).Methods("POST")
	shareRouter.HandleFunc("/connection", controller.Disconnect).Methods("DELETE")
}
