package routes

import (
	"github.com/gorilla/mux"

	"milkroad_server/controllers"
	"milkroad_server/services"
)

// RegisterSleepRoutes registers sleep tracker routes under /api/sleep
func RegisterSleepRoutes(api *mux.Router, sleepService *services.SleepService) {
	controller := controllers.NewSleepController(sleepService)

	sleepRouter := api.PathPrefix("/sleep").Subrouter()
	sleepRouter.HandleFunc("", controller.GetState).Methods("GET")
	sleepRouter.HandleFunc("/start", controller.StartSleep).Methods("POST")
	sleepRouter.HandleFunc("/end", controller.EndSleep).Methods("POST")
	sleepRouter.HandleFunc("/{sleepId}", controller.DeleteSleep).Methods("DELETE") // ?confirm=true
}
