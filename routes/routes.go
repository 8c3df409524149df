package routes

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"milkroad_server/controllers"
	"milkroad_server/middleware"
)

// RegisterRoutes sets up the public routes of the application
func RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/health", controllers.HealthCheckHandler).Methods("GET")
	r.HandleFunc("/welcome", controllers.WelcomeHandler).Methods("GET")
	r.HandleFunc("/", controllers.WelcomeHandler).Methods("GET")
	r.HandleFunc("/privacy-policy", PrivacyPolicyHandler).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")
}

// NewAPIRouter returns the authenticated /api subrouter. Every handler on it
// sees the verified caller in its request context.
func NewAPIRouter(r *mux.Router, auth *middleware.Authenticator, handlerTimeout time.Duration) *mux.Router {
	api := r.PathPrefix("/api").Subrouter()
	api.Use(middleware.Instrument)
	api.Use(middleware.Timeout(handlerTimeout))
	api.Use(auth.RequireAuth)
	return api
}

// RegisterSocketRoute mounts the socket.io server behind socket authentication
func RegisterSocketRoute(r *mux.Router, auth *middleware.Authenticator, socketServer http.Handler) {
	r.PathPrefix("/socket.io/").Handler(auth.SocketAuth(socketServer))
}
