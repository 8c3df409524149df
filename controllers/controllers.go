package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"milkroad_server/helpers"
	"milkroad_server/middleware"
	"milkroad_server/models"
	"milkroad_server/utils"
)

var errConfirm = models.ErrConfirmationRequired

// TimezoneHeader carries the caller's IANA zone when no tz query parameter is given
const TimezoneHeader = "X-Timezone"

// HealthCheckHandler provides a basic health check
func HealthCheckHandler(w http.ResponseWriter, r *http.Request) {
	helpers.WriteJSONResponse(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// WelcomeHandler provides a welcome message
func WelcomeHandler(w http.ResponseWriter, r *http.Request) {
	helpers.WriteJSONResponse(w, http.StatusOK, map[string]string{"message": "Welcome to Milk Road. Track feeds and sleep under /api."})
}

// callerID returns the authenticated caller or writes a 401
func callerID(w http.ResponseWriter, r *http.Request) (string, bool) {
	id, ok := middleware.CallerFromContext(r.Context())
	if !ok {
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrorCodeUnauthorized, "missing or invalid authentication")
		return "", false
	}
	return id, true
}

// requestLocation reads the caller's timezone from ?tz= or X-Timezone
func requestLocation(r *http.Request, fallback *time.Location) *time.Location {
	name := r.URL.Query().Get("tz")
	if name == "" {
		name = r.Header.Get(TimezoneHeader)
	}
	return utils.LoadLocation(name, fallback)
}

// confirmedByQuery reports whether ?confirm=true was sent
func confirmedByQuery(r *http.Request) bool {
	ok, err := strconv.ParseBool(r.URL.Query().Get("confirm"))
	return err == nil && ok
}

// decodeBody decodes a JSON request body into v, writing a 400 on failure
func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		log.Printf("❌ Failed to decode request body: %v", err)
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrorCodeValidation, "Invalid request payload")
		return false
	}
	return true
}

// writeServiceError maps a service error onto an HTTP status and JSON body
func writeServiceError(w http.ResponseWriter, op string, err error) {
	var verr models.ValidationError
	var be *models.BackendError

	switch {
	case errors.As(err, &verr):
		helpers.WriteJSONErrorWithDetails(w, http.StatusBadRequest, helpers.ErrorCodeValidation, verr.Error(), verr)
	case errors.Is(err, models.ErrNotFound):
		helpers.WriteJSONError(w, http.StatusNotFound, helpers.ErrorCodeNotFound, err.Error())
	case errors.Is(err, models.ErrUnauthenticated):
		helpers.WriteJSONError(w, http.StatusUnauthorized, helpers.ErrorCodeUnauthorized, "missing or invalid authentication")
	case errors.Is(err, models.ErrConfirmationRequired):
		helpers.WriteJSONError(w, http.StatusBadRequest, helpers.ErrorCodeConfirmation, "this action deletes data; resend with confirmation")
	case errors.Is(err, models.ErrSleepAlreadyOpen),
		errors.Is(err, models.ErrNoOpenSleep),
		errors.Is(err, models.ErrShareCodeExhausted):
		helpers.WriteJSONError(w, http.StatusConflict, helpers.ErrorCodeConflict, err.Error())
	case errors.Is(err, models.ErrExportDisabled):
		helpers.WriteJSONError(w, http.StatusServiceUnavailable, helpers.ErrorCodeUnavailable, err.Error())
	case errors.Is(err, models.ErrPartialDelete):
		log.Printf("❌ %s: %v", op, err)
		helpers.WriteJSONError(w, http.StatusBadGateway, helpers.ErrorCodeBackend, "Some data could not be deleted and remains. Please try again.")
	case errors.As(err, &be), errors.Is(err, context.DeadlineExceeded):
		log.Printf("❌ %s: %v", op, err)
		helpers.WriteJSONError(w, http.StatusBadGateway, helpers.ErrorCodeBackend, "Something went wrong talking to storage. Please try again.")
	default:
		log.Printf("❌ %s: %v", op, err)
		helpers.WriteJSONError(w, http.StatusInternalServerError, helpers.ErrorCodeInternal, "Internal server error")
	}
}
