package controllers

import (
	"net/http"

	"github.com/gorilla/mux"

	"milkroad_server/helpers"
	"milkroad_server/services"
)

// SleepController handles the sleep tracker
type SleepController struct {
	SleepService *services.SleepService
}

func NewSleepController(sleepService *services.SleepService) *SleepController {
	return &SleepController{SleepService: sleepService}
}

func (c *SleepController) GetState(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(w, r)
	if !ok {
		return
	}

	state, err := c.SleepService.State(r.Context(), caller)
	if err != nil {
		writeServiceError(w, "sleep state", err)
		return
	}
	helpers.WriteJSONResponse(w, http.StatusOK, state)
}

func (c *SleepController) StartSleep(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(w, r)
	if !ok {
		return
	}

	session, err := c.SleepService.StartSleep(r.Context(), caller)
	if err != nil {
		writeServiceError(w, "start sleep", err)
		return
	}
	helpers.WriteJSONResponse(w, http.StatusCreated, map[string]interface{}{
		"message": "Sleep started",
		"sleep":   session,
	})
}

func (c *SleepController) EndSleep(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(w, r)
	if !ok {
		return
	}

	session, err := c.SleepService.EndSleep(r.Context(), caller)
	if err != nil {
		writeServiceError(w, "end sleep", err)
		return
	}
	helpers.WriteJSONResponse(w, http.StatusOK, map[string]interface{}{
		"message": "Sleep ended",
		"sleep":   session,
	})
}

// DeleteSleep removes a session and returns the new tracker state. Requires ?confirm=true.
func (c *SleepController) DeleteSleep(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerID(w, r)
	if !ok {
		return
	}
	if !confirmedByQuery(r) {
		writeServiceError(w, "delete sleep", errConfirm)
		return
	}

	state, err := c.SleepService.DeleteSleep(r.Context(), caller, mux.Vars(r)["sleepId"])
	if err != nil {
		writeServiceError(w, "delete sleep", err)
		return
	}
	helpers.WriteJSONResponse(w, http.StatusOK, state)
}
