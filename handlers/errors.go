package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"bug-tracker/backend/bugs-service/logging"
	"bug-tracker/backend/bugs-service/workflow"
)

// statusForError maps the workflow error taxonomy onto response codes. This
// is the only place workflow errors are interpreted.
func statusForError(err error) int {
	var validationErr *workflow.ValidationError
	var conflictErr *workflow.ConflictError
	switch {
	case errors.Is(err, workflow.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, workflow.ErrForbidden):
		return http.StatusForbidden
	case errors.As(err, &validationErr):
		return http.StatusBadRequest
	case errors.As(err, &conflictErr):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := statusForError(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		logging.Logger.Errorf("Event ID: REQUEST_FAILED, Description: Unexpected error handling request: %v", err)
		message = "Server Error"
	}
	writeJSON(w, status, map[string]string{"message": message})
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
