package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/adi-253/Talkie/chatcore/internal/attachments"
	"github.com/adi-253/Talkie/chatcore/internal/composer"
	"github.com/adi-253/Talkie/chatcore/internal/logging"
	"github.com/adi-253/Talkie/chatcore/internal/models"
	"github.com/adi-253/Talkie/chatcore/internal/reply"
	"github.com/adi-253/Talkie/chatcore/internal/services"
)

// statusFor maps engine errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrSessionNotFound),
		errors.Is(err, services.ErrSessionClosed),
		errors.Is(err, services.ErrConversationNotFound),
		errors.Is(err, reply.ErrUnknownMessage):
		return http.StatusNotFound
	case errors.Is(err, attachments.ErrIngestionFailed):
		return http.StatusUnprocessableEntity
	case errors.Is(err, composer.ErrSendInFlight),
		errors.Is(err, services.ErrNoActiveConversation):
		return http.StatusConflict
	case errors.Is(err, models.ErrInvalidMessage):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeError writes err as a JSON error body with the mapped status.
func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		log := logging.Component("http")
		log.Error().Err(err).Msg("request failed")
	}
	writeJSON(w, status, models.ErrorResponse{Error: err.Error()})
}

// badRequest writes a 400 with msg.
func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, models.ErrorResponse{Error: msg})
}

// writeJSON is a helper function to write JSON responses.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
