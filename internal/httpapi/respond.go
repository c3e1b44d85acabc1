package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/dorandoran/user/internal/apperr"
)

// envelope is the common response wrapper shared with the other DoranDoran services.
type envelope struct {
	Success   bool      `json:"success"`
	Data      any       `json:"data"`
	Message   string    `json:"message"`
	ErrorCode string    `json:"errorCode,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

func respondSuccess(w http.ResponseWriter, data any, message string) {
	respondJSON(w, http.StatusOK, envelope{
		Success:   true,
		Data:      data,
		Message:   message,
		Timestamp: time.Now().UTC(),
	})
}

func respondCode(w http.ResponseWriter, code apperr.Code, message string) {
	if message == "" {
		message = code.Message
	}
	respondJSON(w, code.Status, envelope{
		Message:   message,
		ErrorCode: code.ID,
		Timestamp: time.Now().UTC(),
	})
}

// respondError renders err as an error envelope. Uncoded errors are logged
// and reported as E001 without their cause.
func respondError(w http.ResponseWriter, r *http.Request, logger zerolog.Logger, err error) {
	code := apperr.CodeOf(err)
	if code.ID == apperr.InternalServerError.ID {
		logger.Error().
			Err(err).
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("request failed")
		respondCode(w, code, "")
		return
	}
	respondCode(w, code, apperr.MessageOf(err))
}
