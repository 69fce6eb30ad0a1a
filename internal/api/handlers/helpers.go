package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"route-run-service/internal/domain"
)

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zerolog.Ctx(r.Context()).Error().
			Err(err).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("encode failed")
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, map[string]string{"error": msg})
}

// writeEngineError maps the engine's error taxonomy onto HTTP statuses:
// validation problems are the operator's to correct (422), invalid
// transitions are a client defect (409), transient IO means retry the same
// action (503). Anything else is a 500 with the detail kept server-side.
func writeEngineError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case domain.IsValidation(err):
		writeError(w, r, http.StatusUnprocessableEntity, messageOf(err))
	case domain.IsInvalidTransition(err):
		writeError(w, r, http.StatusConflict, messageOf(err))
	case domain.IsTransientIO(err):
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("transient persistence failure")
		writeError(w, r, http.StatusServiceUnavailable, "temporary storage failure, retry the same action")
	default:
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("unexpected failure")
		writeError(w, r, http.StatusInternalServerError, "internal server error")
	}
}

func messageOf(err error) string {
	var ae *domain.AppError
	if errors.As(err, &ae) {
		return ae.Message
	}
	return err.Error()
}

func operatorID(r *http.Request) string {
	return r.Header.Get("X-Operator-ID")
}
