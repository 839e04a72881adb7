package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/zatekoja/localdiscovery/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/localdiscovery/pkg/errors"
)

func respondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}

func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	respondWithJSON(w, statusCode, map[string]string{
		"error": message,
	})
}

// respondWithAppError maps err to its HTTP status. Internal details stay in the log.
func respondWithAppError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.StatusCode(err)
	appErr, ok := apperrors.As(err)
	if !ok || status >= http.StatusInternalServerError {
		observability.LoggerFromContext(r.Context()).Error().
			Err(err).
			Str("path", r.URL.Path).
			Int("status", status).
			Msg("request failed")
	}
	if !ok || status == http.StatusInternalServerError {
		respondWithError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	body := map[string]string{"error": appErr.Message, "type": string(appErr.Type)}
	respondWithJSON(w, status, body)
}
