package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/sourcedapp/sourced-backend/internal/capture"
	"github.com/sourcedapp/sourced-backend/internal/catalog"
	"github.com/sourcedapp/sourced-backend/internal/pipeline"
	"github.com/sourcedapp/sourced-backend/internal/search"
	"github.com/sourcedapp/sourced-backend/internal/store"
)

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// httpError sends a JSON error response. The clientMsg is returned to the
// caller. Optional internalDetails are logged server-side but never sent,
// so storage paths and upstream errors cannot leak.
func httpError(w http.ResponseWriter, status int, clientMsg string, internalDetails ...string) {
	if len(internalDetails) > 0 {
		log.Error().
			Int("status", status).
			Str("clientMsg", clientMsg).
			Strs("internalDetails", internalDetails).
			Msg("HTTP error with internal details")
	}
	respondJSON(w, status, map[string]string{"error": clientMsg})
}

// decodeJSON parses the request body into dst, rejecting unknown garbage
// with a 400.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		httpError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

// writeServiceError maps service-layer failures onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	var (
		rejected   *pipeline.ModerationRejectedError
		validation *catalog.ValidationError
	)
	switch {
	case errors.As(err, &rejected):
		httpError(w, http.StatusBadRequest, rejected.Reason)
	case errors.As(err, &validation):
		httpError(w, http.StatusBadRequest, validation.Msg)
	case errors.Is(err, capture.ErrNotImage),
		errors.Is(err, capture.ErrTooLarge),
		errors.Is(err, capture.ErrEmpty),
		errors.Is(err, capture.ErrBadURL):
		httpError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, catalog.ErrForbidden):
		httpError(w, http.StatusForbidden, "you don't own this catalog")
	case errors.Is(err, store.ErrNotFound):
		httpError(w, http.StatusNotFound, "not found")
	case errors.Is(err, store.ErrExists):
		httpError(w, http.StatusConflict, "already exists")
	case search.IsTimeout(err):
		httpError(w, http.StatusGatewayTimeout, "search timed out")
	default:
		httpError(w, http.StatusInternalServerError, "internal error", err.Error())
	}
}
