package api

import (
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/sourcedapp/sourced-backend/internal/capture"
	"github.com/sourcedapp/sourced-backend/internal/relay"
)

// readUpload extracts the "file" part of a multipart upload as a validated
// media candidate. The size cap applies before any network call.
func readUpload(w http.ResponseWriter, r *http.Request) (capture.MediaCandidate, bool) {
	if err := r.ParseMultipartForm(capture.MaxBytes); err != nil {
		httpError(w, http.StatusBadRequest, "invalid multipart body")
		return capture.MediaCandidate{}, false
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		httpError(w, http.StatusBadRequest, "file is required")
		return capture.MediaCandidate{}, false
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, capture.MaxBytes+1))
	if err != nil {
		httpError(w, http.StatusBadRequest, "reading upload failed")
		return capture.MediaCandidate{}, false
	}

	// Multipart writers often default the part to octet-stream; sniff the
	// real type from the bytes in that case.
	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}

	c, err := capture.FromBytes(data, contentType, header.Filename, 0)
	if err != nil {
		writeServiceError(w, err)
		return capture.MediaCandidate{}, false
	}
	return c, true
}

// handleSearch runs the full capture-moderate-persist-search chain for an
// uploaded image and returns the product matches.
func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if s.Pipeline == nil {
		httpError(w, http.StatusServiceUnavailable, "search not configured")
		return
	}
	userID, ok := s.identity(w, r)
	if !ok {
		return
	}
	c, ok := readUpload(w, r)
	if !ok {
		return
	}

	result, err := s.Pipeline.SearchFromFile(r.Context(), userID, c)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	log.Info().Int("matches", len(result.Matches)).Str("userId", userID).Msg("Search completed")
	respondJSON(w, http.StatusOK, result.Matches)
}

type imageRequest struct {
	ImageURL string `json:"image_url"`
	Purpose  string `json:"purpose,omitempty"`
}

type checkResponse struct {
	Safe  bool   `json:"safe"`
	Error string `json:"error,omitempty"`
}

// handleCheckImage moderates an image URL or data URI without persisting
// anything. Used by clients for interactive pre-checks.
func (s *Server) handleCheckImage(w http.ResponseWriter, r *http.Request) {
	if s.Gate == nil {
		httpError(w, http.StatusServiceUnavailable, "moderation not configured")
		return
	}
	var req imageRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	ref, err := capture.ParseURL(req.ImageURL)
	if err != nil {
		respondJSON(w, http.StatusOK, checkResponse{
			Safe:  false,
			Error: "Please provide a valid image URL (http:// or https://)",
		})
		return
	}

	v := s.Gate.CheckImageRef(r.Context(), ref)
	respondJSON(w, http.StatusOK, checkResponse{Safe: v.Safe, Error: v.Reason})
}

type textRequest struct {
	Text string `json:"text"`
}

// handleCheckText moderates free text (captions, bios).
func (s *Server) handleCheckText(w http.ResponseWriter, r *http.Request) {
	if s.Gate == nil {
		httpError(w, http.StatusServiceUnavailable, "moderation not configured")
		return
	}
	var req textRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	v := s.Gate.CheckText(r.Context(), req.Text)
	respondJSON(w, http.StatusOK, checkResponse{Safe: v.Safe, Error: v.Reason})
}

type usernameRequest struct {
	Username string `json:"username"`
}

// handleCheckUsername screens a username against the banned-word list.
func (s *Server) handleCheckUsername(w http.ResponseWriter, r *http.Request) {
	if s.Catalog == nil {
		httpError(w, http.StatusServiceUnavailable, "profiles not configured")
		return
	}
	var req usernameRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	v := s.Catalog.CheckUsername(r.Context(), req.Username)
	respondJSON(w, http.StatusOK, checkResponse{Safe: v.Safe, Error: v.Reason})
}

// handleImageUpload moderates and persists an uploaded file for the given
// purpose (form field "purpose").
func (s *Server) handleImageUpload(w http.ResponseWriter, r *http.Request) {
	if s.Pipeline == nil {
		httpError(w, http.StatusServiceUnavailable, "ingestion not configured")
		return
	}
	userID, ok := s.identity(w, r)
	if !ok {
		return
	}
	c, ok := readUpload(w, r)
	if !ok {
		return
	}
	purpose, err := relay.ParsePurpose(r.FormValue("purpose"))
	if err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}

	asset, err := s.Pipeline.IngestFromFile(r.Context(), userID, purpose, c)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, asset)
}

// handleImageRehost moderates and copies a remote image into owned storage.
func (s *Server) handleImageRehost(w http.ResponseWriter, r *http.Request) {
	if s.Pipeline == nil {
		httpError(w, http.StatusServiceUnavailable, "ingestion not configured")
		return
	}
	userID, ok := s.identity(w, r)
	if !ok {
		return
	}
	var req imageRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	purpose, err := relay.ParsePurpose(req.Purpose)
	if err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}

	asset, err := s.Pipeline.IngestFromURL(r.Context(), userID, purpose, req.ImageURL)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, asset)
}
