// Package api exposes the moderation, search, catalog and feed services
// over HTTP. The same handler tree serves both the Lambda entry point and
// the local development server.
//
// Endpoints:
//
//	GET  /api/health                      — health check (no auth required)
//	POST /api/search                      — visual search from an uploaded image
//	POST /api/check-username              — banned-word screen for usernames
//	POST /api/check-text                  — moderation check for free text
//	POST /api/check-image                 — moderation check for an image URL or data URI
//	POST /api/images/upload               — moderate and persist an uploaded image
//	POST /api/images/rehost               — moderate, rehost and re-check a remote image URL
//	POST /api/profiles                    — create the caller's profile
//	GET  /api/profiles/me                 — fetch the caller's profile
//	GET  /api/catalogs/list               — list a user's catalogs
//	POST /api/catalogs/create             — create a catalog
//	GET  /api/catalogs/{id}               — catalog detail
//	DELETE /api/catalogs/{id}             — delete a catalog
//	GET  /api/catalogs/{id}/items         — list catalog items
//	POST /api/catalogs/{id}/items         — add an item (moderated + categorized)
//	POST /api/catalogs/items/delete-multiple — bulk item delete
//	POST /api/feed/next                   — next feed post for the caller
//	POST /api/feed/log-view               — record a post view
//	GET  /api/feed/preferences            — the caller's feed signals
package api

import (
	"context"
	"net/http"

	"github.com/sourcedapp/sourced-backend/internal/auth"
	"github.com/sourcedapp/sourced-backend/internal/catalog"
	"github.com/sourcedapp/sourced-backend/internal/feed"
	"github.com/sourcedapp/sourced-backend/internal/moderation"
	"github.com/sourcedapp/sourced-backend/internal/pipeline"
	"github.com/sourcedapp/sourced-backend/internal/store"
)

// ProfileStore is the slice of the store the profile handlers need.
type ProfileStore interface {
	GetProfile(ctx context.Context, userID string) (*store.Profile, error)
}

// Server holds the wired services behind the HTTP surface. Any service may
// be nil; its routes then respond 503.
type Server struct {
	Pipeline *pipeline.Pipeline
	Gate     *moderation.Gate
	Catalog  *catalog.Service
	Feed     *feed.Service
	Profiles ProfileStore
	Auth     *auth.Verifier

	// OriginVerifySecret, when set, must match the x-origin-verify header
	// injected by the CDN; direct gateway access is rejected.
	OriginVerifySecret string
}

// Routes builds the full handler tree with middleware applied.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", s.handleHealth)

	mux.HandleFunc("POST /api/search", s.handleSearch)
	mux.HandleFunc("POST /api/check-username", s.handleCheckUsername)
	mux.HandleFunc("POST /api/check-text", s.handleCheckText)
	mux.HandleFunc("POST /api/check-image", s.handleCheckImage)
	mux.HandleFunc("POST /api/images/upload", s.handleImageUpload)
	mux.HandleFunc("POST /api/images/rehost", s.handleImageRehost)

	mux.HandleFunc("POST /api/profiles", s.handleCreateProfile)
	mux.HandleFunc("GET /api/profiles/me", s.handleGetMyProfile)

	mux.HandleFunc("GET /api/catalogs/list", s.handleListCatalogs)
	mux.HandleFunc("POST /api/catalogs/create", s.handleCreateCatalog)
	mux.HandleFunc("POST /api/catalogs/items/delete-multiple", s.handleDeleteItems)
	mux.HandleFunc("GET /api/catalogs/{id}", s.handleGetCatalog)
	mux.HandleFunc("DELETE /api/catalogs/{id}", s.handleDeleteCatalog)
	mux.HandleFunc("GET /api/catalogs/{id}/items", s.handleListItems)
	mux.HandleFunc("POST /api/catalogs/{id}/items", s.handleAddItem)

	mux.HandleFunc("POST /api/feed/next", s.handleFeedNext)
	mux.HandleFunc("POST /api/feed/log-view", s.handleFeedLogView)
	mux.HandleFunc("GET /api/feed/preferences", s.handleFeedPreferences)

	return s.withOriginVerify(withMetrics(mux))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// identity resolves the caller's user id. An absent token yields the
// anonymous identity "".
func (s *Server) identity(w http.ResponseWriter, r *http.Request) (string, bool) {
	if s.Auth == nil {
		return "", true
	}
	userID, err := s.Auth.UserID(r)
	if err != nil {
		httpError(w, http.StatusUnauthorized, "invalid token")
		return "", false
	}
	return userID, true
}

// requireIdentity is identity for routes that reject anonymous callers.
func (s *Server) requireIdentity(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := s.identity(w, r)
	if !ok {
		return "", false
	}
	if userID == "" {
		httpError(w, http.StatusUnauthorized, "authentication required")
		return "", false
	}
	return userID, true
}
