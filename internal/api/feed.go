package api

import (
	"net/http"
)

type feedNextRequest struct {
	ExcludeIDs []string `json:"exclude_ids"`
	IsInitial  bool     `json:"is_initial"`
}

type feedNextResponse struct {
	Post    interface{} `json:"post"`
	Info    interface{} `json:"algorithm_info,omitempty"`
	Message string      `json:"message,omitempty"`
}

func (s *Server) handleFeedNext(w http.ResponseWriter, r *http.Request) {
	if s.Feed == nil {
		httpError(w, http.StatusServiceUnavailable, "feed not configured")
		return
	}
	userID, ok := s.identity(w, r)
	if !ok {
		return
	}
	var req feedNextRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	post, info, err := s.Feed.Next(r.Context(), userID, req.ExcludeIDs)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if post == nil {
		respondJSON(w, http.StatusOK, feedNextResponse{Message: "No posts available"})
		return
	}
	respondJSON(w, http.StatusOK, feedNextResponse{Post: post, Info: info})
}

type logViewRequest struct {
	PostID     string `json:"post_id"`
	TimeSpent  int    `json:"time_spent"`
	Interacted bool   `json:"interacted"`
}

func (s *Server) handleFeedLogView(w http.ResponseWriter, r *http.Request) {
	if s.Feed == nil {
		httpError(w, http.StatusServiceUnavailable, "feed not configured")
		return
	}
	userID, ok := s.requireIdentity(w, r)
	if !ok {
		return
	}
	var req logViewRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.PostID == "" {
		httpError(w, http.StatusBadRequest, "post_id is required")
		return
	}

	if err := s.Feed.LogView(r.Context(), userID, req.PostID, req.TimeSpent, req.Interacted); err != nil {
		writeServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleFeedPreferences(w http.ResponseWriter, r *http.Request) {
	if s.Feed == nil {
		httpError(w, http.StatusServiceUnavailable, "feed not configured")
		return
	}
	userID, ok := s.requireIdentity(w, r)
	if !ok {
		return
	}

	sig := s.Feed.UserSignals(r.Context(), userID)
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"user_id":                   userID,
		"following_count":           sig.FollowingCount,
		"engaged_creators_count":    sig.EngagedCount,
		"avg_view_time_ms":          sig.AvgViewTimeMS,
		"recent_interactions_count": sig.InteractionCount,
	})
}
