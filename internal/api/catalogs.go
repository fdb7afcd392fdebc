package api

import (
	"net/http"

	"github.com/sourcedapp/sourced-backend/internal/store"
)

type createProfileRequest struct {
	Username  string `json:"username"`
	FullName  string `json:"full_name"`
	AvatarURL string `json:"avatar_url,omitempty"`
}

func (s *Server) handleCreateProfile(w http.ResponseWriter, r *http.Request) {
	if s.Catalog == nil {
		httpError(w, http.StatusServiceUnavailable, "profiles not configured")
		return
	}
	userID, ok := s.requireIdentity(w, r)
	if !ok {
		return
	}
	var req createProfileRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	p, err := s.Catalog.CreateProfile(r.Context(), userID, req.Username, req.FullName, req.AvatarURL)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, p)
}

func (s *Server) handleGetMyProfile(w http.ResponseWriter, r *http.Request) {
	if s.Profiles == nil {
		httpError(w, http.StatusServiceUnavailable, "profiles not configured")
		return
	}
	userID, ok := s.requireIdentity(w, r)
	if !ok {
		return
	}
	p, err := s.Profiles.GetProfile(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, p)
}

type createCatalogRequest struct {
	Title      string `json:"title"`
	ImageURL   string `json:"image_url"`
	Visibility string `json:"visibility,omitempty"`
}

func (s *Server) handleCreateCatalog(w http.ResponseWriter, r *http.Request) {
	if s.Catalog == nil {
		httpError(w, http.StatusServiceUnavailable, "catalogs not configured")
		return
	}
	userID, ok := s.requireIdentity(w, r)
	if !ok {
		return
	}
	var req createCatalogRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	c, err := s.Catalog.CreateCatalog(r.Context(), userID, req.Title, req.ImageURL, req.Visibility)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, c)
}

func (s *Server) handleListCatalogs(w http.ResponseWriter, r *http.Request) {
	if s.Catalog == nil {
		httpError(w, http.StatusServiceUnavailable, "catalogs not configured")
		return
	}
	viewerID, ok := s.identity(w, r)
	if !ok {
		return
	}
	ownerID := r.URL.Query().Get("owner_id")
	if ownerID == "" {
		ownerID = viewerID
	}
	if ownerID == "" {
		httpError(w, http.StatusBadRequest, "owner_id is required")
		return
	}

	catalogs, err := s.Catalog.ListCatalogs(r.Context(), viewerID, ownerID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, catalogs)
}

func (s *Server) handleGetCatalog(w http.ResponseWriter, r *http.Request) {
	if s.Catalog == nil {
		httpError(w, http.StatusServiceUnavailable, "catalogs not configured")
		return
	}
	viewerID, ok := s.identity(w, r)
	if !ok {
		return
	}
	c, err := s.Catalog.GetCatalog(r.Context(), viewerID, r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, c)
}

func (s *Server) handleDeleteCatalog(w http.ResponseWriter, r *http.Request) {
	if s.Catalog == nil {
		httpError(w, http.StatusServiceUnavailable, "catalogs not configured")
		return
	}
	userID, ok := s.requireIdentity(w, r)
	if !ok {
		return
	}
	if err := s.Catalog.DeleteCatalog(r.Context(), userID, r.PathValue("id")); err != nil {
		writeServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	if s.Catalog == nil {
		httpError(w, http.StatusServiceUnavailable, "catalogs not configured")
		return
	}
	viewerID, ok := s.identity(w, r)
	if !ok {
		return
	}
	items, err := s.Catalog.ListItems(r.Context(), viewerID, r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, items)
}

type addItemRequest struct {
	Title      string `json:"title"`
	Seller     string `json:"seller,omitempty"`
	Price      string `json:"price,omitempty"`
	ImageURL   string `json:"image_url,omitempty"`
	ProductURL string `json:"product_url,omitempty"`
}

func (s *Server) handleAddItem(w http.ResponseWriter, r *http.Request) {
	if s.Catalog == nil {
		httpError(w, http.StatusServiceUnavailable, "catalogs not configured")
		return
	}
	userID, ok := s.requireIdentity(w, r)
	if !ok {
		return
	}
	var req addItemRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	item, err := s.Catalog.AddItem(r.Context(), userID, store.CatalogItem{
		CatalogID:  r.PathValue("id"),
		Title:      req.Title,
		Seller:     req.Seller,
		Price:      req.Price,
		ImageURL:   req.ImageURL,
		ProductURL: req.ProductURL,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, item)
}

type deleteItemsRequest struct {
	ItemIDs []string `json:"item_ids"`
}

func (s *Server) handleDeleteItems(w http.ResponseWriter, r *http.Request) {
	if s.Catalog == nil {
		httpError(w, http.StatusServiceUnavailable, "catalogs not configured")
		return
	}
	userID, ok := s.requireIdentity(w, r)
	if !ok {
		return
	}
	var req deleteItemsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	deleted, err := s.Catalog.DeleteItems(r.Context(), userID, req.ItemIDs)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success":       true,
		"deleted_count": deleted,
	})
}
