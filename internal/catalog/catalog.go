// Package catalog contains the business logic for profiles, catalogs and
// catalog items. Every user-supplied text and image passes the moderation
// gate before it is persisted, and items are verified to be wearable
// fashion before they enter a catalog.
package catalog

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/sourcedapp/sourced-backend/internal/moderation"
	"github.com/sourcedapp/sourced-backend/internal/store"
)

// ErrForbidden is returned when a user operates on a catalog they do not own.
var ErrForbidden = errors.New("not the catalog owner")

// ValidationError wraps a user-facing validation message.
type ValidationError struct{ Msg string }

func (e *ValidationError) Error() string { return e.Msg }

// Store is the subset of the persistence layer the catalog service uses.
type Store interface {
	CreateProfile(ctx context.Context, userID, username, fullName, avatarURL string) (*store.Profile, error)
	UsernameTaken(ctx context.Context, username string) (bool, error)
	CreateCatalog(ctx context.Context, ownerID, title, imageURL, visibility string) (*store.Catalog, error)
	GetCatalog(ctx context.Context, catalogID string) (*store.Catalog, error)
	ListCatalogs(ctx context.Context, ownerID string, includePrivate bool) ([]store.Catalog, error)
	DeleteCatalog(ctx context.Context, ownerID, catalogID string) error
	InsertCatalogItem(ctx context.Context, item store.CatalogItem) (*store.CatalogItem, error)
	ListCatalogItems(ctx context.Context, catalogID string) ([]store.CatalogItem, error)
	DeleteCatalogItems(ctx context.Context, ownerID string, itemIDs []string) (int64, error)
}

// Service encapsulates catalog business logic. It is transport-agnostic.
type Service struct {
	store       Store
	gate        *moderation.Gate
	categorizer Categorizer
}

// NewService returns a configured Service. categorizer may be nil; items
// are then stored without attributes.
func NewService(st Store, gate *moderation.Gate, categorizer Categorizer) *Service {
	return &Service{store: st, gate: gate, categorizer: categorizer}
}

// CreateProfile creates a user profile after moderating the username and
// full name.
func (s *Service) CreateProfile(ctx context.Context, userID, username, fullName, avatarURL string) (*store.Profile, error) {
	if username == "" {
		return nil, &ValidationError{Msg: "username is required"}
	}
	if v := s.gate.CheckText(ctx, username); !v.Safe {
		return nil, &ValidationError{Msg: "Username contains inappropriate content"}
	}
	if v := s.gate.CheckText(ctx, fullName); !v.Safe {
		return nil, &ValidationError{Msg: "Name contains inappropriate content"}
	}

	taken, err := s.store.UsernameTaken(ctx, username)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, &ValidationError{Msg: "Username is already taken"}
	}

	return s.store.CreateProfile(ctx, userID, username, fullName, avatarURL)
}

// CheckUsername reports whether a username passes the banned-word check
// without creating anything.
func (s *Service) CheckUsername(ctx context.Context, username string) moderation.Verdict {
	if username == "" {
		return moderation.Verdict{Safe: false, Reason: "Invalid username"}
	}
	return s.gate.CheckText(ctx, username)
}

// CreateCatalog creates a catalog after moderating its title and cover
// image. imageURL must already be publicly addressable.
func (s *Service) CreateCatalog(ctx context.Context, ownerID, title, imageURL, visibility string) (*store.Catalog, error) {
	if ownerID == "" {
		return nil, &ValidationError{Msg: "owner is required"}
	}
	if title == "" {
		return nil, &ValidationError{Msg: "title is required"}
	}
	if visibility == "" {
		visibility = "public"
	}
	if visibility != "public" && visibility != "private" {
		return nil, &ValidationError{Msg: "visibility must be public or private"}
	}

	if v := s.gate.CheckText(ctx, title); !v.Safe {
		return nil, &ValidationError{Msg: "Catalog title contains banned language"}
	}
	if v := s.gate.CheckImageRef(ctx, imageURL); !v.Safe {
		return nil, &ValidationError{Msg: "Image violates content guidelines"}
	}

	return s.store.CreateCatalog(ctx, ownerID, title, imageURL, visibility)
}

// GetCatalog returns a single catalog. Private catalogs are only visible
// to their owner.
func (s *Service) GetCatalog(ctx context.Context, viewerID, catalogID string) (*store.Catalog, error) {
	c, err := s.store.GetCatalog(ctx, catalogID)
	if err != nil {
		return nil, err
	}
	if c.Visibility == "private" && c.OwnerID != viewerID {
		return nil, store.ErrNotFound
	}
	return c, nil
}

// ListCatalogs returns a user's catalogs. Private catalogs are included
// only when the viewer is the owner.
func (s *Service) ListCatalogs(ctx context.Context, viewerID, ownerID string) ([]store.Catalog, error) {
	return s.store.ListCatalogs(ctx, ownerID, viewerID == ownerID)
}

// DeleteCatalog removes a catalog owned by the caller.
func (s *Service) DeleteCatalog(ctx context.Context, ownerID, catalogID string) error {
	return s.store.DeleteCatalog(ctx, ownerID, catalogID)
}

// AddItem moderates, categorizes and stores a new catalog item. The caller
// must own the catalog, and the item must be a wearable fashion item.
func (s *Service) AddItem(ctx context.Context, userID string, item store.CatalogItem) (*store.CatalogItem, error) {
	if item.Title == "" {
		return nil, &ValidationError{Msg: "title is required"}
	}

	c, err := s.store.GetCatalog(ctx, item.CatalogID)
	if err != nil {
		return nil, err
	}
	if c.OwnerID != userID {
		return nil, ErrForbidden
	}

	if v := s.gate.CheckText(ctx, item.Title); !v.Safe {
		return nil, &ValidationError{Msg: "Invalid item name"}
	}
	if item.ImageURL != "" {
		if v := s.gate.CheckImageRef(ctx, item.ImageURL); !v.Safe {
			return nil, &ValidationError{Msg: "Image violates content guidelines"}
		}
	}

	if s.categorizer != nil {
		item.Metadata = s.categorizer.Categorize(ctx, item.Title, item.ImageURL, item.ProductURL, item.Price)
		if !item.Metadata.IsFashionItem {
			return nil, &ValidationError{
				Msg: "This doesn't appear to be a fashion item. Sourced is for fashion and wearable items only.",
			}
		}
		log.Debug().
			Str("title", item.Title).
			Str("category", item.Metadata.Category).
			Float64("confidence", item.Metadata.Confidence).
			Msg("Item categorized")
	}

	return s.store.InsertCatalogItem(ctx, item)
}

// ListItems returns all items in a catalog, respecting visibility.
func (s *Service) ListItems(ctx context.Context, viewerID, catalogID string) ([]store.CatalogItem, error) {
	if _, err := s.GetCatalog(ctx, viewerID, catalogID); err != nil {
		return nil, err
	}
	return s.store.ListCatalogItems(ctx, catalogID)
}

// DeleteItems removes items from the caller's catalogs and returns how
// many were deleted.
func (s *Service) DeleteItems(ctx context.Context, userID string, itemIDs []string) (int64, error) {
	if len(itemIDs) == 0 {
		return 0, &ValidationError{Msg: "no items given"}
	}
	return s.store.DeleteCatalogItems(ctx, userID, itemIDs)
}
