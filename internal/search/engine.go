package search

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"
)

// QuerySource turns an image URL into a shopping search query.
// Implemented by QueryGenerator.
type QuerySource interface {
	Generate(ctx context.Context, imageURL string) (string, error)
}

// Engine is the in-process search implementation: query generation followed
// by a shopping lookup. It performs no moderation or auth checks; callers
// sequence those before invoking it.
type Engine struct {
	queries QuerySource
	shop    ShoppingProvider
	limit   int
}

var _ Searcher = (*Engine)(nil)

// NewEngine builds an Engine. A non-positive limit uses the provider default.
func NewEngine(queries QuerySource, shop ShoppingProvider, limit int) *Engine {
	return &Engine{queries: queries, shop: shop, limit: limit}
}

// Search returns ranked product matches for the image at imageURL.
// A non-clothing image yields an empty result, not an error: zero matches is
// a valid outcome rendered as "no results".
func (e *Engine) Search(ctx context.Context, imageURL string) ([]Match, error) {
	query, err := e.queries.Generate(ctx, imageURL)
	if err != nil {
		if errors.Is(err, ErrNotClothing) {
			log.Info().Str("imageUrl", imageURL).Msg("Image not recognized as clothing; returning no matches")
			return []Match{}, nil
		}
		return nil, err
	}

	matches, err := e.shop.Shop(ctx, query, e.limit)
	if err != nil {
		return nil, err
	}
	return matches, nil
}
