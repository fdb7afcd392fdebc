// Package search implements the reverse image search workflow: an accepted
// image is turned into a shopping search query by a vision model, the query
// is run against Google Shopping via SerpAPI, and the results come back as a
// ranked list of product matches.
//
// The package also ships a caller-side Client for invoking a remote search
// endpoint with the bounded wait and cold-start-aware timeout semantics the
// UI depends on.
package search

import (
	"context"
	"errors"
)

// Match is one ranked product result. Order is significant (closest match
// first) and results are not deduplicated.
type Match struct {
	Name     string `json:"name"`
	Price    string `json:"price"`
	Seller   string `json:"seller"`
	ImageURL string `json:"image_url"`
	ItemURL  string `json:"item_url"`
}

// ErrTimeout distinguishes a search that exceeded its bounded wait (the
// remote service may be cold-starting) from a generic failure, so the UI can
// show a "service waking up" message.
var ErrTimeout = errors.New("visual search timed out")

// ErrNotClothing is returned when the vision model decides the image does not
// show a fashion item; the caller renders a "no results" state.
var ErrNotClothing = errors.New("image does not show a recognizable clothing item")

// Searcher searches for products similar to the given image, referenced by
// public URL. Implemented by Engine (in-process) and satisfied remotely via
// Client.SearchBytes for the file-upload path.
type Searcher interface {
	Search(ctx context.Context, imageURL string) ([]Match, error)
}
