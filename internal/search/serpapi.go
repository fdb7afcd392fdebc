package search

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	serpAPIBaseURL = "https://serpapi.com/search"

	// defaultShoppingLimit caps how many shopping rows are mapped per query.
	defaultShoppingLimit = 12
)

// excludedSellers are marketplaces skipped in results; their listings are
// resale noise for a "where to buy this" search.
var excludedSellers = []string{"ebay", "poshmark"}

// ShoppingProvider runs a text query against a product search index and
// returns ranked matches.
type ShoppingProvider interface {
	Shop(ctx context.Context, query string, limit int) ([]Match, error)
}

// SerpAPIProvider queries Google Shopping through SerpAPI.
type SerpAPIProvider struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
}

var _ ShoppingProvider = (*SerpAPIProvider)(nil)

// NewSerpAPIProvider creates a Google Shopping provider with the given key.
func NewSerpAPIProvider(apiKey string) *SerpAPIProvider {
	return &SerpAPIProvider{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		apiKey:     apiKey,
		baseURL:    serpAPIBaseURL,
	}
}

// serpResponse is the subset of the SerpAPI payload the mapper reads.
type serpResponse struct {
	ShoppingResults []serpShoppingResult `json:"shopping_results"`
	Error           string               `json:"error"`
}

type serpShoppingResult struct {
	Title              string           `json:"title"`
	Price              string           `json:"price"`
	Source             string           `json:"source"`
	Thumbnail          string           `json:"thumbnail"`
	ProductLink        string           `json:"product_link"`
	Link               string           `json:"link"`
	RichProductSummary *serpRichSummary `json:"rich_product_summary"`
}

type serpRichSummary struct {
	ProductLink string `json:"product_link"`
}

// Shop runs a Google Shopping search and maps the results in returned order,
// skipping excluded marketplace sellers.
func (p *SerpAPIProvider) Shop(ctx context.Context, query string, limit int) ([]Match, error) {
	if limit <= 0 {
		limit = defaultShoppingLimit
	}

	params := url.Values{
		"engine":  {"google_shopping"},
		"q":       {query},
		"api_key": {p.apiKey},
		"hl":      {"en"},
		"gl":      {"us"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build shopping request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("shopping request: %w", err)
	}
	defer resp.Body.Close()

	var parsed serpResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode shopping response: %w", err)
	}
	if parsed.Error != "" {
		return nil, fmt.Errorf("shopping API: %s", parsed.Error)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("shopping API: status %d", resp.StatusCode)
	}

	matches := make([]Match, 0, limit)
	for _, item := range parsed.ShoppingResults {
		if len(matches) >= limit {
			break
		}
		if sellerExcluded(item.Source) {
			continue
		}

		itemURL := item.ProductLink
		if itemURL == "" && item.RichProductSummary != nil {
			itemURL = item.RichProductSummary.ProductLink
		}
		if itemURL == "" {
			itemURL = item.Link
		}

		matches = append(matches, Match{
			Name:     item.Title,
			Price:    item.Price,
			Seller:   item.Source,
			ImageURL: item.Thumbnail,
			ItemURL:  itemURL,
		})
	}

	log.Debug().Str("query", query).Int("matches", len(matches)).Msg("Shopping search complete")
	return matches, nil
}

func sellerExcluded(seller string) bool {
	lower := strings.ToLower(seller)
	for _, excluded := range excludedSellers {
		if strings.Contains(lower, excluded) {
			return true
		}
	}
	return false
}
