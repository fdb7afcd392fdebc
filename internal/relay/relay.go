// Package relay converts accepted media candidates into durably stored,
// publicly addressable assets, and normalizes externally hosted images into
// owned storage so the system never depends on a foreign URL staying alive.
package relay

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sourcedapp/sourced-backend/internal/capture"
)

// Purpose names the asset's role and prefixes its object key.
type Purpose string

const (
	PurposeAvatar       Purpose = "avatar"
	PurposeCatalogCover Purpose = "catalog-cover"
	PurposeFeedImage    Purpose = "feed-image"
	PurposeItemImage    Purpose = "item-image"
	PurposeSearch       Purpose = "search"
)

// ParsePurpose validates a purpose string from a request. Empty input
// defaults to the feed image purpose.
func ParsePurpose(s string) (Purpose, error) {
	switch Purpose(s) {
	case PurposeAvatar, PurposeCatalogCover, PurposeFeedImage, PurposeItemImage, PurposeSearch:
		return Purpose(s), nil
	case "":
		return PurposeFeedImage, nil
	}
	return "", fmt.Errorf("unknown purpose %q", s)
}

const (
	// fetchTimeout bounds the download of a remote URL during rehosting.
	fetchTimeout = 15 * time.Second

	// fetchUserAgent is sent on rehost downloads; some image hosts block
	// requests without a browser-like UA.
	fetchUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

	// defaultContentType is assumed when the remote response carries none.
	defaultContentType = "image/jpeg"
)

// PersistedAsset is a durably stored copy of an accepted image. Key is kept
// alongside the public URL so callers can issue a compensating delete when a
// later pipeline stage fails.
type PersistedAsset struct {
	PublicURL string `json:"publicUrl"`
	Key       string `json:"-"`
}

// FetchError reports a failed download of a remote URL during rehosting.
type FetchError struct {
	URL    string
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch %s: HTTP %d", e.URL, e.Status)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// UploadError reports a failed object-storage write.
type UploadError struct {
	Key string
	Err error
}

func (e *UploadError) Error() string { return fmt.Sprintf("upload %s: %v", e.Key, e.Err) }
func (e *UploadError) Unwrap() error { return e.Err }

// Relay uploads accepted candidates to object storage under collision-
// resistant keys namespaced by caller identity.
type Relay struct {
	store      ObjectStore
	httpClient *http.Client
	maxBytes   int64
	now        func() time.Time
}

// NewRelay creates a Relay over the given store.
func NewRelay(store ObjectStore) *Relay {
	return &Relay{
		store:      store,
		httpClient: &http.Client{Timeout: fetchTimeout},
		maxBytes:   capture.MaxBytes,
		now:        time.Now,
	}
}

// UploadLocalFile uploads the candidate's bytes and returns the persisted
// asset. The object key is {purpose}-{userID}-{timestampMillis}{ext}; an
// anonymous caller gets the "anon" namespace. Either a full asset is returned
// or an error — never a partial URL.
func (r *Relay) UploadLocalFile(ctx context.Context, userID string, purpose Purpose, c capture.MediaCandidate) (PersistedAsset, error) {
	if userID == "" {
		userID = "anon"
	}
	key := fmt.Sprintf("%s-%s-%d%s", purpose, userID, r.now().UnixMilli(), c.Ext())

	contentType := c.ContentType
	if contentType == "" {
		contentType = defaultContentType
	}

	if err := r.store.Put(ctx, key, c.Bytes, contentType); err != nil {
		return PersistedAsset{}, &UploadError{Key: key, Err: err}
	}

	asset := PersistedAsset{PublicURL: r.store.PublicURL(key), Key: key}
	log.Info().
		Str("key", key).
		Str("purpose", string(purpose)).
		Int64("bytes", c.Size()).
		Msg("Asset persisted")
	return asset, nil
}

// RehostRemoteURL downloads the remote image and re-uploads it to owned
// storage. The content type comes from the response, defaulting to JPEG.
func (r *Relay) RehostRemoteURL(ctx context.Context, userID string, purpose Purpose, rawURL string) (PersistedAsset, error) {
	data, contentType, err := r.fetch(ctx, rawURL)
	if err != nil {
		return PersistedAsset{}, err
	}

	// Wrap the downloaded bytes as a synthetic file; size and MIME checks
	// apply to rehosted content exactly as they do to direct uploads.
	c, err := capture.FromBytes(data, contentType, fileNameFromURL(rawURL), r.maxBytes)
	if err != nil {
		return PersistedAsset{}, err
	}

	return r.UploadLocalFile(ctx, userID, purpose, c)
}

// Delete issues a best-effort removal of a previously uploaded key; used as
// the compensating action when a later pipeline stage fails.
func (r *Relay) Delete(ctx context.Context, key string) error {
	return r.store.Delete(ctx, key)
}

func (r *Relay) fetch(ctx context.Context, rawURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", &FetchError{URL: rawURL, Err: err}
	}
	req.Header.Set("User-Agent", fetchUserAgent)

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, "", &FetchError{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, "", &FetchError{URL: rawURL, Status: resp.StatusCode}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, r.maxBytes+1))
	if err != nil {
		return nil, "", &FetchError{URL: rawURL, Err: err}
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = defaultContentType
	}
	if idx := strings.Index(contentType, ";"); idx != -1 {
		contentType = strings.TrimSpace(contentType[:idx])
	}

	log.Debug().Str("url", rawURL).Int("bytes", len(data)).Str("contentType", contentType).Msg("Remote image fetched for rehosting")
	return data, contentType, nil
}

func fileNameFromURL(rawURL string) string {
	trimmed := strings.SplitN(rawURL, "?", 2)[0]
	if idx := strings.LastIndex(trimmed, "/"); idx != -1 && idx < len(trimmed)-1 {
		return trimmed[idx+1:]
	}
	return "image.jpg"
}
