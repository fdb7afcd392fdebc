package search

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

// DefaultSearchTimeout is the bounded wait for a remote search call. The
// remote service may cold-start, so this is deliberately generous; expiry is
// surfaced as ErrTimeout rather than a generic failure.
const DefaultSearchTimeout = 90 * time.Second

// Client invokes a remote visual search endpoint by uploading the image file
// as multipart form data. It is the caller side of the search contract:
// single request, single response array, no pagination.
type Client struct {
	httpClient *http.Client
	endpoint   string
	timeout    time.Duration
}

// NewClient creates a search client for the given endpoint URL.
// A non-positive timeout uses DefaultSearchTimeout.
func NewClient(endpoint string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultSearchTimeout
	}
	return &Client{
		// The bounded wait is enforced per call via context so ErrTimeout can
		// be distinguished from caller-initiated cancellation.
		httpClient: &http.Client{},
		endpoint:   endpoint,
		timeout:    timeout,
	}
}

type remoteError struct {
	Error string `json:"error"`
}

// SearchBytes uploads the image bytes and returns the ranked matches in
// response order. An empty array is a valid zero-match result. Exceeding the
// bounded wait returns ErrTimeout.
func (c *Client) SearchBytes(ctx context.Context, filename string, data []byte) ([]Match, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("build multipart body: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("write multipart body: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close multipart body: %w", err)
	}

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, c.endpoint, &body)
	if err != nil {
		return nil, fmt.Errorf("build search request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if callCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
			log.Warn().Dur("elapsed", time.Since(start)).Msg("Visual search exceeded bounded wait")
			return nil, fmt.Errorf("%w after %s", ErrTimeout, c.timeout)
		}
		return nil, fmt.Errorf("search request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read search response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var remote remoteError
		if err := json.Unmarshal(raw, &remote); err == nil && remote.Error != "" {
			return nil, fmt.Errorf("search failed: %s", remote.Error)
		}
		return nil, fmt.Errorf("search failed: status %d", resp.StatusCode)
	}

	var matches []Match
	if err := json.Unmarshal(raw, &matches); err != nil {
		return nil, fmt.Errorf("decode search response: %w", err)
	}
	if matches == nil {
		matches = []Match{}
	}

	log.Debug().Int("matches", len(matches)).Dur("elapsed", time.Since(start)).Msg("Visual search complete")
	return matches, nil
}

// IsTimeout reports whether err is the bounded-wait expiry, letting the UI
// show a cold-start message instead of a generic failure.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}
