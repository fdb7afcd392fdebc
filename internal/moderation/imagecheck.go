package moderation

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	// defaultModerationURL is the OpenAI moderation endpoint. The multimodal
	// input shape (image_url parts) is not exposed by the typed client, so
	// image checks go through this small HTTP client directly.
	defaultModerationURL = "https://api.openai.com/v1/moderations"

	// omniModerationModel accepts both text and image inputs.
	omniModerationModel = "omni-moderation-latest"

	// downloadTimeout bounds the fetch of a remote image URL before
	// classification.
	downloadTimeout = 15 * time.Second

	// downloadUserAgent is sent when fetching user-pasted URLs; some CDNs
	// reject requests without a browser-like UA.
	downloadUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

	// maxDownloadBytes caps how much of a remote image is read for
	// classification.
	maxDownloadBytes = 20 * 1024 * 1024
)

// imageRejectionReason is surfaced to the user when the classifier flags an image.
const imageRejectionReason = "Image contains inappropriate content"

// OpenAIImageClassifier classifies images through the OpenAI multimodal
// moderation endpoint. Remote http(s) URLs are downloaded and inlined as data
// URIs first so the classifier sees exactly the bytes the user submitted.
type OpenAIImageClassifier struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
}

var _ ImageClassifier = (*OpenAIImageClassifier)(nil)

// NewOpenAIImageClassifier creates an image classifier with the given API key.
func NewOpenAIImageClassifier(apiKey string) *OpenAIImageClassifier {
	return &OpenAIImageClassifier{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		apiKey:     apiKey,
		baseURL:    defaultModerationURL,
	}
}

// --- moderation API types ---

type moderationRequest struct {
	Model string            `json:"model"`
	Input []moderationInput `json:"input"`
}

type moderationInput struct {
	Type     string              `json:"type"`
	ImageURL moderationImageURL  `json:"image_url"`
}

type moderationImageURL struct {
	URL string `json:"url"`
}

type moderationResponse struct {
	Results []struct {
		Flagged    bool            `json:"flagged"`
		Categories map[string]bool `json:"categories"`
	} `json:"results"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// ClassifyImage classifies the image referenced by a data URI or http(s) URL.
//
// Download failures of a user-pasted URL are verdicts, not errors: a URL the
// service cannot fetch or that does not serve an image is rejected outright,
// matching the fail-closed posture for images. Only classifier transport
// failures are returned as errors for the gate's policy to handle.
func (c *OpenAIImageClassifier) ClassifyImage(ctx context.Context, imageRef string) (Verdict, error) {
	dataURI := imageRef

	switch {
	case strings.HasPrefix(imageRef, "data:image/"):
		// Already inline.
	case strings.HasPrefix(imageRef, "http://"), strings.HasPrefix(imageRef, "https://"):
		var verdict *Verdict
		var err error
		dataURI, verdict, err = c.downloadAsDataURI(ctx, imageRef)
		if err != nil {
			return Verdict{}, err
		}
		if verdict != nil {
			return *verdict, nil
		}
	default:
		return Verdict{Safe: false, Reason: "Please provide a valid image URL (http:// or https://)"}, nil
	}

	body, err := json.Marshal(moderationRequest{
		Model: omniModerationModel,
		Input: []moderationInput{{Type: "image_url", ImageURL: moderationImageURL{URL: dataURI}}},
	})
	if err != nil {
		return Verdict{}, fmt.Errorf("marshal moderation request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return Verdict{}, fmt.Errorf("build moderation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Verdict{}, fmt.Errorf("image moderation request: %w", err)
	}
	defer resp.Body.Close()

	var parsed moderationResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return Verdict{}, fmt.Errorf("decode moderation response: %w", err)
	}
	if parsed.Error != nil {
		return Verdict{}, fmt.Errorf("image moderation API: %s", parsed.Error.Message)
	}
	if resp.StatusCode != http.StatusOK {
		return Verdict{}, fmt.Errorf("image moderation API: status %d", resp.StatusCode)
	}
	if len(parsed.Results) == 0 {
		return Verdict{}, fmt.Errorf("image moderation: empty results")
	}

	result := parsed.Results[0]
	if result.Flagged {
		flagged := make([]string, 0, len(result.Categories))
		for cat, isFlagged := range result.Categories {
			if isFlagged {
				flagged = append(flagged, cat)
			}
		}
		log.Info().Strs("categories", flagged).Msg("Image rejected by moderation")
		return Verdict{Safe: false, Reason: imageRejectionReason}, nil
	}

	log.Debug().Msg("Image approved by moderation")
	return Verdict{Safe: true}, nil
}

// downloadAsDataURI fetches a remote image URL and returns it inlined as a
// data URI. A non-nil verdict means the download itself decided the outcome
// (non-image content, HTTP error, timeout) and no classifier call is needed.
func (c *OpenAIImageClassifier) downloadAsDataURI(ctx context.Context, rawURL string) (string, *Verdict, error) {
	dlCtx, cancel := context.WithTimeout(ctx, downloadTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(dlCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", &Verdict{Safe: false, Reason: "Failed to download image - check URL format"}, nil
	}
	req.Header.Set("User-Agent", downloadUserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Warn().Err(err).Str("url", rawURL).Msg("Image download failed during moderation")
		return "", &Verdict{Safe: false, Reason: "Failed to download image - check URL format"}, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &Verdict{Safe: false, Reason: fmt.Sprintf("Failed to download image (HTTP %d)", resp.StatusCode)}, nil
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "image/") {
		return "", &Verdict{Safe: false, Reason: "URL does not point to an image"}, nil
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadBytes))
	if err != nil {
		return "", &Verdict{Safe: false, Reason: "Failed to download image - check URL format"}, nil
	}

	log.Debug().Int("bytes", len(data)).Str("contentType", contentType).Msg("Image downloaded for moderation")
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data), nil, nil
}
