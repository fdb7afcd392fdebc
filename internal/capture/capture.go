// Package capture turns a user-selected image (file bytes or a pasted URL)
// into a validated MediaCandidate before any network call is made.
//
// Validation here is local-only: MIME prefix and byte-length checks for files,
// URI parsing for URLs. Moderation and upload happen in later stages.
package capture

import (
	"encoding/base64"
	"errors"
	"fmt"
	"mime"
	"net/url"
	"path/filepath"
	"strings"
)

// MaxBytes is the default upload size ceiling (5 MiB).
const MaxBytes = 5 * 1024 * 1024

// Validation failures. Callers branch with errors.Is; all of these are
// detected before any network round trip.
var (
	ErrNotImage = errors.New("file is not an image")
	ErrTooLarge = errors.New("file exceeds the maximum allowed size")
	ErrEmpty    = errors.New("file is empty")
	ErrBadURL   = errors.New("invalid image URL")
)

// MediaCandidate is an in-flight image payload awaiting moderation and upload.
// It is request-scoped and carries no identity; the caller supplies identity
// separately when the candidate is persisted.
type MediaCandidate struct {
	Bytes       []byte
	ContentType string
	Filename    string
}

// Size returns the payload length in bytes.
func (c MediaCandidate) Size() int64 {
	return int64(len(c.Bytes))
}

// Ext returns the candidate's file extension (with leading dot), resolved
// from the original filename and falling back to the content type.
// Defaults to ".jpg" when neither source yields one.
func (c MediaCandidate) Ext() string {
	if ext := filepath.Ext(c.Filename); ext != "" {
		return strings.ToLower(ext)
	}
	if exts, err := mime.ExtensionsByType(c.ContentType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ".jpg"
}

// DataURI encodes the candidate as a base64 data URI for classifiers that
// accept inline image payloads.
func (c MediaCandidate) DataURI() string {
	ct := c.ContentType
	if ct == "" {
		ct = "image/jpeg"
	}
	return "data:" + ct + ";base64," + base64.StdEncoding.EncodeToString(c.Bytes)
}

// FromBytes validates raw file bytes as an image candidate.
// Rejects empty payloads, non-image content types, and payloads over maxBytes
// (pass 0 to use the MaxBytes default).
func FromBytes(data []byte, contentType, filename string, maxBytes int64) (MediaCandidate, error) {
	if maxBytes <= 0 {
		maxBytes = MaxBytes
	}
	if len(data) == 0 {
		return MediaCandidate{}, fmt.Errorf("%w: %s", ErrEmpty, filename)
	}
	if !strings.HasPrefix(contentType, "image/") {
		return MediaCandidate{}, fmt.Errorf("%w: content type %q", ErrNotImage, contentType)
	}
	if int64(len(data)) > maxBytes {
		return MediaCandidate{}, fmt.Errorf("%w: %d bytes (limit %d)", ErrTooLarge, len(data), maxBytes)
	}
	return MediaCandidate{
		Bytes:       data,
		ContentType: contentType,
		Filename:    filepath.Base(filename),
	}, nil
}

// ParseURL validates a pasted image URL. Only URI parsing is possible locally;
// content-type verification happens when the URL is fetched for rehosting.
// Data URIs are accepted as-is.
func ParseURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("%w: empty", ErrBadURL)
	}
	if strings.HasPrefix(raw, "data:image/") {
		return raw, nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBadURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("%w: scheme %q", ErrBadURL, u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("%w: missing host", ErrBadURL)
	}
	return u.String(), nil
}
