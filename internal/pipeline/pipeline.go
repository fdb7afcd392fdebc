// Package pipeline sequences the moderated media ingestion flow:
// capture validation, moderation, persistence, and (optionally) visual
// search. Stages run strictly in order within one request chain; a single
// cancellation context threads through every stage, and each stage returns a
// success value or a typed failure the caller branches on explicitly.
//
// There is no transaction across stages. When a post-upload stage fails, the
// pipeline issues a best-effort compensating delete of the uploaded object so
// rejected or unused assets do not accumulate as orphans.
package pipeline

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/sourcedapp/sourced-backend/internal/capture"
	"github.com/sourcedapp/sourced-backend/internal/moderation"
	"github.com/sourcedapp/sourced-backend/internal/relay"
	"github.com/sourcedapp/sourced-backend/internal/search"
)

// ModerationRejectedError carries the classifier's reason for rejecting a
// candidate; the reason is surfaced to the user as-is.
type ModerationRejectedError struct {
	Reason string
}

func (e *ModerationRejectedError) Error() string {
	return fmt.Sprintf("rejected by moderation: %s", e.Reason)
}

// Pipeline wires the gate, relay, and searcher together. Identity is always
// an explicit parameter; the pipeline holds no ambient session state and
// each run is independent.
type Pipeline struct {
	gate     *moderation.Gate
	relay    *relay.Relay
	searcher search.Searcher
}

// New creates a Pipeline. searcher may be nil for deployments that only
// ingest (no reverse image search).
func New(gate *moderation.Gate, r *relay.Relay, searcher search.Searcher) *Pipeline {
	return &Pipeline{gate: gate, relay: r, searcher: searcher}
}

// Result is a completed search run: the persisted copy of the query image
// and the ranked matches.
type Result struct {
	Asset   relay.PersistedAsset
	Matches []search.Match
}

// SearchFromFile runs the full chain for an uploaded file: moderation of the
// candidate bytes, persistence to the search bucket, then visual search
// against the persisted URL. On search failure the uploaded object is
// deleted best-effort before the error is returned.
func (p *Pipeline) SearchFromFile(ctx context.Context, userID string, c capture.MediaCandidate) (Result, error) {
	if v := p.gate.CheckImage(ctx, c); !v.Safe {
		return Result{}, &ModerationRejectedError{Reason: v.Reason}
	}

	asset, err := p.relay.UploadLocalFile(ctx, userID, relay.PurposeSearch, c)
	if err != nil {
		return Result{}, err
	}

	matches, err := p.searcher.Search(ctx, asset.PublicURL)
	if err != nil {
		p.compensate(ctx, asset.Key)
		return Result{}, err
	}

	return Result{Asset: asset, Matches: matches}, nil
}

// IngestFromFile moderates and persists an uploaded file for the given
// purpose (avatar, catalog cover, feed image, item image).
func (p *Pipeline) IngestFromFile(ctx context.Context, userID string, purpose relay.Purpose, c capture.MediaCandidate) (relay.PersistedAsset, error) {
	if v := p.gate.CheckImage(ctx, c); !v.Safe {
		return relay.PersistedAsset{}, &ModerationRejectedError{Reason: v.Reason}
	}
	return p.relay.UploadLocalFile(ctx, userID, purpose, c)
}

// IngestFromURL moderates a user-pasted URL, rehosts it into owned storage,
// then moderates the rehosted copy again. The second check is defense in
// depth: a URL can change content between the interactive check and the
// rehost. An unsafe second verdict deletes the rehosted object.
func (p *Pipeline) IngestFromURL(ctx context.Context, userID string, purpose relay.Purpose, rawURL string) (relay.PersistedAsset, error) {
	parsed, err := capture.ParseURL(rawURL)
	if err != nil {
		return relay.PersistedAsset{}, err
	}

	if v := p.gate.CheckImageRef(ctx, parsed); !v.Safe {
		return relay.PersistedAsset{}, &ModerationRejectedError{Reason: v.Reason}
	}

	asset, err := p.relay.RehostRemoteURL(ctx, userID, purpose, parsed)
	if err != nil {
		return relay.PersistedAsset{}, err
	}

	if v := p.gate.CheckImageRef(ctx, asset.PublicURL); !v.Safe {
		p.compensate(ctx, asset.Key)
		return relay.PersistedAsset{}, &ModerationRejectedError{Reason: v.Reason}
	}

	return asset, nil
}

// compensate deletes an uploaded object after a downstream failure.
// Best-effort: a failed delete is logged and the original error still wins.
func (p *Pipeline) compensate(ctx context.Context, key string) {
	if err := p.relay.Delete(ctx, key); err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Compensating delete failed; object orphaned")
		return
	}
	log.Debug().Str("key", key).Msg("Compensating delete issued")
}
