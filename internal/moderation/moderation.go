// Package moderation implements the content-moderation gate applied to
// user-submitted text (usernames, titles, captions) and images before they
// are persisted or handed to paid downstream services.
//
// The gate itself is stateless: identical input yields an identical verdict
// for as long as the underlying classifier is stable. What it does when the
// classifier cannot be reached is explicit configuration, not an accident of
// code path: text checks default to failing open (an unreachable classifier
// must not block onboarding) while image checks default to failing closed.
package moderation

import (
	"context"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/sourcedapp/sourced-backend/internal/capture"
)

// Verdict is the classification result for a text or image candidate.
type Verdict struct {
	Safe   bool   `json:"safe"`
	Reason string `json:"error,omitempty"`
}

// FailurePolicy decides the verdict when a classifier call fails in
// transport or parsing, before any classification was obtained.
type FailurePolicy int

const (
	// FailOpen treats an unreachable classifier as "safe".
	FailOpen FailurePolicy = iota
	// FailClosed treats an unreachable classifier as "unsafe".
	FailClosed
)

// failedVerifyReason is the generic fail-closed rejection message. The real
// error is logged server-side, never surfaced to the user.
const failedVerifyReason = "Failed to verify content safety"

// OnError converts a classifier error into the policy's verdict.
func (p FailurePolicy) OnError(err error) Verdict {
	if p == FailOpen {
		log.Warn().Err(err).Msg("Moderation classifier unreachable; failing open")
		return Verdict{Safe: true}
	}
	log.Warn().Err(err).Msg("Moderation classifier unreachable; failing closed")
	return Verdict{Safe: false, Reason: failedVerifyReason}
}

// TextClassifier classifies free text as safe or unsafe.
type TextClassifier interface {
	ClassifyText(ctx context.Context, text string) (Verdict, error)
}

// ImageClassifier classifies an image, referenced by data URI or http(s) URL.
type ImageClassifier interface {
	ClassifyImage(ctx context.Context, imageRef string) (Verdict, error)
}

// Gate applies the moderation pipeline: a local banned-word screen for text,
// then the remote classifier, with per-candidate-type failure policies.
type Gate struct {
	words       *WordList
	text        TextClassifier
	image       ImageClassifier
	textPolicy  FailurePolicy
	imagePolicy FailurePolicy
}

// Option configures a Gate.
type Option func(*Gate)

// WithTextPolicy overrides the text-check failure policy (default FailOpen).
func WithTextPolicy(p FailurePolicy) Option {
	return func(g *Gate) { g.textPolicy = p }
}

// WithImagePolicy overrides the image-check failure policy (default FailClosed).
func WithImagePolicy(p FailurePolicy) Option {
	return func(g *Gate) { g.imagePolicy = p }
}

// NewGate builds a Gate over the given classifiers. Either classifier may be
// nil, in which case the corresponding remote check is skipped (the local
// banned-word screen still applies to text).
func NewGate(text TextClassifier, image ImageClassifier, opts ...Option) *Gate {
	g := &Gate{
		words:       DefaultWordList(),
		text:        text,
		image:       image,
		textPolicy:  FailOpen,
		imagePolicy: FailClosed,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// CheckText classifies a text candidate. Empty or whitespace-only input
// short-circuits to safe without any network call.
func (g *Gate) CheckText(ctx context.Context, text string) Verdict {
	if strings.TrimSpace(text) == "" {
		return Verdict{Safe: true}
	}

	if g.words.ContainsBanned(text) {
		log.Info().Int("length", len(text)).Msg("Text rejected by banned-word screen")
		return Verdict{Safe: false, Reason: "Contains inappropriate content"}
	}

	if g.text == nil {
		return Verdict{Safe: true}
	}

	v, err := g.text.ClassifyText(ctx, text)
	if err != nil {
		return g.textPolicy.OnError(err)
	}
	return v
}

// CheckImage classifies an image candidate's bytes. Images always go to the
// classifier; there is no local short-circuit.
func (g *Gate) CheckImage(ctx context.Context, c capture.MediaCandidate) Verdict {
	return g.CheckImageRef(ctx, c.DataURI())
}

// CheckImageRef classifies an image referenced by data URI or http(s) URL.
func (g *Gate) CheckImageRef(ctx context.Context, imageRef string) Verdict {
	if g.image == nil {
		return g.imagePolicy.OnError(errNoImageClassifier)
	}
	v, err := g.image.ClassifyImage(ctx, imageRef)
	if err != nil {
		return g.imagePolicy.OnError(err)
	}
	return v
}
