package moderation

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// DefaultVerdictTTL is how long cached verdicts stay valid. Verdicts are
// stable for identical input, so the TTL mainly bounds growth and picks up
// classifier model updates eventually.
const DefaultVerdictTTL = 24 * time.Hour

// CachedImageClassifier wraps an ImageClassifier with a Redis verdict cache
// keyed by the SHA-256 of the image reference. The gate itself stays
// stateless; caching is an explicit decorator, not gate behavior.
//
// Errors from the inner classifier are never cached — only verdicts are, so
// a transient outage does not poison subsequent checks.
type CachedImageClassifier struct {
	inner ImageClassifier
	rdb   *redis.Client
	ttl   time.Duration
}

var _ ImageClassifier = (*CachedImageClassifier)(nil)

// NewCachedImageClassifier decorates inner with a Redis verdict cache.
// A non-positive ttl uses DefaultVerdictTTL.
func NewCachedImageClassifier(inner ImageClassifier, rdb *redis.Client, ttl time.Duration) *CachedImageClassifier {
	if ttl <= 0 {
		ttl = DefaultVerdictTTL
	}
	return &CachedImageClassifier{inner: inner, rdb: rdb, ttl: ttl}
}

func verdictKey(imageRef string) string {
	sum := sha256.Sum256([]byte(imageRef))
	return "moderation:image:" + hex.EncodeToString(sum[:])
}

// ClassifyImage returns a cached verdict when present, otherwise delegates to
// the inner classifier and caches the result. Cache failures degrade to a
// plain classifier call.
func (c *CachedImageClassifier) ClassifyImage(ctx context.Context, imageRef string) (Verdict, error) {
	key := verdictKey(imageRef)

	if raw, err := c.rdb.Get(ctx, key).Result(); err == nil {
		var v Verdict
		if err := json.Unmarshal([]byte(raw), &v); err == nil {
			log.Debug().Str("key", key).Bool("safe", v.Safe).Msg("Moderation verdict cache hit")
			return v, nil
		}
	} else if err != redis.Nil {
		log.Warn().Err(err).Msg("Verdict cache read failed; classifying directly")
	}

	v, err := c.inner.ClassifyImage(ctx, imageRef)
	if err != nil {
		return Verdict{}, err
	}

	if raw, err := json.Marshal(v); err == nil {
		if err := c.rdb.Set(ctx, key, raw, c.ttl).Err(); err != nil {
			log.Warn().Err(err).Msg("Verdict cache write failed")
		}
	}

	return v, nil
}
