// Package feed implements the discovery feed ranking: one post per pull,
// chosen by a weighted mix of content strategies and an engagement score
// with recency decay.
package feed

import (
	"context"
	"math/rand"
	"sort"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/sourcedapp/sourced-backend/internal/store"
)

// Store is the subset of the persistence layer the feed reads and writes.
type Store interface {
	ListFeedCandidates(ctx context.Context, q store.FeedQuery) ([]store.FeedPost, error)
	FollowedUserIDs(ctx context.Context, userID string, limit int) ([]string, error)
	RecentViews(ctx context.Context, userID string, limit int) ([]store.PostView, error)
	PostOwners(ctx context.Context, postIDs []string) (map[string]string, error)
	PostInteractions(ctx context.Context, userID, postID string) (liked, saved bool, err error)
	PostItems(ctx context.Context, postID string) ([]store.FeedItem, error)
	LikedItemIDs(ctx context.Context, userID string, itemIDs []string) (map[string]bool, error)
	UpsertPostView(ctx context.Context, userID, postID string, timeSpentMS int, interacted bool) error
}

// Strategy names returned in AlgorithmInfo.
const (
	StrategyFollowed  = "followed"
	StrategyEngaged   = "engaged_creators"
	StrategyPopular   = "popular"
	StrategyDiscovery = "discovery"
)

// Strategy weights out of 100. Followed and engaged only participate when
// the user has those signals; the remainder falls through to discovery.
const (
	weightFollowed = 40
	weightEngaged  = 30
	weightPopular  = 20
)

// A view counts as engagement when the user interacted or lingered past
// this threshold.
const engagedViewThresholdMS = 3000

const (
	maxFollowedFilter = 50
	maxEngagedFilter  = 30
	maxExcludeFilter  = 20
	topCandidatePool  = 5
)

// Item is a feed post item annotated with the caller's like state.
type Item struct {
	store.FeedItem
	IsLiked bool `json:"is_liked"`
}

// Post is one fully hydrated feed post ready to serve.
type Post struct {
	store.FeedPost
	IsLiked bool   `json:"is_liked"`
	IsSaved bool   `json:"is_saved"`
	Items   []Item `json:"items"`
}

// AlgorithmInfo describes how a post was chosen, for debugging.
type AlgorithmInfo struct {
	Strategy            string `json:"strategy"`
	CandidatesEvaluated int    `json:"candidates_evaluated"`
	TotalFetched        int    `json:"total_fetched"`
}

// Signals summarizes a user's behavior for strategy selection.
type Signals struct {
	FollowedUsers      []string `json:"-"`
	EngagedCreators    []string `json:"-"`
	RecentInteractions []string `json:"-"`
	AvgViewTimeMS      float64  `json:"avg_view_time_ms"`
	FollowingCount     int      `json:"following_count"`
	EngagedCount       int      `json:"engaged_creators_count"`
	InteractionCount   int      `json:"recent_interactions_count"`
}

// Service selects feed posts. The rand source and clock are injectable so
// selection is deterministic under test.
type Service struct {
	store Store
	rng   *rand.Rand
	now   func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithRand replaces the random source.
func WithRand(rng *rand.Rand) Option {
	return func(s *Service) { s.rng = rng }
}

// WithClock replaces the clock used for recency decay.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService returns a feed Service over the given store.
func NewService(st Store, opts ...Option) *Service {
	s := &Service{
		store: st,
		rng:   rand.New(rand.NewSource(time.Now().UnixNano())),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// EngagementScore ranks a post by likes and comments, decayed by age.
// Comments weigh three times a like; the decay halves roughly per day.
func (s *Service) EngagementScore(p store.FeedPost) float64 {
	hoursOld := s.now().Sub(p.CreatedAt).Hours()
	if hoursOld < 0 {
		hoursOld = 0
	}
	recency := 1.0 / (1.0 + hoursOld/24)
	return float64(p.LikeCount+3*p.CommentCount) * recency
}

// UserSignals analyzes recent behavior: who the user follows, which
// creators they engage with, and how long they dwell on posts. Signal
// collection failures degrade to empty signals rather than failing the
// feed pull.
func (s *Service) UserSignals(ctx context.Context, userID string) Signals {
	var sig Signals
	if userID == "" {
		return sig
	}

	followed, err := s.store.FollowedUserIDs(ctx, userID, 200)
	if err != nil {
		log.Warn().Err(err).Str("userId", userID).Msg("loading followed users failed")
	}
	sig.FollowedUsers = followed
	sig.FollowingCount = len(followed)

	views, err := s.store.RecentViews(ctx, userID, 100)
	if err != nil {
		log.Warn().Err(err).Str("userId", userID).Msg("loading recent views failed")
		return sig
	}
	if len(views) == 0 {
		return sig
	}

	total := 0
	engaged := make([]string, 0)
	for _, v := range views {
		total += v.TimeSpentMS
		if v.Interacted || v.TimeSpentMS > engagedViewThresholdMS {
			engaged = append(engaged, v.PostID)
		}
	}
	sig.AvgViewTimeMS = float64(total) / float64(len(views))

	if len(engaged) > 20 {
		sig.RecentInteractions = engaged[:20]
	} else {
		sig.RecentInteractions = engaged
	}
	sig.InteractionCount = len(sig.RecentInteractions)

	if len(engaged) > 0 {
		lookup := engaged
		if len(lookup) > 50 {
			lookup = lookup[:50]
		}
		owners, err := s.store.PostOwners(ctx, lookup)
		if err != nil {
			log.Warn().Err(err).Str("userId", userID).Msg("loading post owners failed")
			return sig
		}
		sig.EngagedCreators = rankByFrequency(lookup, owners)
		sig.EngagedCount = len(sig.EngagedCreators)
	}
	return sig
}

// rankByFrequency orders creators by how often their posts appear among the
// engaged views, most frequent first. Ties break on creator id so the
// order is stable.
func rankByFrequency(postIDs []string, owners map[string]string) []string {
	counts := make(map[string]int)
	for _, id := range postIDs {
		if owner, ok := owners[id]; ok {
			counts[owner]++
		}
	}
	creators := make([]string, 0, len(counts))
	for c := range counts {
		creators = append(creators, c)
	}
	sort.Slice(creators, func(i, j int) bool {
		if counts[creators[i]] != counts[creators[j]] {
			return counts[creators[i]] > counts[creators[j]]
		}
		return creators[i] < creators[j]
	})
	return creators
}

// pickStrategy does a weighted draw over the strategies available to this
// user. Unclaimed weight falls through to discovery.
func (s *Service) pickStrategy(sig Signals) string {
	type weighted struct {
		name   string
		weight float64
	}
	strategies := make([]weighted, 0, 4)
	if len(sig.FollowedUsers) > 0 {
		strategies = append(strategies, weighted{StrategyFollowed, weightFollowed})
	}
	if len(sig.EngagedCreators) > 0 {
		strategies = append(strategies, weighted{StrategyEngaged, weightEngaged})
	}
	strategies = append(strategies, weighted{StrategyPopular, weightPopular})

	draw := s.rng.Float64() * 100
	cumulative := 0.0
	for _, st := range strategies {
		cumulative += st.weight
		if draw <= cumulative {
			return st.name
		}
	}
	return StrategyDiscovery
}

// Next selects the next post for the user. excludeIDs lists posts the
// client has already shown this session; when every post has been seen the
// feed recirculates. A nil post with nil error means the feed is empty.
func (s *Service) Next(ctx context.Context, userID string, excludeIDs []string) (*Post, *AlgorithmInfo, error) {
	sig := s.UserSignals(ctx, userID)
	strategy := s.pickStrategy(sig)

	candidates, err := s.fetchCandidates(ctx, strategy, sig, excludeIDs)
	if err != nil {
		return nil, nil, err
	}

	// Strategy filter produced nothing; fall back to the whole feed.
	if len(candidates) == 0 && strategy != StrategyDiscovery {
		candidates, err = s.fetchCandidates(ctx, StrategyDiscovery, sig, excludeIDs)
		if err != nil {
			return nil, nil, err
		}
	}

	// Everything has been seen; reset the exclusion list and recirculate.
	if len(candidates) == 0 {
		if len(excludeIDs) > 0 {
			log.Debug().Int("seen", len(excludeIDs)).Msg("feed exhausted, recirculating")
			return s.Next(ctx, userID, nil)
		}
		return nil, nil, nil
	}

	scored := make([]store.FeedPost, len(candidates))
	copy(scored, candidates)
	sort.SliceStable(scored, func(i, j int) bool {
		return s.EngagementScore(scored[i]) > s.EngagementScore(scored[j])
	})

	pool := topCandidatePool
	if len(scored) < pool {
		pool = len(scored)
	}
	selected := scored[s.rng.Intn(pool)]

	post, err := s.hydrate(ctx, userID, selected)
	if err != nil {
		return nil, nil, err
	}

	info := &AlgorithmInfo{
		Strategy:            strategy,
		CandidatesEvaluated: len(scored),
		TotalFetched:        len(candidates),
	}
	return post, info, nil
}

func (s *Service) fetchCandidates(ctx context.Context, strategy string, sig Signals, excludeIDs []string) ([]store.FeedPost, error) {
	q := store.FeedQuery{Limit: 20}

	switch strategy {
	case StrategyFollowed:
		q.OwnerIDs = capped(sig.FollowedUsers, maxFollowedFilter)
	case StrategyEngaged:
		q.OwnerIDs = capped(sig.EngagedCreators, maxEngagedFilter)
	case StrategyPopular:
		q.MinLikes = 1
	case StrategyDiscovery:
		q.Limit = 50
	}

	// Long exclusion lists are dropped so content can recirculate.
	if len(excludeIDs) > 0 && len(excludeIDs) <= maxExcludeFilter {
		q.ExcludeIDs = excludeIDs
	}

	return s.store.ListFeedCandidates(ctx, q)
}

// hydrate attaches like/save state and tagged items for the viewing user.
func (s *Service) hydrate(ctx context.Context, userID string, p store.FeedPost) (*Post, error) {
	post := &Post{FeedPost: p}

	if userID != "" {
		liked, saved, err := s.store.PostInteractions(ctx, userID, p.ID)
		if err != nil {
			return nil, err
		}
		post.IsLiked, post.IsSaved = liked, saved
	}

	items, err := s.store.PostItems(ctx, p.ID)
	if err != nil {
		return nil, err
	}

	likedItems := map[string]bool{}
	if userID != "" && len(items) > 0 {
		ids := make([]string, len(items))
		for i, it := range items {
			ids[i] = it.ID
		}
		likedItems, err = s.store.LikedItemIDs(ctx, userID, ids)
		if err != nil {
			return nil, err
		}
	}

	post.Items = make([]Item, len(items))
	for i, it := range items {
		post.Items[i] = Item{FeedItem: it, IsLiked: likedItems[it.ID]}
	}
	return post, nil
}

// LogView records a post view for future signal analysis.
func (s *Service) LogView(ctx context.Context, userID, postID string, timeSpentMS int, interacted bool) error {
	return s.store.UpsertPostView(ctx, userID, postID, timeSpentMS, interacted)
}

func capped(ids []string, max int) []string {
	if len(ids) > max {
		return ids[:max]
	}
	return ids
}
