package store

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// FeedQuery selects candidate posts for one feed pull. OwnerIDs narrows
// candidates to specific creators; MinLikes filters for trending content.
// Both zero values mean "no filter".
type FeedQuery struct {
	OwnerIDs   []string
	MinLikes   int
	ExcludeIDs []string
	Limit      int
}

// ListFeedCandidates returns candidate posts matching the query, newest
// first, each joined with its owner profile.
func (s *Store) ListFeedCandidates(ctx context.Context, q FeedQuery) ([]FeedPost, error) {
	sql := `
		SELECT p.id, p.image_url, COALESCE(p.caption, ''), COALESCE(p.music_preview_url, ''),
		       p.like_count, p.comment_count, p.owner_id, p.created_at,
		       pr.id, pr.username, COALESCE(pr.avatar_url, ''), pr.is_verified
		FROM feed_posts p
		JOIN profiles pr ON pr.id = p.owner_id
		WHERE TRUE`

	args := []any{}
	n := 0
	arg := func(v any) string {
		args = append(args, v)
		n++
		return fmt.Sprintf("$%d", n)
	}

	if len(q.OwnerIDs) > 0 {
		sql += ` AND p.owner_id = ANY(` + arg(q.OwnerIDs) + `)`
	}
	if q.MinLikes > 0 {
		sql += ` AND p.like_count >= ` + arg(q.MinLikes)
	}
	if len(q.ExcludeIDs) > 0 {
		sql += ` AND NOT (p.id = ANY(` + arg(q.ExcludeIDs) + `))`
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	sql += ` ORDER BY p.created_at DESC LIMIT ` + arg(limit)

	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("listFeedCandidates query: %w", err)
	}
	defer rows.Close()

	posts := make([]FeedPost, 0)
	for rows.Next() {
		var p FeedPost
		if err := rows.Scan(&p.ID, &p.ImageURL, &p.Caption, &p.MusicPreviewURL,
			&p.LikeCount, &p.CommentCount, &p.OwnerID, &p.CreatedAt,
			&p.Owner.ID, &p.Owner.Username, &p.Owner.AvatarURL, &p.Owner.IsVerified); err != nil {
			return nil, fmt.Errorf("listFeedCandidates scan: %w", err)
		}
		posts = append(posts, p)
	}
	return posts, nil
}

// FollowedUserIDs returns the ids of creators the user follows.
func (s *Store) FollowedUserIDs(ctx context.Context, userID string, limit int) ([]string, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT following_id FROM followers WHERE follower_id = $1 LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("followedUserIDs query: %w", err)
	}
	defer rows.Close()
	return scanStrings(rows)
}

// RecentViews returns the user's most recent post views, newest first.
func (s *Store) RecentViews(ctx context.Context, userID string, limit int) ([]PostView, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT post_id, time_spent_ms, interacted, viewed_at
		 FROM post_views WHERE user_id = $1
		 ORDER BY viewed_at DESC LIMIT $2`,
		userID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("recentViews query: %w", err)
	}
	defer rows.Close()

	views := make([]PostView, 0)
	for rows.Next() {
		var v PostView
		if err := rows.Scan(&v.PostID, &v.TimeSpentMS, &v.Interacted, &v.ViewedAt); err != nil {
			return nil, fmt.Errorf("recentViews scan: %w", err)
		}
		views = append(views, v)
	}
	return views, nil
}

// PostOwners maps each given post id to its creator id. Missing posts are
// simply absent from the result.
func (s *Store) PostOwners(ctx context.Context, postIDs []string) (map[string]string, error) {
	if len(postIDs) == 0 {
		return map[string]string{}, nil
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, owner_id FROM feed_posts WHERE id = ANY($1)`,
		postIDs,
	)
	if err != nil {
		return nil, fmt.Errorf("postOwners query: %w", err)
	}
	defer rows.Close()

	owners := make(map[string]string, len(postIDs))
	for rows.Next() {
		var id, owner string
		if err := rows.Scan(&id, &owner); err != nil {
			return nil, fmt.Errorf("postOwners scan: %w", err)
		}
		owners[id] = owner
	}
	return owners, nil
}

// PostInteractions reports whether the user has liked and saved the post.
func (s *Store) PostInteractions(ctx context.Context, userID, postID string) (liked, saved bool, err error) {
	err = s.pool.QueryRow(ctx,
		`SELECT
		   EXISTS (SELECT 1 FROM liked_feed_posts WHERE user_id = $1 AND feed_post_id = $2),
		   EXISTS (SELECT 1 FROM saved_feed_posts WHERE user_id = $1 AND feed_post_id = $2)`,
		userID, postID,
	).Scan(&liked, &saved)
	if err != nil {
		return false, false, fmt.Errorf("postInteractions: %w", err)
	}
	return liked, saved, nil
}

// PostItems returns the shoppable items tagged on a post.
func (s *Store) PostItems(ctx context.Context, postID string) ([]FeedItem, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, title, image_url, COALESCE(product_url, ''), COALESCE(price, ''),
		        COALESCE(seller, ''), like_count
		 FROM feed_post_items WHERE feed_post_id = $1`,
		postID,
	)
	if err != nil {
		return nil, fmt.Errorf("postItems query: %w", err)
	}
	defer rows.Close()

	items := make([]FeedItem, 0)
	for rows.Next() {
		var it FeedItem
		if err := rows.Scan(&it.ID, &it.Title, &it.ImageURL, &it.ProductURL,
			&it.Price, &it.Seller, &it.LikeCount); err != nil {
			return nil, fmt.Errorf("postItems scan: %w", err)
		}
		items = append(items, it)
	}
	return items, nil
}

// LikedItemIDs returns which of the given item ids the user has liked.
func (s *Store) LikedItemIDs(ctx context.Context, userID string, itemIDs []string) (map[string]bool, error) {
	if len(itemIDs) == 0 {
		return map[string]bool{}, nil
	}
	rows, err := s.pool.Query(ctx,
		`SELECT item_id FROM liked_feed_post_items
		 WHERE user_id = $1 AND item_id = ANY($2)`,
		userID, itemIDs,
	)
	if err != nil {
		return nil, fmt.Errorf("likedItemIDs query: %w", err)
	}
	defer rows.Close()

	ids, err := scanStrings(rows)
	if err != nil {
		return nil, err
	}
	liked := make(map[string]bool, len(ids))
	for _, id := range ids {
		liked[id] = true
	}
	return liked, nil
}

// UpsertPostView records a view, replacing any earlier view of the same
// post by the same user.
func (s *Store) UpsertPostView(ctx context.Context, userID, postID string, timeSpentMS int, interacted bool) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO post_views (user_id, post_id, viewed_at, time_spent_ms, interacted)
		 VALUES ($1, $2, NOW(), $3, $4)
		 ON CONFLICT (user_id, post_id)
		 DO UPDATE SET viewed_at = NOW(), time_spent_ms = $3, interacted = $4`,
		userID, postID, timeSpentMS, interacted,
	)
	if err != nil {
		return fmt.Errorf("upsertPostView: %w", err)
	}
	return nil
}

func scanStrings(rows pgx.Rows) ([]string, error) {
	out := make([]string, 0)
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		out = append(out, s)
	}
	return out, nil
}
