package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// CreateProfile inserts a new profile. Returns ErrExists if the user
// already has one.
func (s *Store) CreateProfile(ctx context.Context, userID, username, fullName, avatarURL string) (*Profile, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM profiles WHERE id = $1)`, userID,
	).Scan(&exists)
	if err != nil {
		return nil, fmt.Errorf("createProfile exists check: %w", err)
	}
	if exists {
		return nil, ErrExists
	}

	var p Profile
	err = s.pool.QueryRow(ctx,
		`INSERT INTO profiles (id, username, full_name, avatar_url)
		 VALUES ($1, $2, $3, NULLIF($4, ''))
		 RETURNING id, username, full_name, COALESCE(avatar_url, ''), is_verified, created_at`,
		userID, username, fullName, avatarURL,
	).Scan(&p.ID, &p.Username, &p.FullName, &p.AvatarURL, &p.IsVerified, &p.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("createProfile insert: %w", err)
	}
	return &p, nil
}

// GetProfile returns a profile by user id.
func (s *Store) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	var p Profile
	err := s.pool.QueryRow(ctx,
		`SELECT id, username, full_name, COALESCE(avatar_url, ''), is_verified, created_at
		 FROM profiles WHERE id = $1`,
		userID,
	).Scan(&p.ID, &p.Username, &p.FullName, &p.AvatarURL, &p.IsVerified, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getProfile: %w", err)
	}
	return &p, nil
}

// SetAvatarURL updates the avatar of an existing profile.
func (s *Store) SetAvatarURL(ctx context.Context, userID, avatarURL string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE profiles SET avatar_url = $1 WHERE id = $2`,
		avatarURL, userID,
	)
	if err != nil {
		return fmt.Errorf("setAvatarURL: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// UsernameTaken reports whether any profile already uses the username.
func (s *Store) UsernameTaken(ctx context.Context, username string) (bool, error) {
	var taken bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM profiles WHERE lower(username) = lower($1))`,
		username,
	).Scan(&taken)
	if err != nil {
		return false, fmt.Errorf("usernameTaken: %w", err)
	}
	return taken, nil
}
