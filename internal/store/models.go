package store

import "time"

// Profile is a user profile row. Nullable text columns are coalesced to ""
// at scan time.
type Profile struct {
	ID         string    `json:"id"`
	Username   string    `json:"username"`
	FullName   string    `json:"full_name"`
	AvatarURL  string    `json:"avatar_url,omitempty"`
	IsVerified bool      `json:"is_verified"`
	CreatedAt  time.Time `json:"created_at"`
}

// Catalog is a user-owned collection of fashion items.
type Catalog struct {
	ID         string    `json:"id"`
	OwnerID    string    `json:"owner_id"`
	Title      string    `json:"title"`
	ImageURL   string    `json:"image_url"`
	Visibility string    `json:"visibility"`
	CreatedAt  time.Time `json:"created_at"`
}

// ItemMetadata is the AI categorization attached to a catalog item. Stored
// as a single jsonb column; the zero value means "not yet categorized".
type ItemMetadata struct {
	IsFashionItem bool     `json:"is_fashion_item"`
	Category      string   `json:"category,omitempty"`
	Subcategory   string   `json:"subcategory,omitempty"`
	Brand         string   `json:"brand,omitempty"`
	ProductType   string   `json:"product_type,omitempty"`
	Colors        []string `json:"colors,omitempty"`
	PrimaryColor  string   `json:"primary_color,omitempty"`
	Material      string   `json:"material,omitempty"`
	Pattern       string   `json:"pattern,omitempty"`
	StyleTags     []string `json:"style_tags,omitempty"`
	Season        string   `json:"season,omitempty"`
	Formality     string   `json:"formality,omitempty"`
	Gender        string   `json:"gender,omitempty"`
	FitType       string   `json:"fit_type,omitempty"`
	OccasionTags  []string `json:"occasion_tags,omitempty"`
	PriceTier     string   `json:"price_tier,omitempty"`
	Confidence    float64  `json:"confidence"`
}

// CatalogItem is a single sourced product inside a catalog.
type CatalogItem struct {
	ID         string       `json:"id"`
	CatalogID  string       `json:"catalog_id"`
	Title      string       `json:"title"`
	Seller     string       `json:"seller,omitempty"`
	Price      string       `json:"price,omitempty"`
	ImageURL   string       `json:"image_url,omitempty"`
	ProductURL string       `json:"product_url,omitempty"`
	Metadata   ItemMetadata `json:"metadata"`
	CreatedAt  time.Time    `json:"created_at"`
}

// FeedPost is a post in the discovery feed, joined with its owner profile.
type FeedPost struct {
	ID              string    `json:"id"`
	ImageURL        string    `json:"image_url"`
	Caption         string    `json:"caption,omitempty"`
	MusicPreviewURL string    `json:"music_preview_url,omitempty"`
	LikeCount       int       `json:"like_count"`
	CommentCount    int       `json:"comment_count"`
	OwnerID         string    `json:"-"`
	Owner           Profile   `json:"owner"`
	CreatedAt       time.Time `json:"created_at"`
}

// FeedItem is a shoppable product tagged on a feed post.
type FeedItem struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	ImageURL   string `json:"image_url"`
	ProductURL string `json:"product_url,omitempty"`
	Price      string `json:"price,omitempty"`
	Seller     string `json:"seller,omitempty"`
	LikeCount  int    `json:"like_count"`
}

// PostView records how long a user spent on a post and whether they
// interacted with it. One row per (user, post); repeat views upsert.
type PostView struct {
	PostID      string    `json:"post_id"`
	TimeSpentMS int       `json:"time_spent_ms"`
	Interacted  bool      `json:"interacted"`
	ViewedAt    time.Time `json:"viewed_at"`
}
