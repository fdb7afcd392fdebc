package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// CreateCatalog inserts a new catalog with a generated id.
func (s *Store) CreateCatalog(ctx context.Context, ownerID, title, imageURL, visibility string) (*Catalog, error) {
	var c Catalog
	err := s.pool.QueryRow(ctx,
		`INSERT INTO catalogs (id, owner_id, title, image_url, visibility)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, owner_id, title, image_url, visibility, created_at`,
		uuid.NewString(), ownerID, title, imageURL, visibility,
	).Scan(&c.ID, &c.OwnerID, &c.Title, &c.ImageURL, &c.Visibility, &c.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("createCatalog: %w", err)
	}
	return &c, nil
}

// GetCatalog returns a catalog by id.
func (s *Store) GetCatalog(ctx context.Context, catalogID string) (*Catalog, error) {
	var c Catalog
	err := s.pool.QueryRow(ctx,
		`SELECT id, owner_id, title, image_url, visibility, created_at
		 FROM catalogs WHERE id = $1`,
		catalogID,
	).Scan(&c.ID, &c.OwnerID, &c.Title, &c.ImageURL, &c.Visibility, &c.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getCatalog: %w", err)
	}
	return &c, nil
}

// ListCatalogs returns a user's catalogs, newest first. Private catalogs are
// included only when includePrivate is set.
func (s *Store) ListCatalogs(ctx context.Context, ownerID string, includePrivate bool) ([]Catalog, error) {
	const base = `
		SELECT id, owner_id, title, image_url, visibility, created_at
		FROM catalogs WHERE owner_id = $1`

	var (
		rows pgx.Rows
		err  error
	)
	if includePrivate {
		rows, err = s.pool.Query(ctx, base+` ORDER BY created_at DESC`, ownerID)
	} else {
		rows, err = s.pool.Query(ctx, base+` AND visibility = 'public' ORDER BY created_at DESC`, ownerID)
	}
	if err != nil {
		return nil, fmt.Errorf("listCatalogs query: %w", err)
	}
	defer rows.Close()

	catalogs := make([]Catalog, 0)
	for rows.Next() {
		var c Catalog
		if err := rows.Scan(&c.ID, &c.OwnerID, &c.Title, &c.ImageURL, &c.Visibility, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("listCatalogs scan: %w", err)
		}
		catalogs = append(catalogs, c)
	}
	return catalogs, nil
}

// DeleteCatalog removes a catalog and its items, validating ownership.
func (s *Store) DeleteCatalog(ctx context.Context, ownerID, catalogID string) error {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM catalogs WHERE id = $1 AND owner_id = $2`,
		catalogID, ownerID,
	)
	if err != nil {
		return fmt.Errorf("deleteCatalog: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// InsertCatalogItem adds an item with its categorization metadata.
func (s *Store) InsertCatalogItem(ctx context.Context, item CatalogItem) (*CatalogItem, error) {
	meta, err := json.Marshal(item.Metadata)
	if err != nil {
		return nil, fmt.Errorf("insertCatalogItem marshal metadata: %w", err)
	}

	out := item
	err = s.pool.QueryRow(ctx,
		`INSERT INTO catalog_items (id, catalog_id, title, seller, price, image_url, product_url, metadata)
		 VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), NULLIF($6, ''), NULLIF($7, ''), $8::jsonb)
		 RETURNING id, created_at`,
		uuid.NewString(), item.CatalogID, item.Title, item.Seller, item.Price,
		item.ImageURL, item.ProductURL, meta,
	).Scan(&out.ID, &out.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("insertCatalogItem: %w", err)
	}
	return &out, nil
}

// ListCatalogItems returns all items in a catalog, oldest first.
func (s *Store) ListCatalogItems(ctx context.Context, catalogID string) ([]CatalogItem, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, catalog_id, title, COALESCE(seller, ''), COALESCE(price, ''),
		        COALESCE(image_url, ''), COALESCE(product_url, ''), metadata, created_at
		 FROM catalog_items WHERE catalog_id = $1 ORDER BY created_at ASC`,
		catalogID,
	)
	if err != nil {
		return nil, fmt.Errorf("listCatalogItems query: %w", err)
	}
	defer rows.Close()

	items := make([]CatalogItem, 0)
	for rows.Next() {
		var (
			it   CatalogItem
			meta []byte
		)
		if err := rows.Scan(&it.ID, &it.CatalogID, &it.Title, &it.Seller, &it.Price,
			&it.ImageURL, &it.ProductURL, &meta, &it.CreatedAt); err != nil {
			return nil, fmt.Errorf("listCatalogItems scan: %w", err)
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &it.Metadata); err != nil {
				return nil, fmt.Errorf("listCatalogItems metadata: %w", err)
			}
		}
		items = append(items, it)
	}
	return items, nil
}

// DeleteCatalogItems removes the given items. Items in catalogs the user
// does not own are skipped silently.
func (s *Store) DeleteCatalogItems(ctx context.Context, ownerID string, itemIDs []string) (int64, error) {
	if len(itemIDs) == 0 {
		return 0, nil
	}
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM catalog_items ci
		 USING catalogs c
		 WHERE ci.catalog_id = c.id
		   AND c.owner_id = $1
		   AND ci.id = ANY($2)`,
		ownerID, itemIDs,
	)
	if err != nil {
		return 0, fmt.Errorf("deleteCatalogItems: %w", err)
	}
	return tag.RowsAffected(), nil
}
