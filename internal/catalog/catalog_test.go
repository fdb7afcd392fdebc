package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sourcedapp/sourced-backend/internal/moderation"
	"github.com/sourcedapp/sourced-backend/internal/store"
)

type fakeStore struct {
	profiles map[string]*store.Profile
	catalogs map[string]*store.Catalog
	items    []store.CatalogItem
	taken    map[string]bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		profiles: map[string]*store.Profile{},
		catalogs: map[string]*store.Catalog{},
		taken:    map[string]bool{},
	}
}

func (f *fakeStore) CreateProfile(_ context.Context, userID, username, fullName, avatarURL string) (*store.Profile, error) {
	if _, ok := f.profiles[userID]; ok {
		return nil, store.ErrExists
	}
	p := &store.Profile{ID: userID, Username: username, FullName: fullName, AvatarURL: avatarURL}
	f.profiles[userID] = p
	return p, nil
}

func (f *fakeStore) UsernameTaken(_ context.Context, username string) (bool, error) {
	return f.taken[username], nil
}

func (f *fakeStore) CreateCatalog(_ context.Context, ownerID, title, imageURL, visibility string) (*store.Catalog, error) {
	c := &store.Catalog{
		ID: "cat-1", OwnerID: ownerID, Title: title,
		ImageURL: imageURL, Visibility: visibility, CreatedAt: time.Now(),
	}
	f.catalogs[c.ID] = c
	return c, nil
}

func (f *fakeStore) GetCatalog(_ context.Context, catalogID string) (*store.Catalog, error) {
	c, ok := f.catalogs[catalogID]
	if !ok {
		return nil, store.ErrNotFound
	}
	return c, nil
}

func (f *fakeStore) ListCatalogs(_ context.Context, ownerID string, includePrivate bool) ([]store.Catalog, error) {
	out := make([]store.Catalog, 0)
	for _, c := range f.catalogs {
		if c.OwnerID != ownerID {
			continue
		}
		if !includePrivate && c.Visibility != "public" {
			continue
		}
		out = append(out, *c)
	}
	return out, nil
}

func (f *fakeStore) DeleteCatalog(_ context.Context, ownerID, catalogID string) error {
	c, ok := f.catalogs[catalogID]
	if !ok || c.OwnerID != ownerID {
		return store.ErrNotFound
	}
	delete(f.catalogs, catalogID)
	return nil
}

func (f *fakeStore) InsertCatalogItem(_ context.Context, item store.CatalogItem) (*store.CatalogItem, error) {
	item.ID = "item-1"
	f.items = append(f.items, item)
	return &item, nil
}

func (f *fakeStore) ListCatalogItems(_ context.Context, catalogID string) ([]store.CatalogItem, error) {
	out := make([]store.CatalogItem, 0)
	for _, it := range f.items {
		if it.CatalogID == catalogID {
			out = append(out, it)
		}
	}
	return out, nil
}

func (f *fakeStore) DeleteCatalogItems(context.Context, string, []string) (int64, error) {
	n := int64(len(f.items))
	f.items = nil
	return n, nil
}

type fakeImageClassifier struct {
	verdict moderation.Verdict
}

func (f *fakeImageClassifier) ClassifyImage(context.Context, string) (moderation.Verdict, error) {
	return f.verdict, nil
}

type fakeCategorizer struct {
	meta store.ItemMetadata
}

func (f *fakeCategorizer) Categorize(context.Context, string, string, string, string) store.ItemMetadata {
	return f.meta
}

func newTestService(fs *fakeStore, imageSafe bool, meta *store.ItemMetadata) *Service {
	gate := moderation.NewGate(nil, &fakeImageClassifier{
		verdict: moderation.Verdict{Safe: imageSafe, Reason: reasonFor(imageSafe)},
	})
	var cat Categorizer
	if meta != nil {
		cat = &fakeCategorizer{meta: *meta}
	}
	return NewService(fs, gate, cat)
}

func reasonFor(safe bool) string {
	if safe {
		return ""
	}
	return "Image contains inappropriate content"
}

func fashionMeta() *store.ItemMetadata {
	return &store.ItemMetadata{IsFashionItem: true, Category: "shoes", Confidence: 0.9}
}

func TestCreateProfile(t *testing.T) {
	fs := newFakeStore()
	svc := newTestService(fs, true, nil)

	p, err := svc.CreateProfile(context.Background(), "user-1", "styler", "Jordan Smith", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Username != "styler" {
		t.Errorf("got username %q", p.Username)
	}
}

func TestCreateProfileBannedUsername(t *testing.T) {
	svc := newTestService(newFakeStore(), true, nil)

	_, err := svc.CreateProfile(context.Background(), "user-1", "0ff1c1al_support", "Jordan", "")
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestCreateProfileTakenUsername(t *testing.T) {
	fs := newFakeStore()
	fs.taken["styler"] = true
	svc := newTestService(fs, true, nil)

	_, err := svc.CreateProfile(context.Background(), "user-1", "styler", "Jordan", "")
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestCheckUsername(t *testing.T) {
	svc := newTestService(newFakeStore(), true, nil)

	if v := svc.CheckUsername(context.Background(), "clean_style"); !v.Safe {
		t.Errorf("clean username rejected: %+v", v)
	}
	if v := svc.CheckUsername(context.Background(), "sh1thead99"); v.Safe {
		t.Error("obfuscated banned username accepted")
	}
	if v := svc.CheckUsername(context.Background(), ""); v.Safe {
		t.Error("empty username accepted")
	}
}

func TestCreateCatalog(t *testing.T) {
	fs := newFakeStore()
	svc := newTestService(fs, true, nil)

	c, err := svc.CreateCatalog(context.Background(), "user-1", "Summer fits", "https://img.test/cover.jpg", "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Visibility != "public" {
		t.Errorf("got visibility %q, want default public", c.Visibility)
	}
}

func TestCreateCatalogBannedTitle(t *testing.T) {
	svc := newTestService(newFakeStore(), true, nil)

	_, err := svc.CreateCatalog(context.Background(), "user-1", "$h1t collection", "https://img.test/c.jpg", "public")
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestCreateCatalogUnsafeImage(t *testing.T) {
	svc := newTestService(newFakeStore(), false, nil)

	_, err := svc.CreateCatalog(context.Background(), "user-1", "Summer fits", "https://img.test/c.jpg", "public")
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestPrivateCatalogHiddenFromOthers(t *testing.T) {
	fs := newFakeStore()
	svc := newTestService(fs, true, nil)

	c, err := svc.CreateCatalog(context.Background(), "user-1", "Secret fits", "https://img.test/c.jpg", "private")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := svc.GetCatalog(context.Background(), "user-1", c.ID); err != nil {
		t.Errorf("owner should see private catalog: %v", err)
	}
	if _, err := svc.GetCatalog(context.Background(), "user-2", c.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("stranger should get not found, got %v", err)
	}
}

func TestAddItem(t *testing.T) {
	fs := newFakeStore()
	svc := newTestService(fs, true, fashionMeta())

	c, _ := svc.CreateCatalog(context.Background(), "user-1", "Sneakers", "https://img.test/c.jpg", "public")

	item, err := svc.AddItem(context.Background(), "user-1", store.CatalogItem{
		CatalogID: c.ID,
		Title:     "White leather sneakers",
		ImageURL:  "https://img.test/shoe.jpg",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if item.Metadata.Category != "shoes" {
		t.Errorf("metadata not attached: %+v", item.Metadata)
	}
}

func TestAddItemNotOwner(t *testing.T) {
	fs := newFakeStore()
	svc := newTestService(fs, true, fashionMeta())

	c, _ := svc.CreateCatalog(context.Background(), "user-1", "Sneakers", "https://img.test/c.jpg", "public")

	_, err := svc.AddItem(context.Background(), "user-2", store.CatalogItem{
		CatalogID: c.ID,
		Title:     "White leather sneakers",
	})
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestAddItemNotFashion(t *testing.T) {
	fs := newFakeStore()
	meta := &store.ItemMetadata{IsFashionItem: false, Category: "other"}
	svc := newTestService(fs, true, meta)

	c, _ := svc.CreateCatalog(context.Background(), "user-1", "Stuff", "https://img.test/c.jpg", "public")

	_, err := svc.AddItem(context.Background(), "user-1", store.CatalogItem{
		CatalogID: c.ID,
		Title:     "Oak coffee table",
		ImageURL:  "https://img.test/table.jpg",
	})
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if len(fs.items) != 0 {
		t.Error("non-fashion item must not be stored")
	}
}

func TestAddItemWithoutCategorizer(t *testing.T) {
	fs := newFakeStore()
	svc := newTestService(fs, true, nil)

	c, _ := svc.CreateCatalog(context.Background(), "user-1", "Sneakers", "https://img.test/c.jpg", "public")

	item, err := svc.AddItem(context.Background(), "user-1", store.CatalogItem{
		CatalogID: c.ID,
		Title:     "White leather sneakers",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if item.Metadata.IsFashionItem {
		t.Error("metadata should be zero without a categorizer")
	}
}

func TestDeleteItemsEmpty(t *testing.T) {
	svc := newTestService(newFakeStore(), true, nil)

	_, err := svc.DeleteItems(context.Background(), "user-1", nil)
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}
