package pipeline

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sourcedapp/sourced-backend/internal/capture"
	"github.com/sourcedapp/sourced-backend/internal/moderation"
	"github.com/sourcedapp/sourced-backend/internal/relay"
	"github.com/sourcedapp/sourced-backend/internal/search"
)

// scriptedImageClassifier returns canned verdicts in call order, repeating
// the last one, and records every imageRef it saw.
type scriptedImageClassifier struct {
	verdicts []moderation.Verdict
	err      error
	refs     []string
}

func (s *scriptedImageClassifier) ClassifyImage(ctx context.Context, imageRef string) (moderation.Verdict, error) {
	s.refs = append(s.refs, imageRef)
	if s.err != nil {
		return moderation.Verdict{}, s.err
	}
	i := len(s.refs) - 1
	if i >= len(s.verdicts) {
		i = len(s.verdicts) - 1
	}
	return s.verdicts[i], nil
}

type fakeSearcher struct {
	matches []search.Match
	err     error
	gotURL  string
}

func (f *fakeSearcher) Search(ctx context.Context, imageURL string) ([]search.Match, error) {
	f.gotURL = imageURL
	return f.matches, f.err
}

func safeClassifier() *scriptedImageClassifier {
	return &scriptedImageClassifier{verdicts: []moderation.Verdict{{Safe: true}}}
}

func testCandidate(t *testing.T, size int) capture.MediaCandidate {
	t.Helper()
	c, err := capture.FromBytes(bytes.Repeat([]byte{0xCD}, size), "image/jpeg", "query.jpg", 0)
	if err != nil {
		t.Fatalf("building candidate: %v", err)
	}
	return c
}

func newPipeline(ic moderation.ImageClassifier, store *relay.MemStore, s search.Searcher) *Pipeline {
	gate := moderation.NewGate(nil, ic)
	return New(gate, relay.NewRelay(store), s)
}

func TestSearchFromFileHappyPath(t *testing.T) {
	store := relay.NewMemStore()
	searcher := &fakeSearcher{matches: []search.Match{{Name: "denim jacket", Seller: "Levi's"}}}
	p := newPipeline(safeClassifier(), store, searcher)

	res, err := p.SearchFromFile(context.Background(), "u1", testCandidate(t, 3*1024*1024))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.HasSuffix(res.Asset.PublicURL, ".jpg") {
		t.Errorf("public URL %q should keep the original extension", res.Asset.PublicURL)
	}
	if searcher.gotURL != res.Asset.PublicURL {
		t.Errorf("search received %q, want the persisted URL %q", searcher.gotURL, res.Asset.PublicURL)
	}
	if len(res.Matches) != 1 || res.Matches[0].Name != "denim jacket" {
		t.Errorf("unexpected matches: %+v", res.Matches)
	}
	if store.Len() != 1 {
		t.Errorf("expected the query image to stay persisted, got %d objects", store.Len())
	}
}

func TestSearchFromFileModerationHaltsBeforeUpload(t *testing.T) {
	store := relay.NewMemStore()
	ic := &scriptedImageClassifier{verdicts: []moderation.Verdict{{Safe: false, Reason: "Image contains inappropriate content"}}}
	p := newPipeline(ic, store, &fakeSearcher{})

	_, err := p.SearchFromFile(context.Background(), "u1", testCandidate(t, 64))

	var rejected *ModerationRejectedError
	if !errors.As(err, &rejected) {
		t.Fatalf("expected ModerationRejectedError, got %v", err)
	}
	if rejected.Reason != "Image contains inappropriate content" {
		t.Errorf("reason = %q", rejected.Reason)
	}
	if store.Len() != 0 {
		t.Errorf("no storage object may be created when moderation rejects, got %d", store.Len())
	}
}

func TestSearchFailureCompensatesUpload(t *testing.T) {
	store := relay.NewMemStore()
	searcher := &fakeSearcher{err: search.ErrTimeout}
	p := newPipeline(safeClassifier(), store, searcher)

	_, err := p.SearchFromFile(context.Background(), "u1", testCandidate(t, 64))
	if !search.IsTimeout(err) {
		t.Fatalf("expected timeout to propagate, got %v", err)
	}
	if store.Len() != 0 {
		t.Errorf("uploaded object should be deleted after search failure, got %d", store.Len())
	}
}

func TestIngestFromURLDoubleChecks(t *testing.T) {
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte{0x89, 0x50, 0x4E, 0x47})
	}))
	defer origin.Close()

	store := relay.NewMemStore()
	ic := safeClassifier()
	p := newPipeline(ic, store, nil)

	asset, err := p.IngestFromURL(context.Background(), "u1", relay.PurposeCatalogCover, origin.URL+"/cover.png")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(ic.refs) != 2 {
		t.Fatalf("expected 2 moderation checks (raw URL + rehosted copy), got %d", len(ic.refs))
	}
	if ic.refs[0] != origin.URL+"/cover.png" {
		t.Errorf("first check should see the raw URL, got %q", ic.refs[0])
	}
	if ic.refs[1] != asset.PublicURL {
		t.Errorf("second check should see the rehosted URL, got %q", ic.refs[1])
	}
}

func TestIngestFromURLSecondVerdictDeletesRehost(t *testing.T) {
	origin := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/jpeg")
		w.Write([]byte{0xFF, 0xD8})
	}))
	defer origin.Close()

	store := relay.NewMemStore()
	// Safe on the raw URL, unsafe on the rehosted copy.
	ic := &scriptedImageClassifier{verdicts: []moderation.Verdict{
		{Safe: true},
		{Safe: false, Reason: "Image contains inappropriate content"},
	}}
	p := newPipeline(ic, store, nil)

	_, err := p.IngestFromURL(context.Background(), "u1", relay.PurposeFeedImage, origin.URL+"/sneaky.jpg")

	var rejected *ModerationRejectedError
	if !errors.As(err, &rejected) {
		t.Fatalf("expected ModerationRejectedError, got %v", err)
	}
	if store.Len() != 0 {
		t.Errorf("rehosted object should be deleted after the second verdict, got %d", store.Len())
	}
}

func TestIngestFromURLRejectsBadURL(t *testing.T) {
	p := newPipeline(safeClassifier(), relay.NewMemStore(), nil)

	_, err := p.IngestFromURL(context.Background(), "u1", relay.PurposeAvatar, "not a url")
	if !errors.Is(err, capture.ErrBadURL) {
		t.Fatalf("expected ErrBadURL, got %v", err)
	}
}

func TestIngestFromFile(t *testing.T) {
	store := relay.NewMemStore()
	p := newPipeline(safeClassifier(), store, nil)

	asset, err := p.IngestFromFile(context.Background(), "u9", relay.PurposeAvatar, testCandidate(t, 128))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(asset.Key, "avatar-u9-") {
		t.Errorf("key %q should be namespaced by purpose and user", asset.Key)
	}
}
