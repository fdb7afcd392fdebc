package moderation

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestCachedClassifierCachesVerdicts(t *testing.T) {
	inner := &fakeImageClassifier{verdict: Verdict{Safe: true}}
	c := NewCachedImageClassifier(inner, newTestRedis(t), time.Minute)

	ctx := context.Background()
	const ref = "https://example.com/jacket.jpg"

	v1, err := c.ClassifyImage(ctx, ref)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	v2, err := c.ClassifyImage(ctx, ref)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if v1 != v2 {
		t.Errorf("cached verdict differs: %+v vs %+v", v1, v2)
	}
	if inner.calls != 1 {
		t.Errorf("expected 1 inner call, got %d", inner.calls)
	}
}

func TestCachedClassifierDistinctKeys(t *testing.T) {
	inner := &fakeImageClassifier{verdict: Verdict{Safe: true}}
	c := NewCachedImageClassifier(inner, newTestRedis(t), time.Minute)

	ctx := context.Background()
	c.ClassifyImage(ctx, "https://example.com/a.jpg")
	c.ClassifyImage(ctx, "https://example.com/b.jpg")

	if inner.calls != 2 {
		t.Errorf("different refs must not share cache entries; got %d inner calls", inner.calls)
	}
}

func TestCachedClassifierDoesNotCacheErrors(t *testing.T) {
	inner := &fakeImageClassifier{err: context.DeadlineExceeded}
	c := NewCachedImageClassifier(inner, newTestRedis(t), time.Minute)

	ctx := context.Background()
	const ref = "https://example.com/a.jpg"

	if _, err := c.ClassifyImage(ctx, ref); err == nil {
		t.Fatal("expected inner error to propagate")
	}

	// Once the classifier recovers, the next call must go through.
	inner.err = nil
	inner.verdict = Verdict{Safe: true}
	v, err := c.ClassifyImage(ctx, ref)
	if err != nil {
		t.Fatalf("unexpected error after recovery: %v", err)
	}
	if !v.Safe {
		t.Errorf("expected recovered verdict, got %+v", v)
	}
	if inner.calls != 2 {
		t.Errorf("expected 2 inner calls, got %d", inner.calls)
	}
}

func TestDebouncerOnlySettledValueFires(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	defer d.Stop()

	got := make(chan string, 3)
	d.Submit("h", func(v string) { got <- v })
	d.Submit("ht", func(v string) { got <- v })
	d.Submit("https://example.com/a.jpg", func(v string) { got <- v })

	select {
	case v := <-got:
		if v != "https://example.com/a.jpg" {
			t.Errorf("expected settled value, got %q", v)
		}
	case <-time.After(time.Second):
		t.Fatal("debounced callback never fired")
	}

	// No further callbacks should arrive for the superseded submissions.
	select {
	case v := <-got:
		t.Errorf("unexpected extra callback with %q", v)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestDebouncerStopCancelsPending(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)

	fired := make(chan struct{}, 1)
	d.Submit("value", func(string) { fired <- struct{}{} })
	d.Stop()

	select {
	case <-fired:
		t.Error("callback fired after Stop")
	case <-time.After(60 * time.Millisecond):
	}
}
