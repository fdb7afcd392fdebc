package moderation

import (
	"context"
	"errors"
	"testing"
)

type fakeTextClassifier struct {
	verdict Verdict
	err     error
	calls   int
}

func (f *fakeTextClassifier) ClassifyText(ctx context.Context, text string) (Verdict, error) {
	f.calls++
	return f.verdict, f.err
}

type fakeImageClassifier struct {
	verdict Verdict
	err     error
	calls   int
}

func (f *fakeImageClassifier) ClassifyImage(ctx context.Context, imageRef string) (Verdict, error) {
	f.calls++
	return f.verdict, f.err
}

func TestCheckTextEmptyShortCircuits(t *testing.T) {
	fc := &fakeTextClassifier{verdict: Verdict{Safe: false, Reason: "should not be reached"}}
	g := NewGate(fc, nil)

	for _, text := range []string{"", "   ", "\t\n  "} {
		v := g.CheckText(context.Background(), text)
		if !v.Safe {
			t.Errorf("CheckText(%q) expected safe, got %+v", text, v)
		}
	}
	if fc.calls != 0 {
		t.Errorf("expected zero classifier calls for empty input, got %d", fc.calls)
	}
}

func TestCheckTextBannedWordRejectsLocally(t *testing.T) {
	fc := &fakeTextClassifier{verdict: Verdict{Safe: true}}
	g := NewGate(fc, nil)

	v := g.CheckText(context.Background(), "total_sh1t_lord")
	if v.Safe {
		t.Fatal("expected banned-word rejection")
	}
	if v.Reason == "" {
		t.Error("expected a rejection reason")
	}
	if fc.calls != 0 {
		t.Errorf("banned-word screen should reject before the classifier; got %d calls", fc.calls)
	}
}

func TestCheckTextPassesVerdictVerbatim(t *testing.T) {
	fc := &fakeTextClassifier{verdict: Verdict{Safe: false, Reason: "Contains inappropriate content"}}
	g := NewGate(fc, nil)

	v := g.CheckText(context.Background(), "perfectly normal words")
	if v.Safe || v.Reason != "Contains inappropriate content" {
		t.Errorf("expected classifier verdict verbatim, got %+v", v)
	}
}

func TestFailureAsymmetry(t *testing.T) {
	// The same unreachable-classifier condition must fail open for text and
	// closed for images.
	transportErr := errors.New("connection refused")
	ft := &fakeTextClassifier{err: transportErr}
	fi := &fakeImageClassifier{err: transportErr}
	g := NewGate(ft, fi)

	if v := g.CheckText(context.Background(), "hello there"); !v.Safe {
		t.Errorf("text check should fail open, got %+v", v)
	}

	v := g.CheckImageRef(context.Background(), "https://example.com/a.jpg")
	if v.Safe {
		t.Errorf("image check should fail closed, got %+v", v)
	}
	if v.Reason == "" {
		t.Error("fail-closed verdict should carry a generic reason")
	}
}

func TestFailurePolicyIsConfigurable(t *testing.T) {
	transportErr := errors.New("boom")
	ft := &fakeTextClassifier{err: transportErr}
	fi := &fakeImageClassifier{err: transportErr}
	g := NewGate(ft, fi, WithTextPolicy(FailClosed), WithImagePolicy(FailOpen))

	if v := g.CheckText(context.Background(), "hello"); v.Safe {
		t.Errorf("text configured fail-closed, got %+v", v)
	}
	if v := g.CheckImageRef(context.Background(), "https://example.com/a.jpg"); !v.Safe {
		t.Errorf("image configured fail-open, got %+v", v)
	}
}

func TestCheckImageAlwaysCallsClassifier(t *testing.T) {
	fi := &fakeImageClassifier{verdict: Verdict{Safe: true}}
	g := NewGate(nil, fi)

	g.CheckImageRef(context.Background(), "https://example.com/a.jpg")
	g.CheckImageRef(context.Background(), "https://example.com/a.jpg")

	if fi.calls != 2 {
		t.Errorf("expected 2 classifier calls (no short-circuit for images), got %d", fi.calls)
	}
}

func TestCheckImageIdempotent(t *testing.T) {
	fi := &fakeImageClassifier{verdict: Verdict{Safe: false, Reason: "Image contains inappropriate content"}}
	g := NewGate(nil, fi)

	first := g.CheckImageRef(context.Background(), "https://example.com/a.jpg")
	second := g.CheckImageRef(context.Background(), "https://example.com/a.jpg")

	if first != second {
		t.Errorf("identical input must yield identical verdicts: %+v vs %+v", first, second)
	}
}
