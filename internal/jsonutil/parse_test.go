package jsonutil

import "testing"

type sample struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestParseJSONPlain(t *testing.T) {
	got, err := ParseJSON[sample](`{"name":"belt","count":2}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Name != "belt" || got.Count != 2 {
		t.Errorf("got %+v", got)
	}
}

func TestParseJSONFenced(t *testing.T) {
	raw := "```json\n{\"name\":\"belt\",\"count\":2}\n```"
	got, err := ParseJSON[sample](raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Name != "belt" {
		t.Errorf("got %+v", got)
	}
}

func TestParseJSONEmbeddedInProse(t *testing.T) {
	raw := `Here is the result: {"name":"belt","count":2} hope that helps`
	got, err := ParseJSON[sample](raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Count != 2 {
		t.Errorf("got %+v", got)
	}
}

func TestParseJSONNoPayload(t *testing.T) {
	if _, err := ParseJSON[sample]("nothing here"); err == nil {
		t.Fatal("expected error for text without JSON")
	}
}

func TestStripMarkdownFencesPassThrough(t *testing.T) {
	if got := StripMarkdownFences("plain text"); got != "plain text" {
		t.Errorf("got %q", got)
	}
}
