package moderation

import "testing"

func TestNormalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Hello World", "hello world"},
		{"h3ll0", "hello"},
		{"$h1t", "shit"},
		{"café", "cafe"},
		{"  spaced   out  ", "spaced out"},
		{"under_score-and.dots", "under score and dots"},
	}
	for _, tc := range cases {
		if got := Normalize(tc.in); got != tc.want {
			t.Errorf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestContainsBanned(t *testing.T) {
	wl := DefaultWordList()

	banned := []string{
		"shit",
		"SHIT",
		"sh1t",
		"$h1t",
		"total shit storm", // token match
		"shithead99",       // substring match
		"s h i t",          // concatenated match
		"official",         // impersonation bait
	}
	for _, s := range banned {
		if !wl.ContainsBanned(s) {
			t.Errorf("ContainsBanned(%q) = false, want true", s)
		}
	}

	clean := []string{
		"",
		"vintage denim jacket",
		"streetwear archive",
		"sophie",
		"thrifted fit check",
	}
	for _, s := range clean {
		if wl.ContainsBanned(s) {
			t.Errorf("ContainsBanned(%q) = true, want false", s)
		}
	}
}
