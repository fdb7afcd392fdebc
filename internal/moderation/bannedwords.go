package moderation

import (
	"bufio"
	"bytes"
	"regexp"
	"strings"
	"unicode"

	_ "embed"

	"github.com/rs/zerolog/log"
	"golang.org/x/text/unicode/norm"
)

//go:embed bannedwords.txt
var bannedWordsFile []byte

// leetMap folds common character substitutions used to evade word filters.
var leetMap = map[rune]rune{
	'0': 'o', '1': 'i', '3': 'e', '4': 'a',
	'5': 's', '7': 't', '@': 'a', '$': 's',
}

var (
	nonLetterRe  = regexp.MustCompile(`[^a-z\s]`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// WordList screens text against a banned-word set. Matching is done on a
// normalized form so obfuscations like "b4dw0rd" or spaced-out letters are
// still caught.
type WordList struct {
	words map[string]struct{}
}

// DefaultWordList loads the embedded banned-word file. Lines starting with
// '#' are comments; blank lines are ignored.
func DefaultWordList() *WordList {
	wl := &WordList{words: make(map[string]struct{})}

	scanner := bufio.NewScanner(bytes.NewReader(bannedWordsFile))
	for scanner.Scan() {
		word := strings.ToLower(strings.TrimSpace(scanner.Text()))
		if word == "" || strings.HasPrefix(word, "#") {
			continue
		}
		wl.words[word] = struct{}{}
	}

	log.Debug().Int("words", len(wl.words)).Msg("Banned word list loaded")
	return wl
}

// Normalize lowercases, NFKD-decomposes, folds leetspeak substitutions, and
// strips everything except letters and single spaces.
func Normalize(text string) string {
	text = strings.ToLower(text)
	text = norm.NFKD.String(text)

	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if folded, ok := leetMap[r]; ok {
			r = folded
		}
		// Drop combining marks left over from NFKD decomposition.
		if unicode.Is(unicode.Mn, r) {
			continue
		}
		b.WriteRune(r)
	}

	text = nonLetterRe.ReplaceAllString(b.String(), " ")
	text = whitespaceRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// ContainsBanned reports whether the text contains a banned word, checking
// exact tokens, substrings, and the concatenated (space-stripped) form to
// catch compound evasions.
func (wl *WordList) ContainsBanned(text string) bool {
	normalized := Normalize(text)
	if normalized == "" {
		return false
	}

	for _, token := range strings.Split(normalized, " ") {
		if _, ok := wl.words[token]; ok {
			return true
		}
	}

	noSpaces := strings.ReplaceAll(normalized, " ", "")
	for banned := range wl.words {
		if strings.Contains(normalized, banned) || strings.Contains(noSpaces, banned) {
			return true
		}
	}

	return false
}
