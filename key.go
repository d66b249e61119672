package mediapick

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// minKeyWordRunes is the minimum rune count for a word to contribute to a
// cache key.
const minKeyWordRunes = 4

// maxKeyWords is the maximum number of description words in a cache key.
const maxKeyWords = 8

// minSearchWordRunes is the minimum rune count for a word to be kept in a
// source search term.
const minSearchWordRunes = 3

// maxSearchWords is the maximum number of meaningful words in a search term.
const maxSearchWords = 5

// enStopWords are common English stop words stripped from search terms.
var enStopWords = map[string]bool{
	"the": true, "and": true, "for": true, "was": true, "were": true,
	"with": true, "that": true, "this": true, "from": true, "into": true,
	"his": true, "her": true, "its": true, "their": true, "had": true,
	"has": true, "are": true, "but": true, "not": true, "after": true,
	"when": true, "which": true, "who": true, "been": true, "during": true,
}

// DeriveKey computes the cache fingerprint for an event. The key is pure and
// deterministic: identical events (up to case/punctuation normalization)
// always map to the same key. Format: "<year>_<w1>_<w2>_..." using the first
// eight words of at least four runes, in original order.
func DeriveKey(event Event) string {
	words := strings.Fields(event.Description)
	kept := make([]string, 0, maxKeyWords)
	for _, w := range words {
		w = normalizeKeyWord(w)
		if utf8.RuneCountInString(w) < minKeyWordRunes {
			continue
		}
		kept = append(kept, w)
		if len(kept) == maxKeyWords {
			break
		}
	}
	if len(kept) == 0 {
		return strconv.Itoa(event.Year)
	}
	return strconv.Itoa(event.Year) + "_" + strings.Join(kept, "_")
}

// normalizeKeyWord lowercases a word and strips everything that is not a
// letter or digit.
func normalizeKeyWord(w string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(w) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// BuildSearchTerm extracts up to five meaningful words from the event
// description for source queries. Strips stop words, short words, and
// surrounding punctuation, preserving original casing and order.
func BuildSearchTerm(event Event) string {
	words := strings.Fields(event.Description)
	var meaningful []string
	for _, w := range words {
		w = strings.Trim(w, ".,;:!?\"'()[]{}«»—–-")
		if w == "" {
			continue
		}
		if enStopWords[strings.ToLower(w)] {
			continue
		}
		if utf8.RuneCountInString(w) < minSearchWordRunes {
			continue
		}
		meaningful = append(meaningful, w)
		if len(meaningful) == maxSearchWords {
			break
		}
	}
	return strings.Join(meaningful, " ")
}
