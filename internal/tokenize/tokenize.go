// Package tokenize splits source text into words and filters them for corpus ingestion.
package tokenize

import (
	"strings"
	"unicode"
)

// Punctuation is the set of non-letter characters a corpus word may contain.
const Punctuation = ".,;:'!?"

// markup is stripped from incoming feed text before keyword matching.
const markup = "@#.,;:!?'"

// Triple is three consecutive words from the source token stream.
type Triple struct {
	W1, W2, W3 string
}

// Words splits text on any run of whitespace.
func Words(text string) []string {
	return strings.Fields(text)
}

// Allowed reports whether word contains at least one letter and nothing but
// letters and Punctuation.
func Allowed(word string) bool {
	letters := 0
	for _, r := range word {
		switch {
		case unicode.IsLetter(r):
			letters++
		case strings.ContainsRune(Punctuation, r):
		default:
			return false
		}
	}
	return letters > 0
}

// Triples slides a window of three over words and returns every window whose
// three words all pass Allowed. Fewer than three words yield nothing.
func Triples(words []string) []Triple {
	if len(words) < 3 {
		return nil
	}
	var out []Triple
	for i := 0; i+2 < len(words); i++ {
		w1, w2, w3 := words[i], words[i+1], words[i+2]
		if Allowed(w1) && Allowed(w2) && Allowed(w3) {
			out = append(out, Triple{W1: w1, W2: w2, W3: w3})
		}
	}
	return out
}

// StripMarkup removes mention, hashtag and punctuation characters from word.
func StripMarkup(word string) string {
	return strings.Map(func(r rune) rune {
		if strings.ContainsRune(markup, r) {
			return -1
		}
		return r
	}, word)
}

// MatchKeywords returns the keywords that occur as stripped tokens of text,
// in keyword order. The result is nil when nothing matches.
func MatchKeywords(text string, keywords []string) []string {
	if len(keywords) == 0 {
		return nil
	}
	tokens := make(map[string]bool)
	for _, w := range Words(text) {
		tokens[StripMarkup(w)] = true
	}
	var found []string
	for _, kw := range keywords {
		if tokens[kw] {
			found = append(found, kw)
		}
	}
	return found
}

// IsSentenceEnd reports whether r terminates a sentence.
func IsSentenceEnd(r byte) bool {
	return r == '.' || r == '!' || r == '?'
}

// IsSoftStop reports whether r is a separator that may be rewritten into a full stop.
func IsSoftStop(r byte) bool {
	return r == ',' || r == ';' || r == ':'
}
