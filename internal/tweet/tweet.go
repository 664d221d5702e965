// Package tweet composes length-bounded posts from generated sentences.
package tweet

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rcliao/markovbot/internal/model"
)

const (
	// DefaultLimit is the platform character limit.
	DefaultLimit = 140
	// StartWords is the first walk length requested from the generator.
	StartWords = 20
)

// Generator is the part of generator.Generator the builder needs.
type Generator interface {
	Generate(maxWords int, seeds []string, name string, maxAttempts int) (string, error)
}

// Builder shrinks generation requests until the composed text fits the limit.
type Builder struct {
	gen         Generator
	limit       int
	maxAttempts int
}

// NewBuilder returns a builder with the given character limit (DefaultLimit when
// not positive) and per-generation attempt cap.
func NewBuilder(gen Generator, limit, maxAttempts int) *Builder {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Builder{gen: gen, limit: limit, maxAttempts: maxAttempts}
}

// Limit returns the character limit.
func (b *Builder) Limit() int { return b.limit }

// Construct generates a sentence from the named corpus and wraps it in prefix
// and suffix. Each oversized result is discarded and a walk one word shorter is
// requested. Once the walk length reaches zero without fitting, the prefix and
// suffix alone are too long and ErrConfiguration is returned.
func (b *Builder) Construct(name string, seeds []string, prefix, suffix string) (string, error) {
	for words := StartWords; words >= 0; words-- {
		sentence, err := b.gen.Generate(words, seeds, name, b.maxAttempts)
		if err != nil {
			return "", err
		}
		text := Compose(prefix, sentence, suffix)
		if Length(text) <= b.limit {
			return text, nil
		}
	}
	return "", fmt.Errorf("%w: prefix %q and suffix %q leave no room within %d characters",
		model.ErrConfiguration, prefix, suffix, b.limit)
}

// Compose joins the non-empty parts with single spaces.
func Compose(parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}

// Length counts characters, not bytes.
func Length(s string) int {
	return utf8.RuneCountInString(s)
}

// Truncate cuts s to at most limit characters.
func Truncate(s string, limit int) string {
	if Length(s) <= limit {
		return s
	}
	r := []rune(s)
	return string(r[:limit])
}
