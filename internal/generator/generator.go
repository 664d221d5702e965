// Package generator produces sentences by random walks over a corpus.
package generator

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/rcliao/markovbot/internal/corpus"
	"github.com/rcliao/markovbot/internal/model"
	"github.com/rcliao/markovbot/internal/tokenize"
)

// DefaultMaxAttempts bounds retries when a caller passes zero.
const DefaultMaxAttempts = 100

// Generator walks corpora from a shared collection. Safe for concurrent use.
type Generator struct {
	corpora *corpus.Collection

	mu  sync.Mutex // guards rng
	rng *rand.Rand
}

// Option configures a Generator.
type Option func(*Generator)

// WithRand replaces the time-seeded random source, mainly for tests.
func WithRand(r *rand.Rand) Option {
	return func(g *Generator) { g.rng = r }
}

// New returns a generator reading from c.
func New(c *corpus.Collection, opts ...Option) *Generator {
	g := &Generator{
		corpora: c,
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// Generate walks maxWords steps through the named corpus. The walk emits the
// starting pair plus one word per step, maxWords+2 words in all, and the result
// is then trimmed to its last sentence boundary. seeds are tried in order as starting
// points: a single word matches any key containing it, a two-word phrase must
// equal the key. When no seed matches, the walk starts at a random key.
//
// Unknown corpora fail with ErrConfiguration and empty ones with ErrEmptyCorpus,
// both without retrying. Anything else is retried up to maxAttempts times before
// ErrGenerationExhausted.
func (g *Generator) Generate(maxWords int, seeds []string, name string, maxAttempts int) (string, error) {
	if name == "" {
		name = corpus.DefaultName
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if maxWords < 0 {
		maxWords = 0
	}

	var sentence string
	err := g.corpora.Read(name, func(t corpus.Table) error {
		if len(t) == 0 {
			return fmt.Errorf("%w: %q, ingest some text first", model.ErrEmptyCorpus, name)
		}
		keys := make([]corpus.Pair, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}

		g.mu.Lock()
		defer g.mu.Unlock()
		for attempt := 0; attempt < maxAttempts; attempt++ {
			if s, ok := g.attempt(t, keys, maxWords, seeds); ok {
				sentence = s
				return nil
			}
		}
		return fmt.Errorf("%w: %d attempts on corpus %q", model.ErrGenerationExhausted, maxAttempts, name)
	})
	return sentence, err
}

// attempt performs one walk. Caller holds g.mu.
func (g *Generator) attempt(t corpus.Table, keys []corpus.Pair, maxWords int, seeds []string) (string, bool) {
	g.rng.Shuffle(len(keys), func(i, j int) { keys[i], keys[j] = keys[j], keys[i] })

	start, found := findSeed(keys, seeds)
	if !found {
		start = keys[g.rng.Intn(len(keys))]
	}

	w1, w2 := start.W1, start.W2
	words := make([]string, 0, maxWords+2)
	words = append(words, w1)
	for i := 0; i < maxWords; i++ {
		succ := t[corpus.Pair{W1: w1, W2: w2}]
		if len(succ) == 0 {
			return "", false
		}
		next := succ[g.rng.Intn(len(succ))]
		words = append(words, w2)
		w1, w2 = w2, next
	}
	words = append(words, w2)

	capitalize(words)
	words = trim(words)
	if len(words) == 0 {
		return "", false
	}
	return strings.Join(words, " "), true
}

func findSeed(keys []corpus.Pair, seeds []string) (corpus.Pair, bool) {
	for _, seed := range seeds {
		seed = strings.TrimSpace(seed)
		if seed == "" {
			continue
		}
		phrase := strings.Split(seed, " ")
		for _, k := range keys {
			if len(phrase) == 2 && k.W1 == phrase[0] && k.W2 == phrase[1] {
				return k, true
			}
			if len(phrase) == 1 && k.Contains(seed) {
				return k, true
			}
		}
	}
	return corpus.Pair{}, false
}

// capitalize upper-cases the first word, words after a full stop, and a bare "i".
func capitalize(words []string) {
	for i, w := range words {
		if i == 0 || strings.HasSuffix(words[i-1], ".") || w == "i" {
			words[i] = upperFirst(w)
		}
	}
}

func upperFirst(w string) string {
	r, size := utf8.DecodeRuneInString(w)
	if r == utf8.RuneError {
		return w
	}
	return string(unicode.ToUpper(r)) + w[size:]
}

// trim cuts words after the last one carrying punctuation. A trailing , ; or :
// becomes a full stop. Returns nil when no word carries punctuation.
func trim(words []string) []string {
	for i := len(words) - 1; i >= 0; i-- {
		w := words[i]
		if w == "" {
			continue
		}
		last := w[len(w)-1]
		if tokenize.IsSentenceEnd(last) {
			return words[:i+1]
		}
		if tokenize.IsSoftStop(last) {
			words[i] = w[:len(w)-1] + "."
			return words[:i+1]
		}
	}
	return nil
}
