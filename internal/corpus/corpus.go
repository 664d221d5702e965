// Package corpus holds the named word-pair transition tables the generator walks.
package corpus

import (
	"fmt"
	"sort"
	"sync"

	"github.com/rcliao/markovbot/internal/model"
	"github.com/rcliao/markovbot/internal/tokenize"
)

const (
	// DefaultName is the corpus used when nothing else is selected.
	DefaultName = "default"
	// SimpleResponseName is reserved for the trigger → literal reply table.
	SimpleResponseName = "simpleresponse"
)

// Pair is an ordered pair of consecutive words.
type Pair struct {
	W1 string `json:"w1"`
	W2 string `json:"w2"`
}

// Contains reports whether word is either half of the pair.
func (p Pair) Contains(word string) bool {
	return p.W1 == word || p.W2 == word
}

// Table maps a pair to every word observed after it, duplicates included.
type Table map[Pair][]string

// Collection is the set of named corpora plus the simple response table.
// Reads may run concurrently; ingestion and merges take the write lock.
type Collection struct {
	mu      sync.RWMutex
	corpora map[string]Table
	simple  map[string][]string
}

// New returns a collection holding an empty default corpus.
func New() *Collection {
	return &Collection{
		corpora: map[string]Table{DefaultName: {}},
		simple:  map[string][]string{},
	}
}

// Ingest adds every filtered triple of text to the named corpus, creating it
// if needed. With overwrite the corpus is cleared first. Returns the number of
// triples added.
func (c *Collection) Ingest(text, name string, overwrite bool) (int, error) {
	if name == "" {
		name = DefaultName
	}
	if name == SimpleResponseName {
		return 0, fmt.Errorf("%w: %q is reserved for simple responses", model.ErrConfiguration, name)
	}
	triples := tokenize.Triples(tokenize.Words(text))

	c.mu.Lock()
	defer c.mu.Unlock()

	t, ok := c.corpora[name]
	if !ok || overwrite {
		t = Table{}
		c.corpora[name] = t
	}
	for _, tr := range triples {
		key := Pair{W1: tr.W1, W2: tr.W2}
		t[key] = append(t[key], tr.W3)
	}
	return len(triples), nil
}

// Clear drops one corpus, or resets the whole collection when name is empty.
// The default corpus is recreated empty rather than removed.
func (c *Collection) Clear(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch name {
	case "":
		c.corpora = map[string]Table{DefaultName: {}}
		c.simple = map[string][]string{}
		return nil
	case SimpleResponseName:
		c.simple = map[string][]string{}
		return nil
	case DefaultName:
		c.corpora[DefaultName] = Table{}
		return nil
	}
	if _, ok := c.corpora[name]; !ok {
		return fmt.Errorf("%w: no corpus named %q", model.ErrConfiguration, name)
	}
	delete(c.corpora, name)
	return nil
}

// IsEmpty reports whether the named corpus has no keys. Unknown corpora are empty.
func (c *Collection) IsEmpty(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if name == SimpleResponseName {
		return len(c.simple) == 0
	}
	return len(c.corpora[name]) == 0
}

// Exists reports whether a corpus with that name has been created.
func (c *Collection) Exists(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if name == SimpleResponseName {
		return true
	}
	_, ok := c.corpora[name]
	return ok
}

// Names returns the sorted corpus names, excluding the simple response table.
func (c *Collection) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.corpora))
	for n := range c.corpora {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// NonEmptyNames returns the sorted names of corpora that have at least one key.
func (c *Collection) NonEmptyNames() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var names []string
	for n, t := range c.corpora {
		if len(t) > 0 {
			names = append(names, n)
		}
	}
	sort.Strings(names)
	return names
}

// Size returns the number of keys and the total number of successors in a corpus.
func (c *Collection) Size(name string) (keys, successors int) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, s := range c.corpora[name] {
		keys++
		successors += len(s)
	}
	return keys, successors
}

// Read runs fn with the named table under the read lock. fn must not retain
// or modify the table.
func (c *Collection) Read(name string, fn func(Table) error) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t, ok := c.corpora[name]
	if !ok {
		return fmt.Errorf("%w: no corpus named %q", model.ErrConfiguration, name)
	}
	return fn(t)
}

// KeysContaining returns the pairs of a corpus that contain word, sorted.
func (c *Collection) KeysContaining(name, word string) ([]Pair, error) {
	var out []Pair
	err := c.Read(name, func(t Table) error {
		for k := range t {
			if k.Contains(word) {
				out = append(out, k)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].W1 != out[j].W1 {
			return out[i].W1 < out[j].W1
		}
		return out[i].W2 < out[j].W2
	})
	return out, err
}
