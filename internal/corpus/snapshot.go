package corpus

import (
	"fmt"
	"sort"
	"strings"

	"github.com/rcliao/markovbot/internal/model"
)

// Entry is one serialized key of a corpus.
type Entry struct {
	W1         string   `json:"w1"`
	W2         string   `json:"w2"`
	Successors []string `json:"successors"`
}

// Snapshot is a detached copy of a whole collection, suitable for storage.
type Snapshot struct {
	Corpora         map[string][]Entry  `json:"corpora"`
	SimpleResponses map[string][]string `json:"simple_responses,omitempty"`
}

// Snapshot copies the collection. Entries are sorted by key so that equal
// collections produce equal snapshots.
func (c *Collection) Snapshot() Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()

	snap := Snapshot{
		Corpora:         make(map[string][]Entry, len(c.corpora)),
		SimpleResponses: make(map[string][]string, len(c.simple)),
	}
	for name, t := range c.corpora {
		entries := make([]Entry, 0, len(t))
		for k, s := range t {
			entries = append(entries, Entry{W1: k.W1, W2: k.W2, Successors: append([]string(nil), s...)})
		}
		sort.Slice(entries, func(i, j int) bool {
			if entries[i].W1 != entries[j].W1 {
				return entries[i].W1 < entries[j].W1
			}
			return entries[i].W2 < entries[j].W2
		})
		snap.Corpora[name] = entries
	}
	for trigger, replies := range c.simple {
		snap.SimpleResponses[trigger] = append([]string(nil), replies...)
	}
	return snap
}

// Merge loads snap into the collection. With overwrite the collection is
// replaced; otherwise successor lists of existing keys are extended and missing
// keys and corpora are created.
func (c *Collection) Merge(snap Snapshot, overwrite bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if overwrite {
		c.corpora = map[string]Table{DefaultName: {}}
		c.simple = map[string][]string{}
	}
	for name, entries := range snap.Corpora {
		if name == SimpleResponseName {
			continue
		}
		t, ok := c.corpora[name]
		if !ok {
			t = Table{}
			c.corpora[name] = t
		}
		for _, e := range entries {
			key := Pair{W1: e.W1, W2: e.W2}
			t[key] = append(t[key], e.Successors...)
		}
	}
	for trigger, replies := range snap.SimpleResponses {
		c.simple[trigger] = append(c.simple[trigger], replies...)
	}
}

// SetSimpleResponses adds trigger → reply entries. Each value must be a string
// or a list of strings; other values are rejected with ErrConfiguration and the
// remaining entries are still applied.
func (c *Collection) SetSimpleResponses(responses map[string]any, overwrite bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if overwrite {
		c.simple = map[string][]string{}
	}
	var bad []string
	for trigger, v := range responses {
		switch val := v.(type) {
		case string:
			c.simple[trigger] = []string{val}
		case []string:
			c.simple[trigger] = append([]string(nil), val...)
		case []any:
			replies := make([]string, 0, len(val))
			ok := true
			for _, r := range val {
				s, isStr := r.(string)
				if !isStr {
					ok = false
					break
				}
				replies = append(replies, s)
			}
			if !ok {
				bad = append(bad, trigger)
				continue
			}
			c.simple[trigger] = replies
		default:
			bad = append(bad, trigger)
		}
	}
	if len(bad) > 0 {
		sort.Strings(bad)
		return fmt.Errorf("%w: simple responses for %s must be a string or a list of strings",
			model.ErrConfiguration, strings.Join(bad, ", "))
	}
	return nil
}

// SimpleResponses returns the literal replies registered for trigger.
func (c *Collection) SimpleResponses(trigger string) ([]string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.simple[trigger]
	if !ok || len(r) == 0 {
		return nil, false
	}
	return append([]string(nil), r...), true
}
