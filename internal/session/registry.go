package session

import (
	"time"

	"github.com/patrickmn/go-cache"
)

// Registry is the set of item ids the bot must never reply to. Entries live for
// the process lifetime unless a TTL is given.
type Registry struct {
	ids *cache.Cache
}

// NewRegistry returns an empty registry. A zero ttl keeps entries forever.
func NewRegistry(ttl time.Duration) *Registry {
	if ttl <= 0 {
		return &Registry{ids: cache.New(cache.NoExpiration, 0)}
	}
	return &Registry{ids: cache.New(ttl, ttl)}
}

// Add records id and reports whether it was new.
func (r *Registry) Add(id string) bool {
	if id == "" {
		return false
	}
	return r.ids.Add(id, struct{}{}, cache.DefaultExpiration) == nil
}

// Contains reports whether id is excluded.
func (r *Registry) Contains(id string) bool {
	if id == "" {
		return false
	}
	_, ok := r.ids.Get(id)
	return ok
}

// Len returns the number of live entries.
func (r *Registry) Len() int { return r.ids.ItemCount() }
