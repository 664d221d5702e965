// Package session owns the authenticated feed connection shared by all workers.
package session

import (
	"context"

	"github.com/rcliao/markovbot/internal/model"
)

// Credentials authenticate the bot account.
type Credentials struct {
	ConsumerKey       string `json:"consumer_key" yaml:"consumer_key" mapstructure:"consumer_key"`
	ConsumerSecret    string `json:"consumer_secret" yaml:"consumer_secret" mapstructure:"consumer_secret"`
	AccessToken       string `json:"access_token" yaml:"access_token" mapstructure:"access_token"`
	AccessTokenSecret string `json:"access_token_secret" yaml:"access_token_secret" mapstructure:"access_token_secret"`
}

// Transport is one client handle to the social feed. Every method may fail
// transiently; implementations wrap such failures with model.ErrTransient.
type Transport interface {
	// Authenticate verifies the credentials the handle was dialed with.
	Authenticate(ctx context.Context) (model.Identity, error)

	// OpenFilteredStream starts streaming items that match phrase.
	OpenFilteredStream(ctx context.Context, phrase string) (Stream, error)

	// LookupItem fetches a single item; unknown ids wrap model.ErrNotFound.
	LookupItem(ctx context.Context, id string) (model.Item, error)

	// Publish posts a new top-level item.
	Publish(ctx context.Context, text string) (model.PostedItem, error)

	// Reply posts text in reply to an item by author.
	Reply(ctx context.Context, text, inReplyToID, inReplyToAuthor string) (model.PostedItem, error)

	// Search returns recent items matching q.Term, at most q.Limit of them.
	Search(ctx context.Context, q SearchQuery) ([]model.Item, error)

	// Reshare re-posts an existing item unchanged.
	Reshare(ctx context.Context, id string) (model.PostedItem, error)

	// Close releases the handle.
	Close() error
}

// SearchQuery selects items for Search. Empty Lang means any language and an
// empty SinceID means no lower bound.
type SearchQuery struct {
	Term    string
	Lang    string
	SinceID string
	Limit   int
}

// Stream yields matching items until it ends. Next blocks until an item
// arrives; a finished stream returns an error wrapping model.ErrStreamInterrupted.
type Stream interface {
	Next(ctx context.Context) (model.Item, error)
	Close() error
}

// Dialer creates a fresh transport handle for the given credentials.
type Dialer func(ctx context.Context, creds Credentials) (Transport, error)
