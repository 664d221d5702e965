// Package model defines the core feed and post data types.
package model

import "time"

// Identity is the authenticated account the bot posts as.
type Identity struct {
	ID     string `json:"id"`
	Handle string `json:"handle"`
	Name   string `json:"name,omitempty"`
}

// Item is a single post observed on the feed.
type Item struct {
	ID           string `json:"id"`
	AuthorID     string `json:"author_id"`
	AuthorHandle string `json:"author_handle"`
	AuthorName   string `json:"author_name,omitempty"`
	Text         string `json:"text"`
	InReplyToID  string `json:"in_reply_to_id,omitempty"`
	Lang         string `json:"lang,omitempty"`
	Reshare      bool   `json:"reshare,omitempty"`

	ReshareCount int       `json:"reshare_count,omitempty"`
	CreatedAt    time.Time `json:"created_at,omitempty"`

	// Heartbeat marks keep-alive or hangup notices on a stream. They carry no content.
	Heartbeat bool `json:"heartbeat,omitempty"`
}

// PostedItem is what the feed returns after a publish or reply.
type PostedItem struct {
	ID          string    `json:"id"`
	Text        string    `json:"text"`
	InReplyToID string    `json:"in_reply_to_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// PostRecord is a locally logged outbound post.
type PostRecord struct {
	ID          string    `json:"id"`
	Kind        string    `json:"kind"`
	RemoteID    string    `json:"remote_id,omitempty"`
	InReplyToID string    `json:"in_reply_to_id,omitempty"`
	Corpus      string    `json:"corpus,omitempty"`
	Text        string    `json:"text"`
	CreatedAt   time.Time `json:"created_at"`
}

// Post kinds.
const (
	KindPost    = "post"
	KindReply   = "reply"
	KindReshare = "reshare"
)

// ValidKinds are the allowed post record kinds.
var ValidKinds = map[string]bool{
	KindPost:    true,
	KindReply:   true,
	KindReshare: true,
}
