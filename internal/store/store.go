// Package store persists corpus snapshots and the outbound post log.
package store

import (
	"context"

	"github.com/rcliao/markovbot/internal/corpus"
	"github.com/rcliao/markovbot/internal/model"
)

// ListParams holds parameters for listing recorded posts.
type ListParams struct {
	Kind   string
	Corpus string
	Since  string // e.g. 7d, 24h, 30m
	Limit  int
}

// SearchParams holds parameters for searching recorded posts.
type SearchParams struct {
	Query string
	Kind  string
	Limit int
}

// Store defines the persistence interface.
type Store interface {
	// SaveSnapshot replaces the stored corpus collection with snap.
	SaveSnapshot(ctx context.Context, snap corpus.Snapshot) error

	// LoadSnapshot returns the stored collection. An empty store yields an
	// empty snapshot.
	LoadSnapshot(ctx context.Context) (corpus.Snapshot, error)

	// RecordPost appends an outbound post to the log, assigning its ID.
	RecordPost(ctx context.Context, rec model.PostRecord) error

	// ListPosts returns recorded posts, newest first.
	ListPosts(ctx context.Context, p ListParams) ([]model.PostRecord, error)

	// LoadSavepoint returns the last seen item id for a search term, "" when
	// none was saved.
	LoadSavepoint(ctx context.Context, term string) (string, error)

	// SaveSavepoint stores the last seen item id for a search term.
	SaveSavepoint(ctx context.Context, term, sinceID string) error

	// Close closes the store.
	Close() error
}
