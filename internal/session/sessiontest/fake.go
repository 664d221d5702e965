// Package sessiontest provides an in-memory feed for exercising session users.
package sessiontest

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/rcliao/markovbot/internal/model"
	"github.com/rcliao/markovbot/internal/session"
)

// Post is one item published through the fake feed.
type Post struct {
	Text            string
	InReplyToID     string
	InReplyToAuthor string
}

// Feed is a fake social feed. Items pushed to Incoming are delivered to
// whichever stream reads first.
type Feed struct {
	Self     model.Identity
	Incoming chan model.Item

	mu          sync.Mutex
	items       map[string]model.Item
	posts       []Post
	publishErrs []error
	replyErrs   []error
	authErr     error
	lookups     int
	nextID      int

	searchResults []model.Item
	searches      []session.SearchQuery
	reshareErrs   []error
	reshares      []string

	dials  atomic.Int32
	closes atomic.Int32
}

// NewFeed returns a feed authenticating as self.
func NewFeed(self model.Identity) *Feed {
	return &Feed{
		Self:     self,
		Incoming: make(chan model.Item, 64),
		items:    map[string]model.Item{},
		nextID:   1000,
	}
}

// Dial satisfies session.Dialer.
func (f *Feed) Dial(ctx context.Context, creds session.Credentials) (session.Transport, error) {
	f.dials.Add(1)
	return &transport{feed: f}, nil
}

// AddItem makes an item available to LookupItem.
func (f *Feed) AddItem(it model.Item) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[it.ID] = it
}

// FailPublish queues errors returned by the next Publish calls.
func (f *Feed) FailPublish(errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.publishErrs = append(f.publishErrs, errs...)
}

// FailReply queues errors returned by the next Reply calls.
func (f *Feed) FailReply(errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replyErrs = append(f.replyErrs, errs...)
}

// FailAuth makes every Authenticate call return err.
func (f *Feed) FailAuth(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.authErr = err
}

// SetSearchResults replaces what Search returns.
func (f *Feed) SetSearchResults(items ...model.Item) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searchResults = append([]model.Item(nil), items...)
}

// FailReshare queues errors returned by the next Reshare calls.
func (f *Feed) FailReshare(errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reshareErrs = append(f.reshareErrs, errs...)
}

// Searches returns every query received so far.
func (f *Feed) Searches() []session.SearchQuery {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]session.SearchQuery(nil), f.searches...)
}

// Reshares returns the ids reshared so far.
func (f *Feed) Reshares() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.reshares...)
}

// Posts returns a copy of everything published so far.
func (f *Feed) Posts() []Post {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Post(nil), f.posts...)
}

// Lookups returns the number of LookupItem calls.
func (f *Feed) Lookups() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.lookups
}

// Dials returns the number of handles created.
func (f *Feed) Dials() int { return int(f.dials.Load()) }

// Closes returns the number of handles released.
func (f *Feed) Closes() int { return int(f.closes.Load()) }

func (f *Feed) publish(p Post, queue *[]error) (model.PostedItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(*queue) > 0 {
		err := (*queue)[0]
		*queue = (*queue)[1:]
		if err != nil {
			return model.PostedItem{}, err
		}
	}
	f.posts = append(f.posts, p)
	f.nextID++
	id := strconv.Itoa(f.nextID)
	f.items[id] = model.Item{
		ID:           id,
		AuthorID:     f.Self.ID,
		AuthorHandle: f.Self.Handle,
		Text:         p.Text,
		InReplyToID:  p.InReplyToID,
	}
	return model.PostedItem{ID: id, Text: p.Text, InReplyToID: p.InReplyToID}, nil
}

type transport struct {
	feed   *Feed
	closed atomic.Bool
}

func (t *transport) Authenticate(ctx context.Context) (model.Identity, error) {
	t.feed.mu.Lock()
	defer t.feed.mu.Unlock()
	if t.feed.authErr != nil {
		return model.Identity{}, t.feed.authErr
	}
	return t.feed.Self, nil
}

func (t *transport) OpenFilteredStream(ctx context.Context, phrase string) (session.Stream, error) {
	return &stream{feed: t.feed, done: make(chan struct{})}, nil
}

func (t *transport) LookupItem(ctx context.Context, id string) (model.Item, error) {
	t.feed.mu.Lock()
	defer t.feed.mu.Unlock()
	t.feed.lookups++
	it, ok := t.feed.items[id]
	if !ok {
		return model.Item{}, fmt.Errorf("item %s: %w", id, model.ErrNotFound)
	}
	return it, nil
}

func (t *transport) Publish(ctx context.Context, text string) (model.PostedItem, error) {
	return t.feed.publish(Post{Text: text}, &t.feed.publishErrs)
}

func (t *transport) Reply(ctx context.Context, text, inReplyToID, inReplyToAuthor string) (model.PostedItem, error) {
	return t.feed.publish(Post{Text: text, InReplyToID: inReplyToID, InReplyToAuthor: inReplyToAuthor}, &t.feed.replyErrs)
}

func (t *transport) Search(ctx context.Context, q session.SearchQuery) ([]model.Item, error) {
	t.feed.mu.Lock()
	defer t.feed.mu.Unlock()
	t.feed.searches = append(t.feed.searches, q)
	out := append([]model.Item(nil), t.feed.searchResults...)
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (t *transport) Reshare(ctx context.Context, id string) (model.PostedItem, error) {
	f := t.feed
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.reshareErrs) > 0 {
		err := f.reshareErrs[0]
		f.reshareErrs = f.reshareErrs[1:]
		if err != nil {
			return model.PostedItem{}, err
		}
	}
	f.reshares = append(f.reshares, id)
	f.nextID++
	return model.PostedItem{ID: strconv.Itoa(f.nextID)}, nil
}

func (t *transport) Close() error {
	if t.closed.CompareAndSwap(false, true) {
		t.feed.closes.Add(1)
	}
	return nil
}

type stream struct {
	feed *Feed
	once sync.Once
	done chan struct{}
}

func (s *stream) Next(ctx context.Context) (model.Item, error) {
	select {
	case <-ctx.Done():
		return model.Item{}, ctx.Err()
	case <-s.done:
		return model.Item{}, model.ErrStreamInterrupted
	case it, ok := <-s.feed.Incoming:
		if !ok {
			return model.Item{}, model.ErrStreamInterrupted
		}
		return it, nil
	}
}

func (s *stream) Close() error {
	s.once.Do(func() { close(s.done) })
	return nil
}
