package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/rcliao/markovbot/internal/model"
)

// Manager holds the posting handle and the streaming handle, each behind its own
// lock. The locks are never held together.
type Manager struct {
	dial   Dialer
	logger *zap.Logger

	creds    atomic.Pointer[Credentials]
	identity atomic.Pointer[model.Identity]
	loggedIn atomic.Bool

	postMu sync.Mutex // guards post
	post   Transport

	streamMu sync.Mutex // guards stream
	stream   Transport

	excluded *Registry
}

// NewManager returns a logged-out manager that creates handles with dial.
func NewManager(dial Dialer, registry *Registry, logger *zap.Logger) *Manager {
	if registry == nil {
		registry = NewRegistry(0)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{dial: dial, excluded: registry, logger: logger}
}

// Login dials both handles and verifies the identity. On success the manager
// is logged in for the rest of the process.
func (m *Manager) Login(ctx context.Context, creds Credentials) (model.Identity, error) {
	m.creds.Store(&creds)
	id, err := m.connect(ctx)
	if err != nil {
		return model.Identity{}, err
	}
	m.loggedIn.Store(true)
	m.logger.Info("logged in", zap.String("handle", id.Handle), zap.String("id", id.ID))
	return id, nil
}

// Reconnect replaces both handles with freshly dialed ones and re-verifies the
// identity. The logged-in state is unchanged.
func (m *Manager) Reconnect(ctx context.Context) error {
	if !m.loggedIn.Load() {
		return model.ErrNotLoggedIn
	}
	m.logger.Info("reconnecting to feed")
	id, err := m.connect(ctx)
	if err != nil {
		m.logger.Warn("reconnect failed", zap.Error(err))
		return err
	}
	m.logger.Info("reconnected", zap.String("handle", id.Handle))
	return nil
}

func (m *Manager) connect(ctx context.Context) (model.Identity, error) {
	creds := m.creds.Load()
	if creds == nil {
		return model.Identity{}, model.ErrNotLoggedIn
	}
	post, err := m.dial(ctx, *creds)
	if err != nil {
		return model.Identity{}, fmt.Errorf("dial posting handle: %w", err)
	}
	id, err := post.Authenticate(ctx)
	if err != nil {
		post.Close()
		return model.Identity{}, fmt.Errorf("verify credentials: %w", err)
	}
	stream, err := m.dial(ctx, *creds)
	if err != nil {
		post.Close()
		return model.Identity{}, fmt.Errorf("dial streaming handle: %w", err)
	}

	m.postMu.Lock()
	old := m.post
	m.post = post
	m.postMu.Unlock()
	if old != nil {
		old.Close()
	}

	m.streamMu.Lock()
	old = m.stream
	m.stream = stream
	m.streamMu.Unlock()
	if old != nil {
		old.Close()
	}

	m.identity.Store(&id)
	return id, nil
}

// LoggedIn reports whether Login has succeeded.
func (m *Manager) LoggedIn() bool { return m.loggedIn.Load() }

// Identity returns the verified account, if logged in.
func (m *Manager) Identity() (model.Identity, bool) {
	id := m.identity.Load()
	if id == nil {
		return model.Identity{}, false
	}
	return *id, true
}

// Excluded returns the registry of item ids never to reply to.
func (m *Manager) Excluded() *Registry { return m.excluded }

// Publish posts text under the posting lock.
func (m *Manager) Publish(ctx context.Context, text string) (model.PostedItem, error) {
	var out model.PostedItem
	err := m.withPost(func(t Transport) error {
		var err error
		out, err = t.Publish(ctx, text)
		return err
	})
	return out, err
}

// Reply posts text in reply to an item under the posting lock.
func (m *Manager) Reply(ctx context.Context, text, inReplyToID, inReplyToAuthor string) (model.PostedItem, error) {
	var out model.PostedItem
	err := m.withPost(func(t Transport) error {
		var err error
		out, err = t.Reply(ctx, text, inReplyToID, inReplyToAuthor)
		return err
	})
	return out, err
}

// LookupItem fetches an item under the posting lock.
func (m *Manager) LookupItem(ctx context.Context, id string) (model.Item, error) {
	var out model.Item
	err := m.withPost(func(t Transport) error {
		var err error
		out, err = t.LookupItem(ctx, id)
		return err
	})
	return out, err
}

// Search runs a search under the posting lock.
func (m *Manager) Search(ctx context.Context, q SearchQuery) ([]model.Item, error) {
	var out []model.Item
	err := m.withPost(func(t Transport) error {
		var err error
		out, err = t.Search(ctx, q)
		return err
	})
	return out, err
}

// Reshare re-posts an item under the posting lock.
func (m *Manager) Reshare(ctx context.Context, id string) (model.PostedItem, error) {
	var out model.PostedItem
	err := m.withPost(func(t Transport) error {
		var err error
		out, err = t.Reshare(ctx, id)
		return err
	})
	return out, err
}

// OpenStream opens a filtered stream under the streaming lock. Reading from the
// returned stream does not hold the lock.
func (m *Manager) OpenStream(ctx context.Context, phrase string) (Stream, error) {
	if !m.loggedIn.Load() {
		return nil, model.ErrNotLoggedIn
	}
	m.streamMu.Lock()
	defer m.streamMu.Unlock()
	if m.stream == nil {
		return nil, model.ErrNotLoggedIn
	}
	return m.stream.OpenFilteredStream(ctx, phrase)
}

func (m *Manager) withPost(fn func(Transport) error) error {
	if !m.loggedIn.Load() {
		return model.ErrNotLoggedIn
	}
	m.postMu.Lock()
	defer m.postMu.Unlock()
	if m.post == nil {
		return model.ErrNotLoggedIn
	}
	return fn(m.post)
}

// Close releases both handles.
func (m *Manager) Close() error {
	var errs []error
	m.postMu.Lock()
	if m.post != nil {
		errs = append(errs, m.post.Close())
		m.post = nil
	}
	m.postMu.Unlock()

	m.streamMu.Lock()
	if m.stream != nil {
		errs = append(errs, m.stream.Close())
		m.stream = nil
	}
	m.streamMu.Unlock()
	return errors.Join(errs...)
}
