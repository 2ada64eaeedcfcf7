package session

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Loader restores a previously persisted document when a session is lazily
// created. ok=false means nothing durable exists and the session starts empty.
type Loader func(ctx context.Context, id string) (content string, version int64, ok bool)

// Store is the registry of live sessions. The table lock only covers lookups
// and the lazy-create race; per-document mutations go through each session's
// own mutex.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*DocumentSession
	loader   Loader
}

func NewStore(loader Loader) *Store {
	return &Store{
		sessions: make(map[string]*DocumentSession),
		loader:   loader,
	}
}

// GetOrCreate returns the session for id, lazily creating an empty one. Two
// racing first lookups for the same id see the same session: the slow path
// double-checks under the write lock, so exactly one create wins.
func (s *Store) GetOrCreate(ctx context.Context, id string) (*DocumentSession, bool) {
	s.mu.RLock()
	sess, found := s.sessions[id]
	s.mu.RUnlock()
	if found {
		return sess, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, found := s.sessions[id]; found {
		return sess, false
	}

	content, version := "", int64(0)
	if s.loader != nil {
		if c, v, ok := s.loader(ctx, id); ok {
			content, version = c, v
		}
	}

	sess = newSession(id, content, version, false)
	s.sessions[id] = sess
	return sess, true
}

// Get returns the session for id without creating one.
func (s *Store) Get(id string) (*DocumentSession, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, found := s.sessions[id]
	return sess, found
}

// ForkReadOnly creates an independent read-only session seeded with content.
func (s *Store) ForkReadOnly(content string) *DocumentSession {
	return s.create("view-", content, true)
}

// PromoteShared creates an independent writable session seeded with content.
// There is no ongoing link back to whatever the content came from.
func (s *Store) PromoteShared(content string) *DocumentSession {
	return s.create("shared-", content, false)
}

func (s *Store) create(prefix, content string, readOnly bool) *DocumentSession {
	id := prefix + shortID()
	sess := newSession(id, content, 0, readOnly)

	s.mu.Lock()
	s.sessions[id] = sess
	s.mu.Unlock()

	return sess
}

func shortID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}
