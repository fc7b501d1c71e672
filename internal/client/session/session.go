// Package session keeps the bearer credential between API calls and runs.
//
// Every Store applies the same expiry rule inside Read: a credential whose
// expiry is not strictly in the future is purged and reported absent, so
// callers never have to compare timestamps themselves.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/atinyakov/memedesk/internal/models"
)

// Store persists at most one credential.
type Store interface {
	// Read returns the stored credential if it is still valid.
	Read(ctx context.Context) (models.Credential, bool, error)
	// Write replaces the stored credential.
	Write(ctx context.Context, c models.Credential) error
	// Clear removes the stored credential. Clearing an empty store is not an error.
	Clear(ctx context.Context) error
}

// MemoryStore is an in-process Store.
type MemoryStore struct {
	mu   sync.Mutex
	cred models.Credential
	set  bool
	now  func() time.Time
}

// NewMemoryStore returns an empty MemoryStore. A nil now defaults to time.Now.
func NewMemoryStore(now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{now: now}
}

func (s *MemoryStore) Read(_ context.Context) (models.Credential, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.set {
		return models.Credential{}, false, nil
	}
	if !s.cred.ValidAt(s.now()) {
		s.cred, s.set = models.Credential{}, false
		return models.Credential{}, false, nil
	}
	return s.cred, true, nil
}

func (s *MemoryStore) Write(_ context.Context, c models.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cred, s.set = c, true
	return nil
}

func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cred, s.set = models.Credential{}, false
	return nil
}
