package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/atinyakov/memedesk/internal/models"
)

// Keys of the session file, shared with the browser dashboard's storage.
const (
	TokenKey  = "admin_token"
	ExpiryKey = "admin_token_exp"
)

// FileStore keeps the credential in a small JSON file holding exactly the
// TokenKey and ExpiryKey entries. The expiry is written as a decimal string of
// unix milliseconds.
type FileStore struct {
	path string
	mu   sync.Mutex
	now  func() time.Time
}

// NewFileStore returns a FileStore backed by path. A nil now defaults to time.Now.
func NewFileStore(path string, now func() time.Time) *FileStore {
	if now == nil {
		now = time.Now
	}
	return &FileStore{path: path, now: now}
}

func (s *FileStore) Read(_ context.Context) (models.Credential, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return models.Credential{}, false, nil
	}
	if err != nil {
		return models.Credential{}, false, fmt.Errorf("read session file: %w", err)
	}

	var entries map[string]string
	if err := json.Unmarshal(data, &entries); err != nil {
		// an unreadable file holds no usable session
		return models.Credential{}, false, s.remove()
	}
	token := entries[TokenKey]
	expMs, err := strconv.ParseInt(entries[ExpiryKey], 10, 64)
	if err != nil || token == "" {
		return models.Credential{}, false, s.remove()
	}

	c := models.Credential{Token: token, ExpiresAt: time.UnixMilli(expMs)}
	if !c.ValidAt(s.now()) {
		return models.Credential{}, false, s.remove()
	}
	return c, true, nil
}

func (s *FileStore) Write(_ context.Context, c models.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(map[string]string{
		TokenKey:  c.Token,
		ExpiryKey: strconv.FormatInt(c.ExpiresAt.UnixMilli(), 10),
	})
	if err != nil {
		return fmt.Errorf("encode session: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return fmt.Errorf("write session file: %w", err)
	}
	return nil
}

func (s *FileStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remove()
}

func (s *FileStore) remove() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove session file: %w", err)
	}
	return nil
}
