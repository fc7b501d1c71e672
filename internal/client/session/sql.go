package session

import (
	"context"
	"time"

	"github.com/atinyakov/memedesk/internal/models"
)

// Repository is the row-level persistence used by SQLStore.
type Repository interface {
	Load(ctx context.Context, profile string) (models.Credential, bool, error)
	Save(ctx context.Context, profile string, c models.Credential) error
	Delete(ctx context.Context, profile string) error
}

// SQLStore keeps the credential of one profile in a SQL table.
type SQLStore struct {
	repo    Repository
	profile string
	now     func() time.Time
}

// NewSQLStore returns a Store bound to profile. A nil now defaults to time.Now.
func NewSQLStore(repo Repository, profile string, now func() time.Time) *SQLStore {
	if now == nil {
		now = time.Now
	}
	return &SQLStore{repo: repo, profile: profile, now: now}
}

func (s *SQLStore) Read(ctx context.Context) (models.Credential, bool, error) {
	c, found, err := s.repo.Load(ctx, s.profile)
	if err != nil || !found {
		return models.Credential{}, false, err
	}
	if !c.ValidAt(s.now()) {
		return models.Credential{}, false, s.repo.Delete(ctx, s.profile)
	}
	return c, true, nil
}

func (s *SQLStore) Write(ctx context.Context, c models.Credential) error {
	return s.repo.Save(ctx, s.profile, c)
}

func (s *SQLStore) Clear(ctx context.Context) error {
	return s.repo.Delete(ctx, s.profile)
}
