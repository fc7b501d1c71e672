// Package repository provides SQL persistence for client session credentials.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/atinyakov/memedesk/internal/models"
)

// SQLSessionRepository keeps one credential row per profile.
// The queries run unchanged on PostgreSQL and SQLite.
type SQLSessionRepository struct {
	// DB is the database handle for executing queries.
	DB *sql.DB
}

// NewSQLSessionRepository creates a new SQLSessionRepository with the given database connection.
func NewSQLSessionRepository(db *sql.DB) *SQLSessionRepository {
	return &SQLSessionRepository{DB: db}
}

// Load returns the credential stored for profile.
// found is false when no row exists.
func (r *SQLSessionRepository) Load(ctx context.Context, profile string) (models.Credential, bool, error) {
	var (
		token string
		expMs int64
	)
	err := r.DB.QueryRowContext(ctx, `
		SELECT token, expires_at FROM session_credentials WHERE profile = $1
	`, profile).Scan(&token, &expMs)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Credential{}, false, nil
	}
	if err != nil {
		return models.Credential{}, false, fmt.Errorf("load session: %w", err)
	}
	return models.Credential{Token: token, ExpiresAt: time.UnixMilli(expMs)}, true, nil
}

// Save inserts or replaces the credential of profile.
func (r *SQLSessionRepository) Save(ctx context.Context, profile string, c models.Credential) error {
	_, err := r.DB.ExecContext(ctx, `
		INSERT INTO session_credentials (profile, token, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (profile) DO UPDATE SET token = excluded.token, expires_at = excluded.expires_at
	`, profile, c.Token, c.ExpiresAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Delete removes the credential of profile. Deleting a missing row is not an error.
func (r *SQLSessionRepository) Delete(ctx context.Context, profile string) error {
	if _, err := r.DB.ExecContext(ctx, `DELETE FROM session_credentials WHERE profile = $1`, profile); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}
