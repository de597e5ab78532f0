package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// SettingsRepository is a small key-value table with optional expiry. It
// backs the admin conversation state when Redis is not configured.
type SettingsRepository struct {
	db *DB
}

func NewSettingsRepository(db *DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Set upserts value under key. A zero ttl stores the value without expiry.
func (r *SettingsRepository) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	var expiresAt *time.Time
	if ttl > 0 {
		t := time.Now().Add(ttl)
		expiresAt = &t
	}

	query := `
		INSERT INTO admin_settings (key, value, expires_at, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (key) DO UPDATE SET
			value = EXCLUDED.value,
			expires_at = EXCLUDED.expires_at,
			updated_at = NOW()
	`
	if _, err := r.db.Pool.Exec(ctx, query, key, value, expiresAt); err != nil {
		return fmt.Errorf("failed to save setting %s: %w", key, err)
	}
	return nil
}

// Get returns the value under key. Expired rows read as absent.
func (r *SettingsRepository) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := r.db.Pool.QueryRow(ctx, `
		SELECT value FROM admin_settings
		WHERE key = $1 AND (expires_at IS NULL OR expires_at > NOW())`, key,
	).Scan(&value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to read setting %s: %w", key, err)
	}
	return value, true, nil
}

func (r *SettingsRepository) Delete(ctx context.Context, key string) error {
	if _, err := r.db.Pool.Exec(ctx, "DELETE FROM admin_settings WHERE key = $1", key); err != nil {
		return fmt.Errorf("failed to delete setting %s: %w", key, err)
	}
	return nil
}

// ===== Admins =====

type AdminRepository struct {
	db *DB
}

func NewAdminRepository(db *DB) *AdminRepository {
	return &AdminRepository{db: db}
}

func (r *AdminRepository) IsActiveAdmin(ctx context.Context, telegramID int64) (bool, error) {
	var ok bool
	err := r.db.Pool.QueryRow(ctx,
		"SELECT EXISTS (SELECT 1 FROM admins WHERE telegram_id = $1 AND is_active)", telegramID,
	).Scan(&ok)
	return ok, err
}

func (r *AdminRepository) CountActive(ctx context.Context) (int, error) {
	var count int
	err := r.db.Pool.QueryRow(ctx, "SELECT COUNT(*) FROM admins WHERE is_active").Scan(&count)
	return count, err
}
