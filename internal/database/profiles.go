package database

import (
	"context"
	"fmt"
	"time"

	"hub-bot/internal/models"

	"github.com/jackc/pgx/v5"
)

const profileColumns = `
	id, telegram_id, COALESCE(username, ''), COALESCE(first_name, ''),
	COALESCE(last_name, ''), COALESCE(avatar_url, ''), is_premium,
	premium_expires_at, is_blocked, blocked_at, reputation, created_at, updated_at`

type ProfileRepository struct {
	db *DB
}

func NewProfileRepository(db *DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

func scanProfile(row pgx.Row) (*models.Profile, error) {
	var p models.Profile
	err := row.Scan(
		&p.ID, &p.TelegramID, &p.Username, &p.FirstName,
		&p.LastName, &p.AvatarURL, &p.IsPremium,
		&p.PremiumExpiresAt, &p.IsBlocked, &p.BlockedAt, &p.Reputation,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func collectProfiles(rows pgx.Rows) ([]models.Profile, error) {
	defer rows.Close()

	var profiles []models.Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		profiles = append(profiles, *p)
	}
	return profiles, rows.Err()
}

// Upsert creates the profile on first sync and refreshes display fields
// afterwards. Admin-managed fields are never touched.
func (r *ProfileRepository) Upsert(ctx context.Context, p *models.Profile) error {
	query := `
		INSERT INTO profiles (telegram_id, username, first_name, last_name, avatar_url)
		VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), NULLIF($4, ''), NULLIF($5, ''))
		ON CONFLICT (telegram_id) DO UPDATE SET
			username = EXCLUDED.username,
			first_name = EXCLUDED.first_name,
			last_name = EXCLUDED.last_name,
			avatar_url = COALESCE(EXCLUDED.avatar_url, profiles.avatar_url),
			updated_at = NOW()
		RETURNING` + profileColumns
	saved, err := scanProfile(r.db.Pool.QueryRow(ctx, query,
		p.TelegramID, p.Username, p.FirstName, p.LastName, p.AvatarURL,
	))
	if err != nil {
		return fmt.Errorf("failed to upsert profile: %w", err)
	}
	*p = *saved
	return nil
}

func (r *ProfileRepository) GetByTelegramID(ctx context.Context, telegramID int64) (*models.Profile, error) {
	query := `SELECT` + profileColumns + ` FROM profiles WHERE telegram_id = $1`
	p, err := scanProfile(r.db.Pool.QueryRow(ctx, query, telegramID))
	if err != nil {
		return nil, notFound(err)
	}
	return p, nil
}

func (r *ProfileRepository) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.Pool.QueryRow(ctx, "SELECT COUNT(*) FROM profiles").Scan(&count)
	return count, err
}

func (r *ProfileRepository) CountPremium(ctx context.Context) (int, error) {
	var count int
	err := r.db.Pool.QueryRow(ctx, "SELECT COUNT(*) FROM profiles WHERE is_premium").Scan(&count)
	return count, err
}

func (r *ProfileRepository) CountBlocked(ctx context.Context) (int, error) {
	var count int
	err := r.db.Pool.QueryRow(ctx, "SELECT COUNT(*) FROM profiles WHERE is_blocked").Scan(&count)
	return count, err
}

// List returns one page of profiles, newest first.
func (r *ProfileRepository) List(ctx context.Context, offset, limit int) ([]models.Profile, error) {
	query := `SELECT` + profileColumns + `
		FROM profiles
		ORDER BY created_at DESC
		OFFSET $1 LIMIT $2`
	rows, err := r.db.Pool.Query(ctx, query, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list profiles: %w", err)
	}
	return collectProfiles(rows)
}

func (r *ProfileRepository) SearchByUsername(ctx context.Context, q string) ([]models.Profile, error) {
	query := `SELECT` + profileColumns + `
		FROM profiles
		WHERE username ILIKE '%' || $1 || '%'
		ORDER BY created_at DESC`
	rows, err := r.db.Pool.Query(ctx, query, escapeLike(q))
	if err != nil {
		return nil, fmt.Errorf("failed to search profiles: %w", err)
	}
	return collectProfiles(rows)
}

// ListPremium returns premium profiles whose subscription ends soonest.
func (r *ProfileRepository) ListPremium(ctx context.Context, limit int) ([]models.Profile, error) {
	query := `SELECT` + profileColumns + `
		FROM profiles
		WHERE is_premium
		ORDER BY premium_expires_at ASC NULLS LAST
		LIMIT $1`
	rows, err := r.db.Pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list premium profiles: %w", err)
	}
	return collectProfiles(rows)
}

func (r *ProfileRepository) SetPremium(ctx context.Context, profileID string, expiresAt time.Time) error {
	return r.exec(ctx, `
		UPDATE profiles
		SET is_premium = TRUE, premium_expires_at = $2, updated_at = NOW()
		WHERE id = $1`, profileID, expiresAt)
}

func (r *ProfileRepository) RevokePremium(ctx context.Context, profileID string) error {
	return r.exec(ctx, `
		UPDATE profiles
		SET is_premium = FALSE, premium_expires_at = NULL, updated_at = NOW()
		WHERE id = $1`, profileID)
}

// Block marks the profile blocked and strips premium in the same statement.
func (r *ProfileRepository) Block(ctx context.Context, profileID string, at time.Time) error {
	return r.exec(ctx, `
		UPDATE profiles
		SET is_blocked = TRUE, blocked_at = $2,
			is_premium = FALSE, premium_expires_at = NULL,
			updated_at = NOW()
		WHERE id = $1`, profileID, at)
}

func (r *ProfileRepository) Unblock(ctx context.Context, profileID string) error {
	return r.exec(ctx, `
		UPDATE profiles
		SET is_blocked = FALSE, blocked_at = NULL, updated_at = NOW()
		WHERE id = $1`, profileID)
}

// BroadcastRecipients lists telegram ids of every non-blocked profile.
func (r *ProfileRepository) BroadcastRecipients(ctx context.Context) ([]int64, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT telegram_id FROM profiles
		WHERE NOT is_blocked AND telegram_id IS NOT NULL
		ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list recipients: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[int64])
}

func (r *ProfileRepository) exec(ctx context.Context, query string, args ...any) error {
	tag, err := r.db.Pool.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
