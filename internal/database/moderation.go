package database

import (
	"context"
	"fmt"

	"hub-bot/internal/models"
)

// ===== Short ids =====

type ShortIDRepository struct {
	db *DB
}

func NewShortIDRepository(db *DB) *ShortIDRepository {
	return &ShortIDRepository{db: db}
}

// GetOrCreate delegates to get_or_create_short_id, which enforces
// uniqueness of both columns and retries on collisions.
func (r *ShortIDRepository) GetOrCreate(ctx context.Context, articleID string) (string, error) {
	var shortID string
	err := r.db.Pool.QueryRow(ctx, "SELECT get_or_create_short_id($1)", articleID).Scan(&shortID)
	if err != nil {
		return "", fmt.Errorf("failed to get short id: %w", err)
	}
	return shortID, nil
}

func (r *ShortIDRepository) ArticleID(ctx context.Context, shortID string) (string, error) {
	var articleID string
	err := r.db.Pool.QueryRow(ctx,
		"SELECT article_id FROM moderation_short_ids WHERE short_id = $1", shortID,
	).Scan(&articleID)
	if err != nil {
		return "", notFound(err)
	}
	return articleID, nil
}

// ===== Pending rejections and audit log =====

type ModerationRepository struct {
	db *DB
}

func NewModerationRepository(db *DB) *ModerationRepository {
	return &ModerationRepository{db: db}
}

func (r *ModerationRepository) AddPendingRejection(ctx context.Context, p *models.PendingRejection) error {
	query := `
		INSERT INTO pending_rejections (short_id, article_id, admin_telegram_id)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`
	err := r.db.Pool.QueryRow(ctx, query, p.ShortID, p.ArticleID, p.AdminTelegramID).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to save pending rejection: %w", err)
	}
	return nil
}

// LatestPendingRejection returns the most recently created pending
// rejection of the admin. Older rows are left untouched.
func (r *ModerationRepository) LatestPendingRejection(ctx context.Context, adminID int64) (*models.PendingRejection, error) {
	query := `
		SELECT id, short_id, article_id, admin_telegram_id, created_at
		FROM pending_rejections
		WHERE admin_telegram_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`
	var p models.PendingRejection
	err := r.db.Pool.QueryRow(ctx, query, adminID).Scan(
		&p.ID, &p.ShortID, &p.ArticleID, &p.AdminTelegramID, &p.CreatedAt,
	)
	if err != nil {
		return nil, notFound(err)
	}
	return &p, nil
}

// DeletePendingRejections removes every pending rejection for the article,
// whichever admin created it.
func (r *ModerationRepository) DeletePendingRejections(ctx context.Context, articleID string) error {
	_, err := r.db.Pool.Exec(ctx, "DELETE FROM pending_rejections WHERE article_id = $1", articleID)
	return err
}

func (r *ModerationRepository) DeletePendingRejection(ctx context.Context, id int64) error {
	_, err := r.db.Pool.Exec(ctx, "DELETE FROM pending_rejections WHERE id = $1", id)
	return err
}

func (r *ModerationRepository) Log(ctx context.Context, l *models.ModerationLog) error {
	query := `
		INSERT INTO moderation_logs (article_id, moderator_telegram_id, action, reason)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	err := r.db.Pool.QueryRow(ctx, query,
		l.ArticleID, l.ModeratorTelegramID, string(l.Action), l.Reason,
	).Scan(&l.ID, &l.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to write moderation log: %w", err)
	}
	return nil
}
