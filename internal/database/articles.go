package database

import (
	"context"
	"fmt"

	"hub-bot/internal/models"

	"github.com/jackc/pgx/v5"
)

// Author columns come from a LEFT JOIN and are NULL for orphaned or
// anonymous-without-profile articles.
const articleColumns = `
	a.id, a.author_id, a.title, COALESCE(a.preview, ''), COALESCE(a.body, ''),
	COALESCE(a.category_id, ''), COALESCE(a.media_url, ''), a.is_anonymous,
	a.status, a.rejection_reason, a.likes_count, a.favorites_count,
	a.created_at, a.updated_at,
	p.id, p.telegram_id, p.username, p.first_name`

const articleFrom = `
	FROM articles a
	LEFT JOIN profiles p ON p.id = a.author_id`

type ArticleRepository struct {
	db *DB
}

func NewArticleRepository(db *DB) *ArticleRepository {
	return &ArticleRepository{db: db}
}

func scanArticle(row pgx.Row) (*models.Article, error) {
	var (
		a          models.Article
		status     string
		profileID  *string
		telegramID *int64
		username   *string
		firstName  *string
	)
	err := row.Scan(
		&a.ID, &a.AuthorID, &a.Title, &a.Preview, &a.Body,
		&a.CategoryID, &a.MediaURL, &a.IsAnonymous,
		&status, &a.RejectionReason, &a.LikesCount, &a.FavoritesCount,
		&a.CreatedAt, &a.UpdatedAt,
		&profileID, &telegramID, &username, &firstName,
	)
	if err != nil {
		return nil, err
	}
	a.Status = models.ArticleStatus(status)
	if profileID != nil {
		a.Author = &models.Author{ProfileID: *profileID}
		if telegramID != nil {
			a.Author.TelegramID = *telegramID
		}
		if username != nil {
			a.Author.Username = *username
		}
		if firstName != nil {
			a.Author.FirstName = *firstName
		}
	}
	return &a, nil
}

func collectArticles(rows pgx.Rows) ([]models.Article, error) {
	defer rows.Close()

	var articles []models.Article
	for rows.Next() {
		a, err := scanArticle(rows)
		if err != nil {
			return nil, err
		}
		articles = append(articles, *a)
	}
	return articles, rows.Err()
}

func (r *ArticleRepository) Get(ctx context.Context, id string) (*models.Article, error) {
	query := `SELECT` + articleColumns + articleFrom + ` WHERE a.id = $1`
	a, err := scanArticle(r.db.Pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, notFound(err)
	}
	return a, nil
}

func (r *ArticleRepository) CountByStatus(ctx context.Context) (models.ArticleCounts, error) {
	var counts models.ArticleCounts

	rows, err := r.db.Pool.Query(ctx, "SELECT status, COUNT(*) FROM articles GROUP BY status")
	if err != nil {
		return counts, fmt.Errorf("failed to count articles: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return counts, err
		}
		counts.Total += n
		switch models.ArticleStatus(status) {
		case models.StatusPending:
			counts.Pending = n
		case models.StatusApproved:
			counts.Approved = n
		case models.StatusRejected:
			counts.Rejected = n
		}
	}
	return counts, rows.Err()
}

func (r *ArticleRepository) ListPending(ctx context.Context, limit int) ([]models.Article, error) {
	query := `SELECT` + articleColumns + articleFrom + `
		WHERE a.status = 'pending'
		ORDER BY a.created_at DESC
		LIMIT $1`
	rows, err := r.db.Pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending articles: %w", err)
	}
	return collectArticles(rows)
}

// ListApproved returns one page of published articles, optionally filtered
// by a case-insensitive title substring, together with the total match count.
func (r *ArticleRepository) ListApproved(ctx context.Context, titleQuery string, offset, limit int) ([]models.Article, int, error) {
	pattern := escapeLike(titleQuery)

	var total int
	err := r.db.Pool.QueryRow(ctx, `
		SELECT COUNT(*) FROM articles
		WHERE status = 'approved' AND ($1 = '' OR title ILIKE '%' || $1 || '%')`,
		pattern,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count approved articles: %w", err)
	}

	query := `SELECT` + articleColumns + articleFrom + `
		WHERE a.status = 'approved' AND ($1 = '' OR a.title ILIKE '%' || $1 || '%')
		ORDER BY a.created_at DESC
		OFFSET $2 LIMIT $3`
	rows, err := r.db.Pool.Query(ctx, query, pattern, offset, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list approved articles: %w", err)
	}
	articles, err := collectArticles(rows)
	if err != nil {
		return nil, 0, err
	}
	return articles, total, nil
}

// SetStatus moves a pending article to a moderation outcome. reason is
// stored as rejection_reason and may be nil. Outcomes are final: an article
// that is no longer pending yields ErrAlreadyModerated.
func (r *ArticleRepository) SetStatus(ctx context.Context, id string, status models.ArticleStatus, reason *string) error {
	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE articles
		SET status = $2, rejection_reason = $3, updated_at = NOW()
		WHERE id = $1 AND status = 'pending'`, id, string(status), reason)
	if err != nil {
		return fmt.Errorf("failed to update article status: %w", err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := r.db.Pool.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM articles WHERE id = $1)", id).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check article: %w", err)
	}
	if !exists {
		return ErrNotFound
	}
	return ErrAlreadyModerated
}

func (r *ArticleRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Pool.Exec(ctx, "DELETE FROM articles WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete article: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
