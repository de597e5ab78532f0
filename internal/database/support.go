package database

import (
	"context"
	"fmt"
	"time"

	"hub-bot/internal/models"

	"github.com/jackc/pgx/v5"
)

const questionColumns = `
	id, user_telegram_id, user_profile_id, question, status, answer,
	answered_by_telegram_id, answered_at, admin_message_id, created_at`

type SupportRepository struct {
	db *DB
}

func NewSupportRepository(db *DB) *SupportRepository {
	return &SupportRepository{db: db}
}

func scanQuestion(row pgx.Row) (*models.SupportQuestion, error) {
	var (
		q      models.SupportQuestion
		status string
	)
	err := row.Scan(
		&q.ID, &q.UserTelegramID, &q.UserProfileID, &q.Question, &status, &q.Answer,
		&q.AnsweredByTelegramID, &q.AnsweredAt, &q.AdminMessageID, &q.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	q.Status = models.QuestionStatus(status)
	return &q, nil
}

func (r *SupportRepository) Create(ctx context.Context, q *models.SupportQuestion) error {
	query := `
		INSERT INTO support_questions (user_telegram_id, user_profile_id, question)
		VALUES ($1, $2, $3)
		RETURNING id, status, created_at
	`
	var status string
	err := r.db.Pool.QueryRow(ctx, query, q.UserTelegramID, q.UserProfileID, q.Question).Scan(&q.ID, &status, &q.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create support question: %w", err)
	}
	q.Status = models.QuestionStatus(status)
	return nil
}

func (r *SupportRepository) Get(ctx context.Context, id string) (*models.SupportQuestion, error) {
	q, err := scanQuestion(r.db.Pool.QueryRow(ctx, `SELECT`+questionColumns+` FROM support_questions WHERE id = $1`, id))
	if err != nil {
		return nil, notFound(err)
	}
	return q, nil
}

// SetAdminMessageID remembers which admin chat message announced the
// question so that a reply to it can be routed back to the user.
func (r *SupportRepository) SetAdminMessageID(ctx context.Context, id string, messageID int64) error {
	_, err := r.db.Pool.Exec(ctx, "UPDATE support_questions SET admin_message_id = $2 WHERE id = $1", id, messageID)
	return err
}

func (r *SupportRepository) ListPending(ctx context.Context, limit int) ([]models.SupportQuestion, error) {
	query := `SELECT` + questionColumns + `
		FROM support_questions
		WHERE status = 'pending'
		ORDER BY created_at DESC
		LIMIT $1`
	rows, err := r.db.Pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list questions: %w", err)
	}
	defer rows.Close()

	var questions []models.SupportQuestion
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		questions = append(questions, *q)
	}
	return questions, rows.Err()
}

// FindPendingByPrefix finds the newest pending question whose id starts with
// prefix, looking only at the latest window pending questions. A window of
// zero searches all of them.
func (r *SupportRepository) FindPendingByPrefix(ctx context.Context, prefix string, window int) (*models.SupportQuestion, error) {
	var limit any
	if window > 0 {
		limit = window
	}
	query := `SELECT` + questionColumns + `
		FROM (
			SELECT * FROM support_questions
			WHERE status = 'pending'
			ORDER BY created_at DESC
			LIMIT $2
		) recent
		WHERE id::text LIKE $1 || '%'
		ORDER BY created_at DESC
		LIMIT 1`
	q, err := scanQuestion(r.db.Pool.QueryRow(ctx, query, prefix, limit))
	if err != nil {
		return nil, notFound(err)
	}
	return q, nil
}

func (r *SupportRepository) FindPendingByAdminMessage(ctx context.Context, messageID int64) (*models.SupportQuestion, error) {
	query := `SELECT` + questionColumns + `
		FROM support_questions
		WHERE admin_message_id = $1 AND status = 'pending'
		ORDER BY created_at DESC
		LIMIT 1`
	q, err := scanQuestion(r.db.Pool.QueryRow(ctx, query, messageID))
	if err != nil {
		return nil, notFound(err)
	}
	return q, nil
}

func (r *SupportRepository) MarkAnswered(ctx context.Context, id, answer string, answeredBy int64, at time.Time) error {
	tag, err := r.db.Pool.Exec(ctx, `
		UPDATE support_questions
		SET answer = $2, answered_by_telegram_id = $3, status = 'answered', answered_at = $4
		WHERE id = $1`, id, answer, answeredBy, at)
	if err != nil {
		return fmt.Errorf("failed to mark question answered: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
