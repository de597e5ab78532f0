package database

import (
	"context"
	"fmt"
	"unicode/utf8"

	"hub-bot/internal/models"

	"github.com/jackc/pgx/v5"
)

type reactionKind struct {
	table        string
	counter      string
	notification models.NotificationType
	verb         string
}

var (
	likeKind = reactionKind{
		table:        "article_likes",
		counter:      "likes_count",
		notification: models.NotificationLike,
		verb:         "поставил лайк на",
	}
	favoriteKind = reactionKind{
		table:        "article_favorites",
		counter:      "favorites_count",
		notification: models.NotificationFavorite,
		verb:         "добавил в избранное",
	}
)

type ReactionRepository struct {
	db *DB
}

func NewReactionRepository(db *DB) *ReactionRepository {
	return &ReactionRepository{db: db}
}

// ToggleLike flips the like of profileID on articleID and returns the new
// state with the fresh like count.
func (r *ReactionRepository) ToggleLike(ctx context.Context, articleID, profileID string) (bool, int, error) {
	return r.toggle(ctx, likeKind, articleID, profileID)
}

func (r *ReactionRepository) ToggleFavorite(ctx context.Context, articleID, profileID string) (bool, int, error) {
	return r.toggle(ctx, favoriteKind, articleID, profileID)
}

func (r *ReactionRepository) toggle(ctx context.Context, kind reactionKind, articleID, profileID string) (bool, int, error) {
	var (
		active bool
		count  int
	)

	err := pgx.BeginFunc(ctx, r.db.Pool, func(tx pgx.Tx) error {
		var (
			authorID *string
			title    string
		)
		err := tx.QueryRow(ctx,
			"SELECT author_id, title FROM articles WHERE id = $1 FOR UPDATE", articleID,
		).Scan(&authorID, &title)
		if err != nil {
			return notFound(err)
		}

		tag, err := tx.Exec(ctx,
			"DELETE FROM "+kind.table+" WHERE article_id = $1 AND user_profile_id = $2",
			articleID, profileID,
		)
		if err != nil {
			return err
		}

		if tag.RowsAffected() > 0 {
			_, err = tx.Exec(ctx,
				"UPDATE articles SET "+kind.counter+" = GREATEST(0, "+kind.counter+" - 1) WHERE id = $1",
				articleID,
			)
			if err != nil {
				return err
			}
		} else {
			_, err = tx.Exec(ctx,
				"INSERT INTO "+kind.table+" (article_id, user_profile_id) VALUES ($1, $2)",
				articleID, profileID,
			)
			if err != nil {
				return err
			}
			_, err = tx.Exec(ctx,
				"UPDATE articles SET "+kind.counter+" = "+kind.counter+" + 1 WHERE id = $1",
				articleID,
			)
			if err != nil {
				return err
			}
			active = true

			if authorID != nil && *authorID != profileID {
				_, err = tx.Exec(ctx, `
					INSERT INTO notifications (user_profile_id, from_user_id, article_id, type, message)
					VALUES ($1, $2, $3, $4, $5)`,
					*authorID, profileID, articleID, string(kind.notification),
					fmt.Sprintf("%s \"%s\"", kind.verb, truncateRunes(title, 50)),
				)
				if err != nil {
					return err
				}
			}
		}

		return tx.QueryRow(ctx,
			"SELECT COUNT(*) FROM "+kind.table+" WHERE article_id = $1", articleID,
		).Scan(&count)
	})
	if err != nil {
		return false, 0, fmt.Errorf("failed to toggle %s: %w", kind.table, err)
	}

	return active, count, nil
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
