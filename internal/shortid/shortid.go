// Package shortid maps article ids to the 8 character tokens used in
// callback data.
package shortid

import (
	"context"
	"errors"

	"hub-bot/internal/database"
	"hub-bot/pkg/logger"
)

const fallbackLen = 8

type Store interface {
	GetOrCreate(ctx context.Context, articleID string) (string, error)
	ArticleID(ctx context.Context, shortID string) (string, error)
}

type Registry struct {
	store Store
}

func New(store Store) *Registry {
	return &Registry{store: store}
}

// GetOrCreate returns the registered short id of the article. When the
// store fails the first 8 characters of the id are returned instead; that
// fallback is not registered and will not resolve.
func (r *Registry) GetOrCreate(ctx context.Context, articleID string) string {
	shortID, err := r.store.GetOrCreate(ctx, articleID)
	if err != nil || shortID == "" {
		logger.Error("Failed to get short id, using prefix",
			logger.Err(err),
			logger.String("article_id", articleID),
		)
		return prefix(articleID)
	}
	return shortID
}

// Resolve returns the article id registered for shortID. Absence and store
// failures both report false.
func (r *Registry) Resolve(ctx context.Context, shortID string) (string, bool) {
	if shortID == "" {
		return "", false
	}
	articleID, err := r.store.ArticleID(ctx, shortID)
	if err != nil {
		if !errors.Is(err, database.ErrNotFound) {
			logger.Error("Failed to resolve short id",
				logger.Err(err),
				logger.String("short_id", shortID),
			)
		}
		return "", false
	}
	return articleID, true
}

func prefix(id string) string {
	if len(id) <= fallbackLen {
		return id
	}
	return id[:fallbackLen]
}
