// Package access decides which Telegram users may operate the admin bot.
package access

import (
	"context"

	"hub-bot/pkg/logger"
)

// AdminLookup reports whether an id belongs to an active admin stored
// outside of the static configuration.
type AdminLookup interface {
	IsActiveAdmin(ctx context.Context, telegramID int64) (bool, error)
}

type Service struct {
	static map[int64]struct{}
	lookup AdminLookup
}

// New builds a Service from the configured ids. lookup may be nil.
func New(ids []int64, lookup AdminLookup) *Service {
	static := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		if id != 0 {
			static[id] = struct{}{}
		}
	}
	return &Service{static: static, lookup: lookup}
}

// IsAdmin never returns an error: a failed lookup counts as a denial.
func (s *Service) IsAdmin(ctx context.Context, telegramID int64) bool {
	if telegramID == 0 {
		return false
	}
	if _, ok := s.static[telegramID]; ok {
		return true
	}
	if s.lookup == nil {
		return false
	}

	ok, err := s.lookup.IsActiveAdmin(ctx, telegramID)
	if err != nil {
		logger.Error("Admin lookup failed",
			logger.Err(err),
			logger.Int64("user_id", telegramID),
		)
		return false
	}
	return ok
}
