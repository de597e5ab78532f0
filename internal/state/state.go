// Package state keeps per-admin conversation context between webhook
// deliveries.
package state

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"hub-bot/pkg/logger"
)

// Store is a string key-value store with optional expiry. Get reports a
// missing or expired key as ok=false with a nil error.
type Store interface {
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, bool, error)
	Delete(ctx context.Context, key string) error
}

type Kind string

const (
	Idle                  Kind = ""
	AwaitingSupportAnswer Kind = "support_answer"
)

// Conversation is what the admin's next free-text message means.
type Conversation struct {
	Kind            Kind   `json:"kind"`
	UserTelegramID  int64  `json:"user_telegram_id,omitempty"`
	QuestionShortID string `json:"question_short_id,omitempty"`
	MessageID       int    `json:"message_id,omitempty"`
}

const supportAnswerKeyPrefix = "pending_support_answer_"

func SupportAnswerKey(adminID int64) string {
	return supportAnswerKeyPrefix + strconv.FormatInt(adminID, 10)
}

type Conversations struct {
	store Store
	ttl   time.Duration
}

func NewConversations(store Store, ttl time.Duration) *Conversations {
	return &Conversations{store: store, ttl: ttl}
}

// BeginSupportAnswer overwrites any support answer the admin had pending.
func (c *Conversations) BeginSupportAnswer(ctx context.Context, adminID, userTelegramID int64, questionShortID string, messageID int) error {
	conv := Conversation{
		Kind:            AwaitingSupportAnswer,
		UserTelegramID:  userTelegramID,
		QuestionShortID: questionShortID,
		MessageID:       messageID,
	}
	data, err := json.Marshal(conv)
	if err != nil {
		return fmt.Errorf("failed to marshal conversation: %w", err)
	}
	return c.store.Set(ctx, SupportAnswerKey(adminID), string(data), c.ttl)
}

// SupportAnswer returns the admin's pending support answer. An unreadable
// value is treated as Idle.
func (c *Conversations) SupportAnswer(ctx context.Context, adminID int64) (Conversation, error) {
	raw, ok, err := c.store.Get(ctx, SupportAnswerKey(adminID))
	if err != nil {
		return Conversation{}, err
	}
	if !ok {
		return Conversation{}, nil
	}

	var conv Conversation
	if err := json.Unmarshal([]byte(raw), &conv); err != nil {
		logger.Warn("Discarding unreadable conversation state",
			logger.Err(err),
			logger.Int64("admin_id", adminID),
		)
		return Conversation{}, nil
	}
	if conv.Kind != AwaitingSupportAnswer || conv.UserTelegramID == 0 {
		return Conversation{}, nil
	}
	return conv, nil
}

func (c *Conversations) Clear(ctx context.Context, adminID int64) error {
	return c.store.Delete(ctx, SupportAnswerKey(adminID))
}
