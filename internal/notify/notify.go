// Package notify delivers admin-channel and user-channel messages through
// the Telegram Bot API.
package notify

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"hub-bot/internal/config"
	"hub-bot/pkg/logger"

	"gopkg.in/telebot.v4"
)

var ErrRateLimited = errors.New("telegram rate limited")

// Delivery is the acknowledgement of one Bot API call. OK is false when
// Telegram rejected the call; Description then carries its reason.
type Delivery struct {
	OK          bool
	MessageID   int
	Description string
}

// api is the part of *telebot.Bot the relay calls.
type api interface {
	Send(to telebot.Recipient, what interface{}, opts ...interface{}) (*telebot.Message, error)
	Edit(msg telebot.Editable, what interface{}, opts ...interface{}) (*telebot.Message, error)
	EditReplyMarkup(msg telebot.Editable, markup *telebot.ReplyMarkup) (*telebot.Message, error)
	Delete(msg telebot.Editable) error
	Respond(c *telebot.Callback, resp ...*telebot.CallbackResponse) error
}

type Relay struct {
	admin      api
	user       api
	maxRetries int
	retryDelay time.Duration
}

// New creates offline clients for both bots: the admin bot is driven by the
// webhook and the user bot only sends, so neither polls.
func New(cfg config.BotConfig) (*Relay, error) {
	adminBot, err := telebot.NewBot(telebot.Settings{
		Token:   cfg.AdminToken,
		URL:     cfg.APIURL,
		Offline: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create admin bot: %w", err)
	}

	userBot, err := telebot.NewBot(telebot.Settings{
		Token:   cfg.UserToken,
		URL:     cfg.APIURL,
		Offline: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create user bot: %w", err)
	}

	return newRelay(adminBot, userBot, cfg.SendRetries, time.Second), nil
}

func newRelay(admin, user api, maxRetries int, retryDelay time.Duration) *Relay {
	if maxRetries < 1 {
		maxRetries = 1
	}
	return &Relay{
		admin:      admin,
		user:       user,
		maxRetries: maxRetries,
		retryDelay: retryDelay,
	}
}

func htmlOptions(kb *telebot.ReplyMarkup) *telebot.SendOptions {
	return &telebot.SendOptions{
		ParseMode:   telebot.ModeHTML,
		ReplyMarkup: kb,
	}
}

func (r *Relay) SendAdmin(ctx context.Context, chatID int64, text string, kb *telebot.ReplyMarkup) (Delivery, error) {
	return r.withRetry(ctx, "sendMessage", func() (*telebot.Message, error) {
		return r.admin.Send(telebot.ChatID(chatID), text, htmlOptions(kb))
	})
}

func (r *Relay) EditAdmin(ctx context.Context, chatID int64, messageID int, text string, kb *telebot.ReplyMarkup) (Delivery, error) {
	return r.withRetry(ctx, "editMessageText", func() (*telebot.Message, error) {
		return r.admin.Edit(stored(chatID, messageID), text, htmlOptions(kb))
	})
}

// ClearKeyboard removes the inline keyboard from an admin message.
func (r *Relay) ClearKeyboard(ctx context.Context, chatID int64, messageID int) (Delivery, error) {
	return r.withRetry(ctx, "editMessageReplyMarkup", func() (*telebot.Message, error) {
		return r.admin.EditReplyMarkup(stored(chatID, messageID), &telebot.ReplyMarkup{})
	})
}

func (r *Relay) DeleteAdmin(ctx context.Context, chatID int64, messageID int) (Delivery, error) {
	return r.withRetry(ctx, "deleteMessage", func() (*telebot.Message, error) {
		return nil, r.admin.Delete(stored(chatID, messageID))
	})
}

// AnswerCallback acknowledges a button press. An empty text only stops the
// client's loading indicator.
func (r *Relay) AnswerCallback(ctx context.Context, callbackID, text string) (Delivery, error) {
	return r.withRetry(ctx, "answerCallbackQuery", func() (*telebot.Message, error) {
		return nil, r.admin.Respond(&telebot.Callback{ID: callbackID}, &telebot.CallbackResponse{Text: text})
	})
}

// SendUser writes to an end user through the user-facing bot.
func (r *Relay) SendUser(ctx context.Context, chatID int64, text string) (Delivery, error) {
	return r.withRetry(ctx, "sendMessage", func() (*telebot.Message, error) {
		return r.user.Send(telebot.ChatID(chatID), text, htmlOptions(nil))
	})
}

func stored(chatID int64, messageID int) telebot.StoredMessage {
	return telebot.StoredMessage{
		MessageID: strconv.Itoa(messageID),
		ChatID:    chatID,
	}
}

// withRetry runs call, retrying flood errors with a doubling delay. API
// rejections come back as an unsuccessful Delivery; anything else is a
// transport error.
func (r *Relay) withRetry(ctx context.Context, method string, call func() (*telebot.Message, error)) (Delivery, error) {
	retryDelay := r.retryDelay

	for i := 0; i < r.maxRetries; i++ {
		if err := ctx.Err(); err != nil {
			return Delivery{}, err
		}

		msg, err := call()
		if err == nil {
			d := Delivery{OK: true}
			if msg != nil {
				d.MessageID = msg.ID
			}
			return d, nil
		}

		if isFlood(err) {
			logger.Warn("Rate limited, retrying...",
				logger.String("method", method),
				logger.Int("retry", i+1),
				logger.Int("max_retries", r.maxRetries),
			)
			select {
			case <-ctx.Done():
				return Delivery{}, ctx.Err()
			case <-time.After(retryDelay):
			}
			retryDelay *= 2
			continue
		}

		if desc, ok := apiDescription(err); ok {
			logger.Warn("Telegram rejected call",
				logger.String("method", method),
				logger.String("description", desc),
			)
			return Delivery{Description: desc}, nil
		}

		return Delivery{}, fmt.Errorf("failed to call %s: %w", method, err)
	}

	return Delivery{Description: "Too Many Requests"}, ErrRateLimited
}

func isFlood(err error) bool {
	var flood telebot.FloodError
	if errors.As(err, &flood) {
		return true
	}
	return strings.Contains(err.Error(), "Too Many Requests")
}

// apiDescription extracts the reason of a call Telegram answered with
// ok=false. telebot reports those as "telegram: <description> (<code>)".
func apiDescription(err error) (string, bool) {
	var tgErr *telebot.Error
	if errors.As(err, &tgErr) {
		return tgErr.Description, true
	}
	msg := err.Error()
	if strings.HasPrefix(msg, "telegram: ") {
		return strings.TrimPrefix(msg, "telegram: "), true
	}
	return "", false
}
