// Package admin implements the admin bot: update routing, moderation,
// user management, broadcast and the support desk.
package admin

import (
	"context"
	"errors"
	"time"

	"hub-bot/internal/database"
	"hub-bot/internal/models"
	"hub-bot/internal/notify"
	"hub-bot/internal/state"
	"hub-bot/pkg/logger"

	"gopkg.in/telebot.v4"
)

const (
	usersPerPage       = 20
	articlesPerPage    = 10
	pendingLimit       = 10
	questionsLimit     = 20
	premiumListLimit   = 10
	answerSearchWindow = 50
	grantDays          = 30
	maxExtendDays      = 365
)

type Authorizer interface {
	IsAdmin(ctx context.Context, telegramID int64) bool
}

type ProfileStore interface {
	Count(ctx context.Context) (int, error)
	CountPremium(ctx context.Context) (int, error)
	CountBlocked(ctx context.Context) (int, error)
	List(ctx context.Context, offset, limit int) ([]models.Profile, error)
	GetByTelegramID(ctx context.Context, telegramID int64) (*models.Profile, error)
	SearchByUsername(ctx context.Context, q string) ([]models.Profile, error)
	ListPremium(ctx context.Context, limit int) ([]models.Profile, error)
	SetPremium(ctx context.Context, profileID string, expiresAt time.Time) error
	RevokePremium(ctx context.Context, profileID string) error
	Block(ctx context.Context, profileID string, at time.Time) error
	Unblock(ctx context.Context, profileID string) error
	BroadcastRecipients(ctx context.Context) ([]int64, error)
}

type ArticleStore interface {
	Get(ctx context.Context, id string) (*models.Article, error)
	CountByStatus(ctx context.Context) (models.ArticleCounts, error)
	ListPending(ctx context.Context, limit int) ([]models.Article, error)
	ListApproved(ctx context.Context, titleQuery string, offset, limit int) ([]models.Article, int, error)
	SetStatus(ctx context.Context, id string, status models.ArticleStatus, reason *string) error
	Delete(ctx context.Context, id string) error
}

type ModerationStore interface {
	AddPendingRejection(ctx context.Context, p *models.PendingRejection) error
	LatestPendingRejection(ctx context.Context, adminID int64) (*models.PendingRejection, error)
	DeletePendingRejections(ctx context.Context, articleID string) error
	DeletePendingRejection(ctx context.Context, id int64) error
	Log(ctx context.Context, l *models.ModerationLog) error
}

type SupportStore interface {
	Get(ctx context.Context, id string) (*models.SupportQuestion, error)
	SetAdminMessageID(ctx context.Context, id string, messageID int64) error
	ListPending(ctx context.Context, limit int) ([]models.SupportQuestion, error)
	FindPendingByPrefix(ctx context.Context, prefix string, window int) (*models.SupportQuestion, error)
	FindPendingByAdminMessage(ctx context.Context, messageID int64) (*models.SupportQuestion, error)
	MarkAnswered(ctx context.Context, id, answer string, answeredBy int64, at time.Time) error
}

type ShortIDs interface {
	GetOrCreate(ctx context.Context, articleID string) string
	Resolve(ctx context.Context, shortID string) (string, bool)
}

type Conversations interface {
	BeginSupportAnswer(ctx context.Context, adminID, userTelegramID int64, questionShortID string, messageID int) error
	SupportAnswer(ctx context.Context, adminID int64) (state.Conversation, error)
	Clear(ctx context.Context, adminID int64) error
}

type Relay interface {
	SendAdmin(ctx context.Context, chatID int64, text string, kb *telebot.ReplyMarkup) (notify.Delivery, error)
	EditAdmin(ctx context.Context, chatID int64, messageID int, text string, kb *telebot.ReplyMarkup) (notify.Delivery, error)
	ClearKeyboard(ctx context.Context, chatID int64, messageID int) (notify.Delivery, error)
	DeleteAdmin(ctx context.Context, chatID int64, messageID int) (notify.Delivery, error)
	AnswerCallback(ctx context.Context, callbackID, text string) (notify.Delivery, error)
	SendUser(ctx context.Context, chatID int64, text string) (notify.Delivery, error)
}

type Deps struct {
	Access        Authorizer
	Profiles      ProfileStore
	Articles      ArticleStore
	Moderation    ModerationStore
	Support       SupportStore
	ShortIDs      ShortIDs
	Conversations Conversations
	Relay         Relay

	// AdminChatID receives new-article and new-question announcements.
	AdminChatID int64
	// Location is used for dates in messages. Defaults to UTC.
	Location *time.Location
	Now      func() time.Time
}

type Handler struct {
	access        Authorizer
	profiles      ProfileStore
	articles      ArticleStore
	moderation    ModerationStore
	support       SupportStore
	shortIDs      ShortIDs
	conversations Conversations
	relay         Relay

	adminChatID int64
	loc         *time.Location
	now         func() time.Time
}

func New(d Deps) *Handler {
	h := &Handler{
		access:        d.Access,
		profiles:      d.Profiles,
		articles:      d.Articles,
		moderation:    d.Moderation,
		support:       d.Support,
		shortIDs:      d.ShortIDs,
		conversations: d.Conversations,
		relay:         d.Relay,
		adminChatID:   d.AdminChatID,
		loc:           d.Location,
		now:           d.Now,
	}
	if h.loc == nil {
		h.loc = time.UTC
	}
	if h.now == nil {
		h.now = time.Now
	}
	return h
}

func (h *Handler) send(ctx context.Context, chatID int64, text string, kb *telebot.ReplyMarkup) error {
	_, err := h.relay.SendAdmin(ctx, chatID, text, kb)
	return err
}

// show edits messageID in place when set and sends a new message otherwise.
func (h *Handler) show(ctx context.Context, chatID int64, messageID int, text string, kb *telebot.ReplyMarkup) error {
	if messageID != 0 {
		_, err := h.relay.EditAdmin(ctx, chatID, messageID, text, kb)
		return err
	}
	return h.send(ctx, chatID, text, kb)
}

func (h *Handler) answer(ctx context.Context, cb *callback, text string) error {
	_, err := h.relay.AnswerCallback(ctx, cb.id, text)
	return err
}

// notifyUser delivers a user-channel message. The outcome is logged and
// never aborts the admin action that triggered it.
func (h *Handler) notifyUser(ctx context.Context, telegramID int64, text string) notify.Delivery {
	d, err := h.relay.SendUser(ctx, telegramID, text)
	if err != nil {
		logger.Error("Failed to notify user",
			logger.Err(err),
			logger.Int64("user_id", telegramID),
		)
		return d
	}
	if !d.OK {
		logger.Warn("User notification rejected",
			logger.Int64("user_id", telegramID),
			logger.String("description", d.Description),
		)
	}
	return d
}

// storeFailed logs a failed store call made on behalf of an admin.
func storeFailed(op string, adminID int64, err error) {
	logger.Error("Store operation failed",
		logger.String("op", op),
		logger.Int64("admin_id", adminID),
		logger.Err(err),
	)
}

func isNotFound(err error) bool {
	return errors.Is(err, database.ErrNotFound)
}

func isAlreadyModerated(err error) bool {
	return errors.Is(err, database.ErrAlreadyModerated)
}
