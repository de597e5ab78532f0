package admin

import (
	"context"
	"strconv"
	"strings"

	"hub-bot/pkg/logger"

	"gopkg.in/telebot.v4"
)

// callback is a parsed button press: data "action:param[:param2]".
type callback struct {
	id        string
	adminID   int64
	chatID    int64
	messageID int
	action    string
	param     string
	param2    string
}

type callbackHandler func(h *Handler, ctx context.Context, cb *callback) error

var callbackHandlers = map[string]callbackHandler{
	"approve":        (*Handler).handleApprove,
	"reject":         (*Handler).handleReject,
	"users":          (*Handler).handleUsersPage,
	"user":           (*Handler).handleUserProfile,
	"premium_grant":  (*Handler).handlePremiumGrant,
	"premium_revoke": (*Handler).handlePremiumRevoke,
	"premium_extend": (*Handler).handlePremiumExtend,
	"block":          (*Handler).handleBlock,
	"unblock":        (*Handler).handleUnblock,
	"question":       (*Handler).handleViewQuestion,
	"support_answer": (*Handler).handleSupportAnswerStart,
	"articles":       (*Handler).handleArticlesPage,
	"article":        (*Handler).handleViewArticle,
	"delete_article": (*Handler).handleDeleteArticle,
}

// command is a text command from an admin. args is whatever followed the
// command word.
type command struct {
	adminID int64
	chatID  int64
	text    string
	args    string
}

type commandHandler func(h *Handler, ctx context.Context, c *command) error

var exactCommands = map[string]commandHandler{
	"/start":     (*Handler).handleStart,
	"/help":      (*Handler).handleStart,
	"/stats":     (*Handler).handleStats,
	"/users":     (*Handler).handleUsers,
	"/premium":   (*Handler).handlePremium,
	"/pending":   (*Handler).handlePending,
	"/st":        (*Handler).handleArticles,
	"/questions": (*Handler).handleQuestions,
	"/cancel":    (*Handler).handleCancel,
	"/search":    (*Handler).handleSearch,
	"/extend":    (*Handler).handleExtend,
	"/search_st": (*Handler).handleSearchArticles,
}

// Parametrized commands are matched on "word " so that /search_st is not
// taken for /search.
var prefixCommands = []struct {
	prefix  string
	handler commandHandler
}{
	{"/search ", (*Handler).handleSearch},
	{"/extend ", (*Handler).handleExtend},
	{"/search_st ", (*Handler).handleSearchArticles},
}

// HandleUpdate routes one webhook update. A returned error means the update
// could not be fully processed and should surface as a failed delivery.
func (h *Handler) HandleUpdate(ctx context.Context, u *telebot.Update) error {
	switch {
	case u.Callback != nil:
		return h.routeCallback(ctx, u.Callback)
	case u.Message != nil:
		return h.routeMessage(ctx, u.Message)
	default:
		return nil
	}
}

func (h *Handler) routeCallback(ctx context.Context, c *telebot.Callback) error {
	if c.Sender == nil {
		return nil
	}
	cb := &callback{id: c.ID, adminID: c.Sender.ID, chatID: c.Sender.ID}
	if c.Message != nil {
		cb.messageID = c.Message.ID
		if c.Message.Chat != nil {
			cb.chatID = c.Message.Chat.ID
		}
	}

	if !h.access.IsAdmin(ctx, cb.adminID) {
		logger.Warn("Callback from non-admin", logger.Int64("user_id", cb.adminID))
		return h.answer(ctx, cb, MsgAccessDeniedCallback)
	}

	parts := strings.SplitN(c.Data, ":", 3)
	cb.action = parts[0]
	if len(parts) > 1 {
		cb.param = parts[1]
	}
	if len(parts) > 2 {
		cb.param2 = parts[2]
	}

	handler, ok := callbackHandlers[cb.action]
	if !ok {
		logger.Debug("Ignoring unknown callback", logger.String("data", c.Data))
		return nil
	}

	logger.Info("Incoming callback",
		logger.Int64("admin_id", cb.adminID),
		logger.String("callback_data", c.Data),
	)
	return handler(h, ctx, cb)
}

func (h *Handler) routeMessage(ctx context.Context, m *telebot.Message) error {
	if m.Sender == nil || m.Chat == nil {
		return nil
	}
	chatID := m.Chat.ID
	adminID := m.Sender.ID

	if !h.access.IsAdmin(ctx, adminID) {
		logger.Warn("Message from non-admin", logger.Int64("user_id", adminID))
		return h.send(ctx, chatID, MsgAccessDenied, nil)
	}

	text := m.Text
	c := &command{adminID: adminID, chatID: chatID, text: text}

	if handler, ok := exactCommands[text]; ok {
		return handler(h, ctx, c)
	}
	for _, pc := range prefixCommands {
		if strings.HasPrefix(text, pc.prefix) {
			c.args = strings.TrimSpace(strings.TrimPrefix(text, pc.prefix))
			return pc.handler(h, ctx, c)
		}
	}
	if strings.HasPrefix(text, "/broadcast") {
		c.args = strings.TrimSpace(strings.TrimPrefix(text, "/broadcast"))
		return h.handleBroadcast(ctx, c)
	}

	return h.handleFreeText(ctx, m)
}

// handleFreeText interprets a non-command message. Pending conversation
// state always wins over the reply association, which wins over a pending
// rejection reason.
func (h *Handler) handleFreeText(ctx context.Context, m *telebot.Message) error {
	chatID := m.Chat.ID
	adminID := m.Sender.ID
	text := m.Text

	if text == "" {
		return h.send(ctx, chatID, MsgUseHelp, nil)
	}

	if handled, err := h.resumeSupportAnswer(ctx, chatID, adminID, text); handled || err != nil {
		return err
	}

	if m.ReplyTo != nil {
		if handled, err := h.replyToQuestion(ctx, chatID, adminID, text, m.ReplyTo.ID); handled || err != nil {
			return err
		}
	}

	if handled, err := h.resumeRejection(ctx, chatID, adminID, text); handled || err != nil {
		return err
	}

	return h.send(ctx, chatID, MsgUseHelp, nil)
}

func (h *Handler) handleStart(ctx context.Context, c *command) error {
	return h.send(ctx, c.chatID, MsgWelcome, nil)
}

// handleCancel drops the admin's pending support answer and the most
// recent pending rejection.
func (h *Handler) handleCancel(ctx context.Context, c *command) error {
	conv, err := h.conversations.SupportAnswer(ctx, c.adminID)
	if err != nil {
		storeFailed("conversation.get", c.adminID, err)
	}
	hadAnswer := err == nil && conv.Kind != ""
	if hadAnswer {
		if err := h.conversations.Clear(ctx, c.adminID); err != nil {
			storeFailed("conversation.clear", c.adminID, err)
			return h.send(ctx, c.chatID, MsgError, nil)
		}
	}

	hadRejection := false
	pending, err := h.moderation.LatestPendingRejection(ctx, c.adminID)
	switch {
	case err == nil:
		if err := h.moderation.DeletePendingRejection(ctx, pending.ID); err != nil {
			storeFailed("pending_rejection.delete", c.adminID, err)
			return h.send(ctx, c.chatID, MsgError, nil)
		}
		hadRejection = true
	case !isNotFound(err):
		storeFailed("pending_rejection.latest", c.adminID, err)
	}

	if !hadAnswer && !hadRejection {
		return h.send(ctx, c.chatID, MsgNothingToCancel, nil)
	}
	return h.send(ctx, c.chatID, FormatCancelled(hadAnswer, hadRejection), nil)
}

// parsePage reads a page number from callback data. Garbage and negative
// values mean the first page.
func parsePage(s string) int {
	page, err := strconv.Atoi(s)
	if err != nil || page < 0 {
		return 0
	}
	return page
}

func totalPages(total, perPage int) int {
	return (total + perPage - 1) / perPage
}
