package admin

import (
	"context"
	"fmt"

	"hub-bot/internal/models"
	"hub-bot/pkg/logger"
)

func (h *Handler) handlePending(ctx context.Context, c *command) error {
	articles, err := h.articles.ListPending(ctx, pendingLimit)
	if err != nil {
		storeFailed("articles.list_pending", c.adminID, err)
		return h.send(ctx, c.chatID, MsgArticlesError, nil)
	}
	if len(articles) == 0 {
		return h.send(ctx, c.chatID, MsgNoPending, nil)
	}

	if err := h.send(ctx, c.chatID, FormatPendingHeader(len(articles)), nil); err != nil {
		return err
	}
	for i := range articles {
		a := &articles[i]
		shortID := h.shortIDs.GetOrCreate(ctx, a.ID)
		if err := h.send(ctx, c.chatID, FormatPendingCard(a, h.loc), moderationKeyboard(shortID)); err != nil {
			return err
		}
	}
	return nil
}

// NotifyNewArticle announces a freshly submitted article in the admin chat
// with approve and reject buttons.
func (h *Handler) NotifyNewArticle(ctx context.Context, articleID string) error {
	a, err := h.articles.Get(ctx, articleID)
	if err != nil {
		return fmt.Errorf("failed to load article %s: %w", articleID, err)
	}
	shortID := h.shortIDs.GetOrCreate(ctx, a.ID)

	d, err := h.relay.SendAdmin(ctx, h.adminChatID, FormatNewArticle(a), moderationKeyboard(shortID))
	if err != nil {
		return err
	}
	if !d.OK {
		return fmt.Errorf("telegram rejected moderation notification: %s", d.Description)
	}
	return nil
}

// resolveArticle maps a short id from callback data to an article id,
// answering the callback when it does not resolve.
func (h *Handler) resolveArticle(ctx context.Context, cb *callback) (string, bool, error) {
	articleID, ok := h.shortIDs.Resolve(ctx, cb.param)
	if !ok {
		return "", false, h.answer(ctx, cb, MsgArticleNotFound)
	}
	return articleID, true, nil
}

func (h *Handler) handleApprove(ctx context.Context, cb *callback) error {
	articleID, ok, err := h.resolveArticle(ctx, cb)
	if !ok {
		return err
	}

	if err := h.articles.SetStatus(ctx, articleID, models.StatusApproved, nil); err != nil {
		if isNotFound(err) {
			return h.answer(ctx, cb, MsgArticleNotFound)
		}
		if isAlreadyModerated(err) {
			return h.answer(ctx, cb, MsgAlreadyModerated)
		}
		storeFailed("articles.approve", cb.adminID, err)
		return h.answer(ctx, cb, MsgApproveError)
	}

	a := h.articleOrStub(ctx, cb.adminID, articleID)

	if err := h.moderation.Log(ctx, &models.ModerationLog{
		ArticleID:           articleID,
		ModeratorTelegramID: cb.adminID,
		Action:              models.ActionApproved,
	}); err != nil {
		storeFailed("moderation.log", cb.adminID, err)
	}

	if a.Author != nil && a.Author.TelegramID != 0 {
		h.notifyUser(ctx, a.Author.TelegramID, FormatApprovedUser(a.Title))
	}

	if err := h.answer(ctx, cb, CallbackApproved); err != nil {
		return err
	}
	if _, err := h.relay.ClearKeyboard(ctx, cb.chatID, cb.messageID); err != nil {
		return err
	}
	return h.send(ctx, cb.chatID, FormatApprovedAdmin(a.Title), nil)
}

// articleOrStub reloads an article after a status change. A failed reload
// only costs the title and author in the messages that follow.
func (h *Handler) articleOrStub(ctx context.Context, adminID int64, articleID string) *models.Article {
	a, err := h.articles.Get(ctx, articleID)
	if err != nil {
		if !isNotFound(err) {
			storeFailed("articles.get", adminID, err)
		}
		return &models.Article{ID: articleID}
	}
	return a
}

// handleReject starts the two-step rejection: the reason arrives with the
// admin's next free-text message.
func (h *Handler) handleReject(ctx context.Context, cb *callback) error {
	articleID, ok, err := h.resolveArticle(ctx, cb)
	if !ok {
		return err
	}

	a, err := h.articles.Get(ctx, articleID)
	if err != nil {
		if !isNotFound(err) {
			storeFailed("articles.get", cb.adminID, err)
			return h.answer(ctx, cb, MsgError)
		}
		return h.answer(ctx, cb, MsgArticleNotFound)
	}
	if a.Status != models.StatusPending {
		return h.answer(ctx, cb, MsgAlreadyModerated)
	}

	if err := h.moderation.AddPendingRejection(ctx, &models.PendingRejection{
		ShortID:         cb.param,
		ArticleID:       articleID,
		AdminTelegramID: cb.adminID,
	}); err != nil {
		storeFailed("pending_rejection.add", cb.adminID, err)
		return h.answer(ctx, cb, MsgError)
	}

	if err := h.answer(ctx, cb, MsgRejectCallback); err != nil {
		return err
	}
	if _, err := h.relay.ClearKeyboard(ctx, cb.chatID, cb.messageID); err != nil {
		return err
	}
	return h.send(ctx, cb.chatID, MsgRejectPrompt, nil)
}

// resumeRejection applies text as the reason of the admin's most recent
// pending rejection. Earlier pending rejections of the same admin are left
// in place.
func (h *Handler) resumeRejection(ctx context.Context, chatID, adminID int64, text string) (bool, error) {
	pending, err := h.moderation.LatestPendingRejection(ctx, adminID)
	if err != nil {
		if isNotFound(err) {
			return false, nil
		}
		storeFailed("pending_rejection.latest", adminID, err)
		return true, h.send(ctx, chatID, MsgError, nil)
	}

	reason := text
	if err := h.articles.SetStatus(ctx, pending.ArticleID, models.StatusRejected, &reason); err != nil {
		if isAlreadyModerated(err) || isNotFound(err) {
			msg := MsgAlreadyModerated
			if isNotFound(err) {
				msg = MsgArticleNotFound
			}
			if delErr := h.moderation.DeletePendingRejections(ctx, pending.ArticleID); delErr != nil {
				storeFailed("pending_rejection.delete", adminID, delErr)
			}
			return true, h.send(ctx, chatID, msg, nil)
		}
		storeFailed("articles.reject", adminID, err)
		return true, h.send(ctx, chatID, MsgRejectError, nil)
	}

	a := h.articleOrStub(ctx, adminID, pending.ArticleID)

	if err := h.moderation.Log(ctx, &models.ModerationLog{
		ArticleID:           pending.ArticleID,
		ModeratorTelegramID: adminID,
		Action:              models.ActionRejected,
		Reason:              &reason,
	}); err != nil {
		storeFailed("moderation.log", adminID, err)
	}

	if a.Author != nil && a.Author.TelegramID != 0 {
		h.notifyUser(ctx, a.Author.TelegramID, FormatRejectedUser(a.Title, reason))
	}

	if err := h.moderation.DeletePendingRejections(ctx, pending.ArticleID); err != nil {
		storeFailed("pending_rejection.delete", adminID, err)
	}

	return true, h.send(ctx, chatID, FormatRejectedAdmin(a.Title, reason), nil)
}

func (h *Handler) handleArticles(ctx context.Context, c *command) error {
	return h.listArticles(ctx, c.chatID, c.adminID, 0, 0, "")
}

func (h *Handler) handleSearchArticles(ctx context.Context, c *command) error {
	if c.args == "" {
		return h.send(ctx, c.chatID, MsgSearchArticlesUsage, nil)
	}
	return h.listArticles(ctx, c.chatID, c.adminID, 0, 0, c.args)
}

func (h *Handler) handleArticlesPage(ctx context.Context, cb *callback) error {
	if err := h.answer(ctx, cb, ""); err != nil {
		return err
	}
	return h.listArticles(ctx, cb.chatID, cb.adminID, parsePage(cb.param), cb.messageID, "")
}

func (h *Handler) listArticles(ctx context.Context, chatID, adminID int64, page, messageID int, query string) error {
	articles, total, err := h.articles.ListApproved(ctx, query, page*articlesPerPage, articlesPerPage)
	if err != nil {
		storeFailed("articles.list_approved", adminID, err)
		return h.send(ctx, chatID, MsgArticlesError, nil)
	}

	shortIDs := make([]string, len(articles))
	titles := make([]string, len(articles))
	for i := range articles {
		shortIDs[i] = h.shortIDs.GetOrCreate(ctx, articles[i].ID)
		titles[i] = articles[i].Title
	}

	pages := totalPages(total, articlesPerPage)
	text := FormatArticleList(articles, total, page, pages, query, h.loc)
	return h.show(ctx, chatID, messageID, text, articlesKeyboard(shortIDs, titles, page, pages))
}

func (h *Handler) handleViewArticle(ctx context.Context, cb *callback) error {
	articleID, ok, err := h.resolveArticle(ctx, cb)
	if !ok {
		return err
	}

	a, err := h.articles.Get(ctx, articleID)
	if err != nil {
		if !isNotFound(err) {
			storeFailed("articles.get", cb.adminID, err)
		}
		return h.answer(ctx, cb, MsgArticleNotFound)
	}

	if err := h.answer(ctx, cb, ""); err != nil {
		return err
	}
	return h.show(ctx, cb.chatID, cb.messageID, FormatArticle(a, h.loc), articleKeyboard(cb.param))
}

func (h *Handler) handleDeleteArticle(ctx context.Context, cb *callback) error {
	articleID, ok, err := h.resolveArticle(ctx, cb)
	if !ok {
		return err
	}

	a, err := h.articles.Get(ctx, articleID)
	if err != nil {
		if !isNotFound(err) {
			storeFailed("articles.get", cb.adminID, err)
		}
		return h.answer(ctx, cb, MsgArticleNotFound)
	}

	if err := h.articles.Delete(ctx, a.ID); err != nil {
		storeFailed("articles.delete", cb.adminID, err)
		return h.answer(ctx, cb, MsgDeleteError)
	}

	logger.Info("Article deleted",
		logger.String("article_id", a.ID),
		logger.Int64("admin_id", cb.adminID),
	)

	if a.Author != nil && a.Author.TelegramID != 0 {
		h.notifyUser(ctx, a.Author.TelegramID, FormatArticleDeletedUser(a.Title))
	}

	if err := h.answer(ctx, cb, CallbackDeleted); err != nil {
		return err
	}
	if cb.messageID != 0 {
		if d, err := h.relay.DeleteAdmin(ctx, cb.chatID, cb.messageID); err != nil || !d.OK {
			logger.Warn("Failed to remove article card",
				logger.Int("message_id", cb.messageID),
				logger.String("description", d.Description),
			)
		}
	}
	if err := h.send(ctx, cb.chatID, FormatArticleDeletedAdmin(a.Title), nil); err != nil {
		return err
	}
	return h.listArticles(ctx, cb.chatID, cb.adminID, 0, 0, "")
}
