package admin

import (
	"context"
	"fmt"
	"strconv"

	"hub-bot/internal/models"
	"hub-bot/pkg/logger"
)

// noQuestion marks a support answer that is not tied to a stored question.
const noQuestion = "none"

func (h *Handler) handleQuestions(ctx context.Context, c *command) error {
	questions, err := h.support.ListPending(ctx, questionsLimit)
	if err != nil {
		storeFailed("support.list_pending", c.adminID, err)
		return h.send(ctx, c.chatID, MsgQuestionsError, nil)
	}
	if len(questions) == 0 {
		return h.send(ctx, c.chatID, MsgNoQuestions, nil)
	}

	for i := range questions {
		q := &questions[i]
		if err := h.send(ctx, c.chatID, FormatQuestion(q, h.asker(ctx, q)), questionKeyboard(q)); err != nil {
			return err
		}
	}
	return nil
}

// asker looks up the profile of whoever asked q. Nil means the card falls
// back to the bare telegram id.
func (h *Handler) asker(ctx context.Context, q *models.SupportQuestion) *models.Profile {
	p, err := h.profiles.GetByTelegramID(ctx, q.UserTelegramID)
	if err != nil {
		if !isNotFound(err) {
			logger.Warn("Failed to load question author",
				logger.Err(err),
				logger.String("question_id", q.ID),
			)
		}
		return nil
	}
	return p
}

func (h *Handler) handleViewQuestion(ctx context.Context, cb *callback) error {
	q, err := h.support.FindPendingByPrefix(ctx, cb.param, 0)
	if err != nil {
		if !isNotFound(err) {
			storeFailed("support.find", cb.adminID, err)
		}
		return h.answer(ctx, cb, MsgQuestionNotFound)
	}

	if err := h.answer(ctx, cb, ""); err != nil {
		return err
	}
	return h.send(ctx, cb.chatID, FormatQuestion(q, h.asker(ctx, q)), questionKeyboard(q))
}

// NotifyNewQuestion posts a question card to the admin chat and remembers
// the message id so a plain reply to it answers the question.
func (h *Handler) NotifyNewQuestion(ctx context.Context, questionID string) error {
	q, err := h.support.Get(ctx, questionID)
	if err != nil {
		return fmt.Errorf("failed to load question %s: %w", questionID, err)
	}

	d, err := h.relay.SendAdmin(ctx, h.adminChatID, FormatQuestion(q, h.asker(ctx, q)), questionKeyboard(q))
	if err != nil {
		return err
	}
	if !d.OK {
		return fmt.Errorf("telegram rejected support notification: %s", d.Description)
	}

	if err := h.support.SetAdminMessageID(ctx, q.ID, int64(d.MessageID)); err != nil {
		return fmt.Errorf("failed to store admin message id: %w", err)
	}
	return nil
}

func (h *Handler) handleSupportAnswerStart(ctx context.Context, cb *callback) error {
	userID, err := strconv.ParseInt(cb.param, 10, 64)
	if err != nil || userID <= 0 {
		return h.answer(ctx, cb, MsgQuestionNotFound)
	}
	questionShortID := cb.param2
	if questionShortID == "" {
		questionShortID = noQuestion
	}

	if err := h.conversations.BeginSupportAnswer(ctx, cb.adminID, userID, questionShortID, cb.messageID); err != nil {
		storeFailed("conversation.begin", cb.adminID, err)
		return h.answer(ctx, cb, MsgError)
	}

	if err := h.answer(ctx, cb, MsgAnswerCallback); err != nil {
		return err
	}
	return h.send(ctx, cb.chatID, FormatAnswerPrompt(userID), nil)
}

// resumeSupportAnswer sends text to the user the admin chose to answer.
// The question, when it is still among the latest pending ones, is marked
// answered and quoted back to the user.
func (h *Handler) resumeSupportAnswer(ctx context.Context, chatID, adminID int64, text string) (bool, error) {
	conv, err := h.conversations.SupportAnswer(ctx, adminID)
	if err != nil {
		storeFailed("conversation.get", adminID, err)
		return true, h.send(ctx, chatID, MsgError, nil)
	}
	if conv.Kind == "" {
		return false, nil
	}

	var question string
	if conv.QuestionShortID != "" && conv.QuestionShortID != noQuestion {
		q, err := h.support.FindPendingByPrefix(ctx, conv.QuestionShortID, answerSearchWindow)
		switch {
		case err == nil:
			question = q.Question
			if err := h.support.MarkAnswered(ctx, q.ID, text, adminID, h.now()); err != nil {
				storeFailed("support.mark_answered", adminID, err)
			}
		case !isNotFound(err):
			storeFailed("support.find", adminID, err)
		}
	}

	d := h.notifyUser(ctx, conv.UserTelegramID, FormatSupportAnswer(question, text))

	if err := h.conversations.Clear(ctx, adminID); err != nil {
		storeFailed("conversation.clear", adminID, err)
	}

	if d.OK {
		return true, h.send(ctx, chatID, FormatAnswerSent(conv.UserTelegramID), nil)
	}
	return true, h.send(ctx, chatID, FormatAnswerFailed(d.Description), nil)
}

// replyToQuestion answers the pending question whose admin chat card the
// message replies to.
func (h *Handler) replyToQuestion(ctx context.Context, chatID, adminID int64, text string, replyToID int) (bool, error) {
	q, err := h.support.FindPendingByAdminMessage(ctx, int64(replyToID))
	if err != nil {
		if !isNotFound(err) {
			storeFailed("support.find_by_message", adminID, err)
		}
		return false, nil
	}

	if err := h.support.MarkAnswered(ctx, q.ID, text, adminID, h.now()); err != nil {
		storeFailed("support.mark_answered", adminID, err)
		return true, h.send(ctx, chatID, MsgSaveAnswerErr, nil)
	}

	h.notifyUser(ctx, q.UserTelegramID, FormatSupportReply(q.Question, text))
	return true, h.send(ctx, chatID, FormatAnswerSent(q.UserTelegramID), nil)
}
