package admin

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"hub-bot/internal/models"
)

var digitsOnly = regexp.MustCompile(`^\d+$`)

func (h *Handler) handleStats(ctx context.Context, c *command) error {
	users, err := h.profiles.Count(ctx)
	if err != nil {
		storeFailed("profiles.count", c.adminID, err)
		return h.send(ctx, c.chatID, MsgStatsError, nil)
	}
	premium, err := h.profiles.CountPremium(ctx)
	if err != nil {
		storeFailed("profiles.count_premium", c.adminID, err)
		return h.send(ctx, c.chatID, MsgStatsError, nil)
	}
	blocked, err := h.profiles.CountBlocked(ctx)
	if err != nil {
		storeFailed("profiles.count_blocked", c.adminID, err)
		return h.send(ctx, c.chatID, MsgStatsError, nil)
	}
	articles, err := h.articles.CountByStatus(ctx)
	if err != nil {
		storeFailed("articles.count", c.adminID, err)
		return h.send(ctx, c.chatID, MsgStatsError, nil)
	}

	return h.send(ctx, c.chatID, FormatStats(users, premium, blocked, articles), statsKeyboard())
}

func (h *Handler) handleUsers(ctx context.Context, c *command) error {
	return h.listUsers(ctx, c.chatID, c.adminID, 0, 0)
}

func (h *Handler) handleUsersPage(ctx context.Context, cb *callback) error {
	if err := h.answer(ctx, cb, ""); err != nil {
		return err
	}
	return h.listUsers(ctx, cb.chatID, cb.adminID, parsePage(cb.param), cb.messageID)
}

func (h *Handler) listUsers(ctx context.Context, chatID, adminID int64, page, messageID int) error {
	total, err := h.profiles.Count(ctx)
	if err != nil {
		storeFailed("profiles.count", adminID, err)
		return h.send(ctx, chatID, MsgUsersError, nil)
	}
	profiles, err := h.profiles.List(ctx, page*usersPerPage, usersPerPage)
	if err != nil {
		storeFailed("profiles.list", adminID, err)
		return h.send(ctx, chatID, MsgUsersError, nil)
	}

	pages := totalPages(total, usersPerPage)
	text := FormatUserList(profiles, total, page, pages)
	return h.show(ctx, chatID, messageID, text, usersKeyboard(profiles, page, pages))
}

// lookupProfile resolves a telegram id from callback data. Any failure,
// including a malformed id, reads as "not found" for the admin.
func (h *Handler) lookupProfile(ctx context.Context, adminID int64, raw string) (*models.Profile, bool) {
	telegramID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, false
	}
	p, err := h.profiles.GetByTelegramID(ctx, telegramID)
	if err != nil {
		if !isNotFound(err) {
			storeFailed("profiles.get", adminID, err)
		}
		return nil, false
	}
	return p, true
}

func (h *Handler) handleUserProfile(ctx context.Context, cb *callback) error {
	p, ok := h.lookupProfile(ctx, cb.adminID, cb.param)
	if !ok {
		return h.answer(ctx, cb, MsgUserNotFound)
	}
	if err := h.answer(ctx, cb, ""); err != nil {
		return err
	}
	return h.show(ctx, cb.chatID, cb.messageID, FormatProfile(p, h.loc), profileKeyboard(p, true))
}

func (h *Handler) handleSearch(ctx context.Context, c *command) error {
	query := strings.TrimSpace(strings.Replace(c.args, "@", "", 1))
	if query == "" {
		return h.send(ctx, c.chatID, MsgSearchUsage, nil)
	}

	var profiles []models.Profile
	if digitsOnly.MatchString(query) {
		telegramID, err := strconv.ParseInt(query, 10, 64)
		if err == nil {
			p, err := h.profiles.GetByTelegramID(ctx, telegramID)
			switch {
			case err == nil:
				profiles = append(profiles, *p)
			case !isNotFound(err):
				storeFailed("profiles.get", c.adminID, err)
				return h.send(ctx, c.chatID, MsgUsersError, nil)
			}
		}
	} else {
		found, err := h.profiles.SearchByUsername(ctx, query)
		if err != nil {
			storeFailed("profiles.search", c.adminID, err)
			return h.send(ctx, c.chatID, MsgUsersError, nil)
		}
		profiles = found
	}

	if len(profiles) == 0 {
		return h.send(ctx, c.chatID, FormatUserNotFound(c.args), nil)
	}

	for i := range profiles {
		p := &profiles[i]
		if err := h.send(ctx, c.chatID, FormatProfile(p, h.loc), profileKeyboard(p, false)); err != nil {
			return err
		}
	}
	return nil
}

func (h *Handler) handlePremium(ctx context.Context, c *command) error {
	count, err := h.profiles.CountPremium(ctx)
	if err != nil {
		storeFailed("profiles.count_premium", c.adminID, err)
		return h.send(ctx, c.chatID, MsgUsersError, nil)
	}
	profiles, err := h.profiles.ListPremium(ctx, premiumListLimit)
	if err != nil {
		storeFailed("profiles.list_premium", c.adminID, err)
		return h.send(ctx, c.chatID, MsgUsersError, nil)
	}
	return h.send(ctx, c.chatID, FormatPremiumOverview(count, profiles, h.loc), nil)
}

// extendBase is where a premium extension starts counting: the current
// expiry when it is still in the future, now otherwise.
func extendBase(p *models.Profile, now time.Time) time.Time {
	if p.PremiumExpiresAt != nil && p.PremiumExpiresAt.After(now) {
		return *p.PremiumExpiresAt
	}
	return now
}

func (h *Handler) handlePremiumGrant(ctx context.Context, cb *callback) error {
	p, ok := h.lookupProfile(ctx, cb.adminID, cb.param)
	if !ok {
		return h.answer(ctx, cb, MsgUserNotFound)
	}

	expiresAt := extendBase(p, h.now()).AddDate(0, 0, grantDays)
	if err := h.profiles.SetPremium(ctx, p.ID, expiresAt); err != nil {
		storeFailed("profiles.set_premium", cb.adminID, err)
		return h.answer(ctx, cb, MsgUpdateError)
	}

	local := expiresAt.In(h.loc)
	h.notifyUser(ctx, p.TelegramID, FormatPremiumGrantedUser(local))

	if err := h.answer(ctx, cb, CallbackPremiumGranted); err != nil {
		return err
	}
	if _, err := h.relay.ClearKeyboard(ctx, cb.chatID, cb.messageID); err != nil {
		return err
	}
	return h.send(ctx, cb.chatID, FormatPremiumGrantedAdmin(p.Handle(cb.param), local), nil)
}

func (h *Handler) handlePremiumRevoke(ctx context.Context, cb *callback) error {
	p, ok := h.lookupProfile(ctx, cb.adminID, cb.param)
	if !ok {
		return h.answer(ctx, cb, MsgUserNotFound)
	}

	if err := h.profiles.RevokePremium(ctx, p.ID); err != nil {
		storeFailed("profiles.revoke_premium", cb.adminID, err)
		return h.answer(ctx, cb, MsgError)
	}

	h.notifyUser(ctx, p.TelegramID, MsgPremiumRevokedUser)

	if err := h.answer(ctx, cb, CallbackPremiumRevoked); err != nil {
		return err
	}
	if _, err := h.relay.ClearKeyboard(ctx, cb.chatID, cb.messageID); err != nil {
		return err
	}
	return h.send(ctx, cb.chatID, FormatPremiumRevokedAdmin(p.Handle(cb.param)), nil)
}

func (h *Handler) handlePremiumExtend(ctx context.Context, cb *callback) error {
	days := grantDays
	if n, err := strconv.Atoi(cb.param2); err == nil && n > 0 && n <= maxExtendDays {
		days = n
	}

	p, ok := h.lookupProfile(ctx, cb.adminID, cb.param)
	if !ok {
		return h.answer(ctx, cb, MsgUserNotFound)
	}

	expiresAt := extendBase(p, h.now()).AddDate(0, 0, days)
	if err := h.profiles.SetPremium(ctx, p.ID, expiresAt); err != nil {
		storeFailed("profiles.set_premium", cb.adminID, err)
		return h.answer(ctx, cb, MsgError)
	}

	local := expiresAt.In(h.loc)
	h.notifyUser(ctx, p.TelegramID, FormatPremiumExtendedUser(days, local))

	if err := h.answer(ctx, cb, CallbackPremiumExtended); err != nil {
		return err
	}
	if _, err := h.relay.ClearKeyboard(ctx, cb.chatID, cb.messageID); err != nil {
		return err
	}
	return h.send(ctx, cb.chatID, FormatPremiumExtendedAdmin(p.Handle(cb.param), days, local), nil)
}

// handleExtend implements "/extend <telegram_id> <days>".
func (h *Handler) handleExtend(ctx context.Context, c *command) error {
	fields := strings.Fields(c.args)
	if len(fields) < 2 {
		return h.send(ctx, c.chatID, MsgExtendUsage, nil)
	}

	rawID := fields[0]
	days, err := strconv.Atoi(fields[1])
	if err != nil || days <= 0 || days > maxExtendDays {
		return h.send(ctx, c.chatID, MsgExtendDaysInvalid, nil)
	}

	p, ok := h.lookupProfile(ctx, c.adminID, rawID)
	if !ok {
		return h.send(ctx, c.chatID, FormatExtendUserNotFound(rawID), nil)
	}

	expiresAt := extendBase(p, h.now()).AddDate(0, 0, days)
	if err := h.profiles.SetPremium(ctx, p.ID, expiresAt); err != nil {
		storeFailed("profiles.set_premium", c.adminID, err)
		return h.send(ctx, c.chatID, MsgExtendError, nil)
	}

	local := expiresAt.In(h.loc)
	h.notifyUser(ctx, p.TelegramID, FormatPremiumExtendedUser(days, local))

	return h.send(ctx, c.chatID, FormatPremiumExtendedAdmin(p.Handle(rawID), days, local), nil)
}

func (h *Handler) handleBlock(ctx context.Context, cb *callback) error {
	p, ok := h.lookupProfile(ctx, cb.adminID, cb.param)
	if !ok {
		return h.answer(ctx, cb, MsgUserNotFound)
	}

	if err := h.profiles.Block(ctx, p.ID, h.now()); err != nil {
		storeFailed("profiles.block", cb.adminID, err)
		return h.answer(ctx, cb, MsgError)
	}

	h.notifyUser(ctx, p.TelegramID, MsgBlockedUser)

	if err := h.answer(ctx, cb, CallbackBlocked); err != nil {
		return err
	}
	if _, err := h.relay.ClearKeyboard(ctx, cb.chatID, cb.messageID); err != nil {
		return err
	}
	return h.send(ctx, cb.chatID, FormatBlockedAdmin(p.Handle(cb.param)), nil)
}

func (h *Handler) handleUnblock(ctx context.Context, cb *callback) error {
	p, ok := h.lookupProfile(ctx, cb.adminID, cb.param)
	if !ok {
		return h.answer(ctx, cb, MsgUserNotFound)
	}

	if err := h.profiles.Unblock(ctx, p.ID); err != nil {
		storeFailed("profiles.unblock", cb.adminID, err)
		return h.answer(ctx, cb, MsgError)
	}

	h.notifyUser(ctx, p.TelegramID, MsgUnblockedUser)

	if err := h.answer(ctx, cb, CallbackUnblocked); err != nil {
		return err
	}
	if _, err := h.relay.ClearKeyboard(ctx, cb.chatID, cb.messageID); err != nil {
		return err
	}
	return h.send(ctx, cb.chatID, FormatUnblockedAdmin(p.Handle(cb.param)), nil)
}

// handleBroadcast sends c.args to every non-blocked user. Individual
// failures are counted and never stop the run.
func (h *Handler) handleBroadcast(ctx context.Context, c *command) error {
	if c.args == "" {
		return h.send(ctx, c.chatID, MsgBroadcastUsage, nil)
	}

	recipients, err := h.profiles.BroadcastRecipients(ctx)
	if err != nil {
		storeFailed("profiles.broadcast_recipients", c.adminID, err)
		return h.send(ctx, c.chatID, MsgUsersError, nil)
	}
	if len(recipients) == 0 {
		return h.send(ctx, c.chatID, MsgNoRecipients, nil)
	}

	if err := h.send(ctx, c.chatID, FormatBroadcastStart(len(recipients)), nil); err != nil {
		return err
	}

	text := FormatBroadcast(c.args)
	var sent, failed int
	for _, telegramID := range recipients {
		if telegramID == 0 {
			continue
		}
		d, err := h.relay.SendUser(ctx, telegramID, text)
		if err != nil || !d.OK {
			failed++
			continue
		}
		sent++
	}

	return h.send(ctx, c.chatID, FormatBroadcastDone(sent, failed), nil)
}
