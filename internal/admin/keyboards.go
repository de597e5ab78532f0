package admin

import (
	"fmt"

	"hub-bot/internal/models"

	"gopkg.in/telebot.v4"
)

func btn(text, data string) telebot.InlineButton {
	return telebot.InlineButton{Text: text, Data: data}
}

func inline(rows ...[]telebot.InlineButton) *telebot.ReplyMarkup {
	return &telebot.ReplyMarkup{InlineKeyboard: rows}
}

func row(buttons ...telebot.InlineButton) []telebot.InlineButton {
	return buttons
}

func statsKeyboard() *telebot.ReplyMarkup {
	return inline(
		row(btn("👥 Открыть список пользователей", "users:0")),
		row(btn("📰 Открыть список статей", "articles:0")),
	)
}

// usersKeyboard always carries both navigation buttons; at the edges they
// point back at the current page.
func usersKeyboard(profiles []models.Profile, page, totalPages int) *telebot.ReplyMarkup {
	rows := make([][]telebot.InlineButton, 0, len(profiles)+1)
	for i := range profiles {
		p := &profiles[i]
		label := p.Handle(fmt.Sprint(p.TelegramID))
		rows = append(rows, row(btn("👤 "+label, fmt.Sprintf("user:%d", p.TelegramID))))
	}

	prev := page
	if page > 0 {
		prev = page - 1
	}
	next := page
	if page < totalPages-1 {
		next = page + 1
	}
	rows = append(rows, row(
		btn("⬅️ Назад", fmt.Sprintf("users:%d", prev)),
		btn("Вперёд ➡️", fmt.Sprintf("users:%d", next)),
	))
	return inline(rows...)
}

func profileKeyboard(p *models.Profile, withBack bool) *telebot.ReplyMarkup {
	var rows [][]telebot.InlineButton

	if p.IsPremium {
		rows = append(rows,
			row(btn("❌ Забрать Premium", fmt.Sprintf("premium_revoke:%d", p.TelegramID))),
			row(btn("📅 Продлить на 30 дней", fmt.Sprintf("premium_extend:%d:30", p.TelegramID))),
		)
	} else {
		rows = append(rows, row(btn("👑 Выдать Premium (30 дней)", fmt.Sprintf("premium_grant:%d", p.TelegramID))))
	}

	if p.IsBlocked {
		rows = append(rows, row(btn("✅ Разблокировать", fmt.Sprintf("unblock:%d", p.TelegramID))))
	} else {
		rows = append(rows, row(btn("🚫 Заблокировать", fmt.Sprintf("block:%d", p.TelegramID))))
	}

	if withBack {
		rows = append(rows, row(btn("◀️ Назад к списку", "users:0")))
	}
	return inline(rows...)
}

func moderationKeyboard(shortID string) *telebot.ReplyMarkup {
	return inline(row(
		btn("✅ Принять", "approve:"+shortID),
		btn("❌ Отклонить", "reject:"+shortID),
	))
}

// articlesKeyboard omits a navigation button entirely at the edge it
// would point past.
func articlesKeyboard(shortIDs, titles []string, page, totalPages int) *telebot.ReplyMarkup {
	rows := make([][]telebot.InlineButton, 0, len(shortIDs)+1)
	for i, sid := range shortIDs {
		rows = append(rows, row(btn("📄 "+cut(titles[i], 25), "article:"+sid)))
	}

	var nav []telebot.InlineButton
	if page > 0 {
		nav = append(nav, btn("⬅️ Назад", fmt.Sprintf("articles:%d", page-1)))
	}
	if page < totalPages-1 {
		nav = append(nav, btn("Вперёд ➡️", fmt.Sprintf("articles:%d", page+1)))
	}
	if len(nav) > 0 {
		rows = append(rows, nav)
	}
	return inline(rows...)
}

func articleKeyboard(shortID string) *telebot.ReplyMarkup {
	return inline(
		row(btn("🗑 Удалить статью", "delete_article:"+shortID)),
		row(btn("◀️ Назад к списку", "articles:0")),
	)
}

func questionKeyboard(q *models.SupportQuestion) *telebot.ReplyMarkup {
	return inline(row(btn("💬 Ответить",
		fmt.Sprintf("support_answer:%d:%s", q.UserTelegramID, prefix(q.ID, 8)))))
}
