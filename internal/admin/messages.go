package admin

import (
	"fmt"
	"html"
	"strings"
	"time"
	"unicode/utf8"

	"hub-bot/internal/models"
)

const (
	MsgAccessDenied         = `⛔ Доступ запрещён. Этот бот только для администраторов.`
	MsgAccessDeniedCallback = `⛔ Доступ запрещён`
	MsgUseHelp              = `Используйте /help для списка команд.`

	MsgWelcome = `🔐 <b>BoysHub Admin Bot</b>

Добро пожаловать в админ-панель!

<b>Доступные команды:</b>

📊 /stats — Статистика проекта
👥 /users — Список пользователей
👑 /premium — Управление подписками
📝 /pending — Статьи на модерации
📰 /st — Список статей
❓ /questions — Вопросы в поддержку
📢 /broadcast — Рассылка всем пользователям
🚫 /cancel — Отменить ожидающее действие
❓ /help — Справка

<b>Управление Premium:</b>
/extend [telegram_id] [дней] — Продлить Premium

<b>Поиск статей:</b>
/search_st [запрос] — Поиск по заголовку

<i>Уведомления о новых статьях и вопросах приходят автоматически.</i>`

	MsgUserNotFound     = `❌ Пользователь не найден`
	MsgArticleNotFound  = `❌ Статья не найдена`
	MsgAlreadyModerated = `ℹ️ Статья уже прошла модерацию`
	MsgQuestionNotFound = `❌ Вопрос не найден`
	MsgError            = `❌ Ошибка`
	MsgUpdateError      = `❌ Ошибка при обновлении`

	MsgStatsError     = `❌ Ошибка при загрузке статистики`
	MsgUsersError     = `❌ Ошибка при загрузке пользователей`
	MsgArticlesError  = `❌ Ошибка при загрузке статей`
	MsgQuestionsError = `❌ Ошибка при загрузке вопросов`
	MsgApproveError   = `❌ Ошибка при одобрении`
	MsgRejectError    = `❌ Ошибка при отклонении статьи`
	MsgDeleteError    = `❌ Ошибка при удалении`
	MsgExtendError    = `❌ Ошибка при продлении`
	MsgSaveAnswerErr  = `❌ Ошибка при сохранении ответа`

	MsgSearchUsage = `🔍 <b>Поиск пользователей</b>

Используйте:
<code>/search username</code> — поиск по юзернейму
<code>/search 123456789</code> — поиск по Telegram ID`

	MsgSearchArticlesUsage = `🔍 <b>Поиск статей</b>

Используйте:
<code>/search_st заголовок</code>

Пример:
<code>/search_st криптовалюта</code>`

	MsgExtendUsage = `📅 <b>Продление Premium</b>

Используйте:
<code>/extend [telegram_id] [дней]</code>

Примеры:
<code>/extend 123456789 7</code> — продлить на 7 дней
<code>/extend 123456789 90</code> — продлить на 90 дней`

	MsgExtendDaysInvalid = `❌ Укажите количество дней от 1 до 365`

	MsgBroadcastUsage = `📢 <b>Рассылка</b>

Чтобы отправить сообщение всем пользователям, используйте:

<code>/broadcast Текст сообщения</code>

Пример:
<code>/broadcast Привет! У нас новый функционал!</code>`

	MsgNoRecipients = `❌ Нет пользователей для рассылки`

	MsgNoPending   = `✨ Нет статей на модерации`
	MsgNoQuestions = `✨ Нет вопросов в поддержку`

	MsgRejectPrompt = `📝 <b>Укажите причину отклонения:</b>

Отправьте текст причины следующим сообщением.`
	MsgRejectCallback = `📝 Напишите причину отклонения`

	MsgAnswerCallback = `📝 Напишите ответ`

	MsgNothingToCancel = `ℹ️ Нет ожидающих действий`

	MsgPremiumRevokedUser = `ℹ️ <b>Уведомление</b>

Ваша Premium подписка была отменена.

Вы можете приобрести её снова в приложении BoysHub.`

	MsgBlockedUser = `🚫 <b>Ваш аккаунт заблокирован</b>

Вы больше не можете использовать BoysHub.

Если вы считаете, что это ошибка, обратитесь в поддержку.`

	MsgUnblockedUser = `✅ <b>Ваш аккаунт разблокирован</b>

Вы снова можете использовать BoysHub.`

	CallbackPremiumGranted  = `✅ Premium выдан`
	CallbackPremiumRevoked  = `✅ Premium отозван`
	CallbackPremiumExtended = `✅ Premium продлён`
	CallbackBlocked         = `🚫 Пользователь заблокирован`
	CallbackUnblocked       = `✅ Пользователь разблокирован`
	CallbackApproved        = `✅ Статья одобрена`
	CallbackDeleted         = `✅ Статья удалена`
)

const (
	dateLayout = "02.01.2006"
	timeLayout = "15:04"
)

func esc(s string) string {
	return html.EscapeString(s)
}

// cut shortens s to n runes, appending an ellipsis when it was longer.
func cut(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "..."
}

func prefix(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

func profileHandle(p *models.Profile) string {
	return p.Handle(fmt.Sprintf("ID:%d", p.TelegramID))
}

func authorHandle(a *models.Author) string {
	if a == nil {
		return "ID:N/A"
	}
	if a.Username != "" {
		return "@" + a.Username
	}
	if a.TelegramID == 0 {
		return "ID:N/A"
	}
	return fmt.Sprintf("ID:%d", a.TelegramID)
}

func FormatStats(users, premium, blocked int, a models.ArticleCounts) string {
	return fmt.Sprintf(`📊 <b>Статистика BoysHub</b>

👥 <b>Пользователей:</b> %d
👑 <b>Premium:</b> %d
🚫 <b>Заблокировано:</b> %d

📝 <b>Статьи:</b>
├ Всего: %d
├ ⏳ На модерации: %d
├ ✅ Опубликовано: %d
└ ❌ Отклонено: %d`,
		users, premium, blocked, a.Total, a.Pending, a.Approved, a.Rejected)
}

func FormatUserList(profiles []models.Profile, total, page, totalPages int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "👥 <b>Пользователи</b> (%d)\n", total)
	fmt.Fprintf(&b, "📄 Страница %d/%d\n\n", page+1, max(totalPages, 1))

	if len(profiles) == 0 {
		b.WriteString("<i>Пользователей нет</i>")
	}
	for i := range profiles {
		p := &profiles[i]
		if p.IsPremium {
			b.WriteString("👑")
		}
		if p.IsBlocked {
			b.WriteString("🚫")
		}
		fmt.Fprintf(&b, " <b>%s</b>\n", esc(profileHandle(p)))
		fmt.Fprintf(&b, "   🆔 %d | ⭐ %d\n", p.TelegramID, p.Reputation)
	}

	b.WriteString("\n🔍 Для поиска: <code>/search username</code> или <code>/search ID</code>")
	return b.String()
}

func FormatProfile(p *models.Profile, loc *time.Location) string {
	status := "👤 Обычный"
	if p.IsPremium {
		status = "👑 Premium"
	}
	blocked := ""
	if p.IsBlocked {
		blocked = "\n🚫 <b>ЗАБЛОКИРОВАН</b>"
	}
	expiry := ""
	if p.PremiumExpiresAt != nil {
		expiry = "\n📅 Premium до: " + p.PremiumExpiresAt.In(loc).Format(dateLayout)
	}
	username := "Не указан"
	if p.Username != "" {
		username = "@" + esc(p.Username)
	}

	return fmt.Sprintf(`👤 <b>Профиль пользователя</b>%s

📛 <b>Имя:</b> %s %s
🔗 <b>Username:</b> %s
🆔 <b>Telegram ID:</b> %d
⭐ <b>Репутация:</b> %d
📊 <b>Статус:</b> %s%s
📅 <b>Регистрация:</b> %s`,
		blocked, esc(p.FirstName), esc(p.LastName), username, p.TelegramID,
		p.Reputation, status, expiry, p.CreatedAt.In(loc).Format(dateLayout))
}

func FormatUserNotFound(query string) string {
	return fmt.Sprintf(`🔍 Пользователь "<b>%s</b>" не найден`, esc(query))
}

func FormatPremiumOverview(count int, profiles []models.Profile, loc *time.Location) string {
	var b strings.Builder
	fmt.Fprintf(&b, `👑 <b>Управление Premium</b>

Всего Premium пользователей: <b>%d</b>

<b>Команды:</b>
• /search [username/ID] — найти пользователя
• /extend [telegram_id] [дней] — продлить подписку
• Нажмите кнопку на карточке пользователя

<b>Premium пользователи:</b>
`, count)

	if len(profiles) == 0 {
		b.WriteString("\n<i>Пока нет Premium пользователей</i>")
	}
	for i := range profiles {
		p := &profiles[i]
		expiry := "∞"
		if p.PremiumExpiresAt != nil {
			expiry = p.PremiumExpiresAt.In(loc).Format(dateLayout)
		}
		fmt.Fprintf(&b, "\n👑 <b>%s</b>\n   📅 До: %s\n", esc(profileHandle(p)), expiry)
	}
	return b.String()
}

func FormatPremiumGrantedUser(expiresAt time.Time) string {
	return fmt.Sprintf(`🎉 <b>Поздравляем!</b>

Вам выдана Premium подписка на 30 дней!

Теперь вам доступны:
👑 Продажа продуктов через профиль
📱 Соц сети в профиле
🤖 ИИ ассистент
📚 Премиум материалы
♾ Безлимит публикаций
✨ PRO значок

Подписка активна до: %s`, expiresAt.Format(dateLayout))
}

func FormatPremiumGrantedAdmin(handle string, expiresAt time.Time) string {
	return fmt.Sprintf("✅ Premium выдан пользователю %s до %s", esc(handle), expiresAt.Format(dateLayout))
}

func FormatPremiumRevokedAdmin(handle string) string {
	return fmt.Sprintf("❌ Premium отозван у пользователя %s", esc(handle))
}

func FormatPremiumExtendedUser(days int, expiresAt time.Time) string {
	return fmt.Sprintf(`🎉 <b>Premium продлён!</b>

Ваша подписка продлена на %d дней.
Новая дата окончания: %s`, days, expiresAt.Format(dateLayout))
}

func FormatPremiumExtendedAdmin(handle string, days int, expiresAt time.Time) string {
	return fmt.Sprintf("✅ Premium продлён для %s на %d дней (до %s)", esc(handle), days, expiresAt.Format(dateLayout))
}

func FormatExtendUserNotFound(id string) string {
	return fmt.Sprintf("❌ Пользователь с ID %s не найден", esc(id))
}

func FormatBlockedAdmin(handle string) string {
	return fmt.Sprintf("🚫 Пользователь %s заблокирован", esc(handle))
}

func FormatUnblockedAdmin(handle string) string {
	return fmt.Sprintf("✅ Пользователь %s разблокирован", esc(handle))
}

func FormatPendingHeader(n int) string {
	return fmt.Sprintf("📝 <b>Статьи на модерации (%d):</b>\n\nНажмите на статью для модерации:", n)
}

func FormatPendingCard(a *models.Article, loc *time.Location) string {
	preview := a.Preview
	if preview == "" {
		preview = "Нет превью"
	}
	return fmt.Sprintf(`📄 <b>%s</b>

👤 Автор: %s

📝 %s...

🕐 %s`,
		esc(a.Title), esc(authorHandle(a.Author)), esc(prefix(preview, 150)),
		a.CreatedAt.In(loc).Format(dateLayout+", "+timeLayout+":05"))
}

// FormatNewArticle is the admin-channel announcement of a submission.
func FormatNewArticle(a *models.Article) string {
	author := authorHandle(a.Author)
	if a.IsAnonymous {
		author = "Аноним"
	}
	authorID := "N/A"
	if a.Author != nil && a.Author.TelegramID != 0 {
		authorID = fmt.Sprint(a.Author.TelegramID)
	}
	category := a.CategoryID
	if category == "" {
		category = "Без категории"
	}
	preview := a.Preview
	if preview == "" {
		preview = prefix(a.Body, 200)
	}
	if preview == "" {
		preview = "Нет превью"
	}
	media := ""
	if a.MediaURL != "" {
		media = "🎬 <b>Медиа:</b> " + esc(a.MediaURL)
	}

	return fmt.Sprintf(`🆕 <b>Новая статья на модерации</b>

📝 <b>Заголовок:</b> %s

👤 <b>Автор:</b> %s
🆔 <b>Telegram ID:</b> %s

📂 <b>Категория:</b> %s

📄 <b>Превью:</b>
%s...

%s

⏳ <b>Статус:</b> Ожидает модерации`,
		esc(a.Title), esc(author), authorID, esc(category), esc(preview), media)
}

func FormatArticleList(articles []models.Article, total, page, totalPages int, query string, loc *time.Location) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📰 <b>Опубликованные статьи</b> (%d)", total)
	if query != "" {
		fmt.Fprintf(&b, "\n🔍 Поиск: \"%s\"", esc(query))
	}
	fmt.Fprintf(&b, "\n📄 Страница %d/%d\n\n", page+1, max(totalPages, 1))

	if len(articles) == 0 {
		if query != "" {
			b.WriteString("<i>Статьи не найдены</i>")
		} else {
			b.WriteString("<i>Нет опубликованных статей</i>")
		}
	}
	for i := range articles {
		a := &articles[i]
		created := a.CreatedAt.In(loc)
		fmt.Fprintf(&b, "📄 <b>%s</b>\n", esc(cut(a.Title, 40)))
		fmt.Fprintf(&b, "   👤 %s | 📅 %s %s\n\n", esc(authorHandle(a.Author)), created.Format(dateLayout), created.Format(timeLayout))
	}

	b.WriteString("\n🔍 Поиск: <code>/search_st запрос</code>")
	return b.String()
}

func statusLabel(s models.ArticleStatus) string {
	if s == models.StatusApproved {
		return "✅ Опубликована"
	}
	return string(s)
}

func FormatArticle(a *models.Article, loc *time.Location) string {
	preview := a.Preview
	if preview == "" {
		preview = prefix(a.Body, 300)
	}
	if preview == "" {
		preview = "Нет превью"
	}
	created := a.CreatedAt.In(loc)

	return fmt.Sprintf(`📄 <b>%s</b>

👤 <b>Автор:</b> %s
📅 <b>Дата:</b> %s %s
📊 <b>Статус:</b> %s

📝 <b>Превью:</b>
%s...`,
		esc(a.Title), esc(authorHandle(a.Author)), created.Format(dateLayout), created.Format(timeLayout),
		statusLabel(a.Status), esc(preview))
}

func FormatArticleDeletedUser(title string) string {
	return fmt.Sprintf(`ℹ️ <b>Уведомление</b>

Ваша статья "%s" была удалена администратором.`, esc(title))
}

func FormatArticleDeletedAdmin(title string) string {
	return fmt.Sprintf(`🗑 Статья "%s" удалена`, esc(title))
}

func FormatApprovedUser(title string) string {
	return fmt.Sprintf(`✅ <b>Ваша статья одобрена!</b>

📝 "%s"

Статья опубликована и доступна для всех пользователей в приложении BoysHub.`, esc(title))
}

func FormatApprovedAdmin(title string) string {
	return fmt.Sprintf(`✅ Статья "%s" одобрена и опубликована`, esc(title))
}

func FormatRejectedUser(title, reason string) string {
	return fmt.Sprintf(`❌ <b>Ваша статья отклонена</b>

📝 "%s"

<b>Причина:</b> %s

Вы можете исправить статью и отправить на модерацию повторно.`, esc(title), esc(reason))
}

func FormatRejectedAdmin(title, reason string) string {
	return fmt.Sprintf("❌ Статья \"%s\" отклонена\n\n<b>Причина:</b> %s", esc(title), esc(reason))
}

func FormatBroadcastStart(n int) string {
	return fmt.Sprintf("📤 Отправка сообщения %d пользователям...", n)
}

func FormatBroadcast(text string) string {
	return "📢 <b>Объявление от BoysHub</b>\n\n" + text
}

func FormatBroadcastDone(sent, failed int) string {
	return fmt.Sprintf(`✅ <b>Рассылка завершена</b>

📤 Отправлено: %d
❌ Не доставлено: %d`, sent, failed)
}

func FormatQuestion(q *models.SupportQuestion, p *models.Profile) string {
	name := "User"
	handle := fmt.Sprintf("ID:%d", q.UserTelegramID)
	if p != nil {
		if p.FirstName != "" {
			name = p.FirstName
		}
		handle = profileHandle(p)
	}
	return fmt.Sprintf(`❓ <b>Вопрос в поддержку</b>

👤 <b>От:</b> %s (%s)
🆔 <b>Telegram ID:</b> %d

📝 <b>Вопрос:</b>
%s`, esc(name), esc(handle), q.UserTelegramID, esc(q.Question))
}

func FormatAnswerPrompt(userID int64) string {
	return fmt.Sprintf("📝 <b>Напишите ответ пользователю</b> (ID: %d)\n\n<i>Следующее ваше сообщение будет отправлено как ответ.</i>", userID)
}

func FormatSupportAnswer(question, answer string) string {
	if question == "" {
		return fmt.Sprintf(`💬 <b>Ответ от поддержки BoysHub</b>

%s

<i>Если у вас есть ещё вопросы, напишите в бот.</i>`, esc(answer))
	}
	return fmt.Sprintf(`💬 <b>Ответ от поддержки BoysHub</b>

<b>Ваш вопрос:</b>
%s

<b>Ответ:</b>
%s

<i>Если у вас есть ещё вопросы, напишите в бот.</i>`, esc(question), esc(answer))
}

func FormatSupportReply(question, answer string) string {
	return fmt.Sprintf(`💬 <b>Ответ от поддержки BoysHub</b>

<b>Ваш вопрос:</b>
%s

<b>Ответ:</b>
%s

<i>Если у вас есть ещё вопросы, напишите /start и выберите поддержку.</i>`, esc(question), esc(answer))
}

func FormatAnswerSent(userID int64) string {
	return fmt.Sprintf("✅ Ответ отправлен пользователю %d", userID)
}

func FormatAnswerFailed(description string) string {
	if description == "" {
		description = "ошибка"
	}
	return "❌ Не удалось отправить ответ: " + esc(description)
}

func FormatCancelled(supportAnswer, rejection bool) string {
	var parts []string
	if supportAnswer {
		parts = append(parts, "ответ в поддержку")
	}
	if rejection {
		parts = append(parts, "отклонение статьи")
	}
	return "🚫 Отменено: " + strings.Join(parts, ", ")
}
