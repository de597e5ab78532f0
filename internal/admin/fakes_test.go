package admin

import (
	"context"
	"sort"
	"strings"
	"time"

	"hub-bot/internal/database"
	"hub-bot/internal/models"
	"hub-bot/internal/notify"
	"hub-bot/internal/state"

	"gopkg.in/telebot.v4"
)

const (
	testAdminID  int64 = 1001
	testChatID   int64 = 1001
	otherAdminID int64 = 1002
	strangerID   int64 = 666
)

var testNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

type fakeAccess struct {
	admins map[int64]bool
}

func (f *fakeAccess) IsAdmin(_ context.Context, id int64) bool {
	return f.admins[id]
}

// writes counts every mutating store call across the fakes.
type writes struct {
	n int
}

type fakeProfiles struct {
	w        *writes
	profiles []*models.Profile
}

func (f *fakeProfiles) byTelegramID(id int64) *models.Profile {
	for _, p := range f.profiles {
		if p.TelegramID == id {
			return p
		}
	}
	return nil
}

func (f *fakeProfiles) byID(id string) *models.Profile {
	for _, p := range f.profiles {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (f *fakeProfiles) Count(context.Context) (int, error) { return len(f.profiles), nil }

func (f *fakeProfiles) CountPremium(context.Context) (int, error) {
	n := 0
	for _, p := range f.profiles {
		if p.IsPremium {
			n++
		}
	}
	return n, nil
}

func (f *fakeProfiles) CountBlocked(context.Context) (int, error) {
	n := 0
	for _, p := range f.profiles {
		if p.IsBlocked {
			n++
		}
	}
	return n, nil
}

func (f *fakeProfiles) List(_ context.Context, offset, limit int) ([]models.Profile, error) {
	var out []models.Profile
	for i := offset; i < len(f.profiles) && len(out) < limit; i++ {
		out = append(out, *f.profiles[i])
	}
	return out, nil
}

func (f *fakeProfiles) GetByTelegramID(_ context.Context, id int64) (*models.Profile, error) {
	p := f.byTelegramID(id)
	if p == nil {
		return nil, database.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeProfiles) SearchByUsername(_ context.Context, q string) ([]models.Profile, error) {
	var out []models.Profile
	for _, p := range f.profiles {
		if strings.Contains(strings.ToLower(p.Username), strings.ToLower(q)) {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakeProfiles) ListPremium(_ context.Context, limit int) ([]models.Profile, error) {
	var out []models.Profile
	for _, p := range f.profiles {
		if p.IsPremium && len(out) < limit {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakeProfiles) SetPremium(_ context.Context, id string, expiresAt time.Time) error {
	f.w.n++
	p := f.byID(id)
	if p == nil {
		return database.ErrNotFound
	}
	p.IsPremium = true
	p.PremiumExpiresAt = &expiresAt
	return nil
}

func (f *fakeProfiles) RevokePremium(_ context.Context, id string) error {
	f.w.n++
	p := f.byID(id)
	if p == nil {
		return database.ErrNotFound
	}
	p.IsPremium = false
	p.PremiumExpiresAt = nil
	return nil
}

func (f *fakeProfiles) Block(_ context.Context, id string, at time.Time) error {
	f.w.n++
	p := f.byID(id)
	if p == nil {
		return database.ErrNotFound
	}
	p.IsBlocked = true
	p.BlockedAt = &at
	p.IsPremium = false
	p.PremiumExpiresAt = nil
	return nil
}

func (f *fakeProfiles) Unblock(_ context.Context, id string) error {
	f.w.n++
	p := f.byID(id)
	if p == nil {
		return database.ErrNotFound
	}
	p.IsBlocked = false
	p.BlockedAt = nil
	return nil
}

func (f *fakeProfiles) BroadcastRecipients(context.Context) ([]int64, error) {
	var out []int64
	for _, p := range f.profiles {
		if !p.IsBlocked {
			out = append(out, p.TelegramID)
		}
	}
	return out, nil
}

type fakeArticles struct {
	w        *writes
	articles []*models.Article
}

func (f *fakeArticles) find(id string) *models.Article {
	for _, a := range f.articles {
		if a.ID == id {
			return a
		}
	}
	return nil
}

func (f *fakeArticles) Get(_ context.Context, id string) (*models.Article, error) {
	a := f.find(id)
	if a == nil {
		return nil, database.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (f *fakeArticles) CountByStatus(context.Context) (models.ArticleCounts, error) {
	var c models.ArticleCounts
	for _, a := range f.articles {
		c.Total++
		switch a.Status {
		case models.StatusPending:
			c.Pending++
		case models.StatusApproved:
			c.Approved++
		case models.StatusRejected:
			c.Rejected++
		}
	}
	return c, nil
}

func (f *fakeArticles) ListPending(_ context.Context, limit int) ([]models.Article, error) {
	var out []models.Article
	for _, a := range f.articles {
		if a.Status == models.StatusPending && len(out) < limit {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (f *fakeArticles) ListApproved(_ context.Context, q string, offset, limit int) ([]models.Article, int, error) {
	var all []models.Article
	for _, a := range f.articles {
		if a.Status != models.StatusApproved {
			continue
		}
		if q != "" && !strings.Contains(strings.ToLower(a.Title), strings.ToLower(q)) {
			continue
		}
		all = append(all, *a)
	}
	if offset >= len(all) {
		return nil, len(all), nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], len(all), nil
}

func (f *fakeArticles) SetStatus(_ context.Context, id string, status models.ArticleStatus, reason *string) error {
	f.w.n++
	a := f.find(id)
	if a == nil {
		return database.ErrNotFound
	}
	if a.Status != models.StatusPending {
		return database.ErrAlreadyModerated
	}
	a.Status = status
	a.RejectionReason = reason
	return nil
}

func (f *fakeArticles) Delete(_ context.Context, id string) error {
	f.w.n++
	for i, a := range f.articles {
		if a.ID == id {
			f.articles = append(f.articles[:i], f.articles[i+1:]...)
			return nil
		}
	}
	return database.ErrNotFound
}

type fakeModeration struct {
	w         *writes
	nextID    int64
	pending   []models.PendingRejection
	logs      []models.ModerationLog
	latestErr error
}

func (f *fakeModeration) AddPendingRejection(_ context.Context, p *models.PendingRejection) error {
	f.w.n++
	f.nextID++
	p.ID = f.nextID
	f.pending = append(f.pending, *p)
	return nil
}

func (f *fakeModeration) LatestPendingRejection(_ context.Context, adminID int64) (*models.PendingRejection, error) {
	if f.latestErr != nil {
		return nil, f.latestErr
	}
	for i := len(f.pending) - 1; i >= 0; i-- {
		if f.pending[i].AdminTelegramID == adminID {
			p := f.pending[i]
			return &p, nil
		}
	}
	return nil, database.ErrNotFound
}

func (f *fakeModeration) DeletePendingRejections(_ context.Context, articleID string) error {
	f.w.n++
	kept := f.pending[:0]
	for _, p := range f.pending {
		if p.ArticleID != articleID {
			kept = append(kept, p)
		}
	}
	f.pending = kept
	return nil
}

func (f *fakeModeration) DeletePendingRejection(_ context.Context, id int64) error {
	f.w.n++
	for i, p := range f.pending {
		if p.ID == id {
			f.pending = append(f.pending[:i], f.pending[i+1:]...)
			return nil
		}
	}
	return database.ErrNotFound
}

func (f *fakeModeration) Log(_ context.Context, l *models.ModerationLog) error {
	f.w.n++
	f.logs = append(f.logs, *l)
	return nil
}

type fakeSupport struct {
	w         *writes
	questions []*models.SupportQuestion
}

func (f *fakeSupport) find(id string) *models.SupportQuestion {
	for _, q := range f.questions {
		if q.ID == id {
			return q
		}
	}
	return nil
}

func (f *fakeSupport) Get(_ context.Context, id string) (*models.SupportQuestion, error) {
	q := f.find(id)
	if q == nil {
		return nil, database.ErrNotFound
	}
	cp := *q
	return &cp, nil
}

func (f *fakeSupport) SetAdminMessageID(_ context.Context, id string, messageID int64) error {
	f.w.n++
	q := f.find(id)
	if q == nil {
		return database.ErrNotFound
	}
	q.AdminMessageID = &messageID
	return nil
}

// pendingNewestFirst mirrors the store ordering.
func (f *fakeSupport) pendingNewestFirst() []*models.SupportQuestion {
	var out []*models.SupportQuestion
	for _, q := range f.questions {
		if q.Status == models.QuestionPending {
			out = append(out, q)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (f *fakeSupport) ListPending(_ context.Context, limit int) ([]models.SupportQuestion, error) {
	var out []models.SupportQuestion
	for _, q := range f.pendingNewestFirst() {
		if len(out) < limit {
			out = append(out, *q)
		}
	}
	return out, nil
}

func (f *fakeSupport) FindPendingByPrefix(_ context.Context, prefix string, window int) (*models.SupportQuestion, error) {
	pending := f.pendingNewestFirst()
	if window > 0 && len(pending) > window {
		pending = pending[:window]
	}
	for _, q := range pending {
		if strings.HasPrefix(q.ID, prefix) {
			cp := *q
			return &cp, nil
		}
	}
	return nil, database.ErrNotFound
}

func (f *fakeSupport) FindPendingByAdminMessage(_ context.Context, messageID int64) (*models.SupportQuestion, error) {
	for _, q := range f.pendingNewestFirst() {
		if q.AdminMessageID != nil && *q.AdminMessageID == messageID {
			cp := *q
			return &cp, nil
		}
	}
	return nil, database.ErrNotFound
}

func (f *fakeSupport) MarkAnswered(_ context.Context, id, answer string, by int64, at time.Time) error {
	f.w.n++
	q := f.find(id)
	if q == nil {
		return database.ErrNotFound
	}
	q.Status = models.QuestionAnswered
	q.Answer = &answer
	q.AnsweredByTelegramID = &by
	q.AnsweredAt = &at
	return nil
}

type fakeShortIDs struct {
	w       *writes
	byShort map[string]string
}

func (f *fakeShortIDs) GetOrCreate(_ context.Context, articleID string) string {
	for sid, id := range f.byShort {
		if id == articleID {
			return sid
		}
	}
	f.w.n++
	sid := prefix(articleID, 8)
	f.byShort[sid] = articleID
	return sid
}

func (f *fakeShortIDs) Resolve(_ context.Context, sid string) (string, bool) {
	id, ok := f.byShort[sid]
	return id, ok
}

type memStore struct {
	w      *writes
	data   map[string]string
	getErr error
}

func (m *memStore) Set(_ context.Context, key, value string, _ time.Duration) error {
	m.w.n++
	m.data[key] = value
	return nil
}

func (m *memStore) Get(_ context.Context, key string) (string, bool, error) {
	if m.getErr != nil {
		return "", false, m.getErr
	}
	v, ok := m.data[key]
	return v, ok, nil
}

func (m *memStore) Delete(_ context.Context, key string) error {
	m.w.n++
	delete(m.data, key)
	return nil
}

type sentMessage struct {
	chatID int64
	text   string
	kb     *telebot.ReplyMarkup
}

type fakeRelay struct {
	admin    []sentMessage
	edits    []sentMessage
	answers  []string
	cleared  int
	deleted  int
	user     []sentMessage
	userDown map[int64]string
	userErr  map[int64]error
	nextMsg  int
	// ctxErrs records every call made on an already cancelled context.
	ctxErrs int
}

func (f *fakeRelay) checkCtx(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		f.ctxErrs++
		return err
	}
	return nil
}

func (f *fakeRelay) SendAdmin(ctx context.Context, chatID int64, text string, kb *telebot.ReplyMarkup) (notify.Delivery, error) {
	if err := f.checkCtx(ctx); err != nil {
		return notify.Delivery{}, err
	}
	f.nextMsg++
	f.admin = append(f.admin, sentMessage{chatID: chatID, text: text, kb: kb})
	return notify.Delivery{OK: true, MessageID: 500 + f.nextMsg}, nil
}

func (f *fakeRelay) EditAdmin(_ context.Context, chatID int64, messageID int, text string, kb *telebot.ReplyMarkup) (notify.Delivery, error) {
	f.edits = append(f.edits, sentMessage{chatID: chatID, text: text, kb: kb})
	return notify.Delivery{OK: true, MessageID: messageID}, nil
}

func (f *fakeRelay) ClearKeyboard(context.Context, int64, int) (notify.Delivery, error) {
	f.cleared++
	return notify.Delivery{OK: true}, nil
}

func (f *fakeRelay) DeleteAdmin(context.Context, int64, int) (notify.Delivery, error) {
	f.deleted++
	return notify.Delivery{OK: true}, nil
}

func (f *fakeRelay) AnswerCallback(_ context.Context, _ string, text string) (notify.Delivery, error) {
	f.answers = append(f.answers, text)
	return notify.Delivery{OK: true}, nil
}

func (f *fakeRelay) SendUser(ctx context.Context, chatID int64, text string) (notify.Delivery, error) {
	if err := f.checkCtx(ctx); err != nil {
		return notify.Delivery{}, err
	}
	if err := f.userErr[chatID]; err != nil {
		return notify.Delivery{}, err
	}
	if desc, down := f.userDown[chatID]; down {
		return notify.Delivery{Description: desc}, nil
	}
	f.user = append(f.user, sentMessage{chatID: chatID, text: text})
	return notify.Delivery{OK: true}, nil
}

func (f *fakeRelay) lastAdmin() string {
	if len(f.admin) == 0 {
		return ""
	}
	return f.admin[len(f.admin)-1].text
}

type fixture struct {
	h          *Handler
	w          *writes
	profiles   *fakeProfiles
	articles   *fakeArticles
	moderation *fakeModeration
	support    *fakeSupport
	shortIDs   *fakeShortIDs
	store      *memStore
	relay      *fakeRelay
}

func newFixture() *fixture {
	w := &writes{}
	f := &fixture{
		w:          w,
		profiles:   &fakeProfiles{w: w},
		articles:   &fakeArticles{w: w},
		moderation: &fakeModeration{w: w},
		support:    &fakeSupport{w: w},
		shortIDs:   &fakeShortIDs{w: w, byShort: map[string]string{}},
		store:      &memStore{w: w, data: map[string]string{}},
		relay:      &fakeRelay{userDown: map[int64]string{}, userErr: map[int64]error{}},
	}
	f.h = New(Deps{
		Access:        &fakeAccess{admins: map[int64]bool{testAdminID: true, otherAdminID: true}},
		Profiles:      f.profiles,
		Articles:      f.articles,
		Moderation:    f.moderation,
		Support:       f.support,
		ShortIDs:      f.shortIDs,
		Conversations: state.NewConversations(f.store, time.Hour),
		Relay:         f.relay,
		AdminChatID:   testChatID,
		Now:           func() time.Time { return testNow },
	})
	return f
}

func (f *fixture) message(from int64, text string) error {
	return f.h.HandleUpdate(context.Background(), &telebot.Update{Message: &telebot.Message{
		ID:     1,
		Sender: &telebot.User{ID: from},
		Chat:   &telebot.Chat{ID: from},
		Text:   text,
	}})
}

func (f *fixture) reply(from int64, text string, replyTo int) error {
	return f.h.HandleUpdate(context.Background(), &telebot.Update{Message: &telebot.Message{
		ID:      2,
		Sender:  &telebot.User{ID: from},
		Chat:    &telebot.Chat{ID: from},
		Text:    text,
		ReplyTo: &telebot.Message{ID: replyTo},
	}})
}

func (f *fixture) press(from int64, data string) error {
	return f.h.HandleUpdate(context.Background(), &telebot.Update{Callback: &telebot.Callback{
		ID:      "cb",
		Sender:  &telebot.User{ID: from},
		Message: &telebot.Message{ID: 42, Chat: &telebot.Chat{ID: from}},
		Data:    data,
	}})
}

func (f *fixture) addProfile(p models.Profile) *models.Profile {
	cp := p
	f.profiles.profiles = append(f.profiles.profiles, &cp)
	return &cp
}

func (f *fixture) addArticle(a models.Article, shortID string) *models.Article {
	cp := a
	f.articles.articles = append(f.articles.articles, &cp)
	if shortID != "" {
		f.shortIDs.byShort[shortID] = a.ID
	}
	return &cp
}
