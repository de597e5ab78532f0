// Package miniapp serves the JSON API the Telegram Mini-App calls. Every
// request carries the signed init data of the user who opened the app.
package miniapp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"hub-bot/internal/database"
	"hub-bot/internal/initdata"
	"hub-bot/internal/models"
	"hub-bot/pkg/logger"

	"github.com/google/uuid"
)

const (
	maxBodyBytes      = 64 << 10
	maxQuestionLength = 4000
)

const (
	errUnauthorized    = "Неверные данные авторизации"
	errProfileNotFound = "Профиль не найден"
	errBlocked         = "Аккаунт заблокирован"
	errBadArticleID    = "Неверный ID статьи"
	errArticleNotFound = "Статья не найдена"
	errForbidden       = "Нет доступа"
	errEmptyQuestion   = "Вопрос не может быть пустым"
	errQuestionTooLong = "Слишком длинный вопрос"
	errBadRequest      = "Неверный запрос"
	errServer          = "Ошибка сервера"
)

type Profiles interface {
	Upsert(ctx context.Context, p *models.Profile) error
	GetByTelegramID(ctx context.Context, telegramID int64) (*models.Profile, error)
}

type Articles interface {
	Get(ctx context.Context, id string) (*models.Article, error)
}

type Reactions interface {
	ToggleLike(ctx context.Context, articleID, profileID string) (bool, int, error)
	ToggleFavorite(ctx context.Context, articleID, profileID string) (bool, int, error)
}

type Questions interface {
	Create(ctx context.Context, q *models.SupportQuestion) error
}

// Publisher hands Mini-App events to the admin bot.
type Publisher interface {
	PublishModerationRequest(ctx context.Context, articleID string) error
	PublishSupportQuestion(ctx context.Context, questionID string) error
}

type Deps struct {
	Profiles  Profiles
	Articles  Articles
	Reactions Reactions
	Questions Questions
	Publisher Publisher

	// BotToken is the token of the bot that launches the Mini-App.
	BotToken    string
	MaxAge      time.Duration
	AllowOrigin string
}

type API struct {
	profiles  Profiles
	articles  Articles
	reactions Reactions
	questions Questions
	publisher Publisher

	botToken    string
	maxAge      time.Duration
	allowOrigin string
}

func New(d Deps) *API {
	origin := d.AllowOrigin
	if origin == "" {
		origin = "*"
	}
	return &API{
		profiles:    d.Profiles,
		articles:    d.Articles,
		reactions:   d.Reactions,
		questions:   d.Questions,
		publisher:   d.Publisher,
		botToken:    d.BotToken,
		maxAge:      d.MaxAge,
		allowOrigin: origin,
	}
}

// Register mounts the API endpoints on mux.
func (a *API) Register(mux *http.ServeMux) {
	mux.Handle("/api/sync-profile", a.endpoint(a.syncProfile))
	mux.Handle("/api/toggle-like", a.endpoint(a.toggleLike))
	mux.Handle("/api/toggle-favorite", a.endpoint(a.toggleFavorite))
	mux.Handle("/api/send-moderation", a.endpoint(a.sendModeration))
	mux.Handle("/api/ask-support", a.endpoint(a.askSupport))
}

// request is the union of every endpoint's body.
type request struct {
	InitData  string `json:"initData"`
	ArticleID string `json:"articleId"`
	Question  string `json:"question"`
}

// apiError is a failure with the status and message the client sees.
type apiError struct {
	status  int
	message string
	err     error
}

func (e *apiError) Error() string {
	if e.err != nil {
		return e.message + ": " + e.err.Error()
	}
	return e.message
}

func (e *apiError) Unwrap() error { return e.err }

func fail(status int, message string, err error) *apiError {
	return &apiError{status: status, message: message, err: err}
}

type caller struct {
	user *initdata.WebAppUser
	req  request
}

type handlerFunc func(ctx context.Context, c *caller) (any, error)

// endpoint wraps h with CORS, method filtering, body decoding and init data
// verification.
func (a *API) endpoint(h handlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a.cors(w)

		switch r.Method {
		case http.MethodOptions:
			w.WriteHeader(http.StatusOK)
			return
		case http.MethodPost:
		default:
			w.Header().Set("Allow", "POST, OPTIONS")
			writeError(w, http.StatusMethodNotAllowed, errBadRequest)
			return
		}

		var req request
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, errBadRequest)
			return
		}

		user, err := initdata.Validate(req.InitData, a.botToken, a.maxAge)
		if err != nil {
			logger.Warn("Rejected Mini-App request",
				logger.String("path", r.URL.Path),
				logger.Err(err),
			)
			writeError(w, http.StatusUnauthorized, errUnauthorized)
			return
		}

		resp, err := h(r.Context(), &caller{user: user, req: req})
		if err != nil {
			var apiErr *apiError
			if !errors.As(err, &apiErr) {
				apiErr = fail(http.StatusInternalServerError, errServer, err)
			}
			if apiErr.status >= http.StatusInternalServerError {
				logger.Error("Mini-App request failed",
					logger.String("path", r.URL.Path),
					logger.Int64("user_id", user.ID),
					logger.Err(err),
				)
			}
			writeError(w, apiErr.status, apiErr.message)
			return
		}

		writeJSON(w, http.StatusOK, resp)
	})
}

func (a *API) cors(w http.ResponseWriter) {
	h := w.Header()
	h.Set("Access-Control-Allow-Origin", a.allowOrigin)
	h.Set("Access-Control-Allow-Headers", "authorization, x-client-info, apikey, content-type")
	h.Set("Access-Control-Allow-Methods", "POST, OPTIONS")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("Failed to write response", logger.Err(err))
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// profile loads the caller's profile. Blocked users are refused.
func (a *API) profile(ctx context.Context, c *caller) (*models.Profile, error) {
	p, err := a.profiles.GetByTelegramID(ctx, c.user.ID)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, fail(http.StatusNotFound, errProfileNotFound, nil)
		}
		return nil, err
	}
	if p.IsBlocked {
		return nil, fail(http.StatusForbidden, errBlocked, nil)
	}
	return p, nil
}

// articleID returns the request's article id in canonical form.
func articleID(c *caller) (string, error) {
	id, err := uuid.Parse(strings.TrimSpace(c.req.ArticleID))
	if err != nil {
		return "", fail(http.StatusBadRequest, errBadArticleID, nil)
	}
	return id.String(), nil
}

type profileResponse struct {
	Success bool            `json:"success"`
	Profile *models.Profile `json:"profile"`
}

func (a *API) syncProfile(ctx context.Context, c *caller) (any, error) {
	p := &models.Profile{
		TelegramID: c.user.ID,
		Username:   c.user.Username,
		FirstName:  c.user.FirstName,
		LastName:   c.user.LastName,
		AvatarURL:  c.user.PhotoURL,
	}
	if err := a.profiles.Upsert(ctx, p); err != nil {
		return nil, err
	}
	if p.IsBlocked {
		return nil, fail(http.StatusForbidden, errBlocked, nil)
	}
	return &profileResponse{Success: true, Profile: p}, nil
}

type likeResponse struct {
	Success    bool `json:"success"`
	IsLiked    bool `json:"isLiked"`
	LikesCount int  `json:"likesCount"`
}

func (a *API) toggleLike(ctx context.Context, c *caller) (any, error) {
	id, err := articleID(c)
	if err != nil {
		return nil, err
	}
	p, err := a.profile(ctx, c)
	if err != nil {
		return nil, err
	}

	liked, count, err := a.reactions.ToggleLike(ctx, id, p.ID)
	if err != nil {
		return nil, reactionError(err)
	}

	logger.Debug("Like toggled",
		logger.String("article_id", id),
		logger.Int64("user_id", c.user.ID),
		logger.Bool("liked", liked),
	)
	return &likeResponse{Success: true, IsLiked: liked, LikesCount: count}, nil
}

type favoriteResponse struct {
	Success        bool `json:"success"`
	IsFavorited    bool `json:"isFavorited"`
	FavoritesCount int  `json:"favoritesCount"`
}

func (a *API) toggleFavorite(ctx context.Context, c *caller) (any, error) {
	id, err := articleID(c)
	if err != nil {
		return nil, err
	}
	p, err := a.profile(ctx, c)
	if err != nil {
		return nil, err
	}

	favorited, count, err := a.reactions.ToggleFavorite(ctx, id, p.ID)
	if err != nil {
		return nil, reactionError(err)
	}

	logger.Debug("Favorite toggled",
		logger.String("article_id", id),
		logger.Int64("user_id", c.user.ID),
		logger.Bool("favorited", favorited),
	)
	return &favoriteResponse{Success: true, IsFavorited: favorited, FavoritesCount: count}, nil
}

func reactionError(err error) error {
	if errors.Is(err, database.ErrNotFound) {
		return fail(http.StatusNotFound, errArticleNotFound, err)
	}
	return err
}

type successResponse struct {
	Success bool `json:"success"`
}

// sendModeration queues the caller's own pending article for review.
func (a *API) sendModeration(ctx context.Context, c *caller) (any, error) {
	id, err := articleID(c)
	if err != nil {
		return nil, err
	}
	p, err := a.profile(ctx, c)
	if err != nil {
		return nil, err
	}

	article, err := a.articles.Get(ctx, id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, fail(http.StatusNotFound, errArticleNotFound, nil)
		}
		return nil, err
	}
	if article.AuthorID == nil || *article.AuthorID != p.ID || article.Status != models.StatusPending {
		return nil, fail(http.StatusForbidden, errForbidden, nil)
	}

	if err := a.publisher.PublishModerationRequest(ctx, article.ID); err != nil {
		return nil, err
	}

	logger.Info("Article sent to moderation",
		logger.String("article_id", article.ID),
		logger.Int64("user_id", c.user.ID),
	)
	return &successResponse{Success: true}, nil
}

type questionResponse struct {
	Success    bool   `json:"success"`
	QuestionID string `json:"questionId"`
}

// askSupport stores a question and announces it to the admins. Users that
// never synced a profile may still ask.
func (a *API) askSupport(ctx context.Context, c *caller) (any, error) {
	text := strings.TrimSpace(c.req.Question)
	if text == "" {
		return nil, fail(http.StatusBadRequest, errEmptyQuestion, nil)
	}
	if utf8.RuneCountInString(text) > maxQuestionLength {
		return nil, fail(http.StatusBadRequest, errQuestionTooLong, nil)
	}

	q := &models.SupportQuestion{
		UserTelegramID: c.user.ID,
		Question:       text,
	}

	p, err := a.profile(ctx, c)
	var apiErr *apiError
	switch {
	case err == nil:
		q.UserProfileID = &p.ID
	case errors.As(err, &apiErr) && apiErr.status == http.StatusNotFound:
	default:
		return nil, err
	}

	if err := a.questions.Create(ctx, q); err != nil {
		return nil, err
	}
	if err := a.publisher.PublishSupportQuestion(ctx, q.ID); err != nil {
		return nil, err
	}

	logger.Info("Support question received",
		logger.String("question_id", q.ID),
		logger.Int64("user_id", c.user.ID),
	)
	return &questionResponse{Success: true, QuestionID: q.ID}, nil
}
