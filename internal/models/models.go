package models

import "time"

type Profile struct {
	ID               string     `json:"id"`
	TelegramID       int64      `json:"telegram_id"`
	Username         string     `json:"username"`
	FirstName        string     `json:"first_name"`
	LastName         string     `json:"last_name"`
	AvatarURL        string     `json:"avatar_url"`
	IsPremium        bool       `json:"is_premium"`
	PremiumExpiresAt *time.Time `json:"premium_expires_at"`
	IsBlocked        bool       `json:"is_blocked"`
	BlockedAt        *time.Time `json:"blocked_at"`
	Reputation       int        `json:"reputation"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// Handle is the display handle used across admin messages: @username when
// set, otherwise the given fallback.
func (p *Profile) Handle(fallback string) string {
	if p.Username != "" {
		return "@" + p.Username
	}
	return fallback
}

type ArticleStatus string

const (
	StatusPending  ArticleStatus = "pending"
	StatusApproved ArticleStatus = "approved"
	StatusRejected ArticleStatus = "rejected"
)

// Author is the subset of the author profile joined onto an article.
type Author struct {
	ProfileID  string `json:"profile_id"`
	TelegramID int64  `json:"telegram_id"`
	Username   string `json:"username"`
	FirstName  string `json:"first_name"`
}

type Article struct {
	ID              string        `json:"id"`
	AuthorID        *string       `json:"author_id"`
	Author          *Author       `json:"author,omitempty"`
	Title           string        `json:"title"`
	Preview         string        `json:"preview"`
	Body            string        `json:"body"`
	CategoryID      string        `json:"category_id"`
	MediaURL        string        `json:"media_url"`
	IsAnonymous     bool          `json:"is_anonymous"`
	Status          ArticleStatus `json:"status"`
	RejectionReason *string       `json:"rejection_reason"`
	LikesCount      int           `json:"likes_count"`
	FavoritesCount  int           `json:"favorites_count"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

type ArticleCounts struct {
	Total    int
	Pending  int
	Approved int
	Rejected int
}

type PendingRejection struct {
	ID              int64     `json:"id"`
	ShortID         string    `json:"short_id"`
	ArticleID       string    `json:"article_id"`
	AdminTelegramID int64     `json:"admin_telegram_id"`
	CreatedAt       time.Time `json:"created_at"`
}

type QuestionStatus string

const (
	QuestionPending  QuestionStatus = "pending"
	QuestionAnswered QuestionStatus = "answered"
)

type SupportQuestion struct {
	ID                   string         `json:"id"`
	UserTelegramID       int64          `json:"user_telegram_id"`
	UserProfileID        *string        `json:"user_profile_id"`
	Question             string         `json:"question"`
	Status               QuestionStatus `json:"status"`
	Answer               *string        `json:"answer"`
	AnsweredByTelegramID *int64         `json:"answered_by_telegram_id"`
	AnsweredAt           *time.Time     `json:"answered_at"`
	AdminMessageID       *int64         `json:"admin_message_id"`
	CreatedAt            time.Time      `json:"created_at"`
}

type ModerationAction string

const (
	ActionApproved ModerationAction = "approved"
	ActionRejected ModerationAction = "rejected"
)

type ModerationLog struct {
	ID                  int64            `json:"id"`
	ArticleID           string           `json:"article_id"`
	ModeratorTelegramID int64            `json:"moderator_telegram_id"`
	Action              ModerationAction `json:"action"`
	Reason              *string          `json:"reason"`
	CreatedAt           time.Time        `json:"created_at"`
}

type NotificationType string

const (
	NotificationLike     NotificationType = "like"
	NotificationFavorite NotificationType = "favorite"
)

type Notification struct {
	UserProfileID string           `json:"user_profile_id"`
	FromUserID    string           `json:"from_user_id"`
	ArticleID     string           `json:"article_id"`
	Type          NotificationType `json:"type"`
	Message       string           `json:"message"`
}
