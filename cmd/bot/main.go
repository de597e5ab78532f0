package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hub-bot/internal/access"
	"hub-bot/internal/admin"
	"hub-bot/internal/config"
	"hub-bot/internal/database"
	"hub-bot/internal/miniapp"
	"hub-bot/internal/notify"
	"hub-bot/internal/queue"
	"hub-bot/internal/server"
	"hub-bot/internal/shortid"
	"hub-bot/internal/state"
	"hub-bot/pkg/logger"

	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Failed to load .env: %v\n", err)
	}

	cfg, err := config.Load()
	if err != nil {
		switch {
		case errors.Is(err, config.ErrEmptyAdminBotToken):
			fmt.Fprintln(os.Stderr, "Error: BOT_ADMIN_TOKEN environment variable is required")
		case errors.Is(err, config.ErrEmptyUserBotToken):
			fmt.Fprintln(os.Stderr, "Error: BOT_USER_TOKEN environment variable is required")
		case errors.Is(err, config.ErrEmptyAdminChatID):
			fmt.Fprintln(os.Stderr, "Error: BOT_ADMIN_CHAT_ID environment variable is required")
		case errors.Is(err, config.ErrEmptyDBPassword):
			fmt.Fprintln(os.Stderr, "Error: DB_PASSWORD environment variable is required")
		default:
			fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		}
		os.Exit(1)
	}

	logger.Init(logger.Options{
		Level:       cfg.App.LogLevel,
		Format:      cfg.App.LogFormat,
		App:         cfg.App.Name,
		Environment: cfg.App.Environment,
	})
	logger.Info("Starting hub-bot")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.New(ctx, cfg.Database)
	if err != nil {
		var dbErr *database.ConnectionError
		if errors.As(err, &dbErr) {
			logger.Error("Failed to connect to database",
				logger.Err(dbErr),
				logger.String("host", cfg.Database.Host),
				logger.Int("port", cfg.Database.Port),
			)
		} else {
			logger.Error("Failed to connect to database",
				logger.Err(err),
			)
		}
		os.Exit(1)
	}
	defer db.Close()
	logger.Info("Connected to database")

	profileRepo := database.NewProfileRepository(db)
	articleRepo := database.NewArticleRepository(db)
	moderationRepo := database.NewModerationRepository(db)
	supportRepo := database.NewSupportRepository(db)
	reactionRepo := database.NewReactionRepository(db)
	adminRepo := database.NewAdminRepository(db)

	store, closeStore, err := openStateStore(ctx, cfg, db)
	if err != nil {
		logger.Error("Failed to open state store", logger.Err(err), logger.String("backend", cfg.State.Backend))
		os.Exit(1)
	}
	defer closeStore()

	if n, err := adminRepo.CountActive(ctx); err == nil {
		logger.Info("Admin access configured",
			logger.Int("configured", len(cfg.Bot.Admins())),
			logger.Int("table", n),
		)
	}

	relay, err := notify.New(cfg.Bot)
	if err != nil {
		logger.Error("Failed to create Telegram clients", logger.Err(err))
		os.Exit(1)
	}

	handler := admin.New(admin.Deps{
		Access:        access.New(cfg.Bot.Admins(), adminRepo),
		Profiles:      profileRepo,
		Articles:      articleRepo,
		Moderation:    moderationRepo,
		Support:       supportRepo,
		ShortIDs:      shortid.New(database.NewShortIDRepository(db)),
		Conversations: state.NewConversations(store, cfg.State.TTL),
		Relay:         relay,
		AdminChatID:   cfg.Bot.AdminChatID,
	})

	var publisher miniapp.Publisher = directPublisher{handler: handler}
	if cfg.NATS.Enabled {
		q, err := queue.New(cfg.NATS)
		if err != nil {
			logger.Error("Failed to connect to NATS", logger.Err(err))
			os.Exit(1)
		}
		defer q.Close()
		logger.Info("Connected to NATS", logger.String("url", cfg.NATS.URL))

		publisher = q
		startConsumers(ctx, q, handler)
	} else {
		logger.Info("NATS disabled, Mini-App events are delivered inline")
	}

	api := miniapp.New(miniapp.Deps{
		Profiles:    profileRepo,
		Articles:    articleRepo,
		Reactions:   reactionRepo,
		Questions:   supportRepo,
		Publisher:   publisher,
		BotToken:    cfg.Bot.UserToken,
		MaxAge:      cfg.MiniApp.InitDataMaxAge,
		AllowOrigin: cfg.MiniApp.AllowOrigin,
	})

	srv := server.New(*cfg, handler, db, api)
	go func() {
		if err := srv.Start(); err != nil {
			logger.Error("HTTP server error", logger.Err(err))
			cancel()
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case <-ctx.Done():
	}

	logger.Info("Shutting down...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error shutting down HTTP server", logger.Err(err))
	}

	logger.Info("Bot stopped gracefully")
}

// openStateStore picks the conversation store backend. The returned func
// releases it.
func openStateStore(ctx context.Context, cfg *config.Config, db *database.DB) (state.Store, func(), error) {
	if cfg.State.Backend != "redis" {
		return database.NewSettingsRepository(db), func() {}, nil
	}

	rs, err := state.NewRedisStore(cfg.Redis.URL)
	if err != nil {
		return nil, nil, err
	}
	if err := rs.Ping(ctx); err != nil {
		rs.Close()
		return nil, nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	logger.Info("Conversation state stored in Redis")
	return rs, func() { rs.Close() }, nil
}

func startConsumers(ctx context.Context, q *queue.NATS, handler *admin.Handler) {
	go func() {
		logger.Info("Starting moderation consumer...")
		err := q.ConsumeModerationRequests(ctx, func(ctx context.Context, r *queue.ModerationRequest) error {
			return handler.NotifyNewArticle(ctx, r.ArticleID)
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Moderation consumer error", logger.Err(err))
		}
	}()

	go func() {
		logger.Info("Starting support consumer...")
		err := q.ConsumeSupportQuestions(ctx, func(ctx context.Context, e *queue.SupportQuestionEvent) error {
			return handler.NotifyNewQuestion(ctx, e.QuestionID)
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Support consumer error", logger.Err(err))
		}
	}()
}

// directPublisher delivers Mini-App events within the request when NATS is
// off.
type directPublisher struct {
	handler *admin.Handler
}

func (p directPublisher) PublishModerationRequest(ctx context.Context, articleID string) error {
	return p.handler.NotifyNewArticle(ctx, articleID)
}

func (p directPublisher) PublishSupportQuestion(ctx context.Context, questionID string) error {
	return p.handler.NotifyNewQuestion(ctx, questionID)
}
