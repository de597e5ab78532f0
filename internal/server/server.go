// Package server exposes the admin webhook, the Mini-App API and the health
// check over HTTP.
package server

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"hub-bot/internal/config"
	"hub-bot/pkg/logger"

	"gopkg.in/telebot.v4"
)

const secretHeader = "X-Telegram-Bot-Api-Secret-Token"

type UpdateHandler interface {
	HandleUpdate(ctx context.Context, u *telebot.Update) error
}

type Pinger interface {
	Ping(ctx context.Context) error
}

// Routes is anything that mounts extra endpoints, such as the Mini-App API.
type Routes interface {
	Register(mux *http.ServeMux)
}

type Server struct {
	http *http.Server
}

func New(cfg config.Config, updates UpdateHandler, db Pinger, routes ...Routes) *Server {
	mux := http.NewServeMux()
	mux.Handle(cfg.Server.WebhookPath, Webhook(updates, cfg.Bot.WebhookSecret, cfg.MiniApp.AllowOrigin))
	mux.Handle(cfg.Health.Endpoint, Health(db))
	for _, r := range routes {
		r.Register(mux)
	}

	return &Server{
		http: &http.Server{
			Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
			Handler:           mux,
			ReadHeaderTimeout: cfg.Server.ReadTimeout,
			ReadTimeout:       cfg.Server.ReadTimeout,
		},
	}
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	logger.Info("HTTP server starting", logger.String("addr", s.http.Addr))
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// Webhook decodes one Telegram update per request and hands it to h.
// Telegram redelivers on anything but 2xx, so handler errors and panics
// answer 500. Once dispatched, an update runs to completion even if the
// client goes away.
func Webhook(h UpdateHandler, secret, allowOrigin string) http.Handler {
	if allowOrigin == "" {
		allowOrigin = "*"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", allowOrigin)
		w.Header().Set("Access-Control-Allow-Headers", "authorization, x-client-info, apikey, content-type")

		switch r.Method {
		case http.MethodOptions:
			w.WriteHeader(http.StatusOK)
			return
		case http.MethodPost:
		default:
			w.Header().Set("Allow", "POST, OPTIONS")
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}

		if secret != "" && subtle.ConstantTimeCompare([]byte(r.Header.Get(secretHeader)), []byte(secret)) != 1 {
			logger.Warn("Webhook call with a bad secret token")
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		var u telebot.Update
		if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
			logger.Warn("Failed to decode update", logger.Err(err))
			http.Error(w, "Error", http.StatusInternalServerError)
			return
		}

		if err := dispatch(context.WithoutCancel(r.Context()), h, &u); err != nil {
			logger.Error("Admin bot error",
				logger.Err(err),
				logger.Int("update_id", u.ID),
			)
			http.Error(w, "Error", http.StatusInternalServerError)
			return
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
}

func dispatch(ctx context.Context, h UpdateHandler, u *telebot.Update) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()
	return h.HandleUpdate(ctx, u)
}

func Health(db Pinger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if db != nil {
			if err := db.Ping(ctx); err != nil {
				logger.Warn("Health check failed", logger.Err(err))
				http.Error(w, "database unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
}
