// Package queue carries Mini-App events to the admin bot over NATS
// JetStream.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"hub-bot/internal/config"
	"hub-bot/pkg/logger"

	"github.com/nats-io/nats.go"
)

const (
	ModerationSubject = "hub.moderation.requested"
	SupportSubject    = "hub.support.questions"
	ConsumerGroup     = "hub-bot"

	fetchBatch = 10
	fetchWait  = 500 * time.Millisecond
)

// ModerationRequest asks the admins to review a submitted article.
type ModerationRequest struct {
	ArticleID string `json:"article_id"`
}

// SupportQuestionEvent announces a stored support question.
type SupportQuestionEvent struct {
	QuestionID string `json:"question_id"`
}

type NATS struct {
	conn      *nats.Conn
	jetstream nats.JetStreamContext
	cfg       config.NATSConfig
}

func New(cfg config.NATSConfig) (*NATS, error) {
	conn, err := nats.Connect(cfg.URL, nats.Name(ConsumerGroup))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := conn.JetStream()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to get JetStream: %w", err)
	}

	n := &NATS{
		conn:      conn,
		jetstream: js,
		cfg:       cfg,
	}

	if err := n.ensureStream(); err != nil {
		conn.Close()
		return nil, err
	}

	return n, nil
}

// ensureStream creates the stream holding every hub subject unless it
// already exists.
func (n *NATS) ensureStream() error {
	_, err := n.jetstream.StreamInfo(n.cfg.StreamName)
	if err == nil {
		return nil
	}
	if !errors.Is(err, nats.ErrStreamNotFound) {
		return fmt.Errorf("failed to look up stream %s: %w", n.cfg.StreamName, err)
	}

	_, err = n.jetstream.AddStream(&nats.StreamConfig{
		Name:     n.cfg.StreamName,
		Subjects: []string{"hub.>"},
		Storage:  nats.FileStorage,
		MaxAge:   7 * 24 * time.Hour,
	})
	if err != nil {
		return fmt.Errorf("failed to create stream %s: %w", n.cfg.StreamName, err)
	}
	logger.Info("Created JetStream stream", logger.String("stream", n.cfg.StreamName))
	return nil
}

func (n *NATS) Close() {
	if n.conn != nil {
		n.conn.Close()
	}
}

func (n *NATS) publish(ctx context.Context, subject string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", subject, err)
	}

	if _, err := n.jetstream.Publish(subject, data, nats.Context(ctx)); err != nil {
		return fmt.Errorf("failed to publish %s event: %w", subject, err)
	}

	logger.Debug("Event published to queue", logger.String("subject", subject))
	return nil
}

func (n *NATS) PublishModerationRequest(ctx context.Context, articleID string) error {
	return n.publish(ctx, ModerationSubject, &ModerationRequest{ArticleID: articleID})
}

func (n *NATS) PublishSupportQuestion(ctx context.Context, questionID string) error {
	return n.publish(ctx, SupportSubject, &SupportQuestionEvent{QuestionID: questionID})
}

func (n *NATS) ConsumeModerationRequests(ctx context.Context, handler func(context.Context, *ModerationRequest) error) error {
	return consume(ctx, n, ModerationSubject, ConsumerGroup+"-moderation", handler)
}

func (n *NATS) ConsumeSupportQuestions(ctx context.Context, handler func(context.Context, *SupportQuestionEvent) error) error {
	return consume(ctx, n, SupportSubject, ConsumerGroup+"-support", handler)
}

func consume[T any](ctx context.Context, n *NATS, subject, durable string, handler func(context.Context, *T) error) error {
	sub, err := n.jetstream.PullSubscribe(
		subject,
		durable,
		nats.BindStream(n.cfg.StreamName),
	)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", subject, err)
	}
	defer sub.Unsubscribe()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			msgs, err := sub.Fetch(fetchBatch, nats.MaxWait(fetchWait))
			if err != nil {
				if errors.Is(err, nats.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
					continue
				}
				if ctx.Err() != nil {
					return ctx.Err()
				}
				return fmt.Errorf("failed to fetch messages: %w", err)
			}

			for _, msg := range msgs {
				deliver(ctx, subject, msg.Data, msg, handler)
			}
		}
	}
}

// acker is the acknowledgement side of a JetStream message.
type acker interface {
	Ack(opts ...nats.AckOpt) error
	Nak(opts ...nats.AckOpt) error
}

// deliver decodes one message and hands it to handler. Undecodable payloads
// are acked since redelivery cannot fix them; handler failures are nacked.
func deliver[T any](ctx context.Context, subject string, data []byte, msg acker, handler func(context.Context, *T) error) {
	var event T
	if err := json.Unmarshal(data, &event); err != nil {
		logger.Error("Failed to unmarshal queue message",
			logger.Err(err),
			logger.String("subject", subject),
		)
		if err := msg.Ack(); err != nil {
			logger.Warn("Failed to ack message", logger.Err(err))
		}
		return
	}

	if err := handler(ctx, &event); err != nil {
		logger.Error("Failed to process queue message",
			logger.Err(err),
			logger.String("subject", subject),
		)
		if err := msg.Nak(); err != nil {
			logger.Warn("Failed to nak message", logger.Err(err))
		}
		return
	}

	if err := msg.Ack(); err != nil {
		logger.Warn("Failed to ack message", logger.Err(err))
	}
}
