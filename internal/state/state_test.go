package state

import (
	"context"
	"errors"
	"testing"
	"time"
)

type mapStore struct {
	values map[string]string
	ttls   map[string]time.Duration
	err    error
}

func newMapStore() *mapStore {
	return &mapStore{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *mapStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	if m.err != nil {
		return m.err
	}
	m.values[key] = value
	m.ttls[key] = ttl
	return nil
}

func (m *mapStore) Get(_ context.Context, key string) (string, bool, error) {
	if m.err != nil {
		return "", false, m.err
	}
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *mapStore) Delete(_ context.Context, key string) error {
	delete(m.values, key)
	return nil
}

func TestSupportAnswerKey(t *testing.T) {
	if got := SupportAnswerKey(777); got != "pending_support_answer_777" {
		t.Errorf("SupportAnswerKey(777) = %v", got)
	}
}

func TestSupportAnswerRoundTrip(t *testing.T) {
	store := newMapStore()
	conv := NewConversations(store, time.Hour)
	ctx := context.Background()

	if err := conv.BeginSupportAnswer(ctx, 1, 555, "1a2b3c4d", 99); err != nil {
		t.Fatalf("BeginSupportAnswer() error = %v", err)
	}
	if store.ttls[SupportAnswerKey(1)] != time.Hour {
		t.Errorf("ttl = %v, want 1h", store.ttls[SupportAnswerKey(1)])
	}

	got, err := conv.SupportAnswer(ctx, 1)
	if err != nil {
		t.Fatalf("SupportAnswer() error = %v", err)
	}
	want := Conversation{Kind: AwaitingSupportAnswer, UserTelegramID: 555, QuestionShortID: "1a2b3c4d", MessageID: 99}
	if got != want {
		t.Errorf("SupportAnswer() = %+v, want %+v", got, want)
	}

	other, _ := conv.SupportAnswer(ctx, 2)
	if other.Kind != Idle {
		t.Errorf("other admin Kind = %v, want Idle", other.Kind)
	}

	if err := conv.Clear(ctx, 1); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	got, _ = conv.SupportAnswer(ctx, 1)
	if got.Kind != Idle {
		t.Errorf("after Clear Kind = %v, want Idle", got.Kind)
	}
}

func TestSecondBeginOverwrites(t *testing.T) {
	conv := NewConversations(newMapStore(), 0)
	ctx := context.Background()

	_ = conv.BeginSupportAnswer(ctx, 1, 100, "aaaaaaaa", 1)
	_ = conv.BeginSupportAnswer(ctx, 1, 200, "bbbbbbbb", 2)

	got, _ := conv.SupportAnswer(ctx, 1)
	if got.UserTelegramID != 200 || got.QuestionShortID != "bbbbbbbb" {
		t.Errorf("SupportAnswer() = %+v, want the second one", got)
	}
}

func TestSupportAnswerCorruptValue(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"not json", "{oops"},
		{"no user", `{"kind":"support_answer"}`},
		{"other kind", `{"kind":"something","user_telegram_id":5}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMapStore()
			store.values[SupportAnswerKey(1)] = tt.raw
			conv := NewConversations(store, 0)

			got, err := conv.SupportAnswer(context.Background(), 1)
			if err != nil {
				t.Fatalf("SupportAnswer() error = %v", err)
			}
			if got.Kind != Idle {
				t.Errorf("Kind = %v, want Idle", got.Kind)
			}
		})
	}
}

func TestSupportAnswerStoreError(t *testing.T) {
	store := newMapStore()
	store.err = errors.New("unavailable")
	conv := NewConversations(store, 0)

	if _, err := conv.SupportAnswer(context.Background(), 1); err == nil {
		t.Error("SupportAnswer() error = nil, want store error")
	}
}

func TestNewRedisStoreBadURL(t *testing.T) {
	if _, err := NewRedisStore("not-a-redis-url"); err == nil {
		t.Error("NewRedisStore() error = nil, want parse error")
	}
}
