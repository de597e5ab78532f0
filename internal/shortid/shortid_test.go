package shortid

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"hub-bot/internal/database"
)

type memStore struct {
	byArticle map[string]string
	byShort   map[string]string
	fail      error
	next      int
}

func newMemStore() *memStore {
	return &memStore{byArticle: map[string]string{}, byShort: map[string]string{}}
}

func (m *memStore) GetOrCreate(_ context.Context, articleID string) (string, error) {
	if m.fail != nil {
		return "", m.fail
	}
	if s, ok := m.byArticle[articleID]; ok {
		return s, nil
	}
	m.next++
	s := fmt.Sprintf("s%07d", m.next)
	m.byArticle[articleID] = s
	m.byShort[s] = articleID
	return s, nil
}

func (m *memStore) ArticleID(_ context.Context, shortID string) (string, error) {
	if m.fail != nil {
		return "", m.fail
	}
	id, ok := m.byShort[shortID]
	if !ok {
		return "", database.ErrNotFound
	}
	return id, nil
}

func TestGetOrCreateIdempotent(t *testing.T) {
	reg := New(newMemStore())
	ctx := context.Background()
	articleID := "0b7e9f6c-2d4a-4f1b-9a53-1c2d3e4f5a6b"

	first := reg.GetOrCreate(ctx, articleID)
	second := reg.GetOrCreate(ctx, articleID)
	if first != second {
		t.Errorf("GetOrCreate() = %v then %v, want equal", first, second)
	}

	got, ok := reg.Resolve(ctx, first)
	if !ok || got != articleID {
		t.Errorf("Resolve(%v) = %v, %v, want %v, true", first, got, ok, articleID)
	}
}

func TestGetOrCreateFallback(t *testing.T) {
	store := newMemStore()
	store.fail = errors.New("rpc failed")
	reg := New(store)

	got := reg.GetOrCreate(context.Background(), "ab12cd34-0000-0000-0000-000000000000")
	if got != "ab12cd34" {
		t.Errorf("GetOrCreate() = %v, want ab12cd34", got)
	}

	if _, ok := reg.Resolve(context.Background(), got); ok {
		t.Error("fallback short id must not resolve")
	}
}

func TestResolveUnknown(t *testing.T) {
	reg := New(newMemStore())

	tests := []string{"", "deadbeef"}
	for _, shortID := range tests {
		if id, ok := reg.Resolve(context.Background(), shortID); ok || id != "" {
			t.Errorf("Resolve(%q) = %v, %v, want empty, false", shortID, id, ok)
		}
	}
}

func TestPrefix(t *testing.T) {
	if got := prefix("abc"); got != "abc" {
		t.Errorf("prefix(abc) = %v, want abc", got)
	}
	if got := prefix("0123456789"); got != "01234567" {
		t.Errorf("prefix(0123456789) = %v, want 01234567", got)
	}
}
