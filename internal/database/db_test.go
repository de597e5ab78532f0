package database

import (
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
)

func TestConnectionError(t *testing.T) {
	baseErr := errors.New("connection refused")
	err := &ConnectionError{
		Host: "localhost",
		Port: 5432,
		Err:  baseErr,
	}

	if err.Error() == "" {
		t.Error("Expected error message")
	}

	if !errors.Is(err, baseErr) {
		t.Error("Expected underlying error to be unwrapped")
	}
}

func TestConnectionErrorMessage(t *testing.T) {
	err := &ConnectionError{
		Host: "postgres.example.com",
		Port: 6432,
		Err:  errors.New("connection refused"),
	}

	errMsg := err.Error()
	if !strings.Contains(errMsg, "postgres.example.com:6432") {
		t.Errorf("Error() = %v, want host:port", errMsg)
	}
	if !strings.Contains(errMsg, "connection refused") {
		t.Errorf("Error() = %v, want cause", errMsg)
	}
}

func TestNotFound(t *testing.T) {
	if got := notFound(pgx.ErrNoRows); !errors.Is(got, ErrNotFound) {
		t.Errorf("notFound(ErrNoRows) = %v, want ErrNotFound", got)
	}

	other := errors.New("timeout")
	if got := notFound(other); got != other {
		t.Errorf("notFound(other) = %v, want %v", got, other)
	}
}

func TestTruncateRunes(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 50, "short"},
		{"абвгдеж", 3, "абв"},
		{"", 5, ""},
	}

	for _, tt := range tests {
		if got := truncateRunes(tt.in, tt.n); got != tt.want {
			t.Errorf("truncateRunes(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}

func TestReactionKinds(t *testing.T) {
	if likeKind.table == favoriteKind.table {
		t.Error("like and favorite must use distinct tables")
	}
	if likeKind.counter != "likes_count" {
		t.Errorf("likeKind.counter = %v, want likes_count", likeKind.counter)
	}
	if favoriteKind.counter != "favorites_count" {
		t.Errorf("favoriteKind.counter = %v, want favorites_count", favoriteKind.counter)
	}
}

func TestEscapeLike(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"alice", "alice"},
		{"a_b", `a\_b`},
		{"100%", `100\%`},
		{`c:\tmp`, `c:\\tmp`},
		{"", ""},
	}

	for _, tt := range tests {
		if got := escapeLike(tt.in); got != tt.want {
			t.Errorf("escapeLike(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
