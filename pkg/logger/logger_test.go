package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"DEBUG", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}

	for _, tt := range tests {
		if got := parseLevel(tt.in); got != tt.want {
			t.Errorf("parseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestInitWritesJSON(t *testing.T) {
	prev := Log
	defer func() { Log = prev }()

	var buf bytes.Buffer
	Init(Options{Level: "info", Output: &buf, App: "hub-bot", Environment: "test"})
	Error("send failed", Err(errors.New("boom")), Int64("chat_id", 42))

	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}

	want := map[string]any{
		"msg":     "send failed",
		"error":   "boom",
		"chat_id": float64(42),
		"app":     "hub-bot",
		"env":     "test",
	}
	for k, v := range want {
		if entry[k] != v {
			t.Errorf("%s = %v, want %v", k, entry[k], v)
		}
	}
}

func TestInitTextFormat(t *testing.T) {
	prev := Log
	defer func() { Log = prev }()

	var buf bytes.Buffer
	Init(Options{Format: "text", Output: &buf})
	Info("webhook received", Int64("update_id", 7))

	out := buf.String()
	if strings.HasPrefix(out, "{") {
		t.Fatalf("text format produced JSON: %s", out)
	}
	if !strings.Contains(out, "update_id=7") {
		t.Errorf("output %q lacks update_id=7", out)
	}
	if strings.Contains(out, "app=") {
		t.Errorf("output %q has app attr without App option", out)
	}
}

func TestDebugFilteredAtInfo(t *testing.T) {
	prev := Log
	defer func() { Log = prev }()

	var buf bytes.Buffer
	Init(Options{Level: "info", Output: &buf})
	Debug("hidden")

	if buf.Len() != 0 {
		t.Errorf("debug output at info level: %s", buf.String())
	}
}
