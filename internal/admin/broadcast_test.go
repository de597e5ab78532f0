package admin

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"hub-bot/internal/models"
	"hub-bot/internal/server"
)

func TestBroadcastContinuesAfterSendError(t *testing.T) {
	f := newFixture()
	f.addProfile(models.Profile{ID: "p1", TelegramID: 11})
	f.addProfile(models.Profile{ID: "p2", TelegramID: 22})
	f.addProfile(models.Profile{ID: "p3", TelegramID: 33})
	f.relay.userErr[22] = errors.New("connection reset by peer")

	if err := f.message(testAdminID, "/broadcast hello"); err != nil {
		t.Fatal(err)
	}

	if f.relay.lastAdmin() != FormatBroadcastDone(2, 1) {
		t.Errorf("Unexpected summary %q", f.relay.lastAdmin())
	}
	var got []int64
	for _, m := range f.relay.user {
		got = append(got, m.chatID)
	}
	if len(got) != 2 || got[0] != 11 || got[1] != 33 {
		t.Errorf("Delivered to %v, want [11 33]", got)
	}
}

func TestBroadcastSurvivesDroppedWebhookConnection(t *testing.T) {
	f := newFixture()
	f.addProfile(models.Profile{ID: "p1", TelegramID: 11})
	f.addProfile(models.Profile{ID: "p2", TelegramID: 22})
	f.addProfile(models.Profile{ID: "p3", TelegramID: 33})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	body := `{"update_id":9,"message":{"message_id":3,"from":{"id":1001},"chat":{"id":1001},"text":"/broadcast hello"}}`
	req := httptest.NewRequest(http.MethodPost, "/webhook/admin", strings.NewReader(body)).WithContext(ctx)
	rec := httptest.NewRecorder()
	server.Webhook(f.h, "", "").ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if f.relay.ctxErrs != 0 {
		t.Errorf("Expected no calls on a cancelled context, got %d", f.relay.ctxErrs)
	}
	if len(f.relay.user) != 3 {
		t.Errorf("Expected 3 deliveries, got %d", len(f.relay.user))
	}
	if f.relay.lastAdmin() != FormatBroadcastDone(3, 0) {
		t.Errorf("Unexpected summary %q", f.relay.lastAdmin())
	}
}
