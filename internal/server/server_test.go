package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"gopkg.in/telebot.v4"
)

type fakeUpdates struct {
	got      []*telebot.Update
	err      error
	panicMsg string
	deadline bool
	ctxErr   error
}

func (f *fakeUpdates) HandleUpdate(ctx context.Context, u *telebot.Update) error {
	if f.panicMsg != "" {
		panic(f.panicMsg)
	}
	_, f.deadline = ctx.Deadline()
	f.ctxErr = ctx.Err()
	f.got = append(f.got, u)
	return f.err
}

type fakePinger struct {
	err error
}

func (f fakePinger) Ping(context.Context) error { return f.err }

const callbackUpdate = `{"update_id":7,"callback_query":{"id":"cb1","from":{"id":1001},"data":"users:0"}}`

func serve(h http.Handler, method, body string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/webhook/admin", strings.NewReader(body))
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestWebhookDispatchesUpdate(t *testing.T) {
	updates := &fakeUpdates{}
	rec := serve(Webhook(updates, "", ""), http.MethodPost, callbackUpdate, nil)

	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Errorf("status = %d body = %q, want 200 OK", rec.Code, rec.Body.String())
	}
	if len(updates.got) != 1 {
		t.Fatalf("Expected 1 update, got %d", len(updates.got))
	}
	cb := updates.got[0].Callback
	if cb == nil || cb.Data != "users:0" || cb.Sender.ID != 1001 {
		t.Errorf("Unexpected callback %+v", cb)
	}
	if updates.deadline {
		t.Error("Handler context must not carry a deadline")
	}
}

func TestWebhookOutlivesClientCancellation(t *testing.T) {
	updates := &fakeUpdates{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	req := httptest.NewRequest(http.MethodPost, "/webhook/admin", strings.NewReader(callbackUpdate)).WithContext(ctx)
	rec := httptest.NewRecorder()
	Webhook(updates, "", "").ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if updates.ctxErr != nil {
		t.Errorf("Handler context err = %v, want nil", updates.ctxErr)
	}
}

func TestWebhookErrors(t *testing.T) {
	tests := []struct {
		name    string
		updates *fakeUpdates
		body    string
	}{
		{"handler error", &fakeUpdates{err: errors.New("db down")}, callbackUpdate},
		{"panic", &fakeUpdates{panicMsg: "boom"}, callbackUpdate},
		{"bad json", &fakeUpdates{}, "{"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(Webhook(tt.updates, "", ""), http.MethodPost, tt.body, nil)
			if rec.Code != http.StatusInternalServerError {
				t.Errorf("status = %d, want 500", rec.Code)
			}
			if strings.TrimSpace(rec.Body.String()) != "Error" {
				t.Errorf("body = %q, want Error", rec.Body.String())
			}
		})
	}
}

func TestWebhookOptions(t *testing.T) {
	updates := &fakeUpdates{}
	rec := serve(Webhook(updates, "secret", ""), http.MethodOptions, "", nil)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if rec.Header().Get("Access-Control-Allow-Origin") != "*" {
		t.Error("Expected CORS headers")
	}
	if len(updates.got) != 0 {
		t.Error("OPTIONS must not dispatch")
	}
}

func TestWebhookSecret(t *testing.T) {
	updates := &fakeUpdates{}
	h := Webhook(updates, "s3cret", "")

	rec := serve(h, http.MethodPost, callbackUpdate, map[string]string{secretHeader: "wrong"})
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}

	rec = serve(h, http.MethodPost, callbackUpdate, map[string]string{secretHeader: "s3cret"})
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if len(updates.got) != 1 {
		t.Errorf("Expected 1 dispatched update, got %d", len(updates.got))
	}
}

func TestHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	Health(fakePinger{}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}

	rec = httptest.NewRecorder()
	Health(fakePinger{err: errors.New("down")}).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}
