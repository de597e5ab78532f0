package queue

import (
	"context"
	"errors"
	"testing"

	"github.com/nats-io/nats.go"
)

type fakeMsg struct {
	acks, naks int
}

func (m *fakeMsg) Ack(...nats.AckOpt) error {
	m.acks++
	return nil
}

func (m *fakeMsg) Nak(...nats.AckOpt) error {
	m.naks++
	return nil
}

func TestDeliverModerationRequest(t *testing.T) {
	var got string
	handler := func(_ context.Context, r *ModerationRequest) error {
		got = r.ArticleID
		return nil
	}

	msg := &fakeMsg{}
	deliver(context.Background(), ModerationSubject, []byte(`{"article_id":"7d0e4a52-1c1f-4b7a-9f57-4c1c9a5b8f10"}`), msg, handler)

	if got != "7d0e4a52-1c1f-4b7a-9f57-4c1c9a5b8f10" {
		t.Errorf("ArticleID = %v, want 7d0e4a52-1c1f-4b7a-9f57-4c1c9a5b8f10", got)
	}
	if msg.acks != 1 || msg.naks != 0 {
		t.Errorf("acks = %d, naks = %d, want 1, 0", msg.acks, msg.naks)
	}
}

func TestDeliverHandlerFailureIsNacked(t *testing.T) {
	handler := func(context.Context, *SupportQuestionEvent) error {
		return errors.New("telegram down")
	}

	msg := &fakeMsg{}
	deliver(context.Background(), SupportSubject, []byte(`{"question_id":"q1"}`), msg, handler)

	if msg.acks != 0 || msg.naks != 1 {
		t.Errorf("acks = %d, naks = %d, want 0, 1", msg.acks, msg.naks)
	}
}

func TestDeliverGarbageIsDropped(t *testing.T) {
	called := false
	handler := func(context.Context, *SupportQuestionEvent) error {
		called = true
		return nil
	}

	msg := &fakeMsg{}
	deliver(context.Background(), SupportSubject, []byte(`not json`), msg, handler)

	if called {
		t.Error("Handler must not run for an undecodable payload")
	}
	if msg.acks != 1 {
		t.Errorf("acks = %d, want 1", msg.acks)
	}
}

func TestSubjectsShareStream(t *testing.T) {
	for _, s := range []string{ModerationSubject, SupportSubject} {
		if len(s) < 4 || s[:4] != "hub." {
			t.Errorf("Subject %q is outside the hub.> stream", s)
		}
	}
}
