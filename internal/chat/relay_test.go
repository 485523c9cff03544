package chat

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"testing"
	"time"

	"ephemeral-chat/internal/codec"
	"ephemeral-chat/internal/room"
	"ephemeral-chat/internal/security"
	"ephemeral-chat/internal/store"
)

func newTestRelay() (*Relay, room.Repository) {
	repo := room.NewStoreRepository(store.NewMemoryStore(), 50)
	validator := security.NewInputValidator(2, 50, 1000, 6)
	return NewRelay(repo, codec.NewBase64Codec(), validator), repo
}

func seedRoom(t *testing.T, repo room.Repository, code string, users ...string) *room.Room {
	t.Helper()
	now := time.Now()
	r := &room.Room{
		Code:         code,
		Messages:     []room.Message{},
		Users:        users,
		CreatedAt:    now.UnixMilli(),
		LastActivity: now.UnixMilli(),
	}
	if err := repo.Save(context.Background(), r); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	return r
}

func TestSendAppendsEncodedMessage(t *testing.T) {
	relay, repo := newTestRelay()
	ctx := context.Background()
	seedRoom(t, repo, "ABC123", "alice")

	msg, err := relay.Send(ctx, "alice", "ABC123", "hello bob")
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if msg == nil {
		t.Fatal("expected a message")
	}
	if msg.Type != room.TypeUser || msg.Username != "alice" {
		t.Errorf("message = %+v", msg)
	}
	if msg.Content != base64.StdEncoding.EncodeToString([]byte("hello bob")) {
		t.Errorf("content %q is not the encoded payload", msg.Content)
	}

	got, _, _ := repo.Get(ctx, "ABC123")
	if len(got.Messages) != 1 {
		t.Fatalf("expected 1 persisted message, got %d", len(got.Messages))
	}
}

func TestSendBumpsActivity(t *testing.T) {
	relay, repo := newTestRelay()
	ctx := context.Background()

	r := seedRoom(t, repo, "ABC123", "alice")
	stale := time.Now().Add(-30 * time.Minute).UnixMilli()
	r.LastActivity = stale
	repo.Save(ctx, r)

	if _, err := relay.Send(ctx, "alice", "ABC123", "ping"); err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	got, _, _ := repo.Get(ctx, "ABC123")
	if got.LastActivity <= stale {
		t.Error("expected Send to bump last activity")
	}
}

func TestSendBlankIsNoop(t *testing.T) {
	relay, repo := newTestRelay()
	ctx := context.Background()
	seedRoom(t, repo, "ABC123", "alice")

	msg, err := relay.Send(ctx, "alice", "ABC123", "   ")
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}
	if msg != nil {
		t.Error("blank text must not produce a message")
	}

	got, _, _ := repo.Get(ctx, "ABC123")
	if len(got.Messages) != 0 {
		t.Errorf("expected no persisted messages, got %d", len(got.Messages))
	}
}

func TestSendUnknownRoom(t *testing.T) {
	relay, _ := newTestRelay()

	if _, err := relay.Send(context.Background(), "alice", "ZZZZZZ", "hi"); !errors.Is(err, room.ErrRoomNotFound) {
		t.Errorf("got %v, want ErrRoomNotFound", err)
	}
}

func TestFiftyOneSendsKeepLastFifty(t *testing.T) {
	relay, repo := newTestRelay()
	ctx := context.Background()
	seedRoom(t, repo, "ABC123", "alice")

	for i := 0; i < 51; i++ {
		if _, err := relay.Send(ctx, "alice", "ABC123", fmt.Sprintf("message %d", i)); err != nil {
			t.Fatalf("send %d failed: %v", i, err)
		}
	}

	messages, exists, err := relay.History(ctx, "ABC123")
	if err != nil || !exists {
		t.Fatalf("History failed: exists=%v err=%v", exists, err)
	}
	if len(messages) != 50 {
		t.Fatalf("expected exactly 50 messages, got %d", len(messages))
	}
	// Oldest dropped first: 1..50 survive in order.
	for i, msg := range messages {
		want := fmt.Sprintf("message %d", i+1)
		if msg.Content != want {
			t.Fatalf("message[%d] = %q, want %q", i, msg.Content, want)
		}
	}
}

func TestSystemNoticeIsPlain(t *testing.T) {
	relay, repo := newTestRelay()
	ctx := context.Background()
	seedRoom(t, repo, "ABC123", "alice")

	if err := relay.SystemNotice(ctx, "ABC123", "alice joined the room"); err != nil {
		t.Fatalf("SystemNotice failed: %v", err)
	}

	got, _, _ := repo.Get(ctx, "ABC123")
	if len(got.Messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(got.Messages))
	}
	msg := got.Messages[0]
	if msg.Type != room.TypeSystem {
		t.Errorf("type = %q, want system", msg.Type)
	}
	// Stored un-encoded so peers render it without the codec.
	if msg.Content != "alice joined the room" {
		t.Errorf("content = %q, want plain text", msg.Content)
	}
}

func TestSystemNoticeUnknownRoomIsNoop(t *testing.T) {
	relay, _ := newTestRelay()

	if err := relay.SystemNotice(context.Background(), "ZZZZZZ", "anything"); err != nil {
		t.Errorf("got %v, want nil", err)
	}
}

func TestChanged(t *testing.T) {
	relay, repo := newTestRelay()
	ctx := context.Background()
	seedRoom(t, repo, "ABC123", "alice")

	changed, err := relay.Changed(ctx, "ABC123", 0)
	if err != nil {
		t.Fatalf("Changed failed: %v", err)
	}
	if changed {
		t.Error("no messages yet, expected no change")
	}

	relay.Send(ctx, "alice", "ABC123", "hello")

	changed, err = relay.Changed(ctx, "ABC123", 0)
	if err != nil {
		t.Fatalf("Changed failed: %v", err)
	}
	if !changed {
		t.Error("expected change after a peer send")
	}

	changed, _ = relay.Changed(ctx, "ABC123", 1)
	if changed {
		t.Error("rendered count matches, expected no change")
	}
}

func TestHistoryDecodes(t *testing.T) {
	relay, repo := newTestRelay()
	ctx := context.Background()
	seedRoom(t, repo, "ABC123", "alice")

	relay.Send(ctx, "alice", "ABC123", "secret greeting")
	relay.SystemNotice(ctx, "ABC123", "bob joined the room")

	messages, exists, err := relay.History(ctx, "ABC123")
	if err != nil || !exists {
		t.Fatalf("History failed: exists=%v err=%v", exists, err)
	}
	if messages[0].Content != "secret greeting" {
		t.Errorf("user message = %q, want decoded text", messages[0].Content)
	}
	if messages[1].Content != "bob joined the room" {
		t.Errorf("system message = %q, want plain text", messages[1].Content)
	}
}

func TestHistoryUnknownRoom(t *testing.T) {
	relay, _ := newTestRelay()

	_, exists, err := relay.History(context.Background(), "ZZZZZZ")
	if err != nil {
		t.Fatalf("History failed: %v", err)
	}
	if exists {
		t.Error("expected exists=false for unknown room")
	}
}
