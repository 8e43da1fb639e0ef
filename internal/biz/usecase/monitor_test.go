package usecase

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/mr0js/avito-monitor/internal/biz/domain"
	"github.com/mr0js/avito-monitor/internal/biz/repo"
)

// fakeChatRepo returns a scripted listing.
type fakeChatRepo struct {
	chats []*domain.Chat
	err   error
}

func (f *fakeChatRepo) FetchPage(ctx context.Context, limit, offset int, unreadOnly bool) (*repo.ChatPage, error) {
	return &repo.ChatPage{Chats: f.chats}, f.err
}

func (f *fakeChatRepo) FetchAll(ctx context.Context, maxTotal int) ([]*domain.Chat, error) {
	return f.chats, f.err
}

// fakeSnapshots records writes.
type fakeSnapshots struct {
	written  []*domain.Snapshot
	writeErr error
}

func (f *fakeSnapshots) Write(snap *domain.Snapshot) error {
	f.written = append(f.written, snap)
	return f.writeErr
}

func (f *fakeSnapshots) Read() (*domain.Snapshot, error) {
	if len(f.written) == 0 {
		return &domain.Snapshot{Chats: []map[string]any{}}, nil
	}
	return f.written[len(f.written)-1], nil
}

func (f *fakeSnapshots) Info() (int64, time.Time, error) { return 0, time.Time{}, nil }

func unreadChat(chatID, msgID, text, user string) *domain.Chat {
	return &domain.Chat{
		ID:    chatID,
		Users: []domain.Participant{{Name: user}},
		LastMessage: &domain.LastMessage{
			ID:        msgID,
			Read:      false,
			Direction: domain.DirectionIn,
			Created:   1700000000,
			Text:      text,
		},
		Raw: map[string]any{"id": chatID},
	}
}

type engineFixture struct {
	engine    *MonitorEngine
	chats     *fakeChatRepo
	state     *fakeState
	snapshots *fakeSnapshots
	sender    *fakeSender
}

func newEngineFixture(chats []*domain.Chat, fetchErr error, autoReply bool) *engineFixture {
	f := &engineFixture{
		chats:     &fakeChatRepo{chats: chats, err: fetchErr},
		state:     newFakeState(),
		snapshots: &fakeSnapshots{},
		sender:    &fakeSender{},
	}
	classifier := domain.NewClassifier([]string{"api мессенджера"})
	reply := NewAutoReplyUsecase(f.sender, f.state, "auto reply", 0, zerolog.Nop())
	f.engine = NewMonitorEngine(f.chats, f.state, f.snapshots, reply, classifier, autoReply, 200, zerolog.Nop())
	return f
}

func TestCheckForUpdatesNewMessage(t *testing.T) {
	f := newEngineFixture([]*domain.Chat{
		unreadChat("chat-1", "m1", "Здравствуйте!", "Alice"),
	}, nil, true)

	result := f.engine.CheckForUpdates(context.Background())

	if len(result.Unread) != 1 {
		t.Fatalf("Expected 1 unread message, got %d", len(result.Unread))
	}
	msg := result.Unread[0]
	if msg.ChatID != "chat-1" || msg.MessageID != "m1" {
		t.Errorf("Unexpected message identity: %+v", msg)
	}
	if msg.UserName != "Alice" {
		t.Errorf("Expected user name Alice, got %s", msg.UserName)
	}
	if msg.IsSystem {
		t.Error("Regular text must not classify as system")
	}

	if len(result.Replies) != 1 || result.Replies[0].ChatID != "chat-1" {
		t.Errorf("Expected one reply to chat-1, got %v", result.Replies)
	}
	if !f.state.HasReplied("chat-1") {
		t.Error("Chat must be marked replied")
	}
	if f.state.IsNewMessage("m1") {
		t.Error("Message must be marked processed")
	}
	if len(f.snapshots.written) != 1 {
		t.Errorf("Expected one snapshot write, got %d", len(f.snapshots.written))
	}

	stats := f.engine.Statistics()
	if stats.TotalChecks != 1 || stats.TotalUnreadMessages != 1 || stats.TotalAutoReplies != 1 {
		t.Errorf("Unexpected stats: %+v", stats)
	}
	if stats.LastError != "" {
		t.Errorf("Expected no error, got %q", stats.LastError)
	}
}

func TestCheckForUpdatesDedupSecondCycle(t *testing.T) {
	f := newEngineFixture([]*domain.Chat{
		unreadChat("chat-1", "m1", "hello", "Alice"),
	}, nil, true)

	f.engine.CheckForUpdates(context.Background())
	second := f.engine.CheckForUpdates(context.Background())

	if len(second.Unread) != 0 {
		t.Errorf("Expected 0 unread in second cycle, got %d", len(second.Unread))
	}
	if len(f.sender.sent) != 1 {
		t.Errorf("Expected no additional sends, got %d total", len(f.sender.sent))
	}

	stats := f.engine.Statistics()
	if stats.TotalChecks != 2 {
		t.Errorf("Expected 2 checks, got %d", stats.TotalChecks)
	}
	if stats.LastUnreadCount != 0 {
		t.Errorf("Expected last unread count 0, got %d", stats.LastUnreadCount)
	}
}

func TestCheckForUpdatesSystemMessageNotReplied(t *testing.T) {
	f := newEngineFixture([]*domain.Chat{
		unreadChat("chat-1", "m1", "Перейдите на подписку с API мессенджера", "Avito"),
	}, nil, true)

	result := f.engine.CheckForUpdates(context.Background())

	if len(result.Unread) != 1 {
		t.Fatalf("Expected the system message to be surfaced, got %d", len(result.Unread))
	}
	if !result.Unread[0].IsSystem {
		t.Error("Expected is_system classification")
	}
	if len(f.sender.sent) != 0 {
		t.Errorf("System messages must not trigger replies, got %d sends", len(f.sender.sent))
	}
	if f.state.IsNewMessage("m1") {
		t.Error("System messages still count for dedup")
	}

	stats := f.engine.Statistics()
	if stats.TotalSystemMessages != 1 || stats.TotalRegularMessages != 0 {
		t.Errorf("Unexpected classification counters: %+v", stats)
	}
}

func TestCheckForUpdatesSkipsReadAndOutbound(t *testing.T) {
	read := unreadChat("chat-1", "m1", "old", "Alice")
	read.LastMessage.Read = true
	outbound := unreadChat("chat-2", "m2", "mine", "Bob")
	outbound.LastMessage.Direction = "out"
	noMessage := &domain.Chat{ID: "chat-3", Raw: map[string]any{"id": "chat-3"}}

	f := newEngineFixture([]*domain.Chat{read, outbound, noMessage}, nil, true)
	result := f.engine.CheckForUpdates(context.Background())

	if len(result.Unread) != 0 {
		t.Errorf("Expected no qualifying messages, got %d", len(result.Unread))
	}
	if result.Snapshot.TotalChats != 3 {
		t.Errorf("All chats still belong in the snapshot, got %d", result.Snapshot.TotalChats)
	}
}

func TestCheckForUpdatesFetchErrorDegrades(t *testing.T) {
	f := newEngineFixture(nil, &domain.FetchError{Op: "chat listing", Err: context.DeadlineExceeded}, true)

	result := f.engine.CheckForUpdates(context.Background())

	if len(result.Unread) != 0 {
		t.Errorf("Expected empty result on fetch failure, got %d", len(result.Unread))
	}
	stats := f.engine.Statistics()
	if stats.LastError == "" {
		t.Error("Expected lastError to be recorded")
	}
	if stats.TotalChecks != 1 {
		t.Errorf("Failed cycle still counts as a check, got %d", stats.TotalChecks)
	}
	if len(f.snapshots.written) != 0 {
		t.Errorf("Expected no snapshot write on total failure, got %d", len(f.snapshots.written))
	}
}

func TestCheckForUpdatesPartialFetchStillProcessed(t *testing.T) {
	f := newEngineFixture([]*domain.Chat{
		unreadChat("chat-1", "m1", "hello", "Alice"),
	}, &domain.FetchError{Op: "chat listing", Err: context.DeadlineExceeded}, true)

	result := f.engine.CheckForUpdates(context.Background())

	if len(result.Unread) != 1 {
		t.Errorf("Partial listing must still be diffed, got %d unread", len(result.Unread))
	}
	if f.engine.Statistics().LastError == "" {
		t.Error("Partial failure must still record lastError")
	}
}

func TestCheckForUpdatesSendFailureStillDeduped(t *testing.T) {
	f := newEngineFixture([]*domain.Chat{
		unreadChat("chat-1", "m1", "hello", "Alice"),
	}, nil, true)
	f.sender.failFor = map[string]bool{"chat-1": true}

	result := f.engine.CheckForUpdates(context.Background())

	if len(result.FailedReplies) != 1 {
		t.Fatalf("Expected one failed reply, got %d", len(result.FailedReplies))
	}
	if f.state.IsNewMessage("m1") {
		t.Error("Dedup marking must not depend on send success")
	}
	if f.state.HasReplied("chat-1") {
		t.Error("Failed send must leave the chat eligible for a later reply")
	}

	// A later message in the same chat triggers a fresh attempt.
	f.sender.failFor = nil
	f.chats.chats = []*domain.Chat{unreadChat("chat-1", "m2", "still there?", "Alice")}
	second := f.engine.CheckForUpdates(context.Background())
	if len(second.Replies) != 1 {
		t.Errorf("Expected the retry via a new message to succeed, got %v", second.Replies)
	}
}

func TestCheckForUpdatesAutoReplyDisabled(t *testing.T) {
	f := newEngineFixture([]*domain.Chat{
		unreadChat("chat-1", "m1", "hello", "Alice"),
	}, nil, false)

	result := f.engine.CheckForUpdates(context.Background())

	if len(result.Unread) != 1 {
		t.Fatalf("Monitoring must continue with auto-reply disabled, got %d unread", len(result.Unread))
	}
	if len(f.sender.sent) != 0 {
		t.Errorf("Expected no sends with auto-reply disabled, got %d", len(f.sender.sent))
	}
	if f.state.IsNewMessage("m1") {
		t.Error("Dedup still applies with auto-reply disabled")
	}
}

func TestResetProcessedIDs(t *testing.T) {
	f := newEngineFixture([]*domain.Chat{
		unreadChat("chat-1", "m1", "hello", "Alice"),
	}, nil, false)

	f.engine.CheckForUpdates(context.Background())
	if f.engine.ProcessedCount() != 1 {
		t.Fatalf("Expected 1 processed id, got %d", f.engine.ProcessedCount())
	}

	if err := f.engine.ResetProcessedIDs(); err != nil {
		t.Fatalf("ResetProcessedIDs() error: %v", err)
	}
	if f.engine.ProcessedCount() != 0 {
		t.Errorf("Expected 0 processed ids after reset, got %d", f.engine.ProcessedCount())
	}

	// The same message is surfaced again on the next cycle.
	result := f.engine.CheckForUpdates(context.Background())
	if len(result.Unread) != 1 {
		t.Errorf("Expected the message to reappear after reset, got %d", len(result.Unread))
	}
}

func TestRecentUsersWindow(t *testing.T) {
	var chats []*domain.Chat
	for i := 0; i < domain.RecentUserWindow+5; i++ {
		chats = append(chats, unreadChat(
			fmt.Sprintf("chat-%d", i),
			fmt.Sprintf("m-%d", i),
			"hi",
			fmt.Sprintf("User %d", i),
		))
	}
	f := newEngineFixture(chats, nil, false)

	f.engine.CheckForUpdates(context.Background())

	stats := f.engine.Statistics()
	if len(stats.RecentUsers) != domain.RecentUserWindow {
		t.Errorf("Expected window of %d users, got %d", domain.RecentUserWindow, len(stats.RecentUsers))
	}
	last := stats.RecentUsers[len(stats.RecentUsers)-1]
	if last.Name != fmt.Sprintf("User %d", domain.RecentUserWindow+4) {
		t.Errorf("Expected newest user last, got %s", last.Name)
	}
}
