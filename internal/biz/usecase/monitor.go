package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/mr0js/avito-monitor/internal/biz/domain"
	"github.com/mr0js/avito-monitor/internal/biz/repo"
)

// CycleResult is the outcome of one poll cycle. All three parts may be
// empty; they are never nil on a non-nil result.
type CycleResult struct {
	Snapshot      *domain.Snapshot
	Unread        []*domain.Message
	Replies       []domain.SentReply
	FailedReplies []domain.FailedReply
}

// MonitorEngine orchestrates one poll cycle: fetch the chat listing, diff
// the last messages against the dedup state, classify, dispatch replies,
// persist the snapshot, update statistics.
type MonitorEngine struct {
	chats      repo.ChatRepo
	state      repo.StateStore
	snapshots  repo.SnapshotStore
	reply      *AutoReplyUsecase
	classifier *domain.Classifier
	log        zerolog.Logger

	autoReplyEnabled bool
	maxChats         int

	// cycleMu serializes cycles so an immediate check cannot race the
	// scheduled loop on the dedup state.
	cycleMu sync.Mutex

	statsMu sync.Mutex
	stats   domain.Statistics
}

// NewMonitorEngine creates the engine. Statistics start counting from here
// and reset only on process restart.
func NewMonitorEngine(
	chats repo.ChatRepo,
	state repo.StateStore,
	snapshots repo.SnapshotStore,
	reply *AutoReplyUsecase,
	classifier *domain.Classifier,
	autoReplyEnabled bool,
	maxChats int,
	log zerolog.Logger,
) *MonitorEngine {
	return &MonitorEngine{
		chats:            chats,
		state:            state,
		snapshots:        snapshots,
		reply:            reply,
		classifier:       classifier,
		autoReplyEnabled: autoReplyEnabled,
		maxChats:         maxChats,
		log:              log.With().Str("component", "monitor").Logger(),
		stats: domain.Statistics{
			StartTime: time.Now(),
		},
	}
}

// AutoReplyEnabled reports whether replies are dispatched.
func (e *MonitorEngine) AutoReplyEnabled() bool { return e.autoReplyEnabled }

// ProcessedCount returns the number of tracked message ids.
func (e *MonitorEngine) ProcessedCount() int { return e.state.ProcessedCount() }

// ResetProcessedIDs clears the processed-id set (maintenance/debugging).
func (e *MonitorEngine) ResetProcessedIDs() error { return e.state.Reset() }

// Statistics returns a copy of the current counters.
func (e *MonitorEngine) Statistics() domain.Statistics {
	e.statsMu.Lock()
	defer e.statsMu.Unlock()
	out := e.stats
	out.RecentUsers = append([]domain.UserActivity(nil), e.stats.RecentUsers...)
	return out
}

// CheckForUpdates runs one full cycle. It never returns an error: any
// failure is recorded as lastError and the result degrades toward empty so
// the scheduler can always proceed to the next interval.
func (e *MonitorEngine) CheckForUpdates(ctx context.Context) *CycleResult {
	e.cycleMu.Lock()
	defer e.cycleMu.Unlock()

	e.statsMu.Lock()
	e.stats.TotalChecks++
	e.stats.LastCheck = time.Now()
	check := e.stats.TotalChecks
	e.statsMu.Unlock()

	e.log.Info().Int("check", check).Msg("Check started")
	result := &CycleResult{Snapshot: &domain.Snapshot{Chats: []map[string]any{}}}
	cycleOK := true

	chats, err := e.chats.FetchAll(ctx, e.maxChats)
	if err != nil {
		e.setLastError(err.Error())
		e.log.Error().Err(err).Msg("Error getting chats")
		cycleOK = false
		if len(chats) == 0 {
			e.recordUnread(nil)
			return result
		}
	}

	unread := e.collectUnread(chats)
	result.Unread = unread
	e.recordUnread(unread)

	if len(unread) > 0 {
		if err := e.state.Flush(); err != nil {
			e.log.Error().Err(err).Msg("Error saving processed IDs")
			cycleOK = false
		}
		e.logUnread(unread)
	} else {
		e.log.Debug().Msg("No new unread messages found")
	}

	regularCount := 0
	for _, msg := range unread {
		if !msg.IsSystem {
			regularCount++
		}
	}

	if e.autoReplyEnabled && regularCount > 0 {
		sent, failed := e.reply.ProcessBatch(ctx, unread)
		result.Replies = sent
		result.FailedReplies = failed
		e.statsMu.Lock()
		e.stats.TotalAutoReplies += len(sent)
		e.statsMu.Unlock()
	}

	snapshot := buildSnapshot(chats)
	result.Snapshot = snapshot
	if err := e.snapshots.Write(snapshot); err != nil {
		e.setLastError(err.Error())
		e.log.Error().Err(err).Msg("Error saving chat snapshot")
		cycleOK = false
	} else {
		e.log.Info().Int("total_chats", snapshot.TotalChats).Msg("Saved chat snapshot")
	}

	if cycleOK {
		e.clearLastError()
	}
	return result
}

// collectUnread inspects each chat's most recent message. A message
// qualifies iff it is unread, inbound, and its id has never been surfaced.
// Qualifying ids are marked processed immediately, before any reply is
// attempted.
func (e *MonitorEngine) collectUnread(chats []*domain.Chat) []*domain.Message {
	var unread []*domain.Message
	seenUsers := make(map[string]struct{})

	for _, chat := range chats {
		if chat.ID == "" {
			continue
		}
		userName := domain.ExtractUserName(chat)
		chat.UserName = userName
		if chat.Raw != nil {
			chat.Raw["user_name"] = userName
		}

		msg := chat.LastMessage
		if msg == nil {
			continue
		}
		if msg.ID == "" {
			e.log.Warn().Str("chat_id", chat.ID).Msg("Message has no ID")
			continue
		}
		if msg.Read || msg.Direction != domain.DirectionIn {
			continue
		}
		if !e.state.IsNewMessage(msg.ID) {
			e.log.Debug().Str("message_id", shortID(msg.ID)).Msg("Message already processed, skipping")
			continue
		}

		isSystem := e.classifier.IsSystemMessage(msg.Text)
		created := ""
		if formatted, ok := timestampField(chat.Raw, "last_message", "created_formatted"); ok {
			created = formatted
		}

		unread = append(unread, &domain.Message{
			ChatID:           chat.ID,
			MessageID:        msg.ID,
			Text:             msg.Text,
			Created:          created,
			CreatedTimestamp: msg.Created,
			Direction:        domain.DirectionIn,
			IsUnread:         true,
			IsSystem:         isSystem,
			UserName:         userName,
		})
		e.state.MarkProcessed(msg.ID)
		e.log.Debug().
			Str("message_id", shortID(msg.ID)).
			Str("user", userName).
			Bool("system", isSystem).
			Msg("New message detected")

		if _, ok := seenUsers[userName]; !ok {
			seenUsers[userName] = struct{}{}
			e.trackUser(userName, isSystem)
		}
	}
	return unread
}

func (e *MonitorEngine) trackUser(name string, isSystem bool) {
	e.statsMu.Lock()
	defer e.statsMu.Unlock()
	e.stats.RecentUsers = append(e.stats.RecentUsers, domain.UserActivity{
		Name:     name,
		Time:     time.Now(),
		IsSystem: isSystem,
	})
	if len(e.stats.RecentUsers) > domain.RecentUserWindow {
		e.stats.RecentUsers = e.stats.RecentUsers[len(e.stats.RecentUsers)-domain.RecentUserWindow:]
	}
}

func (e *MonitorEngine) recordUnread(unread []*domain.Message) {
	systemCount := 0
	for _, msg := range unread {
		if msg.IsSystem {
			systemCount++
		}
	}
	e.statsMu.Lock()
	defer e.statsMu.Unlock()
	e.stats.TotalUnreadMessages += len(unread)
	e.stats.TotalSystemMessages += systemCount
	e.stats.TotalRegularMessages += len(unread) - systemCount
	e.stats.LastUnreadCount = len(unread)
}

func (e *MonitorEngine) logUnread(unread []*domain.Message) {
	e.log.Info().Int("count", len(unread)).Msg("Found new messages")
	limit := min(len(unread), 3)
	for _, msg := range unread[:limit] {
		kind := "USER"
		if msg.IsSystem {
			kind = "SYSTEM"
		}
		e.log.Info().
			Str("type", kind).
			Str("user", msg.UserName).
			Str("message_id", shortID(msg.MessageID)).
			Str("preview", preview(msg.Text, 50)).
			Msg("New message")
	}
}

func (e *MonitorEngine) setLastError(msg string) {
	e.statsMu.Lock()
	defer e.statsMu.Unlock()
	e.stats.LastError = msg
}

func (e *MonitorEngine) clearLastError() {
	e.statsMu.Lock()
	defer e.statsMu.Unlock()
	e.stats.LastError = ""
}

func buildSnapshot(chats []*domain.Chat) *domain.Snapshot {
	now := time.Now()
	snap := &domain.Snapshot{
		Chats:                make([]map[string]any, 0, len(chats)),
		TotalChats:           len(chats),
		RetrievedAt:          now.Format(time.RFC3339),
		RetrievedAtFormatted: now.Format("2006-01-02 15:04:05"),
	}
	for _, chat := range chats {
		if chat.Raw != nil {
			snap.Chats = append(snap.Chats, chat.Raw)
		}
	}
	return snap
}

func timestampField(raw map[string]any, object, key string) (string, bool) {
	if raw == nil {
		return "", false
	}
	nested, ok := raw[object].(map[string]any)
	if !ok {
		return "", false
	}
	value, ok := nested[key].(string)
	return value, ok
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8] + "..."
	}
	return id
}

func preview(text string, n int) string {
	runes := []rune(text)
	if len(runes) > n {
		return string(runes[:n]) + "..."
	}
	return text
}
