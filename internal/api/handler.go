package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/mr0js/avito-monitor/internal/biz/repo"
	"github.com/mr0js/avito-monitor/internal/biz/usecase"
	"github.com/mr0js/avito-monitor/internal/conf"
	"github.com/mr0js/avito-monitor/internal/service"
)

// Server provides the HTTP status/control surface for the monitor.
type Server struct {
	scheduler     *service.Scheduler
	engine        *usecase.MonitorEngine
	snapshots     repo.SnapshotStore
	notifications repo.NotificationRepo
	cfg           *conf.Config
	log           zerolog.Logger

	server *http.Server
}

// NewServer creates the API server.
func NewServer(
	scheduler *service.Scheduler,
	engine *usecase.MonitorEngine,
	snapshots repo.SnapshotStore,
	notifications repo.NotificationRepo,
	cfg *conf.Config,
	log zerolog.Logger,
) *Server {
	return &Server{
		scheduler:     scheduler,
		engine:        engine,
		snapshots:     snapshots,
		notifications: notifications,
		cfg:           cfg,
		log:           log.With().Str("component", "api").Logger(),
	}
}

// Handler builds the route table. Exposed for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Monitor control
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/start", s.handleStart)
	mux.HandleFunc("/api/stop", s.handleStop)
	mux.HandleFunc("/api/check-now", s.handleCheckNow)
	mux.HandleFunc("/api/reset-processed-ids", s.handleResetProcessedIDs)

	// Data views
	mux.HandleFunc("/api/chats", s.handleChats)
	mux.HandleFunc("/api/stats", s.handleStats)
	mux.HandleFunc("/api/notifications", s.handleNotifications)
	mux.HandleFunc("/api/messages", s.handleMessages)
	mux.HandleFunc("/api/config", s.handleConfig)

	// Health check
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	return mux
}

// Start starts the HTTP server. Blocks until the server exits.
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:    fmt.Sprintf("%s:%d", s.cfg.Web.Host, s.cfg.Web.Port),
		Handler: s.Handler(),
	}

	s.log.Info().Str("addr", s.server.Addr).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Stop stops the HTTP server.
func (s *Server) Stop() error {
	if s.server != nil {
		return s.server.Shutdown(context.Background())
	}
	return nil
}

// ============ Control Handlers ============

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	status := s.scheduler.Status()
	stats := s.engine.Statistics()

	s.writeJSON(w, map[string]interface{}{
		"monitoring": status,
		"last_check": stats.LastCheck,
		"last_error": stats.LastError,
	})
}

func (s *Server) handleStart(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	interval := s.cfg.Monitor.CheckInterval
	var req struct {
		IntervalSeconds int `json:"interval_seconds"`
	}
	if r.Body != nil {
		// Body is optional; a missing or malformed body keeps the default.
		json.NewDecoder(r.Body).Decode(&req)
	}
	if req.IntervalSeconds > 0 {
		interval = time.Duration(req.IntervalSeconds) * time.Second
	}

	s.scheduler.Start(interval)
	s.writeJSON(w, map[string]interface{}{
		"success":          true,
		"interval_seconds": int(interval / time.Second),
	})
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.scheduler.Stop()
	s.writeJSON(w, map[string]interface{}{"success": true})
}

func (s *Server) handleCheckNow(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	result := s.scheduler.CheckNow()
	s.writeJSON(w, map[string]interface{}{
		"success":        true,
		"total_chats":    result.Snapshot.TotalChats,
		"unread_count":   len(result.Unread),
		"unread":         result.Unread,
		"replies_sent":   result.Replies,
		"replies_failed": result.FailedReplies,
	})
}

func (s *Server) handleResetProcessedIDs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	before := s.engine.ProcessedCount()
	if err := s.engine.ResetProcessedIDs(); err != nil {
		s.writeError(w, err)
		return
	}
	s.log.Warn().Int("cleared", before).Msg("Processed message IDs reset")
	s.writeJSON(w, map[string]interface{}{"success": true, "cleared": before})
}

// ============ Data Handlers ============

func (s *Server) handleChats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	snap, err := s.snapshots.Read()
	if err != nil {
		s.writeError(w, err)
		return
	}

	chats := snap.Chats
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed >= 0 && parsed < len(chats) {
			chats = chats[:parsed]
		}
	}

	// The display layer reads display_name; fall back to the name extracted
	// during the cycle.
	for _, chat := range chats {
		if _, ok := chat["display_name"]; ok {
			continue
		}
		if name, ok := chat["user_name"].(string); ok && name != "" {
			chat["display_name"] = name
		} else {
			chat["display_name"] = "Unknown User"
		}
	}

	s.writeJSON(w, map[string]interface{}{
		"chats":        chats,
		"total_chats":  snap.TotalChats,
		"retrieved_at": snap.RetrievedAt,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	stats := s.engine.Statistics()

	recentUsers := stats.RecentUsers
	if len(recentUsers) > 5 {
		recentUsers = recentUsers[len(recentUsers)-5:]
	}

	fileInfo := map[string]interface{}{"exists": false}
	if size, modified, err := s.snapshots.Info(); err == nil {
		fileInfo = map[string]interface{}{
			"exists":   true,
			"size":     size,
			"modified": modified,
		}
	}

	notifications, err := s.notifications.Recent(r.Context(), 10, "")
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to load notifications")
		notifications = nil
	}

	s.writeJSON(w, map[string]interface{}{
		"stats":            stats,
		"uptime_seconds":   int(stats.Uptime(time.Now()) / time.Second),
		"recent_users":     recentUsers,
		"processed_ids":    s.engine.ProcessedCount(),
		"snapshot_file":    fileInfo,
		"notifications":    notifications,
		"monitoring":       s.scheduler.Status(),
		"auto_reply":       s.engine.AutoReplyEnabled(),
		"check_interval_s": int(s.cfg.Monitor.CheckInterval / time.Second),
	})
}

func (s *Server) handleNotifications(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	notifications, err := s.notifications.Recent(r.Context(), limit, r.URL.Query().Get("level"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, map[string]interface{}{"notifications": notifications})
}

// handleMessages returns the most recent unread messages seen by the
// monitor, reconstructed from the snapshot.
func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := 20
	if l := r.URL.Query().Get("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	snap, err := s.snapshots.Read()
	if err != nil {
		s.writeError(w, err)
		return
	}

	messages := make([]map[string]interface{}, 0, limit)
	for _, chat := range snap.Chats {
		if len(messages) >= limit {
			break
		}
		last, ok := chat["last_message"].(map[string]interface{})
		if !ok {
			continue
		}
		entry := map[string]interface{}{
			"chat_id":      chat["id"],
			"last_message": last,
		}
		if name, ok := chat["user_name"].(string); ok {
			entry["user_name"] = name
		}
		messages = append(messages, entry)
	}

	s.writeJSON(w, map[string]interface{}{
		"messages":     messages,
		"retrieved_at": snap.RetrievedAt,
	})
}

// handleConfig exposes the non-secret runtime configuration.
func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.writeJSON(w, map[string]interface{}{
		"base_url":               s.cfg.Avito.BaseURL,
		"check_interval_seconds": int(s.cfg.Monitor.CheckInterval / time.Second),
		"max_chats":              s.cfg.Monitor.MaxChats,
		"batch_size":             s.cfg.Monitor.BatchSize,
		"auto_start":             s.cfg.Monitor.AutoStart,
		"auto_reply_enabled":     s.cfg.AutoReply.Enabled,
		"auto_reply_delay_ms":    int(s.cfg.AutoReply.Delay / time.Millisecond),
		"debug":                  s.cfg.Debug,
	})
}

// ============ Helpers ============

func (s *Server) writeJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(data)
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
