package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/mr0js/avito-monitor/internal/biz/usecase"
)

const (
	// Floor for the shortened interval used right after activity.
	minSleep = 10 * time.Second

	// How long Stop waits for the loop to acknowledge before giving up.
	stopTimeout = 10 * time.Second
)

// Status is the externally visible scheduler state.
type Status struct {
	Running          bool      `json:"running"`
	IntervalSeconds  int       `json:"interval_seconds"`
	AutoReplyEnabled bool      `json:"auto_reply_enabled"`
	LoopAlive        bool      `json:"loop_alive"`
	StartAttempts    int       `json:"start_attempts"`
	LastStartAttempt time.Time `json:"last_start_attempt"`
	TotalCycles      int       `json:"total_cycles"`
	SuccessfulCycles int       `json:"successful_cycles"`
	FailedCycles     int       `json:"failed_cycles"`
	LastError        string    `json:"last_error,omitempty"`
}

// Scheduler drives the monitor engine on a repeating interval in one
// background goroutine. A single cycle's failure never terminates the loop.
type Scheduler struct {
	engine *usecase.MonitorEngine
	log    zerolog.Logger

	mu               sync.Mutex
	running          bool
	interval         time.Duration
	stopCh           chan struct{}
	doneCh           chan struct{}
	startAttempts    int
	lastStartAttempt time.Time
	totalCycles      int
	successfulCycles int
	failedCycles     int
	lastError        string
}

// NewScheduler creates a stopped scheduler around the engine.
func NewScheduler(engine *usecase.MonitorEngine, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		engine: engine,
		log:    log.With().Str("component", "scheduler").Logger(),
	}
}

// Start spawns the background loop. A no-op when already running.
func (s *Scheduler) Start(interval time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		s.log.Warn().Msg("Service is already running")
		return true
	}
	if interval <= 0 {
		interval = 30 * time.Second
	}

	s.startAttempts++
	s.lastStartAttempt = time.Now()
	s.interval = interval
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	go s.loop(interval, s.stopCh, s.doneCh)

	s.log.Info().Dur("interval", interval).Msg("Monitor service started")
	return true
}

// Stop signals the loop to exit and waits up to stopTimeout for the
// acknowledgement. The scheduler counts as stopped either way; a loop that
// failed to acknowledge in time only gets a warning.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		s.log.Info().Msg("Service is not running")
		return
	}
	s.running = false
	close(s.stopCh)
	doneCh := s.doneCh
	s.mu.Unlock()

	s.log.Info().Msg("Stopping monitor service...")
	select {
	case <-doneCh:
		s.log.Info().Msg("Monitoring loop stopped")
	case <-time.After(stopTimeout):
		s.log.Warn().Msg("Monitoring loop did not stop gracefully")
	}
}

// CheckNow runs one cycle synchronously on the caller, independent of the
// scheduled loop. Usable whether or not the scheduler is running.
func (s *Scheduler) CheckNow() *usecase.CycleResult {
	s.log.Info().Msg("Performing immediate check")
	result := s.engine.CheckForUpdates(context.Background())
	s.log.Info().Int("unread", len(result.Unread)).Msg("Immediate check completed")
	return result
}

// Status returns the current scheduler state.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	loopAlive := false
	if s.doneCh != nil {
		select {
		case <-s.doneCh:
		default:
			loopAlive = true
		}
	}

	return Status{
		Running:          s.running,
		IntervalSeconds:  int(s.interval / time.Second),
		AutoReplyEnabled: s.engine.AutoReplyEnabled(),
		LoopAlive:        loopAlive,
		StartAttempts:    s.startAttempts,
		LastStartAttempt: s.lastStartAttempt,
		TotalCycles:      s.totalCycles,
		SuccessfulCycles: s.successfulCycles,
		FailedCycles:     s.failedCycles,
		LastError:        s.lastError,
	}
}

func (s *Scheduler) loop(interval time.Duration, stopCh, doneCh chan struct{}) {
	defer close(doneCh)
	s.log.Info().Dur("interval", interval).Msg("Monitoring loop started")

	cycle := 0
	for {
		select {
		case <-stopCh:
			s.log.Info().Int("cycles", cycle).Msg("Monitoring loop exiting")
			return
		default:
		}

		cycle++
		s.mu.Lock()
		s.totalCycles++
		s.mu.Unlock()

		start := time.Now()
		result := s.runCycle(cycle)
		elapsed := time.Since(start)

		sleep := interval
		if result != nil && len(result.Unread) > 0 {
			s.log.Info().
				Int("cycle", cycle).
				Int("unread", len(result.Unread)).
				Dur("elapsed", elapsed).
				Msg("Cycle found new messages")
			// Check more frequently right after activity.
			sleep = interval / 2
			if sleep < minSleep {
				sleep = minSleep
			}
		} else {
			s.log.Debug().Int("cycle", cycle).Dur("elapsed", elapsed).Msg("Cycle completed, no new messages")
		}

		// Sleep in one-second increments so Stop takes effect within ~1s.
		for remaining := sleep; remaining > 0; remaining -= time.Second {
			select {
			case <-stopCh:
				s.log.Info().Int("cycles", cycle).Msg("Monitoring loop exiting")
				return
			case <-time.After(time.Second):
			}
		}
	}
}

// runCycle executes one engine cycle and absorbs panics so the loop can
// continue on the next interval.
func (s *Scheduler) runCycle(cycle int) (result *usecase.CycleResult) {
	defer func() {
		if r := recover(); r != nil {
			msg := fmt.Sprintf("monitoring cycle %d: %v", cycle, r)
			s.log.Error().Str("panic", msg).Msg("Monitoring cycle crashed")
			s.mu.Lock()
			s.failedCycles++
			s.lastError = msg
			s.mu.Unlock()
			result = nil
		}
	}()

	result = s.engine.CheckForUpdates(context.Background())
	s.mu.Lock()
	s.successfulCycles++
	s.mu.Unlock()
	return result
}
