package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"golang.org/x/term"

	"github.com/mr0js/avito-monitor/internal/api"
	"github.com/mr0js/avito-monitor/internal/biz/domain"
	"github.com/mr0js/avito-monitor/internal/biz/usecase"
	"github.com/mr0js/avito-monitor/internal/conf"
	"github.com/mr0js/avito-monitor/internal/data"
	"github.com/mr0js/avito-monitor/internal/infra/avito"
	"github.com/mr0js/avito-monitor/internal/service"
)

func main() {
	resetCredentials := flag.Bool("reset-credentials", false, "delete stored API credentials and exit")
	flag.Parse()

	// Load .env file
	if err := godotenv.Load(); err != nil {
		fmt.Println("No .env file found, using environment variables")
	}

	// Load configuration
	cfg := conf.LoadFromEnv()
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid config: %v\n", err)
		os.Exit(1)
	}

	log, logFile, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to set up logging: %v\n", err)
		os.Exit(1)
	}
	if logFile != nil {
		defer logFile.Close()
	}

	if *resetCredentials {
		store := data.NewKeyringStore(cfg.Avito.ServiceName)
		if err := usecase.ClearCredentials(store, log); err != nil {
			log.Fatal().Err(err).Msg("Failed to delete credentials")
		}
		fmt.Println("Credentials deleted")
		return
	}

	// Notification store first: every later component logs through the
	// hooked logger, so its warnings reach the web-facing feed.
	notifications, err := data.NewNotificationRepo(cfg.Storage.NotifDBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open notification store")
	}
	defer notifications.Close()
	log = log.Hook(data.NotificationHook{Repo: notifications})

	// Initialize storage layer
	stores, err := data.NewStores(
		cfg.Storage.StateFile,
		cfg.Storage.SnapshotFile,
		cfg.Avito.ServiceName,
		notifications,
		log,
	)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create stores")
	}

	// Load credentials, prompting for missing ones
	creds, err := usecase.LoadCredentials(stores.Credentials, terminalPrompter{}, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load credentials")
	}

	// Read side and send side each carry their own token lifecycle
	readTokens := avito.NewTokenProvider(cfg.Avito.BaseURL, creds, log)
	sendTokens := avito.NewTokenProvider(cfg.Avito.BaseURL, creds, log)
	reader := avito.NewClient(cfg.Avito.BaseURL, creds.UserID, readTokens, cfg.Monitor.BatchSize, log)
	sender := avito.NewClient(cfg.Avito.BaseURL, creds.UserID, sendTokens, cfg.Monitor.BatchSize, log)

	// Initialize usecase layer
	classifier := domain.NewClassifier(cfg.Monitor.SystemPhrases)
	replyUC := usecase.NewAutoReplyUsecase(sender, stores.State, cfg.AutoReply.Message, cfg.AutoReply.Delay, log)
	engine := usecase.NewMonitorEngine(
		reader,
		stores.State,
		stores.Snapshot,
		replyUC,
		classifier,
		cfg.AutoReply.Enabled,
		cfg.Monitor.MaxChats,
		log,
	)

	// Initialize service layer
	scheduler := service.NewScheduler(engine, log)
	apiServer := api.NewServer(scheduler, engine, stores.Snapshot, stores.Notifications, cfg, log)

	if cfg.Monitor.AutoStart {
		scheduler.Start(cfg.Monitor.CheckInterval)
	} else {
		log.Info().Msg("Auto-start disabled, waiting for /api/start")
	}

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		log.Info().Msg("Shutting down...")
		scheduler.Stop()
		if err := stores.State.Flush(); err != nil {
			log.Error().Err(err).Msg("Failed to flush state")
		}
		apiServer.Stop()
	}()

	log.Info().
		Str("base_url", cfg.Avito.BaseURL).
		Bool("auto_reply", cfg.AutoReply.Enabled).
		Msg("Starting Avito chat monitor")
	if err := apiServer.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("HTTP server error")
	}
}

// newLogger builds the root logger: human-readable console output plus a
// JSON log file.
func newLogger(cfg *conf.Config) (zerolog.Logger, *os.File, error) {
	level := zerolog.InfoLevel
	if cfg.Debug {
		level = zerolog.DebugLevel
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Storage.LogFile), 0o755); err != nil {
		return zerolog.Nop(), nil, err
	}
	logFile, err := os.OpenFile(cfg.Storage.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return zerolog.Nop(), nil, err
	}

	console := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: "15:04:05"}
	log := zerolog.New(zerolog.MultiLevelWriter(console, logFile)).
		Level(level).
		With().
		Timestamp().
		Logger()
	return log, logFile, nil
}

// terminalPrompter reads credential values from the controlling terminal.
// Secret values are read without echo when stdin is a terminal.
type terminalPrompter struct{}

func (terminalPrompter) Prompt(label string, secret bool) (string, error) {
	fmt.Printf("%s: ", label)
	if secret && term.IsTerminal(int(os.Stdin.Fd())) {
		value, err := term.ReadPassword(int(os.Stdin.Fd()))
		fmt.Println()
		if err != nil {
			return "", err
		}
		return string(value), nil
	}

	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}
