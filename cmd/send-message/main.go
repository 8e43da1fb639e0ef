package main

import (
	"context"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/mr0js/avito-monitor/internal/biz/usecase"
	"github.com/mr0js/avito-monitor/internal/conf"
	"github.com/mr0js/avito-monitor/internal/data"
	"github.com/mr0js/avito-monitor/internal/infra/avito"
)

// One-shot sender for manual testing: send-message <chat_id> <message>.
func main() {
	godotenv.Load()

	if len(os.Args) < 3 {
		fmt.Println("Usage: send-message <chat_id> <message>")
		os.Exit(1)
	}
	chatID := os.Args[1]
	message := os.Args[2]

	cfg := conf.LoadFromEnv()
	if err := cfg.Validate(); err != nil {
		fmt.Printf("Error: invalid config: %v\n", err)
		os.Exit(1)
	}

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}).
		Level(zerolog.WarnLevel).
		With().
		Timestamp().
		Logger()

	store := data.NewKeyringStore(cfg.Avito.ServiceName)
	creds, err := usecase.LoadCredentials(store, nil, log)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	tokens := avito.NewTokenProvider(cfg.Avito.BaseURL, creds, log)
	client := avito.NewClient(cfg.Avito.BaseURL, creds.UserID, tokens, cfg.Monitor.BatchSize, log)

	msgID, err := client.SendText(context.Background(), chatID, message)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Message sent successfully! id=%s\n", msgID)
}
