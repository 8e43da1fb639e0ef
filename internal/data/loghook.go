package data

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/mr0js/avito-monitor/internal/biz/repo"
)

// NotificationHook mirrors warn and error log events into the notification
// store so the dashboard can surface them.
type NotificationHook struct {
	Repo repo.NotificationRepo
}

func (h NotificationHook) Run(e *zerolog.Event, level zerolog.Level, message string) {
	if level < zerolog.WarnLevel || message == "" || h.Repo == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = h.Repo.Add(ctx, level.String(), message)
}
