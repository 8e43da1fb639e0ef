package usecase

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/mr0js/avito-monitor/internal/biz/domain"
	"github.com/mr0js/avito-monitor/internal/biz/repo"
)

// AutoReplyUsecase sends the templated reply to a chat at most once for the
// lifetime of the persisted reply state.
type AutoReplyUsecase struct {
	sender  repo.MessageSender
	state   repo.StateStore
	message string
	delay   time.Duration
	log     zerolog.Logger
}

// NewAutoReplyUsecase creates the dispatcher.
func NewAutoReplyUsecase(sender repo.MessageSender, state repo.StateStore, message string, delay time.Duration, log zerolog.Logger) *AutoReplyUsecase {
	return &AutoReplyUsecase{
		sender:  sender,
		state:   state,
		message: message,
		delay:   delay,
		log:     log.With().Str("component", "autoreply").Logger(),
	}
}

// SendReply sends one auto-reply. Failures come back in the result, never
// as an error: the caller logs and continues. The replied marking is
// persisted before returning a success.
func (u *AutoReplyUsecase) SendReply(ctx context.Context, chatID, userName string) domain.SendResult {
	if u.state.HasReplied(chatID) {
		u.log.Info().Str("chat_id", chatID).Str("user", userName).Msg("Already replied to chat, skipping")
		return domain.SendResult{Status: domain.SendStatusAlreadyReplied}
	}

	u.log.Info().Str("chat_id", chatID).Str("user", userName).Msg("Sending auto-reply")
	msgID, err := u.sender.SendText(ctx, chatID, u.message)
	if err != nil {
		u.log.Error().Err(err).Str("chat_id", chatID).Str("user", userName).Msg("Failed to send auto-reply")
		return domain.SendResult{Status: domain.SendStatusFailed, Err: err}
	}

	if err := u.state.MarkReplied(chatID); err != nil {
		// Best-effort persistence; the in-memory marking still holds.
		u.log.Error().Err(err).Str("chat_id", chatID).Msg("Failed to persist replied marking")
	}

	u.log.Info().Str("chat_id", chatID).Str("user", userName).Msg("Auto-reply sent")
	return domain.SendResult{Status: domain.SendStatusSent, MessageID: msgID}
}

// ProcessBatch sends one reply per chat of the non-system messages, in
// input order, with a fixed delay between sends. A chat appearing through
// multiple messages in the batch is attempted only once: the first send
// marks it replied and later attempts short-circuit.
func (u *AutoReplyUsecase) ProcessBatch(ctx context.Context, messages []*domain.Message) ([]domain.SentReply, []domain.FailedReply) {
	var regular []*domain.Message
	for _, msg := range messages {
		if !msg.IsSystem {
			regular = append(regular, msg)
		}
	}
	if len(regular) == 0 {
		u.log.Info().Msg("Only system messages found, no auto-replies to send")
		return nil, nil
	}

	u.log.Info().Int("count", len(regular)).Msg("Processing auto-replies")

	var sent []domain.SentReply
	var failed []domain.FailedReply
	for i, msg := range regular {
		result := u.SendReply(ctx, msg.ChatID, msg.UserName)
		switch result.Status {
		case domain.SendStatusSent:
			sent = append(sent, domain.SentReply{
				ChatID:            msg.ChatID,
				UserName:          msg.UserName,
				MessageID:         result.MessageID,
				OriginalMessageID: msg.MessageID,
				Timestamp:         time.Now(),
			})
		case domain.SendStatusFailed:
			failed = append(failed, domain.FailedReply{
				ChatID:   msg.ChatID,
				UserName: msg.UserName,
				Error:    result.Err.Error(),
			})
		}

		if i < len(regular)-1 && u.delay > 0 {
			time.Sleep(u.delay)
		}
	}

	if len(sent) > 0 {
		u.log.Info().Int("count", len(sent)).Msg("Auto-replies sent")
	}
	if len(failed) > 0 {
		u.log.Warn().Int("count", len(failed)).Msg("Auto-replies failed")
	}
	return sent, failed
}
