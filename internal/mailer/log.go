package mailer

import (
	"context"
	"log/slog"
)

// LogMailer records that a message would have been sent and drops it. It is
// only used when email.provider is set to "log" explicitly.
//
// The body carries one-time verification and reset links, so only the
// recipient and subject are logged.
type LogMailer struct {
	logger *slog.Logger
}

func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

func (l *LogMailer) Send(ctx context.Context, msg Message) error {
	l.logger.LogAttrs(ctx, slog.LevelDebug, "email not sent (log mailer)",
		slog.String("to", msg.To),
		slog.String("subject", msg.Subject),
	)
	return nil
}
