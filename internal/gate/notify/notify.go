// Package notify hands accepted submissions to whoever answers them.
package notify

import (
	"context"
	"log/slog"

	"github.com/aussiebroadwan/agency/internal/gate/domain"
)

// Mailer delivers a submission to the team. Implementations must be safe for
// concurrent use.
type Mailer interface {
	Send(ctx context.Context, s domain.Submission) error
	Close() error
}

// LogMailer writes submissions to the log. Used in development and tests.
type LogMailer struct {
	Logger *slog.Logger
}

func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{Logger: logger}
}

func (m *LogMailer) Send(ctx context.Context, s domain.Submission) error {
	m.Logger.InfoContext(ctx, "submission received",
		slog.String("submission_id", s.ID),
		slog.String("kind", string(s.Kind)),
		slog.String("email", s.Email),
		slog.String("subject", s.Subject),
	)
	return nil
}

func (m *LogMailer) Close() error { return nil }
