package queue

import (
	"context"
	"log/slog"
)

// Mailer delivers one newsletter email. The production deployment plugs an
// SMTP or API sender in here.
type Mailer interface {
	Send(ctx context.Context, job EmailJob) error
}

// LogMailer logs the email instead of sending it. Default sender for local
// runs and tests.
type LogMailer struct{}

func (LogMailer) Send(ctx context.Context, job EmailJob) error {
	slog.Info("email delivered",
		"jobId", job.ID,
		"kind", job.Kind,
		"email", job.Email,
		"language", job.Language,
	)
	return nil
}
