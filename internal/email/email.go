package email

import (
	"context"
	"fmt"
	"html"
	"log/slog"

	"github.com/ErlanBelekov/workflow-scheduler/internal/domain"
	"github.com/resend/resend-go/v2"
)

type Sender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// LogSender writes emails to the log instead of sending them. Used in ENV=local.
type LogSender struct {
	logger *slog.Logger
}

func (s *LogSender) Send(ctx context.Context, to, subject, body string) error {
	s.logger.InfoContext(ctx, "email (local dev)", "to", to, "subject", subject, "body", body)
	return nil
}

// ResendSender sends emails through the Resend API.
type ResendSender struct {
	client *resend.Client
	from   string
}

func (s *ResendSender) Send(ctx context.Context, to, subject, body string) error {
	params := &resend.SendEmailRequest{
		From:    s.from,
		To:      []string{to},
		Subject: subject,
		Html:    body,
	}
	if _, err := s.client.Emails.SendWithContext(ctx, params); err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	return nil
}

// NewSender returns a LogSender for ENV=local, ResendSender otherwise.
func NewSender(env, apiKey, from string, logger *slog.Logger) Sender {
	if env == "local" {
		return &LogSender{logger: logger.With("component", "email")}
	}
	return &ResendSender{
		client: resend.NewClient(apiKey),
		from:   from,
	}
}

// ScheduleDisabled renders the notice sent to a workflow owner after the
// dispatcher gives up on a schedule.
func ScheduleDisabled(workflow *domain.Workflow, s *domain.Schedule) (subject, body string) {
	name := workflow.Name
	if name == "" {
		name = workflow.ID
	}
	lastError := "unknown error"
	if s.LastError != nil && *s.LastError != "" {
		lastError = *s.LastError
	}

	subject = fmt.Sprintf("Schedule for %q was disabled", name)
	body = fmt.Sprintf(
		`<p>The schedule <code>%s</code> (%s) of workflow <strong>%s</strong> failed %d times in a row and has been disabled.</p>`+
			`<p>Last error: <code>%s</code></p>`+
			`<p>Fix the workflow and reactivate the schedule to resume runs.</p>`,
		html.EscapeString(s.CronExpression),
		html.EscapeString(s.Timezone),
		html.EscapeString(name),
		s.FailedCount,
		html.EscapeString(lastError),
	)
	return subject, body
}
