package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeSendEmail is the task type for sending transactional emails.
	TaskTypeSendEmail = "mail:send"
	// TaskTypeQuoteExpiry sweeps quotes past their validity deadline.
	TaskTypeQuoteExpiry = "quotes:expire"
)

// SendEmailPayload describes the information required to send an email.
type SendEmailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// NewSendEmailTask constructs an Asynq task.
func NewSendEmailTask(payload SendEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSendEmail, data), nil
}

// HandleSendEmailTask processes TaskTypeSendEmail tasks.
func HandleSendEmailTask(ctx context.Context, t *asynq.Task) error {
	var payload SendEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	// Placeholder delivery: swap for SMTP once the mail relay is provisioned.
	slog.Info("send email", slog.String("to", payload.To), slog.String("subject", payload.Subject))
	return nil
}

// NewQuoteExpiryTask constructs the periodic expiry sweep task.
func NewQuoteExpiryTask() *asynq.Task {
	return asynq.NewTask(TaskTypeQuoteExpiry, nil)
}

// QuoteExpirer flips overdue sent quotes to expired.
type QuoteExpirer interface {
	ExpireOverdue(ctx context.Context) (int, error)
}

// HandleQuoteExpiry builds the handler for TaskTypeQuoteExpiry.
func HandleQuoteExpiry(expirer QuoteExpirer, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, _ *asynq.Task) error {
		n, err := expirer.ExpireOverdue(ctx)
		if err != nil {
			logger.Error("quote expiry sweep failed", slog.Any("error", err))
			return err
		}
		if n > 0 {
			logger.Info("quotes expired", slog.Int("count", n))
		}
		return nil
	}
}
