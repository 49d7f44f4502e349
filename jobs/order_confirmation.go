package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/smtp"

	"github.com/hibiken/asynq"
)

// Mailer sends transactional mail for queued tasks. With no SMTP host
// configured it logs instead of sending, which keeps local development
// working without a mail server.
type Mailer struct {
	logger *slog.Logger
	host   string
	port   int
	from   string
}

// NewMailer constructs a Mailer.
func NewMailer(logger *slog.Logger, host string, port int, from string) *Mailer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Mailer{logger: logger, host: host, port: port, from: from}
}

// HandleOrderConfirmation processes TaskTypeOrderConfirmation tasks.
func (m *Mailer) HandleOrderConfirmation(ctx context.Context, t *asynq.Task) error {
	var payload OrderConfirmationPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if m.host == "" {
		m.logger.Info("order confirmation (smtp disabled)",
			slog.String("to", payload.To), slog.String("order_number", payload.OrderNumber))
		return nil
	}

	subject := "Order confirmation " + payload.OrderNumber
	body := fmt.Sprintf("Thank you for your order!\r\n\r\nYour order %s has been received and paid.\r\n", payload.OrderNumber)
	msg := []byte("From: " + m.from + "\r\n" +
		"To: " + payload.To + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"\r\n" + body)

	addr := fmt.Sprintf("%s:%d", m.host, m.port)
	if err := smtp.SendMail(addr, nil, m.from, []string{payload.To}, msg); err != nil {
		return fmt.Errorf("jobs: send order confirmation: %w", err)
	}
	m.logger.Info("order confirmation sent",
		slog.String("to", payload.To), slog.String("order_number", payload.OrderNumber))
	return nil
}
