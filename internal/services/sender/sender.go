// Package sender отправляет письма о событиях биллинга из очереди уведомлений.
package sender

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/magabrotheeeer/flow-builder/internal/lib/sl"
	"github.com/magabrotheeeer/flow-builder/internal/lib/smtp"
	"github.com/magabrotheeeer/flow-builder/internal/models"
)

// Metrics счётчик отправленных писем.
type Metrics interface {
	RecordNotification(kind, outcome string)
}

// Transport открывает SMTP-сессии от имени отправителя From.
type Transport interface {
	Connect() (smtp.Session, error)
	From() string
}

type SenderService struct {
	transport Transport
	metrics   Metrics
	baseURL   string
	log       *slog.Logger
}

// NewSenderService создает новый экземпляр SenderService. baseURL нужен для ссылок в письмах.
func NewSenderService(transport Transport, metrics Metrics, baseURL string, log *slog.Logger) *SenderService {
	return &SenderService{
		transport: transport,
		metrics:   metrics,
		baseURL:   baseURL,
		log:       log,
	}
}

type letter struct {
	subject string
	body    string
}

func (s *SenderService) compose(n models.Notification) (letter, bool) {
	switch n.Kind {
	case models.NotificationWelcome:
		return letter{
			subject: "Welcome to Flow Builder Premium",
			body: "Your subscription is active.\n\n" +
				"You can now create unlimited flows, build flows of any length and share them with a public link.\n\n" +
				"Start building: " + s.baseURL + "/flows",
		}, true
	case models.NotificationCancellation:
		return letter{
			subject: "Your Flow Builder subscription has ended",
			body: "Your premium subscription has been canceled and your account is back on the free plan.\n\n" +
				"Existing flows are kept. Public links stay as they are, but new links need an active subscription.\n\n" +
				"Resubscribe any time: " + s.baseURL + "/pricing",
		}, true
	case models.NotificationPaymentFailed:
		return letter{
			subject: "Payment for Flow Builder failed",
			body: "We could not charge your card for the latest invoice.\n\n" +
				"Please update your payment method to keep premium features: " + s.baseURL + "/settings/billing",
		}, true
	}
	return letter{}, false
}

// SendBillingNotification обработчик сообщений очереди notification.billing.
// Битое сообщение и неизвестный тип подтверждаются без отправки, чтобы не зацикливать очередь.
func (s *SenderService) SendBillingNotification(body []byte) error {
	var message models.Notification
	if err := json.Unmarshal(body, &message); err != nil {
		s.log.Error("failed to unmarshal message body", sl.Err(err))
		return nil
	}
	if message.Email == "" {
		s.log.Warn("notification without recipient dropped", slog.String("user_id", message.UserID))
		return nil
	}

	l, ok := s.compose(message)
	if !ok {
		s.log.Warn("unknown notification kind dropped", slog.String("kind", string(message.Kind)))
		s.metrics.RecordNotification(string(message.Kind), "dropped")
		return nil
	}

	if err := s.sendEmail([]string{message.Email}, l.subject, l.body); err != nil {
		s.metrics.RecordNotification(string(message.Kind), "send_failed")
		return fmt.Errorf("sender.SendBillingNotification: %w", err)
	}
	s.metrics.RecordNotification(string(message.Kind), "sent")
	return nil
}

func (s *SenderService) sendEmail(to []string, subject, bodyText string) error {
	msg := strings.Join([]string{
		"From: " + s.transport.From(),
		"To: " + strings.Join(to, ";"),
		"Subject: " + subject,
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"UTF-8\"",
		"",
		bodyText,
	}, "\r\n")

	client, err := s.transport.Connect()
	if err != nil {
		s.log.Error("failed to connect to SMTP server", sl.Err(err))
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	if err := client.Mail(s.transport.From()); err != nil {
		s.log.Error("failed to set MAIL FROM", slog.String("from", s.transport.From()), sl.Err(err))
		return err
	}

	for _, addr := range to {
		if err := client.Rcpt(addr); err != nil {
			s.log.Error("failed to set RCPT TO", slog.String("recipient", addr), sl.Err(err))
			return err
		}
	}

	wc, err := client.Data()
	if err != nil {
		s.log.Error("failed to get Data writer", sl.Err(err))
		return err
	}

	if _, err = wc.Write([]byte(msg)); err != nil {
		s.log.Error("failed to write email body", sl.Err(err))
		return err
	}

	if err = wc.Close(); err != nil {
		s.log.Error("failed to close Data writer", sl.Err(err))
		return err
	}

	if err = client.Quit(); err != nil {
		s.log.Error("failed to quit SMTP client", sl.Err(err))
		return err
	}

	s.log.Info("email sent successfully", slog.Any("to", to))
	return nil
}
