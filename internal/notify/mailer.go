package notify

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"lumator/internal/errs"

	"github.com/rs/zerolog/log"
	"gopkg.in/gomail.v2"
)

// DefaultBody is used when the body template file is missing or empty.
const DefaultBody = "Please find the forecast file attached"

// Sender delivers composed messages. *gomail.Dialer satisfies it.
type Sender interface {
	DialAndSend(m ...*gomail.Message) error
}

// Config describes the report message.
type Config struct {
	From     string
	To       []string
	Subject  string
	BodyFile string
}

// Mailer sends the forecast report as an attachment.
type Mailer struct {
	cfg    Config
	sender Sender
}

// NewMailer creates a mailer that relays through sender.
func NewMailer(cfg Config, sender Sender) *Mailer {
	return &Mailer{cfg: cfg, sender: sender}
}

// NewSMTPMailer creates a mailer backed by a gomail SMTP dialer.
func NewSMTPMailer(cfg Config, host string, port int, username, password string) *Mailer {
	return NewMailer(cfg, gomail.NewDialer(host, port, username, password))
}

// Body returns the message text from the template file or DefaultBody.
func (m *Mailer) Body() string {
	if m.cfg.BodyFile == "" {
		return DefaultBody
	}
	data, err := os.ReadFile(m.cfg.BodyFile)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Warn().Err(err).Str("path", m.cfg.BodyFile).Msg("Failed to read mail body, using default")
		}
		return DefaultBody
	}
	if body := strings.TrimSpace(string(data)); body != "" {
		return body
	}
	return DefaultBody
}

// Compose builds the message with the report attached.
func (m *Mailer) Compose(reportPath string) (*gomail.Message, error) {
	if len(m.cfg.To) == 0 {
		return nil, fmt.Errorf("%w: no recipients configured", errs.ErrDelivery)
	}
	if info, err := os.Stat(reportPath); err != nil || info.IsDir() {
		return nil, fmt.Errorf("%w: attachment %s is not readable", errs.ErrDelivery, reportPath)
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.cfg.From)
	msg.SetHeader("To", m.cfg.To...)
	msg.SetHeader("Subject", m.cfg.Subject)
	msg.SetBody("text/plain", m.Body())
	msg.Attach(reportPath)
	return msg, nil
}

// Send mails the report. The SMTP exchange is not cancellable once started.
func (m *Mailer) Send(ctx context.Context, reportPath string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg, err := m.Compose(reportPath)
	if err != nil {
		return err
	}
	if err := m.sender.DialAndSend(msg); err != nil {
		return fmt.Errorf("%w: send report: %v", errs.ErrDelivery, err)
	}
	log.Info().Strs("to", m.cfg.To).Str("attachment", reportPath).Msg("Report mailed")
	return nil
}
