package mail

import (
	"context"
	"fmt"
	"net/smtp"

	"github.com/rs/zerolog"

	"checkout-payments/internal/config"
	"checkout-payments/internal/domain/ports/adapter"
)

// SMTPMailer sends transactional delivery emails over plain SMTP.
// A single platform-wide sending account is used; the seller id on the
// message is kept in the headers for reply routing and auditing.
type SMTPMailer struct {
	cfg config.SMTPConfig
	log *zerolog.Logger

	// send is swappable for tests; defaults to smtp.SendMail.
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPMailer(cfg config.SMTPConfig, logger *zerolog.Logger) *SMTPMailer {
	return &SMTPMailer{cfg: cfg, log: logger, send: smtp.SendMail}
}

func (m *SMTPMailer) Send(ctx context.Context, e adapter.Email) error {
	if m.cfg.Host == "" || m.cfg.Port == "" || m.cfg.Username == "" || m.cfg.Password == "" {
		return fmt.Errorf("smtp credentials not fully configured")
	}
	if e.To == "" {
		return fmt.Errorf("missing recipient")
	}

	from := m.cfg.From
	if from == "" {
		from = m.cfg.Username
	}
	addr := fmt.Sprintf("%s:%s", m.cfg.Host, m.cfg.Port)
	auth := smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)

	msg := []byte(
		"From: " + from + "\r\n" +
			"To: " + e.To + "\r\n" +
			"Subject: " + e.Subject + "\r\n" +
			"X-Seller-Id: " + e.SellerUserID + "\r\n" +
			"MIME-Version: 1.0\r\n" +
			"Content-Type: text/html; charset=UTF-8\r\n" +
			"\r\n" +
			e.HTML,
	)

	if err := m.send(addr, auth, from, []string{e.To}, msg); err != nil {
		return fmt.Errorf("smtp send failed: %w", err)
	}
	m.log.Info().Str("to", e.To).Str("seller_id", e.SellerUserID).Msg("delivery email sent")
	return nil
}
