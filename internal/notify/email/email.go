// Package email sends change notifications over SMTP.
package email

import (
	"context"
	"fmt"
	"net/smtp"
	"strconv"
	"strings"

	"github.com/jordan-wright/email"

	"github.com/JakeFAU/availmon/internal/monitor"
)

// Config holds the sender account and SMTP relay.
type Config struct {
	From     string
	Password string
	SMTPHost string
	SMTPPort int
}

// SendFunc transmits a prepared message. It matches (*email.Email).Send.
type SendFunc func(e *email.Email, addr string, auth smtp.Auth) error

// Notifier implements monitor.Notifier with jordan-wright/email.
type Notifier struct {
	cfg  Config
	send SendFunc
}

// New builds a Notifier. SMTP host and port default to Gmail's submission endpoint.
func New(cfg Config) *Notifier {
	if cfg.SMTPHost == "" {
		cfg.SMTPHost = "smtp.gmail.com"
	}
	if cfg.SMTPPort == 0 {
		cfg.SMTPPort = 587
	}
	return &Notifier{cfg: cfg, send: (*email.Email).Send}
}

// WithSender replaces the transport, mainly for tests.
func (n *Notifier) WithSender(send SendFunc) *Notifier {
	n.send = send
	return n
}

// Notify sends one message addressed to every recipient. Missing credentials
// or recipients return ErrNotConfigured without contacting the relay.
func (n *Notifier) Notify(ctx context.Context, msg monitor.Message) error {
	recipients := cleanRecipients(msg.Recipients)
	if n.cfg.From == "" || n.cfg.Password == "" || len(recipients) == 0 {
		return fmt.Errorf("%w: sender credentials or recipients missing", monitor.ErrNotConfigured)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %v", monitor.ErrNotification, err)
	}

	mail := email.NewEmail()
	mail.From = n.cfg.From
	mail.To = recipients
	mail.Subject = msg.Subject
	mail.Text = []byte(msg.Body)

	addr := n.cfg.SMTPHost + ":" + strconv.Itoa(n.cfg.SMTPPort)
	auth := smtp.PlainAuth("", n.cfg.From, n.cfg.Password, n.cfg.SMTPHost)
	if err := n.send(mail, addr, auth); err != nil {
		return fmt.Errorf("%w: send via %s: %v", monitor.ErrNotification, addr, err)
	}
	return nil
}

func cleanRecipients(in []string) []string {
	out := make([]string, 0, len(in))
	for _, r := range in {
		if r = strings.TrimSpace(r); r != "" {
			out = append(out, r)
		}
	}
	return out
}
