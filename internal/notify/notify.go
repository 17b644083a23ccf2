// Package notify delivers composed messages to ticket holders.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/smtp"
	"net/url"
	"strconv"
	"strings"

	"github.com/Ritik0712-ai/ecell-ticket-system/internal/logging"
)

var ErrNoRecipient = errors.New("recipient required")

type Message struct {
	To      string
	Subject string
	Body    string
}

// Notifier sends a message. Implementations are side-effecting and may block
// on network I/O.
type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}

// mailtoAddr escapes what PathEscape leaves alone but a mailto address part
// cannot carry literally.
var mailtoAddr = strings.NewReplacer("&", "%26", "+", "%2B", "=", "%3D")

// MailtoLink renders msg as a mailto: URL a browser can open.
func MailtoLink(msg Message) string {
	q := url.Values{}
	q.Set("subject", msg.Subject)
	q.Set("body", msg.Body)
	// mailto readers expect %20, not '+'.
	link := url.URL{
		Scheme:   "mailto",
		Opaque:   mailtoAddr.Replace(url.PathEscape(msg.To)),
		RawQuery: strings.ReplaceAll(q.Encode(), "+", "%20"),
	}
	return link.String()
}

// LogNotifier records messages in the log instead of sending them.
type LogNotifier struct{}

func (LogNotifier) Notify(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return ErrNoRecipient
	}
	logging.Info(ctx, "notification queued",
		slog.String("to", msg.To),
		slog.String("subject", msg.Subject),
		slog.Int("body_bytes", len(msg.Body)),
	)
	return nil
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPNotifier sends plain-text mail through a relay.
type SMTPNotifier struct {
	cfg  SMTPConfig
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPNotifier(cfg SMTPConfig) (*SMTPNotifier, error) {
	if cfg.Host == "" {
		return nil, errors.New("smtp host required")
	}
	if cfg.From == "" {
		return nil, errors.New("smtp from address required")
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	return &SMTPNotifier{cfg: cfg, send: smtp.SendMail}, nil
}

func (n *SMTPNotifier) Notify(ctx context.Context, msg Message) error {
	if msg.To == "" {
		return ErrNoRecipient
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var auth smtp.Auth
	if n.cfg.Username != "" {
		auth = smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.Host)
	}
	addr := n.cfg.Host + ":" + strconv.Itoa(n.cfg.Port)
	if err := n.send(addr, auth, n.cfg.From, []string{msg.To}, n.render(msg)); err != nil {
		return fmt.Errorf("send mail to %s: %w", msg.To, err)
	}
	return nil
}

func (n *SMTPNotifier) render(msg Message) []byte {
	var b strings.Builder
	b.WriteString("From: " + n.cfg.From + "\r\n")
	b.WriteString("To: " + msg.To + "\r\n")
	b.WriteString("Subject: " + msg.Subject + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n\r\n")
	b.WriteString(strings.ReplaceAll(msg.Body, "\n", "\r\n"))
	return []byte(b.String())
}
