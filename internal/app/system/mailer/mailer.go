// internal/app/system/mailer/mailer.go
package mailer

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"
)

// Email is a single outbound message.
type Email struct {
	To       string
	ToName   string
	Subject  string
	TextBody string
	HTMLBody string

	ReplyTo     string // optional
	ReplyToName string
}

// Mailer delivers email.
type Mailer interface {
	Send(ctx context.Context, msg Email) error
}

// Config selects and configures the backend.
type Config struct {
	SendGridAPIKey string // empty selects the log backend
	From           string
	FromName       string
	Host           string // SendGrid API base URL; empty means the public API
}

// New returns a SendGrid mailer when an API key is configured and a
// log-only mailer otherwise.
func New(cfg Config, logger *zap.Logger) Mailer {
	if cfg.SendGridAPIKey == "" {
		logger.Info("mailer: no sendgrid key configured, emails will be logged only")
		return &LogMailer{log: logger}
	}
	host := cfg.Host
	if host == "" {
		host = sendgridHost
	}
	return &SendGrid{
		key:        cfg.SendGridAPIKey,
		host:       host,
		from:       sgmail.NewEmail(cfg.FromName, cfg.From),
		subjPrefix: "[" + cfg.FromName + "] ",
		log:        logger,
	}
}

const (
	sendgridHost     = "https://api.sendgrid.com"
	sendgridEndpoint = "/v3/mail/send"
)

// SendGrid sends mail through the SendGrid v3 API.
type SendGrid struct {
	key        string
	host       string
	from       *sgmail.Email
	subjPrefix string
	log        *zap.Logger
}

func (s *SendGrid) prepare(msg Email) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = s.subjPrefix + msg.Subject
	p.AddTos(sgmail.NewEmail(msg.ToName, msg.To))

	m := sgmail.NewV3Mail()
	m.SetFrom(s.from)
	m.AddPersonalizations(p)
	if msg.ReplyTo != "" {
		m.SetReplyTo(sgmail.NewEmail(msg.ReplyToName, msg.ReplyTo))
	}
	m.AddContent(sgmail.NewContent("text/plain", msg.TextBody))
	if msg.HTMLBody != "" {
		m.AddContent(sgmail.NewContent("text/html", msg.HTMLBody))
	}
	return m
}

// Send posts msg to SendGrid. A 4xx/5xx response is returned as an error.
// The request is abandoned when ctx ends.
func (s *SendGrid) Send(ctx context.Context, msg Email) error {
	req := sendgrid.GetRequest(s.key, sendgridEndpoint, s.host)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(s.prepare(msg))

	res, err := sendgrid.MakeRequestWithContext(ctx, req)
	if err != nil {
		return fmt.Errorf("sendgrid: %w", err)
	}
	if res.StatusCode >= http.StatusBadRequest {
		s.log.Warn("sendgrid rejected message",
			zap.Int("status", res.StatusCode),
			zap.String("body", res.Body))
		return fmt.Errorf("sendgrid: status %d", res.StatusCode)
	}
	return nil
}

// LogMailer writes messages to the log instead of sending them.
type LogMailer struct {
	log *zap.Logger
}

// Send logs msg.
func (l *LogMailer) Send(_ context.Context, msg Email) error {
	l.log.Info("email (not sent)",
		zap.String("to", msg.To),
		zap.String("subject", msg.Subject))
	return nil
}

// Recorder keeps sent messages in memory. Used in tests.
type Recorder struct {
	mu   sync.Mutex
	sent []Email
	Err  error
}

// Send records msg, or returns Err when set.
func (r *Recorder) Send(_ context.Context, msg Email) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.Err != nil {
		return r.Err
	}
	r.sent = append(r.sent, msg)
	return nil
}

// Sent returns a copy of the recorded messages.
func (r *Recorder) Sent() []Email {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Email(nil), r.sent...)
}
