package config

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	mail "github.com/go-mail/mail/v2"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

// Mailer delivers one HTML message to a list of recipients.
type Mailer interface {
	Send(ctx context.Context, to []string, subject, html string) error
}

// NewMailer picks the backend named by MAIL_BACKEND. The kafka backend lives
// in the queue package and is selected by the caller.
func NewMailer(cfg *Config) (Mailer, error) {
	switch cfg.MailBackend {
	case "smtp":
		return NewSMTPMailer(cfg), nil
	case "sendgrid":
		if cfg.SendgridAPIKey == "" {
			return nil, fmt.Errorf("sendgrid not configured (SENDGRID_API_KEY)")
		}
		return NewSendgridMailer(cfg.SendgridAPIKey, cfg.SMTPFrom), nil
	case "", "console":
		return NewConsoleMailer(LogWriter), nil
	default:
		return nil, fmt.Errorf("unknown MAIL_BACKEND %q", cfg.MailBackend)
	}
}

// SMTPMailer sends through an SMTP relay with mandatory STARTTLS.
type SMTPMailer struct {
	host       string
	port       int
	user       string
	pass       string
	from       string // e.g. "Faculty Ranker <no-reply@your.org>"
	skipVerify bool
}

func NewSMTPMailer(cfg *Config) *SMTPMailer {
	port := cfg.SMTPPort
	if port == 0 {
		port = 587
	}
	return &SMTPMailer{
		host:       cfg.SMTPHost,
		port:       port,
		user:       cfg.SMTPUser,
		pass:       cfg.SMTPPass,
		from:       cfg.SMTPFrom,
		skipVerify: cfg.SMTPSkipVerify,
	}
}

func (m *SMTPMailer) Send(ctx context.Context, to []string, subject, html string) error {
	if len(to) == 0 {
		return nil
	}
	if m.host == "" || m.from == "" {
		return fmt.Errorf("smtp not configured (SMTP_HOST/SMTP_FROM)")
	}

	msg := mail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to...)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", html)

	d := mail.NewDialer(m.host, m.port, m.user, m.pass)
	d.StartTLSPolicy = mail.MandatoryStartTLS
	d.TLSConfig = &tls.Config{
		ServerName:         m.host,       // must match the relay hostname, e.g. "smtp.gmail.com"
		InsecureSkipVerify: m.skipVerify, // dev only: SMTP_SKIP_TLS_VERIFY=1
	}
	if deadline, ok := ctx.Deadline(); ok {
		d.Timeout = time.Until(deadline)
	}

	errCh := make(chan error, 1)
	go func() { errCh <- d.DialAndSend(msg) }()
	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SendgridMailer sends through the SendGrid v3 API.
type SendgridMailer struct {
	key  string
	from *sgmail.Email
}

const (
	sendgridHost     = "https://api.sendgrid.com"
	sendgridEndpoint = "/v3/mail/send"
)

func NewSendgridMailer(key, from string) *SendgridMailer {
	name, addr := "Faculty Ranker", from
	if i := strings.Index(from, "<"); i >= 0 && strings.HasSuffix(from, ">") {
		name = strings.TrimSpace(from[:i])
		addr = from[i+1 : len(from)-1]
	}
	return &SendgridMailer{key: key, from: sgmail.NewEmail(name, addr)}
}

func (m *SendgridMailer) Send(ctx context.Context, to []string, subject, html string) error {
	if len(to) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	p := sgmail.NewPersonalization()
	p.Subject = subject
	for _, addr := range to {
		p.AddTos(sgmail.NewEmail("", addr))
	}

	v3 := sgmail.NewV3Mail()
	v3.SetFrom(m.from)
	v3.AddPersonalizations(p)
	v3.AddContent(sgmail.NewContent("text/html", html))

	req := sendgrid.GetRequest(m.key, sendgridEndpoint, sendgridHost)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(v3)

	res, err := sendgrid.API(req)
	if err != nil {
		return err
	}
	if res.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("sendgrid: status %d: %s", res.StatusCode, res.Body)
	}
	return nil
}

// ConsoleMailer writes messages to a writer instead of delivering them.
type ConsoleMailer struct {
	out io.Writer
}

func NewConsoleMailer(out io.Writer) *ConsoleMailer {
	return &ConsoleMailer{out: out}
}

func (m *ConsoleMailer) Send(ctx context.Context, to []string, subject, html string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	logger := log.New(m.out, "", log.LstdFlags)
	logger.Printf("[mail] to=%s subject=%q\n%s", strings.Join(to, ","), subject, html)
	return nil
}
