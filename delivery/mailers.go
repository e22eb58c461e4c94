package delivery

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"

	"github.com/goliatone/go-errors"
	tracker "github.com/goliatone/go-tracker"
	"github.com/redis/go-redis/v9"
)

// SendFunc matches smtp.SendMail.
type SendFunc func(addr string, a smtp.Auth, from string, to []string, msg []byte) error

// SMTPMailer delivers messages synchronously through an SMTP relay.
type SMTPMailer struct {
	renderer *Renderer
	addr     string
	auth     smtp.Auth
	send     SendFunc
}

type SMTPOption func(*SMTPMailer)

// WithPlainAuth enables PLAIN authentication against the relay host.
func WithPlainAuth(username, password string) SMTPOption {
	return func(m *SMTPMailer) {
		if username == "" {
			return
		}
		host, _, _ := net.SplitHostPort(m.addr)
		m.auth = smtp.PlainAuth("", username, password, host)
	}
}

// WithSendFunc replaces smtp.SendMail
func WithSendFunc(fn SendFunc) SMTPOption {
	return func(m *SMTPMailer) {
		if fn != nil {
			m.send = fn
		}
	}
}

func NewSMTPMailer(renderer *Renderer, host string, port int, opts ...SMTPOption) *SMTPMailer {
	m := &SMTPMailer{
		renderer: renderer,
		addr:     net.JoinHostPort(host, strconv.Itoa(port)),
		send:     smtp.SendMail,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *SMTPMailer) Deliver(ctx context.Context, msg tracker.ConfirmationMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	env, err := m.renderer.Render(msg)
	if err != nil {
		return err
	}

	if err := m.send(m.addr, m.auth, env.From, []string{env.To}, formatMessage(env)); err != nil {
		return errors.Wrap(err, errors.CategoryExternal, "smtp delivery failed").
			WithMetadata(map[string]any{"addr": m.addr})
	}
	return nil
}

func formatMessage(env Envelope) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", env.From)
	fmt.Fprintf(&b, "To: %s\r\n", env.To)
	fmt.Fprintf(&b, "Subject: %s\r\n", env.Subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=utf-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(env.Body, "\n", "\r\n"))
	return []byte(b.String())
}

// StreamAdder is the part of a redis client used by RedisMailer.
type StreamAdder interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

// RedisMailer appends rendered messages to a Redis stream. A separate
// worker is expected to consume the stream and send the mail.
type RedisMailer struct {
	renderer *Renderer
	client   StreamAdder
	stream   string
	maxLen   int64
}

func NewRedisMailer(renderer *Renderer, client StreamAdder, stream string) *RedisMailer {
	if stream == "" {
		stream = "tracker:mail"
	}
	return &RedisMailer{
		renderer: renderer,
		client:   client,
		stream:   stream,
		maxLen:   10000,
	}
}

func (m *RedisMailer) Deliver(ctx context.Context, msg tracker.ConfirmationMessage) error {
	env, err := m.renderer.Render(msg)
	if err != nil {
		return err
	}

	args := &redis.XAddArgs{
		Stream: m.stream,
		MaxLen: m.maxLen,
		Approx: true,
		Values: map[string]any{
			"from":    env.From,
			"to":      env.To,
			"subject": env.Subject,
			"body":    env.Body,
		},
	}

	if err := m.client.XAdd(ctx, args).Err(); err != nil {
		return errors.Wrap(err, errors.CategoryExternal, "enqueue confirmation message").
			WithMetadata(map[string]any{"stream": m.stream})
	}
	return nil
}

// LogMailer writes messages to the logger. Development only, the code is
// logged in clear text.
type LogMailer struct {
	renderer *Renderer
	logger   tracker.Logger
}

func NewLogMailer(renderer *Renderer, logger tracker.Logger) *LogMailer {
	return &LogMailer{renderer: renderer, logger: logger}
}

func (m *LogMailer) Deliver(_ context.Context, msg tracker.ConfirmationMessage) error {
	env, err := m.renderer.Render(msg)
	if err != nil {
		return err
	}
	m.logger.Info("confirmation message", "to", env.To, "subject", env.Subject, "body", env.Body)
	return nil
}
