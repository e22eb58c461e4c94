package delivery_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/smtp"
	"testing"
	"testing/fstest"

	goerrors "github.com/goliatone/go-errors"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	tracker "github.com/goliatone/go-tracker"
	"github.com/goliatone/go-tracker/config"
	"github.com/goliatone/go-tracker/delivery"
)

var message = tracker.ConfirmationMessage{
	To:       "alice@example.com",
	Username: "alice",
	Code:     "0b6f7c52-3f7e-4c57-9d0c-5b1c2a9e4f11",
}

func newRenderer(t *testing.T) *delivery.Renderer {
	t.Helper()
	r, err := delivery.NewRenderer("no-reply@tracker.local", nil)
	require.NoError(t, err)
	return r
}

func TestRendererUsesEmbeddedTemplate(t *testing.T) {
	env, err := newRenderer(t).Render(message)
	require.NoError(t, err)

	assert.Equal(t, "no-reply@tracker.local", env.From)
	assert.Equal(t, "alice@example.com", env.To)
	assert.Equal(t, delivery.ConfirmationSubject, env.Subject)
	assert.Contains(t, env.Body, "Hello alice,")
	assert.Contains(t, env.Body, message.Code)
}

func TestRendererCustomTemplates(t *testing.T) {
	fsys := fstest.MapFS{
		"confirmation_code.django": {Data: []byte("{{ username }}:{{ code }}")},
	}
	r, err := delivery.NewRenderer("ops@example.com", fsys)
	require.NoError(t, err)

	env, err := r.Render(message)
	require.NoError(t, err)
	assert.Equal(t, "alice:"+message.Code+"\n", env.Body)
}

func TestSMTPMailerDeliver(t *testing.T) {
	var (
		gotAddr string
		gotFrom string
		gotTo   []string
		gotMsg  string
	)
	send := func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, string(msg)
		return nil
	}

	m := delivery.NewSMTPMailer(newRenderer(t), "mail.internal", 2525,
		delivery.WithPlainAuth("relay", "secret"),
		delivery.WithSendFunc(send),
	)
	require.NoError(t, m.Deliver(context.Background(), message))

	assert.Equal(t, "mail.internal:2525", gotAddr)
	assert.Equal(t, "no-reply@tracker.local", gotFrom)
	assert.Equal(t, []string{"alice@example.com"}, gotTo)
	assert.Contains(t, gotMsg, "Subject: Your confirmation code\r\n")
	assert.Contains(t, gotMsg, "To: alice@example.com\r\n")
	assert.Contains(t, gotMsg, message.Code)
}

func TestSMTPMailerFailures(t *testing.T) {
	m := delivery.NewSMTPMailer(newRenderer(t), "mail.internal", 25,
		delivery.WithSendFunc(func(string, smtp.Auth, string, []string, []byte) error {
			return errors.New("421 service not available")
		}),
	)

	err := m.Deliver(context.Background(), message)
	require.Error(t, err)
	var richErr *goerrors.Error
	require.True(t, goerrors.As(err, &richErr))
	assert.Equal(t, goerrors.CategoryExternal, richErr.Category)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, m.Deliver(ctx, message), context.Canceled)
}

type fakeStream struct {
	args []*redis.XAddArgs
	err  error
}

func (f *fakeStream) XAdd(_ context.Context, a *redis.XAddArgs) *redis.StringCmd {
	f.args = append(f.args, a)
	if f.err != nil {
		return redis.NewStringResult("", f.err)
	}
	return redis.NewStringResult("1700000000000-0", nil)
}

func TestRedisMailerDeliver(t *testing.T) {
	stream := &fakeStream{}
	m := delivery.NewRedisMailer(newRenderer(t), stream, "")

	require.NoError(t, m.Deliver(context.Background(), message))
	require.Len(t, stream.args, 1)

	args := stream.args[0]
	assert.Equal(t, "tracker:mail", args.Stream)
	assert.True(t, args.Approx)
	assert.Positive(t, args.MaxLen)

	values, ok := args.Values.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "alice@example.com", values["to"])
	assert.Equal(t, delivery.ConfirmationSubject, values["subject"])
	assert.Contains(t, values["body"], message.Code)
}

func TestRedisMailerFailure(t *testing.T) {
	m := delivery.NewRedisMailer(newRenderer(t), &fakeStream{err: errors.New("READONLY")}, "mail")

	err := m.Deliver(context.Background(), message)
	require.Error(t, err)
	var richErr *goerrors.Error
	require.True(t, goerrors.As(err, &richErr))
	assert.Equal(t, goerrors.CategoryExternal, richErr.Category)
}

func TestLogMailerDeliver(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	m := delivery.NewLogMailer(newRenderer(t), logger)
	require.NoError(t, m.Deliver(context.Background(), message))

	assert.Contains(t, buf.String(), "confirmation message")
	assert.Contains(t, buf.String(), "alice@example.com")
}

func TestNewSelectsTransport(t *testing.T) {
	ctx := context.Background()
	base := config.Defaults().Mail

	mailer, closeFn, err := delivery.New(ctx, base, slog.Default())
	require.NoError(t, err)
	assert.IsType(t, &delivery.LogMailer{}, mailer)
	assert.NoError(t, closeFn())

	smtpCfg := base
	smtpCfg.Transport = "smtp"
	mailer, _, err = delivery.New(ctx, smtpCfg, slog.Default())
	require.NoError(t, err)
	assert.IsType(t, &delivery.SMTPMailer{}, mailer)

	redisCfg := base
	redisCfg.Transport = "redis"
	redisCfg.Redis.URL = "not a url"
	_, _, err = delivery.New(ctx, redisCfg, slog.Default())
	assert.Error(t, err)

	unknown := base
	unknown.Transport = "pigeon"
	_, _, err = delivery.New(ctx, unknown, slog.Default())
	assert.Error(t, err)
}
