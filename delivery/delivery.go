package delivery

import (
	"context"
	"time"

	"github.com/goliatone/go-errors"
	tracker "github.com/goliatone/go-tracker"
	"github.com/goliatone/go-tracker/config"
	"github.com/redis/go-redis/v9"
)

// New builds the mailer selected by cfg.Transport. The returned close
// function releases any connection the mailer holds.
func New(ctx context.Context, cfg config.MailConfig, logger tracker.Logger) (tracker.Mailer, func() error, error) {
	noop := func() error { return nil }

	renderer, err := NewRenderer(cfg.From, nil)
	if err != nil {
		return nil, noop, err
	}

	switch cfg.Transport {
	case "smtp":
		return NewSMTPMailer(renderer, cfg.SMTP.Host, cfg.SMTP.Port,
			WithPlainAuth(cfg.SMTP.Username, cfg.SMTP.Password),
		), noop, nil
	case "redis":
		opts, err := redis.ParseURL(cfg.Redis.URL)
		if err != nil {
			return nil, noop, errors.Wrap(err, errors.CategoryBadInput, "parse redis url")
		}
		client := redis.NewClient(opts)

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			client.Close()
			return nil, noop, errors.Wrap(err, errors.CategoryExternal, "connect to redis").
				WithMetadata(map[string]any{"addr": opts.Addr})
		}
		return NewRedisMailer(renderer, client, cfg.Redis.Stream), client.Close, nil
	case "log", "":
		return NewLogMailer(renderer, logger), noop, nil
	default:
		return nil, noop, errors.New("unknown mail transport "+cfg.Transport, errors.CategoryBadInput)
	}
}
