package tracker_test

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"golang.org/x/crypto/bcrypt"

	tracker "github.com/goliatone/go-tracker"
	"github.com/goliatone/go-tracker/persistence"
)

const testSigningKey = "0123456789abcdef0123456789abcdef"

type memoryDB struct{}

func (memoryDB) GetDriver() string { return persistence.DriverSQLite }
func (memoryDB) GetDSN() string    { return "file::memory:" }
func (memoryDB) GetDebug() bool    { return false }

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func newTestDB(t *testing.T) *bun.DB {
	t.Helper()
	ctx := context.Background()

	db, err := persistence.Open(ctx, memoryDB{})
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, persistence.Migrate(ctx, db, discardLogger()))
	return db
}

func newTestRepo(t *testing.T) tracker.RepositoryManager {
	t.Helper()
	repo := tracker.NewRepositoryManager(newTestDB(t))
	require.NoError(t, repo.Validate())
	return repo
}

func seedUser(t *testing.T, repo tracker.RepositoryManager, username string, role tracker.UserRole) *tracker.User {
	t.Helper()
	var created *tracker.User
	err := repo.RunInTx(context.Background(), nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		created, err = repo.Users().CreateTx(ctx, tx, &tracker.User{
			Username: username,
			Email:    username + "@example.com",
			Role:     role,
		})
		return err
	})
	require.NoError(t, err)
	return created
}

func newTestTokenService(opts ...tracker.TokenServiceOption) *tracker.TokenServiceImpl {
	opts = append([]tracker.TokenServiceOption{tracker.WithTokenLogger(discardLogger())}, opts...)
	return tracker.NewTokenService("k1", []byte(testSigningKey), 0, "go-tracker", []string{"go-tracker"}, opts...)
}

type capturingSink struct {
	mu     sync.Mutex
	events []tracker.ActivityEvent
}

func (c *capturingSink) Record(_ context.Context, evt tracker.ActivityEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, evt)
	return nil
}

func (c *capturingSink) ofType(kind tracker.ActivityEventType) []tracker.ActivityEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := []tracker.ActivityEvent{}
	for _, evt := range c.events {
		if evt.EventType == kind {
			out = append(out, evt)
		}
	}
	return out
}

// outbox records delivered confirmation messages and can be told to fail.
type outbox struct {
	mu   sync.Mutex
	sent []tracker.ConfirmationMessage
	fail bool
}

var errMailboxDown = errors.New("mailbox unavailable")

func (o *outbox) Deliver(_ context.Context, msg tracker.ConfirmationMessage) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.fail {
		return errMailboxDown
	}
	o.sent = append(o.sent, msg)
	return nil
}

func (o *outbox) last(t *testing.T) tracker.ConfirmationMessage {
	t.Helper()
	o.mu.Lock()
	defer o.mu.Unlock()
	require.NotEmpty(t, o.sent)
	return o.sent[len(o.sent)-1]
}

func newSignupHandler(repo tracker.RepositoryManager, mailer tracker.Mailer, opts ...tracker.RequestSignupOption) *tracker.RequestSignupHandler {
	opts = append([]tracker.RequestSignupOption{
		tracker.WithSignupHashCost(bcrypt.MinCost),
		tracker.WithSignupLogger(discardLogger()),
	}, opts...)
	return tracker.NewRequestSignupHandler(repo, mailer, opts...)
}
