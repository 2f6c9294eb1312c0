package service

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/aussiebroadwan/passage/internal/passage/domain"
	"github.com/aussiebroadwan/passage/internal/passage/store/drivers/sqlite"
	"github.com/aussiebroadwan/passage/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type sentMail struct {
	Kind    string
	To      string
	Payload string
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentMail
	fail bool
}

var errMailDown = errors.New("smtp unavailable")

func (n *recordingNotifier) record(kind, to, payload string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.fail {
		return errMailDown
	}
	n.sent = append(n.sent, sentMail{Kind: kind, To: to, Payload: payload})
	return nil
}

func (n *recordingNotifier) SendVerification(_ context.Context, u domain.User, code string, _ time.Duration) error {
	return n.record("verification", u.Email, code)
}

func (n *recordingNotifier) SendOTP(_ context.Context, u domain.User, code string, _ time.Duration) error {
	return n.record("otp", u.Email, code)
}

func (n *recordingNotifier) SendPasswordReset(_ context.Context, u domain.User, link string) error {
	return n.record("reset", u.Email, link)
}

func (n *recordingNotifier) last(t *testing.T) sentMail {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	require.NotEmpty(t, n.sent, "no mail sent")
	return n.sent[len(n.sent)-1]
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

type testEnv struct {
	path     string
	store    *sqlite.Store
	clock    *fakeClock
	hasher   *cryptox.Argon2Hasher
	tokens   *TokenService
	otps     *OTPService
	notifier *recordingNotifier
	auth     *AuthService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvAt(t, ":memory:")
}

// newFileTestEnv backs the store with a file so that goroutines get their
// own connections and really contend for the write lock.
func newFileTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvAt(t, filepath.Join(t.TempDir(), "passage.db"))
}

func newTestEnvAt(t *testing.T, dsn string) *testEnv {
	t.Helper()

	st, err := sqlite.NewStore(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	require.NoError(t, st.ApplyMigrations())

	clock := newFakeClock()
	hasher := &cryptox.Argon2Hasher{
		Params: cryptox.Params{Memory: 64, Iterations: 1, Parallelism: 1, KeyLength: 16, SaltLength: 8},
		Pepper: "test-pepper",
	}

	tokens, err := NewTokenService("passage-test",
		TokenConfig{Secret: "access-secret", TTL: 15 * time.Minute},
		TokenConfig{Secret: "refresh-secret", TTL: 7 * 24 * time.Hour},
		TokenConfig{Secret: "reset-secret", TTL: 15 * time.Minute},
		clock.Now,
	)
	require.NoError(t, err)

	otps := &OTPService{Store: st, Hasher: hasher, Tokens: tokens, TTL: 10 * time.Minute, Clock: clock.Now}
	notifier := &recordingNotifier{}

	return &testEnv{
		path:     dsn,
		store:    st,
		clock:    clock,
		hasher:   hasher,
		tokens:   tokens,
		otps:     otps,
		notifier: notifier,
		auth: &AuthService{
			Store:            st,
			Hasher:           hasher,
			Tokens:           tokens,
			OTPs:             otps,
			Notifier:         notifier,
			Clock:            clock.Now,
			ResetPasswordURL: "https://app.example/reset-password/",
		},
	}
}

func (e *testEnv) register(t *testing.T, email string) *AuthResult {
	t.Helper()
	res, err := e.auth.Register(context.Background(), RegisterInput{
		Name:     "Alice",
		Email:    email,
		Password: "Str0ng!Password",
	})
	require.NoError(t, err)
	return res
}

// countRows reads a table size through a second connection. Only file
// backed environments can be inspected this way.
func (e *testEnv) countRows(t *testing.T, query string, args ...any) int {
	t.Helper()
	db, err := sql.Open("sqlite", e.path)
	require.NoError(t, err)
	defer db.Close()

	var n int
	require.NoError(t, db.QueryRow(query, args...).Scan(&n))
	return n
}

// runConcurrently starts n calls of fn at once and waits for all of them.
func runConcurrently(n int, fn func(i int) error) []error {
	var (
		wg    sync.WaitGroup
		start = make(chan struct{})
		errs  = make([]error, n)
	)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			errs[i] = fn(i)
		}()
	}
	close(start)
	wg.Wait()
	return errs
}
