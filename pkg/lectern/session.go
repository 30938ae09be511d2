package lectern

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/lecternhq/lectern-go/pkg/jwtx"
	"github.com/lecternhq/lectern-go/pkg/lectern/store"
)

const (
	// RenewalLead is how long before access-token expiry the proactive
	// renewal timer fires.
	RenewalLead = 5 * time.Minute

	// defaultRefreshTimeout bounds a background refresh exchange, which runs
	// without a caller context.
	defaultRefreshTimeout = 30 * time.Second
)

// Session is the in-memory record of the current authentication state.
//
// Invariant: Authenticated implies both tokens are non-empty. The manager
// replaces the whole record in one step; consumers never see a session with
// an access token but no user.
type Session struct {
	User          *User
	AccessToken   string
	RefreshToken  string
	Authenticated bool
}

// refreshOp is one in-flight refresh exchange. Concurrent callers that find
// an op pending wait on done and adopt ok instead of issuing a second
// exchange, which would race on the single-use refresh token.
type refreshOp struct {
	done chan struct{}
	ok   bool
}

// Manager owns the session: it is the single writer of authentication state,
// the scheduler of proactive token renewal, and the choke point that turns
// any terminal auth failure into a clean signed-out state.
//
// Construct one per process with NewManager, call Initialize once at
// startup, and Close when done. All methods are safe for concurrent use.
type Manager struct {
	client *Client
	store  store.Store
	log    *slog.Logger

	now            func() time.Time
	lead           time.Duration
	refreshTimeout time.Duration

	mu       sync.Mutex
	session  Session
	inflight *refreshOp
	renew    *time.Timer

	subMu   sync.Mutex
	subs    map[uint64]chan bool
	nextSub uint64
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithLogger sets the logger for session lifecycle events.
func WithLogger(l *slog.Logger) ManagerOption {
	return func(m *Manager) { m.log = l }
}

// WithClock overrides the manager's time source, for tests.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) { m.now = now }
}

// WithRenewalLead overrides how far before expiry the proactive renewal
// fires. Mostly useful in tests; the default matches the server's token TTL
// expectations.
func WithRenewalLead(lead time.Duration) ManagerOption {
	return func(m *Manager) { m.lead = lead }
}

// NewManager creates a session manager over the given transport and store.
// The manager starts anonymous; call Initialize to restore a persisted
// session.
func NewManager(client *Client, st store.Store, opts ...ManagerOption) *Manager {
	m := &Manager{
		client:         client,
		store:          st,
		log:            slog.Default(),
		now:            time.Now,
		lead:           RenewalLead,
		refreshTimeout: defaultRefreshTimeout,
		subs:           make(map[uint64]chan bool),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Initialize restores the session from the persistent store and, when the
// restored session is authenticated, arms the renewal timer. It never fails:
// a missing, unreadable, or incomplete record just yields the anonymous
// session. No network calls are made.
func (m *Manager) Initialize(ctx context.Context) Session {
	rec, err := m.store.Load(ctx)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			m.log.Warn("session restore failed, starting anonymous", "err", err)
		}
		return m.Current()
	}

	if !rec.Authenticated || rec.AccessToken == "" || rec.RefreshToken == "" {
		return m.Current()
	}

	var user *User
	if len(rec.User) > 0 && string(rec.User) != "null" {
		user = new(User)
		if err := json.Unmarshal(rec.User, user); err != nil {
			m.log.Warn("persisted user record is corrupt, starting anonymous", "err", err)
			return m.Current()
		}
	}

	m.mu.Lock()
	m.session = Session{
		User:          user,
		AccessToken:   rec.AccessToken,
		RefreshToken:  rec.RefreshToken,
		Authenticated: true,
	}
	m.scheduleRenewalLocked()
	s := m.session
	m.mu.Unlock()

	m.notify(true)
	m.log.Debug("session restored", "user", jwtx.Subject(s.AccessToken))
	return s
}

// Login authenticates with email and password. On success the session is
// replaced atomically, persisted, and renewal is scheduled. On failure the
// session is untouched and the transport's error is returned unchanged.
func (m *Manager) Login(ctx context.Context, email, password string) (Session, error) {
	creds, err := m.client.Login(ctx, email, password)
	if err != nil {
		return Session{}, err
	}
	return m.adopt(ctx, creds), nil
}

// Register creates an account and signs in with the returned credentials.
// Failure semantics match Login.
func (m *Manager) Register(ctx context.Context, req RegisterRequest) (Session, error) {
	creds, err := m.client.Register(ctx, req)
	if err != nil {
		return Session{}, err
	}
	return m.adopt(ctx, creds), nil
}

// Logout notifies the server (best-effort, failures are swallowed) and then
// unconditionally clears the session, cancels any pending renewal, and wipes
// the persisted record. Safe to call repeatedly.
func (m *Manager) Logout(ctx context.Context) {
	m.mu.Lock()
	token := m.session.RefreshToken
	m.mu.Unlock()

	if token != "" {
		if err := m.client.Logout(ctx, token); err != nil {
			m.log.Debug("logout notification failed, clearing locally anyway", "err", err)
		}
	}

	m.endSession(ctx)
}

// EnsureValid reports whether the current access token is usable, refreshing
// it first if it is missing, malformed, or expired. The fast path is a pure
// in-memory check. The slow path performs exactly one refresh exchange;
// overlapping callers collapse onto the same in-flight exchange and share
// its outcome.
//
// When the refresh cannot succeed (no refresh token, transport failure, or
// the server rejecting the grant) the session is cleared, the unauthenticated
// signal fires, and EnsureValid returns false.
func (m *Manager) EnsureValid(ctx context.Context) bool {
	m.mu.Lock()

	if m.usableLocked() {
		m.mu.Unlock()
		return true
	}

	if !m.session.Authenticated {
		m.mu.Unlock()
		return false
	}

	if op := m.inflight; op != nil {
		m.mu.Unlock()
		select {
		case <-op.done:
			return op.ok
		case <-ctx.Done():
			return false
		}
	}

	token := m.session.RefreshToken
	if token == "" {
		// Authenticated with no refresh token should be impossible; treat
		// it like a failed refresh.
		m.mu.Unlock()
		m.endSession(ctx)
		return false
	}

	op := &refreshOp{done: make(chan struct{})}
	m.inflight = op
	m.mu.Unlock()

	return m.refreshExchange(ctx, token, op)
}

// IsAuthenticated is a pure read of the session flag. No network or storage
// access, and no expiry check; use EnsureValid before issuing requests.
func (m *Manager) IsAuthenticated() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session.Authenticated
}

// Current returns a copy of the session record.
func (m *Manager) Current() Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session
}

// Subscribe returns a channel that receives the authenticated flag whenever
// it flips. The channel holds only the latest value and never blocks the
// manager. Call cancel to unsubscribe.
func (m *Manager) Subscribe() (<-chan bool, func()) {
	ch := make(chan bool, 1)

	m.subMu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = ch
	m.subMu.Unlock()

	cancel := func() {
		m.subMu.Lock()
		delete(m.subs, id)
		m.subMu.Unlock()
	}
	return ch, cancel
}

// Close cancels the renewal timer and drops all subscribers. It does not log
// the session out; a closed manager simply stops maintaining it.
func (m *Manager) Close() {
	m.mu.Lock()
	m.cancelRenewalLocked()
	m.mu.Unlock()

	m.subMu.Lock()
	m.subs = make(map[uint64]chan bool)
	m.subMu.Unlock()
}

// ============================================================================
// Internals
// ============================================================================

// adopt atomically replaces the session with fresh credentials, persists the
// record, and arms renewal.
func (m *Manager) adopt(ctx context.Context, creds *Credentials) Session {
	m.mu.Lock()
	was := m.session.Authenticated
	m.session = Session{
		User:          creds.User,
		AccessToken:   creds.AccessToken,
		RefreshToken:  creds.RefreshToken,
		Authenticated: true,
	}
	m.persistLocked(ctx)
	m.scheduleRenewalLocked()
	s := m.session
	m.mu.Unlock()

	if !was {
		m.notify(true)
	}
	return s
}

// refreshExchange performs the single refresh exchange behind op. On success
// it swaps the token pair in place (user untouched), persists, and re-arms
// renewal. On any failure it tears the session down. The outcome is recorded
// on op before done is closed so waiters observe it.
func (m *Manager) refreshExchange(ctx context.Context, refreshToken string, op *refreshOp) bool {
	pair, err := m.client.Refresh(ctx, refreshToken)

	m.mu.Lock()
	m.inflight = nil

	if err != nil {
		m.log.Warn("token refresh failed, ending session", "err", err)
		was := m.session.Authenticated
		m.clearLocked(ctx)
		m.mu.Unlock()
		close(op.done)
		if was {
			m.notify(false)
		}
		return false
	}

	if !m.session.Authenticated {
		// Logged out while the exchange was in flight; drop the result.
		m.mu.Unlock()
		close(op.done)
		return false
	}

	m.session.AccessToken = pair.AccessToken
	m.session.RefreshToken = pair.RefreshToken
	m.persistLocked(ctx)
	m.scheduleRenewalLocked()
	op.ok = true
	m.mu.Unlock()
	close(op.done)

	m.log.Debug("access token refreshed")
	return true
}

// endSession clears the session and emits the unauthenticated signal if the
// session was live.
func (m *Manager) endSession(ctx context.Context) {
	m.mu.Lock()
	was := m.session.Authenticated
	m.clearLocked(ctx)
	m.mu.Unlock()

	if was {
		m.notify(false)
	}
}

// clearLocked resets to the anonymous session, cancels renewal, and wipes
// the persisted record. Caller holds m.mu.
func (m *Manager) clearLocked(ctx context.Context) {
	m.cancelRenewalLocked()
	m.session = Session{}
	if err := m.store.Clear(ctx); err != nil {
		m.log.Warn("clearing persisted session failed", "err", err)
	}
}

// persistLocked writes the current session to the store. Persistence
// failures are logged, not surfaced: the in-memory session is still valid
// for this process. Caller holds m.mu.
func (m *Manager) persistLocked(ctx context.Context) {
	userJSON, err := json.Marshal(m.session.User)
	if err != nil {
		m.log.Warn("persisting session failed", "err", err)
		return
	}

	rec := &store.Record{
		User:          userJSON,
		AccessToken:   m.session.AccessToken,
		RefreshToken:  m.session.RefreshToken,
		Authenticated: m.session.Authenticated,
	}
	if err := m.store.Save(ctx, rec); err != nil {
		m.log.Warn("persisting session failed", "err", err)
	}
}

// usableLocked reports whether the access token can back a request right
// now. Malformed tokens count as expired. Caller holds m.mu.
func (m *Manager) usableLocked() bool {
	if m.session.AccessToken == "" {
		return false
	}
	return !jwtx.Expired(m.session.AccessToken, m.now())
}

// notify delivers the authenticated flag to subscribers, keeping only the
// latest value per channel.
func (m *Manager) notify(authed bool) {
	m.subMu.Lock()
	defer m.subMu.Unlock()

	for _, ch := range m.subs {
		select {
		case ch <- authed:
		default:
			// Replace a stale undelivered value.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- authed:
			default:
			}
		}
	}
}
