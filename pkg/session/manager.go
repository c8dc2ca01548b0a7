package session

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	apperrors "tourdesk/pkg/errors"
	"tourdesk/pkg/logger"
	"tourdesk/pkg/model"
	"tourdesk/pkg/token"
)

type State string

const (
	StateAnonymous      State = "anonymous"
	StateAuthenticating State = "authenticating"
	StateAuthenticated  State = "authenticated"
	StateRefreshing     State = "refreshing"
)

const (
	refreshKey = KeyAccessToken

	// Tokens this close to exp are treated as expired.
	expiryLeeway = 10 * time.Second

	// Upper bound on one shared refresh, independent of any caller's deadline.
	refreshTimeout = 30 * time.Second

	DefaultAccessTTL = 60 * time.Minute
)

// AuthAPI is the subset of the auth endpoints the manager needs.
// client.AuthClient implements it.
type AuthAPI interface {
	Login(ctx context.Context, username, password string) (*model.LoginResponse, error)
	Refresh(ctx context.Context, refresh string) (string, error)
	Logout(ctx context.Context, refresh string) error
	Profile(ctx context.Context, access string) (*model.User, error)
}

type Option func(*Manager)

// WithStore persists tokens between runs. The default keeps them in memory.
func WithStore(store TokenStore) Option {
	return func(m *Manager) { m.store = store }
}

// WithOnExpired registers the hook fired after a refresh is rejected and the
// session has been torn down.
func WithOnExpired(fn func()) Option {
	return func(m *Manager) { m.onExpired = fn }
}

// WithRefreshInterval overrides the proactive refresh period, which is
// otherwise three quarters of the access token's validity window.
func WithRefreshInterval(d time.Duration) Option {
	return func(m *Manager) { m.interval = d }
}

// Manager owns the token pair and the signed-in user. It is safe for
// concurrent use and implements client.Authorizer.
type Manager struct {
	api       AuthAPI
	store     TokenStore
	log       *logger.Logger
	onExpired func()
	interval  time.Duration
	now       func() time.Time

	mu      sync.RWMutex
	state   State
	access  string
	refresh string
	user    *model.User
	ticking bool

	group singleflight.Group
}

func NewManager(api AuthAPI, log *logger.Logger, opts ...Option) *Manager {
	m := &Manager{
		api:   api,
		store: NewMemoryStore(),
		log:   log,
		now:   time.Now,
		state: StateAnonymous,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Login stores the token pair and user on success. A failed login leaves any
// previous session as it was.
func (m *Manager) Login(ctx context.Context, username, password string) (*model.User, error) {
	m.mu.Lock()
	previous := m.state
	m.state = StateAuthenticating
	m.mu.Unlock()

	resp, err := m.api.Login(ctx, username, password)
	if err != nil {
		m.mu.Lock()
		if m.state == StateAuthenticating {
			m.state = previous
		}
		m.mu.Unlock()
		m.log.Warn("login failed", "username", username, "error", err)
		return nil, err
	}

	user := resp.User
	m.mu.Lock()
	m.access = resp.Access
	m.refresh = resp.Refresh
	m.user = &user
	m.state = StateAuthenticated
	m.mu.Unlock()

	m.persist(ctx, resp.Access, resp.Refresh)
	m.log.Info("logged in", "username", user.Username, "is_staff", user.IsStaff, "is_admin", user.IsAdmin)

	copied := user
	return &copied, nil
}

// Token satisfies client.Authorizer.
func (m *Manager) Token(ctx context.Context) (string, error) {
	return m.EnsureFreshToken(ctx)
}

// EnsureFreshToken returns an access token that is not about to expire,
// refreshing it first when needed. Concurrent callers share one refresh.
func (m *Manager) EnsureFreshToken(ctx context.Context) (string, error) {
	m.mu.RLock()
	access, refresh := m.access, m.refresh
	m.mu.RUnlock()

	if access != "" && m.fresh(access) {
		return access, nil
	}
	if refresh == "" {
		return "", apperrors.AuthExpired("not logged in", nil)
	}
	return m.refreshOnce(ctx, access)
}

// ForceRefresh is called after the server rejected stale with a 401. When
// another caller has already replaced stale, the newer token is returned
// without a second refresh.
func (m *Manager) ForceRefresh(ctx context.Context, stale string) (string, error) {
	m.mu.RLock()
	current, refresh := m.access, m.refresh
	m.mu.RUnlock()

	if current != "" && current != stale {
		return current, nil
	}
	if refresh == "" {
		return "", apperrors.AuthExpired("not logged in", nil)
	}
	return m.refreshOnce(ctx, stale)
}

// refreshOnce joins the in-flight refresh or starts one. The refresh runs
// detached from ctx, so a caller that gives up only abandons its own wait.
func (m *Manager) refreshOnce(ctx context.Context, stale string) (string, error) {
	ch := m.group.DoChan(refreshKey, func() (any, error) {
		rctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), refreshTimeout)
		defer cancel()
		return m.doRefresh(rctx, stale)
	})

	select {
	case <-ctx.Done():
		return "", apperrors.Network("gave up waiting for token refresh", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

func (m *Manager) doRefresh(ctx context.Context, stale string) (string, error) {
	m.mu.Lock()
	if m.access != stale && m.access != "" && m.fresh(m.access) {
		current := m.access
		m.mu.Unlock()
		return current, nil
	}
	refresh := m.refresh
	if refresh == "" {
		m.mu.Unlock()
		return "", apperrors.AuthExpired("not logged in", nil)
	}
	m.state = StateRefreshing
	m.mu.Unlock()

	access, err := m.api.Refresh(ctx, refresh)
	if err != nil {
		if !rejected(err) {
			m.mu.Lock()
			if m.state == StateRefreshing {
				m.state = StateAuthenticated
			}
			m.mu.Unlock()
			m.log.Warn("token refresh failed, keeping session", "error", err)
			return "", err
		}
		m.log.Warn("token refresh rejected, ending session", "error", err)
		m.teardown(ctx, true)
		return "", apperrors.AuthExpired("session expired, please log in again", err)
	}

	m.mu.Lock()
	if m.refresh != refresh {
		// Logged out or logged in again while the request was in flight.
		m.mu.Unlock()
		return "", apperrors.AuthExpired("session ended during refresh", nil)
	}
	m.access = access
	m.state = StateAuthenticated
	m.mu.Unlock()

	m.persist(ctx, access, refresh)
	m.log.Debug("access token refreshed")
	return access, nil
}

// rejected reports whether the server refused the refresh token, as opposed
// to the request failing on the way.
func rejected(err error) bool {
	return apperrors.HasCode(err, apperrors.CodeAuthExpired) || apperrors.ClientFault(err)
}

// Logout tells the server to revoke the refresh token when it can and always
// clears the local session.
func (m *Manager) Logout(ctx context.Context) {
	m.mu.RLock()
	refresh := m.refresh
	m.mu.RUnlock()

	if refresh != "" {
		if err := m.api.Logout(ctx, refresh); err != nil {
			m.log.Warn("server logout failed, clearing local session anyway", "error", err)
		}
	}
	m.teardown(ctx, false)
	m.log.Info("logged out")
}

func (m *Manager) teardown(ctx context.Context, expired bool) {
	m.mu.Lock()
	m.access = ""
	m.refresh = ""
	m.user = nil
	m.state = StateAnonymous
	m.mu.Unlock()

	if err := m.store.Clear(ctx); err != nil {
		m.log.Error("failed to clear stored session", "error", err)
	}
	if expired && m.onExpired != nil {
		m.onExpired()
	}
}

func (m *Manager) persist(ctx context.Context, access, refresh string) {
	if err := m.store.Save(ctx, &Tokens{Access: access, Refresh: refresh}); err != nil {
		m.log.Error("failed to persist session", "error", err)
	}
}

func (m *Manager) fresh(access string) bool {
	exp, err := token.ExpiresAt(access)
	if err != nil {
		return false
	}
	return m.now().Add(expiryLeeway).Before(exp)
}

// IsAuthenticated is true while a non-expired access token is held.
func (m *Manager) IsAuthenticated() bool {
	m.mu.RLock()
	access := m.access
	m.mu.RUnlock()
	return access != "" && m.fresh(access)
}

// IsAdmin is true when authenticated as a staff or admin user.
func (m *Manager) IsAdmin() bool {
	if !m.IsAuthenticated() {
		return false
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.user != nil && m.user.CanManageBookings()
}

func (m *Manager) User() *model.User {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.user == nil {
		return nil
	}
	copied := *m.user
	return &copied
}

func (m *Manager) State() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Restore reloads a persisted session and fetches the profile. Stored
// tokens the server no longer accepts are cleared and the session stays
// anonymous; network failures are returned with the tokens kept.
func (m *Manager) Restore(ctx context.Context) error {
	tokens, err := m.store.Load(ctx)
	if err != nil {
		return err
	}
	if tokens == nil || tokens.Refresh == "" {
		return nil
	}

	m.mu.Lock()
	m.access = tokens.Access
	m.refresh = tokens.Refresh
	m.state = StateAuthenticated
	m.mu.Unlock()

	access, err := m.EnsureFreshToken(ctx)
	if err != nil {
		return err
	}

	user, err := m.api.Profile(ctx, access)
	if err != nil {
		if rejected(err) {
			m.teardown(ctx, true)
			return apperrors.AuthExpired("stored session is no longer valid", err)
		}
		return err
	}

	m.mu.Lock()
	m.user = user
	m.mu.Unlock()
	m.log.Info("session restored", "username", user.Username)
	return nil
}

// StartAutoRefresh refreshes the access token in the background until ctx
// is done. Calling it again while running is a no-op.
func (m *Manager) StartAutoRefresh(ctx context.Context) {
	m.mu.Lock()
	if m.ticking {
		m.mu.Unlock()
		return
	}
	m.ticking = true
	m.mu.Unlock()

	go func() {
		defer func() {
			m.mu.Lock()
			m.ticking = false
			m.mu.Unlock()
		}()

		timer := time.NewTimer(m.refreshInterval())
		defer timer.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-timer.C:
			}

			m.mu.RLock()
			access, refresh := m.access, m.refresh
			m.mu.RUnlock()

			if refresh != "" {
				if _, err := m.refreshOnce(ctx, access); err != nil {
					m.log.Warn("scheduled token refresh failed", "error", err)
				}
			}
			timer.Reset(m.refreshInterval())
		}
	}()
}

func (m *Manager) refreshInterval() time.Duration {
	if m.interval > 0 {
		return m.interval
	}

	window := DefaultAccessTTL
	m.mu.RLock()
	access := m.access
	m.mu.RUnlock()
	if access != "" {
		if issued, expires, err := token.Lifetime(access); err == nil && !issued.IsZero() && expires.After(issued) {
			window = expires.Sub(issued)
		}
	}
	return window * 3 / 4
}
