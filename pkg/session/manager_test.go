package session

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "tourdesk/pkg/errors"
	"tourdesk/pkg/logger"
	"tourdesk/pkg/model"
	"tourdesk/pkg/token"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type mockAuthAPI struct {
	LoginFunc   func(ctx context.Context, username, password string) (*model.LoginResponse, error)
	RefreshFunc func(ctx context.Context, refresh string) (string, error)
	LogoutFunc  func(ctx context.Context, refresh string) error
	ProfileFunc func(ctx context.Context, access string) (*model.User, error)

	refreshes int32
}

func (m *mockAuthAPI) Login(ctx context.Context, username, password string) (*model.LoginResponse, error) {
	return m.LoginFunc(ctx, username, password)
}

func (m *mockAuthAPI) Refresh(ctx context.Context, refresh string) (string, error) {
	atomic.AddInt32(&m.refreshes, 1)
	return m.RefreshFunc(ctx, refresh)
}

func (m *mockAuthAPI) Logout(ctx context.Context, refresh string) error {
	if m.LogoutFunc == nil {
		return nil
	}
	return m.LogoutFunc(ctx, refresh)
}

func (m *mockAuthAPI) Profile(ctx context.Context, access string) (*model.User, error) {
	return m.ProfileFunc(ctx, access)
}

func pair(t *testing.T, user *model.User, accessTTL time.Duration) (string, string) {
	t.Helper()
	access, refresh, err := token.NewManager(testSecret, accessTTL, 24*time.Hour).Pair(user)
	require.NoError(t, err)
	return access, refresh
}

func freshAccess(t *testing.T) string {
	access, _ := pair(t, &model.User{ID: "1", Username: "admin"}, time.Hour)
	return access
}

// loggedIn returns a manager holding an access token with the given TTL.
func loggedIn(t *testing.T, api *mockAuthAPI, user model.User, accessTTL time.Duration, opts ...Option) *Manager {
	t.Helper()
	access, refresh := pair(t, &user, accessTTL)
	api.LoginFunc = func(context.Context, string, string) (*model.LoginResponse, error) {
		return &model.LoginResponse{Access: access, Refresh: refresh, User: user}, nil
	}
	m := NewManager(api, logger.Discard(), opts...)
	_, err := m.Login(context.Background(), user.Username, "secret")
	require.NoError(t, err)
	return m
}

func TestLogin(t *testing.T) {
	store := NewMemoryStore()
	api := &mockAuthAPI{}
	m := loggedIn(t, api, model.User{ID: "1", Username: "admin", IsStaff: true}, time.Hour, WithStore(store))

	assert.Equal(t, StateAuthenticated, m.State())
	assert.True(t, m.IsAuthenticated())
	assert.True(t, m.IsAdmin())
	assert.Equal(t, "admin", m.User().Username)

	stored, err := store.Load(context.Background())
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.NotEmpty(t, stored.Access)
	assert.NotEmpty(t, stored.Refresh)
}

func TestLogin_FailureStoresNothing(t *testing.T) {
	store := NewMemoryStore()
	api := &mockAuthAPI{
		LoginFunc: func(context.Context, string, string) (*model.LoginResponse, error) {
			return nil, apperrors.Server(http.StatusUnauthorized, "No active account found with the given credentials")
		},
	}
	m := NewManager(api, logger.Discard(), WithStore(store))

	_, err := m.Login(context.Background(), "admin", "wrong")
	require.Error(t, err)
	assert.Equal(t, "No active account found with the given credentials", apperrors.AsAppError(err).Message)
	assert.Equal(t, StateAnonymous, m.State())
	assert.False(t, m.IsAuthenticated())

	stored, _ := store.Load(context.Background())
	assert.Nil(t, stored)
}

func TestEnsureFreshToken_FreshTokenSkipsRefresh(t *testing.T) {
	api := &mockAuthAPI{}
	m := loggedIn(t, api, model.User{ID: "1", Username: "admin"}, time.Hour)

	_, err := m.EnsureFreshToken(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(0), atomic.LoadInt32(&api.refreshes))
}

func TestEnsureFreshToken_Anonymous(t *testing.T) {
	m := NewManager(&mockAuthAPI{}, logger.Discard())

	_, err := m.EnsureFreshToken(context.Background())
	assert.True(t, apperrors.HasCode(err, apperrors.CodeAuthExpired))
}

func TestEnsureFreshToken_SingleFlight(t *testing.T) {
	next := freshAccess(t)
	api := &mockAuthAPI{
		RefreshFunc: func(context.Context, string) (string, error) {
			time.Sleep(50 * time.Millisecond)
			return next, nil
		},
	}
	m := loggedIn(t, api, model.User{ID: "1", Username: "admin", IsStaff: true}, -time.Minute)
	require.False(t, m.IsAuthenticated())

	const callers = 10
	var wg sync.WaitGroup
	tokens := make([]string, callers)
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tokens[i], errs[i] = m.EnsureFreshToken(context.Background())
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&api.refreshes))
	for i := 0; i < callers; i++ {
		require.NoError(t, errs[i])
		assert.Equal(t, next, tokens[i])
	}
	assert.Equal(t, StateAuthenticated, m.State())
	assert.True(t, m.IsAdmin())
}

func TestEnsureFreshToken_RejectedRefreshTearsDown(t *testing.T) {
	var expired int32
	store := NewMemoryStore()
	api := &mockAuthAPI{
		RefreshFunc: func(context.Context, string) (string, error) {
			time.Sleep(20 * time.Millisecond)
			return "", apperrors.Server(http.StatusUnauthorized, "Token is invalid or expired")
		},
	}
	m := loggedIn(t, api, model.User{ID: "1", Username: "admin", IsStaff: true}, -time.Minute,
		WithStore(store),
		WithOnExpired(func() { atomic.AddInt32(&expired, 1) }),
	)

	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = m.EnsureFreshToken(context.Background())
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.True(t, apperrors.HasCode(err, apperrors.CodeAuthExpired), "got %v", err)
	}
	assert.Equal(t, int32(1), atomic.LoadInt32(&expired))
	assert.Equal(t, StateAnonymous, m.State())
	assert.Nil(t, m.User())
	assert.False(t, m.IsAdmin())

	stored, _ := store.Load(context.Background())
	assert.Nil(t, stored)
}

func TestEnsureFreshToken_NetworkErrorKeepsSession(t *testing.T) {
	var expired int32
	api := &mockAuthAPI{
		RefreshFunc: func(context.Context, string) (string, error) {
			return "", apperrors.Network("POST /api/auth/refresh/ failed", context.DeadlineExceeded)
		},
	}
	m := loggedIn(t, api, model.User{ID: "1", Username: "admin"}, -time.Minute,
		WithOnExpired(func() { atomic.AddInt32(&expired, 1) }),
	)

	_, err := m.EnsureFreshToken(context.Background())
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNetwork))
	assert.Equal(t, StateAuthenticated, m.State())
	assert.NotNil(t, m.User())
	assert.Equal(t, int32(0), atomic.LoadInt32(&expired))
}

func TestEnsureFreshToken_ShortDeadlineDoesNotFailOtherCallers(t *testing.T) {
	next := freshAccess(t)
	api := &mockAuthAPI{
		RefreshFunc: func(ctx context.Context, _ string) (string, error) {
			select {
			case <-ctx.Done():
				return "", apperrors.Network("POST /api/auth/refresh/ failed", ctx.Err())
			case <-time.After(100 * time.Millisecond):
				return next, nil
			}
		},
	}
	m := loggedIn(t, api, model.User{ID: "1", Username: "admin"}, -time.Minute)

	var (
		wg         sync.WaitGroup
		hastyErr   error
		patientTok string
		patientErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
		defer cancel()
		_, hastyErr = m.EnsureFreshToken(ctx)
	}()
	go func() {
		defer wg.Done()
		time.Sleep(2 * time.Millisecond)
		patientTok, patientErr = m.EnsureFreshToken(context.Background())
	}()
	wg.Wait()

	assert.True(t, apperrors.HasCode(hastyErr, apperrors.CodeNetwork), "got %v", hastyErr)
	assert.ErrorIs(t, hastyErr, context.DeadlineExceeded)
	require.NoError(t, patientErr)
	assert.Equal(t, next, patientTok)
	assert.Equal(t, int32(1), atomic.LoadInt32(&api.refreshes))
	assert.Equal(t, StateAuthenticated, m.State())
}

func TestForceRefresh(t *testing.T) {
	next := freshAccess(t)
	api := &mockAuthAPI{
		RefreshFunc: func(context.Context, string) (string, error) { return next, nil },
	}
	m := loggedIn(t, api, model.User{ID: "1", Username: "admin"}, time.Hour)
	stale, err := m.Token(context.Background())
	require.NoError(t, err)

	got, err := m.ForceRefresh(context.Background(), stale)
	require.NoError(t, err)
	assert.Equal(t, next, got)

	// A second 401 for the same stale token reuses the replacement.
	got, err = m.ForceRefresh(context.Background(), stale)
	require.NoError(t, err)
	assert.Equal(t, next, got)
	assert.Equal(t, int32(1), atomic.LoadInt32(&api.refreshes))
}

func TestIsAdmin(t *testing.T) {
	tests := []struct {
		name      string
		user      model.User
		accessTTL time.Duration
		want      bool
	}{
		{"staff", model.User{ID: "1", IsStaff: true}, time.Hour, true},
		{"admin", model.User{ID: "1", IsAdmin: true}, time.Hour, true},
		{"staff and admin", model.User{ID: "1", IsStaff: true, IsAdmin: true}, time.Hour, true},
		{"customer", model.User{ID: "1"}, time.Hour, false},
		{"staff with expired token", model.User{ID: "1", IsStaff: true}, -time.Minute, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := loggedIn(t, &mockAuthAPI{}, tt.user, tt.accessTTL)
			assert.Equal(t, tt.want, m.IsAdmin())
		})
	}

	assert.False(t, NewManager(&mockAuthAPI{}, logger.Discard()).IsAdmin())
}

func TestLogout_NetworkDown(t *testing.T) {
	store := NewMemoryStore()
	var expired int32
	api := &mockAuthAPI{
		LogoutFunc: func(context.Context, string) error {
			return apperrors.Network("POST /api/auth/logout/ failed", context.DeadlineExceeded)
		},
	}
	m := loggedIn(t, api, model.User{ID: "1", Username: "admin", IsStaff: true}, time.Hour,
		WithStore(store),
		WithOnExpired(func() { atomic.AddInt32(&expired, 1) }),
	)

	m.Logout(context.Background())

	assert.Equal(t, StateAnonymous, m.State())
	assert.False(t, m.IsAuthenticated())
	assert.Nil(t, m.User())
	assert.Equal(t, int32(0), atomic.LoadInt32(&expired))
	stored, _ := store.Load(context.Background())
	assert.Nil(t, stored)
}

func TestRestore(t *testing.T) {
	user := model.User{ID: "1", Username: "admin", IsAdmin: true}
	access, refresh := pair(t, &user, time.Hour)
	store := NewMemoryStore()
	require.NoError(t, store.Save(context.Background(), &Tokens{Access: access, Refresh: refresh}))

	api := &mockAuthAPI{
		ProfileFunc: func(_ context.Context, got string) (*model.User, error) {
			assert.Equal(t, access, got)
			u := user
			return &u, nil
		},
	}
	m := NewManager(api, logger.Discard(), WithStore(store))

	require.NoError(t, m.Restore(context.Background()))
	assert.True(t, m.IsAdmin())
	assert.Equal(t, "admin", m.User().Username)
}

func TestRestore_InvalidTokensCleared(t *testing.T) {
	user := model.User{ID: "1", Username: "admin"}
	access, refresh := pair(t, &user, time.Hour)
	store := NewMemoryStore()
	require.NoError(t, store.Save(context.Background(), &Tokens{Access: access, Refresh: refresh}))

	api := &mockAuthAPI{
		ProfileFunc: func(context.Context, string) (*model.User, error) {
			return nil, apperrors.Server(http.StatusUnauthorized, "Token is invalid or expired")
		},
	}
	m := NewManager(api, logger.Discard(), WithStore(store))

	err := m.Restore(context.Background())
	assert.True(t, apperrors.HasCode(err, apperrors.CodeAuthExpired))
	assert.Equal(t, StateAnonymous, m.State())
	stored, _ := store.Load(context.Background())
	assert.Nil(t, stored)
}

func TestRestore_NothingStored(t *testing.T) {
	m := NewManager(&mockAuthAPI{}, logger.Discard())
	require.NoError(t, m.Restore(context.Background()))
	assert.Equal(t, StateAnonymous, m.State())
}

func TestStartAutoRefresh(t *testing.T) {
	next := freshAccess(t)
	api := &mockAuthAPI{
		RefreshFunc: func(context.Context, string) (string, error) { return next, nil },
	}
	m := loggedIn(t, api, model.User{ID: "1", Username: "admin"}, time.Hour, WithRefreshInterval(10*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	m.StartAutoRefresh(ctx)
	m.StartAutoRefresh(ctx)

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&api.refreshes) >= 2
	}, time.Second, 5*time.Millisecond)
	cancel()
	assert.True(t, m.IsAuthenticated())
}

func TestRefreshInterval(t *testing.T) {
	m := loggedIn(t, &mockAuthAPI{}, model.User{ID: "1"}, time.Hour)
	assert.Equal(t, 45*time.Minute, m.refreshInterval())

	assert.Equal(t, 45*time.Minute, NewManager(&mockAuthAPI{}, logger.Discard()).refreshInterval())
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	store := NewRedisStore(rdb, "tourdesk:console:")
	ctx := context.Background()

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, store.Save(ctx, &Tokens{Access: "tok1", Refresh: "ref1"}))
	stored, err := mr.Get("tourdesk:console:" + KeyAccessToken)
	require.NoError(t, err)
	assert.Equal(t, "tok1", stored)

	got, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, &Tokens{Access: "tok1", Refresh: "ref1"}, got)

	require.NoError(t, store.Clear(ctx))
	assert.False(t, mr.Exists("tourdesk:console:"+KeyRefreshToken))
}

func TestFileStore(t *testing.T) {
	store := NewFileStore(t.TempDir() + "/nested/session.json")
	ctx := context.Background()

	got, err := store.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)

	require.NoError(t, store.Save(ctx, &Tokens{Access: "tok1", Refresh: "ref1"}))
	got, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ref1", got.Refresh)

	require.NoError(t, store.Clear(ctx))
	require.NoError(t, store.Clear(ctx))
	got, err = store.Load(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)
}
