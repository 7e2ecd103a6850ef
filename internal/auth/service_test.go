package auth

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"saas-backend/internal/shared/cache"
	"saas-backend/internal/shared/server/middleware"
	"saas-backend/internal/users"
)

type mapCache struct {
	mu    sync.Mutex
	items map[string][]byte
	sets  int
}

func newMapCache() *mapCache { return &mapCache{items: map[string][]byte{}} }

func (m *mapCache) Get(_ context.Context, key string, dest any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.items[key]
	if !ok {
		return cache.ErrMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *mapCache) Set(_ context.Context, key string, value any, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[key] = raw
	m.sets++
	return nil
}

func (m *mapCache) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.items, key)
	return nil
}

type fixture struct {
	svc      *Service
	users    *users.MemoryRepo
	sessions *MemorySessionRepo
	cache    *mapCache
	now      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		users:    users.NewMemoryRepo(),
		sessions: NewMemorySessionRepo(),
		cache:    newMapCache(),
		now:      time.Date(2026, time.May, 1, 9, 0, 0, 0, time.UTC),
	}
	f.svc = NewService(f.users, NewMemoryAccountRepo(), f.sessions, f.cache, time.Hour)
	f.svc.Now = func() time.Time { return f.now }
	return f
}

func TestSignUpThenSignIn(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res, err := f.svc.SignUp(ctx, SignUpInput{Name: " Ada ", Email: "Ada@Example.com", Password: "password123"}, ClientInfo{IPAddress: "10.0.0.1"})
	require.NoError(t, err)
	assert.Equal(t, "Ada", res.User.Name)
	assert.Equal(t, "ada@example.com", res.User.Email)
	assert.Equal(t, users.RoleMember, res.User.Role)
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, f.now.Add(time.Hour), res.ExpiresAt)

	signedIn, err := f.svc.SignIn(ctx, "ada@example.com", "password123", ClientInfo{})
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, signedIn.User.ID)
	assert.NotEqual(t, res.Token, signedIn.Token)
}

func TestSignUpValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.SignUp(ctx, SignUpInput{Name: "", Email: "a@example.com", Password: "password123"}, ClientInfo{})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = f.svc.SignUp(ctx, SignUpInput{Name: "A", Email: "not-an-email", Password: "password123"}, ClientInfo{})
	assert.ErrorIs(t, err, ErrInvalidInput)
	_, err = f.svc.SignUp(ctx, SignUpInput{Name: "A", Email: "a@example.com", Password: "short"}, ClientInfo{})
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = f.svc.SignUp(ctx, SignUpInput{Name: "A", Email: "a@example.com", Password: "password123"}, ClientInfo{})
	require.NoError(t, err)
	_, err = f.svc.SignUp(ctx, SignUpInput{Name: "B", Email: "A@example.com", Password: "password123"}, ClientInfo{})
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestSignInRejectsBadCredentials(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	_, err := f.svc.SignUp(ctx, SignUpInput{Name: "A", Email: "a@example.com", Password: "password123"}, ClientInfo{})
	require.NoError(t, err)

	_, err = f.svc.SignIn(ctx, "a@example.com", "wrong-password", ClientInfo{})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = f.svc.SignIn(ctx, "nobody@example.com", "password123", ClientInfo{})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestResolveSessionUsesCacheAndFreshUserRow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res, err := f.svc.SignUp(ctx, SignUpInput{Name: "A", Email: "a@example.com", Password: "password123"}, ClientInfo{})
	require.NoError(t, err)

	identity, err := f.svc.ResolveSession(ctx, res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, identity.UserID)
	assert.Empty(t, identity.OrganizationID)
	assert.Equal(t, 1, f.cache.sets)

	require.NoError(t, f.users.SetOrganization(ctx, res.User.ID, "org-1", users.RoleOwner))
	identity, err = f.svc.ResolveSession(ctx, res.Token)
	require.NoError(t, err)
	assert.Equal(t, "org-1", identity.OrganizationID)
	assert.Equal(t, "owner", identity.Role)
	assert.Equal(t, 1, f.cache.sets, "second lookup should be served from cache")
}

func TestResolveSessionExpiredAndUnknown(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res, err := f.svc.SignUp(ctx, SignUpInput{Name: "A", Email: "a@example.com", Password: "password123"}, ClientInfo{})
	require.NoError(t, err)

	_, err = f.svc.ResolveSession(ctx, "unknown-token")
	assert.True(t, errors.Is(err, middleware.ErrUnauthenticated))

	f.now = f.now.Add(2 * time.Hour)
	_, err = f.svc.ResolveSession(ctx, res.Token)
	assert.True(t, errors.Is(err, middleware.ErrUnauthenticated))

	purged, err := f.svc.PurgeExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)
}

func TestSignOutDeletesSessionAndCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	res, err := f.svc.SignUp(ctx, SignUpInput{Name: "A", Email: "a@example.com", Password: "password123"}, ClientInfo{})
	require.NoError(t, err)
	_, err = f.svc.ResolveSession(ctx, res.Token)
	require.NoError(t, err)

	require.NoError(t, f.svc.SignOut(ctx, res.Token))
	_, err = f.svc.ResolveSession(ctx, res.Token)
	assert.ErrorIs(t, err, middleware.ErrUnauthenticated)
	assert.Empty(t, f.cache.items)
}

func TestSignInWithProviderLinksExistingEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	first, err := f.svc.SignUp(ctx, SignUpInput{Name: "A", Email: "a@example.com", Password: "password123"}, ClientInfo{})
	require.NoError(t, err)

	res, err := f.svc.SignInWithProvider(ctx, Profile{Provider: ProviderGoogle, AccountID: "g-1", Email: "A@example.com", Name: "Alice", Image: "https://img", Verified: true}, ClientInfo{})
	require.NoError(t, err)
	assert.Equal(t, first.User.ID, res.User.ID)

	stored, err := f.users.GetByID(ctx, first.User.ID)
	require.NoError(t, err)
	assert.True(t, stored.EmailVerified)
	assert.Equal(t, "https://img", stored.Image)

	again, err := f.svc.SignInWithProvider(ctx, Profile{Provider: ProviderGoogle, AccountID: "g-1", Email: "a@example.com"}, ClientInfo{})
	require.NoError(t, err)
	assert.Equal(t, first.User.ID, again.User.ID)
}

func TestSignInWithProviderCreatesUser(t *testing.T) {
	f := newFixture(t)
	res, err := f.svc.SignInWithProvider(context.Background(), Profile{Provider: ProviderGoogle, AccountID: "g-2", Email: "new@example.com", Name: "New", Verified: true}, ClientInfo{})
	require.NoError(t, err)
	assert.Equal(t, "New", res.User.Name)
	assert.True(t, res.User.EmailVerified)
}

func TestSignInWithProviderRefusesUnverifiedEmail(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	victim, err := f.svc.SignUp(ctx, SignUpInput{Name: "V", Email: "victim@example.com", Password: "password123"}, ClientInfo{})
	require.NoError(t, err)

	_, err = f.svc.SignInWithProvider(ctx, Profile{Provider: ProviderGoogle, AccountID: "g-x", Email: "victim@example.com"}, ClientInfo{})
	assert.ErrorIs(t, err, ErrUnverifiedEmail)

	_, err = f.svc.SignInWithProvider(ctx, Profile{Provider: ProviderGoogle, AccountID: "g-y", Email: "fresh@example.com"}, ClientInfo{})
	assert.ErrorIs(t, err, ErrUnverifiedEmail)

	stored, err := f.users.GetByID(ctx, victim.User.ID)
	require.NoError(t, err)
	assert.False(t, stored.EmailVerified)
	_, err = f.users.GetByEmail(ctx, "fresh@example.com")
	assert.ErrorIs(t, err, users.ErrNotFound)
}
