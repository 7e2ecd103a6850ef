package auth

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"time"

	"github.com/google/uuid"

	sharedauth "saas-backend/internal/shared/auth"
	"saas-backend/internal/shared/cache"
	"saas-backend/internal/shared/server/middleware"
	"saas-backend/internal/shared/telemetry"
	"saas-backend/internal/users"
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("email already registered")
	ErrUnverifiedEmail    = errors.New("provider email not verified")
)

const maxSessionCacheTTL = 5 * time.Minute

// SignUpInput is a credential registration request.
type SignUpInput struct {
	Name     string
	Email    string
	Password string
}

// Result is a signed-in user and the token of the session just created.
type Result struct {
	User      users.User
	Token     string
	ExpiresAt time.Time
}

type Service struct {
	Users    users.Repo
	Accounts AccountRepo
	Sessions SessionRepo
	Cache    cache.Store
	TTL      time.Duration
	Now      func() time.Time
}

func NewService(userRepo users.Repo, accounts AccountRepo, sessions SessionRepo, store cache.Store, ttl time.Duration) *Service {
	if store == nil {
		store = cache.Nop{}
	}
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &Service{Users: userRepo, Accounts: accounts, Sessions: sessions, Cache: store, TTL: ttl, Now: time.Now}
}

// SignUp registers a user with a password and opens a session.
func (s *Service) SignUp(ctx context.Context, in SignUpInput, client ClientInfo) (Result, error) {
	name, err := users.NormalizeName(in.Name)
	if err != nil {
		return Result{}, fmt.Errorf("%w: name must be 1-100 characters", ErrInvalidInput)
	}
	email := users.NormalizeEmail(in.Email)
	if _, err := mail.ParseAddress(email); err != nil {
		return Result{}, fmt.Errorf("%w: invalid email", ErrInvalidInput)
	}
	hash, err := sharedauth.HashPassword(in.Password)
	if errors.Is(err, sharedauth.ErrPasswordTooShort) {
		return Result{}, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidInput, sharedauth.MinPasswordLength)
	}
	if err != nil {
		return Result{}, err
	}

	user := users.User{
		ID:    uuid.NewString(),
		Name:  name,
		Email: email,
		Role:  users.RoleMember,
	}
	if err := s.Users.Create(ctx, user); err != nil {
		if errors.Is(err, users.ErrEmailTaken) {
			return Result{}, ErrEmailTaken
		}
		return Result{}, fmt.Errorf("create user: %w", err)
	}
	account := Account{
		ID:           uuid.NewString(),
		AccountID:    user.ID,
		ProviderID:   ProviderCredential,
		UserID:       user.ID,
		PasswordHash: hash,
	}
	if err := s.Accounts.Create(ctx, account); err != nil {
		return Result{}, fmt.Errorf("create account: %w", err)
	}
	return s.openSession(ctx, user, client)
}

// SignIn checks an email and password pair and opens a session.
func (s *Service) SignIn(ctx context.Context, email, password string, client ClientInfo) (Result, error) {
	user, err := s.Users.GetByEmail(ctx, users.NormalizeEmail(email))
	if errors.Is(err, users.ErrNotFound) {
		return Result{}, ErrInvalidCredentials
	}
	if err != nil {
		return Result{}, err
	}
	account, err := s.Accounts.GetByProvider(ctx, ProviderCredential, user.ID)
	if errors.Is(err, ErrAccountNotFound) {
		return Result{}, ErrInvalidCredentials
	}
	if err != nil {
		return Result{}, err
	}
	if err := sharedauth.CheckPassword(account.PasswordHash, password); err != nil {
		return Result{}, ErrInvalidCredentials
	}
	return s.openSession(ctx, user, client)
}

// SignInWithProvider links or creates the user behind an external profile and opens a session.
func (s *Service) SignInWithProvider(ctx context.Context, p Profile, client ClientInfo) (Result, error) {
	email := users.NormalizeEmail(p.Email)
	if p.AccountID == "" || email == "" {
		return Result{}, fmt.Errorf("%w: provider profile incomplete", ErrInvalidInput)
	}

	account, err := s.Accounts.GetByProvider(ctx, p.Provider, p.AccountID)
	switch {
	case err == nil:
		user, err := s.Users.GetByID(ctx, account.UserID)
		if err != nil {
			return Result{}, err
		}
		return s.openSession(ctx, user, client)
	case !errors.Is(err, ErrAccountNotFound):
		return Result{}, err
	}
	// Linking or creating by email requires the provider to vouch for the address.
	if !p.Verified {
		return Result{}, ErrUnverifiedEmail
	}

	user, err := s.Users.GetByEmail(ctx, email)
	if errors.Is(err, users.ErrNotFound) {
		name, nerr := users.NormalizeName(p.Name)
		if nerr != nil {
			name = email
		}
		user = users.User{
			ID:            uuid.NewString(),
			Name:          name,
			Email:         email,
			EmailVerified: true,
			Image:         p.Image,
			Role:          users.RoleMember,
		}
		if err := s.Users.Create(ctx, user); err != nil {
			return Result{}, fmt.Errorf("create user: %w", err)
		}
	} else if err != nil {
		return Result{}, err
	} else if err := s.Users.MarkVerified(ctx, user.ID, p.Image); err != nil {
		return Result{}, err
	}

	if err := s.Accounts.Create(ctx, Account{
		ID:         uuid.NewString(),
		AccountID:  p.AccountID,
		ProviderID: p.Provider,
		UserID:     user.ID,
	}); err != nil && !errors.Is(err, ErrAccountExists) {
		return Result{}, fmt.Errorf("link account: %w", err)
	}
	return s.openSession(ctx, user, client)
}

// SignOut deletes the session behind token. Unknown tokens are ignored.
func (s *Service) SignOut(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	hash := sharedauth.HashToken(token)
	if err := s.Cache.Delete(ctx, cacheKey(hash)); err != nil {
		telemetry.Warn("session.cache_delete_failed", map[string]any{"error": err})
	}
	return s.Sessions.DeleteByTokenHash(ctx, hash)
}

type cachedSession struct {
	SessionID string    `json:"sessionId"`
	UserID    string    `json:"userId"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// ResolveSession maps a token to the identity of its user.
// Organization and role are always read from the user row.
func (s *Service) ResolveSession(ctx context.Context, token string) (middleware.Identity, error) {
	hash := sharedauth.HashToken(token)
	now := s.now()

	var cached cachedSession
	err := s.Cache.Get(ctx, cacheKey(hash), &cached)
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			telemetry.Warn("session.cache_get_failed", map[string]any{"error": err})
		}
		session, err := s.Sessions.GetByTokenHash(ctx, hash)
		if errors.Is(err, ErrSessionNotFound) {
			return middleware.Identity{}, middleware.ErrUnauthenticated
		}
		if err != nil {
			return middleware.Identity{}, err
		}
		cached = cachedSession{SessionID: session.ID, UserID: session.UserID, ExpiresAt: session.ExpiresAt}
		if ttl := min(maxSessionCacheTTL, cached.ExpiresAt.Sub(now)); ttl > 0 {
			if err := s.Cache.Set(ctx, cacheKey(hash), cached, ttl); err != nil {
				telemetry.Warn("session.cache_set_failed", map[string]any{"error": err})
			}
		}
	}
	if !cached.ExpiresAt.After(now) {
		return middleware.Identity{}, middleware.ErrUnauthenticated
	}

	user, err := s.Users.GetByID(ctx, cached.UserID)
	if errors.Is(err, users.ErrNotFound) {
		return middleware.Identity{}, middleware.ErrUnauthenticated
	}
	if err != nil {
		return middleware.Identity{}, err
	}
	return middleware.Identity{
		UserID:         user.ID,
		Email:          user.Email,
		Name:           user.Name,
		OrganizationID: user.OrganizationID,
		Role:           string(user.Role),
		SessionID:      cached.SessionID,
	}, nil
}

// PurgeExpired removes sessions past their expiry.
func (s *Service) PurgeExpired(ctx context.Context) (int64, error) {
	return s.Sessions.DeleteExpired(ctx, s.now())
}

func (s *Service) openSession(ctx context.Context, user users.User, client ClientInfo) (Result, error) {
	token, err := sharedauth.NewToken()
	if err != nil {
		return Result{}, err
	}
	session := Session{
		ID:        uuid.NewString(),
		TokenHash: sharedauth.HashToken(token),
		UserID:    user.ID,
		ExpiresAt: s.now().Add(s.TTL).UTC(),
		IPAddress: client.IPAddress,
		UserAgent: client.UserAgent,
	}
	if err := s.Sessions.Create(ctx, session); err != nil {
		return Result{}, fmt.Errorf("create session: %w", err)
	}
	telemetry.Info("session.created", map[string]any{"user_id": user.ID, "session_id": session.ID})
	return Result{User: user, Token: token, ExpiresAt: session.ExpiresAt}, nil
}

func (s *Service) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func cacheKey(tokenHash string) string {
	return "session:" + tokenHash
}
