package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const devStateSecret = "dev-session-secret"

var (
	errMissingSecret = errors.New("session secret not configured")
	// ErrInvalidState is returned for tampered, expired or foreign OAuth state values.
	ErrInvalidState = errors.New("invalid oauth state")
)

type stateClaims struct {
	Nonce    string `json:"nonce"`
	Provider string `json:"provider"`
	jwt.RegisteredClaims
}

// StateSigner issues and verifies OAuth state values as short-lived HS256 JWTs.
type StateSigner struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewStateSigner builds a signer. An empty secret is only accepted in dev and local.
func NewStateSigner(secret, env string, ttl time.Duration) (*StateSigner, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		if env != "dev" && env != "local" {
			return nil, errMissingSecret
		}
		secret = devStateSecret
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &StateSigner{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// Issue returns a signed state bound to provider.
func (s *StateSigner) Issue(provider string) (string, error) {
	nonce, err := NewToken()
	if err != nil {
		return "", err
	}
	now := s.now().UTC()
	claims := stateClaims{
		Nonce:    nonce,
		Provider: provider,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign state: %w", err)
	}
	return signed, nil
}

// Verify checks signature, expiry and provider.
func (s *StateSigner) Verify(state, provider string) error {
	var claims stateClaims
	_, err := jwt.ParseWithClaims(state, &claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidState, err)
	}
	if claims.Provider != provider {
		return ErrInvalidState
	}
	return nil
}
