package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"tourdesk/pkg/model"
)

const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

var (
	ErrInvalid   = errors.New("token is invalid")
	ErrExpired   = errors.New("token is expired")
	ErrWrongType = errors.New("token has the wrong type")
)

// Claims are carried by both tokens of a pair. The subject is the user id
// and the JWT id identifies the token for revocation.
type Claims struct {
	Username  string `json:"username"`
	IsStaff   bool   `json:"is_staff"`
	IsAdmin   bool   `json:"is_admin"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

func (c *Claims) CanManageBookings() bool {
	return c.IsStaff || c.IsAdmin
}

// Verifier checks a raw token and returns its claims.
type Verifier interface {
	Verify(raw, tokenType string) (*Claims, error)
}

// Manager issues and verifies HS256 token pairs.
type Manager struct {
	secret     []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	now        func() time.Time
}

func NewManager(secret string, accessTTL, refreshTTL time.Duration) *Manager {
	return &Manager{
		secret:     []byte(secret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		now:        time.Now,
	}
}

func (m *Manager) AccessTTL() time.Duration {
	return m.accessTTL
}

// Pair issues a fresh access and refresh token for user.
func (m *Manager) Pair(user *model.User) (access, refresh string, err error) {
	access, err = m.sign(m.claims(user.ID, user.Username, user.IsStaff, user.IsAdmin, TypeAccess, m.accessTTL))
	if err != nil {
		return "", "", err
	}
	refresh, err = m.sign(m.claims(user.ID, user.Username, user.IsStaff, user.IsAdmin, TypeRefresh, m.refreshTTL))
	if err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

// Access issues a new access token carrying the identity of a verified
// refresh token.
func (m *Manager) Access(refresh *Claims) (string, error) {
	return m.sign(m.claims(refresh.Subject, refresh.Username, refresh.IsStaff, refresh.IsAdmin, TypeAccess, m.accessTTL))
}

func (m *Manager) claims(subject, username string, staff, admin bool, tokenType string, ttl time.Duration) *Claims {
	now := m.now()
	return &Claims{
		Username:  username,
		IsStaff:   staff,
		IsAdmin:   admin,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
}

func (m *Manager) sign(claims *Claims) (string, error) {
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign %s token: %w", claims.TokenType, err)
	}
	return signed, nil
}

func (m *Manager) Verify(raw, tokenType string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if claims.TokenType != tokenType {
		return nil, ErrWrongType
	}
	return claims, nil
}

// ExpiresAt reads the exp claim without verifying the signature. Clients use
// it to decide when to refresh; the server still verifies every token.
func ExpiresAt(raw string) (time.Time, error) {
	_, expires, err := Lifetime(raw)
	return expires, err
}

// Lifetime returns the unverified iat and exp claims. A token without iat
// reports a zero issue time.
func Lifetime(raw string) (issued, expires time.Time, err error) {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(raw, claims); err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if claims.ExpiresAt == nil {
		return time.Time{}, time.Time{}, fmt.Errorf("%w: missing exp claim", ErrInvalid)
	}
	if claims.IssuedAt != nil {
		issued = claims.IssuedAt.Time
	}
	return issued, claims.ExpiresAt.Time, nil
}
