package service

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	autherrors "tourdesk/internal/auth/errors"
	"tourdesk/internal/auth/repository"
	"tourdesk/pkg/config"
	apperrors "tourdesk/pkg/errors"
	"tourdesk/pkg/metrics"
	"tourdesk/pkg/model"
	"tourdesk/pkg/sanitizer"
	"tourdesk/pkg/token"
)

const (
	msgInvalidCredentials = "No active account found with the given credentials"
	msgInvalidToken       = "Token is invalid or expired"
)

// dummyHash keeps the response time of unknown usernames close to that of a
// wrong password.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("tourdesk-dummy-password"), bcrypt.DefaultCost)

type AuthService interface {
	Login(ctx context.Context, creds *model.Credentials) (*model.LoginResponse, error)
	Refresh(ctx context.Context, refresh string) (*model.RefreshResponse, error)
	Logout(ctx context.Context, refresh string) error
	Profile(ctx context.Context, userID string) (*model.User, error)
}

type authService struct {
	users    repository.UserRepository
	revoked  repository.RevocationStore
	tokens   *token.Manager
	validate *validator.Validate
	cfg      *config.Config
	now      func() time.Time
}

func NewAuthService(
	users repository.UserRepository,
	revoked repository.RevocationStore,
	tokens *token.Manager,
	cfg *config.Config,
) AuthService {
	return &authService{
		users:    users,
		revoked:  revoked,
		tokens:   tokens,
		validate: validator.New(),
		cfg:      cfg,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func (s *authService) Login(ctx context.Context, creds *model.Credentials) (*model.LoginResponse, error) {
	creds.Username = sanitizer.TrimAndNormalize(creds.Username)
	if err := s.validate.Struct(creds); err != nil {
		metrics.LoginAttempts.WithLabelValues(metrics.ResultRejected).Inc()
		return nil, apperrors.Validation("Username and password are required", map[string]any{"error": err.Error()})
	}

	user, err := s.users.FindByUsername(ctx, creds.Username)
	if err != nil && !errors.Is(err, autherrors.ErrUserNotFound) {
		s.cfg.Log.Error("Failed to load user", "username", creds.Username, "error", err)
		metrics.LoginAttempts.WithLabelValues(metrics.ResultFailed).Inc()
		return nil, apperrors.Internal("Failed to log in", err)
	}

	hash := dummyHash
	if user != nil {
		hash = []byte(user.PasswordHash)
	}
	passwordErr := bcrypt.CompareHashAndPassword(hash, []byte(creds.Password))
	if user == nil || passwordErr != nil || !user.IsActive {
		s.cfg.Log.Warn("Login rejected", "username", creds.Username)
		metrics.LoginAttempts.WithLabelValues(metrics.ResultRejected).Inc()
		return nil, apperrors.Unauthorized(msgInvalidCredentials)
	}

	access, refresh, err := s.tokens.Pair(user)
	if err != nil {
		metrics.LoginAttempts.WithLabelValues(metrics.ResultFailed).Inc()
		return nil, apperrors.Internal("Failed to issue tokens", err)
	}

	if err := s.users.TouchLastLogin(ctx, user.ID, s.now()); err != nil {
		s.cfg.Log.Warn("Failed to record last login", "user_id", user.ID, "error", err)
	}

	metrics.LoginAttempts.WithLabelValues(metrics.ResultOK).Inc()
	s.cfg.Log.Info("User logged in", "user_id", user.ID, "username", user.Username)
	return &model.LoginResponse{Access: access, Refresh: refresh, User: *user}, nil
}

func (s *authService) verifyRefresh(ctx context.Context, refresh string) (*token.Claims, error) {
	claims, err := s.tokens.Verify(refresh, token.TypeRefresh)
	if err != nil {
		return nil, apperrors.Unauthorized(msgInvalidToken)
	}

	revoked, err := s.revoked.IsRevoked(ctx, claims.ID)
	if err != nil {
		s.cfg.Log.Error("Failed to check token revocation", "error", err)
		return nil, apperrors.Unavailable("Token store")
	}
	if revoked {
		return nil, apperrors.Unauthorized("Token is blacklisted")
	}
	return claims, nil
}

func (s *authService) Refresh(ctx context.Context, refresh string) (*model.RefreshResponse, error) {
	claims, err := s.verifyRefresh(ctx, refresh)
	if err != nil {
		metrics.TokenRefreshes.WithLabelValues(metrics.ResultRejected).Inc()
		return nil, err
	}

	user, err := s.users.FindByID(ctx, claims.Subject)
	if err != nil || !user.IsActive {
		metrics.TokenRefreshes.WithLabelValues(metrics.ResultRejected).Inc()
		if err != nil && !errors.Is(err, autherrors.ErrUserNotFound) {
			return nil, apperrors.Internal("Failed to refresh token", err)
		}
		return nil, apperrors.Unauthorized(msgInvalidToken)
	}

	// Role flags are re-read so a demoted user loses staff access on refresh.
	claims.Username, claims.IsStaff, claims.IsAdmin = user.Username, user.IsStaff, user.IsAdmin
	access, err := s.tokens.Access(claims)
	if err != nil {
		metrics.TokenRefreshes.WithLabelValues(metrics.ResultFailed).Inc()
		return nil, apperrors.Internal("Failed to issue token", err)
	}

	metrics.TokenRefreshes.WithLabelValues(metrics.ResultOK).Inc()
	return &model.RefreshResponse{Access: access}, nil
}

func (s *authService) Logout(ctx context.Context, refresh string) error {
	claims, err := s.verifyRefresh(ctx, refresh)
	if err != nil {
		return err
	}

	if err := s.revoked.Revoke(ctx, claims.ID, claims.ExpiresAt.Time); err != nil {
		s.cfg.Log.Error("Failed to revoke refresh token", "user_id", claims.Subject, "error", err)
		return apperrors.Unavailable("Token store")
	}

	s.cfg.Log.Info("User logged out", "user_id", claims.Subject)
	return nil
}

func (s *authService) Profile(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, autherrors.ErrUserNotFound) {
			return nil, apperrors.NotFound("User")
		}
		return nil, apperrors.Internal("Failed to load profile", err)
	}
	return user, nil
}
