package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	autherrors "tourdesk/internal/auth/errors"
	"tourdesk/internal/auth/repository"
	"tourdesk/pkg/logger"
	"tourdesk/pkg/model"
)

// AdminSeed describes the account created by SeedAdmin.
type AdminSeed struct {
	Username string
	Password string
	Email    string
}

// SeedAdmin creates an active staff+admin account unless the username is
// already taken. An existing account is left untouched, password included.
func SeedAdmin(ctx context.Context, users repository.UserRepository, seed AdminSeed, log *logger.Logger) (bool, error) {
	username := strings.TrimSpace(seed.Username)
	if username == "" || seed.Password == "" {
		return false, errors.New("admin username and password are required")
	}

	existing, err := users.FindByUsername(ctx, username)
	if err == nil {
		log.Info("Admin account already exists", "username", existing.Username)
		return false, nil
	}
	if !errors.Is(err, autherrors.ErrUserNotFound) {
		return false, fmt.Errorf("failed to look up admin account: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(seed.Password), bcrypt.DefaultCost)
	if err != nil {
		return false, fmt.Errorf("failed to hash admin password: %w", err)
	}

	user := &model.User{
		Username:     username,
		Email:        strings.ToLower(strings.TrimSpace(seed.Email)),
		IsStaff:      true,
		IsAdmin:      true,
		IsActive:     true,
		PasswordHash: string(hash),
		DateJoined:   time.Now().UTC(),
	}
	if err := users.Create(ctx, user); err != nil {
		if errors.Is(err, autherrors.ErrDuplicateUsername) {
			log.Info("Admin account created concurrently", "username", username)
			return false, nil
		}
		return false, fmt.Errorf("failed to create admin account: %w", err)
	}

	log.Info("Admin account created", "username", username, "id", user.ID)
	return true, nil
}
