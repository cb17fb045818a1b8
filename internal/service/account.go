package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kjstillabower/weatherlog/internal/auth"
	"github.com/kjstillabower/weatherlog/internal/observability"
	"github.com/kjstillabower/weatherlog/internal/repository"
)

// AccountService handles registration, login and profile edits.
type AccountService struct {
	users      UserStore
	adminEmail string
}

// NewAccountService returns an AccountService. adminEmail is reserved for the seeded admin.
func NewAccountService(users UserStore, adminEmail string) *AccountService {
	return &AccountService{
		users:      users,
		adminEmail: strings.ToLower(strings.TrimSpace(adminEmail)),
	}
}

// Register creates a non-admin account.
func (s *AccountService) Register(ctx context.Context, username, email, password string) (repository.User, error) {
	logger := observability.LoggerFrom(ctx)
	email = strings.ToLower(strings.TrimSpace(email))

	if email == s.adminEmail {
		observability.AuthEventsTotal.WithLabelValues("register", "reserved").Inc()
		return repository.User{}, ErrReservedEmail
	}

	exists, err := s.users.ExistsByUsernameOrEmail(ctx, username, email, 0)
	if err != nil {
		return repository.User{}, fmt.Errorf("check existing user: %w", err)
	}
	if exists {
		observability.AuthEventsTotal.WithLabelValues("register", "exists").Inc()
		return repository.User{}, ErrUserExists
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return repository.User{}, err
	}
	u := repository.User{Username: username, Email: email, PasswordHash: hash}
	if err := s.users.Create(ctx, &u); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			observability.AuthEventsTotal.WithLabelValues("register", "exists").Inc()
			return repository.User{}, ErrUserExists
		}
		return repository.User{}, fmt.Errorf("create user: %w", err)
	}

	observability.AuthEventsTotal.WithLabelValues("register", "success").Inc()
	logger.Info("user registered", zap.Uint("user_id", u.ID), zap.String("username", u.Username))
	return u, nil
}

// Authenticate checks email and password. Unknown email and wrong password both yield ErrInvalidCredentials.
func (s *AccountService) Authenticate(ctx context.Context, email, password string) (repository.User, error) {
	logger := observability.LoggerFrom(ctx)
	email = strings.ToLower(strings.TrimSpace(email))

	u, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			observability.AuthEventsTotal.WithLabelValues("login", "failure").Inc()
			return repository.User{}, ErrInvalidCredentials
		}
		return repository.User{}, fmt.Errorf("find user: %w", err)
	}
	if !auth.VerifyPassword(password, u.PasswordHash) {
		observability.AuthEventsTotal.WithLabelValues("login", "failure").Inc()
		logger.Info("login rejected", zap.Uint("user_id", u.ID))
		return repository.User{}, ErrInvalidCredentials
	}

	observability.AuthEventsTotal.WithLabelValues("login", "success").Inc()
	logger.Info("login", zap.Uint("user_id", u.ID), zap.Bool("admin", u.IsAdmin))
	return u, nil
}

func (s *AccountService) Profile(ctx context.Context, id uint) (repository.User, error) {
	u, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return repository.User{}, ErrNotFound
		}
		return repository.User{}, fmt.Errorf("find user: %w", err)
	}
	return u, nil
}

// UpdateProfile changes username and email, and the password when password is non-empty.
func (s *AccountService) UpdateProfile(ctx context.Context, id uint, username, email, password string) (repository.User, error) {
	u, err := s.Profile(ctx, id)
	if err != nil {
		return repository.User{}, err
	}
	email = strings.ToLower(strings.TrimSpace(email))

	if email == s.adminEmail && !u.IsAdmin {
		return repository.User{}, ErrReservedEmail
	}
	exists, err := s.users.ExistsByUsernameOrEmail(ctx, username, email, id)
	if err != nil {
		return repository.User{}, fmt.Errorf("check existing user: %w", err)
	}
	if exists {
		return repository.User{}, ErrUserExists
	}

	u.Username = username
	u.Email = email
	if password != "" {
		hash, err := auth.HashPassword(password)
		if err != nil {
			return repository.User{}, err
		}
		u.PasswordHash = hash
	}
	if err := s.users.Update(ctx, &u); err != nil {
		switch {
		case errors.Is(err, repository.ErrDuplicate):
			return repository.User{}, ErrUserExists
		case errors.Is(err, repository.ErrNotFound):
			return repository.User{}, ErrNotFound
		}
		return repository.User{}, fmt.Errorf("update user: %w", err)
	}
	observability.LoggerFrom(ctx).Info("profile updated", zap.Uint("user_id", id), zap.Bool("password_changed", password != ""))
	return u, nil
}

// ListUsers returns every account ordered by id.
func (s *AccountService) ListUsers(ctx context.Context) ([]repository.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// DeleteUser removes targetID and its history. actorID cannot delete itself.
func (s *AccountService) DeleteUser(ctx context.Context, actorID, targetID uint) error {
	if actorID == targetID {
		return ErrCannotDeleteSelf
	}
	if err := s.users.Delete(ctx, targetID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete user: %w", err)
	}
	observability.LoggerFrom(ctx).Info("user deleted", zap.Uint("actor_id", actorID), zap.Uint("user_id", targetID))
	return nil
}

// EnsureAdmin seeds the admin account if no account uses the admin email.
func (s *AccountService) EnsureAdmin(ctx context.Context, username, password string) (bool, error) {
	hash, err := auth.HashPassword(password)
	if err != nil {
		return false, err
	}
	created, err := s.users.EnsureAdmin(ctx, repository.User{
		Username:     username,
		Email:        s.adminEmail,
		PasswordHash: hash,
	})
	if err != nil {
		return false, fmt.Errorf("ensure admin: %w", err)
	}
	return created, nil
}
