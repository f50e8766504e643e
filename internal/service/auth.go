package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"gorm.io/gorm"

	"github.com/Skotchmaster/mylib/internal/events"
	"github.com/Skotchmaster/mylib/internal/hash"
	"github.com/Skotchmaster/mylib/internal/logging"
	"github.com/Skotchmaster/mylib/internal/models"
	"github.com/Skotchmaster/mylib/internal/repo"
	"github.com/Skotchmaster/mylib/internal/tokens"
	"github.com/Skotchmaster/mylib/internal/transport"
)

// DefaultAdminPassword is the documented insecure password of the bootstrap admin. Change it.
const DefaultAdminPassword = "admin123"

type AuthService struct {
	Users  *repo.UserRepo
	Tokens *tokens.Issuer
	Events events.Publisher
}

func validateRegistration(req transport.RegisterRequest) error {
	ve := &ValidationError{}
	if strings.TrimSpace(req.Username) == "" {
		ve.Add("username", "username is required")
	}
	if len(req.Password) < hash.MinPasswordLength {
		ve.Add("password", fmt.Sprintf("password must be at least %d characters", hash.MinPasswordLength))
	}
	if !slices.Contains(models.Roles, req.Role) {
		ve.Add("role", "role must be one of "+strings.Join(models.Roles, ", "))
	}
	return ve.Err()
}

func (s *AuthService) Register(ctx context.Context, req transport.RegisterRequest) (*models.User, error) {
	l := logging.FromContext(ctx).With("svc", "auth.register")

	req.Username = strings.TrimSpace(req.Username)
	if err := validateRegistration(req); err != nil {
		l.Warn("register_error", "status", 400, "error", err)
		return nil, err
	}

	pwHash, err := hash.HashPassword(req.Password)
	if err != nil {
		l.Error("register_error", "status", 500, "reason", "cannot hash the password", "error", err)
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{Username: req.Username, PasswordHash: pwHash, Role: req.Role}
	if err := s.Users.Create(ctx, user); err != nil {
		if errors.Is(err, repo.ErrUserAlreadyExist) {
			l.Warn("register_error", "status", 400, "reason", "user already exist", "username", req.Username)
			return nil, ErrDuplicateIdentity
		}
		l.Error("register_error", "status", 500, "reason", "cannot create user", "error", err)
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	publish(ctx, s.Events, events.Event{Type: events.TypeUserRegistered, Family: "user", ID: user.ID, Title: user.Username})
	l.Info("register_successful", "user_id", user.ID, "role", user.Role)
	return user, nil
}

// Login answers ErrInvalidCredentials for both an unknown user and a wrong password.
func (s *AuthService) Login(ctx context.Context, req transport.LoginRequest) (*transport.LoginResult, error) {
	l := logging.FromContext(ctx).With("svc", "auth.login", "username", req.Username)

	ve := &ValidationError{}
	if req.Username == "" {
		ve.Add("username", "username is required")
	}
	if req.Password == "" {
		ve.Add("password", "password is required")
	}
	if err := ve.Err(); err != nil {
		return nil, err
	}

	user, err := s.Users.FindByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			l.Warn("login_failed", "status", 401, "reason", "unknown user")
			return nil, ErrInvalidCredentials
		}
		l.Error("login_failed", "status", 500, "error", err)
		return nil, fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	if !hash.CheckPassword(user.PasswordHash, req.Password) {
		l.Warn("login_failed", "status", 401, "reason", "wrong password")
		return nil, ErrInvalidCredentials
	}

	token, err := s.Tokens.Issue(user)
	if err != nil {
		l.Error("login_failed", "status", 500, "error", err)
		return nil, err
	}

	l.Info("login_successful", "user_id", user.ID)
	return &transport.LoginResult{
		Token: token,
		User:  transport.UserSummary{ID: user.ID, Username: user.Username, Role: user.Role},
	}, nil
}

// BootstrapAdmin creates the admin account on first start and leaves an existing one untouched.
func (s *AuthService) BootstrapAdmin(ctx context.Context, username, password string) error {
	l := logging.FromContext(ctx).With("svc", "auth.bootstrap", "username", username)

	pwHash, err := hash.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	err = s.Users.Create(ctx, &models.User{Username: username, PasswordHash: pwHash, Role: models.RoleAdmin})
	switch {
	case errors.Is(err, repo.ErrUserAlreadyExist):
		l.Debug("admin_exists")
		return nil
	case err != nil:
		return fmt.Errorf("%w: %w", ErrPersistence, err)
	}

	if password == DefaultAdminPassword {
		l.Warn("admin_created_with_default_password", "reason", "change the password of the default admin account")
	} else {
		l.Info("admin_created")
	}
	return nil
}
