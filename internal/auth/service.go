package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"civicReporting/models"
	"civicReporting/repository"
)

// ErrInvalidCredentials covers both an unknown email and a wrong password.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Service implements registration and login on top of the user repository.
type Service struct {
	users  repository.UserRepositoryI
	hasher PasswordHasher
	// dummyHash is compared against when the email is unknown so both failure
	// paths cost one bcrypt comparison.
	dummyHash string
}

// NewService creates a Service. hasher.Cost may be lowered in tests.
func NewService(users repository.UserRepositoryI, hasher PasswordHasher) (*Service, error) {
	dummy, err := hasher.Hash("civic-reporting-dummy-password")
	if err != nil {
		return nil, fmt.Errorf("prepare dummy hash: %w", err)
	}
	return &Service{users: users, hasher: hasher, dummyHash: dummy}, nil
}

// Register creates a regular user. It returns repository.ErrDuplicateEmail when the
// email is taken.
func (s *Service) Register(ctx context.Context, name, email, password string) (*models.User, error) {
	return s.CreateUser(ctx, name, email, password, models.RoleUser)
}

// CreateUser creates a user with an explicit role. Admins are only created this way.
func (s *Service) CreateUser(ctx context.Context, name, email, password string, role models.Role) (*models.User, error) {
	name, email = strings.TrimSpace(name), strings.TrimSpace(email)
	if name == "" || email == "" || password == "" {
		return nil, errors.New("name, email and password are required")
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}
	return s.users.Create(ctx, name, email, hash, role)
}

// Login verifies credentials for any user.
func (s *Service) Login(ctx context.Context, email, password string) (*models.User, error) {
	u, err := s.users.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	return s.check(u, password)
}

// AdminLogin verifies credentials for users holding the admin role only.
func (s *Service) AdminLogin(ctx context.Context, email, password string) (*models.User, error) {
	u, err := s.users.GetAdminByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		return nil, fmt.Errorf("lookup admin: %w", err)
	}
	return s.check(u, password)
}

func (s *Service) check(u *models.User, password string) (*models.User, error) {
	if u == nil {
		s.hasher.Verify(password, s.dummyHash)
		return nil, ErrInvalidCredentials
	}
	if !s.hasher.Verify(password, u.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}
