package auth

import (
	"context"
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"civicReporting/internal/testutil"
	"civicReporting/models"
	"civicReporting/repository"
)

func newTestService(t *testing.T, name string) (*Service, *repository.UserRepository) {
	t.Helper()
	users := repository.NewUserRepository(testutil.OpenInMemoryDB(t, name))
	svc, err := NewService(users, PasswordHasher{Cost: bcrypt.MinCost})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc, users
}

func TestService_RegisterAndLogin(t *testing.T) {
	svc, users := newTestService(t, "authsvc")
	ctx := context.Background()

	u, err := svc.Register(ctx, "Alice", "alice@x.com", "pw123")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if u.Role != models.RoleUser || u.PasswordHash == "pw123" {
		t.Fatalf("unexpected user: %+v", u)
	}
	stored, _ := users.GetByEmail(ctx, "alice@x.com")
	if stored == nil || stored.PasswordHash == "pw123" {
		t.Fatalf("plaintext stored: %+v", stored)
	}

	got, err := svc.Login(ctx, "alice@x.com", "pw123")
	if err != nil || got.ID != u.ID {
		t.Fatalf("login: %v %+v", err, got)
	}

	if _, err := svc.Login(ctx, "alice@x.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password: expected ErrInvalidCredentials, got %v", err)
	}
	if _, err := svc.Login(ctx, "nobody@x.com", "pw123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown email: expected ErrInvalidCredentials, got %v", err)
	}
}

func TestService_RegisterDuplicate(t *testing.T) {
	svc, _ := newTestService(t, "authsvcdup")
	ctx := context.Background()
	if _, err := svc.Register(ctx, "Alice", "alice@x.com", "pw123"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := svc.Register(ctx, "Alice 2", "alice@x.com", "other"); !errors.Is(err, repository.ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestService_AdminLogin(t *testing.T) {
	svc, _ := newTestService(t, "authsvcadmin")
	ctx := context.Background()
	if _, err := svc.Register(ctx, "Alice", "alice@x.com", "pw123"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := svc.CreateUser(ctx, "Root", "root@x.com", "adminpw", models.RoleAdmin); err != nil {
		t.Fatalf("create admin: %v", err)
	}

	// A regular user cannot pass the admin login even with the right password.
	if _, err := svc.AdminLogin(ctx, "alice@x.com", "pw123"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials for non-admin, got %v", err)
	}
	admin, err := svc.AdminLogin(ctx, "root@x.com", "adminpw")
	if err != nil || !admin.IsAdmin() {
		t.Fatalf("admin login: %v %+v", err, admin)
	}
	if _, err := svc.AdminLogin(ctx, "root@x.com", "nope"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestService_CreateUserRequiresFields(t *testing.T) {
	svc, _ := newTestService(t, "authsvcfields")
	if _, err := svc.Register(context.Background(), "  ", "a@x.com", "pw"); err == nil {
		t.Fatalf("expected error for blank name")
	}
	if _, err := svc.Register(context.Background(), "A", "a@x.com", ""); err == nil {
		t.Fatalf("expected error for empty password")
	}
}
