package repository

import (
	"context"

	"civicReporting/models"
)

// UserRepositoryI defines operations on User entities.
type UserRepositoryI interface {
	Create(ctx context.Context, name, email, passwordHash string, role models.Role) (*models.User, error)
	GetByID(ctx context.Context, id int64) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetAdminByEmail(ctx context.Context, email string) (*models.User, error)
	List(ctx context.Context, limit, offset int) ([]models.User, error)
}

// IssueRepositoryI defines operations on Issue entities.
type IssueRepositoryI interface {
	Create(ctx context.Context, issue *models.Issue) (*models.Issue, error)
	GetByID(ctx context.Context, id int64) (*models.Issue, error)
	ListByOwner(ctx context.Context, userID int64) ([]models.Issue, error)
	ListAll(ctx context.Context) ([]models.Issue, error)
}

var (
	_ UserRepositoryI  = (*UserRepository)(nil)
	_ IssueRepositoryI = (*IssueRepository)(nil)
)
