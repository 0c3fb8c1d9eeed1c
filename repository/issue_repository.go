package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mattn/go-sqlite3"

	"civicReporting/models"
)

const issueColumns = `id, title, description, photo_path, location, status, user_id, created_at`

// IssueRepository stores citizen reports. Issues are never updated or deleted.
type IssueRepository struct {
	db *sql.DB
}

// NewIssueRepository creates a new IssueRepository.
func NewIssueRepository(db *sql.DB) *IssueRepository {
	return &IssueRepository{db: db}
}

// Create inserts a new issue. Status defaults to pending; created_at is assigned by the store.
// The owner must exist, otherwise ErrUnknownOwner is returned.
func (r *IssueRepository) Create(ctx context.Context, issue *models.Issue) (*models.Issue, error) {
	if issue == nil {
		return nil, errors.New("issue is nil")
	}
	if issue.Status == "" {
		issue.Status = models.IssueStatusPending
	}
	if !issue.Status.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, issue.Status)
	}
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	var photo sql.NullString
	if issue.PhotoPath != nil {
		photo = sql.NullString{String: *issue.PhotoPath, Valid: true}
	}
	res, err := r.db.ExecContext(ctx, `INSERT INTO issues (title, description, photo_path, location, status, user_id) VALUES (?,?,?,?,?,?)`,
		issue.Title, issue.Description, photo, issue.Location, string(issue.Status), issue.UserID)
	if err != nil {
		if constraintKind(err) == sqlite3.ErrConstraintForeignKey {
			return nil, fmt.Errorf("%w: user_id=%d", ErrUnknownOwner, issue.UserID)
		}
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	created, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if created == nil {
		return nil, fmt.Errorf("created issue not found: id=%d", id)
	}
	return created, nil
}

// GetByID fetches an issue by its ID. It returns nil, nil when absent.
func (r *IssueRepository) GetByID(ctx context.Context, id int64) (*models.Issue, error) {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	is, err := scanIssue(r.db.QueryRowContext(ctx, `SELECT `+issueColumns+` FROM issues WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return is, nil
}

// ListByOwner returns the issues submitted by userID in insertion order.
func (r *IssueRepository) ListByOwner(ctx context.Context, userID int64) ([]models.Issue, error) {
	return r.list(ctx, `SELECT `+issueColumns+` FROM issues WHERE user_id = ? ORDER BY id`, userID)
}

// ListAll returns every issue in insertion order.
func (r *IssueRepository) ListAll(ctx context.Context) ([]models.Issue, error) {
	return r.list(ctx, `SELECT `+issueColumns+` FROM issues ORDER BY id`)
}

func (r *IssueRepository) list(ctx context.Context, query string, args ...any) ([]models.Issue, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []models.Issue{}
	for rows.Next() {
		is, err := scanIssue(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *is)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func scanIssue(s rowScanner) (*models.Issue, error) {
	var (
		is     models.Issue
		photo  sql.NullString
		status string
	)
	if err := s.Scan(&is.ID, &is.Title, &is.Description, &photo, &is.Location, &status, &is.UserID, &is.CreatedAt); err != nil {
		return nil, err
	}
	if photo.Valid {
		p := photo.String
		is.PhotoPath = &p
	}
	is.Status = models.IssueStatus(status)
	return &is, nil
}
