package models

import "time"

// IssueStatus represents the review state of a reported issue.
type IssueStatus string

// New issues are pending; the other states are set outside this service.
const (
	IssueStatusPending    IssueStatus = "pending"
	IssueStatusInProgress IssueStatus = "in_progress"
	IssueStatusResolved   IssueStatus = "resolved"
)

// Valid reports whether s is one of the known statuses.
func (s IssueStatus) Valid() bool {
	switch s {
	case IssueStatusPending, IssueStatusInProgress, IssueStatusResolved:
		return true
	}
	return false
}

// Issue is a single citizen-submitted report. UserID references users.id.
type Issue struct {
	ID          int64       `db:"id" json:"id"`
	Title       string      `db:"title" json:"title"`
	Description string      `db:"description" json:"description"`
	PhotoPath   *string     `db:"photo_path" json:"photo_path,omitempty"` // nil when no photo was attached
	Location    string      `db:"location" json:"location"`
	Status      IssueStatus `db:"status" json:"status"`
	UserID      int64       `db:"user_id" json:"user_id"`
	CreatedAt   time.Time   `db:"created_at" json:"created_at"`
}

// HasPhoto reports whether a photo reference is stored for the issue.
func (i Issue) HasPhoto() bool {
	return i.PhotoPath != nil && *i.PhotoPath != ""
}
