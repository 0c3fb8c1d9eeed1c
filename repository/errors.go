package repository

import (
	"errors"

	"github.com/mattn/go-sqlite3"
)

var (
	// ErrDuplicateEmail is returned when a user with the same email already exists.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrUnknownOwner is returned when an issue references a user that does not exist.
	ErrUnknownOwner = errors.New("issue owner does not exist")
	// ErrInvalidRole is returned for roles outside user/admin.
	ErrInvalidRole = errors.New("invalid role")
	// ErrInvalidStatus is returned for issue statuses outside the known set.
	ErrInvalidStatus = errors.New("invalid issue status")
)

// constraintKind maps a SQLite constraint violation to its extended code.
// It returns 0 when err is not a constraint violation.
func constraintKind(err error) sqlite3.ErrNoExtended {
	var se sqlite3.Error
	if errors.As(err, &se) && se.Code == sqlite3.ErrConstraint {
		return se.ExtendedCode
	}
	return 0
}
