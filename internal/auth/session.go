package auth

import (
	"civicReporting/models"
)

// Session keys shared with the HTML surface.
const (
	SessionUserIDKey  = "user_id"
	SessionAdminIDKey = "admin_id"
	SessionRoleKey    = "role"
)

// Identity is the requester's state for one request, built from the session.
// A zero Identity is anonymous.
type Identity struct {
	UserID  int64
	AdminID int64
	Role    models.Role
}

// Authenticated reports whether a user logged in through the regular login form.
func (i Identity) Authenticated() bool {
	return i.UserID != 0
}

// IsAdmin reports whether the session carries the admin role.
func (i Identity) IsAdmin() bool {
	return i.Role == models.RoleAdmin
}

// SessionValues is the minimal read access Identity needs from a session store.
type SessionValues interface {
	Get(key interface{}) interface{}
}

// IdentityFromSession decodes an Identity. Values of unexpected types are ignored,
// which leaves the corresponding field anonymous.
func IdentityFromSession(s SessionValues) Identity {
	var id Identity
	id.UserID = toInt64(s.Get(SessionUserIDKey))
	id.AdminID = toInt64(s.Get(SessionAdminIDKey))
	if r, ok := s.Get(SessionRoleKey).(string); ok && models.Role(r).Valid() {
		id.Role = models.Role(r)
	}
	return id
}

func toInt64(v interface{}) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	default:
		return 0
	}
}
