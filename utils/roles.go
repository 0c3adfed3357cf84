package utils

import (
	"strings"

	"github.com/cppla/qaforum/models"
)

const (
	// ContextUserKey stores the authenticated *models.User inside the gin context.
	ContextUserKey = "current_user"
	// ContextRequestIDKey stores the per-request id.
	ContextRequestIDKey = "request_id"
)

// HasAny reports whether userRoles and required intersect. An empty required set
// matches nobody.
func HasAny(userRoles, required []models.Role) bool {
	for _, want := range required {
		for _, have := range userRoles {
			if have == want {
				return true
			}
		}
	}
	return false
}

// IsStaff reports whether the roles carry moderation powers.
func IsStaff(roles []models.Role) bool {
	return HasAny(roles, []models.Role{models.RoleModerator, models.RoleAdmin})
}

// ParseRoles converts configuration strings into roles, dropping unknown names.
func ParseRoles(names []string) []models.Role {
	out := make([]models.Role, 0, len(names))
	for _, n := range names {
		r := models.Role(strings.ToUpper(strings.TrimSpace(n)))
		if r.Valid() {
			out = append(out, r)
		}
	}
	return out
}
