package models

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

// Role is a capability granted to a user.
type Role string

const (
	RoleUser      Role = "USER"
	RoleModerator Role = "MODERATOR"
	RoleAdmin     Role = "ADMIN"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleModerator, RoleAdmin:
		return true
	}
	return false
}

// RoleSet is stored as a comma separated column, e.g. "USER,MODERATOR".
type RoleSet []Role

// Has reports whether the set contains role.
func (s RoleSet) Has(role Role) bool {
	for _, r := range s {
		if r == role {
			return true
		}
	}
	return false
}

// Normalize drops unknown and duplicate roles and always keeps USER.
func (s RoleSet) Normalize() RoleSet {
	out := RoleSet{RoleUser}
	for _, r := range s {
		r = Role(strings.ToUpper(strings.TrimSpace(string(r))))
		if !r.Valid() || out.Has(r) {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Value implements driver.Valuer.
func (s RoleSet) Value() (driver.Value, error) {
	parts := make([]string, 0, len(s))
	for _, r := range s {
		parts = append(parts, string(r))
	}
	return strings.Join(parts, ","), nil
}

// Scan implements sql.Scanner.
func (s *RoleSet) Scan(src interface{}) error {
	var raw string
	switch v := src.(type) {
	case nil:
		*s = nil
		return nil
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return fmt.Errorf("roleset: unsupported type %T", src)
	}
	set := RoleSet{}
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			set = append(set, Role(p))
		}
	}
	*s = set
	return nil
}
