package tracker

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

// UserRole is a closed set of principal roles. The zero value is not a
// valid role so an unset field never silently grants anything.
type UserRole uint8

const (
	// RoleUser is assigned to every principal created through signup.
	RoleUser UserRole = iota + 1
	RoleModerator
	RoleAdmin
)

// AllRoles lists the valid roles in ascending privilege.
func AllRoles() []UserRole {
	return []UserRole{RoleUser, RoleModerator, RoleAdmin}
}

func (r UserRole) String() string {
	switch r {
	case RoleUser:
		return "user"
	case RoleModerator:
		return "moderator"
	case RoleAdmin:
		return "admin"
	default:
		return ""
	}
}

// IsValid checks if the role is one of the predefined valid roles
func (r UserRole) IsValid() bool {
	switch r {
	case RoleUser, RoleModerator, RoleAdmin:
		return true
	default:
		return false
	}
}

// IsAdmin reports whether the role grants unrestricted profile access.
func (r UserRole) IsAdmin() bool {
	switch r {
	case RoleAdmin:
		return true
	case RoleUser, RoleModerator:
		return false
	default:
		return false
	}
}

// ParseRole maps the stored or transmitted name to a UserRole.
func ParseRole(s string) (UserRole, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "user":
		return RoleUser, nil
	case "moderator":
		return RoleModerator, nil
	case "admin":
		return RoleAdmin, nil
	default:
		return 0, fmt.Errorf("unknown role %q", s)
	}
}

func (r UserRole) MarshalText() ([]byte, error) {
	if !r.IsValid() {
		return nil, fmt.Errorf("invalid role %d", r)
	}
	return []byte(r.String()), nil
}

func (r *UserRole) UnmarshalText(b []byte) error {
	role, err := ParseRole(string(b))
	if err != nil {
		return err
	}
	*r = role
	return nil
}

// Value implements driver.Valuer, roles are persisted by name.
func (r UserRole) Value() (driver.Value, error) {
	if !r.IsValid() {
		return RoleUser.String(), nil
	}
	return r.String(), nil
}

// Scan implements sql.Scanner.
func (r *UserRole) Scan(src any) error {
	switch v := src.(type) {
	case string:
		return r.UnmarshalText([]byte(v))
	case []byte:
		return r.UnmarshalText(v)
	case nil:
		*r = RoleUser
		return nil
	default:
		return fmt.Errorf("unsupported role type %T", src)
	}
}
