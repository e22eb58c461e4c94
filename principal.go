package tracker

import (
	"github.com/google/uuid"
)

// Principal is the caller an operation runs on behalf of. The zero value is
// Anonymous.
type Principal struct {
	id            uuid.UUID
	username      string
	role          UserRole
	authenticated bool
}

// Anonymous is the principal for requests without a valid session token.
func Anonymous() Principal {
	return Principal{}
}

// NewPrincipal builds an authenticated principal.
func NewPrincipal(id uuid.UUID, role UserRole) Principal {
	if !role.IsValid() {
		role = RoleUser
	}
	return Principal{id: id, role: role, authenticated: true}
}

// PrincipalFromUser builds an authenticated principal from a stored record.
func PrincipalFromUser(u *User) Principal {
	if u == nil {
		return Anonymous()
	}
	p := NewPrincipal(u.ID, u.Role)
	p.username = u.Username
	return p
}

// PrincipalFromClaims resolves a principal from verified token claims. The
// role is the snapshot carried by the token. Claims that do not name a
// valid id resolve to Anonymous.
func PrincipalFromClaims(claims AuthClaims) Principal {
	if claims == nil {
		return Anonymous()
	}
	id, err := uuid.Parse(claims.UserID())
	if err != nil || id == uuid.Nil {
		return Anonymous()
	}
	role, err := ParseRole(claims.Role())
	if err != nil {
		role = RoleUser
	}
	return NewPrincipal(id, role)
}

func (p Principal) ID() uuid.UUID {
	return p.id
}

func (p Principal) Role() UserRole {
	return p.role
}

// Username is only known when the principal was built from a record.
func (p Principal) Username() string {
	return p.username
}

func (p Principal) IsAnonymous() bool {
	return !p.authenticated
}

func (p Principal) IsAdmin() bool {
	return p.authenticated && p.role.IsAdmin()
}

// Owns reports whether the principal is the given owner.
func (p Principal) Owns(ownerID uuid.UUID) bool {
	return p.authenticated && ownerID != uuid.Nil && p.id == ownerID
}
