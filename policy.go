package tracker

import (
	"net/http"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// Verb is the coarse action an operation performs.
type Verb uint8

const (
	VerbRead Verb = iota + 1
	VerbWrite
)

func (v Verb) String() string {
	switch v {
	case VerbRead:
		return "read"
	case VerbWrite:
		return "write"
	default:
		return "unknown"
	}
}

// VerbFromMethod maps safe HTTP methods to VerbRead and everything else to
// VerbWrite.
func VerbFromMethod(method string) Verb {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return VerbRead
	default:
		return VerbWrite
	}
}

// ResourceKind names the resource family a Target belongs to.
type ResourceKind uint8

const (
	ResourceUserProfile ResourceKind = iota + 1
	ResourceProject
	ResourceTask
)

func (k ResourceKind) String() string {
	switch k {
	case ResourceUserProfile:
		return "user_profile"
	case ResourceProject:
		return "project"
	case ResourceTask:
		return "task"
	default:
		return "unknown"
	}
}

// Target is the resource an operation acts on. OwnerID is the profile
// owner for user profiles and the author for projects and tasks. Existing
// is false for collection level operations such as listing and creation.
type Target struct {
	Kind     ResourceKind
	OwnerID  uuid.UUID
	Existing bool
}

// ProfileTarget targets an existing user profile.
func ProfileTarget(u *User) Target {
	t := Target{Kind: ResourceUserProfile, Existing: true}
	if u != nil {
		t.OwnerID = u.ID
	}
	return t
}

// ProfileCollection targets the user collection itself.
func ProfileCollection() Target {
	return Target{Kind: ResourceUserProfile}
}

func ProjectTarget(p *Project) Target {
	t := Target{Kind: ResourceProject, Existing: true}
	if p != nil {
		t.OwnerID = p.AuthorID
	}
	return t
}

func NewProjectTarget() Target {
	return Target{Kind: ResourceProject}
}

func TaskTarget(task *Task) Target {
	t := Target{Kind: ResourceTask, Existing: true}
	if task != nil {
		t.OwnerID = task.AuthorID
	}
	return t
}

func NewTaskTarget() Target {
	return Target{Kind: ResourceTask}
}

// Decision is the outcome of a policy evaluation.
type Decision uint8

const (
	Allow Decision = iota
	DenyUnauthenticated
	DenyForbidden
)

func (d Decision) Allowed() bool {
	return d == Allow
}

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case DenyUnauthenticated:
		return "unauthenticated"
	case DenyForbidden:
		return "forbidden"
	default:
		return "unknown"
	}
}

// Err maps a denial to the client visible error, nil when allowed.
func (d Decision) Err() error {
	switch d {
	case Allow:
		return nil
	case DenyUnauthenticated:
		return ErrUnauthenticated.Clone()
	case DenyForbidden:
		return ErrForbidden.Clone()
	default:
		return ErrForbidden.Clone()
	}
}

// Policy is a pure function of principal, verb and target.
type Policy func(p Principal, verb Verb, target Target) Decision

// IdentityScope governs user profiles. Anonymous callers are always
// rejected. Admins may read and write every profile, everybody else only
// their own. Collection level access is admin only.
func IdentityScope(p Principal, verb Verb, target Target) Decision {
	if target.Kind != ResourceUserProfile {
		return Allow
	}
	if p.IsAnonymous() {
		return DenyUnauthenticated
	}

	switch p.Role() {
	case RoleAdmin:
		return Allow
	case RoleUser, RoleModerator:
		if target.Existing && p.Owns(target.OwnerID) {
			return Allow
		}
		return DenyForbidden
	default:
		return DenyForbidden
	}
}

// OwnershipScope governs projects and tasks. Reads are public. Creation
// needs an authenticated caller and mutating an existing instance needs
// the caller to be its author, whatever the role.
func OwnershipScope(p Principal, verb Verb, target Target) Decision {
	switch target.Kind {
	case ResourceProject, ResourceTask:
	default:
		return Allow
	}

	switch verb {
	case VerbRead:
		return Allow
	case VerbWrite:
		if p.IsAnonymous() {
			return DenyUnauthenticated
		}
		if !target.Existing || p.Owns(target.OwnerID) {
			return Allow
		}
		return DenyForbidden
	default:
		return DenyForbidden
	}
}

// All composes policies with a logical AND, returning the first denial.
func All(policies ...Policy) Policy {
	return func(p Principal, verb Verb, target Target) Decision {
		for _, policy := range policies {
			if d := policy(p, verb, target); d != Allow {
				return d
			}
		}
		return Allow
	}
}

// DefaultPolicy is the evaluator consulted by Authorize.
var DefaultPolicy = All(IdentityScope, OwnershipScope)

// Authorize evaluates DefaultPolicy.
func Authorize(p Principal, verb Verb, target Target) Decision {
	return DefaultPolicy(p, verb, target)
}

// authorizeErr evaluates the policy and decorates denials for logging.
func authorizeErr(p Principal, verb Verb, target Target) error {
	err := Authorize(p, verb, target).Err()
	if err == nil {
		return nil
	}
	var e *errors.Error
	if errors.As(err, &e) {
		e.WithMetadata(map[string]any{
			"verb":     verb.String(),
			"resource": target.Kind.String(),
		})
	}
	return err
}
