package authz

import "fmt"

// Role is an organization-level role, ordered by privilege.
type Role string

const (
	RoleOwner   Role = "owner"
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleMember  Role = "member"
)

var roleLevels = map[Role]int{
	RoleOwner:   4,
	RoleAdmin:   3,
	RoleManager: 2,
	RoleMember:  1,
}

// ParseRole validates a role string coming from the API or the invitation ledger.
func ParseRole(raw string) (Role, error) {
	r := Role(raw)
	if _, ok := roleLevels[r]; !ok {
		return "", fmt.Errorf("invalid role %q", raw)
	}
	return r, nil
}

// Level returns the privilege rank of the role. Unknown roles rank below member.
func (r Role) Level() int {
	return roleLevels[r]
}

// AtLeast reports whether r carries at least the privilege of min.
func (r Role) AtLeast(min Role) bool {
	return r.Level() >= min.Level()
}

// ProjectRole is a per-project membership role. It is independent of the
// organization-level Role.
type ProjectRole string

const (
	ProjectRoleAdmin  ProjectRole = "admin"
	ProjectRoleMember ProjectRole = "member"
)

// ParseProjectRole validates a project membership role string.
func ParseProjectRole(raw string) (ProjectRole, error) {
	switch ProjectRole(raw) {
	case ProjectRoleAdmin, ProjectRoleMember:
		return ProjectRole(raw), nil
	}
	return "", fmt.Errorf("invalid project role %q", raw)
}
