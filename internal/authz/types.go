package authz

import "github.com/google/uuid"

// The engine decides on plain views of the persisted records. Service packages
// map their models into these before asking for a decision, which keeps the
// engine free of storage concerns.

// Actor is the authenticated user a decision is being made for.
type Actor struct {
	ID    uuid.UUID
	OrgID uuid.UUID
	Role  Role
}

// Org is the organization view relevant to authorization: identity plus the
// owner linkage, which takes precedence over the actor's stored role.
type Org struct {
	ID      uuid.UUID
	OwnerID uuid.UUID
}

// ProjectMember is one (user, role) entry in a project's member list.
type ProjectMember struct {
	UserID uuid.UUID
	Role   ProjectRole
}

// Project is the project view relevant to authorization.
type Project struct {
	ID        uuid.UUID
	OrgID     uuid.UUID
	CreatedBy uuid.UUID
	Members   []ProjectMember
}

// Member returns the membership entry for the given user, if any.
func (p Project) Member(userID uuid.UUID) (ProjectMember, bool) {
	for _, m := range p.Members {
		if m.UserID == userID {
			return m, true
		}
	}
	return ProjectMember{}, false
}

// Board is the board view relevant to authorization. The flat member list is
// informational; board rights are inherited from the project except for the
// owner's elevation.
type Board struct {
	ID        uuid.UUID
	ProjectID uuid.UUID
	OwnerID   uuid.UUID
	MemberIDs []uuid.UUID
}

// Task is the task view relevant to authorization.
type Task struct {
	ID          uuid.UUID
	BoardID     uuid.UUID
	CreatedBy   uuid.UUID
	AssigneeIDs []uuid.UUID
}

// AssignedTo reports whether the user is in the task's assignee list.
func (t Task) AssignedTo(userID uuid.UUID) bool {
	for _, id := range t.AssigneeIDs {
		if id == userID {
			return true
		}
	}
	return false
}
