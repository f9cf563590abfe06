package project

import (
	"time"

	"github.com/curaious/trellis/internal/authz"
	"github.com/google/uuid"
)

// Project groups boards inside an organization. The creator is tracked on the
// row itself and is never listed in project_members; membership checks treat
// the creator as an implicit admin.
type Project struct {
	ID             uuid.UUID `db:"id" json:"id"`
	OrganizationID uuid.UUID `db:"organization_id" json:"organization_id"`
	Name           string    `db:"name" json:"name"`
	Description    string    `db:"description" json:"description,omitempty"`
	CreatedBy      uuid.UUID `db:"created_by" json:"created_by"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`

	Members []*Member `db:"-" json:"members,omitempty"`
}

// Member is one explicit (user, role) entry on a project.
type Member struct {
	ProjectID uuid.UUID         `db:"project_id" json:"project_id"`
	UserID    uuid.UUID         `db:"user_id" json:"user_id"`
	Role      authz.ProjectRole `db:"role" json:"role"`
	CreatedAt time.Time         `db:"created_at" json:"created_at"`
}

// Authz maps the project and its loaded member list into the engine's view.
func (p *Project) Authz() authz.Project {
	members := make([]authz.ProjectMember, 0, len(p.Members))
	for _, m := range p.Members {
		members = append(members, authz.ProjectMember{UserID: m.UserID, Role: m.Role})
	}
	return authz.Project{
		ID:        p.ID,
		OrgID:     p.OrganizationID,
		CreatedBy: p.CreatedBy,
		Members:   members,
	}
}

type CreateProjectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type UpdateProjectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type AddMemberRequest struct {
	UserID uuid.UUID `json:"user_id"`
	Role   string    `json:"role"`
}

type UpdateMemberRoleRequest struct {
	Role string `json:"role"`
}
