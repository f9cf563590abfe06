package authz

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrForbidden is returned for every denied decision. Callers translate it to
// a 403 without further detail.
var ErrForbidden = errors.New("access denied")

// ErrCrossTenant marks denials where the actor and the resource belong to
// different organizations. It wraps ErrForbidden so external callers cannot
// tell a cross-tenant denial apart from a plain membership failure; the
// distinction exists for internal classification only.
var ErrCrossTenant = fmt.Errorf("cross-tenant access: %w", ErrForbidden)

// Engine is the authorization decision component. It is pure: every method
// operates on the views passed in and performs no I/O.
type Engine struct{}

func NewEngine() *Engine {
	return &Engine{}
}

// EffectiveRole reconciles the organization's owner linkage against the
// actor's stored role. The linkage wins: immediately after an organization is
// created the owner's stored role may not yet say "owner". This is the only
// place roles are resolved; nothing else reads Actor.Role directly.
func (e *Engine) EffectiveRole(a Actor, org Org) Role {
	if org.OwnerID == a.ID {
		return RoleOwner
	}
	return a.Role
}

// IsMember reports whether the actor belongs to the organization. A user
// belongs to exactly the one organization it was created under.
func (e *Engine) IsMember(a Actor, org Org) bool {
	return a.OrgID == org.ID
}

// AtLeast reports whether the actor's effective role in the organization
// meets the minimum.
func (e *Engine) AtLeast(a Actor, org Org, min Role) bool {
	if !e.IsMember(a, org) {
		return false
	}
	return e.EffectiveRole(a, org).AtLeast(min)
}

// IsProjectMember is the membership predicate for project-scoped actions:
// the actor is a listed member, is the project's creator, or holds an
// admin-or-above organization role. Every call site goes through here.
func (e *Engine) IsProjectMember(a Actor, org Org, p Project) bool {
	if !e.IsMember(a, org) {
		return false
	}
	if e.AtLeast(a, org, RoleAdmin) {
		return true
	}
	if p.CreatedBy == a.ID {
		return true
	}
	_, listed := p.Member(a.ID)
	return listed
}

// isProjectAdmin reports whether the actor can act as an admin of the
// project: org manager-or-above, the creator, or a listed admin member.
func (e *Engine) isProjectAdmin(a Actor, org Org, p Project) bool {
	if e.AtLeast(a, org, RoleManager) {
		return true
	}
	if p.CreatedBy == a.ID {
		return true
	}
	m, ok := p.Member(a.ID)
	return ok && m.Role == ProjectRoleAdmin
}

// tenantCheck denies with the cross-tenant classification before any role
// logic runs. resourceOrgID is the resource's transitively resolved
// organization.
func (e *Engine) tenantCheck(a Actor, resourceOrgID uuid.UUID) error {
	if a.OrgID != resourceOrgID {
		return ErrCrossTenant
	}
	return nil
}

// ---- Organization actions ----

func (e *Engine) CanDeleteOrganization(a Actor, org Org) error {
	if err := e.tenantCheck(a, org.ID); err != nil {
		return err
	}
	if e.EffectiveRole(a, org) != RoleOwner {
		return ErrForbidden
	}
	return nil
}

func (e *Engine) CanInviteMember(a Actor, org Org) error {
	if err := e.tenantCheck(a, org.ID); err != nil {
		return err
	}
	if !e.AtLeast(a, org, RoleAdmin) {
		return ErrForbidden
	}
	return nil
}

// CanUpdateOrgMember covers name/role edits of another member's row. The
// owner's own row is never editable through this path.
func (e *Engine) CanUpdateOrgMember(a Actor, org Org, targetID uuid.UUID) error {
	if err := e.tenantCheck(a, org.ID); err != nil {
		return err
	}
	if !e.AtLeast(a, org, RoleAdmin) {
		return ErrForbidden
	}
	if targetID == org.OwnerID {
		return ErrForbidden
	}
	return nil
}

// CanRemoveOrgMember covers deleting a member from the organization. Owner
// only, and never the owner's own row.
func (e *Engine) CanRemoveOrgMember(a Actor, org Org, targetID uuid.UUID) error {
	if err := e.tenantCheck(a, org.ID); err != nil {
		return err
	}
	if e.EffectiveRole(a, org) != RoleOwner {
		return ErrForbidden
	}
	if targetID == org.OwnerID {
		return ErrForbidden
	}
	return nil
}

// ---- Project actions ----

func (e *Engine) CanCreateProject(a Actor, org Org) error {
	if err := e.tenantCheck(a, org.ID); err != nil {
		return err
	}
	if !e.AtLeast(a, org, RoleManager) {
		return ErrForbidden
	}
	return nil
}

func (e *Engine) CanViewProject(a Actor, org Org, p Project) error {
	if err := e.tenantCheck(a, org.ID); err != nil {
		return err
	}
	if !e.IsProjectMember(a, org, p) {
		return ErrForbidden
	}
	return nil
}

func (e *Engine) CanManageProjectMembers(a Actor, org Org, p Project) error {
	if err := e.tenantCheck(a, org.ID); err != nil {
		return err
	}
	if !e.isProjectAdmin(a, org, p) {
		return ErrForbidden
	}
	return nil
}

// VisibleProjects returns the subset of projects the actor may see: all of
// them for org admins and owners, otherwise those the actor created or is a
// listed member of. The union is computed here, over the fully loaded set,
// before anything is handed back to the caller.
func (e *Engine) VisibleProjects(a Actor, org Org, projects []Project) []Project {
	visible := make([]Project, 0, len(projects))
	for _, p := range projects {
		if p.OrgID != org.ID {
			continue
		}
		if e.IsProjectMember(a, org, p) {
			visible = append(visible, p)
		}
	}
	return visible
}

// ---- Board actions ----

func (e *Engine) CanCreateBoard(a Actor, org Org, p Project) error {
	if err := e.tenantCheck(a, org.ID); err != nil {
		return err
	}
	if !e.AtLeast(a, org, RoleManager) {
		return ErrForbidden
	}
	return nil
}

// CanManageBoard covers board field updates, deletion and member list edits.
// The board's owner acts with project-admin rights on this board only.
func (e *Engine) CanManageBoard(a Actor, org Org, p Project, b Board) error {
	if err := e.tenantCheck(a, org.ID); err != nil {
		return err
	}
	if b.OwnerID == a.ID && e.IsMember(a, org) {
		return nil
	}
	if !e.isProjectAdmin(a, org, p) {
		return ErrForbidden
	}
	return nil
}

// ---- Task actions ----

func (e *Engine) CanCreateTask(a Actor, org Org) error {
	if err := e.tenantCheck(a, org.ID); err != nil {
		return err
	}
	if !e.IsMember(a, org) {
		return ErrForbidden
	}
	return nil
}

// CanEditTask covers content edits: title, description, assignee list and the
// attachment reference. Managers and above may edit any task in the org;
// plain members only the tasks they are assigned to.
func (e *Engine) CanEditTask(a Actor, org Org, p Project, t Task) error {
	if err := e.tenantCheck(a, org.ID); err != nil {
		return err
	}
	if e.AtLeast(a, org, RoleManager) {
		return nil
	}
	if e.IsMember(a, org) && t.AssignedTo(a.ID) {
		return nil
	}
	return ErrForbidden
}

// CanMoveTask covers board moves and status-only updates. These are workflow
// operations, open to any project member regardless of role.
func (e *Engine) CanMoveTask(a Actor, org Org, p Project) error {
	if err := e.tenantCheck(a, org.ID); err != nil {
		return err
	}
	if !e.IsProjectMember(a, org, p) {
		return ErrForbidden
	}
	return nil
}

func (e *Engine) CanDeleteTask(a Actor, org Org, p Project) error {
	if err := e.tenantCheck(a, org.ID); err != nil {
		return err
	}
	if !e.AtLeast(a, org, RoleManager) {
		return ErrForbidden
	}
	return nil
}

// ---- Comment actions ----

func (e *Engine) CanComment(a Actor, org Org, p Project) error {
	if err := e.tenantCheck(a, org.ID); err != nil {
		return err
	}
	if !e.IsProjectMember(a, org, p) {
		return ErrForbidden
	}
	return nil
}

func (e *Engine) CanEditComment(a Actor, org Org, authorID uuid.UUID) error {
	if err := e.tenantCheck(a, org.ID); err != nil {
		return err
	}
	if a.ID == authorID {
		return nil
	}
	if !e.AtLeast(a, org, RoleAdmin) {
		return ErrForbidden
	}
	return nil
}

// Classify maps a decision result to its internal audit label. Cross-tenant
// denials keep their own label here even though callers only ever see a
// generic denial.
func Classify(err error) string {
	switch {
	case err == nil:
		return "allow"
	case errors.Is(err, ErrCrossTenant):
		return "cross_tenant"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	default:
		return "error"
	}
}
