package authz

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	for _, raw := range []string{"owner", "admin", "manager", "member"} {
		r, err := ParseRole(raw)
		require.NoError(t, err)
		assert.Equal(t, Role(raw), r)
	}

	_, err := ParseRole("superuser")
	assert.Error(t, err)
	_, err = ParseRole("")
	assert.Error(t, err)
}

func TestRoleOrdering(t *testing.T) {
	assert.True(t, RoleOwner.AtLeast(RoleAdmin))
	assert.True(t, RoleAdmin.AtLeast(RoleManager))
	assert.True(t, RoleManager.AtLeast(RoleMember))
	assert.True(t, RoleMember.AtLeast(RoleMember))

	assert.False(t, RoleMember.AtLeast(RoleManager))
	assert.False(t, RoleManager.AtLeast(RoleAdmin))
	assert.False(t, RoleAdmin.AtLeast(RoleOwner))

	// Unknown roles rank below member.
	assert.False(t, Role("mystery").AtLeast(RoleMember))
}

func TestEffectiveRoleOwnerLinkageWins(t *testing.T) {
	e := NewEngine()
	ownerID := uuid.New()
	org := Org{ID: uuid.New(), OwnerID: ownerID}

	// The linkage elevates regardless of the stored role.
	a := Actor{ID: ownerID, OrgID: org.ID, Role: RoleMember}
	assert.Equal(t, RoleOwner, e.EffectiveRole(a, org))

	// Everyone else keeps their stored role.
	b := Actor{ID: uuid.New(), OrgID: org.ID, Role: RoleAdmin}
	assert.Equal(t, RoleAdmin, e.EffectiveRole(b, org))
}

func TestAtLeastRequiresMembership(t *testing.T) {
	e := NewEngine()
	org := Org{ID: uuid.New(), OwnerID: uuid.New()}

	outsider := Actor{ID: uuid.New(), OrgID: uuid.New(), Role: RoleOwner}
	assert.False(t, e.AtLeast(outsider, org, RoleMember))
}

func TestIsProjectMember(t *testing.T) {
	e := NewEngine()
	org := Org{ID: uuid.New(), OwnerID: uuid.New()}
	creator := uuid.New()
	listed := uuid.New()

	p := Project{
		ID:        uuid.New(),
		OrgID:     org.ID,
		CreatedBy: creator,
		Members:   []ProjectMember{{UserID: listed, Role: ProjectRoleMember}},
	}

	tests := []struct {
		name  string
		actor Actor
		want  bool
	}{
		{"listed member", Actor{ID: listed, OrgID: org.ID, Role: RoleMember}, true},
		{"creator", Actor{ID: creator, OrgID: org.ID, Role: RoleMember}, true},
		{"org admin", Actor{ID: uuid.New(), OrgID: org.ID, Role: RoleAdmin}, true},
		{"org owner by linkage", Actor{ID: org.OwnerID, OrgID: org.ID, Role: RoleMember}, true},
		{"unrelated org member", Actor{ID: uuid.New(), OrgID: org.ID, Role: RoleMember}, false},
		{"org manager not listed", Actor{ID: uuid.New(), OrgID: org.ID, Role: RoleManager}, false},
		{"listed but wrong org", Actor{ID: listed, OrgID: uuid.New(), Role: RoleMember}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, e.IsProjectMember(tt.actor, org, p))
		})
	}
}

func TestIsProjectMemberAllFactorCombinations(t *testing.T) {
	e := NewEngine()
	org := Org{ID: uuid.New(), OwnerID: uuid.New()}

	// Visibility is the union of three independent factors. All eight
	// combinations, including the overlapping ones, resolve to their OR.
	for _, admin := range []bool{false, true} {
		for _, creator := range []bool{false, true} {
			for _, listed := range []bool{false, true} {
				actor := Actor{ID: uuid.New(), OrgID: org.ID, Role: RoleMember}
				if admin {
					actor.Role = RoleAdmin
				}

				p := Project{ID: uuid.New(), OrgID: org.ID, CreatedBy: uuid.New()}
				if creator {
					p.CreatedBy = actor.ID
				}
				if listed {
					p.Members = []ProjectMember{{UserID: actor.ID, Role: ProjectRoleMember}}
				}

				want := admin || creator || listed
				got := e.IsProjectMember(actor, org, p)
				assert.Equal(t, want, got,
					"admin=%v creator=%v listed=%v", admin, creator, listed)
			}
		}
	}
}

func TestCrossTenantDenialWrapsForbidden(t *testing.T) {
	e := NewEngine()
	org := Org{ID: uuid.New(), OwnerID: uuid.New()}
	outsider := Actor{ID: uuid.New(), OrgID: uuid.New(), Role: RoleOwner}

	err := e.CanInviteMember(outsider, org)
	require.Error(t, err)

	// Internally classifiable, externally indistinguishable.
	assert.True(t, errors.Is(err, ErrCrossTenant))
	assert.True(t, errors.Is(err, ErrForbidden))
	assert.Equal(t, "cross_tenant", Classify(err))

	insider := Actor{ID: uuid.New(), OrgID: org.ID, Role: RoleMember}
	err = e.CanInviteMember(insider, org)
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrCrossTenant))
	assert.Equal(t, "forbidden", Classify(err))
}

func TestOrganizationDecisions(t *testing.T) {
	e := NewEngine()
	ownerID := uuid.New()
	org := Org{ID: uuid.New(), OwnerID: ownerID}

	owner := Actor{ID: ownerID, OrgID: org.ID, Role: RoleOwner}
	admin := Actor{ID: uuid.New(), OrgID: org.ID, Role: RoleAdmin}
	manager := Actor{ID: uuid.New(), OrgID: org.ID, Role: RoleManager}
	member := Actor{ID: uuid.New(), OrgID: org.ID, Role: RoleMember}

	assert.NoError(t, e.CanDeleteOrganization(owner, org))
	assert.Error(t, e.CanDeleteOrganization(admin, org))

	assert.NoError(t, e.CanInviteMember(admin, org))
	assert.Error(t, e.CanInviteMember(manager, org))

	// Admins update members, only the owner removes them.
	target := uuid.New()
	assert.NoError(t, e.CanUpdateOrgMember(admin, org, target))
	assert.Error(t, e.CanUpdateOrgMember(manager, org, target))
	assert.NoError(t, e.CanRemoveOrgMember(owner, org, target))
	assert.Error(t, e.CanRemoveOrgMember(admin, org, target))

	// The owner's own row is untouchable through either path.
	assert.Error(t, e.CanUpdateOrgMember(admin, org, ownerID))
	assert.Error(t, e.CanRemoveOrgMember(owner, org, ownerID))

	assert.NoError(t, e.CanCreateProject(manager, org))
	assert.Error(t, e.CanCreateProject(member, org))
}

func TestCanManageProjectMembers(t *testing.T) {
	e := NewEngine()
	org := Org{ID: uuid.New(), OwnerID: uuid.New()}
	creator := uuid.New()
	listedAdmin := uuid.New()
	listedMember := uuid.New()

	p := Project{
		ID:        uuid.New(),
		OrgID:     org.ID,
		CreatedBy: creator,
		Members: []ProjectMember{
			{UserID: listedAdmin, Role: ProjectRoleAdmin},
			{UserID: listedMember, Role: ProjectRoleMember},
		},
	}

	assert.NoError(t, e.CanManageProjectMembers(Actor{ID: creator, OrgID: org.ID, Role: RoleMember}, org, p))
	assert.NoError(t, e.CanManageProjectMembers(Actor{ID: listedAdmin, OrgID: org.ID, Role: RoleMember}, org, p))
	assert.NoError(t, e.CanManageProjectMembers(Actor{ID: uuid.New(), OrgID: org.ID, Role: RoleManager}, org, p))
	assert.Error(t, e.CanManageProjectMembers(Actor{ID: listedMember, OrgID: org.ID, Role: RoleMember}, org, p))
}

func TestVisibleProjects(t *testing.T) {
	e := NewEngine()
	org := Org{ID: uuid.New(), OwnerID: uuid.New()}
	me := uuid.New()

	created := Project{ID: uuid.New(), OrgID: org.ID, CreatedBy: me}
	listed := Project{ID: uuid.New(), OrgID: org.ID, CreatedBy: uuid.New(),
		Members: []ProjectMember{{UserID: me, Role: ProjectRoleMember}}}
	unrelated := Project{ID: uuid.New(), OrgID: org.ID, CreatedBy: uuid.New()}
	foreign := Project{ID: uuid.New(), OrgID: uuid.New(), CreatedBy: me}

	all := []Project{created, listed, unrelated, foreign}

	member := Actor{ID: me, OrgID: org.ID, Role: RoleMember}
	visible := e.VisibleProjects(member, org, all)
	require.Len(t, visible, 2)
	assert.Equal(t, created.ID, visible[0].ID)
	assert.Equal(t, listed.ID, visible[1].ID)

	// Admins see every project in the organization, never foreign ones.
	admin := Actor{ID: uuid.New(), OrgID: org.ID, Role: RoleAdmin}
	visible = e.VisibleProjects(admin, org, all)
	assert.Len(t, visible, 3)
}

func TestCanManageBoardOwnerElevation(t *testing.T) {
	e := NewEngine()
	org := Org{ID: uuid.New(), OwnerID: uuid.New()}
	boardOwner := uuid.New()
	p := Project{ID: uuid.New(), OrgID: org.ID, CreatedBy: uuid.New()}
	b := Board{ID: uuid.New(), ProjectID: p.ID, OwnerID: boardOwner}

	// The board owner manages their board even as a plain member.
	assert.NoError(t, e.CanManageBoard(Actor{ID: boardOwner, OrgID: org.ID, Role: RoleMember}, org, p, b))

	// The elevation does not cross tenants.
	err := e.CanManageBoard(Actor{ID: boardOwner, OrgID: uuid.New(), Role: RoleMember}, org, p, b)
	assert.True(t, errors.Is(err, ErrCrossTenant))

	// Another plain member does not manage it.
	assert.Error(t, e.CanManageBoard(Actor{ID: uuid.New(), OrgID: org.ID, Role: RoleMember}, org, p, b))

	// Project admins do.
	assert.NoError(t, e.CanManageBoard(Actor{ID: p.CreatedBy, OrgID: org.ID, Role: RoleMember}, org, p, b))
}

func TestTaskDecisions(t *testing.T) {
	e := NewEngine()
	org := Org{ID: uuid.New(), OwnerID: uuid.New()}
	assignee := uuid.New()
	p := Project{ID: uuid.New(), OrgID: org.ID, CreatedBy: uuid.New(),
		Members: []ProjectMember{{UserID: assignee, Role: ProjectRoleMember}}}
	task := Task{ID: uuid.New(), BoardID: uuid.New(), CreatedBy: uuid.New(), AssigneeIDs: []uuid.UUID{assignee}}

	manager := Actor{ID: uuid.New(), OrgID: org.ID, Role: RoleManager}
	assignedMember := Actor{ID: assignee, OrgID: org.ID, Role: RoleMember}
	otherMember := Actor{ID: uuid.New(), OrgID: org.ID, Role: RoleMember}

	// Content edits: managers always, members only when assigned.
	assert.NoError(t, e.CanEditTask(manager, org, p, task))
	assert.NoError(t, e.CanEditTask(assignedMember, org, p, task))
	assert.Error(t, e.CanEditTask(otherMember, org, p, task))

	// Workflow moves: any project member.
	assert.NoError(t, e.CanMoveTask(assignedMember, org, p))
	assert.Error(t, e.CanMoveTask(otherMember, org, p))

	// Deletes: manager and above only.
	assert.NoError(t, e.CanDeleteTask(manager, org, p))
	assert.Error(t, e.CanDeleteTask(assignedMember, org, p))
}

func TestCanEditComment(t *testing.T) {
	e := NewEngine()
	org := Org{ID: uuid.New(), OwnerID: uuid.New()}
	author := uuid.New()

	assert.NoError(t, e.CanEditComment(Actor{ID: author, OrgID: org.ID, Role: RoleMember}, org, author))
	assert.NoError(t, e.CanEditComment(Actor{ID: uuid.New(), OrgID: org.ID, Role: RoleAdmin}, org, author))
	assert.Error(t, e.CanEditComment(Actor{ID: uuid.New(), OrgID: org.ID, Role: RoleManager}, org, author))
}

func TestClassify(t *testing.T) {
	assert.Equal(t, "allow", Classify(nil))
	assert.Equal(t, "cross_tenant", Classify(ErrCrossTenant))
	assert.Equal(t, "forbidden", Classify(ErrForbidden))
	assert.Equal(t, "error", Classify(errors.New("boom")))
}
