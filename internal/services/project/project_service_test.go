package project

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/curaious/trellis/internal/authz"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T) (*ProjectService, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	return NewProjectService(NewProjectRepo(sqlx.NewDb(mockDB, "sqlmock")), authz.NewEngine()), mock
}

func managerAndOrg() (authz.Actor, authz.Org) {
	org := authz.Org{ID: uuid.New(), OwnerID: uuid.New()}
	actor := authz.Actor{ID: uuid.New(), OrgID: org.ID, Role: authz.RoleManager}
	return actor, org
}

func TestCreateRequiresManager(t *testing.T) {
	svc, mock := newTestService(t)
	org := authz.Org{ID: uuid.New(), OwnerID: uuid.New()}
	member := authz.Actor{ID: uuid.New(), OrgID: org.ID, Role: authz.RoleMember}

	_, err := svc.Create(context.Background(), member, org, &CreateProjectRequest{Name: "Roadmap"})
	assert.True(t, errors.Is(err, authz.ErrForbidden))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddMemberCreatorImmutable(t *testing.T) {
	svc, mock := newTestService(t)
	actor, org := managerAndOrg()

	creator := uuid.New()
	p := authz.Project{ID: uuid.New(), OrgID: org.ID, CreatedBy: creator}

	_, err := svc.AddMember(context.Background(), actor, org, p,
		&AddMemberRequest{UserID: creator, Role: "member"})
	assert.ErrorIs(t, err, ErrCreatorImmutable)

	_, err = svc.UpdateMemberRole(context.Background(), actor, org, p, creator,
		&UpdateMemberRoleRequest{Role: "admin"})
	assert.ErrorIs(t, err, ErrCreatorImmutable)

	err = svc.RemoveMember(context.Background(), actor, org, p, creator)
	assert.ErrorIs(t, err, ErrCreatorImmutable)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddMemberRejectsInvalidRole(t *testing.T) {
	svc, mock := newTestService(t)
	actor, org := managerAndOrg()
	p := authz.Project{ID: uuid.New(), OrgID: org.ID, CreatedBy: uuid.New()}

	_, err := svc.AddMember(context.Background(), actor, org, p,
		&AddMemberRequest{UserID: uuid.New(), Role: "owner"})
	assert.ErrorIs(t, err, ErrInvalidProjectRole)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddMemberTargetOutsideOrg(t *testing.T) {
	svc, mock := newTestService(t)
	actor, org := managerAndOrg()
	p := authz.Project{ID: uuid.New(), OrgID: org.ID, CreatedBy: uuid.New()}
	target := uuid.New()

	mock.ExpectQuery(`SELECT organization_id FROM users`).
		WithArgs(target).
		WillReturnRows(sqlmock.NewRows([]string{"organization_id"}).AddRow(uuid.NewString()))

	_, err := svc.AddMember(context.Background(), actor, org, p,
		&AddMemberRequest{UserID: target, Role: "member"})
	assert.ErrorIs(t, err, ErrMemberNotInOrg)

	// An unknown target reports the same validation error.
	mock.ExpectQuery(`SELECT organization_id FROM users`).
		WithArgs(target).
		WillReturnRows(sqlmock.NewRows([]string{"organization_id"}))

	_, err = svc.AddMember(context.Background(), actor, org, p,
		&AddMemberRequest{UserID: target, Role: "member"})
	assert.ErrorIs(t, err, ErrMemberNotInOrg)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAddMemberDuplicate(t *testing.T) {
	svc, mock := newTestService(t)
	actor, org := managerAndOrg()
	p := authz.Project{ID: uuid.New(), OrgID: org.ID, CreatedBy: uuid.New()}
	target := uuid.New()

	mock.ExpectQuery(`SELECT organization_id FROM users`).
		WithArgs(target).
		WillReturnRows(sqlmock.NewRows([]string{"organization_id"}).AddRow(org.ID.String()))
	mock.ExpectQuery(`INSERT INTO project_members`).
		WithArgs(p.ID, target, authz.ProjectRoleMember).
		WillReturnError(&pq.Error{Code: "23505", Constraint: "project_members_pkey"})

	_, err := svc.AddMember(context.Background(), actor, org, p,
		&AddMemberRequest{UserID: target, Role: "member"})
	assert.ErrorIs(t, err, ErrDuplicateMember)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListFiltersByVisibility(t *testing.T) {
	svc, mock := newTestService(t)
	org := authz.Org{ID: uuid.New(), OwnerID: uuid.New()}
	me := uuid.New()
	member := authz.Actor{ID: me, OrgID: org.ID, Role: authz.RoleMember}

	mine := uuid.New()
	listed := uuid.New()
	hidden := uuid.New()
	now := time.Now()

	mock.ExpectQuery(`SELECT .+ FROM projects WHERE organization_id`).
		WithArgs(org.ID).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "organization_id", "name", "description", "created_by", "created_at", "updated_at",
		}).
			AddRow(mine.String(), org.ID.String(), "Mine", "", me.String(), now, now).
			AddRow(listed.String(), org.ID.String(), "Listed", "", uuid.NewString(), now, now).
			AddRow(hidden.String(), org.ID.String(), "Hidden", "", uuid.NewString(), now, now))
	mock.ExpectQuery(`SELECT project_id, user_id, role, created_at FROM project_members`).
		WithArgs(sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"project_id", "user_id", "role", "created_at"}).
			AddRow(listed.String(), me.String(), "member", now))

	visible, err := svc.List(context.Background(), member, org)
	require.NoError(t, err)
	require.Len(t, visible, 2)
	assert.Equal(t, mine, visible[0].ID)
	assert.Equal(t, listed, visible[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListRejectsForeignActor(t *testing.T) {
	svc, mock := newTestService(t)
	org := authz.Org{ID: uuid.New(), OwnerID: uuid.New()}
	outsider := authz.Actor{ID: uuid.New(), OrgID: uuid.New(), Role: authz.RoleOwner}

	_, err := svc.List(context.Background(), outsider, org)
	assert.True(t, errors.Is(err, authz.ErrForbidden))
	assert.NoError(t, mock.ExpectationsWereMet())
}
