package invitation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/curaious/trellis/internal/authz"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*InvitationService, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	db := sqlx.NewDb(mockDB, "sqlmock")
	svc := NewInvitationService(NewInvitationRepo(db), authz.NewEngine(), 7)
	svc.now = func() time.Time { return fixedNow }
	return svc, mock
}

func invitationRows(inv *Invitation) *sqlmock.Rows {
	var memberID interface{}
	if inv.MemberID != nil {
		memberID = inv.MemberID.String()
	}
	var acceptedAt interface{}
	if inv.AcceptedAt != nil {
		acceptedAt = *inv.AcceptedAt
	}
	return sqlmock.NewRows([]string{
		"id", "organization_id", "invited_by", "email", "member_id", "status",
		"role", "token", "expires_at", "accepted_at", "created_at", "updated_at",
	}).AddRow(
		inv.ID.String(), inv.OrganizationID.String(), inv.InvitedBy.String(), inv.Email,
		memberID, string(inv.Status), string(inv.Role), inv.Token,
		inv.ExpiresAt, acceptedAt, inv.CreatedAt, inv.UpdatedAt,
	)
}

func adminAndOrg() (authz.Actor, authz.Org) {
	org := authz.Org{ID: uuid.New(), OwnerID: uuid.New()}
	actor := authz.Actor{ID: uuid.New(), OrgID: org.ID, Role: authz.RoleAdmin}
	return actor, org
}

func TestCreateOrRecycleForbiddenBeforeAnyQuery(t *testing.T) {
	svc, mock := newTestService(t)
	org := authz.Org{ID: uuid.New(), OwnerID: uuid.New()}
	manager := authz.Actor{ID: uuid.New(), OrgID: org.ID, Role: authz.RoleManager}

	_, err := svc.CreateOrRecycle(context.Background(), manager, org,
		&CreateInvitationRequest{Email: "dev@example.com", Role: "member"})
	assert.True(t, errors.Is(err, authz.ErrForbidden))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateOrRecycleRejectsBadRoles(t *testing.T) {
	svc, mock := newTestService(t)
	actor, org := adminAndOrg()

	for _, role := range []string{"owner", "superuser", ""} {
		_, err := svc.CreateOrRecycle(context.Background(), actor, org,
			&CreateInvitationRequest{Email: "dev@example.com", Role: role})
		assert.ErrorIs(t, err, ErrInvalidRole, "role %q", role)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateOrRecycleRejectsBadEmails(t *testing.T) {
	svc, mock := newTestService(t)
	actor, org := adminAndOrg()

	for _, email := range []string{"", "   ", "not-an-address"} {
		_, err := svc.CreateOrRecycle(context.Background(), actor, org,
			&CreateInvitationRequest{Email: email, Role: "member"})
		assert.ErrorIs(t, err, ErrInvalidEmail, "email %q", email)
		assert.NotErrorIs(t, err, ErrInvalidRole, "email %q", email)
	}
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateOrRecycleFreshInsert(t *testing.T) {
	svc, mock := newTestService(t)
	actor, org := adminAndOrg()

	mock.ExpectQuery(`SELECT .+ FROM organization_invitations WHERE organization_id`).
		WithArgs(org.ID, "dev@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	created := &Invitation{
		ID:             uuid.New(),
		OrganizationID: org.ID,
		InvitedBy:      actor.ID,
		Email:          "dev@example.com",
		Status:         StatusInvited,
		Role:           authz.RoleMember,
		Token:          "tok",
		ExpiresAt:      fixedNow.Add(7 * 24 * time.Hour),
		CreatedAt:      fixedNow,
		UpdatedAt:      fixedNow,
	}
	mock.ExpectQuery(`INSERT INTO organization_invitations`).
		WithArgs(org.ID, actor.ID, "dev@example.com", authz.RoleMember, sqlmock.AnyArg(), created.ExpiresAt).
		WillReturnRows(invitationRows(created))

	inv, err := svc.CreateOrRecycle(context.Background(), actor, org,
		&CreateInvitationRequest{Email: " Dev@Example.com ", Role: "member"})
	require.NoError(t, err)
	assert.Equal(t, created.ID, inv.ID)
	assert.Equal(t, StatusInvited, inv.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateOrRecycleLivePendingRejected(t *testing.T) {
	svc, mock := newTestService(t)
	actor, org := adminAndOrg()

	existing := &Invitation{
		ID:             uuid.New(),
		OrganizationID: org.ID,
		InvitedBy:      actor.ID,
		Email:          "dev@example.com",
		Status:         StatusInvited,
		Role:           authz.RoleMember,
		Token:          "tok",
		ExpiresAt:      fixedNow.Add(time.Hour),
		CreatedAt:      fixedNow.Add(-time.Hour),
		UpdatedAt:      fixedNow.Add(-time.Hour),
	}
	mock.ExpectQuery(`SELECT .+ FROM organization_invitations WHERE organization_id`).
		WithArgs(org.ID, "dev@example.com").
		WillReturnRows(invitationRows(existing))

	_, err := svc.CreateOrRecycle(context.Background(), actor, org,
		&CreateInvitationRequest{Email: "dev@example.com", Role: "member"})
	assert.ErrorIs(t, err, ErrDuplicatePending)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateOrRecycleRecyclesSpentRow(t *testing.T) {
	for _, tc := range []struct {
		name     string
		existing Invitation
	}{
		{"declined", Invitation{Status: StatusDeclined, ExpiresAt: fixedNow.Add(time.Hour)}},
		{"expired", Invitation{Status: StatusInvited, ExpiresAt: fixedNow.Add(-time.Hour)}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			svc, mock := newTestService(t)
			actor, org := adminAndOrg()

			existing := tc.existing
			existing.ID = uuid.New()
			existing.OrganizationID = org.ID
			existing.InvitedBy = uuid.New()
			existing.Email = "dev@example.com"
			existing.Role = authz.RoleMember
			existing.Token = "old-token"

			mock.ExpectQuery(`SELECT .+ FROM organization_invitations WHERE organization_id`).
				WithArgs(org.ID, "dev@example.com").
				WillReturnRows(invitationRows(&existing))

			recycled := existing
			recycled.InvitedBy = actor.ID
			recycled.Status = StatusInvited
			recycled.Role = authz.RoleManager
			recycled.Token = "new-token"
			recycled.ExpiresAt = fixedNow.Add(7 * 24 * time.Hour)
			mock.ExpectQuery(`UPDATE organization_invitations`).
				WithArgs(existing.ID, sqlmock.AnyArg(), authz.RoleManager, actor.ID, recycled.ExpiresAt).
				WillReturnRows(invitationRows(&recycled))

			inv, err := svc.CreateOrRecycle(context.Background(), actor, org,
				&CreateInvitationRequest{Email: "dev@example.com", Role: "manager"})
			require.NoError(t, err)
			assert.Equal(t, existing.ID, inv.ID)
			assert.Equal(t, StatusInvited, inv.Status)
			assert.Equal(t, authz.RoleManager, inv.Role)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestCreateOrRecycleAcceptedWithLiveMember(t *testing.T) {
	svc, mock := newTestService(t)
	actor, org := adminAndOrg()

	memberID := uuid.New()
	acceptedAt := fixedNow.Add(-48 * time.Hour)
	existing := &Invitation{
		ID:             uuid.New(),
		OrganizationID: org.ID,
		InvitedBy:      uuid.New(),
		Email:          "dev@example.com",
		MemberID:       &memberID,
		Status:         StatusAccepted,
		Role:           authz.RoleMember,
		Token:          "tok",
		ExpiresAt:      fixedNow.Add(-24 * time.Hour),
		AcceptedAt:     &acceptedAt,
	}
	mock.ExpectQuery(`SELECT .+ FROM organization_invitations WHERE organization_id`).
		WithArgs(org.ID, "dev@example.com").
		WillReturnRows(invitationRows(existing))
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs(memberID).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	_, err := svc.CreateOrRecycle(context.Background(), actor, org,
		&CreateInvitationRequest{Email: "dev@example.com", Role: "member"})
	assert.ErrorIs(t, err, ErrAlreadyMember)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateOrRecycleAcceptedWithDeletedMember(t *testing.T) {
	svc, mock := newTestService(t)
	actor, org := adminAndOrg()

	memberID := uuid.New()
	existing := &Invitation{
		ID:             uuid.New(),
		OrganizationID: org.ID,
		InvitedBy:      uuid.New(),
		Email:          "dev@example.com",
		MemberID:       &memberID,
		Status:         StatusAccepted,
		Role:           authz.RoleMember,
		Token:          "tok",
		ExpiresAt:      fixedNow.Add(-24 * time.Hour),
	}
	mock.ExpectQuery(`SELECT .+ FROM organization_invitations WHERE organization_id`).
		WithArgs(org.ID, "dev@example.com").
		WillReturnRows(invitationRows(existing))
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs(memberID).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	recycled := *existing
	recycled.MemberID = nil
	recycled.InvitedBy = actor.ID
	recycled.Status = StatusInvited
	recycled.ExpiresAt = fixedNow.Add(7 * 24 * time.Hour)
	mock.ExpectQuery(`UPDATE organization_invitations`).
		WithArgs(existing.ID, sqlmock.AnyArg(), authz.RoleMember, actor.ID, recycled.ExpiresAt).
		WillReturnRows(invitationRows(&recycled))

	inv, err := svc.CreateOrRecycle(context.Background(), actor, org,
		&CreateInvitationRequest{Email: "dev@example.com", Role: "member"})
	require.NoError(t, err)
	assert.Nil(t, inv.MemberID)
	assert.Equal(t, StatusInvited, inv.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPeek(t *testing.T) {
	svc, mock := newTestService(t)

	live := &Invitation{
		ID:             uuid.New(),
		OrganizationID: uuid.New(),
		InvitedBy:      uuid.New(),
		Email:          "dev@example.com",
		Status:         StatusInvited,
		Role:           authz.RoleMember,
		Token:          "tok",
		ExpiresAt:      fixedNow.Add(time.Hour),
	}
	mock.ExpectQuery(`SELECT .+ FROM organization_invitations WHERE token`).
		WithArgs("tok").
		WillReturnRows(invitationRows(live))

	inv, err := svc.Peek(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, live.ID, inv.ID)

	expired := *live
	expired.ExpiresAt = fixedNow.Add(-time.Hour)
	mock.ExpectQuery(`SELECT .+ FROM organization_invitations WHERE token`).
		WithArgs("tok").
		WillReturnRows(invitationRows(&expired))

	_, err = svc.Peek(context.Background(), "tok")
	assert.ErrorIs(t, err, ErrInvalidOrExpired)

	mock.ExpectQuery(`SELECT .+ FROM organization_invitations WHERE token`).
		WithArgs("gone").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err = svc.Peek(context.Background(), "gone")
	assert.ErrorIs(t, err, ErrInvalidOrExpired)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeclineUnknownToken(t *testing.T) {
	svc, mock := newTestService(t)

	mock.ExpectQuery(`UPDATE organization_invitations`).
		WithArgs("gone", fixedNow).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	err := svc.Decline(context.Background(), "gone")
	assert.ErrorIs(t, err, ErrInvalidOrExpired)
	assert.NoError(t, mock.ExpectationsWereMet())
}
