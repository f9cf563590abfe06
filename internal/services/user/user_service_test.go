package user

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/curaious/trellis/internal/authz"
	"github.com/curaious/trellis/internal/services/invitation"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var fixedNow = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*UserService, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	db := sqlx.NewDb(mockDB, "sqlmock")
	invSvc := invitation.NewInvitationService(invitation.NewInvitationRepo(db), authz.NewEngine(), 7)
	svc := NewUserService(db, NewUserRepo(db), invSvc)
	svc.now = func() time.Time { return fixedNow }
	return svc, mock
}

func userRows(u *User) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "organization_id", "name", "email", "password_hash", "role", "created_at", "updated_at",
	}).AddRow(u.ID.String(), u.OrganizationID.String(), u.Name, u.Email, u.PasswordHash,
		string(u.Role), u.CreatedAt, u.UpdatedAt)
}

func acceptedInvitationRows(inv *invitation.Invitation) *sqlmock.Rows {
	var acceptedAt interface{}
	if inv.AcceptedAt != nil {
		acceptedAt = *inv.AcceptedAt
	}
	return sqlmock.NewRows([]string{
		"id", "organization_id", "invited_by", "email", "member_id", "status",
		"role", "token", "expires_at", "accepted_at", "created_at", "updated_at",
	}).AddRow(
		inv.ID.String(), inv.OrganizationID.String(), inv.InvitedBy.String(), inv.Email,
		nil, string(inv.Status), string(inv.Role), inv.Token,
		inv.ExpiresAt, acceptedAt, inv.CreatedAt, inv.UpdatedAt,
	)
}

func TestRegisterWithInvitation(t *testing.T) {
	svc, mock := newTestService(t)

	orgID := uuid.New()
	invID := uuid.New()
	userID := uuid.New()

	accepted := &invitation.Invitation{
		ID:             invID,
		OrganizationID: orgID,
		InvitedBy:      uuid.New(),
		Email:          "dev@example.com",
		Status:         invitation.StatusAccepted,
		Role:           authz.RoleManager,
		Token:          "tok",
		ExpiresAt:      fixedNow.Add(24 * time.Hour),
		AcceptedAt:     &fixedNow,
	}
	created := &User{
		ID:             userID,
		OrganizationID: orgID,
		Name:           "Dev",
		Email:          "dev@example.com",
		PasswordHash:   "hash",
		Role:           authz.RoleManager,
		CreatedAt:      fixedNow,
		UpdatedAt:      fixedNow,
	}

	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE organization_invitations`).
		WithArgs("tok", fixedNow).
		WillReturnRows(acceptedInvitationRows(accepted))
	mock.ExpectQuery(`INSERT INTO users`).
		WithArgs(orgID, "Dev", "dev@example.com", sqlmock.AnyArg(), authz.RoleManager).
		WillReturnRows(userRows(created))
	mock.ExpectExec(`UPDATE organization_invitations SET member_id`).
		WithArgs(invID, userID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	u, err := svc.RegisterWithInvitation(context.Background(), &RegisterRequest{
		Token:    "tok",
		Name:     "Dev",
		Password: "s3cret",
	})
	require.NoError(t, err)
	assert.Equal(t, userID, u.ID)
	assert.Equal(t, orgID, u.OrganizationID)
	assert.Equal(t, authz.RoleManager, u.Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegisterWithConsumedToken(t *testing.T) {
	svc, mock := newTestService(t)

	// The single-statement consume matches nothing for a spent token, so the
	// transaction rolls back before any user row is written.
	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE organization_invitations`).
		WithArgs("spent", fixedNow).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	_, err := svc.RegisterWithInvitation(context.Background(), &RegisterRequest{
		Token:    "spent",
		Name:     "Dev",
		Password: "s3cret",
	})
	assert.ErrorIs(t, err, invitation.ErrInvalidOrExpired)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegisterRejectsEmptyFields(t *testing.T) {
	svc, mock := newTestService(t)

	_, err := svc.RegisterWithInvitation(context.Background(), &RegisterRequest{Token: "tok", Password: "p"})
	assert.Error(t, err)
	_, err = svc.RegisterWithInvitation(context.Background(), &RegisterRequest{Token: "tok", Name: "Dev"})
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAuthenticate(t *testing.T) {
	svc, mock := newTestService(t)

	orgID := uuid.New()
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)

	u := &User{
		ID:             uuid.New(),
		OrganizationID: orgID,
		Name:           "Dev",
		Email:          "dev@example.com",
		PasswordHash:   string(hash),
		Role:           authz.RoleMember,
	}

	mock.ExpectQuery(`SELECT .+ FROM users WHERE organization_id`).
		WithArgs(orgID, "dev@example.com").
		WillReturnRows(userRows(u))

	got, err := svc.Authenticate(context.Background(), orgID, "Dev@Example.com", "s3cret")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	mock.ExpectQuery(`SELECT .+ FROM users WHERE organization_id`).
		WithArgs(orgID, "dev@example.com").
		WillReturnRows(userRows(u))

	_, err = svc.Authenticate(context.Background(), orgID, "dev@example.com", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	// An unknown address reports the same error as a bad password.
	mock.ExpectQuery(`SELECT .+ FROM users WHERE organization_id`).
		WithArgs(orgID, "ghost@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err = svc.Authenticate(context.Background(), orgID, "ghost@example.com", "s3cret")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.NoError(t, mock.ExpectationsWereMet())
}
