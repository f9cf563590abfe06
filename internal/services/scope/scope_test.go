package scope

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestResolver(t *testing.T) (*Resolver, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	return NewResolver(sqlx.NewDb(mockDB, "sqlmock")), mock
}

func TestResolveTaskChain(t *testing.T) {
	r, mock := newTestResolver(t)

	orgID := uuid.New()
	ownerID := uuid.New()
	projectID := uuid.New()
	creatorID := uuid.New()
	boardID := uuid.New()
	boardOwnerID := uuid.New()
	taskID := uuid.New()
	memberID := uuid.New()
	assigneeID := uuid.New()

	mock.ExpectQuery(`SELECT id, board_id, created_by FROM tasks`).
		WithArgs(taskID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "board_id", "created_by"}).
			AddRow(taskID.String(), boardID.String(), creatorID.String()))
	mock.ExpectQuery(`SELECT id, project_id, owner_id FROM boards`).
		WithArgs(boardID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "project_id", "owner_id"}).
			AddRow(boardID.String(), projectID.String(), boardOwnerID.String()))
	mock.ExpectQuery(`SELECT id, organization_id, created_by FROM projects`).
		WithArgs(projectID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "organization_id", "created_by"}).
			AddRow(projectID.String(), orgID.String(), creatorID.String()))
	mock.ExpectQuery(`SELECT id, owner_id FROM organizations`).
		WithArgs(orgID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "owner_id"}).AddRow(orgID.String(), ownerID.String()))
	mock.ExpectQuery(`SELECT user_id, role FROM project_members`).
		WithArgs(projectID).
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "role"}).AddRow(memberID.String(), "admin"))
	mock.ExpectQuery(`SELECT user_id FROM board_members`).
		WithArgs(boardID).
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}))
	mock.ExpectQuery(`SELECT user_id FROM task_assignees`).
		WithArgs(taskID).
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow(assigneeID.String()))

	s, err := r.Task(context.Background(), taskID)
	require.NoError(t, err)

	assert.Equal(t, orgID, s.Org.ID)
	assert.Equal(t, ownerID, s.Org.OwnerID)
	assert.Equal(t, projectID, s.Project.ID)
	assert.Equal(t, creatorID, s.Project.CreatedBy)
	require.Len(t, s.Project.Members, 1)
	assert.Equal(t, memberID, s.Project.Members[0].UserID)
	assert.Equal(t, boardID, s.Board.ID)
	assert.Equal(t, boardOwnerID, s.Board.OwnerID)
	assert.Equal(t, taskID, s.Task.ID)
	assert.True(t, s.Task.AssignedTo(assigneeID))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveMissingProject(t *testing.T) {
	r, mock := newTestResolver(t)

	projectID := uuid.New()
	mock.ExpectQuery(`SELECT id, organization_id, created_by FROM projects`).
		WithArgs(projectID).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := r.Project(context.Background(), projectID)
	assert.ErrorIs(t, err, ErrProjectNotFound)
	assert.True(t, NotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResolveBoardWithMissingParent(t *testing.T) {
	r, mock := newTestResolver(t)

	boardID := uuid.New()
	projectID := uuid.New()

	// The board row exists but its project is gone; the missing link surfaces
	// loudly instead of degrading into a denial.
	mock.ExpectQuery(`SELECT id, project_id, owner_id FROM boards`).
		WithArgs(boardID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "project_id", "owner_id"}).
			AddRow(boardID.String(), projectID.String(), uuid.NewString()))
	mock.ExpectQuery(`SELECT id, organization_id, created_by FROM projects`).
		WithArgs(projectID).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := r.Board(context.Background(), boardID)
	assert.ErrorIs(t, err, ErrProjectNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNotFoundClassifier(t *testing.T) {
	assert.True(t, NotFound(ErrOrgNotFound))
	assert.True(t, NotFound(ErrTaskNotFound))
	assert.False(t, NotFound(nil))
	assert.False(t, NotFound(context.Canceled))
}
