package task

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/curaious/trellis/internal/authz"
	"github.com/curaious/trellis/internal/notify"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	mu     sync.Mutex
	events []notify.Event
}

func (n *recordingNotifier) Notify(_ context.Context, ev notify.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
	return nil
}

func (n *recordingNotifier) captured() []notify.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notify.Event(nil), n.events...)
}

func newTestService(t *testing.T) (*TaskService, sqlmock.Sqlmock, *recordingNotifier) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	sink := &recordingNotifier{}
	dispatcher := notify.NewDispatcher(16, sink)
	dispatcher.Start()
	t.Cleanup(dispatcher.Stop)

	svc := NewTaskService(NewTaskRepo(sqlx.NewDb(mockDB, "sqlmock")), authz.NewEngine(), dispatcher)
	return svc, mock, sink
}

func memberScope() (authz.Actor, authz.Org, authz.Project) {
	org := authz.Org{ID: uuid.New(), OwnerID: uuid.New()}
	actor := authz.Actor{ID: uuid.New(), OrgID: org.ID, Role: authz.RoleMember}
	p := authz.Project{ID: uuid.New(), OrgID: org.ID, CreatedBy: uuid.New(),
		Members: []authz.ProjectMember{{UserID: actor.ID, Role: authz.ProjectRoleMember}}}
	return actor, org, p
}

func taskRows(tk *Task) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "board_id", "title", "description", "status", "due_date",
		"attachment_ref", "created_by", "created_at", "updated_at",
	}).AddRow(tk.ID.String(), tk.BoardID.String(), tk.Title, tk.Description, string(tk.Status), tk.DueDate,
		tk.AttachmentRef, tk.CreatedBy.String(), tk.CreatedAt, tk.UpdatedAt)
}

func TestCreateByOrgMemberOutsideProject(t *testing.T) {
	svc, mock, _ := newTestService(t)
	org := authz.Org{ID: uuid.New(), OwnerID: uuid.New()}

	// A plain org member with no standing on the project: not the creator,
	// not listed. Task creation only requires organization membership.
	actor := authz.Actor{ID: uuid.New(), OrgID: org.ID, Role: authz.RoleMember}
	p := authz.Project{ID: uuid.New(), OrgID: org.ID, CreatedBy: uuid.New()}
	b := authz.Board{ID: uuid.New(), ProjectID: p.ID, OwnerID: uuid.New()}
	now := time.Now()
	taskID := uuid.New()

	mock.ExpectQuery(`INSERT INTO tasks`).
		WithArgs(b.ID, "Ship it", "", StatusTodo, nil, actor.ID).
		WillReturnRows(taskRows(&Task{
			ID: taskID, BoardID: b.ID, Title: "Ship it", Status: StatusTodo,
			CreatedBy: actor.ID, CreatedAt: now, UpdatedAt: now,
		}))

	created, err := svc.Create(context.Background(), actor, org, p, b,
		&CreateTaskRequest{Title: "Ship it"})
	require.NoError(t, err)
	assert.Equal(t, taskID, created.ID)
	assert.Equal(t, StatusTodo, created.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateRejectsForeignActor(t *testing.T) {
	svc, mock, _ := newTestService(t)
	org := authz.Org{ID: uuid.New(), OwnerID: uuid.New()}
	p := authz.Project{ID: uuid.New(), OrgID: org.ID, CreatedBy: uuid.New()}
	b := authz.Board{ID: uuid.New(), ProjectID: p.ID, OwnerID: uuid.New()}
	outsider := authz.Actor{ID: uuid.New(), OrgID: uuid.New(), Role: authz.RoleOwner}

	_, err := svc.Create(context.Background(), outsider, org, p, b,
		&CreateTaskRequest{Title: "Ship it"})
	assert.True(t, errors.Is(err, authz.ErrForbidden))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMoveRejectsCrossProjectDestination(t *testing.T) {
	svc, mock, _ := newTestService(t)
	actor, org, p := memberScope()
	tk := authz.Task{ID: uuid.New(), BoardID: uuid.New()}
	destBoard := uuid.New()

	mock.ExpectQuery(`SELECT project_id FROM boards`).
		WithArgs(destBoard).
		WillReturnRows(sqlmock.NewRows([]string{"project_id"}).AddRow(uuid.NewString()))

	_, err := svc.Move(context.Background(), actor, org, p, tk, &MoveTaskRequest{BoardID: destBoard})
	assert.ErrorIs(t, err, ErrCrossProjectMove)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMoveWithinProject(t *testing.T) {
	svc, mock, _ := newTestService(t)
	actor, org, p := memberScope()
	tk := authz.Task{ID: uuid.New(), BoardID: uuid.New()}
	destBoard := uuid.New()
	now := time.Now()

	mock.ExpectQuery(`SELECT project_id FROM boards`).
		WithArgs(destBoard).
		WillReturnRows(sqlmock.NewRows([]string{"project_id"}).AddRow(p.ID.String()))
	mock.ExpectQuery(`UPDATE tasks SET board_id`).
		WithArgs(tk.ID, destBoard).
		WillReturnRows(taskRows(&Task{
			ID: tk.ID, BoardID: destBoard, Title: "Ship it", Status: StatusInProgress,
			CreatedBy: uuid.New(), CreatedAt: now, UpdatedAt: now,
		}))

	moved, err := svc.Move(context.Background(), actor, org, p, tk, &MoveTaskRequest{BoardID: destBoard})
	require.NoError(t, err)
	assert.Equal(t, destBoard, moved.BoardID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetAssigneesRejectsNonMember(t *testing.T) {
	svc, mock, _ := newTestService(t)
	org := authz.Org{ID: uuid.New(), OwnerID: uuid.New()}
	manager := authz.Actor{ID: uuid.New(), OrgID: org.ID, Role: authz.RoleManager}
	p := authz.Project{ID: uuid.New(), OrgID: org.ID, CreatedBy: uuid.New()}
	tk := authz.Task{ID: uuid.New(), BoardID: uuid.New()}

	// The target exists in the organization but is not on the project.
	outsider := uuid.New()
	mock.ExpectQuery(`SELECT id, organization_id, role FROM users`).
		WithArgs(outsider).
		WillReturnRows(sqlmock.NewRows([]string{"id", "organization_id", "role"}).
			AddRow(outsider.String(), org.ID.String(), "member"))

	_, err := svc.SetAssignees(context.Background(), manager, org, p, tk,
		&SetAssigneesRequest{AssigneeIDs: []uuid.UUID{outsider}})
	assert.ErrorIs(t, err, ErrAssigneeNotMember)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetAssigneesNotifiesNewlyAssigned(t *testing.T) {
	svc, mock, sink := newTestService(t)
	org := authz.Org{ID: uuid.New(), OwnerID: uuid.New()}
	manager := authz.Actor{ID: uuid.New(), OrgID: org.ID, Role: authz.RoleManager}
	already := uuid.New()
	fresh := uuid.New()
	p := authz.Project{ID: uuid.New(), OrgID: org.ID, CreatedBy: uuid.New(),
		Members: []authz.ProjectMember{
			{UserID: already, Role: authz.ProjectRoleMember},
			{UserID: fresh, Role: authz.ProjectRoleMember},
		}}
	tk := authz.Task{ID: uuid.New(), BoardID: uuid.New(), AssigneeIDs: []uuid.UUID{already}}
	now := time.Now()

	for _, id := range []uuid.UUID{already, fresh} {
		mock.ExpectQuery(`SELECT id, organization_id, role FROM users`).
			WithArgs(id).
			WillReturnRows(sqlmock.NewRows([]string{"id", "organization_id", "role"}).
				AddRow(id.String(), org.ID.String(), "member"))
	}
	mock.ExpectBegin()
	mock.ExpectExec(`DELETE FROM task_assignees`).
		WithArgs(tk.ID).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO task_assignees`).
		WithArgs(tk.ID, already).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO task_assignees`).
		WithArgs(tk.ID, fresh).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()
	mock.ExpectQuery(`SELECT .+ FROM tasks WHERE id`).
		WithArgs(tk.ID).
		WillReturnRows(taskRows(&Task{
			ID: tk.ID, BoardID: tk.BoardID, Title: "Ship it", Status: StatusTodo,
			CreatedBy: uuid.New(), CreatedAt: now, UpdatedAt: now,
		}))
	mock.ExpectQuery(`SELECT user_id FROM task_assignees`).
		WithArgs(tk.ID).
		WillReturnRows(sqlmock.NewRows([]string{"user_id"}).AddRow(already.String()).AddRow(fresh.String()))

	got, err := svc.SetAssignees(context.Background(), manager, org, p, tk,
		&SetAssigneesRequest{AssigneeIDs: []uuid.UUID{already, fresh}})
	require.NoError(t, err)
	assert.Len(t, got.AssigneeIDs, 2)
	assert.NoError(t, mock.ExpectationsWereMet())

	// Only the newly assigned user is notified.
	require.Eventually(t, func() bool {
		return len(sink.captured()) == 1
	}, time.Second, 10*time.Millisecond)
	ev := sink.captured()[0]
	assert.Equal(t, notify.KindTaskAssigned, ev.Kind)
	assert.Equal(t, fresh, ev.TargetID)
	assert.Equal(t, tk.ID, ev.ResourceID)
}

func TestUpdateStatusRejectsUnknownStatus(t *testing.T) {
	svc, mock, _ := newTestService(t)
	actor, org, p := memberScope()
	tk := authz.Task{ID: uuid.New(), BoardID: uuid.New()}

	_, err := svc.UpdateStatus(context.Background(), actor, org, p, tk,
		&UpdateStatusRequest{Status: "archived"})
	assert.ErrorIs(t, err, ErrInvalidStatus)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDeleteRequiresManager(t *testing.T) {
	svc, mock, _ := newTestService(t)
	actor, org, p := memberScope()

	err := svc.Delete(context.Background(), actor, org, p, authz.Task{ID: uuid.New()})
	assert.True(t, errors.Is(err, authz.ErrForbidden))
	assert.NoError(t, mock.ExpectationsWereMet())
}
