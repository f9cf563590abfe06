package task

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/curaious/trellis/internal/authz"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

var ErrTaskNotFound = errors.New("task not found")

const taskColumns = `id, board_id, title, description, status, due_date, attachment_ref, created_by, created_at, updated_at`

type TaskRepo struct {
	db *sqlx.DB
}

func NewTaskRepo(db *sqlx.DB) *TaskRepo {
	return &TaskRepo{db: db}
}

func (r *TaskRepo) Create(ctx context.Context, t *Task) (*Task, error) {
	query := `
        INSERT INTO tasks (board_id, title, description, status, due_date, created_by)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING ` + taskColumns

	var created Task
	err := r.db.GetContext(ctx, &created, query,
		t.BoardID, t.Title, t.Description, t.Status, t.DueDate, t.CreatedBy)
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	return &created, nil
}

func (r *TaskRepo) GetByID(ctx context.Context, id uuid.UUID) (*Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`

	var t Task
	err := r.db.GetContext(ctx, &t, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to get task: %w", err)
	}

	if t.AssigneeIDs, err = r.listAssignees(ctx, t.ID); err != nil {
		return nil, err
	}
	return &t, nil
}

// ListByBoard loads the board's tasks with assignee lists attached.
func (r *TaskRepo) ListByBoard(ctx context.Context, boardID uuid.UUID) ([]*Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE board_id = $1 ORDER BY created_at`

	var tasks []*Task
	err := r.db.SelectContext(ctx, &tasks, query, boardID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	if len(tasks) == 0 {
		return tasks, nil
	}

	ids := make([]uuid.UUID, 0, len(tasks))
	byID := make(map[uuid.UUID]*Task, len(tasks))
	for _, t := range tasks {
		ids = append(ids, t.ID)
		byID[t.ID] = t
	}

	type assigneeRow struct {
		TaskID uuid.UUID `db:"task_id"`
		UserID uuid.UUID `db:"user_id"`
	}
	var rows []assigneeRow
	err = r.db.SelectContext(ctx, &rows,
		`SELECT task_id, user_id FROM task_assignees WHERE task_id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to list task assignees: %w", err)
	}
	for _, row := range rows {
		t := byID[row.TaskID]
		t.AssigneeIDs = append(t.AssigneeIDs, row.UserID)
	}
	return tasks, nil
}

func (r *TaskRepo) UpdateContent(ctx context.Context, id uuid.UUID, req *UpdateTaskRequest) (*Task, error) {
	query := `
        UPDATE tasks
        SET title = $2, description = $3, due_date = $4, attachment_ref = $5, updated_at = NOW()
        WHERE id = $1
        RETURNING ` + taskColumns

	var t Task
	err := r.db.GetContext(ctx, &t, query, id, req.Title, req.Description, req.DueDate, req.AttachmentRef)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to update task: %w", err)
	}
	return &t, nil
}

func (r *TaskRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status Status) (*Task, error) {
	query := `
        UPDATE tasks SET status = $2, updated_at = NOW()
        WHERE id = $1
        RETURNING ` + taskColumns

	var t Task
	err := r.db.GetContext(ctx, &t, query, id, status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to update task status: %w", err)
	}
	return &t, nil
}

func (r *TaskRepo) Move(ctx context.Context, id, boardID uuid.UUID) (*Task, error) {
	query := `
        UPDATE tasks SET board_id = $2, updated_at = NOW()
        WHERE id = $1
        RETURNING ` + taskColumns

	var t Task
	err := r.db.GetContext(ctx, &t, query, id, boardID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to move task: %w", err)
	}
	return &t, nil
}

// ReplaceAssignees swaps the full assignee list in one transaction.
func (r *TaskRepo) ReplaceAssignees(ctx context.Context, id uuid.UUID, assigneeIDs []uuid.UUID) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin assignee transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM task_assignees WHERE task_id = $1`, id); err != nil {
		return fmt.Errorf("failed to clear task assignees: %w", err)
	}
	for _, userID := range assigneeIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO task_assignees (task_id, user_id) VALUES ($1, $2)`, id, userID); err != nil {
			return fmt.Errorf("failed to insert task assignee: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit assignee change: %w", err)
	}
	return nil
}

func (r *TaskRepo) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrTaskNotFound
	}
	return nil
}

// BoardProject resolves a board's project, for validating move destinations.
func (r *TaskRepo) BoardProject(ctx context.Context, boardID uuid.UUID) (uuid.UUID, error) {
	var projectID uuid.UUID
	err := r.db.GetContext(ctx, &projectID, `SELECT project_id FROM boards WHERE id = $1`, boardID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return uuid.Nil, fmt.Errorf("destination board not found")
		}
		return uuid.Nil, fmt.Errorf("failed to resolve board project: %w", err)
	}
	return projectID, nil
}

// UserView loads the organization and role of an assignment target so the
// service can run the membership predicate against it.
func (r *TaskRepo) UserView(ctx context.Context, userID uuid.UUID) (authz.Actor, error) {
	var row struct {
		ID    uuid.UUID  `db:"id"`
		OrgID uuid.UUID  `db:"organization_id"`
		Role  authz.Role `db:"role"`
	}
	err := r.db.GetContext(ctx, &row, `SELECT id, organization_id, role FROM users WHERE id = $1`, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return authz.Actor{}, fmt.Errorf("user %s not found", userID)
		}
		return authz.Actor{}, fmt.Errorf("failed to resolve user: %w", err)
	}
	return authz.Actor{ID: row.ID, OrgID: row.OrgID, Role: row.Role}, nil
}

func (r *TaskRepo) listAssignees(ctx context.Context, taskID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.SelectContext(ctx, &ids,
		`SELECT user_id FROM task_assignees WHERE task_id = $1`, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to list task assignees: %w", err)
	}
	return ids, nil
}
