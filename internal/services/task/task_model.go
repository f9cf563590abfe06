package task

import (
	"fmt"
	"time"

	"github.com/curaious/trellis/internal/authz"
	"github.com/google/uuid"
)

// Status is a task's workflow position.
type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in_progress"
	StatusInReview   Status = "in_review"
	StatusDone       Status = "done"
)

func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusTodo, StatusInProgress, StatusInReview, StatusDone:
		return Status(s), nil
	default:
		return "", fmt.Errorf("unknown task status %q", s)
	}
}

// Task is the unit of work on a board. AttachmentRef is an opaque pointer to
// an externally stored file; nothing here dereferences it. Assignee ids are
// not foreign keys, so entries can outlive the users they name.
type Task struct {
	ID            uuid.UUID  `db:"id" json:"id"`
	BoardID       uuid.UUID  `db:"board_id" json:"board_id"`
	Title         string     `db:"title" json:"title"`
	Description   string     `db:"description" json:"description,omitempty"`
	Status        Status     `db:"status" json:"status"`
	DueDate       *time.Time `db:"due_date" json:"due_date,omitempty"`
	AttachmentRef string     `db:"attachment_ref" json:"attachment_ref,omitempty"`
	CreatedBy     uuid.UUID  `db:"created_by" json:"created_by"`
	CreatedAt     time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at" json:"updated_at"`

	AssigneeIDs []uuid.UUID `db:"-" json:"assignee_ids,omitempty"`
}

// Authz maps the task and its loaded assignee list into the engine's view.
func (t *Task) Authz() authz.Task {
	return authz.Task{
		ID:          t.ID,
		BoardID:     t.BoardID,
		CreatedBy:   t.CreatedBy,
		AssigneeIDs: t.AssigneeIDs,
	}
}

type CreateTaskRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	DueDate     *time.Time `json:"due_date,omitempty"`
}

type UpdateTaskRequest struct {
	Title         string     `json:"title"`
	Description   string     `json:"description"`
	DueDate       *time.Time `json:"due_date,omitempty"`
	AttachmentRef string     `json:"attachment_ref,omitempty"`
}

type SetAssigneesRequest struct {
	AssigneeIDs []uuid.UUID `json:"assignee_ids"`
}

type MoveTaskRequest struct {
	BoardID uuid.UUID `json:"board_id"`
}

type UpdateStatusRequest struct {
	Status string `json:"status"`
}
