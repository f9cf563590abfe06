package task

import (
	"context"
	"errors"
	"fmt"

	"github.com/curaious/trellis/internal/authz"
	"github.com/curaious/trellis/internal/notify"
	"github.com/google/uuid"
)

var (
	// ErrCrossProjectMove rejects moving a task to a board in another project.
	ErrCrossProjectMove = errors.New("tasks can only move between boards of the same project")
	// ErrAssigneeNotMember rejects assigning a user who is not a member of the
	// task's project at assignment time.
	ErrAssigneeNotMember = errors.New("assignee is not a member of this project")
	// ErrInvalidStatus rejects status strings outside the workflow set.
	ErrInvalidStatus = errors.New("invalid task status")
)

type TaskService struct {
	repo       *TaskRepo
	engine     *authz.Engine
	dispatcher *notify.Dispatcher
}

func NewTaskService(repo *TaskRepo, engine *authz.Engine, dispatcher *notify.Dispatcher) *TaskService {
	return &TaskService{repo: repo, engine: engine, dispatcher: dispatcher}
}

// Create opens a task on the board. Any member of the organization may create
// tasks, including members with no standing on the board's project.
func (s *TaskService) Create(ctx context.Context, actor authz.Actor, org authz.Org, p authz.Project, b authz.Board, req *CreateTaskRequest) (*Task, error) {
	if err := s.engine.CanCreateTask(actor, org); err != nil {
		return nil, err
	}
	if req.Title == "" {
		return nil, fmt.Errorf("task title is required")
	}

	return s.repo.Create(ctx, &Task{
		BoardID:     b.ID,
		Title:       req.Title,
		Description: req.Description,
		Status:      StatusTodo,
		DueDate:     req.DueDate,
		CreatedBy:   actor.ID,
	})
}

func (s *TaskService) Get(ctx context.Context, actor authz.Actor, org authz.Org, p authz.Project, id uuid.UUID) (*Task, error) {
	if err := s.engine.CanViewProject(actor, org, p); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

func (s *TaskService) ListByBoard(ctx context.Context, actor authz.Actor, org authz.Org, p authz.Project, boardID uuid.UUID) ([]*Task, error) {
	if err := s.engine.CanViewProject(actor, org, p); err != nil {
		return nil, err
	}
	return s.repo.ListByBoard(ctx, boardID)
}

// UpdateContent edits title, description, due date and the attachment
// reference. Content edits are gated tighter than workflow moves.
func (s *TaskService) UpdateContent(ctx context.Context, actor authz.Actor, org authz.Org, p authz.Project, t authz.Task, req *UpdateTaskRequest) (*Task, error) {
	if err := s.engine.CanEditTask(actor, org, p, t); err != nil {
		return nil, err
	}
	if req.Title == "" {
		return nil, fmt.Errorf("task title is required")
	}
	return s.repo.UpdateContent(ctx, t.ID, req)
}

// SetAssignees replaces the assignee list. Every incoming id must satisfy the
// project membership predicate at assignment time; what happens to assignees
// later, when memberships change or users are removed, is not revalidated.
func (s *TaskService) SetAssignees(ctx context.Context, actor authz.Actor, org authz.Org, p authz.Project, t authz.Task, req *SetAssigneesRequest) (*Task, error) {
	if err := s.engine.CanEditTask(actor, org, p, t); err != nil {
		return nil, err
	}

	seen := make(map[uuid.UUID]bool, len(req.AssigneeIDs))
	assignees := make([]uuid.UUID, 0, len(req.AssigneeIDs))
	for _, id := range req.AssigneeIDs {
		if seen[id] {
			continue
		}
		seen[id] = true

		target, err := s.repo.UserView(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("%w: %s", ErrAssigneeNotMember, id)
		}
		if !s.engine.IsProjectMember(target, org, p) {
			return nil, fmt.Errorf("%w: %s", ErrAssigneeNotMember, id)
		}
		assignees = append(assignees, id)
	}

	if err := s.repo.ReplaceAssignees(ctx, t.ID, assignees); err != nil {
		return nil, err
	}

	for _, id := range assignees {
		if t.AssignedTo(id) {
			continue
		}
		s.dispatcher.Enqueue(notify.Event{
			Kind:       notify.KindTaskAssigned,
			OrgID:      org.ID,
			ActorID:    actor.ID,
			TargetID:   id,
			ResourceID: t.ID,
			Message:    "you have been assigned a task",
		})
	}

	return s.repo.GetByID(ctx, t.ID)
}

// Move reparents the task onto another board of the same project. Moves are
// workflow operations, open to any project member.
func (s *TaskService) Move(ctx context.Context, actor authz.Actor, org authz.Org, p authz.Project, t authz.Task, req *MoveTaskRequest) (*Task, error) {
	if err := s.engine.CanMoveTask(actor, org, p); err != nil {
		return nil, err
	}

	destProject, err := s.repo.BoardProject(ctx, req.BoardID)
	if err != nil {
		return nil, err
	}
	if destProject != p.ID {
		return nil, ErrCrossProjectMove
	}
	return s.repo.Move(ctx, t.ID, req.BoardID)
}

func (s *TaskService) UpdateStatus(ctx context.Context, actor authz.Actor, org authz.Org, p authz.Project, t authz.Task, req *UpdateStatusRequest) (*Task, error) {
	if err := s.engine.CanMoveTask(actor, org, p); err != nil {
		return nil, err
	}

	status, err := ParseStatus(req.Status)
	if err != nil {
		return nil, ErrInvalidStatus
	}
	return s.repo.UpdateStatus(ctx, t.ID, status)
}

func (s *TaskService) Delete(ctx context.Context, actor authz.Actor, org authz.Org, p authz.Project, t authz.Task) error {
	if err := s.engine.CanDeleteTask(actor, org, p); err != nil {
		return err
	}
	return s.repo.Delete(ctx, t.ID)
}
