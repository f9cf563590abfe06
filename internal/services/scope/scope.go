package scope

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/curaious/trellis/internal/authz"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// The resolver walks a resource's containment chain up to its organization,
// loading only the fields the authorization engine decides on. A missing link
// anywhere in the chain is a loud NotFound, never a silent deny.

var (
	ErrOrgNotFound     = errors.New("organization not found")
	ErrProjectNotFound = errors.New("project not found")
	ErrBoardNotFound   = errors.New("board not found")
	ErrTaskNotFound    = errors.New("task not found")
)

// Scope is a resolved containment chain. Org is always set; Project, Board
// and Task are populated down to the level that was resolved.
type Scope struct {
	Org     authz.Org
	Project authz.Project
	Board   authz.Board
	Task    authz.Task
}

type Resolver struct {
	db *sqlx.DB
}

func NewResolver(db *sqlx.DB) *Resolver {
	return &Resolver{db: db}
}

type orgRow struct {
	ID      uuid.UUID `db:"id"`
	OwnerID uuid.UUID `db:"owner_id"`
}

type projectRow struct {
	ID        uuid.UUID `db:"id"`
	OrgID     uuid.UUID `db:"organization_id"`
	CreatedBy uuid.UUID `db:"created_by"`
}

type projectMemberRow struct {
	UserID uuid.UUID `db:"user_id"`
	Role   string    `db:"role"`
}

type boardRow struct {
	ID        uuid.UUID `db:"id"`
	ProjectID uuid.UUID `db:"project_id"`
	OwnerID   uuid.UUID `db:"owner_id"`
}

type taskRow struct {
	ID        uuid.UUID `db:"id"`
	BoardID   uuid.UUID `db:"board_id"`
	CreatedBy uuid.UUID `db:"created_by"`
}

// Org resolves just an organization.
func (r *Resolver) Org(ctx context.Context, orgID uuid.UUID) (authz.Org, error) {
	var row orgRow
	err := r.db.GetContext(ctx, &row, `SELECT id, owner_id FROM organizations WHERE id = $1`, orgID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return authz.Org{}, ErrOrgNotFound
		}
		return authz.Org{}, fmt.Errorf("failed to resolve organization: %w", err)
	}
	return authz.Org{ID: row.ID, OwnerID: row.OwnerID}, nil
}

// Project resolves a project and its organization.
func (r *Resolver) Project(ctx context.Context, projectID uuid.UUID) (*Scope, error) {
	var row projectRow
	err := r.db.GetContext(ctx, &row, `SELECT id, organization_id, created_by FROM projects WHERE id = $1`, projectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to resolve project: %w", err)
	}

	org, err := r.Org(ctx, row.OrgID)
	if err != nil {
		return nil, err
	}

	members, err := r.projectMembers(ctx, row.ID)
	if err != nil {
		return nil, err
	}

	return &Scope{
		Org: org,
		Project: authz.Project{
			ID:        row.ID,
			OrgID:     row.OrgID,
			CreatedBy: row.CreatedBy,
			Members:   members,
		},
	}, nil
}

// Board resolves a board, its project and its organization.
func (r *Resolver) Board(ctx context.Context, boardID uuid.UUID) (*Scope, error) {
	var row boardRow
	err := r.db.GetContext(ctx, &row, `SELECT id, project_id, owner_id FROM boards WHERE id = $1`, boardID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBoardNotFound
		}
		return nil, fmt.Errorf("failed to resolve board: %w", err)
	}

	s, err := r.Project(ctx, row.ProjectID)
	if err != nil {
		return nil, err
	}

	var memberIDs []uuid.UUID
	err = r.db.SelectContext(ctx, &memberIDs, `SELECT user_id FROM board_members WHERE board_id = $1`, row.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load board members: %w", err)
	}

	s.Board = authz.Board{
		ID:        row.ID,
		ProjectID: row.ProjectID,
		OwnerID:   row.OwnerID,
		MemberIDs: memberIDs,
	}
	return s, nil
}

// Task resolves a task, its board, its project and its organization.
func (r *Resolver) Task(ctx context.Context, taskID uuid.UUID) (*Scope, error) {
	var row taskRow
	err := r.db.GetContext(ctx, &row, `SELECT id, board_id, created_by FROM tasks WHERE id = $1`, taskID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to resolve task: %w", err)
	}

	s, err := r.Board(ctx, row.BoardID)
	if err != nil {
		return nil, err
	}

	var assigneeIDs []uuid.UUID
	err = r.db.SelectContext(ctx, &assigneeIDs, `SELECT user_id FROM task_assignees WHERE task_id = $1`, row.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load task assignees: %w", err)
	}

	s.Task = authz.Task{
		ID:          row.ID,
		BoardID:     row.BoardID,
		CreatedBy:   row.CreatedBy,
		AssigneeIDs: assigneeIDs,
	}
	return s, nil
}

func (r *Resolver) projectMembers(ctx context.Context, projectID uuid.UUID) ([]authz.ProjectMember, error) {
	var rows []projectMemberRow
	err := r.db.SelectContext(ctx, &rows, `SELECT user_id, role FROM project_members WHERE project_id = $1`, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to load project members: %w", err)
	}

	members := make([]authz.ProjectMember, 0, len(rows))
	for _, m := range rows {
		members = append(members, authz.ProjectMember{UserID: m.UserID, Role: authz.ProjectRole(m.Role)})
	}
	return members, nil
}

// NotFound reports whether err is one of the resolver's missing-link errors.
func NotFound(err error) bool {
	return errors.Is(err, ErrOrgNotFound) ||
		errors.Is(err, ErrProjectNotFound) ||
		errors.Is(err, ErrBoardNotFound) ||
		errors.Is(err, ErrTaskNotFound)
}
