package project

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

var (
	ErrProjectNotFound = errors.New("project not found")
	ErrMemberNotFound  = errors.New("project member not found")
)

const projectColumns = `id, organization_id, name, description, created_by, created_at, updated_at`

const memberConstraint = "project_members_pkey"

type ProjectRepo struct {
	db *sqlx.DB
}

func NewProjectRepo(db *sqlx.DB) *ProjectRepo {
	return &ProjectRepo{db: db}
}

func (r *ProjectRepo) Create(ctx context.Context, orgID, createdBy uuid.UUID, name, description string) (*Project, error) {
	query := `
        INSERT INTO projects (organization_id, name, description, created_by)
        VALUES ($1, $2, $3, $4)
        RETURNING ` + projectColumns

	var p Project
	err := r.db.GetContext(ctx, &p, query, orgID, name, description, createdBy)
	if err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}
	return &p, nil
}

func (r *ProjectRepo) GetByID(ctx context.Context, id uuid.UUID) (*Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE id = $1`

	var p Project
	err := r.db.GetContext(ctx, &p, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to get project: %w", err)
	}

	if p.Members, err = r.ListMembers(ctx, p.ID); err != nil {
		return nil, err
	}
	return &p, nil
}

// ListByOrg loads every project in the organization with members attached.
// Visibility filtering happens in the service, over the full set.
func (r *ProjectRepo) ListByOrg(ctx context.Context, orgID uuid.UUID) ([]*Project, error) {
	query := `SELECT ` + projectColumns + ` FROM projects WHERE organization_id = $1 ORDER BY created_at`

	var projects []*Project
	err := r.db.SelectContext(ctx, &projects, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	if len(projects) == 0 {
		return projects, nil
	}

	ids := make([]uuid.UUID, 0, len(projects))
	byID := make(map[uuid.UUID]*Project, len(projects))
	for _, p := range projects {
		ids = append(ids, p.ID)
		byID[p.ID] = p
	}

	var members []*Member
	err = r.db.SelectContext(ctx, &members,
		`SELECT project_id, user_id, role, created_at FROM project_members WHERE project_id = ANY($1)`,
		pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("failed to list project members: %w", err)
	}
	for _, m := range members {
		p := byID[m.ProjectID]
		p.Members = append(p.Members, m)
	}
	return projects, nil
}

func (r *ProjectRepo) ListMembers(ctx context.Context, projectID uuid.UUID) ([]*Member, error) {
	var members []*Member
	err := r.db.SelectContext(ctx, &members,
		`SELECT project_id, user_id, role, created_at FROM project_members WHERE project_id = $1 ORDER BY created_at`,
		projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list project members: %w", err)
	}
	return members, nil
}

func (r *ProjectRepo) Update(ctx context.Context, id uuid.UUID, name, description string) (*Project, error) {
	query := `
        UPDATE projects SET name = $2, description = $3, updated_at = NOW()
        WHERE id = $1
        RETURNING ` + projectColumns

	var p Project
	err := r.db.GetContext(ctx, &p, query, id, name, description)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to update project: %w", err)
	}
	return &p, nil
}

// Delete removes the project; boards, tasks and memberships under it cascade.
func (r *ProjectRepo) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM projects WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrProjectNotFound
	}
	return nil
}

// AddMember inserts a membership row. A duplicate insert comes back as the
// primary key violation for the service to classify.
func (r *ProjectRepo) AddMember(ctx context.Context, projectID, userID uuid.UUID, role authz.ProjectRole) (*Member, error) {
	query := `
        INSERT INTO project_members (project_id, user_id, role)
        VALUES ($1, $2, $3)
        RETURNING project_id, user_id, role, created_at`

	var m Member
	err := r.db.GetContext(ctx, &m, query, projectID, userID, role)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *ProjectRepo) UpdateMemberRole(ctx context.Context, projectID, userID uuid.UUID, role authz.ProjectRole) (*Member, error) {
	query := `
        UPDATE project_members SET role = $3
        WHERE project_id = $1 AND user_id = $2
        RETURNING project_id, user_id, role, created_at`

	var m Member
	err := r.db.GetContext(ctx, &m, query, projectID, userID, role)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrMemberNotFound
		}
		return nil, fmt.Errorf("failed to update project member: %w", err)
	}
	return &m, nil
}

func (r *ProjectRepo) RemoveMember(ctx context.Context, projectID, userID uuid.UUID) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM project_members WHERE project_id = $1 AND user_id = $2`,
		projectID, userID)
	if err != nil {
		return fmt.Errorf("failed to remove project member: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrMemberNotFound
	}
	return nil
}

// UserOrg reports the organization a user belongs to, for validating that a
// membership target lives in the project's organization.
func (r *ProjectRepo) UserOrg(ctx context.Context, userID uuid.UUID) (uuid.UUID, error) {
	var orgID uuid.UUID
	err := r.db.GetContext(ctx, &orgID, `SELECT organization_id FROM users WHERE id = $1`, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return uuid.Nil, ErrMemberNotFound
		}
		return uuid.Nil, fmt.Errorf("failed to resolve user organization: %w", err)
	}
	return orgID, nil
}

// IsDuplicateMember reports whether err is the membership primary key violation.
func IsDuplicateMember(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505" && pqErr.Constraint == memberConstraint
}
