package board

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

var (
	ErrBoardNotFound  = errors.New("board not found")
	ErrMemberNotFound = errors.New("board member not found")
)

const boardColumns = `id, project_id, name, description, owner_id, created_at, updated_at`

const memberConstraint = "board_members_pkey"

type BoardRepo struct {
	db *sqlx.DB
}

func NewBoardRepo(db *sqlx.DB) *BoardRepo {
	return &BoardRepo{db: db}
}

func (r *BoardRepo) Create(ctx context.Context, projectID, ownerID uuid.UUID, name, description string) (*Board, error) {
	query := `
        INSERT INTO boards (project_id, name, description, owner_id)
        VALUES ($1, $2, $3, $4)
        RETURNING ` + boardColumns

	var b Board
	err := r.db.GetContext(ctx, &b, query, projectID, name, description, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to create board: %w", err)
	}
	return &b, nil
}

func (r *BoardRepo) GetByID(ctx context.Context, id uuid.UUID) (*Board, error) {
	query := `SELECT ` + boardColumns + ` FROM boards WHERE id = $1`

	var b Board
	err := r.db.GetContext(ctx, &b, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBoardNotFound
		}
		return nil, fmt.Errorf("failed to get board: %w", err)
	}

	if b.MemberIDs, err = r.ListMemberIDs(ctx, b.ID); err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *BoardRepo) ListByProject(ctx context.Context, projectID uuid.UUID) ([]*Board, error) {
	query := `SELECT ` + boardColumns + ` FROM boards WHERE project_id = $1 ORDER BY created_at`

	var boards []*Board
	err := r.db.SelectContext(ctx, &boards, query, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list boards: %w", err)
	}
	return boards, nil
}

func (r *BoardRepo) ListMemberIDs(ctx context.Context, boardID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.SelectContext(ctx, &ids,
		`SELECT user_id FROM board_members WHERE board_id = $1 ORDER BY created_at`, boardID)
	if err != nil {
		return nil, fmt.Errorf("failed to list board members: %w", err)
	}
	return ids, nil
}

func (r *BoardRepo) Update(ctx context.Context, id uuid.UUID, name, description string) (*Board, error) {
	query := `
        UPDATE boards SET name = $2, description = $3, updated_at = NOW()
        WHERE id = $1
        RETURNING ` + boardColumns

	var b Board
	err := r.db.GetContext(ctx, &b, query, id, name, description)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrBoardNotFound
		}
		return nil, fmt.Errorf("failed to update board: %w", err)
	}
	return &b, nil
}

// Delete removes the board; its tasks cascade.
func (r *BoardRepo) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM boards WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete board: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrBoardNotFound
	}
	return nil
}

func (r *BoardRepo) AddMember(ctx context.Context, boardID, userID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO board_members (board_id, user_id) VALUES ($1, $2)`, boardID, userID)
	return err
}

func (r *BoardRepo) RemoveMember(ctx context.Context, boardID, userID uuid.UUID) error {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM board_members WHERE board_id = $1 AND user_id = $2`, boardID, userID)
	if err != nil {
		return fmt.Errorf("failed to remove board member: %w", err)
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

// UserOrg resolves the target user's organization for membership validation.
func (r *BoardRepo) UserOrg(ctx context.Context, userID uuid.UUID) (uuid.UUID, error) {
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
