package comment

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var ErrCommentNotFound = errors.New("comment not found")

const commentColumns = `id, task_id, author_id, body, created_at, updated_at`

type CommentRepo struct {
	db *sqlx.DB
}

func NewCommentRepo(db *sqlx.DB) *CommentRepo {
	return &CommentRepo{db: db}
}

func (r *CommentRepo) Create(ctx context.Context, taskID, authorID uuid.UUID, body string) (*Comment, error) {
	query := `
        INSERT INTO comments (task_id, author_id, body)
        VALUES ($1, $2, $3)
        RETURNING ` + commentColumns

	var c Comment
	err := r.db.GetContext(ctx, &c, query, taskID, authorID, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create comment: %w", err)
	}
	return &c, nil
}

func (r *CommentRepo) GetByID(ctx context.Context, id uuid.UUID) (*Comment, error) {
	query := `SELECT ` + commentColumns + ` FROM comments WHERE id = $1`

	var c Comment
	err := r.db.GetContext(ctx, &c, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCommentNotFound
		}
		return nil, fmt.Errorf("failed to get comment: %w", err)
	}
	return &c, nil
}

func (r *CommentRepo) ListByTask(ctx context.Context, taskID uuid.UUID) ([]*Comment, error) {
	query := `SELECT ` + commentColumns + ` FROM comments WHERE task_id = $1 ORDER BY created_at`

	var comments []*Comment
	err := r.db.SelectContext(ctx, &comments, query, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	return comments, nil
}

func (r *CommentRepo) Update(ctx context.Context, id uuid.UUID, body string) (*Comment, error) {
	query := `
        UPDATE comments SET body = $2, updated_at = NOW()
        WHERE id = $1
        RETURNING ` + commentColumns

	var c Comment
	err := r.db.GetContext(ctx, &c, query, id, body)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCommentNotFound
		}
		return nil, fmt.Errorf("failed to update comment: %w", err)
	}
	return &c, nil
}

func (r *CommentRepo) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM comments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete comment: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrCommentNotFound
	}
	return nil
}
