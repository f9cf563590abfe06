package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/curaious/trellis/internal/authz"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var ErrUserNotFound = errors.New("user not found")

const userColumns = `id, organization_id, name, email, password_hash, role, created_at, updated_at`

type UserRepo struct {
	db *sqlx.DB
}

func NewUserRepo(db *sqlx.DB) *UserRepo {
	return &UserRepo{db: db}
}

func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	var u User
	err := r.db.GetContext(ctx, &u, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

// GetByOrgAndEmail looks a user up inside one organization. Email alone is
// not a key: the same address may exist in any number of organizations.
func (r *UserRepo) GetByOrgAndEmail(ctx context.Context, orgID uuid.UUID, email string) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE organization_id = $1 AND email = $2`

	var u User
	err := r.db.GetContext(ctx, &u, query, orgID, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

func (r *UserRepo) ListByOrg(ctx context.Context, orgID uuid.UUID) ([]*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE organization_id = $1 ORDER BY created_at`

	var users []*User
	err := r.db.SelectContext(ctx, &users, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// CreateTx inserts a user inside an existing transaction. Used by the
// registration flow, which must consume the invitation in the same
// transaction.
func (r *UserRepo) CreateTx(ctx context.Context, tx *sqlx.Tx, u *User) (*User, error) {
	query := `
        INSERT INTO users (organization_id, name, email, password_hash, role)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING ` + userColumns

	var created User
	err := tx.GetContext(ctx, &created, query, u.OrganizationID, u.Name, u.Email, u.PasswordHash, u.Role)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return &created, nil
}

func (r *UserRepo) UpdateRole(ctx context.Context, id uuid.UUID, role authz.Role) (*User, error) {
	query := `
        UPDATE users SET role = $2, updated_at = NOW()
        WHERE id = $1
        RETURNING ` + userColumns

	var u User
	err := r.db.GetContext(ctx, &u, query, id, role)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to update user role: %w", err)
	}
	return &u, nil
}

func (r *UserRepo) UpdateName(ctx context.Context, id uuid.UUID, name string) (*User, error) {
	query := `
        UPDATE users SET name = $2, updated_at = NOW()
        WHERE id = $1
        RETURNING ` + userColumns

	var u User
	err := r.db.GetContext(ctx, &u, query, id, name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to update user name: %w", err)
	}
	return &u, nil
}

func (r *UserRepo) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}
