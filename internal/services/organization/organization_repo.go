package organization

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

var ErrOrganizationNotFound = errors.New("organization not found")

const organizationColumns = `id, name, description, owner_id, created_at, updated_at`

type OrganizationRepo struct {
	db *sqlx.DB
}

func NewOrganizationRepo(db *sqlx.DB) *OrganizationRepo {
	return &OrganizationRepo{db: db}
}

func (r *OrganizationRepo) GetByID(ctx context.Context, id uuid.UUID) (*Organization, error) {
	query := `SELECT ` + organizationColumns + ` FROM organizations WHERE id = $1`

	var org Organization
	err := r.db.GetContext(ctx, &org, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrganizationNotFound
		}
		return nil, fmt.Errorf("failed to get organization: %w", err)
	}
	return &org, nil
}

// CreateTx inserts the organization row without an owner; the bootstrap flow
// creates the owner user in the same transaction and then stamps the linkage
// with SetOwnerTx.
func (r *OrganizationRepo) CreateTx(ctx context.Context, tx *sqlx.Tx, name, description string) (*Organization, error) {
	query := `
        INSERT INTO organizations (name, description)
        VALUES ($1, $2)
        RETURNING id, name, description, COALESCE(owner_id, '00000000-0000-0000-0000-000000000000'::uuid) AS owner_id, created_at, updated_at`

	var org Organization
	err := tx.GetContext(ctx, &org, query, name, description)
	if err != nil {
		return nil, fmt.Errorf("failed to create organization: %w", err)
	}
	return &org, nil
}

func (r *OrganizationRepo) SetOwnerTx(ctx context.Context, tx *sqlx.Tx, orgID, ownerID uuid.UUID) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE organizations SET owner_id = $2, updated_at = NOW() WHERE id = $1`,
		orgID, ownerID)
	if err != nil {
		return fmt.Errorf("failed to set organization owner: %w", err)
	}
	return nil
}

func (r *OrganizationRepo) Update(ctx context.Context, id uuid.UUID, name, description string) (*Organization, error) {
	query := `
        UPDATE organizations SET name = $2, description = $3, updated_at = NOW()
        WHERE id = $1
        RETURNING ` + organizationColumns

	var org Organization
	err := r.db.GetContext(ctx, &org, query, id, name, description)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrganizationNotFound
		}
		return nil, fmt.Errorf("failed to update organization: %w", err)
	}
	return &org, nil
}

// Delete removes the organization. Projects, boards, tasks and invitations go
// with it through the declared FK cascade.
func (r *OrganizationRepo) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM organizations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete organization: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrOrganizationNotFound
	}
	return nil
}
