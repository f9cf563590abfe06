package invitation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/curaious/trellis/internal/authz"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

var ErrInvitationNotFound = errors.New("invitation not found")

const invitationColumns = `id, organization_id, invited_by, email, member_id, status, role, token, expires_at, accepted_at, created_at, updated_at`

// Unique constraints the service's retry logic keys on.
const (
	tokenConstraint = "organization_invitations_token_key"
	pairConstraint  = "organization_invitations_org_email_key"
)

type InvitationRepo struct {
	db *sqlx.DB
}

func NewInvitationRepo(db *sqlx.DB) *InvitationRepo {
	return &InvitationRepo{db: db}
}

func (r *InvitationRepo) GetByOrgAndEmail(ctx context.Context, orgID uuid.UUID, email string) (*Invitation, error) {
	query := `SELECT ` + invitationColumns + ` FROM organization_invitations WHERE organization_id = $1 AND email = $2`

	var inv Invitation
	err := r.db.GetContext(ctx, &inv, query, orgID, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvitationNotFound
		}
		return nil, fmt.Errorf("failed to get invitation: %w", err)
	}
	return &inv, nil
}

func (r *InvitationRepo) GetByToken(ctx context.Context, token string) (*Invitation, error) {
	query := `SELECT ` + invitationColumns + ` FROM organization_invitations WHERE token = $1`

	var inv Invitation
	err := r.db.GetContext(ctx, &inv, query, token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvitationNotFound
		}
		return nil, fmt.Errorf("failed to get invitation: %w", err)
	}
	return &inv, nil
}

func (r *InvitationRepo) ListByOrg(ctx context.Context, orgID uuid.UUID) ([]*Invitation, error) {
	query := `SELECT ` + invitationColumns + ` FROM organization_invitations WHERE organization_id = $1 ORDER BY created_at DESC`

	var invs []*Invitation
	err := r.db.SelectContext(ctx, &invs, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to list invitations: %w", err)
	}
	return invs, nil
}

// Insert creates a fresh row. Unique violations on the token or the
// (org, email) pair come back unwrapped for the caller to classify.
func (r *InvitationRepo) Insert(ctx context.Context, orgID, invitedBy uuid.UUID, email string, role authz.Role, token string, expiresAt time.Time) (*Invitation, error) {
	query := `
        INSERT INTO organization_invitations (organization_id, invited_by, email, role, token, status, expires_at)
        VALUES ($1, $2, $3, $4, $5, 'invited', $6)
        RETURNING ` + invitationColumns

	var inv Invitation
	err := r.db.GetContext(ctx, &inv, query, orgID, invitedBy, email, role, token, expiresAt)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

// Reset recycles a spent row in place: new token, new expiry, status back to
// invited, prior member linkage cleared. The guard on status stops a
// concurrent accept from being overwritten.
func (r *InvitationRepo) Reset(ctx context.Context, id, invitedBy uuid.UUID, role authz.Role, token string, expiresAt time.Time) (*Invitation, error) {
	query := `
        UPDATE organization_invitations
        SET token = $2, role = $3, invited_by = $4, expires_at = $5,
            status = 'invited', member_id = NULL, accepted_at = NULL, updated_at = NOW()
        WHERE id = $1 AND (status <> 'invited' OR expires_at <= NOW())
        RETURNING ` + invitationColumns

	var inv Invitation
	err := r.db.GetContext(ctx, &inv, query, id, token, role, invitedBy, expiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvitationNotFound
		}
		return nil, err
	}
	return &inv, nil
}

// AcceptTx consumes a live invitation inside the registration transaction.
// The row is matched on token, invited status and unexpired lifetime in one
// statement, so a token can only ever be consumed once.
func (r *InvitationRepo) AcceptTx(ctx context.Context, tx *sqlx.Tx, token string, now time.Time) (*Invitation, error) {
	query := `
        UPDATE organization_invitations
        SET status = 'accepted', accepted_at = $2, updated_at = NOW()
        WHERE token = $1 AND status = 'invited' AND expires_at > $2
        RETURNING ` + invitationColumns

	var inv Invitation
	err := tx.GetContext(ctx, &inv, query, token, now)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvitationNotFound
		}
		return nil, fmt.Errorf("failed to accept invitation: %w", err)
	}
	return &inv, nil
}

// AttachMemberTx stamps the created user onto the accepted invitation, in the
// same transaction that created the user.
func (r *InvitationRepo) AttachMemberTx(ctx context.Context, tx *sqlx.Tx, id, memberID uuid.UUID) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE organization_invitations SET member_id = $2, updated_at = NOW() WHERE id = $1`,
		id, memberID)
	if err != nil {
		return fmt.Errorf("failed to attach member to invitation: %w", err)
	}
	return nil
}

// Decline marks a live invitation declined. Spent or expired rows are left alone.
func (r *InvitationRepo) Decline(ctx context.Context, token string, now time.Time) (*Invitation, error) {
	query := `
        UPDATE organization_invitations
        SET status = 'declined', updated_at = NOW()
        WHERE token = $1 AND status = 'invited' AND expires_at > $2
        RETURNING ` + invitationColumns

	var inv Invitation
	err := r.db.GetContext(ctx, &inv, query, token, now)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrInvitationNotFound
		}
		return nil, fmt.Errorf("failed to decline invitation: %w", err)
	}
	return &inv, nil
}

// DeleteByOrgAndEmail purges the pair's row, used when a member is removed
// from the organization.
func (r *InvitationRepo) DeleteByOrgAndEmail(ctx context.Context, orgID uuid.UUID, email string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM organization_invitations WHERE organization_id = $1 AND email = $2`,
		orgID, email)
	if err != nil {
		return fmt.Errorf("failed to purge invitations: %w", err)
	}
	return nil
}

// MemberAlive reports whether the user an accepted invitation points at still
// exists. A dangling member linkage makes the row eligible for recycling.
func (r *InvitationRepo) MemberAlive(ctx context.Context, memberID uuid.UUID) (bool, error) {
	var alive bool
	err := r.db.GetContext(ctx, &alive, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, memberID)
	if err != nil {
		return false, fmt.Errorf("failed to check member liveness: %w", err)
	}
	return alive, nil
}

// IsTokenCollision reports whether err is a unique violation on the token column.
func IsTokenCollision(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505" && pqErr.Constraint == tokenConstraint
}

// IsPairCollision reports whether err is a unique violation on the
// (organization, email) pair, which means a concurrent caller created the row
// first.
func IsPairCollision(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505" && pqErr.Constraint == pairConstraint
}
