package invitation

import (
	"time"

	"github.com/curaious/trellis/internal/authz"
	"github.com/google/uuid"
)

type Status string

const (
	StatusInvited  Status = "invited"
	StatusAccepted Status = "accepted"
	StatusDeclined Status = "declined"
)

// Invitation bridges an email address to future organization membership.
// There is at most one row per (organization, lowercased email) pair; spent
// rows are recycled in place instead of duplicated.
type Invitation struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	OrganizationID uuid.UUID  `db:"organization_id" json:"organization_id"`
	InvitedBy      uuid.UUID  `db:"invited_by" json:"invited_by"`
	Email          string     `db:"email" json:"email"`
	MemberID       *uuid.UUID `db:"member_id" json:"member_id,omitempty"`
	Status         Status     `db:"status" json:"status"`
	Role           authz.Role `db:"role" json:"role"`
	Token          string     `db:"token" json:"-"`
	ExpiresAt      time.Time  `db:"expires_at" json:"expires_at"`
	AcceptedAt     *time.Time `db:"accepted_at" json:"accepted_at,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

// Expired reports whether the token lifetime has passed. Expiry is passive:
// nothing sweeps expired rows, every read re-checks.
func (i Invitation) Expired(now time.Time) bool {
	return !now.Before(i.ExpiresAt)
}

// Live reports whether the invitation still blocks a new invite for the same
// pair: status invited and not yet expired.
func (i Invitation) Live(now time.Time) bool {
	return i.Status == StatusInvited && !i.Expired(now)
}

// CreateInvitationRequest captures payload for inviting an email address.
type CreateInvitationRequest struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}
