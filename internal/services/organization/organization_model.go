package organization

import (
	"time"

	"github.com/curaious/trellis/internal/authz"
	"github.com/google/uuid"
)

// Organization is the top-level tenant. OwnerID is also redundantly encoded
// as the owning user's role; the authorization engine reconciles the two,
// preferring this linkage.
type Organization struct {
	ID          uuid.UUID `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description,omitempty"`
	OwnerID     uuid.UUID `db:"owner_id" json:"owner_id"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// Authz maps the organization into the engine's view.
func (o *Organization) Authz() authz.Org {
	return authz.Org{ID: o.ID, OwnerID: o.OwnerID}
}

// BootstrapRequest creates an organization together with its owner account.
type BootstrapRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	OwnerName   string `json:"owner_name"`
	OwnerEmail  string `json:"owner_email"`
	Password    string `json:"password"`
}

// UpdateMemberRequest patches another member's row.
type UpdateMemberRequest struct {
	Name *string `json:"name,omitempty"`
	Role *string `json:"role,omitempty"`
}
