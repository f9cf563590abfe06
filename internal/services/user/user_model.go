package user

import (
	"time"

	"github.com/curaious/trellis/internal/authz"
	"github.com/google/uuid"
)

// User is one identity inside one organization. A person who belongs to N
// organizations has N independent User records; email is unique per
// organization, not globally.
type User struct {
	ID             uuid.UUID  `db:"id" json:"id"`
	OrganizationID uuid.UUID  `db:"organization_id" json:"organization_id"`
	Name           string     `db:"name" json:"name"`
	Email          string     `db:"email" json:"email"`
	PasswordHash   string     `db:"password_hash" json:"-"`
	Role           authz.Role `db:"role" json:"role"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

// Actor maps the user into the authorization engine's view.
func (u *User) Actor() authz.Actor {
	return authz.Actor{ID: u.ID, OrgID: u.OrganizationID, Role: u.Role}
}

// RegisterRequest captures payload for registering through an invitation token.
type RegisterRequest struct {
	Token    string `json:"token"`
	Name     string `json:"name"`
	Password string `json:"password"`
}
