package board

import (
	"time"

	"github.com/curaious/trellis/internal/authz"
	"github.com/google/uuid"
)

// Board is a column-free task container inside a project. The owner defaults
// to the creator and carries project-admin rights over this board alone.
type Board struct {
	ID          uuid.UUID `db:"id" json:"id"`
	ProjectID   uuid.UUID `db:"project_id" json:"project_id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description,omitempty"`
	OwnerID     uuid.UUID `db:"owner_id" json:"owner_id"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`

	MemberIDs []uuid.UUID `db:"-" json:"member_ids,omitempty"`
}

// Authz maps the board and its loaded member list into the engine's view.
func (b *Board) Authz() authz.Board {
	return authz.Board{
		ID:        b.ID,
		ProjectID: b.ProjectID,
		OwnerID:   b.OwnerID,
		MemberIDs: b.MemberIDs,
	}
}

type CreateBoardRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type UpdateBoardRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type AddMemberRequest struct {
	UserID uuid.UUID `json:"user_id"`
}
