package board

import (
	"context"
	"errors"
	"fmt"

	"github.com/curaious/trellis/internal/authz"
	"github.com/google/uuid"
)

var (
	// ErrDuplicateMember means the user is already on the board's member list.
	ErrDuplicateMember = errors.New("user is already a board member")
	// ErrOwnerImmutable rejects removing the board's owner from its member list.
	ErrOwnerImmutable = errors.New("the board owner cannot be removed from the board")
	// ErrMemberNotInOrg rejects membership targets from outside the board's organization.
	ErrMemberNotInOrg = errors.New("user does not belong to this organization")
)

type BoardService struct {
	repo   *BoardRepo
	engine *authz.Engine
}

func NewBoardService(repo *BoardRepo, engine *authz.Engine) *BoardService {
	return &BoardService{repo: repo, engine: engine}
}

// Create makes a board owned by the acting user.
func (s *BoardService) Create(ctx context.Context, actor authz.Actor, org authz.Org, p authz.Project, req *CreateBoardRequest) (*Board, error) {
	if err := s.engine.CanCreateBoard(actor, org, p); err != nil {
		return nil, err
	}
	if req.Name == "" {
		return nil, fmt.Errorf("board name is required")
	}
	return s.repo.Create(ctx, p.ID, actor.ID, req.Name, req.Description)
}

func (s *BoardService) Get(ctx context.Context, actor authz.Actor, org authz.Org, p authz.Project, id uuid.UUID) (*Board, error) {
	if err := s.engine.CanViewProject(actor, org, p); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id)
}

func (s *BoardService) List(ctx context.Context, actor authz.Actor, org authz.Org, p authz.Project) ([]*Board, error) {
	if err := s.engine.CanViewProject(actor, org, p); err != nil {
		return nil, err
	}
	return s.repo.ListByProject(ctx, p.ID)
}

func (s *BoardService) Update(ctx context.Context, actor authz.Actor, org authz.Org, p authz.Project, b authz.Board, req *UpdateBoardRequest) (*Board, error) {
	if err := s.engine.CanManageBoard(actor, org, p, b); err != nil {
		return nil, err
	}
	if req.Name == "" {
		return nil, fmt.Errorf("board name is required")
	}
	return s.repo.Update(ctx, b.ID, req.Name, req.Description)
}

func (s *BoardService) Delete(ctx context.Context, actor authz.Actor, org authz.Org, p authz.Project, b authz.Board) error {
	if err := s.engine.CanManageBoard(actor, org, p, b); err != nil {
		return err
	}
	return s.repo.Delete(ctx, b.ID)
}

func (s *BoardService) AddMember(ctx context.Context, actor authz.Actor, org authz.Org, p authz.Project, b authz.Board, req *AddMemberRequest) error {
	if err := s.engine.CanManageBoard(actor, org, p, b); err != nil {
		return err
	}

	targetOrg, err := s.repo.UserOrg(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, ErrMemberNotFound) {
			return ErrMemberNotInOrg
		}
		return err
	}
	if targetOrg != org.ID {
		return ErrMemberNotInOrg
	}

	if err := s.repo.AddMember(ctx, b.ID, req.UserID); err != nil {
		if IsDuplicateMember(err) {
			return ErrDuplicateMember
		}
		return fmt.Errorf("failed to add board member: %w", err)
	}
	return nil
}

func (s *BoardService) RemoveMember(ctx context.Context, actor authz.Actor, org authz.Org, p authz.Project, b authz.Board, userID uuid.UUID) error {
	if err := s.engine.CanManageBoard(actor, org, p, b); err != nil {
		return err
	}
	if userID == b.OwnerID {
		return ErrOwnerImmutable
	}
	return s.repo.RemoveMember(ctx, b.ID, userID)
}
