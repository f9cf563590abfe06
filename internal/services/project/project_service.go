package project

import (
	"context"
	"errors"
	"fmt"

	"github.com/curaious/trellis/internal/authz"
	"github.com/google/uuid"
)

var (
	// ErrDuplicateMember means the user is already on the project's member list.
	ErrDuplicateMember = errors.New("user is already a project member")
	// ErrCreatorImmutable rejects member-list operations aimed at the creator,
	// whose standing comes from the project row and cannot be listed or edited.
	ErrCreatorImmutable = errors.New("the project creator's membership is implicit and cannot be changed")
	// ErrMemberNotInOrg rejects membership targets from outside the project's organization.
	ErrMemberNotInOrg = errors.New("user does not belong to this organization")
	// ErrInvalidProjectRole rejects role strings outside admin/member.
	ErrInvalidProjectRole = errors.New("invalid project role")
)

type ProjectService struct {
	repo   *ProjectRepo
	engine *authz.Engine
}

func NewProjectService(repo *ProjectRepo, engine *authz.Engine) *ProjectService {
	return &ProjectService{repo: repo, engine: engine}
}

func (s *ProjectService) Create(ctx context.Context, actor authz.Actor, org authz.Org, req *CreateProjectRequest) (*Project, error) {
	if err := s.engine.CanCreateProject(actor, org); err != nil {
		return nil, err
	}
	if req.Name == "" {
		return nil, fmt.Errorf("project name is required")
	}
	return s.repo.Create(ctx, org.ID, actor.ID, req.Name, req.Description)
}

// List returns the projects the actor may see. The full organization set is
// loaded first and filtered through the engine, so the visibility union is
// computed in exactly one place.
func (s *ProjectService) List(ctx context.Context, actor authz.Actor, org authz.Org) ([]*Project, error) {
	if !s.engine.IsMember(actor, org) {
		return nil, authz.ErrCrossTenant
	}

	all, err := s.repo.ListByOrg(ctx, org.ID)
	if err != nil {
		return nil, err
	}

	views := make([]authz.Project, 0, len(all))
	byID := make(map[uuid.UUID]*Project, len(all))
	for _, p := range all {
		views = append(views, p.Authz())
		byID[p.ID] = p
	}

	visible := make([]*Project, 0, len(all))
	for _, v := range s.engine.VisibleProjects(actor, org, views) {
		visible = append(visible, byID[v.ID])
	}
	return visible, nil
}

func (s *ProjectService) Get(ctx context.Context, actor authz.Actor, org authz.Org, id uuid.UUID) (*Project, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.engine.CanViewProject(actor, org, p.Authz()); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *ProjectService) Update(ctx context.Context, actor authz.Actor, org authz.Org, p authz.Project, req *UpdateProjectRequest) (*Project, error) {
	if err := s.engine.CanManageProjectMembers(actor, org, p); err != nil {
		return nil, err
	}
	if req.Name == "" {
		return nil, fmt.Errorf("project name is required")
	}
	return s.repo.Update(ctx, p.ID, req.Name, req.Description)
}

func (s *ProjectService) Delete(ctx context.Context, actor authz.Actor, org authz.Org, p authz.Project) error {
	if err := s.engine.CanManageProjectMembers(actor, org, p); err != nil {
		return err
	}
	return s.repo.Delete(ctx, p.ID)
}

// AddMember lists a same-organization user on the project. The creator is
// never listed; their standing is implicit.
func (s *ProjectService) AddMember(ctx context.Context, actor authz.Actor, org authz.Org, p authz.Project, req *AddMemberRequest) (*Member, error) {
	if err := s.engine.CanManageProjectMembers(actor, org, p); err != nil {
		return nil, err
	}

	role, err := authz.ParseProjectRole(req.Role)
	if err != nil {
		return nil, ErrInvalidProjectRole
	}

	if req.UserID == p.CreatedBy {
		return nil, ErrCreatorImmutable
	}

	targetOrg, err := s.repo.UserOrg(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, ErrMemberNotFound) {
			return nil, ErrMemberNotInOrg
		}
		return nil, err
	}
	if targetOrg != org.ID {
		return nil, ErrMemberNotInOrg
	}

	m, err := s.repo.AddMember(ctx, p.ID, req.UserID, role)
	if err != nil {
		if IsDuplicateMember(err) {
			return nil, ErrDuplicateMember
		}
		return nil, fmt.Errorf("failed to add project member: %w", err)
	}
	return m, nil
}

func (s *ProjectService) UpdateMemberRole(ctx context.Context, actor authz.Actor, org authz.Org, p authz.Project, userID uuid.UUID, req *UpdateMemberRoleRequest) (*Member, error) {
	if err := s.engine.CanManageProjectMembers(actor, org, p); err != nil {
		return nil, err
	}

	role, err := authz.ParseProjectRole(req.Role)
	if err != nil {
		return nil, ErrInvalidProjectRole
	}
	if userID == p.CreatedBy {
		return nil, ErrCreatorImmutable
	}
	return s.repo.UpdateMemberRole(ctx, p.ID, userID, role)
}

func (s *ProjectService) RemoveMember(ctx context.Context, actor authz.Actor, org authz.Org, p authz.Project, userID uuid.UUID) error {
	if err := s.engine.CanManageProjectMembers(actor, org, p); err != nil {
		return err
	}
	if userID == p.CreatedBy {
		return ErrCreatorImmutable
	}
	return s.repo.RemoveMember(ctx, p.ID, userID)
}
