package organization

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/curaious/trellis/internal/authz"
	"github.com/curaious/trellis/internal/services/invitation"
	"github.com/curaious/trellis/internal/services/user"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidMemberRole = errors.New("invalid member role")

type OrganizationService struct {
	db          *sqlx.DB
	repo        *OrganizationRepo
	users       *user.UserRepo
	invitations *invitation.InvitationService
	engine      *authz.Engine
}

func NewOrganizationService(db *sqlx.DB, repo *OrganizationRepo, users *user.UserRepo, invitations *invitation.InvitationService, engine *authz.Engine) *OrganizationService {
	return &OrganizationService{db: db, repo: repo, users: users, invitations: invitations, engine: engine}
}

func (s *OrganizationService) Get(ctx context.Context, actor authz.Actor, id uuid.UUID) (*Organization, error) {
	org, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !s.engine.IsMember(actor, org.Authz()) {
		return nil, authz.ErrCrossTenant
	}
	return org, nil
}

// Bootstrap creates an organization and its owner account in one transaction.
// The owner row is inserted after the organization so the FK holds, and the
// owner linkage is stamped last. A failure anywhere rolls the whole thing
// back, so no organization ever exists without an owner.
func (s *OrganizationService) Bootstrap(ctx context.Context, req *BootstrapRequest) (*Organization, *user.User, error) {
	if req.Name == "" || req.OwnerEmail == "" || req.Password == "" {
		return nil, nil, fmt.Errorf("name, owner_email and password are required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to hash password: %w", err)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to begin bootstrap transaction: %w", err)
	}
	defer tx.Rollback()

	org, err := s.repo.CreateTx(ctx, tx, req.Name, req.Description)
	if err != nil {
		return nil, nil, err
	}

	owner, err := s.users.CreateTx(ctx, tx, &user.User{
		OrganizationID: org.ID,
		Name:           req.OwnerName,
		Email:          invitation.NormalizeEmail(req.OwnerEmail),
		PasswordHash:   string(hash),
		Role:           authz.RoleOwner,
	})
	if err != nil {
		return nil, nil, err
	}

	if err := s.repo.SetOwnerTx(ctx, tx, org.ID, owner.ID); err != nil {
		return nil, nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, nil, fmt.Errorf("failed to commit bootstrap: %w", err)
	}

	org.OwnerID = owner.ID
	slog.Info("organization bootstrapped",
		slog.String("org_id", org.ID.String()), slog.String("owner_id", owner.ID.String()))
	return org, owner, nil
}

func (s *OrganizationService) Update(ctx context.Context, actor authz.Actor, org *Organization, name, description string) (*Organization, error) {
	if err := s.engine.CanInviteMember(actor, org.Authz()); err != nil {
		return nil, err
	}
	return s.repo.Update(ctx, org.ID, name, description)
}

// Delete removes the organization and, through the FK cascade, every project,
// board, task, comment, membership and invitation under it. Owner only.
func (s *OrganizationService) Delete(ctx context.Context, actor authz.Actor, org *Organization) error {
	if err := s.engine.CanDeleteOrganization(actor, org.Authz()); err != nil {
		return err
	}
	return s.repo.Delete(ctx, org.ID)
}

func (s *OrganizationService) Members(ctx context.Context, actor authz.Actor, org *Organization) ([]*user.User, error) {
	if !s.engine.IsMember(actor, org.Authz()) {
		return nil, authz.ErrCrossTenant
	}
	return s.users.ListByOrg(ctx, org.ID)
}

// UpdateMember patches another member's name or role. The owner role is not
// grantable here; ownership follows the organization's owner linkage and
// nothing else.
func (s *OrganizationService) UpdateMember(ctx context.Context, actor authz.Actor, org *Organization, targetID uuid.UUID, req *UpdateMemberRequest) (*user.User, error) {
	if err := s.engine.CanUpdateOrgMember(actor, org.Authz(), targetID); err != nil {
		return nil, err
	}

	target, err := s.users.GetByID(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if target.OrganizationID != org.ID {
		return nil, user.ErrUserNotFound
	}

	if req.Role != nil {
		role, err := authz.ParseRole(*req.Role)
		if err != nil || role == authz.RoleOwner {
			return nil, ErrInvalidMemberRole
		}
		if target, err = s.users.UpdateRole(ctx, targetID, role); err != nil {
			return nil, err
		}
	}
	if req.Name != nil {
		if target, err = s.users.UpdateName(ctx, targetID, *req.Name); err != nil {
			return nil, err
		}
	}
	return target, nil
}

// RemoveMember deletes a member and purges the invitation row for their email,
// so the address can be invited again from a clean slate. References the
// member left behind on tasks and boards are not rewritten; they simply stop
// resolving.
func (s *OrganizationService) RemoveMember(ctx context.Context, actor authz.Actor, org *Organization, targetID uuid.UUID) error {
	if err := s.engine.CanRemoveOrgMember(actor, org.Authz(), targetID); err != nil {
		return err
	}

	target, err := s.users.GetByID(ctx, targetID)
	if err != nil {
		return err
	}
	if target.OrganizationID != org.ID {
		return user.ErrUserNotFound
	}

	if err := s.users.Delete(ctx, targetID); err != nil {
		return err
	}
	if err := s.invitations.PurgeForEmail(ctx, org.ID, target.Email); err != nil {
		slog.Warn("failed to purge invitation after member removal",
			slog.String("org_id", org.ID.String()), slog.String("email", target.Email))
	}
	return nil
}
