package user

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/curaious/trellis/internal/authz"
	"github.com/curaious/trellis/internal/services/invitation"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = errors.New("invalid credentials")

type UserService struct {
	db          *sqlx.DB
	repo        *UserRepo
	invitations *invitation.InvitationService
	now         func() time.Time
}

func NewUserService(db *sqlx.DB, repo *UserRepo, invitations *invitation.InvitationService) *UserService {
	return &UserService{db: db, repo: repo, invitations: invitations, now: time.Now}
}

// Authenticate resolves a user by organization and email and checks the
// password. The organization is part of the lookup key: the same email may
// exist in several organizations with independent credentials, so login
// without an organization would pick an arbitrary match.
func (s *UserService) Authenticate(ctx context.Context, orgID uuid.UUID, email, password string) (*User, error) {
	u, err := s.repo.GetByOrgAndEmail(ctx, orgID, invitation.NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return u, nil
}

func (s *UserService) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return s.repo.GetByID(ctx, id)
}

// LookupByEmail finds an organization's member by email. Used by the single
// sign-on callback, where the identity provider vouches for the address.
func (s *UserService) LookupByEmail(ctx context.Context, orgID uuid.UUID, email string) (*User, error) {
	return s.repo.GetByOrgAndEmail(ctx, orgID, invitation.NormalizeEmail(email))
}

// RegisterWithInvitation consumes an invitation token and provisions the new
// user in a single transaction. If anything after the token consumption
// fails, the whole transaction rolls back, so a token is never spent without
// a user existing, and never produces two users.
func (s *UserService) RegisterWithInvitation(ctx context.Context, req *RegisterRequest) (*User, error) {
	if req.Name == "" || req.Password == "" {
		return nil, fmt.Errorf("name and password are required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin registration transaction: %w", err)
	}
	defer tx.Rollback()

	invRepo := s.invitations.Repo()

	inv, err := invRepo.AcceptTx(ctx, tx, req.Token, s.now())
	if err != nil {
		if errors.Is(err, invitation.ErrInvitationNotFound) {
			return nil, invitation.ErrInvalidOrExpired
		}
		return nil, err
	}

	created, err := s.repo.CreateTx(ctx, tx, &User{
		OrganizationID: inv.OrganizationID,
		Name:           req.Name,
		Email:          inv.Email,
		PasswordHash:   string(hash),
		Role:           inv.Role,
	})
	if err != nil {
		return nil, err
	}

	if err := invRepo.AttachMemberTx(ctx, tx, inv.ID, created.ID); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit registration: %w", err)
	}

	return created, nil
}

// Actor loads the authorization view for an authenticated user id.
func (s *UserService) Actor(ctx context.Context, id uuid.UUID) (authz.Actor, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return authz.Actor{}, err
	}
	return u.Actor(), nil
}
