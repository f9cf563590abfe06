package invitation

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/curaious/trellis/internal/authz"
	"github.com/google/uuid"
)

var (
	// ErrDuplicatePending means a live invitation already exists for the pair.
	ErrDuplicatePending = errors.New("a pending invitation already exists for this email")
	// ErrAlreadyMember means the invitation was accepted and the resulting user still exists.
	ErrAlreadyMember = errors.New("this email already belongs to a member of the organization")
	// ErrInvalidOrExpired covers unknown, consumed, declined and expired tokens alike.
	ErrInvalidOrExpired = errors.New("invitation is invalid or has expired")
	// ErrInvalidRole rejects role strings outside the fixed set.
	ErrInvalidRole = errors.New("invalid invitation role")
	// ErrInvalidEmail rejects addresses that cannot be invited.
	ErrInvalidEmail = errors.New("invalid email address")
	// ErrTokenExhausted surfaces after repeated token collisions, which should be exceptional.
	ErrTokenExhausted = errors.New("unable to allocate a unique invitation token")
)

// tokenRetries bounds the regenerate-and-retry loop on token collisions.
const tokenRetries = 3

type InvitationService struct {
	repo   *InvitationRepo
	engine *authz.Engine
	ttl    time.Duration
	now    func() time.Time
}

func NewInvitationService(repo *InvitationRepo, engine *authz.Engine, ttlDays int) *InvitationService {
	return &InvitationService{
		repo:   repo,
		engine: engine,
		ttl:    time.Duration(ttlDays) * 24 * time.Hour,
		now:    time.Now,
	}
}

// NormalizeEmail is the canonical form stored and matched on.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CreateOrRecycle invites an email into the organization, keeping exactly one
// row per (org, email) pair. A live pending invitation rejects the call; a
// declined, expired or orphaned-accepted row is reset in place with a fresh
// token and expiry.
func (s *InvitationService) CreateOrRecycle(ctx context.Context, actor authz.Actor, org authz.Org, req *CreateInvitationRequest) (*Invitation, error) {
	if err := s.engine.CanInviteMember(actor, org); err != nil {
		return nil, err
	}

	role, err := authz.ParseRole(req.Role)
	if err != nil || role == authz.RoleOwner {
		return nil, ErrInvalidRole
	}

	email := NormalizeEmail(req.Email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, ErrInvalidEmail
	}

	now := s.now()

	existing, err := s.repo.GetByOrgAndEmail(ctx, org.ID, email)
	switch {
	case err == nil:
		return s.recycle(ctx, existing, actor, role, now)
	case errors.Is(err, ErrInvitationNotFound):
		return s.insert(ctx, actor, org, email, role, now)
	default:
		return nil, err
	}
}

func (s *InvitationService) insert(ctx context.Context, actor authz.Actor, org authz.Org, email string, role authz.Role, now time.Time) (*Invitation, error) {
	for attempt := 0; attempt < tokenRetries; attempt++ {
		token, err := newToken()
		if err != nil {
			return nil, err
		}

		inv, err := s.repo.Insert(ctx, org.ID, actor.ID, email, role, token, now.Add(s.ttl))
		switch {
		case err == nil:
			return inv, nil
		case IsTokenCollision(err):
			slog.Warn("invitation token collision, regenerating",
				slog.String("org_id", org.ID.String()), slog.Int("attempt", attempt+1))
			continue
		case IsPairCollision(err):
			// A concurrent caller created the pair's row first; exactly one
			// live invitation survives and this caller loses the race.
			return nil, ErrDuplicatePending
		default:
			return nil, fmt.Errorf("failed to create invitation: %w", err)
		}
	}
	return nil, ErrTokenExhausted
}

func (s *InvitationService) recycle(ctx context.Context, existing *Invitation, actor authz.Actor, role authz.Role, now time.Time) (*Invitation, error) {
	if existing.Live(now) {
		return nil, ErrDuplicatePending
	}

	if existing.Status == StatusAccepted && existing.MemberID != nil {
		alive, err := s.repo.MemberAlive(ctx, *existing.MemberID)
		if err != nil {
			return nil, err
		}
		if alive {
			return nil, ErrAlreadyMember
		}
	}

	for attempt := 0; attempt < tokenRetries; attempt++ {
		token, err := newToken()
		if err != nil {
			return nil, err
		}

		inv, err := s.repo.Reset(ctx, existing.ID, actor.ID, role, token, now.Add(s.ttl))
		switch {
		case err == nil:
			return inv, nil
		case IsTokenCollision(err):
			slog.Warn("invitation token collision, regenerating",
				slog.String("invitation_id", existing.ID.String()), slog.Int("attempt", attempt+1))
			continue
		case errors.Is(err, ErrInvitationNotFound):
			// The row became live again under a concurrent recycle.
			return nil, ErrDuplicatePending
		default:
			return nil, fmt.Errorf("failed to recycle invitation: %w", err)
		}
	}
	return nil, ErrTokenExhausted
}

// Peek validates a token for display purposes without consuming it.
func (s *InvitationService) Peek(ctx context.Context, token string) (*Invitation, error) {
	inv, err := s.repo.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, ErrInvitationNotFound) {
			return nil, ErrInvalidOrExpired
		}
		return nil, err
	}
	if !inv.Live(s.now()) {
		return nil, ErrInvalidOrExpired
	}
	return inv, nil
}

// Decline marks a live invitation declined, leaving the row eligible for recycling.
func (s *InvitationService) Decline(ctx context.Context, token string) error {
	_, err := s.repo.Decline(ctx, token, s.now())
	if errors.Is(err, ErrInvitationNotFound) {
		return ErrInvalidOrExpired
	}
	return err
}

// ListByOrg returns the organization's ledger, visible to admins and above.
func (s *InvitationService) ListByOrg(ctx context.Context, actor authz.Actor, org authz.Org) ([]*Invitation, error) {
	if err := s.engine.CanInviteMember(actor, org); err != nil {
		return nil, err
	}
	return s.repo.ListByOrg(ctx, org.ID)
}

// PurgeForEmail removes the pair's ledger row when a member leaves the
// organization, so the address can be invited cleanly again.
func (s *InvitationService) PurgeForEmail(ctx context.Context, orgID uuid.UUID, email string) error {
	return s.repo.DeleteByOrgAndEmail(ctx, orgID, NormalizeEmail(email))
}

// Repo exposes the underlying repository for flows that need to consume an
// invitation inside their own transaction (user registration).
func (s *InvitationService) Repo() *InvitationRepo {
	return s.repo
}

func newToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate invitation token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
