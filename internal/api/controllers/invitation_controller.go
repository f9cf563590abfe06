package controllers

import (
	"errors"

	"github.com/curaious/trellis/internal/api/authenticator"
	"github.com/curaious/trellis/internal/authz"
	"github.com/curaious/trellis/internal/perrors"
	"github.com/curaious/trellis/internal/services"
	invitation2 "github.com/curaious/trellis/internal/services/invitation"
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"
)

func RegisterInvitationRoutes(r *router.Router, svc *services.Services, _ *authenticator.Authenticator) {
	// Invite an email into the organization
	r.POST("/api/pm/organizations/{id}/invitations", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)
		orgID, err := pathParamUUID(ctx, "id")
		if err != nil {
			writeError(ctx, stdCtx, "Invalid ID format", perrors.NewErrInvalidRequest("Invalid ID format", err))
			return
		}

		var body invitation2.CreateInvitationRequest
		if err := parseBody(ctx, &body); err != nil {
			writeError(ctx, stdCtx, "Invalid request body", perrors.NewErrInvalidRequest("Invalid request body", err))
			return
		}

		actor, err := requestActor(ctx, stdCtx, svc)
		if err != nil {
			writeError(ctx, stdCtx, "Unauthorized", perrors.New(perrors.ErrCodeUnauthorized, "Unauthorized", err))
			return
		}

		org, err := svc.Scope.Org(stdCtx, orgID)
		if err != nil {
			writeError(ctx, stdCtx, "Organization not found", scopeError("Organization not found", err))
			return
		}

		inv, err := svc.Invitation.CreateOrRecycle(stdCtx, actor, org, &body)
		recordDecision(stdCtx, svc, actor, "invitation", orgID, "invitation.create", err)
		if err != nil {
			switch {
			case errors.Is(err, authz.ErrForbidden):
				writeError(ctx, stdCtx, "Access denied", deniedError(err))
			case errors.Is(err, invitation2.ErrDuplicatePending):
				writeError(ctx, stdCtx, "A pending invitation already exists for this email", perrors.New(perrors.ErrCodeConflict, "A pending invitation already exists for this email", err))
			case errors.Is(err, invitation2.ErrAlreadyMember):
				writeError(ctx, stdCtx, "This email already belongs to a member", perrors.New(perrors.ErrCodeConflict, "This email already belongs to a member", err))
			case errors.Is(err, invitation2.ErrInvalidRole), errors.Is(err, invitation2.ErrInvalidEmail):
				writeError(ctx, stdCtx, "Invalid invitation", perrors.NewErrInvalidRequest("Invalid invitation", err))
			default:
				writeError(ctx, stdCtx, "Failed to create invitation", perrors.NewErrInternalServerError("Failed to create invitation", err))
			}
			return
		}

		writeOK(ctx, stdCtx, "Invitation created successfully", inv)
	})

	// List the organization's invitation ledger
	r.GET("/api/pm/organizations/{id}/invitations", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)
		orgID, err := pathParamUUID(ctx, "id")
		if err != nil {
			writeError(ctx, stdCtx, "Invalid ID format", perrors.NewErrInvalidRequest("Invalid ID format", err))
			return
		}

		actor, err := requestActor(ctx, stdCtx, svc)
		if err != nil {
			writeError(ctx, stdCtx, "Unauthorized", perrors.New(perrors.ErrCodeUnauthorized, "Unauthorized", err))
			return
		}

		org, err := svc.Scope.Org(stdCtx, orgID)
		if err != nil {
			writeError(ctx, stdCtx, "Organization not found", scopeError("Organization not found", err))
			return
		}

		invs, err := svc.Invitation.ListByOrg(stdCtx, actor, org)
		if err != nil {
			switch {
			case errors.Is(err, authz.ErrForbidden):
				writeError(ctx, stdCtx, "Access denied", deniedError(err))
			default:
				writeError(ctx, stdCtx, "Failed to list invitations", perrors.NewErrInternalServerError("Failed to list invitations", err))
			}
			return
		}

		writeOK(ctx, stdCtx, "Invitations retrieved successfully", invs)
	})

	// Inspect an invitation token without consuming it. Public: the invitee
	// has no account yet.
	r.GET("/api/pm/invitations/peek", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)
		token, err := requireStringQuery(ctx, "token")
		if err != nil {
			writeError(ctx, stdCtx, "token is required", perrors.NewErrInvalidRequest("token is required", err))
			return
		}

		inv, err := svc.Invitation.Peek(stdCtx, token)
		if err != nil {
			switch {
			case errors.Is(err, invitation2.ErrInvalidOrExpired):
				writeError(ctx, stdCtx, "Invitation is invalid or has expired", perrors.New(perrors.ErrCodeGone, "Invitation is invalid or has expired", err))
			default:
				writeError(ctx, stdCtx, "Failed to look up invitation", perrors.NewErrInternalServerError("Failed to look up invitation", err))
			}
			return
		}

		writeOK(ctx, stdCtx, "Invitation retrieved successfully", map[string]any{
			"organization_id": inv.OrganizationID,
			"email":           inv.Email,
			"role":            inv.Role,
			"expires_at":      inv.ExpiresAt,
		})
	})

	// Decline an invitation. Public for the same reason as peek.
	r.POST("/api/pm/invitations/decline", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)
		var body struct {
			Token string `json:"token"`
		}
		if err := parseBody(ctx, &body); err != nil || body.Token == "" {
			writeError(ctx, stdCtx, "token is required", perrors.NewErrInvalidRequest("token is required", err))
			return
		}

		if err := svc.Invitation.Decline(stdCtx, body.Token); err != nil {
			switch {
			case errors.Is(err, invitation2.ErrInvalidOrExpired):
				writeError(ctx, stdCtx, "Invitation is invalid or has expired", perrors.New(perrors.ErrCodeGone, "Invitation is invalid or has expired", err))
			default:
				writeError(ctx, stdCtx, "Failed to decline invitation", perrors.NewErrInternalServerError("Failed to decline invitation", err))
			}
			return
		}

		writeOK(ctx, stdCtx, "Invitation declined", nil)
	})
}
