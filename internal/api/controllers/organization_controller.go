package controllers

import (
	"errors"

	"github.com/curaious/trellis/internal/api/authenticator"
	"github.com/curaious/trellis/internal/authz"
	"github.com/curaious/trellis/internal/perrors"
	"github.com/curaious/trellis/internal/services"
	organization2 "github.com/curaious/trellis/internal/services/organization"
	user2 "github.com/curaious/trellis/internal/services/user"
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"
)

func RegisterOrganizationRoutes(r *router.Router, svc *services.Services, auth *authenticator.Authenticator) {
	// Bootstrap an organization with its owner account. Public: this is how a
	// tenant comes into existence.
	r.POST("/api/pm/organizations/bootstrap", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)
		var body organization2.BootstrapRequest
		if err := parseBody(ctx, &body); err != nil {
			writeError(ctx, stdCtx, "Invalid request body", perrors.NewErrInvalidRequest("Invalid request body", err))
			return
		}

		org, owner, err := svc.Organization.Bootstrap(stdCtx, &body)
		if err != nil {
			writeError(ctx, stdCtx, "Failed to create organization", perrors.NewErrInternalServerError("Failed to create organization", err))
			return
		}

		token, err := auth.IssueAccessToken(owner.ID, org.ID, owner.Email, string(owner.Role))
		if err != nil {
			writeError(ctx, stdCtx, "Failed to issue token", perrors.NewErrInternalServerError("Failed to issue token", err))
			return
		}

		writeOK(ctx, stdCtx, "Organization created successfully", map[string]any{
			"organization": org,
			"owner":        owner,
			"access_token": token,
		})
	})

	// Get organization
	r.GET("/api/pm/organizations/{id}", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)
		id, err := pathParamUUID(ctx, "id")
		if err != nil {
			writeError(ctx, stdCtx, "Invalid ID format", perrors.NewErrInvalidRequest("Invalid ID format", err))
			return
		}

		actor, err := requestActor(ctx, stdCtx, svc)
		if err != nil {
			writeError(ctx, stdCtx, "Unauthorized", perrors.New(perrors.ErrCodeUnauthorized, "Unauthorized", err))
			return
		}

		org, err := svc.Organization.Get(stdCtx, actor, id)
		if err != nil {
			switch {
			case errors.Is(err, organization2.ErrOrganizationNotFound):
				writeError(ctx, stdCtx, "Organization not found", perrors.New(perrors.ErrCodeNotFound, "Organization not found", err))
			case errors.Is(err, authz.ErrForbidden):
				writeError(ctx, stdCtx, "Access denied", deniedError(err))
			default:
				writeError(ctx, stdCtx, "Failed to get organization", perrors.NewErrInternalServerError("Failed to get organization", err))
			}
			return
		}

		writeOK(ctx, stdCtx, "Organization retrieved successfully", org)
	})

	// Update organization
	r.PUT("/api/pm/organizations/{id}", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)
		id, err := pathParamUUID(ctx, "id")
		if err != nil {
			writeError(ctx, stdCtx, "Invalid ID format", perrors.NewErrInvalidRequest("Invalid ID format", err))
			return
		}

		var body struct {
			Name        string `json:"name"`
			Description string `json:"description"`
		}
		if err := parseBody(ctx, &body); err != nil {
			writeError(ctx, stdCtx, "Invalid request body", perrors.NewErrInvalidRequest("Invalid request body", err))
			return
		}
		if body.Name == "" {
			writeError(ctx, stdCtx, "Name is required", perrors.NewErrInvalidRequest("Name is required", errors.New("name is required")))
			return
		}

		actor, err := requestActor(ctx, stdCtx, svc)
		if err != nil {
			writeError(ctx, stdCtx, "Unauthorized", perrors.New(perrors.ErrCodeUnauthorized, "Unauthorized", err))
			return
		}

		org, err := svc.Organization.Get(stdCtx, actor, id)
		if err != nil {
			writeError(ctx, stdCtx, "Organization not found", perrors.New(perrors.ErrCodeNotFound, "Organization not found", err))
			return
		}

		updated, err := svc.Organization.Update(stdCtx, actor, org, body.Name, body.Description)
		recordDecision(stdCtx, svc, actor, "organization", id, "organization.update", err)
		if err != nil {
			switch {
			case errors.Is(err, authz.ErrForbidden):
				writeError(ctx, stdCtx, "Access denied", deniedError(err))
			default:
				writeError(ctx, stdCtx, "Failed to update organization", perrors.NewErrInternalServerError("Failed to update organization", err))
			}
			return
		}

		writeOK(ctx, stdCtx, "Organization updated successfully", updated)
	})

	// Delete organization and everything under it
	r.DELETE("/api/pm/organizations/{id}", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)
		id, err := pathParamUUID(ctx, "id")
		if err != nil {
			writeError(ctx, stdCtx, "Invalid ID format", perrors.NewErrInvalidRequest("Invalid ID format", err))
			return
		}

		actor, err := requestActor(ctx, stdCtx, svc)
		if err != nil {
			writeError(ctx, stdCtx, "Unauthorized", perrors.New(perrors.ErrCodeUnauthorized, "Unauthorized", err))
			return
		}

		org, err := svc.Organization.Get(stdCtx, actor, id)
		if err != nil {
			writeError(ctx, stdCtx, "Organization not found", perrors.New(perrors.ErrCodeNotFound, "Organization not found", err))
			return
		}

		err = svc.Organization.Delete(stdCtx, actor, org)
		recordDecision(stdCtx, svc, actor, "organization", id, "organization.delete", err)
		if err != nil {
			switch {
			case errors.Is(err, authz.ErrForbidden):
				writeError(ctx, stdCtx, "Access denied", deniedError(err))
			default:
				writeError(ctx, stdCtx, "Failed to delete organization", perrors.NewErrInternalServerError("Failed to delete organization", err))
			}
			return
		}

		writeOK(ctx, stdCtx, "Organization deleted successfully", nil)
	})

	// List members
	r.GET("/api/pm/organizations/{id}/members", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)
		id, err := pathParamUUID(ctx, "id")
		if err != nil {
			writeError(ctx, stdCtx, "Invalid ID format", perrors.NewErrInvalidRequest("Invalid ID format", err))
			return
		}

		actor, err := requestActor(ctx, stdCtx, svc)
		if err != nil {
			writeError(ctx, stdCtx, "Unauthorized", perrors.New(perrors.ErrCodeUnauthorized, "Unauthorized", err))
			return
		}

		org, err := svc.Organization.Get(stdCtx, actor, id)
		if err != nil {
			writeError(ctx, stdCtx, "Organization not found", perrors.New(perrors.ErrCodeNotFound, "Organization not found", err))
			return
		}

		members, err := svc.Organization.Members(stdCtx, actor, org)
		if err != nil {
			switch {
			case errors.Is(err, authz.ErrForbidden):
				writeError(ctx, stdCtx, "Access denied", deniedError(err))
			default:
				writeError(ctx, stdCtx, "Failed to list members", perrors.NewErrInternalServerError("Failed to list members", err))
			}
			return
		}

		writeOK(ctx, stdCtx, "Members retrieved successfully", members)
	})

	// Update a member's name or role
	r.PUT("/api/pm/organizations/{id}/members/{userId}", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)
		id, err := pathParamUUID(ctx, "id")
		if err != nil {
			writeError(ctx, stdCtx, "Invalid ID format", perrors.NewErrInvalidRequest("Invalid ID format", err))
			return
		}
		userID, err := pathParamUUID(ctx, "userId")
		if err != nil {
			writeError(ctx, stdCtx, "Invalid user ID format", perrors.NewErrInvalidRequest("Invalid user ID format", err))
			return
		}

		var body organization2.UpdateMemberRequest
		if err := parseBody(ctx, &body); err != nil {
			writeError(ctx, stdCtx, "Invalid request body", perrors.NewErrInvalidRequest("Invalid request body", err))
			return
		}

		actor, err := requestActor(ctx, stdCtx, svc)
		if err != nil {
			writeError(ctx, stdCtx, "Unauthorized", perrors.New(perrors.ErrCodeUnauthorized, "Unauthorized", err))
			return
		}

		org, err := svc.Organization.Get(stdCtx, actor, id)
		if err != nil {
			writeError(ctx, stdCtx, "Organization not found", perrors.New(perrors.ErrCodeNotFound, "Organization not found", err))
			return
		}

		updated, err := svc.Organization.UpdateMember(stdCtx, actor, org, userID, &body)
		recordDecision(stdCtx, svc, actor, "member", userID, "member.update", err)
		if err != nil {
			switch {
			case errors.Is(err, authz.ErrForbidden):
				writeError(ctx, stdCtx, "Access denied", deniedError(err))
			case errors.Is(err, user2.ErrUserNotFound):
				writeError(ctx, stdCtx, "Member not found", perrors.New(perrors.ErrCodeNotFound, "Member not found", err))
			case errors.Is(err, organization2.ErrInvalidMemberRole):
				writeError(ctx, stdCtx, "Invalid member role", perrors.NewErrInvalidRequest("Invalid member role", err))
			default:
				writeError(ctx, stdCtx, "Failed to update member", perrors.NewErrInternalServerError("Failed to update member", err))
			}
			return
		}

		writeOK(ctx, stdCtx, "Member updated successfully", updated)
	})

	// Remove a member from the organization
	r.DELETE("/api/pm/organizations/{id}/members/{userId}", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)
		id, err := pathParamUUID(ctx, "id")
		if err != nil {
			writeError(ctx, stdCtx, "Invalid ID format", perrors.NewErrInvalidRequest("Invalid ID format", err))
			return
		}
		userID, err := pathParamUUID(ctx, "userId")
		if err != nil {
			writeError(ctx, stdCtx, "Invalid user ID format", perrors.NewErrInvalidRequest("Invalid user ID format", err))
			return
		}

		actor, err := requestActor(ctx, stdCtx, svc)
		if err != nil {
			writeError(ctx, stdCtx, "Unauthorized", perrors.New(perrors.ErrCodeUnauthorized, "Unauthorized", err))
			return
		}

		org, err := svc.Organization.Get(stdCtx, actor, id)
		if err != nil {
			writeError(ctx, stdCtx, "Organization not found", perrors.New(perrors.ErrCodeNotFound, "Organization not found", err))
			return
		}

		err = svc.Organization.RemoveMember(stdCtx, actor, org, userID)
		recordDecision(stdCtx, svc, actor, "member", userID, "member.remove", err)
		if err != nil {
			switch {
			case errors.Is(err, authz.ErrForbidden):
				writeError(ctx, stdCtx, "Access denied", deniedError(err))
			case errors.Is(err, user2.ErrUserNotFound):
				writeError(ctx, stdCtx, "Member not found", perrors.New(perrors.ErrCodeNotFound, "Member not found", err))
			default:
				writeError(ctx, stdCtx, "Failed to remove member", perrors.NewErrInternalServerError("Failed to remove member", err))
			}
			return
		}

		writeOK(ctx, stdCtx, "Member removed successfully", nil)
	})
}
