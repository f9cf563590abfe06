package controllers

import (
	"errors"
	"strconv"

	"github.com/curaious/trellis/internal/perrors"
	"github.com/curaious/trellis/internal/services"
	"github.com/curaious/trellis/internal/services/audit"
	"github.com/fasthttp/router"
	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
)

func RegisterAuditRoutes(r *router.Router, svc *services.Services) {
	// Query the organization's authorization decision log. Admin and above.
	r.GET("/api/pm/organizations/{id}/decisions", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)
		orgID, err := pathParamUUID(ctx, "id")
		if err != nil {
			writeError(ctx, stdCtx, "Invalid ID format", perrors.NewErrInvalidRequest("Invalid ID format", err))
			return
		}

		if svc.Audit == nil {
			writeError(ctx, stdCtx, "Audit trail is not configured",
				perrors.NewErrInvalidRequest("Audit trail is not configured", errors.New("clickhouse not configured")))
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

		if err := svc.Engine.CanInviteMember(actor, org); err != nil {
			writeError(ctx, stdCtx, "Access denied", deniedError(err))
			return
		}

		params := &audit.DecisionQueryParams{OrgID: orgID}
		if raw := ctx.QueryArgs().Peek("actor_id"); len(raw) > 0 {
			if id, err := uuid.ParseBytes(raw); err == nil {
				params.ActorID = id
			}
		}
		if raw := ctx.QueryArgs().Peek("outcome"); len(raw) > 0 {
			params.Outcome = string(raw)
		}
		if raw := ctx.QueryArgs().Peek("limit"); len(raw) > 0 {
			if limit, err := strconv.Atoi(string(raw)); err == nil {
				params.Limit = limit
			}
		}
		if raw := ctx.QueryArgs().Peek("offset"); len(raw) > 0 {
			if offset, err := strconv.Atoi(string(raw)); err == nil {
				params.Offset = offset
			}
		}

		decisions, err := svc.Audit.ListDecisions(stdCtx, params)
		if err != nil {
			writeError(ctx, stdCtx, "Failed to query decisions", perrors.NewErrInternalServerError("Failed to query decisions", err))
			return
		}

		writeOK(ctx, stdCtx, "Decisions retrieved successfully", decisions)
	})
}
