package controllers

import (
	"context"
	"errors"
	"fmt"

	json "github.com/bytedance/sonic"
	"github.com/curaious/trellis/internal/api/authenticator"
	"github.com/curaious/trellis/internal/api/response"
	"github.com/curaious/trellis/internal/authz"
	"github.com/curaious/trellis/internal/perrors"
	"github.com/curaious/trellis/internal/services"
	"github.com/curaious/trellis/internal/services/audit"
	"github.com/curaious/trellis/internal/services/scope"
	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
)

// requestContext returns a baseline context for handlers. fasthttp does not provide
// a standard context, so we start from Background for downstream calls.
func requestContext(_ *fasthttp.RequestCtx) context.Context {
	return context.Background()
}

func parseBody(ctx *fasthttp.RequestCtx, target any) error {
	body := ctx.PostBody()
	if len(body) == 0 {
		return errors.New("request body is empty")
	}

	return json.Unmarshal(body, target)
}

func writeError(ctx *fasthttp.RequestCtx, stdCtx context.Context, message string, err error) {
	response.NewResponse[any](stdCtx, message, nil).WithError(err).Write(ctx)
}

func writeOK(ctx *fasthttp.RequestCtx, stdCtx context.Context, message string, data any) {
	response.NewResponse(stdCtx, message, data).Write(ctx)
}

func pathParam(ctx *fasthttp.RequestCtx, key string) (string, error) {
	val := ctx.UserValue(key)
	if val == nil {
		return "", fmt.Errorf("%s is required", key)
	}

	return fmt.Sprint(val), nil
}

func pathParamUUID(ctx *fasthttp.RequestCtx, key string) (uuid.UUID, error) {
	val, err := pathParam(ctx, key)
	if err != nil {
		return uuid.Nil, err
	}

	return uuid.Parse(val)
}

func requireStringQuery(ctx *fasthttp.RequestCtx, key string) (string, error) {
	raw := ctx.QueryArgs().Peek(key)
	if len(raw) == 0 {
		return "", fmt.Errorf("%s parameter is required", key)
	}

	return string(raw), nil
}

// requestClaims pulls the verified token claims the auth middleware stored.
func requestClaims(ctx *fasthttp.RequestCtx) (*authenticator.UserClaims, error) {
	val := ctx.UserValue("userClaims")
	claims, ok := val.(*authenticator.UserClaims)
	if !ok || claims == nil {
		return nil, errors.New("missing authentication claims")
	}
	return claims, nil
}

// requestActor loads the acting user's fresh authorization view. The role in
// the token may be stale after a role change, so the database wins.
func requestActor(ctx *fasthttp.RequestCtx, stdCtx context.Context, svc *services.Services) (authz.Actor, error) {
	claims, err := requestClaims(ctx)
	if err != nil {
		return authz.Actor{}, err
	}
	return svc.User.Actor(stdCtx, claims.UserID)
}

// deniedError translates an authorization denial into the generic forbidden
// response. Cross-tenant denials come out identical to plain ones.
func deniedError(err error) error {
	return perrors.NewErrForbidden("You do not have access to this resource", err)
}

// scopeError maps missing-link resolution failures to 404 and everything else
// to 500.
func scopeError(msg string, err error) error {
	if scope.NotFound(err) {
		return perrors.NewErrNotFound(msg, err)
	}
	return perrors.NewErrInternalServerError(msg, err)
}

// recordDecision writes the authorization outcome for an attempted action to
// the audit trail.
func recordDecision(stdCtx context.Context, svc *services.Services, actor authz.Actor, resourceKind string, resourceID uuid.UUID, action string, err error) {
	svc.RecordDecision(stdCtx, audit.Decision{
		ActorID:      actor.ID,
		OrgID:        actor.OrgID,
		ResourceKind: resourceKind,
		ResourceID:   resourceID,
		Action:       action,
		Outcome:      authz.Classify(err),
	})
}
