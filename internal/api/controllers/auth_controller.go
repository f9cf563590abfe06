package controllers

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"time"

	"github.com/curaious/trellis/internal/api/authenticator"
	"github.com/curaious/trellis/internal/perrors"
	"github.com/curaious/trellis/internal/services"
	"github.com/curaious/trellis/internal/services/invitation"
	user2 "github.com/curaious/trellis/internal/services/user"
	"github.com/fasthttp/router"
	"github.com/google/uuid"
	"github.com/valyala/fasthttp"
)

type loginRequest struct {
	OrganizationID uuid.UUID `json:"organization_id"`
	Email          string    `json:"email"`
	Password       string    `json:"password"`
}

type tokenResponse struct {
	AccessToken string      `json:"access_token"`
	User        *user2.User `json:"user"`
}

func RegisterAuthRoutes(r *router.Router, svc *services.Services, auth *authenticator.Authenticator) {
	// Password login, scoped to one organization
	r.POST("/api/pm/auth/login", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)
		var body loginRequest
		if err := parseBody(ctx, &body); err != nil {
			writeError(ctx, stdCtx, "Invalid request body", perrors.NewErrInvalidRequest("Invalid request body", err))
			return
		}

		if body.OrganizationID == uuid.Nil || body.Email == "" || body.Password == "" {
			writeError(ctx, stdCtx, "Organization, email and password are required",
				perrors.NewErrInvalidRequest("Organization, email and password are required", errors.New("missing credentials")))
			return
		}

		u, err := svc.User.Authenticate(stdCtx, body.OrganizationID, body.Email, body.Password)
		if err != nil {
			switch {
			case errors.Is(err, user2.ErrInvalidCredentials):
				writeError(ctx, stdCtx, "Invalid credentials", perrors.New(perrors.ErrCodeUnauthorized, "Invalid credentials", err))
			default:
				writeError(ctx, stdCtx, "Failed to log in", perrors.NewErrInternalServerError("Failed to log in", err))
			}
			return
		}

		token, err := auth.IssueAccessToken(u.ID, u.OrganizationID, u.Email, string(u.Role))
		if err != nil {
			writeError(ctx, stdCtx, "Failed to issue token", perrors.NewErrInternalServerError("Failed to issue token", err))
			return
		}

		writeOK(ctx, stdCtx, "Logged in successfully", tokenResponse{AccessToken: token, User: u})
	})

	// Accept an invitation and create the account
	r.POST("/api/pm/auth/register", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)
		var body user2.RegisterRequest
		if err := parseBody(ctx, &body); err != nil {
			writeError(ctx, stdCtx, "Invalid request body", perrors.NewErrInvalidRequest("Invalid request body", err))
			return
		}

		if body.Token == "" {
			writeError(ctx, stdCtx, "Invitation token is required",
				perrors.NewErrInvalidRequest("Invitation token is required", errors.New("token is required")))
			return
		}

		created, err := svc.User.RegisterWithInvitation(stdCtx, &body)
		if err != nil {
			switch {
			case errors.Is(err, invitation.ErrInvalidOrExpired):
				writeError(ctx, stdCtx, "Invitation is invalid or has expired", perrors.New(perrors.ErrCodeGone, "Invitation is invalid or has expired", err))
			default:
				writeError(ctx, stdCtx, "Failed to register", perrors.NewErrInternalServerError("Failed to register", err))
			}
			return
		}

		token, err := auth.IssueAccessToken(created.ID, created.OrganizationID, created.Email, string(created.Role))
		if err != nil {
			writeError(ctx, stdCtx, "Failed to issue token", perrors.NewErrInternalServerError("Failed to issue token", err))
			return
		}

		writeOK(ctx, stdCtx, "Registered successfully", tokenResponse{AccessToken: token, User: created})
	})

	// Current user
	r.GET("/api/pm/auth/me", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)
		claims, err := requestClaims(ctx)
		if err != nil {
			writeError(ctx, stdCtx, "Unauthorized", perrors.New(perrors.ErrCodeUnauthorized, "Unauthorized", err))
			return
		}

		u, err := svc.User.GetByID(stdCtx, claims.UserID)
		if err != nil {
			writeError(ctx, stdCtx, "Failed to load user", perrors.NewErrInternalServerError("Failed to load user", err))
			return
		}

		writeOK(ctx, stdCtx, "User retrieved successfully", u)
	})

	// Single sign-on entry point. Redirects to the configured identity
	// provider with a signed state carrying the organization and return URL.
	r.GET("/api/pm/auth/sso", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)
		if !auth.OIDCEnabled() {
			writeError(ctx, stdCtx, "Single sign-on is not configured",
				perrors.NewErrInvalidRequest("Single sign-on is not configured", errors.New("oidc issuer not set")))
			return
		}

		orgID, err := requireStringQuery(ctx, "organization_id")
		if err != nil {
			writeError(ctx, stdCtx, "organization_id is required", perrors.NewErrInvalidRequest("organization_id is required", err))
			return
		}

		csrf := make([]byte, 16)
		_, _ = rand.Read(csrf)

		state, err := auth.GetSignedState(authenticator.OAuthState{
			CSRF:      hex.EncodeToString(csrf),
			Redirect:  orgID,
			IssuedAt:  time.Now().Unix(),
			ExpiresAt: time.Now().Add(10 * time.Minute).Unix(),
		})
		if err != nil {
			writeError(ctx, stdCtx, "Failed to create login state", perrors.NewErrInternalServerError("Failed to create login state", err))
			return
		}

		ctx.Redirect(auth.AuthCodeURL(state), fasthttp.StatusFound)
	})

	// Single sign-on callback. Exchanges the code, verifies the ID token and
	// issues a local access token for the matching member.
	r.GET("/api/pm/auth/callback", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)
		if !auth.OIDCEnabled() {
			writeError(ctx, stdCtx, "Single sign-on is not configured",
				perrors.NewErrInvalidRequest("Single sign-on is not configured", errors.New("oidc issuer not set")))
			return
		}

		stateRaw, err := requireStringQuery(ctx, "state")
		if err != nil {
			writeError(ctx, stdCtx, "state is required", perrors.NewErrInvalidRequest("state is required", err))
			return
		}

		state, err := auth.VerifySignedState(stateRaw)
		if err != nil {
			writeError(ctx, stdCtx, "Invalid login state", perrors.New(perrors.ErrCodeUnauthorized, "Invalid login state", err))
			return
		}

		orgID, err := uuid.Parse(state.Redirect)
		if err != nil {
			writeError(ctx, stdCtx, "Invalid login state", perrors.New(perrors.ErrCodeUnauthorized, "Invalid login state", err))
			return
		}

		code, err := requireStringQuery(ctx, "code")
		if err != nil {
			writeError(ctx, stdCtx, "code is required", perrors.NewErrInvalidRequest("code is required", err))
			return
		}

		oauthToken, err := auth.Exchange(stdCtx, code)
		if err != nil {
			writeError(ctx, stdCtx, "Failed to exchange code", perrors.New(perrors.ErrCodeUnauthorized, "Failed to exchange code", err))
			return
		}

		idToken, err := auth.VerifyIDToken(stdCtx, oauthToken)
		if err != nil {
			writeError(ctx, stdCtx, "Invalid identity token", perrors.New(perrors.ErrCodeUnauthorized, "Invalid identity token", err))
			return
		}

		var profile struct {
			Email string `json:"email"`
		}
		if err := idToken.Claims(&profile); err != nil || profile.Email == "" {
			writeError(ctx, stdCtx, "Identity token has no email", perrors.New(perrors.ErrCodeUnauthorized, "Identity token has no email", err))
			return
		}

		u, err := svc.User.LookupByEmail(stdCtx, orgID, profile.Email)
		if err != nil {
			writeError(ctx, stdCtx, "No matching member in this organization", perrors.New(perrors.ErrCodeUnauthorized, "No matching member in this organization", err))
			return
		}

		token, err := auth.IssueAccessToken(u.ID, u.OrganizationID, u.Email, string(u.Role))
		if err != nil {
			writeError(ctx, stdCtx, "Failed to issue token", perrors.NewErrInternalServerError("Failed to issue token", err))
			return
		}

		writeOK(ctx, stdCtx, "Logged in successfully", tokenResponse{AccessToken: token, User: u})
	})
}
