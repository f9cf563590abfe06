package controllers

import (
	"context"
	"errors"

	"github.com/curaious/trellis/internal/authz"
	"github.com/curaious/trellis/internal/perrors"
	"github.com/curaious/trellis/internal/services"
	project2 "github.com/curaious/trellis/internal/services/project"
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"
)

func writeProjectError(ctx *fasthttp.RequestCtx, stdCtx context.Context, msg string, err error) {
	switch {
	case errors.Is(err, authz.ErrForbidden):
		writeError(ctx, stdCtx, "Access denied", deniedError(err))
	case errors.Is(err, project2.ErrProjectNotFound), errors.Is(err, project2.ErrMemberNotFound):
		writeError(ctx, stdCtx, msg, perrors.New(perrors.ErrCodeNotFound, msg, err))
	case errors.Is(err, project2.ErrDuplicateMember), errors.Is(err, project2.ErrCreatorImmutable):
		writeError(ctx, stdCtx, msg, perrors.New(perrors.ErrCodeConflict, msg, err))
	case errors.Is(err, project2.ErrMemberNotInOrg), errors.Is(err, project2.ErrInvalidProjectRole):
		writeError(ctx, stdCtx, msg, perrors.NewErrInvalidRequest(msg, err))
	default:
		writeError(ctx, stdCtx, msg, perrors.NewErrInternalServerError(msg, err))
	}
}

func RegisterProjectRoutes(r *router.Router, svc *services.Services) {
	// Create project
	r.POST("/api/pm/organizations/{id}/projects", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)
		orgID, err := pathParamUUID(ctx, "id")
		if err != nil {
			writeError(ctx, stdCtx, "Invalid ID format", perrors.NewErrInvalidRequest("Invalid ID format", err))
			return
		}

		var body project2.CreateProjectRequest
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

		org, err := svc.Scope.Org(stdCtx, orgID)
		if err != nil {
			writeError(ctx, stdCtx, "Organization not found", scopeError("Organization not found", err))
			return
		}

		created, err := svc.Project.Create(stdCtx, actor, org, &body)
		recordDecision(stdCtx, svc, actor, "project", orgID, "project.create", err)
		if err != nil {
			writeProjectError(ctx, stdCtx, "Failed to create project", err)
			return
		}

		writeOK(ctx, stdCtx, "Project created successfully", created)
	})

	// List visible projects
	r.GET("/api/pm/organizations/{id}/projects", func(ctx *fasthttp.RequestCtx) {
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

		projects, err := svc.Project.List(stdCtx, actor, org)
		if err != nil {
			writeProjectError(ctx, stdCtx, "Failed to list projects", err)
			return
		}

		writeOK(ctx, stdCtx, "Projects retrieved successfully", projects)
	})

	// Get project
	r.GET("/api/pm/projects/{id}", func(ctx *fasthttp.RequestCtx) {
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

		sc, err := svc.Scope.Project(stdCtx, id)
		if err != nil {
			writeError(ctx, stdCtx, "Project not found", scopeError("Project not found", err))
			return
		}

		p, err := svc.Project.Get(stdCtx, actor, sc.Org, id)
		recordDecision(stdCtx, svc, actor, "project", id, "project.view", err)
		if err != nil {
			writeProjectError(ctx, stdCtx, "Failed to get project", err)
			return
		}

		writeOK(ctx, stdCtx, "Project retrieved successfully", p)
	})

	// Update project
	r.PUT("/api/pm/projects/{id}", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)
		id, err := pathParamUUID(ctx, "id")
		if err != nil {
			writeError(ctx, stdCtx, "Invalid ID format", perrors.NewErrInvalidRequest("Invalid ID format", err))
			return
		}

		var body project2.UpdateProjectRequest
		if err := parseBody(ctx, &body); err != nil {
			writeError(ctx, stdCtx, "Invalid request body", perrors.NewErrInvalidRequest("Invalid request body", err))
			return
		}

		actor, err := requestActor(ctx, stdCtx, svc)
		if err != nil {
			writeError(ctx, stdCtx, "Unauthorized", perrors.New(perrors.ErrCodeUnauthorized, "Unauthorized", err))
			return
		}

		sc, err := svc.Scope.Project(stdCtx, id)
		if err != nil {
			writeError(ctx, stdCtx, "Project not found", scopeError("Project not found", err))
			return
		}

		updated, err := svc.Project.Update(stdCtx, actor, sc.Org, sc.Project, &body)
		recordDecision(stdCtx, svc, actor, "project", id, "project.update", err)
		if err != nil {
			writeProjectError(ctx, stdCtx, "Failed to update project", err)
			return
		}

		writeOK(ctx, stdCtx, "Project updated successfully", updated)
	})

	// Delete project
	r.DELETE("/api/pm/projects/{id}", func(ctx *fasthttp.RequestCtx) {
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

		sc, err := svc.Scope.Project(stdCtx, id)
		if err != nil {
			writeError(ctx, stdCtx, "Project not found", scopeError("Project not found", err))
			return
		}

		err = svc.Project.Delete(stdCtx, actor, sc.Org, sc.Project)
		recordDecision(stdCtx, svc, actor, "project", id, "project.delete", err)
		if err != nil {
			writeProjectError(ctx, stdCtx, "Failed to delete project", err)
			return
		}

		writeOK(ctx, stdCtx, "Project deleted successfully", nil)
	})

	// Add a project member
	r.POST("/api/pm/projects/{id}/members", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)
		id, err := pathParamUUID(ctx, "id")
		if err != nil {
			writeError(ctx, stdCtx, "Invalid ID format", perrors.NewErrInvalidRequest("Invalid ID format", err))
			return
		}

		var body project2.AddMemberRequest
		if err := parseBody(ctx, &body); err != nil {
			writeError(ctx, stdCtx, "Invalid request body", perrors.NewErrInvalidRequest("Invalid request body", err))
			return
		}

		actor, err := requestActor(ctx, stdCtx, svc)
		if err != nil {
			writeError(ctx, stdCtx, "Unauthorized", perrors.New(perrors.ErrCodeUnauthorized, "Unauthorized", err))
			return
		}

		sc, err := svc.Scope.Project(stdCtx, id)
		if err != nil {
			writeError(ctx, stdCtx, "Project not found", scopeError("Project not found", err))
			return
		}

		m, err := svc.Project.AddMember(stdCtx, actor, sc.Org, sc.Project, &body)
		recordDecision(stdCtx, svc, actor, "project", id, "project.member.add", err)
		if err != nil {
			writeProjectError(ctx, stdCtx, "Failed to add project member", err)
			return
		}

		writeOK(ctx, stdCtx, "Project member added successfully", m)
	})

	// Change a project member's role
	r.PUT("/api/pm/projects/{id}/members/{userId}", func(ctx *fasthttp.RequestCtx) {
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

		var body project2.UpdateMemberRoleRequest
		if err := parseBody(ctx, &body); err != nil {
			writeError(ctx, stdCtx, "Invalid request body", perrors.NewErrInvalidRequest("Invalid request body", err))
			return
		}

		actor, err := requestActor(ctx, stdCtx, svc)
		if err != nil {
			writeError(ctx, stdCtx, "Unauthorized", perrors.New(perrors.ErrCodeUnauthorized, "Unauthorized", err))
			return
		}

		sc, err := svc.Scope.Project(stdCtx, id)
		if err != nil {
			writeError(ctx, stdCtx, "Project not found", scopeError("Project not found", err))
			return
		}

		m, err := svc.Project.UpdateMemberRole(stdCtx, actor, sc.Org, sc.Project, userID, &body)
		recordDecision(stdCtx, svc, actor, "project", id, "project.member.update", err)
		if err != nil {
			writeProjectError(ctx, stdCtx, "Failed to update project member", err)
			return
		}

		writeOK(ctx, stdCtx, "Project member updated successfully", m)
	})

	// Remove a project member
	r.DELETE("/api/pm/projects/{id}/members/{userId}", func(ctx *fasthttp.RequestCtx) {
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

		sc, err := svc.Scope.Project(stdCtx, id)
		if err != nil {
			writeError(ctx, stdCtx, "Project not found", scopeError("Project not found", err))
			return
		}

		err = svc.Project.RemoveMember(stdCtx, actor, sc.Org, sc.Project, userID)
		recordDecision(stdCtx, svc, actor, "project", id, "project.member.remove", err)
		if err != nil {
			writeProjectError(ctx, stdCtx, "Failed to remove project member", err)
			return
		}

		writeOK(ctx, stdCtx, "Project member removed successfully", nil)
	})
}
