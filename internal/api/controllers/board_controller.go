package controllers

import (
	"context"
	"errors"

	"github.com/curaious/trellis/internal/authz"
	"github.com/curaious/trellis/internal/perrors"
	"github.com/curaious/trellis/internal/services"
	board2 "github.com/curaious/trellis/internal/services/board"
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"
)

func writeBoardError(ctx *fasthttp.RequestCtx, stdCtx context.Context, msg string, err error) {
	switch {
	case errors.Is(err, authz.ErrForbidden):
		writeError(ctx, stdCtx, "Access denied", deniedError(err))
	case errors.Is(err, board2.ErrBoardNotFound), errors.Is(err, board2.ErrMemberNotFound):
		writeError(ctx, stdCtx, msg, perrors.New(perrors.ErrCodeNotFound, msg, err))
	case errors.Is(err, board2.ErrDuplicateMember), errors.Is(err, board2.ErrOwnerImmutable):
		writeError(ctx, stdCtx, msg, perrors.New(perrors.ErrCodeConflict, msg, err))
	case errors.Is(err, board2.ErrMemberNotInOrg):
		writeError(ctx, stdCtx, msg, perrors.NewErrInvalidRequest(msg, err))
	default:
		writeError(ctx, stdCtx, msg, perrors.NewErrInternalServerError(msg, err))
	}
}

func RegisterBoardRoutes(r *router.Router, svc *services.Services) {
	// Create board
	r.POST("/api/pm/projects/{id}/boards", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)
		projectID, err := pathParamUUID(ctx, "id")
		if err != nil {
			writeError(ctx, stdCtx, "Invalid ID format", perrors.NewErrInvalidRequest("Invalid ID format", err))
			return
		}

		var body board2.CreateBoardRequest
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

		sc, err := svc.Scope.Project(stdCtx, projectID)
		if err != nil {
			writeError(ctx, stdCtx, "Project not found", scopeError("Project not found", err))
			return
		}

		created, err := svc.Board.Create(stdCtx, actor, sc.Org, sc.Project, &body)
		recordDecision(stdCtx, svc, actor, "board", projectID, "board.create", err)
		if err != nil {
			writeBoardError(ctx, stdCtx, "Failed to create board", err)
			return
		}

		writeOK(ctx, stdCtx, "Board created successfully", created)
	})

	// List boards in a project
	r.GET("/api/pm/projects/{id}/boards", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)
		projectID, err := pathParamUUID(ctx, "id")
		if err != nil {
			writeError(ctx, stdCtx, "Invalid ID format", perrors.NewErrInvalidRequest("Invalid ID format", err))
			return
		}

		actor, err := requestActor(ctx, stdCtx, svc)
		if err != nil {
			writeError(ctx, stdCtx, "Unauthorized", perrors.New(perrors.ErrCodeUnauthorized, "Unauthorized", err))
			return
		}

		sc, err := svc.Scope.Project(stdCtx, projectID)
		if err != nil {
			writeError(ctx, stdCtx, "Project not found", scopeError("Project not found", err))
			return
		}

		boards, err := svc.Board.List(stdCtx, actor, sc.Org, sc.Project)
		if err != nil {
			writeBoardError(ctx, stdCtx, "Failed to list boards", err)
			return
		}

		writeOK(ctx, stdCtx, "Boards retrieved successfully", boards)
	})

	// Get board
	r.GET("/api/pm/boards/{id}", func(ctx *fasthttp.RequestCtx) {
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

		sc, err := svc.Scope.Board(stdCtx, id)
		if err != nil {
			writeError(ctx, stdCtx, "Board not found", scopeError("Board not found", err))
			return
		}

		b, err := svc.Board.Get(stdCtx, actor, sc.Org, sc.Project, id)
		recordDecision(stdCtx, svc, actor, "board", id, "board.view", err)
		if err != nil {
			writeBoardError(ctx, stdCtx, "Failed to get board", err)
			return
		}

		writeOK(ctx, stdCtx, "Board retrieved successfully", b)
	})

	// Update board
	r.PUT("/api/pm/boards/{id}", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)
		id, err := pathParamUUID(ctx, "id")
		if err != nil {
			writeError(ctx, stdCtx, "Invalid ID format", perrors.NewErrInvalidRequest("Invalid ID format", err))
			return
		}

		var body board2.UpdateBoardRequest
		if err := parseBody(ctx, &body); err != nil {
			writeError(ctx, stdCtx, "Invalid request body", perrors.NewErrInvalidRequest("Invalid request body", err))
			return
		}

		actor, err := requestActor(ctx, stdCtx, svc)
		if err != nil {
			writeError(ctx, stdCtx, "Unauthorized", perrors.New(perrors.ErrCodeUnauthorized, "Unauthorized", err))
			return
		}

		sc, err := svc.Scope.Board(stdCtx, id)
		if err != nil {
			writeError(ctx, stdCtx, "Board not found", scopeError("Board not found", err))
			return
		}

		updated, err := svc.Board.Update(stdCtx, actor, sc.Org, sc.Project, sc.Board, &body)
		recordDecision(stdCtx, svc, actor, "board", id, "board.update", err)
		if err != nil {
			writeBoardError(ctx, stdCtx, "Failed to update board", err)
			return
		}

		writeOK(ctx, stdCtx, "Board updated successfully", updated)
	})

	// Delete board
	r.DELETE("/api/pm/boards/{id}", func(ctx *fasthttp.RequestCtx) {
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

		sc, err := svc.Scope.Board(stdCtx, id)
		if err != nil {
			writeError(ctx, stdCtx, "Board not found", scopeError("Board not found", err))
			return
		}

		err = svc.Board.Delete(stdCtx, actor, sc.Org, sc.Project, sc.Board)
		recordDecision(stdCtx, svc, actor, "board", id, "board.delete", err)
		if err != nil {
			writeBoardError(ctx, stdCtx, "Failed to delete board", err)
			return
		}

		writeOK(ctx, stdCtx, "Board deleted successfully", nil)
	})

	// Add a board member
	r.POST("/api/pm/boards/{id}/members", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)
		id, err := pathParamUUID(ctx, "id")
		if err != nil {
			writeError(ctx, stdCtx, "Invalid ID format", perrors.NewErrInvalidRequest("Invalid ID format", err))
			return
		}

		var body board2.AddMemberRequest
		if err := parseBody(ctx, &body); err != nil {
			writeError(ctx, stdCtx, "Invalid request body", perrors.NewErrInvalidRequest("Invalid request body", err))
			return
		}

		actor, err := requestActor(ctx, stdCtx, svc)
		if err != nil {
			writeError(ctx, stdCtx, "Unauthorized", perrors.New(perrors.ErrCodeUnauthorized, "Unauthorized", err))
			return
		}

		sc, err := svc.Scope.Board(stdCtx, id)
		if err != nil {
			writeError(ctx, stdCtx, "Board not found", scopeError("Board not found", err))
			return
		}

		err = svc.Board.AddMember(stdCtx, actor, sc.Org, sc.Project, sc.Board, &body)
		recordDecision(stdCtx, svc, actor, "board", id, "board.member.add", err)
		if err != nil {
			writeBoardError(ctx, stdCtx, "Failed to add board member", err)
			return
		}

		writeOK(ctx, stdCtx, "Board member added successfully", nil)
	})

	// Remove a board member
	r.DELETE("/api/pm/boards/{id}/members/{userId}", func(ctx *fasthttp.RequestCtx) {
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

		sc, err := svc.Scope.Board(stdCtx, id)
		if err != nil {
			writeError(ctx, stdCtx, "Board not found", scopeError("Board not found", err))
			return
		}

		err = svc.Board.RemoveMember(stdCtx, actor, sc.Org, sc.Project, sc.Board, userID)
		recordDecision(stdCtx, svc, actor, "board", id, "board.member.remove", err)
		if err != nil {
			writeBoardError(ctx, stdCtx, "Failed to remove board member", err)
			return
		}

		writeOK(ctx, stdCtx, "Board member removed successfully", nil)
	})
}
