package controllers

import (
	"context"
	"errors"

	"github.com/curaious/trellis/internal/authz"
	"github.com/curaious/trellis/internal/perrors"
	"github.com/curaious/trellis/internal/services"
	comment2 "github.com/curaious/trellis/internal/services/comment"
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"
)

func writeCommentError(ctx *fasthttp.RequestCtx, stdCtx context.Context, msg string, err error) {
	switch {
	case errors.Is(err, authz.ErrForbidden):
		writeError(ctx, stdCtx, "Access denied", deniedError(err))
	case errors.Is(err, comment2.ErrCommentNotFound):
		writeError(ctx, stdCtx, msg, perrors.New(perrors.ErrCodeNotFound, msg, err))
	default:
		writeError(ctx, stdCtx, msg, perrors.NewErrInternalServerError(msg, err))
	}
}

func RegisterCommentRoutes(r *router.Router, svc *services.Services) {
	// Comment on a task
	r.POST("/api/pm/tasks/{id}/comments", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)
		taskID, err := pathParamUUID(ctx, "id")
		if err != nil {
			writeError(ctx, stdCtx, "Invalid ID format", perrors.NewErrInvalidRequest("Invalid ID format", err))
			return
		}

		var body comment2.CreateCommentRequest
		if err := parseBody(ctx, &body); err != nil {
			writeError(ctx, stdCtx, "Invalid request body", perrors.NewErrInvalidRequest("Invalid request body", err))
			return
		}
		if body.Body == "" {
			writeError(ctx, stdCtx, "Comment body is required", perrors.NewErrInvalidRequest("Comment body is required", errors.New("body is required")))
			return
		}

		actor, err := requestActor(ctx, stdCtx, svc)
		if err != nil {
			writeError(ctx, stdCtx, "Unauthorized", perrors.New(perrors.ErrCodeUnauthorized, "Unauthorized", err))
			return
		}

		sc, err := svc.Scope.Task(stdCtx, taskID)
		if err != nil {
			writeError(ctx, stdCtx, "Task not found", scopeError("Task not found", err))
			return
		}

		created, err := svc.Comment.Create(stdCtx, actor, sc.Org, sc.Project, sc.Task, &body)
		recordDecision(stdCtx, svc, actor, "comment", taskID, "comment.create", err)
		if err != nil {
			writeCommentError(ctx, stdCtx, "Failed to create comment", err)
			return
		}

		writeOK(ctx, stdCtx, "Comment created successfully", created)
	})

	// List a task's comments
	r.GET("/api/pm/tasks/{id}/comments", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)
		taskID, err := pathParamUUID(ctx, "id")
		if err != nil {
			writeError(ctx, stdCtx, "Invalid ID format", perrors.NewErrInvalidRequest("Invalid ID format", err))
			return
		}

		actor, err := requestActor(ctx, stdCtx, svc)
		if err != nil {
			writeError(ctx, stdCtx, "Unauthorized", perrors.New(perrors.ErrCodeUnauthorized, "Unauthorized", err))
			return
		}

		sc, err := svc.Scope.Task(stdCtx, taskID)
		if err != nil {
			writeError(ctx, stdCtx, "Task not found", scopeError("Task not found", err))
			return
		}

		comments, err := svc.Comment.List(stdCtx, actor, sc.Org, sc.Project, sc.Task)
		if err != nil {
			writeCommentError(ctx, stdCtx, "Failed to list comments", err)
			return
		}

		writeOK(ctx, stdCtx, "Comments retrieved successfully", comments)
	})

	// Edit a comment
	r.PUT("/api/pm/tasks/{id}/comments/{commentId}", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)
		taskID, err := pathParamUUID(ctx, "id")
		if err != nil {
			writeError(ctx, stdCtx, "Invalid ID format", perrors.NewErrInvalidRequest("Invalid ID format", err))
			return
		}
		commentID, err := pathParamUUID(ctx, "commentId")
		if err != nil {
			writeError(ctx, stdCtx, "Invalid comment ID format", perrors.NewErrInvalidRequest("Invalid comment ID format", err))
			return
		}

		var body comment2.UpdateCommentRequest
		if err := parseBody(ctx, &body); err != nil {
			writeError(ctx, stdCtx, "Invalid request body", perrors.NewErrInvalidRequest("Invalid request body", err))
			return
		}

		actor, err := requestActor(ctx, stdCtx, svc)
		if err != nil {
			writeError(ctx, stdCtx, "Unauthorized", perrors.New(perrors.ErrCodeUnauthorized, "Unauthorized", err))
			return
		}

		sc, err := svc.Scope.Task(stdCtx, taskID)
		if err != nil {
			writeError(ctx, stdCtx, "Task not found", scopeError("Task not found", err))
			return
		}

		updated, err := svc.Comment.Update(stdCtx, actor, sc.Org, commentID, &body)
		recordDecision(stdCtx, svc, actor, "comment", commentID, "comment.update", err)
		if err != nil {
			writeCommentError(ctx, stdCtx, "Failed to update comment", err)
			return
		}

		writeOK(ctx, stdCtx, "Comment updated successfully", updated)
	})

	// Delete a comment
	r.DELETE("/api/pm/tasks/{id}/comments/{commentId}", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)
		taskID, err := pathParamUUID(ctx, "id")
		if err != nil {
			writeError(ctx, stdCtx, "Invalid ID format", perrors.NewErrInvalidRequest("Invalid ID format", err))
			return
		}
		commentID, err := pathParamUUID(ctx, "commentId")
		if err != nil {
			writeError(ctx, stdCtx, "Invalid comment ID format", perrors.NewErrInvalidRequest("Invalid comment ID format", err))
			return
		}

		actor, err := requestActor(ctx, stdCtx, svc)
		if err != nil {
			writeError(ctx, stdCtx, "Unauthorized", perrors.New(perrors.ErrCodeUnauthorized, "Unauthorized", err))
			return
		}

		sc, err := svc.Scope.Task(stdCtx, taskID)
		if err != nil {
			writeError(ctx, stdCtx, "Task not found", scopeError("Task not found", err))
			return
		}

		err = svc.Comment.Delete(stdCtx, actor, sc.Org, commentID)
		recordDecision(stdCtx, svc, actor, "comment", commentID, "comment.delete", err)
		if err != nil {
			writeCommentError(ctx, stdCtx, "Failed to delete comment", err)
			return
		}

		writeOK(ctx, stdCtx, "Comment deleted successfully", nil)
	})
}
