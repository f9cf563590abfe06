package controllers

import (
	"context"
	"errors"

	"github.com/curaious/trellis/internal/authz"
	"github.com/curaious/trellis/internal/perrors"
	"github.com/curaious/trellis/internal/services"
	task2 "github.com/curaious/trellis/internal/services/task"
	"github.com/fasthttp/router"
	"github.com/valyala/fasthttp"
)

func writeTaskError(ctx *fasthttp.RequestCtx, stdCtx context.Context, msg string, err error) {
	switch {
	case errors.Is(err, authz.ErrForbidden):
		writeError(ctx, stdCtx, "Access denied", deniedError(err))
	case errors.Is(err, task2.ErrTaskNotFound):
		writeError(ctx, stdCtx, msg, perrors.New(perrors.ErrCodeNotFound, msg, err))
	case errors.Is(err, task2.ErrCrossProjectMove):
		writeError(ctx, stdCtx, msg, perrors.New(perrors.ErrCodeConflict, msg, err))
	case errors.Is(err, task2.ErrAssigneeNotMember), errors.Is(err, task2.ErrInvalidStatus):
		writeError(ctx, stdCtx, msg, perrors.NewErrInvalidRequest(msg, err))
	default:
		writeError(ctx, stdCtx, msg, perrors.NewErrInternalServerError(msg, err))
	}
}

func RegisterTaskRoutes(r *router.Router, svc *services.Services) {
	// Create task on a board
	r.POST("/api/pm/boards/{id}/tasks", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)
		boardID, err := pathParamUUID(ctx, "id")
		if err != nil {
			writeError(ctx, stdCtx, "Invalid ID format", perrors.NewErrInvalidRequest("Invalid ID format", err))
			return
		}

		var body task2.CreateTaskRequest
		if err := parseBody(ctx, &body); err != nil {
			writeError(ctx, stdCtx, "Invalid request body", perrors.NewErrInvalidRequest("Invalid request body", err))
			return
		}
		if body.Title == "" {
			writeError(ctx, stdCtx, "Title is required", perrors.NewErrInvalidRequest("Title is required", errors.New("title is required")))
			return
		}

		actor, err := requestActor(ctx, stdCtx, svc)
		if err != nil {
			writeError(ctx, stdCtx, "Unauthorized", perrors.New(perrors.ErrCodeUnauthorized, "Unauthorized", err))
			return
		}

		sc, err := svc.Scope.Board(stdCtx, boardID)
		if err != nil {
			writeError(ctx, stdCtx, "Board not found", scopeError("Board not found", err))
			return
		}

		created, err := svc.Task.Create(stdCtx, actor, sc.Org, sc.Project, sc.Board, &body)
		recordDecision(stdCtx, svc, actor, "task", boardID, "task.create", err)
		if err != nil {
			writeTaskError(ctx, stdCtx, "Failed to create task", err)
			return
		}

		writeOK(ctx, stdCtx, "Task created successfully", created)
	})

	// List tasks on a board
	r.GET("/api/pm/boards/{id}/tasks", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)
		boardID, err := pathParamUUID(ctx, "id")
		if err != nil {
			writeError(ctx, stdCtx, "Invalid ID format", perrors.NewErrInvalidRequest("Invalid ID format", err))
			return
		}

		actor, err := requestActor(ctx, stdCtx, svc)
		if err != nil {
			writeError(ctx, stdCtx, "Unauthorized", perrors.New(perrors.ErrCodeUnauthorized, "Unauthorized", err))
			return
		}

		sc, err := svc.Scope.Board(stdCtx, boardID)
		if err != nil {
			writeError(ctx, stdCtx, "Board not found", scopeError("Board not found", err))
			return
		}

		tasks, err := svc.Task.ListByBoard(stdCtx, actor, sc.Org, sc.Project, boardID)
		if err != nil {
			writeTaskError(ctx, stdCtx, "Failed to list tasks", err)
			return
		}

		writeOK(ctx, stdCtx, "Tasks retrieved successfully", tasks)
	})

	// Get task
	r.GET("/api/pm/tasks/{id}", func(ctx *fasthttp.RequestCtx) {
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

		sc, err := svc.Scope.Task(stdCtx, id)
		if err != nil {
			writeError(ctx, stdCtx, "Task not found", scopeError("Task not found", err))
			return
		}

		t, err := svc.Task.Get(stdCtx, actor, sc.Org, sc.Project, id)
		recordDecision(stdCtx, svc, actor, "task", id, "task.view", err)
		if err != nil {
			writeTaskError(ctx, stdCtx, "Failed to get task", err)
			return
		}

		writeOK(ctx, stdCtx, "Task retrieved successfully", t)
	})

	// Update task content
	r.PUT("/api/pm/tasks/{id}", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)
		id, err := pathParamUUID(ctx, "id")
		if err != nil {
			writeError(ctx, stdCtx, "Invalid ID format", perrors.NewErrInvalidRequest("Invalid ID format", err))
			return
		}

		var body task2.UpdateTaskRequest
		if err := parseBody(ctx, &body); err != nil {
			writeError(ctx, stdCtx, "Invalid request body", perrors.NewErrInvalidRequest("Invalid request body", err))
			return
		}

		actor, err := requestActor(ctx, stdCtx, svc)
		if err != nil {
			writeError(ctx, stdCtx, "Unauthorized", perrors.New(perrors.ErrCodeUnauthorized, "Unauthorized", err))
			return
		}

		sc, err := svc.Scope.Task(stdCtx, id)
		if err != nil {
			writeError(ctx, stdCtx, "Task not found", scopeError("Task not found", err))
			return
		}

		updated, err := svc.Task.UpdateContent(stdCtx, actor, sc.Org, sc.Project, sc.Task, &body)
		recordDecision(stdCtx, svc, actor, "task", id, "task.update", err)
		if err != nil {
			writeTaskError(ctx, stdCtx, "Failed to update task", err)
			return
		}

		writeOK(ctx, stdCtx, "Task updated successfully", updated)
	})

	// Replace the assignee list
	r.PUT("/api/pm/tasks/{id}/assignees", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)
		id, err := pathParamUUID(ctx, "id")
		if err != nil {
			writeError(ctx, stdCtx, "Invalid ID format", perrors.NewErrInvalidRequest("Invalid ID format", err))
			return
		}

		var body task2.SetAssigneesRequest
		if err := parseBody(ctx, &body); err != nil {
			writeError(ctx, stdCtx, "Invalid request body", perrors.NewErrInvalidRequest("Invalid request body", err))
			return
		}

		actor, err := requestActor(ctx, stdCtx, svc)
		if err != nil {
			writeError(ctx, stdCtx, "Unauthorized", perrors.New(perrors.ErrCodeUnauthorized, "Unauthorized", err))
			return
		}

		sc, err := svc.Scope.Task(stdCtx, id)
		if err != nil {
			writeError(ctx, stdCtx, "Task not found", scopeError("Task not found", err))
			return
		}

		updated, err := svc.Task.SetAssignees(stdCtx, actor, sc.Org, sc.Project, sc.Task, &body)
		recordDecision(stdCtx, svc, actor, "task", id, "task.assign", err)
		if err != nil {
			writeTaskError(ctx, stdCtx, "Failed to set assignees", err)
			return
		}

		writeOK(ctx, stdCtx, "Assignees updated successfully", updated)
	})

	// Move task to another board
	r.POST("/api/pm/tasks/{id}/move", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)
		id, err := pathParamUUID(ctx, "id")
		if err != nil {
			writeError(ctx, stdCtx, "Invalid ID format", perrors.NewErrInvalidRequest("Invalid ID format", err))
			return
		}

		var body task2.MoveTaskRequest
		if err := parseBody(ctx, &body); err != nil {
			writeError(ctx, stdCtx, "Invalid request body", perrors.NewErrInvalidRequest("Invalid request body", err))
			return
		}

		actor, err := requestActor(ctx, stdCtx, svc)
		if err != nil {
			writeError(ctx, stdCtx, "Unauthorized", perrors.New(perrors.ErrCodeUnauthorized, "Unauthorized", err))
			return
		}

		sc, err := svc.Scope.Task(stdCtx, id)
		if err != nil {
			writeError(ctx, stdCtx, "Task not found", scopeError("Task not found", err))
			return
		}

		moved, err := svc.Task.Move(stdCtx, actor, sc.Org, sc.Project, sc.Task, &body)
		recordDecision(stdCtx, svc, actor, "task", id, "task.move", err)
		if err != nil {
			writeTaskError(ctx, stdCtx, "Failed to move task", err)
			return
		}

		writeOK(ctx, stdCtx, "Task moved successfully", moved)
	})

	// Update task status
	r.PUT("/api/pm/tasks/{id}/status", func(ctx *fasthttp.RequestCtx) {
		stdCtx := requestContext(ctx)
		id, err := pathParamUUID(ctx, "id")
		if err != nil {
			writeError(ctx, stdCtx, "Invalid ID format", perrors.NewErrInvalidRequest("Invalid ID format", err))
			return
		}

		var body task2.UpdateStatusRequest
		if err := parseBody(ctx, &body); err != nil {
			writeError(ctx, stdCtx, "Invalid request body", perrors.NewErrInvalidRequest("Invalid request body", err))
			return
		}

		actor, err := requestActor(ctx, stdCtx, svc)
		if err != nil {
			writeError(ctx, stdCtx, "Unauthorized", perrors.New(perrors.ErrCodeUnauthorized, "Unauthorized", err))
			return
		}

		sc, err := svc.Scope.Task(stdCtx, id)
		if err != nil {
			writeError(ctx, stdCtx, "Task not found", scopeError("Task not found", err))
			return
		}

		updated, err := svc.Task.UpdateStatus(stdCtx, actor, sc.Org, sc.Project, sc.Task, &body)
		recordDecision(stdCtx, svc, actor, "task", id, "task.status", err)
		if err != nil {
			writeTaskError(ctx, stdCtx, "Failed to update task status", err)
			return
		}

		writeOK(ctx, stdCtx, "Task status updated successfully", updated)
	})

	// Delete task
	r.DELETE("/api/pm/tasks/{id}", func(ctx *fasthttp.RequestCtx) {
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

		sc, err := svc.Scope.Task(stdCtx, id)
		if err != nil {
			writeError(ctx, stdCtx, "Task not found", scopeError("Task not found", err))
			return
		}

		err = svc.Task.Delete(stdCtx, actor, sc.Org, sc.Project, sc.Task)
		recordDecision(stdCtx, svc, actor, "task", id, "task.delete", err)
		if err != nil {
			writeTaskError(ctx, stdCtx, "Failed to delete task", err)
			return
		}

		writeOK(ctx, stdCtx, "Task deleted successfully", nil)
	})
}
