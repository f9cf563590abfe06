package comment

import (
	"context"
	"fmt"

	"github.com/curaious/trellis/internal/authz"
	"github.com/curaious/trellis/internal/notify"
	"github.com/google/uuid"
)

type CommentService struct {
	repo       *CommentRepo
	engine     *authz.Engine
	dispatcher *notify.Dispatcher
}

func NewCommentService(repo *CommentRepo, engine *authz.Engine, dispatcher *notify.Dispatcher) *CommentService {
	return &CommentService{repo: repo, engine: engine, dispatcher: dispatcher}
}

func (s *CommentService) Create(ctx context.Context, actor authz.Actor, org authz.Org, p authz.Project, t authz.Task, req *CreateCommentRequest) (*Comment, error) {
	if err := s.engine.CanComment(actor, org, p); err != nil {
		return nil, err
	}
	if req.Body == "" {
		return nil, fmt.Errorf("comment body is required")
	}

	c, err := s.repo.Create(ctx, t.ID, actor.ID, req.Body)
	if err != nil {
		return nil, err
	}

	if t.CreatedBy != actor.ID {
		s.dispatcher.Enqueue(notify.Event{
			Kind:       notify.KindCommentAdded,
			OrgID:      org.ID,
			ActorID:    actor.ID,
			TargetID:   t.CreatedBy,
			ResourceID: t.ID,
			Message:    "new comment on your task",
		})
	}
	return c, nil
}

func (s *CommentService) List(ctx context.Context, actor authz.Actor, org authz.Org, p authz.Project, t authz.Task) ([]*Comment, error) {
	if err := s.engine.CanViewProject(actor, org, p); err != nil {
		return nil, err
	}
	return s.repo.ListByTask(ctx, t.ID)
}

// Update edits a comment's body. The author may always edit their own; org
// admins may edit anyone's.
func (s *CommentService) Update(ctx context.Context, actor authz.Actor, org authz.Org, id uuid.UUID, req *UpdateCommentRequest) (*Comment, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.engine.CanEditComment(actor, org, c.AuthorID); err != nil {
		return nil, err
	}
	if req.Body == "" {
		return nil, fmt.Errorf("comment body is required")
	}
	return s.repo.Update(ctx, id, req.Body)
}

func (s *CommentService) Delete(ctx context.Context, actor authz.Actor, org authz.Org, id uuid.UUID) error {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.engine.CanEditComment(actor, org, c.AuthorID); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}
