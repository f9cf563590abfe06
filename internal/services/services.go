package services

import (
	"context"
	"log/slog"

	"github.com/curaious/trellis/internal/authz"
	"github.com/curaious/trellis/internal/config"
	"github.com/curaious/trellis/internal/db"
	"github.com/curaious/trellis/internal/notify"
	audit2 "github.com/curaious/trellis/internal/services/audit"
	board2 "github.com/curaious/trellis/internal/services/board"
	comment2 "github.com/curaious/trellis/internal/services/comment"
	invitation2 "github.com/curaious/trellis/internal/services/invitation"
	organization2 "github.com/curaious/trellis/internal/services/organization"
	project2 "github.com/curaious/trellis/internal/services/project"
	"github.com/curaious/trellis/internal/services/scope"
	task2 "github.com/curaious/trellis/internal/services/task"
	user2 "github.com/curaious/trellis/internal/services/user"
)

type Services struct {
	Engine *authz.Engine
	Scope  *scope.Resolver

	Organization *organization2.OrganizationService
	User         *user2.UserService
	Invitation   *invitation2.InvitationService
	Project      *project2.ProjectService
	Board        *board2.BoardService
	Task         *task2.TaskService
	Comment      *comment2.CommentService
	Audit        *audit2.AuditService

	Dispatcher *notify.Dispatcher
}

func NewServices(conf *config.Config) *Services {
	dbconn := db.NewConn(conf)

	engine := authz.NewEngine()
	resolver := scope.NewResolver(dbconn)

	dispatcher := notify.NewDispatcher(256,
		&notify.LogNotifier{Channel: "email"},
		&notify.LogNotifier{Channel: "push"},
	)
	dispatcher.Start()

	var auditSvc *audit2.AuditService
	if conf.CLICKHOUSE_HOST != "" {
		chConn, err := audit2.NewClickHouseConn(&audit2.ClickHouseConfig{
			Host:     conf.CLICKHOUSE_HOST,
			Port:     conf.CLICKHOUSE_PORT,
			Database: conf.CLICKHOUSE_DATABASE,
			Username: conf.CLICKHOUSE_USERNAME,
			Password: conf.CLICKHOUSE_PASSWORD,
			UseTLS:   conf.CLICKHOUSE_USE_TLS,
		})
		if err != nil {
			slog.Warn("Failed to connect to ClickHouse for audit", slog.Any("error", err))
		} else {
			auditSvc = audit2.NewAuditService(chConn)
			if err := auditSvc.EnsureSchema(context.Background()); err != nil {
				slog.Warn("Failed to ensure audit schema", slog.Any("error", err))
			} else {
				slog.Info("Connected to ClickHouse for audit")
			}
		}
	}

	userRepo := user2.NewUserRepo(dbconn)
	invitationSvc := invitation2.NewInvitationService(invitation2.NewInvitationRepo(dbconn), engine, conf.INVITATION_TTL_DAYS)

	return &Services{
		Engine: engine,
		Scope:  resolver,

		Organization: organization2.NewOrganizationService(dbconn, organization2.NewOrganizationRepo(dbconn), userRepo, invitationSvc, engine),
		User:         user2.NewUserService(dbconn, userRepo, invitationSvc),
		Invitation:   invitationSvc,
		Project:      project2.NewProjectService(project2.NewProjectRepo(dbconn), engine),
		Board:        board2.NewBoardService(board2.NewBoardRepo(dbconn), engine),
		Task:         task2.NewTaskService(task2.NewTaskRepo(dbconn), engine, dispatcher),
		Comment:      comment2.NewCommentService(comment2.NewCommentRepo(dbconn), engine, dispatcher),
		Audit:        auditSvc,

		Dispatcher: dispatcher,
	}
}

// RecordDecision writes an authorization outcome to the audit trail when
// ClickHouse is configured. It never fails the request.
func (s *Services) RecordDecision(ctx context.Context, d audit2.Decision) {
	if s.Audit == nil {
		return
	}
	s.Audit.Record(ctx, d)
}
