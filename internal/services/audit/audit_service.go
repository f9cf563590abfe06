package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/google/uuid"
)

// AuditService records authorization decisions in ClickHouse and answers
// queries over them. Recording is best-effort: a write failure is logged and
// never surfaces to the request that triggered it.
type AuditService struct {
	conn driver.Conn
}

func NewAuditService(conn driver.Conn) *AuditService {
	return &AuditService{conn: conn}
}

// EnsureSchema creates the decision table if it is missing.
func (s *AuditService) EnsureSchema(ctx context.Context) error {
	query := `
		CREATE TABLE IF NOT EXISTS authz_decisions (
			Timestamp    DateTime64(3),
			ActorId      UUID,
			OrgId        UUID,
			ResourceKind LowCardinality(String),
			ResourceId   UUID,
			Action       LowCardinality(String),
			Outcome      LowCardinality(String)
		)
		ENGINE = MergeTree()
		ORDER BY (OrgId, Timestamp)
		TTL toDateTime(Timestamp) + INTERVAL 90 DAY
	`
	if err := s.conn.Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create audit schema: %w", err)
	}
	return nil
}

// Record writes one decision. Failures are swallowed after logging.
func (s *AuditService) Record(ctx context.Context, d Decision) {
	if d.Timestamp.IsZero() {
		d.Timestamp = time.Now()
	}

	err := s.conn.AsyncInsert(ctx, `
		INSERT INTO authz_decisions
			(Timestamp, ActorId, OrgId, ResourceKind, ResourceId, Action, Outcome)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		false,
		d.Timestamp, d.ActorID, d.OrgID, d.ResourceKind, d.ResourceID, d.Action, d.Outcome)
	if err != nil {
		slog.Warn("failed to record authorization decision",
			slog.String("action", d.Action), slog.String("error", err.Error()))
	}
}

// ListDecisions returns a page of the decision log, newest first.
func (s *AuditService) ListDecisions(ctx context.Context, params *DecisionQueryParams) ([]Decision, error) {
	if params.Limit <= 0 {
		params.Limit = 50
	}
	if params.Limit > 1000 {
		params.Limit = 1000
	}
	if params.StartTime.IsZero() {
		params.StartTime = time.Now().Add(-24 * time.Hour)
	}
	if params.EndTime.IsZero() {
		params.EndTime = time.Now()
	}

	conditions := []string{"OrgId = ?", "Timestamp >= ?", "Timestamp <= ?"}
	args := []interface{}{params.OrgID, params.StartTime, params.EndTime}

	if params.ActorID != uuid.Nil {
		conditions = append(conditions, "ActorId = ?")
		args = append(args, params.ActorID)
	}
	if params.Outcome != "" {
		conditions = append(conditions, "Outcome = ?")
		args = append(args, params.Outcome)
	}

	whereClause := ""
	for i, cond := range conditions {
		if i > 0 {
			whereClause += " AND "
		}
		whereClause += cond
	}

	query := fmt.Sprintf(`
		SELECT Timestamp, ActorId, OrgId, ResourceKind, ResourceId, Action, Outcome
		FROM authz_decisions
		WHERE %s
		ORDER BY Timestamp DESC
		LIMIT ? OFFSET ?
	`, whereClause)

	queryArgs := append(args, params.Limit, params.Offset)

	rows, err := s.conn.Query(ctx, query, queryArgs...)
	if err != nil {
		return nil, fmt.Errorf("failed to query decisions: %w", err)
	}
	defer rows.Close()

	var decisions []Decision
	for rows.Next() {
		var d Decision
		if err := rows.Scan(
			&d.Timestamp,
			&d.ActorID,
			&d.OrgID,
			&d.ResourceKind,
			&d.ResourceID,
			&d.Action,
			&d.Outcome,
		); err != nil {
			return nil, fmt.Errorf("failed to scan decision row: %w", err)
		}
		decisions = append(decisions, d)
	}

	return decisions, nil
}
