package audit

import (
	"time"

	"github.com/google/uuid"
)

// Decision is one authorization outcome, recorded for after-the-fact review.
// Cross-tenant denials keep their own outcome label here even though API
// clients only ever see a generic denial.
type Decision struct {
	Timestamp    time.Time `json:"timestamp"`
	ActorID      uuid.UUID `json:"actor_id"`
	OrgID        uuid.UUID `json:"org_id"`
	ResourceKind string    `json:"resource_kind"`
	ResourceID   uuid.UUID `json:"resource_id"`
	Action       string    `json:"action"`
	Outcome      string    `json:"outcome"`
}

// DecisionQueryParams filters the decision log.
type DecisionQueryParams struct {
	OrgID     uuid.UUID
	ActorID   uuid.UUID
	Outcome   string
	StartTime time.Time
	EndTime   time.Time
	Limit     int
	Offset    int
}
