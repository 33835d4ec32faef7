package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/meridian-hr/meridian-hr/internal/authz"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskAssignmentExpiryDigest reports assignments whose expiry is near.
	TaskAssignmentExpiryDigest = "assignments:expiry_digest"
)

// ExpiryDigestPayload configures one digest run.
type ExpiryDigestPayload struct {
	Window time.Duration `json:"window"`
}

// NewExpiryDigestTask constructs an Asynq task.
func NewExpiryDigestTask(payload ExpiryDigestPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskAssignmentExpiryDigest, data), nil
}

// ExpiringAssignmentSource lists active assignments expiring inside a window.
type ExpiringAssignmentSource interface {
	ListExpiringWithin(ctx context.Context, now time.Time, window time.Duration) ([]authz.RoleAssignment, error)
}

// ExpiryDigestHandler logs a digest of assignments about to lapse so HR can
// renew or let them go. It is strictly read-only: expiry stays lazy and
// nothing here ever flips an assignment's active flag.
type ExpiryDigestHandler struct {
	assignments ExpiringAssignmentSource
	logger      *slog.Logger
	now         func() time.Time
}

// NewExpiryDigestHandler builds the handler.
func NewExpiryDigestHandler(assignments ExpiringAssignmentSource, logger *slog.Logger) *ExpiryDigestHandler {
	return &ExpiryDigestHandler{assignments: assignments, logger: logger, now: time.Now}
}

// ProcessTask handles TaskAssignmentExpiryDigest tasks.
func (h *ExpiryDigestHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload ExpiryDigestPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.Window <= 0 {
		payload.Window = 72 * time.Hour
	}

	expiring, err := h.assignments.ListExpiringWithin(ctx, h.now(), payload.Window)
	if err != nil {
		return err
	}

	for _, assignment := range expiring {
		h.logger.Info("assignment expiring soon",
			slog.String("assignment_id", assignment.ID),
			slog.String("actor_id", assignment.ActorID),
			slog.String("role_id", assignment.RoleID),
			slog.Time("expires_at", *assignment.ExpiresAt))
	}
	h.logger.Info("expiry digest complete",
		slog.Int("expiring", len(expiring)),
		slog.Duration("window", payload.Window))
	return nil
}
