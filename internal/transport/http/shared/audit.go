package shared

import (
	"context"
	"log/slog"

	"hrdesk/internal/domain/audit"
	"hrdesk/internal/domain/auth"
)

// Audit records a mutation. A failed write is logged and never fails the request.
func Audit(ctx context.Context, recorder audit.Recorder, caller auth.UserContext, action, entityType, entityID string, before, after any) {
	if recorder == nil {
		return
	}
	err := recorder.Record(ctx, audit.Entry{
		TenantID:   caller.TenantID,
		ActorID:    caller.UserID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Before:     before,
		After:      after,
	})
	if err != nil {
		slog.Warn("audit write failed", "action", action, "entityId", entityID, "err", err)
	}
}
