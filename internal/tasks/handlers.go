// internal/tasks/handlers.go
package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/hibiken/asynq"
	"github.com/oleksiikomarychev/WorkoutApp-sub002/internal/service"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NewMaterializeHandler returns the worker handler for queued plan
// materializations. Task outcomes are recorded in the status store
// rather than surfaced as queue errors: a failed materialization has
// already rolled back its own writes, so re-running it from the queue
// would only repeat the failure. A non-nil macros service gets one
// pass over the fresh instance once the apply succeeds.
func NewMaterializeHandler(materializer service.MaterializeService, macros service.MacroService, status *StatusStore) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var p MaterializePayload
		if err := json.Unmarshal(t.Payload(), &p); err != nil {
			return fmt.Errorf("failed to decode materialize payload: %v: %w", err, asynq.SkipRetry)
		}
		started, err := status.MarkRunning(ctx, p.TaskID)
		if err != nil {
			log.Printf("Task %s: status store unavailable: %v", p.TaskID, err)
		}
		if !started && err == nil {
			log.Printf("Task %s: cancelled before start, skipping", p.TaskID)
			return nil
		}

		planID, err := primitive.ObjectIDFromHex(p.PlanID)
		if err != nil {
			_ = status.MarkFailed(ctx, p.TaskID, fmt.Errorf("invalid plan id %q", p.PlanID))
			return nil
		}
		applied, err := materializer.Apply(ctx, service.ApplyInput{
			PlanID:            planID,
			UserID:            p.UserID,
			StartDate:         p.StartDate,
			CapacityRecordIDs: p.CapacityRecordIDs,
			Progress: func(done, total int) {
				status.SetProgress(ctx, p.TaskID, done, total)
			},
		})
		if err != nil {
			log.Printf("Task %s: materialization failed: %v", p.TaskID, err)
			_ = status.MarkFailed(ctx, p.TaskID, err)
			return nil
		}
		log.Printf("Task %s: materialized plan %s as applied plan %s", p.TaskID, p.PlanID, applied.ID.Hex())
		if macros != nil {
			if _, err := macros.RunForAppliedPlan(ctx, applied.ID); err != nil {
				log.Printf("Task %s: macro pass after apply failed: %v", p.TaskID, err)
			}
		}
		return status.MarkSucceeded(ctx, p.TaskID, map[string]interface{}{
			"applied_plan_id": applied.ID.Hex(),
		})
	}
}

// NewMassEditHandler returns the worker handler for queued mass edits.
func NewMassEditHandler(editor service.MassEditService, status *StatusStore) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var p MassEditPayload
		if err := json.Unmarshal(t.Payload(), &p); err != nil {
			return fmt.Errorf("failed to decode mass edit payload: %v: %w", err, asynq.SkipRetry)
		}
		started, err := status.MarkRunning(ctx, p.TaskID)
		if err != nil {
			log.Printf("Task %s: status store unavailable: %v", p.TaskID, err)
		}
		if !started && err == nil {
			log.Printf("Task %s: cancelled before start, skipping", p.TaskID)
			return nil
		}

		appliedID, err := primitive.ObjectIDFromHex(p.AppliedPlanID)
		if err != nil {
			_ = status.MarkFailed(ctx, p.TaskID, fmt.Errorf("invalid applied plan id %q", p.AppliedPlanID))
			return nil
		}
		result, err := editor.Execute(ctx, appliedID, p.Command)
		if err != nil {
			log.Printf("Task %s: mass edit failed: %v", p.TaskID, err)
			_ = status.MarkFailed(ctx, p.TaskID, err)
			return nil
		}
		log.Printf("Task %s: mass edit on %s matched %d, updated %d", p.TaskID, p.AppliedPlanID, result.Matched, result.Updated)
		return status.MarkSucceeded(ctx, p.TaskID, result)
	}
}
