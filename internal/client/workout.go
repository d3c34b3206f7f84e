// internal/client/workout.go
package client

import (
	"context"

	"github.com/google/uuid"
	"github.com/oleksiikomarychev/WorkoutApp-sub002/internal/domain"
)

// WorkoutClient talks to the external workout store.
type WorkoutClient struct {
	baseClient
}

func NewWorkoutClient(cfg Config) *WorkoutClient {
	return &WorkoutClient{baseClient: newBaseClient(cfg)}
}

// BatchCreate creates workouts in one call and returns them with store
// ids assigned. The idempotency key makes the bounded retry safe: the
// store deduplicates a replayed batch instead of creating twice.
func (c *WorkoutClient) BatchCreate(ctx context.Context, creates []domain.WorkoutCreate) ([]domain.Workout, error) {
	headers := map[string]string{"Idempotency-Key": uuid.NewString()}
	var workouts []domain.Workout
	if err := c.postJSON(ctx, "/workouts/batch", creates, &workouts, headers); err != nil {
		return nil, err
	}
	return workouts, nil
}

// ByMicrocycles fetches every workout belonging to the given microcycles.
func (c *WorkoutClient) ByMicrocycles(ctx context.Context, microcycleIDs []int) ([]domain.Workout, error) {
	req := struct {
		MicrocycleIDs []int `json:"microcycle_ids"`
	}{MicrocycleIDs: microcycleIDs}
	var workouts []domain.Workout
	if err := c.postJSON(ctx, "/workouts/by-microcycles", req, &workouts, nil); err != nil {
		return nil, err
	}
	return workouts, nil
}

// BatchUpdate applies partial updates to existing workouts.
func (c *WorkoutClient) BatchUpdate(ctx context.Context, updates []domain.WorkoutUpdate) error {
	return c.postJSON(ctx, "/workouts/batch-update", updates, nil, nil)
}

// DeleteByMicrocycles removes every workout of the given microcycles;
// the cascade step of an applied plan delete.
func (c *WorkoutClient) DeleteByMicrocycles(ctx context.Context, microcycleIDs []int) error {
	req := struct {
		MicrocycleIDs []int `json:"microcycle_ids"`
	}{MicrocycleIDs: microcycleIDs}
	return c.postJSON(ctx, "/workouts/delete-by-microcycles", req, nil, nil)
}
