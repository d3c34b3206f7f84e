// internal/client/exercise.go
package client

import (
	"context"

	"github.com/google/uuid"
	"github.com/oleksiikomarychev/WorkoutApp-sub002/internal/domain"
)

// ExerciseClient talks to the external exercise-instance store.
type ExerciseClient struct {
	baseClient
}

func NewExerciseClient(cfg Config) *ExerciseClient {
	return &ExerciseClient{baseClient: newBaseClient(cfg)}
}

// BatchCreate creates exercise instances (with their sets) in one call.
func (c *ExerciseClient) BatchCreate(ctx context.Context, creates []domain.ExerciseInstanceCreate) ([]domain.ExerciseInstance, error) {
	headers := map[string]string{"Idempotency-Key": uuid.NewString()}
	var instances []domain.ExerciseInstance
	if err := c.postJSON(ctx, "/exercise-instances/batch", creates, &instances, headers); err != nil {
		return nil, err
	}
	return instances, nil
}

// ByWorkouts fetches every instance belonging to the given workouts.
func (c *ExerciseClient) ByWorkouts(ctx context.Context, workoutIDs []int) ([]domain.ExerciseInstance, error) {
	req := struct {
		WorkoutIDs []int `json:"workout_ids"`
	}{WorkoutIDs: workoutIDs}
	var instances []domain.ExerciseInstance
	if err := c.postJSON(ctx, "/exercise-instances/by-workouts", req, &instances, nil); err != nil {
		return nil, err
	}
	return instances, nil
}

// BatchUpdate applies partial updates to existing instances; sets are
// replaced wholesale when present.
func (c *ExerciseClient) BatchUpdate(ctx context.Context, updates []domain.ExerciseInstanceUpdate) error {
	return c.postJSON(ctx, "/exercise-instances/batch-update", updates, nil, nil)
}

// DeleteByWorkouts removes every instance of the given workouts; the
// cascade step of an applied plan delete.
func (c *ExerciseClient) DeleteByWorkouts(ctx context.Context, workoutIDs []int) error {
	req := struct {
		WorkoutIDs []int `json:"workout_ids"`
	}{WorkoutIDs: workoutIDs}
	return c.postJSON(ctx, "/exercise-instances/delete-by-workouts", req, nil, nil)
}
