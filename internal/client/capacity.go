// internal/client/capacity.go
package client

import (
	"context"

	"github.com/oleksiikomarychev/WorkoutApp-sub002/internal/domain"
)

// CapacityClient talks to the external capacity store.
type CapacityClient struct {
	baseClient
}

func NewCapacityClient(cfg Config) *CapacityClient {
	return &CapacityClient{baseClient: newBaseClient(cfg)}
}

// CalculateEffectiveMax asks the store to compute the effective
// one-rep-max for a stored user max record.
func (c *CapacityClient) CalculateEffectiveMax(ctx context.Context, userMaxID int) (float64, error) {
	req := struct {
		UserMaxID int `json:"user_max_id"`
	}{UserMaxID: userMaxID}
	var result float64
	if err := c.postJSON(ctx, "/capacity/calculate-effective-max", req, &result, nil); err != nil {
		return 0, err
	}
	return result, nil
}

// ByExercises fetches the capacity records covering the given exercise
// definitions.
func (c *CapacityClient) ByExercises(ctx context.Context, exerciseIDs []int) ([]domain.CapacityRecord, error) {
	req := struct {
		ExerciseIDs []int `json:"exercise_ids"`
	}{ExerciseIDs: exerciseIDs}
	var records []domain.CapacityRecord
	if err := c.postJSON(ctx, "/capacity/by-exercises", req, &records, nil); err != nil {
		return nil, err
	}
	return records, nil
}
