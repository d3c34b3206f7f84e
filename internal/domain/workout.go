// internal/domain/workout.go
package domain

import "time"

// WorkoutStatus tracks completion of an applied workout.
type WorkoutStatus string

const (
	WorkoutScheduled WorkoutStatus = "scheduled"
	WorkoutCompleted WorkoutStatus = "completed"
	WorkoutSkipped   WorkoutStatus = "skipped"
)

// Workout is an applied workout as the external workout store holds it.
// PlanOrderIndex is the plan-wide, zero-based position assigned at
// materialization time; it is the addressing scheme mass-edit filters
// use and must stay contiguous within the plan.
type Workout struct {
	ID             int           `json:"id"`
	MicrocycleID   int           `json:"microcycle_id"`
	Name           string        `json:"name"`
	Notes          string        `json:"notes,omitempty"`
	PlanOrderIndex int           `json:"plan_order_index"`
	OrderIndex     int           `json:"order_index"` // position within the microcycle
	ScheduledFor   *time.Time    `json:"scheduled_for,omitempty"`
	Status         WorkoutStatus `json:"status"`
}

// WorkoutCreate is the batch-create payload for the workout store.
type WorkoutCreate struct {
	MicrocycleID   int           `json:"microcycle_id"`
	Name           string        `json:"name"`
	Notes          string        `json:"notes,omitempty"`
	PlanOrderIndex int           `json:"plan_order_index"`
	OrderIndex     int           `json:"order_index"`
	ScheduledFor   *time.Time    `json:"scheduled_for,omitempty"`
	Status         WorkoutStatus `json:"status"`
}

// WorkoutUpdate carries the mutable workout fields for batch updates.
type WorkoutUpdate struct {
	ID           int            `json:"id"`
	Name         *string        `json:"name,omitempty"`
	Notes        *string        `json:"notes,omitempty"`
	ScheduledFor *time.Time     `json:"scheduled_for,omitempty"`
	Status       *WorkoutStatus `json:"status,omitempty"`
}
