// internal/tasks/payloads.go
package tasks

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/oleksiikomarychev/WorkoutApp-sub002/internal/command"
)

// Task type constants keep queue producers and consumers in sync.
const (
	TypeMaterialize = "plan:materialize"
	TypeMassEdit    = "plan:massedit"
)

// MaterializePayload carries everything a queued materialization needs.
type MaterializePayload struct {
	TaskID            string    `json:"task_id"`
	PlanID            string    `json:"plan_id"`
	UserID            string    `json:"user_id"`
	StartDate         time.Time `json:"start_date"`
	CapacityRecordIDs []int     `json:"capacity_record_ids,omitempty"`
}

// NewMaterializeTask builds a queued materialization task and returns
// it with the freshly issued task id the caller hands back for polling.
func NewMaterializeTask(planID, userID string, startDate time.Time, capacityRecordIDs []int) (*asynq.Task, string, error) {
	taskID := uuid.NewString()
	payload, err := json.Marshal(MaterializePayload{
		TaskID:            taskID,
		PlanID:            planID,
		UserID:            userID,
		StartDate:         startDate,
		CapacityRecordIDs: capacityRecordIDs,
	})
	if err != nil {
		return nil, "", err
	}
	return asynq.NewTask(TypeMaterialize, payload), taskID, nil
}

// MassEditPayload carries a queued mass-edit command.
type MassEditPayload struct {
	TaskID        string           `json:"task_id"`
	AppliedPlanID string           `json:"applied_plan_id"`
	Command       *command.Command `json:"command"`
}

// NewMassEditTask builds a queued mass-edit task.
func NewMassEditTask(appliedPlanID string, cmd *command.Command) (*asynq.Task, string, error) {
	taskID := uuid.NewString()
	payload, err := json.Marshal(MassEditPayload{
		TaskID:        taskID,
		AppliedPlanID: appliedPlanID,
		Command:       cmd,
	})
	if err != nil {
		return nil, "", err
	}
	return asynq.NewTask(TypeMassEdit, payload), taskID, nil
}
