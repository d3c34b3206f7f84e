// internal/domain/exercise.go
package domain

// Set is a fully resolved set of an exercise instance. Unlike a
// SetTemplate every numeric field is present: materialization derives
// the missing one before the set ever reaches a store.
type Set struct {
	OrderIndex int     `json:"order_index"`
	Intensity  int     `json:"intensity"` // percent of 1RM
	Effort     float64 `json:"effort"`    // RPE
	Volume     int     `json:"volume"`    // repetitions
	Weight     float64 `json:"weight"`    // kg
}

// ExerciseInstance is an applied exercise as the external exercise
// store holds it.
type ExerciseInstance struct {
	ID                   int   `json:"id"`
	WorkoutID            int   `json:"workout_id"`
	ExerciseDefinitionID int   `json:"exercise_definition_id"`
	OrderIndex           int   `json:"order_index"`
	Sets                 []Set `json:"sets"`
}

// ExerciseInstanceCreate is the batch-create payload for the exercise store.
type ExerciseInstanceCreate struct {
	WorkoutID            int   `json:"workout_id"`
	ExerciseDefinitionID int   `json:"exercise_definition_id"`
	OrderIndex           int   `json:"order_index"`
	Sets                 []Set `json:"sets"`
}

// ExerciseInstanceUpdate carries mutable instance fields for batch updates.
// Sets are replaced wholesale when present.
type ExerciseInstanceUpdate struct {
	ID                   int   `json:"id"`
	ExerciseDefinitionID *int  `json:"exercise_definition_id,omitempty"`
	Sets                 []Set `json:"sets,omitempty"`
}
