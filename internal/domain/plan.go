// internal/domain/plan.go
package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Plan is a reusable training plan template owned by its author.
// The whole template tree (mesocycles -> microcycles -> workouts ->
// exercises -> sets) is embedded in the plan document: a template is
// always read and cloned as a unit, never queried by inner node.
type Plan struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	AuthorID      string             `bson:"authorId" json:"authorId"`
	Name          string             `bson:"name" json:"name"`
	Description   string             `bson:"description,omitempty" json:"description,omitempty"`
	DurationWeeks int                `bson:"durationWeeks" json:"durationWeeks"`

	// RootPlanID groups all versions derived from one original plan.
	// It is set to the plan's own ID on first creation and inherited
	// unchanged by every derived version.
	RootPlanID primitive.ObjectID `bson:"rootPlanId" json:"rootPlanId"`

	IsPublic bool `bson:"isPublic" json:"isPublic"`

	Mesocycles []Mesocycle `bson:"mesocycles" json:"mesocycles"`

	CreatedAt time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `bson:"updatedAt" json:"updatedAt"`
}

// Mesocycle is a mid-duration block of a plan template.
type Mesocycle struct {
	Name        string       `bson:"name" json:"name"`
	OrderIndex  int          `bson:"orderIndex" json:"orderIndex"`
	Microcycles []Microcycle `bson:"microcycles" json:"microcycles"`
}

// Microcycle is a short (typically one week) block of a mesocycle.
type Microcycle struct {
	Name       string            `bson:"name,omitempty" json:"name,omitempty"`
	OrderIndex int               `bson:"orderIndex" json:"orderIndex"`
	Workouts   []WorkoutTemplate `bson:"workouts" json:"workouts"`
}

// WorkoutTemplate describes one workout slot inside a microcycle.
type WorkoutTemplate struct {
	Name       string             `bson:"name" json:"name"`
	Notes      string             `bson:"notes,omitempty" json:"notes,omitempty"`
	OrderIndex int                `bson:"orderIndex" json:"orderIndex"`
	Exercises  []ExerciseTemplate `bson:"exercises" json:"exercises"`
}

// ExerciseTemplate references an exercise definition in the external
// exercise store and carries its planned sets.
type ExerciseTemplate struct {
	ExerciseDefinitionID int    `bson:"exerciseDefinitionId" json:"exerciseDefinitionId"`
	Classification       string `bson:"classification,omitempty" json:"classification,omitempty"`
	OrderIndex           int    `bson:"orderIndex" json:"orderIndex"`

	Sets []SetTemplate `bson:"sets" json:"sets"`
}

// SetTemplate holds up to three of {intensity, effort, volume}.
// At most two are supplied by the author; the missing one is derived
// from the conversion table at materialization time and never stored
// on the template.
type SetTemplate struct {
	OrderIndex int      `bson:"orderIndex" json:"orderIndex"`
	Intensity  *int     `bson:"intensity,omitempty" json:"intensity,omitempty"` // percent of 1RM
	Effort     *float64 `bson:"effort,omitempty" json:"effort,omitempty"`       // RPE
	Volume     *int     `bson:"volume,omitempty" json:"volume,omitempty"`       // repetitions
}
