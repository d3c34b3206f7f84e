// internal/command/command.go
package command

import (
	"errors"
	"fmt"
)

// Operation selects what a command does to the matched scope.
type Operation string

const (
	OpMassEdit         Operation = "mass_edit"
	OpReplaceExercises Operation = "replace_exercises"
)

// Command is the declarative filter+action schema consumed from either
// a direct caller or the text-generation collaborator. Field names are
// part of the external contract.
type Command struct {
	Operation Operation `json:"operation"`
	Filter    Filter    `json:"filter"`
	Actions   []Action  `json:"actions"`
}

// Filter scopes a command to a subset of an applied plan. At least one
// scope predicate (explicit indices, index range or date range) must be
// present; a scopeless filter is rejected, never widened to "all
// workouts". Secondary predicates narrow matched exercise instances and
// sets inside the scoped workouts.
type Filter struct {
	PlanOrderIndices []int `json:"plan_order_indices,omitempty"`
	FromOrderIndex   *int  `json:"from_order_index,omitempty"`
	ToOrderIndex     *int  `json:"to_order_index,omitempty"`
	ScheduledFrom    *Date `json:"scheduled_from,omitempty"`
	ScheduledTo      *Date `json:"scheduled_to,omitempty"`
	OnlyFuture       bool  `json:"only_future,omitempty"`

	ExerciseDefinitionIDs []int  `json:"exercise_definition_ids,omitempty"`
	IntensityRange        *Range `json:"intensity_range,omitempty"`
	RPERange              *Range `json:"rpe_range,omitempty"`
	VolumeRange           *Range `json:"volume_range,omitempty"`
	WeightRange           *Range `json:"weight_range,omitempty"`
}

// Range is an inclusive numeric interval; either bound may be open.
type Range struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

// Contains reports whether v falls inside the interval.
func (r *Range) Contains(v float64) bool {
	if r == nil {
		return true
	}
	if r.Min != nil && v < *r.Min {
		return false
	}
	if r.Max != nil && v > *r.Max {
		return false
	}
	return true
}

// Action is a tagged union: exactly one of the three members is set.
type Action struct {
	Adjust                        *Adjust               `json:"adjust,omitempty"`
	ReplaceExerciseDefinitionIDTo *int                  `json:"replace_exercise_definition_id_to,omitempty"`
	AddExerciseInstances          []NewExerciseInstance `json:"add_exercise_instances,omitempty"`
}

// Adjust changes numeric set parameters. Each field is either a delta
// ("+5", "-2.5") or an absolute value; absent fields are untouched.
type Adjust struct {
	Intensity *Adjustment `json:"intensity,omitempty"`
	Effort    *Adjustment `json:"effort,omitempty"`
	Volume    *Adjustment `json:"volume,omitempty"`
	Weight    *Adjustment `json:"weight,omitempty"`
}

// NewExerciseInstance describes an instance to insert into matched
// workouts, appended after the existing instances.
type NewExerciseInstance struct {
	ExerciseDefinitionID int      `json:"exercise_definition_id"`
	Sets                 []NewSet `json:"sets,omitempty"`
}

// NewSet carries initial numbers for an inserted set. They follow the
// same rule as templates: at least two of intensity/effort/volume.
type NewSet struct {
	Intensity *int     `json:"intensity,omitempty"`
	Effort    *float64 `json:"effort,omitempty"`
	Volume    *int     `json:"volume,omitempty"`
}

// Validation errors, rejected before any mutation.
var (
	ErrNoScope          = errors.New("filter must carry at least one scope predicate")
	ErrMalformedRange   = errors.New("malformed range")
	ErrNoActions        = errors.New("command carries no actions")
	ErrAmbiguousAction  = errors.New("action must set exactly one kind")
	ErrUnknownOperation = errors.New("unknown operation")
	ErrReplaceNeedsKeys = errors.New("replace requires exercise_definition_ids in the filter")
)

// HasScope reports whether the filter names any workout scope.
func (f *Filter) HasScope() bool {
	return len(f.PlanOrderIndices) > 0 ||
		f.FromOrderIndex != nil || f.ToOrderIndex != nil ||
		f.ScheduledFrom != nil || f.ScheduledTo != nil
}

// Validate checks the filter's hard invariants.
func (f *Filter) Validate() error {
	if !f.HasScope() {
		return ErrNoScope
	}
	for _, idx := range f.PlanOrderIndices {
		if idx < 0 {
			return fmt.Errorf("%w: negative plan order index %d", ErrMalformedRange, idx)
		}
	}
	if f.FromOrderIndex != nil && *f.FromOrderIndex < 0 {
		return fmt.Errorf("%w: negative from_order_index", ErrMalformedRange)
	}
	if f.FromOrderIndex != nil && f.ToOrderIndex != nil && *f.FromOrderIndex > *f.ToOrderIndex {
		return fmt.Errorf("%w: from_order_index > to_order_index", ErrMalformedRange)
	}
	if f.ScheduledFrom != nil && f.ScheduledTo != nil && f.ScheduledFrom.Time.After(f.ScheduledTo.Time) {
		return fmt.Errorf("%w: scheduled_from after scheduled_to", ErrMalformedRange)
	}
	return nil
}

// Validate checks the whole command before execution.
func (c *Command) Validate() error {
	switch c.Operation {
	case OpMassEdit, OpReplaceExercises:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownOperation, c.Operation)
	}
	if err := c.Filter.Validate(); err != nil {
		return err
	}
	if len(c.Actions) == 0 {
		return ErrNoActions
	}
	for i, action := range c.Actions {
		kinds := 0
		if action.Adjust != nil {
			kinds++
		}
		if action.ReplaceExerciseDefinitionIDTo != nil {
			kinds++
		}
		if action.AddExerciseInstances != nil {
			kinds++
		}
		if kinds != 1 {
			return fmt.Errorf("%w: action %d", ErrAmbiguousAction, i)
		}
		if action.ReplaceExerciseDefinitionIDTo != nil && len(c.Filter.ExerciseDefinitionIDs) == 0 {
			return ErrReplaceNeedsKeys
		}
	}
	return nil
}
