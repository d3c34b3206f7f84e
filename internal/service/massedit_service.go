// internal/service/massedit_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/oleksiikomarychev/WorkoutApp-sub002/internal/command"
	"github.com/oleksiikomarychev/WorkoutApp-sub002/internal/domain"
	"github.com/oleksiikomarychev/WorkoutApp-sub002/internal/repository"
	"github.com/oleksiikomarychev/WorkoutApp-sub002/internal/rpe"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Error Definitions ---
var (
	ErrAppliedPlanNotFound = errors.New("applied plan not found")
	ErrPlanNotActive       = errors.New("applied plan is not active")
)

const massEditLockTTL = 2 * time.Minute

// FieldClaims implements first-writer-wins across an ordered sequence
// of commands: once a command touches a numeric field of a set, later
// commands in the same pass leave that field alone.
type FieldClaims map[string]struct{}

// NewFieldClaims returns an empty claim set for one pass.
func NewFieldClaims() FieldClaims { return make(FieldClaims) }

// TryClaim claims the field and reports whether the caller is the first
// writer. A nil claim set always grants.
func (c FieldClaims) TryClaim(unit, field string) bool {
	if c == nil {
		return true
	}
	key := unit + ":" + field
	if _, taken := c[key]; taken {
		return false
	}
	c[key] = struct{}{}
	return true
}

// MassEditService locates a scoped subset of a materialized plan and
// applies a list of actions atomically per matched unit.
type MassEditService interface {
	Execute(ctx context.Context, appliedPlanID primitive.ObjectID, cmd *command.Command) (*command.Result, error)
	// ExecuteSequence runs several commands under one plan lock with a
	// shared claim set; the macro engine's pass primitive.
	ExecuteSequence(ctx context.Context, appliedPlanID primitive.ObjectID, cmds []*command.Command) ([]command.Result, error)
}

type massEditService struct {
	appliedRepo repository.AppliedPlanRepository
	workouts    WorkoutGateway
	exercises   ExerciseGateway
	catalog     *rpe.Catalog
	locker      AdvisoryLocker
	now         func() time.Time
}

// NewMassEditService creates a new mass-edit command executor.
func NewMassEditService(
	appliedRepo repository.AppliedPlanRepository,
	workouts WorkoutGateway,
	exercises ExerciseGateway,
	catalog *rpe.Catalog,
	locker AdvisoryLocker,
) MassEditService {
	return &massEditService{
		appliedRepo: appliedRepo,
		workouts:    workouts,
		exercises:   exercises,
		catalog:     catalog,
		locker:      locker,
		now:         time.Now,
	}
}

func massEditLockKey(id primitive.ObjectID) string {
	return "massedit:" + id.Hex()
}

func (s *massEditService) Execute(ctx context.Context, appliedPlanID primitive.ObjectID, cmd *command.Command) (*command.Result, error) {
	results, err := s.ExecuteSequence(ctx, appliedPlanID, []*command.Command{cmd})
	if err != nil {
		return nil, err
	}
	return &results[0], nil
}

func (s *massEditService) ExecuteSequence(ctx context.Context, appliedPlanID primitive.ObjectID, cmds []*command.Command) ([]command.Result, error) {
	// 1. Validate everything before any mutation
	if len(cmds) == 0 {
		return nil, command.ErrNoActions
	}
	for _, cmd := range cmds {
		if err := cmd.Validate(); err != nil {
			return nil, err
		}
	}

	// 2. The plan must exist and be visible
	plan, err := s.appliedRepo.GetByID(ctx, appliedPlanID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAppliedPlanNotFound
		}
		return nil, err
	}
	if plan.Status != domain.AppliedPlanActive {
		return nil, ErrPlanNotActive
	}

	// 3. Serialize against other mass-edits on the same plan
	release, err := s.locker.Acquire(ctx, massEditLockKey(appliedPlanID), massEditLockTTL)
	if err != nil {
		return nil, err
	}
	defer release()

	claims := NewFieldClaims()
	results := make([]command.Result, 0, len(cmds))
	for _, cmd := range cmds {
		result, err := s.executeLocked(ctx, plan, cmd, claims)
		if err != nil {
			return nil, err
		}
		results = append(results, *result)
	}
	return results, nil
}

// planScope is the materialized state one command works against.
type planScope struct {
	workouts  []domain.Workout                  // sorted by PlanOrderIndex
	instances map[int][]domain.ExerciseInstance // workout id -> instances in order
}

func (s *massEditService) loadScope(ctx context.Context, plan *domain.AppliedPlan) (*planScope, error) {
	micros, err := s.appliedRepo.GetMicrocycles(ctx, plan.ID)
	if err != nil {
		return nil, err
	}
	microIDs := make([]int, len(micros))
	for i, m := range micros {
		microIDs[i] = m.ExternalID
	}
	workouts, err := s.workouts.ByMicrocycles(ctx, microIDs)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(workouts, func(i, j int) bool { return workouts[i].PlanOrderIndex < workouts[j].PlanOrderIndex })

	workoutIDs := make([]int, len(workouts))
	for i, w := range workouts {
		workoutIDs[i] = w.ID
	}
	var instances []domain.ExerciseInstance
	if len(workoutIDs) > 0 {
		instances, err = s.exercises.ByWorkouts(ctx, workoutIDs)
		if err != nil {
			return nil, err
		}
	}
	byWorkout := make(map[int][]domain.ExerciseInstance)
	for _, instance := range instances {
		byWorkout[instance.WorkoutID] = append(byWorkout[instance.WorkoutID], instance)
	}
	for id := range byWorkout {
		slice := byWorkout[id]
		sort.SliceStable(slice, func(i, j int) bool { return slice[i].OrderIndex < slice[j].OrderIndex })
		byWorkout[id] = slice
	}
	return &planScope{workouts: workouts, instances: byWorkout}, nil
}

func (s *massEditService) executeLocked(ctx context.Context, plan *domain.AppliedPlan, cmd *command.Command, claims FieldClaims) (*command.Result, error) {
	scope, err := s.loadScope(ctx, plan)
	if err != nil {
		return nil, err
	}

	result := &command.Result{Skipped: []command.Skip{}}
	var (
		instanceUpdates []domain.ExerciseInstanceUpdate
		updateUnits     []string
		inserts         []domain.ExerciseInstanceCreate
		insertUnits     map[int]string // workout id -> unit name
	)
	insertUnits = make(map[int]string)

	for _, workout := range scope.workouts {
		unit := fmt.Sprintf("workout[%d]", workout.PlanOrderIndex)
		if !workoutInScope(&cmd.Filter, workout, s.now()) {
			result.Skipped = append(result.Skipped, command.Skip{Unit: unit, Reason: "out of scope"})
			continue
		}

		for _, action := range cmd.Actions {
			switch {
			case action.Adjust != nil:
				updates, units, skips, matched := s.adjustInstances(plan, cmd, action.Adjust, workout, scope.instances[workout.ID], claims)
				result.Matched += matched
				result.Skipped = append(result.Skipped, skips...)
				instanceUpdates = append(instanceUpdates, updates...)
				updateUnits = append(updateUnits, units...)

			case action.ReplaceExerciseDefinitionIDTo != nil:
				updates, units, matched := replaceInstances(cmd, *action.ReplaceExerciseDefinitionIDTo, workout, scope.instances[workout.ID])
				result.Matched += matched
				instanceUpdates = append(instanceUpdates, updates...)
				updateUnits = append(updateUnits, units...)

			case action.AddExerciseInstances != nil:
				result.Matched++
				creates, err := s.buildInserts(plan, action.AddExerciseInstances, workout, scope.instances[workout.ID])
				if err != nil {
					result.Skipped = append(result.Skipped, command.Skip{Unit: unit, Reason: err.Error()})
					continue
				}
				inserts = append(inserts, creates...)
				insertUnits[workout.ID] = unit
			}
		}
	}

	// Writebacks. A store failure past validation is itemized per unit,
	// never escalated to a hard error.
	if len(instanceUpdates) > 0 {
		if err := s.exercises.BatchUpdate(ctx, instanceUpdates); err != nil {
			for _, unit := range updateUnits {
				result.Skipped = append(result.Skipped, command.Skip{Unit: unit, Reason: "exercise store: " + err.Error()})
			}
		} else {
			result.Updated += len(instanceUpdates)
		}
	}
	if len(inserts) > 0 {
		if _, err := s.exercises.BatchCreate(ctx, inserts); err != nil {
			for _, unit := range insertUnits {
				result.Skipped = append(result.Skipped, command.Skip{Unit: unit, Reason: "exercise store: " + err.Error()})
			}
		} else {
			result.Updated += len(insertUnits)
		}
	}
	return result, nil
}

// workoutInScope applies the filter's workout-level predicates. An
// explicit plan_order_indices list is authoritative: only_future does
// not second-guess an index the caller named outright.
func workoutInScope(f *command.Filter, w domain.Workout, now time.Time) bool {
	if len(f.PlanOrderIndices) > 0 {
		for _, idx := range f.PlanOrderIndices {
			if idx == w.PlanOrderIndex {
				return true
			}
		}
		return false
	}
	if f.FromOrderIndex != nil && w.PlanOrderIndex < *f.FromOrderIndex {
		return false
	}
	if f.ToOrderIndex != nil && w.PlanOrderIndex > *f.ToOrderIndex {
		return false
	}
	if f.ScheduledFrom != nil && (w.ScheduledFor == nil || w.ScheduledFor.Before(f.ScheduledFrom.Time)) {
		return false
	}
	if f.ScheduledTo != nil && (w.ScheduledFor == nil || w.ScheduledFor.After(f.ScheduledTo.Time)) {
		return false
	}
	if f.OnlyFuture {
		// Either criterion keeps a workout in scope: scheduled at or
		// after now, or not yet completed. A past-dated workout the
		// user has not done is still future work; only finished past
		// sessions drop out.
		future := w.ScheduledFor != nil && !w.ScheduledFor.Before(now)
		if w.Status == domain.WorkoutCompleted && !future {
			return false
		}
	}
	return true
}

// instanceMatches applies the filter's secondary predicates to one
// exercise instance.
func instanceMatches(f *command.Filter, instance domain.ExerciseInstance) bool {
	if len(f.ExerciseDefinitionIDs) > 0 {
		found := false
		for _, id := range f.ExerciseDefinitionIDs {
			if id == instance.ExerciseDefinitionID {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if !hasNumericPredicates(f) {
		return true
	}
	for _, set := range instance.Sets {
		if setInRanges(f, set) {
			return true
		}
	}
	return false
}

func hasNumericPredicates(f *command.Filter) bool {
	return f.IntensityRange != nil || f.RPERange != nil || f.VolumeRange != nil || f.WeightRange != nil
}

func setInRanges(f *command.Filter, set domain.Set) bool {
	return f.IntensityRange.Contains(float64(set.Intensity)) &&
		f.RPERange.Contains(set.Effort) &&
		f.VolumeRange.Contains(float64(set.Volume)) &&
		f.WeightRange.Contains(set.Weight)
}

// tableFor returns the conversion table the exercise was materialized
// under, via the plan's class snapshot. Exercises the snapshot does not
// know (e.g. inserted after materialization) fall back to the catalog
// default.
func (s *massEditService) tableFor(plan *domain.AppliedPlan, exerciseDefinitionID int) (*rpe.Table, bool) {
	return s.catalog.Table(plan.ClassSnapshot[fmt.Sprintf("%d", exerciseDefinitionID)])
}

// adjustInstances stages adjusted copies of every matched instance.
// All sets of an instance succeed together or the instance is skipped
// whole: a unit is never left half-adjusted.
func (s *massEditService) adjustInstances(plan *domain.AppliedPlan, cmd *command.Command, adjust *command.Adjust, workout domain.Workout, instances []domain.ExerciseInstance, claims FieldClaims) (updates []domain.ExerciseInstanceUpdate, units []string, skips []command.Skip, matched int) {
	for _, instance := range instances {
		if !instanceMatches(&cmd.Filter, instance) {
			continue
		}
		matched++
		unit := fmt.Sprintf("workout[%d].exercise[%d]", workout.PlanOrderIndex, instance.OrderIndex)

		table, ok := s.tableFor(plan, instance.ExerciseDefinitionID)
		if !ok {
			skips = append(skips, command.Skip{Unit: unit, Reason: "no conversion table"})
			continue
		}

		newSets := append([]domain.Set(nil), instance.Sets...)
		changed := false
		failed := ""
		for i, set := range instance.Sets {
			if hasNumericPredicates(&cmd.Filter) && !setInRanges(&cmd.Filter, set) {
				continue
			}
			setUnit := fmt.Sprintf("%s.set[%d]", unit, set.OrderIndex)
			out, didChange, err := adjustSet(table, adjust, set, plan, instance.ExerciseDefinitionID, setUnit, claims)
			if err != nil {
				failed = err.Error()
				break
			}
			if didChange {
				newSets[i] = out
				changed = true
			}
		}
		if failed != "" {
			skips = append(skips, command.Skip{Unit: unit, Reason: failed})
			continue
		}
		if !changed {
			skips = append(skips, command.Skip{Unit: unit, Reason: "no field left to change"})
			continue
		}
		updates = append(updates, domain.ExerciseInstanceUpdate{ID: instance.ID, Sets: newSets})
		units = append(units, unit)
	}
	return updates, units, skips, matched
}

// adjustSet applies the adjustment to one set and re-derives whatever
// the caller left unpinned so intensity/effort/volume stay consistent
// with the conversion table.
func adjustSet(table *rpe.Table, adjust *command.Adjust, set domain.Set, plan *domain.AppliedPlan, exerciseDefinitionID int, setUnit string, claims FieldClaims) (domain.Set, bool, error) {
	out := set
	pinnedIntensity, pinnedEffort, pinnedVolume, pinnedWeight := false, false, false, false

	if adjust.Intensity != nil && claims.TryClaim(setUnit, "intensity") {
		out.Intensity = int(adjust.Intensity.Apply(float64(set.Intensity)))
		pinnedIntensity = true
	}
	if adjust.Effort != nil && claims.TryClaim(setUnit, "effort") {
		out.Effort = adjust.Effort.Apply(set.Effort)
		pinnedEffort = true
	}
	if adjust.Volume != nil && claims.TryClaim(setUnit, "volume") {
		out.Volume = int(adjust.Volume.Apply(float64(set.Volume)))
		pinnedVolume = true
	}
	if adjust.Weight != nil && claims.TryClaim(setUnit, "weight") {
		out.Weight = adjust.Weight.Apply(set.Weight)
		pinnedWeight = true
	}
	if !pinnedIntensity && !pinnedEffort && !pinnedVolume && !pinnedWeight {
		return set, false, nil
	}

	// Re-derive the numeric triple when the adjustment broke it. An
	// adjusted combination the table has no row for still lands as
	// given, unpinned fields untouched: the table cannot veto an
	// explicit edit it knows nothing about. Lookups that conflict with
	// a row the table does have skip the unit.
	if pinnedIntensity || pinnedEffort || pinnedVolume {
		var lookupErr error
		switch {
		case pinnedIntensity && pinnedEffort && pinnedVolume:
			// Fully pinned; taken as given.
		case !pinnedVolume:
			volume, err := table.VolumeFor(&out.Intensity, &out.Effort)
			if err != nil {
				lookupErr = err
			} else {
				out.Volume = *volume
			}
		case !pinnedEffort:
			effort, err := table.EffortFor(&out.Volume, &out.Intensity)
			if err != nil {
				lookupErr = err
			} else {
				out.Effort = *effort
			}
		default:
			intensity, err := table.IntensityFor(&out.Volume, &out.Effort)
			if err != nil {
				lookupErr = err
			} else {
				out.Intensity = *intensity
			}
		}
		if lookupErr != nil && !offTable(lookupErr) {
			return set, false, lookupErr
		}
	}

	// Weight follows intensity unless the command set it outright.
	if !pinnedWeight && out.Intensity != set.Intensity {
		max, ok := plan.CapacitySnapshot[fmt.Sprintf("%d", exerciseDefinitionID)]
		if !ok {
			return set, false, fmt.Errorf("no capacity snapshot for exercise %d", exerciseDefinitionID)
		}
		out.Weight = roundWeight(float64(out.Intensity) / 100 * max)
	}
	return out, out != set, nil
}

// offTable reports whether a lookup failure only means the adjusted
// keys fall outside the table. A VolumeUnknown failure is different:
// the table holds a row for the keys and disagrees about the volume.
func offTable(err error) bool {
	var lookupErr *rpe.LookupError
	if !errors.As(err, &lookupErr) {
		return false
	}
	return lookupErr.Kind == rpe.IntensityUnknown || lookupErr.Kind == rpe.EffortUnknown
}

// replaceInstances swaps the exercise definition on matched instances.
// The filter's exercise_definition_ids list is the source key set;
// validation guarantees it is non-empty.
func replaceInstances(cmd *command.Command, target int, workout domain.Workout, instances []domain.ExerciseInstance) (updates []domain.ExerciseInstanceUpdate, units []string, matched int) {
	for _, instance := range instances {
		if !instanceMatches(&cmd.Filter, instance) {
			continue
		}
		matched++
		targetID := target
		updates = append(updates, domain.ExerciseInstanceUpdate{ID: instance.ID, ExerciseDefinitionID: &targetID})
		units = append(units, fmt.Sprintf("workout[%d].exercise[%d]", workout.PlanOrderIndex, instance.OrderIndex))
	}
	return updates, units, matched
}

// buildInserts resolves new instances for one workout, appended after
// its existing instances. Inserted sets follow the template rule: at
// least two of the numeric triple, third derived from the table.
func (s *massEditService) buildInserts(plan *domain.AppliedPlan, newInstances []command.NewExerciseInstance, workout domain.Workout, existing []domain.ExerciseInstance) ([]domain.ExerciseInstanceCreate, error) {
	nextOrder := len(existing)

	var creates []domain.ExerciseInstanceCreate
	for _, instance := range newInstances {
		table, ok := s.tableFor(plan, instance.ExerciseDefinitionID)
		if !ok {
			return nil, errors.New("no conversion table")
		}
		sets := make([]domain.Set, 0, len(instance.Sets))
		for setIdx, set := range instance.Sets {
			max, ok := plan.CapacitySnapshot[fmt.Sprintf("%d", instance.ExerciseDefinitionID)]
			if !ok {
				return nil, fmt.Errorf("no capacity snapshot for exercise %d", instance.ExerciseDefinitionID)
			}
			resolved, err := resolveSet(table, domain.SetTemplate{
				OrderIndex: setIdx,
				Intensity:  set.Intensity,
				Effort:     set.Effort,
				Volume:     set.Volume,
			}, max)
			if err != nil {
				return nil, fmt.Errorf("set %d: %v", setIdx, err)
			}
			resolved.OrderIndex = setIdx
			sets = append(sets, resolved)
		}
		creates = append(creates, domain.ExerciseInstanceCreate{
			WorkoutID:            workout.ID,
			ExerciseDefinitionID: instance.ExerciseDefinitionID,
			OrderIndex:           nextOrder,
			Sets:                 sets,
		})
		nextOrder++
	}
	return creates, nil
}
