// internal/service/materialize_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"sort"
	"time"

	"github.com/oleksiikomarychev/WorkoutApp-sub002/internal/client"
	"github.com/oleksiikomarychev/WorkoutApp-sub002/internal/domain"
	"github.com/oleksiikomarychev/WorkoutApp-sub002/internal/repository"
	"github.com/oleksiikomarychev/WorkoutApp-sub002/internal/rpe"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Error Definitions ---
var (
	ErrEmptyPlan = errors.New("template plan has no microcycles")
	// ErrSetUnderspecified means a set template supplies fewer than two
	// of intensity/effort/volume. Never silently defaulted.
	ErrSetUnderspecified = errors.New("set template defines fewer than two of intensity, effort, volume")
)

// WorkoutGateway is the slice of the external workout store the engine
// needs. Satisfied by *client.WorkoutClient.
type WorkoutGateway interface {
	BatchCreate(ctx context.Context, creates []domain.WorkoutCreate) ([]domain.Workout, error)
	ByMicrocycles(ctx context.Context, microcycleIDs []int) ([]domain.Workout, error)
	BatchUpdate(ctx context.Context, updates []domain.WorkoutUpdate) error
	DeleteByMicrocycles(ctx context.Context, microcycleIDs []int) error
}

// ExerciseGateway is the slice of the external exercise store the
// engine needs. Satisfied by *client.ExerciseClient.
type ExerciseGateway interface {
	BatchCreate(ctx context.Context, creates []domain.ExerciseInstanceCreate) ([]domain.ExerciseInstance, error)
	ByWorkouts(ctx context.Context, workoutIDs []int) ([]domain.ExerciseInstance, error)
	BatchUpdate(ctx context.Context, updates []domain.ExerciseInstanceUpdate) error
	DeleteByWorkouts(ctx context.Context, workoutIDs []int) error
}

// ApplyInput names everything one materialization run needs.
type ApplyInput struct {
	PlanID            primitive.ObjectID
	UserID            string
	StartDate         time.Time
	CapacityRecordIDs []int

	// Progress, when non-nil, is called after each workout batch lands
	// with (workouts created so far, total workouts). Async tasks feed
	// it into the polling meta payload.
	Progress func(done, total int)
}

// MaterializeService expands a template plan into a concrete applied
// plan for one user and time window.
type MaterializeService interface {
	Apply(ctx context.Context, in ApplyInput) (*domain.AppliedPlan, error)
}

type materializeService struct {
	planRepo    repository.PlanRepository
	appliedRepo repository.AppliedPlanRepository
	resolver    CapacityResolver
	workouts    WorkoutGateway
	exercises   ExerciseGateway
	catalog     *rpe.Catalog
}

// NewMaterializeService creates a new materialization engine.
func NewMaterializeService(
	planRepo repository.PlanRepository,
	appliedRepo repository.AppliedPlanRepository,
	resolver CapacityResolver,
	workouts WorkoutGateway,
	exercises ExerciseGateway,
	catalog *rpe.Catalog,
) MaterializeService {
	return &materializeService{
		planRepo:    planRepo,
		appliedRepo: appliedRepo,
		resolver:    resolver,
		workouts:    workouts,
		exercises:   exercises,
		catalog:     catalog,
	}
}

// plannedWorkout pairs a workout create payload with its resolved
// exercise instances, built fully in memory before anything is sent.
type plannedWorkout struct {
	create    domain.WorkoutCreate
	exercises []domain.ExerciseInstanceCreate // WorkoutID filled after the workout lands
}

type plannedMicrocycle struct {
	meta     domain.AppliedMicrocycle
	workouts []plannedWorkout
}

// Apply materializes the template as one staged commit:
//  1. expand and resolve the whole tree in memory (any set or capacity
//     error aborts before a single write happens),
//  2. write the local hierarchy in pending state,
//  3. batch-create workouts and exercise instances in the external
//     stores, one batch per microcycle,
//  4. flip the applied plan to active; on any store failure delete the
//     pending local hierarchy so no partial plan is ever visible.
func (s *materializeService) Apply(ctx context.Context, in ApplyInput) (*domain.AppliedPlan, error) {
	// 1. Validate Input
	if in.PlanID == primitive.NilObjectID || in.UserID == "" {
		return nil, errors.New("plan ID and user ID are required")
	}
	if in.StartDate.IsZero() {
		return nil, errors.New("start date is required")
	}

	// 2. Load the template
	plan, err := s.planRepo.GetByID(ctx, in.PlanID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTemplateNotFound
		}
		return nil, err
	}

	// 3. Expand the template tree and resolve every set
	run := newResolverRun(s.resolver, in.UserID)
	applied, mesocycles, microcycles, planned, err := s.expand(ctx, plan, in, run)
	if err != nil {
		return nil, err
	}

	// 4. Stage: local hierarchy first, non-visible
	if err := s.appliedRepo.CreateHierarchy(ctx, applied, mesocycles, microcycles); err != nil {
		return nil, err
	}

	// 5. External batch-creates, one pair of calls per microcycle
	totalWorkouts := 0
	for _, micro := range planned {
		totalWorkouts += len(micro.workouts)
	}
	created := 0
	for batchIndex, micro := range planned {
		if len(micro.workouts) == 0 {
			continue
		}
		creates := make([]domain.WorkoutCreate, len(micro.workouts))
		for i, w := range micro.workouts {
			creates[i] = w.create
		}
		storedWorkouts, err := s.workouts.BatchCreate(ctx, creates)
		if err != nil {
			return nil, s.rollback(ctx, applied.ID, &client.StoreError{Store: "workout", BatchIndex: batchIndex, Err: err})
		}
		if len(storedWorkouts) != len(creates) {
			err := fmt.Errorf("created %d workouts, expected %d", len(storedWorkouts), len(creates))
			return nil, s.rollback(ctx, applied.ID, &client.StoreError{Store: "workout", BatchIndex: batchIndex, Err: err})
		}

		var instanceCreates []domain.ExerciseInstanceCreate
		for i, w := range micro.workouts {
			for _, instance := range w.exercises {
				instance.WorkoutID = storedWorkouts[i].ID
				instanceCreates = append(instanceCreates, instance)
			}
		}
		if len(instanceCreates) > 0 {
			if _, err := s.exercises.BatchCreate(ctx, instanceCreates); err != nil {
				return nil, s.rollback(ctx, applied.ID, &client.StoreError{Store: "exercise", BatchIndex: batchIndex, Err: err})
			}
		}

		created += len(micro.workouts)
		if in.Progress != nil {
			in.Progress(created, totalWorkouts)
		}
	}

	// 6. Commit: activate and snapshot the capacities used
	snapshot := make(map[string]float64, len(run.maxes))
	for exerciseID, max := range run.maxes {
		snapshot[fmt.Sprintf("%d", exerciseID)] = max
	}
	if err := s.appliedRepo.Activate(ctx, applied.ID, snapshot); err != nil {
		return nil, s.rollback(ctx, applied.ID, err)
	}
	applied.Status = domain.AppliedPlanActive
	applied.IsActive = true
	applied.CapacitySnapshot = snapshot

	// A fresh apply supersedes the user's previous active instance of
	// the same plan lineage. The commit already happened: a failure
	// here is logged, not surfaced, or the caller would see a failed
	// apply for a plan that is live.
	if err := s.appliedRepo.DeactivateOthers(ctx, in.UserID, applied.RootPlanID, applied.ID); err != nil {
		log.Printf("ERROR: deactivate previous applied plans for user %s: %v", in.UserID, err)
	}
	return applied, nil
}

// rollback deletes the pending local hierarchy and returns cause.
func (s *materializeService) rollback(ctx context.Context, appliedPlanID primitive.ObjectID, cause error) error {
	if err := s.appliedRepo.DeleteHierarchy(ctx, appliedPlanID); err != nil {
		return fmt.Errorf("rollback after %v: %w", cause, err)
	}
	return cause
}

// expand walks the template depth-first in order_index order, assigning
// contiguous zero-based indices at every level of the applied tree. The
// workout's PlanOrderIndex is plan-wide (first workout of the plan is
// 0) because that is the addressing mass-edit filters use.
func (s *materializeService) expand(ctx context.Context, plan *domain.Plan, in ApplyInput, run *resolverRun) (*domain.AppliedPlan, []domain.AppliedMesocycle, []domain.AppliedMicrocycle, []plannedMicrocycle, error) {
	mesos := append([]domain.Mesocycle(nil), plan.Mesocycles...)
	sort.SliceStable(mesos, func(i, j int) bool { return mesos[i].OrderIndex < mesos[j].OrderIndex })

	microCount := 0
	for _, meso := range mesos {
		microCount += len(meso.Microcycles)
	}
	if microCount == 0 {
		return nil, nil, nil, nil, ErrEmptyPlan
	}
	firstExternalID, err := s.appliedRepo.AllocateMicrocycleIDs(ctx, microCount)
	if err != nil {
		return nil, nil, nil, nil, err
	}

	applied := &domain.AppliedPlan{
		ID:                primitive.NewObjectID(),
		PlanID:            plan.ID,
		RootPlanID:        plan.RootPlanID,
		UserID:            in.UserID,
		StartDate:         in.StartDate,
		EndDate:           in.StartDate.AddDate(0, 0, 7*microCount),
		Status:            domain.AppliedPlanPending,
		IsActive:          false,
		CapacityRecordIDs: append([]int(nil), in.CapacityRecordIDs...),
		ClassSnapshot:     make(map[string]string),
	}

	var (
		appliedMesos  []domain.AppliedMesocycle
		appliedMicros []domain.AppliedMicrocycle
		planned       []plannedMicrocycle
	)
	globalMicro := 0 // microcycle position across the whole plan
	globalWorkout := 0

	for mesoIdx, meso := range mesos {
		templateMesoIdx := meso.OrderIndex
		appliedMeso := domain.AppliedMesocycle{
			ID:                 primitive.NewObjectID(),
			AppliedPlanID:      applied.ID,
			Name:               meso.Name,
			OrderIndex:         mesoIdx,
			TemplateOrderIndex: &templateMesoIdx,
		}
		appliedMesos = append(appliedMesos, appliedMeso)

		micros := append([]domain.Microcycle(nil), meso.Microcycles...)
		sort.SliceStable(micros, func(i, j int) bool { return micros[i].OrderIndex < micros[j].OrderIndex })

		for microIdx, micro := range micros {
			templateMicroIdx := micro.OrderIndex
			startsOn := in.StartDate.AddDate(0, 0, 7*globalMicro)
			appliedMicro := domain.AppliedMicrocycle{
				ID:                 primitive.NewObjectID(),
				AppliedPlanID:      applied.ID,
				AppliedMesocycleID: appliedMeso.ID,
				OrderIndex:         microIdx,
				ExternalID:         firstExternalID + globalMicro,
				StartsOn:           startsOn,
				TemplateOrderIndex: &templateMicroIdx,
			}
			appliedMicros = append(appliedMicros, appliedMicro)

			plannedMicro := plannedMicrocycle{meta: appliedMicro}
			workouts := append([]domain.WorkoutTemplate(nil), micro.Workouts...)
			sort.SliceStable(workouts, func(i, j int) bool { return workouts[i].OrderIndex < workouts[j].OrderIndex })

			for workoutIdx, workout := range workouts {
				scheduled := startsOn.AddDate(0, 0, workoutIdx)
				pw := plannedWorkout{
					create: domain.WorkoutCreate{
						MicrocycleID:   appliedMicro.ExternalID,
						Name:           workout.Name,
						Notes:          workout.Notes,
						PlanOrderIndex: globalWorkout,
						OrderIndex:     workoutIdx,
						ScheduledFor:   &scheduled,
						Status:         domain.WorkoutScheduled,
					},
				}
				globalWorkout++

				instances, err := s.resolveExercises(ctx, workout, run, applied.ClassSnapshot)
				if err != nil {
					return nil, nil, nil, nil, err
				}
				pw.exercises = instances
				plannedMicro.workouts = append(plannedMicro.workouts, pw)
			}
			planned = append(planned, plannedMicro)
			globalMicro++
		}
	}
	return applied, appliedMesos, appliedMicros, planned, nil
}

// resolveExercises turns a workout template's exercises into fully
// numeric instance payloads, recording in classes which conversion
// table each exercise was resolved under.
func (s *materializeService) resolveExercises(ctx context.Context, workout domain.WorkoutTemplate, run *resolverRun, classes map[string]string) ([]domain.ExerciseInstanceCreate, error) {
	exercises := append([]domain.ExerciseTemplate(nil), workout.Exercises...)
	sort.SliceStable(exercises, func(i, j int) bool { return exercises[i].OrderIndex < exercises[j].OrderIndex })

	var instances []domain.ExerciseInstanceCreate
	for exerciseIdx, exercise := range exercises {
		max, err := run.effectiveMax(ctx, exercise.ExerciseDefinitionID)
		if err != nil {
			return nil, fmt.Errorf("exercise %d: %w", exercise.ExerciseDefinitionID, err)
		}
		table, ok := s.catalog.Table(exercise.Classification)
		if !ok {
			return nil, fmt.Errorf("no conversion table for class %q", exercise.Classification)
		}
		// Record the class the fallback actually chose, not the raw
		// template value.
		classes[fmt.Sprintf("%d", exercise.ExerciseDefinitionID)] = table.Class()

		sets := append([]domain.SetTemplate(nil), exercise.Sets...)
		sort.SliceStable(sets, func(i, j int) bool { return sets[i].OrderIndex < sets[j].OrderIndex })

		resolved := make([]domain.Set, 0, len(sets))
		for setIdx, set := range sets {
			out, err := resolveSet(table, set, max)
			if err != nil {
				return nil, fmt.Errorf("workout %q exercise %d set %d: %w", workout.Name, exercise.ExerciseDefinitionID, setIdx, err)
			}
			out.OrderIndex = setIdx
			resolved = append(resolved, out)
		}
		instances = append(instances, domain.ExerciseInstanceCreate{
			ExerciseDefinitionID: exercise.ExerciseDefinitionID,
			OrderIndex:           exerciseIdx,
			Sets:                 resolved,
		})
	}
	return instances, nil
}

// resolveSet fills in the missing numeric field of a set template.
// Three fields copy through, exactly two derive the third from the
// table, fewer than two is a hard materialization error.
func resolveSet(table *rpe.Table, set domain.SetTemplate, effectiveMax float64) (domain.Set, error) {
	present := 0
	for _, ok := range []bool{set.Intensity != nil, set.Effort != nil, set.Volume != nil} {
		if ok {
			present++
		}
	}
	if present < 2 {
		return domain.Set{}, ErrSetUnderspecified
	}

	intensity, effort, volume := set.Intensity, set.Effort, set.Volume
	var err error
	switch {
	case present == 3:
		// Fully specified, taken as-is.
	case volume == nil:
		volume, err = table.VolumeFor(intensity, effort)
	case intensity == nil:
		intensity, err = table.IntensityFor(volume, effort)
	case effort == nil:
		effort, err = table.EffortFor(volume, intensity)
	}
	if err != nil {
		return domain.Set{}, err
	}

	return domain.Set{
		Intensity: *intensity,
		Effort:    *effort,
		Volume:    *volume,
		Weight:    roundWeight(float64(*intensity) / 100 * effectiveMax),
	}, nil
}

// roundWeight snaps to the nearest quarter kilogram, the smallest
// plate increment worth prescribing.
func roundWeight(w float64) float64 {
	return math.Round(w*4) / 4
}
