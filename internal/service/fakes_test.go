// internal/service/fakes_test.go
package service

import (
	"context"
	"sync"
	"time"

	"github.com/oleksiikomarychev/WorkoutApp-sub002/internal/domain"
	"github.com/oleksiikomarychev/WorkoutApp-sub002/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }

// --- Plan repository ---

type fakePlanRepo struct {
	plans map[primitive.ObjectID]*domain.Plan
}

func newFakePlanRepo() *fakePlanRepo {
	return &fakePlanRepo{plans: make(map[primitive.ObjectID]*domain.Plan)}
}

func (r *fakePlanRepo) Create(ctx context.Context, plan *domain.Plan) (primitive.ObjectID, error) {
	plan.ID = primitive.NewObjectID()
	if plan.RootPlanID == primitive.NilObjectID {
		plan.RootPlanID = plan.ID
	}
	stored := *plan
	r.plans[plan.ID] = &stored
	return plan.ID, nil
}

func (r *fakePlanRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Plan, error) {
	plan, ok := r.plans[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *plan
	return &copied, nil
}

func (r *fakePlanRepo) ListByAuthor(ctx context.Context, authorID string) ([]domain.Plan, error) {
	var out []domain.Plan
	for _, plan := range r.plans {
		if plan.AuthorID == authorID {
			out = append(out, *plan)
		}
	}
	return out, nil
}

func (r *fakePlanRepo) Update(ctx context.Context, plan *domain.Plan) error {
	if _, ok := r.plans[plan.ID]; !ok {
		return repository.ErrNotFound
	}
	stored := *plan
	r.plans[plan.ID] = &stored
	return nil
}

func (r *fakePlanRepo) Delete(ctx context.Context, id primitive.ObjectID, authorID string) error {
	plan, ok := r.plans[id]
	if !ok || plan.AuthorID != authorID {
		return repository.ErrNotFound
	}
	delete(r.plans, id)
	return nil
}

// --- Applied plan repository ---

type fakeAppliedRepo struct {
	plans       map[primitive.ObjectID]*domain.AppliedPlan
	mesocycles  []domain.AppliedMesocycle
	microcycles []domain.AppliedMicrocycle
	nextExtID   int
	createErr   error

	deactivateErr error
}

func newFakeAppliedRepo() *fakeAppliedRepo {
	return &fakeAppliedRepo{
		plans:     make(map[primitive.ObjectID]*domain.AppliedPlan),
		nextExtID: 1,
	}
}

func (r *fakeAppliedRepo) CreateHierarchy(ctx context.Context, plan *domain.AppliedPlan, mesocycles []domain.AppliedMesocycle, microcycles []domain.AppliedMicrocycle) error {
	if r.createErr != nil {
		return r.createErr
	}
	stored := *plan
	r.plans[plan.ID] = &stored
	r.mesocycles = append(r.mesocycles, mesocycles...)
	r.microcycles = append(r.microcycles, microcycles...)
	return nil
}

func (r *fakeAppliedRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.AppliedPlan, error) {
	plan, ok := r.plans[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *plan
	return &copied, nil
}

func (r *fakeAppliedRepo) ListByUser(ctx context.Context, userID string) ([]domain.AppliedPlan, error) {
	var out []domain.AppliedPlan
	for _, plan := range r.plans {
		if plan.UserID == userID && plan.Status == domain.AppliedPlanActive {
			out = append(out, *plan)
		}
	}
	return out, nil
}

func (r *fakeAppliedRepo) ListActive(ctx context.Context) ([]domain.AppliedPlan, error) {
	var out []domain.AppliedPlan
	for _, plan := range r.plans {
		if plan.IsActive {
			out = append(out, *plan)
		}
	}
	return out, nil
}

func (r *fakeAppliedRepo) GetMicrocycles(ctx context.Context, appliedPlanID primitive.ObjectID) ([]domain.AppliedMicrocycle, error) {
	var out []domain.AppliedMicrocycle
	for _, micro := range r.microcycles {
		if micro.AppliedPlanID == appliedPlanID {
			out = append(out, micro)
		}
	}
	return out, nil
}

func (r *fakeAppliedRepo) Activate(ctx context.Context, id primitive.ObjectID, snapshot map[string]float64) error {
	plan, ok := r.plans[id]
	if !ok || plan.Status != domain.AppliedPlanPending {
		return repository.ErrUpdateFailed
	}
	plan.Status = domain.AppliedPlanActive
	plan.IsActive = true
	plan.CapacitySnapshot = snapshot
	return nil
}

func (r *fakeAppliedRepo) DeactivateOthers(ctx context.Context, userID string, rootPlanID, keep primitive.ObjectID) error {
	if r.deactivateErr != nil {
		return r.deactivateErr
	}
	for id, plan := range r.plans {
		if id != keep && plan.UserID == userID && plan.RootPlanID == rootPlanID {
			plan.IsActive = false
		}
	}
	return nil
}

func (r *fakeAppliedRepo) SetActive(ctx context.Context, id primitive.ObjectID, active bool) error {
	plan, ok := r.plans[id]
	if !ok {
		return repository.ErrNotFound
	}
	plan.IsActive = active
	return nil
}

func (r *fakeAppliedRepo) DeleteHierarchy(ctx context.Context, id primitive.ObjectID) error {
	delete(r.plans, id)
	kept := r.microcycles[:0]
	for _, micro := range r.microcycles {
		if micro.AppliedPlanID != id {
			kept = append(kept, micro)
		}
	}
	r.microcycles = kept
	return nil
}

func (r *fakeAppliedRepo) AllocateMicrocycleIDs(ctx context.Context, n int) (int, error) {
	first := r.nextExtID
	r.nextExtID += n
	return first, nil
}

// --- External workout store ---

type fakeWorkoutStore struct {
	workouts  map[int]domain.Workout
	nextID    int
	createErr error
	updates   []domain.WorkoutUpdate
}

func newFakeWorkoutStore() *fakeWorkoutStore {
	return &fakeWorkoutStore{workouts: make(map[int]domain.Workout), nextID: 100}
}

func (s *fakeWorkoutStore) BatchCreate(ctx context.Context, creates []domain.WorkoutCreate) ([]domain.Workout, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	out := make([]domain.Workout, len(creates))
	for i, c := range creates {
		w := domain.Workout{
			ID:             s.nextID,
			MicrocycleID:   c.MicrocycleID,
			Name:           c.Name,
			Notes:          c.Notes,
			PlanOrderIndex: c.PlanOrderIndex,
			OrderIndex:     c.OrderIndex,
			ScheduledFor:   c.ScheduledFor,
			Status:         c.Status,
		}
		s.nextID++
		s.workouts[w.ID] = w
		out[i] = w
	}
	return out, nil
}

func (s *fakeWorkoutStore) ByMicrocycles(ctx context.Context, microcycleIDs []int) ([]domain.Workout, error) {
	var out []domain.Workout
	for _, w := range s.workouts {
		for _, id := range microcycleIDs {
			if w.MicrocycleID == id {
				out = append(out, w)
				break
			}
		}
	}
	return out, nil
}

func (s *fakeWorkoutStore) BatchUpdate(ctx context.Context, updates []domain.WorkoutUpdate) error {
	s.updates = append(s.updates, updates...)
	for _, u := range updates {
		w, ok := s.workouts[u.ID]
		if !ok {
			continue
		}
		if u.Status != nil {
			w.Status = *u.Status
		}
		if u.ScheduledFor != nil {
			w.ScheduledFor = u.ScheduledFor
		}
		s.workouts[u.ID] = w
	}
	return nil
}

func (s *fakeWorkoutStore) DeleteByMicrocycles(ctx context.Context, microcycleIDs []int) error {
	for id, w := range s.workouts {
		for _, micro := range microcycleIDs {
			if w.MicrocycleID == micro {
				delete(s.workouts, id)
				break
			}
		}
	}
	return nil
}

// --- External exercise store ---

type fakeExerciseStore struct {
	instances map[int]domain.ExerciseInstance
	nextID    int
	createErr error
	updateErr error
	updates   []domain.ExerciseInstanceUpdate
}

func newFakeExerciseStore() *fakeExerciseStore {
	return &fakeExerciseStore{instances: make(map[int]domain.ExerciseInstance), nextID: 1000}
}

func (s *fakeExerciseStore) BatchCreate(ctx context.Context, creates []domain.ExerciseInstanceCreate) ([]domain.ExerciseInstance, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	out := make([]domain.ExerciseInstance, len(creates))
	for i, c := range creates {
		instance := domain.ExerciseInstance{
			ID:                   s.nextID,
			WorkoutID:            c.WorkoutID,
			ExerciseDefinitionID: c.ExerciseDefinitionID,
			OrderIndex:           c.OrderIndex,
			Sets:                 append([]domain.Set(nil), c.Sets...),
		}
		s.nextID++
		s.instances[instance.ID] = instance
		out[i] = instance
	}
	return out, nil
}

func (s *fakeExerciseStore) ByWorkouts(ctx context.Context, workoutIDs []int) ([]domain.ExerciseInstance, error) {
	var out []domain.ExerciseInstance
	for _, instance := range s.instances {
		for _, id := range workoutIDs {
			if instance.WorkoutID == id {
				out = append(out, instance)
				break
			}
		}
	}
	return out, nil
}

func (s *fakeExerciseStore) BatchUpdate(ctx context.Context, updates []domain.ExerciseInstanceUpdate) error {
	if s.updateErr != nil {
		return s.updateErr
	}
	s.updates = append(s.updates, updates...)
	for _, u := range updates {
		instance, ok := s.instances[u.ID]
		if !ok {
			continue
		}
		if u.ExerciseDefinitionID != nil {
			instance.ExerciseDefinitionID = *u.ExerciseDefinitionID
		}
		if u.Sets != nil {
			instance.Sets = append([]domain.Set(nil), u.Sets...)
		}
		s.instances[u.ID] = instance
	}
	return nil
}

func (s *fakeExerciseStore) DeleteByWorkouts(ctx context.Context, workoutIDs []int) error {
	for id, instance := range s.instances {
		for _, w := range workoutIDs {
			if instance.WorkoutID == w {
				delete(s.instances, id)
				break
			}
		}
	}
	return nil
}

// --- Capacity resolver ---

type fakeResolver struct {
	maxes map[int]float64
	calls int
}

func (r *fakeResolver) EffectiveMax(ctx context.Context, userID string, exerciseID int) (float64, *domain.CapacityRecord, error) {
	r.calls++
	max, ok := r.maxes[exerciseID]
	if !ok {
		return 0, nil, ErrCapacityUnavailable
	}
	return max, &domain.CapacityRecord{ID: exerciseID, UserID: userID, ExerciseID: exerciseID}, nil
}

// --- Advisory locker ---

type fakeLocker struct {
	mu       sync.Mutex
	busy     bool
	acquired []string
	released int
}

func (l *fakeLocker) Acquire(ctx context.Context, key string, ttl time.Duration) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.busy {
		return nil, ErrPlanBusy
	}
	l.acquired = append(l.acquired, key)
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		l.released++
	}, nil
}

// --- Macro repository ---

type fakeMacroRepo struct {
	macros map[primitive.ObjectID]*domain.PlanMacro
}

func newFakeMacroRepo() *fakeMacroRepo {
	return &fakeMacroRepo{macros: make(map[primitive.ObjectID]*domain.PlanMacro)}
}

func (r *fakeMacroRepo) Create(ctx context.Context, macro *domain.PlanMacro) (primitive.ObjectID, error) {
	id := primitive.NewObjectID()
	stored := *macro
	stored.ID = id
	r.macros[id] = &stored
	return id, nil
}

func (r *fakeMacroRepo) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.PlanMacro, error) {
	macro, ok := r.macros[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *macro
	return &copied, nil
}

func (r *fakeMacroRepo) ListByPlan(ctx context.Context, planID primitive.ObjectID, activeOnly bool) ([]domain.PlanMacro, error) {
	var out []domain.PlanMacro
	for _, macro := range r.macros {
		if macro.PlanID != planID {
			continue
		}
		if activeOnly && !macro.IsActive {
			continue
		}
		out = append(out, *macro)
	}
	// Execution order: priority ascending, then creation time.
	for i := 1; i < len(out); i++ {
		for j := i; j > 0; j-- {
			if out[j].Priority < out[j-1].Priority ||
				(out[j].Priority == out[j-1].Priority && out[j].CreatedAt.Before(out[j-1].CreatedAt)) {
				out[j], out[j-1] = out[j-1], out[j]
			}
		}
	}
	return out, nil
}

func (r *fakeMacroRepo) Update(ctx context.Context, macro *domain.PlanMacro) error {
	if _, ok := r.macros[macro.ID]; !ok {
		return repository.ErrNotFound
	}
	stored := *macro
	r.macros[macro.ID] = &stored
	return nil
}

func (r *fakeMacroRepo) Delete(ctx context.Context, id primitive.ObjectID) error {
	if _, ok := r.macros[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.macros, id)
	return nil
}
