// internal/service/applied_plan_service_test.go
package service

import (
	"context"
	"errors"
	"testing"

	"github.com/oleksiikomarychev/WorkoutApp-sub002/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type appliedFixture struct {
	appliedRepo *fakeAppliedRepo
	workouts    *fakeWorkoutStore
	exercises   *fakeExerciseStore
	service     AppliedPlanService
	planID      primitive.ObjectID
}

func newAppliedFixture(t *testing.T) *appliedFixture {
	t.Helper()
	f := &appliedFixture{
		appliedRepo: newFakeAppliedRepo(),
		workouts:    newFakeWorkoutStore(),
		exercises:   newFakeExerciseStore(),
	}
	f.service = NewAppliedPlanService(f.appliedRepo, f.workouts, f.exercises)

	f.planID = primitive.NewObjectID()
	plan := &domain.AppliedPlan{
		ID:       f.planID,
		UserID:   "user-1",
		Status:   domain.AppliedPlanActive,
		IsActive: true,
	}
	micro := domain.AppliedMicrocycle{ID: primitive.NewObjectID(), AppliedPlanID: f.planID, ExternalID: 7}
	if err := f.appliedRepo.CreateHierarchy(context.Background(), plan, nil, []domain.AppliedMicrocycle{micro}); err != nil {
		t.Fatalf("seed applied plan: %v", err)
	}
	created, err := f.workouts.BatchCreate(context.Background(), []domain.WorkoutCreate{
		{MicrocycleID: 7, Name: "Day B", PlanOrderIndex: 1, OrderIndex: 1},
		{MicrocycleID: 7, Name: "Day A", PlanOrderIndex: 0, OrderIndex: 0},
	})
	if err != nil {
		t.Fatalf("seed workouts: %v", err)
	}
	for _, w := range created {
		if _, err := f.exercises.BatchCreate(context.Background(), []domain.ExerciseInstanceCreate{{
			WorkoutID:            w.ID,
			ExerciseDefinitionID: 10,
			Sets:                 []domain.Set{{Intensity: 80, Effort: 8, Volume: 5, Weight: 80}},
		}}); err != nil {
			t.Fatalf("seed instances: %v", err)
		}
	}
	return f
}

func TestGetDetailJoinsExternalState(t *testing.T) {
	f := newAppliedFixture(t)

	detail, err := f.service.GetDetail(context.Background(), f.planID, "user-1")
	if err != nil {
		t.Fatalf("GetDetail: %v", err)
	}
	if len(detail.Workouts) != 2 {
		t.Fatalf("detail carries %d workouts, want 2", len(detail.Workouts))
	}
	// Sorted by plan-wide order, not store insertion order.
	if detail.Workouts[0].Name != "Day A" || detail.Workouts[1].Name != "Day B" {
		t.Errorf("workout order = %q, %q; want Day A then Day B", detail.Workouts[0].Name, detail.Workouts[1].Name)
	}
	for _, w := range detail.Workouts {
		if len(w.Exercises) != 1 {
			t.Errorf("workout %q carries %d exercises, want 1", w.Name, len(w.Exercises))
		}
	}
}

func TestGetDetailOwnership(t *testing.T) {
	f := newAppliedFixture(t)

	if _, err := f.service.GetDetail(context.Background(), f.planID, "stranger"); !errors.Is(err, ErrAppliedPlanAccessDenied) {
		t.Errorf("GetDetail error = %v, want ErrAppliedPlanAccessDenied", err)
	}
	if _, err := f.service.GetDetail(context.Background(), primitive.NewObjectID(), "user-1"); !errors.Is(err, ErrAppliedPlanNotFound) {
		t.Errorf("GetDetail error = %v, want ErrAppliedPlanNotFound", err)
	}
}

func TestDeleteCascadesToExternalStores(t *testing.T) {
	f := newAppliedFixture(t)

	if err := f.service.Delete(context.Background(), f.planID, "user-1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if len(f.workouts.workouts) != 0 {
		t.Errorf("%d workouts survived the cascade", len(f.workouts.workouts))
	}
	if len(f.exercises.instances) != 0 {
		t.Errorf("%d instances survived the cascade", len(f.exercises.instances))
	}
	if _, err := f.appliedRepo.GetByID(context.Background(), f.planID); err == nil {
		t.Error("local hierarchy survived the cascade")
	}
}

func TestDeactivateKeepsData(t *testing.T) {
	f := newAppliedFixture(t)

	if err := f.service.Deactivate(context.Background(), f.planID, "user-1"); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}
	plan, err := f.appliedRepo.GetByID(context.Background(), f.planID)
	if err != nil {
		t.Fatalf("reload plan: %v", err)
	}
	if plan.IsActive {
		t.Error("plan still active")
	}
	if len(f.workouts.workouts) != 2 {
		t.Error("deactivation touched the external stores")
	}
}
