// internal/service/applied_plan_service.go
package service

import (
	"context"
	"errors"
	"sort"

	"github.com/oleksiikomarychev/WorkoutApp-sub002/internal/domain"
	"github.com/oleksiikomarychev/WorkoutApp-sub002/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

var ErrAppliedPlanAccessDenied = errors.New("access denied to this applied plan")

// AppliedWorkoutView joins a workout with its exercise instances for
// read responses.
type AppliedWorkoutView struct {
	domain.Workout
	Exercises []domain.ExerciseInstance `json:"exercises"`
}

// AppliedPlanDetail is the full materialized view of one applied plan,
// assembled from the local metadata plus the external stores.
type AppliedPlanDetail struct {
	domain.AppliedPlan
	Workouts []AppliedWorkoutView `json:"workouts"`
}

// AppliedPlanService is the read/lifecycle surface over materialized
// plans. Mutation of set numbers goes through the mass-edit executor
// only.
type AppliedPlanService interface {
	GetDetail(ctx context.Context, id primitive.ObjectID, userID string) (*AppliedPlanDetail, error)
	ListByUser(ctx context.Context, userID string) ([]domain.AppliedPlan, error)
	Deactivate(ctx context.Context, id primitive.ObjectID, userID string) error
	// Delete cascades: external workouts and instances first, then the
	// local hierarchy.
	Delete(ctx context.Context, id primitive.ObjectID, userID string) error
}

type appliedPlanService struct {
	appliedRepo repository.AppliedPlanRepository
	workouts    WorkoutGateway
	exercises   ExerciseGateway
}

// NewAppliedPlanService creates a new applied plan service.
func NewAppliedPlanService(
	appliedRepo repository.AppliedPlanRepository,
	workouts WorkoutGateway,
	exercises ExerciseGateway,
) AppliedPlanService {
	return &appliedPlanService{
		appliedRepo: appliedRepo,
		workouts:    workouts,
		exercises:   exercises,
	}
}

func (s *appliedPlanService) getOwned(ctx context.Context, id primitive.ObjectID, userID string) (*domain.AppliedPlan, error) {
	plan, err := s.appliedRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAppliedPlanNotFound
		}
		return nil, err
	}
	if plan.UserID != userID {
		return nil, ErrAppliedPlanAccessDenied
	}
	return plan, nil
}

func (s *appliedPlanService) GetDetail(ctx context.Context, id primitive.ObjectID, userID string) (*AppliedPlanDetail, error) {
	plan, err := s.getOwned(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	micros, err := s.appliedRepo.GetMicrocycles(ctx, id)
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

	detail := &AppliedPlanDetail{AppliedPlan: *plan}
	for _, workout := range workouts {
		exercises := byWorkout[workout.ID]
		sort.SliceStable(exercises, func(i, j int) bool { return exercises[i].OrderIndex < exercises[j].OrderIndex })
		detail.Workouts = append(detail.Workouts, AppliedWorkoutView{Workout: workout, Exercises: exercises})
	}
	return detail, nil
}

func (s *appliedPlanService) ListByUser(ctx context.Context, userID string) ([]domain.AppliedPlan, error) {
	if userID == "" {
		return nil, errors.New("user ID is required")
	}
	return s.appliedRepo.ListByUser(ctx, userID)
}

func (s *appliedPlanService) Deactivate(ctx context.Context, id primitive.ObjectID, userID string) error {
	if _, err := s.getOwned(ctx, id, userID); err != nil {
		return err
	}
	return s.appliedRepo.SetActive(ctx, id, false)
}

func (s *appliedPlanService) Delete(ctx context.Context, id primitive.ObjectID, userID string) error {
	if _, err := s.getOwned(ctx, id, userID); err != nil {
		return err
	}
	micros, err := s.appliedRepo.GetMicrocycles(ctx, id)
	if err != nil {
		return err
	}
	microIDs := make([]int, len(micros))
	for i, m := range micros {
		microIDs[i] = m.ExternalID
	}
	if len(microIDs) > 0 {
		workouts, err := s.workouts.ByMicrocycles(ctx, microIDs)
		if err != nil {
			return err
		}
		workoutIDs := make([]int, len(workouts))
		for i, w := range workouts {
			workoutIDs[i] = w.ID
		}
		if len(workoutIDs) > 0 {
			if err := s.exercises.DeleteByWorkouts(ctx, workoutIDs); err != nil {
				return err
			}
		}
		if err := s.workouts.DeleteByMicrocycles(ctx, microIDs); err != nil {
			return err
		}
	}
	return s.appliedRepo.DeleteHierarchy(ctx, id)
}
