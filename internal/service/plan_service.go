// internal/service/plan_service.go
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/oleksiikomarychev/WorkoutApp-sub002/internal/domain"
	"github.com/oleksiikomarychev/WorkoutApp-sub002/internal/repository"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Error Definitions ---
var (
	ErrTemplateNotFound   = errors.New("template plan not found")
	ErrPlanAccessDenied   = errors.New("access denied to this plan")
	ErrSetOverspecified   = errors.New("set template supplies all three of intensity, effort, volume")
	ErrDurationOutOfRange = errors.New("plan duration must be between 1 and 52 weeks")
)

// PlanService manages template plans: authoring CRUD plus version
// derivation. Applied plans are never touched from here.
type PlanService interface {
	Create(ctx context.Context, plan *domain.Plan) (*domain.Plan, error)
	GetByID(ctx context.Context, id primitive.ObjectID, requesterID string) (*domain.Plan, error)
	ListByAuthor(ctx context.Context, authorID string) ([]domain.Plan, error)
	Update(ctx context.Context, plan *domain.Plan) error
	Delete(ctx context.Context, id primitive.ObjectID, authorID string) error

	// Derive clones a plan into a new version owned by authorID,
	// inheriting the original's root lineage.
	Derive(ctx context.Context, id primitive.ObjectID, authorID string) (*domain.Plan, error)
}

type planService struct {
	planRepo repository.PlanRepository
}

// NewPlanService creates a new template plan service.
func NewPlanService(planRepo repository.PlanRepository) PlanService {
	return &planService{planRepo: planRepo}
}

// validateTemplate enforces the authoring invariant: a set template
// supplies at most two of the numeric triple, the third is always
// computed at materialization time and never stored.
func validateTemplate(plan *domain.Plan) error {
	if plan.DurationWeeks < 1 || plan.DurationWeeks > 52 {
		return ErrDurationOutOfRange
	}
	for _, meso := range plan.Mesocycles {
		for _, micro := range meso.Microcycles {
			for _, workout := range micro.Workouts {
				for _, exercise := range workout.Exercises {
					for setIdx, set := range exercise.Sets {
						if set.Intensity != nil && set.Effort != nil && set.Volume != nil {
							return fmt.Errorf("%w: workout %q exercise %d set %d",
								ErrSetOverspecified, workout.Name, exercise.ExerciseDefinitionID, setIdx)
						}
					}
				}
			}
		}
	}
	return nil
}

func (s *planService) Create(ctx context.Context, plan *domain.Plan) (*domain.Plan, error) {
	if plan.AuthorID == "" || plan.Name == "" {
		return nil, errors.New("author ID and plan name are required")
	}
	if err := validateTemplate(plan); err != nil {
		return nil, err
	}
	id, err := s.planRepo.Create(ctx, plan)
	if err != nil {
		return nil, err
	}
	plan.ID = id
	return plan, nil
}

func (s *planService) GetByID(ctx context.Context, id primitive.ObjectID, requesterID string) (*domain.Plan, error) {
	plan, err := s.planRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTemplateNotFound
		}
		return nil, err
	}
	if !plan.IsPublic && plan.AuthorID != requesterID {
		return nil, ErrPlanAccessDenied
	}
	return plan, nil
}

func (s *planService) ListByAuthor(ctx context.Context, authorID string) ([]domain.Plan, error) {
	if authorID == "" {
		return nil, errors.New("author ID is required")
	}
	return s.planRepo.ListByAuthor(ctx, authorID)
}

func (s *planService) Update(ctx context.Context, plan *domain.Plan) error {
	if plan.ID == primitive.NilObjectID {
		return errors.New("plan ID is required for update")
	}
	if err := validateTemplate(plan); err != nil {
		return err
	}
	// Ownership check: the repo filter matches on authorId too, but a
	// clean not-found vs denied split needs the original.
	existing, err := s.planRepo.GetByID(ctx, plan.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrTemplateNotFound
		}
		return err
	}
	if existing.AuthorID != plan.AuthorID {
		return ErrPlanAccessDenied
	}
	return s.planRepo.Update(ctx, plan)
}

func (s *planService) Delete(ctx context.Context, id primitive.ObjectID, authorID string) error {
	err := s.planRepo.Delete(ctx, id, authorID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrTemplateNotFound
	}
	return err
}

// Derive clones the plan (template tree included) into a new version.
// The clone gets a fresh id but keeps the original's RootPlanID, so
// every version of one lineage stays groupable.
func (s *planService) Derive(ctx context.Context, id primitive.ObjectID, authorID string) (*domain.Plan, error) {
	original, err := s.GetByID(ctx, id, authorID)
	if err != nil {
		return nil, err
	}

	clone := *original
	clone.ID = primitive.NilObjectID
	clone.AuthorID = authorID
	clone.RootPlanID = original.RootPlanID
	clone.IsPublic = false
	clone.Mesocycles = cloneMesocycles(original.Mesocycles)

	newID, err := s.planRepo.Create(ctx, &clone)
	if err != nil {
		return nil, err
	}
	clone.ID = newID
	return &clone, nil
}

// cloneMesocycles deep-copies the template tree so edits to the derived
// version can never alias slices of the original document.
func cloneMesocycles(mesos []domain.Mesocycle) []domain.Mesocycle {
	out := make([]domain.Mesocycle, len(mesos))
	for i, meso := range mesos {
		out[i] = meso
		out[i].Microcycles = make([]domain.Microcycle, len(meso.Microcycles))
		for j, micro := range meso.Microcycles {
			out[i].Microcycles[j] = micro
			out[i].Microcycles[j].Workouts = make([]domain.WorkoutTemplate, len(micro.Workouts))
			for k, workout := range micro.Workouts {
				out[i].Microcycles[j].Workouts[k] = workout
				out[i].Microcycles[j].Workouts[k].Exercises = make([]domain.ExerciseTemplate, len(workout.Exercises))
				for l, exercise := range workout.Exercises {
					out[i].Microcycles[j].Workouts[k].Exercises[l] = exercise
					out[i].Microcycles[j].Workouts[k].Exercises[l].Sets = append([]domain.SetTemplate(nil), exercise.Sets...)
				}
			}
		}
	}
	return out
}
