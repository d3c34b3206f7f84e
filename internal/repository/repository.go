package repository

import (
	"context"

	"github.com/oleksiikomarychev/WorkoutApp-sub002/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Error constants for the repository layer.
var (
	ErrNotFound     = RepositoryError("not found")
	ErrUpdateFailed = RepositoryError("update failed")
	ErrDeleteFailed = RepositoryError("delete failed")
)

// RepositoryError helps distinguish repository errors.
type RepositoryError string

func (e RepositoryError) Error() string {
	return string(e)
}

// PlanRepository stores template plans (the whole template tree is
// embedded in the plan document).
type PlanRepository interface {
	Create(ctx context.Context, plan *domain.Plan) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.Plan, error)
	ListByAuthor(ctx context.Context, authorID string) ([]domain.Plan, error)
	Update(ctx context.Context, plan *domain.Plan) error
	Delete(ctx context.Context, id primitive.ObjectID, authorID string) error
}

// AppliedPlanRepository stores the locally-held part of a materialized
// plan: the AppliedPlan row plus its mesocycle/microcycle metadata.
// Workouts and exercise instances live in the external stores.
type AppliedPlanRepository interface {
	// CreateHierarchy writes the applied plan and its node metadata in
	// one shot, in whatever status the plan carries (pending during a
	// staged commit).
	CreateHierarchy(ctx context.Context, plan *domain.AppliedPlan, mesocycles []domain.AppliedMesocycle, microcycles []domain.AppliedMicrocycle) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.AppliedPlan, error)
	ListByUser(ctx context.Context, userID string) ([]domain.AppliedPlan, error)
	// ListActive returns every currently active applied plan; the macro
	// scheduler iterates it.
	ListActive(ctx context.Context) ([]domain.AppliedPlan, error)
	GetMicrocycles(ctx context.Context, appliedPlanID primitive.ObjectID) ([]domain.AppliedMicrocycle, error)

	// Activate flips a pending plan to active/visible and records the
	// capacity snapshot taken during materialization.
	Activate(ctx context.Context, id primitive.ObjectID, snapshot map[string]float64) error
	// DeactivateOthers clears is_active on every other applied plan the
	// user holds for the same root plan lineage.
	DeactivateOthers(ctx context.Context, userID string, rootPlanID, keep primitive.ObjectID) error
	SetActive(ctx context.Context, id primitive.ObjectID, active bool) error

	// DeleteHierarchy removes the applied plan and all node metadata;
	// used both for staged-commit rollback and cascading delete.
	DeleteHierarchy(ctx context.Context, id primitive.ObjectID) error

	// AllocateMicrocycleIDs reserves n consecutive external microcycle
	// ids (unique across all plans) and returns the first.
	AllocateMicrocycleIDs(ctx context.Context, n int) (int, error)
}

// MacroRepository stores automatic bulk-edit rules attached to plans.
type MacroRepository interface {
	Create(ctx context.Context, macro *domain.PlanMacro) (primitive.ObjectID, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.PlanMacro, error)
	ListByPlan(ctx context.Context, planID primitive.ObjectID, activeOnly bool) ([]domain.PlanMacro, error)
	Update(ctx context.Context, macro *domain.PlanMacro) error
	Delete(ctx context.Context, id primitive.ObjectID) error
}
