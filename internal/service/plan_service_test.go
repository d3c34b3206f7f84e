// internal/service/plan_service_test.go
package service

import (
	"context"
	"errors"
	"testing"

	"github.com/oleksiikomarychev/WorkoutApp-sub002/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

func templateWithSet(set domain.SetTemplate) *domain.Plan {
	return &domain.Plan{
		AuthorID:      "author-1",
		Name:          "Template",
		DurationWeeks: 4,
		Mesocycles: []domain.Mesocycle{{
			Microcycles: []domain.Microcycle{{
				Workouts: []domain.WorkoutTemplate{{
					Name: "Day A",
					Exercises: []domain.ExerciseTemplate{{
						ExerciseDefinitionID: 10,
						Sets:                 []domain.SetTemplate{set},
					}},
				}},
			}},
		}},
	}
}

func TestCreatePlanValidation(t *testing.T) {
	svc := NewPlanService(newFakePlanRepo())
	ctx := context.Background()

	t.Run("two of three accepted", func(t *testing.T) {
		plan, err := svc.Create(ctx, templateWithSet(domain.SetTemplate{
			Intensity: intPtr(80), Volume: intPtr(5),
		}))
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		if plan.RootPlanID != plan.ID {
			t.Errorf("root = %s, want the plan's own id on first creation", plan.RootPlanID.Hex())
		}
	})

	t.Run("all three rejected", func(t *testing.T) {
		_, err := svc.Create(ctx, templateWithSet(domain.SetTemplate{
			Intensity: intPtr(80), Effort: floatPtr(8), Volume: intPtr(5),
		}))
		if !errors.Is(err, ErrSetOverspecified) {
			t.Fatalf("Create error = %v, want ErrSetOverspecified", err)
		}
	})

	t.Run("duration out of range", func(t *testing.T) {
		plan := templateWithSet(domain.SetTemplate{Intensity: intPtr(80), Volume: intPtr(5)})
		plan.DurationWeeks = 53
		_, err := svc.Create(ctx, plan)
		if !errors.Is(err, ErrDurationOutOfRange) {
			t.Fatalf("Create error = %v, want ErrDurationOutOfRange", err)
		}
	})
}

func TestGetPlanVisibility(t *testing.T) {
	repo := newFakePlanRepo()
	svc := NewPlanService(repo)
	ctx := context.Background()

	private := templateWithSet(domain.SetTemplate{Intensity: intPtr(80), Volume: intPtr(5)})
	privateID, _ := repo.Create(ctx, private)

	public := templateWithSet(domain.SetTemplate{Intensity: intPtr(80), Volume: intPtr(5)})
	public.IsPublic = true
	publicID, _ := repo.Create(ctx, public)

	if _, err := svc.GetByID(ctx, privateID, "author-1"); err != nil {
		t.Errorf("author denied own plan: %v", err)
	}
	if _, err := svc.GetByID(ctx, privateID, "stranger"); !errors.Is(err, ErrPlanAccessDenied) {
		t.Errorf("GetByID error = %v, want ErrPlanAccessDenied", err)
	}
	if _, err := svc.GetByID(ctx, publicID, "stranger"); err != nil {
		t.Errorf("stranger denied public plan: %v", err)
	}
	if _, err := svc.GetByID(ctx, primitive.NewObjectID(), "author-1"); !errors.Is(err, ErrTemplateNotFound) {
		t.Errorf("GetByID error = %v, want ErrTemplateNotFound", err)
	}
}

func TestUpdatePlanOwnership(t *testing.T) {
	repo := newFakePlanRepo()
	svc := NewPlanService(repo)
	ctx := context.Background()

	id, _ := repo.Create(ctx, templateWithSet(domain.SetTemplate{Intensity: intPtr(80), Volume: intPtr(5)}))

	hijack := templateWithSet(domain.SetTemplate{Intensity: intPtr(80), Volume: intPtr(5)})
	hijack.ID = id
	hijack.AuthorID = "stranger"
	if err := svc.Update(ctx, hijack); !errors.Is(err, ErrPlanAccessDenied) {
		t.Fatalf("Update error = %v, want ErrPlanAccessDenied", err)
	}
}

func TestDeriveKeepsLineage(t *testing.T) {
	repo := newFakePlanRepo()
	svc := NewPlanService(repo)
	ctx := context.Background()

	original := templateWithSet(domain.SetTemplate{Intensity: intPtr(80), Volume: intPtr(5)})
	original.IsPublic = true
	originalID, _ := repo.Create(ctx, original)

	derived, err := svc.Derive(ctx, originalID, "user-2")
	if err != nil {
		t.Fatalf("Derive: %v", err)
	}
	if derived.ID == originalID {
		t.Error("derived plan shares the original's id")
	}
	if derived.RootPlanID != originalID {
		t.Errorf("derived root = %s, want the original lineage root", derived.RootPlanID.Hex())
	}
	if derived.AuthorID != "user-2" {
		t.Errorf("derived author = %s, want the deriving user", derived.AuthorID)
	}
	if derived.IsPublic {
		t.Error("derived version starts public")
	}

	// The clone must not alias the original's template tree.
	derived.Mesocycles[0].Microcycles[0].Workouts[0].Exercises[0].Sets[0].Intensity = intPtr(60)
	reloaded, _ := svc.GetByID(ctx, originalID, "author-1")
	if got := *reloaded.Mesocycles[0].Microcycles[0].Workouts[0].Exercises[0].Sets[0].Intensity; got != 80 {
		t.Errorf("original template mutated through the derived copy: intensity %d", got)
	}
}

func TestDeriveDeniedOnPrivatePlan(t *testing.T) {
	repo := newFakePlanRepo()
	svc := NewPlanService(repo)
	ctx := context.Background()

	id, _ := repo.Create(ctx, templateWithSet(domain.SetTemplate{Intensity: intPtr(80), Volume: intPtr(5)}))
	if _, err := svc.Derive(ctx, id, "stranger"); !errors.Is(err, ErrPlanAccessDenied) {
		t.Fatalf("Derive error = %v, want ErrPlanAccessDenied", err)
	}
}
