// internal/service/macro_service_test.go
package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/oleksiikomarychev/WorkoutApp-sub002/internal/command"
	"github.com/oleksiikomarychev/WorkoutApp-sub002/internal/domain"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// recordingExecutor captures the command sequences handed to it.
type recordingExecutor struct {
	sequences [][]*command.Command
	err       error
}

func (e *recordingExecutor) Execute(ctx context.Context, appliedPlanID primitive.ObjectID, cmd *command.Command) (*command.Result, error) {
	results, err := e.ExecuteSequence(ctx, appliedPlanID, []*command.Command{cmd})
	if err != nil {
		return nil, err
	}
	return &results[0], nil
}

func (e *recordingExecutor) ExecuteSequence(ctx context.Context, appliedPlanID primitive.ObjectID, cmds []*command.Command) ([]command.Result, error) {
	if e.err != nil {
		return nil, e.err
	}
	e.sequences = append(e.sequences, cmds)
	results := make([]command.Result, len(cmds))
	return results, nil
}

const validMacroBody = `{
	"operation": "mass_edit",
	"filter": {"from_order_index": 0, "only_future": true},
	"actions": [{"adjust": {"intensity": "+2"}}]
}`

func seedMacroFixture(t *testing.T) (*fakeMacroRepo, *fakeAppliedRepo, *recordingExecutor, MacroService, primitive.ObjectID, primitive.ObjectID) {
	t.Helper()
	macroRepo := newFakeMacroRepo()
	appliedRepo := newFakeAppliedRepo()
	executor := &recordingExecutor{}
	svc := NewMacroService(macroRepo, appliedRepo, executor)

	planID := primitive.NewObjectID()
	appliedID := primitive.NewObjectID()
	applied := &domain.AppliedPlan{
		ID:       appliedID,
		PlanID:   planID,
		UserID:   "user-1",
		Status:   domain.AppliedPlanActive,
		IsActive: true,
	}
	if err := appliedRepo.CreateHierarchy(context.Background(), applied, nil, nil); err != nil {
		t.Fatalf("seed applied plan: %v", err)
	}
	return macroRepo, appliedRepo, executor, svc, planID, appliedID
}

func TestCreateMacroCompileChecksBody(t *testing.T) {
	_, _, _, svc, planID, _ := seedMacroFixture(t)

	t.Run("valid body", func(t *testing.T) {
		macro, err := svc.Create(context.Background(), &domain.PlanMacro{
			PlanID: planID, Name: "ramp", IsActive: true, Body: validMacroBody,
		})
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		if macro.ID == primitive.NilObjectID {
			t.Error("created macro has no id")
		}
	})

	t.Run("invalid json", func(t *testing.T) {
		_, err := svc.Create(context.Background(), &domain.PlanMacro{
			PlanID: planID, Name: "broken", Body: "{not json",
		})
		if !errors.Is(err, ErrMacroBadCommand) {
			t.Fatalf("Create error = %v, want ErrMacroBadCommand", err)
		}
	})

	t.Run("scopeless command", func(t *testing.T) {
		_, err := svc.Create(context.Background(), &domain.PlanMacro{
			PlanID: planID, Name: "scopeless",
			Body: `{"operation":"mass_edit","filter":{},"actions":[{"adjust":{"volume":"+1"}}]}`,
		})
		if !errors.Is(err, ErrMacroBadCommand) {
			t.Fatalf("Create error = %v, want ErrMacroBadCommand", err)
		}
	})
}

func TestRunForAppliedPlanExecutesInOrder(t *testing.T) {
	macroRepo, _, executor, svc, planID, appliedID := seedMacroFixture(t)

	base := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	// Seeded out of order on purpose; priority drives execution order.
	second := &domain.PlanMacro{PlanID: planID, Name: "late", IsActive: true, Priority: 20, Body: validMacroBody, CreatedAt: base}
	first := &domain.PlanMacro{PlanID: planID, Name: "early", IsActive: true, Priority: 10, Body: validMacroBody, CreatedAt: base.Add(time.Hour)}
	inactive := &domain.PlanMacro{PlanID: planID, Name: "off", IsActive: false, Priority: 1, Body: validMacroBody, CreatedAt: base}
	for _, m := range []*domain.PlanMacro{second, first, inactive} {
		if _, err := macroRepo.Create(context.Background(), m); err != nil {
			t.Fatalf("seed macro: %v", err)
		}
	}

	results, err := svc.RunForAppliedPlan(context.Background(), appliedID)
	if err != nil {
		t.Fatalf("RunForAppliedPlan: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("got %d results, want 2 (inactive macro excluded)", len(results))
	}
	if len(executor.sequences) != 1 {
		t.Fatalf("executor invoked %d times, want a single sequence", len(executor.sequences))
	}
	if got := len(executor.sequences[0]); got != 2 {
		t.Errorf("sequence carries %d commands, want 2", got)
	}
}

func TestRunForAppliedPlanSkipsBrokenMacro(t *testing.T) {
	macroRepo, _, executor, svc, planID, appliedID := seedMacroFixture(t)

	good := &domain.PlanMacro{PlanID: planID, Name: "good", IsActive: true, Priority: 1, Body: validMacroBody}
	broken := &domain.PlanMacro{PlanID: planID, Name: "drifted", IsActive: true, Priority: 2, Body: `{"operation":"nope"}`}
	for _, m := range []*domain.PlanMacro{good, broken} {
		if _, err := macroRepo.Create(context.Background(), m); err != nil {
			t.Fatalf("seed macro: %v", err)
		}
	}

	results, err := svc.RunForAppliedPlan(context.Background(), appliedID)
	if err != nil {
		t.Fatalf("RunForAppliedPlan: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results, want 1 (broken macro skipped, not fatal)", len(results))
	}
	if len(executor.sequences[0]) != 1 {
		t.Errorf("sequence carries %d commands, want only the compiling one", len(executor.sequences[0]))
	}
}

func TestRunForAppliedPlanWithoutMacros(t *testing.T) {
	_, _, executor, svc, _, appliedID := seedMacroFixture(t)

	results, err := svc.RunForAppliedPlan(context.Background(), appliedID)
	if err != nil {
		t.Fatalf("RunForAppliedPlan: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("got %d results, want none", len(results))
	}
	if len(executor.sequences) != 0 {
		t.Error("executor invoked with no macros to run")
	}
}

func TestRunForAppliedPlanUnknownPlan(t *testing.T) {
	_, _, _, svc, _, _ := seedMacroFixture(t)

	_, err := svc.RunForAppliedPlan(context.Background(), primitive.NewObjectID())
	if !errors.Is(err, ErrAppliedPlanNotFound) {
		t.Fatalf("RunForAppliedPlan error = %v, want ErrAppliedPlanNotFound", err)
	}
}

func TestUpdateMacroRejectsBrokenBody(t *testing.T) {
	macroRepo, _, _, svc, planID, _ := seedMacroFixture(t)
	id, err := macroRepo.Create(context.Background(), &domain.PlanMacro{
		PlanID: planID, Name: "ramp", IsActive: true, Body: validMacroBody,
	})
	if err != nil {
		t.Fatalf("seed macro: %v", err)
	}

	err = svc.Update(context.Background(), &domain.PlanMacro{ID: id, PlanID: planID, Name: "ramp", Body: "{"})
	if !errors.Is(err, ErrMacroBadCommand) {
		t.Fatalf("Update error = %v, want ErrMacroBadCommand", err)
	}

	stored, err := svc.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stored.Body != validMacroBody {
		t.Error("broken body reached the store")
	}
}
