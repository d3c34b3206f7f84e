// internal/service/macro_service.go
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/oleksiikomarychev/WorkoutApp-sub002/internal/command"
	"github.com/oleksiikomarychev/WorkoutApp-sub002/internal/domain"
	"github.com/oleksiikomarychev/WorkoutApp-sub002/internal/repository"

	"github.com/robfig/cron/v3"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// --- Error Definitions ---
var (
	ErrMacroNotFound   = errors.New("macro not found")
	ErrMacroBadCommand = errors.New("macro body is not a valid mass-edit command")
)

// MacroService manages automatic bulk-edit rules and runs macro passes.
// A pass executes every active macro of the source plan against one
// applied plan in a deterministic total order (priority ascending,
// then creation time, then id) with first-writer-wins field claims.
type MacroService interface {
	Create(ctx context.Context, macro *domain.PlanMacro) (*domain.PlanMacro, error)
	GetByID(ctx context.Context, id primitive.ObjectID) (*domain.PlanMacro, error)
	ListByPlan(ctx context.Context, planID primitive.ObjectID) ([]domain.PlanMacro, error)
	Update(ctx context.Context, macro *domain.PlanMacro) error
	Delete(ctx context.Context, id primitive.ObjectID) error

	// RunForAppliedPlan executes one macro pass against the applied
	// plan. Invoked automatically after materialization and by the
	// scheduler; also exposed for manual triggering.
	RunForAppliedPlan(ctx context.Context, appliedPlanID primitive.ObjectID) ([]command.Result, error)
}

type macroService struct {
	macroRepo   repository.MacroRepository
	appliedRepo repository.AppliedPlanRepository
	executor    MassEditService
}

// NewMacroService creates a new macro rule engine.
func NewMacroService(
	macroRepo repository.MacroRepository,
	appliedRepo repository.AppliedPlanRepository,
	executor MassEditService,
) MacroService {
	return &macroService{
		macroRepo:   macroRepo,
		appliedRepo: appliedRepo,
		executor:    executor,
	}
}

// CompileMacro parses a macro body into an executable command.
func CompileMacro(macro *domain.PlanMacro) (*command.Command, error) {
	var cmd command.Command
	if err := json.Unmarshal([]byte(macro.Body), &cmd); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMacroBadCommand, err)
	}
	if err := cmd.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMacroBadCommand, err)
	}
	return &cmd, nil
}

func (s *macroService) Create(ctx context.Context, macro *domain.PlanMacro) (*domain.PlanMacro, error) {
	// A macro that cannot compile never reaches the store.
	if _, err := CompileMacro(macro); err != nil {
		return nil, err
	}
	id, err := s.macroRepo.Create(ctx, macro)
	if err != nil {
		return nil, err
	}
	macro.ID = id
	return macro, nil
}

func (s *macroService) GetByID(ctx context.Context, id primitive.ObjectID) (*domain.PlanMacro, error) {
	macro, err := s.macroRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrMacroNotFound
		}
		return nil, err
	}
	return macro, nil
}

func (s *macroService) ListByPlan(ctx context.Context, planID primitive.ObjectID) ([]domain.PlanMacro, error) {
	return s.macroRepo.ListByPlan(ctx, planID, false)
}

func (s *macroService) Update(ctx context.Context, macro *domain.PlanMacro) error {
	if _, err := CompileMacro(macro); err != nil {
		return err
	}
	err := s.macroRepo.Update(ctx, macro)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrMacroNotFound
	}
	return err
}

func (s *macroService) Delete(ctx context.Context, id primitive.ObjectID) error {
	err := s.macroRepo.Delete(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrMacroNotFound
	}
	return err
}

func (s *macroService) RunForAppliedPlan(ctx context.Context, appliedPlanID primitive.ObjectID) ([]command.Result, error) {
	applied, err := s.appliedRepo.GetByID(ctx, appliedPlanID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAppliedPlanNotFound
		}
		return nil, err
	}

	// ListByPlan returns macros already in execution order.
	macros, err := s.macroRepo.ListByPlan(ctx, applied.PlanID, true)
	if err != nil {
		return nil, err
	}

	cmds := make([]*command.Command, 0, len(macros))
	for _, macro := range macros {
		cmd, err := CompileMacro(&macro)
		if err != nil {
			// A macro that stopped compiling (schema drift) must not
			// block the rest of the pass.
			log.Printf("WARN: skipping macro %s (%s): %v", macro.Name, macro.ID.Hex(), err)
			continue
		}
		cmds = append(cmds, cmd)
	}
	if len(cmds) == 0 {
		return []command.Result{}, nil
	}
	return s.executor.ExecuteSequence(ctx, appliedPlanID, cmds)
}

// MacroScheduler drives periodic macro passes over every active
// applied plan.
type MacroScheduler struct {
	cron    *cron.Cron
	macros  MacroService
	applied repository.AppliedPlanRepository
}

// NewMacroScheduler creates a scheduler; Start registers the cron spec
// and begins ticking.
func NewMacroScheduler(macros MacroService, applied repository.AppliedPlanRepository) *MacroScheduler {
	return &MacroScheduler{
		cron:    cron.New(),
		macros:  macros,
		applied: applied,
	}
}

func (s *MacroScheduler) Start(spec string) error {
	_, err := s.cron.AddFunc(spec, s.runPass)
	if err != nil {
		return fmt.Errorf("invalid macro cron spec %q: %w", spec, err)
	}
	s.cron.Start()
	return nil
}

func (s *MacroScheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *MacroScheduler) runPass() {
	ctx := context.Background()
	plans, err := s.applied.ListActive(ctx)
	if err != nil {
		log.Printf("ERROR: macro pass: list active plans: %v", err)
		return
	}
	for _, plan := range plans {
		results, err := s.macros.RunForAppliedPlan(ctx, plan.ID)
		if err != nil {
			// A busy plan just catches the next tick.
			if errors.Is(err, ErrPlanBusy) {
				continue
			}
			log.Printf("ERROR: macro pass: plan %s: %v", plan.ID.Hex(), err)
			continue
		}
		for _, result := range results {
			if result.Updated > 0 {
				log.Printf("macro pass: plan %s: matched=%d updated=%d skipped=%d",
					plan.ID.Hex(), result.Matched, result.Updated, len(result.Skipped))
			}
		}
	}
}
