// File: internal/planner/planner.go
// Package planner runs the bounded iterative replanning loop: obtain a short
// plan, dispatch it, and whenever a step reports ambiguity, look at the
// screen, verify the goal, and plan again. Budgets make every execution
// terminate: a replan cap, a stuck detector, and the per-plan step cap.
package planner

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/screenpilot/api/schemas"
	"github.com/xkilldash9x/screenpilot/internal/config"
	"github.com/xkilldash9x/screenpilot/internal/memory"
)

// Planner implements schemas.Planner and owns the task state machine.
// One Planner instance serves one task execution; the replan counter and the
// trackers are not reusable across tasks.
type Planner struct {
	oracle   schemas.PerceptionOracle
	executor schemas.StepExecutor
	capture  schemas.CaptureProvider
	tracker  *memory.ActionTracker
	progress *memory.ProgressTracker
	cfg      config.EngineConfig
	display  int
	logger   *zap.Logger

	replanCount int
}

var _ schemas.Planner = (*Planner)(nil)

// NewPlanner wires a planner for a single task execution.
func NewPlanner(
	oracle schemas.PerceptionOracle,
	executor schemas.StepExecutor,
	capture schemas.CaptureProvider,
	tracker *memory.ActionTracker,
	cfg config.EngineConfig,
	displayIndex int,
	logger *zap.Logger,
) *Planner {
	return &Planner{
		oracle:   oracle,
		executor: executor,
		capture:  capture,
		tracker:  tracker,
		progress: memory.NewProgressTracker(cfg.StuckThreshold, logger),
		cfg:      cfg,
		display:  displayIndex,
		logger:   logger.Named("planner"),
	}
}

// Replans returns how many replans this task has consumed.
func (p *Planner) Replans() int {
	return p.replanCount
}

// CreateInitialPlan asks for the opening moves before anything is on screen.
func (p *Planner) CreateInitialPlan(ctx context.Context, goal string) (schemas.Plan, error) {
	reply, err := p.oracle.Query(ctx, initialPlanPrompt(goal))
	if err != nil {
		return schemas.Plan{}, fmt.Errorf("initial planning query failed: %w", err)
	}

	plan, err := ParsePlan(reply, p.cfg.MaxStepsPerPlan)
	if err != nil {
		return schemas.Plan{}, err
	}
	if plan.Goal == "" {
		plan.Goal = goal
	}
	p.logger.Info("Initial plan created",
		zap.String("goal", plan.Goal), zap.Int("steps", len(plan.Steps)))
	return plan, nil
}

// Replan requests a fresh bounded plan from the current screenshot. Once the
// budget is spent it deterministically returns an empty plan instead of an
// error; the caller maps that onto BUDGET_EXHAUSTED.
func (p *Planner) Replan(ctx context.Context, capture schemas.Capture, goal, currentState string, stepsDone []string) (schemas.Plan, error) {
	p.replanCount++
	if p.replanCount > p.cfg.MaxReplans {
		p.logger.Error("Replan budget exhausted", zap.Int("max", p.cfg.MaxReplans))
		return schemas.Plan{Goal: goal}, nil
	}

	p.logger.Info("Replanning",
		zap.Int("replan", p.replanCount), zap.Int("max", p.cfg.MaxReplans))

	prompt := replanPrompt(goal, currentState, stepsDone, p.tracker.HistoryText())
	reply, err := p.oracle.QueryImage(ctx, prompt, capture.Path)
	if err != nil {
		return schemas.Plan{}, fmt.Errorf("replanning query failed: %w", err)
	}

	plan, err := ParsePlan(reply, p.cfg.MaxStepsPerPlan)
	if err != nil {
		return schemas.Plan{}, err
	}
	if plan.Goal == "" {
		plan.Goal = goal
	}
	p.logger.Info("New plan created", zap.Int("steps", len(plan.Steps)))
	return plan, nil
}

// verify captures nothing itself; it asks the oracle whether the goal is
// visibly met on the given capture.
func (p *Planner) verify(ctx context.Context, capture schemas.Capture, goal string) (Verification, error) {
	reply, err := p.oracle.QueryImage(ctx, verificationPrompt(goal), capture.Path)
	if err != nil {
		return Verification{}, fmt.Errorf("verification query failed: %w", err)
	}
	return ParseVerification(reply), nil
}

// Run executes one task to a terminal state. Expected failures travel as
// ActionResult data; only collaborator crashes produce FAILED.
func (p *Planner) Run(ctx context.Context, goal string) schemas.TaskResult {
	p.logger.Info("Task started", zap.String("goal", goal))

	plan, err := p.CreateInitialPlan(ctx, goal)
	if err != nil {
		return p.failed(fmt.Sprintf("initial planning failed: %v", err))
	}

	steps := plan.Steps
	var stepsDone []string
	var display *schemas.Display

	for {
		if err := ctx.Err(); err != nil {
			return p.failed(fmt.Sprintf("task canceled: %v", err))
		}

		// EXECUTING: dispatch the plan strictly in order. A replan replaces
		// only the tail that never ran; stepsDone is append-only. A finished
		// plan is verified the same way as an interrupted one.
		for _, step := range steps {
			if err := ctx.Err(); err != nil {
				return p.failed(fmt.Sprintf("task canceled: %v", err))
			}
			res := p.executor.ExecuteStep(ctx, step, display)
			if res.Success {
				stepsDone = append(stepsDone, res.Result)
				continue
			}
			if res.NeedsReplan {
				p.logger.Warn("Step requested replan",
					zap.String("action", string(step.Action)),
					zap.String("result", res.Result))
				break
			}
			return p.failed(fmt.Sprintf("unrecoverable step failure: %s", res.Result))
		}

		// VERIFYING: look at the screen and ask whether the goal is met.
		capture, err := p.capture.CaptureDisplay(ctx, p.display)
		if err != nil {
			return p.failed(fmt.Sprintf("verification capture failed: %v", err))
		}
		display = &capture.Display

		verification, err := p.verify(ctx, capture, goal)
		if err != nil {
			return p.failed(fmt.Sprintf("verification failed: %v", err))
		}
		p.logger.Info("Verification",
			zap.Bool("completed", verification.Completed),
			zap.String("explanation", verification.Explanation))

		if verification.Completed {
			return schemas.TaskResult{
				State:   schemas.StateDone,
				Summary: verification.Explanation,
				Replans: p.replanCount,
			}
		}

		// The stuck check runs before any further planning so a looping task
		// never consumes another replan.
		if !p.progress.Update(verification.Explanation) {
			return schemas.TaskResult{
				State:   schemas.StateStuck,
				Summary: fmt.Sprintf("no progress after %d identical observations: %s", p.cfg.StuckThreshold, verification.Explanation),
				Replans: p.replanCount,
			}
		}

		// REPLANNING.
		currentState := verification.Explanation
		if verification.NextElement != "" {
			currentState += "\nSuggested next element: " + verification.NextElement
		}
		plan, err = p.Replan(ctx, capture, goal, currentState, stepsDone)
		if err != nil {
			return p.failed(fmt.Sprintf("replanning failed: %v", err))
		}
		if p.replanCount > p.cfg.MaxReplans {
			return schemas.TaskResult{
				State:   schemas.StateBudget,
				Summary: fmt.Sprintf("replan budget of %d exhausted", p.cfg.MaxReplans),
				Replans: p.replanCount,
			}
		}
		if len(plan.Steps) == 0 {
			// An empty plan with budget remaining is the model saying the
			// goal is already achieved.
			return schemas.TaskResult{
				State:   schemas.StateDone,
				Summary: "planner returned an empty plan: goal reached",
				Replans: p.replanCount,
			}
		}
		steps = plan.Steps
	}
}

func (p *Planner) failed(summary string) schemas.TaskResult {
	p.logger.Error("Task failed", zap.String("summary", summary))
	return schemas.TaskResult{
		State:   schemas.StateFailed,
		Summary: summary,
		Replans: p.replanCount,
	}
}
