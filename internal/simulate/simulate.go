// Package simulate drives a tracker through a weighted tree of nested steps.
// It exists for demos and load tests: each step claims its proportional
// sub-range of the parent frame, reports local progress inside it, and
// restores the parent on completion.
package simulate

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kelvinho/progressd/internal/progress"
)

// leafSlices is how many Set increments a leaf step reports.
const leafSlices = 5

// Step is one node of a plan. Weight is the step's share of its parent's
// range relative to its siblings. Leaf steps sleep Duration spread across
// their increments; branch steps derive their progress from their children.
type Step struct {
	Name     string
	Weight   float64
	Duration time.Duration
	Children []Step
}

// Runner executes plans against a tracker.
type Runner struct {
	logger *zap.Logger
}

// NewRunner creates a Runner; a nil logger is replaced with a no-op.
func NewRunner(logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{logger: logger}
}

// Run walks the plan depth-first, pushing each step's sub-range before
// descending and popping it after. The tracker finishes at 1.0 with the base
// frame active. Run stops early with ctx.Err() when the context is canceled.
func (r *Runner) Run(ctx context.Context, tracker *progress.Tracker, plan []Step) error {
	if err := validate(plan); err != nil {
		return err
	}
	if err := r.runLevel(ctx, tracker, plan); err != nil {
		return err
	}
	tracker.Set(1.0)
	return nil
}

func (r *Runner) runLevel(ctx context.Context, tracker *progress.Tracker, steps []Step) error {
	var total float64
	for _, step := range steps {
		total += step.Weight
	}
	var acc float64
	for _, step := range steps {
		lower := acc / total
		acc += step.Weight
		upper := acc / total
		if err := tracker.PushRange(lower, upper); err != nil {
			return fmt.Errorf("enter step %q: %w", step.Name, err)
		}
		err := r.runStep(ctx, tracker, step)
		if err == nil {
			tracker.Set(1.0)
		}
		if popErr := tracker.PopRange(); popErr != nil && err == nil {
			err = fmt.Errorf("leave step %q: %w", step.Name, popErr)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) runStep(ctx context.Context, tracker *progress.Tracker, step Step) error {
	r.logger.Debug("step started", zap.String("step", step.Name))
	if len(step.Children) > 0 {
		return r.runLevel(ctx, tracker, step.Children)
	}
	slice := step.Duration / leafSlices
	for i := 1; i <= leafSlices; i++ {
		if err := sleep(ctx, slice); err != nil {
			return err
		}
		tracker.Set(float64(i) / leafSlices)
	}
	r.logger.Debug("step finished", zap.String("step", step.Name))
	return nil
}

func validate(steps []Step) error {
	if len(steps) == 0 {
		return fmt.Errorf("%w: plan has no steps", progress.ErrInvalidArgument)
	}
	for _, step := range steps {
		if step.Weight <= 0 {
			return fmt.Errorf("%w: step %q weight must be > 0", progress.ErrInvalidArgument, step.Name)
		}
		if len(step.Children) > 0 {
			if err := validate(step.Children); err != nil {
				return err
			}
		}
	}
	return nil
}

// sleep waits for d or until ctx is canceled.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// DefaultPlan is the demo workload: three phases, the first split into
// nested sub-steps the way real pipelines are.
func DefaultPlan(scale time.Duration) []Step {
	return []Step{
		{
			Name:   "prepare",
			Weight: 5,
			Children: []Step{
				{Name: "resolve", Weight: 2, Duration: scale},
				{Name: "fetch", Weight: 5, Duration: 3 * scale},
				{Name: "verify", Weight: 3, Duration: scale},
			},
		},
		{Name: "apply", Weight: 3, Duration: 2 * scale},
		{Name: "finalize", Weight: 2, Duration: scale},
	}
}
