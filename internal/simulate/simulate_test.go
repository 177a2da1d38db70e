package simulate

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kelvinho/progressd/internal/progress"
)

// TestRunnerCompletesPlan verifies a nested plan drives the tracker to done
// with the base frame restored.
func TestRunnerCompletesPlan(t *testing.T) {
	t.Parallel()

	tr := progress.New()
	runner := NewRunner(nil)
	require.NoError(t, runner.Run(context.Background(), tr, DefaultPlan(0)))

	require.True(t, tr.Done())
	require.Equal(t, 0, tr.Depth())
	require.InDelta(t, 1.0, tr.True(), 1e-9)
}

// TestRunnerProgressIsMonotonic samples the tracker while a plan runs and
// asserts the absolute value never goes backwards.
func TestRunnerProgressIsMonotonic(t *testing.T) {
	t.Parallel()

	tr := progress.New()
	runner := NewRunner(nil)

	done := make(chan error, 1)
	go func() {
		done <- runner.Run(context.Background(), tr, DefaultPlan(2*time.Millisecond))
	}()

	last := tr.True()
	for {
		select {
		case err := <-done:
			require.NoError(t, err)
			require.True(t, tr.Done())
			return
		default:
			cur := tr.True()
			require.GreaterOrEqual(t, cur, last)
			last = cur
			time.Sleep(time.Millisecond)
		}
	}
}

// TestRunnerCancellation stops mid-plan and reports the context error.
func TestRunnerCancellation(t *testing.T) {
	t.Parallel()

	tr := progress.New()
	runner := NewRunner(nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := runner.Run(ctx, tr, DefaultPlan(time.Hour))
	require.ErrorIs(t, err, context.Canceled)
	require.False(t, tr.Done())
}

// TestRunnerRejectsBadPlans covers empty plans and non-positive weights.
func TestRunnerRejectsBadPlans(t *testing.T) {
	t.Parallel()

	runner := NewRunner(nil)
	tr := progress.New()

	require.ErrorIs(t, runner.Run(context.Background(), tr, nil), progress.ErrInvalidArgument)
	require.ErrorIs(t, runner.Run(context.Background(), tr,
		[]Step{{Name: "bad", Weight: 0}}), progress.ErrInvalidArgument)
	require.ErrorIs(t, runner.Run(context.Background(), tr,
		[]Step{{Name: "parent", Weight: 1, Children: []Step{{Name: "bad", Weight: -1}}}}),
		progress.ErrInvalidArgument)
}
