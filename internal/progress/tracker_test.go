package progress

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

const testEpsilon = 1e-9

// TestTrackerScenario mirrors the canonical nested-range walkthrough: set at
// the base frame, push [0.7,0.8], set inside it, pop, and finish.
func TestTrackerScenario(t *testing.T) {
	t.Parallel()

	tr := New()
	tr.Set(0.5)
	require.InDelta(t, 0.5, tr.True(), testEpsilon)

	require.NoError(t, tr.PushRange(0.7, 0.8))
	tr.Set(0.5)
	require.InDelta(t, 0.75, tr.True(), testEpsilon)

	require.NoError(t, tr.PopRange())
	tr.Set(0.9)
	require.InDelta(t, 0.9, tr.True(), testEpsilon)

	tr.Set(1.0)
	require.True(t, tr.Done())
}

// TestTrackerTranslation checks the affine mapping after nesting: pushing
// [lo,hi] from [L,U] yields absolute [L+(U-L)lo, L+(U-L)hi], and Set(x) lands
// at L+(U-L)(lo+(hi-lo)x).
func TestTrackerTranslation(t *testing.T) {
	t.Parallel()

	tr := New()
	require.NoError(t, tr.PushRange(0.2, 0.6)) // active [0.2,0.6]
	require.NoError(t, tr.PushRange(0.25, 0.75))
	// Child bounds through the parent: 0.2+0.4*0.25=0.3, 0.2+0.4*0.75=0.5.
	tr.Set(0.5)
	require.InDelta(t, 0.4, tr.True(), testEpsilon)

	snap := tr.Snap()
	require.InDelta(t, 0.3, snap.Lower, testEpsilon)
	require.InDelta(t, 0.5, snap.Upper, testEpsilon)
	require.Equal(t, 2, snap.Depth)
}

// TestTrackerLocalReadInvertsSet verifies Get is the algebraic inverse of Set
// for values inside and outside [0,1].
func TestTrackerLocalReadInvertsSet(t *testing.T) {
	t.Parallel()

	tr := New()
	require.NoError(t, tr.PushRange(0.1, 0.35))
	for _, x := range []float64{0, 0.25, 0.5, 1, 1.5, -0.2} {
		tr.Set(x)
		require.InDelta(t, x, tr.Get(), testEpsilon)
	}
}

// TestTrackerBalancedPushPopRoundTrip confirms balanced push/pop sequences
// leave both readings untouched when no Set happens in between.
func TestTrackerBalancedPushPopRoundTrip(t *testing.T) {
	t.Parallel()

	tr := NewAt(0.42)
	localBefore := tr.Get()
	trueBefore := tr.True()

	require.NoError(t, tr.PushRange(0.3, 0.9))
	require.NoError(t, tr.PushRange(0.1, 0.2))
	require.NoError(t, tr.PopRange())
	require.NoError(t, tr.PopRange())

	require.InDelta(t, localBefore, tr.Get(), testEpsilon)
	require.InDelta(t, trueBefore, tr.True(), testEpsilon)
	require.Equal(t, 0, tr.Depth())
}

// TestTrackerPushRangeValidation exercises every rejected bounds shape and
// asserts the tracker state is untouched afterwards.
func TestTrackerPushRangeValidation(t *testing.T) {
	t.Parallel()

	tr := NewAt(0.5)
	for _, bounds := range [][2]float64{
		{-0.1, 0.5},
		{0.5, 1.1},
		{-0.2, -0.1},
		{0.3, 0.2},
		{0.5, 0.5},
	} {
		err := tr.PushRange(bounds[0], bounds[1])
		require.ErrorIs(t, err, ErrInvalidArgument)
	}
	snap := tr.Snap()
	require.InDelta(t, 0.5, snap.True, testEpsilon)
	require.InDelta(t, 0.0, snap.Lower, testEpsilon)
	require.InDelta(t, 1.0, snap.Upper, testEpsilon)
	require.Equal(t, 0, snap.Depth)
}

// TestTrackerPopRangeUnderflow asserts popping the base frame fails without
// corrupting the active range.
func TestTrackerPopRangeUnderflow(t *testing.T) {
	t.Parallel()

	tr := New()
	require.ErrorIs(t, tr.PopRange(), ErrUnderflow)

	require.NoError(t, tr.PushRange(0.25, 0.5))
	require.NoError(t, tr.PopRange())
	require.ErrorIs(t, tr.PopRange(), ErrUnderflow)

	snap := tr.Snap()
	require.InDelta(t, 0.0, snap.Lower, testEpsilon)
	require.InDelta(t, 1.0, snap.Upper, testEpsilon)
}

// TestTrackerDoneBoundary verifies done detection tracks the configured
// tolerance without modifying the stored value.
func TestTrackerDoneBoundary(t *testing.T) {
	t.Parallel()

	tr := New(WithTolerance(0.05))
	tr.Set(0.96)
	require.True(t, tr.Done())
	require.InDelta(t, 0.96, tr.True(), testEpsilon)

	strict := New(WithTolerance(1e-12))
	strict.Set(0.96)
	require.False(t, strict.Done())
	strict.Set(1.0)
	require.True(t, strict.Done())
}

// TestTrackerSetDoneUnsafe confirms the escape hatch bypasses the active
// frame entirely.
func TestTrackerSetDoneUnsafe(t *testing.T) {
	t.Parallel()

	tr := New()
	require.NoError(t, tr.PushRange(0.1, 0.2))
	tr.SetDoneUnsafe()
	require.InDelta(t, 1.0, tr.True(), testEpsilon)
	require.True(t, tr.Done())
}

// TestTrackerOvershootIsObservable verifies values outside [0,1] survive Set
// and Percentage unclamped.
func TestTrackerOvershootIsObservable(t *testing.T) {
	t.Parallel()

	tr := New()
	tr.Set(1.2)
	require.InDelta(t, 1.2, tr.True(), testEpsilon)
	require.Equal(t, 120, tr.Percentage())
	require.True(t, tr.Done())
}

// TestTrackerPercentageRounds checks integer rounding of the percentage view.
func TestTrackerPercentageRounds(t *testing.T) {
	t.Parallel()

	tr := New()
	tr.Set(0.005)
	require.Equal(t, 1, tr.Percentage())
	tr.Set(0.004)
	require.Equal(t, 0, tr.Percentage())
	tr.Set(0.335)
	require.Equal(t, 34, tr.Percentage())
}

// TestSetToleranceGuard asserts the process-wide setter rejects implausibly
// large epsilons and applies valid ones.
func TestSetToleranceGuard(t *testing.T) {
	prev := Tolerance()
	defer func() {
		require.NoError(t, SetTolerance(prev))
	}()

	require.ErrorIs(t, SetTolerance(0.2), ErrInvalidArgument)
	require.InDelta(t, prev, Tolerance(), testEpsilon)

	require.NoError(t, SetTolerance(0.05))
	require.InDelta(t, 0.05, Tolerance(), testEpsilon)

	tr := New()
	tr.Set(0.97)
	require.True(t, tr.Done())
}

// TestTrackerConcurrentMutations hammers a tracker from several goroutines
// with balanced push/set/pop cycles and checks the end state is consistent:
// back at the base frame with a value inside [0,1].
func TestTrackerConcurrentMutations(t *testing.T) {
	t.Parallel()

	tr := New()
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				if err := tr.PushRange(0.25, 0.75); err != nil {
					continue
				}
				tr.Set(0.5)
				_ = tr.Get()
				_ = tr.PopRange()
			}
		}()
	}
	wg.Wait()

	snap := tr.Snap()
	require.Equal(t, 0, snap.Depth)
	require.GreaterOrEqual(t, snap.True, 0.0)
	require.LessOrEqual(t, snap.True, 1.0)
}

// TestTrackerEmitsEvents verifies each successful mutation publishes exactly
// one event (plus the DONE transition) in mutation order.
func TestTrackerEmitsEvents(t *testing.T) {
	t.Parallel()

	rec := &recordingEmitter{}
	id := [16]byte{1}
	tr := New(WithEmitter(id, rec))

	tr.Set(0.5)
	require.NoError(t, tr.PushRange(0.5, 1.0))
	tr.Set(1.0)
	require.NoError(t, tr.PopRange())

	stages := rec.Stages()
	require.Equal(t, []Stage{StageCreate, StageSet, StagePush, StageSet, StageDone, StagePop}, stages)
	for _, evt := range rec.Events() {
		require.NoError(t, evt.Validate())
		require.Equal(t, id, evt.TrackerID)
	}
}

// TestTrackerFailedMutationsEmitNothing asserts rejected calls stay silent.
func TestTrackerFailedMutationsEmitNothing(t *testing.T) {
	t.Parallel()

	rec := &recordingEmitter{}
	tr := New(WithEmitter([16]byte{2}, rec))

	require.Error(t, tr.PushRange(0.5, 0.5))
	require.Error(t, tr.PopRange())
	require.Equal(t, []Stage{StageCreate}, rec.Stages())
}

type recordingEmitter struct {
	mu     sync.Mutex
	events []Event
}

func (r *recordingEmitter) Emit(evt Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
}

func (r *recordingEmitter) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func (r *recordingEmitter) Stages() []Stage {
	stages := make([]Stage, 0)
	for _, evt := range r.Events() {
		stages = append(stages, evt.Stage)
	}
	return stages
}
