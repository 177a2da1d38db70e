package progress

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"
)

// Sentinel errors returned by tracker operations. Callers match them with
// errors.Is; the wrapped message carries the offending values.
var (
	// ErrInvalidArgument covers range bounds outside [0,1], an inverted or
	// empty range on PushRange, and a tolerance above 0.1 on SetTolerance.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrUnderflow is returned by PopRange when only the base frame remains.
	ErrUnderflow = errors.New("range stack underflow")
)

// DefaultTolerance is the epsilon used for done detection unless overridden.
const DefaultTolerance = 1e-12

// The shared tolerance applies to every tracker that does not carry its own.
// It is process-wide mutable configuration; set it once at startup.
var (
	toleranceMu sync.RWMutex
	tolerance   = DefaultTolerance
)

// Tolerance returns the process-wide done-detection epsilon.
func Tolerance() float64 {
	toleranceMu.RLock()
	defer toleranceMu.RUnlock()
	return tolerance
}

// SetTolerance replaces the process-wide epsilon for all trackers. Values
// above 0.1 are rejected: the tolerance is meant to be a positive number very
// close to zero, and anything larger almost certainly indicates a mistake.
func SetTolerance(t float64) error {
	if t > 0.1 {
		return fmt.Errorf("%w: tolerance %v exceeds 0.1", ErrInvalidArgument, t)
	}
	toleranceMu.Lock()
	defer toleranceMu.Unlock()
	tolerance = t
	return nil
}

// frame is one saved absolute [lower,upper] interval on the range stack.
type frame struct {
	lower float64
	upper float64
}

// Tracker translates between local (range-relative) and true (absolute)
// progress values. All mutating and reading methods are individually atomic
// under a single mutex; there is no transaction spanning multiple calls, so a
// reader between another goroutine's PushRange and its first Set observes the
// new frame with whatever value is current. That is the documented tradeoff,
// not a bug.
type Tracker struct {
	mu     sync.Mutex
	value  float64 // absolute, conceptually in [0,1], never clamped
	lower  float64
	upper  float64
	frames []frame // saved parent frames, innermost last

	// tol < 0 means "use the shared process-wide tolerance".
	tol float64

	id      [16]byte
	emitter Emitter
}

// Option customizes a Tracker at construction.
type Option func(*Tracker)

// WithTolerance gives the tracker its own done-detection epsilon, decoupling
// it from the process-wide value.
func WithTolerance(t float64) Option {
	return func(tr *Tracker) { tr.tol = t }
}

// WithEmitter attaches an event emitter; every successful mutating call then
// publishes one Event tagged with the supplied tracker ID.
func WithEmitter(id [16]byte, e Emitter) Option {
	return func(tr *Tracker) {
		tr.id = id
		tr.emitter = e
	}
}

// New creates a Tracker at progress 0 with the base frame [0,1] active.
func New(opts ...Option) *Tracker {
	return NewAt(0, opts...)
}

// NewAt creates a Tracker whose absolute progress starts at initial. The base
// frame [0,1] is active, so initial is interpreted globally.
func NewAt(initial float64, opts ...Option) *Tracker {
	t := &Tracker{
		value: initial,
		lower: 0,
		upper: 1,
		tol:   -1,
	}
	for _, opt := range opts {
		opt(t)
	}
	t.mu.Lock()
	t.emit(StageCreate, initial)
	t.mu.Unlock()
	return t
}

// trueValue maps a local value through the active frame. Callers hold mu.
func (t *Tracker) trueValue(local float64) float64 {
	return t.lower + (t.upper-t.lower)*local
}

// localValue is the algebraic inverse of trueValue. Callers hold mu. The
// divisor cannot be zero because PushRange rejects lower >= upper.
func (t *Tracker) localValue(abs float64) float64 {
	return (abs - t.lower) / (t.upper - t.lower)
}

// Set stores local, translated through the active frame, as the absolute
// value. No clamping is applied: callers may pass values outside [0,1] so that
// transient overshoot remains observable.
func (t *Tracker) Set(local float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	wasDone := t.done()
	t.value = t.trueValue(local)
	t.emit(StageSet, local)
	if !wasDone && t.done() {
		t.emit(StageDone, local)
	}
}

// Get returns the progress relative to the active frame.
func (t *Tracker) Get() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.localValue(t.value)
}

// True returns the absolute progress regardless of the active frame.
func (t *Tracker) True() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.value
}

// SetDoneUnsafe forces the absolute value to 1.0, bypassing range translation.
// It ignores the active frame entirely, which is almost never what a sub-task
// should do; prefer Set(1) followed by PopRange. It exists as an escape hatch
// for owners that know the whole task is finished.
func (t *Tracker) SetDoneUnsafe() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.value = 1.0
	t.emit(StageDoneUnsafe, 1.0)
}

// Done reports whether the absolute value has reached 1.0 within tolerance.
func (t *Tracker) Done() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.done()
}

// done is the lock-free core of Done. Callers hold mu.
func (t *Tracker) done() bool {
	eps := t.tol
	if eps < 0 {
		eps = Tolerance()
	}
	return t.value >= 1.0-eps
}

// PushRange enters a child frame. The supplied bounds are local to the active
// frame; their absolute equivalents are computed once here and stay cached
// until the matching PopRange. On error the tracker state is unchanged.
func (t *Tracker) PushRange(lower, upper float64) error {
	if lower < 0 || lower > 1 || upper < 0 || upper > 1 {
		return fmt.Errorf("%w: bounds [%v,%v] must lie within [0,1]", ErrInvalidArgument, lower, upper)
	}
	if lower >= upper {
		return fmt.Errorf("%w: lower bound %v must be below upper bound %v", ErrInvalidArgument, lower, upper)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.frames = append(t.frames, frame{lower: t.lower, upper: t.upper})
	absLower := t.trueValue(lower)
	absUpper := t.trueValue(upper)
	t.lower = absLower
	t.upper = absUpper
	t.emit(StagePush, lower)
	return nil
}

// PopRange restores the parent frame saved by the matching PushRange. Popping
// past the base frame returns ErrUnderflow and leaves the tracker unchanged.
func (t *Tracker) PopRange() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.frames) == 0 {
		return fmt.Errorf("%w: only the base frame remains", ErrUnderflow)
	}
	top := t.frames[len(t.frames)-1]
	t.frames = t.frames[:len(t.frames)-1]
	t.lower = top.lower
	t.upper = top.upper
	t.emit(StagePop, t.localValue(t.value))
	return nil
}

// Percentage returns the absolute progress as a rounded integer percentage.
// It is not clamped to [0,100] if the value overshoots.
func (t *Tracker) Percentage() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return percent(t.value)
}

// Depth returns the number of frames pushed above the base frame.
func (t *Tracker) Depth() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.frames)
}

// Snapshot is a consistent point-in-time view of a tracker, taken under the
// same mutex as the mutating calls.
type Snapshot struct {
	True    float64
	Local   float64
	Lower   float64
	Upper   float64
	Percent int
	Depth   int
	Done    bool
}

// Snap captures the current state in one critical section so composite readers
// (the HTTP API, the console monitor) never observe a half-updated range.
func (t *Tracker) Snap() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Snapshot{
		True:    t.value,
		Local:   t.localValue(t.value),
		Lower:   t.lower,
		Upper:   t.upper,
		Percent: percent(t.value),
		Depth:   len(t.frames),
		Done:    t.done(),
	}
}

func percent(value float64) int {
	return int(math.Round(value * 100))
}

// emit publishes an Event for the mutation that just applied. Callers hold mu;
// Hub.Emit never blocks, so holding the lock here keeps event order identical
// to mutation order without risking a stall.
func (t *Tracker) emit(stage Stage, local float64) {
	if t.emitter == nil {
		return
	}
	t.emitter.Emit(Event{
		TrackerID: t.id,
		TS:        time.Now().UTC(),
		Stage:     stage,
		Local:     local,
		True:      t.value,
		Percent:   percent(t.value),
		Depth:     len(t.frames),
	})
}
