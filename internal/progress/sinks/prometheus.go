package sinks

import (
	"context"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kelvinho/progressd/internal/progress"
)

// PrometheusSink exports tracker progress metrics via Prometheus. It owns all
// collectors for the current fraction, frame depth, mutation counters, and
// completed trackers.
type PrometheusSink struct {
	fraction *prometheus.GaugeVec
	depth    *prometheus.GaugeVec
	sets     *prometheus.CounterVec
	pushes   *prometheus.CounterVec
	pops     *prometheus.CounterVec
	done     prometheus.Counter

	completed *completionGuard
}

// NewPrometheusSink registers the collectors against the provided registry.
func NewPrometheusSink(reg prometheus.Registerer) (*PrometheusSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PrometheusSink{
		fraction: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "progressd_tracker_fraction",
			Help: "Current absolute progress of each tracker in [0,1].",
		}, []string{"tracker"}),
		depth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "progressd_tracker_frame_depth",
			Help: "Frames pushed above the base frame per tracker.",
		}, []string{"tracker"}),
		sets: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "progressd_tracker_sets_total",
			Help: "Total Set calls per tracker.",
		}, []string{"tracker"}),
		pushes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "progressd_tracker_frames_pushed_total",
			Help: "Total range frames pushed per tracker.",
		}, []string{"tracker"}),
		pops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "progressd_tracker_frames_popped_total",
			Help: "Total range frames popped per tracker.",
		}, []string{"tracker"}),
		done: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "progressd_trackers_done_total",
			Help: "Trackers that have reached completion.",
		}),
		completed: newCompletionGuard(),
	}
	for _, collector := range []prometheus.Collector{
		s.fraction,
		s.depth,
		s.sets,
		s.pushes,
		s.pops,
		s.done,
	} {
		if err := reg.Register(collector); err != nil {
			return nil, fmt.Errorf("register progress collector: %w", err)
		}
	}
	return s, nil
}

// Consume updates the Prometheus collectors using the provided batch. It is
// safe for concurrent use by multiple goroutines.
func (s *PrometheusSink) Consume(_ context.Context, batch []progress.Event) error {
	for _, evt := range batch {
		s.consumeEvent(evt)
	}
	return nil
}

func (s *PrometheusSink) consumeEvent(evt progress.Event) {
	id := evt.TrackerUUID().String()
	s.fraction.WithLabelValues(id).Set(evt.True)
	s.depth.WithLabelValues(id).Set(float64(evt.Depth))
	switch evt.Stage {
	case progress.StageSet:
		s.sets.WithLabelValues(id).Inc()
	case progress.StagePush:
		s.pushes.WithLabelValues(id).Inc()
	case progress.StagePop:
		s.pops.WithLabelValues(id).Inc()
	case progress.StageDone, progress.StageDoneUnsafe:
		if s.completed.mark(evt.TrackerID) {
			s.done.Inc()
		}
	}
}

// Close implements the Sink interface; it performs no action.
func (s *PrometheusSink) Close(context.Context) error {
	return nil
}

// completionGuard ensures the done counter increments once per tracker even
// when completion events repeat (Set past 1.0 followed by SetDoneUnsafe).
type completionGuard struct {
	mu   sync.Mutex
	seen map[[16]byte]struct{}
}

func newCompletionGuard() *completionGuard {
	return &completionGuard{seen: make(map[[16]byte]struct{})}
}

func (g *completionGuard) mark(id [16]byte) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.seen[id]; ok {
		return false
	}
	g.seen[id] = struct{}{}
	return true
}
