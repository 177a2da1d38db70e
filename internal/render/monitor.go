package render

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

// MonitorOptions configures a Monitor.
type MonitorOptions struct {
	// Output is where repaints are written. Default: os.Stdout.
	Output io.Writer

	// Width is the total bar width. Default: DefaultWidth.
	Width int

	// Interval is the poll interval between completion checks.
	// Default: 50ms.
	Interval time.Duration
}

// Monitor is the presentation-layer polling consumer: it watches a tracker's
// read-only surface and reprints the rendered bar whenever the displayed
// percentage changes, until the tracker reports done or ctx is canceled. It is
// not part of the tracker's correctness contract.
type Monitor struct {
	tracker Observable
	opts    MonitorOptions
	clear   string
}

// Observable is the read-only tracker surface the monitor consumes.
type Observable interface {
	True() float64
	Percentage() int
	Done() bool
}

// NewMonitor validates the width eagerly so a misconfigured monitor fails at
// construction rather than mid-loop.
func NewMonitor(tracker Observable, opts MonitorOptions) (*Monitor, error) {
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.Width == 0 {
		opts.Width = DefaultWidth
	}
	if opts.Interval <= 0 {
		opts.Interval = 50 * time.Millisecond
	}
	if _, err := Bar(0, opts.Width); err != nil {
		return nil, err
	}
	return &Monitor{
		tracker: tracker,
		opts:    opts,
		clear:   "\r" + strings.Repeat(" ", opts.Width+20),
	}, nil
}

// Run blocks until the tracker is done or ctx is canceled. It paints the
// current state immediately, then repaints only when the integer percentage
// changes, and finishes with a final 100% frame on completion.
func (m *Monitor) Run(ctx context.Context) error {
	last := m.tracker.Percentage()
	m.paint(last)

	ticker := time.NewTicker(m.opts.Interval)
	defer ticker.Stop()
	for {
		if m.tracker.Done() {
			m.paint(100)
			fmt.Fprintln(m.opts.Output)
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if pct := m.tracker.Percentage(); pct != last {
				last = pct
				m.paint(pct)
			}
		}
	}
}

func (m *Monitor) paint(pct int) {
	// Width was validated at construction; ignore the impossible error.
	bar, _ := Bar(m.tracker.True(), m.opts.Width)
	fmt.Fprint(m.opts.Output, m.clear)
	fmt.Fprintf(m.opts.Output, "\rProgress: %s - %d%%", bar, pct)
}
