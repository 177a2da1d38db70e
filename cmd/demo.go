package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/kelvinho/progressd/internal/config"
	"github.com/kelvinho/progressd/internal/logging"
	"github.com/kelvinho/progressd/internal/progress"
	"github.com/kelvinho/progressd/internal/render"
	"github.com/kelvinho/progressd/internal/simulate"
)

// newDemoCmd runs the built-in nested workload against a local tracker while
// the console monitor repaints the bar.
func newDemoCmd() *cobra.Command {
	var scaleMs int
	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run a simulated nested workload with a live console bar.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger, err := logging.New(cfg.Logging.Development)
			if err != nil {
				return fmt.Errorf("build logger: %w", err)
			}
			defer logger.Sync() //nolint:errcheck // best-effort flush
			if err := progress.SetTolerance(cfg.Tracker.Tolerance); err != nil {
				return fmt.Errorf("apply tolerance: %w", err)
			}

			tracker := progress.New()
			monitor, err := render.NewMonitor(tracker, render.MonitorOptions{
				Output:   cmd.OutOrStdout(),
				Width:    cfg.Display.Width,
				Interval: cfg.PollInterval(),
			})
			if err != nil {
				return fmt.Errorf("build monitor: %w", err)
			}

			scale := time.Duration(scaleMs) * time.Millisecond
			g, ctx := errgroup.WithContext(cmd.Context())
			g.Go(func() error {
				return simulate.NewRunner(logger).Run(ctx, tracker, simulate.DefaultPlan(scale))
			})
			g.Go(func() error {
				return monitor.Run(ctx)
			})
			return g.Wait()
		},
	}
	cmd.Flags().IntVar(&scaleMs, "scale-ms", 200, "base step duration in milliseconds")
	return cmd
}
