package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kelvinho/progressd/internal/app"
	"github.com/kelvinho/progressd/internal/config"
)

// newServeCmd runs the HTTP service until interrupted.
func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the progressd HTTP service.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			a, err := app.Build(cfg)
			if err != nil {
				return fmt.Errorf("build app: %w", err)
			}
			return a.Run(cmd.Context())
		},
	}
}
