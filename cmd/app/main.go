package main

import (
	"context"
	"fmt"
	"os"

	"ChartSense/internal/di"
	"ChartSense/pkg/config"

	"github.com/spf13/cobra"
)

func main() {
	var configPath string

	root := &cobra.Command{
		Use:          "chartsense",
		Short:        "Chart frame analysis over WebSocket",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadWithEnv(configPath)
			if err != nil {
				return fmt.Errorf("config load failed: %w", err)
			}

			// Wire DI: Initialize all dependencies
			app, cleanup, err := di.InitializeApp(cfg)
			if err != nil {
				return fmt.Errorf("app initialization failed: %w", err)
			}
			defer cleanup()

			// Run application (blocks until signal)
			return app.Run(cmd.Context())
		},
	}
	root.Flags().StringVar(&configPath, "config", "config/config.yaml", "config file path")

	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
