package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ChartSense/internal/capture"
	applogger "ChartSense/pkg/logger"

	"github.com/spf13/cobra"
)

func main() {
	var (
		cfg     capture.Config
		file    string
		display int
		level   string
	)

	root := &cobra.Command{
		Use:          "capture",
		Short:        "Stream screen or file frames to a ChartSense server and print overlays",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			l, err := applogger.New(&applogger.Config{Level: level, Format: "console", Output: "stderr"})
			if err != nil {
				return err
			}

			var src capture.Source = capture.ScreenSource{Display: display}
			if file != "" {
				fs, err := capture.NewFileSource(file)
				if err != nil {
					return err
				}
				src = fs
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return capture.NewClient(cfg, src, cmd.OutOrStdout(), l).Run(ctx)
		},
	}

	f := root.Flags()
	f.StringVar(&cfg.URL, "url", "ws://localhost:8000/ws", "server WebSocket URL")
	f.StringVar(&cfg.UserID, "user", "", "user id sent with each frame")
	f.DurationVar(&cfg.Interval, "interval", time.Second, "time between frames")
	f.IntVar(&cfg.Count, "count", 0, "stop after this many answered frames (0 = forever)")
	f.DurationVar(&cfg.MaxRetry, "max-retry", 0, "give up reconnecting after this long (0 = never)")
	f.StringVar(&file, "file", "", "send this image instead of the screen")
	f.IntVar(&display, "display", 0, "display index to capture")
	f.StringVar(&level, "log-level", "info", "log level")

	if err := root.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
