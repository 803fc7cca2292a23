package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"franz/internal/capture"
	"franz/internal/imaging"
	"franz/internal/platform"
)

func newCaptureCommand(ctx *commandContext) *cobra.Command {
	var out string

	cmd := &cobra.Command{
		Use:   "capture",
		Short: "Capture one frame as the model would see it",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, logger, err := ctx.ensure()
			if err != nil {
				return err
			}
			cfg := mgr.Get()

			b, err := platform.Load()
			if err != nil {
				return err
			}
			b.EnableDPIAwareness(logger)
			screen := b.ScreenSize()

			frame, err := capture.New(b).Capture(screen.Width, screen.Height)
			if err != nil {
				return err
			}
			small, err := imaging.Downsample(frame, cfg.Perception.Width, cfg.Perception.Height)
			if err != nil {
				return err
			}
			png, err := imaging.EncodePNG(small)
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, png, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Captured %dx%d, wrote %dx%d PNG (%d bytes) to %s\n",
				screen.Width, screen.Height, small.Width, small.Height, len(png), out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "frame.png", "Output PNG path")
	return cmd
}
