package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"FaceVision/internal/entity"
	"FaceVision/internal/vision/analyzer"
	"FaceVision/internal/vision/capture"
	"FaceVision/internal/vision/render"
	"github.com/spf13/cobra"
)

var (
	cameraDevice   int
	cameraWidth    int
	cameraHeight   int
	cameraType     string
	cameraFPS      int
	cameraDuration time.Duration
	cameraOutDir   string
)

var cameraCmd = &cobra.Command{
	Use:   "camera",
	Short: "Analyse a local camera continuously",
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		src := capture.NewDevice(cameraDevice, cameraWidth, cameraHeight)
		return runCamera(cmd.Context(), cmd.OutOrStdout(), detector, src)
	},
}

func init() {
	cameraCmd.Flags().IntVarP(&cameraDevice, "device", "d", 0, "Camera device index")
	cameraCmd.Flags().IntVar(&cameraWidth, "width", 640, "Requested capture width")
	cameraCmd.Flags().IntVar(&cameraHeight, "height", 480, "Requested capture height")
	cameraCmd.Flags().StringVarP(&cameraType, "type", "t", string(entity.AnalysisFace), "Analysis type: face, group, crowd")
	cameraCmd.Flags().IntVar(&cameraFPS, "fps", analyzer.DefaultFPS, "Analysis rate in frames per second")
	cameraCmd.Flags().DurationVar(&cameraDuration, "duration", 0, "Stop after this long (default: until interrupted)")
	cameraCmd.Flags().StringVarP(&cameraOutDir, "out-dir", "o", "", "Write one overlay PNG per analysed frame into this directory")
	rootCmd.AddCommand(cameraCmd)
}

func runCamera(ctx context.Context, out io.Writer, det analyzer.Detector, src capture.Source) error {
	if cameraOutDir != "" {
		if err := os.MkdirAll(cameraOutDir, 0o755); err != nil {
			return err
		}
	}

	renderer, err := render.New(entity.Size{}, render.DefaultStyle())
	if err != nil {
		return err
	}

	sink := analyzer.SinkFunc(func(frame entity.Frame, detections []entity.Detection) {
		renderer.Present(frame, detections)
		fmt.Fprintf(out, "frame %d: %d face(s)\n", frame.Seq, len(detections))

		if cameraOutDir == "" {
			return
		}
		path := filepath.Join(cameraOutDir, fmt.Sprintf("frame-%06d.png", frame.Seq))
		if err := writeOverlay(renderer, path); err != nil {
			logger.Warnf("Failed to write overlay %s: %v", path, err)
		}
	})

	loop := analyzer.New(det, logger, analyzer.WithFPS(cameraFPS), analyzer.WithTimeout(timeout))
	if err := loop.Start(ctx, cameraType, src, sink); err != nil {
		return err
	}

	var deadline <-chan time.Time
	if cameraDuration > 0 {
		timer := time.NewTimer(cameraDuration)
		defer timer.Stop()
		deadline = timer.C
	}

	select {
	case <-ctx.Done():
	case <-deadline:
	}

	if err := loop.Stop(); err != nil {
		return err
	}

	stats := loop.Stats()
	fmt.Fprintf(out, "analysed %d frame(s), dropped %d tick(s), %d failure(s)\n", stats.Presented, stats.Dropped, stats.Failed)
	return nil
}
