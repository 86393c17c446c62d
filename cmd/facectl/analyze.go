package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"FaceVision/internal/entity"
	"FaceVision/internal/vision/analyzer"
	"FaceVision/internal/vision/capture"
	"FaceVision/internal/vision/render"
	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
)

var (
	analyzeType string
	analyzeOut  string
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <image>",
	Short: "Analyse one JPEG or PNG image and print the detected faces as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cmd.SilenceUsage = true
		return runAnalyze(cmd.Context(), cmd.OutOrStdout(), detector, args[0], analyzeType, analyzeOut)
	},
}

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeType, "type", "t", string(entity.AnalysisFace), "Analysis type: face, group, crowd")
	analyzeCmd.Flags().StringVarP(&analyzeOut, "out", "o", "", "Write the rendered overlay PNG to this path")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(ctx context.Context, out io.Writer, det analyzer.Detector, path, category, overlayPath string) error {
	if _, err := entity.ParseAnalysisType(category); err != nil {
		return fmt.Errorf("%w: %q", err, category)
	}

	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	src := capture.NewStatic()
	if err := src.Load(f); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}

	renderer, err := render.New(entity.Size{}, render.DefaultStyle())
	if err != nil {
		return err
	}

	loop := analyzer.New(det, logger, analyzer.WithTimeout(timeout))
	detections, err := loop.AnalyzeOnce(ctx, category, src, renderer)
	if err != nil {
		return err
	}
	if detections == nil {
		detections = []entity.Detection{}
	}

	enc := jsoniter.ConfigCompatibleWithStandardLibrary.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(detections); err != nil {
		return err
	}

	if overlayPath == "" {
		return nil
	}
	return writeOverlay(renderer, overlayPath)
}

func writeOverlay(renderer *render.Renderer, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := renderer.EncodePNG(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
