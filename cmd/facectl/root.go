package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"FaceVision/internal/config"
	"FaceVision/internal/vision/provider"
	"FaceVision/pkg/log"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const Version = "0.1.0"

var (
	providerName string
	inferenceURL string
	cascadeFile  string
	timeout      time.Duration

	logger   *logrus.Logger
	detector provider.Provider
)

var rootCmd = &cobra.Command{
	Use:     "facectl",
	Short:   "Run face analysis on images and local cameras",
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger = log.NewLogger()
		logger.SetOutput(os.Stderr)

		env, err := config.LoadEnv()
		if err != nil {
			return fmt.Errorf("failed to load environment: %w", err)
		}

		cfg := provider.Config{
			Name:         env.DetectionProvider,
			InferenceURL: env.InferenceWSURL,
			GeminiAPIKey: env.GeminiAPIKey,
			GeminiModel:  env.GeminiModel,
			CascadeFile:  env.CascadeFile,
			MaxWidth:     env.ProviderMaxWidth,
		}
		if providerName != "" {
			cfg.Name = providerName
		}
		if inferenceURL != "" {
			cfg.InferenceURL = inferenceURL
		}
		if cascadeFile != "" {
			cfg.CascadeFile = cascadeFile
		}
		if timeout <= 0 {
			timeout = env.ProviderTimeout
		}

		detector, err = provider.New(cmd.Context(), cfg, logger)
		if err != nil {
			return fmt.Errorf("failed to create detection provider: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if detector != nil {
			if err := provider.Close(detector); err != nil {
				logger.Warnf("Failed to close detection provider: %v", err)
			}
		}
	},
}

func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&providerName, "provider", "p", "", "Detection provider: none, remote, gemini, cascade (default: DETECTION_PROVIDER)")
	rootCmd.PersistentFlags().StringVar(&inferenceURL, "inference-url", "", "Websocket URL of the remote inference service")
	rootCmd.PersistentFlags().StringVar(&cascadeFile, "cascade", "", "Haar cascade XML for the cascade provider")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 0, "Per-frame detection timeout (default: PROVIDER_TIMEOUT)")
}
