// Package cmd builds the detect-fakevoice command line.
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Kwak-Jiwon/detect-fakevoice/cmd/benchmark"
	"github.com/Kwak-Jiwon/detect-fakevoice/cmd/config"
	"github.com/Kwak-Jiwon/detect-fakevoice/cmd/features"
	"github.com/Kwak-Jiwon/detect-fakevoice/cmd/runs"
	"github.com/Kwak-Jiwon/detect-fakevoice/cmd/train"
	"github.com/Kwak-Jiwon/detect-fakevoice/cmd/version"
	"github.com/Kwak-Jiwon/detect-fakevoice/internal/buildinfo"
	"github.com/Kwak-Jiwon/detect-fakevoice/internal/conf"
	"github.com/Kwak-Jiwon/detect-fakevoice/internal/errors"
	"github.com/Kwak-Jiwon/detect-fakevoice/internal/logger"
)

// RootCommand creates the root command. Settings are filled in by the
// persistent pre-run hook, so subcommands share the pointer and read it in RunE.
func RootCommand(info *buildinfo.Context) *cobra.Command {
	settings := &conf.Settings{}
	var configFile string

	rootCmd := &cobra.Command{
		Use:           "fakevoice",
		Short:         "Train and run a real versus fake voice classifier",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to the config file")
	setupFlags(rootCmd)

	// version needs no configuration
	versionCmd := version.Command(info)

	rootCmd.AddCommand(
		train.Command(settings),
		features.Command(settings),
		benchmark.Command(settings),
		runs.Command(settings),
		config.Command(settings),
		versionCmd,
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		if cmd.Name() == versionCmd.Name() {
			return nil
		}
		return initialize(settings, configFile, info)
	}

	return rootCmd
}

// initialize loads the settings and sets up logging and error reporting.
func initialize(settings *conf.Settings, configFile string, info *buildinfo.Context) error {
	loaded, err := conf.Load(configFile)
	if err != nil {
		return err
	}
	*settings = *loaded

	if settings.Debug {
		settings.Logging.DefaultLevel = string(logger.LogLevelDebug)
		if settings.Logging.Console != nil {
			settings.Logging.Console.Level = string(logger.LogLevelDebug)
		}
	}
	cl, err := logger.NewCentralLogger(&settings.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	logger.SetGlobal(cl)

	if settings.Telemetry.SentryDSN != "" {
		if err := errors.InitSentry(settings.Telemetry.SentryDSN, info.Version(), info.SystemID()); err != nil {
			cl.Module("main").Warn("error reporting disabled", logger.Error(err))
		}
	}

	return nil
}

// setupFlags defines flags global to the command line interface and binds them
// to their configuration keys, so flags override the file and environment.
func setupFlags(rootCmd *cobra.Command) {
	flags := rootCmd.PersistentFlags()
	flags.BoolP("debug", "d", false, "Enable debug output")
	flags.String("root", "", "Folder holding the manifests and audio")
	flags.String("train", "", "Labelled manifest, relative to --root")
	flags.String("test", "", "Unlabelled manifest, relative to --root")
	flags.String("template", "", "Sample submission, relative to --root")
	flags.StringP("output", "o", "", "Submission file to write")
	flags.String("backbone", "", "Backbone: pooling, tflite, onnx or gorgonnx")
	flags.String("model", "", "Model file for the tflite, onnx and gorgonnx backbones")
	flags.String("device", "", "Device: auto, cpu, cuda or xnnpack")
	flags.Int("threads", 0, "Inference threads, 0 picks from the CPU topology")
	flags.Int("workers", 0, "Decode workers, 0 uses all CPUs")

	conf.MustBindFlags(flags, map[string]string{
		"debug":    "debug",
		"root":     "paths.root",
		"train":    "paths.train",
		"test":     "paths.test",
		"template": "paths.template",
		"output":   "paths.output",
		"backbone": "model.backbone",
		"model":    "model.path",
		"device":   "model.device",
		"threads":  "model.threads",
		"workers":  "features.workers",
	})
}
