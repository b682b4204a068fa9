package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Kwak-Jiwon/detect-fakevoice/cmd"
	"github.com/Kwak-Jiwon/detect-fakevoice/internal/buildinfo"
	"github.com/Kwak-Jiwon/detect-fakevoice/internal/errors"
	"github.com/Kwak-Jiwon/detect-fakevoice/internal/logger"
)

// Set at build time with -ldflags "-X main.version=... -X main.buildDate=..."
var (
	version   = "dev"
	buildDate = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	info := buildinfo.NewContext(version, buildDate, buildinfo.DetectSystemID())
	rootCmd := cmd.RootCommand(info)

	err := rootCmd.ExecuteContext(ctx)

	errors.FlushTelemetry(2 * time.Second)
	if cerr := logger.Global().Close(); cerr != nil {
		fmt.Fprintf(os.Stderr, "failed to close log file: %v\n", cerr)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
