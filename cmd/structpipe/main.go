// Command structpipe is the structural MRI pipeline driver.
//
// It parses flags, validates configuration and paths, and either runs
// system diagnostics (--check) or the per-subject processing batch
// (bet → fast → fslstats, optional recon-all).
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/backmassage/structpipe/internal/check"
	"github.com/backmassage/structpipe/internal/config"
	"github.com/backmassage/structpipe/internal/display"
	"github.com/backmassage/structpipe/internal/logging"
	"github.com/backmassage/structpipe/internal/pipeline"
)

// version and commit are injected at build time via -ldflags.
// When built with plain "go build", these retain their defaults.
var (
	version = "1.0.0"
	commit  = "unknown"
)

func main() {
	os.Exit(run())
}

func run() int {
	// Phase 1: Bootstrap — the logger doesn't exist yet, so errors go
	// directly to stderr via fmt. Once logging.New succeeds, all output
	// goes through the logger for consistent formatting and log-file capture.
	cfg := config.DefaultConfig()
	if err := config.ParseDriverFlags(&cfg, version); err != nil {
		fmt.Fprintf(os.Stderr, "structpipe: %v\n", err)
		return 1
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "structpipe: %v\n", err)
		return 1
	}

	log, err := logging.New(cfg.ColorMode, cfg.LogFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "structpipe: %v\n", err)
		return 1
	}
	defer log.Close()

	// Phase 2: Logger available — all output goes through log from here on.
	display.PrintBanner()

	if cfg.CheckOnly {
		if !check.RunCheck(&cfg, log) {
			return 1
		}
		return 0
	}

	// Resolve and validate paths: the dataset root must exist, derivatives
	// are created if needed, and derivatives must not sit inside a subject
	// directory (would be discovered as subject data).
	rootAbs, err := absPath(cfg.BIDSRoot)
	if err != nil {
		log.Error("Dataset root not found: %s", cfg.BIDSRoot)
		return 1
	}
	cfg.BIDSRoot = rootAbs
	if err := os.MkdirAll(cfg.DerivativesDir, 0o755); err != nil {
		log.Error("Cannot create derivatives directory: %s", cfg.DerivativesDir)
		return 1
	}
	derivAbs, err := absPath(cfg.DerivativesDir)
	if err != nil {
		log.Error("Cannot resolve derivatives path: %s", cfg.DerivativesDir)
		return 1
	}
	cfg.DerivativesDir = derivAbs
	if err := cfg.ValidatePaths(rootAbs, derivAbs); err != nil {
		log.Error("%v", err)
		return 1
	}

	log.Info("=== structpipe v%s (%s) ===", version, commit)
	log.Info("Dataset:     %s", cfg.BIDSRoot)
	log.Info("Derivatives: %s", cfg.DerivativesDir)
	if cfg.DryRun {
		log.Warn("DRY RUN — no external tools will run, no metrics will be written")
	}
	log.Info("")

	// Fail fast if bet/fast/fslstats are unavailable. recon-all is
	// optional; its availability only gates the reconstruction step.
	// Dry-run skips the check so the batch can be previewed anywhere.
	reconAvailable := false
	if !cfg.DryRun {
		if err := check.CheckDeps(&cfg); err != nil {
			log.Error("%v", err)
			return 1
		}
		reconAvailable = check.HasReconAll()
	}

	// Phase 3: Signal handling — cancel context on SIGINT/SIGTERM so the
	// batch stops between subjects without leaving partial output.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Warn("Received interrupt, finishing current subject…")
		cancel()
	}()

	// Phase 4: Run the batch (discover → extract → segment → measure).
	stats := pipeline.Run(ctx, &cfg, log, reconAvailable)

	if stats.Failed > 0 {
		return 1
	}
	return 0
}

// absPath returns the absolute, symlink-resolved path for safe comparison
// of dataset vs derivatives hierarchies.
func absPath(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.EvalSymlinks(abs)
}
