package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/backmassage/structpipe/internal/bids"
	"github.com/backmassage/structpipe/internal/config"
	"github.com/backmassage/structpipe/internal/display"
	"github.com/backmassage/structpipe/internal/fsl"
	"github.com/backmassage/structpipe/internal/logging"
	"github.com/backmassage/structpipe/internal/metrics"
)

// minImageSize rejects obviously truncated T1w files before handing them
// to the external tools.
const minImageSize = 1000

// Run is the top-level batch entry point. It discovers subjects, processes
// each eligible one sequentially, writes the run manifest, and returns
// aggregate stats.
func Run(ctx context.Context, cfg *config.Config, log *logging.Logger, reconAvailable bool) RunStats {
	var stats RunStats

	subjects, err := bids.DiscoverSubjects(cfg.BIDSRoot)
	if err != nil {
		log.Error("Subject discovery failed: %v", err)
		stats.Failed++
		return stats
	}
	subjects = filterSubjects(cfg, log, subjects)

	stats.Total = len(subjects)
	manifest := NewManifest(cfg)

	logBatchHeader(cfg, log, &stats, reconAvailable)

	for i, sub := range subjects {
		stats.Current = i + 1

		if ctx.Err() != nil {
			log.Warn("Interrupted")
			break
		}

		processSubject(ctx, cfg, log, sub, &stats, manifest, reconAvailable)
	}

	logSummary(log, &stats)

	if path, err := manifest.Write(cfg.LogsDir()); err != nil {
		log.Warn("Could not write run manifest: %v", err)
	} else {
		log.Debug(cfg.Verbose, "Run manifest: %s", path)
	}
	return stats
}

// filterSubjects applies the --subject restriction and warns about
// requested IDs that do not exist in the dataset.
func filterSubjects(cfg *config.Config, log *logging.Logger, subjects []bids.Subject) []bids.Subject {
	if len(cfg.Subjects) == 0 {
		return subjects
	}
	wanted := make(map[string]bool, len(cfg.Subjects))
	for _, id := range cfg.Subjects {
		wanted[id] = true
	}
	var kept []bids.Subject
	for _, s := range subjects {
		if wanted[s.ID] {
			kept = append(kept, s)
			delete(wanted, s.ID)
		}
	}
	for id := range wanted {
		log.Warn("Requested subject not found in dataset: %s", id)
	}
	return kept
}

// processSubject handles one subject: validate T1w → brain extraction →
// tissue segmentation → volumetry → metrics write → optional recon-all.
func processSubject(
	ctx context.Context,
	cfg *config.Config,
	log *logging.Logger,
	sub bids.Subject,
	stats *RunStats,
	manifest *Manifest,
	reconAvailable bool,
) {
	log.Info("[%d/%d] %s", stats.Current, stats.Total, sub.ID)

	// --- Eligibility ---
	if !sub.HasT1w() {
		log.Warn("No T1w image, skipping")
		stats.Skipped++
		manifest.Record(sub.ID, StatusNoT1w, "", "")
		fmt.Println()
		return
	}

	metricsPath := metrics.FilePath(cfg.MetricsDir(), sub.ID)

	// --- Skip-existing check ---
	if cfg.SkipExisting {
		if _, err := os.Stat(metricsPath); err == nil {
			log.Warn("Skip (metrics exist): %s", sub.ID)
			stats.Skipped++
			manifest.Record(sub.ID, StatusSkipped, "metrics file exists", metricsPath)
			fmt.Println()
			return
		}
	}

	// --- Validate input ---
	fi, err := os.Stat(sub.T1w)
	if err != nil {
		fail(log, stats, manifest, sub.ID, fmt.Sprintf("T1w not readable: %v", err))
		return
	}
	if fi.Size() < minImageSize {
		fail(log, stats, manifest, sub.ID, "T1w file too small (possibly truncated)")
		return
	}

	workDir := cfg.WorkDir(sub.ID)
	brain := fsl.BrainFile(workDir, sub.ID)
	fastBase := fsl.FastBase(workDir, sub.ID)

	// --- Dry-run ---
	if cfg.DryRun {
		log.Success("[DRY] Would extract, segment and measure %s", sub.ID)
		log.Debug(cfg.Verbose, "  bet: %s", strings.Join(betSpec(cfg, sub.T1w, brain).Args(), " "))
		log.Debug(cfg.Verbose, "  fast: %s", strings.Join(fastSpec(cfg, brain, fastBase).Args(), " "))
		stats.Processed++
		manifest.Record(sub.ID, StatusProcessed, "dry-run", "")
		fmt.Println()
		return
	}

	if err := os.MkdirAll(workDir, 0o755); err != nil {
		fail(log, stats, manifest, sub.ID, fmt.Sprintf("cannot create work directory: %v", err))
		return
	}

	start := time.Now()
	rs := fsl.NewRetryState(cfg.BetRobust, cfg.FastBiasCorrect)

	// --- Brain extraction ---
	if !runBet(ctx, cfg, log, rs, sub.T1w, brain) {
		fail(log, stats, manifest, sub.ID, "brain extraction failed")
		return
	}

	// --- Tissue segmentation ---
	spec := fastSpec(cfg, brain, fastBase)
	if !runFast(ctx, cfg, log, rs, &spec) {
		fail(log, stats, manifest, sub.ID, "tissue segmentation failed")
		return
	}

	// --- Volumetry ---
	rec, err := measureVolumes(ctx, sub.ID, spec)
	if err != nil {
		fail(log, stats, manifest, sub.ID, fmt.Sprintf("volumetry failed: %v", err))
		return
	}

	if err := metrics.Write(metricsPath, rec); err != nil {
		fail(log, stats, manifest, sub.ID, fmt.Sprintf("cannot write metrics: %v", err))
		return
	}

	elapsed := time.Since(start)
	log.Success("Volumes in %s: CSF %s | GM %s | WM %s",
		display.FormatDuration(elapsed),
		display.FormatVolume(rec.CSF),
		display.FormatVolume(rec.GM),
		display.FormatVolume(rec.WM))
	logVolumeOutliers(log, rec)

	stats.Processed++
	manifest.Record(sub.ID, StatusProcessed, "", metricsPath)

	// --- Optional cortical reconstruction ---
	if cfg.ReconAll && reconAvailable {
		runReconAll(ctx, cfg, log, sub)
	}
	fmt.Println()
}

func fail(log *logging.Logger, stats *RunStats, manifest *Manifest, subjectID, detail string) {
	log.Error("%s: %s", subjectID, detail)
	stats.Failed++
	manifest.Record(subjectID, StatusFailed, detail, "")
	fmt.Println()
}

func betSpec(cfg *config.Config, in, out string) fsl.BetSpec {
	return fsl.BetSpec{
		In:     in,
		Out:    out,
		Frac:   cfg.BetFrac,
		Robust: cfg.BetRobust,
		Mask:   cfg.BetMask,
	}
}

func fastSpec(cfg *config.Config, in, outBase string) fsl.FastSpec {
	return fsl.FastSpec{
		In:          in,
		OutBase:     outBase,
		Classes:     cfg.FastClasses,
		ImageType:   cfg.FastImageType,
		Segments:    true,
		BiasCorrect: cfg.FastBiasCorrect,
	}
}

// runBet executes bet with the inner retry loop: on failure, classify
// stderr, apply the robust-mode fallback if it matches, and retry.
func runBet(ctx context.Context, cfg *config.Config, log *logging.Logger, rs *fsl.RetryState, t1w, brain string) bool {
	for {
		spec := betSpec(cfg, t1w, brain)
		spec.Robust = rs.Robust

		result := fsl.Execute(ctx, cfg.Verbose, spec.Args())
		if result.Err == nil {
			return true
		}
		if ctx.Err() != nil {
			log.Warn("Interrupted, aborting retries")
			return false
		}
		if cfg.StrictMode {
			log.Error("bet failed (strict mode, no retry)")
			logStderr(log, "bet", result.Stderr)
			return false
		}
		if rs.AdvanceBet(result.Stderr) == fsl.RetryNone {
			log.Error("bet failed (no applicable retry)")
			logStderr(log, "bet", result.Stderr)
			return false
		}
		log.Warn("Retry %d: bet without robust centre estimation", rs.Attempt)
		os.Remove(brain)
	}
}

// runFast executes fast with the inner retry loop and the bias-correction
// fallback. The spec is updated in place so the caller sees the pve paths
// of the invocation that actually succeeded.
func runFast(ctx context.Context, cfg *config.Config, log *logging.Logger, rs *fsl.RetryState, spec *fsl.FastSpec) bool {
	for {
		spec.BiasCorrect = rs.BiasCorrect

		result := fsl.Execute(ctx, cfg.Verbose, spec.Args())
		if result.Err == nil {
			return true
		}
		if ctx.Err() != nil {
			log.Warn("Interrupted, aborting retries")
			return false
		}
		if cfg.StrictMode {
			log.Error("fast failed (strict mode, no retry)")
			logStderr(log, "fast", result.Stderr)
			return false
		}
		if rs.AdvanceFast(result.Stderr) == fsl.RetryNone {
			log.Error("fast failed (no applicable retry)")
			logStderr(log, "fast", result.Stderr)
			return false
		}
		log.Warn("Retry %d: fast without bias field correction", rs.Attempt)
	}
}

// measureVolumes runs fslstats over each partial-volume map and assembles
// the subject's metrics record. Tissue order follows the fast pve indices
// (0 = CSF, 1 = GM, 2 = WM).
func measureVolumes(ctx context.Context, subjectID string, spec fsl.FastSpec) (metrics.Record, error) {
	rec := metrics.Record{SubjectID: subjectID}
	for i := range metrics.Tissues {
		vol, err := fsl.Volume(ctx, spec.PveFile(i))
		if err != nil {
			return metrics.Record{}, err
		}
		switch i {
		case 0:
			rec.CSF = vol
		case 1:
			rec.GM = vol
		case 2:
			rec.WM = vol
		}
	}
	return rec, nil
}

// runReconAll kicks off FreeSurfer cortical reconstruction. It is additive
// output only: failure is a warning and does not affect the subject's
// metrics or the batch outcome.
func runReconAll(ctx context.Context, cfg *config.Config, log *logging.Logger, sub bids.Subject) {
	fsDir := cfg.FreeSurferDir()
	if _, err := os.Stat(filepath.Join(fsDir, sub.ID)); err == nil {
		log.Debug(cfg.Verbose, "recon-all output exists for %s, skipping", sub.ID)
		return
	}
	if err := os.MkdirAll(fsDir, 0o755); err != nil {
		log.Warn("recon-all skipped: %v", err)
		return
	}

	log.Info("  recon-all: %s (this can take hours)", sub.ID)
	spec := fsl.ReconAllSpec{
		SubjectID:   sub.ID,
		T1w:         sub.T1w,
		SubjectsDir: fsDir,
		Threads:     cfg.ReconAllThreads,
	}
	start := time.Now()
	result := fsl.Execute(ctx, cfg.Verbose, spec.Args())
	if result.Err != nil {
		log.Warn("recon-all failed for %s (metrics unaffected)", sub.ID)
		logStderr(log, "recon-all", result.Stderr)
		return
	}
	log.Success("  recon-all done in %s", display.FormatDuration(time.Since(start)))
}

func logStderr(log *logging.Logger, tool, stderr string) {
	if stderr == "" {
		return
	}
	log.Error("Last %s output:", tool)
	lines := strings.Split(strings.TrimSpace(stderr), "\n")
	start := 0
	if len(lines) > 20 {
		start = len(lines) - 20
	}
	for _, l := range lines[start:] {
		log.Error("  %s", l)
	}
}

// --- Logging helpers ---

func logBatchHeader(cfg *config.Config, log *logging.Logger, stats *RunStats, reconAvailable bool) {
	log.Info("Found %d subjects", stats.Total)
	log.Info("BET: frac %.2f, robust %s", cfg.BetFrac, onOff(cfg.BetRobust))
	log.Info("FAST: %d classes, bias correction %s", cfg.FastClasses, onOff(cfg.FastBiasCorrect))

	switch {
	case !cfg.ReconAll:
		log.Info("recon-all: disabled")
	case !reconAvailable:
		log.Info("recon-all: not available, skipping")
	default:
		log.Info("recon-all: enabled (%d threads)", cfg.ReconAllThreads)
	}

	if cfg.StrictMode {
		log.Info("Retry policy: strict mode (no auto-retry)")
	}
	if !cfg.SkipExisting {
		log.Info("Force: reprocessing subjects with existing metrics")
	}
	fmt.Println()
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}

// Plausible adult tissue-volume ranges in mm³. Values outside these bounds
// usually mean a failed extraction or segmentation rather than anatomy,
// so they are flagged at QC level but still recorded.
type volumeRange struct {
	tissue string
	low    float64
	high   float64
}

var volumeRanges = []volumeRange{
	{"CSF", 50_000, 700_000},
	{"GM", 400_000, 1_000_000},
	{"WM", 250_000, 700_000},
}

func logVolumeOutliers(log *logging.Logger, rec metrics.Record) {
	vols := rec.Volumes()
	for i, r := range volumeRanges {
		v := vols[i]
		if v < r.low {
			log.QC("  %s volume low: %s (expected %s-%s)", r.tissue,
				display.FormatVolume(v), display.FormatVolume(r.low), display.FormatVolume(r.high))
		} else if v > r.high {
			log.QC("  %s volume high: %s (expected %s-%s)", r.tissue,
				display.FormatVolume(v), display.FormatVolume(r.low), display.FormatVolume(r.high))
		}
	}
}

func logSummary(log *logging.Logger, stats *RunStats) {
	log.Info("==============================")
	log.Info("Done: %d processed, %d skipped, %d failed", stats.Processed, stats.Skipped, stats.Failed)
}
