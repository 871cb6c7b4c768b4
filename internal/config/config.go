// Package config holds runtime configuration: defaults, CLI flag parsing,
// the optional YAML parameter file, and validation. Defaults match the
// legacy Python pipeline for output parity.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// ColorMode controls ANSI color output.
type ColorMode string

const (
	ColorAuto   ColorMode = "auto"   // Enable colors when stdout is a TTY (default).
	ColorAlways ColorMode = "always" // Force colors on.
	ColorNever  ColorMode = "never"  // Disable colors entirely.
)

// Config holds all runtime settings for both the driver and the summarizer.
// It is populated by [DefaultConfig], optionally overlaid by [LoadParams],
// and then mutated by flag parsing before being passed (by pointer) to
// packages that need it.
type Config struct {
	// Paths (set from positional args).
	BIDSRoot       string
	DerivativesDir string

	// Brain extraction (FSL bet).
	BetFrac   float64 // Fractional intensity threshold. Default: 0.5.
	BetRobust bool    // Robust centre estimation (-R). Default: true.
	BetMask   bool    // Emit binary brain mask (-m). Fixed: true.

	// Tissue segmentation (FSL fast).
	FastClasses     int  // Tissue classes (-n). Default: 3 (CSF/GM/WM).
	FastBiasCorrect bool // Output bias-corrected image (-B). Default: true.
	FastImageType   int  // Input modality (-t). Fixed: 1 (T1-weighted).

	// Cortical reconstruction (FreeSurfer recon-all).
	ReconAll        bool // Run recon-all when available. Default: true.
	ReconAllThreads int  // OpenMP threads for recon-all. Default: 4.

	// Behavior flags.
	DryRun       bool
	SkipExisting bool     // Default: true. Cleared by --force.
	StrictMode   bool     // Disable retry fallbacks.
	Subjects     []string // Restrict processing to these subject IDs.

	// Display and logging.
	Verbose   bool
	ColorMode ColorMode // Default: "auto".
	LogFile   string    // Optional log file path.
	CheckOnly bool      // Run --check diagnostics and exit.

	// Parameter file (--params).
	ParamsFile string

	// Summarizer output override (-o). Empty means SummaryFile() default.
	SummaryOut string
}

// DefaultConfig returns a Config with all defaults matching the legacy
// structural_pipeline.py behavior (BET frac=0.5 robust, FAST 3-class with
// bias correction, recon-all with 4 threads when FreeSurfer is present).
func DefaultConfig() Config {
	return Config{
		BetFrac:         0.5,
		BetRobust:       true,
		BetMask:         true,
		FastClasses:     3,
		FastBiasCorrect: true,
		FastImageType:   1,
		ReconAll:        true,
		ReconAllThreads: 4,
		DryRun:          false,
		SkipExisting:    true,
		StrictMode:      false,
		Verbose:         false,
		ColorMode:       ColorAuto,
		CheckOnly:       false,
	}
}

// --- Derived paths ---
// The derivatives tree follows the legacy layout:
//   <derivatives>/metrics/   per-subject tissue-volume TSVs
//   <derivatives>/summary/   dataset_summary.csv
//   <derivatives>/work/      intermediate bet/fast outputs per subject
//   <derivatives>/logs/      run manifests
// FreeSurfer subjects live beside the pipeline derivatives, as in BIDS:
//   <derivatives>/../freesurfer

// MetricsDir returns the per-subject metrics directory.
func (c *Config) MetricsDir() string { return filepath.Join(c.DerivativesDir, "metrics") }

// SummaryDir returns the dataset summary directory.
func (c *Config) SummaryDir() string { return filepath.Join(c.DerivativesDir, "summary") }

// WorkDir returns the intermediate-output directory for a subject.
func (c *Config) WorkDir(subjectID string) string {
	return filepath.Join(c.DerivativesDir, "work", subjectID)
}

// LogsDir returns the run-manifest directory.
func (c *Config) LogsDir() string { return filepath.Join(c.DerivativesDir, "logs") }

// FreeSurferDir returns the FreeSurfer SUBJECTS_DIR for this dataset.
func (c *Config) FreeSurferDir() string {
	return filepath.Join(filepath.Dir(c.DerivativesDir), "freesurfer")
}

// ParticipantsFile returns the path of the dataset participants table.
func (c *Config) ParticipantsFile() string {
	return filepath.Join(c.BIDSRoot, "participants.tsv")
}

// SummaryFile returns the summary output path, honoring -o when set.
func (c *Config) SummaryFile() string {
	if c.SummaryOut != "" {
		return c.SummaryOut
	}
	return filepath.Join(c.SummaryDir(), "dataset_summary.csv")
}

// DefaultDerivativesDir returns the conventional derivatives location for a
// dataset root: <root>/derivatives/mri_pipeline.
func DefaultDerivativesDir(bidsRoot string) string {
	return filepath.Join(bidsRoot, "derivatives", "mri_pipeline")
}

// NormalizeDirArg strips trailing slashes from a directory path.
// The filesystem root "/" is returned unchanged so we don't produce an empty string.
func NormalizeDirArg(path string) string {
	if path == "/" {
		return "/"
	}
	return strings.TrimRight(path, "/")
}

var subjectIDPattern = regexp.MustCompile(`^sub-[A-Za-z0-9]+$`)

// ValidSubjectID reports whether s is a well-formed BIDS subject label.
func ValidSubjectID(s string) bool { return subjectIDPattern.MatchString(s) }

// Validate checks numeric parameter ranges, the color mode, and any
// --subject filters. When not in CheckOnly mode it also requires a dataset
// root.
func (c *Config) Validate() error {
	if c.BetFrac <= 0 || c.BetFrac >= 1 {
		return fmt.Errorf("invalid BET fractional intensity %.2f (use a value between 0 and 1)", c.BetFrac)
	}
	if c.FastClasses < 2 || c.FastClasses > 4 {
		return errors.New("invalid tissue class count (use 2-4)")
	}
	if c.ReconAllThreads < 1 {
		return errors.New("recon-all threads must be at least 1")
	}

	switch c.ColorMode {
	case ColorAuto, ColorAlways, ColorNever:
		// valid
	default:
		return errors.New("invalid color mode (use 'auto', 'always' or 'never')")
	}

	for _, s := range c.Subjects {
		if !ValidSubjectID(s) {
			return fmt.Errorf("invalid subject ID %q (expected sub-<label>)", s)
		}
	}

	if c.CheckOnly {
		return nil
	}
	if c.BIDSRoot == "" {
		return errors.New("need a dataset root directory")
	}
	return nil
}

// ValidatePaths ensures the resolved derivatives directory is neither the
// dataset root itself nor inside any subject directory. Subject discovery
// only looks at top-level sub-* entries, so derivatives under the root (the
// BIDS convention) are safe; derivatives inside a subject would be picked
// up as that subject's data. Both arguments must be absolute,
// symlink-resolved paths.
func (c *Config) ValidatePaths(rootAbs, derivAbs string) error {
	rel, err := filepath.Rel(rootAbs, derivAbs)
	if err != nil {
		// Different volumes; cannot be nested.
		return nil
	}
	if rel == "." {
		return errors.New("derivatives directory must not be the dataset root")
	}
	first := strings.SplitN(rel, string(filepath.Separator), 2)[0]
	if strings.HasPrefix(first, "sub-") {
		return errors.New("derivatives directory must not be inside a subject directory")
	}
	return nil
}
