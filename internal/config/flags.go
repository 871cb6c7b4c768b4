package config

// This file implements CLI flag parsing and help text for both commands.
// Negated flags (e.g. --no-recon-all) are applied after Parse so Config
// defaults hold unless the user passes the flag.

import (
	"flag"
	"fmt"
	"os"
	"strings"
)

// ParseDriverFlags parses os.Args for the structpipe driver into cfg.
// On --help or --version it prints and exits. On error it returns non-nil
// (e.g. unknown flag, missing positional args).
func ParseDriverFlags(cfg *Config, version string) error {
	fs := flag.NewFlagSet("structpipe", flag.ContinueOnError)
	fs.Usage = func() { printDriverUsage(version) }

	var negated negatedFlags
	var subjects subjectList

	fs.StringVar(&cfg.ParamsFile, "params", "", "YAML parameter file overriding node defaults")
	fs.Float64Var(&cfg.BetFrac, "frac", cfg.BetFrac, "BET fractional intensity threshold")
	fs.IntVar(&cfg.FastClasses, "classes", cfg.FastClasses, "FAST tissue class count")
	fs.BoolVar(&negated.noRobust, "no-robust", false, "Disable BET robust centre estimation")
	fs.BoolVar(&negated.noBias, "no-bias-correct", false, "Disable FAST bias field correction")
	fs.BoolVar(&negated.noReconAll, "no-recon-all", false, "Skip FreeSurfer recon-all even when available")
	fs.Var(&subjects, "subject", "Process only this subject (repeatable)")
	fs.Var(&subjects, "s", "Same as --subject")

	fs.BoolVar(&cfg.DryRun, "dry-run", false, "Preview only; do not run external tools or write metrics")
	fs.BoolVar(&cfg.DryRun, "d", false, "Same as --dry-run")
	fs.BoolVar(&negated.force, "force", false, "Reprocess subjects with existing metrics files")
	fs.BoolVar(&negated.force, "f", false, "Same as --force")
	fs.BoolVar(&cfg.StrictMode, "strict", false, "Disable automatic retry fallbacks")

	defineSharedFlags(fs, cfg, &negated)
	fs.BoolVar(&cfg.CheckOnly, "check", false, "Run system diagnostics and exit")
	fs.BoolVar(&cfg.CheckOnly, "c", false, "Same as --check")

	if err := fs.Parse(os.Args[1:]); err != nil {
		return err
	}

	if negated.showHelp {
		printDriverUsage(version)
		os.Exit(0)
	}
	if negated.showVersion {
		fmt.Fprintln(os.Stdout, "structpipe v"+version)
		os.Exit(0)
	}

	// The parameter file sits between defaults and flags: load it first,
	// then re-apply any explicitly set flags so CLI wins.
	if cfg.ParamsFile != "" {
		if err := LoadParams(cfg.ParamsFile, cfg); err != nil {
			return err
		}
		fs.Visit(func(f *flag.Flag) {
			switch f.Name {
			case "frac":
				fmt.Sscanf(f.Value.String(), "%g", &cfg.BetFrac)
			case "classes":
				fmt.Sscanf(f.Value.String(), "%d", &cfg.FastClasses)
			}
		})
	}

	applyNegatedFlags(cfg, &negated)
	cfg.Subjects = subjects

	return parsePositionalArgs(fs, cfg)
}

// ParseSummaryFlags parses os.Args for the dsummary summarizer into cfg.
func ParseSummaryFlags(cfg *Config, version string) error {
	fs := flag.NewFlagSet("dsummary", flag.ContinueOnError)
	fs.Usage = func() { printSummaryUsage(version) }

	var negated negatedFlags

	fs.StringVar(&cfg.SummaryOut, "out", "", "Summary output path (default <derivatives>/summary/dataset_summary.csv)")
	fs.StringVar(&cfg.SummaryOut, "o", "", "Same as --out")
	defineSharedFlags(fs, cfg, &negated)

	if err := fs.Parse(os.Args[1:]); err != nil {
		return err
	}

	if negated.showHelp {
		printSummaryUsage(version)
		os.Exit(0)
	}
	if negated.showVersion {
		fmt.Fprintln(os.Stdout, "dsummary v"+version)
		os.Exit(0)
	}

	applyNegatedFlags(cfg, &negated)
	return parsePositionalArgs(fs, cfg)
}

// negatedFlags holds boolean flags that are applied after Parse.
// These either invert a default (e.g. noRobust -> BetRobust=false) or
// trigger exit (showHelp, showVersion).
type negatedFlags struct {
	noRobust    bool
	noBias      bool
	noReconAll  bool
	force       bool
	forceColor  bool
	noColor     bool
	showVersion bool
	showHelp    bool
}

// subjectList implements flag.Value for the repeatable --subject flag.
type subjectList []string

func (s *subjectList) String() string { return strings.Join(*s, ",") }
func (s *subjectList) Set(v string) error {
	*s = append(*s, v)
	return nil
}

// defineSharedFlags registers the display/logging/utility flags common to
// both commands.
func defineSharedFlags(fs *flag.FlagSet, cfg *Config, n *negatedFlags) {
	fs.BoolVar(&n.forceColor, "color", false, "Force colored logs")
	fs.BoolVar(&n.noColor, "no-color", false, "Disable colored logs")
	fs.BoolVar(&cfg.Verbose, "verbose", false, "Verbose output")
	fs.BoolVar(&cfg.Verbose, "v", false, "Same as --verbose")
	fs.StringVar(&cfg.LogFile, "log", "", "Append logs to file")
	fs.StringVar(&cfg.LogFile, "l", "", "Same as --log")
	fs.BoolVar(&n.showVersion, "version", false, "Print version and exit")
	fs.BoolVar(&n.showVersion, "V", false, "Same as --version")
	fs.BoolVar(&n.showHelp, "help", false, "Show this help and exit")
	fs.BoolVar(&n.showHelp, "h", false, "Same as --help")
}

// applyNegatedFlags copies negated and override flag values into cfg
// (e.g. noReconAll -> ReconAll=false).
func applyNegatedFlags(cfg *Config, n *negatedFlags) {
	if n.noRobust {
		cfg.BetRobust = false
	}
	if n.noBias {
		cfg.FastBiasCorrect = false
	}
	if n.noReconAll {
		cfg.ReconAll = false
	}
	if n.force {
		cfg.SkipExisting = false
	}
	if n.noColor {
		cfg.ColorMode = ColorNever
	} else if n.forceColor {
		cfg.ColorMode = ColorAlways
	}
}

// parsePositionalArgs sets BIDSRoot and DerivativesDir from the positional
// args (<bids_root> [derivatives_dir]) when not in CheckOnly mode.
func parsePositionalArgs(fs *flag.FlagSet, cfg *Config) error {
	args := fs.Args()
	if cfg.CheckOnly {
		return nil
	}
	switch len(args) {
	case 1:
		cfg.BIDSRoot = NormalizeDirArg(args[0])
		cfg.DerivativesDir = DefaultDerivativesDir(cfg.BIDSRoot)
	case 2:
		cfg.BIDSRoot = NormalizeDirArg(args[0])
		cfg.DerivativesDir = NormalizeDirArg(args[1])
	default:
		return fmt.Errorf("need <bids_root> and optionally <derivatives_dir>")
	}
	return nil
}

// usageLine is one row of the column-aligned help text.
type usageLine struct {
	flags string
	desc  string
}

func printDriverUsage(version string) {
	printUsageLines([]usageLine{
		{"", "structpipe v" + version + " — structural MRI pipeline driver (FSL bet/fast + fslstats)"},
		{"", ""},
		{"  structpipe [OPTIONS] <bids_root> [derivatives_dir]", ""},
		{"", ""},
		{"Processing", ""},
		{"  --params <file>", "YAML parameter file overriding node defaults"},
		{"  --frac <0..1>", "BET fractional intensity threshold (default: 0.5)"},
		{"  --no-robust", "Disable BET robust centre estimation"},
		{"  --classes <2-4>", "FAST tissue class count (default: 3)"},
		{"  --no-bias-correct", "Disable FAST bias field correction"},
		{"  --no-recon-all", "Skip FreeSurfer recon-all even when available"},
		{"  -s, --subject <id>", "Process only this subject (repeatable)"},
		{"", ""},
		{"Behavior", ""},
		{"  -f, --force", "Reprocess subjects with existing metrics files"},
		{"  -d, --dry-run", "Preview only; do not run tools or write metrics"},
		{"  --strict", "Disable automatic retry fallbacks"},
		{"", ""},
		{"Display", ""},
		{"  --color", "Force colored logs"},
		{"  --no-color", "Disable colored logs"},
		{"  -v, --verbose", "Verbose output"},
		{"", ""},
		{"Utility", ""},
		{"  -l, --log <path>", "Append logs to file"},
		{"  -c, --check", "System diagnostics (bet, fast, fslstats, recon-all)"},
		{"  -V, --version", "Print version and exit"},
		{"  -h, --help", "Show this help and exit"},
	})
}

func printSummaryUsage(version string) {
	printUsageLines([]usageLine{
		{"", "dsummary v" + version + " — dataset tissue-volume summarizer"},
		{"", ""},
		{"  dsummary [OPTIONS] <bids_root> [derivatives_dir]", ""},
		{"", ""},
		{"Output", ""},
		{"  -o, --out <path>", "Summary output path (default: <derivatives>/summary/dataset_summary.csv)"},
		{"", ""},
		{"Display", ""},
		{"  --color", "Force colored logs"},
		{"  --no-color", "Disable colored logs"},
		{"  -v, --verbose", "Verbose output"},
		{"", ""},
		{"Utility", ""},
		{"  -l, --log <path>", "Append logs to file"},
		{"  -V, --version", "Print version and exit"},
		{"  -h, --help", "Show this help and exit"},
	})
}

// printUsageLines writes help text to stderr, column-aligned for readability.
func printUsageLines(lines []usageLine) {
	const col1 = 26 // width of "  -x, --long-name <arg>  "
	for _, l := range lines {
		if l.flags == "" && l.desc == "" {
			fmt.Fprintln(os.Stderr)
			continue
		}
		if l.desc == "" {
			fmt.Fprintln(os.Stderr, l.flags)
			continue
		}
		if l.flags == "" {
			fmt.Fprintln(os.Stderr, l.desc)
			continue
		}
		padding := col1 - len(l.flags)
		if padding < 1 {
			padding = 1
		}
		fmt.Fprintf(os.Stderr, "%s%*s%s\n", l.flags, padding, "", l.desc)
	}
}
