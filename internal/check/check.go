// Package check provides system diagnostics (--check mode) and pre-pipeline
// dependency validation (CheckDeps) for the external FSL and FreeSurfer
// tools the driver shells out to.
package check

import (
	"errors"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/backmassage/structpipe/internal/config"
)

// Sentinel errors returned by CheckDeps when a required tool is missing.
var (
	ErrBetNotFound      = errors.New("bet not found on PATH (is FSL installed and sourced?)")
	ErrFastNotFound     = errors.New("fast not found on PATH (is FSL installed and sourced?)")
	ErrFslstatsNotFound = errors.New("fslstats not found on PATH (is FSL installed and sourced?)")
)

// Logger is the minimal logging interface needed by RunCheck.
// Defined here (rather than importing the logging package) so that check
// remains dependency-light and testable with a mock logger.
type Logger interface {
	Info(string, ...interface{})
	Success(string, ...interface{})
	Warn(string, ...interface{})
	Error(string, ...interface{})
	Debug(bool, string, ...interface{})
}

// RunCheck runs the interactive --check flow: prints availability of the
// FSL tools, the FSL environment, and FreeSurfer. Returns false when a
// tool required by the pipeline is missing.
func RunCheck(cfg *config.Config, log Logger) bool {
	log.Info("=== System Check ===")

	ok := true
	ok = checkTool(log, "bet", "brain extraction") && ok
	ok = checkTool(log, "fast", "tissue segmentation") && ok
	ok = checkTool(log, "fslstats", "volumetry") && ok

	checkFSLEnv(log)
	checkFreeSurfer(cfg, log)
	return ok
}

// checkTool verifies a required binary is on PATH and logs where it lives.
func checkTool(log Logger, name, role string) bool {
	path, err := exec.LookPath(name)
	if err != nil {
		log.Error("%s not found (%s)", name, role)
		return false
	}
	log.Success("%s: %s", name, path)
	return true
}

// checkFSLEnv reports the FSL installation version when FSLDIR is set.
func checkFSLEnv(log Logger) {
	fslDir := os.Getenv("FSLDIR")
	if fslDir == "" {
		log.Warn("FSLDIR not set; relying on PATH lookup only")
		return
	}
	version := "unknown"
	if b, err := os.ReadFile(filepath.Join(fslDir, "etc", "fslversion")); err == nil {
		version = strings.TrimSpace(string(b))
		// fslversion may carry a build suffix after a colon.
		if idx := strings.Index(version, ":"); idx > 0 {
			version = version[:idx]
		}
	}
	log.Info("FSL %s (%s)", version, fslDir)
}

// checkFreeSurfer reports recon-all availability; it is optional, so a
// missing binary is a warning, not a failure.
func checkFreeSurfer(cfg *config.Config, log Logger) {
	if !cfg.ReconAll {
		log.Info("recon-all: disabled (--no-recon-all)")
		return
	}
	path, err := exec.LookPath("recon-all")
	if err != nil {
		log.Warn("recon-all not found; cortical reconstruction will be skipped")
		return
	}
	log.Success("recon-all: %s", path)
	if home := os.Getenv("FREESURFER_HOME"); home != "" {
		log.Info("FreeSurfer home: %s", home)
	}
}

// CheckDeps is the pre-pipeline validation: bet, fast, and fslstats must be
// on PATH before the batch starts. recon-all is optional and checked
// separately via HasReconAll. Returns a sentinel error on failure.
func CheckDeps(cfg *config.Config) error {
	if _, err := exec.LookPath("bet"); err != nil {
		return ErrBetNotFound
	}
	if _, err := exec.LookPath("fast"); err != nil {
		return ErrFastNotFound
	}
	if _, err := exec.LookPath("fslstats"); err != nil {
		return ErrFslstatsNotFound
	}
	return nil
}

// HasReconAll reports whether FreeSurfer's recon-all is available.
func HasReconAll() bool {
	_, err := exec.LookPath("recon-all")
	return err == nil
}
