package pipeline

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/backmassage/structpipe/internal/config"
)

// Subject outcome labels recorded in the run manifest.
const (
	StatusProcessed = "processed"
	StatusSkipped   = "skipped"
	StatusNoT1w     = "no-t1w"
	StatusFailed    = "failed"
)

// SubjectResult is one subject's outcome within a run.
type SubjectResult struct {
	SubjectID   string `json:"subject_id"`
	Status      string `json:"status"`
	Detail      string `json:"detail,omitempty"`
	MetricsFile string `json:"metrics_file,omitempty"`
}

// ManifestParams records the external-tool parameters the run used, so a
// metrics file can always be traced back to the settings that produced it.
type ManifestParams struct {
	BetFrac         float64 `json:"bet_frac"`
	BetRobust       bool    `json:"bet_robust"`
	FastClasses     int     `json:"fast_classes"`
	FastBiasCorrect bool    `json:"fast_bias_correct"`
	ReconAll        bool    `json:"recon_all"`
}

// Manifest is the provenance record written to <derivatives>/logs at the
// end of each driver run.
type Manifest struct {
	RunID          string          `json:"run_id"`
	StartedAt      time.Time       `json:"started_at"`
	FinishedAt     time.Time       `json:"finished_at"`
	BIDSRoot       string          `json:"bids_root"`
	DerivativesDir string          `json:"derivatives_dir"`
	DryRun         bool            `json:"dry_run"`
	Params         ManifestParams  `json:"params"`
	Subjects       []SubjectResult `json:"subjects"`
}

// NewManifest starts a manifest for a run with a fresh run ID.
func NewManifest(cfg *config.Config) *Manifest {
	return &Manifest{
		RunID:          uuid.NewString(),
		StartedAt:      time.Now().UTC(),
		BIDSRoot:       cfg.BIDSRoot,
		DerivativesDir: cfg.DerivativesDir,
		DryRun:         cfg.DryRun,
		Params: ManifestParams{
			BetFrac:         cfg.BetFrac,
			BetRobust:       cfg.BetRobust,
			FastClasses:     cfg.FastClasses,
			FastBiasCorrect: cfg.FastBiasCorrect,
			ReconAll:        cfg.ReconAll,
		},
	}
}

// Record appends one subject outcome.
func (m *Manifest) Record(subjectID, status, detail, metricsFile string) {
	m.Subjects = append(m.Subjects, SubjectResult{
		SubjectID:   subjectID,
		Status:      status,
		Detail:      detail,
		MetricsFile: metricsFile,
	})
}

// Write stamps the finish time and persists the manifest as
// <logsDir>/run_<id>.json.
func (m *Manifest) Write(logsDir string) (string, error) {
	m.FinishedAt = time.Now().UTC()
	if err := os.MkdirAll(logsDir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(logsDir, "run_"+m.RunID+".json")
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return "", err
	}
	return path, os.WriteFile(path, append(data, '\n'), 0o644)
}
