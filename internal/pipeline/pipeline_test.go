package pipeline

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/backmassage/structpipe/internal/bids"
	"github.com/backmassage/structpipe/internal/config"
	"github.com/backmassage/structpipe/internal/logging"
	"github.com/backmassage/structpipe/internal/metrics"
)

func testConfig(t *testing.T, root string) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.BIDSRoot = root
	cfg.DerivativesDir = config.DefaultDerivativesDir(root)
	cfg.ColorMode = config.ColorNever
	return &cfg
}

func testLogger(t *testing.T) *logging.Logger {
	t.Helper()
	l, err := logging.New(config.ColorNever, "")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { l.Close() })
	return l
}

func makeSubject(t *testing.T, root, id string, withT1w bool) {
	t.Helper()
	anat := filepath.Join(root, id, "anat")
	if err := os.MkdirAll(anat, 0o755); err != nil {
		t.Fatal(err)
	}
	if withT1w {
		path := filepath.Join(anat, id+"_T1w.nii.gz")
		if err := os.WriteFile(path, make([]byte, 4096), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

// Dry-run exercises the full batch loop (discovery, eligibility,
// skip-existing, manifest) without invoking any external tool.

func TestRun_DryRun_SkipsSubjectsWithoutT1w(t *testing.T) {
	root := t.TempDir()
	makeSubject(t, root, "sub-0001", true)
	makeSubject(t, root, "sub-emptyroom", false)

	cfg := testConfig(t, root)
	cfg.DryRun = true

	stats := Run(context.Background(), cfg, testLogger(t), false)

	if stats.Total != 2 || stats.Processed != 1 || stats.Skipped != 1 || stats.Failed != 0 {
		t.Errorf("stats = %+v, want total 2, processed 1, skipped 1, failed 0", stats)
	}
	// Dry-run must not create a metrics file.
	if _, err := os.Stat(metrics.FilePath(cfg.MetricsDir(), "sub-0001")); err == nil {
		t.Error("dry-run wrote a metrics file")
	}
}

func TestRun_DryRun_SkipExisting(t *testing.T) {
	root := t.TempDir()
	makeSubject(t, root, "sub-0001", true)

	cfg := testConfig(t, root)
	cfg.DryRun = true

	path := metrics.FilePath(cfg.MetricsDir(), "sub-0001")
	if err := metrics.Write(path, metrics.Record{SubjectID: "sub-0001", CSF: 1, GM: 2, WM: 3}); err != nil {
		t.Fatal(err)
	}

	stats := Run(context.Background(), cfg, testLogger(t), false)
	if stats.Skipped != 1 || stats.Processed != 0 {
		t.Errorf("stats = %+v, want the existing subject skipped", stats)
	}

	cfg.SkipExisting = false // --force
	stats = Run(context.Background(), cfg, testLogger(t), false)
	if stats.Processed != 1 {
		t.Errorf("stats = %+v, want the subject reprocessed under --force", stats)
	}
}

func TestRun_WritesManifest(t *testing.T) {
	root := t.TempDir()
	makeSubject(t, root, "sub-0001", true)
	makeSubject(t, root, "sub-emptyroom", false)

	cfg := testConfig(t, root)
	cfg.DryRun = true

	Run(context.Background(), cfg, testLogger(t), false)

	entries, err := os.ReadDir(cfg.LogsDir())
	if err != nil {
		t.Fatalf("logs dir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d manifest files, want 1", len(entries))
	}

	data, err := os.ReadFile(filepath.Join(cfg.LogsDir(), entries[0].Name()))
	if err != nil {
		t.Fatal(err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("manifest not valid JSON: %v", err)
	}
	if m.RunID == "" {
		t.Error("manifest missing run ID")
	}
	if len(m.Subjects) != 2 {
		t.Fatalf("got %d subject results, want 2", len(m.Subjects))
	}
	statuses := map[string]string{}
	for _, s := range m.Subjects {
		statuses[s.SubjectID] = s.Status
	}
	if statuses["sub-0001"] != StatusProcessed {
		t.Errorf("sub-0001 status = %q, want %q", statuses["sub-0001"], StatusProcessed)
	}
	if statuses["sub-emptyroom"] != StatusNoT1w {
		t.Errorf("sub-emptyroom status = %q, want %q", statuses["sub-emptyroom"], StatusNoT1w)
	}
}

func TestRun_TruncatedT1wFails(t *testing.T) {
	root := t.TempDir()
	anat := filepath.Join(root, "sub-0001", "anat")
	if err := os.MkdirAll(anat, 0o755); err != nil {
		t.Fatal(err)
	}
	// Below minImageSize: treated as corrupt, not as missing.
	if err := os.WriteFile(filepath.Join(anat, "sub-0001_T1w.nii.gz"), []byte("tiny"), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := testConfig(t, root)
	stats := Run(context.Background(), cfg, testLogger(t), false)
	if stats.Failed != 1 || stats.Processed != 0 {
		t.Errorf("stats = %+v, want the truncated subject failed", stats)
	}
}

func TestRun_CancelledContext(t *testing.T) {
	root := t.TempDir()
	makeSubject(t, root, "sub-0001", true)

	cfg := testConfig(t, root)
	cfg.DryRun = true

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	stats := Run(ctx, cfg, testLogger(t), false)
	if stats.Processed != 0 {
		t.Errorf("stats = %+v, want nothing processed after cancellation", stats)
	}
}

func TestFilterSubjects(t *testing.T) {
	subjects := []bids.Subject{
		{ID: "sub-0001"}, {ID: "sub-0002"}, {ID: "sub-0003"},
	}
	cfg := &config.Config{Subjects: []string{"sub-0002", "sub-0099"}}

	kept := filterSubjects(cfg, testLogger(t), subjects)
	if len(kept) != 1 || kept[0].ID != "sub-0002" {
		t.Errorf("kept = %v, want only sub-0002", kept)
	}
}
