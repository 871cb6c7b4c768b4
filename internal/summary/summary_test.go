package summary

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/backmassage/structpipe/internal/config"
	"github.com/backmassage/structpipe/internal/logging"
	"github.com/backmassage/structpipe/internal/metrics"
)

func testSetup(t *testing.T) (*config.Config, *logging.Logger) {
	t.Helper()
	root := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.BIDSRoot = root
	cfg.DerivativesDir = config.DefaultDerivativesDir(root)
	cfg.ColorMode = config.ColorNever

	log, err := logging.New(config.ColorNever, "")
	require.NoError(t, err)
	t.Cleanup(func() { log.Close() })
	return &cfg, log
}

func writeMetrics(t *testing.T, cfg *config.Config, id string, csf, gm, wm float64) {
	t.Helper()
	path := metrics.FilePath(cfg.MetricsDir(), id)
	require.NoError(t, metrics.Write(path, metrics.Record{SubjectID: id, CSF: csf, GM: gm, WM: wm}))
}

func readSummary(t *testing.T, cfg *config.Config) [][]string {
	t.Helper()
	f, err := os.Open(cfg.SummaryFile())
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestRun_RowPerMetricsFile(t *testing.T) {
	cfg, log := testSetup(t)
	writeMetrics(t, cfg, "sub-0002", 200000, 600000, 400000)
	writeMetrics(t, cfg, "sub-0001", 210000, 590000, 410000)

	require.NoError(t, Run(cfg, log))

	rows := readSummary(t, cfg)
	require.Len(t, rows, 3, "header plus one row per metrics file")
	require.Equal(t, Header, rows[0])
	// Sorted by subject ID.
	require.Equal(t, "sub-0001", rows[1][0])
	require.Equal(t, "sub-0002", rows[2][0])
	require.Equal(t, "true", rows[1][7])
}

func TestRun_JoinsParticipantMetadata(t *testing.T) {
	cfg, log := testSetup(t)
	writeMetrics(t, cfg, "sub-0001", 200000, 600000, 400000)
	participants := "participant_id\tage\tsex\tdominant_hand\n" +
		"sub-0001\t52\tM\tright\n" +
		"sub-emptyroom\tn/a\tn/a\tn/a\n"
	require.NoError(t, os.WriteFile(cfg.ParticipantsFile(), []byte(participants), 0o644))

	require.NoError(t, Run(cfg, log))

	rows := readSummary(t, cfg)
	require.Len(t, rows, 2, "participants without metrics must not appear")
	require.Equal(t, []string{"sub-0001", "52", "M", "right", "200000.00", "600000.00", "400000.00", "true"}, rows[1])
}

func TestRun_MissingParticipantsTable(t *testing.T) {
	cfg, log := testSetup(t)
	writeMetrics(t, cfg, "sub-0001", 200000, 600000, 400000)

	require.NoError(t, Run(cfg, log))

	rows := readSummary(t, cfg)
	require.Equal(t, "n/a", rows[1][1], "age defaults to n/a without a participants table")
}

func TestRun_EmptyMetricsDir(t *testing.T) {
	cfg, log := testSetup(t)

	require.NoError(t, Run(cfg, log))

	rows := readSummary(t, cfg)
	require.Len(t, rows, 1, "header only")
	require.Equal(t, Header, rows[0])
}

func TestRun_MalformedMetricsFile(t *testing.T) {
	cfg, log := testSetup(t)
	writeMetrics(t, cfg, "sub-0001", 200000, 600000, 400000)
	bad := metrics.FilePath(cfg.MetricsDir(), "sub-0002")
	require.NoError(t, os.WriteFile(bad, []byte("not a metrics file"), 0o644))

	require.NoError(t, Run(cfg, log))

	rows := readSummary(t, cfg)
	require.Len(t, rows, 3, "malformed file still occupies a row")
	require.Equal(t, []string{"sub-0002", "n/a", "n/a", "n/a", "n/a", "n/a", "n/a", "false"}, rows[2])
}

func TestRun_Idempotent(t *testing.T) {
	cfg, log := testSetup(t)
	writeMetrics(t, cfg, "sub-0001", 310245.5, 612345.67, 498000.12)
	require.NoError(t, os.WriteFile(cfg.ParticipantsFile(),
		[]byte("participant_id\tage\nsub-0001\t52\n"), 0o644))

	require.NoError(t, Run(cfg, log))
	first, err := os.ReadFile(cfg.SummaryFile())
	require.NoError(t, err)

	require.NoError(t, Run(cfg, log))
	second, err := os.ReadFile(cfg.SummaryFile())
	require.NoError(t, err)

	require.Equal(t, first, second, "unchanged metrics must yield byte-identical summaries")
}

func TestRun_SummaryOutOverride(t *testing.T) {
	cfg, log := testSetup(t)
	writeMetrics(t, cfg, "sub-0001", 1, 2, 3)
	cfg.SummaryOut = filepath.Join(t.TempDir(), "custom", "out.csv")

	require.NoError(t, Run(cfg, log))

	b, err := os.ReadFile(cfg.SummaryOut)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(string(b), strings.Join(Header, ",")))
}

func TestQCPass(t *testing.T) {
	require.True(t, qcPass(metrics.Record{CSF: 1, GM: 2, WM: 3}))
	require.False(t, qcPass(metrics.Record{CSF: 0, GM: 2, WM: 3}))
	require.False(t, qcPass(metrics.Record{CSF: -1, GM: 2, WM: 3}))
}
