// Package summary builds the dataset-level summary table from the
// per-subject metrics files. The metrics directory is the source of
// truth: the summary holds exactly one row per metrics file, sorted by
// subject ID, with participant metadata joined in when available. The
// table is regenerated wholesale on every run.
package summary

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/backmassage/structpipe/internal/bids"
	"github.com/backmassage/structpipe/internal/config"
	"github.com/backmassage/structpipe/internal/logging"
	"github.com/backmassage/structpipe/internal/metrics"
)

// Header is the fixed column set of dataset_summary.csv. The metadata
// columns mirror the legacy summary; qc_pass marks rows whose volumes all
// parsed as finite positive numbers.
var Header = []string{"participant_id", "age", "sex", "dominant_hand", "CSF", "GM", "WM", "qc_pass"}

// Run scans the metrics directory, joins participant metadata, and writes
// the summary file. Malformed metrics files yield an n/a row (the file
// still counts; its values do not) so the row count always equals the
// metrics-file count.
func Run(cfg *config.Config, log *logging.Logger) error {
	files, err := metrics.List(cfg.MetricsDir())
	if err != nil {
		return fmt.Errorf("scan metrics directory: %w", err)
	}
	log.Info("Found %d metrics files in %s", len(files), cfg.MetricsDir())

	participants, err := bids.LoadParticipants(cfg.ParticipantsFile())
	if err != nil {
		log.Warn("No usable participants table (%v); metadata columns will be n/a", err)
		participants = map[string]bids.Participant{}
	}

	rows := make([][]string, 0, len(files))
	qcPassed := 0
	for _, path := range files {
		row, ok := buildRow(log, path, participants)
		rows = append(rows, row)
		if ok {
			qcPassed++
		}
	}

	outPath := cfg.SummaryFile()
	if err := writeTable(outPath, rows); err != nil {
		return err
	}

	log.Success("Dataset summary saved to %s", outPath)
	log.Info("Subjects summarized: %d, QC passed: %d", len(rows), qcPassed)
	return nil
}

// buildRow assembles one summary row from a metrics file and the
// participants table. The subject ID comes from the filename so the
// summary's identifier set always matches the metrics-file basenames.
func buildRow(log *logging.Logger, path string, participants map[string]bids.Participant) ([]string, bool) {
	subjectID, _ := metrics.SubjectFromFilename(path)
	p := participants[subjectID] // zero value reads as n/a for every field

	rec, err := metrics.Read(path)
	if err != nil {
		log.Error("Unreadable metrics for %s: %v", subjectID, err)
		return []string{subjectID, p.Field("age"), p.Field("sex"), p.Field("dominant_hand"),
			"n/a", "n/a", "n/a", "false"}, false
	}
	if rec.SubjectID != subjectID {
		// File contents disagree with the filename; trust the filename but flag it.
		log.Warn("Metrics file %s declares subject %q", filepath.Base(path), rec.SubjectID)
	}

	qc := qcPass(rec)
	return []string{
		subjectID,
		p.Field("age"), p.Field("sex"), p.Field("dominant_hand"),
		formatVolume(rec.CSF), formatVolume(rec.GM), formatVolume(rec.WM),
		strconv.FormatBool(qc),
	}, qc
}

// qcPass reports whether all tissue volumes are finite and positive.
func qcPass(rec metrics.Record) bool {
	for _, v := range rec.Volumes() {
		if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
			return false
		}
	}
	return true
}

// writeTable writes the header plus rows as CSV. Output is fully
// determined by the input rows, so unchanged metrics yield byte-identical
// summaries.
func writeTable(path string, rows [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}

	w := csv.NewWriter(f)
	if err := w.Write(Header); err != nil {
		f.Close()
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		f.Close()
		return err
	}
	if err := w.Error(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func formatVolume(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
