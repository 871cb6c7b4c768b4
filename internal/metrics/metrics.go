// Package metrics reads and writes the per-subject tissue-volume files
// produced by the driver and consumed by the summarizer. One TSV per
// subject, named deterministically from the subject ID, with a fixed
// column set: subject_id, CSF, GM, WM (volumes in mm³).
package metrics

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
)

// FileSuffix is appended to the subject ID to form the metrics filename.
const FileSuffix = "_tissue_volumes.tsv"

// Tissues lists the tissue-volume columns in file order, matching the
// fast pve index order (pve_0 = CSF, pve_1 = GM, pve_2 = WM).
var Tissues = []string{"CSF", "GM", "WM"}

// Record is one subject's tissue-volume measurements in mm³.
type Record struct {
	SubjectID string
	CSF       float64
	GM        float64
	WM        float64
}

// Volumes returns the tissue volumes in Tissues order.
func (r Record) Volumes() []float64 { return []float64{r.CSF, r.GM, r.WM} }

// FilePath returns the deterministic metrics path for a subject.
func FilePath(metricsDir, subjectID string) string {
	return filepath.Join(metricsDir, subjectID+FileSuffix)
}

// SubjectFromFilename extracts the subject ID from a metrics file name.
// The second return is false when the name does not carry the suffix.
func SubjectFromFilename(name string) (string, bool) {
	base := filepath.Base(name)
	if !strings.HasSuffix(base, FileSuffix) || len(base) == len(FileSuffix) {
		return "", false
	}
	return strings.TrimSuffix(base, FileSuffix), true
}

// List returns the metrics files under metricsDir, sorted by filename
// (and therefore by subject ID, since the suffix is fixed). A missing
// directory reads as an empty dataset, not an error.
func List(metricsDir string) ([]string, error) {
	entries, err := os.ReadDir(metricsDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, ok := SubjectFromFilename(e.Name()); ok {
			files = append(files, filepath.Join(metricsDir, e.Name()))
		}
	}
	sort.Strings(files)
	return files, nil
}

// Write persists a record as a two-line TSV (header plus one data row).
// Volumes are fixed to two decimals so repeated runs over identical
// inputs produce identical bytes.
func Write(path string, r Record) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}

	w := csv.NewWriter(f)
	w.Comma = '\t'

	rows := [][]string{
		append([]string{"subject_id"}, Tissues...),
		{r.SubjectID, formatVolume(r.CSF), formatVolume(r.GM), formatVolume(r.WM)},
	}
	if err := w.WriteAll(rows); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}

// Read loads a per-subject metrics file. Columns are located by header
// name, so column order is not significant.
func Read(path string) (Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return Record{}, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = '\t'
	rows, err := r.ReadAll()
	if err != nil {
		return Record{}, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(rows) < 2 {
		return Record{}, fmt.Errorf("%s: want header and one data row, got %d rows", path, len(rows))
	}

	col := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		col[name] = i
	}
	row := rows[1]

	field := func(name string) (string, error) {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return "", fmt.Errorf("%s: missing column %q", path, name)
		}
		return row[i], nil
	}

	var rec Record
	id, err := field("subject_id")
	if err != nil {
		return Record{}, err
	}
	rec.SubjectID = id

	for i, tissue := range Tissues {
		raw, err := field(tissue)
		if err != nil {
			return Record{}, err
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return Record{}, fmt.Errorf("%s: column %q: %w", path, tissue, err)
		}
		switch i {
		case 0:
			rec.CSF = v
		case 1:
			rec.GM = v
		case 2:
			rec.WM = v
		}
	}
	return rec, nil
}

func formatVolume(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
