package metrics

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFilePath(t *testing.T) {
	got := FilePath("/deriv/metrics", "sub-0001")
	require.Equal(t, "/deriv/metrics/sub-0001_tissue_volumes.tsv", got)
}

func TestSubjectFromFilename(t *testing.T) {
	tests := []struct {
		name   string
		wantID string
		wantOK bool
	}{
		{"sub-0001_tissue_volumes.tsv", "sub-0001", true},
		{"/deriv/metrics/sub-0002_tissue_volumes.tsv", "sub-0002", true},
		{"_tissue_volumes.tsv", "", false},
		{"sub-0001.tsv", "", false},
		{"notes.txt", "", false},
	}
	for _, tt := range tests {
		id, ok := SubjectFromFilename(tt.name)
		require.Equal(t, tt.wantOK, ok, tt.name)
		require.Equal(t, tt.wantID, id, tt.name)
	}
}

func TestWriteRead_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	rec := Record{SubjectID: "sub-0001", CSF: 310245.5, GM: 612345.67, WM: 498000.125}
	path := FilePath(dir, rec.SubjectID)

	require.NoError(t, Write(path, rec))

	got, err := Read(path)
	require.NoError(t, err)
	require.Equal(t, "sub-0001", got.SubjectID)
	require.InDelta(t, 310245.5, got.CSF, 0.01)
	require.InDelta(t, 612345.67, got.GM, 0.01)
	require.InDelta(t, 498000.12, got.WM, 0.01)
}

func TestWrite_Deterministic(t *testing.T) {
	dir := t.TempDir()
	rec := Record{SubjectID: "sub-0001", CSF: 1, GM: 2, WM: 3}
	a := filepath.Join(dir, "a.tsv")
	b := filepath.Join(dir, "b.tsv")

	require.NoError(t, Write(a, rec))
	require.NoError(t, Write(b, rec))

	ba, err := os.ReadFile(a)
	require.NoError(t, err)
	bb, err := os.ReadFile(b)
	require.NoError(t, err)
	require.Equal(t, ba, bb)
	require.Equal(t, "subject_id\tCSF\tGM\tWM\nsub-0001\t1.00\t2.00\t3.00\n", string(ba))
}

func TestRead_ColumnOrderIndependent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub-0003_tissue_volumes.tsv")
	content := "WM\tGM\tCSF\tsubject_id\n3.00\t2.00\t1.00\tsub-0003\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	rec, err := Read(path)
	require.NoError(t, err)
	require.Equal(t, Record{SubjectID: "sub-0003", CSF: 1, GM: 2, WM: 3}, rec)
}

func TestRead_Malformed(t *testing.T) {
	dir := t.TempDir()
	for name, content := range map[string]string{
		"header-only.tsv": "subject_id\tCSF\tGM\tWM\n",
		"missing-col.tsv": "subject_id\tCSF\tGM\nsub-0001\t1\t2\n",
		"non-numeric.tsv": "subject_id\tCSF\tGM\tWM\nsub-0001\tx\t2\t3\n",
	} {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
		_, err := Read(path)
		require.Error(t, err, name)
	}
}

func TestList_SortedAndFiltered(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{
		"sub-0002_tissue_volumes.tsv",
		"sub-0001_tissue_volumes.tsv",
		"dataset_summary.csv",
		"README",
	} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub-0003_tissue_volumes.tsv.d"), 0o755))

	files, err := List(dir)
	require.NoError(t, err)
	require.Len(t, files, 2)
	require.Equal(t, "sub-0001_tissue_volumes.tsv", filepath.Base(files[0]))
	require.Equal(t, "sub-0002_tissue_volumes.tsv", filepath.Base(files[1]))
}

func TestList_MissingDir(t *testing.T) {
	files, err := List(filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	require.Empty(t, files)
}
