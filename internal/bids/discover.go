// Package bids reads the consumed side of the dataset layout: top-level
// sub-* subject directories, their T1-weighted images, and the
// participants table.
package bids

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Subject is one sub-* directory under the dataset root. T1w is the path
// of the subject's T1-weighted image, or empty when the subject has none
// (e.g. an empty-room recording).
type Subject struct {
	ID  string
	Dir string
	T1w string
}

// HasT1w reports whether the subject carries a usable T1-weighted image
// and is therefore eligible for the structural pipeline.
func (s Subject) HasT1w() bool { return s.T1w != "" }

// T1wPath returns the conventional location of a subject's T1-weighted
// image: <root>/<sub>/anat/<sub>_T1w.nii.gz.
func T1wPath(root, subjectID string) string {
	return filepath.Join(root, subjectID, "anat", subjectID+"_T1w.nii.gz")
}

// DiscoverSubjects lists the top-level sub-* directories of root, resolves
// each subject's T1w image when present, and returns the subjects sorted
// by ID for deterministic processing order.
func DiscoverSubjects(root string) ([]Subject, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("read dataset root %s: %w", root, err)
	}

	var subjects []Subject
	for _, e := range entries {
		if !e.IsDir() || !strings.HasPrefix(e.Name(), "sub-") {
			continue
		}
		sub := Subject{
			ID:  e.Name(),
			Dir: filepath.Join(root, e.Name()),
		}
		t1w := T1wPath(root, sub.ID)
		if fi, err := os.Stat(t1w); err == nil && fi.Mode().IsRegular() {
			sub.T1w = t1w
		}
		subjects = append(subjects, sub)
	}

	sort.Slice(subjects, func(i, j int) bool { return subjects[i].ID < subjects[j].ID })
	return subjects, nil
}
