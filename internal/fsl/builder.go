package fsl

import (
	"fmt"
	"path/filepath"
	"strconv"
)

// BetSpec describes one bet (brain extraction) invocation.
type BetSpec struct {
	In     string  // T1-weighted input image.
	Out    string  // Brain-extracted output image.
	Frac   float64 // Fractional intensity threshold (-f).
	Robust bool    // Robust centre estimation (-R).
	Mask   bool    // Emit binary brain mask (-m).
}

// Args returns the full bet command line.
func (s BetSpec) Args() []string {
	args := []string{"bet", s.In, s.Out,
		"-f", strconv.FormatFloat(s.Frac, 'f', 2, 64)}
	if s.Robust {
		args = append(args, "-R")
	}
	if s.Mask {
		args = append(args, "-m")
	}
	return args
}

// FastSpec describes one fast (tissue segmentation) invocation.
type FastSpec struct {
	In          string // Brain-extracted input image.
	OutBase     string // Output basename (fast appends its own suffixes).
	Classes     int    // Tissue classes (-n).
	ImageType   int    // Input modality (-t): 1 = T1-weighted.
	Segments    bool   // Write binary segmentation per class (-g).
	BiasCorrect bool   // Write bias-corrected image (-B).
}

// Args returns the full fast command line. The input image comes last,
// per FSL convention.
func (s FastSpec) Args() []string {
	args := []string{"fast",
		"-t", strconv.Itoa(s.ImageType),
		"-n", strconv.Itoa(s.Classes)}
	if s.Segments {
		args = append(args, "-g")
	}
	if s.BiasCorrect {
		args = append(args, "-B")
	}
	args = append(args, "-o", s.OutBase, s.In)
	return args
}

// PveFile returns the partial-volume map fast writes for tissue class i.
// With 3 classes on a T1w image: 0 = CSF, 1 = GM, 2 = WM.
func (s FastSpec) PveFile(i int) string {
	return fmt.Sprintf("%s_pve_%d.nii.gz", s.OutBase, i)
}

// SegFile returns the labeled segmentation image fast writes.
func (s FastSpec) SegFile() string {
	return s.OutBase + "_seg.nii.gz"
}

// ReconAllSpec describes one recon-all (cortical reconstruction) invocation.
type ReconAllSpec struct {
	SubjectID   string
	T1w         string
	SubjectsDir string // FreeSurfer SUBJECTS_DIR for the dataset.
	Threads     int    // OpenMP threads.
}

// Args returns the full recon-all command line.
func (s ReconAllSpec) Args() []string {
	return []string{"recon-all",
		"-s", s.SubjectID,
		"-i", s.T1w,
		"-all",
		"-openmp", strconv.Itoa(s.Threads),
		"-sd", s.SubjectsDir,
	}
}

// BrainFile returns the conventional brain-extracted image path for a
// subject's work directory.
func BrainFile(workDir, subjectID string) string {
	return filepath.Join(workDir, subjectID+"_brain.nii.gz")
}

// FastBase returns the conventional fast output basename for a subject's
// work directory.
func FastBase(workDir, subjectID string) string {
	return filepath.Join(workDir, subjectID+"_fast")
}
