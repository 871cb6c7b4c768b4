package fsl

import (
	"context"
	"fmt"
	"math"
	"os/exec"
	"strconv"
	"strings"
)

// Volume runs a single fslstats call against a partial-volume map and
// returns the tissue volume in mm³. The estimate is the standard FSL
// idiom: mean of the nonzero voxels times their total volume, i.e. the
// integral of the partial-volume fractions.
func Volume(ctx context.Context, pveFile string) (float64, error) {
	cmd := exec.CommandContext(ctx, "fslstats", pveFile, "-M", "-V")
	out, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("fslstats %q: %w", pveFile, err)
	}
	return ParseVolume(string(out))
}

// ParseVolume converts raw fslstats "-M -V" output into a volume in mm³.
// The output is three whitespace-separated numbers: mean of nonzero
// voxels, nonzero voxel count, and nonzero volume in mm³.
// Exported for testing without a real fslstats binary.
func ParseVolume(out string) (float64, error) {
	fields := strings.Fields(out)
	if len(fields) != 3 {
		return 0, fmt.Errorf("parse fslstats output %q: want 3 fields, got %d", strings.TrimSpace(out), len(fields))
	}

	mean, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0, fmt.Errorf("parse fslstats mean %q: %w", fields[0], err)
	}
	mm3, err := strconv.ParseFloat(fields[2], 64)
	if err != nil {
		return 0, fmt.Errorf("parse fslstats volume %q: %w", fields[2], err)
	}

	vol := mean * mm3
	if math.IsNaN(vol) || math.IsInf(vol, 0) || vol < 0 {
		return 0, fmt.Errorf("implausible volume %v from fslstats output %q", vol, strings.TrimSpace(out))
	}
	return vol, nil
}
