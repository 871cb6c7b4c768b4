package display

import (
	"fmt"
	"time"
)

// FormatVolume returns a human-readable tissue volume. Values of a
// millilitre or more are shown in cm³ (the unit radiologists read),
// smaller ones in mm³.
func FormatVolume(mm3 float64) string {
	if mm3 >= 1000 {
		return fmt.Sprintf("%.1f cm³", mm3/1000)
	}
	return fmt.Sprintf("%.1f mm³", mm3)
}

// FormatDuration returns a compact elapsed-time label (e.g. "42s", "3m07s",
// "1h12m"). recon-all runs for hours, fslstats for milliseconds; both
// should read naturally.
func FormatDuration(d time.Duration) string {
	s := int(d.Seconds())
	switch {
	case s < 60:
		return fmt.Sprintf("%ds", s)
	case s < 3600:
		return fmt.Sprintf("%dm%02ds", s/60, s%60)
	default:
		return fmt.Sprintf("%dh%02dm", s/3600, (s%3600)/60)
	}
}
