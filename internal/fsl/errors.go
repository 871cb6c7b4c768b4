package fsl

import "regexp"

// Pre-compiled regexes for classifying bet/fast stderr output into
// retryable error categories. Checked by [RetryState]; the first matching
// pattern whose fallback has not yet been applied wins.
var (
	// bet's robust mode iterates a centre-of-gravity estimate; on low-contrast
	// or badly oriented images it can fail where a plain single pass succeeds.
	reRobustCentre = regexp.MustCompile(
		`(?i)robust brain centre estimation|centre-of-gravity|did not converge|` +
			`image not reduced|failed to find any brain`)

	// fast's bias-field estimation (-B) can diverge on already-corrected or
	// heavily clipped images; segmentation without it often still succeeds.
	reBiasField = regexp.MustCompile(
		`(?i)bias field|bias-field|MRF weight|lowpass filtering failed|` +
			`singular matrix|segmentation fault.*fast`)
)

// MatchRobustIssue reports whether stderr points at bet's robust-mode
// centre estimation.
func MatchRobustIssue(stderr string) bool {
	return reRobustCentre.MatchString(stderr)
}

// MatchBiasIssue reports whether stderr points at fast's bias-field
// correction.
func MatchBiasIssue(stderr string) bool {
	return reBiasField.MatchString(stderr)
}
