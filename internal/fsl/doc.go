// Package fsl builds and executes the external FSL and FreeSurfer
// commands (bet, fast, fslstats, recon-all) with captured stderr,
// stderr-pattern classification, and a bounded retry ladder that applies
// one parameter fallback per attempt.
package fsl
