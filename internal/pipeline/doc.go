// Package pipeline orchestrates subject discovery, per-subject external
// processing (bet → fast → fslstats, optional recon-all), metrics
// persistence, and batch summary reporting. Subjects are processed
// sequentially; a failure on one subject is logged and the batch
// continues.
package pipeline
