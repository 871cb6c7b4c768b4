package pipeline

// RunStats tracks aggregate counters across a batch run.
type RunStats struct {
	Total     int // Subjects discovered (with or without T1w).
	Current   int // 1-based index of the subject being processed.
	Processed int // Metrics written (or would-be writes in dry-run).
	Skipped   int // No T1w, filtered out, or metrics already present.
	Failed    int // External tool or I/O failure.
}
