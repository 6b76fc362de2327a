package diag

// DiagnosticReport pairs a table's current statistics with its compaction
// projection. It is a pure value handed to rendering and submission
// collaborators; the pipeline discards it after handing it off.
type DiagnosticReport struct {
	// Table identifies the diagnosed table.
	Table TableIdentifier

	// Snapshot is the snapshot the statistics were computed from.
	Snapshot SnapshotMetadata

	// Metrics is the table's current statistics.
	Metrics TableMetricsSnapshot

	// Projection is the simulated compaction outcome.
	Projection OptimizationProjection

	// Warnings records recoverable problems hit while scanning, such as
	// skipped corrupt manifests.
	Warnings []string
}

// Assemble builds a DiagnosticReport. Pure and side-effect free; this is the
// sole place current and projected figures are paired.
func Assemble(table TableIdentifier, snapshot SnapshotMetadata, metrics TableMetricsSnapshot, projection OptimizationProjection, warnings []string) DiagnosticReport {
	return DiagnosticReport{
		Table:      table,
		Snapshot:   snapshot,
		Metrics:    metrics,
		Projection: projection,
		Warnings:   warnings,
	}
}
