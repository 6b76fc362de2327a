package diag

import (
	"fmt"
	"time"
)

// PartitionProjection is the projected state of one partition after
// compaction to the target file size.
type PartitionProjection struct {
	// Partition is the canonical partition key.
	Partition string

	// CurrentFiles is the partition's live file count before compaction.
	CurrentFiles int64

	// ProjectedFiles is the file count after compaction:
	// ceil(bytes/target), clamped to CurrentFiles.
	ProjectedFiles int64

	// AlreadyOptimized is set when the clamp triggered: compaction cannot
	// reduce this partition's file count, so it contributes zero savings.
	AlreadyOptimized bool

	// CurrentCost and ProjectedCost are the modeled scan durations of this
	// partition before and after compaction.
	CurrentCost   time.Duration
	ProjectedCost time.Duration
}

// OptimizationProjection models the effect of compacting a table's live
// files to a target file size.
type OptimizationProjection struct {
	// TargetFileSizeBytes is the compaction target.
	TargetFileSizeBytes int64

	// ProjectedFileCount is the table-level file count after compaction.
	ProjectedFileCount int64

	// ProjectedTotalBytes equals the current total bytes: compaction
	// neither creates nor destroys data.
	ProjectedTotalBytes int64

	// Partitions holds the per-partition projections in snapshot order.
	Partitions []PartitionProjection

	// BaselineCost and ProjectedCost are the modeled scan durations before
	// and after compaction.
	BaselineCost  time.Duration
	ProjectedCost time.Duration

	// ImprovementRatio is 1 - projected/baseline, clamped at 0.
	ImprovementRatio float64
}

// Project simulates compaction of the table to the target file size and
// recomputes the scan cost under the same cost model. It performs no remote
// work and fails with an invalid-parameter error before touching the
// snapshot when the target is not positive.
func Project(snapshot TableMetricsSnapshot, targetFileSizeBytes int64, model CostModel) (OptimizationProjection, error) {
	if targetFileSizeBytes <= 0 {
		return OptimizationProjection{}, NewError(KindInvalidParameter,
			fmt.Errorf("target file size must be positive, got %d", targetFileSizeBytes))
	}
	if err := model.Validate(); err != nil {
		return OptimizationProjection{}, err
	}

	proj := OptimizationProjection{
		TargetFileSizeBytes: targetFileSizeBytes,
		ProjectedTotalBytes: snapshot.TotalBytes,
		Partitions:          make([]PartitionProjection, 0, len(snapshot.Partitions)),
	}

	for _, p := range snapshot.Partitions {
		pp := PartitionProjection{
			Partition:    p.Partition,
			CurrentFiles: p.FileCount,
		}

		if p.TotalBytes > 0 {
			pp.ProjectedFiles = ceilDiv(p.TotalBytes, targetFileSizeBytes)
			if pp.ProjectedFiles >= p.FileCount {
				// Compaction cannot shrink this partition; never project
				// more files than it already has.
				pp.ProjectedFiles = p.FileCount
				pp.AlreadyOptimized = true
			}
		}

		pp.CurrentCost = scanCost(p.FileCount, p.TotalBytes, model)
		pp.ProjectedCost = scanCost(pp.ProjectedFiles, p.TotalBytes, model)

		proj.ProjectedFileCount += pp.ProjectedFiles
		proj.Partitions = append(proj.Partitions, pp)
	}

	proj.BaselineCost = Estimate(snapshot, model)
	proj.ProjectedCost = scanCost(proj.ProjectedFileCount, proj.ProjectedTotalBytes, model)

	if proj.BaselineCost > 0 {
		proj.ImprovementRatio = 1 - float64(proj.ProjectedCost)/float64(proj.BaselineCost)
		if proj.ImprovementRatio < 0 {
			proj.ImprovementRatio = 0
		}
	}

	return proj, nil
}

func ceilDiv(a, b int64) int64 {
	return (a + b - 1) / b
}
