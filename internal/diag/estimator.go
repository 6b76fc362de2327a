package diag

import (
	"fmt"
	"time"
)

// CostModel holds the caller-supplied scan cost constants.
type CostModel struct {
	// PerFileOverhead is the fixed open/list/plan cost paid per file,
	// independent of its size.
	PerFileOverhead time.Duration

	// ThroughputBytesPerSec is the sequential scan rate in bytes per second.
	ThroughputBytesPerSec int64
}

// Validate checks the cost model constants.
func (m CostModel) Validate() error {
	if m.PerFileOverhead < 0 {
		return NewError(KindInvalidParameter, fmt.Errorf("per-file overhead must not be negative, got %s", m.PerFileOverhead))
	}
	if m.ThroughputBytesPerSec <= 0 {
		return NewError(KindInvalidParameter, fmt.Errorf("throughput must be positive, got %d", m.ThroughputBytesPerSec))
	}
	return nil
}

// Estimate models the duration of a full table scan:
//
//	cost = fileCount x perFileOverhead + totalBytes / throughput
//
// The per-file term is what makes many small files cost disproportionately
// more than few large files holding the same bytes.
func Estimate(snapshot TableMetricsSnapshot, model CostModel) time.Duration {
	return scanCost(snapshot.FileCount, snapshot.TotalBytes, model)
}

func scanCost(fileCount, totalBytes int64, model CostModel) time.Duration {
	overhead := time.Duration(fileCount) * model.PerFileOverhead
	transfer := time.Duration(float64(totalBytes) / float64(model.ThroughputBytesPerSec) * float64(time.Second))
	return overhead + transfer
}
