package diag

import (
	"fmt"
	"sort"
)

// AggregatorConfig configures a metrics aggregation.
type AggregatorConfig struct {
	// HistogramBounds are the ascending size-histogram boundaries in bytes.
	HistogramBounds []int64

	// MaxTrackedPartitions caps the number of individually tracked
	// partitions. Partitions beyond the cap fold into the overflow bucket.
	MaxTrackedPartitions int
}

// Aggregator reduces a data-file entry stream into a TableMetricsSnapshot.
//
// Aggregation is commutative and associative: feeding the same entries in any
// order, or merging partial aggregators built over disjoint entry subsets,
// yields an identical snapshot. The partition cap preserves this by always
// keeping the lexicographically smallest partition keys: when a new key
// arrives at a full map, either it or the largest tracked key folds into the
// overflow bucket, whichever is larger. The retained set therefore depends
// only on the set of keys seen, not on arrival order.
//
// An Aggregator is owned by a single table pipeline and is not safe for
// concurrent use; concurrent workers each own a partial Aggregator and merge
// them afterwards.
type Aggregator struct {
	cfg AggregatorConfig

	fileCount    int64
	totalBytes   int64
	totalRecords int64
	minSize      int64
	maxSize      int64

	histogram  Histogram
	partitions map[string]*PartitionBucket
	overflow   PartitionBucket
}

// NewAggregator creates an empty aggregator.
func NewAggregator(cfg AggregatorConfig) (*Aggregator, error) {
	if cfg.MaxTrackedPartitions <= 0 {
		return nil, NewError(KindInvalidParameter, fmt.Errorf("max tracked partitions must be positive, got %d", cfg.MaxTrackedPartitions))
	}

	hist, err := NewHistogram(cfg.HistogramBounds)
	if err != nil {
		return nil, NewError(KindInvalidParameter, err)
	}

	return &Aggregator{
		cfg:        cfg,
		minSize:    -1,
		histogram:  hist,
		partitions: make(map[string]*PartitionBucket),
		overflow:   PartitionBucket{Partition: OverflowPartition},
	}, nil
}

// Add folds one entry into the running totals. Deleted entries are ignored;
// the scanner normally drops them before they get here.
func (a *Aggregator) Add(e DataFileEntry) {
	if !e.Live() {
		return
	}

	a.fileCount++
	a.totalBytes += e.SizeBytes
	a.totalRecords += e.RecordCount
	if a.minSize < 0 || e.SizeBytes < a.minSize {
		a.minSize = e.SizeBytes
	}
	if e.SizeBytes > a.maxSize {
		a.maxSize = e.SizeBytes
	}
	a.histogram.Add(e.SizeBytes)

	a.addToPartition(e.Partition, 1, e.SizeBytes, e.RecordCount)
}

func (a *Aggregator) addToPartition(key string, files, bytes, records int64) {
	if b, ok := a.partitions[key]; ok {
		b.FileCount += files
		b.TotalBytes += bytes
		b.TotalRecords += records
		return
	}

	if len(a.partitions) >= a.cfg.MaxTrackedPartitions {
		// Map is full. Keep the MaxTrackedPartitions smallest keys: either
		// the new key displaces the current largest tracked key, or it goes
		// straight to overflow.
		largest := a.largestTrackedKey()
		if key >= largest {
			a.overflow.FileCount += files
			a.overflow.TotalBytes += bytes
			a.overflow.TotalRecords += records
			return
		}

		evicted := a.partitions[largest]
		delete(a.partitions, largest)
		a.overflow.FileCount += evicted.FileCount
		a.overflow.TotalBytes += evicted.TotalBytes
		a.overflow.TotalRecords += evicted.TotalRecords
	}

	a.partitions[key] = &PartitionBucket{
		Partition:    key,
		FileCount:    files,
		TotalBytes:   bytes,
		TotalRecords: records,
	}
}

func (a *Aggregator) largestTrackedKey() string {
	var largest string
	for k := range a.partitions {
		if k > largest {
			largest = k
		}
	}
	return largest
}

// Merge folds another aggregator's partial state into this one. Both must
// share the same configuration.
func (a *Aggregator) Merge(other *Aggregator) error {
	if err := a.histogram.Merge(other.histogram); err != nil {
		return err
	}

	a.fileCount += other.fileCount
	a.totalBytes += other.totalBytes
	a.totalRecords += other.totalRecords
	if other.minSize >= 0 && (a.minSize < 0 || other.minSize < a.minSize) {
		a.minSize = other.minSize
	}
	if other.maxSize > a.maxSize {
		a.maxSize = other.maxSize
	}

	a.overflow.FileCount += other.overflow.FileCount
	a.overflow.TotalBytes += other.overflow.TotalBytes
	a.overflow.TotalRecords += other.overflow.TotalRecords

	// Merge partitions in sorted key order so cap-driven folding is
	// deterministic regardless of which aggregator saw which subset.
	keys := make([]string, 0, len(other.partitions))
	for k := range other.partitions {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b := other.partitions[k]
		a.addToPartition(k, b.FileCount, b.TotalBytes, b.TotalRecords)
	}

	return nil
}

// Finalize builds the immutable snapshot. The aggregator remains usable, but
// callers conventionally discard it afterwards.
func (a *Aggregator) Finalize() TableMetricsSnapshot {
	parts := make([]PartitionBucket, 0, len(a.partitions)+1)
	for _, b := range a.partitions {
		parts = append(parts, *b)
	}
	sort.Slice(parts, func(i, j int) bool { return parts[i].Partition < parts[j].Partition })
	if a.overflow.FileCount > 0 {
		parts = append(parts, a.overflow)
	}

	minSize := a.minSize
	if minSize < 0 {
		minSize = 0
	}

	return TableMetricsSnapshot{
		FileCount:      a.fileCount,
		TotalBytes:     a.totalBytes,
		TotalRecords:   a.totalRecords,
		MinFileSize:    minSize,
		MaxFileSize:    a.maxSize,
		MedianFileSize: a.histogram.Median(a.maxSize),
		Histogram:      a.histogram.clone(),
		Partitions:     parts,
	}
}
