package diag

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAggregatorConfig() AggregatorConfig {
	return AggregatorConfig{
		HistogramBounds:      []int64{1 * mib, 8 * mib, 32 * mib, 128 * mib, 512 * mib},
		MaxTrackedPartitions: 100,
	}
}

func entry(partition string, sizeBytes, records int64) DataFileEntry {
	return DataFileEntry{
		Path:        fmt.Sprintf("s3://bucket/data/%s/%d.parquet", partition, sizeBytes),
		SizeBytes:   sizeBytes,
		RecordCount: records,
		Partition:   partition,
		Status:      StatusAdded,
	}
}

func TestNewAggregator(t *testing.T) {
	t.Run("rejects non-positive partition cap", func(t *testing.T) {
		_, err := NewAggregator(AggregatorConfig{MaxTrackedPartitions: 0})
		assert.True(t, IsKind(err, KindInvalidParameter))
	})

	t.Run("rejects bad histogram bounds", func(t *testing.T) {
		_, err := NewAggregator(AggregatorConfig{
			HistogramBounds:      []int64{10, 5},
			MaxTrackedPartitions: 10,
		})
		assert.True(t, IsKind(err, KindInvalidParameter))
	})
}

func TestAggregatorTotals(t *testing.T) {
	agg, err := NewAggregator(testAggregatorConfig())
	require.NoError(t, err)

	agg.Add(entry("day=2024-01-01", 10*mib, 1000))
	agg.Add(entry("day=2024-01-01", 30*mib, 3000))
	agg.Add(entry("day=2024-01-02", 2*mib, 200))

	snap := agg.Finalize()
	assert.Equal(t, int64(3), snap.FileCount)
	assert.Equal(t, int64(42*mib), snap.TotalBytes)
	assert.Equal(t, int64(4200), snap.TotalRecords)
	assert.Equal(t, int64(2*mib), snap.MinFileSize)
	assert.Equal(t, int64(30*mib), snap.MaxFileSize)
	assert.Equal(t, int64(14*mib), snap.AverageFileSize())

	require.Len(t, snap.Partitions, 2)
	assert.Equal(t, "day=2024-01-01", snap.Partitions[0].Partition)
	assert.Equal(t, int64(2), snap.Partitions[0].FileCount)
	assert.Equal(t, "day=2024-01-02", snap.Partitions[1].Partition)
}

func TestAggregatorIgnoresDeletedEntries(t *testing.T) {
	agg, err := NewAggregator(testAggregatorConfig())
	require.NoError(t, err)

	agg.Add(entry("day=2024-01-01", 10*mib, 1000))
	deleted := entry("day=2024-01-01", 999*mib, 99999)
	deleted.Status = StatusDeleted
	agg.Add(deleted)

	snap := agg.Finalize()
	assert.Equal(t, int64(1), snap.FileCount)
	assert.Equal(t, int64(10*mib), snap.TotalBytes)
	assert.Equal(t, int64(10*mib), snap.MaxFileSize)
}

func TestAggregatorEmpty(t *testing.T) {
	agg, err := NewAggregator(testAggregatorConfig())
	require.NoError(t, err)

	snap := agg.Finalize()
	assert.Equal(t, int64(0), snap.FileCount)
	assert.Equal(t, int64(0), snap.MinFileSize)
	assert.Equal(t, int64(0), snap.MaxFileSize)
	assert.Equal(t, int64(0), snap.MedianFileSize)
	assert.Equal(t, int64(0), snap.AverageFileSize())
	assert.Empty(t, snap.Partitions)
}

func TestAggregatorOrderIndependence(t *testing.T) {
	// The same entries in any order, with any partial grouping and merge
	// order, must produce an identical snapshot. Uses a cap of 3 so the
	// inputs also exercise overflow folding.
	cfg := AggregatorConfig{
		HistogramBounds:      []int64{1 * mib, 8 * mib, 32 * mib},
		MaxTrackedPartitions: 3,
	}

	entries := []DataFileEntry{
		entry("day=2024-01-01", 2*mib, 20),
		entry("day=2024-01-02", 5*mib, 50),
		entry("day=2024-01-03", 16*mib, 160),
		entry("day=2024-01-04", 64*mib, 640),
		entry("day=2024-01-05", 3*mib, 30),
		entry("day=2024-01-01", 7*mib, 70),
		entry("day=2024-01-05", 1*mib, 10),
	}

	reference, err := NewAggregator(cfg)
	require.NoError(t, err)
	for _, e := range entries {
		reference.Add(e)
	}
	want := reference.Finalize()

	rng := rand.New(rand.NewSource(42))
	for trial := 0; trial < 20; trial++ {
		shuffled := append([]DataFileEntry(nil), entries...)
		rng.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})

		// Split into two partials and merge, simulating concurrent workers.
		left, err := NewAggregator(cfg)
		require.NoError(t, err)
		right, err := NewAggregator(cfg)
		require.NoError(t, err)
		split := rng.Intn(len(shuffled) + 1)
		for _, e := range shuffled[:split] {
			left.Add(e)
		}
		for _, e := range shuffled[split:] {
			right.Add(e)
		}
		require.NoError(t, left.Merge(right))

		assert.Equal(t, want, left.Finalize(), "trial %d (split %d)", trial, split)
	}
}

func TestAggregatorPartitionCap(t *testing.T) {
	cfg := AggregatorConfig{
		HistogramBounds:      []int64{1 * mib},
		MaxTrackedPartitions: 2,
	}

	agg, err := NewAggregator(cfg)
	require.NoError(t, err)

	agg.Add(entry("day=2024-01-03", 3*mib, 30))
	agg.Add(entry("day=2024-01-01", 1*mib, 10))
	agg.Add(entry("day=2024-01-02", 2*mib, 20))

	snap := agg.Finalize()
	require.Len(t, snap.Partitions, 3)

	// The two smallest keys stay tracked; the largest folds into overflow.
	assert.Equal(t, "day=2024-01-01", snap.Partitions[0].Partition)
	assert.Equal(t, "day=2024-01-02", snap.Partitions[1].Partition)
	assert.Equal(t, OverflowPartition, snap.Partitions[2].Partition)
	assert.Equal(t, int64(1), snap.Partitions[2].FileCount)
	assert.Equal(t, int64(3*mib), snap.Partitions[2].TotalBytes)

	// Totals are unaffected by folding.
	assert.Equal(t, int64(3), snap.FileCount)
	assert.Equal(t, int64(6*mib), snap.TotalBytes)
}

func TestAggregatorMergeRejectsMismatchedBounds(t *testing.T) {
	a, err := NewAggregator(AggregatorConfig{HistogramBounds: []int64{mib}, MaxTrackedPartitions: 10})
	require.NoError(t, err)
	b, err := NewAggregator(AggregatorConfig{HistogramBounds: []int64{2 * mib}, MaxTrackedPartitions: 10})
	require.NoError(t, err)

	assert.Error(t, a.Merge(b))
}

func TestSnapshotPartitionSelectors(t *testing.T) {
	snap := TableMetricsSnapshot{
		Partitions: []PartitionBucket{
			{Partition: "day=2024-01-01", FileCount: 10, TotalBytes: 100 * mib},
			{Partition: "day=2024-01-02", FileCount: 3, TotalBytes: 600 * mib},
			{Partition: "day=2024-01-03", FileCount: 10, TotalBytes: 5 * mib},
			{Partition: OverflowPartition, FileCount: 1000, TotalBytes: 9999 * mib},
		},
	}

	t.Run("worst by file count skips overflow and breaks ties by key", func(t *testing.T) {
		p, ok := snap.WorstPartitionByFileCount()
		require.True(t, ok)
		assert.Equal(t, "day=2024-01-01", p.Partition)
	})

	t.Run("largest by bytes", func(t *testing.T) {
		p, ok := snap.LargestPartitionByBytes()
		require.True(t, ok)
		assert.Equal(t, "day=2024-01-02", p.Partition)
	})

	t.Run("smallest average", func(t *testing.T) {
		p, ok := snap.SmallestAveragePartition()
		require.True(t, ok)
		assert.Equal(t, "day=2024-01-03", p.Partition)
	})

	t.Run("empty snapshot", func(t *testing.T) {
		_, ok := TableMetricsSnapshot{}.WorstPartitionByFileCount()
		assert.False(t, ok)
	})
}

func TestPartitionKey(t *testing.T) {
	spec := PartitionSpec{
		SpecID: 0,
		Fields: []PartitionField{
			{Name: "day", Transform: "day", SourceField: "ts"},
			{Name: "region", Transform: "identity", SourceField: "region"},
		},
	}

	t.Run("spec order", func(t *testing.T) {
		key := PartitionKey(spec, map[string]any{"region": "us-east-1", "day": "2024-01-01"})
		assert.Equal(t, "day=2024-01-01/region=us-east-1", key)
	})

	t.Run("extra fields sorted", func(t *testing.T) {
		key := PartitionKey(spec, map[string]any{"day": "2024-01-01", "b": 2, "a": 1})
		assert.Equal(t, "day=2024-01-01/a=1/b=2", key)
	})

	t.Run("unpartitioned", func(t *testing.T) {
		assert.Equal(t, "", PartitionKey(spec, nil))
	})
}
