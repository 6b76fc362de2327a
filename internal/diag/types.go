package diag

import (
	"fmt"
	"sort"
	"strings"
)

// TableIdentifier names a table as catalog/database/table.
// It is a pure value supplied by the catalog resolver.
type TableIdentifier struct {
	// Catalog is the catalog name (may be empty for single-catalog runs).
	Catalog string

	// Database is the namespace (database) name.
	Database string

	// Table is the table name.
	Table string
}

// String returns "database.table", prefixed with the catalog name if set.
func (t TableIdentifier) String() string {
	if t.Catalog != "" {
		return fmt.Sprintf("%s.%s.%s", t.Catalog, t.Database, t.Table)
	}
	return fmt.Sprintf("%s.%s", t.Database, t.Table)
}

// SnapshotMetadata describes the current snapshot of a table.
// It is fetched once per run and never mutated afterwards.
type SnapshotMetadata struct {
	// SnapshotID is the current snapshot's id.
	SnapshotID int64

	// SequenceNumber is the snapshot's data sequence number.
	SequenceNumber int64

	// SchemaID is the id of the schema the snapshot was written with.
	SchemaID int

	// ManifestListLocation is the URI of the snapshot's manifest list.
	ManifestListLocation string

	// MetadataLocation is the URI of the table metadata file the snapshot
	// was resolved from.
	MetadataLocation string
}

// PartitionField is a single (source field, transform) pair of a partition spec.
type PartitionField struct {
	// Name is the partition field name (e.g. "day", "region").
	Name string

	// Transform is the partition transform (identity, year, month, day, hour,
	// bucket, truncate).
	Transform string

	// SourceField is the source column name.
	SourceField string
}

// PartitionSpec defines partition identity for a table.
type PartitionSpec struct {
	// SpecID is the spec's id within the table metadata.
	SpecID int

	// Fields are the partition fields, in spec order.
	Fields []PartitionField
}

// ManifestFileRef is one entry of a snapshot's manifest list.
type ManifestFileRef struct {
	// Path is the manifest file URI.
	Path string

	// Length is the manifest file length in bytes.
	Length int64

	// PartitionSpecID is the id of the partition spec the manifest was
	// written with.
	PartitionSpecID int32

	// AddedFiles, ExistingFiles and DeletedFiles are the per-status data
	// file counts recorded in the manifest list.
	AddedFiles    int32
	ExistingFiles int32
	DeletedFiles  int32

	// MinSequenceNumber and SequenceNumber bound the data sequence numbers
	// of the manifest's entries.
	MinSequenceNumber int64
	SequenceNumber    int64
}

// EntryStatus is the status of a manifest entry.
type EntryStatus int32

const (
	// StatusExisting marks a file carried over from a previous snapshot.
	StatusExisting EntryStatus = 0

	// StatusAdded marks a file added by the snapshot.
	StatusAdded EntryStatus = 1

	// StatusDeleted marks a file removed by the snapshot.
	StatusDeleted EntryStatus = 2
)

// DataFileEntry is one decoded data-file entry of a manifest.
type DataFileEntry struct {
	// Path is the data file URI.
	Path string

	// SizeBytes is the data file size in bytes.
	SizeBytes int64

	// RecordCount is the number of records in the data file.
	RecordCount int64

	// Partition is the canonical rendering of the file's partition-value
	// tuple, built with PartitionKey.
	Partition string

	// Status is the manifest entry status.
	Status EntryStatus
}

// Live reports whether the entry contributes to the table's current state.
// Only added and existing entries are live.
func (e DataFileEntry) Live() bool {
	return e.Status != StatusDeleted
}

// PartitionKey renders a partition-value tuple deterministically.
// Values are emitted in spec-field order; fields absent from the spec are
// appended in sorted key order so two tuples with equal values always render
// identically regardless of map iteration order.
func PartitionKey(spec PartitionSpec, values map[string]any) string {
	if len(values) == 0 {
		return ""
	}

	parts := make([]string, 0, len(values))
	seen := make(map[string]bool, len(values))

	for _, f := range spec.Fields {
		if v, ok := values[f.Name]; ok {
			parts = append(parts, fmt.Sprintf("%s=%v", f.Name, v))
			seen[f.Name] = true
		}
	}

	extra := make([]string, 0, len(values))
	for k := range values {
		if !seen[k] {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	for _, k := range extra {
		parts = append(parts, fmt.Sprintf("%s=%v", k, values[k]))
	}

	return strings.Join(parts, "/")
}

// PartitionBucket aggregates live file statistics for one partition tuple.
type PartitionBucket struct {
	// Partition is the canonical partition key, or OverflowPartition for
	// the capped overflow bucket.
	Partition string

	// FileCount is the number of live files in the partition.
	FileCount int64

	// TotalBytes is the total live data size in the partition.
	TotalBytes int64

	// TotalRecords is the total live record count in the partition.
	TotalRecords int64
}

// OverflowPartition is the designated bucket that absorbs partitions beyond
// the configured tracking cap.
const OverflowPartition = "<other>"

// TableMetricsSnapshot is the finalized, immutable statistics of one table.
type TableMetricsSnapshot struct {
	// FileCount is the total live file count.
	FileCount int64

	// TotalBytes is the total live data size.
	TotalBytes int64

	// TotalRecords is the total live record count.
	TotalRecords int64

	// MinFileSize and MaxFileSize are the exact extremes of live file sizes.
	// Both are zero when the table has no live files.
	MinFileSize int64
	MaxFileSize int64

	// MedianFileSize is estimated from the size histogram.
	MedianFileSize int64

	// Histogram is the file-size distribution over the configured buckets.
	Histogram Histogram

	// Partitions holds the tracked partition buckets sorted by key, with the
	// overflow bucket (if any) last.
	Partitions []PartitionBucket
}

// AverageFileSize returns total bytes over live file count, or 0 for an
// empty table.
func (s TableMetricsSnapshot) AverageFileSize() int64 {
	if s.FileCount == 0 {
		return 0
	}
	return s.TotalBytes / s.FileCount
}

// WorstPartitionByFileCount returns the tracked partition with the most live
// files. The overflow bucket is excluded since it is not a real partition.
// Ties are broken by partition key so the result is order-independent.
func (s TableMetricsSnapshot) WorstPartitionByFileCount() (PartitionBucket, bool) {
	return s.pickPartition(func(best, cand PartitionBucket) bool {
		return cand.FileCount > best.FileCount
	})
}

// LargestPartitionByBytes returns the tracked partition with the largest
// live byte total, excluding the overflow bucket.
func (s TableMetricsSnapshot) LargestPartitionByBytes() (PartitionBucket, bool) {
	return s.pickPartition(func(best, cand PartitionBucket) bool {
		return cand.TotalBytes > best.TotalBytes
	})
}

// SmallestAveragePartition returns the non-empty tracked partition with the
// smallest average file size, excluding the overflow bucket.
func (s TableMetricsSnapshot) SmallestAveragePartition() (PartitionBucket, bool) {
	return s.pickPartition(func(best, cand PartitionBucket) bool {
		if cand.FileCount == 0 {
			return false
		}
		if best.FileCount == 0 {
			return true
		}
		return cand.TotalBytes*best.FileCount < best.TotalBytes*cand.FileCount
	})
}

func (s TableMetricsSnapshot) pickPartition(better func(best, cand PartitionBucket) bool) (PartitionBucket, bool) {
	var best PartitionBucket
	found := false
	for _, p := range s.Partitions {
		if p.Partition == OverflowPartition {
			continue
		}
		if !found || better(best, p) {
			best = p
			found = true
		}
	}
	return best, found
}

// TableFailure records one table-scoped failure of a multi-table run.
type TableFailure struct {
	// Table is the table that failed.
	Table TableIdentifier

	// Kind is the failure classification.
	Kind Kind

	// Message is the failure detail.
	Message string
}
