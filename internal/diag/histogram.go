package diag

import (
	"fmt"
	"sort"
)

// Histogram counts file sizes over a fixed set of contiguous buckets.
// Boundaries are ascending; bucket i covers [Bounds[i-1], Bounds[i]) with the
// first bucket starting at 0 and the last bucket unbounded, so Counts always
// has len(Bounds)+1 entries and the buckets are gapless.
type Histogram struct {
	// Bounds are the ascending bucket boundaries in bytes.
	Bounds []int64

	// Counts are the per-bucket file counts.
	Counts []int64
}

// NewHistogram creates an empty histogram over the given boundaries.
// Boundaries must be positive and strictly ascending.
func NewHistogram(bounds []int64) (Histogram, error) {
	for i, b := range bounds {
		if b <= 0 {
			return Histogram{}, fmt.Errorf("histogram boundary must be positive, got %d", b)
		}
		if i > 0 && b <= bounds[i-1] {
			return Histogram{}, fmt.Errorf("histogram boundaries must be strictly ascending, got %d after %d", b, bounds[i-1])
		}
	}

	h := Histogram{
		Bounds: append([]int64(nil), bounds...),
		Counts: make([]int64, len(bounds)+1),
	}
	return h, nil
}

// Add counts one file of the given size.
func (h Histogram) Add(sizeBytes int64) {
	h.Counts[h.bucketFor(sizeBytes)]++
}

func (h Histogram) bucketFor(sizeBytes int64) int {
	return sort.Search(len(h.Bounds), func(i int) bool {
		return sizeBytes < h.Bounds[i]
	})
}

// Merge adds another histogram's counts into this one. Both histograms must
// share the same boundaries.
func (h Histogram) Merge(other Histogram) error {
	if len(h.Bounds) != len(other.Bounds) {
		return fmt.Errorf("cannot merge histograms with %d and %d boundaries", len(h.Bounds), len(other.Bounds))
	}
	for i, b := range h.Bounds {
		if other.Bounds[i] != b {
			return fmt.Errorf("cannot merge histograms with different boundaries at index %d: %d != %d", i, b, other.Bounds[i])
		}
	}
	for i, c := range other.Counts {
		h.Counts[i] += c
	}
	return nil
}

// Total returns the total count across all buckets.
func (h Histogram) Total() int64 {
	var total int64
	for _, c := range h.Counts {
		total += c
	}
	return total
}

// clone returns a deep copy.
func (h Histogram) clone() Histogram {
	return Histogram{
		Bounds: append([]int64(nil), h.Bounds...),
		Counts: append([]int64(nil), h.Counts...),
	}
}

// Median estimates the median size by linear interpolation within the bucket
// containing the middle element. maxSize caps the last, unbounded bucket so
// the interpolation stays finite. Returns 0 for an empty histogram.
func (h Histogram) Median(maxSize int64) int64 {
	total := h.Total()
	if total == 0 {
		return 0
	}

	target := (total + 1) / 2
	var seen int64
	for i, c := range h.Counts {
		if seen+c < target {
			seen += c
			continue
		}

		var lo int64
		if i > 0 {
			lo = h.Bounds[i-1]
		}
		hi := maxSize
		if i < len(h.Bounds) {
			hi = h.Bounds[i]
		}
		if hi < lo {
			hi = lo
		}

		// Position of the target element within the bucket, interpolated.
		pos := target - seen
		return lo + (hi-lo)*(2*pos-1)/(2*c)
	}

	return maxSize
}
