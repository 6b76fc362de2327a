package diag

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Upsolver/iceberg-diag/internal/logger"
)

// ManifestReader gives the scanner access to one snapshot's manifests.
// The metadata loader builds the concrete reader over the table's file IO;
// tests substitute in-memory readers.
type ManifestReader interface {
	// ManifestList fetches the snapshot's manifest-list entries.
	ManifestList(ctx context.Context) ([]ManifestFileRef, error)

	// ReadManifest decodes one manifest file into its data-file entries,
	// including deleted ones.
	ReadManifest(ctx context.Context, ref ManifestFileRef) ([]DataFileEntry, error)
}

// LoadedTable is the loader's result: the table's snapshot metadata plus
// access to its manifests.
type LoadedTable struct {
	// Table identifies the loaded table.
	Table TableIdentifier

	// Snapshot is the table's current snapshot metadata.
	Snapshot SnapshotMetadata

	// Spec is the partition spec the snapshot's files are keyed by.
	Spec PartitionSpec

	// Reader reads the snapshot's manifests.
	Reader ManifestReader
}

// ScannerConfig configures manifest scanning.
type ScannerConfig struct {
	// ManifestConcurrency bounds concurrent manifest fetches per table,
	// protecting the remote store.
	ManifestConcurrency int

	// CorruptThreshold is the tolerated proportion of corrupt manifests.
	// Exceeding it fails the whole table scan as corrupt metadata.
	CorruptThreshold float64

	// CallTimeout bounds each remote read.
	CallTimeout time.Duration

	// Retry bounds retries of transient read failures.
	Retry RetryPolicy
}

func (cfg ScannerConfig) withDefaults() ScannerConfig {
	if cfg.ManifestConcurrency <= 0 {
		cfg.ManifestConcurrency = 8
	}
	if cfg.CorruptThreshold <= 0 {
		cfg.CorruptThreshold = 0.5
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 60 * time.Second
	}
	return cfg
}

// Scanner streams the live data-file entries of a snapshot.
type Scanner struct {
	cfg    ScannerConfig
	logger *logger.VerboseLogger
}

// NewScanner creates a Scanner.
func NewScanner(cfg ScannerConfig, vlogger *logger.VerboseLogger) *Scanner {
	return &Scanner{
		cfg:    cfg.withDefaults(),
		logger: vlogger,
	}
}

// Scan streams the snapshot's live entries. The stream is finite and
// single-use; restarting means calling Scan again. Manifests are fetched by
// a bounded worker group and may be interleaved in any order, which is safe
// because downstream aggregation is commutative. A corrupt manifest is
// skipped with a recorded warning unless the corrupt proportion exceeds the
// configured threshold, in which case the stream fails with a corrupt-
// metadata error after exhaustion.
func (s *Scanner) Scan(ctx context.Context, lt *LoadedTable) *EntryStream {
	st := &EntryStream{ch: make(chan DataFileEntry, 256)}

	go func() {
		defer close(st.ch)
		st.fail(s.run(ctx, lt, st))
	}()

	return st
}

func (s *Scanner) run(ctx context.Context, lt *LoadedTable, st *EntryStream) error {
	var manifests []ManifestFileRef
	err := retryTransient(ctx, s.cfg.Retry, s.logger, "manifest-list", func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, s.cfg.CallTimeout)
		defer cancel()

		var err error
		manifests, err = lt.Reader.ManifestList(callCtx)
		return err
	})
	if err != nil {
		return NewTableError(KindOf(err), lt.Table, fmt.Errorf("reading manifest list: %w", err))
	}

	s.logger.Debug("scanning manifests",
		zap.String("table", lt.Table.String()),
		zap.Int("manifest_count", len(manifests)))

	var corrupt atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.ManifestConcurrency)

	for _, ref := range manifests {
		g.Go(func() error {
			entries, err := s.readManifest(gctx, lt.Reader, ref)
			if err != nil {
				if KindOf(err) != KindMetadataCorrupt {
					return NewTableError(KindOf(err), lt.Table, fmt.Errorf("reading manifest %s: %w", ref.Path, err))
				}

				st.warn(fmt.Sprintf("skipped corrupt manifest %s: %v", ref.Path, err))
				corrupt.Add(1)
				s.logger.Warn("skipping corrupt manifest",
					zap.String("table", lt.Table.String()),
					zap.String("manifest", ref.Path),
					zap.Error(err))
				return nil
			}

			for _, e := range entries {
				if !e.Live() {
					continue
				}
				select {
				case st.ch <- e:
				case <-gctx.Done():
					return gctx.Err()
				}
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}

	if n := len(manifests); n > 0 && float64(corrupt.Load())/float64(n) > s.cfg.CorruptThreshold {
		return NewTableError(KindMetadataCorrupt, lt.Table,
			fmt.Errorf("%d of %d manifests are corrupt, above threshold %.2f", corrupt.Load(), n, s.cfg.CorruptThreshold))
	}

	return nil
}

func (s *Scanner) readManifest(ctx context.Context, reader ManifestReader, ref ManifestFileRef) ([]DataFileEntry, error) {
	var entries []DataFileEntry
	err := retryTransient(ctx, s.cfg.Retry, s.logger, "manifest-read", func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, s.cfg.CallTimeout)
		defer cancel()

		var err error
		entries, err = reader.ReadManifest(callCtx, ref)
		return err
	})
	return entries, err
}

// EntryStream is a finite, single-use stream of live data-file entries.
// Exhaustion is explicit: Next returns false once the stream is drained or
// failed, after which Err and Warnings report the outcome.
type EntryStream struct {
	ch chan DataFileEntry

	mu       sync.Mutex
	err      error
	warnings []string
}

// Next returns the next live entry, or false when the stream is exhausted.
func (st *EntryStream) Next() (DataFileEntry, bool) {
	e, ok := <-st.ch
	return e, ok
}

// Err returns the stream's failure, valid after Next has returned false.
func (st *EntryStream) Err() error {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.err
}

// Warnings returns the recoverable problems hit while scanning, sorted for
// determinism. Valid after Next has returned false.
func (st *EntryStream) Warnings() []string {
	st.mu.Lock()
	defer st.mu.Unlock()
	out := append([]string(nil), st.warnings...)
	sort.Strings(out)
	return out
}

func (st *EntryStream) warn(msg string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.warnings = append(st.warnings, msg)
}

func (st *EntryStream) fail(err error) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.err = err
}
