package diag

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Upsolver/iceberg-diag/internal/logger"
)

// TableOpener resolves a table's snapshot metadata. Implemented by Loader;
// tests substitute in-memory openers.
type TableOpener interface {
	Load(ctx context.Context, id TableIdentifier) (*LoadedTable, error)
}

// PipelineConfig configures a multi-table diagnostics run.
type PipelineConfig struct {
	// TableConcurrency bounds how many table pipelines run in parallel.
	TableConcurrency int

	// TargetFileSizeBytes is the compaction target for projections.
	TargetFileSizeBytes int64

	// CostModel supplies the scan cost constants.
	CostModel CostModel

	// Aggregator configures per-table aggregation.
	Aggregator AggregatorConfig

	// Scanner configures manifest scanning.
	Scanner ScannerConfig
}

func (cfg PipelineConfig) withDefaults() PipelineConfig {
	if cfg.TableConcurrency <= 0 {
		cfg.TableConcurrency = 10
	}
	return cfg
}

// Runner drives the full pipeline (load, scan, aggregate, estimate, project,
// assemble) for each table, with per-table failure isolation.
type Runner struct {
	opener  TableOpener
	scanner *Scanner
	cfg     PipelineConfig
	logger  *logger.VerboseLogger
}

// NewRunner creates a Runner. Invalid projection or aggregation parameters
// are rejected here, before any remote work.
func NewRunner(opener TableOpener, cfg PipelineConfig, vlogger *logger.VerboseLogger) (*Runner, error) {
	cfg = cfg.withDefaults()

	if cfg.TargetFileSizeBytes <= 0 {
		return nil, NewError(KindInvalidParameter,
			fmt.Errorf("target file size must be positive, got %d", cfg.TargetFileSizeBytes))
	}
	if err := cfg.CostModel.Validate(); err != nil {
		return nil, err
	}
	// Reject bad aggregator config up front rather than once per table.
	if _, err := NewAggregator(cfg.Aggregator); err != nil {
		return nil, err
	}

	return &Runner{
		opener:  opener,
		scanner: NewScanner(cfg.Scanner, vlogger),
		cfg:     cfg,
		logger:  vlogger,
	}, nil
}

// Run processes each table independently, up to the configured concurrency.
// It returns the successful reports alongside the per-table failures; a run
// is never all-or-nothing. Once ctx is cancelled no new tables start, and
// tables without a finished report are excluded from both result sets.
func (r *Runner) Run(ctx context.Context, ids []TableIdentifier) ([]DiagnosticReport, []TableFailure) {
	var (
		mu       sync.Mutex
		reports  []DiagnosticReport
		failures []TableFailure
	)

	g := new(errgroup.Group)
	g.SetLimit(r.cfg.TableConcurrency)

	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}

		g.Go(func() error {
			report, err := r.processTable(ctx, id)
			if err != nil {
				if ctx.Err() != nil {
					// Cancelled mid-flight: not successful, not a table
					// failure either.
					r.logger.Debug("table excluded by cancellation", zap.String("table", id.String()))
					return nil
				}

				r.logger.Error("table diagnostics failed",
					zap.String("table", id.String()),
					zap.String("kind", KindOf(err).String()),
					zap.Error(err))

				mu.Lock()
				failures = append(failures, TableFailure{
					Table:   id,
					Kind:    KindOf(err),
					Message: err.Error(),
				})
				mu.Unlock()
				return nil
			}

			mu.Lock()
			reports = append(reports, report)
			mu.Unlock()
			return nil
		})
	}

	_ = g.Wait()

	sort.Slice(reports, func(i, j int) bool { return reports[i].Table.String() < reports[j].Table.String() })
	sort.Slice(failures, func(i, j int) bool { return failures[i].Table.String() < failures[j].Table.String() })

	return reports, failures
}

func (r *Runner) processTable(ctx context.Context, id TableIdentifier) (DiagnosticReport, error) {
	lt, err := r.opener.Load(ctx, id)
	if err != nil {
		return DiagnosticReport{}, err
	}

	agg, err := NewAggregator(r.cfg.Aggregator)
	if err != nil {
		return DiagnosticReport{}, err
	}

	stream := r.scanner.Scan(ctx, lt)
	for {
		entry, ok := stream.Next()
		if !ok {
			break
		}
		agg.Add(entry)
	}
	if err := stream.Err(); err != nil {
		return DiagnosticReport{}, err
	}
	if err := ctx.Err(); err != nil {
		return DiagnosticReport{}, err
	}

	metrics := agg.Finalize()

	projection, err := Project(metrics, r.cfg.TargetFileSizeBytes, r.cfg.CostModel)
	if err != nil {
		return DiagnosticReport{}, err
	}

	r.logger.Info("table diagnosed",
		zap.String("table", id.String()),
		zap.Int64("files", metrics.FileCount),
		zap.Int64("bytes", metrics.TotalBytes),
		zap.Int64("projected_files", projection.ProjectedFileCount),
		zap.Float64("improvement", projection.ImprovementRatio))

	return Assemble(id, lt.Snapshot, metrics, projection, stream.Warnings()), nil
}
