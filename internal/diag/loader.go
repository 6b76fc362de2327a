package diag

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/apache/iceberg-go"
	"github.com/apache/iceberg-go/catalog"
	iceio "github.com/apache/iceberg-go/io"
	"github.com/apache/iceberg-go/table"
	"go.uber.org/zap"

	"github.com/Upsolver/iceberg-diag/internal/logger"
)

// LoaderConfig configures metadata loading.
type LoaderConfig struct {
	// CallTimeout bounds each catalog call.
	CallTimeout time.Duration

	// Retry bounds retries of transient catalog failures.
	Retry RetryPolicy
}

func (cfg LoaderConfig) withDefaults() LoaderConfig {
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = 60 * time.Second
	}
	return cfg
}

// Loader resolves a table's current snapshot metadata through an Iceberg
// catalog.
type Loader struct {
	catalog catalog.Catalog
	cfg     LoaderConfig
	logger  *logger.VerboseLogger
}

// NewLoader creates a Loader over the given catalog.
func NewLoader(cat catalog.Catalog, cfg LoaderConfig, vlogger *logger.VerboseLogger) *Loader {
	return &Loader{
		catalog: cat,
		cfg:     cfg.withDefaults(),
		logger:  vlogger,
	}
}

// Load fetches the table's current metadata pointer and snapshot, and parses
// the partition spec and manifest-list location. Failures are classified and
// scoped to the one table so multi-table callers can continue with the rest.
func (l *Loader) Load(ctx context.Context, id TableIdentifier) (*LoadedTable, error) {
	var tbl *table.Table
	err := retryTransient(ctx, l.cfg.Retry, l.logger, "load-table", func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, l.cfg.CallTimeout)
		defer cancel()

		var err error
		parts := append(strings.Split(id.Database, "."), id.Table)
		tbl, err = l.catalog.LoadTable(callCtx, catalog.ToIdentifier(parts...))
		return err
	})
	if err != nil {
		return nil, NewTableError(classifyCatalogError(err), id, fmt.Errorf("loading table: %w", err))
	}

	snapshot := tbl.CurrentSnapshot()
	if snapshot == nil {
		return nil, NewTableError(KindMetadataNotFound, id, errors.New("table has no current snapshot"))
	}

	fs, err := tbl.FS(ctx)
	if err != nil {
		return nil, NewTableError(classifyCatalogError(err), id, fmt.Errorf("opening table file IO: %w", err))
	}

	spec := convertPartitionSpec(tbl.Spec(), tbl.Schema())

	schemaID := tbl.Schema().ID
	if snapshot.SchemaID != nil {
		schemaID = *snapshot.SchemaID
	}

	meta := SnapshotMetadata{
		SnapshotID:           snapshot.SnapshotID,
		SequenceNumber:       snapshot.SequenceNumber,
		SchemaID:             schemaID,
		ManifestListLocation: snapshot.ManifestList,
		MetadataLocation:     tbl.MetadataLocation(),
	}

	l.logger.Debug("loaded table metadata",
		zap.String("table", id.String()),
		zap.Int64("snapshot_id", meta.SnapshotID),
		zap.String("manifest_list", meta.ManifestListLocation))

	return &LoadedTable{
		Table:    id,
		Snapshot: meta,
		Spec:     spec,
		Reader: &snapshotManifestReader{
			snapshot: snapshot,
			fs:       fs,
			spec:     spec,
		},
	}, nil
}

// classifyCatalogError maps iceberg-go sentinel errors before falling back
// to message-based classification.
func classifyCatalogError(err error) Kind {
	switch {
	case errors.Is(err, catalog.ErrNoSuchTable), errors.Is(err, catalog.ErrNoSuchNamespace):
		return KindMetadataNotFound
	default:
		return Classify(err)
	}
}

func convertPartitionSpec(spec iceberg.PartitionSpec, schema *iceberg.Schema) PartitionSpec {
	out := PartitionSpec{SpecID: spec.ID()}
	for i := 0; i < spec.NumFields(); i++ {
		f := spec.Field(i)

		sourceField := ""
		if nested, ok := schema.FindFieldByID(f.SourceID); ok {
			sourceField = nested.Name
		}

		out.Fields = append(out.Fields, PartitionField{
			Name:        f.Name,
			Transform:   f.Transform.String(),
			SourceField: sourceField,
		})
	}
	return out
}

// snapshotManifestReader reads a snapshot's manifests through the table's
// file IO. It keeps the decoded manifest handles keyed by path so the
// scanner can address them by ManifestFileRef.
type snapshotManifestReader struct {
	snapshot  *table.Snapshot
	fs        iceio.IO
	spec      PartitionSpec
	manifests map[string]iceberg.ManifestFile
}

// ManifestList implements ManifestReader. Delete manifests are excluded;
// only data manifests contribute data-file entries.
func (r *snapshotManifestReader) ManifestList(_ context.Context) ([]ManifestFileRef, error) {
	manifests, err := r.snapshot.Manifests(r.fs)
	if err != nil {
		return nil, err
	}

	r.manifests = make(map[string]iceberg.ManifestFile, len(manifests))
	refs := make([]ManifestFileRef, 0, len(manifests))

	for _, m := range manifests {
		if m.ManifestContent() != iceberg.ManifestContentData {
			continue
		}

		r.manifests[m.FilePath()] = m
		refs = append(refs, ManifestFileRef{
			Path:              m.FilePath(),
			Length:            m.Length(),
			PartitionSpecID:   m.PartitionSpecID(),
			AddedFiles:        m.AddedDataFiles(),
			ExistingFiles:     m.ExistingDataFiles(),
			DeletedFiles:      m.DeletedDataFiles(),
			MinSequenceNumber: m.MinSequenceNum(),
			SequenceNumber:    m.SequenceNum(),
		})
	}

	return refs, nil
}

// ReadManifest implements ManifestReader. Deleted entries are kept; the
// scanner drops them before yielding.
func (r *snapshotManifestReader) ReadManifest(_ context.Context, ref ManifestFileRef) ([]DataFileEntry, error) {
	m, ok := r.manifests[ref.Path]
	if !ok {
		return nil, fmt.Errorf("manifest %s is not part of this snapshot's manifest list", ref.Path)
	}

	entries, err := m.FetchEntries(r.fs, false)
	if err != nil {
		return nil, err
	}

	out := make([]DataFileEntry, 0, len(entries))
	for _, e := range entries {
		df := e.DataFile()
		if df.ContentType() != iceberg.EntryContentData {
			continue
		}

		out = append(out, DataFileEntry{
			Path:        df.FilePath(),
			SizeBytes:   df.FileSizeBytes(),
			RecordCount: df.Count(),
			Partition:   PartitionKey(r.spec, df.Partition()),
			Status:      EntryStatus(e.Status()),
		})
	}

	return out, nil
}
