package catalog

import (
	"context"
	"fmt"
	"iter"
	"path"
	"sort"
	"strings"

	"github.com/apache/iceberg-go/catalog"
	"github.com/apache/iceberg-go/table"
	"go.uber.org/zap"

	"github.com/Upsolver/iceberg-diag/internal/diag"
	"github.com/Upsolver/iceberg-diag/internal/logger"
)

// Lister is the catalog surface the resolver needs. catalog.Catalog
// satisfies it; tests substitute in-memory listers.
type Lister interface {
	ListNamespaces(ctx context.Context, parent table.Identifier) ([]table.Identifier, error)
	ListTables(ctx context.Context, namespace table.Identifier) iter.Seq2[table.Identifier, error]
}

// Resolver expands database and table-name patterns into concrete table
// identifiers.
type Resolver struct {
	lister      Lister
	catalogName string
	logger      *logger.VerboseLogger
}

// NewResolver creates a Resolver. catalogName is carried into the resolved
// identifiers and may be empty.
func NewResolver(lister Lister, catalogName string, vlogger *logger.VerboseLogger) *Resolver {
	return &Resolver{
		lister:      lister,
		catalogName: catalogName,
		logger:      vlogger,
	}
}

// ListDatabases returns the catalog's namespaces, sorted. Nested namespaces
// render dot-joined.
func (r *Resolver) ListDatabases(ctx context.Context) ([]string, error) {
	namespaces, err := r.lister.ListNamespaces(ctx, nil)
	if err != nil {
		return nil, diag.NewError(diag.KindOf(err), fmt.Errorf("listing namespaces: %w", err))
	}

	out := make([]string, 0, len(namespaces))
	for _, ns := range namespaces {
		out = append(out, strings.Join(ns, "."))
	}
	sort.Strings(out)

	r.logger.Debug("listed databases", zap.Int("count", len(out)))
	return out, nil
}

// ResolveTables expands a table-name glob pattern within a database into
// sorted table identifiers. An empty pattern matches every table.
func (r *Resolver) ResolveTables(ctx context.Context, database, pattern string) ([]diag.TableIdentifier, error) {
	if database == "" {
		return nil, diag.NewError(diag.KindInvalidParameter, fmt.Errorf("database is required"))
	}
	if pattern != "" {
		// Surface a bad pattern before any catalog call.
		if _, err := path.Match(pattern, ""); err != nil {
			return nil, diag.NewError(diag.KindInvalidParameter, fmt.Errorf("invalid table-name pattern %q: %w", pattern, err))
		}
	}

	var out []diag.TableIdentifier
	for ident, err := range r.lister.ListTables(ctx, catalog.ToIdentifier(strings.Split(database, ".")...)) {
		if err != nil {
			return nil, diag.NewError(diag.KindOf(err), fmt.Errorf("listing tables in %s: %w", database, err))
		}
		if len(ident) == 0 {
			continue
		}

		name := ident[len(ident)-1]
		if pattern != "" {
			if ok, _ := path.Match(pattern, name); !ok {
				continue
			}
		}

		out = append(out, diag.TableIdentifier{
			Catalog:  r.catalogName,
			Database: database,
			Table:    name,
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Table < out[j].Table })

	r.logger.Debug("resolved tables",
		zap.String("database", database),
		zap.String("pattern", pattern),
		zap.Int("count", len(out)))

	return out, nil
}
