package catalog

import (
	"context"
	"errors"
	"iter"
	"testing"

	"github.com/apache/iceberg-go/table"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Upsolver/iceberg-diag/internal/diag"
	"github.com/Upsolver/iceberg-diag/internal/logger"
)

type fakeLister struct {
	namespaces []table.Identifier
	tables     map[string][]string
	listNsErr  error
	listErr    error
}

func (f *fakeLister) ListNamespaces(ctx context.Context, parent table.Identifier) ([]table.Identifier, error) {
	if f.listNsErr != nil {
		return nil, f.listNsErr
	}
	return f.namespaces, nil
}

func (f *fakeLister) ListTables(ctx context.Context, namespace table.Identifier) iter.Seq2[table.Identifier, error] {
	return func(yield func(table.Identifier, error) bool) {
		if f.listErr != nil {
			yield(nil, f.listErr)
			return
		}
		key := ""
		if len(namespace) > 0 {
			key = namespace[0]
		}
		for _, name := range f.tables[key] {
			ident := append(append(table.Identifier{}, namespace...), name)
			if !yield(ident, nil) {
				return
			}
		}
	}
}

func testResolverLogger() *logger.VerboseLogger {
	return logger.New(zap.NewNop(), logger.LevelNormal)
}

func TestResolverListDatabases(t *testing.T) {
	t.Run("sorted dot-joined namespaces", func(t *testing.T) {
		lister := &fakeLister{
			namespaces: []table.Identifier{
				{"warehouse", "raw"},
				{"analytics"},
			},
		}

		r := NewResolver(lister, "", testResolverLogger())
		dbs, err := r.ListDatabases(context.Background())
		require.NoError(t, err)
		assert.Equal(t, []string{"analytics", "warehouse.raw"}, dbs)
	})

	t.Run("classified failure", func(t *testing.T) {
		lister := &fakeLister{listNsErr: errors.New("access denied")}

		r := NewResolver(lister, "", testResolverLogger())
		_, err := r.ListDatabases(context.Background())
		assert.True(t, diag.IsKind(err, diag.KindAccessDenied))
	})
}

func TestResolverResolveTables(t *testing.T) {
	lister := &fakeLister{
		tables: map[string][]string{
			"analytics": {"events", "orders", "event_archive"},
		},
	}

	t.Run("all tables", func(t *testing.T) {
		r := NewResolver(lister, "prod", testResolverLogger())
		ids, err := r.ResolveTables(context.Background(), "analytics", "")
		require.NoError(t, err)
		require.Len(t, ids, 3)
		assert.Equal(t, "prod.analytics.event_archive", ids[0].String())
		assert.Equal(t, "prod.analytics.events", ids[1].String())
		assert.Equal(t, "prod.analytics.orders", ids[2].String())
	})

	t.Run("glob pattern", func(t *testing.T) {
		r := NewResolver(lister, "", testResolverLogger())
		ids, err := r.ResolveTables(context.Background(), "analytics", "event*")
		require.NoError(t, err)
		require.Len(t, ids, 2)
		assert.Equal(t, "event_archive", ids[0].Table)
		assert.Equal(t, "events", ids[1].Table)
	})

	t.Run("no matches", func(t *testing.T) {
		r := NewResolver(lister, "", testResolverLogger())
		ids, err := r.ResolveTables(context.Background(), "analytics", "nope*")
		require.NoError(t, err)
		assert.Empty(t, ids)
	})

	t.Run("missing database rejected", func(t *testing.T) {
		r := NewResolver(lister, "", testResolverLogger())
		_, err := r.ResolveTables(context.Background(), "", "events")
		assert.True(t, diag.IsKind(err, diag.KindInvalidParameter))
	})

	t.Run("invalid pattern rejected", func(t *testing.T) {
		r := NewResolver(lister, "", testResolverLogger())
		_, err := r.ResolveTables(context.Background(), "analytics", "[")
		assert.True(t, diag.IsKind(err, diag.KindInvalidParameter))
	})

	t.Run("listing failure classified", func(t *testing.T) {
		broken := &fakeLister{listErr: errors.New("no such namespace: missing")}
		r := NewResolver(broken, "", testResolverLogger())
		_, err := r.ResolveTables(context.Background(), "missing", "")
		assert.True(t, diag.IsKind(err, diag.KindMetadataNotFound))
	})
}
