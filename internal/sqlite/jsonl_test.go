// Tests for JSONL export and import.
package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mesh-intelligence/folio/pkg/types"
)

func attachTemp(t *testing.T) *Backend {
	t.Helper()
	b := NewBackend()
	require.NoError(t, b.Attach(types.Config{Backend: types.BackendSQLite, DataDir: t.TempDir()}))
	t.Cleanup(func() { b.Detach() })
	return b
}

func TestExportImportRoundTrip(t *testing.T) {
	ctx := context.Background()
	src := attachTemp(t)

	tbl, err := src.GetTable("projects")
	require.NoError(t, err)
	first, err := tbl.Create(ctx, types.Record{"title": "One", "tags": []string{"go", "sql"}})
	require.NoError(t, err)
	_, err = tbl.Create(ctx, types.Record{"title": "Two"})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "projects.jsonl")
	n, err := src.Export(ctx, "projects", path)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], first.ID())
	assert.NotContains(t, lines[0], "\n  ", "records are not pretty printed")

	dst := attachTemp(t)
	n, err = dst.Import(ctx, "projects", path)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	dstTbl, err := dst.GetTable("projects")
	require.NoError(t, err)
	records, err := dstTbl.Query(ctx, map[string]any{types.FieldID: first.ID()})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "One", records[0]["title"])
	assert.Equal(t, []any{"go", "sql"}, records[0]["tags"])

	// Importing again updates in place instead of duplicating.
	n, err = dst.Import(ctx, "projects", path)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	all, err := dstTbl.Query(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestReadJSONLSkipsBlankAndMalformedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mixed.jsonl")
	content := "{\"id\":\"a\"}\n\nnot json\n{\"id\":\"b\"}\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	records, err := readJSONL(path)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestWriteJSONLAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.jsonl")
	require.NoError(t, os.WriteFile(path, []byte("old\n"), 0o644))

	require.NoError(t, writeJSONL(path, nil))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Empty(t, data)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp file must not be left behind")
}
