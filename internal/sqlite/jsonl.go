// This file provides JSONL export and import of content tables, using the
// temp-file, fsync, rename pattern for atomic writes.
package sqlite

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mesh-intelligence/folio/pkg/types"
)

// Export writes every record of the named table to path as JSONL, one record
// per line, ordered by creation time. The file is replaced atomically.
func (b *Backend) Export(ctx context.Context, tableName, path string) (int, error) {
	tbl, err := b.GetTable(tableName)
	if err != nil {
		return 0, err
	}
	records, err := tbl.Query(ctx, nil)
	if err != nil {
		return 0, err
	}

	lines := make([]json.RawMessage, 0, len(records))
	for _, rec := range records {
		line, err := json.Marshal(rec)
		if err != nil {
			return 0, fmt.Errorf("encoding %s %s: %w", tableName, rec.ID(), err)
		}
		lines = append(lines, line)
	}
	if err := writeJSONL(path, lines); err != nil {
		return 0, err
	}
	b.logger.Info("table exported", "table", tableName, "records", len(lines), "path", path)
	return len(lines), nil
}

// Import reads a JSONL file and upserts each record into the named table:
// records whose id exists are updated, the rest are created with their id.
// Malformed lines are skipped. Returns the number of records written.
func (b *Backend) Import(ctx context.Context, tableName, path string) (int, error) {
	tbl, err := b.GetTable(tableName)
	if err != nil {
		return 0, err
	}
	lines, err := readJSONL(path)
	if err != nil {
		return 0, err
	}

	n := 0
	for _, line := range lines {
		var rec types.Record
		if err := json.Unmarshal(line, &rec); err != nil {
			continue
		}
		id := rec.ID()
		if id != "" {
			if _, err := tbl.Update(ctx, id, rec); err == nil {
				n++
				continue
			} else if !errors.Is(err, types.ErrNotFound) {
				return n, err
			}
		}
		if _, err := tbl.Create(ctx, rec); err != nil {
			return n, err
		}
		n++
	}
	b.logger.Info("table imported", "table", tableName, "records", n, "path", path)
	return n, nil
}

// readJSONL reads a JSONL file and returns each non-empty, parseable line as
// a json.RawMessage. Malformed lines are skipped.
func readJSONL(path string) ([]json.RawMessage, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var records []json.RawMessage
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16<<20)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if !json.Valid(line) {
			continue
		}
		cp := make([]byte, len(line))
		copy(cp, line)
		records = append(records, json.RawMessage(cp))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning %s: %w", path, err)
	}
	return records, nil
}

// writeJSONL atomically writes records to a JSONL file using the temp-file,
// fsync, rename pattern.
func writeJSONL(path string, records []json.RawMessage) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".jsonl-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()

	w := bufio.NewWriter(tmp)
	for _, rec := range records {
		if _, err := w.Write(rec); err != nil {
			tmp.Close()
			os.Remove(tmpName)
			return fmt.Errorf("writing record: %w", err)
		}
		if err := w.WriteByte('\n'); err != nil {
			tmp.Close()
			os.Remove(tmpName)
			return fmt.Errorf("writing newline: %w", err)
		}
	}
	if err := w.Flush(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("flushing buffer: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("renaming temp file: %w", err)
	}
	return nil
}
