// Package sink writes finished tables somewhere a person can open them.
package sink

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/theimaginaryfoundation/note-sheets/migration"
	"github.com/theimaginaryfoundation/note-sheets/migration/fileutils"
)

// Writer publishes a set of tables under one title and returns where they ended up
// (a URL or a path).
type Writer interface {
	WriteTables(ctx context.Context, title string, tables []migration.Table) (string, error)
}

// CSVDir writes each table as <title>.csv (first table) or <title>.<name>.csv.
type CSVDir struct {
	Dir       string
	Overwrite bool
}

func (w CSVDir) WriteTables(ctx context.Context, title string, tables []migration.Table) (string, error) {
	if w.Dir == "" {
		return "", errors.New("CSVDir: Dir is empty")
	}
	if len(tables) == 0 {
		return "", errors.New("CSVDir: no tables")
	}
	base := fileStem(title)
	if base == "" {
		base = "export"
	}

	var first string
	for i, t := range tables {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		name := base + ".csv"
		if i > 0 {
			name = base + "." + fileStem(t.Name) + ".csv"
		}
		p := filepath.Join(w.Dir, name)
		if !w.Overwrite && fileutils.FileExists(p) {
			return "", fmt.Errorf("CSVDir: output file already exists: %s", p)
		}

		b, err := encodeCSV(t.Values)
		if err != nil {
			return "", fmt.Errorf("CSVDir: encode %s: %w", t.Name, err)
		}
		if err := fileutils.WriteFileAtomicSameDir(p, b, 0o644); err != nil {
			return "", fmt.Errorf("CSVDir: write %s: %w", p, err)
		}
		if i == 0 {
			first = p
		}
	}
	return first, nil
}

func encodeCSV(values [][]any) ([]byte, error) {
	var buf bytes.Buffer
	cw := csv.NewWriter(&buf)
	for _, line := range values {
		rec := make([]string, len(line))
		for i, v := range line {
			rec[i] = fmt.Sprint(v)
		}
		if err := cw.Write(rec); err != nil {
			return nil, err
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// fileStem keeps letters (any script), digits, and -_. and replaces everything else.
func fileStem(s string) string {
	s = strings.TrimSpace(s)
	var b strings.Builder
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r), r == '-' || r == '_' || r == '.':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return strings.Trim(b.String(), "._-")
}
