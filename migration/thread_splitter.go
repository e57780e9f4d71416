package migration

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/theimaginaryfoundation/note-sheets/migration/fileutils"
)

// SplitOptions controls how SplitThreads writes per-thread files.
type SplitOptions struct {
	// OverwriteExisting controls whether existing output files should be overwritten.
	// If false and a file already exists, SplitThreads returns an error.
	OverwriteExisting bool

	// Pretty controls whether each output JSON file is indented for readability.
	Pretty bool

	// DirMode is used when creating the output directory (defaults to 0o755).
	DirMode fs.FileMode
}

// SplitResult contains basic stats from a split run.
type SplitResult struct {
	ThreadsWritten int
	Paths          []string
}

// SplitThreads writes one JSON file per thread into outputDir, named after the thread's
// root id. Colliding names get a -2, -3, ... suffix.
func SplitThreads(ctx context.Context, threads []Thread, outputDir string, opts SplitOptions) (SplitResult, error) {
	if ctx == nil {
		return SplitResult{}, errors.New("SplitThreads: ctx is nil")
	}
	if outputDir == "" {
		return SplitResult{}, errors.New("SplitThreads: outputDir is empty")
	}
	if opts.DirMode == 0 {
		opts.DirMode = 0o755
	}
	if err := os.MkdirAll(outputDir, opts.DirMode); err != nil {
		return SplitResult{}, fmt.Errorf("SplitThreads: mkdir outputDir: %w", err)
	}

	seen := make(map[string]int)
	var res SplitResult
	for _, th := range threads {
		select {
		case <-ctx.Done():
			return res, ctx.Err()
		default:
		}

		base := sanitizeFilenameComponent(ActorHandle(th.RootID))
		if base == "" {
			base = "thread"
		}
		n := seen[base]
		seen[base] = n + 1

		filename := base
		if n > 0 {
			filename = fmt.Sprintf("%s-%d", base, n+1)
		}
		outPath := filepath.Join(outputDir, filename+".json")

		if !opts.OverwriteExisting {
			if _, err := os.Stat(outPath); err == nil {
				return res, fmt.Errorf("SplitThreads: output file already exists: %s", outPath)
			} else if !errors.Is(err, fs.ErrNotExist) {
				return res, fmt.Errorf("SplitThreads: stat output file: %w", err)
			}
		}

		if err := fileutils.WriteJSONFileAtomic(outPath, th, opts.Pretty); err != nil {
			return res, fmt.Errorf("SplitThreads: write %s: %w", outPath, err)
		}
		res.ThreadsWritten++
		res.Paths = append(res.Paths, outPath)
	}
	return res, nil
}

// ReadThreadFile reads a file written by SplitThreads.
func ReadThreadFile(path string) (Thread, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Thread{}, fmt.Errorf("ReadThreadFile: %w", err)
	}
	var th Thread
	if err := json.Unmarshal(b, &th); err != nil {
		return Thread{}, fmt.Errorf("ReadThreadFile: unmarshal %s: %w", path, err)
	}
	return th, nil
}

func sanitizeFilenameComponent(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		case r == '-' || r == '_' || r == '.':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}

	out := strings.Trim(b.String(), "._-")
	return strings.TrimSpace(out)
}
