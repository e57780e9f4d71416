package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/theimaginaryfoundation/note-sheets/migration"
	"github.com/theimaginaryfoundation/note-sheets/migration/logging"
	"github.com/theimaginaryfoundation/note-sheets/migration/source"
)

func main() {
	cfg, err := parseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(2)
	}
	logging.Init(logging.DefaultConfig())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func parseFlags(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := defaultConfig()

	fs.SetOutput(os.Stderr)

	fs.StringVar(&cfg.InputDir, "in", cfg.InputDir, "Directory of outbox archives (*.json)")
	fs.StringVar(&cfg.OutputDir, "out", cfg.OutputDir, "Directory to write per-thread JSON files into")
	fs.StringVar(&cfg.ItemsField, "items-field", cfg.ItemsField, "Top-level field holding the activity array")
	fs.StringVar(&cfg.Language, "language", cfg.Language, "contentMap language preferred over content")
	fs.IntVar(&cfg.Concurrency, "concurrency", cfg.Concurrency, "Archives decoded in parallel")
	fs.BoolVar(&cfg.Pretty, "pretty", false, "Pretty-print each output JSON file")
	fs.BoolVar(&cfg.Overwrite, "overwrite", false, "Overwrite existing output files")

	fs.Usage = func() {
		fmt.Fprintf(fs.Output(), "Usage:\n  %s [flags]\n\nFlags:\n", filepath.Base(os.Args[0]))
		fs.PrintDefaults()
		fmt.Fprintln(fs.Output(), "\nExamples:")
		fmt.Fprintln(fs.Output(), "  go run ./cmd/thread-splitter -in archives -out out/threads -pretty")
	}

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	cfg.InputDir = filepath.Clean(cfg.InputDir)
	cfg.OutputDir = filepath.Clean(cfg.OutputDir)
	return cfg, nil
}

func run(ctx context.Context, cfg Config, stdout io.Writer) error {
	refs, err := archiveRefs(cfg.InputDir)
	if err != nil {
		return err
	}
	if len(refs) == 0 {
		return fmt.Errorf("no *.json archives in %s", cfg.InputDir)
	}

	msgs, report, err := migration.LoadArchives(ctx, source.Dir{Root: cfg.InputDir}, refs, migration.LoadOptions{
		ItemsField:  cfg.ItemsField,
		Language:    cfg.Language,
		Concurrency: cfg.Concurrency,
	})
	if err != nil {
		return err
	}

	threads := migration.BuildThreads(msgs)
	res, err := migration.SplitThreads(ctx, threads, cfg.OutputDir, migration.SplitOptions{
		OverwriteExisting: cfg.Overwrite,
		Pretty:            cfg.Pretty,
		DirMode:           0o755,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "archives=%d failed=%d messages=%d threads_written=%d out_dir=%s\n",
		len(refs), report.Failed(), len(msgs), res.ThreadsWritten, cfg.OutputDir)
	return nil
}

// archiveRefs lists the directory's .json files in name order.
func archiveRefs(dir string) ([]migration.ArchiveRef, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read input dir: %w", err)
	}
	var refs []migration.ArchiveRef
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".json") {
			continue
		}
		refs = append(refs, migration.ArchiveRef{
			Name: strings.TrimSuffix(e.Name(), filepath.Ext(e.Name())),
			Ref:  e.Name(),
		})
	}
	sort.Slice(refs, func(i, j int) bool { return refs[i].Ref < refs[j].Ref })
	return refs, nil
}
