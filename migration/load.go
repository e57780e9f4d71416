package migration

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"github.com/theimaginaryfoundation/note-sheets/migration/logging"
	"github.com/theimaginaryfoundation/note-sheets/migration/source"
)

// ArchiveRef names one archive to load: who it belongs to and where it lives in the source.
type ArchiveRef struct {
	Name string
	Ref  string
}

// ArchiveResult is the outcome of loading one archive.
type ArchiveResult struct {
	Archive  ArchiveRef
	Messages []Message
	Stats    DecodeStats
	Bytes    int64
	Elapsed  time.Duration
	Err      error
}

// LoadReport lists per-archive outcomes in selection order.
type LoadReport struct {
	Archives []ArchiveResult
}

// Failed returns the number of archives that contributed nothing because they failed.
func (r LoadReport) Failed() int {
	n := 0
	for _, a := range r.Archives {
		if a.Err != nil {
			n++
		}
	}
	return n
}

// LoadRecorder is told about each archive once it finishes.
type LoadRecorder interface {
	ObserveArchive(res ArchiveResult)
}

// LoadOptions controls LoadArchives.
type LoadOptions struct {
	ItemsField string
	Language   string

	// Concurrency bounds in-flight fetches (0 or 1 means sequential).
	Concurrency int

	Recorder LoadRecorder
}

// LoadArchives fetches and decodes every archive and concatenates their messages in
// selection order. A failing archive is logged and contributes nothing; the others
// still load. Only context cancellation aborts the whole load.
func LoadArchives(ctx context.Context, src source.Source, refs []ArchiveRef, opts LoadOptions) ([]Message, LoadReport, error) {
	if ctx == nil {
		return nil, LoadReport{}, errors.New("LoadArchives: ctx is nil")
	}
	if src == nil {
		return nil, LoadReport{}, errors.New("LoadArchives: source is nil")
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}

	log := logging.Component(ctx, "loader")
	results := make([]ArchiveResult, len(refs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Concurrency)
	for i, ref := range refs {
		g.Go(func() error {
			res := loadArchive(gctx, src, ref, opts)
			results[i] = res
			if opts.Recorder != nil {
				opts.Recorder.ObserveArchive(res)
			}
			if res.Err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				log.Error().Err(res.Err).
					Str("archive", ref.Name).
					Str("ref", ref.Ref).
					Str("source", src.Name()).
					Msg("archive dropped")
				return nil
			}
			log.Info().
				Str("archive", ref.Name).
				Int("notes", res.Stats.Notes).
				Int("skipped", res.Stats.Skipped).
				Str("size", humanize.Bytes(uint64(res.Bytes))).
				Dur("elapsed", res.Elapsed).
				Msg("archive loaded")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, LoadReport{Archives: results}, fmt.Errorf("LoadArchives: %w", err)
	}

	var msgs []Message
	for _, res := range results {
		msgs = append(msgs, res.Messages...)
	}
	return msgs, LoadReport{Archives: results}, nil
}

func loadArchive(ctx context.Context, src source.Source, ref ArchiveRef, opts LoadOptions) ArchiveResult {
	start := time.Now()
	res := ArchiveResult{Archive: ref}

	rc, err := src.Open(ctx, ref.Ref)
	if err != nil {
		res.Err = fmt.Errorf("open %s: %w", ref.Ref, err)
		res.Elapsed = time.Since(start)
		return res
	}
	defer rc.Close()

	cr := &countingReader{r: rc}
	msgs, stats, err := DecodeOutbox(ctx, cr, DecodeOptions{
		ItemsField: opts.ItemsField,
		Language:   opts.Language,
		Archive:    ref.Name,
	})
	res.Bytes = cr.n
	res.Stats = stats
	res.Elapsed = time.Since(start)
	if err != nil {
		res.Err = fmt.Errorf("decode %s: %w", ref.Ref, err)
		return res
	}
	res.Messages = msgs
	return res
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}
