package migration

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/theimaginaryfoundation/note-sheets/migration/fileutils"
)

// ThreadDigest is the projected view of one thread, as handed to a summarizer.
type ThreadDigest struct {
	Index        int
	Started      string
	Participants []string
	Rows         []Row
}

// ThreadSummary is a short model-written description of a thread.
type ThreadSummary struct {
	Title   string `json:"title"`
	Summary string `json:"summary"`
}

// ThreadSummarizer describes a thread in a sentence or two.
type ThreadSummarizer interface {
	SummarizeThread(ctx context.Context, d ThreadDigest) (ThreadSummary, error)
}

// SummaryHeader is the header of the thread summary table.
var SummaryHeader = []any{"thread index", "started", "participants", "title", "summary"}

// DigestRows groups threaded rows by thread index, in order of first appearance.
// Rows without a thread index are ignored.
func DigestRows(rows []Row) []ThreadDigest {
	var out []ThreadDigest
	pos := make(map[int]int)
	for _, r := range rows {
		if r.ThreadIndex <= 0 {
			continue
		}
		i, ok := pos[r.ThreadIndex]
		if !ok {
			i = len(out)
			pos[r.ThreadIndex] = i
			out = append(out, ThreadDigest{Index: r.ThreadIndex, Started: r.Timestamp})
		}
		d := &out[i]
		d.Rows = append(d.Rows, r)
		if !containsString(d.Participants, r.Author) {
			d.Participants = append(d.Participants, r.Author)
		}
	}
	return out
}

// Transcript renders the digest as one line per row, capped at maxChars (0 = no cap).
func (d ThreadDigest) Transcript(maxChars int) string {
	var b strings.Builder
	for _, r := range d.Rows {
		b.WriteString(r.Timestamp)
		b.WriteString(" ")
		b.WriteString(r.Author)
		b.WriteString(":")
		if r.Target != "" {
			b.WriteString(" ")
			b.WriteString(r.Target)
		}
		b.WriteString(" ")
		b.WriteString(fileutils.SanitizeNewlines(r.Body))
		b.WriteString("\n")
	}
	return fileutils.Truncate(b.String(), maxChars)
}

// SummarizeThreads runs the summarizer over every digest with at most concurrency calls
// in flight. The first error cancels the remaining calls and is returned. onDone, when
// set, is called after each call with its error (possibly nil).
func SummarizeThreads(ctx context.Context, digests []ThreadDigest, s ThreadSummarizer, concurrency int, onDone func(ThreadDigest, error)) ([]ThreadSummary, error) {
	if ctx == nil {
		return nil, errors.New("SummarizeThreads: ctx is nil")
	}
	if s == nil {
		return nil, errors.New("SummarizeThreads: summarizer is nil")
	}
	if concurrency <= 0 {
		concurrency = 1
	}

	parent := ctx
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	out := make([]ThreadSummary, len(digests))
	sem := make(chan struct{}, concurrency)
	errCh := make(chan error, len(digests))

	var wg sync.WaitGroup
	for i, d := range digests {
		wg.Add(1)
		go func() {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return
			}
			defer func() { <-sem }()

			sum, err := s.SummarizeThread(ctx, d)
			if onDone != nil {
				onDone(d, err)
			}
			if err != nil {
				errCh <- fmt.Errorf("SummarizeThreads: thread %d: %w", d.Index, err)
				cancel()
				return
			}
			out[i] = ThreadSummary{Title: strings.TrimSpace(sum.Title), Summary: strings.TrimSpace(sum.Summary)}
		}()
	}

	wg.Wait()
	close(errCh)

	for err := range errCh {
		if err != nil {
			return nil, err
		}
	}
	if err := parent.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// SummaryTable renders digests and their summaries (same order) as a table.
func SummaryTable(name string, digests []ThreadDigest, summaries []ThreadSummary) Table {
	values := make([][]any, 0, len(digests)+1)
	values = append(values, SummaryHeader)
	for i, d := range digests {
		var s ThreadSummary
		if i < len(summaries) {
			s = summaries[i]
		}
		values = append(values, []any{d.Index, d.Started, strings.Join(d.Participants, ", "), s.Title, s.Summary})
	}
	return Table{Name: name, Values: values}
}

func containsString(in []string, s string) bool {
	for _, v := range in {
		if v == s {
			return true
		}
	}
	return false
}
