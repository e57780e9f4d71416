// Package source opens archive files from wherever a deployment keeps them.
package source

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/time/rate"
)

// Source opens one archive by reference (a file name or object key).
type Source interface {
	Open(ctx context.Context, ref string) (io.ReadCloser, error)
	Name() string
}

// Dir reads archives from a local directory.
type Dir struct {
	Root string
}

func (d Dir) Name() string { return "dir" }

// Open resolves ref inside Root; refs cannot escape the directory.
func (d Dir) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	if ref == "" {
		return nil, errors.New("Dir.Open: empty ref")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p := filepath.Join(d.Root, filepath.Clean(string(filepath.Separator)+ref))
	f, err := os.Open(p)
	if err != nil {
		return nil, fmt.Errorf("Dir.Open: %w", err)
	}
	return f, nil
}

// RateLimited waits on limiter before every Open.
func RateLimited(src Source, limiter *rate.Limiter) Source {
	if limiter == nil {
		return src
	}
	return limited{Source: src, limiter: limiter}
}

type limited struct {
	Source
	limiter *rate.Limiter
}

func (l limited) Open(ctx context.Context, ref string) (io.ReadCloser, error) {
	if err := l.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%s: rate limit wait: %w", l.Source.Name(), err)
	}
	return l.Source.Open(ctx, ref)
}
