package main

import (
	"bytes"
	"context"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/theimaginaryfoundation/note-sheets/migration/config"
)

func TestParseFlags_Defaults(t *testing.T) {
	t.Parallel()

	fs := flag.NewFlagSet("archive-sheets", flag.ContinueOnError)
	cfg, err := parseFlags(fs, nil)
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	if cfg.Source != "dir" {
		t.Fatalf("Source=%q, want %q", cfg.Source, "dir")
	}
	if cfg.Sink != "csv" {
		t.Fatalf("Sink=%q, want %q", cfg.Sink, "csv")
	}
	if cfg.Concurrency != 2 {
		t.Fatalf("Concurrency=%d, want 2", cfg.Concurrency)
	}
	if len(cfg.Characters) != 0 {
		t.Fatalf("Characters=%v, want none", cfg.Characters)
	}
}

func TestParseFlags_Overrides(t *testing.T) {
	t.Parallel()

	fs := flag.NewFlagSet("archive-sheets", flag.ContinueOnError)
	cfg, err := parseFlags(fs, []string{
		"-characters", "아서, 샬럿,,",
		"-source", "s3",
		"-s3-endpoint", "localhost:9000",
		"-s3-bucket", "archives",
		"-s3-ssl=false",
		"-sink", "sheets",
		"-title", "backup",
		"-flat",
		"-target",
		"-concurrency", "4",
		"-rps", "0",
	})
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	if got := strings.Join(cfg.Characters, "|"); got != "아서|샬럿" {
		t.Fatalf("Characters=%q, want %q", got, "아서|샬럿")
	}
	if cfg.Source != "s3" || cfg.S3Endpoint != "localhost:9000" || cfg.S3Bucket != "archives" || cfg.S3UseSSL {
		t.Fatalf("unexpected s3 settings: %+v", cfg)
	}
	if cfg.Sink != "sheets" || cfg.Title != "backup" {
		t.Fatalf("unexpected sink settings: sink=%q title=%q", cfg.Sink, cfg.Title)
	}
	if !cfg.Flat || !cfg.IncludeTarget {
		t.Fatalf("Flat=%v IncludeTarget=%v, want both true", cfg.Flat, cfg.IncludeTarget)
	}
	if cfg.Concurrency != 4 {
		t.Fatalf("Concurrency=%d, want 4", cfg.Concurrency)
	}
	if cfg.RateLimit != 0 {
		t.Fatalf("RateLimit=%v, want 0", cfg.RateLimit)
	}
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	base := defaultConfig()
	base.Characters = []string{"아서"}
	if err := base.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	cases := map[string]func(c *Config){
		"no characters":   func(c *Config) { c.Characters = nil },
		"unknown source":  func(c *Config) { c.Source = "ftp" },
		"dir without in":  func(c *Config) { c.InputDir = "" },
		"s3 without host": func(c *Config) { c.Source = "s3"; c.S3Bucket = "b" },
		"unknown sink":    func(c *Config) { c.Sink = "xlsx" },
		"csv without out": func(c *Config) { c.OutputDir = "" },
		"zero concurrency": func(c *Config) {
			c.Concurrency = 0
		},
		"summarize flat": func(c *Config) {
			c.Summarize, c.Flat, c.APIKey = true, true, "k"
		},
		"summarize without key": func(c *Config) {
			c.Summarize = true
		},
	}
	for name, mutate := range cases {
		c := base
		mutate(&c)
		if err := c.Validate(); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

const arthurArchive = `{
  "@context": "https://www.w3.org/ns/activitystreams",
  "type": "OrderedCollection",
  "orderedItems": [
    {"type": "Create", "object": {
      "id": "https://paradise-is-not-lost.whippy.kr/users/Arthur_s/statuses/1",
      "type": "Note",
      "published": "2024-01-01T00:00:00Z",
      "attributedTo": "https://paradise-is-not-lost.whippy.kr/users/Arthur_s",
      "to": ["https://www.w3.org/ns/activitystreams#Public"],
      "contentMap": {"ko": "<p>Hello</p>"}
    }},
    {"type": "Announce", "object": "https://elsewhere.example/notes/9"}
  ]
}`

const charlotteArchive = `{
  "orderedItems": [
    {"type": "Create", "object": {
      "id": "https://paradise-is-not-lost.whippy.kr/users/zZzzZzz/statuses/2",
      "type": "Note",
      "inReplyTo": "https://paradise-is-not-lost.whippy.kr/users/Arthur_s/statuses/1",
      "published": "2024-01-01T00:05:00Z",
      "attributedTo": "https://paradise-is-not-lost.whippy.kr/users/zZzzZzz",
      "to": ["https://www.w3.org/ns/activitystreams#Public"],
      "content": "<p>@Arthur_s hi</p>"
    }},
    {"type": "Create", "object": {
      "id": "https://paradise-is-not-lost.whippy.kr/users/zZzzZzz/statuses/3",
      "type": "Note",
      "inReplyTo": "https://paradise-is-not-lost.whippy.kr/users/Arthur_s/statuses/1",
      "published": "2024-01-01T00:06:00Z",
      "attributedTo": "https://paradise-is-not-lost.whippy.kr/users/zZzzZzz",
      "to": ["https://paradise-is-not-lost.whippy.kr/users/NOTICE"],
      "content": "<p>secret</p>"
    }}
  ]
}`

func TestRun_DirToCSV(t *testing.T) {
	t.Parallel()

	in := t.TempDir()
	out := t.TempDir()
	writeFile(t, filepath.Join(in, "arthur.json"), arthurArchive)
	writeFile(t, filepath.Join(in, "charlotte.json"), charlotteArchive)

	cfg := defaultConfig()
	cfg.Characters = []string{"아서", "샬럿"}
	cfg.InputDir = in
	cfg.OutputDir = out
	cfg.MetricsFile = filepath.Join(out, "run.prom")

	var stdout bytes.Buffer
	if err := run(context.Background(), cfg, config.DefaultConfig(), &stdout); err != nil {
		t.Fatalf("run: %v", err)
	}

	b, err := os.ReadFile(filepath.Join(out, "역극백업.csv"))
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	want := "date,thread index,author,content\n" +
		"2024-01-01 09:00:00,1,아서,Hello\n" +
		"2024-01-01 09:05:00,1,샬럿,hi\n"
	if string(b) != want {
		t.Fatalf("csv=\n%s\nwant\n%s", b, want)
	}

	summary := stdout.String()
	for _, kv := range []string{"archives=2", "failed=0", "messages=3", "threads=1", "rows=2"} {
		if !strings.Contains(summary, kv) {
			t.Fatalf("summary %q missing %q", summary, kv)
		}
	}

	prom, err := os.ReadFile(cfg.MetricsFile)
	if err != nil {
		t.Fatalf("read metrics: %v", err)
	}
	if !strings.Contains(string(prom), `notesheets_messages_classified_total{verdict="direct"} 1`) {
		t.Fatalf("metrics missing direct exclusion:\n%s", prom)
	}
}

func TestRun_MissingArchiveIsDropped(t *testing.T) {
	t.Parallel()

	in := t.TempDir()
	out := t.TempDir()
	writeFile(t, filepath.Join(in, "arthur.json"), arthurArchive)

	cfg := defaultConfig()
	cfg.Characters = []string{"아서", "샬럿"}
	cfg.InputDir = in
	cfg.OutputDir = out
	cfg.Title = "partial"

	var stdout bytes.Buffer
	if err := run(context.Background(), cfg, config.DefaultConfig(), &stdout); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(stdout.String(), "failed=1") {
		t.Fatalf("summary=%q, want failed=1", stdout.String())
	}
	b, err := os.ReadFile(filepath.Join(out, "partial.csv"))
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if string(b) != "date,thread index,author,content\n" {
		t.Fatalf("csv=%q, want header only", b)
	}
}

func TestRun_DisabledCharacter(t *testing.T) {
	t.Parallel()

	cfg := defaultConfig()
	cfg.Characters = []string{"니나"}
	cfg.InputDir = t.TempDir()
	cfg.OutputDir = t.TempDir()

	var stdout bytes.Buffer
	if err := run(context.Background(), cfg, config.DefaultConfig(), &stdout); err == nil {
		t.Fatalf("expected error for disabled character")
	}
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}
