package main

import (
	"bytes"
	"context"
	"flag"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/theimaginaryfoundation/note-sheets/migration"
)

func TestParseFlags_Overrides(t *testing.T) {
	t.Parallel()

	fs := flag.NewFlagSet("thread-splitter", flag.ContinueOnError)
	cfg, err := parseFlags(fs, []string{"-in", "a/b", "-out", "x/y", "-pretty", "-overwrite", "-language", "en"})
	if err != nil {
		t.Fatalf("parseFlags: %v", err)
	}
	if cfg.InputDir != "a/b" || cfg.OutputDir != "x/y" {
		t.Fatalf("InputDir=%q OutputDir=%q", cfg.InputDir, cfg.OutputDir)
	}
	if !cfg.Pretty || !cfg.Overwrite {
		t.Fatalf("Pretty=%v Overwrite=%v, want both true", cfg.Pretty, cfg.Overwrite)
	}
	if cfg.Language != "en" {
		t.Fatalf("Language=%q, want %q", cfg.Language, "en")
	}
	if cfg.ItemsField != migration.DefaultItemsField {
		t.Fatalf("ItemsField=%q, want default", cfg.ItemsField)
	}
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	if err := (Config{}).Validate(); err == nil {
		t.Fatalf("expected error for empty config")
	}
	if err := (Config{InputDir: "in", OutputDir: "out"}).Validate(); err == nil {
		t.Fatalf("expected error for zero concurrency")
	}
	if err := defaultConfig().Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestRun_WritesThreadFiles(t *testing.T) {
	t.Parallel()

	in := t.TempDir()
	out := filepath.Join(t.TempDir(), "threads")
	archive := `{"orderedItems":[
	  {"object":{"id":"https://h/users/a/statuses/1","type":"Note","published":"2024-01-01T00:00:00Z","attributedTo":"https://h/users/a","content":"root"}},
	  {"object":{"id":"https://h/users/b/statuses/2","type":"Note","inReplyTo":"https://h/users/a/statuses/1","published":"2024-01-01T00:01:00Z","attributedTo":"https://h/users/b","content":"reply"}},
	  {"object":{"id":"https://h/users/a/statuses/3","type":"Note","published":"2024-01-01T00:02:00Z","attributedTo":"https://h/users/a","content":"alone"}}
	]}`
	if err := os.WriteFile(filepath.Join(in, "a.json"), []byte(archive), 0o644); err != nil {
		t.Fatalf("write archive: %v", err)
	}
	if err := os.WriteFile(filepath.Join(in, "notes.txt"), []byte("ignored"), 0o644); err != nil {
		t.Fatalf("write txt: %v", err)
	}

	cfg := defaultConfig()
	cfg.InputDir = in
	cfg.OutputDir = out

	var stdout bytes.Buffer
	if err := run(context.Background(), cfg, &stdout); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(stdout.String(), "threads_written=1") {
		t.Fatalf("stdout=%q, want threads_written=1", stdout.String())
	}

	th, err := migration.ReadThreadFile(filepath.Join(out, "1.json"))
	if err != nil {
		t.Fatalf("ReadThreadFile: %v", err)
	}
	if len(th.Messages) != 2 {
		t.Fatalf("messages=%d, want 2", len(th.Messages))
	}
	if th.RootID != "https://h/users/a/statuses/1" {
		t.Fatalf("RootID=%q", th.RootID)
	}
}

func TestRun_EmptyDir(t *testing.T) {
	t.Parallel()

	cfg := defaultConfig()
	cfg.InputDir = t.TempDir()
	cfg.OutputDir = t.TempDir()
	if err := run(context.Background(), cfg, &bytes.Buffer{}); err == nil {
		t.Fatalf("expected error for directory without archives")
	}
}
