package fileutils

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWriteFileAtomicSameDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	p := filepath.Join(dir, "nested", "out.txt")

	if err := WriteFileAtomicSameDir(p, []byte("hello"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := WriteFileAtomicSameDir(p, []byte("again"), 0o600); err != nil {
		t.Fatalf("rewrite: %v", err)
	}
	b, err := os.ReadFile(p)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(b) != "again" {
		t.Fatalf("content=%q, want %q", b, "again")
	}
	st, err := os.Stat(p)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if st.Mode().Perm() != 0o600 {
		t.Fatalf("mode=%v, want 0600", st.Mode().Perm())
	}
	entries, _ := os.ReadDir(filepath.Dir(p))
	if len(entries) != 1 {
		t.Fatalf("entries=%d, want 1 (temp file removed)", len(entries))
	}
	if !FileExists(p) || FileExists(filepath.Join(dir, "missing")) {
		t.Fatalf("FileExists mismatch")
	}
}

func TestWriteJSONFileAtomic(t *testing.T) {
	t.Parallel()

	p := filepath.Join(t.TempDir(), "v.json")
	if err := WriteJSONFileAtomic(p, map[string]int{"a": 1}, false); err != nil {
		t.Fatalf("write: %v", err)
	}
	b, _ := os.ReadFile(p)
	if string(b) != "{\"a\":1}\n" {
		t.Fatalf("content=%q", b)
	}
	if err := WriteJSONFileAtomic(p, func() {}, false); err == nil {
		t.Fatalf("expected marshal error")
	}
}

func TestTruncate(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		max  int
		want string
	}{
		{"  short  ", 10, "short"},
		{"abcdef", 0, "abcdef"},
		{"abcdef", 3, "abc…"},
		{"가나다", 4, "가…"},
		{"가나다", 6, "가나…"},
	}
	for _, tc := range cases {
		if got := Truncate(tc.in, tc.max); got != tc.want {
			t.Fatalf("Truncate(%q, %d)=%q, want %q", tc.in, tc.max, got, tc.want)
		}
	}
}

func TestSanitizeNewlines(t *testing.T) {
	t.Parallel()

	if got := SanitizeNewlines("a\r\nb\rc\nd"); got != `a\nb\nc\nd` {
		t.Fatalf("SanitizeNewlines=%q", got)
	}
}

func TestDecodeModelJSON(t *testing.T) {
	t.Parallel()

	var v struct {
		Title string `json:"title"`
	}
	if err := DecodeModelJSON("Sure! {\"title\":\"x\"} hope that helps", &v); err != nil {
		t.Fatalf("DecodeModelJSON: %v", err)
	}
	if v.Title != "x" {
		t.Fatalf("Title=%q", v.Title)
	}
	if err := DecodeModelJSON("   ", &v); err == nil {
		t.Fatalf("expected error for empty output")
	}
	if err := DecodeModelJSON("no json here", &v); err == nil {
		t.Fatalf("expected error when no object is present")
	}
}
