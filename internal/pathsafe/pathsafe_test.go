package pathsafe

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSanitizeIdempotent(t *testing.T) {
	inputs := []string{"a/b/../c", "~/x", "/tmp/foo\x00bar", "relative/path", "."}
	for _, in := range inputs {
		once := Sanitize(in)
		twice := Sanitize(once)
		if once != twice {
			t.Fatalf("Sanitize not idempotent for %q: %q != %q", in, once, twice)
		}
		if strings.Contains(once, "\x00") {
			t.Fatalf("sanitized path retains a null byte: %q", once)
		}
		if !filepath.IsAbs(once) {
			t.Fatalf("sanitized path is not absolute: %q", once)
		}
	}
}

func TestSanitizeExpandsHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory available")
	}
	got := Sanitize("~/sub/dir")
	if !strings.HasPrefix(got, home) {
		t.Fatalf("expected %q to be under home %q", got, home)
	}
}

func TestSniffBinary(t *testing.T) {
	if SniffBinary(nil) {
		t.Fatalf("empty content must not be binary")
	}
	if !SniffBinary([]byte("hello\x00world")) {
		t.Fatalf("content with a null byte must be binary")
	}
	if SniffBinary([]byte("just plain ascii text, nothing unusual here")) {
		t.Fatalf("plain text must not be binary")
	}
}

func TestDetectEncodingBOMs(t *testing.T) {
	cases := map[string]Encoding{
		string([]byte{0xEF, 0xBB, 0xBF, 'a'}): EncodingUTF8,
		string([]byte{0xFE, 0xFF, 'a'}):       EncodingUTF16BE,
		string([]byte{0xFF, 0xFE, 'a'}):       EncodingUTF16LE,
	}
	for in, want := range cases {
		got := DetectEncoding([]byte(in))
		if got != want {
			t.Fatalf("DetectEncoding(%v) = %s, want %s", []byte(in), got, want)
		}
	}
}

func TestDetectEncodingNullByteIsBinary(t *testing.T) {
	if got := DetectEncoding([]byte("abc\x00def")); got != EncodingBinary {
		t.Fatalf("expected binary, got %s", got)
	}
}

func TestSizePolicyAllow(t *testing.T) {
	p := DefaultSizePolicy()
	if ok, _ := p.Allow(p.MaxScanBytes + 1); ok {
		t.Fatalf("expected file above max scan bytes to be rejected")
	}
	ok, warn := p.Allow(p.MaxScanBytes - 1)
	if !ok || warn {
		t.Fatalf("expected file below streaming threshold to be allowed without warning")
	}
}

func TestIsSafeMissingPath(t *testing.T) {
	dir := t.TempDir()
	ok, reason := IsSafe(filepath.Join(dir, "does-not-exist"), dir, nil)
	if ok || reason == nil {
		t.Fatalf("expected missing path to be unsafe")
	}
}

func TestIsSafeRegularFile(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "file.txt")
	if err := os.WriteFile(p, []byte("hi"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	ok, reason := IsSafe(p, dir, NewVisitedSet())
	if !ok {
		t.Fatalf("expected regular file to be safe, got reason %v", reason)
	}
}
