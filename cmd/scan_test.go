package cmd

import (
	"path/filepath"
	"testing"
)

func TestTitleCase(t *testing.T) {
	cases := map[string]string{"scan": "Scan", "scan-all": "Scan-all", "": ""}
	for in, want := range cases {
		if got := titleCase(in); got != want {
			t.Fatalf("titleCase(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestIgnoreFilePath(t *testing.T) {
	if got := ignoreFilePath(""); got != ".scanguardignore" {
		t.Fatalf("ignoreFilePath(\"\") = %q", got)
	}
	want := filepath.Join("repo", ".scanguardignore")
	if got := ignoreFilePath("repo"); got != want {
		t.Fatalf("ignoreFilePath(repo) = %q, want %q", got, want)
	}
}

func TestDefaultCacheDirReturnsNonEmptyOrGracefullyEmpty(t *testing.T) {
	// os.UserCacheDir only fails when neither HOME nor a platform cache
	// env var is set; either outcome here must not panic.
	_ = defaultCacheDir()
}

func TestLoadCatalogFallsBackToDefault(t *testing.T) {
	cat, warnings, err := loadCatalog("")
	if err != nil {
		t.Fatalf("loadCatalog(\"\"): %v", err)
	}
	if cat == nil {
		t.Fatal("loadCatalog(\"\") returned nil catalog")
	}
	if len(warnings) != 0 {
		t.Fatalf("unexpected warnings from the built-in catalog: %v", warnings)
	}
}
