package targets

import (
	"os"
	"path/filepath"
	"testing"

	"scanguard/internal/pathsafe"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestWalkSkipsBlacklistedDirectories(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "SKILL.md"), "# skill")
	writeFile(t, filepath.Join(root, "node_modules", "pkg", "index.js"), "x")
	writeFile(t, filepath.Join(root, "src", "main.py"), "print(1)")

	files, _, err := Walk(root, WalkOptions{}, pathsafe.NewVisitedSet())
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	for _, f := range files {
		if filepath.Base(filepath.Dir(f)) == "pkg" {
			t.Fatalf("expected node_modules contents excluded, got %v", files)
		}
	}
	if len(files) != 2 {
		t.Fatalf("expected 2 files, got %d: %v", len(files), files)
	}
}

func TestWalkExcludesArchiveExtensions(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "ext.crx"), "binary")
	writeFile(t, filepath.Join(root, "bundle.zip"), "binary")
	writeFile(t, filepath.Join(root, "readme.md"), "# hi")

	files, _, err := Walk(root, WalkOptions{}, pathsafe.NewVisitedSet())
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	if len(files) != 1 || filepath.Base(files[0]) != "readme.md" {
		t.Fatalf("expected only readme.md, got %v", files)
	}
}

func TestWalkHonorsExtensionAllowlist(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "notes.unknownext"), "x")
	writeFile(t, filepath.Join(root, "app.go"), "x")
	writeFile(t, filepath.Join(root, "manifest.json"), "{}")

	files, _, err := Walk(root, WalkOptions{}, pathsafe.NewVisitedSet())
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	if len(files) != 1 || filepath.Base(files[0]) != "manifest.json" {
		t.Fatalf("expected only manifest.json admitted, got %v", files)
	}
}

func TestWalkIncludeBinaryAdmitsBinaryExtensions(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "lib.so"), "x")

	files, _, err := Walk(root, WalkOptions{IncludeBinary: true}, pathsafe.NewVisitedSet())
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	if len(files) != 1 {
		t.Fatalf("expected lib.so admitted with IncludeBinary, got %v", files)
	}

	filesNoBinary, _, err := Walk(root, WalkOptions{}, pathsafe.NewVisitedSet())
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	if len(filesNoBinary) != 0 {
		t.Fatalf("expected lib.so excluded without IncludeBinary, got %v", filesNoBinary)
	}
}

func TestWalkAppliesIgnoreRules(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "keep.md"), "# keep")
	writeFile(t, filepath.Join(root, "skip.md"), "# skip")

	ignore := ParseIgnorePatterns([]string{"skip.md"})
	files, _, err := Walk(root, WalkOptions{IgnoreRules: ignore}, pathsafe.NewVisitedSet())
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	if len(files) != 1 || filepath.Base(files[0]) != "keep.md" {
		t.Fatalf("expected skip.md ignored, got %v", files)
	}
}

func TestWalkOnSingleFileRoot(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "readme.md")
	writeFile(t, path, "# hi")

	files, _, err := Walk(path, WalkOptions{}, pathsafe.NewVisitedSet())
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	if len(files) != 1 || files[0] != path {
		t.Fatalf("expected single file root admitted, got %v", files)
	}
}
