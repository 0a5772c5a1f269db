package utils

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSafeWriteFileAndCopy(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "a.csv")
	if err := SafeWriteFile(src, []byte("x,y\n1,2\n")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if entries, _ := os.ReadDir(dir); len(entries) != 1 {
		t.Fatalf("temp file left behind: %v", entries)
	}
	dst := filepath.Join(dir, "nested", "deeper", "b.csv")
	if err := CopyFile(src, dst); err != nil {
		t.Fatalf("copy: %v", err)
	}
	b, err := os.ReadFile(dst)
	if err != nil || string(b) != "x,y\n1,2\n" {
		t.Fatalf("copy content: %q %v", b, err)
	}
	if err := CopyFile(filepath.Join(dir, "missing"), dst); err == nil {
		t.Fatalf("expected error for missing source")
	}
}

func TestFindRoot(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, "marker.json"), []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}
	deep := filepath.Join(root, "a", "b")
	if err := EnsureDir(deep); err != nil {
		t.Fatal(err)
	}
	got, err := FindRoot(deep, "marker.json")
	if err != nil || got != root {
		t.Fatalf("FindRoot = %q, %v", got, err)
	}
	file := filepath.Join(deep, "f.txt")
	_ = os.WriteFile(file, nil, 0o644)
	if got, _ := FindRoot(file, "marker.json"); got != root {
		t.Fatalf("FindRoot from file = %q", got)
	}
	if _, err := FindRoot(deep, "absent.json"); err == nil || !strings.Contains(err.Error(), "absent.json") {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestPrettyJSON(t *testing.T) {
	b, err := PrettyJSON(map[string]int{"a": 1})
	if err != nil || string(b) != "{\n  \"a\": 1\n}" {
		t.Fatalf("PrettyJSON = %q, %v", b, err)
	}
}
