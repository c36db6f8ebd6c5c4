// Tests in this file cover the default filesystem operations wiring.
package fsops

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultOpsPathMethods(t *testing.T) {
	t.Parallel()

	ops := DefaultOps()

	abs, err := ops.Path.Abs(".")
	if err != nil {
		t.Fatalf("Abs failed: %v", err)
	}
	if !ops.Path.IsAbs(abs) {
		t.Fatalf("Abs returned non-absolute path: %q", abs)
	}

	rel, err := ops.Path.Rel(abs, filepath.Join(abs, "sub"))
	if err != nil {
		t.Fatalf("Rel failed: %v", err)
	}
	if rel != "sub" {
		t.Fatalf("Rel returned %q, want %q", rel, "sub")
	}

	joined := ops.Path.Join("a", "b.txt")
	if !strings.HasSuffix(joined, filepath.Join("a", "b.txt")) {
		t.Fatalf("Join result %q missing expected segment", joined)
	}

	if got := ops.Path.Ext("app.py"); got != ".py" {
		t.Fatalf("Ext returned %q, want %q", got, ".py")
	}
}

func TestStdOSOpsReadFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "requirements.txt")
	if err := os.WriteFile(path, []byte("flask==2.0.1\n"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	ops := DefaultOps()

	data, err := ops.OS.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != "flask==2.0.1\n" {
		t.Fatalf("ReadFile returned %q", string(data))
	}

	rc, err := ops.OS.Open(path)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer rc.Close()
	content, err := io.ReadAll(rc)
	if err != nil {
		t.Fatalf("ReadAll failed: %v", err)
	}
	if string(content) != string(data) {
		t.Fatal("Open content differs from ReadFile content")
	}
}

func TestStdDirWalkerVisitsEntries(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "app.py"), []byte("print('hi')\n"), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	var seen []string
	err := DefaultOps().Walker.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		seen = append(seen, d.Name())
		return nil
	})
	if err != nil {
		t.Fatalf("WalkDir failed: %v", err)
	}
	if len(seen) != 2 {
		t.Fatalf("WalkDir visited %d entries, want 2 (root + file)", len(seen))
	}
}
