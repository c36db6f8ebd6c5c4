package buildcontext

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()

	dir := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir for %s: %v", rel, err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", rel, err)
		}
	}
	return dir
}

func TestLoadValidContext(t *testing.T) {
	t.Parallel()

	dir := writeTree(t, map[string]string{
		"requirements.txt": "flask==2.0.1\n",
		"app.py":           "print('hi')\n",
		"pkg/util.py":      "x = 1\n",
	})

	ctx, err := Load(dir, Options{})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	want := []string{"app.py", "pkg/util.py", "requirements.txt"}
	if len(ctx.Files) != len(want) {
		t.Fatalf("scanned %d files, want %d", len(ctx.Files), len(want))
	}
	for i, rel := range want {
		if ctx.Files[i].Rel != rel {
			t.Errorf("Files[%d].Rel = %q, want %q (sorted order)", i, ctx.Files[i].Rel, rel)
		}
	}

	data, err := ctx.ReadManifest()
	if err != nil {
		t.Fatalf("ReadManifest: %v", err)
	}
	if string(data) != "flask==2.0.1\n" {
		t.Fatalf("manifest content = %q", string(data))
	}
}

func TestLoadMissingManifest(t *testing.T) {
	t.Parallel()

	dir := writeTree(t, map[string]string{"app.py": "print('hi')\n"})

	_, err := Load(dir, Options{})
	if err == nil {
		t.Fatal("expected error for missing manifest")
	}
	if !errors.Is(err, ErrManifestMissing) {
		t.Fatalf("error %v is not ErrManifestMissing", err)
	}
}

func TestLoadMissingEntrypoint(t *testing.T) {
	t.Parallel()

	dir := writeTree(t, map[string]string{"requirements.txt": "flask\n"})

	_, err := Load(dir, Options{})
	if err == nil {
		t.Fatal("expected error for missing entry point")
	}
	if !errors.Is(err, ErrEntrypointMissing) {
		t.Fatalf("error %v is not ErrEntrypointMissing", err)
	}
}

func TestLoadCustomNames(t *testing.T) {
	t.Parallel()

	dir := writeTree(t, map[string]string{
		"deps.txt": "flask\n",
		"serve.py": "print('hi')\n",
	})

	ctx, err := Load(dir, Options{ManifestName: "deps.txt", EntrypointName: "serve.py"})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if ctx.ManifestName != "deps.txt" || ctx.EntrypointName != "serve.py" {
		t.Fatalf("names not kept: %q / %q", ctx.ManifestName, ctx.EntrypointName)
	}
}

func TestLoadAppliesIgnorePolicy(t *testing.T) {
	t.Parallel()

	dir := writeTree(t, map[string]string{
		"requirements.txt":       "flask\n",
		"app.py":                 "print('hi')\n",
		".pyshipignore":          "__pycache__\n*.pyc\n",
		"__pycache__/app.cpython-39.pyc": "binary",
		"lib.pyc":                "binary",
	})

	ctx, err := Load(dir, Options{})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if ctx.Has("lib.pyc") {
		t.Error("excluded file lib.pyc survived the scan")
	}
	if ctx.Has("__pycache__/app.cpython-39.pyc") {
		t.Error("excluded directory content survived the scan")
	}
	if !ctx.Has("app.py") {
		t.Error("app.py should survive the scan")
	}
}

func TestDigestDeterministic(t *testing.T) {
	t.Parallel()

	files := map[string]string{
		"requirements.txt": "flask==2.0.1\n",
		"app.py":           "print('hi')\n",
	}
	dirA := writeTree(t, files)
	dirB := writeTree(t, files)

	ctxA, err := Load(dirA, Options{})
	if err != nil {
		t.Fatalf("Load A: %v", err)
	}
	ctxB, err := Load(dirB, Options{})
	if err != nil {
		t.Fatalf("Load B: %v", err)
	}

	digA, err := ctxA.Digest()
	if err != nil {
		t.Fatalf("Digest A: %v", err)
	}
	digB, err := ctxB.Digest()
	if err != nil {
		t.Fatalf("Digest B: %v", err)
	}
	if digA != digB {
		t.Fatalf("identical trees produced different digests: %s vs %s", digA, digB)
	}

	// re-digest of the same context is stable too
	digA2, err := ctxA.Digest()
	if err != nil {
		t.Fatalf("Digest A again: %v", err)
	}
	if digA != digA2 {
		t.Fatal("repeated digest of the same context differs")
	}
}

func TestDigestChangesWithSources(t *testing.T) {
	t.Parallel()

	dir := writeTree(t, map[string]string{
		"requirements.txt": "flask==2.0.1\n",
		"app.py":           "print('hi')\n",
	})

	ctx, err := Load(dir, Options{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	before, err := ctx.Digest()
	if err != nil {
		t.Fatalf("Digest: %v", err)
	}

	if err := os.WriteFile(filepath.Join(dir, "app.py"), []byte("print('bye')\n"), 0o644); err != nil {
		t.Fatalf("rewrite app.py: %v", err)
	}
	ctx2, err := Load(dir, Options{})
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	after, err := ctx2.Digest()
	if err != nil {
		t.Fatalf("Digest after: %v", err)
	}
	if before == after {
		t.Fatal("digest did not change after source edit")
	}
}

func TestWriteTarIncludesExtraFiles(t *testing.T) {
	t.Parallel()

	dir := writeTree(t, map[string]string{
		"requirements.txt": "flask\n",
		"app.py":           "print('hi')\n",
	})
	ctx, err := Load(dir, Options{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	var buf bytes.Buffer
	err = ctx.WriteTar(&buf, ExtraFile{Name: ".pyship.dockerfile", Content: []byte("FROM python:3.9-slim\n")})
	if err != nil {
		t.Fatalf("WriteTar: %v", err)
	}
	if !bytes.Contains(buf.Bytes(), []byte(".pyship.dockerfile")) {
		t.Fatal("archive is missing the injected Dockerfile entry")
	}
}
