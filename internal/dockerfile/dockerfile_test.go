package dockerfile

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pyship/pyship/internal/buildcontext"
	"github.com/pyship/pyship/internal/versions"
)

func loadContext(t *testing.T, files map[string]string) *buildcontext.Context {
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

	ctx, err := buildcontext.Load(dir, buildcontext.Options{})
	if err != nil {
		t.Fatalf("Load context: %v", err)
	}
	return ctx
}

func TestGenerateDockerfileLayerOrder(t *testing.T) {
	t.Parallel()

	ctx := loadContext(t, map[string]string{
		"requirements.txt": "flask==2.0.1\n",
		"app.py":           "print('hi')\n",
	})

	plan, err := NewPlan(ctx)
	if err != nil {
		t.Fatalf("NewPlan: %v", err)
	}
	df := plan.GenerateDockerfile().String()

	from := strings.Index(df, "FROM python:3.9-slim")
	install := strings.Index(df, `RUN ["pip","install","--no-cache-dir","-r","requirements.txt"]`)
	copySources := strings.Index(df, "COPY . /app")
	expose := strings.Index(df, "EXPOSE 5000")
	cmd := strings.Index(df, `CMD ["python","app.py"]`)

	for name, idx := range map[string]int{
		"FROM": from, "pip install": install, "COPY sources": copySources,
		"EXPOSE": expose, "CMD": cmd,
	} {
		if idx < 0 {
			t.Fatalf("generated Dockerfile is missing the %s instruction:\n%s", name, df)
		}
	}
	if !(from < install && install < copySources && copySources < expose && expose < cmd) {
		t.Fatalf("instructions out of order:\n%s", df)
	}
}

func TestGenerateDockerfileDeterministic(t *testing.T) {
	t.Parallel()

	ctx := loadContext(t, map[string]string{
		"requirements.txt": "flask==2.0.1\nrequests>=2.20,<3.0\n",
		"app.py":           "print('hi')\n",
	})

	planA, err := NewPlan(ctx)
	if err != nil {
		t.Fatalf("NewPlan: %v", err)
	}
	planB, err := NewPlan(ctx)
	if err != nil {
		t.Fatalf("NewPlan again: %v", err)
	}

	if planA.GenerateDockerfile().String() != planB.GenerateDockerfile().String() {
		t.Fatal("two plans over the same context generated different Dockerfiles")
	}
}

func TestDependencyLinesIgnoreSourceChanges(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	write := func(rel, content string) {
		t.Helper()
		if err := os.WriteFile(filepath.Join(dir, rel), []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", rel, err)
		}
	}
	write("requirements.txt", "flask==2.0.1\n")
	write("app.py", "print('v1')\n")

	load := func() Dockerfile {
		ctx, err := buildcontext.Load(dir, buildcontext.Options{})
		if err != nil {
			t.Fatalf("Load: %v", err)
		}
		plan, err := NewPlan(ctx)
		if err != nil {
			t.Fatalf("NewPlan: %v", err)
		}
		return plan.GenerateDockerfile()
	}

	before := load().String()
	write("app.py", "print('v2')\n")
	after := load().String()

	// the whole Dockerfile is a function of the manifest and configuration,
	// never of source contents — so the dependency layer stays cached
	if before != after {
		t.Fatal("source-only change altered the generated Dockerfile")
	}
}

func TestNewPlanUnresolvableManifest(t *testing.T) {
	t.Parallel()

	ctx := loadContext(t, map[string]string{
		"requirements.txt": "flask>=2.0,<1.0\n",
		"app.py":           "print('hi')\n",
	})

	_, err := NewPlan(ctx)
	if err == nil {
		t.Fatal("expected plan error for unresolvable manifest")
	}
	if !errors.Is(err, versions.ErrUnresolvable) {
		t.Fatalf("error %v is not ErrUnresolvable", err)
	}
}

func TestPlanOptions(t *testing.T) {
	t.Parallel()

	ctx := loadContext(t, map[string]string{
		"requirements.txt": "flask\n",
		"app.py":           "print('hi')\n",
	})

	plan, err := NewPlan(ctx, WithPythonVersion("3.12"), WithPort(8080))
	if err != nil {
		t.Fatalf("NewPlan: %v", err)
	}

	df := plan.GenerateDockerfile().String()
	if !strings.Contains(df, "FROM python:3.12-slim") {
		t.Errorf("base image not overridden:\n%s", df)
	}
	if !strings.Contains(df, "EXPOSE 8080") {
		t.Errorf("port not overridden:\n%s", df)
	}
	if !strings.Contains(df, `LABEL pyship.port="8080"`) {
		t.Errorf("port label mismatch:\n%s", df)
	}
}

func TestLaunchCommandVerbatim(t *testing.T) {
	t.Parallel()

	ctx := loadContext(t, map[string]string{
		"requirements.txt": "flask\n",
		"serve.py":         "print('hi')\n",
		"app.py":           "print('hi')\n",
	})

	plan, err := NewPlan(ctx)
	if err != nil {
		t.Fatalf("NewPlan: %v", err)
	}
	cmd := plan.LaunchCommand()
	if len(cmd) != 2 || cmd[0] != "python" || cmd[1] != "app.py" {
		t.Fatalf("LaunchCommand = %v, want [python app.py]", cmd)
	}
}
