package cache

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/pyship/pyship/internal/layers"
)

func newTestManager(t *testing.T) Manager {
	t.Helper()
	m, err := NewManager(filepath.Join(t.TempDir(), "image-cache.json"))
	if err != nil {
		t.Fatalf("NewManager returned error: %v", err)
	}
	return m
}

func TestResolveImageBuildsOnMiss(t *testing.T) {
	t.Parallel()

	m := newTestManager(t)
	builds := 0

	id, err := m.ResolveImage(context.Background(), CacheKey("abc"),
		func(context.Context, ImageID) bool { return true },
		func(context.Context) (ImageID, error) {
			builds++
			return "sha256:deadbeef", nil
		},
	)
	if err != nil {
		t.Fatalf("ResolveImage returned error: %v", err)
	}
	if id != "sha256:deadbeef" {
		t.Errorf("id = %q", id)
	}
	if builds != 1 {
		t.Errorf("builds = %d, want 1", builds)
	}
}

func TestResolveImageReusesCachedEntry(t *testing.T) {
	t.Parallel()

	m := newTestManager(t)
	build := func(context.Context) (ImageID, error) { return "sha256:cafe", nil }
	exists := func(context.Context, ImageID) bool { return true }

	if _, err := m.ResolveImage(context.Background(), CacheKey("k1"), exists, build); err != nil {
		t.Fatalf("first ResolveImage: %v", err)
	}

	id, err := m.ResolveImage(context.Background(), CacheKey("k1"), exists,
		func(context.Context) (ImageID, error) {
			t.Fatal("build called on cache hit")
			return "", nil
		},
	)
	if err != nil {
		t.Fatalf("second ResolveImage: %v", err)
	}
	if id != "sha256:cafe" {
		t.Errorf("id = %q", id)
	}
}

func TestResolveImageRebuildsWhenImageGone(t *testing.T) {
	t.Parallel()

	m := newTestManager(t)
	builds := 0
	build := func(context.Context) (ImageID, error) {
		builds++
		return "sha256:beef", nil
	}

	if _, err := m.ResolveImage(context.Background(), CacheKey("k"),
		func(context.Context, ImageID) bool { return true }, build); err != nil {
		t.Fatalf("first ResolveImage: %v", err)
	}

	// Image was pruned out from under the cache.
	if _, err := m.ResolveImage(context.Background(), CacheKey("k"),
		func(context.Context, ImageID) bool { return false }, build); err != nil {
		t.Fatalf("second ResolveImage: %v", err)
	}
	if builds != 2 {
		t.Errorf("builds = %d, want 2", builds)
	}
}

func TestResolveImageFailedBuildLeavesNoEntry(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "image-cache.json")
	m, err := NewManager(path)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}

	boom := errors.New("pip blew up")
	_, err = m.ResolveImage(context.Background(), CacheKey("k"),
		func(context.Context, ImageID) bool { return true },
		func(context.Context) (ImageID, error) { return "", boom },
	)
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}

	data, readErr := os.ReadFile(path)
	if readErr != nil {
		if errors.Is(readErr, os.ErrNotExist) {
			return
		}
		t.Fatalf("reading cache file: %v", readErr)
	}
	var st struct {
		ImageByKey map[string]string `json:"image_by_key"`
	}
	if err := json.Unmarshal(data, &st); err != nil {
		t.Fatalf("unmarshal cache file: %v", err)
	}
	if _, ok := st.ImageByKey["k"]; ok {
		t.Errorf("failed build left cache entry: %v", st.ImageByKey)
	}
}

func TestBuildingMarkerRoundTrip(t *testing.T) {
	t.Parallel()

	id := newBuildingID("somekey")
	if !isBuilding(id) {
		t.Fatalf("isBuilding(%q) = false", id)
	}
	if _, ok := parseBuildingMarker(id); !ok {
		t.Fatalf("parseBuildingMarker(%q) not ok", id)
	}
	if isBuildingStale(id) {
		t.Errorf("fresh marker reported stale")
	}
	if isBuilding("sha256:abc") {
		t.Errorf("plain image ID reported as building")
	}
}

func TestCacheKeyDockerfileLinesBoundaries(t *testing.T) {
	t.Parallel()

	a := CacheKeyDockerfileLines([]string{"ab", "c"})
	b := CacheKeyDockerfileLines([]string{"a", "bc"})
	if a == b {
		t.Fatal("line-boundary shift produced identical keys")
	}
	if a != CacheKeyDockerfileLines([]string{"ab", "c"}) {
		t.Fatal("key not deterministic")
	}
}

func TestCacheKeyBuildCoversRuntimeSettings(t *testing.T) {
	t.Parallel()

	set, err := layers.ForBuild("python:3.9-slim", []string{"requirements.txt"}, "deadbeef")
	if err != nil {
		t.Fatalf("ForBuild returned error: %v", err)
	}

	// Same layers, different announced port: the image must not be shared.
	a := CacheKeyBuild(set, []string{"EXPOSE 5000"})
	b := CacheKeyBuild(set, []string{"EXPOSE 8080"})
	if a == b {
		t.Fatal("Dockerfile change did not change the build key")
	}
	if a != CacheKeyBuild(set, []string{"EXPOSE 5000"}) {
		t.Fatal("build key not deterministic")
	}
}

func TestComposeImageTag(t *testing.T) {
	t.Parallel()

	a := CacheKey("aabb")
	b := CacheKey("ccdd")

	tag := ComposeImageTag("My Project!", a, b)
	if len(tag) > 128 {
		t.Errorf("tag too long: %d", len(tag))
	}
	if got, want := tag[:len("myproject-")], "myproject-"; got != want {
		t.Errorf("prefix = %q, want %q", got, want)
	}

	if ComposeImageTag("", a, b) != ComposeImageTag("", a, b) {
		t.Error("tag not deterministic")
	}
	if ComposeImageTag("", a, b) == ComposeImageTag("", b, a) {
		t.Error("argument order should change the tag")
	}
}
