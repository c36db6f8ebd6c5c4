package layers

import (
	"errors"
	"testing"
)

func mustBuild(t *testing.T, base string, deps []string, src string) *Set {
	t.Helper()
	s, err := ForBuild(base, deps, src)
	if err != nil {
		t.Fatalf("ForBuild: %v", err)
	}
	return s
}

func TestForBuildChain(t *testing.T) {
	t.Parallel()

	s := mustBuild(t, "python:3.9-slim", []string{"flask==2.0.1"}, "srcdigest")

	ls := s.Layers()
	if len(ls) != 3 {
		t.Fatalf("got %d layers, want 3", len(ls))
	}
	wantOrder := []Kind{KindBase, KindDependencies, KindSources}
	for i, k := range wantOrder {
		if ls[i].Kind != k {
			t.Errorf("layer %d kind = %s, want %s", i, ls[i].Kind, k)
		}
	}
	if s.Digest() != ls[2].ChainDigest {
		t.Fatal("set digest must equal the last chain digest")
	}
}

func TestSameInputsSameDigest(t *testing.T) {
	t.Parallel()

	a := mustBuild(t, "python:3.9-slim", []string{"flask==2.0.1"}, "src")
	b := mustBuild(t, "python:3.9-slim", []string{"flask==2.0.1"}, "src")
	if a.Digest() != b.Digest() {
		t.Fatal("identical inputs produced different set digests")
	}
}

func TestSourceChangeKeepsDependencyLayer(t *testing.T) {
	t.Parallel()

	a := mustBuild(t, "python:3.9-slim", []string{"flask==2.0.1"}, "src-v1")
	b := mustBuild(t, "python:3.9-slim", []string{"flask==2.0.1"}, "src-v2")

	depA, _ := a.Layer(KindDependencies)
	depB, _ := b.Layer(KindDependencies)
	if depA.ChainDigest != depB.ChainDigest {
		t.Fatal("source-only change invalidated the dependency layer")
	}
	if a.Digest() == b.Digest() {
		t.Fatal("source change should still change the set digest")
	}
}

func TestManifestChangeInvalidatesDependencyLayer(t *testing.T) {
	t.Parallel()

	a := mustBuild(t, "python:3.9-slim", []string{"flask==2.0.1"}, "src")
	b := mustBuild(t, "python:3.9-slim", []string{"flask==2.0.2"}, "src")

	depA, _ := a.Layer(KindDependencies)
	depB, _ := b.Layer(KindDependencies)
	if depA.Digest == depB.Digest {
		t.Fatal("manifest change did not change the dependency layer digest")
	}
}

func TestAppendEnforcesOrder(t *testing.T) {
	t.Parallel()

	s := &Set{}
	if _, err := s.Append(KindSources, "src"); !errors.Is(err, ErrFixedOrder) {
		t.Fatalf("expected ErrFixedOrder, got %v", err)
	}
	if _, err := s.Append(KindBase, "img"); err != nil {
		t.Fatalf("base append failed: %v", err)
	}
	if _, err := s.Append(KindBase, "img"); !errors.Is(err, ErrFixedOrder) {
		t.Fatalf("duplicate base should fail with ErrFixedOrder, got %v", err)
	}
}

func TestLengthPrefixAvoidsCollisions(t *testing.T) {
	t.Parallel()

	a := hashInputs([]string{"ab", "c"})
	b := hashInputs([]string{"a", "bc"})
	if a == b {
		t.Fatal("length prefixing failed: different sequences collided")
	}
}
