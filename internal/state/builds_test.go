package state

import (
	"context"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *BuildStore {
	t.Helper()
	ctx := context.Background()

	db, err := Open(ctx, filepath.Join(t.TempDir(), "state.db"))
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	store, err := NewBuildStore(ctx, db)
	if err != nil {
		t.Fatalf("NewBuildStore returned error: %v", err)
	}
	return store
}

func TestBuildStoreRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newTestStore(t)

	in := Build{
		Tag:        "myapp-abc",
		Project:    "myapp",
		ImageID:    "sha256:deadbeef",
		Port:       5000,
		Entrypoint: "app.py",
	}
	if err := store.Record(ctx, in); err != nil {
		t.Fatalf("Record returned error: %v", err)
	}

	got, found, err := store.Get(ctx, "myapp-abc")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if !found {
		t.Fatal("recorded build not found")
	}
	if got.Project != "myapp" || got.ImageID != "sha256:deadbeef" || got.Port != 5000 || got.Entrypoint != "app.py" {
		t.Errorf("Get returned %+v", got)
	}
	if got.CreatedAt.IsZero() {
		t.Error("CreatedAt not populated")
	}
}

func TestBuildStoreGetMissing(t *testing.T) {
	t.Parallel()
	store := newTestStore(t)

	_, found, err := store.Get(context.Background(), "nope")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if found {
		t.Fatal("found a build that was never recorded")
	}
}

func TestBuildStoreRecordUpdatesExisting(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newTestStore(t)

	if err := store.Record(ctx, Build{Tag: "t", Project: "p", ImageID: "sha256:old", Port: 5000, Entrypoint: "app.py"}); err != nil {
		t.Fatalf("first Record: %v", err)
	}
	if err := store.Record(ctx, Build{Tag: "t", Project: "p", ImageID: "sha256:new", Port: 8080, Entrypoint: "main.py"}); err != nil {
		t.Fatalf("second Record: %v", err)
	}

	got, found, err := store.Get(ctx, "t")
	if err != nil || !found {
		t.Fatalf("Get: found=%v err=%v", found, err)
	}
	if got.ImageID != "sha256:new" || got.Port != 8080 || got.Entrypoint != "main.py" {
		t.Errorf("upsert did not refresh row: %+v", got)
	}
}

func TestBuildStoreListAndDelete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newTestStore(t)

	for _, b := range []Build{
		{Tag: "a-1", Project: "a", ImageID: "sha256:1", Port: 5000, Entrypoint: "app.py"},
		{Tag: "a-2", Project: "a", ImageID: "sha256:2", Port: 5001, Entrypoint: "app.py"},
		{Tag: "b-1", Project: "b", ImageID: "sha256:3", Port: 9000, Entrypoint: "srv.py"},
	} {
		if err := store.Record(ctx, b); err != nil {
			t.Fatalf("Record(%s): %v", b.Tag, err)
		}
	}

	all, err := store.List(ctx, "")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("List returned %d builds, want 3", len(all))
	}

	onlyA, err := store.List(ctx, "a")
	if err != nil {
		t.Fatalf("List(a): %v", err)
	}
	if len(onlyA) != 2 {
		t.Fatalf("List(a) returned %d builds, want 2", len(onlyA))
	}

	n, err := store.DeleteByProject(ctx, "a")
	if err != nil {
		t.Fatalf("DeleteByProject: %v", err)
	}
	if n != 2 {
		t.Errorf("DeleteByProject removed %d rows, want 2", n)
	}

	rest, err := store.List(ctx, "")
	if err != nil {
		t.Fatalf("List after delete: %v", err)
	}
	if len(rest) != 1 || rest[0].Tag != "b-1" {
		t.Errorf("remaining builds = %+v", rest)
	}
}
