package manifest

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"storyreel/internal/config"
)

func newStore(t *testing.T) (*Store, string) {
	t.Helper()
	base := t.TempDir()
	cfg := config.Default()
	cfg.Paths.StateDir = filepath.Join(base, "state")

	store, err := Open(&cfg)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store, base
}

func TestRecordAndGet(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()

	artifact := Artifact{
		Key:             "story/1/story1",
		Path:            "/out/1/story1.mp4",
		DurationSeconds: 120,
		Checksum:        "abc",
	}
	if err := store.Record(ctx, artifact); err != nil {
		t.Fatal(err)
	}

	got, err := store.Get(ctx, artifact.Key)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil {
		t.Fatal("expected artifact")
	}
	if got.Path != artifact.Path || got.DurationSeconds != 120 || got.Status != StatusPromoted {
		t.Fatalf("artifact = %+v", got)
	}
	if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
		t.Fatal("timestamps missing")
	}
}

func TestGetAbsentReturnsNil(t *testing.T) {
	store, _ := newStore(t)
	got, err := store.Get(context.Background(), "missing")
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Fatalf("expected nil, got %+v", got)
	}
}

func TestRecordUpserts(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()

	if err := store.Record(ctx, Artifact{Key: "bumper", Path: "/out/a.mp4", DurationSeconds: 8}); err != nil {
		t.Fatal(err)
	}
	if err := store.Record(ctx, Artifact{Key: "bumper", Path: "/out/b.mp4", DurationSeconds: 9}); err != nil {
		t.Fatal(err)
	}

	got, err := store.Get(ctx, "bumper")
	if err != nil {
		t.Fatal(err)
	}
	if got.Path != "/out/b.mp4" || got.DurationSeconds != 9 {
		t.Fatalf("artifact = %+v", got)
	}

	all, err := store.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 1 {
		t.Fatalf("list = %+v", all)
	}
}

func TestDelete(t *testing.T) {
	store, _ := newStore(t)
	ctx := context.Background()

	if err := store.Record(ctx, Artifact{Key: "k", Path: "/p"}); err != nil {
		t.Fatal(err)
	}
	if err := store.Delete(ctx, "k"); err != nil {
		t.Fatal(err)
	}
	got, err := store.Get(ctx, "k")
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Fatal("expected deletion")
	}
}

func TestValidChecksDisk(t *testing.T) {
	store, base := newStore(t)
	ctx := context.Background()

	path := filepath.Join(base, "story1.mp4")
	if err := os.WriteFile(path, []byte("video bytes"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := store.Record(ctx, Artifact{Key: "story/1/story1", Path: path, DurationSeconds: 120}); err != nil {
		t.Fatal(err)
	}

	if _, ok := store.Valid(ctx, "story/1/story1", 120, 0.1); !ok {
		t.Fatal("expected valid artifact")
	}
	if _, ok := store.Valid(ctx, "story/1/story1", 60, 0.1); ok {
		t.Fatal("duration mismatch should invalidate")
	}
	if _, ok := store.Valid(ctx, "absent", 120, 0.1); ok {
		t.Fatal("absent key should be invalid")
	}

	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	if _, ok := store.Valid(ctx, "story/1/story1", 120, 0.1); ok {
		t.Fatal("missing file should invalidate")
	}
}
