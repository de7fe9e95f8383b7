package story

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"storyreel/internal/services"
)

func writeDescriptor(t *testing.T, dir, batch, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, batch, name+".yaml")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func descriptorBody(shotCount int) string {
	var b strings.Builder
	b.WriteString("title: Bath Time\nconcept: The pups take a bath.\nshots:\n")
	for i := 1; i <= shotCount; i++ {
		fmt.Fprintf(&b, "  - id: %d\n    mode: t2v\n    description: shot %d\n", i, i)
	}
	return b.String()
}

func TestLoadValidDescriptor(t *testing.T) {
	dir := t.TempDir()
	path := writeDescriptor(t, dir, "1", "story1", descriptorBody(15))

	st, err := Load(path, 15)
	if err != nil {
		t.Fatal(err)
	}
	if st.ID() != "1/story1" {
		t.Fatalf("id = %q", st.ID())
	}
	if st.Title != "Bath Time" || st.DisplayTitle() != "Bath Time" {
		t.Fatalf("title = %q", st.Title)
	}
	if len(st.Shots) != 15 || st.Shots[0].ID != 1 || st.Shots[14].ID != 15 {
		t.Fatalf("unexpected shots %+v", st.Shots)
	}
}

func TestLoadReordersShots(t *testing.T) {
	dir := t.TempDir()
	body := "title: x\nshots:\n" +
		"  - id: 3\n    description: c\n" +
		"  - id: 1\n    description: a\n" +
		"  - id: 2\n    description: b\n"
	path := writeDescriptor(t, dir, "1", "story1", body)

	st, err := Load(path, 3)
	if err != nil {
		t.Fatal(err)
	}
	for i, shot := range st.Shots {
		if shot.ID != i+1 {
			t.Fatalf("shot %d has id %d", i, shot.ID)
		}
	}
}

func TestLoadRejectsWrongShotCount(t *testing.T) {
	dir := t.TempDir()
	path := writeDescriptor(t, dir, "1", "story1", descriptorBody(14))

	_, err := Load(path, 15)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestLoadRejectsDuplicateIDs(t *testing.T) {
	dir := t.TempDir()
	body := "shots:\n  - id: 1\n  - id: 1\n"
	path := writeDescriptor(t, dir, "1", "story1", body)

	_, err := Load(path, 2)
	if !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestLoadMissingDescriptor(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"), 15)
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestDisplayTitleFallsBackToName(t *testing.T) {
	dir := t.TempDir()
	body := "shots:\n  - id: 1\n"
	path := writeDescriptor(t, dir, "2", "bath_time", body)

	st, err := Load(path, 1)
	if err != nil {
		t.Fatal(err)
	}
	if got := st.DisplayTitle(); got != "Bath Time" {
		t.Fatalf("display title = %q", got)
	}
}

func TestDiscoverBatch(t *testing.T) {
	dir := t.TempDir()
	writeDescriptor(t, dir, "1", "b-story", "shots: []")
	writeDescriptor(t, dir, "1", "a-story", "shots: []")
	if err := os.WriteFile(filepath.Join(dir, "1", "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	paths, err := DiscoverBatch(filepath.Join(dir, "1"))
	if err != nil {
		t.Fatal(err)
	}
	if len(paths) != 2 {
		t.Fatalf("paths = %v", paths)
	}
	if filepath.Base(paths[0]) != "a-story.yaml" {
		t.Fatalf("expected sorted order, got %v", paths)
	}
}

func TestDiscoverBatchEmpty(t *testing.T) {
	_, err := DiscoverBatch(t.TempDir())
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
