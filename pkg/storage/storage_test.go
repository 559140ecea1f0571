package storage

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	perrors "github.com/matzehuels/cityposter/pkg/errors"
)

func testStore(t *testing.T, s Store) {
	t.Helper()
	ctx := context.Background()
	data := []byte("\x89PNG fake poster")

	loc, err := s.Save(ctx, "paris_noir_20240101_120000.png", data)
	if err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	if loc == "" {
		t.Error("Save() returned empty location")
	}

	got, err := s.Load(ctx, "paris_noir_20240101_120000.png")
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Errorf("Load() = %q, want %q", got, data)
	}

	if _, err := s.Load(ctx, "missing.png"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Load(missing) error = %v, want ErrNotFound", err)
	}

	if err := s.Delete(ctx, "paris_noir_20240101_120000.png"); err != nil {
		t.Fatalf("Delete() error: %v", err)
	}
	if _, err := s.Load(ctx, "paris_noir_20240101_120000.png"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Load(after delete) error = %v, want ErrNotFound", err)
	}
	if err := s.Delete(ctx, "paris_noir_20240101_120000.png"); err != nil {
		t.Errorf("Delete(missing) error = %v, want nil", err)
	}

	if _, err := s.Save(ctx, "../escape.png", data); !perrors.Is(err, perrors.ErrCodeInvalidPath) {
		t.Errorf("Save(path) error = %v, want INVALID_PATH", err)
	}
}

func TestMemoryStore(t *testing.T) {
	testStore(t, NewMemoryStore())
}

func TestFileStore(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "posters")
	testStore(t, NewFileStore(dir))
}

func TestFileStoreLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	s := NewFileStore(dir)

	path, err := s.Save(context.Background(), "a.png", []byte("x"))
	if err != nil {
		t.Fatalf("Save() error: %v", err)
	}
	if path != filepath.Join(dir, "a.png") {
		t.Errorf("Save() path = %q", path)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "a.png" {
		t.Errorf("directory contents = %v, want only a.png", entries)
	}
}

func TestFileStoreWriteFailure(t *testing.T) {
	// a regular file where the directory should be
	blocker := filepath.Join(t.TempDir(), "posters")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := NewFileStore(blocker).Save(context.Background(), "a.png", []byte("x"))
	if !perrors.Is(err, perrors.ErrCodeOutputWrite) {
		t.Errorf("Save() error = %v, want OUTPUT_WRITE", err)
	}
}

func TestFileStoreCancelledContext(t *testing.T) {
	dir := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := NewFileStore(dir).Save(ctx, "a.png", []byte("x")); err == nil {
		t.Fatal("Save() with cancelled context should fail")
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("cancelled save left %d files behind", len(entries))
	}
}
