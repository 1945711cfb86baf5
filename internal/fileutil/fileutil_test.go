package fileutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestCopyFile(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.txt")
	dst := filepath.Join(dir, "dst.txt")

	content := []byte("hello world")
	if err := os.WriteFile(src, content, 0o644); err != nil {
		t.Fatal(err)
	}

	if err := CopyFile(src, dst); err != nil {
		t.Fatal(err)
	}

	got, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != string(content) {
		t.Fatalf("content mismatch: got %q, want %q", got, content)
	}
}

func TestCopyFileMode(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.bin")
	dst := filepath.Join(dir, "dst.bin")

	if err := os.WriteFile(src, []byte("data"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := CopyFileMode(src, dst, 0o600); err != nil {
		t.Fatal(err)
	}
	info, err := os.Stat(dst)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("unexpected mode %v", info.Mode().Perm())
	}
}

func TestMoveFileRelocates(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "track.wav")
	destDir := filepath.Join(dir, "final")

	if err := os.WriteFile(src, []byte("audio"), 0o644); err != nil {
		t.Fatal(err)
	}

	dest, err := MoveFile(src, destDir)
	if err != nil {
		t.Fatal(err)
	}
	if dest != filepath.Join(destDir, "track.wav") {
		t.Fatalf("unexpected destination %q", dest)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Fatalf("expected source removed, stat err %v", err)
	}
	if data, err := os.ReadFile(dest); err != nil || string(data) != "audio" {
		t.Fatalf("unexpected destination content %q err %v", data, err)
	}
}

func TestMoveFileSamePath(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "track.wav")
	if err := os.WriteFile(src, []byte("audio"), 0o644); err != nil {
		t.Fatal(err)
	}

	dest, err := MoveFile(src, dir)
	if err != nil {
		t.Fatal(err)
	}
	if dest != src {
		t.Fatalf("expected same path, got %q", dest)
	}
	if _, err := os.Stat(src); err != nil {
		t.Fatalf("file must remain in place: %v", err)
	}
}
