// Package fileutil provides small file relocation helpers shared by the
// production pipeline and the local library source.
package fileutil

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// CopyFile streams src to dst using io.Copy with default permissions (0o644).
func CopyFile(src, dst string) error {
	return CopyFileMode(src, dst, 0o644)
}

// CopyFileMode streams src to dst, setting the given file mode on dst.
func CopyFileMode(src, dst string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}

// MoveFile relocates src into destDir, copying when a rename crosses
// filesystems. Returns the destination path.
func MoveFile(src, destDir string) (string, error) {
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", fmt.Errorf("create destination dir: %w", err)
	}
	dest := filepath.Join(destDir, filepath.Base(src))
	if src == dest {
		return dest, nil
	}
	if err := os.Rename(src, dest); err == nil {
		return dest, nil
	}
	if err := CopyFile(src, dest); err != nil {
		return "", fmt.Errorf("copy across filesystems: %w", err)
	}
	_ = os.Remove(src)
	return dest, nil
}
