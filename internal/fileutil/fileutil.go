package fileutil

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
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

// TempSibling returns a temporary path in the same directory as final, so a
// later rename stays on one filesystem. The uuid suffix keeps concurrent
// writers from colliding.
func TempSibling(final string) string {
	dir := filepath.Dir(final)
	base := filepath.Base(final)
	return filepath.Join(dir, fmt.Sprintf(".%s.partial-%s", base, uuid.NewString()[:8]))
}

// Promote atomically renames a finished temp file onto its final path.
// The destination directory is created if needed.
func Promote(temp, final string) error {
	if err := os.MkdirAll(filepath.Dir(final), 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	if err := os.Rename(temp, final); err != nil {
		return fmt.Errorf("promote %s: %w", filepath.Base(final), err)
	}
	return nil
}

// WriteFileAtomic writes data to path via a temp sibling and rename, so
// readers never observe a partial file.
func WriteFileAtomic(path string, data []byte, mode os.FileMode) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}
	temp := TempSibling(path)
	if err := os.WriteFile(temp, data, mode); err != nil {
		return err
	}
	if err := Promote(temp, path); err != nil {
		_ = os.Remove(temp)
		return err
	}
	return nil
}

// Checksum returns the hex SHA256 of the file at path.
func Checksum(path string) (string, error) {
	in, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer in.Close()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, in); err != nil {
		return "", err
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}

// RemoveQuiet removes paths on a best-effort basis, for cleanup on exit paths.
func RemoveQuiet(paths ...string) {
	for _, path := range paths {
		if path == "" {
			continue
		}
		_ = os.Remove(path)
	}
}
