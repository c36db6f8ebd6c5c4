package utils

import (
	"errors"
	"os"
	"path/filepath"
)

var ErrNonexistentPath = errors.New("path does not exist")

// ResolvePathStrict resolves p to an absolute, canonical path,
// following all symlinks. It fails if:
//   - the path (or any symlink in it) is broken
//   - symlink resolution fails (cycles, too deep, etc.)
func ResolvePathStrict(p string) (string, error) {
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}

	clean := filepath.Clean(abs)

	resolved, err := filepath.EvalSymlinks(clean)
	if err != nil {
		// includes broken symlinks, cycles, etc.
		return "", err
	}

	if _, err := os.Stat(resolved); err != nil {
		return "", ErrNonexistentPath
	}

	return resolved, nil
}

// ResolveFolderStrict resolves p into an absolute path to a folder.
// If p points at a file, the containing folder is returned instead.
func ResolveFolderStrict(p string) (string, error) {
	abs, err := ResolvePathStrict(p)
	if err != nil {
		return "", err
	}

	fi, err := os.Stat(abs)
	if err != nil {
		return "", err
	}

	if !fi.IsDir() {
		return filepath.Dir(abs), nil
	}

	return abs, nil
}
