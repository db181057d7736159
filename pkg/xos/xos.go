//go:build !windows

// Package xos provides atomic file writes and tree copies used when staging
// a deployment bundle.
package xos

import (
	"io"
	"os"

	"github.com/google/renameio/v2"
)

// WriteFile writes data to the named file atomically using rename.
// If the file does not exist, WriteFile creates it with permissions perm;
// otherwise WriteFile replaces it.
func WriteFile(filename string, data []byte, perm os.FileMode) error {
	return renameio.WriteFile(filename, data, perm)
}

// WriteReader streams r into the named file atomically.
func WriteReader(filename string, r io.Reader, perm os.FileMode) error {
	t, err := renameio.TempFile("", filename)
	if err != nil {
		return err
	}
	defer t.Cleanup()

	if _, err := io.Copy(t, r); err != nil {
		return err
	}
	if err := t.Chmod(perm); err != nil {
		return err
	}
	return t.CloseAtomicallyReplace()
}
