//go:build windows

// Package xos provides atomic file writes and tree copies used when staging
// a deployment bundle.
package xos

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
)

// WriteFile writes data through a temp file in the target's directory and
// renames it into place.
func WriteFile(filename string, data []byte, perm os.FileMode) error {
	return WriteReader(filename, bytes.NewReader(data), perm)
}

// WriteReader streams r into the named file through a temp file. The target
// is removed before the rename since Windows refuses to replace it.
func WriteReader(filename string, r io.Reader, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(filename), ".tmp-*")
	if err != nil {
		return err
	}
	name := tmp.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(name)
		}
	}()

	if _, err := io.Copy(tmp, r); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(name, perm); err != nil {
		return err
	}
	if _, err := os.Stat(filename); err == nil {
		if err := os.Remove(filename); err != nil {
			return err
		}
	}
	if err := os.Rename(name, filename); err != nil {
		return err
	}

	success = true
	return nil
}
