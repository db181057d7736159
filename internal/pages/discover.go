// Package pages discovers compiled page files and sorts them into the
// manifest's routing buckets.
package pages

import (
	"errors"
	"io/fs"
	"iter"
	"os"
	"path"
)

// File describes one file found under the compiled pages directory.
type File struct {
	// Path is relative to the pages directory and uses forward slashes.
	Path string
	// Ext is the file extension including the dot.
	Ext string
}

// Discover lazily walks root and yields every regular file beneath it. A
// missing root yields nothing. The sequence is read-only and may be ranged
// over more than once.
func Discover(root string) iter.Seq2[File, error] {
	return DiscoverFS(os.DirFS(root))
}

// DiscoverFS walks fsys from its root.
func DiscoverFS(fsys fs.FS) iter.Seq2[File, error] {
	return func(yield func(File, error) bool) {
		err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				if p == "." && errors.Is(err, fs.ErrNotExist) {
					return fs.SkipAll
				}
				return err
			}
			if !d.Type().IsRegular() {
				return nil
			}
			if !yield(File{Path: p, Ext: path.Ext(p)}, nil) {
				return fs.SkipAll
			}
			return nil
		})
		if err != nil {
			yield(File{}, err)
		}
	}
}
