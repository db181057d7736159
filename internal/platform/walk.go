package platform

import (
	"errors"
	"io/fs"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Object is one file to upload.
type Object struct {
	Path string
	Key  string
	Size int64
}

// Objects lists the files under in.Dir with their bucket keys. A missing
// directory yields no objects.
func Objects(in UploadInput) ([]Object, error) {
	var out []Object
	err := filepath.WalkDir(in.Dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == in.Dir && errors.Is(err, fs.ErrNotExist) {
				return fs.SkipAll
			}
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(in.Dir, p)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		out = append(out, Object{
			Path: p,
			Key:  path.Join(in.KeyPrefix, filepath.ToSlash(rel)),
			Size: info.Size(),
		})
		return nil
	})
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	return out, nil
}

// ContentType guesses an object's MIME type from its extension.
func ContentType(name string) string {
	if ct := mime.TypeByExtension(filepath.Ext(name)); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

// CacheControl returns the Cache-Control header for an object key. Framework
// build assets are content-hashed and never change.
func CacheControl(key string) string {
	if strings.HasPrefix(key, "_next/static/") {
		return "public, max-age=31536000, immutable"
	}
	return "public, max-age=0, must-revalidate"
}
