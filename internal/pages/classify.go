package pages

import (
	"iter"
	"path"

	"github.com/dosanma1/nextdeploy/internal/errs"
	"github.com/dosanma1/nextdeploy/internal/routes"
)

const (
	// ExtHTML marks statically exported pages.
	ExtHTML = ".html"
	// ExtScript marks server-rendered pages.
	ExtScript = ".js"

	// StagedPrefix is prepended to page paths in the manifest; pages are
	// staged under pages/ in the deployment bundle.
	StagedPrefix = "pages"
)

// Entry is one classified page.
type Entry struct {
	RelativePath string
	Dynamic      bool
	HTML         bool
}

// StagedPath returns the path of the page inside the staged directory.
func (e Entry) StagedPath() string {
	return path.Join(StagedPrefix, e.RelativePath)
}

// DynamicRoute is a server-rendered page served for a parameterized route.
type DynamicRoute struct {
	File  string `json:"file"`
	Regex string `json:"regex"`
}

// Classification holds the three routing buckets. Route keys are unique
// across all of them.
type Classification struct {
	NonDynamic map[string]string
	Dynamic    map[string]DynamicRoute
	HTML       map[string]string
	// Entries lists every classified page in discovery order.
	Entries []Entry
}

// Len returns the number of classified pages.
func (c *Classification) Len() int { return len(c.Entries) }

// Classify partitions discovered files into HTML, dynamic and non-dynamic
// server-rendered pages. Files with other extensions are skipped. Two files
// resolving to the same route key, or two dynamic pages compiling to the same
// pattern, are a configuration error.
func Classify(files iter.Seq2[File, error]) (*Classification, error) {
	c := &Classification{
		NonDynamic: make(map[string]string),
		Dynamic:    make(map[string]DynamicRoute),
		HTML:       make(map[string]string),
	}
	owners := make(map[string]string)
	patterns := make(map[string]string)

	claim := func(key, file string) error {
		if prev, ok := owners[key]; ok {
			return errs.Configf("route %s is produced by both %s and %s", key, prev, file).
				With("route", key)
		}
		owners[key] = file
		return nil
	}

	for f, err := range files {
		if err != nil {
			return nil, errs.Internal("discover pages", err)
		}

		switch f.Ext {
		case ExtHTML:
			entry := Entry{RelativePath: f.Path, HTML: true}
			key := routes.LiteralKey(f.Path)
			if err := claim(key, entry.StagedPath()); err != nil {
				return nil, err
			}
			c.HTML[key] = entry.StagedPath()
			c.Entries = append(c.Entries, entry)

		case ExtScript:
			r, err := routes.Match(f.Path)
			if err != nil {
				return nil, err
			}
			entry := Entry{RelativePath: f.Path, Dynamic: r.Dynamic()}
			if err := claim(r.Key, entry.StagedPath()); err != nil {
				return nil, err
			}
			if entry.Dynamic {
				if prev, ok := patterns[r.Regex]; ok {
					return nil, errs.Configf("dynamic routes %s and %s match the same paths", prev, entry.StagedPath()).
						With("route", r.Key)
				}
				patterns[r.Regex] = entry.StagedPath()
				c.Dynamic[r.Key] = DynamicRoute{File: entry.StagedPath(), Regex: r.Regex}
			} else {
				c.NonDynamic[r.Key] = entry.StagedPath()
			}
			c.Entries = append(c.Entries, entry)
		}
	}
	return c, nil
}

// Files returns the relative paths of every classified page.
func (c *Classification) Files() []string {
	out := make([]string, 0, len(c.Entries))
	for _, e := range c.Entries {
		out = append(out, e.RelativePath)
	}
	return out
}
