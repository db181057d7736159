package manifest

import (
	"github.com/dosanma1/nextdeploy/internal/errs"
	"github.com/dosanma1/nextdeploy/internal/pages"
)

// PublicFiles lists every file under dir recursively as "/<rel>" -> "<rel>".
// A missing directory yields an empty map.
func PublicFiles(dir string) (map[string]string, error) {
	out := make(map[string]string)
	for f, err := range pages.Discover(dir) {
		if err != nil {
			return nil, errs.Internal("list public files", err)
		}
		out["/"+f.Path] = f.Path
	}
	return out, nil
}
