// Package manifest assembles the routing manifest consumed by the staged
// request router and by the CDN configuration step.
package manifest

import (
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"

	"github.com/dosanma1/nextdeploy/internal/errs"
	"github.com/dosanma1/nextdeploy/internal/pages"
	"github.com/dosanma1/nextdeploy/pkg/xos"
)

// FileName is the manifest's name inside the staged directory.
const FileName = "manifest.json"

// Manifest describes how pre-built pages map to routes and where static
// files are served from.
type Manifest struct {
	Pages             Pages             `json:"pages"`
	PublicFiles       map[string]string `json:"publicFiles"`
	CloudFrontOrigins Origins           `json:"cloudFrontOrigins"`
}

// Pages groups server-rendered and static HTML pages.
type Pages struct {
	SSR  SSR               `json:"ssr"`
	HTML map[string]string `json:"html"`
}

// SSR groups server-rendered pages by routing kind.
type SSR struct {
	Dynamic    map[string]pages.DynamicRoute `json:"dynamic"`
	NonDynamic map[string]string             `json:"nonDynamic"`
}

// Build aggregates classified pages, public files and CDN origins. It has no
// side effects; inputs are copied.
func Build(c *pages.Classification, publicFiles map[string]string, origins Origins) *Manifest {
	m := &Manifest{
		Pages: Pages{
			SSR: SSR{
				Dynamic:    orEmpty(maps.Clone(c.Dynamic)),
				NonDynamic: orEmpty(maps.Clone(c.NonDynamic)),
			},
			HTML: orEmpty(maps.Clone(c.HTML)),
		},
		PublicFiles:       orEmpty(maps.Clone(publicFiles)),
		CloudFrontOrigins: origins.clone(),
	}
	return m
}

func orEmpty[V any](m map[string]V) map[string]V {
	if m == nil {
		return map[string]V{}
	}
	return m
}

// PageFiles returns every page file the manifest references, sorted.
func (m *Manifest) PageFiles() []string {
	seen := make(map[string]struct{})
	for _, f := range m.Pages.SSR.NonDynamic {
		seen[f] = struct{}{}
	}
	for _, r := range m.Pages.SSR.Dynamic {
		seen[r.File] = struct{}{}
	}
	for _, f := range m.Pages.HTML {
		seen[f] = struct{}{}
	}
	return slices.Sorted(maps.Keys(seen))
}

// RouteCount returns the number of routes across all buckets.
func (m *Manifest) RouteCount() int {
	return len(m.Pages.SSR.Dynamic) + len(m.Pages.SSR.NonDynamic) + len(m.Pages.HTML)
}

// ToJSON serializes the manifest.
func (m *Manifest) ToJSON() ([]byte, error) {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, errs.Internal("marshal manifest", err)
	}
	return data, nil
}

// FromJSON parses a manifest document.
func FromJSON(data []byte) (*Manifest, error) {
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errs.Internal("unmarshal manifest", err)
	}
	return &m, nil
}

// Write stores the manifest as dir/manifest.json and returns its path.
func (m *Manifest) Write(dir string) (string, error) {
	data, err := m.ToJSON()
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, FileName)
	if err := xos.WriteFile(path, data, 0644); err != nil {
		return "", errs.Internal("write manifest", err)
	}
	return path, nil
}

// Load reads a manifest from path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Internal(fmt.Sprintf("read manifest %s", path), err)
	}
	return FromJSON(data)
}

// Verify checks that every page file the manifest references exists under
// stagedDir. Public files are uploaded from the project and are not checked.
func (m *Manifest) Verify(stagedDir string) error {
	for _, f := range m.PageFiles() {
		info, err := os.Stat(filepath.Join(stagedDir, filepath.FromSlash(f)))
		if err != nil || info.IsDir() {
			return errs.MissingArtifact(f)
		}
	}
	return nil
}
