// Package stager assembles the self-contained deployment bundle: compiled
// pages, the generated request entry point and router, the runtime compat
// shim and the routing manifest.
package stager

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/dosanma1/nextdeploy/internal/errs"
	"github.com/dosanma1/nextdeploy/internal/logging"
	"github.com/dosanma1/nextdeploy/internal/manifest"
	"github.com/dosanma1/nextdeploy/internal/pages"
	"github.com/dosanma1/nextdeploy/pkg/xos"
)

// Project layout, relative to the project directory.
const (
	DefaultPagesDir  = ".next/serverless/pages"
	DefaultOutputDir = ".nextdeploy/build"
	DefaultShimDir   = "node_modules/" + ShimPackage

	NextStaticDir = ".next/static"
	StaticDir     = "static"
	PublicDir     = "public"
)

// ShimPackage is the module name the entry point requires at runtime.
const ShimPackage = "next-aws-lambda"

// Key prefixes of the three upload groups.
const (
	PrefixNextStatic = "_next/static"
	PrefixStatic     = "static"
	PrefixPublic     = "public"
)

// Options configure a staging run. Relative paths are resolved against
// ProjectDir.
type Options struct {
	ProjectDir string
	PagesDir   string
	OutputDir  string
	ShimDir    string
	Origins    manifest.Origins
	Logger     *zap.Logger
}

// UploadGroup is a directory uploaded verbatim under a key prefix.
type UploadGroup struct {
	Name      string
	Dir       string
	KeyPrefix string
}

// Result describes the staged bundle.
type Result struct {
	Dir          string
	ManifestPath string
	Manifest     *manifest.Manifest
	Pages        int
	Upload       []UploadGroup
}

func (o Options) withDefaults() Options {
	if o.ProjectDir == "" {
		o.ProjectDir = "."
	}
	o.PagesDir = o.resolve(o.PagesDir, DefaultPagesDir)
	o.OutputDir = o.resolve(o.OutputDir, DefaultOutputDir)
	o.ShimDir = o.resolve(o.ShimDir, DefaultShimDir)
	o.Logger = logging.OrNop(o.Logger)
	return o
}

func (o Options) resolve(p, def string) string {
	if p == "" {
		p = def
	}
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(o.ProjectDir, filepath.FromSlash(p))
}

// UploadGroups lists the framework static output, the user's static
// directory and the user's public directory. Groups are listed whether or not
// the directory exists; uploading a missing directory is a no-op.
func UploadGroups(projectDir string) []UploadGroup {
	return []UploadGroup{
		{Name: "next-static", Dir: filepath.Join(projectDir, filepath.FromSlash(NextStaticDir)), KeyPrefix: PrefixNextStatic},
		{Name: "static", Dir: filepath.Join(projectDir, StaticDir), KeyPrefix: PrefixStatic},
		{Name: "public", Dir: filepath.Join(projectDir, PublicDir), KeyPrefix: PrefixPublic},
	}
}

// CheckOutputDir reports a config error unless the output directory lies
// strictly inside the project and shares no path with a directory Stage
// reads from.
func CheckOutputDir(opts Options) error {
	opts = opts.withDefaults()
	project, err := filepath.Abs(opts.ProjectDir)
	if err != nil {
		return errs.Internal("resolve project directory", err)
	}
	out, err := filepath.Abs(opts.OutputDir)
	if err != nil {
		return errs.Internal("resolve output directory", err)
	}
	if !within(project, out) {
		return errs.Configf("output directory %s must be inside the project directory %s", out, project).
			With("output", out)
	}
	sources := []struct{ name, dir string }{
		{"pages", opts.PagesDir},
		{"shim", opts.ShimDir},
		{"public", filepath.Join(opts.ProjectDir, PublicDir)},
		{"static", filepath.Join(opts.ProjectDir, StaticDir)},
		{"next static", filepath.Join(opts.ProjectDir, filepath.FromSlash(NextStaticDir))},
	}
	for _, src := range sources {
		dir, err := filepath.Abs(src.dir)
		if err != nil {
			return errs.Internal("resolve "+src.name+" directory", err)
		}
		if dir == out || within(out, dir) || within(dir, out) {
			return errs.Configf("output directory %s overlaps the %s directory %s", out, src.name, dir).
				With("output", out)
		}
	}
	return nil
}

// within reports whether path is strictly below dir.
func within(dir, path string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil || rel == "." {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// Stage recreates the output directory from scratch and fills it. The written
// manifest is verified against the staged files before Stage returns.
func Stage(ctx context.Context, opts Options) (*Result, error) {
	opts = opts.withDefaults()
	log := opts.Logger.With(zap.String("dir", opts.OutputDir))
	start := time.Now()

	if err := CheckOutputDir(opts); err != nil {
		return nil, err
	}

	classification, err := pages.Classify(pages.Discover(opts.PagesDir))
	if err != nil {
		return nil, err
	}
	if classification.Len() == 0 {
		log.Warn("no pages found", zap.String("pages", opts.PagesDir))
	}

	if err := os.RemoveAll(opts.OutputDir); err != nil {
		return nil, errs.Internal("clean staged directory", err)
	}
	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, errs.Internal("create staged directory", err)
	}

	for _, entry := range classification.Entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		src := filepath.Join(opts.PagesDir, filepath.FromSlash(entry.RelativePath))
		dst := filepath.Join(opts.OutputDir, filepath.FromSlash(entry.StagedPath()))
		if err := xos.CopyFile(src, dst); err != nil {
			return nil, errs.Internal("copy page", err).With("page", entry.RelativePath)
		}
	}
	log.Debug("pages copied", zap.Int("count", classification.Len()))

	if err := renderHandlers(opts.OutputDir); err != nil {
		return nil, err
	}

	if err := copyShim(opts.ShimDir, opts.OutputDir, log); err != nil {
		return nil, err
	}

	publicDir := filepath.Join(opts.ProjectDir, PublicDir)
	publicFiles, err := manifest.PublicFiles(publicDir)
	if err != nil {
		return nil, err
	}
	if len(publicFiles) == 0 {
		log.Debug("no public files", zap.String("public", publicDir))
	}

	m := manifest.Build(classification, publicFiles, opts.Origins)
	path, err := m.Write(opts.OutputDir)
	if err != nil {
		return nil, err
	}
	if err := m.Verify(opts.OutputDir); err != nil {
		return nil, err
	}

	groups := UploadGroups(opts.ProjectDir)
	for _, g := range groups {
		if !xos.IsDir(g.Dir) {
			log.Warn("upload source missing, nothing to upload", zap.String("group", g.Name), zap.String("source", g.Dir))
		}
	}

	log.Info("bundle staged",
		zap.Int("pages", classification.Len()),
		zap.Int("routes", m.RouteCount()),
		zap.Int("public_files", len(publicFiles)),
		zap.Duration("duration", time.Since(start)),
	)

	return &Result{
		Dir:          opts.OutputDir,
		ManifestPath: path,
		Manifest:     m,
		Pages:        classification.Len(),
		Upload:       groups,
	}, nil
}

func copyShim(src, outputDir string, log *zap.Logger) error {
	if !xos.IsDir(src) {
		log.Warn("compat shim not found, bundle will not run until it is installed",
			zap.String("package", ShimPackage), zap.String("source", src))
		return nil
	}
	dst := filepath.Join(outputDir, "node_modules", ShimPackage)
	n, err := xos.CopyDir(src, dst)
	if err != nil {
		return errs.Internal("copy compat shim", err)
	}
	log.Debug("compat shim copied", zap.Int("files", n))
	return nil
}
