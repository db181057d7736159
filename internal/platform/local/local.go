// Package local implements the platform contract on the local filesystem.
// It backs dry runs: nothing leaves the machine, and the resulting tree shows
// exactly what would have been deployed.
package local

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/dosanma1/nextdeploy/internal/errs"
	"github.com/dosanma1/nextdeploy/internal/logging"
	"github.com/dosanma1/nextdeploy/internal/platform"
	"github.com/dosanma1/nextdeploy/pkg/xos"
)

// Name is the registry name of this provider.
const Name = "local"

// DefaultDir is used when Config.LocalDir is empty.
const DefaultDir = ".nextdeploy/local"

func init() {
	platform.Register(Name, New)
}

// New builds a provider rooted at cfg.LocalDir.
func New(_ context.Context, cfg platform.Config) (*platform.Provider, error) {
	root := cfg.LocalDir
	if root == "" {
		root = DefaultDir
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, errs.Internal("resolve local platform dir", err)
	}
	log := logging.OrNop(cfg.Logger).With(zap.String("platform", Name))

	return &platform.Provider{
		Backend: &Backend{Root: filepath.Join(abs, "backend"), App: cfg.App, log: log},
		Storage: &Storage{Root: filepath.Join(abs, "buckets"), Bucket: cfg.Storage.Bucket, log: log},
		CDN:     &CDN{Root: filepath.Join(abs, "cdn"), log: log},
	}, nil
}

func fileURL(p string) string {
	return "file://" + filepath.ToSlash(p)
}

// Backend copies the staged bundle into Root/<app>.
type Backend struct {
	Root string
	App  string
	log  *zap.Logger
}

// Init creates the backend root.
func (b *Backend) Init(context.Context) error {
	if err := os.MkdirAll(b.Root, 0755); err != nil {
		return errs.External("local backend", err)
	}
	return nil
}

// Deploy replaces the previous copy of the bundle.
func (b *Backend) Deploy(_ context.Context, in platform.BackendInput) (*platform.BackendOutput, error) {
	dst := filepath.Join(b.Root, b.App)
	if err := os.RemoveAll(dst); err != nil {
		return nil, errs.External("local backend", err)
	}
	n, err := xos.CopyDir(in.StagedDir, dst)
	if err != nil {
		return nil, errs.External("local backend", err)
	}
	b.log.Info("backend registered", zap.String("dir", dst), zap.Int("files", n))
	return &platform.BackendOutput{Name: b.App, URL: fileURL(dst)}, nil
}

// Storage treats Root/<bucket> as the bucket.
type Storage struct {
	Root   string
	Bucket string
	log    *zap.Logger
}

// Init creates the storage root.
func (s *Storage) Init(context.Context) error {
	if err := os.MkdirAll(s.Root, 0755); err != nil {
		return errs.External("local storage", err)
	}
	return nil
}

// Deploy creates the bucket directory if needed.
func (s *Storage) Deploy(_ context.Context, in platform.BucketInput) (*platform.BucketOutput, error) {
	if in.Name != "" {
		s.Bucket = in.Name
	}
	if s.Bucket == "" {
		return nil, errs.Configf("local storage: bucket name is empty")
	}
	dir := filepath.Join(s.Root, s.Bucket)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errs.External("local storage", err)
	}
	return &platform.BucketOutput{Name: s.Bucket, URL: fileURL(dir)}, nil
}

// Upload copies in.Dir under the bucket's key prefix.
func (s *Storage) Upload(ctx context.Context, in platform.UploadInput) error {
	objs, err := platform.Objects(in)
	if err != nil {
		return errs.External("local storage", err)
	}
	bucket := filepath.Join(s.Root, s.Bucket)
	err = platform.UploadObjects(ctx, objs, platform.UploadOptions{}, func(_ context.Context, o platform.Object) error {
		return xos.CopyFile(o.Path, filepath.Join(bucket, filepath.FromSlash(o.Key)))
	})
	if err != nil {
		return errs.External("local storage", err)
	}
	s.log.Info("uploaded", zap.String("prefix", in.KeyPrefix), zap.Int("objects", len(objs)))
	return nil
}

// CDN records the distribution as Root/distribution.json.
type CDN struct {
	Root string
	log  *zap.Logger
}

// Init creates the CDN root.
func (c *CDN) Init(context.Context) error {
	if err := os.MkdirAll(c.Root, 0755); err != nil {
		return errs.External("local cdn", err)
	}
	return nil
}

// Deploy writes the origins the distribution would be configured with.
func (c *CDN) Deploy(_ context.Context, in platform.CDNInput) (*platform.CDNOutput, error) {
	data, err := json.MarshalIndent(in.Origins, "", "  ")
	if err != nil {
		return nil, errs.Internal("marshal origins", err)
	}
	path := filepath.Join(c.Root, "distribution.json")
	if err := xos.WriteFile(path, data, 0644); err != nil {
		return nil, errs.External("local cdn", err)
	}
	c.log.Info("distribution written", zap.String("path", path))
	return &platform.CDNOutput{ID: Name, URL: fmt.Sprintf("file://%s", filepath.ToSlash(path))}, nil
}
