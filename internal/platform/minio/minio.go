// Package minio serves static assets from MinIO or any S3-compatible store.
// Backend and CDN stay on the local filesystem, which suits self-hosted
// setups where a reverse proxy fronts the staged bundle.
package minio

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"github.com/dosanma1/nextdeploy/internal/errs"
	"github.com/dosanma1/nextdeploy/internal/logging"
	"github.com/dosanma1/nextdeploy/internal/platform"
	"github.com/dosanma1/nextdeploy/internal/platform/local"
)

// Name is the registry name of this provider.
const Name = "minio"

func init() {
	platform.Register(Name, New)
}

// API is the subset of the MinIO client the storage uses.
type API interface {
	BucketExists(ctx context.Context, bucket string) (bool, error)
	MakeBucket(ctx context.Context, bucket string, opts minio.MakeBucketOptions) error
	FPutObject(ctx context.Context, bucket, key, path string, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// New builds MinIO storage with local backend and CDN.
func New(ctx context.Context, cfg platform.Config) (*platform.Provider, error) {
	host, secure, err := splitEndpoint(cfg.Storage.Endpoint, cfg.Storage.UseSSL)
	if err != nil {
		return nil, err
	}
	client, err := minio.New(host, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.Storage.AccessKey, cfg.Storage.SecretKey, ""),
		Secure: secure,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, errs.External("minio", fmt.Errorf("failed to create minio client: %w", err))
	}

	p, err := local.New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	p.Storage = NewStorage(client, cfg, logging.OrNop(cfg.Logger).With(zap.String("platform", Name)))
	return p, nil
}

// splitEndpoint strips the scheme, which the client does not accept. An
// explicit scheme overrides useSSL.
func splitEndpoint(endpoint string, useSSL bool) (string, bool, error) {
	if endpoint == "" {
		return "", false, errs.Configf("minio: storage.endpoint is required")
	}
	if !strings.Contains(endpoint, "://") {
		return strings.TrimSuffix(endpoint, "/"), useSSL, nil
	}
	u, err := url.Parse(endpoint)
	if err != nil {
		return "", false, errs.Configf("minio: invalid endpoint %q: %v", endpoint, err)
	}
	return u.Host, u.Scheme == "https", nil
}

// Storage uploads into a MinIO bucket.
type Storage struct {
	client API
	cfg    platform.StorageConfig
	region string
	log    *zap.Logger

	// Progress receives upload progress bars. Nil disables them.
	Progress io.Writer
}

// NewStorage returns MinIO storage for cfg.Storage.Bucket.
func NewStorage(client API, cfg platform.Config, log *zap.Logger) *Storage {
	return &Storage{client: client, cfg: cfg.Storage, region: cfg.Region, log: log, Progress: os.Stderr}
}

// SetProgress redirects upload progress bars to w.
func (s *Storage) SetProgress(w io.Writer) { s.Progress = w }

// Init checks the bucket name.
func (s *Storage) Init(context.Context) error {
	if s.cfg.Bucket == "" {
		return errs.Configf("minio: bucket name is empty")
	}
	return nil
}

// Deploy creates the bucket unless it exists.
func (s *Storage) Deploy(ctx context.Context, in platform.BucketInput) (*platform.BucketOutput, error) {
	if in.Name != "" {
		s.cfg.Bucket = in.Name
	}
	exists, err := s.client.BucketExists(ctx, s.cfg.Bucket)
	if err != nil {
		return nil, errs.External("minio", err)
	}
	if !exists {
		if err := s.client.MakeBucket(ctx, s.cfg.Bucket, minio.MakeBucketOptions{Region: s.region}); err != nil {
			return nil, errs.External("minio", err)
		}
		s.log.Info("bucket created", zap.String("bucket", s.cfg.Bucket))
	}
	return &platform.BucketOutput{Name: s.cfg.Bucket, URL: s.bucketURL()}, nil
}

func (s *Storage) bucketURL() string {
	if s.cfg.PublicURL != "" {
		return strings.TrimSuffix(s.cfg.PublicURL, "/")
	}
	endpoint := s.cfg.Endpoint
	if !strings.Contains(endpoint, "://") {
		scheme := "http"
		if s.cfg.UseSSL {
			scheme = "https"
		}
		endpoint = scheme + "://" + endpoint
	}
	return strings.TrimSuffix(endpoint, "/") + "/" + s.cfg.Bucket
}

// Upload puts every file under in.Dir into the bucket under in.KeyPrefix.
func (s *Storage) Upload(ctx context.Context, in platform.UploadInput) error {
	objs, err := platform.Objects(in)
	if err != nil {
		return errs.Internal("list upload objects", err)
	}
	if len(objs) == 0 {
		return nil
	}
	err = platform.UploadObjects(ctx, objs, platform.UploadOptions{
		Concurrency: s.cfg.Concurrency,
		Progress:    s.Progress,
		Description: in.KeyPrefix,
	}, func(ctx context.Context, o platform.Object) error {
		_, err := s.client.FPutObject(ctx, s.cfg.Bucket, o.Key, o.Path, minio.PutObjectOptions{
			ContentType:  platform.ContentType(o.Key),
			CacheControl: platform.CacheControl(o.Key),
		})
		return err
	})
	if err != nil {
		return errs.External("minio", err)
	}
	s.log.Info("uploaded", zap.String("bucket", s.cfg.Bucket), zap.String("prefix", in.KeyPrefix), zap.Int("objects", len(objs)))
	return nil
}
