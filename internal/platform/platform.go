// Package platform defines the capability contract the deployment pipeline
// uses to reach a target platform: a backend that runs the staged bundle, a
// storage bucket for static assets and a CDN in front of both.
package platform

import (
	"context"
	"io"

	"go.uber.org/zap"

	"github.com/dosanma1/nextdeploy/internal/manifest"
)

// Backend registers the staged bundle as serverless compute.
type Backend interface {
	Init(ctx context.Context) error
	Deploy(ctx context.Context, in BackendInput) (*BackendOutput, error)
}

// Storage provisions the asset bucket and uploads directories into it.
type Storage interface {
	Init(ctx context.Context) error
	Deploy(ctx context.Context, in BucketInput) (*BucketOutput, error)
	// Upload copies every file under in.Dir to in.KeyPrefix. A missing or
	// empty directory is a no-op.
	Upload(ctx context.Context, in UploadInput) error
}

// ProgressSetter is implemented by storage that draws upload progress bars.
// A nil writer turns the bars off.
type ProgressSetter interface {
	SetProgress(w io.Writer)
}

// CDN configures the distribution that fronts the backend and the bucket.
type CDN interface {
	Init(ctx context.Context) error
	Deploy(ctx context.Context, in CDNInput) (*CDNOutput, error)
}

// Provider bundles the three collaborators of one platform.
type Provider struct {
	Name    string
	Backend Backend
	Storage Storage
	CDN     CDN
}

// BackendInput points the backend at a staged bundle.
type BackendInput struct {
	StagedDir string
}

// BackendOutput describes the registered backend.
type BackendOutput struct {
	Name string
	URL  string
}

// BucketInput selects the bucket to create or reuse.
type BucketInput struct {
	Name string
}

// BucketOutput describes the asset bucket.
type BucketOutput struct {
	Name string
	URL  string
}

// UploadInput uploads Dir under KeyPrefix.
type UploadInput struct {
	Dir       string
	KeyPrefix string
}

// CDNInput carries the origins built from the backend and bucket outputs.
type CDNInput struct {
	Origins manifest.Origins
}

// CDNOutput describes the distribution.
type CDNOutput struct {
	ID  string
	URL string
}

// Config is the configuration record every provider is constructed with.
type Config struct {
	// App names the deployed resources.
	App    string
	Region string

	Backend BackendConfig
	Storage StorageConfig
	CDN     CDNConfig

	// LocalDir is the root the local provider writes into.
	LocalDir string

	Logger *zap.Logger
}

// BackendConfig configures the compute function.
type BackendConfig struct {
	Runtime    string
	Handler    string
	MemoryMB   int32
	TimeoutSec int32
	RoleARN    string
}

// StorageConfig configures the asset bucket.
type StorageConfig struct {
	Bucket      string
	Endpoint    string
	AccessKey   string
	SecretKey   string
	PublicURL   string
	UseSSL      bool
	Concurrency int
}

// CDNConfig configures the distribution.
type CDNConfig struct {
	DistributionID       string
	OriginAccessIdentity string
	PriceClass           string
	Comment              string
}
