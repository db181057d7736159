package aws

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"go.uber.org/zap"

	"github.com/dosanma1/nextdeploy/internal/errs"
	"github.com/dosanma1/nextdeploy/internal/platform"
)

// S3API is the subset of the S3 client the storage uses.
type S3API interface {
	HeadBucket(ctx context.Context, in *s3.HeadBucketInput, optFns ...func(*s3.Options)) (*s3.HeadBucketOutput, error)
	CreateBucket(ctx context.Context, in *s3.CreateBucketInput, optFns ...func(*s3.Options)) (*s3.CreateBucketOutput, error)
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Storage keeps static assets in an S3 bucket.
type Storage struct {
	client S3API
	cfg    platform.StorageConfig
	region string
	log    *zap.Logger

	// Progress receives upload progress bars. Nil disables them.
	Progress io.Writer
}

// NewStorage returns S3 storage for cfg.Storage.Bucket.
func NewStorage(client S3API, cfg platform.Config, log *zap.Logger) *Storage {
	return &Storage{client: client, cfg: cfg.Storage, region: cfg.Region, log: log, Progress: os.Stderr}
}

// SetProgress redirects upload progress bars to w.
func (s *Storage) SetProgress(w io.Writer) { s.Progress = w }

// Init checks the bucket name.
func (s *Storage) Init(context.Context) error {
	if s.cfg.Bucket == "" {
		return errs.Configf("s3: bucket name is empty")
	}
	return nil
}

// Deploy reuses the bucket when it exists and creates it otherwise.
func (s *Storage) Deploy(ctx context.Context, in platform.BucketInput) (*platform.BucketOutput, error) {
	if in.Name != "" {
		s.cfg.Bucket = in.Name
	}
	log := s.log.With(zap.String("bucket", s.cfg.Bucket))

	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{Bucket: aws.String(s.cfg.Bucket)})
	switch {
	case err == nil:
		log.Debug("bucket exists")
	case isNotFound(err):
		create := &s3.CreateBucketInput{Bucket: aws.String(s.cfg.Bucket)}
		if s.region != "" && s.region != "us-east-1" {
			create.CreateBucketConfiguration = &types.CreateBucketConfiguration{
				LocationConstraint: types.BucketLocationConstraint(s.region),
			}
		}
		_, err := s.client.CreateBucket(ctx, create)
		var owned *types.BucketAlreadyOwnedByYou
		if err != nil && !errors.As(err, &owned) {
			return nil, errs.External("s3", err)
		}
		log.Info("bucket created")
	default:
		return nil, errs.External("s3", err)
	}

	return &platform.BucketOutput{Name: s.cfg.Bucket, URL: s.bucketURL()}, nil
}

func isNotFound(err error) bool {
	var nf *types.NotFound
	var nsb *types.NoSuchBucket
	return errors.As(err, &nf) || errors.As(err, &nsb)
}

func (s *Storage) bucketURL() string {
	switch {
	case s.cfg.PublicURL != "":
		return strings.TrimSuffix(s.cfg.PublicURL, "/")
	case s.cfg.Endpoint != "":
		return strings.TrimSuffix(s.cfg.Endpoint, "/") + "/" + s.cfg.Bucket
	default:
		return BucketURL(s.cfg.Bucket, s.region)
	}
}

// BucketURL is the virtual-hosted URL of an AWS bucket.
func BucketURL(bucket, region string) string {
	if region == "" {
		return fmt.Sprintf("https://%s.s3.amazonaws.com", bucket)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com", bucket, region)
}

// Upload puts every file under in.Dir into the bucket under in.KeyPrefix.
func (s *Storage) Upload(ctx context.Context, in platform.UploadInput) error {
	objs, err := platform.Objects(in)
	if err != nil {
		return errs.Internal("list upload objects", err)
	}
	log := s.log.With(zap.String("bucket", s.cfg.Bucket), zap.String("prefix", in.KeyPrefix))
	if len(objs) == 0 {
		log.Debug("nothing to upload", zap.String("dir", in.Dir))
		return nil
	}

	err = platform.UploadObjects(ctx, objs, platform.UploadOptions{
		Concurrency: s.cfg.Concurrency,
		Progress:    s.Progress,
		Description: in.KeyPrefix,
	}, s.put)
	if err != nil {
		return errs.External("s3", err)
	}
	log.Info("uploaded", zap.Int("objects", len(objs)))
	return nil
}

func (s *Storage) put(ctx context.Context, obj platform.Object) error {
	f, err := obj.Open()
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.cfg.Bucket),
		Key:           aws.String(obj.Key),
		Body:          f,
		ContentLength: aws.Int64(obj.Size),
		ContentType:   aws.String(platform.ContentType(obj.Key)),
		CacheControl:  aws.String(platform.CacheControl(obj.Key)),
	})
	return err
}
