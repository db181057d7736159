// Package aws deploys onto Lambda (compute behind a function URL), S3 (static
// assets) and CloudFront (the distribution fronting both).
package aws

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"github.com/dosanma1/nextdeploy/internal/errs"
	"github.com/dosanma1/nextdeploy/internal/logging"
	"github.com/dosanma1/nextdeploy/internal/platform"
)

// Name is the registry name of this provider.
const Name = "aws"

func init() {
	platform.Register(Name, New)
}

// LoadConfig loads the SDK configuration. Static credentials are used when
// both keys are set; otherwise the default credential chain applies.
func LoadConfig(ctx context.Context, cfg platform.Config) (aws.Config, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(cfg.Region),
	}
	if cfg.Storage.AccessKey != "" && cfg.Storage.SecretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.Storage.AccessKey, cfg.Storage.SecretKey, ""),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("unable to load SDK config: %w", err)
	}
	return awsCfg, nil
}

// New builds the Lambda, S3 and CloudFront collaborators.
func New(ctx context.Context, cfg platform.Config) (*platform.Provider, error) {
	if cfg.Region == "" {
		return nil, errs.Configf("aws: region is required")
	}
	awsCfg, err := LoadConfig(ctx, cfg)
	if err != nil {
		return nil, errs.External("aws config", err)
	}
	log := logging.OrNop(cfg.Logger).With(zap.String("platform", Name))

	s3Client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Storage.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Storage.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &platform.Provider{
		Backend: NewBackend(lambda.NewFromConfig(awsCfg), cfg, log),
		Storage: NewStorage(s3Client, cfg, log),
		CDN:     NewCDN(cloudfront.NewFromConfig(awsCfg), cfg, log),
	}, nil
}
