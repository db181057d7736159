package aws

import (
	"context"
	"maps"
	"slices"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront"
	"github.com/aws/aws-sdk-go-v2/service/cloudfront/types"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dosanma1/nextdeploy/internal/errs"
	"github.com/dosanma1/nextdeploy/internal/manifest"
	"github.com/dosanma1/nextdeploy/internal/platform"
)

// Origin IDs inside the distribution.
const (
	OriginSSR    = "ssr-api"
	OriginStatic = "static-origin"

	// MaxTTL caps every cache behavior, one year.
	MaxTTL = 31536000

	DefaultPriceClass = "PriceClass_100"
)

// CloudFrontAPI is the subset of the CloudFront client the CDN uses.
type CloudFrontAPI interface {
	CreateDistribution(ctx context.Context, in *cloudfront.CreateDistributionInput, optFns ...func(*cloudfront.Options)) (*cloudfront.CreateDistributionOutput, error)
	GetDistributionConfig(ctx context.Context, in *cloudfront.GetDistributionConfigInput, optFns ...func(*cloudfront.Options)) (*cloudfront.GetDistributionConfigOutput, error)
	UpdateDistribution(ctx context.Context, in *cloudfront.UpdateDistributionInput, optFns ...func(*cloudfront.Options)) (*cloudfront.UpdateDistributionOutput, error)
}

// CDN manages a CloudFront distribution.
type CDN struct {
	client CloudFrontAPI
	cfg    platform.CDNConfig
	app    string
	log    *zap.Logger
}

// NewCDN returns a CloudFront CDN. An empty DistributionID creates a new
// distribution on Deploy.
func NewCDN(client CloudFrontAPI, cfg platform.Config, log *zap.Logger) *CDN {
	return &CDN{client: client, cfg: cfg.CDN, app: cfg.App, log: log}
}

// Init fills defaults.
func (c *CDN) Init(context.Context) error {
	if c.cfg.PriceClass == "" {
		c.cfg.PriceClass = DefaultPriceClass
	}
	if c.cfg.Comment == "" {
		c.cfg.Comment = c.app
	}
	return nil
}

// Deploy creates the distribution, or updates the configured one in place.
func (c *CDN) Deploy(ctx context.Context, in platform.CDNInput) (*platform.CDNOutput, error) {
	if in.Origins.SSRApi.DomainName == "" || in.Origins.StaticOrigin.DomainName == "" {
		return nil, errs.Configf("cloudfront: both origins need a domain name")
	}

	if c.cfg.DistributionID == "" {
		dc := DistributionConfig(in.Origins, c.cfg, uuid.NewString())
		out, err := c.client.CreateDistribution(ctx, &cloudfront.CreateDistributionInput{DistributionConfig: dc})
		if err != nil {
			return nil, errs.External("cloudfront", err)
		}
		c.cfg.DistributionID = aws.ToString(out.Distribution.Id)
		c.log.Info("distribution created", zap.String("id", c.cfg.DistributionID))
		return output(out.Distribution), nil
	}

	current, err := c.client.GetDistributionConfig(ctx, &cloudfront.GetDistributionConfigInput{Id: aws.String(c.cfg.DistributionID)})
	if err != nil {
		return nil, errs.External("cloudfront", err)
	}
	dc := DistributionConfig(in.Origins, c.cfg, aws.ToString(current.DistributionConfig.CallerReference))
	dc.Aliases = current.DistributionConfig.Aliases
	dc.ViewerCertificate = current.DistributionConfig.ViewerCertificate

	out, err := c.client.UpdateDistribution(ctx, &cloudfront.UpdateDistributionInput{
		Id:                 aws.String(c.cfg.DistributionID),
		IfMatch:            current.ETag,
		DistributionConfig: dc,
	})
	if err != nil {
		return nil, errs.External("cloudfront", err)
	}
	c.log.Info("distribution updated", zap.String("id", c.cfg.DistributionID))
	return output(out.Distribution), nil
}

func output(d *types.Distribution) *platform.CDNOutput {
	return &platform.CDNOutput{
		ID:  aws.ToString(d.Id),
		URL: "https://" + aws.ToString(d.DomainName),
	}
}

// DistributionConfig maps the manifest origins onto a distribution: the
// backend serves the default behavior and each static path pattern gets its
// own cache behavior against the bucket.
func DistributionConfig(o manifest.Origins, cfg platform.CDNConfig, callerRef string) *types.DistributionConfig {
	var oai string
	if o.StaticOrigin.Private && cfg.OriginAccessIdentity != "" {
		oai = "origin-access-identity/cloudfront/" + cfg.OriginAccessIdentity
	}

	origins := []types.Origin{
		{
			Id:         aws.String(OriginSSR),
			DomainName: aws.String(o.SSRApi.DomainName),
			CustomOriginConfig: &types.CustomOriginConfig{
				HTTPPort:             aws.Int32(80),
				HTTPSPort:            aws.Int32(443),
				OriginProtocolPolicy: types.OriginProtocolPolicyHttpsOnly,
			},
		},
		{
			Id:             aws.String(OriginStatic),
			DomainName:     aws.String(o.StaticOrigin.DomainName),
			S3OriginConfig: &types.S3OriginConfig{OriginAccessIdentity: aws.String(oai)},
		},
	}

	patterns := slices.Sorted(maps.Keys(o.StaticOrigin.PathPatterns))
	behaviors := make([]types.CacheBehavior, 0, len(patterns))
	for _, p := range patterns {
		ttl := o.StaticOrigin.PathPatterns[p].TTL
		behaviors = append(behaviors, types.CacheBehavior{
			PathPattern:          aws.String(p),
			TargetOriginId:       aws.String(OriginStatic),
			ViewerProtocolPolicy: types.ViewerProtocolPolicyRedirectToHttps,
			Compress:             aws.Bool(true),
			ForwardedValues:      forwarded(false),
			MinTTL:               aws.Int64(0),
			DefaultTTL:           aws.Int64(ttl),
			MaxTTL:               aws.Int64(max(ttl, MaxTTL)),
			AllowedMethods:       methods(types.MethodGet, types.MethodHead),
		})
	}

	return &types.DistributionConfig{
		CallerReference: aws.String(callerRef),
		Comment:         aws.String(cfg.Comment),
		Enabled:         aws.Bool(true),
		PriceClass:      types.PriceClass(cfg.PriceClass),
		HttpVersion:     types.HttpVersionHttp2,
		Origins: &types.Origins{
			Quantity: aws.Int32(int32(len(origins))),
			Items:    origins,
		},
		DefaultCacheBehavior: &types.DefaultCacheBehavior{
			TargetOriginId:       aws.String(OriginSSR),
			ViewerProtocolPolicy: types.ViewerProtocolPolicyRedirectToHttps,
			Compress:             aws.Bool(true),
			ForwardedValues:      forwarded(true),
			MinTTL:               aws.Int64(0),
			DefaultTTL:           aws.Int64(o.SSRApi.DefaultTTL),
			MaxTTL:               aws.Int64(max(o.SSRApi.DefaultTTL, MaxTTL)),
			AllowedMethods: methods(
				types.MethodGet, types.MethodHead, types.MethodOptions,
				types.MethodPut, types.MethodPost, types.MethodPatch, types.MethodDelete,
			),
		},
		CacheBehaviors: &types.CacheBehaviors{
			Quantity: aws.Int32(int32(len(behaviors))),
			Items:    behaviors,
		},
	}
}

func forwarded(dynamic bool) *types.ForwardedValues {
	cookies := types.ItemSelectionNone
	if dynamic {
		cookies = types.ItemSelectionAll
	}
	return &types.ForwardedValues{
		QueryString: aws.Bool(dynamic),
		Cookies:     &types.CookiePreference{Forward: cookies},
	}
}

func methods(items ...types.Method) *types.AllowedMethods {
	cached := []types.Method{types.MethodGet, types.MethodHead}
	return &types.AllowedMethods{
		Quantity: aws.Int32(int32(len(items))),
		Items:    items,
		CachedMethods: &types.CachedMethods{
			Quantity: aws.Int32(int32(len(cached))),
			Items:    cached,
		},
	}
}
