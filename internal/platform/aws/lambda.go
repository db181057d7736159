package aws

import (
	"context"
	"errors"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"go.uber.org/zap"

	"github.com/dosanma1/nextdeploy/internal/errs"
	"github.com/dosanma1/nextdeploy/internal/platform"
)

// Backend defaults.
const (
	DefaultRuntime = "nodejs20.x"
	DefaultHandler = "index.handler"
	DefaultMemory  = 1024
	DefaultTimeout = 10

	urlPermissionID = "nextdeploy-function-url"
	waitTimeout     = 5 * time.Minute
)

// LambdaAPI is the subset of the Lambda client the backend uses.
type LambdaAPI interface {
	GetFunction(ctx context.Context, in *lambda.GetFunctionInput, optFns ...func(*lambda.Options)) (*lambda.GetFunctionOutput, error)
	CreateFunction(ctx context.Context, in *lambda.CreateFunctionInput, optFns ...func(*lambda.Options)) (*lambda.CreateFunctionOutput, error)
	UpdateFunctionCode(ctx context.Context, in *lambda.UpdateFunctionCodeInput, optFns ...func(*lambda.Options)) (*lambda.UpdateFunctionCodeOutput, error)
	GetFunctionUrlConfig(ctx context.Context, in *lambda.GetFunctionUrlConfigInput, optFns ...func(*lambda.Options)) (*lambda.GetFunctionUrlConfigOutput, error)
	CreateFunctionUrlConfig(ctx context.Context, in *lambda.CreateFunctionUrlConfigInput, optFns ...func(*lambda.Options)) (*lambda.CreateFunctionUrlConfigOutput, error)
	AddPermission(ctx context.Context, in *lambda.AddPermissionInput, optFns ...func(*lambda.Options)) (*lambda.AddPermissionOutput, error)
}

// Backend registers the staged bundle as a Lambda function with a public
// function URL.
type Backend struct {
	client LambdaAPI
	cfg    platform.BackendConfig
	name   string
	log    *zap.Logger

	// wait blocks until the function accepts invocations.
	wait func(ctx context.Context, name string) error
}

// NewBackend returns a Lambda backend named after the app.
func NewBackend(client LambdaAPI, cfg platform.Config, log *zap.Logger) *Backend {
	b := &Backend{client: client, cfg: cfg.Backend, name: cfg.App, log: log}
	b.wait = func(ctx context.Context, name string) error {
		return lambda.NewFunctionUpdatedV2Waiter(client).Wait(ctx,
			&lambda.GetFunctionInput{FunctionName: aws.String(name)}, waitTimeout)
	}
	return b
}

// Init fills defaults and checks the function name.
func (b *Backend) Init(context.Context) error {
	if b.name == "" {
		return errs.Configf("lambda: function name is empty")
	}
	if b.cfg.Runtime == "" {
		b.cfg.Runtime = DefaultRuntime
	}
	if b.cfg.Handler == "" {
		b.cfg.Handler = DefaultHandler
	}
	if b.cfg.MemoryMB == 0 {
		b.cfg.MemoryMB = DefaultMemory
	}
	if b.cfg.TimeoutSec == 0 {
		b.cfg.TimeoutSec = DefaultTimeout
	}
	return nil
}

// Deploy uploads the bundle, creating the function on first deploy, and
// returns its function URL.
func (b *Backend) Deploy(ctx context.Context, in platform.BackendInput) (*platform.BackendOutput, error) {
	code, err := Bundle(in.StagedDir)
	if err != nil {
		return nil, errs.Internal("bundle staged directory", err)
	}
	log := b.log.With(zap.String("function", b.name))
	log.Debug("bundle built", zap.Int("bytes", len(code)))

	_, err = b.client.GetFunction(ctx, &lambda.GetFunctionInput{FunctionName: aws.String(b.name)})
	var notFound *types.ResourceNotFoundException
	switch {
	case errors.As(err, &notFound):
		if err := b.create(ctx, code); err != nil {
			return nil, err
		}
		log.Info("function created")
	case err != nil:
		return nil, errs.External("lambda", err)
	default:
		if _, err := b.client.UpdateFunctionCode(ctx, &lambda.UpdateFunctionCodeInput{
			FunctionName: aws.String(b.name),
			ZipFile:      code,
			Publish:      true,
		}); err != nil {
			return nil, errs.External("lambda", err)
		}
		log.Info("function code updated")
	}

	if err := b.wait(ctx, b.name); err != nil {
		return nil, errs.External("lambda", err)
	}

	url, err := b.functionURL(ctx)
	if err != nil {
		return nil, err
	}
	return &platform.BackendOutput{Name: b.name, URL: url}, nil
}

func (b *Backend) create(ctx context.Context, code []byte) error {
	if b.cfg.RoleARN == "" {
		return errs.Configf("lambda: backend.role is required to create function %s", b.name)
	}
	_, err := b.client.CreateFunction(ctx, &lambda.CreateFunctionInput{
		FunctionName: aws.String(b.name),
		Role:         aws.String(b.cfg.RoleARN),
		Runtime:      types.Runtime(b.cfg.Runtime),
		Handler:      aws.String(b.cfg.Handler),
		MemorySize:   aws.Int32(b.cfg.MemoryMB),
		Timeout:      aws.Int32(b.cfg.TimeoutSec),
		Code:         &types.FunctionCode{ZipFile: code},
		Publish:      true,
	})
	if err != nil {
		return errs.External("lambda", err)
	}
	return nil
}

func (b *Backend) functionURL(ctx context.Context) (string, error) {
	got, err := b.client.GetFunctionUrlConfig(ctx, &lambda.GetFunctionUrlConfigInput{FunctionName: aws.String(b.name)})
	if err == nil {
		return aws.ToString(got.FunctionUrl), nil
	}
	var notFound *types.ResourceNotFoundException
	if !errors.As(err, &notFound) {
		return "", errs.External("lambda", err)
	}

	created, err := b.client.CreateFunctionUrlConfig(ctx, &lambda.CreateFunctionUrlConfigInput{
		FunctionName: aws.String(b.name),
		AuthType:     types.FunctionUrlAuthTypeNone,
	})
	if err != nil {
		return "", errs.External("lambda", err)
	}

	_, err = b.client.AddPermission(ctx, &lambda.AddPermissionInput{
		FunctionName:        aws.String(b.name),
		StatementId:         aws.String(urlPermissionID),
		Action:              aws.String("lambda:InvokeFunctionUrl"),
		Principal:           aws.String("*"),
		FunctionUrlAuthType: types.FunctionUrlAuthTypeNone,
	})
	var conflict *types.ResourceConflictException
	if err != nil && !errors.As(err, &conflict) {
		return "", errs.External("lambda", err)
	}

	b.log.Info("function url created", zap.String("url", aws.ToString(created.FunctionUrl)))
	return aws.ToString(created.FunctionUrl), nil
}
