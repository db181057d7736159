// Package orchestrator runs a deployment end to end: framework build,
// staging, backend, storage with uploads, then the CDN in front of both.
package orchestrator

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dosanma1/nextdeploy/internal/builder"
	"github.com/dosanma1/nextdeploy/internal/errs"
	"github.com/dosanma1/nextdeploy/internal/logging"
	"github.com/dosanma1/nextdeploy/internal/manifest"
	"github.com/dosanma1/nextdeploy/internal/platform"
	"github.com/dosanma1/nextdeploy/internal/stager"
	"github.com/dosanma1/nextdeploy/pkg/xos"
)

// Step names, as logged.
const (
	StepBuild   = "build"
	StepStage   = "stage"
	StepBackend = "backend"
	StepStorage = "storage"
	StepUpload  = "upload"
	StepCDN     = "cdn"
)

// StageFunc stages the bundle. stager.Stage is the default.
type StageFunc func(ctx context.Context, opts stager.Options) (*stager.Result, error)

// Options configure a deployment.
type Options struct {
	// Builder runs the framework build. Nil or SkipBuild skips step one.
	Builder   builder.Builder
	Build     builder.BuildOptions
	SkipBuild bool

	Stage   stager.Options
	StageFn StageFunc

	Provider *platform.Provider
	Bucket   string
	TTL      manifest.TTLs

	Logger *zap.Logger
}

// Result describes a finished deployment.
type Result struct {
	ID         string
	StagedDir  string
	BackendURL string
	BucketName string
	BucketURL  string
	CDNID      string
	CDNURL     string
	Manifest   *manifest.Manifest
}

// Orchestrator runs the deployment steps in order. Any failure aborts the
// run; steps that already completed are left in place.
type Orchestrator struct {
	opts Options
	log  *zap.Logger
}

// New returns an orchestrator for opts.
func New(opts Options) (*Orchestrator, error) {
	if opts.Provider == nil || opts.Provider.Backend == nil || opts.Provider.Storage == nil || opts.Provider.CDN == nil {
		return nil, errs.Configf("a provider with backend, storage and cdn is required")
	}
	if opts.StageFn == nil {
		opts.StageFn = stager.Stage
	}
	if opts.TTL == (manifest.TTLs{}) {
		opts.TTL = manifest.DefaultTTLs
	}
	log := logging.OrNop(opts.Logger)
	opts.Stage.Logger = log
	return &Orchestrator{opts: opts, log: log}, nil
}

// Run executes the pipeline.
func (o *Orchestrator) Run(ctx context.Context) (*Result, error) {
	res := &Result{ID: uuid.NewString()}
	log := o.log.With(zap.String("deployment", res.ID), zap.String("platform", o.opts.Provider.Name))
	start := time.Now()
	log.Info("deployment started")

	if o.opts.Builder != nil && !o.opts.SkipBuild {
		if err := o.step(log, StepBuild, func() error {
			return o.opts.Builder.Build(ctx, &o.opts.Build)
		}); err != nil {
			return nil, err
		}
	} else {
		log.Info("build skipped", zap.String("step", StepBuild))
	}

	var staged *stager.Result
	if err := o.step(log, StepStage, func() (err error) {
		staged, err = o.opts.StageFn(ctx, o.opts.Stage)
		return err
	}); err != nil {
		return nil, err
	}
	res.StagedDir = staged.Dir
	res.Manifest = staged.Manifest

	p := o.opts.Provider
	if err := o.step(log, StepBackend, func() error {
		if err := p.Backend.Init(ctx); err != nil {
			return err
		}
		out, err := p.Backend.Deploy(ctx, platform.BackendInput{StagedDir: staged.Dir})
		if err != nil {
			return err
		}
		res.BackendURL = out.URL
		return nil
	}); err != nil {
		return nil, err
	}

	if err := o.step(log, StepStorage, func() error {
		if err := p.Storage.Init(ctx); err != nil {
			return err
		}
		out, err := p.Storage.Deploy(ctx, platform.BucketInput{Name: o.opts.Bucket})
		if err != nil {
			return err
		}
		res.BucketName = out.Name
		res.BucketURL = out.URL
		return nil
	}); err != nil {
		return nil, err
	}

	origins := manifest.NewOrigins(res.BackendURL, res.BucketURL, o.opts.TTL)
	if res.Manifest != nil {
		res.Manifest.CloudFrontOrigins = origins
		if _, err := res.Manifest.Write(staged.Dir); err != nil {
			return nil, err
		}
		log.Debug("manifest origins updated", zap.String("backend", res.BackendURL), zap.String("bucket", res.BucketURL))
	}

	if err := o.step(log, StepUpload, func() error {
		return upload(ctx, p.Storage, staged.Upload, log)
	}); err != nil {
		return nil, err
	}

	if err := o.step(log, StepCDN, func() error {
		if err := p.CDN.Init(ctx); err != nil {
			return err
		}
		out, err := p.CDN.Deploy(ctx, platform.CDNInput{Origins: origins})
		if err != nil {
			return err
		}
		res.CDNID = out.ID
		res.CDNURL = out.URL
		return nil
	}); err != nil {
		return nil, err
	}

	log.Info("deployment finished",
		zap.String("url", res.CDNURL),
		zap.Duration("duration", time.Since(start)),
	)
	return res, nil
}

func (o *Orchestrator) step(log *zap.Logger, name string, fn func() error) error {
	start := time.Now()
	log.Debug("step started", zap.String("step", name))
	if err := fn(); err != nil {
		log.Error("step failed", zap.String("step", name), zap.Duration("duration", time.Since(start)), zap.Error(err))
		return err
	}
	log.Info("step finished", zap.String("step", name), zap.Duration("duration", time.Since(start)))
	return nil
}

// upload sends the groups concurrently. Their key prefixes are disjoint.
// Progress bars are turned off when more than one group has files.
func upload(ctx context.Context, s platform.Storage, groups []stager.UploadGroup, log *zap.Logger) error {
	present := 0
	for _, group := range groups {
		if xos.IsDir(group.Dir) {
			present++
		}
	}
	if ps, ok := s.(platform.ProgressSetter); ok && present > 1 {
		ps.SetProgress(nil)
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, group := range groups {
		g.Go(func() error {
			err := s.Upload(ctx, platform.UploadInput{Dir: group.Dir, KeyPrefix: group.KeyPrefix})
			if err != nil {
				return err
			}
			log.Info("group uploaded", zap.String("group", group.Name), zap.String("prefix", group.KeyPrefix))
			return nil
		})
	}
	return g.Wait()
}
