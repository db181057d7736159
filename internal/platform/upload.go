package platform

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency bounds parallel object uploads.
const DefaultConcurrency = 8

// PutFunc uploads a single object.
type PutFunc func(ctx context.Context, obj Object) error

// UploadOptions tune UploadObjects.
type UploadOptions struct {
	Concurrency int
	// Progress receives a byte-count progress bar. Nil disables it.
	Progress io.Writer
	// Description labels the progress bar.
	Description string
}

// UploadObjects runs put for every object with bounded concurrency. The first
// failure cancels the remaining uploads.
func UploadObjects(ctx context.Context, objs []Object, opts UploadOptions, put PutFunc) error {
	if len(objs) == 0 {
		return nil
	}
	limit := opts.Concurrency
	if limit <= 0 {
		limit = DefaultConcurrency
	}

	bar := newProgress(objs, opts)

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for _, obj := range objs {
		g.Go(func() error {
			if err := put(ctx, obj); err != nil {
				return fmt.Errorf("upload %s: %w", obj.Key, err)
			}
			if bar != nil {
				_ = bar.Add64(obj.Size)
			}
			return nil
		})
	}
	err := g.Wait()
	if bar != nil {
		_ = bar.Finish()
	}
	return err
}

func newProgress(objs []Object, opts UploadOptions) *progressbar.ProgressBar {
	if opts.Progress == nil {
		return nil
	}
	var total int64
	for _, o := range objs {
		total += o.Size
	}
	return progressbar.NewOptions64(total,
		progressbar.OptionSetDescription(opts.Description),
		progressbar.OptionSetWriter(opts.Progress),
		progressbar.OptionShowBytes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionShowCount(),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(opts.Progress, "\n")
		}),
	)
}

// Open opens an object's local file.
func (o Object) Open() (*os.File, error) {
	return os.Open(o.Path)
}
