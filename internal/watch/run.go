package watch

import (
	"context"

	"go.uber.org/zap"

	"github.com/dosanma1/nextdeploy/internal/logging"
)

// Func handles one batch of changes.
type Func func(ctx context.Context, batch []Event) error

// Run starts w and calls fn for every batch until ctx is done. A failing fn
// is logged and watching continues.
func Run(ctx context.Context, w *Watcher, fn Func, log *zap.Logger) error {
	log = logging.OrNop(log)
	if err := w.Start(ctx); err != nil {
		return err
	}
	defer w.Stop()

	log.Info("watching for changes", zap.Strings("dirs", w.cfg.Dirs))
	for {
		select {
		case <-ctx.Done():
			return nil
		case batch := <-w.Batches():
			log.Info("change detected", zap.Int("files", len(batch)), zap.String("first", batch[0].Path))
			if err := fn(ctx, batch); err != nil {
				log.Error("rebuild failed", zap.Error(err))
			}
		case err := <-w.Errors():
			log.Warn("watch error", zap.Error(err))
		}
	}
}
