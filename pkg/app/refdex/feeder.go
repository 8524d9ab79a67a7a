package refdex

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// FeederConfig controls command generation rate
type FeederConfig struct {
	BatchSize int           // commands generated per tick
	Interval  time.Duration // how often to generate batches
}

func DefaultFeederConfig() FeederConfig {
	return FeederConfig{
		BatchSize: 10,
		Interval:  100 * time.Millisecond,
	}
}

// StartFeeder pushes generated batches into the app's queue from a
// background goroutine until ctx is done or the returned cancel is called.
// The returned channel closes once the goroutine has exited. gen must not
// be used elsewhere while the feeder runs.
func StartFeeder(ctx context.Context, app *App, gen *Generator, cfg FeederConfig, logger *zap.Logger) (context.CancelFunc, <-chan struct{}) {
	if logger == nil {
		logger = zap.NewNop()
	}
	feedCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(cfg.Interval)
		defer ticker.Stop()

		start := time.Now()
		total := 0
		logger.Info("feeder started", zap.Int("batch", cfg.BatchSize), zap.Duration("interval", cfg.Interval))

		for {
			select {
			case <-feedCtx.Done():
				logger.Info("feeder stopped",
					zap.Int("commands", total),
					zap.Duration("elapsed", time.Since(start).Round(time.Millisecond)),
				)
				return
			case <-ticker.C:
				for _, cmd := range gen.GenerateBatch(cfg.BatchSize) {
					app.PushCommand(cmd)
					total++
				}
			}
		}
	}()

	return cancel, done
}
