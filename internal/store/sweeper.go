package store

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Sweeper periodically removes expired correlation records. Records are not
// deleted when they reach a terminal status; they linger until the TTL so
// that repeated polls after completion still observe the outcome.
type Sweeper struct {
	store    Store
	ttl      time.Duration
	interval time.Duration
	logger   *slog.Logger
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewSweeper creates a sweeper over the given store. ttl is the retention
// window for records; interval is how often the sweep runs.
func NewSweeper(s Store, ttl, interval time.Duration, logger *slog.Logger) *Sweeper {
	return &Sweeper{
		store:    s,
		ttl:      ttl,
		interval: interval,
		logger:   logger,
		stopChan: make(chan struct{}),
	}
}

// Start launches the sweep loop in a goroutine.
func (sw *Sweeper) Start(ctx context.Context) {
	sw.logger.Info("Starting correlation sweeper",
		slog.Duration("ttl", sw.ttl),
		slog.Duration("interval", sw.interval),
	)

	sw.wg.Add(1)
	go sw.run(ctx)
}

// Stop stops the sweep loop and waits for it to exit.
func (sw *Sweeper) Stop() {
	close(sw.stopChan)
	sw.wg.Wait()
	sw.logger.Info("Correlation sweeper stopped")
}

func (sw *Sweeper) run(ctx context.Context) {
	defer sw.wg.Done()

	ticker := time.NewTicker(sw.interval)
	defer ticker.Stop()

	for {
		select {
		case <-sw.stopChan:
			return

		case <-ctx.Done():
			return

		case <-ticker.C:
			removed, err := sw.store.Cleanup(ctx, sw.ttl)
			if err != nil {
				sw.logger.Error("Sweep failed",
					slog.String("error", err.Error()),
				)
				continue
			}
			if removed > 0 {
				sw.logger.Info("Swept expired correlation records",
					slog.Int("removed", removed),
				)
			}
		}
	}
}
