// Package ingestion drives the tick loop: fetch a snapshot batch,
// append each symbol's observation, and evaluate the detector on the
// freshly extended window.
package ingestion

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"pump-sentinel/internal/detector"
	"pump-sentinel/internal/domain"
	"pump-sentinel/internal/notify"
	"pump-sentinel/internal/observability"
	"pump-sentinel/internal/storage"
)

// SnapshotSource returns the current quote for every tracked symbol.
type SnapshotSource interface {
	FetchAll(ctx context.Context) ([]domain.Quote, error)
}

// Runner orchestrates continuous snapshot ingestion and detection.
type Runner struct {
	source       SnapshotSource
	snapshots    storage.SnapshotStore
	det          *detector.Detector
	notifier     notify.Notifier
	tickInterval time.Duration
	workers      int
	metrics      *observability.Metrics
	logger       zerolog.Logger
	now          func() time.Time
}

// RunnerOptions contains configuration for creating a Runner.
type RunnerOptions struct {
	Source        SnapshotSource
	SnapshotStore storage.SnapshotStore
	Detector      *detector.Detector
	Notifier      notify.Notifier
	TickInterval  time.Duration // Default: 5s
	Workers       int           // Default: 4 concurrent symbols per tick
	Metrics       *observability.Metrics
	Logger        zerolog.Logger
}

// NewRunner creates a new ingestion runner.
func NewRunner(opts RunnerOptions) *Runner {
	tickInterval := opts.TickInterval
	if tickInterval == 0 {
		tickInterval = 5 * time.Second
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = 4
	}

	metrics := opts.Metrics
	if metrics == nil {
		metrics = observability.DefaultMetrics
	}

	return &Runner{
		source:       opts.Source,
		snapshots:    opts.SnapshotStore,
		det:          opts.Detector,
		notifier:     opts.Notifier,
		tickInterval: tickInterval,
		workers:      workers,
		metrics:      metrics,
		logger:       opts.Logger.With().Str("component", "ingestion").Logger(),
		now:          time.Now,
	}
}

// Run starts the tick loop. It blocks until the context is cancelled;
// a tick in flight finishes before Run returns, so acquired
// connections are released rather than abandoned.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.Info().Dur("tick_interval", r.tickInterval).Int("workers", r.workers).Msg("starting ingestion runner")

	ticker := time.NewTicker(r.tickInterval)
	defer ticker.Stop()

	r.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			r.logger.Info().Msg("ingestion runner stopped")
			return nil
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}

// tick runs one full fetch-append-detect cycle. A batch-level fetch
// failure degrades to an empty tick; the loop continues.
func (r *Runner) tick(ctx context.Context) {
	start := r.now()
	r.metrics.TicksTotal.Inc()

	batch, err := r.source.FetchAll(ctx)
	if err != nil {
		r.metrics.TickFailures.Inc()
		r.metrics.FeedFetchErrors.Inc()
		r.logger.Warn().Err(err).Msg("snapshot batch fetch failed, skipping tick")
		return
	}

	observedAt := r.now().Truncate(time.Second)

	var wg sync.WaitGroup
	sem := make(chan struct{}, r.workers)
	for _, quote := range batch {
		wg.Add(1)
		sem <- struct{}{}
		go func(q domain.Quote) {
			defer wg.Done()
			defer func() { <-sem }()
			r.processSymbol(ctx, q, observedAt)
		}(quote)
	}
	wg.Wait()

	r.metrics.TickDuration.Observe(r.now().Sub(start).Seconds())
}

// processSymbol appends one quote and evaluates the detector on the
// window that includes it. The append completes before the window is
// read, so within a symbol the ordering is sequential, not locked.
func (r *Runner) processSymbol(ctx context.Context, q domain.Quote, observedAt time.Time) {
	snap := &domain.Snapshot{
		Symbol:     q.Symbol,
		Price:      q.Price,
		Volume:     q.Volume,
		ObservedAt: observedAt,
	}
	if err := r.snapshots.Append(ctx, snap); err != nil {
		r.metrics.SymbolsSkipped.Inc()
		r.logger.Warn().Err(err).Str("symbol", q.Symbol).Msg("snapshot append failed, skipping symbol")
		return
	}
	r.metrics.SnapshotsStored.Inc()

	event, err := r.det.Evaluate(ctx, q.Symbol, observedAt)
	if err != nil {
		r.metrics.DetectionErrors.Inc()
		r.logger.Warn().Err(err).Str("symbol", q.Symbol).Msg("detector evaluation failed")
		return
	}
	if event == nil {
		return
	}

	r.metrics.PumpsDetected.WithLabelValues(event.Symbol).Inc()
	if r.notifier == nil {
		return
	}
	// Best effort: a failed alert is logged, never retried across
	// ticks and never fatal to the tick.
	if err := r.notifier.Notify(ctx, event); err != nil {
		r.metrics.NotifyErrors.Inc()
		r.logger.Warn().Err(err).Str("symbol", event.Symbol).Msg("alert delivery failed")
	}
}
