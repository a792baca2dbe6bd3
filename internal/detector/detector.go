// Package detector evaluates a symbol's most recent snapshot window
// for abnormal upward price and volume momentum. The detector holds no
// state between evaluations: every call fetches a fresh window, so a
// restart loses nothing.
package detector

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"pump-sentinel/internal/domain"
	"pump-sentinel/internal/observability"
	"pump-sentinel/internal/storage"
)

// minWindowSize is the lower bound on the configured window. A symbol
// with fewer stored snapshots than the window produces no signal
// rather than an error.
const minWindowSize = 5

// Config holds the detection thresholds. All constants are exposed
// here rather than hard-coded so operators can tune without rebuilds.
type Config struct {
	// Window is the number of most recent snapshots evaluated per call.
	Window int

	// MinConsecutiveUp is the minimum count of adjacent upward price
	// steps in the window for a pump verdict.
	MinConsecutiveUp int

	// PriceThresholdPct and VolumeThresholdPct bound the endpoint-to-
	// endpoint change across the window, oldest as baseline.
	PriceThresholdPct  float64
	VolumeThresholdPct float64

	// PriceDeltaPct is the margin (in percent) by which the newest
	// price must exceed the window's price moving average.
	PriceDeltaPct float64

	// VolumeSpikePct is the margin (in percent) by which the newest
	// volume must exceed the window's volume moving average.
	VolumeSpikePct float64

	// Soft-signal thresholds. A window clearing these (but not the
	// pump verdict) is logged as a PriceEvent for later tuning.
	SoftMinConsecutiveUp int
	SoftPricePct         float64
	SoftVolumePct        float64
}

// DefaultConfig returns the tuning used in production.
func DefaultConfig() Config {
	return Config{
		Window:               10,
		MinConsecutiveUp:     3,
		PriceThresholdPct:    1.0,
		VolumeThresholdPct:   30.0,
		PriceDeltaPct:        1.0,
		VolumeSpikePct:       5.0,
		SoftMinConsecutiveUp: 2,
		SoftPricePct:         1.0,
		SoftVolumePct:        5.0,
	}
}

// Detector reads windows from the snapshot store and is the sole
// producer of pump and price events.
type Detector struct {
	cfg       Config
	snapshots storage.SnapshotStore
	pumps     storage.PumpEventStore
	prices    storage.PriceEventStore
	log       zerolog.Logger
}

// New creates a Detector. A window below the floor is raised to it.
func New(cfg Config, snapshots storage.SnapshotStore, pumps storage.PumpEventStore, prices storage.PriceEventStore, log zerolog.Logger) *Detector {
	if cfg.Window < minWindowSize {
		cfg.Window = minWindowSize
	}
	return &Detector{
		cfg:       cfg,
		snapshots: snapshots,
		pumps:     pumps,
		prices:    prices,
		log:       log.With().Str("component", "detector").Logger(),
	}
}

// verdict is the outcome of evaluating one window.
type verdict struct {
	record     *domain.PriceEvent
	softSignal bool
	pump       bool
}

// Evaluate fetches the symbol's latest window and applies the
// thresholds. On a pump verdict it persists a PumpEvent and returns it
// for notification; a soft signal persists a PriceEvent regardless of
// the final verdict. A symbol with less history than the configured
// window returns (nil, nil): partial windows skew the moving averages,
// so evaluation waits for a full one.
func (d *Detector) Evaluate(ctx context.Context, symbol string, now time.Time) (*domain.PumpEvent, error) {
	window, err := d.snapshots.RecentWindow(ctx, symbol, d.cfg.Window)
	if err != nil {
		return nil, fmt.Errorf("fetch window for %s: %w", symbol, err)
	}
	if len(window) < d.cfg.Window {
		return nil, nil
	}

	v := evaluateWindow(d.cfg, window, now)

	if v.softSignal {
		if err := d.prices.Insert(ctx, v.record); err != nil {
			return nil, fmt.Errorf("log price event for %s: %w", symbol, err)
		}
		observability.RecordSoftSignal()
		d.log.Debug().
			Str("symbol", symbol).
			Float64("price_change_pct", v.record.PriceChangePct).
			Float64("volume_change_pct", v.record.VolumeChangePct).
			Int("consecutive_up", v.record.ConsecutiveUp).
			Msg("soft signal logged")
	}

	if !v.pump {
		return nil, nil
	}

	event := &domain.PumpEvent{
		Symbol:          symbol,
		PriceBefore:     v.record.PriceBefore,
		PriceAfter:      v.record.PriceAfter,
		PriceChangePct:  v.record.PriceChangePct,
		VolumeChangePct: v.record.VolumeChangePct,
		ObservedAt:      now,
	}
	if err := d.pumps.Insert(ctx, event); err != nil {
		return nil, fmt.Errorf("log pump event for %s: %w", symbol, err)
	}

	d.log.Info().
		Str("symbol", symbol).
		Float64("price_change_pct", event.PriceChangePct).
		Float64("volume_change_pct", event.VolumeChangePct).
		Msg("pump detected")
	return event, nil
}

// evaluateWindow applies the thresholds to a newest-first window.
// Callers guarantee the window is full, at least minWindowSize wide.
func evaluateWindow(cfg Config, window []*domain.Snapshot, now time.Time) verdict {
	newest := window[0]
	oldest := window[len(window)-1]

	var priceSum, volumeSum float64
	for _, s := range window {
		priceSum += s.Price
		volumeSum += s.Volume
	}
	priceMA := priceSum / float64(len(window))
	volumeMA := volumeSum / float64(len(window))

	// Each step backward in time being a decrease means each forward
	// step was an increase; this measures momentum inside the window,
	// not just the endpoints.
	consecutiveUp := 0
	for i := 1; i < len(window); i++ {
		if window[i-1].Price > window[i].Price {
			consecutiveUp++
		}
	}

	priceChangePct := changePct(oldest.Price, newest.Price)
	volumeChangePct := changePct(oldest.Volume, newest.Volume)

	v := verdict{
		record: &domain.PriceEvent{
			Symbol:          newest.Symbol,
			PriceBefore:     oldest.Price,
			PriceAfter:      newest.Price,
			PriceChangePct:  priceChangePct,
			VolumeChangePct: volumeChangePct,
			PriceMA:         priceMA,
			VolumeMA:        volumeMA,
			ConsecutiveUp:   consecutiveUp,
			ObservedAt:      now,
		},
	}

	v.softSignal = consecutiveUp >= cfg.SoftMinConsecutiveUp &&
		(priceChangePct >= cfg.SoftPricePct || volumeChangePct >= cfg.SoftVolumePct)

	v.pump = consecutiveUp >= cfg.MinConsecutiveUp &&
		priceChangePct >= cfg.PriceThresholdPct &&
		volumeChangePct >= cfg.VolumeThresholdPct &&
		newest.Price > priceMA*(1+cfg.PriceDeltaPct/100) &&
		newest.Volume > volumeMA*(1+cfg.VolumeSpikePct/100)

	return v
}

// changePct returns the percent change from before to after. A zero
// baseline yields 0% rather than a division fault.
func changePct(before, after float64) float64 {
	if before == 0 {
		return 0
	}
	return (after - before) / before * 100
}
