package domain

import "time"

// PumpEvent records a confirmed pump verdict for a symbol.
// Corresponds to the pump_events table. Immutable, append-only.
type PumpEvent struct {
	Symbol          string
	PriceBefore     float64
	PriceAfter      float64
	PriceChangePct  float64
	VolumeChangePct float64
	ObservedAt      time.Time
}

// PriceEvent records a sub-threshold momentum pattern (soft signal),
// kept as an audit trail for threshold tuning. Corresponds to the
// price_events table. Append-only.
type PriceEvent struct {
	Symbol          string
	PriceBefore     float64
	PriceAfter      float64
	PriceChangePct  float64
	VolumeChangePct float64
	PriceMA         float64
	VolumeMA        float64
	ConsecutiveUp   int
	ObservedAt      time.Time
}
