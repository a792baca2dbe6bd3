package domain

import "time"

// Quote is a single feed observation for a symbol before it is stamped
// with an observation time. Price is the last traded price, Volume the
// 24h IDR-denominated volume.
type Quote struct {
	Symbol string
	Price  float64
	Volume float64
}

// Snapshot represents one observed (price, volume) pair for a symbol at
// a point in time. Corresponds to the snapshot_history table.
// Append-only; at most one snapshot per (symbol, observed_at).
type Snapshot struct {
	Symbol     string
	Price      float64
	Volume     float64
	ObservedAt time.Time
}

// DailyClose is the last observed price of a symbol on a calendar day.
type DailyClose struct {
	Day   time.Time
	Price float64
}
