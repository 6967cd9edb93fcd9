package model

import "context"

// ── Collaborator Port Interfaces ──
// These interfaces decouple the core (rule engine, selector, updater) from
// the concrete external collaborators (Redis record store, Angel One market
// data), so tests substitute in-memory fakes.

// RecordStore is the trade-leg record store.
type RecordStore interface {
	// FetchAll returns every trade-leg record in the store, unordered
	// beyond whatever order the store happens to scan in. There is no
	// pagination: one call returns the full snapshot.
	FetchAll(ctx context.Context) ([]TradeLegRecord, error)

	// UpdateSL rewrites the sl field of the record identified by key.
	UpdateSL(ctx context.Context, key string, sl float64) error

	// Close releases underlying resources.
	Close() error
}

// MarketData supplies the latest traded/closing price for an index.
// Implementations may legally be unavailable (market closed, network);
// callers must degrade, not crash.
type MarketData interface {
	// LatestClose returns the most recent price for the given index ticker
	// (e.g. "NIFTY", "BANKNIFTY").
	LatestClose(ctx context.Context, ticker string) (float64, error)
}
