package pricestore

import (
	"sync"
	"time"
)

// Store is the single piece of shared mutable state in this exporter:
// the last observed price per symbol, plus statistics about the
// collection cycles that produced them.
//
// The poller is the only writer; the prometheus collector takes
// consistent read snapshots at scrape time. A price, once set, is never
// cleared - a failed fetch leaves the previous value in place so that
// scrapes keep seeing stale-but-present data instead of a disappearing
// series.
type Store struct {
	mu sync.RWMutex

	prices      map[string]float64
	fetchErrors map[string]uint64
	durations   *Summary
	lastCollect time.Time
}

// New constructs an empty store.
func New() *Store {
	return &Store{
		prices:      map[string]float64{},
		fetchErrors: map[string]uint64{},
		durations:   NewSummary(),
	}
}

// SetPrice records the most recent price observed for a symbol,
// overwriting any previous value.
func (s *Store) SetPrice(symbol string, price float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.prices[symbol] = price
}

// Price returns the last recorded price for a symbol, reporting whether
// one has ever been set.
func (s *Store) Price(symbol string) (float64, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	price, ok := s.prices[symbol]
	return price, ok
}

// Prices returns a copy of all currently-set prices.
func (s *Store) Prices() map[string]float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	prices := make(map[string]float64, len(s.prices))
	for symbol, price := range s.prices {
		prices[symbol] = price
	}

	return prices
}

// RecordFetchError bumps the number of cycles that failed to produce a
// price for a symbol.
func (s *Store) RecordFetchError(symbol string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.fetchErrors[symbol]++
}

// FetchErrors returns a copy of the per-symbol fetch error counts.
func (s *Store) FetchErrors() map[string]uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[string]uint64, len(s.fetchErrors))
	for symbol, count := range s.fetchErrors {
		counts[symbol] = count
	}

	return counts
}

// ObserveRequestDuration feeds one provider request duration into the
// latency summary.
func (s *Store) ObserveRequestDuration(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.durations.Insert(d.Seconds())
}

// RequestDurations reports the latency summary accumulated since
// startup: observation count, total seconds and the configured
// quantiles.
func (s *Store) RequestDurations() (uint64, float64, map[float64]float64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.durations.Count(), s.durations.Sum(), s.durations.Quantiles()
}

// MarkCollected records the completion time of a collection cycle.
func (s *Store) MarkCollected(t time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.lastCollect = t
}

// LastCollected returns the completion time of the most recent cycle,
// reporting false before the first cycle finishes.
func (s *Store) LastCollected() (time.Time, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.lastCollect, !s.lastCollect.IsZero()
}
