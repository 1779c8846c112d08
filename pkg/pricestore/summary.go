package pricestore

import "github.com/beorn7/perks/quantile"

// defaultObjectives is the set of quantiles (quantile -> allowed error)
// computed for a data stream unless overridden with `WithObjectives`.
var defaultObjectives = map[float64]float64{
	0.50: 0.01,
	0.90: 0.01,
	0.95: 0.01,
	0.99: 0.001,
}

// Summary accumulates a stream of observations and answers with count,
// sum and approximate quantiles, ready to be turned into a prometheus
// const summary.
//
// Not safe for concurrent use - the store serializes access to it.
type Summary struct {
	count      uint64
	sum        float64
	objectives map[float64]float64

	stream *quantile.Stream
}

// SummaryOption mutates a Summary at construction time.
type SummaryOption func(s *Summary)

// WithObjectives overrides the default quantile objectives.
func WithObjectives(v map[float64]float64) SummaryOption {
	return func(s *Summary) {
		s.objectives = v
	}
}

// NewSummary constructs an empty summary.
func NewSummary(opts ...SummaryOption) *Summary {
	s := &Summary{
		objectives: defaultObjectives,
	}

	for _, opt := range opts {
		opt(s)
	}

	s.stream = quantile.NewTargeted(s.objectives)

	return s
}

// Insert adds one observation to the stream.
func (s *Summary) Insert(v float64) {
	s.stream.Insert(v)
	s.sum += v
	s.count++
}

// Count returns the number of observations inserted so far.
func (s *Summary) Count() uint64 {
	return s.count
}

// Sum returns the total of all observations inserted so far.
func (s *Summary) Sum() float64 {
	return s.sum
}

// Quantiles queries the stream for every configured quantile.
func (s *Summary) Quantiles() map[float64]float64 {
	quantiles := make(map[float64]float64, len(s.objectives))
	for phi := range s.objectives {
		quantiles[phi] = s.stream.Query(phi)
	}

	return quantiles
}
