package poller

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"dowexporter/pkg/dow"
	"dowexporter/pkg/marketstack"
	"dowexporter/pkg/pricestore"
)

// Poller drives the collection cycles: at a fixed interval it asks
// MarketStack for the latest intraday price of every tracked symbol and
// writes the answers into the store.
//
// Cycles are serialized - a cycle that takes longer than the interval
// delays the next one instead of running concurrently with it.
type Poller struct {
	client     *marketstack.Client
	store      *pricestore.Store
	components map[string]string
	interval   time.Duration

	log logr.Logger
}

// Option is a type used by functional arguments to override the
// poller's default behavior.
type Option func(p *Poller)

// WithLogger overrides the default development logger.
func WithLogger(log logr.Logger) Option {
	return func(p *Poller) {
		p.log = log
	}
}

// New constructs a poller over a fixed symbol -> exchange set.
func New(
	client *marketstack.Client,
	store *pricestore.Store,
	components map[string]string,
	interval time.Duration,
	opts ...Option,
) (*Poller, error) {
	if len(components) == 0 {
		return nil, fmt.Errorf("components must not be empty")
	}

	if interval <= 0 {
		return nil, fmt.Errorf("interval must be positive, got %s", interval)
	}

	defaultLogger, err := zap.NewDevelopment()
	if err != nil {
		return nil, fmt.Errorf("zap new development: %w", err)
	}

	p := &Poller{
		client:     client,
		store:      store,
		components: components,
		interval:   interval,
		log:        zapr.NewLogger(defaultLogger.Named("poller")),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p, nil
}

// Run collects once right away and then once per interval until the
// context is cancelled.
//
// Fetch failures are logged and never terminate the loop - the next
// tick is the retry mechanism.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.Collect(ctx)

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("ctx err: %w", ctx.Err())
		case <-ticker.C:
			p.Collect(ctx)
		}
	}
}

// Collect performs a single collection cycle: one batched request per
// exchange, issued concurrently, merged into the store.
//
// A failure for one exchange never aborts the requests for the others,
// and a symbol that yields no usable price keeps whatever value the
// store already had for it.
func (p *Poller) Collect(ctx context.Context) {
	var (
		mu     sync.Mutex
		prices = map[string]float64{}
	)

	g := &errgroup.Group{}

	for exchange, symbols := range dow.GroupByExchange(p.components) {
		exchange, symbols := exchange, symbols

		g.Go(func() error {
			start := time.Now()
			res, err := p.client.IntradayLatest(ctx,
				marketstack.IntradayLatestParams{
					Symbols:  symbols,
					Exchange: exchange,
					Interval: p.intervalParam(),
					Limit:    len(symbols),
				},
			)
			p.store.ObserveRequestDuration(time.Since(start))

			if err != nil {
				return fmt.Errorf("intraday latest "+
					"exchange '%s': %w", exchange, err)
			}

			mu.Lock()
			defer mu.Unlock()

			for _, quote := range res.Data {
				if quote.Last == nil {
					continue
				}

				prices[quote.Symbol] = *quote.Last
			}

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		p.log.Error(err, "wait")
	}

	for symbol := range p.components {
		price, ok := prices[symbol]
		if !ok {
			p.store.RecordFetchError(symbol)
			p.log.Error(nil, "no last price for symbol",
				"symbol", symbol)

			continue
		}

		p.store.SetPrice(symbol, price)
	}

	p.store.MarkCollected(time.Now())
}

// intervalParam is the series granularity understood by the intraday
// endpoint, derived from the collection interval, e.g. "15min".
func (p *Poller) intervalParam() string {
	minutes := int(p.interval.Minutes())
	if minutes < 1 {
		minutes = 1
	}

	return fmt.Sprintf("%dmin", minutes)
}
