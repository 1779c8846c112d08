package poller_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/stretchr/testify/require"

	"dowexporter/pkg/dow"
	"dowexporter/pkg/marketstack"
	"dowexporter/pkg/poller"
	"dowexporter/pkg/pricestore"
)

// marketStackStub emulates the `/intraday/latest` endpoint: it answers
// with one record per requested symbol, taking prices from `prices`
// (a nil entry renders as a JSON null `last`), and answers 500 for any
// exchange listed in `failing`.
type marketStackStub struct {
	prices  map[string]*float64
	failing map[string]bool
}

func (s *marketStackStub) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		exchange := r.URL.Query().Get("exchange")
		if s.failing[exchange] {
			http.Error(w, "upstream exploded", http.StatusInternalServerError)
			return
		}

		data := []map[string]any{}
		for _, symbol := range strings.Split(r.URL.Query().Get("symbols"), ",") {
			record := map[string]any{
				"symbol":   symbol,
				"exchange": exchange,
			}
			if price, ok := s.prices[symbol]; ok && price != nil {
				record["last"] = *price
			} else {
				record["last"] = nil
			}

			data = append(data, record)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"data": data})
	}
}

func float64Ptr(v float64) *float64 {
	return &v
}

func setup(t *testing.T, components map[string]string, stub *marketStackStub) (*poller.Poller, *pricestore.Store) {
	t.Helper()

	server := httptest.NewServer(stub.handler())
	t.Cleanup(server.Close)

	client, err := marketstack.NewClient("test-key",
		marketstack.WithBaseURL(server.URL),
		marketstack.WithHTTPClient(server.Client()),
	)
	require.NoError(t, err)

	store := pricestore.New()

	p, err := poller.New(client, store, components, 15*time.Minute,
		poller.WithLogger(logr.Discard()),
	)
	require.NoError(t, err)

	return p, store
}

func TestCollectUpdatesEveryComponent(t *testing.T) {
	t.Parallel()

	// Arrange: a distinct price for each of the 30 components.
	symbols := make([]string, 0, len(dow.Components))
	for symbol := range dow.Components {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	stub := &marketStackStub{prices: map[string]*float64{}}
	for i, symbol := range symbols {
		stub.prices[symbol] = float64Ptr(100 + float64(i))
	}

	p, store := setup(t, dow.Components, stub)

	// Act: one collection cycle.
	p.Collect(context.Background())

	// Assert: every symbol carries the stubbed price.
	require.Len(t, store.Prices(), 30)
	for i, symbol := range symbols {
		price, ok := store.Price(symbol)
		require.Truef(t, ok, "symbol %q has no price", symbol)
		require.InDelta(t, 100+float64(i), price, 1e-9)
	}

	require.Empty(t, store.FetchErrors())

	_, collected := store.LastCollected()
	require.True(t, collected)
}

func TestCollectFailedExchangeDoesNotAbortOthers(t *testing.T) {
	t.Parallel()

	components := map[string]string{
		"AAPL": "XNAS",
		"MSFT": "XNAS",
		"V":    "XNYS",
	}
	stub := &marketStackStub{
		prices: map[string]*float64{
			"AAPL": float64Ptr(150.23),
			"MSFT": float64Ptr(370.1),
			"V":    float64Ptr(250),
		},
		failing: map[string]bool{"XNYS": true},
	}

	p, store := setup(t, components, stub)

	p.Collect(context.Background())

	// The healthy exchange still updates.
	price, ok := store.Price("AAPL")
	require.True(t, ok)
	require.InDelta(t, 150.23, price, 1e-9)

	_, ok = store.Price("MSFT")
	require.True(t, ok)

	// The failed one only bumps its symbols' error counts.
	_, ok = store.Price("V")
	require.False(t, ok)
	require.Equal(t, map[string]uint64{"V": 1}, store.FetchErrors())
}

func TestCollectNullLastRetainsPreviousValue(t *testing.T) {
	t.Parallel()

	components := map[string]string{"AAPL": "XNAS"}
	stub := &marketStackStub{
		prices: map[string]*float64{"AAPL": float64Ptr(150.23)},
	}

	p, store := setup(t, components, stub)

	p.Collect(context.Background())

	price, ok := store.Price("AAPL")
	require.True(t, ok)
	require.InDelta(t, 150.23, price, 1e-9)

	// The provider now reports a null last price.
	stub.prices["AAPL"] = nil
	p.Collect(context.Background())

	// Retain-last-value policy: the previous price stays put.
	price, ok = store.Price("AAPL")
	require.True(t, ok)
	require.InDelta(t, 150.23, price, 1e-9)
	require.Equal(t, map[string]uint64{"AAPL": 1}, store.FetchErrors())
}

func TestCollectLatestValueWins(t *testing.T) {
	t.Parallel()

	components := map[string]string{"AAPL": "XNAS"}
	stub := &marketStackStub{
		prices: map[string]*float64{"AAPL": float64Ptr(150.23)},
	}

	p, store := setup(t, components, stub)

	p.Collect(context.Background())
	stub.prices["AAPL"] = float64Ptr(151.07)
	p.Collect(context.Background())

	price, ok := store.Price("AAPL")
	require.True(t, ok)
	require.InDelta(t, 151.07, price, 1e-9)
}

func TestRunCollectsImmediatelyAndStopsOnCancel(t *testing.T) {
	t.Parallel()

	components := map[string]string{"AAPL": "XNAS"}
	stub := &marketStackStub{
		prices: map[string]*float64{"AAPL": float64Ptr(150.23)},
	}

	server := httptest.NewServer(stub.handler())
	t.Cleanup(server.Close)

	client, err := marketstack.NewClient("test-key",
		marketstack.WithBaseURL(server.URL),
		marketstack.WithHTTPClient(server.Client()),
	)
	require.NoError(t, err)

	store := pricestore.New()

	// An interval much longer than the test: the only cycle observed
	// is the immediate one at startup.
	p, err := poller.New(client, store, components, time.Hour,
		poller.WithLogger(logr.Discard()),
	)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	err = p.Run(ctx)
	require.Error(t, err)
	require.True(t, errors.Is(err, context.DeadlineExceeded))

	_, ok := store.Price("AAPL")
	require.True(t, ok)
}

func TestNewRejectsBadArguments(t *testing.T) {
	t.Parallel()

	client, err := marketstack.NewClient("test-key")
	require.NoError(t, err)

	store := pricestore.New()

	_, err = poller.New(client, store, nil, time.Minute)
	require.Error(t, err)

	_, err = poller.New(client, store, map[string]string{"AAPL": "XNAS"}, 0)
	require.Error(t, err)
}
