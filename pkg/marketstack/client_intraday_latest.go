package marketstack

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// IntradayQuote is a single record of the `/intraday/latest` endpoint.
//
// Numeric fields are pointers: MarketStack reports `null` for fields it
// has no data for (e.g. `last` outside trading hours on free tiers).
type IntradayQuote struct {
	Symbol   string   `json:"symbol"`
	Exchange string   `json:"exchange"`
	Open     *float64 `json:"open"`
	High     *float64 `json:"high"`
	Low      *float64 `json:"low"`
	Last     *float64 `json:"last"`
	Close    *float64 `json:"close"`
	Volume   *float64 `json:"volume"`
	Date     string   `json:"date"`
}

// Pagination mirrors the envelope MarketStack wraps every list response
// in.
type Pagination struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
	Count  int `json:"count"`
	Total  int `json:"total"`
}

// IntradayLatestResponse is the decoded body of `/intraday/latest`.
type IntradayLatestResponse struct {
	Pagination Pagination      `json:"pagination"`
	Data       []IntradayQuote `json:"data"`
}

// IntradayLatestParams narrows an `/intraday/latest` query.
type IntradayLatestParams struct {
	// Symbols to report on, comma-joined on the wire.
	Symbols []string
	// Exchange MIC to restrict the query to, e.g. XNAS.
	Exchange string
	// Interval of the intraday series, e.g. "15min".
	Interval string
	// Limit caps the number of records returned.
	Limit int
}

// IntradayLatest retrieves the most recent intraday record for each
// requested symbol.
func (c *Client) IntradayLatest(ctx context.Context, params IntradayLatestParams) (*IntradayLatestResponse, error) {
	query := url.Values{}
	query.Set("access_key", c.accessKey)
	query.Set("symbols", strings.Join(params.Symbols, ","))
	if params.Exchange != "" {
		query.Set("exchange", params.Exchange)
	}
	if params.Interval != "" {
		query.Set("interval", params.Interval)
	}
	if params.Limit > 0 {
		query.Set("limit", strconv.Itoa(params.Limit))
	}

	endpoint := fmt.Sprintf("%s/intraday/latest?%s", c.baseURL, query.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do: %w", err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", res.StatusCode)
	}

	response := &IntradayLatestResponse{}
	if err := json.NewDecoder(res.Body).Decode(response); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return response, nil
}
