package collector

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"BasketRisk/internal/model"
)

// VsTraderFetcher reads daily bars from a vstrader-compatible REST endpoint.
type VsTraderFetcher struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

// NewVsTraderFetcher creates a new fetcher with optional proxy support.
func NewVsTraderFetcher(baseURL, apiKey, proxyURL string) *VsTraderFetcher {
	return &VsTraderFetcher{BaseURL: baseURL, APIKey: apiKey, Client: newHTTPClient(proxyURL)}
}

func (f *VsTraderFetcher) Name() string { return "vstrader" }

type vsBar struct {
	Timestamp int64   `json:"timestamp"`
	Open      float64 `json:"open"`
	High      float64 `json:"high"`
	Low       float64 `json:"low"`
	Close     float64 `json:"close"`
	Volume    float64 `json:"volume"`
}

func (b vsBar) ohlcv() model.OHLCV {
	return model.OHLCV{
		Time: time.Unix(b.Timestamp, 0), Open: b.Open, High: b.High,
		Low: b.Low, Close: b.Close, Volume: b.Volume,
	}
}

// FetchCloses fetches each symbol and aligns the series on common dates.
func (f *VsTraderFetcher) FetchCloses(ctx context.Context, symbols []string, days int) ([][]float64, error) {
	return closesFromBars(ctx, f.FetchDailyBars, symbols, days)
}

// FetchDailyBars returns up to days daily bars, oldest first.
func (f *VsTraderFetcher) FetchDailyBars(ctx context.Context, symbol string, days int) ([]model.OHLCV, error) {
	q := url.Values{"symbol": {symbol}, "limit": {fmt.Sprint(days)}}
	endpoint := f.BaseURL + "/api/v1/bars/daily?" + q.Encode()

	header := http.Header{}
	if f.APIKey != "" {
		header.Set("Authorization", "Bearer "+f.APIKey)
	}
	var raw []vsBar
	if err := getJSON(ctx, f.Client, endpoint, header, &raw); err != nil {
		return nil, fmt.Errorf("vstrader %s: %w", symbol, err)
	}
	bars := make([]model.OHLCV, len(raw))
	for i, b := range raw {
		bars[i] = b.ohlcv()
	}
	return lastBars(bars, days), nil
}
