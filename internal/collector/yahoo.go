package collector

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"BasketRisk/internal/model"
)

// YahooFetcher reads daily closes from the public Yahoo Finance chart API.
type YahooFetcher struct {
	Client  *http.Client
	BaseURL string
	// Aliases maps basket symbols to Yahoo tickers.
	Aliases map[string]string
}

// NewYahooFetcher creates a new Yahoo Finance fetcher.
func NewYahooFetcher(proxyURL string) *YahooFetcher {
	return &YahooFetcher{
		Client:  newHTTPClient(proxyURL),
		BaseURL: "https://query1.finance.yahoo.com",
		Aliases: map[string]string{"SPX": "^GSPC", "NDX": "^NDX", "RUT": "^RUT"},
	}
}

func (f *YahooFetcher) Name() string { return "yahoo" }

type yahooChart struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// yahooRange picks the shortest chart range covering days trading days.
func yahooRange(days int) string {
	switch {
	case days <= 21:
		return "1mo"
	case days <= 63:
		return "3mo"
	case days <= 126:
		return "6mo"
	case days <= 252:
		return "1y"
	case days <= 504:
		return "2y"
	default:
		return "5y"
	}
}

// FetchCloses fetches each symbol and aligns the series on common dates.
func (f *YahooFetcher) FetchCloses(ctx context.Context, symbols []string, days int) ([][]float64, error) {
	return closesFromBars(ctx, f.FetchDailyBars, symbols, days)
}

// FetchDailyBars returns up to days daily bars, oldest first. Only Close is populated.
func (f *YahooFetcher) FetchDailyBars(ctx context.Context, symbol string, days int) ([]model.OHLCV, error) {
	ticker := symbol
	if alias, ok := f.Aliases[symbol]; ok {
		ticker = alias
	}
	endpoint := fmt.Sprintf("%s/v8/finance/chart/%s?interval=1d&range=%s",
		f.BaseURL, url.PathEscape(ticker), yahooRange(days))

	var chart yahooChart
	header := http.Header{"User-Agent": {"Mozilla/5.0"}}
	if err := getJSON(ctx, f.Client, endpoint, header, &chart); err != nil {
		return nil, fmt.Errorf("yahoo %s: %w", symbol, err)
	}
	if e := chart.Chart.Error; e != nil {
		return nil, fmt.Errorf("yahoo %s: %s", symbol, e.Description)
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("yahoo %s: no data returned", symbol)
	}

	res := chart.Chart.Result[0]
	closes := res.Indicators.Quote[0].Close
	bars := make([]model.OHLCV, 0, len(res.Timestamp))
	for i, ts := range res.Timestamp {
		// Null closes mark halted or holiday sessions.
		if i >= len(closes) || closes[i] == nil || *closes[i] <= 0 {
			continue
		}
		bars = append(bars, model.OHLCV{Time: time.Unix(ts, 0), Close: *closes[i]})
	}
	return lastBars(bars, days), nil
}
