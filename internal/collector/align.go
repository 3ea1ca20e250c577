package collector

import (
	"context"
	"fmt"
	"sort"
)

// closesFromBars fetches every symbol and keeps only the dates all of them traded.
func closesFromBars(ctx context.Context, fetch barSource, symbols []string, days int) ([][]float64, error) {
	byDate := make(map[string][]float64)
	counts := make(map[string]int)
	for col, sym := range symbols {
		bars, err := fetch(ctx, sym, days)
		if err != nil {
			return nil, fmt.Errorf("fetch %s: %w", sym, err)
		}
		for _, b := range bars {
			key := b.Time.UTC().Format("2006-01-02")
			row, ok := byDate[key]
			if !ok {
				row = make([]float64, len(symbols))
				byDate[key] = row
			}
			if row[col] == 0 {
				counts[key]++
			}
			row[col] = b.Close
		}
	}
	return alignRows(byDate, counts, len(symbols), days), nil
}

func alignRows(byDate map[string][]float64, counts map[string]int, width, days int) [][]float64 {
	keys := make([]string, 0, len(byDate))
	for k := range byDate {
		if counts[k] == width {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	if len(keys) > days {
		keys = keys[len(keys)-days:]
	}
	rows := make([][]float64, len(keys))
	for i, k := range keys {
		rows[i] = byDate[k]
	}
	return rows
}
