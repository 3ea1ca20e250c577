package notifier

import (
	"fmt"
	"html"
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"BasketRisk/internal/model"
	"BasketRisk/internal/recorder"
)

// fixed renders v with a fixed number of decimals and no float noise.
func fixed(v float64, places int32) string {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return nonFinite(v)
	}
	return decimal.NewFromFloat(v).StringFixed(places)
}

// percent renders a fraction as a signed percentage.
func percent(v float64) string {
	if math.IsInf(v, 0) || math.IsNaN(v) {
		return nonFinite(v)
	}
	d := decimal.NewFromFloat(v).Shift(2).Round(2)
	if d.IsPositive() {
		return "+" + d.StringFixed(2) + "%"
	}
	return d.StringFixed(2) + "%"
}

func nonFinite(v float64) string {
	switch {
	case math.IsInf(v, 1):
		return "+inf"
	case math.IsInf(v, -1):
		return "-inf"
	}
	return "nan"
}

func optionLabel(opt model.OptionSpec) string {
	if opt.IsBarrier() {
		return fmt.Sprintf("knock-out basket call K=%s B=%s", fixed(opt.Strike, 2), fixed(*opt.Barrier, 2))
	}
	return fmt.Sprintf("basket call K=%s", fixed(opt.Strike, 2))
}

// FormatRiskReport renders a full report as a Telegram HTML message.
func FormatRiskReport(rep *model.RiskReport) string {
	var b strings.Builder

	fmt.Fprintf(&b, "📊 <b>BasketRisk report</b> | %s\n", rep.StartedAt.Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "Run: %s\n\n", rep.RunID)

	b.WriteString("<b>Calibration</b>\n<pre>")
	fmt.Fprintf(&b, "%-10s %10s %9s %8s\n", "asset", "spot", "drift", "vol")
	for i, spot := range rep.Market.Spot {
		name := fmt.Sprintf("#%d", i)
		if i < len(rep.Symbols) {
			name = rep.Symbols[i]
		}
		fmt.Fprintf(&b, "%-10s %10s %9s %8s\n", html.EscapeString(name), fixed(spot, 2),
			percent(rep.Market.Drift[i]), percent(rep.Market.Vol[i]))
	}
	if len(rep.Market.Corr) > 1 {
		fmt.Fprintf(&b, "corr(0,1) = %s\n", fixed(rep.Market.Corr[0][1], 3))
	}
	b.WriteString("</pre>\n")

	fmt.Fprintf(&b, "<b>Option</b>: %s\n", optionLabel(rep.Option))
	fmt.Fprintf(&b, "Vanilla: %s ± %s\n", fixed(rep.Vanilla.Price, 4), fixed(rep.Vanilla.StdErr, 4))
	if rep.Option.IsBarrier() {
		ko := 0.0
		if rep.Barrier.Trials > 0 {
			ko = float64(rep.Barrier.KnockedOut) / float64(rep.Barrier.Trials)
		}
		fmt.Fprintf(&b, "Barrier: %s ± %s (knocked out %s)\n",
			fixed(rep.Barrier.Price, 4), fixed(rep.Barrier.StdErr, 4), percent(ko))
	}
	fmt.Fprintf(&b, "Trials: %d | Seed: %d\n\n", rep.Vanilla.Trials, rep.Vanilla.Seed)

	b.WriteString(FormatGreeks(rep.Greeks))
	if len(rep.Scenarios) > 0 {
		b.WriteString("\n")
		b.WriteString(FormatScenarios(rep.Scenarios))
	}
	fmt.Fprintf(&b, "\n⏱ %s", rep.Elapsed.Round(time.Millisecond))
	return b.String()
}

// FormatGreeks renders the sensitivities with respect to asset 0.
func FormatGreeks(g model.Greeks) string {
	var b strings.Builder
	fmt.Fprintf(&b, "<b>Greeks</b> (asset 0, ε=%s)\n", decimal.NewFromFloat(g.Epsilon).String())
	fmt.Fprintf(&b, "Price: %s\n", fixed(g.Base, 4))
	fmt.Fprintf(&b, "Delta: %s\n", fixed(g.Delta, 4))
	fmt.Fprintf(&b, "Gamma: %s\n", fixed(g.Gamma, 4))
	fmt.Fprintf(&b, "Vega:  %s\n", fixed(g.Vega, 4))
	return b.String()
}

// FormatScenarios renders the sweep as a fixed-width table.
func FormatScenarios(results []model.ScenarioResult) string {
	width := len("scenario")
	for _, r := range results {
		width = max(width, len(r.Name))
	}
	var b strings.Builder
	b.WriteString("<b>Scenarios</b>\n<pre>")
	fmt.Fprintf(&b, "%-*s %10s\n", width, "scenario", "price")
	for _, r := range results {
		price := fixed(r.Price, 4)
		if r.Err != nil {
			price = "error"
		}
		fmt.Fprintf(&b, "%-*s %10s\n", width, html.EscapeString(r.Name), price)
	}
	b.WriteString("</pre>\n")
	for _, r := range results {
		if r.Err != nil {
			fmt.Fprintf(&b, "⚠️ %s: %s\n", html.EscapeString(r.Name), html.EscapeString(r.Err.Error()))
		}
	}
	return b.String()
}

// FormatHistory renders the most recent stored prices.
func FormatHistory(rows []recorder.PricingRow) string {
	if len(rows) == 0 {
		return "No stored runs yet."
	}
	var b strings.Builder
	b.WriteString("<b>Recent prices</b>\n<pre>")
	for _, r := range rows {
		fmt.Fprintf(&b, "%s %-7s %10s ± %s\n", r.Timestamp.Format("01-02 15:04"), r.Kind,
			fixed(r.Price, 4), fixed(r.StdErr, 4))
	}
	b.WriteString("</pre>")
	return b.String()
}

// FormatHelp lists the bot commands.
func FormatHelp() string {
	return "Commands:\n" +
		"• /report - run the full risk report\n" +
		"• /greeks - Greeks of the configured option\n" +
		"• /scenarios - scenario sweep\n" +
		"• /history - recent stored prices\n" +
		"• /help - this message"
}
