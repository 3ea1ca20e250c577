package observability

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"debug":   zerolog.DebugLevel,
		" WARN ":  zerolog.WarnLevel,
		"warning": zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"":        zerolog.InfoLevel,
		"chatty":  zerolog.InfoLevel,
	}
	for in, want := range tests {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestNewLoggerTo(t *testing.T) {
	var buf bytes.Buffer
	log := NewLoggerTo(&buf, "mc", zerolog.InfoLevel)
	log.Debug().Msg("hidden")
	log.Info().Int("trials", 5).Msg("priced")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d: %q", len(lines), buf.String())
	}
	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatal(err)
	}
	if entry["component"] != "mc" || entry["message"] != "priced" || entry["trials"] != float64(5) {
		t.Errorf("unexpected entry %v", entry)
	}
}

func TestObservePricing(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.ObservePricing("barrier", 10*time.Millisecond, 1000, 250, nil)
	m.ObservePricing("barrier", time.Millisecond, 0, 0, errors.New("bad"))

	if got := testutil.ToFloat64(m.PricingCalls.WithLabelValues("barrier", "ok")); got != 1 {
		t.Errorf("ok calls: %v", got)
	}
	if got := testutil.ToFloat64(m.PricingCalls.WithLabelValues("barrier", "error")); got != 1 {
		t.Errorf("error calls: %v", got)
	}
	if got := testutil.ToFloat64(m.TrialsSimulated.WithLabelValues("barrier")); got != 1000 {
		t.Errorf("trials: %v", got)
	}
	if got := testutil.ToFloat64(m.KnockOutRatio); got != 0.25 {
		t.Errorf("knock-out ratio: %v", got)
	}

	var nilMetrics *Metrics
	nilMetrics.ObservePricing("vanilla", 0, 1, 0, nil)
}

func TestHealthMux(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	m.ObservePricing("vanilla", time.Millisecond, 10, 0, nil)
	h := NewHealthChecker()
	srv := httptest.NewServer(NewMux(h, reg))
	defer srv.Close()

	get := func(path string) (int, string) {
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()
		var b bytes.Buffer
		_, _ = b.ReadFrom(resp.Body)
		return resp.StatusCode, b.String()
	}

	if code, _ := get("/healthz"); code != http.StatusOK {
		t.Errorf("/healthz: %d", code)
	}
	if code, _ := get("/readyz"); code != http.StatusServiceUnavailable {
		t.Errorf("/readyz before ready: %d", code)
	}
	h.SetReady(true)
	if code, _ := get("/readyz"); code != http.StatusOK {
		t.Errorf("/readyz after ready: %d", code)
	}
	code, body := get("/metrics")
	if code != http.StatusOK || !strings.Contains(body, "basketrisk_pricing_calls_total") {
		t.Errorf("/metrics: %d %s", code, body)
	}
}
