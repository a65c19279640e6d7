package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestPrometheusCounters(t *testing.T) {
	prom := NewPrometheus()
	prom.Metrics.CyclesRun.Inc()
	prom.Metrics.CyclesRun.Inc()
	prom.Metrics.TradesOpened.Inc()
	prom.Metrics.RiskDenied.Inc()

	rec := httptest.NewRecorder()
	prom.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()

	for _, want := range []string{
		"strategy_lab_cycles_run_total 2",
		"strategy_lab_trades_opened_total 1",
		"strategy_lab_risk_denied_total 1",
		"strategy_lab_trades_closed_total 0",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics output missing %q:\n%s", want, body)
		}
	}
}

func TestNoopMetricsAreSafe(t *testing.T) {
	m := NewNoop()
	m.CyclesRun.Inc()
	m.CyclesSkipped.Inc()
	m.SignalsFound.Inc()
	m.TradesOpened.Inc()
	m.TradesClosed.Inc()
	m.RiskDenied.Inc()
	m.AutoPauses.Inc()
	m.AlertsFailed.Inc()
}
