package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const promNamespace = "strategy_lab"

type promCounter struct {
	counter prometheus.Counter
}

func (p promCounter) Inc() {
	p.counter.Inc()
}

type Prometheus struct {
	Metrics *Metrics

	registry *prometheus.Registry
}

func NewPrometheus() *Prometheus {
	registry := prometheus.NewRegistry()
	counter := func(name, help string) prometheus.Counter {
		c := prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: promNamespace,
			Name:      name,
			Help:      help,
		})
		registry.MustRegister(c)
		return c
	}

	m := &Metrics{
		CyclesRun:     promCounter{counter("cycles_run_total", "Total number of completed decision cycles.")},
		CyclesSkipped: promCounter{counter("cycles_skipped_total", "Total number of cycles skipped for missing data.")},
		SignalsFound:  promCounter{counter("signals_found_total", "Total number of strategy signals matched.")},
		TradesOpened:  promCounter{counter("trades_opened_total", "Total number of paper trades opened.")},
		TradesClosed:  promCounter{counter("trades_closed_total", "Total number of paper trades closed.")},
		RiskDenied:    promCounter{counter("risk_denied_total", "Total number of trades denied by risk checks.")},
		AutoPauses:    promCounter{counter("auto_pauses_total", "Total number of automatic trading pauses.")},
		AlertsFailed:  promCounter{counter("alerts_failed_total", "Total number of alert delivery failures.")},
	}

	return &Prometheus{Metrics: m, registry: registry}
}

func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{})
}
