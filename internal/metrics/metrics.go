package metrics

type Counter interface {
	Inc()
}

type Metrics struct {
	CyclesRun     Counter
	CyclesSkipped Counter
	SignalsFound  Counter
	TradesOpened  Counter
	TradesClosed  Counter
	RiskDenied    Counter
	AutoPauses    Counter
	AlertsFailed  Counter
}

type noopCounter struct{}

func (noopCounter) Inc() {}

func NewNoop() *Metrics {
	n := noopCounter{}
	return &Metrics{
		CyclesRun:     n,
		CyclesSkipped: n,
		SignalsFound:  n,
		TradesOpened:  n,
		TradesClosed:  n,
		RiskDenied:    n,
		AutoPauses:    n,
		AlertsFailed:  n,
	}
}
