package history

import "github.com/prometheus/client_golang/prometheus"

// metrics instruments the engine. Nil receivers disable instrumentation so
// the engine carries no conditional branches at call sites.
type metrics struct {
	records prometheus.Counter
	undos   prometheus.Counter
	redos   prometheus.Counter
	travels prometheus.Counter
	dagSize prometheus.Gauge
}

// WithMetrics registers engine metrics on reg. A nil registerer disables
// instrumentation.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(e *Engine) {
		if reg == nil {
			return
		}
		m := &metrics{
			records: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "lazyconf_history_records_total",
				Help: "Snapshots recorded into the history DAG",
			}),
			undos: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "lazyconf_history_undos_total",
				Help: "Undo operations that moved the head",
			}),
			redos: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "lazyconf_history_redos_total",
				Help: "Redo operations that moved the head",
			}),
			travels: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "lazyconf_history_time_travels_total",
				Help: "Explicit time-travel head moves",
			}),
			dagSize: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "lazyconf_history_snapshots",
				Help: "Snapshots currently held in the DAG",
			}),
		}
		reg.MustRegister(m.records, m.undos, m.redos, m.travels, m.dagSize)
		e.metrics = m
	}
}

func (m *metrics) recorded(size int) {
	if m == nil {
		return
	}
	m.records.Inc()
	m.dagSize.Set(float64(size))
}

func (m *metrics) undone() {
	if m == nil {
		return
	}
	m.undos.Inc()
}

func (m *metrics) redone() {
	if m == nil {
		return
	}
	m.redos.Inc()
}

func (m *metrics) traveled() {
	if m == nil {
		return
	}
	m.travels.Inc()
}
