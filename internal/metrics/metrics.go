// Package metrics метрики Prometheus планировщика уведомлений.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/magabrotheeeer/trial-tracker/internal/models"
)

// Результаты доставки для метки result.
const (
	ResultDelivered = "delivered"
	ResultSkipped   = "skipped"
	ResultFailed    = "failed"
)

// Metrics набор метрик планировщика. Нулевой указатель допустим и ничего не пишет.
type Metrics struct {
	passes       prometheus.Counter
	passDuration prometheus.Histogram
	suppressed   prometheus.Counter
	deliveries   *prometheus.CounterVec
}

// New создает и регистрирует метрики в reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		passes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "trial_tracker",
			Subsystem: "scheduler",
			Name:      "passes_total",
			Help:      "Number of completed notification passes.",
		}),
		passDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "trial_tracker",
			Subsystem: "scheduler",
			Name:      "pass_duration_seconds",
			Help:      "Duration of notification passes.",
			Buckets:   prometheus.DefBuckets,
		}),
		suppressed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "trial_tracker",
			Subsystem: "scheduler",
			Name:      "suppressed_total",
			Help:      "Alert-worthy trials skipped because they were already alerted today.",
		}),
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "trial_tracker",
			Subsystem: "scheduler",
			Name:      "deliveries_total",
			Help:      "Delivery attempts per channel and result.",
		}, []string{"channel", "result"}),
	}
	reg.MustRegister(m.passes, m.passDuration, m.suppressed, m.deliveries)
	return m
}

// ObservePass учитывает завершенный проход.
func (m *Metrics) ObservePass(d time.Duration, suppressed int) {
	if m == nil {
		return
	}
	m.passes.Inc()
	m.passDuration.Observe(d.Seconds())
	m.suppressed.Add(float64(suppressed))
}

// ObserveDelivery учитывает результат доставки.
func (m *Metrics) ObserveDelivery(res models.DeliveryResult) {
	if m == nil {
		return
	}
	result := ResultSkipped
	switch {
	case res.Err != nil:
		result = ResultFailed
	case res.Delivered:
		result = ResultDelivered
	}
	m.deliveries.WithLabelValues(res.Channel, result).Inc()
}
