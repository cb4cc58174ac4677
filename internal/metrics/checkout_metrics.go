package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CheckoutMetrics содержит метрики конвейера оформления заказов.
type CheckoutMetrics struct {
	// Счётчики операций
	ordersCreated    prometheus.Counter
	paymentsCaptured prometheus.Counter
	paymentsFailed   prometheus.Counter
	accessDenied     prometheus.Counter
	numbersAllocated prometheus.Counter

	// Гистограмма времени оформления
	checkoutDuration prometheus.Histogram

	// Счётчик событий outbox
	outboxEvents prometheus.Counter
}

// NewCheckoutMetrics создаёт новый экземпляр метрик оформления заказов.
func NewCheckoutMetrics() *CheckoutMetrics {
	return newCheckoutMetricsWithRegisterer(prometheus.DefaultRegisterer)
}

func newCheckoutMetricsWithRegisterer(registerer prometheus.Registerer) *CheckoutMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	return &CheckoutMetrics{
		ordersCreated: registerCounter(registerer, prometheus.CounterOpts{
			Name: "loco_orders_created_total",
			Help: "Total number of orders created",
		}),
		paymentsCaptured: registerCounter(registerer, prometheus.CounterOpts{
			Name: "loco_payments_captured_total",
			Help: "Total number of successful payment captures",
		}),
		paymentsFailed: registerCounter(registerer, prometheus.CounterOpts{
			Name: "loco_payments_failed_total",
			Help: "Total number of failed payment captures",
		}),
		accessDenied: registerCounter(registerer, prometheus.CounterOpts{
			Name: "loco_access_denied_total",
			Help: "Total number of denied ownership checks",
		}),
		numbersAllocated: registerCounter(registerer, prometheus.CounterOpts{
			Name: "loco_order_numbers_allocated_total",
			Help: "Total number of order numbers allocated",
		}),
		checkoutDuration: registerHistogram(registerer, prometheus.HistogramOpts{
			Name:    "loco_checkout_duration_seconds",
			Help:    "Duration of order checkout in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		outboxEvents: registerCounter(registerer, prometheus.CounterOpts{
			Name: "loco_outbox_events_total",
			Help: "Total number of outbox events enqueued",
		}),
	}
}

func registerCounter(registerer prometheus.Registerer, opts prometheus.CounterOpts) prometheus.Counter {
	collector := prometheus.NewCounter(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Counter)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register counter %q: %v", opts.Name, err))
	}
	return collector
}

func registerHistogram(registerer prometheus.Registerer, opts prometheus.HistogramOpts) prometheus.Histogram {
	collector := prometheus.NewHistogram(opts)
	if err := registerer.Register(collector); err != nil {
		if alreadyRegistered, ok := err.(prometheus.AlreadyRegisteredError); ok {
			existing, ok := alreadyRegistered.ExistingCollector.(prometheus.Histogram)
			if !ok {
				panic(fmt.Sprintf("collector %q already registered with unexpected type", opts.Name))
			}
			return existing
		}
		panic(fmt.Sprintf("register histogram %q: %v", opts.Name, err))
	}
	return collector
}

// RecordOrderCreated увеличивает счётчик созданных заказов.
func (m *CheckoutMetrics) RecordOrderCreated() {
	m.ordersCreated.Inc()
}

// RecordPaymentCaptured увеличивает счётчик успешных списаний.
func (m *CheckoutMetrics) RecordPaymentCaptured() {
	m.paymentsCaptured.Inc()
}

// RecordPaymentFailed увеличивает счётчик неудачных списаний.
func (m *CheckoutMetrics) RecordPaymentFailed() {
	m.paymentsFailed.Inc()
}

// RecordAccessDenied увеличивает счётчик отказов в доступе.
func (m *CheckoutMetrics) RecordAccessDenied() {
	m.accessDenied.Inc()
}

// RecordNumberAllocated увеличивает счётчик выданных номеров заказов.
func (m *CheckoutMetrics) RecordNumberAllocated() {
	m.numbersAllocated.Inc()
}

// RecordCheckoutDuration записывает время оформления заказа.
func (m *CheckoutMetrics) RecordCheckoutDuration(duration time.Duration) {
	m.checkoutDuration.Observe(duration.Seconds())
}

// RecordOutboxEvent увеличивает счётчик поставленных в outbox событий.
func (m *CheckoutMetrics) RecordOutboxEvent() {
	m.outboxEvents.Inc()
}
