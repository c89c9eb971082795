// Package metrics содержит метрики Prometheus для заказов и поиска.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics набор метрик сервиса. Методы безопасны для nil-получателя.
type Metrics struct {
	OrdersCreatedTotal    *prometheus.CounterVec
	OrderTransitionsTotal *prometheus.CounterVec
	OrdersExpiredTotal    *prometheus.CounterVec
	CancellationChargeSum prometheus.Counter
	VersionConflictsTotal prometheus.Counter
	SearchDuration        prometheus.Histogram
	SearchResults         prometheus.Histogram
	RatingSyncErrorsTotal prometheus.Counter
}

// New регистрирует метрики в указанном реестре.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		OrdersCreatedTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orders_created_total",
				Help: "Количество созданных заказов",
			},
			[]string{"delivery_method"},
		),
		OrderTransitionsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "order_transitions_total",
				Help: "Количество переходов статусов заказов",
			},
			[]string{"from", "to"},
		),
		OrdersExpiredTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orders_expired_total",
				Help: "Количество заказов, истёкших без ответа продавца",
			},
			[]string{"trigger"},
		),
		CancellationChargeSum: f.NewCounter(prometheus.CounterOpts{
			Name: "order_cancellation_charge_total",
			Help: "Сумма штрафов за отмену принятых заказов",
		}),
		VersionConflictsTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "order_version_conflicts_total",
			Help: "Количество отклонённых записей из-за устаревшей версии заказа",
		}),
		SearchDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "catalog_search_duration_seconds",
			Help:    "Время поиска товаров",
			Buckets: prometheus.DefBuckets,
		}),
		SearchResults: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "catalog_search_results",
			Help:    "Количество товаров в результате поиска",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250, 500},
		}),
		RatingSyncErrorsTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "rating_sync_errors_total",
			Help: "Количество ошибок синхронизации рейтингов магазинов",
		}),
	}
}

// OrderCreated учитывает новый заказ с указанным способом получения.
func (m *Metrics) OrderCreated(method string) {
	if m == nil {
		return
	}
	m.OrdersCreatedTotal.WithLabelValues(method).Inc()
}

// Transition учитывает смену статуса заказа.
func (m *Metrics) Transition(from, to string) {
	if m == nil {
		return
	}
	m.OrderTransitionsTotal.WithLabelValues(from, to).Inc()
}

// Expired учитывает истечение заказа. trigger принимает значения read или sweep.
func (m *Metrics) Expired(trigger string) {
	if m == nil {
		return
	}
	m.OrdersExpiredTotal.WithLabelValues(trigger).Inc()
}

// CancellationCharge добавляет удержанную при отмене сумму. Нулевые суммы не учитываются.
func (m *Metrics) CancellationCharge(amount float64) {
	if m == nil || amount <= 0 {
		return
	}
	m.CancellationChargeSum.Add(amount)
}

// VersionConflict учитывает конфликт версий при записи заказа.
func (m *Metrics) VersionConflict() {
	if m == nil {
		return
	}
	m.VersionConflictsTotal.Inc()
}

// Search учитывает длительность поиска и число найденных товаров.
func (m *Metrics) Search(d time.Duration, results int) {
	if m == nil {
		return
	}
	m.SearchDuration.Observe(d.Seconds())
	m.SearchResults.Observe(float64(results))
}

// RatingSyncError учитывает ошибку синхронизации рейтингов.
func (m *Metrics) RatingSyncError() {
	if m == nil {
		return
	}
	m.RatingSyncErrorsTotal.Inc()
}
