// Package metrics содержит Prometheus-метрики программы лояльности.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "loyalty"

// Metrics набор коллекторов ядра. Нулевой указатель допустим и ничего не делает.
type Metrics struct {
	tokensIssued    *prometheus.CounterVec
	redemptions     *prometheus.CounterVec
	pointsCredited  prometheus.Counter
	pointsDebited   prometheus.Counter
	pendingRequests prometheus.Gauge
	expiredTokens   prometheus.Gauge
	activeEarn      prometheus.Gauge
}

// New создаёт коллекторы и регистрирует их в reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		tokensIssued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tokens_issued_total",
			Help:      "Tokens issued, by kind.",
		}, []string{"kind"}),
		redemptions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "redemptions_total",
			Help:      "Redemption attempts, by operation and outcome.",
		}, []string{"operation", "outcome"}),
		pointsCredited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "points_credited_total",
			Help:      "Points credited to customer balances.",
		}),
		pointsDebited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "points_debited_total",
			Help:      "Points debited from customer balances.",
		}),
		pendingRequests: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "pending_redemption_requests",
			Help:      "Redemption requests awaiting confirmation.",
		}),
		expiredTokens: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "expired_campaign_tokens",
			Help:      "Active campaign tokens past their expiry.",
		}),
		activeEarn: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_earn_tokens",
			Help:      "Earn tokens issued but not yet redeemed.",
		}),
	}

	reg.MustRegister(
		m.tokensIssued,
		m.redemptions,
		m.pointsCredited,
		m.pointsDebited,
		m.pendingRequests,
		m.expiredTokens,
		m.activeEarn,
	)
	return m
}

// TokenIssued учитывает выданный токен.
func (m *Metrics) TokenIssued(kind string) {
	if m == nil {
		return
	}
	m.tokensIssued.WithLabelValues(kind).Inc()
}

// Redemption учитывает попытку погашения или подтверждения с её исходом.
func (m *Metrics) Redemption(operation, outcome string) {
	if m == nil {
		return
	}
	m.redemptions.WithLabelValues(operation, outcome).Inc()
}

// PointsCredited учитывает начисленные баллы.
func (m *Metrics) PointsCredited(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.pointsCredited.Add(float64(n))
}

// PointsDebited учитывает списанные баллы.
func (m *Metrics) PointsDebited(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.pointsDebited.Add(float64(n))
}

// SetHousekeeping обновляет отчётные показатели.
func (m *Metrics) SetHousekeeping(pending, expired, activeEarn int) {
	if m == nil {
		return
	}
	m.pendingRequests.Set(float64(pending))
	m.expiredTokens.Set(float64(expired))
	m.activeEarn.Set(float64(activeEarn))
}
