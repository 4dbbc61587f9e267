package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Counters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.TokenIssued("earn")
	m.TokenIssued("earn")
	m.Redemption("earn", "ok")
	m.Redemption("earn", "conflict")
	m.PointsCredited(1)
	m.PointsDebited(50)
	m.PointsDebited(0)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.tokensIssued.WithLabelValues("earn")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.redemptions.WithLabelValues("earn", "conflict")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.pointsCredited))
	assert.Equal(t, 50.0, testutil.ToFloat64(m.pointsDebited))
}

func TestMetrics_Housekeeping(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.SetHousekeeping(3, 2, 7)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.pendingRequests))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.expiredTokens))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.activeEarn))
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.TokenIssued("earn")
	m.Redemption("earn", "ok")
	m.PointsCredited(1)
	m.PointsDebited(1)
	m.SetHousekeeping(1, 1, 1)
}
