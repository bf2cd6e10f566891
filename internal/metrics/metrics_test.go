package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetrics_registersCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.PriceUpdates.WithLabelValues("stored").Inc()
	m.StationCache.WithLabelValues("hit").Add(2)
	m.FeedPublished.Inc()

	assert.InDelta(t, 1, testutil.ToFloat64(m.PriceUpdates.WithLabelValues("stored")), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(m.StationCache.WithLabelValues("hit")), 0)

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make(map[string]bool, len(families))
	for _, f := range families {
		names[f.GetName()] = true
	}
	assert.True(t, names["petrolprices_price_updates_total"])
	assert.True(t, names["petrolprices_feed_published_total"])
}

func TestNewMetrics_twoRegistriesDoNotPanic(t *testing.T) {
	assert.NotPanics(t, func() {
		_ = NewNop()
		_ = NewNop()
	})
}
