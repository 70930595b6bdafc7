// Copyright (c) 2024 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package metrics

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dto "github.com/prometheus/client_model/go"
)

func gather(t *testing.T) map[string]*dto.MetricFamily {
	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)

	out := make(map[string]*dto.MetricFamily)
	for _, mf := range families {
		out[mf.GetName()] = mf
	}
	return out
}

func TestPromMetrics(t *testing.T) {
	InitializePrometheusMetrics()

	Counter("calls").Add(1)
	Counter("calls").Add(2)

	vec := CounterVec("calls_by_method", []string{"method"})
	for i := range 10 {
		vec.AddWithLabel(1, map[string]string{"method": strconv.Itoa(i % 2)})
	}

	gauge := Gauge("elected")
	gauge.Set(7)
	gauge.Add(-2)

	GaugeVec("stake", []string{"kind"}).SetWithLabel(42, map[string]string{"kind": "self"})
	Histogram("epoch_ms", Bucket10s).Observe(12)

	families := gather(t)
	assert.Equal(t, float64(3), families["dpos_calls"].Metric[0].GetCounter().GetValue())
	require.Len(t, families["dpos_calls_by_method"].Metric, 2)
	assert.Equal(t, float64(5), families["dpos_calls_by_method"].Metric[0].GetCounter().GetValue())
	assert.Equal(t, float64(5), families["dpos_elected"].Metric[0].GetGauge().GetValue())
	assert.Equal(t, float64(42), families["dpos_stake"].Metric[0].GetGauge().GetValue())
	assert.Equal(t, uint64(1), families["dpos_epoch_ms"].Metric[0].GetHistogram().GetSampleCount())

	rec := httptest.NewRecorder()
	HTTPHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "dpos_calls 3")
}

func TestLazyLoading(t *testing.T) {
	metrics = defaultNoopMetrics()

	for _, a := range []any{
		Gauge("noopGauge"),
		GaugeVec("noopGaugeVec", nil),
		Counter("noopCounter"),
		CounterVec("noopCounterVec", nil),
		Histogram("noopHist", nil),
	} {
		require.IsType(t, &noopMeters{}, a)
	}

	lazyGauge := LazyLoadGauge("lazyGauge")
	lazyGaugeVec := LazyLoadGaugeVec("lazyGaugeVec", []string{"l"})
	lazyCounter := LazyLoadCounter("lazyCounter")
	lazyCounterVec := LazyLoadCounterVec("lazyCounterVec", []string{"l"})
	lazyHistogram := LazyLoadHistogram("lazyHistogram", nil)

	InitializePrometheusMetrics()

	require.IsType(t, &promGaugeMeter{}, lazyGauge())
	require.IsType(t, &promGaugeVecMeter{}, lazyGaugeVec())
	require.IsType(t, &promCountMeter{}, lazyCounter())
	require.IsType(t, &promCountVecMeter{}, lazyCounterVec())
	require.IsType(t, &promHistogramMeter{}, lazyHistogram())
}

func TestNoopHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	(&noopMetrics{}).GetOrCreateHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
