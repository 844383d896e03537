package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func gaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, g.Write(&m))
	return m.GetGauge().GetValue()
}

func TestConnectionGaugeTracksOpenClose(t *testing.T) {
	m := NewRegistry(prometheus.NewRegistry())

	m.ConnectionOpened()
	m.ConnectionOpened()
	require.Equal(t, float64(2), gaugeValue(t, m.ActiveConnections))

	m.ConnectionClosed()
	require.Equal(t, float64(1), gaugeValue(t, m.ActiveConnections))
}

func TestRequestsTotalLabeled(t *testing.T) {
	m := NewRegistry(prometheus.NewRegistry())

	m.RequestHandled("GET", "200")
	m.RequestHandled("GET", "200")
	m.RequestHandled("GET", "404")

	var out dto.Metric
	require.NoError(t, m.RequestsTotal.WithLabelValues("GET", "200").Write(&out))
	require.Equal(t, float64(2), out.GetCounter().GetValue())
}
