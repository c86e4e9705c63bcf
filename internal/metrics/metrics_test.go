package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestObserveBridge(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.ObserveBridge("ok", 20*time.Millisecond)
	m.ObserveBridge("ok", 30*time.Millisecond)
	m.ObserveBridge("timeout", 30*time.Second)

	require.Equal(t, 2.0, testutil.ToFloat64(m.BridgeCalls.WithLabelValues("ok")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.BridgeCalls.WithLabelValues("timeout")))
	require.Equal(t, 1, testutil.CollectAndCount(m.BridgeLatency))

	n, err := testutil.GatherAndCount(reg, "dexonic_bridge_calls_total")
	require.NoError(t, err)
	require.Equal(t, 2, n)
}

func TestObserveBridge_NilSafe(t *testing.T) {
	var m *Metrics
	m.ObserveBridge("ok", time.Second)
}
