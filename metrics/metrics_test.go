package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTxMetrics(t *testing.T) {
	r := NewRegistry(true)
	require.True(t, Enabled())
	m := NewTxMetrics(r)
	m.Received.Inc(2)
	m.Observe(time.Now(), nil)
	m.Observe(time.Now(), errors.New("failed"))
	m.Units.Update(5)

	require.EqualValues(t, 2, m.Received.Count())
	require.EqualValues(t, 1, m.Executed.Count())
	require.EqualValues(t, 1, m.Failed.Count())
	require.EqualValues(t, 2, m.Duration.Count())
	require.EqualValues(t, 5, m.Units.Value())
	// same name returns the same meter
	require.Same(t, m.Received, r.Counter("riskgate/tx/received"))

	rec := httptest.NewRecorder()
	r.PrometheusHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "riskgate_tx_received")
	require.Contains(t, rec.Body.String(), "riskgate_state_units")
}
