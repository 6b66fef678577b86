package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()

	families, err := reg.Gather()
	require.NoError(t, err)

	for _, mf := range families {
		if mf.GetName() == name {
			var sum float64
			for _, m := range mf.GetMetric() {
				sum += m.GetCounter().GetValue()
			}
			return sum
		}
	}

	t.Fatalf("metric %s not found", name)
	return 0
}

func TestRecordDecision(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordDecision("analyses", "guest", "admitted")
	c.RecordDecision("analyses", "guest", "admitted")
	c.RecordDecision("analyses", "guest", "rejected")

	assert.EqualValues(t, 3, counterValue(t, reg, "nutriai_gate_decisions_total"))
}

func TestRecordPipelineCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)

	c.RecordAnalysis()
	c.RecordSearch()
	c.RecordShareCreated()
	c.RecordModelLatency(1200 * time.Millisecond)

	assert.EqualValues(t, 1, counterValue(t, reg, "nutriai_analyses_total"))
	assert.EqualValues(t, 1, counterValue(t, reg, "nutriai_searches_total"))
	assert.EqualValues(t, 1, counterValue(t, reg, "nutriai_share_links_created_total"))
}

func TestHandlerServesScrape(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector(reg)
	c.RecordAnalysis()

	ts := httptest.NewServer(Handler(reg))
	defer ts.Close()

	res, err := http.Get(ts.URL)
	require.NoError(t, err)
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, res.StatusCode)
	assert.Contains(t, string(body), "nutriai_analyses_total 1")
}
