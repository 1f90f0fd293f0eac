package usage_test

import (
	"bytes"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"poi-harvest/internal/poi_harvest/clock"
	"poi-harvest/internal/poi_harvest/model"
	"poi-harvest/internal/poi_harvest/usage"
)

func TestReporterAccumulates(t *testing.T) {
	clk := clock.NewFake(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))
	r := usage.NewReporter(clk, nil)

	r.Log("Paris", "museum")
	r.Log("Paris", "park")
	r.Log("Rome", "museum")
	r.LogError("Rome", "museum", "museum", errors.New("boom"))
	clk.Advance(1500 * time.Millisecond)

	rep := r.Report()
	assert.Equal(t, 3, rep.TotalCalls)
	assert.Equal(t, map[string]int{"Paris": 2, "Rome": 1}, rep.CallsByPartition)
	assert.Equal(t, map[string]int{"museum": 2, "park": 1}, rep.CallsByCategory)
	assert.Equal(t, 1, rep.ErrorCount)
	require.Len(t, rep.Errors, 1)
	assert.Equal(t, "boom", rep.Errors[0].Error)
	assert.InDelta(t, 1.5, rep.Duration, 1e-9)
}

func TestReporterReportIsACopy(t *testing.T) {
	r := usage.NewReporter(nil, nil)
	r.Log("Paris", "museum")

	rep := r.Report()
	rep.CallsByPartition["Paris"] = 99

	assert.Equal(t, 1, r.Report().CallsByPartition["Paris"])
}

func TestReporterRestoreAddsPriorSession(t *testing.T) {
	clk := clock.NewFake(time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))
	r := usage.NewReporter(clk, nil)
	r.Restore(model.UsageReport{
		TotalCalls:       4,
		Duration:         10,
		CallsByPartition: map[string]int{"Paris": 4},
		CallsByCategory:  map[string]int{"park": 4},
		ErrorCount:       1,
		Errors:           []model.UsageError{{Partition: "Paris", Label: "park", Error: "old"}},
	})
	r.Log("Paris", "park")
	r.LogError("Paris", "park", "park", errors.New("new"))
	clk.Advance(2 * time.Second)

	rep := r.Report()
	assert.Equal(t, 5, rep.TotalCalls)
	assert.Equal(t, 5, rep.CallsByPartition["Paris"])
	assert.Equal(t, 2, rep.ErrorCount)
	assert.Equal(t, "old", rep.Errors[0].Error)
	assert.InDelta(t, 12.0, rep.Duration, 1e-9)
}

func TestReporterConcurrentLogs(t *testing.T) {
	r := usage.NewReporter(nil, nil)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Log("Tokyo", "park")
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, r.Report().TotalCalls)
}

func TestMetricsMirrorCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := usage.NewMetrics(reg)
	r := usage.NewReporter(nil, m)

	r.Log("Paris", "museum")
	r.Log("Paris", "museum")
	r.LogError("Paris", "museum", "museum", errors.New("x"))
	r.Entities("Paris", 3)

	assert.InDelta(t, 2.0, testutil.ToFloat64(m.Calls.WithLabelValues("Paris", "museum")), 1e-9)
	assert.InDelta(t, 1.0, testutil.ToFloat64(m.Errors.WithLabelValues("Paris", "museum")), 1e-9)
	assert.InDelta(t, 3.0, testutil.ToFloat64(m.Entities.WithLabelValues("Paris")), 1e-9)
}

func TestPrintSummary(t *testing.T) {
	var buf bytes.Buffer
	usage.PrintSummary(&buf, model.UsageReport{
		TotalCalls:       7,
		CallsByPartition: map[string]int{"Paris": 4, "Rome": 3},
		ErrorCount:       1,
		Errors:           []model.UsageError{{Partition: "Rome"}},
	}, 42)

	out := buf.String()
	assert.Contains(t, out, "Total entities")
	assert.Contains(t, out, "42")
	assert.Contains(t, out, "Paris")
	assert.Contains(t, out, "Rome")
}
