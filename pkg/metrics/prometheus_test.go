package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	r := NewWithRegistry(reg)

	r.RecordComputation("ok")
	r.RecordComputation("ok")
	r.RecordComputation("error")
	r.RecordSampleFailure("Saturne")
	r.RecordEpisodes(3)
	r.RecordError("no_samples")
	r.RecordLatency("compute", 0.25)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.computations.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.computations.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.sampleFailures.WithLabelValues("Saturne")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.errorsTotal.WithLabelValues("no_samples")))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := map[string]bool{}
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	assert.True(t, names["astrozee_episodes_per_report"])
	assert.True(t, names["astrozee_operation_duration_seconds"])
}
