package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Counters(t *testing.T) {
	m := New()

	m.RunStarted("stream")
	m.EventWritten("kind://a", 100)
	m.EventWritten("kind://a", 50)
	m.EventWritten("kind://b", 10)
	m.InstanceFinished("kind://a", time.Second, nil)
	m.InstanceFinished("kind://b", time.Second, errors.New("boom"))
	m.RunFinished("stream", 2*time.Second, errors.New("boom"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.events.WithLabelValues("kind://a")))
	assert.Equal(t, 150.0, testutil.ToFloat64(m.eventBytes.WithLabelValues("kind://a")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.events.WithLabelValues("kind://b")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.instanceFailures.WithLabelValues("kind://b")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.instanceFailures.WithLabelValues("kind://a")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("stream", ResultFailure)))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.runs.WithLabelValues("stream", ResultSuccess)))
	assert.Equal(t, 1, testutil.CollectAndCount(m.instanceDuration))
	assert.Greater(t, testutil.ToFloat64(m.lastRun), 0.0)
}

func TestMetrics_GatherAndCompare(t *testing.T) {
	m := New()
	m.RunStarted("scheme")
	m.RunFinished("scheme", time.Millisecond, nil)

	expected := `
# HELP modinput_runs_total Runs by mode and result.
# TYPE modinput_runs_total counter
modinput_runs_total{mode="scheme",result="failure"} 0
modinput_runs_total{mode="scheme",result="success"} 1
`
	require.NoError(t, testutil.GatherAndCompare(m.Registry(), strings.NewReader(expected), "modinput_runs_total"))
}

func TestMetrics_WriteTextfile(t *testing.T) {
	m := New()
	m.EventWritten("s", 3)

	path := filepath.Join(t.TempDir(), "modinput.prom")
	require.NoError(t, m.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `modinput_events_total{stanza="s"} 1`)

	err = m.WriteTextfile(filepath.Join(t.TempDir(), "missing", "dir", "x.prom"))
	assert.Error(t, err)
}
