package metrics_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"db-tube/internal/engine"
	"db-tube/internal/metrics"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder(t *testing.T) {
	r := metrics.NewRecorder()

	r.BatchFlushed("users", 100)
	r.BatchFlushed("users", 40)
	r.RecordSkipped("users", errors.New("bad row"))
	r.JobFinished(engine.Stats{Job: "users", Elapsed: 2 * time.Second})

	families, err := r.Registry.Gather()
	require.NoError(t, err)
	assert.Len(t, families, 4)

	path := filepath.Join(t.TempDir(), "dbtube.prom")
	require.NoError(t, r.WriteFile(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)

	assert.Contains(t, string(data), `dbtube_records_migrated_total{job="users"} 140`)
	assert.Contains(t, string(data), `dbtube_batches_flushed_total{job="users"} 2`)
	assert.Contains(t, string(data), `dbtube_records_skipped_total{job="users"} 1`)
	assert.Contains(t, string(data), `dbtube_job_duration_seconds_count{job="users"} 1`)
}
