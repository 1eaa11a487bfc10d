package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paiban/paike/pkg/model"
	"github.com/paiban/paike/pkg/postprocess"
	"github.com/paiban/paike/pkg/scheduler"
	"github.com/paiban/paike/pkg/scheduler/constraint"
	"github.com/paiban/paike/pkg/scheduler/solver"
	"github.com/paiban/paike/pkg/stats"
)

func sampleResult() *scheduler.Result {
	return &scheduler.Result{
		RunID:       "run-1",
		Status:      solver.StatusOptimal,
		Rows:        make([]model.ResultRow, 3),
		Postprocess: &postprocess.Report{Rows: 3, Invalid: 1},
		Stats: &scheduler.Stats{
			Coverage: &stats.CoverageMetrics{OverallCoverage: 75},
			Fairness: &stats.FairnessMetrics{OverallFairnessScore: 88},
		},
		Duration: 2 * time.Second,
	}
}

func TestRecorder_PhaseSolved(t *testing.T) {
	r := New("paike")

	r.PhaseSolved(scheduler.PhaseReport{Phase: scheduler.PhaseOne, Branches: 40, Objective: 9, WallTime: time.Second})
	r.PhaseSolved(scheduler.PhaseReport{
		Phase:    scheduler.PhaseTwo,
		Branches: 12,
		Applied:  map[constraint.Type]int{constraint.TypeCenterCapacity: 4, constraint.TypeOneSlotPerStudent: 6},
		WallTime: 3 * time.Second,
	})

	assert.Equal(t, 40.0, testutil.ToFloat64(r.phaseBranches.WithLabelValues("link")))
	assert.Equal(t, 12.0, testutil.ToFloat64(r.phaseBranches.WithLabelValues("full")))
	assert.Equal(t, 9.0, testutil.ToFloat64(r.phaseObjective.WithLabelValues("link")))
	assert.Equal(t, 4.0, testutil.ToFloat64(r.constraintsAdded.WithLabelValues("center_capacity")))
	assert.Equal(t, 6.0, testutil.ToFloat64(r.constraintsAdded.WithLabelValues("one_slot_per_student")))
	assert.Equal(t, 2, testutil.CollectAndCount(r.phaseDuration))
}

func TestRecorder_RunFinished(t *testing.T) {
	r := New("")

	r.RunFinished(sampleResult())
	r.RunFinished(sampleResult())
	r.RunFinished(nil)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.runsTotal.WithLabelValues("optimal")))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.resultRows))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.invalidRows))
	assert.Equal(t, 75.0, testutil.ToFloat64(r.coverage))
	assert.Equal(t, 88.0, testutil.ToFloat64(r.fairness))
	assert.Equal(t, 0.0, testutil.ToFloat64(r.conflicts))
}

func TestRecorder_RunFinishedWithoutStats(t *testing.T) {
	r := New("paike")
	r.RunFinished(&scheduler.Result{Status: solver.StatusInfeasible})

	assert.Equal(t, 1.0, testutil.ToFloat64(r.runsTotal.WithLabelValues("infeasible")))
	assert.Equal(t, 0.0, testutil.ToFloat64(r.resultRows))
	assert.Equal(t, 0.0, testutil.ToFloat64(r.coverage))
}

func TestRecorder_WriteTextFile(t *testing.T) {
	r := New("paike")
	r.RunFinished(sampleResult())

	path := filepath.Join(t.TempDir(), "paike.prom")
	require.NoError(t, r.WriteTextFile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.True(t, strings.Contains(text, `paike_runs_total{status="optimal"} 1`), text)
	assert.Contains(t, text, "paike_result_rows 3")
	assert.Contains(t, text, "paike_invalid_rows_total 1")
	assert.Contains(t, text, "# TYPE paike_run_duration_seconds histogram")
}
