// Package metrics 提供Prometheus监控指标
//
// 命令行一次运行即退出，指标通过 textfile 方式落盘，由 node_exporter 收集。
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/paiban/paike/pkg/scheduler"
)

// Recorder 排课运行指标，实现 scheduler.Observer
type Recorder struct {
	registry *prometheus.Registry

	runsTotal        *prometheus.CounterVec
	phaseDuration    *prometheus.HistogramVec
	phaseBranches    *prometheus.GaugeVec
	phaseObjective   *prometheus.GaugeVec
	constraintsAdded *prometheus.GaugeVec
	resultRows       prometheus.Gauge
	invalidRows      prometheus.Counter
	conflicts        prometheus.Gauge
	coverage         prometheus.Gauge
	fairness         prometheus.Gauge
	runDuration      prometheus.Histogram
}

var _ scheduler.Observer = (*Recorder)(nil)

// New 在独立注册表上创建全部指标
func New(namespace string) *Recorder {
	if namespace == "" {
		namespace = "paike"
	}
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		runsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "排课运行次数（按最终状态）",
		}, []string{"status"}),
		phaseDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "phase_duration_seconds",
			Help:      "各阶段求解耗时",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		}, []string{"phase"}),
		phaseBranches: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "phase_branches",
			Help:      "各阶段分支数",
		}, []string{"phase"}),
		phaseObjective: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "phase_objective",
			Help:      "各阶段目标值",
		}, []string{"phase"}),
		constraintsAdded: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "constraints_applied",
			Help:      "第二阶段各硬约束生成的线性约束数",
		}, []string{"constraint"}),
		resultRows: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "result_rows",
			Help:      "最近一次运行的结果行数",
		}),
		invalidRows: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "invalid_rows_total",
			Help:      "合并科目无法拆分的结果行累计数",
		}),
		conflicts: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "conflicts",
			Help:      "最近一次运行检测到的冲突数",
		}),
		coverage: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "coverage_percent",
			Help:      "课时覆盖率",
		}),
		fairness: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "fairness_score",
			Help:      "教师负载公平性评分",
		}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "整次运行耗时",
			Buckets:   prometheus.ExponentialBuckets(0.5, 2, 10),
		}),
	}

	r.registry.MustRegister(
		r.runsTotal, r.phaseDuration, r.phaseBranches, r.phaseObjective, r.constraintsAdded,
		r.resultRows, r.invalidRows, r.conflicts, r.coverage, r.fairness, r.runDuration,
	)
	return r
}

// Registry 返回底层注册表
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

func phaseLabel(phase int) string {
	if phase == scheduler.PhaseOne {
		return "link"
	}
	return "full"
}

// PhaseSolved 记录单阶段诊断
func (r *Recorder) PhaseSolved(report scheduler.PhaseReport) {
	label := phaseLabel(report.Phase)
	r.phaseDuration.WithLabelValues(label).Observe(report.WallTime.Seconds())
	r.phaseBranches.WithLabelValues(label).Set(float64(report.Branches))
	r.phaseObjective.WithLabelValues(label).Set(float64(report.Objective))

	if report.Phase == scheduler.PhaseTwo {
		for typ, n := range report.Applied {
			r.constraintsAdded.WithLabelValues(string(typ)).Set(float64(n))
		}
	}
}

// RunFinished 记录整次运行结果
func (r *Recorder) RunFinished(result *scheduler.Result) {
	if result == nil {
		return
	}
	r.runsTotal.WithLabelValues(string(result.Status)).Inc()
	r.runDuration.Observe(result.Duration.Seconds())
	r.resultRows.Set(float64(len(result.Rows)))
	r.conflicts.Set(float64(len(result.Conflicts)))
	if result.Postprocess != nil {
		r.invalidRows.Add(float64(result.Postprocess.Invalid))
	}
	if result.Stats != nil {
		if result.Stats.Coverage != nil {
			r.coverage.Set(result.Stats.Coverage.OverallCoverage)
		}
		if result.Stats.Fairness != nil {
			r.fairness.Set(result.Stats.Fairness.OverallFairnessScore)
		}
	}
}

// WriteTextFile 以 node_exporter textfile 格式写出全部指标
func (r *Recorder) WriteTextFile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}
