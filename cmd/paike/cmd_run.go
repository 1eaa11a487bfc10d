package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/paiban/paike/internal/config"
	"github.com/paiban/paike/internal/database"
	"github.com/paiban/paike/internal/metrics"
	"github.com/paiban/paike/internal/repository"
	"github.com/paiban/paike/internal/tableio"
	"github.com/paiban/paike/pkg/errors"
	"github.com/paiban/paike/pkg/logger"
	"github.com/paiban/paike/pkg/scheduler"
	"github.com/paiban/paike/pkg/stats"
)

var (
	teachersPath string
	studentsPath string
	outputPath   string
	xlsxPath     string
	metricsFile  string
	storeResult  bool
	strictMode   bool
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "根据名册生成课表",
	Example: `  paike run --teachers teachers.csv --students students.csv --output result.csv
  paike run --teachers teachers.csv --students students.csv --output result.csv --xlsx result.xlsx --store --strict`,
	RunE: runSchedule,
}

func init() {
	runCmd.Flags().StringVar(&teachersPath, "teachers", "", "教师名册 CSV（必填）")
	runCmd.Flags().StringVar(&studentsPath, "students", "", "学生名册 CSV（必填）")
	runCmd.Flags().StringVarP(&outputPath, "output", "o", "result.csv", "结果 CSV 路径")
	runCmd.Flags().StringVar(&xlsxPath, "xlsx", "", "同时导出 Excel 工作簿")
	runCmd.Flags().StringVar(&metricsFile, "metrics-file", "", "以 textfile 格式写出运行指标")
	runCmd.Flags().BoolVar(&storeResult, "store", false, "将运行记录与结果写入数据库")
	runCmd.Flags().BoolVar(&strictMode, "strict", false, "存在无效合并行或冲突时以错误退出")
	runCmd.MarkFlagRequired("teachers")
	runCmd.MarkFlagRequired("students")
}

func runSchedule(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	settings, err := cfg.Settings()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	students, err := tableio.LoadStudents(studentsPath)
	if err != nil {
		return err
	}
	teachers, err := tableio.LoadTeachers(teachersPath)
	if err != nil {
		return err
	}

	opts := []scheduler.Option{}
	var recorder *metrics.Recorder
	if cfg.Metrics.Enabled || metricsFile != "" {
		recorder = metrics.New(cfg.Metrics.Namespace)
		opts = append(opts, scheduler.WithObserver(recorder))
	}

	s, err := scheduler.New(settings, opts...)
	if err != nil {
		return err
	}
	result, err := s.Run(ctx, scheduler.Input{Students: students, Teachers: teachers})
	if err != nil {
		return err
	}

	if recorder != nil {
		if path := metricsPath(cfg); path != "" {
			if err := recorder.WriteTextFile(path); err != nil {
				logger.Warn().Err(err).Str("path", path).Msg("写出指标文件失败")
			}
		}
	}

	if storeResult {
		if err := store(ctx, cfg, result); err != nil {
			return err
		}
	}

	out := cmd.OutOrStdout()
	if !result.Solved() {
		return noSolution(out, result)
	}

	if err := tableio.SaveResults(outputPath, result.Rows); err != nil {
		return err
	}
	if xlsxPath != "" {
		if err := tableio.SaveWorkbook(xlsxPath, result.Rows, settings.NumDay, settings.NumShift); err != nil {
			return err
		}
	}

	printSummary(out, result)

	invalid := 0
	if result.Postprocess != nil {
		invalid = result.Postprocess.Invalid
	}
	if strictMode && (invalid > 0 || len(result.Conflicts) > 0) {
		return errors.DataIntegrity(invalid, len(result.Conflicts)).WithField("run_id", result.RunID)
	}
	return nil
}

// noSolution 写出只含表头的结果表，覆盖上一次运行的输出
func noSolution(out io.Writer, result *scheduler.Result) error {
	if err := tableio.SaveResults(outputPath, nil); err != nil {
		return err
	}
	fmt.Fprintf(out, "未找到排课方案（求解状态: %s）\n", result.Status)
	return errors.NoFeasibleSolution(string(result.Status)).WithField("run_id", result.RunID)
}

func metricsPath(cfg *config.Config) string {
	if metricsFile != "" {
		return metricsFile
	}
	return cfg.Metrics.TextFile
}

// store 保存运行记录；未求得方案的运行也会记录状态
func store(ctx context.Context, cfg *config.Config, result *scheduler.Result) error {
	db, err := database.New(&cfg.Database)
	if err != nil {
		return errors.Wrap(err, errors.CodeDatabaseError, "连接结果库失败")
	}
	defer db.Close()

	repo := repository.NewRunRepository(db)
	if err := repo.Migrate(ctx); err != nil {
		return err
	}
	run := repository.RunFromResult(result, cfg.App.Env)
	if err := repo.Save(ctx, run, result.Rows); err != nil {
		return err
	}
	logger.Info().
		Str("run_id", run.ID).
		Str("driver", db.Driver()).
		Int("rows", run.Rows).
		Msg("排课结果已保存")
	return nil
}

func printSummary(out io.Writer, result *scheduler.Result) {
	fmt.Fprintf(out, "运行 %s: %s，%d 行，耗时 %s\n",
		result.RunID, result.Status, len(result.Rows), result.Duration.Round(time.Millisecond))
	if result.Postprocess != nil {
		p := result.Postprocess
		fmt.Fprintf(out, "季节性 %d / 常规 %d / 无效 %d / 合并 %d / 偏好教师 %d\n",
			p.Seasonal, p.Regular, p.Invalid, p.Merged, p.Preferred)
	}
	if len(result.Conflicts) > 0 {
		fmt.Fprintf(out, "检测到 %d 处冲突\n", len(result.Conflicts))
	}
	if result.Stats == nil {
		return
	}
	if result.Stats.Coverage != nil {
		fmt.Fprint(out, stats.NewCoverageAnalyzer().GenerateCoverageReport(result.Stats.Coverage))
	}
	if f := result.Stats.Fairness; f != nil {
		fmt.Fprintf(out, "教师负载基尼系数: %.3f，公平性评分: %.1f\n", f.LoadGini, f.OverallFairnessScore)
	}
}
