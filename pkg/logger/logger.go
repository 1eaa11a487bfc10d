// Package logger 提供统一的日志框架
package logger

import (
	"context"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var (
	once   sync.Once
	logger zerolog.Logger
)

// Level 日志级别
type Level = zerolog.Level

const (
	DebugLevel = zerolog.DebugLevel
	InfoLevel  = zerolog.InfoLevel
	WarnLevel  = zerolog.WarnLevel
	ErrorLevel = zerolog.ErrorLevel
	FatalLevel = zerolog.FatalLevel
)

// Config 日志配置
type Config struct {
	Level      string `yaml:"level" json:"level"`
	Format     string `yaml:"format" json:"format"` // json/console
	Output     string `yaml:"output" json:"output"` // stdout/stderr/file
	FilePath   string `yaml:"file_path,omitempty" json:"file_path,omitempty"`
	TimeFormat string `yaml:"time_format,omitempty" json:"time_format,omitempty"`
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		Format:     "console",
		Output:     "stdout",
		TimeFormat: time.RFC3339,
	}
}

// Init 初始化日志器
func Init(cfg Config) {
	once.Do(func() {
		level := parseLevel(cfg.Level)
		zerolog.SetGlobalLevel(level)

		var output io.Writer
		switch cfg.Output {
		case "stderr":
			output = os.Stderr
		case "file":
			if cfg.FilePath != "" {
				f, err := os.OpenFile(cfg.FilePath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
				if err == nil {
					output = f
				} else {
					output = os.Stdout
				}
			} else {
				output = os.Stdout
			}
		default:
			output = os.Stdout
		}

		if cfg.Format == "console" {
			output = zerolog.ConsoleWriter{
				Out:        output,
				TimeFormat: cfg.TimeFormat,
			}
		}

		logger = zerolog.New(output).With().Timestamp().Logger()
	})
}

// parseLevel 解析日志级别
func parseLevel(level string) zerolog.Level {
	switch level {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}

// Get 获取日志器
func Get() *zerolog.Logger {
	if logger.GetLevel() == zerolog.Disabled {
		Init(DefaultConfig())
	}
	return &logger
}

// runIDKey 上下文中的运行ID键
type runIDKey struct{}

// ContextWithRunID 在上下文中记录运行ID
func ContextWithRunID(ctx context.Context, runID string) context.Context {
	return context.WithValue(ctx, runIDKey{}, runID)
}

// WithContext 从上下文创建日志器
func WithContext(ctx context.Context) *zerolog.Logger {
	l := Get().With().Logger()

	// 添加运行ID
	if runID, ok := ctx.Value(runIDKey{}).(string); ok {
		l = l.With().Str("run_id", runID).Logger()
	}

	return &l
}

// Debug 记录调试日志
func Debug() *zerolog.Event {
	return Get().Debug()
}

// Info 记录信息日志
func Info() *zerolog.Event {
	return Get().Info()
}

// Warn 记录警告日志
func Warn() *zerolog.Event {
	return Get().Warn()
}

// Error 记录错误日志
func Error() *zerolog.Event {
	return Get().Error()
}

// Fatal 记录致命错误日志
func Fatal() *zerolog.Event {
	return Get().Fatal()
}

// WithError 添加错误信息
func WithError(err error) *zerolog.Event {
	return Get().Error().Err(err)
}

// WithField 添加字段
func WithField(key string, value interface{}) *zerolog.Logger {
	l := Get().With().Interface(key, value).Logger()
	return &l
}

// WithFields 添加多个字段
func WithFields(fields map[string]interface{}) *zerolog.Logger {
	ctx := Get().With()
	for k, v := range fields {
		ctx = ctx.Interface(k, v)
	}
	l := ctx.Logger()
	return &l
}

// SchedulerLogger 排课引擎专用日志器
type SchedulerLogger struct {
	base *zerolog.Logger
}

// NewSchedulerLogger 创建排课引擎日志器
func NewSchedulerLogger() *SchedulerLogger {
	l := Get().With().Str("component", "scheduler").Logger()
	return &SchedulerLogger{base: &l}
}

// NewSchedulerLoggerWith 基于给定日志器创建（用于测试或自定义输出）
func NewSchedulerLoggerWith(base zerolog.Logger) *SchedulerLogger {
	l := base.With().Str("component", "scheduler").Logger()
	return &SchedulerLogger{base: &l}
}

// StartRun 记录排课开始
func (l *SchedulerLogger) StartRun(runID string, students, teachers, days, shifts, subjects int) {
	l.base.Info().
		Str("run_id", runID).
		Int("students", students).
		Int("teachers", teachers).
		Int("days", days).
		Int("shifts", shifts).
		Int("subjects", subjects).
		Msg("开始排课")
}

// ModelBuilt 记录某阶段模型构建完成
func (l *SchedulerLogger) ModelBuilt(runID string, phase, vars, constraints, hard, soft int) {
	l.base.Debug().
		Str("run_id", runID).
		Int("phase", phase).
		Int("vars", vars).
		Int("constraints", constraints).
		Int("hard_rules", hard).
		Int("soft_terms", soft).
		Msg("模型构建完成")
}

// PhaseSolved 记录某阶段求解结果
func (l *SchedulerLogger) PhaseSolved(runID string, phase int, status string, objective, bound, branches, conflicts int64, wall time.Duration) {
	l.base.Info().
		Str("run_id", runID).
		Int("phase", phase).
		Str("status", status).
		Int64("objective", objective).
		Int64("best_bound", bound).
		Int64("branches", branches).
		Int64("conflicts", conflicts).
		Dur("wall_time", wall).
		Msg("阶段求解完成")
}

// HintsTransferred 记录阶段间提示传递
func (l *SchedulerLogger) HintsTransferred(runID string, hints int) {
	l.base.Debug().
		Str("run_id", runID).
		Int("hints", hints).
		Msg("传递求解提示")
}

// ConstraintApplied 记录硬约束施加结果
func (l *SchedulerLogger) ConstraintApplied(phase int, constraint string, added int) {
	l.base.Debug().
		Int("phase", phase).
		Str("constraint", constraint).
		Int("added", added).
		Msg("施加约束")
}

// ConstraintViolation 记录约束违反
func (l *SchedulerLogger) ConstraintViolation(constraint, details string) {
	l.base.Warn().
		Str("constraint", constraint).
		Str("details", details).
		Msg("约束违反")
}

// InvalidMergedRow 记录无法解析的合并科目行
func (l *SchedulerLogger) InvalidMergedRow(student int, subject string, day, shift int) {
	l.base.Warn().
		Int("student", student).
		Str("subject", subject).
		Int("day", day).
		Int("shift", shift).
		Msg("合并科目无剩余课时可分配")
}

// NoSolution 记录无解
func (l *SchedulerLogger) NoSolution(runID string, phase int, status string) {
	l.base.Warn().
		Str("run_id", runID).
		Int("phase", phase).
		Str("status", status).
		Msg("未找到可接受的排课方案")
}

// RunComplete 记录排课完成
func (l *SchedulerLogger) RunComplete(runID string, status string, rows int, duration time.Duration) {
	l.base.Info().
		Str("run_id", runID).
		Str("status", status).
		Int("rows", rows).
		Dur("duration", duration).
		Msg("排课完成")
}
