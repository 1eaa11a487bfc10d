// Package config 提供配置管理
package config

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/paiban/paike/pkg/errors"
	"github.com/paiban/paike/pkg/logger"
	"github.com/paiban/paike/pkg/model"
)

// EnvPrefix 环境变量前缀，例如 PAIKE_SCHEDULE_CENTER_CAPACITY
const EnvPrefix = "PAIKE"

// 运行环境（区域/层级）白名单
const (
	EnvLocal = "local"
	EnvStag  = "stag"
	EnvUAT   = "uat"
	EnvProd  = "prod"
)

// Envs 返回允许的运行环境
func Envs() []string {
	return []string{EnvLocal, EnvStag, EnvUAT, EnvProd}
}

// Config 应用配置
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Log      LogConfig      `mapstructure:"log"`
	Database DatabaseConfig `mapstructure:"database"`
	Schedule ScheduleConfig `mapstructure:"schedule"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// AppConfig 应用基础配置
type AppConfig struct {
	Name string `mapstructure:"name" validate:"required"`
	Env  string `mapstructure:"env" validate:"required,oneof=local stag uat prod"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level    string `mapstructure:"level" validate:"oneof=trace debug info warn error fatal panic disabled"`
	Format   string `mapstructure:"format" validate:"oneof=json console"`
	Output   string `mapstructure:"output" validate:"oneof=stdout stderr file"`
	FilePath string `mapstructure:"file_path"`
}

// Logger 转换为日志器配置
func (c LogConfig) Logger() logger.Config {
	cfg := logger.DefaultConfig()
	cfg.Level = c.Level
	cfg.Format = c.Format
	cfg.Output = c.Output
	cfg.FilePath = c.FilePath
	return cfg
}

// 结果库驱动
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// DatabaseConfig 结果库配置
type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver" validate:"oneof=postgres sqlite"`
	Path            string        `mapstructure:"path"` // sqlite 文件
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	Name            string        `mapstructure:"name"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns" validate:"min=1"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns" validate:"min=0"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN 返回数据库连接字符串
func (c *DatabaseConfig) DSN() string {
	if c.Driver == DriverSQLite {
		return c.Path
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// ScheduleConfig 排课参数
type ScheduleConfig struct {
	Days            int                       `mapstructure:"days" validate:"min=1"`
	Shifts          int                       `mapstructure:"shifts" validate:"min=1"`
	CenterCapacity  int                       `mapstructure:"center_capacity" validate:"min=0"`
	Subjects        []model.SubjectSpec       `mapstructure:"subjects" validate:"required,min=1,dive"`
	AllowedShifts   map[string][]int          `mapstructure:"allowed_shifts"` // 学段名或编号 → 时段
	PrimaryTime     model.PrimaryTimeSettings `mapstructure:"primary_time"`
	StaffHours      model.StaffHoursSettings  `mapstructure:"staff_hours"`
	HardConstraints []bool                    `mapstructure:"hard_constraints"`
	Weights         model.Weights             `mapstructure:"weights"`
	Solver          model.SolverSettings      `mapstructure:"solver"`
}

// MetricsConfig 监控配置
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace" validate:"required"`
	TextFile  string `mapstructure:"text_file"`
}

// LoadDotEnv 加载 .env 文件，文件不存在时忽略
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	var existing []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return nil
	}
	if err := godotenv.Load(existing...); err != nil {
		return errors.Wrap(err, errors.CodeInvalidConfig, "加载 .env 失败")
	}
	return nil
}

// Load 加载配置：默认值 → YAML 文件 → 环境变量
// path 为空时在 ./config 与当前目录查找 config.yaml，找不到则只用默认值
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, errors.Wrap(err, errors.CodeInvalidConfig, "读取配置文件失败")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, errors.CodeInvalidConfig, "解析配置失败")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := model.DefaultSettings()

	v.SetDefault("app.name", "paike")
	v.SetDefault("app.env", EnvLocal)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
	v.SetDefault("log.output", "stdout")
	v.SetDefault("log.file_path", "")

	v.SetDefault("database.driver", DriverSQLite)
	v.SetDefault("database.path", "paike.db")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "paike")
	v.SetDefault("database.user", "paike")
	v.SetDefault("database.password", "")
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 2)
	v.SetDefault("database.conn_max_lifetime", "5m")

	v.SetDefault("schedule.days", d.NumDay)
	v.SetDefault("schedule.shifts", d.NumShift)
	v.SetDefault("schedule.center_capacity", d.CenterCapacity)
	subjects := make([]map[string]interface{}, 0, len(d.Subjects))
	for _, s := range d.Subjects {
		subjects = append(subjects, map[string]interface{}{"name": s.Name, "ratio": s.Ratio})
	}
	v.SetDefault("schedule.subjects", subjects)
	v.SetDefault("schedule.allowed_shifts", map[string][]int{})
	v.SetDefault("schedule.primary_time.first_day_ratio", d.PrimaryTime.FirstDayRatio)
	v.SetDefault("schedule.primary_time.first_shift_ratio", d.PrimaryTime.FirstShiftRatio)
	v.SetDefault("schedule.primary_time.second_shift_ratio", d.PrimaryTime.SecondShiftRatio)
	v.SetDefault("schedule.primary_time.quota_ratio", d.PrimaryTime.QuotaRatio)
	v.SetDefault("schedule.staff_hours.shift_minutes", d.StaffHours.ShiftMinutes)
	v.SetDefault("schedule.staff_hours.break_minutes", d.StaffHours.BreakMinutes)
	v.SetDefault("schedule.staff_hours.max_minutes", d.StaffHours.MaxMinutes)
	v.SetDefault("schedule.hard_constraints", d.HardConstraints)
	v.SetDefault("schedule.weights.continuity", d.Weights.Continuity)
	v.SetDefault("schedule.weights.preference", d.Weights.Preference)
	v.SetDefault("schedule.weights.utilization", d.Weights.Utilization)
	v.SetDefault("schedule.weights.class", d.Weights.Class)
	v.SetDefault("schedule.weights.remain", d.Weights.Remain)
	v.SetDefault("schedule.weights.scheduled", d.Weights.Scheduled)
	v.SetDefault("schedule.solver.max_time", d.Solver.MaxTime.String())
	v.SetDefault("schedule.solver.workers", d.Solver.Workers)
	v.SetDefault("schedule.solver.accept_feasible", d.Solver.AcceptFeasible)
	v.SetDefault("schedule.solver.engine", d.Solver.Engine)

	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.namespace", "paike")
	v.SetDefault("metrics.text_file", "")
}

var validate = validator.New()

// Validate 校验配置，在构建模型之前快速失败
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			ve := &errors.ValidationErrors{}
			for _, fe := range verrs {
				ve.Add(fe.Namespace(), fmt.Sprintf("%s=%s", fe.Tag(), fe.Param()))
			}
			return ve.ToAppError()
		}
		return errors.Wrap(err, errors.CodeInvalidConfig, "配置校验失败")
	}
	if n := len(c.Schedule.HardConstraints); n != model.NumHardConstraints {
		return errors.InvalidConfig("schedule.hard_constraints",
			fmt.Sprintf("必须包含 %d 项，实际为 %d", model.NumHardConstraints, n))
	}
	settings, err := c.Schedule.ToSettings()
	if err != nil {
		return err
	}
	if err := settings.Validate(); err != nil {
		return errors.Wrap(err, errors.CodeInvalidConfig, "排课配置无效")
	}
	return nil
}

// ToSettings 转换为贯穿各组件的不可变运行配置
func (c ScheduleConfig) ToSettings() (model.Settings, error) {
	settings := model.Settings{
		NumDay:          c.Days,
		NumShift:        c.Shifts,
		CenterCapacity:  c.CenterCapacity,
		Subjects:        append([]model.SubjectSpec(nil), c.Subjects...),
		PrimaryTime:     c.PrimaryTime,
		StaffHours:      c.StaffHours,
		HardConstraints: append([]bool(nil), c.HardConstraints...),
		Weights:         c.Weights,
		Solver:          c.Solver,
	}
	if settings.Solver.Engine == "" {
		settings.Solver.Engine = model.EnginePseudoBoolean
	}

	if len(c.AllowedShifts) > 0 {
		keys := make([]string, 0, len(c.AllowedShifts))
		for k := range c.AllowedShifts {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		settings.AllowedShifts = make(map[model.Level][]int, len(keys))
		for _, k := range keys {
			level, err := model.ParseLevel(k)
			if err != nil {
				return model.Settings{}, errors.InvalidConfig("schedule.allowed_shifts", err.Error())
			}
			settings.AllowedShifts[level] = append([]int(nil), c.AllowedShifts[k]...)
		}
	}
	return settings, nil
}

// Settings 返回排课运行配置
func (c *Config) Settings() (model.Settings, error) {
	return c.Schedule.ToSettings()
}
