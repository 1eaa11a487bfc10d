// Paike 排课引擎命令行
// 主程序入口

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/paiban/paike/internal/config"
	"github.com/paiban/paike/pkg/errors"
	"github.com/paiban/paike/pkg/logger"
)

// 构建信息（通过 ldflags 注入）
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

var (
	configPath string
	envFiles   []string
)

var rootCmd = &cobra.Command{
	Use:   "paike",
	Short: "Paike 排课引擎",
	Long: `Paike 根据学生与教师名册生成一周课表。

求解分两阶段：第一阶段只带变量关联、合并科目核算与不连堂约束，
第二阶段施加全部启用的硬约束，并以第一阶段的解作为提示。`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "配置文件路径（默认查找 ./config/config.yaml 与 ./config.yaml）")
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", []string{".env"}, "启动前加载的 .env 文件")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(constraintsCmd)
	rootCmd.AddCommand(versionCmd)
}

// loadConfig 加载 .env 与配置文件并初始化日志
func loadConfig() (*config.Config, error) {
	if err := config.LoadDotEnv(envFiles...); err != nil {
		return nil, err
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger.Init(cfg.Log.Logger())
	return cfg, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "错误:", err)
		os.Exit(errors.GetExitCode(err))
	}
}
