package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/paiban/paike/internal/constraints"
	"github.com/paiban/paike/pkg/scheduler/constraint"
)

var constraintsJSON bool

var constraintsCmd = &cobra.Command{
	Use:   "constraints",
	Short: "列出硬约束开关及目标项（按当前配置）",
	RunE:  listConstraints,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "打印版本信息",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "Paike 排课引擎 v%s\nBuild: %s (%s)\n", Version, BuildTime, GitCommit)
	},
}

func init() {
	constraintsCmd.Flags().BoolVar(&constraintsJSON, "json", false, "以 JSON 输出")
}

func listConstraints(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	settings, err := cfg.Settings()
	if err != nil {
		return err
	}
	lib := constraints.Library(settings)

	out := cmd.OutOrStdout()
	if constraintsJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(lib)
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "开关\t名称\t说明\t状态\t阶段\t参数")
	for _, d := range lib {
		flag := fmt.Sprint(d.Flag)
		if d.Category == constraint.CategorySoft {
			flag = fmt.Sprintf("w=%d", d.Weight)
		}
		state := "关闭"
		if d.Enabled {
			state = "开启"
		}
		phases := make([]string, len(d.Phases))
		for i, p := range d.Phases {
			phases[i] = fmt.Sprint(p)
		}
		params := make([]string, len(d.Params))
		for i, p := range d.Params {
			params[i] = p.Name + "=" + p.Value
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			flag, d.Name, d.DisplayName, state, strings.Join(phases, ","), strings.Join(params, " "))
	}
	return w.Flush()
}
