package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/LENAX/searchd-sidecar/pkg/cli/output"
	"github.com/LENAX/searchd-sidecar/pkg/cli/sidecar"
)

var queryDeferred bool

// queryCmd query命令
var queryCmd = &cobra.Command{
	Use:   "query <sql>",
	Short: "执行SQL查询",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := sidecar.New(serverURL)

		if queryDeferred {
			data, err := client.QueryDeferred(args[0])
			if err != nil {
				output.Error("提交失败: %v", err)
				return err
			}
			if outputJSON {
				return output.PrintJSON(data)
			}
			output.Success("任务已提交: %s (%s)", data.TaskID, data.Status)
			return nil
		}

		data, err := client.Query(args[0])
		if err != nil {
			output.Error("查询失败: %v", err)
			return err
		}
		if outputJSON {
			return output.PrintJSON(data)
		}
		renderResults(data.Results)
		return nil
	},
}

// taskCmd task命令
var taskCmd = &cobra.Command{
	Use:   "task <id>",
	Short: "查询延迟任务的状态与结果",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client := sidecar.New(serverURL)
		data, err := client.GetTask(args[0])
		if err != nil {
			output.Error("查询失败: %v", err)
			return err
		}
		if outputJSON {
			return output.PrintJSON(data)
		}

		fmt.Printf("Task:   %s\n", data.TaskID)
		fmt.Printf("Status: %s\n", data.Status)
		if data.Error != "" {
			fmt.Printf("Error:  %s\n", data.Error)
		}
		if len(data.Results) > 0 {
			fmt.Println()
			renderResults(data.Results)
		}
		return nil
	},
}

// healthCmd health命令
var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "检查旁路助手与守护进程健康",
	RunE: func(cmd *cobra.Command, args []string) error {
		client := sidecar.New(serverURL)
		data, err := client.Health()
		if err != nil {
			output.Error("健康检查失败: %v", err)
			return err
		}
		if outputJSON {
			return output.PrintJSON(data)
		}

		if data.Status == "ok" {
			output.Success("服务正常 (version=%s, uptime=%s)", data.Version, data.Uptime)
		} else {
			output.Warn("服务降级: daemon=%s", data.Daemon)
		}
		return nil
	},
}

// renderResults 把结果集渲染为表格
func renderResults(results []sidecar.ResultPayload) {
	for i, r := range results {
		if len(results) > 1 {
			output.Info("-- 语句 %d --", i+1)
		}
		if r.Error != "" {
			output.Error("%s", r.Error)
			continue
		}
		if r.Warning != "" {
			output.Warn("%s", r.Warning)
		}
		if len(r.Data) == 0 {
			output.Info("OK, %d rows affected", r.Total)
			continue
		}

		headers := make([]string, 0, len(r.Columns))
		for _, col := range r.Columns {
			headers = append(headers, col.Name)
		}
		// 守护进程未回传列描述时从首行取列名
		if len(headers) == 0 {
			for name := range r.Data[0] {
				headers = append(headers, name)
			}
		}

		table := output.NewTable(headers)
		for _, row := range r.Data {
			cells := make([]string, 0, len(headers))
			for _, h := range headers {
				cells = append(cells, fmt.Sprintf("%v", row[h]))
			}
			table.AddRow(cells)
		}
		table.Render()
		fmt.Printf("\n总计: %d 行\n", r.Total)
	}
}
