package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	// 全局变量
	serverURL  string
	outputJSON bool
)

// rootCmd 根命令
var rootCmd = &cobra.Command{
	Use:   "searchd-sidecar",
	Short: "searchd旁路助手 - 查询代理与异步任务命令行工具",
	Long: `searchd旁路助手是运行在searchd守护进程旁边的查询代理，
提供SQL预处理、插件路由与异步任务执行。

使用示例：
  # 同步执行SQL
  searchd-sidecar query "SELECT * FROM idx LIMIT 10"

  # 延迟执行并查询任务状态
  searchd-sidecar query --deferred "SELECT COUNT(*) FROM idx"
  searchd-sidecar task <task-id>

  # 检查服务健康
  searchd-sidecar health

  # 启动HTTP服务
  searchd-sidecar server start --config configs/sidecar.yaml`,
}

// Execute 执行根命令
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	// 全局参数
	rootCmd.PersistentFlags().StringVarP(&serverURL, "server", "s", "http://localhost:8312", "旁路助手服务器地址")
	rootCmd.PersistentFlags().BoolVarP(&outputJSON, "json", "j", false, "使用JSON格式输出")

	// 添加子命令
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(taskCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(serverCmd)
	rootCmd.AddCommand(versionCmd)
}
