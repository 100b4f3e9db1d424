package cmd

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/LENAX/searchd-sidecar/pkg/api"
	"github.com/LENAX/searchd-sidecar/pkg/api/handler"
	"github.com/LENAX/searchd-sidecar/pkg/cli/output"
	"github.com/LENAX/searchd-sidecar/pkg/client"
	"github.com/LENAX/searchd-sidecar/pkg/config"
	"github.com/LENAX/searchd-sidecar/pkg/core/cache"
	"github.com/LENAX/searchd-sidecar/pkg/core/supervisor"
	"github.com/LENAX/searchd-sidecar/pkg/core/task"
	"github.com/LENAX/searchd-sidecar/pkg/plugin"
)

var configPath string

// serverCmd server命令
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "HTTP服务管理命令",
}

// serverStartCmd 启动HTTP服务
var serverStartCmd = &cobra.Command{
	Use:   "start",
	Short: "启动HTTP查询服务",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			output.Error("装载配置失败: %v", err)
			return err
		}
		return runServer(cfg)
	},
}

func init() {
	serverStartCmd.Flags().StringVarP(&configPath, "config", "c", "configs/sidecar.yaml", "配置文件路径")
	serverCmd.AddCommand(serverStartCmd)
}

// runServer 组装并运行整个旁路助手
func runServer(cfg *config.SidecarConfig) error {
	// 任务运行时与事件总线
	mode, err := parseMode(cfg.GetExecutionMode())
	if err != nil {
		return err
	}
	bus := task.NewEventBus()
	defer bus.Close()

	rt := task.NewRuntime(mode).
		WithMaxContexts(cfg.Sidecar.Execution.MaxContexts).
		WithChannelCapacity(cfg.Sidecar.Execution.ChannelCapacity).
		WithEventBus(bus)

	// 插件：透传插件兜底，配置的插件按序优先
	manager := plugin.NewManager()
	refresher := plugin.NewRefresher(manager)
	for _, pc := range cfg.Sidecar.Plugins {
		if pc.Name != "passthrough" {
			continue // 目前只内置透传插件，其余按名称跳过
		}
		params := pc.Params
		if params == nil {
			params = map[string]string{"base_url": cfg.GetDaemonBaseURL()}
		}
		if err := manager.RegisterWithInit(plugin.NewPassthroughPlugin(), params); err != nil {
			return err
		}
		if pc.RefreshCron != "" {
			if err := refresher.Schedule(pc.Name, pc.RefreshCron); err != nil {
				return err
			}
		}
	}
	if _, registered := manager.GetPlugin("passthrough"); !registered {
		err := manager.RegisterWithInit(plugin.NewPassthroughPlugin(), map[string]string{
			"base_url": cfg.GetDaemonBaseURL(),
			"timeout":  cfg.Sidecar.Daemon.Timeout.String(),
		})
		if err != nil {
			return err
		}
	}
	refresher.Start()
	defer refresher.Stop()

	// 受监督子执行体：任务终态事件经管道转发到子侧落日志
	sup, err := supervisor.NewSupervisor(map[string]supervisor.HandlerFunc{
		"task.event": logTaskEvent,
	})
	if err != nil {
		return err
	}

	// HTTP服务作为受监督Worker运行
	daemon := client.New(cfg.GetDaemonBaseURL()).WithTimeout(cfg.Sidecar.Daemon.Timeout)
	queryHandler := handler.NewQueryHandler(rt, manager)
	if cfg.Sidecar.Cache.Enabled {
		queryCache := cache.NewMemoryQueryCache(cfg.Sidecar.Cache.CleanInterval)
		defer queryCache.Stop()
		queryHandler.WithCache(queryCache, cfg.Sidecar.Cache.DefaultTTL)
	}
	router := api.SetupRouter(
		queryHandler,
		handler.NewHealthHandler(daemon),
	)
	srv := api.NewServer(cfg.ServerAddr(), cfg.Sidecar.Server.Mode, router)
	if err := sup.AddWorker(supervisor.NewRunnerWorker("http-server", srv), true); err != nil {
		return err
	}

	// 事件转发
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go forwardTaskEvents(ctx, bus, sup)

	log.Printf("✅ [旁路助手] 启动完成: instance=%s, addr=%s, daemon=%s",
		cfg.Sidecar.General.InstanceName, cfg.ServerAddr(), cfg.GetDaemonBaseURL())

	<-ctx.Done()
	log.Printf("⚠️  [旁路助手] 收到终止信号，开始优雅退出")
	return sup.Stop()
}

func parseMode(mode string) (task.ExecutionMode, error) {
	switch mode {
	case "cooperative":
		return task.ModeCooperative, nil
	case "isolated":
		return task.ModeIsolated, nil
	default:
		return task.ModeCooperative, fmt.Errorf("未知的执行模式: %s", mode)
	}
}

// forwardTaskEvents 订阅任务终态事件并转发给受监督子执行体
func forwardTaskEvents(ctx context.Context, bus *task.EventBus, sup *supervisor.Supervisor) {
	for _, topic := range []string{task.TopicTaskFinished, task.TopicTaskFailed} {
		messages, err := bus.Subscribe(ctx, topic)
		if err != nil {
			log.Printf("⚠️  [旁路助手] 订阅%s失败: %v", topic, err)
			continue
		}
		go func(topic string) {
			for msg := range messages {
				ev, err := task.DecodeEvent(msg.Payload)
				if err == nil {
					if execErr := sup.Execute("task.event", ev.TaskID, string(ev.Status), ev.Error); execErr != nil {
						log.Printf("⚠️  [旁路助手] 转发任务事件失败: %v", execErr)
					}
				}
				msg.Ack()
			}
		}(topic)
	}
}

// logTaskEvent 子侧远程方法：记录任务终态
func logTaskEvent(args []any) {
	if len(args) < 3 {
		return
	}
	if errMsg, _ := args[2].(string); errMsg != "" {
		log.Printf("❌ [任务] %v 失败: %v", args[0], errMsg)
		return
	}
	log.Printf("✅ [任务] %v 结束: %v", args[0], args[1])
}
