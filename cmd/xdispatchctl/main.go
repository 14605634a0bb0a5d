// xdispatchctl 是调度配置的命令行检查工具。
//
// 用法:
//
//	xdispatchctl [全局选项] <命令> [命令参数]
//
// 全局选项:
//
//	-c, --config   调度配置文件路径 (默认: /etc/xdispatch/config.yaml)
//
// 命令:
//
//	validate           校验配置文件（引用可解析、优先级全序、降级链无环）
//	resolve <ref>      解析目标引用并打印结果
//	budget <group>     打印任务组沿降级链的尝试预算
//	groups             列出全部任务组与轮询池
//
// 退出码:
//
//	0: 命令执行成功
//	1: 配置非法或引用无法解析
//	2: 参数错误
//
// 示例:
//
//	xdispatchctl -c dispatch.yaml validate
//	xdispatchctl -c dispatch.yaml resolve plan_group.e1
//	xdispatchctl -c dispatch.yaml budget plan_group
package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
)

// defaultConfigPath 默认配置文件路径。
const defaultConfigPath = "/etc/xdispatch/config.yaml"

// 版本信息（可通过 -ldflags 注入）。
var (
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
)

func main() {
	os.Exit(run(os.Args))
}

// run 执行 CLI 并返回退出码。
func run(args []string) int {
	app := createApp()
	if err := app.Run(context.Background(), args); err != nil {
		var ee *exitError
		if errors.As(err, &ee) {
			return ee.code
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		return 2
	}
	return 0
}

// createApp 创建 CLI 应用。
func createApp() *cli.Command {
	return &cli.Command{
		Name:    "xdispatchctl",
		Usage:   "调度配置检查工具",
		Version: fmt.Sprintf("%s (commit: %s)", Version, GitCommit),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "调度配置文件路径",
				Value:   defaultConfigPath,
			},
		},
		Commands: createCommands(),
	}
}
