package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/omeyang/xdispatch/pkg/dispatch/xtarget"
)

// exitError 表示需要非零退出码但已完成输出的场景。
type exitError struct {
	code int
}

func (e *exitError) Error() string { return "" }

// createCommands 创建所有子命令。
func createCommands() []*cli.Command {
	return []*cli.Command{
		createValidateCommand(),
		createResolveCommand(),
		createBudgetCommand(),
		createGroupsCommand(),
	}
}

// loadRegistry 从全局 --config 加载并校验配置。
func loadRegistry(cmd *cli.Command) (*xtarget.Registry, error) {
	path := cmd.String("config")
	reg, err := xtarget.LoadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid config %s: %v\n", path, err)
		return nil, &exitError{code: 1}
	}
	return reg, nil
}

// createValidateCommand 创建 validate 子命令。
func createValidateCommand() *cli.Command {
	return &cli.Command{
		Name:    "validate",
		Aliases: []string{"v"},
		Usage:   "校验配置文件",
		Action: func(_ context.Context, cmd *cli.Command) error {
			reg, err := loadRegistry(cmd)
			if err != nil {
				return err
			}
			fmt.Printf("ok: %d task groups, %d polling pools\n",
				len(reg.GroupNames()), len(reg.PoolNames()))
			return nil
		},
	}
}

// createResolveCommand 创建 resolve 子命令。
func createResolveCommand() *cli.Command {
	return &cli.Command{
		Name:      "resolve",
		Aliases:   []string{"r"},
		Usage:     "解析目标引用",
		ArgsUsage: "<ref>",
		Action: func(_ context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 1 {
				fmt.Fprintln(os.Stderr, "usage: resolve <ref>")
				return &exitError{code: 2}
			}
			reg, err := loadRegistry(cmd)
			if err != nil {
				return err
			}

			res, err := reg.Resolve(cmd.Args().First())
			if err != nil {
				fmt.Fprintln(os.Stderr, "resolve failed:", err)
				return &exitError{code: 1}
			}

			if res.Pool != nil {
				fmt.Printf("pool %s (%s)\n", res.Pool.Name, res.Pool.RotationStrategy)
				for _, m := range res.Pool.Members {
					fmt.Printf("  member %s\n", m)
				}
				return nil
			}

			t := res.Target
			fmt.Printf("target %s (strategy %s, timeout %s)\n",
				t.Key(), t.Group.FallbackStrategy, t.Echelon.Timeout)
			for _, ep := range reg.EndpointsOf(t.Echelon) {
				fmt.Printf("  endpoint %s provider=%s model=%s weight=%d\n",
					ep.ID, ep.Provider, ep.ModelName, ep.Weight)
			}
			return nil
		},
	}
}

// createBudgetCommand 创建 budget 子命令。
func createBudgetCommand() *cli.Command {
	return &cli.Command{
		Name:      "budget",
		Aliases:   []string{"b"},
		Usage:     "打印任务组沿降级链的尝试预算",
		ArgsUsage: "<group>",
		Action: func(_ context.Context, cmd *cli.Command) error {
			if cmd.Args().Len() != 1 {
				fmt.Fprintln(os.Stderr, "usage: budget <group>")
				return &exitError{code: 2}
			}
			reg, err := loadRegistry(cmd)
			if err != nil {
				return err
			}

			name := cmd.Args().First()
			if _, ok := reg.Group(name); !ok {
				fmt.Fprintf(os.Stderr, "unknown task group %q\n", name)
				return &exitError{code: 1}
			}
			fmt.Printf("%s: %d attempts\n", name, reg.AttemptBudget(name))
			return nil
		},
	}
}

// createGroupsCommand 创建 groups 子命令。
func createGroupsCommand() *cli.Command {
	return &cli.Command{
		Name:    "groups",
		Aliases: []string{"g"},
		Usage:   "列出全部任务组与轮询池",
		Action: func(_ context.Context, cmd *cli.Command) error {
			reg, err := loadRegistry(cmd)
			if err != nil {
				return err
			}

			for _, name := range reg.GroupNames() {
				g, _ := reg.Group(name)
				fmt.Printf("group %s (strategy %s, %d echelons)\n",
					name, g.FallbackStrategy, len(g.Echelons))
				for i := range g.Echelons {
					e := &g.Echelons[i]
					fmt.Printf("  echelon %s priority=%d concurrency=%d rpm=%d models=%v\n",
						e.Name, e.Priority, e.ConcurrencyLimit, e.RPMLimit, e.Models)
				}
			}
			for _, name := range reg.PoolNames() {
				p, _ := reg.Pool(name)
				fmt.Printf("pool %s (%s) members=%v\n", name, p.RotationStrategy, p.Members)
			}
			return nil
		},
	}
}
