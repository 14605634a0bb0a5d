package xtarget_test

import (
	"fmt"

	"github.com/omeyang/xdispatch/pkg/dispatch/xtarget"
)

// ExampleLoadBytes 演示从内嵌 YAML 构建注册表并解析目标引用。
func ExampleLoadBytes() {
	config := `
endpoints:
  - id: gpt-large
    provider: openai
    model: gpt-4o
  - id: gpt-small
    provider: openai
    model: gpt-4o-mini

task_groups:
  - name: plan_group
    fallback_strategy: echelon_down
    echelons:
      - name: e1
        models: [gpt-large]
        priority: 1
        concurrency_limit: 4
      - name: e2
        models: [gpt-small]
        priority: 2
        concurrency_limit: 8
`
	reg, err := xtarget.LoadBytes([]byte(config), xtarget.FormatYAML)
	if err != nil {
		fmt.Println("load failed:", err)
		return
	}

	res, err := reg.Resolve("plan_group")
	if err != nil {
		fmt.Println("resolve failed:", err)
		return
	}
	fmt.Println(res.Target.Key())

	res, _ = reg.Resolve("plan_group.e2")
	fmt.Println(res.Target.Key())

	// Output:
	// plan_group.e1
	// plan_group.e2
}
