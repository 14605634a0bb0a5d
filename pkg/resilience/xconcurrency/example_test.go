package xconcurrency_test

import (
	"context"
	"fmt"

	"github.com/omeyang/xdispatch/pkg/resilience/xconcurrency"
)

// ExampleLimiter_Acquire 演示四级额度的获取与退还。
func ExampleLimiter_Acquire() {
	limiter := xconcurrency.New(xconcurrency.WithNodeLimit(64))
	defer func() { _ = limiter.Close() }()

	grant := xconcurrency.Grant{
		GroupKey:   "plan_group",
		EchelonKey: "plan_group.e1",
		ModelKey:   "plan_group.e1/gpt-large",
	}
	caps := xconcurrency.Caps{Group: 16, Echelon: 4, Model: 2, Queue: 8}

	token, err := limiter.Acquire(context.Background(), grant, caps)
	if err != nil {
		fmt.Println("acquire failed:", err)
		return
	}
	defer func() { _ = token.Release() }()

	fmt.Println("levels held:", token.Levels())
	fmt.Println("echelon in flight:", limiter.InFlight("plan_group.e1"))

	// Output:
	// levels held: 4
	// echelon in flight: 1
}
