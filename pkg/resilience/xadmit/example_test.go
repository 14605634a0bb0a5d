package xadmit_test

import (
	"context"
	"fmt"
	"time"

	"github.com/omeyang/xdispatch/pkg/resilience/xadmit"
)

// ExampleLimiter_Admit 演示非阻塞准入检查。
func ExampleLimiter_Admit() {
	ctx := context.Background()

	limiter, err := xadmit.New(
		xadmit.WithAlgorithm(xadmit.AlgorithmTokenBucket),
	)
	if err != nil {
		fmt.Println("new failed:", err)
		return
	}
	defer func() { _ = limiter.Close(ctx) }()

	limit := xadmit.Limit{Rate: 2, Period: time.Minute, Burst: 2}

	for i := 0; i < 3; i++ {
		dec, err := limiter.Admit(ctx, "plan_group.e1", limit)
		if err != nil {
			fmt.Println("admit failed:", err)
			return
		}
		fmt.Printf("request %d allowed=%v\n", i+1, dec.Allowed)
	}

	// Output:
	// request 1 allowed=true
	// request 2 allowed=true
	// request 3 allowed=false
}
