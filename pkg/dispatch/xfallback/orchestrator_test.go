package xfallback

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omeyang/xdispatch/pkg/dispatch/xtarget"
)

// buildRegistry 两个任务组：
//
//	main:  e1 [m1(openai) m2(anthropic)]  e2 [m3(openai)]
//	spare: only [m4(google)]
//
// main 的降级链指向 spare。
func buildRegistry(t *testing.T, strategy xtarget.FallbackStrategy) *xtarget.Registry {
	t.Helper()

	reg, err := xtarget.NewRegistry(&xtarget.Config{
		Endpoints: []xtarget.ModelEndpoint{
			{ID: "m1", Provider: "openai", ModelName: "gpt-4o"},
			{ID: "m2", Provider: "anthropic", ModelName: "claude"},
			{ID: "m3", Provider: "openai", ModelName: "gpt-mini"},
			{ID: "m4", Provider: "google", ModelName: "gemini"},
		},
		TaskGroups: []xtarget.TaskGroup{
			{
				Name:             "main",
				FallbackStrategy: strategy,
				FallbackGroups:   []string{"spare"},
				Echelons: []xtarget.Echelon{
					{Name: "e1", Models: []string{"m1", "m2"}, Priority: 1, ConcurrencyLimit: 4},
					{Name: "e2", Models: []string{"m3"}, Priority: 2, ConcurrencyLimit: 4},
				},
			},
			{
				Name: "spare",
				Echelons: []xtarget.Echelon{
					{Name: "only", Models: []string{"m4"}, Priority: 1, ConcurrencyLimit: 4},
				},
			},
		},
	})
	require.NoError(t, err)
	return reg
}

// walk 从组的默认梯队出发，沿降级链走到耗尽，返回端点轨迹
func walk(t *testing.T, reg *xtarget.Registry, group string) []string {
	t.Helper()

	o, err := New(reg)
	require.NoError(t, err)

	g, ok := reg.Group(group)
	require.True(t, ok)

	visited := xtarget.NewVisited()
	var trail []string

	cur, ok := o.First(xtarget.Target{Group: g, Echelon: g.DefaultEchelon()}, visited)
	for ok {
		trail = append(trail, cur.EndpointTargetKey())
		require.True(t, visited.Add(cur.Visit()), "orchestrator returned a visited target: %s", cur.EndpointTargetKey())
		cur, ok = o.Next(cur, visited)
	}
	return trail
}

func TestEchelonDown(t *testing.T) {
	reg := buildRegistry(t, xtarget.FallbackEchelonDown)

	// e1 失败后直接降到 e2（m2 被跳过），随后切到 spare
	trail := walk(t, reg, "main")
	assert.Equal(t, []string{
		"main.e1/m1",
		"main.e2/m3",
		"spare.only/m4",
	}, trail)
}

func TestModelRotate(t *testing.T) {
	reg := buildRegistry(t, xtarget.FallbackModelRotate)

	// 先轮完 e1 的两个端点，再降到 e2，最后切组
	trail := walk(t, reg, "main")
	assert.Equal(t, []string{
		"main.e1/m1",
		"main.e1/m2",
		"main.e2/m3",
		"spare.only/m4",
	}, trail)
}

func TestProviderFailover(t *testing.T) {
	reg := buildRegistry(t, xtarget.FallbackProviderFailover)

	// m1(openai) 失败后优先切 anthropic 的 m2，再降级
	trail := walk(t, reg, "main")
	assert.Equal(t, []string{
		"main.e1/m1",
		"main.e1/m2",
		"main.e2/m3",
		"spare.only/m4",
	}, trail)
}

func TestProviderFailoverPrefersOtherProvider(t *testing.T) {
	reg := buildRegistry(t, xtarget.FallbackProviderFailover)
	o, err := New(reg)
	require.NoError(t, err)

	g, _ := reg.Group("main")
	e, _ := g.EchelonByName("e1")
	m1, _ := reg.Endpoint("m1")

	visited := xtarget.NewVisited()
	visited.Add(xtarget.Visit{Group: "main", Echelon: "e1", Endpoint: "m1"})

	next, ok := o.Next(xtarget.Target{Group: g, Echelon: e, Endpoint: m1}, visited)
	require.True(t, ok)
	assert.Equal(t, "anthropic", next.Endpoint.Provider)
}

func TestTaskGroupSwitch(t *testing.T) {
	reg := buildRegistry(t, xtarget.FallbackTaskGroupSwitch)

	// 首次失败直接跳到 spare，不再尝试本组其他目标
	trail := walk(t, reg, "main")
	assert.Equal(t, []string{
		"main.e1/m1",
		"spare.only/m4",
	}, trail)
}

func TestTerminationWithoutFallbackGroups(t *testing.T) {
	reg := buildRegistry(t, xtarget.FallbackEchelonDown)

	// spare 没有降级链，耗尽即终止
	trail := walk(t, reg, "spare")
	assert.Equal(t, []string{"spare.only/m4"}, trail)
}

func TestNeverRevisits(t *testing.T) {
	// walk 内部对每个返回目标断言未访问过，这里验证全策略
	for _, strategy := range []xtarget.FallbackStrategy{
		xtarget.FallbackEchelonDown,
		xtarget.FallbackModelRotate,
		xtarget.FallbackProviderFailover,
		xtarget.FallbackTaskGroupSwitch,
	} {
		t.Run(strategy.String(), func(t *testing.T) {
			reg := buildRegistry(t, strategy)
			trail := walk(t, reg, "main")
			assert.NotEmpty(t, trail)
			assert.LessOrEqual(t, len(trail), 4)
		})
	}
}

func TestFirstSkipsVisited(t *testing.T) {
	reg := buildRegistry(t, xtarget.FallbackModelRotate)
	o, err := New(reg)
	require.NoError(t, err)

	g, _ := reg.Group("main")

	visited := xtarget.NewVisited()
	visited.Add(xtarget.Visit{Group: "main", Echelon: "e1", Endpoint: "m1"})

	first, ok := o.First(xtarget.Target{Group: g, Echelon: g.DefaultEchelon()}, visited)
	require.True(t, ok)
	assert.Equal(t, "m2", first.Endpoint.ID)
}

func TestNilRegistry(t *testing.T) {
	_, err := New(nil)
	require.ErrorIs(t, err, ErrNilRegistry)
}
