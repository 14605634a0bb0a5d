package xtarget

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testYAML = `
endpoints:
  - id: gpt-large
    provider: openai
    model: gpt-4o
    weight: 3
  - id: claude-fast
    provider: anthropic
    model: claude-haiku

task_groups:
  - name: plan_group
    fallback_strategy: provider_failover
    echelons:
      - name: e1
        models: [gpt-large, claude-fast]
        priority: 1
        concurrency_limit: 4
        rpm_limit: 120
        timeout: 10s
        max_retries: 2

polling_pools:
  - name: main_pool
    members: [plan_group.e1]
    rotation_strategy: lru
    health_check_interval: 5s
`

const testJSON = `{
  "endpoints": [
    {"id": "gpt-large", "provider": "openai", "model": "gpt-4o"}
  ],
  "task_groups": [
    {
      "name": "plan_group",
      "echelons": [
        {"name": "e1", "models": ["gpt-large"], "priority": 1, "concurrency_limit": 2}
      ]
    }
  ]
}`

func TestLoadBytes(t *testing.T) {
	t.Run("yaml", func(t *testing.T) {
		reg, err := LoadBytes([]byte(testYAML), FormatYAML)
		require.NoError(t, err)

		g, ok := reg.Group("plan_group")
		require.True(t, ok)
		assert.Equal(t, FallbackProviderFailover, g.FallbackStrategy)

		e := g.DefaultEchelon()
		assert.Equal(t, 10*time.Second, e.Timeout)
		assert.Equal(t, 120, e.RPMLimit)

		p, ok := reg.Pool("main_pool")
		require.True(t, ok)
		assert.Equal(t, RotationLeastRecentlyUsed, p.RotationStrategy)
		assert.Equal(t, 5*time.Second, p.HealthCheckInterval)
	})

	t.Run("json", func(t *testing.T) {
		reg, err := LoadBytes([]byte(testJSON), FormatJSON)
		require.NoError(t, err)

		g, ok := reg.Group("plan_group")
		require.True(t, ok)
		assert.Equal(t, FallbackEchelonDown, g.FallbackStrategy)
	})

	t.Run("unsupported format", func(t *testing.T) {
		_, err := LoadBytes([]byte(testYAML), Format("toml"))
		require.ErrorIs(t, err, ErrUnsupportedFormat)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		_, err := LoadBytes([]byte("task_groups: ["), FormatYAML)
		require.ErrorIs(t, err, ErrParseFailed)
	})

	t.Run("invalid strategy is a parse error", func(t *testing.T) {
		bad := `
task_groups:
  - name: g
    fallback_strategy: retry_harder
    echelons:
      - {name: e1, models: [x], priority: 1, concurrency_limit: 1}
`
		_, err := LoadBytes([]byte(bad), FormatYAML)
		require.Error(t, err)
	})
}

func TestLoadFile(t *testing.T) {
	t.Run("yaml file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "dispatch.yaml")
		require.NoError(t, os.WriteFile(path, []byte(testYAML), 0o600))

		reg, err := LoadFile(path)
		require.NoError(t, err)
		_, ok := reg.Group("plan_group")
		assert.True(t, ok)
	})

	t.Run("unknown extension", func(t *testing.T) {
		_, err := LoadFile("dispatch.toml")
		require.ErrorIs(t, err, ErrUnsupportedFormat)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
		require.ErrorIs(t, err, ErrLoadFailed)
	})

	t.Run("empty path", func(t *testing.T) {
		_, err := LoadFile("")
		require.ErrorIs(t, err, ErrLoadFailed)
	})
}

func TestWatch(t *testing.T) {
	t.Run("reload on change", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "dispatch.yaml")
		require.NoError(t, os.WriteFile(path, []byte(testYAML), 0o600))

		reloaded := make(chan *Registry, 1)
		w, err := Watch(path, func(reg *Registry, err error) {
			if err == nil {
				select {
				case reloaded <- reg:
				default:
				}
			}
		}, WithDebounce(10*time.Millisecond))
		require.NoError(t, err)
		defer func() { _ = w.Stop() }()

		w.StartAsync()

		// 重写配置并新增一个任务组触发重载
		updated := `
endpoints:
  - id: gpt-large
    provider: openai
    model: gpt-4o

task_groups:
  - name: plan_group
    echelons:
      - {name: e1, models: [gpt-large], priority: 1, concurrency_limit: 4}
  - name: extra_group
    echelons:
      - {name: e1, models: [gpt-large], priority: 1, concurrency_limit: 1}
`
		require.NoError(t, os.WriteFile(path, []byte(updated), 0o600))

		select {
		case reg := <-reloaded:
			_, ok := reg.Group("extra_group")
			assert.True(t, ok)
		case <-time.After(3 * time.Second):
			t.Fatal("timed out waiting for reload")
		}
	})

	t.Run("invalid update keeps old registry", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "dispatch.yaml")
		require.NoError(t, os.WriteFile(path, []byte(testYAML), 0o600))

		failed := make(chan error, 1)
		w, err := Watch(path, func(reg *Registry, err error) {
			if err != nil {
				select {
				case failed <- err:
				default:
				}
			}
		}, WithDebounce(10*time.Millisecond))
		require.NoError(t, err)
		defer func() { _ = w.Stop() }()

		w.StartAsync()

		require.NoError(t, os.WriteFile(path, []byte("task_groups: ["), 0o600))

		select {
		case err := <-failed:
			assert.Error(t, err)
		case <-time.After(3 * time.Second):
			t.Fatal("timed out waiting for reload failure")
		}
	})

	t.Run("empty path", func(t *testing.T) {
		_, err := Watch("", nil)
		require.ErrorIs(t, err, ErrLoadFailed)
	})

	t.Run("stop is idempotent", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "dispatch.yaml")
		require.NoError(t, os.WriteFile(path, []byte(testYAML), 0o600))

		w, err := Watch(path, nil)
		require.NoError(t, err)
		w.StartAsync()
		require.NoError(t, w.Stop())
		require.NoError(t, w.Stop())
	})
}
