package pluginregistry_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xinchaobeta/semantic-release/internal/config"
	"github.com/xinchaobeta/semantic-release/internal/domain"
	"github.com/xinchaobeta/semantic-release/internal/pipeline"
	"github.com/xinchaobeta/semantic-release/internal/pluginregistry"
	"github.com/xinchaobeta/semantic-release/internal/semver"
)

func TestResolve(t *testing.T) {
	t.Parallel()

	t.Run("should resolve conventional-commits to the built-in analyzer", func(t *testing.T) {
		t.Parallel()

		// given
		plugins := pluginregistry.Resolve([]config.PluginStep{{Path: "conventional-commits"}})
		require.Len(t, plugins, 1)

		// when
		bump, err := plugins[0](context.Background(), &pipeline.Context{
			Commits: []string{"feat: add widget"},
		})

		// then
		require.NoError(t, err)
		assert.Equal(t, string(semver.Minor), bump)
	})

	t.Run("should classify a breaking change as major regardless of type", func(t *testing.T) {
		t.Parallel()

		// given
		plugins := pluginregistry.Resolve([]config.PluginStep{{Path: "conventional-commits"}})

		// when
		bump, err := plugins[0](context.Background(), &pipeline.Context{
			Commits: []string{"feat: add widget\n\nBREAKING CHANGE: removes old widget"},
		})

		// then
		require.NoError(t, err)
		assert.Equal(t, string(semver.Major), bump)
	})

	t.Run("should classify a bang-suffixed type as major", func(t *testing.T) {
		t.Parallel()

		// given
		plugins := pluginregistry.Resolve([]config.PluginStep{{Path: "conventional-commits"}})

		// when
		bump, err := plugins[0](context.Background(), &pipeline.Context{
			Commits: []string{"feat!: drop support"},
		})

		// then
		require.NoError(t, err)
		assert.Equal(t, string(semver.Major), bump)
	})

	t.Run("should classify fix commits as patch", func(t *testing.T) {
		t.Parallel()

		// given
		plugins := pluginregistry.Resolve([]config.PluginStep{{Path: "conventional-commits"}})

		// when
		bump, err := plugins[0](context.Background(), &pipeline.Context{
			Commits: []string{"fix: correct off-by-one"},
		})

		// then
		require.NoError(t, err)
		assert.Equal(t, string(semver.Patch), bump)
	})

	t.Run("should return no bump when nothing is conventional", func(t *testing.T) {
		t.Parallel()

		// given
		plugins := pluginregistry.Resolve([]config.PluginStep{{Path: "conventional-commits"}})

		// when
		bump, err := plugins[0](context.Background(), &pipeline.Context{
			Commits: []string{"chore: bump deps"},
		})

		// then
		require.NoError(t, err)
		assert.Nil(t, bump)
	})

	t.Run("should resolve release-notes to one bullet per commit subject", func(t *testing.T) {
		t.Parallel()

		// given
		plugins := pluginregistry.Resolve([]config.PluginStep{{Path: "release-notes"}})
		pctx := &pipeline.Context{
			Commits:     []string{"feat: add widget\n\nlonger body", "fix: correct bug"},
			NextRelease: domain.Release{Version: semver.MustParse("1.1.0")},
		}

		// when
		notes, err := plugins[0](context.Background(), pctx)

		// then
		require.NoError(t, err)
		text, ok := notes.(string)
		require.True(t, ok)
		assert.Contains(t, text, "## 1.1.0")
		assert.Contains(t, text, "* feat: add widget")
		assert.Contains(t, text, "* fix: correct bug")
	})

	t.Run("should fall back to a logging no-op for unregistered plugin paths", func(t *testing.T) {
		t.Parallel()

		// given
		plugins := pluginregistry.Resolve([]config.PluginStep{{Path: "./my-custom-plugin.js"}})
		require.Len(t, plugins, 1)

		// when
		result, err := plugins[0](context.Background(), &pipeline.Context{})

		// then
		require.NoError(t, err)
		assert.Nil(t, result)
	})
}
