package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xinchaobeta/semantic-release/internal/config"
)

const sample = `
branches:
  - name: master
  - name: next
    channel: next
tagFormat: "v${version}"
repositoryUrl: "https://github.com/${OWNER}/repo.git"
plugins:
  publish:
    - path: "@semantic-release/github"
`

func TestLoad(t *testing.T) {
	t.Run("should load branches, tagFormat and plugin steps", func(t *testing.T) {
		// given
		t.Setenv("OWNER", "acme")
		dir := t.TempDir()
		path := filepath.Join(dir, "semrelease.yaml")
		require.NoError(t, os.WriteFile(path, []byte(sample), 0o600))

		// when
		cfg, err := config.Load(path)

		// then
		require.NoError(t, err)
		require.Len(t, cfg.Branches, 2)
		assert.Equal(t, "v${version}", cfg.TagFormat)
		assert.Equal(t, "https://github.com/acme/repo.git", cfg.RepositoryURL)
		require.Len(t, cfg.Plugins.Publish, 1)
		assert.Equal(t, "@semantic-release/github", cfg.Plugins.Publish[0].Path)
	})

	t.Run("should fail validation when tagFormat is missing", func(t *testing.T) {
		t.Parallel()

		// given
		dir := t.TempDir()
		path := filepath.Join(dir, "semrelease.yaml")
		require.NoError(t, os.WriteFile(path, []byte("branches:\n  - name: master\n"), 0o600))

		// when
		_, err := config.Load(path)

		// then
		require.Error(t, err)
	})
}
