package gitfacade_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xinchaobeta/semantic-release/internal/gitfacade"
	"github.com/xinchaobeta/semantic-release/internal/gitfixture"
)

func TestTags(t *testing.T) {
	t.Parallel()

	t.Run("should list every tag and resolve its head", func(t *testing.T) {
		t.Parallel()

		// given
		repo := gitfixture.New()
		repo.Commit("chore: init")
		repo.Tag("v1.0.0")
		facade := gitfacade.FromRepository(repo.Repository)

		// when
		tags, err := facade.Tags()

		// then
		require.NoError(t, err)
		require.Contains(t, tags, "v1.0.0")
		head, ok := facade.TagHead("v1.0.0")
		require.True(t, ok)
		assert.Equal(t, repo.Commits[0].String(), head)
	})

	t.Run("should report ok=false for a tag that doesn't exist", func(t *testing.T) {
		t.Parallel()

		// given
		repo := gitfixture.New()
		repo.Commit("chore: init")
		facade := gitfacade.FromRepository(repo.Repository)

		// when
		_, ok := facade.TagHead("v9.9.9")

		// then
		assert.False(t, ok)
	})
}

func TestIsAncestor(t *testing.T) {
	t.Parallel()

	t.Run("should report true when ref precedes branch tip", func(t *testing.T) {
		t.Parallel()

		// given
		repo := gitfixture.New()
		first := repo.Commit("chore: init")
		repo.Commit("feat: add thing")
		facade := gitfacade.FromRepository(repo.Repository)

		// when
		ok, err := facade.IsAncestor(context.Background(), first.String(), "main")

		// then
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("should report false for a ref not in the repo", func(t *testing.T) {
		t.Parallel()

		// given
		repo := gitfixture.New()
		repo.Commit("chore: init")
		facade := gitfacade.FromRepository(repo.Repository)

		// when
		ok, err := facade.IsAncestor(context.Background(), "deadbeefdeadbeefdeadbeefdeadbeefdeadbeef", "main")

		// then
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestTagAndPush(t *testing.T) {
	t.Parallel()

	t.Run("should create a local tag at HEAD", func(t *testing.T) {
		t.Parallel()

		// given
		repo := gitfixture.New()
		repo.Commit("chore: init")
		facade := gitfacade.FromRepository(repo.Repository)

		// when
		err := facade.Tag("v2.0.0", "")

		// then
		require.NoError(t, err)
		head, ok := facade.TagHead("v2.0.0")
		require.True(t, ok)
		assert.Equal(t, repo.Commits[0].String(), head)
	})
}

func TestCheckRefFormat(t *testing.T) {
	t.Parallel()

	t.Run("should accept an ordinary branch name", func(t *testing.T) {
		t.Parallel()

		assert.True(t, gitfacade.CheckRefFormat("heads", "release/1.x"))
	})

	t.Run("should reject a name with a space", func(t *testing.T) {
		t.Parallel()

		assert.False(t, gitfacade.CheckRefFormat("tags", "v1.0.0 final"))
	})

	t.Run("should reject a name with a double-dot", func(t *testing.T) {
		t.Parallel()

		assert.False(t, gitfacade.CheckRefFormat("heads", "release..next"))
	})
}

func TestCommitsBetween(t *testing.T) {
	t.Parallel()

	t.Run("should return commits oldest-first excluding the since boundary", func(t *testing.T) {
		t.Parallel()

		// given
		repo := gitfixture.New()
		first := repo.Commit("chore: init")
		repo.Commit("feat: one")
		repo.Commit("feat: two")
		facade := gitfacade.FromRepository(repo.Repository)

		// when
		commits, err := facade.CommitsBetween(context.Background(), first.String(), "main")

		// then
		require.NoError(t, err)
		require.Len(t, commits, 2)
		assert.Equal(t, "feat: one", commits[0].Message)
		assert.Equal(t, "feat: two", commits[1].Message)
	})

	t.Run("should return every commit when since is empty", func(t *testing.T) {
		t.Parallel()

		// given
		repo := gitfixture.New()
		repo.Commit("chore: init")
		repo.Commit("feat: one")
		facade := gitfacade.FromRepository(repo.Repository)

		// when
		commits, err := facade.CommitsBetween(context.Background(), "", "main")

		// then
		require.NoError(t, err)
		assert.Len(t, commits, 2)
	})
}
