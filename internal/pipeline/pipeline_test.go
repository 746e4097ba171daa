package pipeline_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xinchaobeta/semantic-release/internal/domain"
	"github.com/xinchaobeta/semantic-release/internal/pipeline"
	"github.com/xinchaobeta/semantic-release/internal/semver"
	"github.com/xinchaobeta/semantic-release/internal/tagindex"
)

// stubGit is a hand-written test double, not a mocking framework.
type stubGit struct {
	head        string
	taggedNames []string
	pushedBranches []string
}

func (s *stubGit) Tag(name, ref string) error {
	s.taggedNames = append(s.taggedNames, name)
	return nil
}

func (s *stubGit) Push(ctx context.Context, url, branch string) error {
	s.pushedBranches = append(s.pushedBranches, branch)
	return nil
}

func (s *stubGit) Head() (string, error) { return s.head, nil }

func (s *stubGit) CommitMessages(ctx context.Context, since, until string) ([]string, error) {
	return []string{"feat: add a thing"}, nil
}

func TestDriverRun(t *testing.T) {
	t.Parallel()

	t.Run("should create and push a tag for a clean minor release", func(t *testing.T) {
		t.Parallel()

		// given
		format, err := tagindex.NewFormat("v${version}")
		require.NoError(t, err)
		git := &stubGit{head: "c2"}

		master := domain.Branch{
			Name:    "master",
			Type:    domain.BranchRelease,
			Channel: domain.DefaultChannel,
			Range:   mustRange("1.0.0", ""),
			Tags: []domain.Tag{
				{RawName: "v1.0.0", Version: semver.MustParse("1.0.0"), Channel: domain.DefaultChannel, GitHead: "c1"},
			},
		}

		publishCalled := 0
		successCalled := 0
		cfg := pipeline.Config{
			AnalyzeCommits: []pipeline.Plugin{
				func(ctx context.Context, pctx *pipeline.Context) (any, error) { return "minor", nil },
			},
			GenerateNotes: []pipeline.Plugin{
				func(ctx context.Context, pctx *pipeline.Context) (any, error) { return "## Notes", nil },
			},
			Publish: []pipeline.Plugin{
				func(ctx context.Context, pctx *pipeline.Context) (any, error) {
					publishCalled++
					assert.NotEmpty(t, pctx.NextRelease.GitTag)
					return pipeline.Release{Channel: "", Version: pctx.NextRelease.Version.String()}, nil
				},
			},
			Success: []pipeline.Plugin{
				func(ctx context.Context, pctx *pipeline.Context) (any, error) {
					successCalled++
					assert.Len(t, pctx.Releases, 1)
					return nil, nil
				},
			},
		}

		driver := &pipeline.Driver{Git: git, Format: format}

		// when
		released, err := driver.Run(context.Background(), nil, master, []domain.Branch{master}, nil, nil, cfg)

		// then
		require.NoError(t, err)
		assert.True(t, released)
		assert.Equal(t, 1, publishCalled)
		assert.Equal(t, 1, successCalled)
		assert.Contains(t, git.taggedNames, "v1.1.0")
		assert.Contains(t, git.pushedBranches, "master")
	})

	t.Run("should return false without publishing when analyzeCommits yields no bump", func(t *testing.T) {
		t.Parallel()

		// given
		format, err := tagindex.NewFormat("v${version}")
		require.NoError(t, err)
		git := &stubGit{head: "c1"}
		master := domain.Branch{Name: "master", Type: domain.BranchRelease, Range: mustRange("1.0.0", "")}

		publishCalled := 0
		cfg := pipeline.Config{
			AnalyzeCommits: []pipeline.Plugin{
				func(ctx context.Context, pctx *pipeline.Context) (any, error) { return nil, nil },
			},
			Publish: []pipeline.Plugin{
				func(ctx context.Context, pctx *pipeline.Context) (any, error) {
					publishCalled++
					return nil, nil
				},
			},
		}
		driver := &pipeline.Driver{Git: git, Format: format}

		// when
		released, err := driver.Run(context.Background(), nil, master, []domain.Branch{master}, nil, nil, cfg)

		// then
		require.NoError(t, err)
		assert.False(t, released)
		assert.Equal(t, 0, publishCalled)
	})
}

func TestResolveBump(t *testing.T) {
	t.Parallel()

	t.Run("should return the winning bump without tagging or pushing", func(t *testing.T) {
		t.Parallel()

		// given
		git := &stubGit{head: "c2"}
		master := domain.Branch{
			Name:    "master",
			Type:    domain.BranchRelease,
			Channel: domain.DefaultChannel,
			Tags: []domain.Tag{
				{RawName: "v1.0.0", Version: semver.MustParse("1.0.0"), Channel: domain.DefaultChannel, GitHead: "c1"},
			},
		}
		plugins := []pipeline.Plugin{
			func(ctx context.Context, pctx *pipeline.Context) (any, error) { return "minor", nil },
		}

		// when
		bump, err := pipeline.ResolveBump(context.Background(), git, nil, master, []domain.Branch{master}, "c2", plugins)

		// then
		require.NoError(t, err)
		assert.Equal(t, semver.Minor, bump)
		assert.Empty(t, git.taggedNames)
		assert.Empty(t, git.pushedBranches)
	})

	t.Run("should return an empty bump when no plugin yields one", func(t *testing.T) {
		t.Parallel()

		// given
		git := &stubGit{head: "c1"}
		master := domain.Branch{Name: "master", Type: domain.BranchRelease}
		plugins := []pipeline.Plugin{
			func(ctx context.Context, pctx *pipeline.Context) (any, error) { return nil, nil },
		}

		// when
		bump, err := pipeline.ResolveBump(context.Background(), git, nil, master, []domain.Branch{master}, "c1", plugins)

		// then
		require.NoError(t, err)
		assert.Empty(t, bump)
	})
}

func mustRange(lower, upper string) semver.Range {
	var u semver.Version
	if upper != "" {
		u = semver.MustParse(upper)
	}
	r, err := semver.NewRange(semver.MustParse(lower), u)
	if err != nil {
		panic(err)
	}
	return r
}
