package plan_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xinchaobeta/semantic-release/internal/domain"
	"github.com/xinchaobeta/semantic-release/internal/plan"
	"github.com/xinchaobeta/semantic-release/internal/semver"
	"github.com/xinchaobeta/semantic-release/internal/tagindex"
)

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

func TestBackPorts(t *testing.T) {
	t.Parallel()

	t.Run("should back-port a version tagged on a higher channel", func(t *testing.T) {
		t.Parallel()

		// given
		format, err := tagindex.NewFormat("v${version}")
		require.NoError(t, err)

		master := domain.Branch{
			Name:    "master",
			Type:    domain.BranchRelease,
			Channel: domain.DefaultChannel,
			Range:   mustRange("1.0.0", ""),
			Tags: []domain.Tag{
				{RawName: "v1.0.0", Version: semver.MustParse("1.0.0"), Channel: domain.DefaultChannel, GitHead: "c1"},
				{RawName: "v1.0.0@next", Version: semver.MustParse("1.0.0"), Channel: "next", GitHead: "c1"},
				{RawName: "v2.0.0@next", Version: semver.MustParse("2.0.0"), Channel: "next", GitHead: "c2"},
			},
		}
		next := domain.Branch{Name: "next", Type: domain.BranchRelease, Channel: "next"}

		// when
		entries, err := plan.BackPorts(master, []domain.Branch{next}, format)

		// then
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "2.0.0", entries[0].CurrentRelease.Version.String())
		assert.Equal(t, "next", entries[0].CurrentRelease.Channel)
		assert.Equal(t, "2.0.0", entries[0].NextRelease.Version.String())
		assert.Equal(t, domain.DefaultChannel, entries[0].NextRelease.Channel)
		assert.Equal(t, "v2.0.0", entries[0].NextRelease.GitTag)
	})

	t.Run("should not back-port a version already released on the active channel", func(t *testing.T) {
		t.Parallel()

		// given
		format, err := tagindex.NewFormat("v${version}")
		require.NoError(t, err)

		master := domain.Branch{
			Name:    "master",
			Channel: domain.DefaultChannel,
			Tags: []domain.Tag{
				{RawName: "v1.0.0", Version: semver.MustParse("1.0.0"), Channel: domain.DefaultChannel},
				{RawName: "v1.0.0@next", Version: semver.MustParse("1.0.0"), Channel: "next"},
			},
		}
		next := domain.Branch{Name: "next", Type: domain.BranchRelease, Channel: "next"}

		// when
		entries, err := plan.BackPorts(master, []domain.Branch{next}, format)

		// then
		require.NoError(t, err)
		assert.Empty(t, entries)
	})
}

func TestNextRelease(t *testing.T) {
	t.Parallel()

	t.Run("should compute a minor bump from the last release", func(t *testing.T) {
		t.Parallel()

		// given
		format, err := tagindex.NewFormat("v${version}")
		require.NoError(t, err)
		master := domain.Branch{
			Name:    "master",
			Type:    domain.BranchRelease,
			Channel: domain.DefaultChannel,
			Range:   mustRange("1.0.0", ""),
			Tags: []domain.Tag{
				{RawName: "v1.0.0", Version: semver.MustParse("1.0.0"), Channel: domain.DefaultChannel, GitHead: "c1"},
			},
		}

		// when
		_, release, ok, err := plan.NextRelease(master, semver.Minor, "c2", format)

		// then
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "1.1.0", release.Version.String())
		assert.Equal(t, "v1.1.0", release.GitTag)
	})

	t.Run("should report no release for an empty bump", func(t *testing.T) {
		t.Parallel()

		// given
		format, err := tagindex.NewFormat("v${version}")
		require.NoError(t, err)
		master := domain.Branch{Name: "master", Type: domain.BranchRelease, Range: mustRange("1.0.0", "")}

		// when
		_, _, ok, err := plan.NextRelease(master, "", "c1", format)

		// then
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("should fail when the next version falls outside the branch range", func(t *testing.T) {
		t.Parallel()

		// given
		format, err := tagindex.NewFormat("v${version}")
		require.NoError(t, err)
		lts := domain.Branch{
			Name:    "1.x",
			Type:    domain.BranchMaintenance,
			Channel: "1.x",
			Range:   mustRange("1.0.0", "2.0.0"),
			Tags: []domain.Tag{
				{RawName: "v1.1.0", Version: semver.MustParse("1.1.0"), Channel: "1.x", GitHead: "c1"},
			},
		}

		// when
		_, _, _, err = plan.NextRelease(lts, semver.Major, "c2", format)

		// then
		require.Error(t, err)
	})

	t.Run("should bump the prerelease counter when one already exists", func(t *testing.T) {
		t.Parallel()

		// given
		format, err := tagindex.NewFormat("v${version}")
		require.NoError(t, err)
		betaBranch := domain.Branch{
			Name:       "beta",
			Type:       domain.BranchPrerelease,
			Channel:    "beta",
			Prerelease: "beta",
			Range:      mustRange("1.0.0", ""),
			Tags: []domain.Tag{
				{RawName: "v2.0.0-beta.1", Version: semver.MustParse("2.0.0-beta.1"), Channel: "beta", GitHead: "c1"},
			},
		}

		// when
		_, release, ok, err := plan.NextRelease(betaBranch, semver.Patch, "c2", format)

		// then
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "2.0.0-beta.2", release.Version.String())
	})
}
