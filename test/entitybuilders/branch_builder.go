package entitybuilders //nolint:revive,staticcheck // Test package naming follows established project structure

import (
	testkit "github.com/rios0rios0/testkit/pkg/test"

	"github.com/xinchaobeta/semantic-release/internal/domain"
	"github.com/xinchaobeta/semantic-release/internal/semver"
)

// BranchBuilder helps create test domain.Branch values with a fluent
// interface.
type BranchBuilder struct {
	*testkit.BaseBuilder
	name    string
	kind    domain.BranchType
	channel string
	tags    []domain.Tag
}

// NewBranchBuilder creates a new branch builder with sensible defaults: an
// ordinary release branch named "main" on the default channel.
func NewBranchBuilder() *BranchBuilder {
	return &BranchBuilder{
		BaseBuilder: testkit.NewBaseBuilder(),
		name:        "main",
		kind:        domain.BranchRelease,
		channel:     domain.DefaultChannel,
	}
}

// WithName sets the branch name.
func (b *BranchBuilder) WithName(name string) *BranchBuilder {
	b.name = name
	return b
}

// WithType sets the branch type.
func (b *BranchBuilder) WithType(kind domain.BranchType) *BranchBuilder {
	b.kind = kind
	return b
}

// WithChannel sets the branch's distribution channel.
func (b *BranchBuilder) WithChannel(channel string) *BranchBuilder {
	b.channel = channel
	return b
}

// WithTag appends a tag at version (on this branch's own channel).
func (b *BranchBuilder) WithTag(version, gitHead string) *BranchBuilder {
	b.tags = append(b.tags, domain.Tag{
		RawName: version,
		Version: semver.MustParse(version),
		Channel: b.channel,
		GitHead: gitHead,
	})
	return b
}

// WithChannelTag appends a tag at version on an explicit channel, letting
// tests build branches that carry tags from multiple channels.
func (b *BranchBuilder) WithChannelTag(version, channel, gitHead string) *BranchBuilder {
	b.tags = append(b.tags, domain.Tag{
		RawName: version,
		Version: semver.MustParse(version),
		Channel: channel,
		GitHead: gitHead,
	})
	return b
}

// Build creates the branch (satisfies testkit.Builder interface).
func (b *BranchBuilder) Build() interface{} {
	return b.BuildBranch()
}

// BuildBranch creates the branch with a concrete return type.
func (b *BranchBuilder) BuildBranch() domain.Branch {
	return domain.Branch{
		Name:    b.name,
		Type:    b.kind,
		Channel: b.channel,
		Tags:    b.tags,
	}
}

// Reset clears the builder state, allowing it to be reused.
func (b *BranchBuilder) Reset() testkit.Builder {
	b.BaseBuilder.Reset()
	b.name = "main"
	b.kind = domain.BranchRelease
	b.channel = domain.DefaultChannel
	b.tags = nil
	return b
}

// Clone creates a deep copy of the BranchBuilder.
func (b *BranchBuilder) Clone() testkit.Builder {
	tags := make([]domain.Tag, len(b.tags))
	copy(tags, b.tags)
	return &BranchBuilder{
		BaseBuilder: b.BaseBuilder.Clone().(*testkit.BaseBuilder),
		name:        b.name,
		kind:        b.kind,
		channel:     b.channel,
		tags:        tags,
	}
}
