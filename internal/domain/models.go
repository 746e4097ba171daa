// Package domain holds the data model shared by every release-orchestration
// component: versions, tags, branches and releases.
package domain

import (
	"github.com/xinchaobeta/semantic-release/internal/semver"
)

// DefaultChannel is the unlabelled distribution channel. Every Branch and
// Tag that doesn't carry an explicit channel uses this sentinel so that
// "undefined" participates in equality comparisons the same way an
// explicit channel name does: two tags with the same version but
// different channels are distinct.
const DefaultChannel = ""

// Tag is a single git tag resolved against tagFormat.
type Tag struct {
	RawName string
	Version semver.Version
	Channel string // DefaultChannel when unlabelled
	GitHead string // commit hash the tag points at
}

// BranchType classifies a normalised Branch.
type BranchType string

const (
	// BranchRelease is an ordinary release branch.
	BranchRelease BranchType = "release"
	// BranchMaintenance is a long-term-support branch locked to a numeric range.
	BranchMaintenance BranchType = "maintenance"
	// BranchPrerelease is a branch that publishes prerelease versions.
	BranchPrerelease BranchType = "prerelease"
)

// BranchSpec is the raw, user-supplied branch configuration entry.
type BranchSpec struct {
	Name       string
	Channel    string // optional
	Range      string // optional, maintenance only
	Prerelease string // optional; "true" sentinel is resolved to Name by the loader
	MergeRange string // optional, maintenance only
}

// Branch is a validated, normalised branch, as produced by BranchClassifier.
type Branch struct {
	Name       string
	Type       BranchType
	Channel    string
	Range      semver.Range
	Tags       []Tag // ordered by version ascending
	Prerelease string // set for BranchPrerelease
	MergeRange string // set for BranchMaintenance, optional
}

// HighestTag returns the highest-versioned tag on the branch whose channel
// exactly matches channel (the empty string is itself a distinct channel,
// DefaultChannel), optionally excluding prereleases. ok is false when no
// tag matches.
func (b Branch) HighestTag(channel string, includePrerelease bool) (Tag, bool) {
	var best Tag
	found := false
	for _, t := range b.Tags {
		if t.Channel != channel {
			continue
		}
		if !includePrerelease && t.Version.IsPrerelease() {
			continue
		}
		if !found || t.Version.GreaterThan(best.Version) {
			best = t
			found = true
		}
	}
	return best, found
}

// HighestTagAnyChannel returns the highest-versioned tag on the branch
// across every channel, optionally excluding prereleases. Used by the
// back-port lastRelease rule, which considers any channel valid for the
// branch's type.
func (b Branch) HighestTagAnyChannel(includePrerelease bool) (Tag, bool) {
	var best Tag
	found := false
	for _, t := range b.Tags {
		if !includePrerelease && t.Version.IsPrerelease() {
			continue
		}
		if !found || t.Version.GreaterThan(best.Version) {
			best = t
			found = true
		}
	}
	return best, found
}

// TagsBelow returns every tag on the branch with version strictly less than
// ceiling, across any channel valid for the branch's own channel set.
func (b Branch) TagsBelow(ceiling semver.Version) []Tag {
	var out []Tag
	for _, t := range b.Tags {
		if t.Version.LessThan(ceiling) {
			out = append(out, t)
		}
	}
	return out
}

// LastRelease is the most recent release recorded on a branch. The zero
// value (no Version set) represents the empty LastRelease record: no prior
// release exists.
type LastRelease struct {
	Type    semver.BumpType
	Version semver.Version
	Channel string
	GitHead string
	GitTag  string
}

// Empty reports whether this is the zero-value sentinel (no prior release).
func (l LastRelease) Empty() bool { return l.Version.Zero() }

// Release describes a version being released or back-ported onto a channel.
type Release struct {
	Type    semver.BumpType
	Version semver.Version
	Channel string
	GitHead string
	GitTag  string
	Name    string
	Notes   string
}

// ReleaseToAdd is a back-ported release: a version already released on a
// higher channel that must be re-tagged on the active branch's channel.
type ReleaseToAdd struct {
	LastRelease    LastRelease
	CurrentRelease Release // source: higher channel
	NextRelease    Release // destination: active branch's channel
}
