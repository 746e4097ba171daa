// Package plan computes the back-port list and the next release version
// for a single active branch.
package plan

import (
	"fmt"
	"sort"

	"github.com/xinchaobeta/semantic-release/internal/domain"
	releaseerrors "github.com/xinchaobeta/semantic-release/internal/errors"
	"github.com/xinchaobeta/semantic-release/internal/semver"
	"github.com/xinchaobeta/semantic-release/internal/tagindex"
)

// BackPorts computes the releases active needs to catch up to every branch
// ranked above it. higher must be every branch ranked above active in
// classifier order; BackPorts itself excludes
// prerelease branches from consideration. Entries are returned in ascending
// version order. A per-entry EINVALIDLTSMERGE failure is collected into the
// returned error rather than aborting the remaining entries.
func BackPorts(active domain.Branch, higher []domain.Branch, format *tagindex.Format) ([]domain.ReleaseToAdd, error) {
	agg := releaseerrors.NewAggregate()
	var out []domain.ReleaseToAdd
	seen := map[string]bool{}

	for _, h := range higher {
		if h.Type == domain.BranchPrerelease {
			continue
		}
		for _, v := range versionsOnChannel(active.Tags, h.Channel) {
			key := v.String() + "|" + h.Channel
			if seen[key] {
				continue
			}
			if _, ok := findTag(active.Tags, v, active.Channel); ok {
				continue // already released on the active channel
			}
			seen[key] = true

			ra := buildReleaseToAdd(active, h, v, format)
			if active.Type == domain.BranchMaintenance && active.MergeRange != "" {
				mergeRange, err := parseMergeRangeLiteral(active.MergeRange)
				if err == nil && !mergeRange.Contains(ra.NextRelease.Version) {
					agg.Add(releaseerrors.New(releaseerrors.EInvalidLTSMerge,
						"back-ported version falls outside the branch's merge range",
						"`"+active.Name+"`: version `"+v.String()+"`"))
					continue
				}
			}
			out = append(out, ra)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].NextRelease.Version.LessThan(out[j].NextRelease.Version)
	})

	if !agg.Empty() {
		return out, agg
	}
	return out, nil
}

func buildReleaseToAdd(active domain.Branch, higher domain.Branch, v semver.Version, format *tagindex.Format) domain.ReleaseToAdd {
	currentTag, _ := findTag(active.Tags, v, higher.Channel)

	last, lastOk := active.TagsBelow(v), false
	lastRelease := domain.LastRelease{}
	bump := semver.Major
	if best, ok := highestOf(last); ok {
		lastOk = true
		lastRelease = domain.LastRelease{Version: best.Version, Channel: best.Channel, GitHead: best.GitHead, GitTag: best.RawName}
		bump = semver.Diff(best.Version, v)
	}
	if !lastOk {
		bump = semver.Diff(semver.Version{}, v)
	}

	return domain.ReleaseToAdd{
		LastRelease: lastRelease,
		CurrentRelease: domain.Release{
			Type:    bump,
			Version: v,
			Channel: higher.Channel,
			GitHead: currentTag.GitHead,
			GitTag:  currentTag.RawName,
		},
		NextRelease: domain.Release{
			Type:    bump,
			Version: v,
			Channel: active.Channel,
			GitHead: currentTag.GitHead,
			GitTag:  format.Render(v.String(), active.Channel),
		},
	}
}

func versionsOnChannel(tags []domain.Tag, channel string) []semver.Version {
	seen := map[string]bool{}
	var out []semver.Version
	for _, t := range tags {
		if t.Channel != channel {
			continue
		}
		key := t.Version.String()
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, t.Version)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LessThan(out[j]) })
	return out
}

func findTag(tags []domain.Tag, v semver.Version, channel string) (domain.Tag, bool) {
	for _, t := range tags {
		if t.Channel == channel && t.Version.Equal(v) {
			return t, true
		}
	}
	return domain.Tag{}, false
}

func highestOf(tags []domain.Tag) (domain.Tag, bool) {
	var best domain.Tag
	found := false
	for _, t := range tags {
		if !found || t.Version.GreaterThan(best.Version) {
			best = t
			found = true
		}
	}
	return best, found
}

// parseMergeRangeLiteral parses a mergeRange configured the same ">=L <U"
// or ">=L" way as an explicit branch range (internal/branch's
// parseRangeLiteral); duplicated here rather than exported across packages
// to keep the two range literal formats independently evolvable.
func parseMergeRangeLiteral(literal string) (semver.Range, error) {
	var lowerStr, upperStr string
	if _, err := fmt.Sscanf(literal, ">=%s <%s", &lowerStr, &upperStr); err != nil {
		if _, err2 := fmt.Sscanf(literal, ">=%s", &lowerStr); err2 != nil {
			return semver.Range{}, err2
		}
		upperStr = ""
	}
	lower, err := semver.Parse(lowerStr)
	if err != nil {
		return semver.Range{}, err
	}
	if upperStr == "" {
		return semver.NewRange(lower, semver.Version{})
	}
	upper, err := semver.Parse(upperStr)
	if err != nil {
		return semver.Range{}, err
	}
	return semver.NewRange(lower, upper)
}

// NextRelease computes the next release version, given the bump
// type already decided by the analyzeCommits plugin step (empty string
// means "no release"). head is the branch's current HEAD commit hash.
//
// ok is false when bump is empty (no release should occur); err is
// EINVALIDNEXTVERSION when the computed version falls outside active's range.
func NextRelease(active domain.Branch, bump semver.BumpType, head string, format *tagindex.Format) (domain.LastRelease, domain.Release, bool, error) {
	last := lastReleaseOf(active)
	if bump == "" {
		return last, domain.Release{}, false, nil
	}

	nextVersion := computeNextVersion(active, last, bump)

	if !active.Range.Contains(nextVersion) {
		return last, domain.Release{}, false, releaseerrors.New(
			releaseerrors.EInvalidNextVersion,
			"computed next version is outside the branch's range",
			"`"+active.Name+"`: "+nextVersion.String()+" not in "+active.Range.String(),
		)
	}

	release := domain.Release{
		Type:    bump,
		Version: nextVersion,
		Channel: active.Channel,
		GitHead: head,
		GitTag:  format.Render(nextVersion.String(), active.Channel),
	}
	return last, release, true, nil
}

func lastReleaseOf(active domain.Branch) domain.LastRelease {
	includePrerelease := active.Type == domain.BranchPrerelease
	tag, ok := active.HighestTag(active.Channel, includePrerelease)
	if !ok {
		return domain.LastRelease{}
	}
	return domain.LastRelease{Version: tag.Version, Channel: tag.Channel, GitHead: tag.GitHead, GitTag: tag.RawName}
}

func computeNextVersion(active domain.Branch, last domain.LastRelease, bump semver.BumpType) semver.Version {
	if active.Type == domain.BranchPrerelease {
		if !last.Empty() && last.Version.IsPrerelease() {
			if _, ok := last.Version.PrereleaseSequence(active.Prerelease); ok {
				return last.Version.BumpPrerelease(active.Prerelease)
			}
		}
		base := semver.MustParse("1.0.0")
		if !last.Empty() {
			base = last.Version.Bump(bump)
		}
		return base.WithPrerelease(active.Prerelease, 0)
	}

	if last.Empty() {
		return semver.MustParse("1.0.0")
	}
	return last.Version.Bump(bump)
}
