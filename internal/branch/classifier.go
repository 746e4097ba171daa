// Package branch validates the user's branch configuration, partitions it
// into the three tagged variants (release, maintenance, prerelease), and
// computes each branch's semver range.
package branch

import (
	"fmt"
	"regexp"
	"sort"

	"github.com/xinchaobeta/semantic-release/internal/domain"
	releaseerrors "github.com/xinchaobeta/semantic-release/internal/errors"
	"github.com/xinchaobeta/semantic-release/internal/gitfacade"
	"github.com/xinchaobeta/semantic-release/internal/semver"
)

var (
	maintenanceMajorOnly = regexp.MustCompile(`^(\d+)\.x$`)
	maintenanceMajorMinor = regexp.MustCompile(`^(\d+)\.(\d+)\.x$`)
	safePrereleaseID      = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9.-]*$`)
)

const (
	minReleaseBranches = 1
	maxReleaseBranches = 7
)

// bucket is the numeric range implied by a maintenance branch's name.
type bucket struct {
	lower semver.Version
	upper semver.Version // zero means unbounded, never the case for maintenance
}

type classified struct {
	spec       domain.BranchSpec
	typ        domain.BranchType
	bucket     bucket // maintenance only
	prereleaseID string // prerelease only, resolved
}

// Classify validates specs and returns normalised branches, each populated
// with its computed range, channel and tags. tagsByBranch supplies every
// tag already assigned to that branch name by TagIndex.
func Classify(specs []domain.BranchSpec, tagsByBranch map[string][]domain.Tag) ([]domain.Branch, error) {
	agg := releaseerrors.NewAggregate()

	validateNames(specs, agg)
	if !agg.Empty() {
		return nil, agg
	}

	items := make([]classified, len(specs))
	for i, spec := range specs {
		items[i] = partition(spec)
	}

	validateMaintenance(items, agg)
	validatePrerelease(items, agg)
	validateReleaseCount(items, agg)
	if !agg.Empty() {
		return nil, agg
	}

	ordered := order(items)
	return computeRanges(ordered, tagsByBranch), nil
}

func validateNames(specs []domain.BranchSpec, agg *releaseerrors.Aggregate) {
	seen := make(map[string]bool, len(specs))
	for _, spec := range specs {
		if spec.Name == "" {
			agg.Add(releaseerrors.New(releaseerrors.EInvalidBranch, "branch entry missing a name", ""))
			continue
		}
		if seen[spec.Name] {
			agg.Add(releaseerrors.New(releaseerrors.EDuplicateBranches, "duplicate branch name", "`"+spec.Name+"`"))
			continue
		}
		seen[spec.Name] = true
		if !gitfacade.CheckRefFormat("heads", spec.Name) {
			agg.Add(releaseerrors.New(releaseerrors.EInvalidBranchName, "branch name is not a valid git ref", "`"+spec.Name+"`"))
		}
	}
}

func partition(spec domain.BranchSpec) classified {
	if m := maintenanceMajorMinor.FindStringSubmatch(spec.Name); m != nil {
		return classified{spec: spec, typ: domain.BranchMaintenance, bucket: bucketFromMatch(m[1], m[2])}
	}
	if m := maintenanceMajorOnly.FindStringSubmatch(spec.Name); m != nil {
		return classified{spec: spec, typ: domain.BranchMaintenance, bucket: bucketFromMatch(m[1], "")}
	}
	if spec.Prerelease != "" {
		id := spec.Prerelease
		if id == "true" {
			id = spec.Name
		}
		return classified{spec: spec, typ: domain.BranchPrerelease, prereleaseID: id}
	}
	return classified{spec: spec, typ: domain.BranchRelease}
}

func bucketFromMatch(major, minor string) bucket {
	if minor == "" {
		lower := semver.MustParse(fmt.Sprintf("%s.0.0", major))
		upper := semver.MustParse(fmt.Sprintf("%d.0.0", mustAtoi(major)+1))
		return bucket{lower: lower, upper: upper}
	}
	lower := semver.MustParse(fmt.Sprintf("%s.%s.0", major, minor))
	upper := semver.MustParse(fmt.Sprintf("%s.%d.0", major, mustAtoi(minor)+1))
	return bucket{lower: lower, upper: upper}
}

func mustAtoi(s string) int {
	n := 0
	for _, r := range s {
		n = n*10 + int(r-'0')
	}
	return n
}

func validateMaintenance(items []classified, agg *releaseerrors.Aggregate) {
	var maint []classified
	for _, it := range items {
		if it.typ == domain.BranchMaintenance {
			maint = append(maint, it)
		}
	}
	for _, it := range maint {
		if it.spec.Range == "" {
			continue
		}
		lower, upper, err := parseRangeLiteral(it.spec.Range)
		if err != nil || !lower.Equal(it.bucket.lower) || !upper.Equal(it.bucket.upper) {
			agg.Add(releaseerrors.New(releaseerrors.EMaintenanceBranch,
				"explicit range does not match the range implied by the branch name",
				"`"+it.spec.Name+"`: range `"+it.spec.Range+"`"))
		}
	}
	for i := 0; i < len(maint); i++ {
		for j := i + 1; j < len(maint); j++ {
			if bucketsOverlap(maint[i].bucket, maint[j].bucket) {
				agg.Add(releaseerrors.New(releaseerrors.EMaintenanceBranches,
					"maintenance branch ranges overlap",
					"`"+maint[i].spec.Name+"` and `"+maint[j].spec.Name+"`"))
			}
		}
	}
}

func bucketsOverlap(a, b bucket) bool {
	return a.lower.LessThan(b.upper) && b.lower.LessThan(a.upper)
}

// parseRangeLiteral parses a ">=L <U" style range string back into bounds,
// so an explicitly configured maintenance range can be checked against the
// name-implied bucket.
func parseRangeLiteral(literal string) (semver.Version, semver.Version, error) {
	var lowerStr, upperStr string
	_, err := fmt.Sscanf(literal, ">=%s <%s", &lowerStr, &upperStr)
	if err != nil {
		_, err = fmt.Sscanf(literal, ">=%s", &lowerStr)
		if err != nil {
			return semver.Version{}, semver.Version{}, err
		}
		upperStr = ""
	}
	lower, err := semver.Parse(lowerStr)
	if err != nil {
		return semver.Version{}, semver.Version{}, err
	}
	if upperStr == "" {
		return lower, semver.Version{}, nil
	}
	upper, err := semver.Parse(upperStr)
	if err != nil {
		return semver.Version{}, semver.Version{}, err
	}
	return lower, upper, nil
}

func validatePrerelease(items []classified, agg *releaseerrors.Aggregate) {
	seen := map[string]bool{}
	for _, it := range items {
		if it.typ != domain.BranchPrerelease {
			continue
		}
		if it.prereleaseID == "" || !safePrereleaseID.MatchString(it.prereleaseID) {
			agg.Add(releaseerrors.New(releaseerrors.EPrereleaseBranch,
				"prerelease id must be a non-empty string of safe characters",
				"`"+it.spec.Name+"`"))
			continue
		}
		if seen[it.prereleaseID] {
			agg.Add(releaseerrors.New(releaseerrors.EPrereleaseBranch,
				"prerelease id must be unique across branches",
				"`"+it.prereleaseID+"`"))
			continue
		}
		seen[it.prereleaseID] = true
	}
}

func validateReleaseCount(items []classified, agg *releaseerrors.Aggregate) {
	count := 0
	for _, it := range items {
		if it.typ == domain.BranchRelease {
			count++
		}
	}
	if count < minReleaseBranches || count > maxReleaseBranches {
		agg.Add(releaseerrors.New(releaseerrors.EReleaseBranches,
			"there must be between one and seven release branches",
			fmt.Sprintf("found %d", count)))
	}
}

// order arranges branches maintenance (ascending major.minor) → release (as
// configured) → prerelease (as configured).
func order(items []classified) []classified {
	var maint, rel, pre []classified
	for _, it := range items {
		switch it.typ {
		case domain.BranchMaintenance:
			maint = append(maint, it)
		case domain.BranchPrerelease:
			pre = append(pre, it)
		default:
			rel = append(rel, it)
		}
	}
	sort.SliceStable(maint, func(i, j int) bool {
		return maint[i].bucket.lower.LessThan(maint[j].bucket.lower)
	})
	out := make([]classified, 0, len(items))
	out = append(out, maint...)
	out = append(out, rel...)
	out = append(out, pre...)
	return out
}

// computeRanges assigns each ordered branch a version range: its lower bound
// is the highest tagged version on it or any lower branch (default 1.0.0);
// its upper bound is the next branch's lower bound, or unbounded for the
// last. Maintenance branches additionally intersect their bucket.
func computeRanges(ordered []classified, tagsByBranch map[string][]domain.Tag) []domain.Branch {
	lowers := make([]semver.Version, len(ordered))
	runningMax := semver.MustParse("1.0.0")
	for i, it := range ordered {
		if highest, ok := highestTag(tagsByBranch[it.spec.Name]); ok && highest.GreaterThan(runningMax) {
			runningMax = highest
		}
		lowers[i] = runningMax
	}

	branches := make([]domain.Branch, len(ordered))
	firstReleaseSeen := false
	for i, it := range ordered {
		lower := lowers[i]
		var upper semver.Version
		if i+1 < len(ordered) {
			upper = lowers[i+1]
		}

		if it.typ == domain.BranchMaintenance {
			if lower.LessThan(it.bucket.lower) {
				lower = it.bucket.lower
			}
			if upper.Zero() || it.bucket.upper.LessThan(upper) {
				upper = it.bucket.upper
			}
		}

		rng, _ := semver.NewRange(lower, upper)

		channel := it.spec.Channel
		if channel == "" {
			if it.typ == domain.BranchRelease && !firstReleaseSeen {
				channel = domain.DefaultChannel
			} else {
				channel = it.spec.Name
			}
		}
		if it.typ == domain.BranchRelease {
			firstReleaseSeen = true
		}

		branches[i] = domain.Branch{
			Name:       it.spec.Name,
			Type:       it.typ,
			Channel:    channel,
			Range:      rng,
			Tags:       tagsByBranch[it.spec.Name],
			Prerelease: it.prereleaseID,
			MergeRange: it.spec.MergeRange,
		}
	}
	return branches
}

func highestTag(tags []domain.Tag) (semver.Version, bool) {
	var best semver.Version
	found := false
	for _, t := range tags {
		if !found || t.Version.GreaterThan(best) {
			best = t.Version
			found = true
		}
	}
	return best, found
}
