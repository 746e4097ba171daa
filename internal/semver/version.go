// Package semver wraps Masterminds/semver with the domain-specific
// operations the release-orchestration core needs: typed increments,
// prerelease-segment bumps, and a semver-diff classifier.
package semver

import (
	"fmt"
	"strconv"
	"strings"

	mmsemver "github.com/Masterminds/semver/v3"
)

// BumpType is the kind of version increment a release represents.
type BumpType string

const (
	// Major is an incompatible API change.
	Major BumpType = "major"
	// Minor is a backwards-compatible feature addition.
	Minor BumpType = "minor"
	// Patch is a backwards-compatible bug fix.
	Patch BumpType = "patch"
	// PrereleaseBump only advances the prerelease segment (e.g. beta.1 -> beta.2).
	PrereleaseBump BumpType = "prerelease-bump"
)

// Version is a semver 2.0.0 value.
type Version struct {
	v *mmsemver.Version
}

// Parse parses a semver 2.0.0 string. Leading "v" is tolerated.
func Parse(raw string) (Version, error) {
	v, err := mmsemver.NewVersion(raw)
	if err != nil {
		return Version{}, fmt.Errorf("invalid semver %q: %w", raw, err)
	}
	return Version{v: v}, nil
}

// MustParse parses raw and panics on failure; for use with known-good constants.
func MustParse(raw string) Version {
	v, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return v
}

// Zero reports whether this Version is the zero value (no version parsed).
func (v Version) Zero() bool { return v.v == nil }

// String renders the version without a leading "v".
func (v Version) String() string {
	if v.v == nil {
		return ""
	}
	return v.v.String()
}

// Major returns the major component.
func (v Version) Major() int64 { return int64(v.v.Major()) }

// Minor returns the minor component.
func (v Version) Minor() int64 { return int64(v.v.Minor()) }

// Patch returns the patch component.
func (v Version) Patch() int64 { return int64(v.v.Patch()) }

// Prerelease returns the prerelease identifier string, empty if none.
func (v Version) Prerelease() string { return v.v.Prerelease() }

// IsPrerelease reports whether the version carries a prerelease segment.
func (v Version) IsPrerelease() bool { return v.v.Prerelease() != "" }

// Compare returns -1, 0 or 1 comparing v to other, per semver 2.0.0 precedence.
func (v Version) Compare(other Version) int { return v.v.Compare(other.v) }

// LessThan reports whether v orders before other.
func (v Version) LessThan(other Version) bool { return v.Compare(other) < 0 }

// GreaterThan reports whether v orders after other.
func (v Version) GreaterThan(other Version) bool { return v.Compare(other) > 0 }

// Equal reports whether v and other have identical precedence.
func (v Version) Equal(other Version) bool { return v.Compare(other) == 0 }

// Bump returns the next version for the given bump type, discarding any
// existing prerelease/build metadata, per semver 2.0.0 increment rules.
func (v Version) Bump(t BumpType) Version {
	switch t {
	case Major:
		nv := v.v.IncMajor()
		return Version{v: &nv}
	case Minor:
		nv := v.v.IncMinor()
		return Version{v: &nv}
	case Patch:
		nv := v.v.IncPatch()
		return Version{v: &nv}
	default:
		return v
	}
}

// WithPrerelease returns a copy of v with its prerelease segment set to
// "<id>.<n>", e.g. WithPrerelease("beta", 0) => "1.0.0-beta.0".
func (v Version) WithPrerelease(id string, n int) Version {
	nv, err := v.v.SetPrerelease(fmt.Sprintf("%s.%d", id, n))
	if err != nil {
		panic(err)
	}
	return Version{v: &nv}
}

// PrereleaseSequence parses the trailing numeric segment of a prerelease
// identifier matching "<id>.<n>"; ok is false if the format doesn't match
// or id differs.
func (v Version) PrereleaseSequence(id string) (n int, ok bool) {
	pr := v.Prerelease()
	prefix := id + "."
	if !strings.HasPrefix(pr, prefix) {
		return 0, false
	}
	rest := strings.TrimPrefix(pr, prefix)
	// Only the leading numeric field matters; ignore any further dotted segments.
	if idx := strings.IndexByte(rest, '.'); idx >= 0 {
		rest = rest[:idx]
	}
	parsed, err := strconv.Atoi(rest)
	if err != nil {
		return 0, false
	}
	return parsed, true
}

// BumpPrerelease increments the trailing numeric prerelease segment in
// place: "1.0.0-beta.1" -> "1.0.0-beta.2".
func (v Version) BumpPrerelease(id string) Version {
	n, ok := v.PrereleaseSequence(id)
	if !ok {
		n = 0
	}
	return v.WithPrerelease(id, n+1)
}

// Diff classifies the change from v (the lower version) to other (the
// higher version) as major, minor or patch. Used by the release planner to
// type back-ported releases when no lastRelease baseline exists below a
// version being added, in which case the change is always treated as major.
func Diff(from, to Version) BumpType {
	switch {
	case from.Zero():
		return Major
	case to.Major() != from.Major():
		return Major
	case to.Minor() != from.Minor():
		return Minor
	default:
		return Patch
	}
}
