package semver

import (
	"fmt"

	mmsemver "github.com/Masterminds/semver/v3"
)

// Range is a semver range of the shape ">=L <U", where U may be absent to
// mean "+infinity". The branch classifier computes one Range per branch.
type Range struct {
	lower      Version
	upper      Version // Zero() == true means unbounded
	constraint *mmsemver.Constraints
}

// NewRange builds the range [lower, upper). Pass a zero Version for upper to
// leave it unbounded.
func NewRange(lower, upper Version) (Range, error) {
	expr := fmt.Sprintf(">=%s", lower.String())
	if !upper.Zero() {
		expr = fmt.Sprintf("%s, <%s", expr, upper.String())
	}
	c, err := mmsemver.NewConstraint(expr)
	if err != nil {
		return Range{}, fmt.Errorf("invalid range %q: %w", expr, err)
	}
	return Range{lower: lower, upper: upper, constraint: c}, nil
}

// Lower returns the inclusive lower bound.
func (r Range) Lower() Version { return r.lower }

// Upper returns the exclusive upper bound; Zero() is true when unbounded.
func (r Range) Upper() Version { return r.upper }

// Contains reports whether v falls within the range. Masterminds
// constraints reject prerelease versions outside an explicit prerelease
// constraint by default, so prerelease versions are checked against their
// stable-equivalent bounds instead.
func (r Range) Contains(v Version) bool {
	if v.IsPrerelease() {
		stable, err := Parse(fmt.Sprintf("%d.%d.%d", v.Major(), v.Minor(), v.Patch()))
		if err != nil {
			return false
		}
		return !stable.LessThan(r.lower) && (r.upper.Zero() || stable.LessThan(r.upper))
	}
	return r.constraint.Check(v.v)
}

// String renders the range the way it was constructed, e.g. ">=1.0.0 <2.0.0".
func (r Range) String() string {
	if r.upper.Zero() {
		return fmt.Sprintf(">=%s", r.lower.String())
	}
	return fmt.Sprintf(">=%s <%s", r.lower.String(), r.upper.String())
}
