// Package tagindex parses raw git tags against a tagFormat template and
// assigns each one to every branch whose history contains it.
package tagindex

import (
	"context"
	"regexp"
	"strings"

	xmodsemver "golang.org/x/mod/semver"

	releaseerrors "github.com/xinchaobeta/semantic-release/internal/errors"
	"github.com/xinchaobeta/semantic-release/internal/gitfacade"
	"github.com/xinchaobeta/semantic-release/internal/semver"
)

const versionPlaceholder = "${version}"

// GitFacade is the subset of gitfacade.Facade that TagIndex depends on.
type GitFacade interface {
	Tags() ([]string, error)
	TagHead(name string) (string, bool)
	IsAncestor(ctx context.Context, ref, branch string) (bool, error)
}

// Tag is a parsed, not-yet-branch-assigned tag.
type Tag struct {
	RawName string
	Version semver.Version
	Channel string
	GitHead string
}

// Format wraps a validated tagFormat template.
type Format struct {
	raw    string
	prefix string
	suffix string
	re     *regexp.Regexp
}

// NewFormat validates tagFormat and returns a reusable Format. It rejects
// templates whose rendered form doesn't contain the placeholder exactly
// once (ETAGNOVERSION), and templates whose rendered sentinel isn't a
// legal git tag name (EINVALIDTAGFORMAT).
func NewFormat(tagFormat string) (*Format, error) {
	rendered := strings.ReplaceAll(tagFormat, versionPlaceholder, " ")
	if strings.Count(rendered, " ") != 1 {
		return nil, releaseerrors.New(
			releaseerrors.ETagNoVersion,
			"tagFormat must contain the ${version} placeholder exactly once",
			"`tagFormat`: `"+tagFormat+"`",
		)
	}

	sentinel := render(tagFormat, "0.0.0")
	if !gitfacade.CheckRefFormat("tags", sentinel) {
		return nil, releaseerrors.New(
			releaseerrors.EInvalidTagFormat,
			"tagFormat does not render to a valid git tag name",
			"rendered sentinel: `"+sentinel+"`",
		)
	}

	idx := strings.Index(tagFormat, versionPlaceholder)
	prefix := tagFormat[:idx]
	suffix := tagFormat[idx+len(versionPlaceholder):]

	return &Format{
		raw:    tagFormat,
		prefix: prefix,
		suffix: suffix,
		re:     regexp.MustCompile("^" + regexp.QuoteMeta(prefix) + "(.+)" + regexp.QuoteMeta(suffix) + "$"),
	}, nil
}

// Render produces the tag name for version on the given channel. An empty
// channel renders without the "@<channel>" suffix.
func (f *Format) Render(version string, channel string) string {
	return render(f.raw, version, channel)
}

func render(tagFormat, version string, channel ...string) string {
	out := strings.ReplaceAll(tagFormat, versionPlaceholder, version)
	if len(channel) > 0 && channel[0] != "" {
		out += "@" + channel[0]
	}
	return out
}

// Parse attempts to recover {version, channel} from a raw tag name. ok is
// false when the tag doesn't match the format or its version segment isn't
// valid semver; an unparseable tag is silently ignored, never a hard
// failure.
func (f *Format) Parse(rawName string) (Tag, bool) {
	name := rawName
	channel := ""
	if idx := strings.LastIndex(name, "@"); idx >= 0 {
		channel = name[idx+1:]
		name = name[:idx]
	}

	matches := f.re.FindStringSubmatch(name)
	if matches == nil {
		// The tag might not have a channel suffix at all; retry the full
		// raw name against the format before giving up.
		matches = f.re.FindStringSubmatch(rawName)
		if matches == nil {
			return Tag{}, false
		}
		channel = ""
	}

	versionStr := matches[1]
	if !xmodsemver.IsValid("v" + strings.TrimPrefix(versionStr, "v")) {
		// cheap pre-filter before paying for a full Masterminds parse.
		return Tag{}, false
	}

	v, err := semver.Parse(versionStr)
	if err != nil {
		return Tag{}, false
	}

	return Tag{RawName: rawName, Version: v, Channel: channel}, true
}

// BranchTip is the minimal branch reference TagIndex needs to test
// ancestry against.
type BranchTip struct {
	Name string
	Ref  string // ref to test ancestry against, e.g. the branch name itself
}

// Build parses every raw tag, resolves its commit, and assigns it to every
// branch whose history contains it. The result maps branch name to its
// tags, ordered by version ascending.
func Build(ctx context.Context, git GitFacade, format *Format, branches []BranchTip) (map[string][]Tag, error) {
	rawTags, err := git.Tags()
	if err != nil {
		return nil, err
	}

	result := make(map[string][]Tag, len(branches))
	for _, raw := range rawTags {
		tag, ok := format.Parse(raw)
		if !ok {
			continue // unparseable tags are silently ignored
		}

		head, ok := git.TagHead(raw)
		if !ok {
			continue // missing gitHead is ignored, fetch should have fixed this
		}
		tag.GitHead = head

		for _, b := range branches {
			isAncestor, aErr := git.IsAncestor(ctx, head, b.Ref)
			if aErr != nil {
				return nil, aErr
			}
			if isAncestor {
				result[b.Name] = append(result[b.Name], tag)
			}
		}
	}

	for name := range result {
		tags := result[name]
		sortTagsAscending(tags)
		result[name] = tags
	}
	return result, nil
}

func sortTagsAscending(tags []Tag) {
	for i := 1; i < len(tags); i++ {
		for j := i; j > 0 && tags[j-1].Version.GreaterThan(tags[j].Version); j-- {
			tags[j-1], tags[j] = tags[j], tags[j-1]
		}
	}
}
