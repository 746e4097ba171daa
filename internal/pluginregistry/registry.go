// Package pluginregistry resolves the configured plugin-step records into
// callable pipeline.Plugin values. Resolution itself is intentionally
// minimal: a small built-in registry covering the common case, with an
// explicit no-op fallback for anything unrecognised, rather than a full
// module-search/require() mechanism.
package pluginregistry

import (
	"context"
	"regexp"
	"strings"

	"github.com/xinchaobeta/semantic-release/internal/config"
	"github.com/xinchaobeta/semantic-release/internal/pipeline"
	"github.com/xinchaobeta/semantic-release/internal/semver"
)

// builtins maps a plugin step's configured path to a factory producing the
// Plugin it names.
var builtins = map[string]func(config.PluginStep) pipeline.Plugin{
	"conventional-commits": func(config.PluginStep) pipeline.Plugin { return analyzeConventionalCommits },
	"release-notes":        func(config.PluginStep) pipeline.Plugin { return generateDefaultNotes },
}

// Resolve converts a configured step list into callable plugins. Any path
// not found in the built-in registry resolves to a logging no-op, so an
// unresolvable plugin reference degrades gracefully instead of aborting
// the whole run.
func Resolve(steps []config.PluginStep) []pipeline.Plugin {
	plugins := make([]pipeline.Plugin, 0, len(steps))
	for _, step := range steps {
		if factory, ok := builtins[step.Path]; ok {
			plugins = append(plugins, factory(step))
			continue
		}
		path := step.Path
		plugins = append(plugins, func(ctx context.Context, pctx *pipeline.Context) (any, error) {
			if pctx.Logger != nil {
				pctx.Logger.WithField("plugin", path).Debug("plugin has no built-in implementation; skipping")
			}
			return nil, nil
		})
	}
	return plugins
}

var (
	breakingChangePattern = regexp.MustCompile(`(?i)BREAKING[ -]CHANGE`)
	conventionalPrefix    = regexp.MustCompile(`^(\w+)(\([^)]*\))?(!)?:`)
)

// analyzeConventionalCommits is the built-in analyzeCommits plugin: it
// classifies the commit list using the Conventional Commits convention
// (feat -> minor, fix/perf -> patch, any "!" or "BREAKING CHANGE" -> major).
func analyzeConventionalCommits(ctx context.Context, pctx *pipeline.Context) (any, error) {
	var bump semver.BumpType
	for _, msg := range pctx.Commits {
		if breakingChangePattern.MatchString(msg) {
			return string(semver.Major), nil
		}
		m := conventionalPrefix.FindStringSubmatch(msg)
		if m == nil {
			continue
		}
		if m[3] == "!" {
			return string(semver.Major), nil
		}
		switch strings.ToLower(m[1]) {
		case "feat":
			bump = semver.Minor
		case "fix", "perf":
			if bump == "" {
				bump = semver.Patch
			}
		}
	}
	if bump == "" {
		return nil, nil
	}
	return string(bump), nil
}

// generateDefaultNotes is the built-in generateNotes plugin: one bullet per
// commit subject line.
func generateDefaultNotes(ctx context.Context, pctx *pipeline.Context) (any, error) {
	if len(pctx.Commits) == 0 {
		return "", nil
	}
	var b strings.Builder
	b.WriteString("## " + pctx.NextRelease.Version.String() + "\n\n")
	for _, msg := range pctx.Commits {
		subject := msg
		if idx := strings.IndexByte(msg, '\n'); idx >= 0 {
			subject = msg[:idx]
		}
		b.WriteString("* " + subject + "\n")
	}
	return b.String(), nil
}
