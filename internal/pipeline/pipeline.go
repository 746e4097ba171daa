// Package pipeline drives the fixed plugin surface: its per-step
// aggregation semantics and the run order that turns a release plan into
// created tags and published releases.
package pipeline

import (
	"context"
	"fmt"
	"strings"

	logger "github.com/sirupsen/logrus"

	"github.com/xinchaobeta/semantic-release/internal/domain"
	releaseerrors "github.com/xinchaobeta/semantic-release/internal/errors"
	"github.com/xinchaobeta/semantic-release/internal/plan"
	"github.com/xinchaobeta/semantic-release/internal/semver"
	"github.com/xinchaobeta/semantic-release/internal/tagindex"
)

// Context is the value passed to every plugin call. Not every field is
// populated for every step.
type Context struct {
	Options     map[string]string
	Branch      domain.Branch
	Branches    []domain.Branch
	Logger      *logger.Entry
	LastRelease domain.LastRelease
	Current     domain.Release // "currentRelease", back-port steps only
	NextRelease domain.Release
	Commits     []string // commit messages, oldest first
	Releases    []Release
	Errors      []error
}

// Release is a plugin-reported release descriptor, collected by
// addChannel/publish into Context.Releases.
type Release struct {
	Channel string
	Version string
	URL     string
}

// Plugin is a single step callable: a configured {path, ...params} record
// collapsed to a Go function value once resolved.
type Plugin func(ctx context.Context, pctx *Context) (any, error)

// Config is the resolved plugin step table: one ordered list of Plugin per
// step name.
type Config struct {
	VerifyConditions []Plugin
	AnalyzeCommits   []Plugin
	VerifyRelease    []Plugin
	GenerateNotes    []Plugin
	Prepare          []Plugin
	AddChannel       []Plugin
	Publish          []Plugin
	Success          []Plugin
	Fail             []Plugin
}

// GitFacade is the subset of gitfacade.Facade the driver needs to create
// and push tags and read HEAD between prepare steps.
type GitFacade interface {
	Tag(name, ref string) error
	Push(ctx context.Context, url, branch string) error
	Head() (string, error)
	CommitMessages(ctx context.Context, since, until string) ([]string, error)
}

// Driver runs a single release invocation for one active branch.
type Driver struct {
	Git           GitFacade
	RepositoryURL string
	Format        *tagindex.Format
	DryRun        bool
}

// ResolveBump runs the configured analyzeCommits plugins read-only against
// active's commits since its last release, without creating tags or
// invoking any other step. It's the same "first non-null wins" logic Run
// uses internally, exposed for preview callers (the plan subcommand) that
// need a bump decision without driving the rest of the pipeline.
func ResolveBump(ctx context.Context, git GitFacade, log *logger.Entry, active domain.Branch, branches []domain.Branch, head string, plugins []Plugin) (semver.BumpType, error) {
	d := &Driver{Git: git}
	pctx := &Context{Branch: active, Branches: branches, Logger: log}
	return d.runAnalyzeCommits(ctx, pctx, plugins, active, head)
}

// Run executes the full pipeline order. opts carries whatever options the
// resolved plugins expect verbatim. It returns true when a release (or at
// least one back-port) happened, false for a quiet no-op run (e.g. no
// commits warranting a release).
func (d *Driver) Run(ctx context.Context, log *logger.Entry, active domain.Branch, branches []domain.Branch, higher []domain.Branch, opts map[string]string, cfg Config) (bool, error) {
	pctx := &Context{Options: opts, Branch: active, Branches: branches, Logger: log}

	if err := d.runAllMustSucceed(ctx, pctx, cfg.VerifyConditions); err != nil {
		return false, d.finish(ctx, pctx, cfg, err)
	}

	didRelease := false

	backports, bpErr := plan.BackPorts(active, higher, d.Format)
	for _, bp := range backports {
		if err := d.runBackPort(ctx, pctx, cfg, bp); err != nil {
			return didRelease, d.finish(ctx, pctx, cfg, err)
		}
		didRelease = true
	}
	if bpErr != nil {
		// per-entry EINVALIDLTSMERGE failures are collected but don't abort
		// entries that already succeeded; surface after the loop.
		return didRelease, d.finish(ctx, pctx, cfg, bpErr)
	}

	head, err := d.Git.Head()
	if err != nil {
		return didRelease, d.finish(ctx, pctx, cfg, err)
	}

	bump, err := d.runAnalyzeCommits(ctx, pctx, cfg.AnalyzeCommits, active, head)
	if err != nil {
		return didRelease, d.finish(ctx, pctx, cfg, err)
	}

	lastRelease, nextRelease, ok, err := plan.NextRelease(active, bump, head, d.Format)
	pctx.LastRelease = lastRelease
	if err != nil {
		return didRelease, d.finish(ctx, pctx, cfg, err)
	}
	if !ok {
		return didRelease, nil
	}
	pctx.NextRelease = nextRelease

	if err := d.runAllMustSucceed(ctx, pctx, cfg.VerifyRelease); err != nil {
		return didRelease, d.finish(ctx, pctx, cfg, err)
	}

	if d.DryRun {
		notes, err := d.runGenerateNotes(ctx, pctx, cfg.GenerateNotes)
		if err != nil {
			return didRelease, d.finish(ctx, pctx, cfg, err)
		}
		pctx.NextRelease.Notes = notes
		fmt.Println(notes)
		return true, nil
	}

	notes, err := d.runGenerateNotes(ctx, pctx, cfg.GenerateNotes)
	if err != nil {
		return didRelease, d.finish(ctx, pctx, cfg, err)
	}
	pctx.NextRelease.Notes = notes

	for _, p := range cfg.Prepare {
		if _, err := p(ctx, pctx); err != nil {
			return didRelease, d.finish(ctx, pctx, cfg, err)
		}
		newHead, err := d.Git.Head()
		if err != nil {
			return didRelease, d.finish(ctx, pctx, cfg, err)
		}
		pctx.NextRelease.GitHead = newHead
		notes, err := d.runGenerateNotes(ctx, pctx, cfg.GenerateNotes)
		if err != nil {
			return didRelease, d.finish(ctx, pctx, cfg, err)
		}
		pctx.NextRelease.Notes = notes
	}

	if err := d.Git.Tag(pctx.NextRelease.GitTag, pctx.NextRelease.GitHead); err != nil {
		return didRelease, d.finish(ctx, pctx, cfg, err)
	}
	if err := d.Git.Push(ctx, d.RepositoryURL, active.Name); err != nil {
		return didRelease, d.finish(ctx, pctx, cfg, err)
	}

	if err := d.runSequentialCollect(ctx, pctx, cfg.Publish); err != nil {
		return didRelease, d.finish(ctx, pctx, cfg, err)
	}
	d.runSuccess(ctx, pctx, cfg.Success)

	return true, nil
}

func (d *Driver) runBackPort(ctx context.Context, pctx *Context, cfg Config, bp domain.ReleaseToAdd) error {
	pctx.LastRelease = bp.LastRelease
	pctx.Current = bp.CurrentRelease
	pctx.NextRelease = bp.NextRelease

	commits, err := d.Git.CommitMessages(ctx, bp.LastRelease.GitHead, bp.NextRelease.GitHead)
	if err != nil {
		return err
	}
	pctx.Commits = commits

	notes, err := d.runGenerateNotes(ctx, pctx, cfg.GenerateNotes)
	if err != nil {
		return err
	}
	pctx.NextRelease.Notes = notes

	if err := d.Git.Tag(pctx.NextRelease.GitTag, pctx.NextRelease.GitHead); err != nil {
		return err
	}
	if err := d.Git.Push(ctx, d.RepositoryURL, pctx.Branch.Name); err != nil {
		return err
	}

	if err := d.runSequentialCollect(ctx, pctx, cfg.AddChannel); err != nil {
		return err
	}
	d.runSuccess(ctx, pctx, cfg.Success)
	return nil
}

// runAllMustSucceed implements the "all-must-succeed; collects all errors"
// aggregation used by verifyConditions and verifyRelease.
func (d *Driver) runAllMustSucceed(ctx context.Context, pctx *Context, plugins []Plugin) error {
	agg := releaseerrors.NewAggregate()
	for _, p := range plugins {
		if _, err := p(ctx, pctx); err != nil {
			agg.Add(err)
		}
	}
	if agg.Empty() {
		return nil
	}
	return agg
}

// runAnalyzeCommits implements "first non-null wins" and validates the
// final value is one of major/minor/patch/empty.
func (d *Driver) runAnalyzeCommits(ctx context.Context, pctx *Context, plugins []Plugin, active domain.Branch, head string) (semver.BumpType, error) {
	lastHead := ""
	if tag, ok := active.HighestTag(active.Channel, active.Type == domain.BranchPrerelease); ok {
		lastHead = tag.GitHead
	}
	commits, err := d.Git.CommitMessages(ctx, lastHead, head)
	if err != nil {
		return "", err
	}
	pctx.Commits = commits

	var bump semver.BumpType
	for _, p := range plugins {
		result, err := p(ctx, pctx)
		if err != nil {
			return "", err
		}
		if result == nil {
			continue
		}
		s, ok := result.(string)
		if !ok {
			return "", fmt.Errorf("analyzeCommits plugin returned a non-string result")
		}
		switch semver.BumpType(s) {
		case semver.Major, semver.Minor, semver.Patch:
			bump = semver.BumpType(s)
		case "":
			// explicit null from a later plugin does not un-set an earlier result
		default:
			return "", fmt.Errorf("analyzeCommits plugin returned invalid bump %q", s)
		}
	}
	return bump, nil
}

// runGenerateNotes concatenates every plugin's non-empty output with a
// blank-line separator.
func (d *Driver) runGenerateNotes(ctx context.Context, pctx *Context, plugins []Plugin) (string, error) {
	var parts []string
	for _, p := range plugins {
		result, err := p(ctx, pctx)
		if err != nil {
			return "", err
		}
		if result == nil {
			continue
		}
		s, ok := result.(string)
		if !ok || s == "" {
			continue
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, "\n\n"), nil
}

// runSequentialCollect runs addChannel/publish plugins in order, collecting
// every non-nil Release result into pctx.Releases.
func (d *Driver) runSequentialCollect(ctx context.Context, pctx *Context, plugins []Plugin) error {
	for _, p := range plugins {
		result, err := p(ctx, pctx)
		if err != nil {
			return err
		}
		if rel, ok := result.(Release); ok {
			pctx.Releases = append(pctx.Releases, rel)
		}
	}
	return nil
}

// runSuccess invokes every plugin even if one errors, logging failures
// rather than aborting.
func (d *Driver) runSuccess(ctx context.Context, pctx *Context, plugins []Plugin) {
	for _, p := range plugins {
		if _, err := p(ctx, pctx); err != nil {
			pctx.Errors = append(pctx.Errors, err)
			if pctx.Logger != nil {
				pctx.Logger.WithError(err).Warn("success plugin failed")
			}
		}
	}
}

// finish routes a top-level error to fail (for SemanticRelease-marked
// errors, never during dry-run) or plain logging, then returns the error
// unchanged for the caller to propagate.
func (d *Driver) finish(ctx context.Context, pctx *Context, cfg Config, err error) error {
	if err == nil {
		return nil
	}
	if d.DryRun {
		if pctx.Logger != nil {
			pctx.Logger.WithError(err).Error("release failed (dry-run, fail plugins skipped)")
		}
		return err
	}

	var semanticErrs []error
	if agg, ok := err.(*releaseerrors.Aggregate); ok {
		semanticErrs = agg.SemanticReleaseErrors()
		for _, internal := range agg.InternalErrors() {
			if pctx.Logger != nil {
				pctx.Logger.WithError(internal).Error("internal error")
			}
		}
	} else if releaseerrors.IsSemanticRelease(err) {
		semanticErrs = []error{err}
	} else if pctx.Logger != nil {
		pctx.Logger.WithError(err).Error("internal error")
	}

	if len(semanticErrs) == 0 {
		return err
	}

	pctx.Errors = semanticErrs
	for _, p := range cfg.Fail {
		if _, fErr := p(ctx, pctx); fErr != nil && pctx.Logger != nil {
			pctx.Logger.WithError(fErr).Error("fail plugin itself failed")
		}
	}
	return err
}
