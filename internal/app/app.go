// Package app wires tag indexing, branch classification, gating and the
// plugin pipeline into a single release invocation.
package app

import (
	"context"
	"fmt"

	logger "github.com/sirupsen/logrus"

	"github.com/xinchaobeta/semantic-release/internal/branch"
	"github.com/xinchaobeta/semantic-release/internal/ci"
	"github.com/xinchaobeta/semantic-release/internal/config"
	"github.com/xinchaobeta/semantic-release/internal/domain"
	"github.com/xinchaobeta/semantic-release/internal/gate"
	"github.com/xinchaobeta/semantic-release/internal/pipeline"
	"github.com/xinchaobeta/semantic-release/internal/pluginregistry"
	"github.com/xinchaobeta/semantic-release/internal/tagindex"
)

// GitFacade is the union of every git operation a release invocation
// needs, the same minimal-interface-per-consumer shape tagindex.GitFacade,
// gate.GitFacade and pipeline.GitFacade each already declare. *gitfacade.
// Facade satisfies it structurally; tests may substitute a hand-written
// fake over an in-memory gitfixture repo instead.
type GitFacade interface {
	Tags() ([]string, error)
	TagHead(name string) (string, bool)
	IsAncestor(ctx context.Context, ref, branch string) (bool, error)
	RemoteURL() (string, error)
	VerifyAuth(ctx context.Context, url, branch string) error
	IsBranchUpToDate(ctx context.Context, branch string) bool
	Tag(name, ref string) error
	Push(ctx context.Context, url, branch string) error
	Head() (string, error)
	CommitMessages(ctx context.Context, since, until string) ([]string, error)
}

// App is the composition root for a single release invocation.
type App struct {
	Config *config.Config
	Git    GitFacade
	CI     ci.Detector
	Log    *logger.Entry
}

// New builds an App. Each field is provided independently via dig so tests
// can substitute a fixture GitFacade or Detector.
func New(cfg *config.Config, git GitFacade, ciDetector ci.Detector, log *logger.Entry) *App {
	return &App{Config: cfg, Git: git, CI: ciDetector, Log: log}
}

// Flags are the CLI-level overrides threaded through to GateController.
type Flags struct {
	DryRun bool
	NoCI   bool
}

// Run executes exactly one release invocation: it runs the gate's cheap
// PR/branch-match checks, builds the tag index, classifies branches,
// consults the gate's remaining auth/stale-clone checks, and if admitted,
// drives the pipeline for the active branch. It returns true if any tag was
// created (including a back-port) or a dry-run plan was printed.
// Dry-run and no-CI are each in effect when set either on the command line
// or in the config file.
func (a *App) Run(ctx context.Context, cliFlags Flags) (bool, error) {
	format, err := tagindex.NewFormat(a.Config.TagFormat)
	if err != nil {
		return false, err
	}

	specs := a.Config.BranchSpecs()
	names := make([]string, len(specs))
	tips := make([]tagindex.BranchTip, len(specs))
	for i, s := range specs {
		names[i] = s.Name
		tips[i] = tagindex.BranchTip{Name: s.Name, Ref: s.Name}
	}

	env := a.CI.Detect()
	flags := gate.Flags{
		DryRun: cliFlags.DryRun || a.Config.CI.DryRun,
		NoCI:   cliFlags.NoCI || a.Config.CI.NoCI,
	}

	// The cheap admission checks run before the tag walk and branch
	// classification: a pull-request build or a build on a branch that
	// isn't configured is rejected without ever touching git history.
	if gate.PRGated(env, flags) {
		a.Log.Info("refusing to release from a pull-request build")
		return false, nil
	}
	if !gate.BranchConfigured(env.Branch, names) {
		a.Log.WithField("allowed", names).WithField("ciBranch", env.Branch).Info("current branch is not a configured release branch")
		return false, nil
	}

	rawTags, err := tagindex.Build(ctx, a.Git, format, tips)
	if err != nil {
		return false, err
	}
	domainTags := make(map[string][]domain.Tag, len(rawTags))
	for name, tags := range rawTags {
		converted := make([]domain.Tag, len(tags))
		for i, t := range tags {
			converted[i] = domain.Tag{RawName: t.RawName, Version: t.Version, Channel: t.Channel, GitHead: t.GitHead}
		}
		domainTags[name] = converted
	}

	branches, err := branch.Classify(specs, domainTags)
	if err != nil {
		return false, err
	}

	decision, err := gate.Admit(ctx, a.Log, env, flags, branches, a.Git, a.Config.RepositoryURL)
	if err != nil {
		return false, err
	}
	if !decision.Proceed {
		return false, nil
	}

	activeIndex := -1
	for i, b := range branches {
		if b.Name == decision.Branch.Name {
			activeIndex = i
			break
		}
	}
	var higher []domain.Branch
	if activeIndex >= 0 {
		higher = branches[activeIndex+1:]
	}

	driver := &pipeline.Driver{
		Git:           a.Git,
		RepositoryURL: decision.RepositoryURL,
		Format:        format,
		DryRun:        decision.DryRun,
	}

	cfg := pipeline.Config{
		VerifyConditions: pluginregistry.Resolve(a.Config.Plugins.VerifyConditions),
		AnalyzeCommits:   pluginregistry.Resolve(a.Config.Plugins.AnalyzeCommits),
		VerifyRelease:    pluginregistry.Resolve(a.Config.Plugins.VerifyRelease),
		GenerateNotes:    pluginregistry.Resolve(a.Config.Plugins.GenerateNotes),
		Prepare:          pluginregistry.Resolve(a.Config.Plugins.Prepare),
		AddChannel:       pluginregistry.Resolve(a.Config.Plugins.AddChannel),
		Publish:          pluginregistry.Resolve(a.Config.Plugins.Publish),
		Success:          pluginregistry.Resolve(a.Config.Plugins.Success),
		Fail:             pluginregistry.Resolve(a.Config.Plugins.Fail),
	}

	opts := map[string]string{}
	released, err := driver.Run(ctx, a.Log, decision.Branch, branches, higher, opts, cfg)
	if err != nil {
		return released, fmt.Errorf("release pipeline failed: %w", err)
	}
	return released, nil
}
