// Package gate implements admission control: deciding whether an
// invocation should run at all, and if so on which branch and with which
// repository URL.
package gate

import (
	"context"

	logger "github.com/sirupsen/logrus"

	"github.com/xinchaobeta/semantic-release/internal/ci"
	"github.com/xinchaobeta/semantic-release/internal/domain"
	releaseerrors "github.com/xinchaobeta/semantic-release/internal/errors"
	"github.com/xinchaobeta/semantic-release/internal/urlresolve"
)

// Flags are the user-supplied override flags read alongside the CI
// environment.
type Flags struct {
	DryRun bool
	NoCI   bool
}

// GitFacade is the subset of gitfacade.Facade GateController needs to
// verify push credentials and detect a stale local clone.
type GitFacade interface {
	RemoteURL() (string, error)
	VerifyAuth(ctx context.Context, url, branch string) error
	IsBranchUpToDate(ctx context.Context, branch string) bool
}

// Decision is the outcome of Admit: Proceed is false for every gated-off
// case (non-CI without dryRun/noCi forces dry-run rather than blocking,
// so that case still proceeds with DryRun set).
type Decision struct {
	Proceed       bool
	DryRun        bool
	Branch        domain.Branch
	RepositoryURL string
}

// PRGated reports whether env/flags describe a pull-request build, which
// must never reach TagIndex/BranchClassifier/analyzeCommits. Callers should
// consult this before paying for a tag walk and branch classification.
func PRGated(env ci.Env, flags Flags) bool {
	return env.IsCI && env.IsPR && !flags.NoCI
}

// BranchConfigured reports whether name is among the configured branch
// names, the cheap branch-match check that should short-circuit before the
// tag index and branch classifier run.
func BranchConfigured(name string, names []string) bool {
	for _, n := range names {
		if n == name {
			return true
		}
	}
	return false
}

// Admit runs the gate sequence deciding whether to proceed. configuredURL
// is the config file's repositoryUrl override, consulted only when the
// repository has no `origin` remote for GitFacade.RemoteURL to read.
func Admit(ctx context.Context, log *logger.Entry, env ci.Env, flags Flags, branches []domain.Branch, git GitFacade, configuredURL string) (Decision, error) {
	dryRun := flags.DryRun

	if !env.IsCI && !flags.DryRun && !flags.NoCI {
		dryRun = true
		log.Warn("not running in CI and --dry-run/--no-ci not set: forcing dry-run")
	}

	if env.IsCI && env.IsPR && !flags.NoCI {
		log.Info("refusing to release from a pull-request build")
		return Decision{}, nil
	}

	var active domain.Branch
	found := false
	names := make([]string, 0, len(branches))
	for _, b := range branches {
		names = append(names, b.Name)
		if b.Name == env.Branch {
			active = b
			found = true
		}
	}
	if !found {
		log.WithField("allowed", names).WithField("ciBranch", env.Branch).Info("current branch is not a configured release branch")
		return Decision{}, nil
	}

	url, err := git.RemoteURL()
	if err != nil {
		if configuredURL == "" {
			return Decision{}, releaseerrors.New(
				releaseerrors.ENoRepoURL,
				"no repository URL available",
				"no `origin` remote and no `repositoryUrl` configured",
			)
		}
		url = configuredURL
	}
	repositoryURL := urlresolve.Normalise(url)

	if err := git.VerifyAuth(ctx, repositoryURL, active.Name); err != nil {
		// On a failed auth verification, retry once against a credentialed
		// rewrite of the URL before giving up.
		withCreds := urlresolve.WithCredentials(repositoryURL)
		if withCreds != repositoryURL && git.VerifyAuth(ctx, withCreds, active.Name) == nil {
			repositoryURL = withCreds
		} else if !git.IsBranchUpToDate(ctx, active.Name) {
			log.Warn("local branch behind remote: skipping release")
			return Decision{}, nil
		} else {
			return Decision{}, releaseerrors.New(
				releaseerrors.EGitNoPermission,
				"push credentials could not be verified",
				"`"+repositoryURL+"`",
			)
		}
	}

	return Decision{Proceed: true, DryRun: dryRun, Branch: active, RepositoryURL: repositoryURL}, nil
}
