// Package gitfacade implements a thin git contract on top of go-git so
// the core never shells out.
package gitfacade

import (
	"context"
	"fmt"
	"strings"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	logger "github.com/sirupsen/logrus"
)

// CommandError is the structured failure returned for operations that
// propagate rather than degrade to "absent".
type CommandError struct {
	Cmd      string
	Stderr   string
	ExitCode int
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("git %s failed (exit %d): %s", e.Cmd, e.ExitCode, e.Stderr)
}

func wrapErr(cmd string, err error) error {
	if err == nil {
		return nil
	}
	return &CommandError{Cmd: cmd, Stderr: err.Error(), ExitCode: 1}
}

// Facade is the concrete GitFacade implementation.
type Facade struct {
	repo *git.Repository
	auth transport.AuthMethod
}

// Open opens the git repository at path or in one of its parent
// directories. When none is found it returns a *CommandError carrying
// go-git's error text.
func Open(path string) (*Facade, error) {
	repo, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, wrapErr("open", err)
	}
	return &Facade{repo: repo}, nil
}

// FromRepository wraps an already-open go-git repository, e.g. an
// in-memory one built by internal/gitfixture for tests.
func FromRepository(repo *git.Repository) *Facade {
	return &Facade{repo: repo}
}

// SetAuth configures the auth method used for fetch/push/verifyAuth/ls-remote.
func (f *Facade) SetAuth(auth transport.AuthMethod) { f.auth = auth }

// TokenAuth builds a basic-auth transport.AuthMethod from a bearer token,
// following the prefix rules resolved by package urlresolve.
func TokenAuth(username, token string) transport.AuthMethod {
	if token == "" {
		return nil
	}
	return &githttp.BasicAuth{Username: username, Password: token}
}

// Tags returns every raw tag name (without "refs/tags/").
func (f *Facade) Tags() ([]string, error) {
	iter, err := f.repo.Tags()
	if err != nil {
		return nil, wrapErr("tag --list", err)
	}
	var names []string
	err = iter.ForEach(func(ref *plumbing.Reference) error {
		names = append(names, ref.Name().Short())
		return nil
	})
	if err != nil {
		return nil, wrapErr("tag --list", err)
	}
	return names, nil
}

// TagHead resolves the commit hash a tag points at. ok is false when the
// tag doesn't exist (non-fatal; callers skip it).
func (f *Facade) TagHead(name string) (hash string, ok bool) {
	ref, err := f.repo.Tag(name)
	if err != nil {
		return "", false
	}
	h, err := resolveTagCommit(f.repo, ref.Hash())
	if err != nil {
		return "", false
	}
	return h.String(), true
}

// resolveTagCommit dereferences an annotated tag object to its target
// commit; lightweight tags already point directly at a commit.
func resolveTagCommit(repo *git.Repository, h plumbing.Hash) (plumbing.Hash, error) {
	tagObj, err := repo.TagObject(h)
	if err == nil {
		commit, cErr := tagObj.Commit()
		if cErr != nil {
			return plumbing.ZeroHash, cErr
		}
		return commit.Hash, nil
	}
	return h, nil
}

// RefExists reports whether ref resolves to something in the local repo.
// Non-fatal: a missing ref simply returns false.
func (f *Facade) RefExists(ref string) bool {
	_, err := f.repo.ResolveRevision(plumbing.Revision(ref))
	return err == nil
}

// IsAncestor reports whether ref is an ancestor of (or equal to) branch's tip.
func (f *Facade) IsAncestor(ctx context.Context, ref, branch string) (bool, error) {
	refHash, err := f.repo.ResolveRevision(plumbing.Revision(ref))
	if err != nil {
		return false, nil // ref not in local history: treated as "not an ancestor"
	}
	branchHash, err := f.repo.ResolveRevision(plumbing.Revision(branch))
	if err != nil {
		return false, wrapErr("rev-parse "+branch, err)
	}
	if *refHash == *branchHash {
		return true, nil
	}
	refCommit, err := f.repo.CommitObject(*refHash)
	if err != nil {
		return false, wrapErr("cat-file "+ref, err)
	}
	branchCommit, err := f.repo.CommitObject(*branchHash)
	if err != nil {
		return false, wrapErr("cat-file "+branch, err)
	}
	return refCommit.IsAncestor(branchCommit)
}

// Fetch unshallows (if needed) and fetches all tags from origin. A fully
// up-to-date repo is treated as success rather than an error.
func (f *Facade) Fetch(ctx context.Context) error {
	err := f.repo.FetchContext(ctx, &git.FetchOptions{
		RemoteName: "origin",
		Tags:       git.AllTags,
		Auth:       f.auth,
		Depth:      0,
	})
	if err != nil && err != git.NoErrAlreadyUpToDate {
		return wrapErr("fetch", err)
	}
	return nil
}

// Head returns the current HEAD commit hash.
func (f *Facade) Head() (string, error) {
	ref, err := f.repo.Head()
	if err != nil {
		return "", wrapErr("rev-parse HEAD", err)
	}
	return ref.Hash().String(), nil
}

// RemoteURL returns origin's configured URL.
func (f *Facade) RemoteURL() (string, error) {
	remote, err := f.repo.Remote("origin")
	if err != nil {
		return "", wrapErr("remote get-url origin", err)
	}
	urls := remote.Config().URLs
	if len(urls) == 0 {
		return "", wrapErr("remote get-url origin", fmt.Errorf("no URLs configured"))
	}
	return urls[0], nil
}

// IsRepo reports whether Open succeeded, i.e. this Facade is usable.
func (f *Facade) IsRepo() bool { return f.repo != nil }

// VerifyAuth performs a push dry-run against url/branch to confirm push
// credentials work, without mutating the remote.
func (f *Facade) VerifyAuth(ctx context.Context, url, branch string) error {
	remoteName := "semrelease-verify"
	_, _ = f.repo.Remote(remoteName) // best-effort; ignore if already exists
	_ = f.repo.DeleteRemote(remoteName)
	remote, err := f.repo.CreateRemote(&config.RemoteConfig{Name: remoteName, URLs: []string{url}})
	if err != nil {
		return wrapErr("remote add", err)
	}
	defer func() { _ = f.repo.DeleteRemote(remoteName) }()

	refSpec := config.RefSpec(fmt.Sprintf("refs/heads/%s:refs/heads/%s", branch, branch))
	err = remote.PushContext(ctx, &git.PushOptions{
		RemoteName: remoteName,
		RefSpecs:   []config.RefSpec{refSpec},
		Auth:       f.auth,
		DryRun:     true,
	})
	if err != nil && err != git.NoErrAlreadyUpToDate {
		return wrapErr("push --dry-run", err)
	}
	return nil
}

// Tag creates a local tag named name at ref (defaults to HEAD when ref is empty).
func (f *Facade) Tag(name, ref string) error {
	hash, err := f.resolve(ref)
	if err != nil {
		return err
	}
	_, err = f.repo.CreateTag(name, hash, nil)
	if err != nil {
		return wrapErr("tag "+name, err)
	}
	return nil
}

func (f *Facade) resolve(ref string) (plumbing.Hash, error) {
	if ref == "" {
		ref = "HEAD"
	}
	h, err := f.repo.ResolveRevision(plumbing.Revision(ref))
	if err != nil {
		return plumbing.ZeroHash, wrapErr("rev-parse "+ref, err)
	}
	return *h, nil
}

// Push pushes both the branch commits and all local tags to url.
func (f *Facade) Push(ctx context.Context, url, branch string) error {
	remote, err := f.repo.Remote("origin")
	if err != nil {
		return wrapErr("push", err)
	}
	if len(remote.Config().URLs) == 0 || remote.Config().URLs[0] != url {
		if upErr := f.repo.DeleteRemote("origin"); upErr == nil {
			remote, err = f.repo.CreateRemote(&config.RemoteConfig{Name: "origin", URLs: []string{url}})
			if err != nil {
				return wrapErr("remote set-url", err)
			}
		}
	}

	branchSpec := config.RefSpec(fmt.Sprintf("refs/heads/%s:refs/heads/%s", branch, branch))
	tagsSpec := config.RefSpec("refs/tags/*:refs/tags/*")
	err = remote.PushContext(ctx, &git.PushOptions{
		RemoteName: "origin",
		RefSpecs:   []config.RefSpec{branchSpec, tagsSpec},
		Auth:       f.auth,
	})
	if err != nil && err != git.NoErrAlreadyUpToDate {
		return wrapErr("push", err)
	}
	return nil
}

// CheckRefFormat validates name as a legal git ref name of the given kind
// ("heads" or "tags"), replicating `git check-ref-format` well enough for
// the branch/tag names this core ever constructs. No external library in
// the retrieved corpus implements git's ref-name grammar; this is the one
// intentionally stdlib-only validator.
func CheckRefFormat(kind, name string) bool {
	if name == "" {
		return false
	}
	if strings.HasPrefix(name, "/") || strings.HasSuffix(name, "/") {
		return false
	}
	if strings.Contains(name, "..") || strings.Contains(name, "//") {
		return false
	}
	if strings.HasSuffix(name, ".lock") || strings.HasSuffix(name, ".") {
		return false
	}
	for _, r := range name {
		switch {
		case r < 0x20 || r == 0x7f:
			return false
		case strings.ContainsRune(" ~^:?*[\\", r):
			return false
		}
	}
	_ = kind // kind only affects the caller's chosen refs/<kind>/ prefix, not the grammar
	return true
}

// RemoteHead returns the remote's current tip for branch via ls-remote.
// ok is false when the branch doesn't exist on the remote (non-fatal).
func (f *Facade) RemoteHead(ctx context.Context, branch string) (hash string, ok bool) {
	remote, err := f.repo.Remote("origin")
	if err != nil {
		return "", false
	}
	refs, err := remote.ListContext(ctx, &git.ListOptions{Auth: f.auth})
	if err != nil {
		logger.Debugf("ls-remote failed: %v", err)
		return "", false
	}
	want := plumbing.NewBranchReferenceName(branch)
	for _, ref := range refs {
		if ref.Name() == want {
			return ref.Hash().String(), true
		}
	}
	return "", false
}

// IsBranchUpToDate reports whether the remote's head for branch is an
// ancestor of (or equal to) the local branch tip.
func (f *Facade) IsBranchUpToDate(ctx context.Context, branch string) bool {
	remoteHash, ok := f.RemoteHead(ctx, branch)
	if !ok {
		return true // nothing to be behind
	}
	isAncestor, err := f.IsAncestor(ctx, remoteHash, branch)
	if err != nil {
		return false
	}
	return isAncestor
}

// CommitsBetween returns the commit messages in (since, until], oldest
// first, excluding the since boundary itself. since may be empty to mean
// "all ancestors of until" (used when there is no prior release to diff
// against).
func (f *Facade) CommitsBetween(ctx context.Context, since, until string) ([]object.Commit, error) {
	untilHash, err := f.resolve(until)
	if err != nil {
		return nil, err
	}
	var sinceHash plumbing.Hash
	if since != "" {
		h, rErr := f.repo.ResolveRevision(plumbing.Revision(since))
		if rErr == nil {
			sinceHash = *h
		}
	}

	iter, err := f.repo.Log(&git.LogOptions{From: untilHash})
	if err != nil {
		return nil, wrapErr("log", err)
	}
	defer iter.Close()

	var commits []object.Commit
	err = iter.ForEach(func(c *object.Commit) error {
		if since != "" && c.Hash == sinceHash {
			return object.ErrCanceled
		}
		commits = append(commits, *c)
		return nil
	})
	if err != nil && err != object.ErrCanceled {
		return nil, wrapErr("log", err)
	}

	// reverse to oldest-first
	for i, j := 0, len(commits)-1; i < j; i, j = i+1, j-1 {
		commits[i], commits[j] = commits[j], commits[i]
	}
	return commits, nil
}

// CommitMessages is CommitsBetween reduced to raw commit message bodies,
// the shape internal/pipeline's analyzeCommits forwarding needs.
func (f *Facade) CommitMessages(ctx context.Context, since, until string) ([]string, error) {
	commits, err := f.CommitsBetween(ctx, since, until)
	if err != nil {
		return nil, err
	}
	messages := make([]string, len(commits))
	for i, c := range commits {
		messages[i] = c.Message
	}
	return messages, nil
}
