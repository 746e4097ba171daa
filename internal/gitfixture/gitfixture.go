// Package gitfixture builds throwaway in-memory git repositories for
// exercising internal/gitfacade and its consumers without touching disk.
package gitfixture

import (
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"
	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/storage/memory"
)

// Repo is an in-memory repository plus the commit history it was built
// from, returned so tests can reference hashes without re-deriving them.
type Repo struct {
	*git.Repository
	fs      billy.Filesystem
	Commits []plumbing.Hash
}

// New creates an empty in-memory repository whose initial HEAD is branch
// "main", regardless of go-git's own default.
func New() *Repo {
	fs := memfs.New()
	storer := memory.NewStorage()
	repo, err := git.Init(storer, fs)
	if err != nil {
		panic(err) // fixture construction, never a real-world failure path
	}
	head := plumbing.NewSymbolicReference(plumbing.HEAD, plumbing.NewBranchReferenceName("main"))
	if err := storer.SetReference(head); err != nil {
		panic(err)
	}
	return &Repo{Repository: repo, fs: fs}
}

// Commit writes file "seed.txt" with content msg, commits it, and returns
// the commit hash. Each call produces a new commit on the current HEAD.
func (r *Repo) Commit(msg string) plumbing.Hash {
	wt, err := r.Worktree()
	if err != nil {
		panic(err)
	}
	f, err := r.fs.Create("seed.txt")
	if err != nil {
		panic(err)
	}
	_, _ = f.Write([]byte(msg))
	_ = f.Close()
	_, err = wt.Add("seed.txt")
	if err != nil {
		panic(err)
	}
	hash, err := wt.Commit(msg, &git.CommitOptions{
		Author: &object.Signature{Name: "fixture", Email: "fixture@example.com", When: fixedTime()},
	})
	if err != nil {
		panic(err)
	}
	r.Commits = append(r.Commits, hash)
	return hash
}

// fixedTime avoids a real wall-clock read so fixture output stays
// deterministic across runs.
func fixedTime() time.Time {
	return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
}

// Branch creates a new branch named name pointing at the current HEAD and
// checks it out.
func (r *Repo) Branch(name string) {
	head, err := r.Head()
	if err != nil {
		panic(err)
	}
	ref := plumbing.NewHashReference(plumbing.NewBranchReferenceName(name), head.Hash())
	if err := r.Storer.SetReference(ref); err != nil {
		panic(err)
	}
	wt, err := r.Worktree()
	if err != nil {
		panic(err)
	}
	if err := wt.Checkout(&git.CheckoutOptions{Branch: plumbing.NewBranchReferenceName(name)}); err != nil {
		panic(err)
	}
}

// Tag creates a lightweight tag named name at the current HEAD.
func (r *Repo) Tag(name string) {
	head, err := r.Head()
	if err != nil {
		panic(err)
	}
	if _, err := r.CreateTag(name, head.Hash(), nil); err != nil {
		panic(err)
	}
}

// TagAt creates a lightweight tag named name at the given commit.
func (r *Repo) TagAt(name string, hash plumbing.Hash) {
	if _, err := r.CreateTag(name, hash, nil); err != nil {
		panic(err)
	}
}
