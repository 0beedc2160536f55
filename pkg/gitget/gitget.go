// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

/*
Package gitget clones git repositories so that declarations can be
built from configuration and templates kept under version control.
*/
package gitget

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/cache"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/storage/filesystem"
)

const (
	DefaultDepth   = 1
	DefaultTimeout = 120 * time.Second

	// commitSearchDepth is fetched before checking out a commit of a depth 1 clone
	commitSearchDepth = 20
	dateFormat        = "2006-01-02T15:04:05Z"
)

type Opts struct {
	Repository string
	// Branch or tag; the remote default branch when empty.
	Branch string
	// Commit is a full commit id or HEAD~N.
	Commit string
	// Depth of the clone, 0 clones the full history. nil means DefaultDepth.
	Depth *int
	// Dir persists the clone. A temporary directory is used when empty.
	Dir string
	// Force removes an existing Dir before cloning.
	Force bool

	Timeout   time.Duration
	SSLVerify bool
	Proxy     string
}

// Repo is a cloned repository.
type Repo struct {
	dir     string
	persist bool
	info    Info
}

// Clone clones the repository described by opts.
func Clone(ctx context.Context, opts Opts) (*Repo, error) {
	depth := DefaultDepth
	if opts.Depth != nil {
		depth = *opts.Depth
	}
	if depth < 0 {
		return nil, &FetchError{Msg: "depth must be 0 or a positive number."}
	}
	if len(opts.Repository) == 0 {
		return nil, &FetchError{Msg: "Expected repository to be specified"}
	}

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	r := &Repo{dir: opts.Dir, persist: len(opts.Dir) > 0}

	err := r.prepareDir(opts.Force)
	if err != nil {
		return nil, err
	}

	repo, err := r.clone(ctx, opts, depth)
	if err != nil {
		r.Close()
		return nil, err
	}

	if len(opts.Commit) > 0 {
		err = checkout(ctx, repo, opts, depth)
		if err != nil {
			r.Close()
			return nil, err
		}
	}

	r.info, err = repoInfo(repo, opts.Branch)
	if err != nil {
		r.Close()
		return nil, err
	}

	return r, nil
}

func (r *Repo) prepareDir(force bool) error {
	if !r.persist {
		dir, err := os.MkdirTemp("", "*.ninja.git")
		if err != nil {
			return &FetchError{Msg: "Creating temporary directory", Err: err}
		}
		r.dir = dir
		return nil
	}

	if force {
		err := os.RemoveAll(r.dir)
		if err != nil {
			return &FetchError{Msg: fmt.Sprintf("Removing directory '%s'", r.dir), Err: err}
		}
	}

	err := os.MkdirAll(r.dir, 0700)
	if err != nil {
		return &FetchError{Msg: fmt.Sprintf("Creating directory '%s'", r.dir), Err: err}
	}
	return nil
}

func (r *Repo) clone(ctx context.Context, opts Opts, depth int) (*git.Repository, error) {
	var lastErr error

	for _, refName := range candidateRefs(opts.Branch) {
		worktree := osfs.New(r.dir)

		dotGit, err := worktree.Chroot(git.GitDirName)
		if err != nil {
			return nil, &FetchError{Msg: "Preparing .git directory", Err: err}
		}

		cloneOpts := &git.CloneOptions{
			URL:             opts.Repository,
			Depth:           depth,
			ReferenceName:   refName,
			SingleBranch:    len(refName) > 0,
			InsecureSkipTLS: !opts.SSLVerify,
			ProxyOptions:    transport.ProxyOptions{URL: opts.Proxy},
		}

		storer := filesystem.NewStorage(dotGit, cache.NewObjectLRUDefault())

		repo, err := git.CloneContext(ctx, storer, worktree, cloneOpts)
		if err == nil {
			return repo, nil
		}
		lastErr = err

		// a failed attempt leaves a partial .git behind
		os.RemoveAll(dotGit.Root())

		if !errors.Is(err, plumbing.ErrReferenceNotFound) && !isNoMatchingRef(err) {
			break
		}
	}

	return nil, &FetchError{Msg: fmt.Sprintf("Cloning repository '%s'", opts.Repository), Err: lastErr}
}

// candidateRefs lists what a name given to --branch may refer to.
func candidateRefs(branch string) []plumbing.ReferenceName {
	if len(branch) == 0 {
		return []plumbing.ReferenceName{""}
	}
	return []plumbing.ReferenceName{
		plumbing.NewBranchReferenceName(branch),
		plumbing.NewTagReferenceName(branch),
	}
}

func isNoMatchingRef(err error) bool {
	var refErr git.NoMatchingRefSpecError
	return errors.As(err, &refErr) || strings.Contains(err.Error(), "couldn't find remote ref")
}

func checkout(ctx context.Context, repo *git.Repository, opts Opts, depth int) error {
	if depth == 1 {
		err := repo.FetchContext(ctx, &git.FetchOptions{
			Depth:           commitSearchDepth,
			InsecureSkipTLS: !opts.SSLVerify,
			ProxyOptions:    transport.ProxyOptions{URL: opts.Proxy},
		})
		if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
			return &FetchError{Msg: "Fetching commit history", Err: err}
		}
	}

	return resetTo(repo, opts.Commit)
}

func resetTo(repo *git.Repository, commit string) error {
	hash, err := repo.ResolveRevision(plumbing.Revision(commit))
	if err != nil {
		return &FetchError{Msg: fmt.Sprintf("Resolving commit '%s'", commit), Err: err}
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return &FetchError{Msg: "Opening worktree", Err: err}
	}

	err = worktree.Reset(&git.ResetOptions{Commit: *hash, Mode: git.HardReset})
	if err != nil {
		return &FetchError{Msg: fmt.Sprintf("Checking out commit '%s'", commit), Err: err}
	}
	return nil
}

// Dir returns the directory of the working tree.
func (r *Repo) Dir() string { return r.dir }

// Info describes the checked out commit.
func (r *Repo) Info() Info { return r.info }

// Close removes the clone unless it was made into Opts.Dir.
func (r *Repo) Close() error {
	if r.persist {
		return nil
	}
	return os.RemoveAll(r.dir)
}
