// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package gitget

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"
)

func newSourceRepo(t *testing.T) (string, *git.Repository, []plumbing.Hash) {
	dir := t.TempDir()

	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	worktree, err := repo.Worktree()
	require.NoError(t, err)

	var hashes []plumbing.Hash

	for i, msg := range []string{"first commit", "second commit\n\nwith body"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "ninja.yaml"), []byte(fmt.Sprintf("n: %d\n", i)), 0600))

		_, err = worktree.Add("ninja.yaml")
		require.NoError(t, err)

		hash, err := worktree.Commit(msg, &git.CommitOptions{
			Author: &object.Signature{
				Name:  "Ninja",
				Email: "ninja@example.com",
				When:  time.Date(2020, 1, 2, 3, 4, 5+i, 0, time.FixedZone("CET", 3600)),
			},
		})
		require.NoError(t, err)
		hashes = append(hashes, hash)
	}

	return dir, repo, hashes
}

func TestRepoInfo(t *testing.T) {
	_, repo, hashes := newSourceRepo(t)

	info, err := repoInfo(repo, "")
	require.NoError(t, err)

	require.Equal(t, Info{
		Branch: "master",
		Commit: CommitInfo{
			ID:      hashes[1].String(),
			IDShort: hashes[1].String()[:7],
			Epoch:   time.Date(2020, 1, 2, 2, 4, 6, 0, time.UTC).Unix(),
			Subject: "second commit",
			Date:    "2020-01-02T02:04:06Z",
		},
		Author: AuthorInfo{
			Name:  "Ninja",
			Email: "ninja@example.com",
			Epoch: time.Date(2020, 1, 2, 2, 4, 6, 0, time.UTC).Unix(),
			Date:  "2020-01-02T02:04:06Z",
		},
	}, info)

	info, err = repoInfo(repo, "release")
	require.NoError(t, err)
	require.Equal(t, "release", info.Branch)

	asMap := info.AsMap()
	require.Equal(t, "release", asMap["branch"])
	require.Equal(t, "second commit", asMap["commit"].(map[string]interface{})["subject"])
	require.Equal(t, "ninja@example.com", asMap["author"].(map[string]interface{})["email"])
}

func TestResetTo(t *testing.T) {
	dir, repo, hashes := newSourceRepo(t)

	require.NoError(t, resetTo(repo, "HEAD~1"))

	info, err := repoInfo(repo, "")
	require.NoError(t, err)
	require.Equal(t, hashes[0].String(), info.Commit.ID)
	require.Equal(t, "first commit", info.Commit.Subject)

	contents, err := os.ReadFile(filepath.Join(dir, "ninja.yaml"))
	require.NoError(t, err)
	require.Equal(t, "n: 0\n", string(contents))

	require.NoError(t, resetTo(repo, hashes[1].String()))

	info, err = repoInfo(repo, "")
	require.NoError(t, err)
	require.Equal(t, hashes[1].String(), info.Commit.ID)

	err = resetTo(repo, "HEAD~5")
	require.Error(t, err)
	require.Contains(t, err.Error(), "gitget: Resolving commit 'HEAD~5'")
}

func TestCloneValidation(t *testing.T) {
	depth := -1

	_, err := Clone(context.Background(), Opts{Repository: "https://example.com/repo.git", Depth: &depth})
	require.EqualError(t, err, "gitget: depth must be 0 or a positive number.")

	_, err = Clone(context.Background(), Opts{})
	require.EqualError(t, err, "gitget: Expected repository to be specified")
}

func TestCloneMissingRepository(t *testing.T) {
	_, err := Clone(context.Background(), Opts{Repository: filepath.Join(t.TempDir(), "does-not-exist")})
	require.Error(t, err)

	var fetchErr *FetchError
	require.ErrorAs(t, err, &fetchErr)
}

func TestCloneLocal(t *testing.T) {
	if _, err := exec.LookPath("git-upload-pack"); err != nil {
		t.Skip("git-upload-pack is required to clone local repositories")
	}

	srcDir, _, hashes := newSourceRepo(t)

	depth := 0
	dstDir := filepath.Join(t.TempDir(), "clone")

	repo, err := Clone(context.Background(), Opts{Repository: srcDir, Commit: "HEAD~1", Depth: &depth, Dir: dstDir})
	require.NoError(t, err)

	require.Equal(t, dstDir, repo.Dir())
	require.Equal(t, hashes[0].String(), repo.Info().Commit.ID)
	require.Equal(t, "master", repo.Info().Branch)

	contents, err := os.ReadFile(filepath.Join(dstDir, "ninja.yaml"))
	require.NoError(t, err)
	require.Equal(t, "n: 0\n", string(contents))

	// persisted clones are kept
	require.NoError(t, repo.Close())
	require.DirExists(t, dstDir)

	// force replaces an existing clone
	repo, err = Clone(context.Background(), Opts{Repository: srcDir, Depth: &depth, Dir: dstDir, Force: true})
	require.NoError(t, err)
	require.Equal(t, hashes[1].String(), repo.Info().Commit.ID)

	tmpRepo, err := Clone(context.Background(), Opts{Repository: srcDir, Depth: &depth})
	require.NoError(t, err)
	require.FileExists(t, filepath.Join(tmpRepo.Dir(), "ninja.yaml"))
	require.NoError(t, tmpRepo.Close())
	require.NoDirExists(t, tmpRepo.Dir())
}
