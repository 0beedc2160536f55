// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package gitget

import (
	"strconv"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
)

type Info struct {
	Branch string
	Commit CommitInfo
	Author AuthorInfo
}

type CommitInfo struct {
	ID      string
	IDShort string
	Epoch   int64
	Subject string
	Date    string
}

type AuthorInfo struct {
	Name  string
	Email string
	Epoch int64
	Date  string
}

// AsMap returns the info as configuration data, for example to be
// placed at as3ninja.git.
func (i Info) AsMap() map[string]interface{} {
	return map[string]interface{}{
		"branch": i.Branch,
		"commit": map[string]interface{}{
			"id":       i.Commit.ID,
			"id_short": i.Commit.IDShort,
			"epoch":    strconv.FormatInt(i.Commit.Epoch, 10),
			"subject":  i.Commit.Subject,
			"date":     i.Commit.Date,
		},
		"author": map[string]interface{}{
			"name":  i.Author.Name,
			"email": i.Author.Email,
			"epoch": strconv.FormatInt(i.Author.Epoch, 10),
			"date":  i.Author.Date,
		},
	}
}

func repoInfo(repo *git.Repository, branch string) (Info, error) {
	head, err := repo.Head()
	if err != nil {
		return Info{}, &FetchError{Msg: "Reading HEAD", Err: err}
	}

	commit, err := repo.CommitObject(head.Hash())
	if err != nil {
		return Info{}, &FetchError{Msg: "Reading commit " + head.Hash().String(), Err: err}
	}

	if len(branch) == 0 {
		branch = "HEAD"
		if head.Name().IsBranch() {
			branch = head.Name().Short()
		}
	}

	id := commit.Hash.String()
	subject, _, _ := strings.Cut(commit.Message, "\n")

	return Info{
		Branch: branch,
		Commit: CommitInfo{
			ID:      id,
			IDShort: id[:7],
			Epoch:   commit.Committer.When.Unix(),
			Subject: subject,
			Date:    formatDate(commit.Committer.When),
		},
		Author: AuthorInfo{
			Name:  commit.Author.Name,
			Email: commit.Author.Email,
			Epoch: commit.Author.When.Unix(),
			Date:  formatDate(commit.Author.When),
		},
	}, nil
}

func formatDate(t time.Time) string {
	return t.UTC().Format(dateFormat)
}
