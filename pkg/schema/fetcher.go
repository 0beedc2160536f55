// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package schema

import (
	"context"
	"time"

	"carvel.dev/as3ninja/pkg/gitget"
)

// Fetcher populates dir with the AS3 schema repository layout.
type Fetcher interface {
	Fetch(ctx context.Context, dir string) error
}

// GitFetcher clones the AS3 repository, replacing dir.
type GitFetcher struct {
	Repository string
	Timeout    time.Duration
	SSLVerify  bool
	Proxy      string
}

var _ Fetcher = GitFetcher{}

func (f GitFetcher) Fetch(ctx context.Context, dir string) error {
	repo, err := gitget.Clone(ctx, gitget.Opts{
		Repository: f.Repository,
		Dir:        dir,
		Force:      true,
		Timeout:    f.Timeout,
		SSLVerify:  f.SSLVerify,
		Proxy:      f.Proxy,
	})
	if err != nil {
		return err
	}
	return repo.Close()
}
