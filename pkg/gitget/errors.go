// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package gitget

// FetchError is returned when a repository cannot be cloned or checked out.
type FetchError struct {
	Msg string
	Err error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return "gitget: " + e.Msg + ": " + e.Err.Error()
	}
	return "gitget: " + e.Msg
}

func (e *FetchError) Unwrap() error { return e.Err }
