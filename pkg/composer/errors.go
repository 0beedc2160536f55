// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package composer

// ComposerError is returned when configuration inputs cannot be composed.
type ComposerError struct {
	Msg string
	Err error
}

func (e *ComposerError) Error() string {
	if e.Err != nil {
		return e.Msg + ": " + e.Err.Error()
	}
	return e.Msg
}

func (e *ComposerError) Unwrap() error { return e.Err }
