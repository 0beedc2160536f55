// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package vault

// SecretError is returned when a secret cannot be described, read or filtered.
type SecretError struct {
	Msg string
	Err error
}

func (e *SecretError) Error() string {
	if e.Err != nil {
		return "vault: " + e.Msg + ": " + e.Err.Error()
	}
	return "vault: " + e.Msg
}

func (e *SecretError) Unwrap() error { return e.Err }
