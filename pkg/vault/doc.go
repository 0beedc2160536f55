// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

/*
Package vault reads secrets from HashiCorp Vault kv1 and kv2 secrets
engines for use in declaration templates.
*/
package vault
