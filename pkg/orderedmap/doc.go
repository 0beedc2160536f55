// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

/*
Package orderedmap provides a map implementation where the order of keys is
maintained (unlike the native Go map).

Rendered declarations are decoded into ordered maps so that the JSON produced
by as3ninja keeps the key order the template author wrote.
*/
package orderedmap
