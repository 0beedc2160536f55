// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

/*
Package ninjalibrary provides the functions available to declaration
templates in addition to the text/template builtins.

Functions take their options first and the subject last so that they
can be used in pipelines:

	{{ ninja.cert | readfile | b64encode }}
	{{ "secret data" | hashfunction "sha3_256" }}
*/
package ninjalibrary
