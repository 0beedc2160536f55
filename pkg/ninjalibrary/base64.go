// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package ninjalibrary

import (
	"encoding/base64"

	"carvel.dev/as3ninja/pkg/render"
)

var (
	Base64Extensions = []render.Extension{
		{Name: "b64encode", Kind: render.KindFilter, Func: base64Module{}.Encode},
		{Name: "b64decode", Kind: render.KindFilter, Func: base64Module{}.Decode},
	}
)

type base64Module struct{}

// Encode implements `b64encode [urlsafe] data`.
func (b base64Module) Encode(args ...interface{}) (string, error) {
	encoding, val, err := b.parseArgs("b64encode", args)
	if err != nil {
		return "", err
	}
	return encoding.EncodeToString([]byte(val)), nil
}

// Decode implements `b64decode [urlsafe] data`.
func (b base64Module) Decode(args ...interface{}) (string, error) {
	encoding, val, err := b.parseArgs("b64decode", args)
	if err != nil {
		return "", err
	}

	valDecoded, err := encoding.DecodeString(val)
	if err != nil {
		return "", err
	}

	return string(valDecoded), nil
}

func (b base64Module) parseArgs(name string, args []interface{}) (*base64.Encoding, string, error) {
	opts, subject, err := splitArgs(name, args, 1)
	if err != nil {
		return nil, "", err
	}

	urlsafe, err := boolOpt(name, opts, 0, false)
	if err != nil {
		return nil, "", err
	}

	val, err := stringArg(name, subject)
	if err != nil {
		return nil, "", err
	}

	if urlsafe {
		return base64.URLEncoding, val, nil
	}
	return base64.StdEncoding, val, nil
}
