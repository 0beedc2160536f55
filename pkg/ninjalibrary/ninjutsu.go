// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package ninjalibrary

import (
	"fmt"

	"carvel.dev/as3ninja/pkg/render"
)

var (
	NinjutsuExtensions = []render.Extension{
		{Name: "ninjutsu", Kind: render.KindFilter, Factory: func(ctx *render.Context) interface{} {
			return ninjutsuModule{ctx}.Ninjutsu
		}},
	}
)

type ninjutsuModule struct {
	ctx *render.Context
}

// Ninjutsu implements `ninjutsu [key value ...] text`: text is rendered
// as a template with the current configuration and the given values.
func (m ninjutsuModule) Ninjutsu(args ...interface{}) (string, error) {
	if len(args) == 0 {
		return "", fmt.Errorf("ninjutsu: expected template text as last argument")
	}

	text, err := stringArg("ninjutsu", args[len(args)-1])
	if err != nil {
		return "", err
	}

	extra, err := render.KeyValues(args[:len(args)-1]...)
	if err != nil {
		return "", fmt.Errorf("ninjutsu: %s", err)
	}

	return m.ctx.Render(text, extra)
}
