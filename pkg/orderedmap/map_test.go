// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package orderedmap_test

import (
	"errors"
	"testing"

	"carvel.dev/as3ninja/pkg/orderedmap"
	"github.com/stretchr/testify/require"
)

func TestMapKeepsInsertionOrder(t *testing.T) {
	m := orderedmap.NewMap()
	m.Set("z", 1)
	m.Set("a", 2)
	m.Set("m", 3)
	m.Set("a", 4)

	require.Equal(t, []string{"z", "a", "m"}, m.Keys())

	val, found := m.Get("a")
	require.True(t, found)
	require.Equal(t, 4, val)

	require.True(t, m.Delete("z"))
	require.False(t, m.Delete("z"))
	require.Equal(t, []string{"a", "m"}, m.Keys())

	m.Set("z", 5)
	val, found = m.Get("m")
	require.True(t, found)
	require.Equal(t, 3, val)
	require.Equal(t, 3, m.Len())
}

func TestDecodeAndMarshalPreserveOrder(t *testing.T) {
	doc := `{"class": "AS3", "declaration": {"zeta": [1, 2.5, "<b>"], "alpha": null}, "persist": true}`

	val, err := orderedmap.Decode([]byte(doc))
	require.NoError(t, err)

	m := val.(*orderedmap.Map)
	require.Equal(t, []string{"class", "declaration", "persist"}, m.Keys())

	decl, _ := m.Get("declaration")
	zeta, _ := decl.(*orderedmap.Map).Get("zeta")
	require.Equal(t, []interface{}{int64(1), 2.5, "<b>"}, zeta)

	bs, err := orderedmap.Marshal(m)
	require.NoError(t, err)
	require.Equal(t, `{"class":"AS3","declaration":{"zeta":[1,2.5,"<b>"],"alpha":null},"persist":true}`, string(bs))
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		doc    string
		offset int
	}{
		{doc: `{"a": 1,}`, offset: 8},
		{doc: `{"a" 1}`, offset: 5},
		{doc: `{"a": 1} {}`, offset: 9},
	}

	for _, test := range tests {
		t.Run(test.doc, func(t *testing.T) {
			_, err := orderedmap.Decode([]byte(test.doc))
			require.Error(t, err)

			var decodeErr *orderedmap.DecodeError
			require.True(t, errors.As(err, &decodeErr))
			require.Equal(t, test.offset, decodeErr.Offset)
		})
	}
}
