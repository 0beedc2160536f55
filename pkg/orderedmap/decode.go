// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package orderedmap

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// DecodeError describes malformed JSON found at Offset.
type DecodeError struct {
	Msg    string
	Offset int
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s (offset %d)", e.Msg, e.Offset)
}

// Decode parses a single JSON value. Objects are decoded into *Map,
// arrays into []interface{} and numbers into int64 or float64.
func Decode(data []byte) (interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	val, err := decodeValue(dec)
	if err != nil {
		return nil, decodeErr(dec, err)
	}

	rest := bytes.TrimLeft(data[dec.InputOffset():], " \t\r\n")
	if len(rest) > 0 {
		return nil, &DecodeError{Msg: "Extra data", Offset: len(data) - len(rest)}
	}

	return val, nil
}

func decodeValue(dec *json.Decoder) (interface{}, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}

	switch typedTok := tok.(type) {
	case json.Delim:
		switch typedTok {
		case '{':
			return decodeObject(dec)
		case '[':
			return decodeArray(dec)
		default:
			return nil, fmt.Errorf("Unexpected delimiter '%s'", typedTok)
		}

	case json.Number:
		if i, err := typedTok.Int64(); err == nil {
			return i, nil
		}
		f, err := typedTok.Float64()
		if err != nil {
			return nil, err
		}
		return f, nil

	default:
		return tok, nil
	}
}

func decodeObject(dec *json.Decoder) (*Map, error) {
	result := NewMap()

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}

		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("Expecting property name enclosed in double quotes")
		}

		val, err := decodeValue(dec)
		if err != nil {
			return nil, err
		}
		result.Set(key, val)
	}

	// closing '}'
	_, err := dec.Token()
	if err != nil {
		return nil, err
	}
	return result, nil
}

func decodeArray(dec *json.Decoder) ([]interface{}, error) {
	result := []interface{}{}

	for dec.More() {
		val, err := decodeValue(dec)
		if err != nil {
			return nil, err
		}
		result = append(result, val)
	}

	// closing ']'
	_, err := dec.Token()
	if err != nil {
		return nil, err
	}
	return result, nil
}

func decodeErr(dec *json.Decoder, err error) error {
	var syntaxErr *json.SyntaxError
	if errors.As(err, &syntaxErr) {
		return &DecodeError{Msg: syntaxErr.Error(), Offset: int(syntaxErr.Offset)}
	}
	if err == io.EOF || errors.Is(err, io.ErrUnexpectedEOF) {
		return &DecodeError{Msg: "Expecting value", Offset: int(dec.InputOffset())}
	}
	return &DecodeError{Msg: err.Error(), Offset: int(dec.InputOffset())}
}
