// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package ninjalibrary

import (
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"
	"sort"
	"strings"

	"carvel.dev/as3ninja/pkg/render"
	"github.com/zeebo/blake3"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/blake2s"
	"golang.org/x/crypto/sha3"
)

// shakeSize is the digest length of the variable length shake functions.
const shakeSize = 32

var (
	HashExtensions = []render.Extension{
		{Name: "md5sum", Kind: render.KindFilter, Func: hashModule{"md5"}.Sum},
		{Name: "sha1sum", Kind: render.KindFilter, Func: hashModule{"sha1"}.Sum},
		{Name: "sha256sum", Kind: render.KindFilter, Func: hashModule{"sha256"}.Sum},
		{Name: "sha512sum", Kind: render.KindFilter, Func: hashModule{"sha512"}.Sum},
		{Name: "hashfunction", Kind: render.KindFilter, Func: hashfunction},
	}

	hashAlgorithms = map[string]func() hash.Hash{
		"md5":       md5.New,
		"sha1":      sha1.New,
		"sha224":    sha256.New224,
		"sha256":    sha256.New,
		"sha384":    sha512.New384,
		"sha512":    sha512.New,
		"sha3_224":  sha3.New224,
		"sha3_256":  sha3.New256,
		"sha3_384":  sha3.New384,
		"sha3_512":  sha3.New512,
		"shake_128": newShake128,
		"shake_256": newShake256,
		"blake2b":   newBlake2b,
		"blake2s":   newBlake2s,
		"blake3":    newBlake3,
	}
)

type hashModule struct {
	algo string
}

// Sum returns the hex digest of data.
func (m hashModule) Sum(data interface{}) (string, error) {
	return digest(m.algo+"sum", m.algo, false, data)
}

// hashfunction implements `hashfunction algo [binary] data`.
// The digest format may be given as a boolean or as "hex"/"binary".
func hashfunction(algo string, args ...interface{}) (string, error) {
	opts, subject, err := splitArgs("hashfunction", args, 1)
	if err != nil {
		return "", err
	}

	var binary bool

	if len(opts) > 0 {
		switch typedOpt := opts[0].(type) {
		case string:
			switch typedOpt {
			case "hex":
			case "binary":
				binary = true
			default:
				return "", fmt.Errorf("hashfunction: unsupported digest format '%s', expected 'hex' or 'binary'", typedOpt)
			}
		default:
			binary, err = boolOpt("hashfunction", opts, 0, false)
			if err != nil {
				return "", err
			}
		}
	}

	return digest("hashfunction", algo, binary, subject)
}

func digest(name, algo string, binary bool, data interface{}) (string, error) {
	newHash, found := hashAlgorithms[strings.ReplaceAll(strings.ToLower(algo), "-", "_")]
	if !found {
		return "", fmt.Errorf("%s: unsupported hash type '%s' (supported: %s)", name, algo, strings.Join(HashAlgorithms(), ", "))
	}

	val, err := stringArg(name, data)
	if err != nil {
		return "", err
	}

	h := newHash()
	h.Write([]byte(val))
	sum := h.Sum(nil)

	if binary {
		return string(sum), nil
	}
	return hex.EncodeToString(sum), nil
}

// HashAlgorithms returns the names accepted by hashfunction.
func HashAlgorithms() []string {
	var names []string
	for name := range hashAlgorithms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// unkeyed blake2 never fails
func newBlake2b() hash.Hash {
	h, _ := blake2b.New512(nil)
	return h
}

func newBlake2s() hash.Hash {
	h, _ := blake2s.New256(nil)
	return h
}

func newBlake3() hash.Hash { return blake3.New() }

func newShake128() hash.Hash { return shakeHash{sha3.NewShake128()} }
func newShake256() hash.Hash { return shakeHash{sha3.NewShake256()} }

// shakeHash gives a sha3.ShakeHash a fixed output length.
type shakeHash struct {
	sha3.ShakeHash
}

func (h shakeHash) Sum(b []byte) []byte {
	out := make([]byte, shakeSize)
	h.Clone().Read(out)
	return append(b, out...)
}

func (h shakeHash) Size() int { return shakeSize }
