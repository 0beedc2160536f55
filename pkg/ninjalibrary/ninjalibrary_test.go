// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package ninjalibrary_test

import (
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"carvel.dev/as3ninja/pkg/ninjalibrary"
	"carvel.dev/as3ninja/pkg/render"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

const (
	b64Decoded   = "123456789:;<=>?@ABCDEFGHIJKLMNOPQRSTUVWXYZ[\\]^_`abcdefghijklmnopqrstuvwxyz{|}~"
	b64Encoded   = "MTIzNDU2Nzg5Ojs8PT4/QEFCQ0RFRkdISUpLTE1OT1BRUlNUVVZXWFlaW1xdXl9gYWJjZGVmZ2hpamtsbW5vcHFyc3R1dnd4eXp7fH1+"
	b64URLSafe   = "MTIzNDU2Nzg5Ojs8PT4_QEFCQ0RFRkdISUpLTE1OT1BRUlNUVVZXWFlaW1xdXl9gYWJjZGVmZ2hpamtsbW5vcHFyc3R1dnd4eXp7fH1-"
	hashInput    = "fun with hashes"
	hashInputUni = "fun with hashes \u1f600"
)

func newEngine(t *testing.T, searchPath string) *render.Engine {
	return render.NewEngine(render.EngineOpts{
		SearchPath: searchPath,
		Registry:   ninjalibrary.NewRegistry(ninjalibrary.DefaultOpts()),
	})
}

func renderOK(t *testing.T, engine *render.Engine, tpl string, config map[string]interface{}) string {
	t.Helper()
	out, err := engine.Render(tpl, config)
	require.NoError(t, err)
	return out
}

func TestRegistryNames(t *testing.T) {
	names := ninjalibrary.NewRegistry(ninjalibrary.DefaultOpts()).Names()
	for _, name := range []string{
		"b64decode", "b64encode", "dict", "env", "hashfunction", "is_list", "is_map", "iterfiles",
		"jsonify", "list", "md5sum", "ninjutsu", "readfile", "sha1sum", "sha256sum", "sha512sum",
		"to_list", "uuid", "vault", "vault_client",
	} {
		require.Contains(t, names, name)
	}
}

func TestBase64(t *testing.T) {
	engine := newEngine(t, ".")
	config := map[string]interface{}{"decoded": b64Decoded, "encoded": b64Encoded, "urlsafe": b64URLSafe}

	require.Equal(t, b64Encoded, renderOK(t, engine, `{{ ninja.decoded | b64encode }}`, config))
	require.Equal(t, b64Decoded, renderOK(t, engine, `{{ ninja.encoded | b64decode }}`, config))
	require.Equal(t, b64URLSafe, renderOK(t, engine, `{{ ninja.decoded | b64encode true }}`, config))
	require.Equal(t, b64Decoded, renderOK(t, engine, `{{ b64decode true ninja.urlsafe }}`, config))

	_, err := engine.Render(`{{ b64decode "not base64!" }}`, nil)
	require.Error(t, err)

	_, err = engine.Render(`{{ b64encode true false "x" }}`, nil)
	require.EqualError(t, err, "b64encode: expected between 1 and 2 arguments, but got 3")
}

func TestJsonify(t *testing.T) {
	engine := newEngine(t, ".")
	config := map[string]interface{}{"s": `{"json":true}`, "html": "<b>"}

	require.Equal(t, `"{\"json\":true}"`, renderOK(t, engine, `{{ ninja.s | jsonify }}`, config))
	require.Equal(t, `{\"json\":true}`, renderOK(t, engine, `{{ ninja.s | jsonify false }}`, config))
	require.Equal(t, `"<b>"`, renderOK(t, engine, `{{ ninja.html | jsonify }}`, config))
	require.Equal(t, `{"a":1,"b":[true]}`, renderOK(t, engine, `{{ dict "b" (list true) "a" 1 | jsonify }}`, nil))
	require.Equal(t, `3`, renderOK(t, engine, `{{ jsonify false 3 }}`, nil))
}

func TestHashes(t *testing.T) {
	engine := newEngine(t, ".")
	config := map[string]interface{}{"plain": hashInput, "uni": hashInputUni}

	cases := []struct {
		Tpl      string
		Expected string
	}{
		{`{{ ninja.plain | md5sum }}`, "95ef654efb20725651c542b80d91bbe8"},
		{`{{ ninja.uni | md5sum }}`, "9f50b2b6393e9ce6273c4e7937f0c3bc"},
		{`{{ ninja.plain | sha1sum }}`, "c16ced2f8ff2c50626266632cdfa0d2b80c44d50"},
		{`{{ ninja.uni | sha1sum }}`, "22c90831555130511851b192b3f0f0ae8291d9a5"},
		{`{{ ninja.plain | sha256sum }}`, "9a1a995cfab4ee7c5dff458f903931c0e489e9e07d7c71e2d916f59d428a48c0"},
		{`{{ ninja.uni | sha256sum }}`, "9cf9553ad0ab1c4c4d98e50b0fc2ca20583155603ed2ed1d826e4d0eeaa93eee"},
		{`{{ ninja.plain | sha512sum }}`, "b8b25c9998c82ab0aaac9b84f3c60065c0cdd68733a4b6def06f1c622452d16b308caf4641e34e1bd06c28aa894e7abb25981f4cd4f1bbfaeb564b8cdcb99153"},
		{`{{ ninja.plain | hashfunction "sha1" }}`, "c16ced2f8ff2c50626266632cdfa0d2b80c44d50"},
		{`{{ ninja.plain | hashfunction "sha3_256" }}`, "19dbf4cfe516e0bb9a983c45b8e9f300dd69c083ab776d835559750181026802"},
		{`{{ ninja.uni | hashfunction "sha3_256" "hex" }}`, "648b955f78eb3b05f60e9c9e4f812abdc45f23749a0aaa8ebfd2326ca6693513"},
		{`{{ ninja.plain | hashfunction "shake_256" }}`, "cc35a852a42ef7760065adde3f30c88be6361ffae3c1256da383c03c50861a0d"},
		{`{{ ninja.uni | hashfunction "shake_256" }}`, "84ab55560bf3c95642f899a21acaf3dbdfaf3b5cb31e1a736bca173442a3ef37"},
		{`{{ ninja.plain | hashfunction "shake_128" }}`, "93c241518c553eec896aa14ffff43dc717ce133590e84381f1371cee7f7c05bd"},
		{`{{ ninja.plain | hashfunction "blake2b" }}`, "0afcadbf0589b34557d12fba2668fb9e0f6c9bd4efc04bd80b49367481d84df8964d01371085fbf48f5204e64396b9fe44a2107e1e3abd9020b896828954ff82"},
		{`{{ ninja.uni | hashfunction "BLAKE2B" }}`, "199b7ae6f320a7926c6c6be92684f861f3438288437b01ed36a572d9af059ad5b5e9b2d0842abf850898c3ae9d58bd73e202ed3fac6a3fa13f6c61b623c394c7"},
	}

	for _, tc := range cases {
		t.Run(tc.Tpl, func(t *testing.T) {
			require.Equal(t, tc.Expected, renderOK(t, engine, tc.Tpl, config))
		})
	}

	t.Run("binary digest", func(t *testing.T) {
		expected, err := hex.DecodeString("19dbf4cfe516e0bb9a983c45b8e9f300dd69c083ab776d835559750181026802")
		require.NoError(t, err)

		require.Equal(t, string(expected), renderOK(t, engine, `{{ ninja.plain | hashfunction "sha3_256" "binary" }}`, config))
		require.Equal(t, string(expected), renderOK(t, engine, `{{ ninja.plain | hashfunction "sha3_256" true }}`, config))
	})

	t.Run("digest lengths", func(t *testing.T) {
		for algo, size := range map[string]int{"sha224": 56, "sha384": 96, "sha3_512": 128, "blake2s": 64, "blake3": 64} {
			out := renderOK(t, engine, `{{ ninja.plain | hashfunction "`+algo+`" }}`, config)
			require.Len(t, out, size, algo)
		}
	})

	t.Run("errors", func(t *testing.T) {
		_, err := engine.Render(`{{ hashfunction "foobar-hashfunction" "data" }}`, nil)
		require.Error(t, err)
		require.Contains(t, err.Error(), "foobar-hashfunction")

		_, err = engine.Render(`{{ hashfunction "sha3_256" "unsupported_format" "data" }}`, nil)
		require.EqualError(t, err, "hashfunction: unsupported digest format 'unsupported_format', expected 'hex' or 'binary'")
	})
}

func TestEnv(t *testing.T) {
	engine := newEngine(t, ".")

	t.Setenv("AS3NINJA_TEST_ENV", "variable exists")
	t.Setenv("AS3NINJA_TEST_EMPTY", "")

	require.Equal(t, "variable exists", renderOK(t, engine, `{{ env "AS3NINJA_TEST_ENV" }}`, nil))
	require.Equal(t, "", renderOK(t, engine, `{{ env "AS3NINJA_TEST_EMPTY" "default value" }}`, nil))
	require.Equal(t, "default value", renderOK(t, engine, `{{ env "AS3NINJA_TEST_UNSET_VAR" "default value" }}`, nil))
	require.Equal(t, "", renderOK(t, engine, `{{ env "AS3NINJA_TEST_UNSET_VAR" }}`, nil))
}

func TestUUID(t *testing.T) {
	engine := newEngine(t, ".")

	out := renderOK(t, engine, `{{ uuid }}`, nil)
	parsed, err := uuid.Parse(out)
	require.NoError(t, err)
	require.Equal(t, uuid.Version(4), parsed.Version())

	require.NotEqual(t, out, renderOK(t, engine, `{{ uuid }}`, nil))
}

func TestListsAndMaps(t *testing.T) {
	engine := newEngine(t, ".")
	config := map[string]interface{}{
		"l": []interface{}{"foo", "bar"},
		"m": map[string]interface{}{"b": 1, "a": 2},
		"s": "foo bar",
	}

	require.Equal(t, `["foo bar"]`, renderOK(t, engine, `{{ to_list ninja.s | jsonify }}`, config))
	require.Equal(t, `[245]`, renderOK(t, engine, `{{ to_list 245 | jsonify }}`, config))
	require.Equal(t, `["foo","bar"]`, renderOK(t, engine, `{{ to_list ninja.l | jsonify }}`, config))
	require.Equal(t, `["a","b"]`, renderOK(t, engine, `{{ to_list ninja.m | jsonify }}`, config))
	require.Equal(t, `[]`, renderOK(t, engine, `{{ list | jsonify }}`, config))

	tpl := `{{ if is_list ninja.l }}L{{ end }}{{ if is_list ninja.s }}S{{ end }}{{ if is_map ninja.m }}M{{ end }}{{ if is_map ninja.l }}X{{ end }}`
	require.Equal(t, "LM", renderOK(t, engine, tpl, config))

	_, err := engine.Render(`{{ dict "a" }}`, nil)
	require.EqualError(t, err, "Expected an even number of key/value arguments, but got 1")
}

func TestNinjutsu(t *testing.T) {
	engine := newEngine(t, ".")
	config := map[string]interface{}{
		"a":   "from_config",
		"tpl": `{"from_config": "{{ ninja.a }}", "from_context": "{{ .var }}"}`,
	}

	out := renderOK(t, engine, `{{ ninja.tpl | ninjutsu "var" "some value" }}`, config)
	require.Equal(t, `{"from_config": "from_config", "from_context": "some value"}`, out)

	_, err := engine.Render(`{{ ninjutsu "{{ ninja.missing }}" }}`, config)
	var undefinedErr *render.UndefinedError
	require.ErrorAs(t, err, &undefinedErr)
}

func TestFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "json", "a.json"), `{"k": 1}`)
	writeFile(t, filepath.Join(dir, "json", "subdir", "d.json"), `{"d": true}`)
	writeFile(t, filepath.Join(dir, "text", "c.txt"), "hello\nworld\n")
	writeFile(t, filepath.Join(dir, "yaml", "b.yaml"), "k: v\n")

	engine := newEngine(t, dir)

	t.Run("readfile", func(t *testing.T) {
		require.Equal(t, "hello\nworld\n", renderOK(t, engine, `{{ readfile "text/c.txt" }}`, nil))
		require.Equal(t, "", renderOK(t, engine, `{{ readfile true "does/not/exist.ext" }}`, nil))

		_, err := engine.Render(`{{ readfile "does/not/exist.ext" }}`, nil)
		require.Error(t, err)
		require.Contains(t, err.Error(), "readfile: ")
	})

	t.Run("readfile encoding", func(t *testing.T) {
		textDir := t.TempDir()
		writeFile(t, filepath.Join(textDir, "utf8.txt"), "Ünïcode remark")
		writeFile(t, filepath.Join(textDir, "latin1.txt"), "caf\xe9")

		textEngine := newEngine(t, textDir)
		require.Equal(t, "Ünïcode remark", renderOK(t, textEngine, `{{ readfile "utf8.txt" }}`, nil))

		_, err := textEngine.Render(`{{ readfile "latin1.txt" }}`, nil)
		require.EqualError(t, err, "readfile: File 'latin1.txt' is not valid UTF-8 text")
	})

	t.Run("iterfiles all", func(t *testing.T) {
		out := renderOK(t, engine, `{{ iterfiles "*/*.*" | jsonify }}`, nil)
		require.Equal(t, `[["json","a","json",{"k":1}],["text","c","txt","hello\nworld\n"],["yaml","b","yaml",{"k":"v"}]]`, out)
	})

	t.Run("iterfiles recursive", func(t *testing.T) {
		out := renderOK(t, engine, `{{ range iterfiles "**/*.json" }}{{ index . 0 }}:{{ index . 1 }};{{ end }}`, nil)
		require.Equal(t, `json:a;json/subdir:d;`, out)
	})

	t.Run("iterfiles missing", func(t *testing.T) {
		_, err := engine.Render(`{{ iterfiles "nonexistent/**/*.json" }}`, nil)
		require.EqualError(t, err, "iterfiles: Could not find any files for pattern:nonexistent/**/*.json")

		require.Equal(t, "[]", renderOK(t, engine, `{{ iterfiles true "nonexistent/**/*.json" | jsonify }}`, nil))
	})
}

func TestVault(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/auth/token/lookup-self", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Vault-Token") != "s3cr3t" {
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte(`{"errors":["permission denied"]}`))
			return
		}
		w.Write([]byte(`{"data":{"id":"s3cr3t"}}`))
	})
	mux.HandleFunc("/v1/secret/data/app", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"data":{"privateKey":"KEY"},"metadata":{"version":1}}}`))
	})
	mux.HandleFunc("/v1/kv/app", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"data":{"privateKey":"V1"}}`))
	})

	server := httptest.NewServer(mux)
	defer server.Close()

	t.Setenv("VAULT_TOKEN", "")

	engine := newEngine(t, ".")
	config := map[string]interface{}{
		"addr": server.URL,
		"as3ninja": map[string]interface{}{
			"vault": map[string]interface{}{"addr": server.URL, "token": "s3cr3t"},
		},
	}

	out := renderOK(t, engine, `{{ vault (dict "path" "secret/app" "filter" "data.privateKey") }}`, config)
	require.Equal(t, "KEY", out)

	tpl := `{{ $client := vault_client (dict "addr" ninja.addr "token" "s3cr3t") }}` +
		`{{ vault $client (dict "path" "app" "mount_point" "kv" "engine" "kv1" "filter" "data.privateKey") }}`
	require.Equal(t, "V1", renderOK(t, engine, tpl, config))

	_, err := engine.Render(`{{ vault_client ninja.addr "wrong" }}`, config)
	require.Error(t, err)
	require.Contains(t, err.Error(), "Could not successfully authenticate.")

	_, err = engine.Render(`{{ vault "secret/app" }}`, config)
	require.EqualError(t, err, "vault: expected secret to be a mapping, but was string")
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0700))
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
}
